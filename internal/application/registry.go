// Package application orchestrates the engine: it owns the simulation
// registry, hands long-running work off to background workers, and wires
// results to persistence and the event sink.
package application

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/riskgraph/internal/domain/models"
	"github.com/turtacn/riskgraph/pkg/constants"
	"github.com/turtacn/riskgraph/pkg/errors"
	"github.com/turtacn/riskgraph/pkg/logger"
)

// SimulationRegistry is the process-wide, in-memory store tracking the
// lifecycle of asynchronous simulation runs. It is intentionally not
// durable: simulations are advisory and re-runnable, and the registry must
// never block the record-of-truth store. Terminal runs are pruned after a
// retention window.
type SimulationRegistry struct {
	mu      sync.RWMutex
	runs    map[string]*models.SimulationRun
	cancels map[string]context.CancelFunc

	retention time.Duration
	log       logger.Logger
}

// RunFilter narrows List results. Zero-value fields match everything.
type RunFilter struct {
	TenantID string
	Type     constants.SimulationType
	Status   constants.SimulationStatus
}

// NewSimulationRegistry creates an empty registry.
func NewSimulationRegistry(log logger.Logger) *SimulationRegistry {
	return &SimulationRegistry{
		runs:      make(map[string]*models.SimulationRun),
		cancels:   make(map[string]context.CancelFunc),
		retention: constants.RegistryRetention,
		log:       log.WithComponent("SimulationRegistry"),
	}
}

// Submit inserts a new run in the submitted state and returns it. The cancel
// function is invoked when the run is cancelled while still live.
func (r *SimulationRegistry) Submit(tenantID string, simType constants.SimulationType, config interface{}, cancel context.CancelFunc) (*models.SimulationRun, error) {
	raw, err := json.Marshal(config)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "serializing simulation config")
	}

	run := &models.SimulationRun{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Type:      simType,
		Status:    constants.SimulationStatusSubmitted,
		Config:    raw,
		CreatedAt: time.Now().UTC(),
	}

	r.mu.Lock()
	r.runs[run.ID] = run
	if cancel != nil {
		r.cancels[run.ID] = cancel
	}
	r.mu.Unlock()

	return copyRun(run), nil
}

// MarkRunning transitions a submitted run to running.
func (r *SimulationRegistry) MarkRunning(runID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if run, ok := r.runs[runID]; ok && run.Status == constants.SimulationStatusSubmitted {
		now := time.Now().UTC()
		run.Status = constants.SimulationStatusRunning
		run.StartedAt = &now
	}
}

// Complete terminates a run with a result payload. Warnings, if any, demote
// the terminal status to completed_with_warnings.
func (r *SimulationRegistry) Complete(runID string, result interface{}, warnings []string) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "serializing simulation result")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[runID]
	if !ok {
		return errors.ErrSimulationNotFound(runID)
	}
	if run.Status.IsTerminal() {
		return nil // cancelled while the worker was finishing; keep the terminal state
	}
	now := time.Now().UTC()
	run.Result = raw
	run.Warnings = warnings
	run.CompletedAt = &now
	if len(warnings) > 0 {
		run.Status = constants.SimulationStatusCompletedWithWarnings
	} else {
		run.Status = constants.SimulationStatusCompleted
	}
	delete(r.cancels, runID)
	return nil
}

// Fail terminates a run with a failure reason, retaining any partial result
// already attached.
func (r *SimulationRegistry) Fail(runID string, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[runID]
	if !ok || run.Status.IsTerminal() {
		return
	}
	now := time.Now().UTC()
	run.Status = constants.SimulationStatusFailed
	run.FailureReason = reason
	run.CompletedAt = &now
	delete(r.cancels, runID)
}

// Get returns a copy of the run.
func (r *SimulationRegistry) Get(runID string) (*models.SimulationRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[runID]
	if !ok {
		return nil, errors.ErrSimulationNotFound(runID)
	}
	return copyRun(run), nil
}

// List returns runs matching the filter, newest first.
func (r *SimulationRegistry) List(filter RunFilter) []*models.SimulationRun {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.SimulationRun
	for _, run := range r.runs {
		if filter.TenantID != "" && run.TenantID != filter.TenantID {
			continue
		}
		if filter.Type != "" && run.Type != filter.Type {
			continue
		}
		if filter.Status != "" && run.Status != filter.Status {
			continue
		}
		out = append(out, copyRun(run))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Cancel requests cooperative cancellation of a live run. Cancelling a
// terminal run is a no-op; the returned run reports the already-terminal
// state so the caller can tell the difference.
func (r *SimulationRegistry) Cancel(runID string) (*models.SimulationRun, error) {
	r.mu.Lock()
	run, ok := r.runs[runID]
	if !ok {
		r.mu.Unlock()
		return nil, errors.ErrSimulationNotFound(runID)
	}
	if run.Status.IsTerminal() {
		r.mu.Unlock()
		return copyRun(run), nil
	}

	now := time.Now().UTC()
	run.Status = constants.SimulationStatusCancelled
	run.CompletedAt = &now
	cancel := r.cancels[runID]
	delete(r.cancels, runID)
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return copyRun(run), nil
}

// StartSweeper launches the background pruning loop and returns when ctx is
// done. Terminal runs older than the retention window are dropped.
func (r *SimulationRegistry) StartSweeper(ctx context.Context) {
	ticker := time.NewTicker(constants.RegistrySweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.prune(ctx)
		}
	}
}

func (r *SimulationRegistry) prune(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-r.retention)
	var pruned int

	r.mu.Lock()
	for id, run := range r.runs {
		if run.Status.IsTerminal() && run.CompletedAt != nil && run.CompletedAt.Before(cutoff) {
			delete(r.runs, id)
			pruned++
		}
	}
	remaining := len(r.runs)
	r.mu.Unlock()

	if pruned > 0 {
		r.log.Info(ctx, "pruned expired simulation runs",
			logger.Int("pruned", pruned),
			logger.Int("remaining", remaining),
		)
	}
}

// Size returns the number of tracked runs, for the registry gauge.
func (r *SimulationRegistry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.runs)
}

func copyRun(run *models.SimulationRun) *models.SimulationRun {
	clone := *run
	if run.Warnings != nil {
		clone.Warnings = append([]string(nil), run.Warnings...)
	}
	return &clone
}
