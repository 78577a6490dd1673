package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/riskgraph/pkg/constants"
	"github.com/turtacn/riskgraph/pkg/errors"
	"github.com/turtacn/riskgraph/pkg/logger"
)

func TestRegistrySubmitAndGet(t *testing.T) {
	reg := NewSimulationRegistry(logger.NewNoop())

	run, err := reg.Submit("tenant-1", constants.SimulationTypeMonteCarlo, map[string]int{"iterations": 500}, nil)
	require.NoError(t, err)

	assert.NotEmpty(t, run.ID)
	assert.Equal(t, constants.SimulationStatusSubmitted, run.Status)
	assert.Equal(t, "tenant-1", run.TenantID)
	assert.JSONEq(t, `{"iterations":500}`, string(run.Config))

	got, err := reg.Get(run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
}

func TestRegistryGetUnknownRun(t *testing.T) {
	reg := NewSimulationRegistry(logger.NewNoop())

	_, err := reg.Get("nope")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeSimulationNotFound))
}

func TestRegistryLifecycleToCompleted(t *testing.T) {
	reg := NewSimulationRegistry(logger.NewNoop())
	run, err := reg.Submit("tenant-1", constants.SimulationTypeCascade, nil, nil)
	require.NoError(t, err)

	reg.MarkRunning(run.ID)
	got, _ := reg.Get(run.ID)
	assert.Equal(t, constants.SimulationStatusRunning, got.Status)
	assert.NotNil(t, got.StartedAt)

	require.NoError(t, reg.Complete(run.ID, map[string]int{"effects": 3}, nil))
	got, _ = reg.Get(run.ID)
	assert.Equal(t, constants.SimulationStatusCompleted, got.Status)
	assert.NotNil(t, got.CompletedAt)
	assert.JSONEq(t, `{"effects":3}`, string(got.Result))
}

func TestRegistryWarningsDemoteCompletion(t *testing.T) {
	reg := NewSimulationRegistry(logger.NewNoop())
	run, _ := reg.Submit("tenant-1", constants.SimulationTypeStressTest, nil, nil)
	reg.MarkRunning(run.ID)

	require.NoError(t, reg.Complete(run.ID, struct{}{}, []string{"entity x skipped"}))

	got, _ := reg.Get(run.ID)
	assert.Equal(t, constants.SimulationStatusCompletedWithWarnings, got.Status)
	assert.Equal(t, []string{"entity x skipped"}, got.Warnings)
}

func TestRegistryFail(t *testing.T) {
	reg := NewSimulationRegistry(logger.NewNoop())
	run, _ := reg.Submit("tenant-1", constants.SimulationTypeMonteCarlo, nil, nil)
	reg.MarkRunning(run.ID)

	reg.Fail(run.ID, "exceeded time ceiling")

	got, _ := reg.Get(run.ID)
	assert.Equal(t, constants.SimulationStatusFailed, got.Status)
	assert.Equal(t, "exceeded time ceiling", got.FailureReason)
}

func TestRegistryCancelLiveRunInvokesCancelFunc(t *testing.T) {
	reg := NewSimulationRegistry(logger.NewNoop())

	ctx, cancel := context.WithCancel(context.Background())
	run, _ := reg.Submit("tenant-1", constants.SimulationTypeMonteCarlo, nil, cancel)
	reg.MarkRunning(run.ID)

	got, err := reg.Cancel(run.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.SimulationStatusCancelled, got.Status)

	select {
	case <-ctx.Done():
	default:
		t.Fatal("expected the run context to be cancelled")
	}
}

func TestRegistryCancelTerminalRunIsNoOp(t *testing.T) {
	reg := NewSimulationRegistry(logger.NewNoop())
	run, _ := reg.Submit("tenant-1", constants.SimulationTypeCascade, nil, nil)
	reg.MarkRunning(run.ID)
	require.NoError(t, reg.Complete(run.ID, struct{}{}, nil))

	got, err := reg.Cancel(run.ID)
	require.NoError(t, err)
	// the terminal state is preserved so the caller can tell it was a no-op
	assert.Equal(t, constants.SimulationStatusCompleted, got.Status)
}

func TestRegistryCompleteAfterCancelKeepsCancelledState(t *testing.T) {
	reg := NewSimulationRegistry(logger.NewNoop())
	run, _ := reg.Submit("tenant-1", constants.SimulationTypeMonteCarlo, nil, nil)
	reg.MarkRunning(run.ID)

	_, err := reg.Cancel(run.ID)
	require.NoError(t, err)

	// the worker finishing late must not overwrite the cancellation
	require.NoError(t, reg.Complete(run.ID, struct{}{}, nil))
	got, _ := reg.Get(run.ID)
	assert.Equal(t, constants.SimulationStatusCancelled, got.Status)
}

func TestRegistryListFilters(t *testing.T) {
	reg := NewSimulationRegistry(logger.NewNoop())

	a, _ := reg.Submit("tenant-1", constants.SimulationTypeCascade, nil, nil)
	b, _ := reg.Submit("tenant-1", constants.SimulationTypeMonteCarlo, nil, nil)
	_, _ = reg.Submit("tenant-2", constants.SimulationTypeCascade, nil, nil)
	reg.MarkRunning(b.ID)

	assert.Len(t, reg.List(RunFilter{TenantID: "tenant-1"}), 2)
	assert.Len(t, reg.List(RunFilter{TenantID: "tenant-2"}), 1)

	byType := reg.List(RunFilter{TenantID: "tenant-1", Type: constants.SimulationTypeCascade})
	require.Len(t, byType, 1)
	assert.Equal(t, a.ID, byType[0].ID)

	byStatus := reg.List(RunFilter{Status: constants.SimulationStatusRunning})
	require.Len(t, byStatus, 1)
	assert.Equal(t, b.ID, byStatus[0].ID)
}

func TestRegistryPruneDropsExpiredTerminalRuns(t *testing.T) {
	reg := NewSimulationRegistry(logger.NewNoop())
	reg.retention = time.Millisecond

	done, _ := reg.Submit("tenant-1", constants.SimulationTypeCascade, nil, nil)
	reg.MarkRunning(done.ID)
	require.NoError(t, reg.Complete(done.ID, struct{}{}, nil))

	live, _ := reg.Submit("tenant-1", constants.SimulationTypeMonteCarlo, nil, nil)
	reg.MarkRunning(live.ID)

	time.Sleep(5 * time.Millisecond)
	reg.prune(context.Background())

	_, err := reg.Get(done.ID)
	assert.True(t, errors.HasCode(err, errors.CodeSimulationNotFound))

	// live runs survive pruning regardless of age
	_, err = reg.Get(live.ID)
	assert.NoError(t, err)
	assert.Equal(t, 1, reg.Size())
}

func TestRegistryGetReturnsCopy(t *testing.T) {
	reg := NewSimulationRegistry(logger.NewNoop())
	run, _ := reg.Submit("tenant-1", constants.SimulationTypeCascade, nil, nil)

	got, _ := reg.Get(run.ID)
	got.Status = constants.SimulationStatusFailed

	again, _ := reg.Get(run.ID)
	assert.Equal(t, constants.SimulationStatusSubmitted, again.Status)
}
