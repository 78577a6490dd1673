package service

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/turtacn/riskgraph/internal/domain/models"
	"github.com/turtacn/riskgraph/pkg/constants"
	"github.com/turtacn/riskgraph/pkg/errors"
	"github.com/turtacn/riskgraph/pkg/logger"
)

// MonteCarloSimulator perturbs current scores stochastically across
// iterations to produce distributional statistics per entity and for the
// portfolio as a whole. Supplying the same seed with the same inputs
// reproduces bit-identical statistics; that reproducibility is the primary
// correctness contract of this simulator.
type MonteCarloSimulator struct {
	log logger.Logger
}

// NewMonteCarloSimulator creates a Monte Carlo simulator.
func NewMonteCarloSimulator(log logger.Logger) *MonteCarloSimulator {
	return &MonteCarloSimulator{log: log.WithComponent("MonteCarloSimulator")}
}

// Run samples score distributions for the configured entities. Config is
// validated before any sampling begins; there are no partial runs on bad
// input. Cancellation is checked between iteration batches.
func (s *MonteCarloSimulator) Run(ctx context.Context, snap *GraphSnapshot, cfg models.MonteCarloConfig) (*models.MonteCarloResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	entityIDs, err := resolveEntityIDs(snap, cfg.EntityIDs)
	if err != nil {
		return nil, err
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	// A single seeded source drives all sampling so iteration order fully
	// determines the stream.
	rng := rand.New(rand.NewSource(seed))

	baseScores := make([]float64, len(entityIDs))
	for i, id := range entityIDs {
		baseScores[i] = snap.CurrentScore(id)
	}

	samples := make([][]float64, len(entityIDs))
	for i := range samples {
		samples[i] = make([]float64, 0, cfg.Iterations)
	}
	portfolio := make([]float64, 0, cfg.Iterations)

	// Iteration-index order, batched for cooperative cancellation: at most
	// one batch of extra work happens after a cancel request.
	for start := 0; start < cfg.Iterations; start += constants.MonteCarloBatchSize {
		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), errors.CodeTimeout, "monte carlo interrupted at iteration %d", start)
		default:
		}

		end := start + constants.MonteCarloBatchSize
		if end > cfg.Iterations {
			end = cfg.Iterations
		}
		for it := start; it < end; it++ {
			var sum float64
			for i := range entityIDs {
				scale := cfg.Volatility * baseScores[i]
				if baseScores[i] == 0 {
					scale = constants.MonteCarloZeroScoreScale
				}
				sample := clamp(baseScores[i]+rng.NormFloat64()*scale, 0, 100)
				samples[i] = append(samples[i], sample)
				sum += sample
			}
			portfolio = append(portfolio, sum)
		}
	}

	result := &models.MonteCarloResult{
		Iterations:      cfg.Iterations,
		ConfidenceLevel: cfg.ConfidenceLevel,
		Seed:            seed,
		PerEntity:       make(map[string]models.DistributionStats, len(entityIDs)),
		Portfolio:       summarize(portfolio, cfg.ConfidenceLevel),
	}
	for i, id := range entityIDs {
		result.PerEntity[id] = summarize(samples[i], cfg.ConfidenceLevel)
	}

	s.log.Debug(ctx, "monte carlo completed",
		logger.Int("entities", len(entityIDs)),
		logger.Int("iterations", cfg.Iterations),
		logger.Int64("seed", seed),
	)
	return result, nil
}

// resolveEntityIDs expands an empty selection to all active entities and
// rejects unknown ids up front.
func resolveEntityIDs(snap *GraphSnapshot, requested []string) ([]string, error) {
	if len(requested) == 0 {
		return snap.ActiveEntityIDs(), nil
	}
	ids := make([]string, 0, len(requested))
	for _, id := range requested {
		if snap.Entity(id) == nil {
			return nil, errors.ErrEntityNotFound(id)
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// summarize computes the empirical statistics of a sample set. The tail
// value at the confidence level is the de facto Value-at-Risk.
func summarize(samples []float64, confidence float64) models.DistributionStats {
	if len(samples) == 0 {
		return models.DistributionStats{}
	}

	var sum float64
	min, max := samples[0], samples[0]
	for _, v := range samples {
		sum += v
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	mean := sum / float64(len(samples))

	var variance float64
	for _, v := range samples {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(samples))

	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)
	idx := int(math.Ceil(confidence*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}

	return models.DistributionStats{
		Mean:        mean,
		StdDev:      math.Sqrt(variance),
		Min:         min,
		Max:         max,
		ValueAtRisk: sorted[idx],
	}
}
