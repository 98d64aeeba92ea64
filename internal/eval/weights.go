// Package eval turns raw per-task run records into comparative metrics, a
// helped/hurt classification, a failure taxonomy, and one immutable
// evaluation artifact per aggregation pass.
package eval

import (
	"math"

	"bintly/internal/config"
	berrors "bintly/internal/errors"
	"bintly/internal/runstore"
)

// WeightTolerance is the floating tolerance for the sum-to-one check.
const WeightTolerance = 1e-6

// Weights is the adjusted-success-rate weighting. The same weights apply to
// both arms so the rates stay comparable.
type Weights struct {
	Success   float64 `json:"success"`
	Quality   float64 `json:"quality"`
	Adherence float64 `json:"adherence"`
}

// WeightsFromConfig lifts the three ASR weights out of the runtime config.
func WeightsFromConfig(cfg config.RuntimeConfig) Weights {
	return Weights{
		Success:   cfg.ASRSuccessWeight,
		Quality:   cfg.ASRQualityWeight,
		Adherence: cfg.ASRAdherenceWeight,
	}
}

// Validate rejects negative weights and sums that drift from 1 by more than
// the tolerance. There is no renormalization; a bad configuration halts the
// pass before any summary is produced.
func (w Weights) Validate() error {
	if w.Success < 0 || w.Quality < 0 || w.Adherence < 0 {
		return berrors.NewConfigurationError("asr_weights",
			"weights must be non-negative, got success=%g quality=%g adherence=%g",
			w.Success, w.Quality, w.Adherence)
	}
	sum := w.Success + w.Quality + w.Adherence
	if math.Abs(sum-1) > WeightTolerance {
		return berrors.NewConfigurationError("asr_weights",
			"weights must sum to 1 within %g, got %g", WeightTolerance, sum)
	}
	return nil
}

// AdjustedScore is the per-task adjusted score: zero for a failed run,
// otherwise the weighted combination of success, quality normalized to the
// 0-5 scale, and constraint adherence. A missing optional score contributes
// nothing rather than being imputed.
func (w Weights) AdjustedScore(record runstore.RunRecord) float64 {
	if !record.Succeeded {
		return 0
	}
	score := w.Success
	if record.QualityScore != nil {
		score += w.Quality * (*record.QualityScore / 5)
	}
	if record.ConstraintAdherence != nil {
		score += w.Adherence * *record.ConstraintAdherence
	}
	return score
}
