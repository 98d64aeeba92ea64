package eval

import (
	"math"
	"sort"

	"bintly/internal/runstore"
)

// ArmSummary is the per-arm statistics block of the evaluation artifact.
// Pointer fields are nil when the underlying sample is empty: an undefined
// average is signaled, never defaulted to zero.
type ArmSummary struct {
	Arm                  runstore.Arm `json:"arm"`
	TaskCount            int          `json:"task_count"`
	SuccessRate          float64      `json:"success_rate"`
	FirstPassSuccessRate float64      `json:"first_pass_success_rate"`
	AvgTokensUsed        *float64     `json:"avg_tokens_used"`
	AvgQuality           *float64     `json:"avg_quality"`
	ScoredCount          int          `json:"scored_count"`
	AvgAdherence         *float64     `json:"avg_constraint_adherence"`
	AdherenceCount       int          `json:"adherence_count"`
	WallTimeP50          *float64     `json:"wall_time_p50"`
	WallTimeP95          *float64     `json:"wall_time_p95"`
	AdjustedSuccessRate  *float64     `json:"adjusted_success_rate"`
}

// ComparativeMetrics compares the swarm arm against the monolith baseline.
// Every delta is swarm minus monolith: a positive quality delta is a gain, a
// positive token cost delta is the coordination overhead (a cost, judged
// separately). Deltas over undefined averages are themselves nil.
type ComparativeMetrics struct {
	QualityDelta   *float64 `json:"quality_delta"`
	AdherenceDelta *float64 `json:"constraint_adherence_delta"`
	TokenCostDelta *float64 `json:"token_cost_delta"`
	ASRSwarm       *float64 `json:"adjusted_success_rate_swarm"`
	ASRMonolith    *float64 `json:"adjusted_success_rate_monolith"`
	// VPD is ASR(swarm) minus ASR(monolith).
	VersonalityPerformanceDelta *float64 `json:"versonality_performance_delta"`
}

// Summarize computes the ArmSummary for one arm over the given records. It
// only considers records matching the arm, so callers may pass the full set.
// Weight validation runs first; a bad configuration fails before any output.
func Summarize(records []runstore.RunRecord, arm runstore.Arm, weights Weights) (ArmSummary, error) {
	if err := weights.Validate(); err != nil {
		return ArmSummary{}, err
	}

	armRecords := runstore.ByArm(records, arm)
	summary := ArmSummary{Arm: arm, TaskCount: len(armRecords)}
	if len(armRecords) == 0 {
		return summary, nil
	}

	var (
		succeeded    int
		tokensTotal  int
		qualityTotal float64
		adhereTotal  float64
		adjusted     float64
		wallTimes    = make([]float64, 0, len(armRecords))
	)
	for _, r := range armRecords {
		if r.Succeeded {
			succeeded++
		}
		// Token spend counts for every record, failed runs included.
		tokensTotal += r.TokensUsed
		if r.QualityScore != nil {
			qualityTotal += *r.QualityScore
			summary.ScoredCount++
		}
		if r.ConstraintAdherence != nil {
			adhereTotal += *r.ConstraintAdherence
			summary.AdherenceCount++
		}
		adjusted += weights.AdjustedScore(r)
		wallTimes = append(wallTimes, r.WallTimeSeconds)
	}

	n := float64(len(armRecords))
	summary.SuccessRate = float64(succeeded) / n
	// No retry policy: first pass is the only pass.
	summary.FirstPassSuccessRate = summary.SuccessRate
	summary.AvgTokensUsed = ptr(float64(tokensTotal) / n)
	if summary.ScoredCount > 0 {
		summary.AvgQuality = ptr(qualityTotal / float64(summary.ScoredCount))
	}
	if summary.AdherenceCount > 0 {
		summary.AvgAdherence = ptr(adhereTotal / float64(summary.AdherenceCount))
	}
	summary.AdjustedSuccessRate = ptr(adjusted / n)

	sort.Float64s(wallTimes)
	summary.WallTimeP50 = ptr(nearestRank(wallTimes, 50))
	summary.WallTimeP95 = ptr(nearestRank(wallTimes, 95))
	return summary, nil
}

// Compare derives the comparative metrics from the two arm summaries. The
// deltas are antisymmetric: swapping the arguments negates every one.
func Compare(swarm, monolith ArmSummary) ComparativeMetrics {
	return ComparativeMetrics{
		QualityDelta:                delta(swarm.AvgQuality, monolith.AvgQuality),
		AdherenceDelta:              delta(swarm.AvgAdherence, monolith.AvgAdherence),
		TokenCostDelta:              delta(swarm.AvgTokensUsed, monolith.AvgTokensUsed),
		ASRSwarm:                    swarm.AdjustedSuccessRate,
		ASRMonolith:                 monolith.AdjustedSuccessRate,
		VersonalityPerformanceDelta: delta(swarm.AdjustedSuccessRate, monolith.AdjustedSuccessRate),
	}
}

// nearestRank is the nearest-rank percentile over an already-sorted sample.
// With one sample every percentile is that value.
func nearestRank(sorted []float64, percentile float64) float64 {
	rank := int(math.Ceil(percentile / 100 * float64(len(sorted))))
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}

func delta(a, b *float64) *float64 {
	if a == nil || b == nil {
		return nil
	}
	return ptr(*a - *b)
}

func ptr(v float64) *float64 { return &v }
