package eval

import (
	"bintly/internal/config"
	"bintly/internal/runstore"
)

// Label is the per-task verdict on the swarm arm against the baseline.
type Label string

const (
	LabelHelped  Label = "helped"
	LabelHurt    Label = "hurt"
	LabelNeutral Label = "neutral"
)

// Reason codes for each classification rule.
const (
	ReasonSwarmSuccessBaselineFailed = "swarm_success_baseline_failed"
	ReasonBaselineSuccessSwarmFailed = "baseline_success_swarm_failed"
	ReasonSwarmMoreTokens            = "swarm_more_tokens"
	ReasonSwarmHigherQuality         = "swarm_higher_quality"
	ReasonEquivalent                 = "equivalent"
)

// TaskClassification is the outcome comparison for one task. It lives only
// inside an EvaluationArtifact.
type TaskClassification struct {
	TaskID string `json:"task_id"`
	Label  Label  `json:"label"`
	Reason string `json:"reason"`
}

// ClassifyPolicy holds the two tunable thresholds of the rule set.
type ClassifyPolicy struct {
	// TokenRatioThreshold is how many times the baseline's token spend the
	// swarm may reach before extra cost without quality gain counts as hurt.
	TokenRatioThreshold float64
	// QualityMargin is the minimum quality gain (on the 0-5 scale) that
	// counts as helped when both arms succeed.
	QualityMargin float64
}

// DefaultClassifyPolicy returns the stock thresholds.
func DefaultClassifyPolicy() ClassifyPolicy {
	return ClassifyPolicy{
		TokenRatioThreshold: config.DefaultTokenRatioThreshold,
		QualityMargin:       config.DefaultQualityMargin,
	}
}

// PolicyFromConfig lifts the classification thresholds out of the config.
func PolicyFromConfig(cfg config.RuntimeConfig) ClassifyPolicy {
	return ClassifyPolicy{
		TokenRatioThreshold: cfg.TokenRatioThreshold,
		QualityMargin:       cfg.QualityMargin,
	}
}

// Classify labels one task from its two run records. It is a pure function
// of the pair; benchmark-wide averages never enter. Rules apply in order,
// first match wins:
//
//  1. swarm succeeded, baseline failed: helped.
//  2. baseline succeeded, swarm failed: hurt.
//  3. both succeeded, swarm spent more than TokenRatioThreshold times the
//     baseline's tokens with no quality gain: hurt.
//  4. both succeeded, swarm's quality beat the baseline's by at least
//     QualityMargin: helped.
//  5. otherwise: neutral.
//
// The ordering means a run that is both more expensive and higher quality is
// judged by rule 3 first, but rule 3 only fires without a quality gain, so a
// real quality improvement always escapes the token-cost penalty.
func (p ClassifyPolicy) Classify(swarm, monolith runstore.RunRecord) TaskClassification {
	c := TaskClassification{TaskID: swarm.TaskID}

	switch {
	case swarm.Succeeded && !monolith.Succeeded:
		c.Label, c.Reason = LabelHelped, ReasonSwarmSuccessBaselineFailed
	case monolith.Succeeded && !swarm.Succeeded:
		c.Label, c.Reason = LabelHurt, ReasonBaselineSuccessSwarmFailed
	case swarm.Succeeded && monolith.Succeeded &&
		exceedsRatio(swarm.TokensUsed, monolith.TokensUsed, p.TokenRatioThreshold) &&
		qualityDelta(swarm, monolith) <= 0:
		c.Label, c.Reason = LabelHurt, ReasonSwarmMoreTokens
	case swarm.Succeeded && monolith.Succeeded &&
		qualityDelta(swarm, monolith) >= p.QualityMargin:
		c.Label, c.Reason = LabelHelped, ReasonSwarmHigherQuality
	default:
		c.Label, c.Reason = LabelNeutral, ReasonEquivalent
	}
	return c
}

// exceedsRatio reports whether swarm token spend is more than ratio times
// the baseline's. A zero-token baseline is exceeded by any positive spend.
func exceedsRatio(swarmTokens, monolithTokens int, ratio float64) bool {
	if monolithTokens == 0 {
		return swarmTokens > 0
	}
	return float64(swarmTokens) > ratio*float64(monolithTokens)
}

// qualityDelta is the per-task quality difference, swarm minus monolith. A
// missing score contributes zero, so a pair with no scores compares equal.
func qualityDelta(swarm, monolith runstore.RunRecord) float64 {
	var s, m float64
	if swarm.QualityScore != nil {
		s = *swarm.QualityScore
	}
	if monolith.QualityScore != nil {
		m = *monolith.QualityScore
	}
	return s - m
}
