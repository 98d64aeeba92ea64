package post

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"bintly/internal/eval"
	"bintly/internal/runstore"
)

func f(v float64) *float64 { return &v }

func sampleArtifact() *eval.EvaluationArtifact {
	return &eval.EvaluationArtifact{
		BenchmarkVersion: "sv-v1",
		TaskCount:        12,
		Monolith: eval.ArmSummary{
			Arm: runstore.ArmMonolith, TaskCount: 12,
			SuccessRate: 0.75, FirstPassSuccessRate: 0.75,
			AvgTokensUsed: f(500), AvgQuality: f(3.1), ScoredCount: 10,
			AvgAdherence: f(0.8), AdherenceCount: 10,
			WallTimeP50: f(4), WallTimeP95: f(9), AdjustedSuccessRate: f(0.68),
		},
		Swarm: eval.ArmSummary{
			Arm: runstore.ArmSwarm, TaskCount: 12,
			SuccessRate: 0.8333333, FirstPassSuccessRate: 0.8333333,
			AvgTokensUsed: f(1400), AvgQuality: f(3.9), ScoredCount: 11,
			AvgAdherence: f(0.9), AdherenceCount: 11,
			WallTimeP50: f(11), WallTimeP95: f(25), AdjustedSuccessRate: f(0.79),
		},
		Comparative: eval.ComparativeMetrics{
			QualityDelta: f(0.8), AdherenceDelta: f(0.1), TokenCostDelta: f(900),
			ASRSwarm: f(0.79), ASRMonolith: f(0.68), VersonalityPerformanceDelta: f(0.11),
		},
		Classifications: []eval.TaskClassification{
			{TaskID: "t01", Label: eval.LabelHelped, Reason: eval.ReasonSwarmHigherQuality},
			{TaskID: "t02", Label: eval.LabelHurt, Reason: eval.ReasonBaselineSuccessSwarmFailed},
			{TaskID: "t03", Label: eval.LabelNeutral, Reason: eval.ReasonEquivalent},
		},
		Taxonomy: eval.FailureTaxonomy{
			runstore.ErrorKindTimeout: {{TaskID: "t02", Arm: runstore.ArmSwarm}},
		},
	}
}

func TestLaunchWithoutArtifact(t *testing.T) {
	text := Launch(nil)
	assert.Contains(t, text, "copy-paste prompt architecture")
	assert.Contains(t, text, "CANONICAL PROMPT")
	assert.Contains(t, text, "VERSONALITY: GUARDIAN")
	assert.NotContains(t, text, "baseline findings")
}

func TestLaunchWithFindings(t *testing.T) {
	text := Launch(sampleArtifact())
	assert.Contains(t, text, "Our baseline findings (one-time run of 12 tasks):")
	assert.Contains(t, text, "Token delta (swarm − baseline): 900")
	assert.Contains(t, text, "Swarm uses more tokens")
	assert.Contains(t, text, "Tasks where versonalities helped: t01")
	assert.Contains(t, text, "Tasks where versonalities hurt: t02")
	assert.Contains(t, text, "No claim of general superiority")
}

func TestResultsPost(t *testing.T) {
	text := Results(sampleArtifact())
	assert.Contains(t, text, "This run used benchmark sv-v1 with 12 tasks.")
	assert.Contains(t, text, "• Success rate: 75.0%")
	assert.Contains(t, text, "• Success rate: 83.3%")
	assert.Contains(t, text, "• Quality delta: 0.80 (positive = swarm scored higher on average)")
	assert.Contains(t, text, "• timeout: t02 (swarm)")
	assert.Contains(t, text, "Limits of these findings")
	assert.Contains(t, text, "VPD")
}

func TestResultsPostUndefinedMetricsShowDash(t *testing.T) {
	a := sampleArtifact()
	a.Monolith.AvgQuality = nil
	a.Comparative.QualityDelta = nil
	text := Results(a)
	assert.Contains(t, text, "• Quality delta: —")
	assert.Contains(t, text, "baseline —, swarm 3.90")
	// Undefined is signaled, never rendered as zero.
	assert.NotContains(t, text, "Quality delta: 0 (")
}

func TestResultsPostWithoutArtifact(t *testing.T) {
	text := Results(nil)
	assert.Contains(t, text, "No results yet.")
}

func TestCombinedContainsBoth(t *testing.T) {
	text := Combined(sampleArtifact())
	assert.Contains(t, text, "CANONICAL PROMPT")
	assert.Contains(t, text, "Measured results")
	assert.Contains(t, text, "Limits of these findings")
	// Launch section comes before results.
	assert.Less(t, strings.Index(text, "CANONICAL PROMPT"), strings.Index(text, "Measured results"))
}

func TestNoFailuresLine(t *testing.T) {
	a := sampleArtifact()
	a.Taxonomy = eval.FailureTaxonomy{}
	assert.Contains(t, Results(a), "Notable failures: none in this run.")
}
