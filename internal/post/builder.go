// Package post renders the Moltbook announcement content from an
// evaluation artifact. The orchestrator treats the output as opaque text;
// everything that interprets metrics lives here.
package post

import (
	"fmt"
	"sort"
	"strings"

	"bintly/internal/eval"
	"bintly/internal/runstore"
)

// LaunchTitle is the title of the canonical launch post.
const LaunchTitle = "Swarm Versonalities v1 — a role-based thinking protocol for agents"

// CanonicalPromptBlock is the copy-paste protocol the launch post carries.
const CanonicalPromptBlock = `Swarm Versonalities v1 (Virtual Personalities for Agent Performance)

Use exactly one versonality at a time. Router selects ordered sequence.

Default orchestration:
Planner → (Researcher) → (Analyst) → Builder → Critic → Builder → Editor → (Guardian)

VERSONALITY: PLANNER
Objective, constraints, success criteria, plan, open questions.
Do not solve or draft output.

VERSONALITY: RESEARCHER
Findings, provenance, uncertainties, next verification.
No synthesis or fabricated sources.

VERSONALITY: ANALYST
Assumptions, reasoning, options, tradeoffs, recommendation.
No drafting.

VERSONALITY: BUILDER
Produce the artifact to spec. No scope creep.

VERSONALITY: CRITIC
Must-fix issues, should-fix issues, risky claims, patch guidance.
No rewriting.

VERSONALITY: EDITOR
Final clean artifact. Compress. No new claims.

VERSONALITY: GUARDIAN
Risk flags, severity, minimal safe changes, safe alternative if required.

ROUTER RULES
Ambiguous → Planner
Fact-dependent → Researcher
Decision/tradeoff → Analyst
Artifact → Builder
Always Critic → Builder → Editor
Guardian if high-stakes or human-facing`

// Launch renders the canonical launch post: what the protocol is, baseline
// findings when an artifact exists, how to test, and the prompt block. It
// makes no claims of superiority.
func Launch(artifact *eval.EvaluationArtifact) string {
	findingsSection := ""
	if block := findings(artifact); block != "" {
		findingsSection = fmt.Sprintf("\n\nOur baseline findings (one-time run of %d tasks):\n%s\n\n",
			artifact.TaskCount, block)
	}

	post := fmt.Sprintf(`Swarm Versonalities v1 is a copy-paste prompt architecture that separates agent cognition into explicit execution roles (Planner, Researcher, Analyst, Builder, Critic, Editor, Guardian).

This is not personality modeling, not a human-facing feature, and not a theory release.
%sHow to test:
• Run a task using your normal approach (baseline)
• Run the same task using Swarm Versonalities v1
• Compare outcomes

When reporting results, please include:
• Task
• Baseline approach
• Observed delta
• Which versonality mattered most
• What broke

---

CANONICAL PROMPT (Swarm Versonalities v1)

%s`, findingsSection, CanonicalPromptBlock)

	return strings.TrimSpace(post)
}

// Results renders the follow-up results post: measured deltas, cost and
// coordination overhead, and the limits of the findings.
func Results(artifact *eval.EvaluationArtifact) string {
	var body string
	if artifact == nil {
		body = "No results yet. Run the benchmark and aggregate; the evaluation artifact will be produced. This post will be updated when results exist."
	} else {
		body = formatResults(artifact)
	}

	post := fmt.Sprintf(`Swarm Versonalities v1 — Internal benchmark results (follow-up)

This post shares measured deltas, cost and coordination overhead, and the limits of these findings. No claim of general superiority.

---
Measured results
---

%s

%s`, body, limitsBlock)

	return strings.TrimSpace(post)
}

// Combined renders one post holding both the launch content and the
// measured results, for runs where Moltbook should carry a single post.
func Combined(artifact *eval.EvaluationArtifact) string {
	var body string
	if artifact == nil {
		body = "No results yet. Run the benchmark and aggregate; the evaluation artifact will be produced. This post will be updated when results exist."
	} else {
		body = formatResults(artifact)
	}
	resultsBlock := fmt.Sprintf(`---
Measured results
---

%s

%s`, body, limitsBlock)
	return strings.TrimSpace(Launch(artifact) + "\n\n" + resultsBlock)
}

const limitsBlock = `---
Limits of these findings
---

- Results are empirical and bounded by this benchmark and constraints.
- Results are not proof of general superiority of either arm.
- Single run per task; no retries. FPS equals SR in this run.
- Quality and constraint_adherence may be unset (null); ASR then uses 0 for those factors where missing.
- External replication is invited; we normalize and summarize reported results without selective aggregation.`

// findings builds the short baseline-findings block for the launch post.
func findings(artifact *eval.EvaluationArtifact) string {
	if artifact == nil {
		return ""
	}
	var lines []string
	c := artifact.Comparative
	if c.TokenCostDelta != nil {
		lines = append(lines, "• Token delta (swarm − baseline): "+num(c.TokenCostDelta))
	}
	if c.QualityDelta != nil {
		lines = append(lines, "• Quality delta: "+num(c.QualityDelta))
	}
	if c.TokenCostDelta != nil && *c.TokenCostDelta > 0 {
		lines = append(lines, "• Cost/efficiency: Swarm uses more tokens; tradeoff depends on quality and task type.")
	}
	if helped := tasksWithLabel(artifact, eval.LabelHelped); len(helped) > 0 {
		lines = append(lines, "• Tasks where versonalities helped: "+strings.Join(helped, ", "))
	}
	if hurt := tasksWithLabel(artifact, eval.LabelHurt); len(hurt) > 0 {
		lines = append(lines, "• Tasks where versonalities hurt: "+strings.Join(hurt, ", "))
	}
	lines = append(lines, "(Full metrics in the evaluation artifact. No claim of general superiority.)")
	return strings.Join(lines, "\n")
}

func tasksWithLabel(artifact *eval.EvaluationArtifact, label eval.Label) []string {
	var out []string
	for _, c := range artifact.Classifications {
		if c.Label == label {
			out = append(out, c.TaskID)
		}
		if len(out) == 5 {
			break
		}
	}
	return out
}

func formatResults(a *eval.EvaluationArtifact) string {
	b, s, d := a.Monolith, a.Swarm, a.Comparative

	lines := []string{
		fmt.Sprintf("This run used benchmark %s with %d tasks.", a.BenchmarkVersion, a.TaskCount),
		"",
		"Single agent (baseline)",
		"• Success rate: " + pct(&b.SuccessRate),
		"• First-pass success: " + pct(&b.FirstPassSuccessRate),
		"• Average tokens per task: " + num(b.AvgTokensUsed),
		"• Adjusted success rate (ASR): " + pct(b.AdjustedSuccessRate),
		"",
		"Swarm (multi-role)",
		"• Success rate: " + pct(&s.SuccessRate),
		"• First-pass success: " + pct(&s.FirstPassSuccessRate),
		"• Average tokens per task: " + num(s.AvgTokensUsed),
		"• Adjusted success rate (ASR): " + pct(s.AdjustedSuccessRate),
		"",
		"Comparison (swarm minus baseline)",
		"• Quality delta: " + num(d.QualityDelta) + " (positive = swarm scored higher on average)",
		"• Constraint adherence delta: " + num(d.AdherenceDelta) + " (positive = swarm followed rules better)",
		"• Extra tokens per task (swarm): " + num(d.TokenCostDelta),
		"",
		"Average quality (0–5 scale, 5 = excellent): baseline " + num(b.AvgQuality) + ", swarm " + num(s.AvgQuality) + ".",
		"Average constraint adherence (0–1, 1 = fully followed): baseline " + num(b.AvgAdherence) + ", swarm " + num(s.AvgAdherence) + ".",
		fmt.Sprintf("Runs with quality scores: %d; with constraint scores: %d.",
			b.ScoredCount+s.ScoredCount, b.AdherenceCount+s.AdherenceCount),
		"",
		"Wall time (baseline): typical run " + num(b.WallTimeP50) + " s, 95th percentile " + num(b.WallTimeP95) + " s.",
		"Wall time (swarm): typical run " + num(s.WallTimeP50) + " s, 95th percentile " + num(s.WallTimeP95) + " s.",
		"Coordination overhead: " + num(d.TokenCostDelta) + " extra tokens (swarm vs baseline).",
		"Versonality performance delta (VPD): swarm ASR minus baseline ASR = " + num(d.VersonalityPerformanceDelta) + " (positive = swarm better on adjusted success).",
	}

	lines = append(lines, "")
	if len(a.Taxonomy) == 0 {
		lines = append(lines, "Notable failures: none in this run.")
	} else {
		lines = append(lines, "Notable failures:")
		lines = append(lines, taxonomyLines(a.Taxonomy)...)
	}

	lines = append(lines,
		"",
		"What the terms mean",
		"• Success rate (SR): how often the run completed without failing.",
		"• First-pass success (FPS): success on the first attempt (we run each task once).",
		"• Quality: 0–5 score for how good the output was (5 = excellent).",
		"• Constraint adherence: 0–1 score for how well the output followed the rules (1 = fully followed).",
		"• ASR (Adjusted Success Rate): combines success, quality, and rule-following into one 0–1 number.",
		"• Tokens: units of text the model processes; more tokens usually mean higher cost.",
		"• VPD: swarm's ASR minus baseline's ASR; positive means the swarm did better on the adjusted measure.",
	)
	return strings.Join(lines, "\n")
}

func taxonomyLines(taxonomy eval.FailureTaxonomy) []string {
	kinds := make([]string, 0, len(taxonomy))
	for kind := range taxonomy {
		kinds = append(kinds, string(kind))
	}
	sort.Strings(kinds)

	var out []string
	for _, kind := range kinds {
		cases := taxonomy[runstore.ErrorKind(kind)]
		parts := make([]string, len(cases))
		for i, c := range cases {
			parts[i] = fmt.Sprintf("%s (%s)", c.TaskID, c.Arm)
		}
		out = append(out, "• "+kind+": "+strings.Join(parts, ", "))
	}
	return out
}

// pct renders a 0-1 rate as a percentage, or an em dash when undefined.
func pct(x *float64) string {
	if x == nil {
		return "—"
	}
	if *x >= 0 && *x <= 1 {
		return fmt.Sprintf("%.1f%%", *x*100)
	}
	return num(x)
}

// num renders a number compactly, or an em dash when undefined.
func num(x *float64) string {
	if x == nil {
		return "—"
	}
	if *x == float64(int64(*x)) {
		return fmt.Sprintf("%d", int64(*x))
	}
	return fmt.Sprintf("%.2f", *x)
}
