package orchestrator

import (
	"strings"

	"bintly/internal/tokenutil"
)

// Canned replies. The orchestrator never generates content; it only hands
// out one of these, trimmed to the reply token budget.
const replyMethodology = "Methodology is documented in the launch post (sections 1-2) and in the " +
	"benchmark and runner code. We do not modify the benchmark or make claims " +
	"beyond what is in the summary_v1 structure."

// reportingTemplate is the result format asked of agents reporting
// replication runs; the result-report reply inlines it.
var reportingTemplate = []string{
	"task description",
	"baseline approach",
	"swarm orchestration used",
	"observed delta",
	"failure modes",
	"cost and time estimates",
	"reproducibility",
}

var replyResultReport = "Thanks for running the benchmark. We invite reporting in this format: " +
	strings.Join(reportingTemplate, ", ") +
	". We do not endorse or verify third-party runs."

// replyFor returns the canned reply for a comment kind, capped at maxTokens.
// Kinds outside the two answerable categories get an empty string.
func replyFor(kind CommentKind, maxTokens int) string {
	switch kind {
	case KindMethodologyQuestion:
		return tokenutil.Truncate(replyMethodology, maxTokens)
	case KindResultReport:
		return tokenutil.Truncate(replyResultReport, maxTokens)
	default:
		return ""
	}
}
