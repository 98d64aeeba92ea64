package eval

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"bintly/internal/runstore"
)

// Summary is the public summary_v1 document referenced from the Moltbook
// posts and replies. It carries the aggregate metrics only; per-task
// classifications stay in the internal artifact.
type Summary struct {
	BenchmarkVersion string                              `json:"benchmark_version"`
	GeneratedAt      time.Time                           `json:"generated_at"`
	TaskCount        int                                 `json:"task_count"`
	BaselineMetrics  ArmSummary                          `json:"baseline_metrics"`
	SwarmMetrics     ArmSummary                          `json:"swarm_metrics"`
	Deltas           ComparativeMetrics                  `json:"deltas"`
	NotableFailures  map[runstore.ErrorKind]FailureGroup `json:"notable_failures"`
}

// FailureGroup aggregates one failure kind for the public summary.
type FailureGroup struct {
	Count   int      `json:"count"`
	TaskIDs []string `json:"task_ids"`
}

// Summary derives the public summary from the artifact.
func (e *EvaluationArtifact) Summary() Summary {
	notable := make(map[runstore.ErrorKind]FailureGroup, len(e.Taxonomy))
	for kind, cases := range e.Taxonomy {
		seen := make(map[string]struct{}, len(cases))
		ids := make([]string, 0, len(cases))
		for _, c := range cases {
			if _, dup := seen[c.TaskID]; dup {
				continue
			}
			seen[c.TaskID] = struct{}{}
			ids = append(ids, c.TaskID)
		}
		notable[kind] = FailureGroup{Count: len(cases), TaskIDs: ids}
	}
	return Summary{
		BenchmarkVersion: e.BenchmarkVersion,
		GeneratedAt:      e.GeneratedAt,
		TaskCount:        e.TaskCount,
		BaselineMetrics:  e.Monolith,
		SwarmMetrics:     e.Swarm,
		Deltas:           e.Comparative,
		NotableFailures:  notable,
	}
}

// Save writes the summary document atomically, like the artifact.
func (s Summary) Save(path string) error {
	return writeDocument(path, s)
}

// LoadSummary reads a previously saved summary document.
func LoadSummary(path string) (*Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read summary: %w", err)
	}
	var summary Summary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	return &summary, nil
}
