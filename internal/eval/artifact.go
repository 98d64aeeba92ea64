package eval

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"bintly/internal/runstore"
)

// EvaluationArtifact is the immutable snapshot of one aggregation pass. A
// later pass produces a new artifact; nothing ever patches an old one.
type EvaluationArtifact struct {
	BenchmarkVersion string               `json:"benchmark_version"`
	GeneratedAt      time.Time            `json:"generated_at"`
	TaskCount        int                  `json:"task_count"`
	Swarm            ArmSummary           `json:"swarm"`
	Monolith         ArmSummary           `json:"monolith"`
	Comparative      ComparativeMetrics   `json:"comparative"`
	Classifications  []TaskClassification `json:"classifications"`
	Taxonomy         FailureTaxonomy      `json:"failure_taxonomy"`
}

// Assembler composes evaluation artifacts from a run record store.
type Assembler struct {
	Version string
	Weights Weights
	Policy  ClassifyPolicy
	Now     func() time.Time
}

// Assemble runs the full aggregation pass over the store. Assembly is
// all-or-nothing: if any constituent computation fails, no artifact comes
// out. The pass itself has no I/O side effects; persisting is separate.
func (a Assembler) Assemble(ctx context.Context, store runstore.Store) (*EvaluationArtifact, error) {
	if err := a.Weights.Validate(); err != nil {
		return nil, err
	}
	records, err := store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list run records: %w", err)
	}

	swarm, err := Summarize(records, runstore.ArmSwarm, a.Weights)
	if err != nil {
		return nil, err
	}
	monolith, err := Summarize(records, runstore.ArmMonolith, a.Weights)
	if err != nil {
		return nil, err
	}

	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	artifact := &EvaluationArtifact{
		BenchmarkVersion: a.Version,
		GeneratedAt:      now().UTC(),
		TaskCount:        taskCount(records),
		Swarm:            swarm,
		Monolith:         monolith,
		Comparative:      Compare(swarm, monolith),
		Classifications:  a.classifyAll(records),
		Taxonomy:         BuildTaxonomy(records),
	}
	return artifact, nil
}

// classifyAll pairs the internal records per task and classifies each pair.
// External records carry extra context but never drive the verdicts. Tasks
// with only one internal arm on record are skipped; the classifier needs
// both sides of the comparison.
func (a Assembler) classifyAll(records []runstore.RunRecord) []TaskClassification {
	byTask := make(map[string]map[runstore.Arm]runstore.RunRecord)
	for _, r := range runstore.BySource(records, runstore.SourceInternal) {
		if byTask[r.TaskID] == nil {
			byTask[r.TaskID] = make(map[runstore.Arm]runstore.RunRecord)
		}
		byTask[r.TaskID][r.Arm] = r
	}

	taskIDs := make([]string, 0, len(byTask))
	for id := range byTask {
		taskIDs = append(taskIDs, id)
	}
	sort.Strings(taskIDs)

	out := make([]TaskClassification, 0, len(taskIDs))
	for _, id := range taskIDs {
		pair := byTask[id]
		swarm, haveSwarm := pair[runstore.ArmSwarm]
		monolith, haveMonolith := pair[runstore.ArmMonolith]
		if !haveSwarm || !haveMonolith {
			continue
		}
		out = append(out, a.Policy.Classify(swarm, monolith))
	}
	return out
}

func taskCount(records []runstore.RunRecord) int {
	tasks := make(map[string]struct{})
	for _, r := range records {
		tasks[r.TaskID] = struct{}{}
	}
	return len(tasks)
}

// Classification returns the verdict for one task, if the artifact has one.
func (e *EvaluationArtifact) Classification(taskID string) (TaskClassification, bool) {
	for _, c := range e.Classifications {
		if c.TaskID == taskID {
			return c, true
		}
	}
	return TaskClassification{}, false
}

// Save writes the artifact as indented JSON via a temp file and rename, so
// a concurrent reader never observes a partial document.
func (e *EvaluationArtifact) Save(path string) error {
	return writeDocument(path, e)
}

// writeDocument writes one result document atomically: temp file in the
// target directory, then rename.
func writeDocument(path string, doc any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create results dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".eval-*.json")
	if err != nil {
		return fmt.Errorf("create temp document: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write document: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("sync document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close document: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename document: %w", err)
	}
	return nil
}

// LoadArtifact reads a previously saved artifact.
func LoadArtifact(path string) (*EvaluationArtifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	var artifact EvaluationArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	return &artifact, nil
}
