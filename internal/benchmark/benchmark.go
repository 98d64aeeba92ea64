// Package benchmark loads the frozen task list that both arms run against.
// The task set is an opaque input: bintly reads and validates it, but never
// modifies it.
package benchmark

import (
	"encoding/json"
	"os"
	"strings"

	berrors "bintly/internal/errors"
)

// Task is one benchmark task. Prompts are opaque to the evaluation layer.
type Task struct {
	ID     string `json:"id"`
	Bucket string `json:"task_bucket"`
	Prompt string `json:"prompt"`
}

// Benchmark is the frozen task list for one benchmark version.
type Benchmark struct {
	Version string `json:"benchmark_version"`
	Tasks   []Task `json:"tasks"`

	byID map[string]Task
}

// Load reads and validates a benchmark definition file.
func Load(path string) (*Benchmark, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, berrors.NewConfigurationError("benchmark_path", "read %s: %v", path, err)
	}
	return Parse(data)
}

// Parse validates a benchmark definition. A malformed task list is a
// ConfigurationError: the benchmark is the contract everything else keys on.
func Parse(data []byte) (*Benchmark, error) {
	var b Benchmark
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, berrors.NewConfigurationError("benchmark", "malformed task list: %v", err)
	}
	if strings.TrimSpace(b.Version) == "" {
		return nil, berrors.NewConfigurationError("benchmark", "benchmark_version is missing")
	}
	if len(b.Tasks) == 0 {
		return nil, berrors.NewConfigurationError("benchmark", "task list is empty")
	}

	b.byID = make(map[string]Task, len(b.Tasks))
	for i, task := range b.Tasks {
		if strings.TrimSpace(task.ID) == "" {
			return nil, berrors.NewConfigurationError("benchmark", "task at index %d has no id", i)
		}
		if _, dup := b.byID[task.ID]; dup {
			return nil, berrors.NewConfigurationError("benchmark", "duplicate task id %q", task.ID)
		}
		b.byID[task.ID] = task
	}
	return &b, nil
}

// Has reports whether the benchmark contains taskID.
func (b *Benchmark) Has(taskID string) bool {
	_, ok := b.byID[taskID]
	return ok
}

// Task returns the task with the given id.
func (b *Benchmark) Task(taskID string) (Task, bool) {
	t, ok := b.byID[taskID]
	return t, ok
}

// TaskIDs returns task ids in definition order.
func (b *Benchmark) TaskIDs() []string {
	ids := make([]string, len(b.Tasks))
	for i, t := range b.Tasks {
		ids[i] = t.ID
	}
	return ids
}
