package eval

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bintly/internal/runstore"
)

func TestSummaryDerivedFromArtifact(t *testing.T) {
	swarmTimeout := run("t02", runstore.ArmSwarm, false, 300, 8)
	swarmTimeout.ErrorKind = runstore.ErrorKindTimeout
	monolithTimeout := run("t02", runstore.ArmMonolith, false, 250, 6)
	monolithTimeout.ErrorKind = runstore.ErrorKindTimeout
	store := storeWith(t,
		scored(run("t01", runstore.ArmSwarm, true, 1400, 12), 4, 0.9),
		scored(run("t01", runstore.ArmMonolith, true, 500, 4), 3, 0.8),
		swarmTimeout,
		monolithTimeout,
	)

	artifact, err := testAssembler().Assemble(context.Background(), store)
	require.NoError(t, err)
	summary := artifact.Summary()

	assert.Equal(t, artifact.BenchmarkVersion, summary.BenchmarkVersion)
	assert.True(t, artifact.GeneratedAt.Equal(summary.GeneratedAt))
	assert.Equal(t, artifact.TaskCount, summary.TaskCount)
	assert.Equal(t, artifact.Monolith, summary.BaselineMetrics)
	assert.Equal(t, artifact.Swarm, summary.SwarmMetrics)
	assert.Equal(t, artifact.Comparative, summary.Deltas)

	// Both arms failing the same task is two cases but one task id.
	group, ok := summary.NotableFailures[runstore.ErrorKindTimeout]
	require.True(t, ok)
	assert.Equal(t, 2, group.Count)
	assert.Equal(t, []string{"t02"}, group.TaskIDs)
}

func TestSummarySaveLoadRoundTrip(t *testing.T) {
	failed := run("t02", runstore.ArmSwarm, false, 300, 8)
	failed.ErrorKind = runstore.ErrorKindTimeout
	store := storeWith(t,
		scored(run("t01", runstore.ArmSwarm, true, 1000, 3), 4, 0.9),
		scored(run("t01", runstore.ArmMonolith, true, 900, 3), 3, 0.9),
		failed,
	)
	artifact, err := testAssembler().Assemble(context.Background(), store)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "results", "summary_v1.json")
	require.NoError(t, artifact.Summary().Save(path))

	loaded, err := LoadSummary(path)
	require.NoError(t, err)
	assert.Equal(t, "sv-v1", loaded.BenchmarkVersion)
	assert.Equal(t, 2, loaded.TaskCount)
	require.Contains(t, loaded.NotableFailures, runstore.ErrorKindTimeout)
	assert.Equal(t, 1, loaded.NotableFailures[runstore.ErrorKindTimeout].Count)
	require.NotNil(t, loaded.Deltas.QualityDelta)
	assert.InDelta(t, 1.0, *loaded.Deltas.QualityDelta, 1e-9)
}
