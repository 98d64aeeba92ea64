package external

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bintly/internal/benchmark"
	"bintly/internal/runstore"
)

func testBenchmark(t *testing.T) *benchmark.Benchmark {
	t.Helper()
	b, err := benchmark.Parse([]byte(`{
		"benchmark_version": "sv-v1",
		"tasks": [
			{"id": "t01", "task_bucket": "coding", "prompt": "p1"},
			{"id": "t02", "task_bucket": "analysis", "prompt": "p2"}
		]
	}`))
	require.NoError(t, err)
	return b
}

func TestIngestSingleObjectAndArray(t *testing.T) {
	store := runstore.NewInMemoryStore()
	n := NewNormalizer(testBenchmark(t), store, nil)

	result, err := n.Ingest(context.Background(),
		[]byte(`{"task_id":"t01","arm":"swarm","succeeded":true,"tokens_used":800,"source_id":"molty-7"}`))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Accepted)
	assert.NotEmpty(t, result.PassID)

	result, err = n.Ingest(context.Background(), []byte(`[
		{"task_id":"t01","arm":"monolith","succeeded":true,"tokens_used":500,"source_id":"molty-7"},
		{"task_id":"t02","arm":"swarm","succeeded":false,"error_kind":"timeout","tokens_used":300,"source_id":"molty-7"}
	]`))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Accepted)
	assert.Equal(t, 3, store.Len())

	records, _ := store.List(context.Background())
	for _, r := range records {
		assert.Equal(t, runstore.SourceExternal, r.Source)
		assert.Equal(t, "molty-7", r.SourceID)
	}
}

func TestIngestRepairsSloppyJSON(t *testing.T) {
	store := runstore.NewInMemoryStore()
	n := NewNormalizer(testBenchmark(t), store, nil)

	// Single quotes and a trailing comma, the usual copy-paste damage.
	raw := []byte(`{'task_id': 't01', 'arm': 'swarm', 'succeeded': true, 'tokens_used': 800, 'source_id': 'molty-9',}`)
	result, err := n.Ingest(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Accepted)
}

func TestIngestRejectsWithoutAborting(t *testing.T) {
	store := runstore.NewInMemoryStore()
	n := NewNormalizer(testBenchmark(t), store, nil)

	result, err := n.Ingest(context.Background(), []byte(`[
		{"arm":"swarm","succeeded":true,"source_id":"molty-7"},
		{"task_id":"t99","arm":"swarm","succeeded":true,"source_id":"molty-7"},
		{"task_id":"t01","arm":"hive","succeeded":true,"source_id":"molty-7"},
		{"task_id":"t01","arm":"swarm","succeeded":true,"tokens_used":10},
		{"task_id":"t01","arm":"swarm","succeeded":true,"quality_score":9.5,"source_id":"molty-7"},
		{"task_id":"t01","arm":"swarm","succeeded":true,"tokens_used":10,"source_id":"molty-7"}
	]`))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Accepted)
	require.Len(t, result.Rejected, 5)
	assert.Contains(t, result.Rejected[0].Reason, "no task_id")
	assert.Contains(t, result.Rejected[1].Reason, "not in benchmark")
	assert.Contains(t, result.Rejected[2].Reason, "unknown arm")
	assert.Contains(t, result.Rejected[3].Reason, "no source_id")
}

func TestIngestIsIdempotent(t *testing.T) {
	store := runstore.NewInMemoryStore()
	n := NewNormalizer(testBenchmark(t), store, nil)

	raw := []byte(`{"task_id":"t01","arm":"swarm","succeeded":true,"tokens_used":800,"source_id":"molty-7"}`)
	first, err := n.Ingest(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Accepted)

	second, err := n.Ingest(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Accepted)
	assert.Equal(t, 1, second.Duplicate)
	assert.Equal(t, 1, store.Len())
}

func TestIngestNeverOverwritesInternal(t *testing.T) {
	ctx := context.Background()
	store := runstore.NewInMemoryStore()
	quality := 4.5
	internal := runstore.RunRecord{
		TaskID: "t01", Arm: runstore.ArmSwarm, Succeeded: true,
		TokensUsed: 1000, QualityScore: &quality, Source: runstore.SourceInternal,
	}
	require.NoError(t, store.Put(ctx, internal))

	n := NewNormalizer(testBenchmark(t), store, nil)
	_, err := n.Ingest(ctx,
		[]byte(`{"task_id":"t01","arm":"swarm","succeeded":false,"tokens_used":1,"source_id":"molty-7"}`))
	require.NoError(t, err)

	records, _ := store.List(ctx)
	require.Len(t, records, 2)
	assert.Equal(t, runstore.SourceInternal, records[0].Source)
	assert.True(t, records[0].Succeeded)
	assert.Equal(t, 1000, records[0].TokensUsed)
}
