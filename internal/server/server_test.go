package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bintly/internal/config"
	"bintly/internal/eval"
	"bintly/internal/orchestrator"
	"bintly/internal/runstore"
)

func testServer(t *testing.T) (*Server, config.RuntimeConfig) {
	t.Helper()
	dir := t.TempDir()
	cfg, err := config.Load(
		config.WithHomeDir(func() (string, error) { return dir, nil }),
		config.WithEnv(func(string) (string, bool) { return "", false }),
	)
	require.NoError(t, err)
	cfg.ResultsDir = filepath.Join(dir, "results")
	cfg.StatePath = filepath.Join(dir, "state.json")
	cfg.BenchmarkVersion = "sv-v1"

	runs := runstore.NewInMemoryStore()
	require.NoError(t, runs.Put(context.Background(), runstore.RunRecord{
		TaskID: "t01", Arm: runstore.ArmSwarm, Succeeded: true,
		TokensUsed: 100, Source: runstore.SourceInternal,
	}))
	require.NoError(t, runs.Put(context.Background(), runstore.RunRecord{
		TaskID: "t01", Arm: runstore.ArmMonolith, Succeeded: true,
		TokensUsed: 80, Source: runstore.SourceInternal,
	}))

	return New(cfg, runs, orchestrator.NewFileStateStore(cfg.StatePath), nil), cfg
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s, _ := testServer(t)
	rec := get(t, s, "/api/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "sv-v1", body["benchmark_version"])
}

func TestArtifactMissingThenServed(t *testing.T) {
	s, cfg := testServer(t)

	rec := get(t, s, "/api/artifact")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	artifact := &eval.EvaluationArtifact{
		BenchmarkVersion: "sv-v1",
		GeneratedAt:      time.Now().UTC(),
		TaskCount:        1,
	}
	require.NoError(t, artifact.Save(cfg.ArtifactPath()))

	rec = get(t, s, "/api/artifact")
	require.Equal(t, http.StatusOK, rec.Code)
	var got eval.EvaluationArtifact
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "sv-v1", got.BenchmarkVersion)
}

func TestSummaryMissingThenServed(t *testing.T) {
	s, cfg := testServer(t)

	rec := get(t, s, "/api/summary")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	artifact := &eval.EvaluationArtifact{
		BenchmarkVersion: "sv-v1",
		GeneratedAt:      time.Now().UTC(),
		TaskCount:        2,
	}
	require.NoError(t, artifact.Summary().Save(cfg.SummaryPath()))

	rec = get(t, s, "/api/summary")
	require.Equal(t, http.StatusOK, rec.Code)
	var got eval.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "sv-v1", got.BenchmarkVersion)
	assert.Equal(t, 2, got.TaskCount)
}

func TestRunsFilterByArm(t *testing.T) {
	s, _ := testServer(t)

	rec := get(t, s, "/api/runs")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Count   int                  `json:"count"`
		Records []runstore.RunRecord `json:"records"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)

	rec = get(t, s, "/api/runs?arm=swarm")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, runstore.ArmSwarm, body.Records[0].Arm)
}

func TestStateEndpoint(t *testing.T) {
	s, cfg := testServer(t)

	states := orchestrator.NewFileStateStore(cfg.StatePath)
	require.NoError(t, states.Save(orchestrator.State{PostsPublished: 1, LastPostID: "p-1"}))

	rec := get(t, s, "/api/state")
	require.Equal(t, http.StatusOK, rec.Code)
	var state orchestrator.State
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, "p-1", state.LastPostID)
}

func TestPostPreviews(t *testing.T) {
	s, _ := testServer(t)

	rec := get(t, s, "/api/posts/launch")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "CANONICAL PROMPT")

	rec = get(t, s, "/api/posts/results")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No results yet.")
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := testServer(t)
	rec := get(t, s, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
}
