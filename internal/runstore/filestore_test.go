package runstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs.jsonl")

	store, err := OpenFile(path, nil)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	if err := store.Put(ctx, internalRecord("t01", ArmSwarm)); err != nil {
		t.Fatal(err)
	}
	if err := store.Put(ctx, internalRecord("t01", ArmMonolith)); err != nil {
		t.Fatal(err)
	}

	reopened, err := OpenFile(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	records, _ := reopened.List(ctx)
	if len(records) != 2 {
		t.Fatalf("got %d records after reopen, want 2", len(records))
	}
	if len(reopened.Rejections()) != 0 {
		t.Fatalf("unexpected rejections: %v", reopened.Rejections())
	}
}

func TestFileStoreRejectsBadLinesWithoutAborting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.jsonl")
	content := `{"task_id":"t01","arm":"swarm","succeeded":true,"tokens_used":10,"wall_time_seconds":1,"source":"internal"}
not json at all
{"task_id":"t01","arm":"swarm","succeeded":true,"tokens_used":10,"wall_time_seconds":1,"source":"internal"}
{"task_id":"t02","arm":"monolith","succeeded":false,"error_kind":"timeout","tokens_used":5,"wall_time_seconds":2,"source":"internal"}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	store, err := OpenFile(path, nil)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	records, _ := store.List(context.Background())
	if len(records) != 2 {
		t.Fatalf("got %d accepted records, want 2", len(records))
	}
	rejections := store.Rejections()
	if len(rejections) != 2 {
		t.Fatalf("got %d rejections, want 2: %v", len(rejections), rejections)
	}
	if rejections[0].Line != 2 || rejections[1].Line != 3 {
		t.Fatalf("rejection lines = %d, %d", rejections[0].Line, rejections[1].Line)
	}
}

func TestFileStoreIdempotentExternalAppend(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs.jsonl")

	store, err := OpenFile(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	ext := externalRecord("t01", ArmSwarm, "molty-7")
	if err := store.Put(ctx, ext); err != nil {
		t.Fatal(err)
	}
	if err := store.Put(ctx, ext); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	// One line only: the re-put must not append.
	lines := 0
	for _, b := range data {
		if b == '\n' {
			lines++
		}
	}
	if lines != 1 {
		t.Fatalf("file has %d lines, want 1", lines)
	}
}
