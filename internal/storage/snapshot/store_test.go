package snapshot

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/fidde/patterntrie/pkg/patterntrie"
)

func TestSaveAndLoadSnapshotRoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "snapshots.db")
	store, err := New(dbPath)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer store.Close()

	tr := patterntrie.New()
	samples := []string{"login user=alice", "login user=bob", "login user=carol"}
	if err := tr.Learn(samples); err != nil {
		t.Fatalf("Learn: %v", err)
	}

	ctx := context.Background()
	if err := store.SaveSnapshot(ctx, "auth", tr); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	loaded, err := store.LoadSnapshot(ctx, "auth")
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	for _, s := range samples {
		if !loaded.Match(s) {
			t.Errorf("restored trie does not match %q", s)
		}
	}
}

func TestSaveSnapshotOverwritesExisting(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "snapshots.db")
	store, err := New(dbPath)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	first := patterntrie.New()
	if err := first.Learn([]string{"a"}); err != nil {
		t.Fatalf("Learn: %v", err)
	}
	if err := store.SaveSnapshot(ctx, "x", first); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	second := patterntrie.New()
	if err := second.Learn([]string{"totally different line"}); err != nil {
		t.Fatalf("Learn: %v", err)
	}
	if err := store.SaveSnapshot(ctx, "x", second); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	loaded, err := store.LoadSnapshot(ctx, "x")
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if loaded.Match("a") {
		t.Error("expected the second save to have replaced the first")
	}
	if !loaded.Match("totally different line") {
		t.Error("expected the second save's content to be loaded")
	}
}

func TestLoadSnapshotMissingReturnsErrNotFound(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "snapshots.db")
	store, err := New(dbPath)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer store.Close()

	_, err = store.LoadSnapshot(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListAndDeleteSnapshot(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "snapshots.db")
	store, err := New(dbPath)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	tr := patterntrie.New()
	if err := tr.Learn([]string{"x"}); err != nil {
		t.Fatalf("Learn: %v", err)
	}
	if err := store.SaveSnapshot(ctx, "one", tr); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	if err := store.SaveSnapshot(ctx, "two", tr); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	names, err := store.ListNames(ctx)
	if err != nil {
		t.Fatalf("ListNames: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("got %d names, want 2", len(names))
	}

	if err := store.DeleteSnapshot(ctx, "one"); err != nil {
		t.Fatalf("DeleteSnapshot: %v", err)
	}
	names, err = store.ListNames(ctx)
	if err != nil {
		t.Fatalf("ListNames: %v", err)
	}
	if len(names) != 1 || names[0] != "two" {
		t.Fatalf("names = %v, want [two]", names)
	}
}
