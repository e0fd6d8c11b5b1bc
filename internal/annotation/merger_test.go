package annotation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

type fakeSource struct {
	records []Record
	err     error
	calls   int
}

func (f *fakeSource) Name() string { return "kemdy19" }

func (f *fakeSource) MergeRaw(ctx context.Context, root string) ([]Record, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

func newTestMerger(t *testing.T, source RawSource, multilabel bool) *Merger {
	t.Helper()
	m, err := NewMerger(source, MergerOptions{
		Root:       t.TempDir(),
		CachePath:  filepath.Join(t.TempDir(), "kemdy19.csv"),
		Multilabel: multilabel,
	})
	if err != nil {
		t.Fatalf("NewMerger returned error: %v", err)
	}
	return m
}

func TestNewMergerRequiresSourceAndPath(t *testing.T) {
	if _, err := NewMerger(nil, MergerOptions{CachePath: "x.csv"}); err == nil {
		t.Fatal("expected error without source")
	}
	if _, err := NewMerger(&fakeSource{}, MergerOptions{}); err == nil {
		t.Fatal("expected error without cache path")
	}
}

func TestEnsureIsIdempotent(t *testing.T) {
	source := &fakeSource{records: sampleTable().Records}
	m := newTestMerger(t, source, false)

	first, err := m.Ensure(context.Background(), false)
	if err != nil {
		t.Fatalf("first Ensure returned error: %v", err)
	}
	info, err := os.Stat(m.CachePath())
	if err != nil {
		t.Fatalf("cache not written: %v", err)
	}

	second, err := m.Ensure(context.Background(), false)
	if err != nil {
		t.Fatalf("second Ensure returned error: %v", err)
	}
	if source.calls != 1 {
		t.Fatalf("raw source consulted %d times, want 1", source.calls)
	}
	after, _ := os.Stat(m.CachePath())
	if !after.ModTime().Equal(info.ModTime()) {
		t.Fatal("valid cache should not be rewritten")
	}
	if first.Len() != second.Len() {
		t.Fatalf("row count changed: %d vs %d", first.Len(), second.Len())
	}
}

func TestEnsureForceRebuilds(t *testing.T) {
	source := &fakeSource{records: sampleTable().Records}
	m := newTestMerger(t, source, false)
	if _, err := m.Ensure(context.Background(), false); err != nil {
		t.Fatalf("Ensure returned error: %v", err)
	}
	if _, err := m.Ensure(context.Background(), true); err != nil {
		t.Fatalf("forced Ensure returned error: %v", err)
	}
	if source.calls != 2 {
		t.Fatalf("raw source consulted %d times, want 2", source.calls)
	}
}

func TestEnsureRegeneratesEmptyCache(t *testing.T) {
	source := &fakeSource{records: sampleTable().Records}
	m := newTestMerger(t, source, false)
	if err := os.WriteFile(m.CachePath(), nil, 0o644); err != nil {
		t.Fatalf("write empty cache: %v", err)
	}
	table, err := m.Ensure(context.Background(), false)
	if err != nil {
		t.Fatalf("Ensure returned error: %v", err)
	}
	if table.Len() != 2 || source.calls != 1 {
		t.Fatalf("expected regeneration, got %d rows and %d calls", table.Len(), source.calls)
	}
}

func TestEnsureUpgradesCacheForMultilabel(t *testing.T) {
	source := &fakeSource{records: sampleTable().Records}
	single := newTestMerger(t, source, false)
	if _, err := single.Ensure(context.Background(), false); err != nil {
		t.Fatalf("Ensure returned error: %v", err)
	}
	multi, err := NewMerger(source, MergerOptions{CachePath: single.CachePath(), Multilabel: true})
	if err != nil {
		t.Fatalf("NewMerger returned error: %v", err)
	}
	table, err := multi.Ensure(context.Background(), false)
	if err != nil {
		t.Fatalf("Ensure returned error: %v", err)
	}
	if !table.Multilabel || source.calls != 2 {
		t.Fatalf("expected multilabel rebuild, multilabel=%v calls=%d", table.Multilabel, source.calls)
	}
}

func TestEnsurePropagatesMissingInput(t *testing.T) {
	source := &fakeSource{err: fmt.Errorf("%w: no tables", ErrMissingInput)}
	m := newTestMerger(t, source, false)
	if _, err := m.Ensure(context.Background(), false); !errors.Is(err, ErrMissingInput) {
		t.Fatalf("expected ErrMissingInput, got %v", err)
	}
	if _, err := os.Stat(m.CachePath()); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("no cache should be written when input is missing")
	}
}

func TestRebuildRejectsEmptyTable(t *testing.T) {
	m := newTestMerger(t, &fakeSource{}, false)
	if _, err := m.Rebuild(context.Background()); !errors.Is(err, ErrEmptyCache) {
		t.Fatalf("expected ErrEmptyCache, got %v", err)
	}
}
