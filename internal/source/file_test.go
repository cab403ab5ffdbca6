package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"asnlookup/internal/rangeindex"
)

func writeDataset(t *testing.T, path, content string, mtime time.Time) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write dataset: %v", err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("set dataset mtime: %v", err)
	}
}

func TestFileSourceVersionTracksChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ranges.csv")
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	writeDataset(t, path, "10.0.0.0/8, ISP_A, AS1, ZZ\n", base)

	src := NewFileSource(path)
	first, err := src.Version(context.Background())
	if err != nil {
		t.Fatalf("Version returned error: %v", err)
	}

	again, _ := src.Version(context.Background())
	if !first.Equal(again) {
		t.Fatalf("unchanged file produced different versions: %s vs %s", first, again)
	}

	writeDataset(t, path, "10.0.0.0/8, ISP_B, AS1, ZZ\n", base.Add(time.Minute))
	changed, _ := src.Version(context.Background())
	if first.Equal(changed) {
		t.Fatal("modified file kept the same version")
	}
}

func TestFileSourceMissingFile(t *testing.T) {
	src := NewFileSource(filepath.Join(t.TempDir(), "missing.csv"))
	if _, err := src.Version(context.Background()); err == nil {
		t.Fatal("expected error for missing file")
	}
	if _, err := src.Load(context.Background(), rangeindex.NewBucketIndex()); err == nil {
		t.Fatal("expected load error for missing file")
	}
}

func TestFileSourceLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ranges.csv")
	writeDataset(t, path, "10.0.0.0/8, \"ISP A\", AS1, ZZ\nbad\n10.1.0.0/16, ISP B, AS2, ZZ\n", time.Now())

	idx := rangeindex.NewBucketIndex()
	stats, err := NewFileSource(path).Load(context.Background(), idx)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if stats.Inserted != 2 || stats.Skipped != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	rec, ok := idx.Search(0x0A010101)
	if !ok || rec.ISP != "ISP B" {
		t.Fatalf("Search(10.1.1.1) = %+v", rec)
	}
}

func TestFileSourceLoadHonoursCancellation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ranges.csv")
	writeDataset(t, path, "10.0.0.0/8, ISP, AS1, ZZ\n", time.Now())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewFileSource(path).Load(ctx, rangeindex.NewBucketIndex()); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
