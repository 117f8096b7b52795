package fileutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCopyPreservingCreatesParentsAndKeepsMtime(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.tif")
	dst := filepath.Join(dir, "out", "PH.681.1", "src.tif")

	content := []byte("hello archive")
	if err := os.WriteFile(src, content, 0o640); err != nil {
		t.Fatal(err)
	}
	mtime := time.Date(2019, 3, 14, 15, 9, 26, 0, time.UTC)
	if err := os.Chtimes(src, mtime, mtime); err != nil {
		t.Fatal(err)
	}

	if err := (LocalCopier{}).Copy(src, dst); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Fatalf("content mismatch: got %q, want %q", got, content)
	}
	info, err := os.Stat(dst)
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().Equal(mtime) {
		t.Fatalf("mtime not preserved: got %v, want %v", info.ModTime(), mtime)
	}
	if info.Mode().Perm() != 0o640 {
		t.Fatalf("mode not preserved: got %o", info.Mode().Perm())
	}
}

func TestCopyPreservingOverwritesExisting(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")
	if err := os.WriteFile(src, []byte("new"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dst, []byte("old content that is longer"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := CopyPreserving(src, dst); err != nil {
		t.Fatal(err)
	}
	got, _ := os.ReadFile(dst)
	if string(got) != "new" {
		t.Fatalf("expected truncated overwrite, got %q", got)
	}
}

func TestCopyPreserving_MissingSource(t *testing.T) {
	dir := t.TempDir()
	if err := CopyPreserving(filepath.Join(dir, "nope"), filepath.Join(dir, "dst")); err == nil {
		t.Fatal("expected error for missing source")
	}
}

func TestEnsureDirIsIdempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b.pax", "Representation_Access", "Image")
	for i := 0; i < 2; i++ {
		if err := EnsureDir(dir); err != nil {
			t.Fatalf("EnsureDir call %d: %v", i+1, err)
		}
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Fatalf("expected directory, got %v %v", info, err)
	}
}

func TestWriteFileAtomicReplaces(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logs", "ledger.csv")
	for _, body := range []string{"first", "second"} {
		if err := WriteFileAtomic(path, []byte(body), 0o644); err != nil {
			t.Fatalf("write %q: %v", body, err)
		}
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "second" {
		t.Fatalf("content = %q", got)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("expected no temp files left, got %d entries", len(entries))
	}
}
