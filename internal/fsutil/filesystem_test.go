package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMemoryFileSystemRoundTrip(t *testing.T) {
	t.Parallel()

	fsys := NewMemoryFileSystem()

	if fsys.Exists("out/a.jpg") {
		t.Error("Exists() on empty filesystem")
	}

	w, err := fsys.Create("out/a.jpg")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("hel")); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("lo")); err != nil {
		t.Fatal(err)
	}

	// Data lands on Close, not before.
	if fsys.Exists("out/a.jpg") {
		t.Error("file visible before Close")
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := fsys.ReadFile("out/a.jpg")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello" {
		t.Errorf("ReadFile() = %q", data)
	}
}

func TestMemoryFileSystemMkdirAll(t *testing.T) {
	t.Parallel()

	fsys := NewMemoryFileSystem()
	if err := fsys.MkdirAll(filepath.Join("out", "train", "deep"), 0o755); err != nil {
		t.Fatal(err)
	}

	for _, dir := range []string{
		"out",
		filepath.Join("out", "train"),
		filepath.Join("out", "train", "deep"),
	} {
		if !fsys.Exists(dir) {
			t.Errorf("Exists(%q) = false after MkdirAll", dir)
		}
	}
}

func TestMemoryFileSystemReadMissing(t *testing.T) {
	t.Parallel()

	if _, err := NewMemoryFileSystem().ReadFile("nope"); err == nil {
		t.Error("ReadFile() on missing file succeeded")
	}
}

func TestMemoryFileSystemFilesSorted(t *testing.T) {
	t.Parallel()

	fsys := NewMemoryFileSystem()
	for _, name := range []string{"c.jpg", "a.jpg", "b.jpg"} {
		w, err := fsys.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if err := w.Close(); err != nil {
			t.Fatal(err)
		}
	}

	if diff := cmp.Diff([]string{"a.jpg", "b.jpg", "c.jpg"}, fsys.Files()); diff != "" {
		t.Errorf("Files() mismatch (-want +got):\n%s", diff)
	}
}

func TestOSFileSystem(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fsys := OSFileSystem{}

	sub := filepath.Join(dir, "nested", "dir")
	if err := fsys.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(sub, "f.txt")
	w, err := fsys.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("data")); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	if !fsys.Exists(path) {
		t.Error("Exists() = false for written file")
	}
	data, err := fsys.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "data" {
		t.Errorf("ReadFile() = %q", data)
	}
}

func TestFindArchives(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	nested := filepath.Join(dir, "sub")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	files := map[string]string{
		filepath.Join(dir, "b.r49"):      "",
		filepath.Join(dir, "a.r49"):      "",
		filepath.Join(dir, "notes.txt"):  "",
		filepath.Join(nested, "c.R49"):   "", // extension match is case-insensitive
		filepath.Join(nested, "img.png"): "",
	}
	for path := range files {
		if err := os.WriteFile(path, nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	got, err := FindArchives(dir)
	if err != nil {
		t.Fatal(err)
	}

	want := []string{
		filepath.Join(dir, "a.r49"),
		filepath.Join(dir, "b.r49"),
		filepath.Join(nested, "c.R49"),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FindArchives() mismatch (-want +got):\n%s", diff)
	}
}

func TestFindArchivesMissingRoot(t *testing.T) {
	t.Parallel()

	if _, err := FindArchives(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Error("FindArchives() on missing root succeeded")
	}
}
