package processor

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDiscoverFiltersAndSorts(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{"b.png", "a.JPG", "notes.txt", "c.tiff", "d.webp"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "nested"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "nested", "deep.png"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write nested: %v", err)
	}

	files, err := Discover(dir)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}

	if len(files) != 4 {
		t.Fatalf("expected 4 files, got %d: %v", len(files), files)
	}

	seen := map[string]int{}
	for _, f := range files {
		seen[filepath.Base(f)]++
	}
	for _, want := range []string{"b.png", "a.JPG", "c.tiff", "d.webp"} {
		if seen[want] != 1 {
			t.Fatalf("expected %s exactly once, got %d (files: %v)", want, seen[want], files)
		}
	}

	for i := 1; i < len(files); i++ {
		if files[i-1] >= files[i] {
			t.Fatalf("files not sorted: %v", files)
		}
	}
}

func TestDiscoverMissingDirectory(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "does-not-exist"))
	if !errors.Is(err, ErrDirectoryNotFound) {
		t.Fatalf("expected ErrDirectoryNotFound, got %v", err)
	}
}

func TestDiscoverNotADirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.png")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, err := Discover(path)
	if !errors.Is(err, ErrDirectoryNotFound) {
		t.Fatalf("expected ErrDirectoryNotFound, got %v", err)
	}
}

func TestDiscoverEmptyDirectory(t *testing.T) {
	files, err := Discover(t.TempDir())
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(files) != 0 {
		t.Fatalf("expected no files, got %v", files)
	}
}
