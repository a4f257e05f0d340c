package obslog

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRotatingWriterRotatesPastMaxSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "icap.log")

	w, err := newRotatingWriter(path, 0)
	if err != nil {
		t.Fatalf("newRotatingWriter: %v", err)
	}
	w.maxSize = 10 // bypass the MB multiplier for a small, fast test

	var rotatedTo string
	w.onRotate = func(p string) { rotatedTo = p }

	if _, err := w.Write([]byte("0123456789")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := w.Write([]byte("more")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if rotatedTo == "" {
		t.Fatal("expected a rotation to have happened")
	}
	if _, err := os.Stat(rotatedTo); err != nil {
		t.Errorf("rotated file %q not found: %v", rotatedTo, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %q: %v", path, err)
	}
	if string(data) != "more" {
		t.Errorf("active file content = %q, want %q", data, "more")
	}
}

func TestRotatingWriterZeroMaxSizeDisablesRotation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "icap.log")

	w, err := newRotatingWriter(path, 0)
	if err != nil {
		t.Fatalf("newRotatingWriter: %v", err)
	}

	rotated := false
	w.onRotate = func(string) { rotated = true }

	for i := 0; i < 5; i++ {
		if _, err := w.Write([]byte("0123456789")); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}

	if rotated {
		t.Error("expected rotation to stay disabled when maxSize is 0")
	}
}
