package assetwatch

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func waitEvent(t *testing.T, w *Watcher) (string, bool) {
	t.Helper()
	select {
	case name := <-w.Events:
		return name, true
	case <-time.After(2 * time.Second):
		return "", false
	}
}

func TestWatcherReportsDocumentWrites(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "car.yaml")
	if err := os.WriteFile(target, []byte("version: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := New(nil, target)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	// Not watched: other documents and non-documents in the same directory.
	if err := os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(target, []byte("version: 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	name, ok := waitEvent(t, w)
	if !ok {
		t.Fatalf("no event for %s", target)
	}
	if name != target {
		t.Fatalf("event for %q, want %q", name, target)
	}
}

func TestWatcherDirectory(t *testing.T) {
	dir := t.TempDir()
	w, err := New(nil, dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	target := filepath.Join(dir, "vehicles.yml")
	if err := os.WriteFile(target, []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}
	if name, ok := waitEvent(t, w); !ok || name != target {
		t.Fatalf("event = %q, %v", name, ok)
	}
}

func TestWatcherCloseIdempotent(t *testing.T) {
	w, err := New(nil, t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if _, open := <-w.Events; open {
		t.Fatalf("Events should be closed")
	}
}

func TestIsAssetFile(t *testing.T) {
	cases := []struct {
		path string
		want bool
	}{
		{"a.yaml", true},
		{"A.YML", true},
		{"a.riv", false},
		{"dir", false},
	}
	for _, tc := range cases {
		if got := isAssetFile(tc.path); got != tc.want {
			t.Errorf("isAssetFile(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}
