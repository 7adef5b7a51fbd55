package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewWatcherRejectsNilCallback(t *testing.T) {
	w, err := NewWatcher(100*time.Millisecond, nil, nil)
	if err == nil {
		t.Fatal("expected error for nil callback")
	}
	if !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("expected os.ErrInvalid, got %v", err)
	}
	if w != nil {
		t.Fatal("expected nil watcher when callback is invalid")
	}
}

func TestWatcherDeliversDebouncedChanges(t *testing.T) {
	tmpDir := t.TempDir()
	view := filepath.Join(tmpDir, "Main.xaml")
	if err := os.WriteFile(view, []byte(`<Grid/>`), 0o644); err != nil {
		t.Fatal(err)
	}

	changed := make(chan []string, 4)
	w, err := NewWatcher(50*time.Millisecond, nil, func(paths []string) {
		changed <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Add(view); err != nil {
		t.Fatal(err)
	}
	w.Start()

	// A burst of writes must coalesce into one notification.
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(view, []byte(`<Grid/><!-- edit -->`), 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case paths := <-changed:
		if len(paths) != 1 {
			t.Errorf("changed paths = %v, want just the view", paths)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no change notification")
	}

	select {
	case paths := <-changed:
		t.Errorf("burst produced a second notification: %v", paths)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcherIgnoresUnrelatedFiles(t *testing.T) {
	tmpDir := t.TempDir()
	view := filepath.Join(tmpDir, "Main.xaml")
	if err := os.WriteFile(view, []byte(`<Grid/>`), 0o644); err != nil {
		t.Fatal(err)
	}

	changed := make(chan []string, 4)
	w, err := NewWatcher(30*time.Millisecond, nil, func(paths []string) {
		changed <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Add(view); err != nil {
		t.Fatal(err)
	}
	w.Start()

	if err := os.WriteFile(filepath.Join(tmpDir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case paths := <-changed:
		t.Errorf("unrelated file triggered notification: %v", paths)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcherSiblingMarkupCounts(t *testing.T) {
	tmpDir := t.TempDir()
	view := filepath.Join(tmpDir, "Main.xaml")
	sibling := filepath.Join(tmpDir, "Theme.xaml")
	for _, f := range []string{view, sibling} {
		if err := os.WriteFile(f, []byte(`<Grid/>`), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	changed := make(chan []string, 4)
	w, err := NewWatcher(30*time.Millisecond, nil, func(paths []string) {
		changed <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Add(view); err != nil {
		t.Fatal(err)
	}
	w.Start()

	if err := os.WriteFile(sibling, []byte(`<ResourceDictionary/>`), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("sibling markup edit not delivered")
	}
}

func TestWatcherExcludeGlobs(t *testing.T) {
	tmpDir := t.TempDir()
	view := filepath.Join(tmpDir, "Main.g.xaml")
	if err := os.WriteFile(view, []byte(`<Grid/>`), 0o644); err != nil {
		t.Fatal(err)
	}

	changed := make(chan []string, 4)
	w, err := NewWatcher(30*time.Millisecond, []string{"*.g.xaml"}, func(paths []string) {
		changed <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Add(view); err != nil {
		t.Fatal(err)
	}
	w.Start()

	if err := os.WriteFile(view, []byte(`<Grid Background="Red"/>`), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case paths := <-changed:
		t.Errorf("excluded file triggered notification: %v", paths)
	case <-time.After(200 * time.Millisecond):
	}
}
