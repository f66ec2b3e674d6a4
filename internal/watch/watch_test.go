package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

type recordingCache struct {
	mu    sync.Mutex
	paths []string
}

func (c *recordingCache) Invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paths = append(c.paths, path)
}

func (c *recordingCache) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.paths)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestWatcherInvalidatesOnWrite(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "issues.csv")
	if err := os.WriteFile(path, []byte("a"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cache := &recordingCache{}
	changed := make(chan string, 4)
	w, err := New(Config{
		Path:     path,
		Cache:    cache,
		OnChange: func(p string) { changed <- p },
		Debounce: 50 * time.Millisecond,
		Logger:   zaptest.NewLogger(t),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	// Several quick writes settle into one change.
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(path, []byte("abc"), 0o600); err != nil {
			t.Fatalf("rewrite: %v", err)
		}
	}

	select {
	case p := <-changed:
		if p != w.path {
			t.Fatalf("callback got %q, want %q", p, w.path)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}
	waitFor(t, func() bool { return cache.count() >= 1 })
	if w.Changes() != 1 {
		t.Fatalf("expected writes to be debounced into 1 change, got %d", w.Changes())
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "issues.csv")
	if err := os.WriteFile(path, []byte("a"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cache := &recordingCache{}
	w, err := New(Config{Path: path, Cache: cache, Debounce: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600); err != nil {
		t.Fatalf("write other: %v", err)
	}
	time.Sleep(200 * time.Millisecond)
	w.Stop()

	if cache.count() != 0 {
		t.Fatalf("unrelated file should not invalidate, got %d", cache.count())
	}
}

func TestWatcherStopsOnContextCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "issues.csv")
	if err := os.WriteFile(path, []byte("a"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	w, err := New(Config{Path: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	// A second Start is a no-op.
	if err := w.Start(ctx); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	cancel()
	w.Stop()
	w.Stop()
}

func TestNewRequiresPath(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestStartFailsForMissingDirectory(t *testing.T) {
	w, err := New(Config{Path: filepath.Join(t.TempDir(), "nope", "issues.csv")})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := w.Start(context.Background()); err == nil {
		w.Stop()
		t.Fatal("expected error watching a missing directory")
	}
}
