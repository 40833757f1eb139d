package views

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"
)

// wrappedFS reads from disk without being an OSFileSystem.
type wrappedFS struct{ OSFileSystem }

func waitFor(tb testing.TB, what string, cond func() bool) {
	tb.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	tb.Fatalf("timed out waiting for %s", what)
}

func TestWatch(t *testing.T) {
	r := setupTestRenderer(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Watch(ctx) }()
	defer func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Watch returned %v", err)
		}
	}()

	view, err := r.GetView(ctx, "simple")
	if err != nil {
		t.Fatalf("GetView failed: %v", err)
	}
	key := templateKey(view.Path)

	// the watcher may not be registered yet, so keep touching the file
	waitFor(t, "the view to be invalidated", func() bool {
		_ = os.WriteFile(view.Path, []byte("Changed {{.name}}\n"), 0644)
		return !r.cache.Contains(key)
	})

	out := mustRender(t, r, "simple", Locals{"name": "World"}, nil)
	if out != "Changed World\n" {
		t.Errorf("expected the edited template, got %q", out)
	}

	if _, err := r.ListPartials(ctx); err != nil {
		t.Fatalf("ListPartials failed: %v", err)
	}
	listing := partialsKey(r.PartialPath(""))
	if err := os.WriteFile(r.PartialPath("new.hbs"), []byte("new"), 0644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "the partials listing to be invalidated", func() bool {
		return !r.cache.Contains(listing)
	})
}

func TestWatchUnsupported(t *testing.T) {
	r := setupTestRenderer(t, func(c *Config) { c.FileSystem = wrappedFS{} })
	if err := r.Watch(context.Background()); !errors.Is(err, ErrWatchUnsupported) {
		t.Errorf("expected ErrWatchUnsupported, got %v", err)
	}
}

func TestWatchCacheDisabled(t *testing.T) {
	r := setupTestRenderer(t, func(c *Config) { c.Cache = false })
	if err := r.Watch(context.Background()); err != nil {
		t.Errorf("Watch should return nil with caching disabled, got %v", err)
	}
}
