package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jward/garnet"
	"github.com/jward/garnet/internal/graph"
)

func typeOf(e *garnet.Engine, id, name string) string {
	u, ok := e.Unit(id)
	if !ok {
		return ""
	}
	d := u.Top.Local(name, graph.Anywhere, nil)
	if d == nil {
		return ""
	}
	return d.Type().String()
}

func TestWatcher_ReanalyzesChangedFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	file := filepath.Join(dir, "a.rb")
	writeFile(t, file, "x = 1\n")
	writeFile(t, filepath.Join(dir, "vendor", "skip.rb"), "z = 1\n")

	e, err := garnet.New()
	require.NoError(t, err)
	defer e.Close()
	excludes := []string{"vendor/**"}
	require.NoError(t, e.IndexDirectory(context.Background(), dir, excludes))
	require.Equal(t, "Fixnum", typeOf(e, file, "x"))

	ctx, cancel := context.WithCancel(context.Background())
	w := &watcher{engine: e, log: zap.NewNop(), root: dir, excludes: excludes, debounce: 20 * time.Millisecond}
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// The watch is registered asynchronously; keep rewriting until it is seen.
	assert.Eventually(t, func() bool {
		_ = os.WriteFile(file, []byte("x = \"s\"\n"), 0o644)
		return typeOf(e, file, "x") == "String"
	}, 5*time.Second, 50*time.Millisecond)

	added := filepath.Join(dir, "sub", "b.rb")
	writeFile(t, added, "y = []\n")
	assert.Eventually(t, func() bool {
		_, ok := e.Unit(added)
		if !ok {
			_ = os.WriteFile(added, []byte("y = []\n"), 0o644)
		}
		return ok
	}, 5*time.Second, 50*time.Millisecond)

	require.NoError(t, os.Remove(file))
	assert.Eventually(t, func() bool {
		_, ok := e.Unit(file)
		return !ok
	}, 5*time.Second, 20*time.Millisecond)

	_, ok := e.Unit(filepath.Join(dir, "vendor", "skip.rb"))
	assert.False(t, ok)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcher_Split(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	present := filepath.Join(dir, "b.rb")
	writeFile(t, present, "")
	w := &watcher{root: dir}
	changed, removed := w.split(map[string]fsnotify.Op{
		present:                    0,
		filepath.Join(dir, "a.rb"): 0,
	})
	assert.Equal(t, []string{present}, changed)
	assert.Equal(t, []string{filepath.Join(dir, "a.rb")}, removed)
}

func TestWatcher_Excluded(t *testing.T) {
	t.Parallel()
	w := &watcher{root: "/src", excludes: []string{"**/vendor/**"}}
	assert.True(t, w.excluded("/src/app/vendor/x.rb"))
	assert.False(t, w.excluded("/src/app/models/x.rb"))
}
