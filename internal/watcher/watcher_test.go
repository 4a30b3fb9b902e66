package watcher_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/implindex/internal/watcher"
)

func TestWatcher_DebounceMultipleWrites(t *testing.T) {
	dir := t.TempDir()
	frag := filepath.Join(dir, "crateA.json")
	require.NoError(t, os.WriteFile(frag, []byte("{}"), 0644))

	w, err := watcher.New(watcher.Config{Dir: dir, DebounceDur: 50 * time.Millisecond})
	require.NoError(t, err, "failed to create watcher")
	defer func() { _ = w.Stop() }()

	onChange, err := w.Start()
	require.NoError(t, err, "failed to start watcher")

	// Rapid writes should coalesce into a single batch
	for i := 0; i < 10; i++ {
		require.NoError(t, os.WriteFile(frag, []byte(fmt.Sprintf(`{"n":%d}`, i)), 0644))
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case batch := <-onChange:
		require.Equal(t, []string{frag}, batch)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected notification but got timeout")
	}

	select {
	case <-onChange:
		t.Fatal("unexpected second notification")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWatcher_BatchesSeveralFragments(t *testing.T) {
	dir := t.TempDir()

	w, err := watcher.New(watcher.Config{Dir: dir, DebounceDur: 80 * time.Millisecond})
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	onChange, err := w.Start()
	require.NoError(t, err)

	b := filepath.Join(dir, "b.yaml")
	a := filepath.Join(dir, "a.msgpack")
	require.NoError(t, os.WriteFile(b, []byte("module: b"), 0644))
	require.NoError(t, os.WriteFile(a, []byte{0x80}, 0644))

	select {
	case batch := <-onChange:
		require.Equal(t, []string{a, b}, batch)
	case <-time.After(time.Second):
		t.Fatal("expected a batch")
	}
}

func TestWatcher_IgnoresNonFragmentFiles(t *testing.T) {
	dir := t.TempDir()
	otherPath := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(otherPath, []byte("initial"), 0644))

	w, err := watcher.New(watcher.Config{Dir: dir, DebounceDur: 50 * time.Millisecond})
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	onChange, err := w.Start()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(otherPath, []byte("other content"), 0644))

	select {
	case <-onChange:
		t.Fatal("should not notify for non-fragment files")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestWatcher_StartMissingDir(t *testing.T) {
	w, err := watcher.New(watcher.DefaultConfig(filepath.Join(t.TempDir(), "missing")))
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	_, err = w.Start()
	require.Error(t, err)
}

func TestWatcher_Stop(t *testing.T) {
	w, err := watcher.New(watcher.Config{Dir: t.TempDir(), DebounceDur: 50 * time.Millisecond})
	require.NoError(t, err)

	onChange, err := w.Start()
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		assert.NoError(t, w.Stop(), "Stop returned error")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop() timed out - possible deadlock")
	}

	select {
	case _, ok := <-onChange:
		require.False(t, ok, "channel should close after Stop")
	case <-time.After(time.Second):
		t.Fatal("change channel not closed")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := watcher.DefaultConfig("/frags")

	assert.Equal(t, "/frags", cfg.Dir)
	assert.Equal(t, 250*time.Millisecond, cfg.DebounceDur)
}
