package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// collector records OnChange notifications.
type collector struct {
	mu    sync.Mutex
	paths []string
}

func (c *collector) change(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paths = append(c.paths, path)
}

func (c *collector) seen() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.paths...)
}

func TestFileWatcherNotifiesOnChange(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "settings.yaml")
	require.NoError(t, os.WriteFile(target, []byte("a: 1\n"), 0o644))

	var got collector
	w, err := New(Config{
		Paths:    []string{target},
		Debounce: 50 * time.Millisecond,
		OnChange: got.change,
	})
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.NoError(t, os.WriteFile(target, []byte("a: 2\n"), 0o644))

	assert.Eventually(t, func() bool {
		return len(got.seen()) >= 1
	}, 5*time.Second, 20*time.Millisecond, "expected a settled notification")

	seen := got.seen()
	abs, _ := filepath.Abs(target)
	assert.Equal(t, abs, seen[0])
}

func TestFileWatcherCollapsesBursts(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "history.json")

	var got collector
	w, err := New(Config{
		Paths:    []string{target},
		Debounce: 150 * time.Millisecond,
		OnChange: got.change,
	})
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	// A burst of rapid writes settles into a single notification.
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(target, []byte{byte('0' + i)}, 0o644))
		time.Sleep(10 * time.Millisecond)
	}

	assert.Eventually(t, func() bool {
		return len(got.seen()) == 1
	}, 5*time.Second, 20*time.Millisecond)

	// No further notifications arrive once the burst is consumed.
	time.Sleep(300 * time.Millisecond)
	assert.Len(t, got.seen(), 1)
}

func TestFileWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "settings.yaml")
	other := filepath.Join(dir, "unrelated.txt")

	var got collector
	w, err := New(Config{
		Paths:    []string{target},
		Debounce: 50 * time.Millisecond,
		OnChange: got.change,
	})
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.NoError(t, os.WriteFile(other, []byte("noise"), 0o644))
	require.NoError(t, os.WriteFile(target, []byte("signal"), 0o644))

	assert.Eventually(t, func() bool {
		return len(got.seen()) >= 1
	}, 5*time.Second, 20*time.Millisecond)

	for _, p := range got.seen() {
		assert.NotContains(t, p, "unrelated")
	}

	stats := w.Snapshot()
	assert.Positive(t, stats.Created)
	assert.Zero(t, stats.Errors)
}

func TestFileWatcherObservesAtomicReplace(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "history.json")
	require.NoError(t, os.WriteFile(target, []byte("old"), 0o644))

	var got collector
	w, err := New(Config{
		Paths:    []string{target},
		Debounce: 50 * time.Millisecond,
		OnChange: got.change,
	})
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	// Replace the file the way the store saves: temp sibling then rename.
	tmp := filepath.Join(dir, "history.json.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte("new"), 0o644))
	require.NoError(t, os.Rename(tmp, target))

	assert.Eventually(t, func() bool {
		return len(got.seen()) >= 1
	}, 5*time.Second, 20*time.Millisecond)
}

func TestFileWatcherStopIsIdempotent(t *testing.T) {
	w, err := New(Config{Paths: []string{filepath.Join(t.TempDir(), "x")}})
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	require.True(t, w.IsWatching())

	w.Stop()
	assert.False(t, w.IsWatching())
	w.Stop() // second stop is a no-op
}
