package scenario

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherFiresOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"name":"a","steps":[{"action":"close"}]}`), 0o644))

	fired := make(chan string, 8)
	watcher, err := NewWatcher(path, 50*time.Millisecond, func(p string) error {
		fired <- p
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, watcher.Start())
	t.Cleanup(func() { _ = watcher.Stop() })

	require.NoError(t, os.WriteFile(path, []byte(`{"name":"b","steps":[{"action":"close"}]}`), 0o644))

	select {
	case p := <-fired:
		assert.Equal(t, path, p)
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not fire after the file changed")
	}
}

func TestWatcherIgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))

	fired := make(chan string, 8)
	watcher, err := NewWatcher(path, 20*time.Millisecond, func(p string) error {
		fired <- p
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, watcher.Start())
	t.Cleanup(func() { _ = watcher.Stop() })

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte(`{}`), 0o644))

	select {
	case p := <-fired:
		t.Fatalf("watcher fired for a sibling file: %s", p)
	case <-time.After(300 * time.Millisecond):
	}

	require.NoError(t, os.WriteFile(path, []byte(`{"name":"x"}`), 0o644))

	select {
	case p := <-fired:
		assert.Equal(t, path, p)
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not fire for the watched file")
	}
}

func TestWatcherStopIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))

	watcher, err := NewWatcher(path, 0, func(string) error { return nil })
	require.NoError(t, err)
	require.NoError(t, watcher.Start())

	assert.NoError(t, watcher.Stop())
	assert.NoError(t, watcher.Stop())
}
