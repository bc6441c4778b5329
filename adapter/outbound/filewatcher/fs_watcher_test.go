package filewatcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunatic-fringers/wgbridge/domain/port/outbound"
)

// debounce means delivery takes at least debounceDelay
const eventTimeout = 5 * time.Second

func waitForEvent(t *testing.T, events <-chan outbound.FileChangeEvent) outbound.FileChangeEvent {
	t.Helper()

	select {
	case event := <-events:
		return event
	case <-time.After(eventTimeout):
		t.Fatal("timed out waiting for file change event")
		return outbound.FileChangeEvent{}
	}
}

func TestFsWatcher_DetectsCreate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conf.json")

	watcher, err := NewFSWatcher()
	require.NoError(t, err)
	defer watcher.Stop()

	require.NoError(t, watcher.Watch(context.Background(), path))
	assert.True(t, watcher.IsWatching())

	require.NoError(t, os.WriteFile(path, []byte("{}"), 0600))

	event := waitForEvent(t, watcher.Events())
	assert.Equal(t, path, event.FilePath)
	assert.Contains(t, []string{"create", "modify"}, event.EventType)
}

func TestFsWatcher_DetectsModify(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conf.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0600))

	watcher, err := NewFSWatcher()
	require.NoError(t, err)
	defer watcher.Stop()

	require.NoError(t, watcher.Watch(context.Background(), path))

	require.NoError(t, os.WriteFile(path, []byte(`{"changed":true}`), 0600))

	event := waitForEvent(t, watcher.Events())
	assert.Equal(t, path, event.FilePath)
}

func TestFsWatcher_IgnoresUnwatchedFiles(t *testing.T) {
	dir := t.TempDir()
	watched := filepath.Join(dir, "conf.json")
	unwatched := filepath.Join(dir, "other.json")

	watcher, err := NewFSWatcher()
	require.NoError(t, err)
	defer watcher.Stop()

	require.NoError(t, watcher.Watch(context.Background(), watched))

	require.NoError(t, os.WriteFile(unwatched, []byte("{}"), 0600))
	require.NoError(t, os.WriteFile(watched, []byte("{}"), 0600))

	// only the watched file's event arrives, despite the sibling write
	event := waitForEvent(t, watcher.Events())
	assert.Equal(t, watched, event.FilePath)

	select {
	case extra := <-watcher.Events():
		t.Fatalf("unexpected event for %s", extra.FilePath)
	case <-time.After(debounceDelay * 2):
	}
}

func TestFsWatcher_DebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conf.json")

	watcher, err := NewFSWatcher()
	require.NoError(t, err)
	defer watcher.Stop()

	require.NoError(t, watcher.Watch(context.Background(), path))

	// a burst of writes within the debounce window collapses to one event
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte("{}"), 0600))
		time.Sleep(10 * time.Millisecond)
	}

	waitForEvent(t, watcher.Events())

	select {
	case extra := <-watcher.Events():
		t.Fatalf("burst was not debounced, extra event for %s", extra.FilePath)
	case <-time.After(debounceDelay * 2):
	}
}

func TestFsWatcher_Stop(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conf.json")

	watcher, err := NewFSWatcher()
	require.NoError(t, err)

	require.NoError(t, watcher.Watch(context.Background(), path))
	require.NoError(t, watcher.Stop())
	assert.False(t, watcher.IsWatching())

	// stopping an already stopped watcher is a no-op
	assert.NoError(t, watcher.Stop())
}

func TestFsWatcher_WatchMissingDir(t *testing.T) {
	watcher, err := NewFSWatcher()
	require.NoError(t, err)
	defer watcher.Stop()

	err = watcher.Watch(context.Background(), filepath.Join(t.TempDir(), "missing", "conf.json"))
	assert.Error(t, err)
}
