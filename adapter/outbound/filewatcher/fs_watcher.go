package filewatcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/lunatic-fringers/wgbridge/domain/port/outbound"
)

// editors and save dialogs fire bursts of writes for one logical change
const debounceDelay = 500 * time.Millisecond

type FsWatcher struct {
	watcher      *fsnotify.Watcher
	events       chan outbound.FileChangeEvent
	errors       chan error
	debouncer    map[string]*time.Timer
	watchedFiles map[string]bool
	watchedDirs  map[string]bool
	mu           sync.RWMutex
	ctx          context.Context
	cancel       context.CancelFunc
	running      bool
	closed       chan struct{}
}

func NewFSWatcher() (outbound.FileWatcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	fw := &FsWatcher{
		watcher:      fsWatcher,
		events:       make(chan outbound.FileChangeEvent, 100),
		errors:       make(chan error, 10),
		debouncer:    make(map[string]*time.Timer),
		watchedFiles: make(map[string]bool),
		watchedDirs:  make(map[string]bool),
		ctx:          ctx,
		cancel:       cancel,
		closed:       make(chan struct{}),
	}

	go fw.processEvents()

	return fw, nil
}

func (fw *FsWatcher) Watch(ctx context.Context, path string) error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to get absolute path for %s: %w", path, err)
	}

	// fsnotify watches the directory; events are filtered per file so a
	// watch survives the rename-and-replace pattern editors use
	dir := filepath.Dir(absPath)

	fw.watchedFiles[absPath] = true

	if fw.watchedDirs[dir] {
		return nil
	}

	if err := fw.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}

	fw.watchedDirs[dir] = true
	fw.running = true

	return nil
}

func (fw *FsWatcher) Stop() error {
	fw.mu.Lock()

	if fw.ctx.Err() != nil {
		fw.mu.Unlock()
		return nil
	}

	fw.cancel()

	for _, timer := range fw.debouncer {
		timer.Stop()
	}
	fw.debouncer = make(map[string]*time.Timer)

	if err := fw.watcher.Close(); err != nil {
		fw.mu.Unlock()
		return fmt.Errorf("failed to close fsnotify watcher: %w", err)
	}

	fw.running = false
	fw.mu.Unlock()

	// wait for the event goroutine to finish; event and error channels stay
	// open so late debounce timers can never hit a closed channel
	<-fw.closed

	return nil
}

func (fw *FsWatcher) Events() <-chan outbound.FileChangeEvent {
	return fw.events
}

func (fw *FsWatcher) Errors() <-chan error {
	return fw.errors
}

func (fw *FsWatcher) IsWatching() bool {
	fw.mu.RLock()
	defer fw.mu.RUnlock()
	return fw.running
}

// processEvents filters raw fsnotify events to Write/Create on watched
// files and applies per-file debouncing
func (fw *FsWatcher) processEvents() {
	defer close(fw.closed)

	for {
		select {
		case <-fw.ctx.Done():
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}

			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			if !fw.isWatchedFile(event.Name) {
				continue
			}

			fw.debounceEvent(event)

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}

			select {
			case fw.errors <- err:
			case <-fw.ctx.Done():
				return
			}
		}
	}
}

func (fw *FsWatcher) isWatchedFile(path string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}

	fw.mu.RLock()
	defer fw.mu.RUnlock()
	return fw.watchedFiles[absPath]
}

// debounceEvent delays delivery until the burst for a file settles
func (fw *FsWatcher) debounceEvent(event fsnotify.Event) {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if timer, exists := fw.debouncer[event.Name]; exists {
		timer.Stop()
	}

	fw.debouncer[event.Name] = time.AfterFunc(debounceDelay, func() {
		if fw.ctx.Err() != nil {
			return
		}

		changeEvent := convertEvent(event)

		select {
		case fw.events <- changeEvent:
		case <-fw.ctx.Done():
		}

		fw.mu.Lock()
		delete(fw.debouncer, event.Name)
		fw.mu.Unlock()
	})
}

func convertEvent(event fsnotify.Event) outbound.FileChangeEvent {
	eventType := "modify"
	if event.Has(fsnotify.Create) {
		eventType = "create"
	}

	return outbound.FileChangeEvent{
		FilePath:  event.Name,
		EventType: eventType,
	}
}
