package scenario

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// WatchCallback is called after the watched scenario file settles following
// a change. A returned error is logged, not fatal: watch mode keeps going.
type WatchCallback func(path string) error

// Watcher reruns a callback whenever one scenario file changes. It watches
// the file's directory rather than the file itself: editors that save by
// writing a temp file and renaming it over the target would otherwise
// detach the watch on the first save.
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	dir      string
	debounce time.Duration
	onChange WatchCallback

	done     chan struct{}
	stopOnce sync.Once

	timerMu sync.Mutex
	timer   *time.Timer
}

// NewWatcher creates a watcher for one scenario file. A non-positive
// debounce falls back to 250ms.
func NewWatcher(path string, debounce time.Duration, onChange WatchCallback) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve scenario path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	if debounce <= 0 {
		debounce = 250 * time.Millisecond
	}

	return &Watcher{
		watcher:  watcher,
		path:     abs,
		dir:      filepath.Dir(abs),
		debounce: debounce,
		onChange: onChange,
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching. It returns once the watch is registered; events
// are handled on a background goroutine until Stop.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}

	go w.eventLoop()

	log.Info().
		Str("path", w.path).
		Msg("Scenario watcher started")

	return nil
}

// Stop stops the watcher. Safe to call more than once.
func (w *Watcher) Stop() error {
	w.stopOnce.Do(func() {
		close(w.done)
	})

	w.timerMu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timerMu.Unlock()

	if err := w.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}

	return nil
}

func (w *Watcher) eventLoop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("Scenario watcher error")

		case <-w.done:
			return
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}

	// A save often arrives as several events; run once after it settles.
	w.timerMu.Lock()
	defer w.timerMu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case <-w.done:
			return
		default:
		}

		log.Info().Str("path", w.path).Msg("Scenario file changed")
		if err := w.onChange(w.path); err != nil {
			log.Error().
				Err(err).
				Str("path", w.path).
				Msg("Scenario reload failed")
		}
	})
}
