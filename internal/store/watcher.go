package store

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// defaultWatchDebounce coalesces the event bursts editors produce when they
// write-then-rename a temp file over the target.
const defaultWatchDebounce = 500 * time.Millisecond

// Watcher monitors the config file for modifications made outside the
// store and fires a debounced callback. It is advisory only: the checksum
// check before each write remains the authority on conflicts. Watching the
// parent directory rather than the file itself survives the replace-by-
// rename pattern most editors use.
type Watcher struct {
	fsw      *fsnotify.Watcher
	base     string
	debounce time.Duration
	onChange func()

	mu     sync.Mutex
	timer  *time.Timer
	done   chan struct{}
	closed bool
}

// WatchFile starts watching the document at path. onChange fires after the
// debounce window closes behind the last filesystem event touching it.
func WatchFile(path string, debounce time.Duration, onChange func()) (*Watcher, error) {
	if debounce <= 0 {
		debounce = defaultWatchDebounce
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("watch config: resolve path: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch config: %w", err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch config dir %s: %w", filepath.Dir(abs), err)
	}

	w := &Watcher{
		fsw:      fsw,
		base:     filepath.Base(abs),
		debounce: debounce,
		onChange: onChange,
		done:     make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.done:
			return

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(evt.Name) != w.base {
				continue
			}
			if !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) && !evt.Has(fsnotify.Rename) && !evt.Has(fsnotify.Remove) {
				continue
			}
			w.mu.Lock()
			if w.closed {
				w.mu.Unlock()
				return
			}
			if w.timer == nil {
				w.timer = time.AfterFunc(w.debounce, w.fire)
			} else {
				w.timer.Reset(w.debounce)
			}
			w.mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Warn("config watcher error", "error", err)
		}
	}
}

func (w *Watcher) fire() {
	w.mu.Lock()
	w.timer = nil
	closed := w.closed
	w.mu.Unlock()
	if closed || w.onChange == nil {
		return
	}
	w.onChange()
}

// Close stops the watcher. Pending debounced callbacks are dropped.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()

	close(w.done)
	return w.fsw.Close()
}

// WatchExternal watches this store's document for external modification.
func (s *Store) WatchExternal(onChange func()) (*Watcher, error) {
	return WatchFile(s.path, 0, onChange)
}
