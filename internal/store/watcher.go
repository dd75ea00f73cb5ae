package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces the burst of events an editor or an atomic
// rename produces for one logical save.
const DefaultDebounce = 150 * time.Millisecond

var errWatcherClosed = errors.New("store watcher closed")

// Watcher reloads the toggle shortcut whenever the store file changes and
// reports values that differ from the last one seen.
type Watcher struct {
	path     string
	debounce time.Duration
	onChange func([]string)

	mu   sync.Mutex
	last []string
	seen bool
}

// NewWatcher creates a watcher for the store at path. debounce <= 0 selects
// DefaultDebounce.
func NewWatcher(path string, debounce time.Duration, onChange func([]string)) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		path:     filepath.Clean(path),
		debounce: debounce,
		onChange: onChange,
	}
}

// Remember records seq as the current value so a write made by this process
// does not echo back through onChange.
func (w *Watcher) Remember(seq []string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.last = slices.Clone(seq)
	w.seen = true
}

// Run watches the store's directory until ctx is cancelled. The directory is
// watched instead of the file so atomic replacements are observed.
func (w *Watcher) Run(ctx context.Context) error {
	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("store watcher: mkdir: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("store watcher: %w", err)
	}
	defer func() {
		if closeErr := fsw.Close(); closeErr != nil {
			slog.Debug("[store] watcher close failed", "error", closeErr)
		}
	}()
	if err := fsw.Add(dir); err != nil {
		return fmt.Errorf("store watcher: watch %s: %w", dir, err)
	}
	slog.Debug("[store] watching key event store", "path", w.path)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return errWatcherClosed
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-fsw.Errors:
			if !ok {
				return errWatcherClosed
			}
			slog.Warn("[store] watcher error", "error", err)
		case <-fire:
			fire = nil
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	seq, err := LoadToggleShortcut(w.path)
	if err != nil {
		// Intermediate writes from other processes can be partial.
		slog.Warn("[store] ignoring unreadable key event store", "path", w.path, "error", err)
		return
	}

	w.mu.Lock()
	changed := !w.seen || !slices.Equal(seq, w.last)
	if changed {
		w.last = slices.Clone(seq)
		w.seen = true
	}
	w.mu.Unlock()

	if !changed {
		return
	}
	slog.Info("[store] toggle shortcut changed on disk", "shortcut", seq)
	if w.onChange != nil {
		w.onChange(seq)
	}
}
