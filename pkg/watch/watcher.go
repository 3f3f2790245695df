// Package watch triggers re-analysis when an event log file changes on
// disk.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a file must stay quiet before a change
// fires. Log exports are written incrementally; firing on the first
// write would re-analyze a half-written file.
const DefaultDebounce = 500 * time.Millisecond

// LogWatcher watches a single event log file. The parent directory is
// registered with fsnotify because exporters tend to replace the file
// rather than write it in place, which drops inode-level watches.
type LogWatcher struct {
	fs       *fsnotify.Watcher
	path     string
	debounce time.Duration

	mu      sync.Mutex
	modTime time.Time
	size    int64
	busy    bool
	timer   *time.Timer
}

// New watches path. The file must exist so its initial state can be
// recorded; changes are detected against that state.
func New(path string, debounce time.Duration) (*LogWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("cannot watch %s: %w", path, err)
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fs.Add(filepath.Dir(abs)); err != nil {
		fs.Close()
		return nil, fmt.Errorf("cannot watch %s: %w", filepath.Dir(abs), err)
	}

	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &LogWatcher{
		fs:       fs,
		path:     abs,
		debounce: debounce,
		modTime:  info.ModTime(),
		size:     info.Size(),
	}, nil
}

// Path returns the absolute path being watched.
func (lw *LogWatcher) Path() string {
	return lw.path
}

// Run blocks until ctx is done, calling onChange once per settled
// change of the watched file and onErr for watch failures. An onChange
// error is reported through onErr; the watch continues.
func (lw *LogWatcher) Run(ctx context.Context, onChange func(path string) error, onErr func(error)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-lw.fs.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if abs, err := filepath.Abs(ev.Name); err != nil || abs != lw.path {
				continue
			}
			lw.arm(onChange, onErr)

		case err, ok := <-lw.fs.Errors:
			if !ok {
				return nil
			}
			if onErr != nil {
				onErr(err)
			}
		}
	}
}

// arm restarts the debounce timer; the change fires once writes stop.
func (lw *LogWatcher) arm(onChange func(path string) error, onErr func(error)) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	if lw.timer != nil {
		lw.timer.Stop()
	}
	lw.timer = time.AfterFunc(lw.debounce, func() {
		lw.fire(onChange, onErr)
	})
}

func (lw *LogWatcher) fire(onChange func(path string) error, onErr func(error)) {
	lw.mu.Lock()
	if lw.busy {
		lw.mu.Unlock()
		return
	}
	lw.busy = true
	lw.mu.Unlock()

	defer func() {
		lw.mu.Lock()
		lw.busy = false
		lw.mu.Unlock()
	}()

	info, err := os.Stat(lw.path)
	if err != nil {
		if onErr != nil {
			onErr(err)
		}
		return
	}

	lw.mu.Lock()
	unchanged := info.ModTime().Equal(lw.modTime) && info.Size() == lw.size
	lw.modTime = info.ModTime()
	lw.size = info.Size()
	lw.mu.Unlock()
	if unchanged {
		return
	}

	if onChange != nil {
		if err := onChange(lw.path); err != nil && onErr != nil {
			onErr(err)
		}
	}
}

// Close stops the underlying fsnotify watcher.
func (lw *LogWatcher) Close() error {
	return lw.fs.Close()
}
