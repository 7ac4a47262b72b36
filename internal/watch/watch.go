// Package watch reports changes to a single file.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// FileWatcher calls a function when a file is written, created, renamed or
// removed. Bursts of events closer together than the debounce interval result
// in one call.
//
// The file's directory is watched rather than the file itself, so the watcher
// keeps working when an editor replaces the file.
type FileWatcher struct {
	path     string
	debounce time.Duration
	log      logrus.FieldLogger
}

// New creates a FileWatcher for path.
func New(path string, debounce time.Duration, log logrus.FieldLogger) *FileWatcher {
	return &FileWatcher{
		path:     filepath.Clean(path),
		debounce: debounce,
		log:      log,
	}
}

// Run watches the file until ctx is cancelled. onChange is never called
// concurrently with itself.
func (fw *FileWatcher) Run(ctx context.Context, onChange func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(fw.path)); err != nil {
		return fmt.Errorf("failed to watch %q: %w", fw.path, err)
	}

	fw.log.WithFields(logrus.Fields{
		"path":        fw.path,
		"debounce_ms": fw.debounce.Milliseconds(),
	}).Info("watching rule file")

	d := newDebouncer(fw.debounce)
	defer d.stop()

	for {
		select {
		case <-ctx.Done():
			fw.log.Info("rule file watcher stopped")
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if filepath.Clean(event.Name) != fw.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			fw.log.WithField("op", event.Op.String()).Debug("rule file event")
			d.trigger(onChange)

		case err, ok := <-w.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			fw.log.WithError(err).Error("rule file watcher error")
		}
	}
}

// debouncer runs the last function triggered once no trigger has arrived for
// the interval.
type debouncer struct {
	interval time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	running sync.Mutex
}

func newDebouncer(interval time.Duration) *debouncer {
	return &debouncer{interval: interval}
}

func (d *debouncer) trigger(f func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, func() {
		d.running.Lock()
		defer d.running.Unlock()
		f()
	})
}

// stop cancels a pending call and waits for a running one to finish.
func (d *debouncer) stop() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.mu.Unlock()
	d.running.Lock()
	defer d.running.Unlock()
}
