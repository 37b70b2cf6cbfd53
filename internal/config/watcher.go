package config

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports writes to a single file. It watches the parent
// directory so editors that replace the file on save are seen too.
type Watcher struct {
	fs      *fsnotify.Watcher
	name    string
	changes chan string
	errors  chan error
	done    chan struct{}
}

// Watch starts watching path.
func Watch(path string) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("config: watch %s: %w", path, err)
	}
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: watch %s: %w", path, err)
	}
	if err := fs.Add(filepath.Dir(abs)); err != nil {
		fs.Close()
		return nil, fmt.Errorf("config: watch %s: %w", path, err)
	}

	w := &Watcher{
		fs:      fs,
		name:    abs,
		changes: make(chan string, 1),
		errors:  make(chan error, 1),
		done:    make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// Changes delivers the watched path after it was written or recreated.
// Bursts of events collapse into one pending notification.
func (w *Watcher) Changes() <-chan string { return w.changes }

// Errors delivers watcher failures. Errors are dropped while one is pending.
func (w *Watcher) Errors() <-chan error { return w.errors }

// Close stops the watcher and closes both channels.
func (w *Watcher) Close() error {
	select {
	case <-w.done:
		return nil
	default:
	}
	close(w.done)
	return w.fs.Close()
}

func (w *Watcher) run() {
	defer close(w.changes)
	defer close(w.errors)
	for {
		select {
		case e, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Clean(e.Name) != w.name {
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			select {
			case w.changes <- w.name:
			default:
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			default:
			}

		case <-w.done:
			return
		}
	}
}
