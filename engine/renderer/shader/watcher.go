package shader

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/fsnotify/fsnotify"
)

// watcher is the implementation of the Watcher interface.
type watcher struct {
	mu       sync.Mutex
	fs       *fsnotify.Watcher
	handlers map[string]func(source string)
	dirs     map[string]bool
	done     chan struct{}
	closed   bool
}

// Watcher reloads WGSL files when they change on disk. Handlers run on the watcher's
// goroutine; callers that touch render state from a handler should only mark it dirty.
type Watcher interface {
	// Watch registers fn to be called with the new contents of path after every write.
	// The file is read once immediately and fn is called with its current contents.
	//
	// Parameters:
	//   - path: the WGSL file to watch
	//   - fn: the reload handler
	//
	// Returns:
	//   - error: an error if the file cannot be read or watched
	Watch(path string, fn func(source string)) error

	// Unwatch removes the handler for path.
	//
	// Parameters:
	//   - path: the file passed to Watch
	Unwatch(path string)

	// Close stops the watcher and releases its file descriptors.
	//
	// Returns:
	//   - error: an error from the underlying notifier
	Close() error
}

var _ Watcher = &watcher{}

// NewWatcher creates a Watcher with its event loop running.
//
// Returns:
//   - Watcher: the watcher
//   - error: an error if the platform notifier cannot be created
func NewWatcher() (Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("shader watcher: %w", err)
	}
	w := &watcher{
		fs:       fs,
		handlers: make(map[string]func(string)),
		dirs:     make(map[string]bool),
		done:     make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

func (w *watcher) Watch(path string, fn func(source string)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return fmt.Errorf("shader watcher: %w", err)
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return fmt.Errorf("shader watcher: closed")
	}
	// editors often replace files by rename, so watch the directory
	dir := filepath.Dir(abs)
	if !w.dirs[dir] {
		if err := w.fs.Add(dir); err != nil {
			w.mu.Unlock()
			return fmt.Errorf("shader watcher: %w", err)
		}
		w.dirs[dir] = true
	}
	w.handlers[abs] = fn
	w.mu.Unlock()
	fn(string(data))
	return nil
}

func (w *watcher) Unwatch(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}
	w.mu.Lock()
	delete(w.handlers, abs)
	w.mu.Unlock()
}

func (w *watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.done)
	w.mu.Unlock()
	return w.fs.Close()
}

func (w *watcher) loop() {
	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Write != fsnotify.Write && event.Op&fsnotify.Create != fsnotify.Create {
				continue
			}
			w.mu.Lock()
			fn := w.handlers[filepath.Clean(event.Name)]
			w.mu.Unlock()
			if fn == nil {
				continue
			}
			data, err := os.ReadFile(event.Name)
			if err != nil {
				common.Logger().Warn("shader reload failed", "path", event.Name, "error", err)
				continue
			}
			common.Logger().Debug("shader reloaded", "path", event.Name)
			fn(string(data))
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			common.Logger().Warn("shader watcher error", "error", err)
		case <-w.done:
			return
		}
	}
}
