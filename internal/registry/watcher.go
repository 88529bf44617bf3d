package registry

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/tutorchat-ai/tutorchat/internal/logging"
)

// Watcher reloads the registry when its storage file changes underneath the
// process, e.g. another tutorchat instance or a hand edit. Each reload
// invokes the onChange callback so the owner can invalidate its session.
type Watcher struct {
	registry Watched
	watcher  *fsnotify.Watcher
	onChange func()
	stopCh   chan struct{}
	doneCh   chan struct{}
	started  bool
	stopped  bool
	mu       sync.Mutex
}

// Watched is the minimal registry surface the watcher needs.
type Watched interface {
	StoragePath() string
	Reload()
}

// NewWatcher creates a watcher over the registry's storage file. The parent
// directory is watched rather than the file itself because atomic writes
// replace the file via rename.
func NewWatcher(reg Watched, onChange func()) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := w.Add(filepath.Dir(reg.StoragePath())); err != nil {
		w.Close()
		return nil, err
	}

	return &Watcher{
		registry: reg,
		watcher:  w,
		onChange: onChange,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start begins watching for storage changes.
func (w *Watcher) Start() {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.mu.Unlock()
	go w.run()
}

func (w *Watcher) run() {
	defer close(w.doneCh)

	target := w.registry.StoragePath()
	for {
		select {
		case <-w.stopCh:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Name != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				logging.Debug().Str("path", ev.Name).Msg("registry storage changed, reloading")
				w.registry.Reload()
				if w.onChange != nil {
					w.onChange()
				}
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Error().Err(err).Msg("registry watcher error")
		}
	}
}

// Stop shuts down the watcher. Safe to call more than once.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	started := w.started
	w.mu.Unlock()

	close(w.stopCh)
	w.watcher.Close()
	if started {
		<-w.doneCh
	}
}
