// Package assetwatch reports edits to animation documents on disk so a
// running surface can be reloaded.
package assetwatch

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Debounce drops repeated events for the same file inside this window.
const Debounce = 100 * time.Millisecond

type Watcher struct {
	watcher *fsnotify.Watcher
	log     *zap.Logger

	// Events carries the cleaned path of every changed asset document.
	Events  chan string
	Errors  chan error
	closeCh chan struct{}
	doneCh  chan struct{}
	once    sync.Once

	mu    sync.Mutex
	files map[string]bool
}

// New watches the directories holding paths. When paths name files only
// those files are reported, otherwise every document in the directory is.
func New(log *zap.Logger, paths ...string) (*Watcher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	watcher := &Watcher{
		watcher: w,
		log:     log,
		Events:  make(chan string, 16),
		Errors:  make(chan error, 1),
		closeCh: make(chan struct{}),
		doneCh:  make(chan struct{}),
		files:   map[string]bool{},
	}
	for _, p := range paths {
		if err := watcher.Add(p); err != nil {
			_ = w.Close()
			return nil, err
		}
	}
	go watcher.run()
	return watcher, nil
}

// Add starts watching p, a document or a directory.
func (w *Watcher) Add(p string) error {
	clean := filepath.Clean(p)
	dir := clean
	if isAssetFile(clean) {
		dir = filepath.Dir(clean)
		w.mu.Lock()
		w.files[clean] = true
		w.mu.Unlock()
	}
	if err := w.watcher.Add(dir); err != nil {
		return err
	}
	w.log.Debug("watching assets", zap.String("path", clean))
	return nil
}

func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		err = w.watcher.Close()
		<-w.doneCh
		close(w.Events)
		close(w.Errors)
	})
	return err
}

func (w *Watcher) run() {
	defer close(w.doneCh)

	last := make(map[string]time.Time)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			name := filepath.Clean(event.Name)
			if !w.wants(name) {
				continue
			}
			now := time.Now()
			if t, ok := last[name]; ok && now.Sub(t) < Debounce {
				continue
			}
			last[name] = now
			select {
			case w.Events <- name:
			case <-w.closeCh:
				return
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.Errors <- err:
			default:
				w.log.Warn("asset watch error dropped", zap.Error(err))
			}
		case <-w.closeCh:
			return
		}
	}
}

func (w *Watcher) wants(name string) bool {
	if !isAssetFile(name) {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.files) == 0 {
		return true
	}
	return w.files[name]
}

func isAssetFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
