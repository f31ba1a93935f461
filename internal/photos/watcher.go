package photos

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// photoExtensions are the file types picked up from the drop directory.
var photoExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".heic": true,
	".webp": true,
}

// Watcher monitors a drop directory (e.g. a camera sync folder) and
// reports newly created photo files so the wizard can offer them as
// attachments for the active item.
type Watcher struct {
	fsw    *fsnotify.Watcher
	logger *zap.Logger
	files  chan string
	done   chan struct{}
}

// NewWatcher starts watching dir. Detected files are delivered on
// Files() until Close.
func NewWatcher(dir string, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	w := &Watcher{
		fsw:    fsw,
		logger: logger.Named("photowatch"),
		files:  make(chan string, 16),
		done:   make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// Files delivers paths of newly dropped photo files.
func (w *Watcher) Files() <-chan string {
	return w.files
}

// Close stops the watcher and closes the Files channel.
func (w *Watcher) Close() error {
	err := w.fsw.Close()
	<-w.done
	return err
}

func (w *Watcher) run() {
	defer close(w.done)
	defer close(w.files)
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) {
				continue
			}
			ext := strings.ToLower(filepath.Ext(event.Name))
			if !photoExtensions[ext] {
				continue
			}
			w.logger.Debug("photo dropped", zap.String("path", event.Name))
			select {
			case w.files <- event.Name:
			default:
				w.logger.Warn("photo drop queue full, skipping", zap.String("path", event.Name))
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", zap.Error(err))
		}
	}
}
