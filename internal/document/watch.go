package document

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 100 * time.Millisecond

// Watcher calls a function whenever a file is created, written, renamed or
// removed. It serves the document and the CSV store alike. The parent directory is watched so editors that save by
// rename are seen too.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	onChange func()

	closeOnce sync.Once
	done      chan struct{}
}

// NewWatcher starts watching path. onChange runs on the watcher goroutine.
func NewWatcher(path string, onChange func()) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	return &Watcher{
		path:     abs,
		watcher:  fw,
		onChange: onChange,
		done:     make(chan struct{}),
	}, nil
}

// Run handles events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	defer close(w.done)

	// Editors emit several events per save; fire once they settle.
	debounce := time.NewTimer(watchDebounce)
	if !debounce.Stop() {
		<-debounce.C
	}
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) &&
				!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			debounce.Reset(watchDebounce)

		case <-debounce.C:
			slog.DebugContext(ctx, "Watched file changed", "path", w.path)
			w.onChange()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.WarnContext(ctx, "File watcher error", "path", w.path, "error", err)
		}
	}
}

// Close stops the watcher. A running Run returns once the event channels close.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		err = w.watcher.Close()
	})
	return err
}

// Done is closed when Run returns.
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}
