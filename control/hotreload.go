// control/hotreload.go
// Author: momentics <momentics@gmail.com>
//
// Reloads a ConfigStore when its backing file changes.

package control

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"k8s.io/klog/v2"
)

// Watcher feeds file changes into a ConfigStore.
type Watcher struct {
	path  string
	store *ConfigStore
	w     *fsnotify.Watcher
}

// NewWatcher watches the directory holding path, so that editors replacing
// the file by rename are also observed.
func NewWatcher(path string, store *ConfigStore) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("init config watcher error: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to add watch in %s, err: %w", path, err)
	}
	return &Watcher{path: abs, store: store, w: w}, nil
}

// Run reloads the store on every write or re-creation of the file until ctx
// is done. Files that fail to parse or validate are logged and ignored.
func (cw *Watcher) Run(ctx context.Context) error {
	defer cw.w.Close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-cw.w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != cw.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cw.reload()
		case err, ok := <-cw.w.Errors:
			if !ok {
				return nil
			}
			klog.Errorf("config watcher error: %v", err)
		}
	}
}

func (cw *Watcher) reload() {
	cfg := NewDefaultConfig()
	if err := cfg.Parse(cw.path); err != nil {
		return
	}
	if errs := cw.store.Set(*cfg); len(errs) > 0 {
		klog.Errorf("Rejected config %s: %v", cw.path, errs)
		return
	}
	klog.Infof("Reloaded config %s", cw.path)
}
