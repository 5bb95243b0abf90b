package sessionindex

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/brianly1003/cdev/internal/adapters/watcher"
	"github.com/brianly1003/cdev/internal/domain/events"
	"github.com/brianly1003/cdev/internal/provider"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// rootWatcher recursively watches one provider's home directory and
// debounces raw fsnotify events into per-path incremental-scan calls,
// reusing watcher.Debouncer directly (grounded on
// internal/adapters/watcher.Watcher, generalized here to an arbitrary
// provider root instead of a single git repo).
type rootWatcher struct {
	adapter   provider.Adapter
	root      string
	onChange  func(a provider.Adapter, path string, removed bool)
	debouncer *watcher.Debouncer

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	cancel  context.CancelFunc
	running bool
}

// sessionFileExtensions are the only file suffixes any provider writes
// transcripts under; every other file in a provider's home directory is
// ignored by the watcher without needing a per-adapter filter hook.
var sessionFileExtensions = []string{".jsonl", ".json"}

func hasSessionFileExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range sessionFileExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

func newRootWatcher(a provider.Adapter, debounceWindow time.Duration, onChange func(a provider.Adapter, path string, removed bool)) (*rootWatcher, error) {
	root := a.HomeDir()
	if root == "" {
		return nil, os.ErrNotExist
	}
	if _, err := os.Stat(root); err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	rw := &rootWatcher{adapter: a, root: root, onChange: onChange, fsw: fsw}
	rw.debouncer = watcher.NewDebouncer(debounceWindow, rw.handleDebounced)
	return rw, nil
}

// start begins watching. Callers should check the returned error only at
// construction (newRootWatcher); start itself is best-effort since a
// provider root that vanishes after construction is simply quiet.
func (rw *rootWatcher) start(ctx context.Context) {
	rw.mu.Lock()
	if rw.running {
		rw.mu.Unlock()
		return
	}
	rw.running = true
	watchCtx, cancel := context.WithCancel(ctx)
	rw.cancel = cancel
	rw.mu.Unlock()

	if err := rw.addWatchRecursive(rw.root); err != nil {
		log.Warn().Err(err).Str("provider", string(rw.adapter.Name())).Msg("sessionindex: failed to watch provider root recursively")
	}

	go rw.eventLoop(watchCtx)
}

func (rw *rootWatcher) stop() {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if !rw.running {
		return
	}
	rw.running = false
	if rw.cancel != nil {
		rw.cancel()
	}
	rw.debouncer.Stop()
	_ = rw.fsw.Close()
}

func (rw *rootWatcher) addWatchRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		if err := rw.fsw.Add(path); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("sessionindex: failed to add fsnotify watch")
		}
		return nil
	})
}

func (rw *rootWatcher) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-rw.fsw.Events:
			if !ok {
				return
			}
			rw.handleEvent(ev)
		case err, ok := <-rw.fsw.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Str("provider", string(rw.adapter.Name())).Msg("sessionindex: fsnotify error")
		}
	}
}

func (rw *rootWatcher) handleEvent(ev fsnotify.Event) {
	if ev.Op&fsnotify.Create == fsnotify.Create {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			_ = rw.addWatchRecursive(ev.Name)
			return
		}
	}

	if !hasSessionFileExtension(ev.Name) {
		return
	}

	switch {
	case ev.Op&fsnotify.Create == fsnotify.Create, ev.Op&fsnotify.Write == fsnotify.Write:
		rw.debouncer.Add(ev.Name, events.FileChangeModified)
	case ev.Op&fsnotify.Remove == fsnotify.Remove, ev.Op&fsnotify.Rename == fsnotify.Rename:
		rw.debouncer.Add(ev.Name, events.FileChangeDeleted)
	}
}

func (rw *rootWatcher) handleDebounced(path string, changeType events.FileChangeType) {
	rw.onChange(rw.adapter, path, changeType == events.FileChangeDeleted)
}
