package plugin

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher triggers a host re-sync when files under the plugin directories
// change. Events are debounced so a burst of writes (an unpacking plugin
// archive, an editor save) produces a single sync.
type Watcher struct {
	watcher  *fsnotify.Watcher
	host     *Host
	logger   zerolog.Logger
	debounce time.Duration
	timer    *time.Timer
	timerMu  sync.Mutex
	done     chan struct{}
	stopOnce sync.Once
}

// NewWatcher creates a watcher over the host's discovery directories.
// Directories that do not exist yet are skipped; the periodic rescan picks
// them up later.
func NewWatcher(host *Host, logger zerolog.Logger, debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if debounce == 0 {
		debounce = 500 * time.Millisecond
	}

	w := &Watcher{
		watcher:  fsw,
		host:     host,
		logger:   logger.With().Str("component", "plugin-watcher").Logger(),
		debounce: debounce,
		done:     make(chan struct{}),
	}

	dirs := []string{host.config.Discovery.BuiltinDir, host.config.Discovery.WorkspaceDir}
	dirs = append(dirs, host.config.Discovery.ExtraDirs...)
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		if err := fsw.Add(dir); err != nil {
			w.logger.Warn().Err(err).Str("dir", dir).Msg("Failed to watch plugin directory")
		}
	}

	return w, nil
}

// Start begins processing filesystem events until Stop is called.
func (w *Watcher) Start(ctx context.Context) {
	go w.loop(ctx)
}

func (w *Watcher) loop(ctx context.Context) {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				w.schedule(ctx)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Msg("Watcher error")
		case <-w.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (w *Watcher) schedule(ctx context.Context) {
	w.timerMu.Lock()
	defer w.timerMu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		w.logger.Debug().Msg("Plugin directory changed, re-syncing")
		w.host.Sync(ctx)
	})
}

// Stop halts the watcher.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.watcher.Close()

		w.timerMu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.timerMu.Unlock()
	})
}
