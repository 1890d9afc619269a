// Package watcher reloads the configuration file when it changes on disk.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ReloadFunc re-reads and applies the configuration. A returned error
// leaves the running settings untouched.
type ReloadFunc func(ctx context.Context) error

// Service watches a single config file. It watches the parent directory so
// that editors which save by rename are seen, and falls back to polling the
// file's size and mtime when fsnotify is unavailable or silent.
type Service struct {
	path         string
	reload       ReloadFunc
	logger       *slog.Logger
	debounce     time.Duration
	pollInterval time.Duration
	probeTimeout time.Duration
	pollOnly     bool
	ready        chan struct{}
}

// NewService creates a config watcher for path.
func NewService(path string, reload ReloadFunc, logger *slog.Logger) *Service {
	return &Service{
		path:         filepath.Clean(path),
		reload:       reload,
		logger:       logger.With("component", "config-watcher"),
		debounce:     500 * time.Millisecond,
		pollInterval: 5 * time.Second,
		probeTimeout: 2 * time.Second,
		ready:        make(chan struct{}),
	}
}

// SetDebounce overrides the default debounce interval (for testing).
func (s *Service) SetDebounce(d time.Duration) {
	s.debounce = d
}

// SetPollOnly disables fsnotify and polls every interval instead.
func (s *Service) SetPollOnly(interval time.Duration) {
	s.pollOnly = true
	s.pollInterval = interval
}

// Ready is closed once the watch or poll baseline is in place.
func (s *Service) Ready() <-chan struct{} {
	return s.ready
}

// Start blocks until ctx is canceled.
func (s *Service) Start(ctx context.Context) {
	dir := filepath.Dir(s.path)

	// When fsnotify is unavailable, use nil channels (never receive).
	var eventCh <-chan fsnotify.Event
	var errCh <-chan error
	if !s.pollOnly {
		if w := s.openWatcher(dir); w != nil {
			defer w.Close() //nolint:errcheck
			eventCh = w.Events
			errCh = w.Errors
		}
	}

	var pollCh <-chan time.Time
	if eventCh == nil {
		ticker := time.NewTicker(s.pollInterval)
		defer ticker.Stop()
		pollCh = ticker.C
	}
	last := statFile(s.path)

	debounceTimer := time.NewTimer(0)
	if !debounceTimer.Stop() {
		<-debounceTimer.C
	}
	reloadPending := false
	schedule := func() {
		if !debounceTimer.Stop() {
			select {
			case <-debounceTimer.C:
			default:
			}
		}
		debounceTimer.Reset(s.debounce)
		reloadPending = true
	}

	s.logger.Info("config watcher starting",
		"path", s.path,
		"polling", eventCh == nil,
	)
	close(s.ready)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("config watcher stopping")
			return

		case ev, ok := <-eventCh:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) == s.path && (ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				schedule()
			}

		case err, ok := <-errCh:
			if !ok {
				return
			}
			s.logger.Error("fsnotify error", "error", err)

		case <-pollCh:
			if cur := statFile(s.path); !cur.same(last) {
				last = cur
				schedule()
			}

		case <-debounceTimer.C:
			if !reloadPending {
				continue
			}
			reloadPending = false
			if err := s.reload(ctx); err != nil {
				s.logger.Warn("config reload rejected, keeping current settings", "error", err)
				continue
			}
			s.logger.Info("config reloaded", "path", s.path)
		}
	}
}

// openWatcher returns a watcher on dir, or nil when events cannot be relied on.
func (s *Service) openWatcher(dir string) *fsnotify.Watcher {
	if !ProbeFSNotify(dir, s.probeTimeout) {
		s.logger.Warn("fsnotify events not delivered, polling config file", "dir", dir)
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		s.logger.Warn("fsnotify unavailable, polling config file", "error", err)
		return nil
	}
	if err := w.Add(dir); err != nil {
		w.Close() //nolint:errcheck
		s.logger.Warn("cannot watch config dir, polling config file", "dir", dir, "error", err)
		return nil
	}
	return w
}

type fileStamp struct {
	exists  bool
	size    int64
	modTime time.Time
}

func (f fileStamp) same(o fileStamp) bool {
	return f.exists == o.exists && f.size == o.size && f.modTime.Equal(o.modTime)
}

func statFile(path string) fileStamp {
	info, err := os.Stat(path)
	if err != nil {
		return fileStamp{}
	}
	return fileStamp{exists: true, size: info.Size(), modTime: info.ModTime()}
}
