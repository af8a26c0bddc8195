// Package retention deletes artifacts after download, after a maximum age, and
// at shutdown. The three paths share nothing but the directory; every delete is
// delete-if-exists, so they may race freely.
package retention

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Deletion reasons passed to the OnDelete hook.
const (
	ReasonDownloaded = "downloaded"
	ReasonExpired    = "expired"
	ReasonShutdown   = "shutdown"
)

// Store is the subset of the artifact store the sweeper needs.
type Store interface {
	DeleteIfExists(name string) (bool, error)
	DeleteOlderThan(maxAge time.Duration, now time.Time) []string
	Purge() []string
}

// Options configures the sweeper timings.
type Options struct {
	Interval      time.Duration
	MaxAge        time.Duration
	DownloadDelay time.Duration
	// OnDelete is called once per artifact actually removed.
	OnDelete func(name, reason string)
}

type Sweeper struct {
	store  Store
	opts   Options
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	pending map[*time.Timer]struct{}
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func New(store Store, opts Options, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		store:   store,
		opts:    opts,
		logger:  logger,
		now:     time.Now,
		pending: make(map[*time.Timer]struct{}),
	}
}

// Start runs the periodic sweep until ctx is done or Shutdown is called. A
// non-positive interval or max age disables the periodic sweep.
func (s *Sweeper) Start(ctx context.Context) {
	if s.opts.Interval <= 0 || s.opts.MaxAge <= 0 {
		s.logger.Warn("periodic sweep disabled", "interval", s.opts.Interval, "max_age", s.opts.MaxAge)
		return
	}

	s.mu.Lock()
	if s.cancel != nil || s.stopped {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	ticker := time.NewTicker(s.opts.Interval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sweep()
			}
		}
	}()
	s.logger.Info("sweeper started", "interval", s.opts.Interval, "max_age", s.opts.MaxAge)
}

// Sweep deletes every artifact older than the configured max age.
func (s *Sweeper) Sweep() []string {
	removed := s.store.DeleteOlderThan(s.opts.MaxAge, s.now())
	for _, name := range removed {
		s.logger.Info("deleted old file", "file", name)
		s.notify(name, ReasonExpired)
	}
	return removed
}

// ScheduleDelete removes name once the download delay has elapsed.
func (s *Sweeper) ScheduleDelete(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}

	var timer *time.Timer
	timer = time.AfterFunc(s.opts.DownloadDelay, func() {
		s.mu.Lock()
		delete(s.pending, timer)
		s.mu.Unlock()
		s.deleteDownloaded(name)
	})
	s.pending[timer] = struct{}{}
}

// Pending reports the number of scheduled post-download deletes.
func (s *Sweeper) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Shutdown stops the periodic sweep and pending timers, then deletes every
// artifact before returning.
func (s *Sweeper) Shutdown() []string {
	s.mu.Lock()
	s.stopped = true
	cancel, done := s.cancel, s.done
	for timer := range s.pending {
		timer.Stop()
		delete(s.pending, timer)
	}
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	removed := s.store.Purge()
	for _, name := range removed {
		s.notify(name, ReasonShutdown)
	}
	s.logger.Info("temporary files deleted", "count", len(removed))
	return removed
}

func (s *Sweeper) deleteDownloaded(name string) {
	removed, err := s.store.DeleteIfExists(name)
	if err != nil {
		s.logger.Error("file deletion error", "file", name, "error", err)
		return
	}
	if removed {
		s.logger.Info("file deleted", "file", name)
		s.notify(name, ReasonDownloaded)
	}
}

func (s *Sweeper) notify(name, reason string) {
	if s.opts.OnDelete != nil {
		s.opts.OnDelete(name, reason)
	}
}
