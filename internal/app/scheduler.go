package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SessionSweeper deletes sessions whose expiry passed or that were revoked.
type SessionSweeper interface {
	SweepSessions(ctx context.Context, cutoff time.Time) (int64, error)
}

// Scheduler runs the background maintenance tasks.
type Scheduler struct {
	sessions SessionSweeper
	interval time.Duration
	now      func() time.Time
	logger   *zap.Logger
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewScheduler(sessions SessionSweeper, interval time.Duration, logger *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Scheduler{
		sessions: sessions,
		interval: interval,
		now:      time.Now,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start launches the background tasks.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting background scheduler", zap.Duration("interval", s.interval))

	s.wg.Add(1)
	go s.runSessionSweepTask(ctx)
}

// Stop signals the tasks and waits for them to return. Safe to call twice.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info("Stopping background scheduler")
		close(s.stopChan)
	})
	s.wg.Wait()
}

func (s *Scheduler) runSessionSweepTask(ctx context.Context) {
	defer s.wg.Done()

	// first pass right at startup
	s.sweepSessions(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweepSessions(ctx)
		case <-s.stopChan:
			s.logger.Info("Session sweep task stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Session sweep task cancelled")
			return
		}
	}
}

func (s *Scheduler) sweepSessions(ctx context.Context) {
	n, err := s.sessions.SweepSessions(ctx, s.now())
	if err != nil {
		s.logger.Error("Failed to sweep sessions", zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Info("Stale sessions removed", zap.Int64("count", n))
	}
}
