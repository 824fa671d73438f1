package library

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Syncer periodically refreshes the library mirror in the background. It can
// be paused from the tray without stopping the agent.
type Syncer struct {
	service  *Service
	interval time.Duration
	logger   *slog.Logger
	running  atomic.Bool
	paused   atomic.Bool

	// OnSync, when set before Start, is called after each successful sync
	// with the number of mirrored records.
	OnSync func(count int)
}

func NewSyncer(service *Service, interval time.Duration, logger *slog.Logger) *Syncer {
	return &Syncer{
		service:  service,
		interval: interval,
		logger:   logger,
	}
}

func (s *Syncer) Start(ctx context.Context) {
	if s.running.Swap(true) {
		return
	}

	s.logger.Info("library syncer started", "interval", s.interval)

	// Populate the mirror right away; later failures are retried each tick.
	if records, err := s.service.Sync(ctx); err != nil {
		s.logger.Warn("initial library sync failed", "error", err)
	} else if s.OnSync != nil {
		s.OnSync(len(records))
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("library syncer stopping")
			s.running.Store(false)
			return
		case <-ticker.C:
			if s.paused.Load() {
				continue
			}
			if records, err := s.service.Sync(ctx); err != nil {
				s.logger.Warn("library sync failed", "error", err)
			} else if s.OnSync != nil {
				s.OnSync(len(records))
			}
		}
	}
}

func (s *Syncer) Pause() {
	s.paused.Store(true)
	s.logger.Info("library syncer paused")
}

func (s *Syncer) Resume() {
	s.paused.Store(false)
	s.logger.Info("library syncer resumed")
}

func (s *Syncer) IsPaused() bool {
	return s.paused.Load()
}

func (s *Syncer) IsRunning() bool {
	return s.running.Load()
}
