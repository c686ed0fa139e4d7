package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSweepSchedule runs the session sweep every ten minutes.
const DefaultSweepSchedule = "@every 10m"

// SessionSweeper periodically removes expired sessions
type SessionSweeper struct {
	auth   *AuthService
	cron   *cron.Cron
	logger *slog.Logger
}

// NewSessionSweeper creates a new session sweeper
func NewSessionSweeper(auth *AuthService, logger *slog.Logger) *SessionSweeper {
	return &SessionSweeper{
		auth:   auth,
		cron:   cron.New(),
		logger: logger,
	}
}

// Start schedules the sweep. Both standard five-field specs and
// descriptors such as "@every 10m" are accepted.
func (s *SessionSweeper) Start(schedule string) error {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}

	if _, err := s.cron.AddFunc(schedule, s.sweep); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("session sweeper started", "schedule", schedule)
	return nil
}

// Stop stops the sweeper and waits for a running sweep to finish.
func (s *SessionSweeper) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("session sweeper stopped")
}

func (s *SessionSweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	removed, err := s.auth.PurgeExpiredSessions(ctx)
	if err != nil {
		s.logger.Error("session sweep failed", "error", err)
		return
	}
	if removed > 0 {
		s.logger.Info("expired sessions removed", "count", removed)
	}
}
