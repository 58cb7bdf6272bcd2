package engine

import (
	"context"
	"time"
)

// Scheduler runs RunReminders at the top of every local hour.
type Scheduler struct {
	engine     *Engine
	runOnStart bool
}

// NewScheduler creates a scheduler for e. When runOnStart is set, one run
// happens immediately.
func NewScheduler(e *Engine, runOnStart bool) *Scheduler {
	return &Scheduler{engine: e, runOnStart: runOnStart}
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.runOnStart {
		s.tick(ctx)
	}

	timer := time.NewTimer(s.untilNext())
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			s.tick(ctx)
			timer.Reset(s.untilNext())
		case <-ctx.Done():
			return nil
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if _, err := s.engine.RunReminders(ctx); err != nil {
		s.engine.obs.Log().Error().Err(err).Msg("scheduled run")
	}
}

func (s *Scheduler) untilNext() time.Duration {
	now := s.engine.now()
	return nextHour(now, s.engine.loc).Sub(now)
}

// nextHour returns the next local top of the hour after t. Computed on the
// wall clock so zones with half-hour offsets still fire at :00.
func nextHour(t time.Time, loc *time.Location) time.Time {
	l := t.In(loc)
	return time.Date(l.Year(), l.Month(), l.Day(), l.Hour()+1, 0, 0, 0, loc)
}
