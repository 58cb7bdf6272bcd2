package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lazypower/nudge/internal/store"
)

// Snoozer suppresses an item for today and re-enables it after a window.
// The persisted expiry is authoritative: timers lift snoozes promptly in the
// process that armed them, and ClearElapsed lifts the ones whose timer died
// with another process.
type Snoozer struct {
	engine *Engine
	window time.Duration

	mu     sync.Mutex
	timers map[string]*snoozeTimer
}

type snoozeTimer struct {
	timer *time.Timer
}

func newSnoozer(e *Engine, window time.Duration) *Snoozer {
	return &Snoozer{
		engine: e,
		window: window,
		timers: make(map[string]*snoozeTimer),
	}
}

// Snooze marks item as handled for today and schedules the marker's removal.
// Snoozing again before the timer fires restarts the window.
func (s *Snoozer) Snooze(ctx context.Context, item store.Item) error {
	now := s.engine.now()
	day := s.engine.DayKey()
	until := now.Add(s.window)

	if err := s.engine.Store.RecordSnooze(item.ID, day, until); err != nil {
		return fmt.Errorf("snooze %s: %w", item.ID, err)
	}
	s.arm(item.ID, day, s.window)

	s.engine.obs.Log().Info().Str("id", item.ID).Str("title", item.Title).
		Str("until", until.Format(time.RFC3339)).Msg("snoozed")
	return nil
}

// ClearElapsed removes every persisted snooze whose window has passed,
// including snoozes recorded by processes that have since exited.
func (s *Snoozer) ClearElapsed() (int, error) {
	n, err := s.engine.Store.ClearElapsedSnoozes(s.engine.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.engine.obs.Log().Info().Int("cleared", n).Msg("elapsed snoozes lifted")
	}
	return n, nil
}

// Restore re-arms snoozes recorded by an earlier process. Elapsed snoozes
// are cleared immediately. Returns the number of timers re-armed.
func (s *Snoozer) Restore(ctx context.Context) (int, error) {
	if _, err := s.ClearElapsed(); err != nil {
		return 0, fmt.Errorf("restore snoozes: %w", err)
	}
	pending, err := s.engine.Store.PendingSnoozes()
	if err != nil {
		return 0, fmt.Errorf("restore snoozes: %w", err)
	}

	now := s.engine.now()
	armed := 0
	for _, p := range pending {
		if !p.Until.After(now) {
			continue
		}
		s.arm(p.MemoryID, p.DayKey, p.Until.Sub(now))
		armed++
	}
	if armed > 0 {
		s.engine.obs.Log().Info().Int("rearmed", armed).Msg("snoozes restored")
	}
	return armed, nil
}

// Pending returns the number of armed timers.
func (s *Snoozer) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop cancels every armed timer. Persisted snoozes are left for Restore.
func (s *Snoozer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, st := range s.timers {
		st.timer.Stop()
		delete(s.timers, key)
	}
}

func (s *Snoozer) arm(id, day string, d time.Duration) {
	key := id + "|" + day
	st := &snoozeTimer{}

	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.timers[key]; ok {
		prev.timer.Stop()
	}
	st.timer = time.AfterFunc(d, func() { s.fire(st, key, id, day) })
	s.timers[key] = st
}

// fire clears the snooze for the original day key, even if the day has
// rolled over since. A superseded timer does nothing, and a delivery marker
// that replaced the snooze is kept.
func (s *Snoozer) fire(st *snoozeTimer, key, id, day string) {
	s.mu.Lock()
	if s.timers[key] != st {
		s.mu.Unlock()
		return
	}
	delete(s.timers, key)
	s.mu.Unlock()

	if err := s.engine.Store.ClearSnooze(id, day); err != nil {
		s.engine.obs.Log().Warn().Str("id", id).Err(err).Msg("snooze expiry")
		return
	}
	s.engine.obs.Log().Info().Str("id", id).Str("day", day).Msg("snooze expired, reminders re-enabled")
}
