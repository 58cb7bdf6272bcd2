package engine

import (
	"context"
	"testing"
	"time"

	"github.com/lazypower/nudge/internal/llm"
	"github.com/lazypower/nudge/internal/store"
)

func TestNextHour(t *testing.T) {
	loc := kolkata(t)
	tests := []struct {
		now  time.Time
		want time.Time
	}{
		{time.Date(2026, 10, 18, 14, 10, 0, 0, loc), time.Date(2026, 10, 18, 15, 0, 0, 0, loc)},
		{time.Date(2026, 10, 18, 14, 0, 0, 0, loc), time.Date(2026, 10, 18, 15, 0, 0, 0, loc)},
		{time.Date(2026, 10, 18, 23, 45, 0, 0, loc), time.Date(2026, 10, 19, 0, 0, 0, 0, loc)},
		// 08:40 UTC is 14:10 IST; the next tick is 15:00 IST, not 09:00 UTC.
		{time.Date(2026, 10, 18, 8, 40, 0, 0, time.UTC), time.Date(2026, 10, 18, 15, 0, 0, 0, loc)},
	}
	for _, tt := range tests {
		if got := nextHour(tt.now, loc); !got.Equal(tt.want) {
			t.Errorf("nextHour(%v) = %v, want %v", tt.now, got, tt.want)
		}
	}
}

func TestSchedulerRunOnStart(t *testing.T) {
	h := newHarness(t)
	h.add(t, store.Item{ID: "a", Title: "Pay rent", Urgency: 9})
	h.llm.Response = llm.Text(`["a"]`)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewScheduler(h.engine, true).Run(ctx) }()

	eventually(t, "startup run", func() bool { return len(h.sender.Sent()) == 1 })
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
