package engine

import (
	"testing"
	"time"

	"github.com/lazypower/nudge/internal/config"
	"github.com/lazypower/nudge/internal/llm"
	"github.com/lazypower/nudge/internal/notify"
	"github.com/lazypower/nudge/internal/observe"
	"github.com/lazypower/nudge/internal/store"
)

const today = "2026-10-18"

func kolkata(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}
	return loc
}

func testDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

type harness struct {
	engine *Engine
	db     *store.DB
	llm    *llm.MockClient
	sender *notify.MockSender
}

// newHarness builds an engine on an in-memory store with the clock fixed at
// 14:00 local on 2026-10-18.
func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		db:     testDB(t),
		llm:    &llm.MockClient{Response: llm.Text("[]")},
		sender: &notify.MockSender{},
	}
	h.engine = New(h.db, h.llm, h.sender, config.Default(), observe.Discard())
	h.at(t, 14, 0)
	t.Cleanup(h.engine.Snoozer.Stop)
	return h
}

// at moves the engine clock to hh:mm local on 2026-10-18.
func (h *harness) at(t *testing.T, hour, min int) {
	now := time.Date(2026, 10, 18, hour, min, 0, 0, kolkata(t))
	h.engine.SetClock(func() time.Time { return now })
}

func (h *harness) add(t *testing.T, items ...store.Item) {
	t.Helper()
	for _, it := range items {
		it := it
		if err := h.db.Upsert(&it); err != nil {
			t.Fatalf("Upsert %s: %v", it.ID, err)
		}
	}
}

func (h *harness) urgency(t *testing.T, id string) float64 {
	t.Helper()
	it, err := h.db.GetItem(id)
	if err != nil || it == nil {
		t.Fatalf("GetItem %s: %v, %v", id, it, err)
	}
	return it.Urgency
}

// eventually polls cond until it holds or two seconds pass.
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestDayKeyUsesConfiguredZone(t *testing.T) {
	h := newHarness(t)
	// 20:00 UTC is already 01:30 the next day in Kolkata.
	h.engine.SetClock(func() time.Time { return time.Date(2026, 10, 18, 20, 0, 0, 0, time.UTC) })
	if got := h.engine.DayKey(); got != "2026-10-19" {
		t.Errorf("DayKey = %s, want 2026-10-19", got)
	}
}

func TestNewDefaultsObserver(t *testing.T) {
	e := New(testDB(t), &llm.MockClient{}, &notify.MockSender{}, config.Default(), nil)
	if e.obs == nil || e.Snoozer == nil {
		t.Fatal("New left observer or snoozer nil")
	}
	if e.Policy().MaxPerRun != 3 {
		t.Errorf("MaxPerRun = %d, want 3", e.Policy().MaxPerRun)
	}
}
