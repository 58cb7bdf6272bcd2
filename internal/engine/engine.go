package engine

import (
	"context"
	"errors"
	"time"

	"github.com/lazypower/nudge/internal/config"
	"github.com/lazypower/nudge/internal/llm"
	"github.com/lazypower/nudge/internal/notify"
	"github.com/lazypower/nudge/internal/observe"
	"github.com/lazypower/nudge/internal/store"
)

// Store is the item and marker persistence the engine depends on.
// *store.DB implements it.
type Store interface {
	Upsert(it *store.Item) error
	Delete(id string) error
	GetAll() ([]store.Item, error)
	GetUndone() ([]store.Item, error)
	MarkDone(id string) error
	SetUrgency(id string, urgency float64) error

	HasSent(id, dayKey string) (bool, error)
	RecordSent(id, dayKey string) error
	RecordSentBatch(ids []string, dayKey string) error
	RecordSnooze(id, dayKey string, until time.Time) error
	ClearSnooze(id, dayKey string) error
	ClearElapsedSnoozes(now time.Time) (int, error)
	PendingSnoozes() ([]store.Snooze, error)
}

// Engine scores items, decides which deserve a reminder, delivers them and
// interprets replies.
type Engine struct {
	Store   Store
	LLM     llm.Client
	Sender  notify.Sender
	Snoozer *Snoozer

	policy config.ReminderConfig
	loc    *time.Location
	obs    *observe.Observer
	now    func() time.Time
}

// New creates a new Engine. The reminder policy and timezone are taken from
// cfg once; later changes to cfg are not observed.
func New(st Store, client llm.Client, sender notify.Sender, cfg config.Config, obs *observe.Observer) *Engine {
	if obs == nil {
		obs = observe.Discard()
	}
	e := &Engine{
		Store:  st,
		LLM:    client,
		Sender: sender,
		policy: cfg.Reminders,
		loc:    cfg.Location(),
		obs:    obs,
		now:    time.Now,
	}
	e.Snoozer = newSnoozer(e, cfg.SnoozeDuration())
	return e
}

// SetClock replaces the engine's time source.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// Policy returns the reminder policy the engine was built with.
func (e *Engine) Policy() config.ReminderConfig {
	return e.policy
}

// localNow is the current time in the configured timezone.
func (e *Engine) localNow() time.Time {
	return e.now().In(e.loc)
}

// DayKey is today's local calendar date, the unit of reminder dedup.
func (e *Engine) DayKey() string {
	return e.localNow().Format(store.DateLayout)
}

var errNoResponse = errors.New("oracle returned no response")

// complete asks the oracle and returns its text. A nil response counts as a
// failed call.
func (e *Engine) complete(ctx context.Context, req llm.Request) (string, error) {
	resp, err := e.LLM.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", errNoResponse
	}
	return resp.Content, nil
}
