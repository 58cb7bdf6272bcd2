package engine

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lazypower/nudge/internal/store"
)

var typeGlyphs = map[string]string{
	"task":   "✅",
	"note":   "📝",
	"event":  "📅",
	"person": "👤",
}

// RunResult summarizes one decision and delivery run.
type RunResult struct {
	RunID    string   `json:"runId"`
	Selected []string `json:"selected"`
	Sent     int      `json:"sent"`
}

// RunReminders performs one full run: select, then deliver.
func (e *Engine) RunReminders(ctx context.Context) (RunResult, error) {
	res := RunResult{RunID: uuid.NewString(), Selected: []string{}}

	ctx, span := e.obs.StartSpan(ctx, "engine.run_reminders")
	defer span.End()

	log := e.obs.Log().With().Str("run", res.RunID).Logger()

	ids := e.DecideReminders(ctx)
	if len(ids) == 0 {
		log.Info().Msg("no reminders to send this run")
		return res, nil
	}
	res.Selected = ids

	sent, err := e.SendReminders(ctx, ids)
	res.Sent = sent
	if err != nil {
		log.Error().Err(err).Msg("reminder delivery failed")
		return res, err
	}
	log.Info().Int("selected", len(ids)).Int("sent", sent).Msg("reminders sent")
	return res, nil
}

// SendReminders delivers ids as a single message. Ids are resolved against a
// fresh read of undone items; ids that no longer resolve are dropped. Markers
// are recorded only after the send succeeds.
func (e *Engine) SendReminders(ctx context.Context, ids []string) (int, error) {
	undone, err := e.Store.GetUndone()
	if err != nil {
		return 0, fmt.Errorf("get undone: %w", err)
	}
	byID := make(map[string]store.Item, len(undone))
	for _, it := range undone {
		byID[it.ID] = it
	}

	var items []store.Item
	var resolved []string
	for _, id := range ids {
		it, ok := byID[id]
		if !ok {
			continue
		}
		items = append(items, it)
		resolved = append(resolved, id)
	}
	if len(items) == 0 {
		return 0, nil
	}

	ctx, span := e.obs.StartSpan(ctx, "engine.send_reminders")
	defer span.End()

	day := e.DayKey()
	if err := e.Sender.Send(ctx, FormatReminder(items, day)); err != nil {
		return 0, fmt.Errorf("send reminders: %w", err)
	}
	if err := e.Store.RecordSentBatch(resolved, day); err != nil {
		return len(items), fmt.Errorf("record sent: %w", err)
	}
	return len(items), nil
}

// FormatReminder renders items as one WhatsApp message. today is the local
// day key used for the "Today" label.
func FormatReminder(items []store.Item, today string) string {
	var b strings.Builder
	b.WriteString("🧠 *Memory Reminder*\n\n")
	for _, it := range items {
		glyph, ok := typeGlyphs[it.Type]
		if !ok {
			glyph = "📌"
		}
		fmt.Fprintf(&b, "%s *%s*\n", glyph, it.Title)
		if it.DueDate != "" {
			fmt.Fprintf(&b, "   Due: %s · Urgency: %s/10\n", dueLabel(it.DueDate, today), formatUrgency(it.Urgency))
		} else {
			fmt.Fprintf(&b, "   Urgency: %s/10\n", formatUrgency(it.Urgency))
		}
		if it.Detail != "" {
			fmt.Fprintf(&b, "   %s\n", it.Detail)
		}
		b.WriteString("\n")
	}
	b.WriteString("Reply: *done [task]* · *snooze [task]* · *list* · *help*")
	return b.String()
}

func dueLabel(due, today string) string {
	if due == today {
		return "Today"
	}
	t, err := time.Parse(store.DateLayout, due)
	if err != nil {
		return due
	}
	return t.Format("Jan 2")
}

// formatUrgency prints at most one decimal and drops a trailing ".0".
func formatUrgency(u float64) string {
	return strconv.FormatFloat(math.Round(u*10)/10, 'f', -1, 64)
}
