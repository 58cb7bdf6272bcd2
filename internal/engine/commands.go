package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lazypower/nudge/internal/store"
)

const (
	replyUnknown = "🤔 I didn't understand that. Try:\n• *done [task]*\n• *snooze [task]*\n• *list*\n• *help*"
	replyEmpty   = "✅ No pending tasks!"
	replyFailed  = "⚠️ Something went wrong. Please try again in a bit."
)

// HandleCommand interprets one inbound reply and returns the text to send
// back. It never fails; problems are logged and turned into a reply.
func (e *Engine) HandleCommand(ctx context.Context, text string) string {
	body := strings.TrimSpace(text)
	cmd := strings.ToLower(body)

	switch {
	case cmd == "help":
		return e.helpText()
	case cmd == "list":
		return e.listText()
	case strings.HasPrefix(cmd, "done "):
		return e.doneCommand(strings.TrimSpace(body[len("done "):]))
	case strings.HasPrefix(cmd, "snooze "):
		return e.snoozeCommand(ctx, strings.TrimSpace(body[len("snooze "):]))
	default:
		return replyUnknown
	}
}

func (e *Engine) helpText() string {
	return fmt.Sprintf("🧠 *Memory Bot Commands*\n\n"+
		"• *done [task]* — mark a task as done\n"+
		"• *snooze [task]* — skip reminder for today, re-remind in %dh\n"+
		"• *list* — show top %d tasks by urgency\n"+
		"• *help* — show this menu", e.policy.SnoozeHours, e.policy.ListLimit)
}

func (e *Engine) listText() string {
	undone, err := e.Store.GetUndone()
	if err != nil {
		e.obs.Log().Error().Err(err).Msg("list command")
		return replyFailed
	}
	if len(undone) == 0 {
		return replyEmpty
	}
	if limit := e.policy.ListLimit; limit > 0 && len(undone) > limit {
		undone = undone[:limit]
	}

	lines := make([]string, 0, len(undone))
	for i, it := range undone {
		due := ""
		if it.DueDate != "" {
			due = " · Due " + it.DueDate
		}
		lines = append(lines, fmt.Sprintf("%d. %s%s (%s/10)", i+1, it.Title, due, formatUrgency(it.Urgency)))
	}
	return "📋 *Your Tasks*\n\n" + strings.Join(lines, "\n")
}

// match resolves a query against undone items in urgency order.
func (e *Engine) match(query string) (*store.Item, error) {
	undone, err := e.Store.GetUndone()
	if err != nil {
		return nil, err
	}
	return FuzzyMatch(query, undone), nil
}

func notFound(query string) string {
	return fmt.Sprintf("❓ Couldn't find a task matching \"%s\". Try *list* to see tasks.", query)
}

func (e *Engine) doneCommand(query string) string {
	it, err := e.match(query)
	if err != nil {
		e.obs.Log().Error().Err(err).Msg("done command")
		return replyFailed
	}
	if it == nil {
		return notFound(query)
	}
	if err := e.Store.MarkDone(it.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound(query)
		}
		e.obs.Log().Error().Str("id", it.ID).Err(err).Msg("mark done")
		return replyFailed
	}
	e.obs.Log().Info().Str("id", it.ID).Str("title", it.Title).Msg("marked done by reply")
	return fmt.Sprintf("✅ Marked as done: *%s*", it.Title)
}

func (e *Engine) snoozeCommand(ctx context.Context, query string) string {
	it, err := e.match(query)
	if err != nil {
		e.obs.Log().Error().Err(err).Msg("snooze command")
		return replyFailed
	}
	if it == nil {
		return notFound(query)
	}
	if err := e.Snoozer.Snooze(ctx, *it); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound(query)
		}
		e.obs.Log().Error().Str("id", it.ID).Err(err).Msg("snooze")
		return replyFailed
	}
	return fmt.Sprintf("⏰ Snoozed *%s* for %d hours.", it.Title, e.policy.SnoozeHours)
}
