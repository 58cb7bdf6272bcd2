package engine

import (
	"context"
	"fmt"

	"github.com/lazypower/nudge/internal/llm"
	"github.com/lazypower/nudge/internal/store"
)

const selectMaxTokens = 200

// DecideReminders picks at most MaxPerRun item ids to remind about right now.
// Any failure yields an empty result: the engine never guesses.
func (e *Engine) DecideReminders(ctx context.Context) []string {
	ids, err := e.decide(ctx)
	if err != nil {
		e.obs.Log().Warn().Err(err).Msg("reminder selection failed")
		return nil
	}
	return ids
}

// Candidates returns undone items at or above the threshold that have no
// marker for today, most urgent first. Elapsed snoozes are lifted first.
func (e *Engine) Candidates() ([]store.Item, error) {
	if _, err := e.Snoozer.ClearElapsed(); err != nil {
		e.obs.Log().Warn().Err(err).Msg("lift elapsed snoozes")
	}

	undone, err := e.Store.GetUndone()
	if err != nil {
		return nil, fmt.Errorf("get undone: %w", err)
	}

	day := e.DayKey()
	var out []store.Item
	for _, it := range undone {
		if it.Urgency < e.policy.Threshold {
			continue
		}
		sent, err := e.Store.HasSent(it.ID, day)
		if err != nil {
			return nil, err
		}
		if sent {
			continue
		}
		out = append(out, it)
	}
	return out, nil
}

func (e *Engine) decide(ctx context.Context) ([]string, error) {
	candidates, err := e.Candidates()
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	ctx, span := e.obs.StartSpan(ctx, "engine.decide_reminders")
	defer span.End()

	now := e.localNow()
	inputs := make([]llm.Candidate, 0, len(candidates))
	byID := make(map[string]store.Item, len(candidates))
	for _, it := range candidates {
		inputs = append(inputs, llm.Candidate{
			ID:      it.ID,
			Title:   it.Title,
			Detail:  it.Detail,
			DueDate: optionalDate(it.DueDate),
			Urgency: it.Urgency,
		})
		byID[it.ID] = it
	}

	policy := llm.SelectionPolicy{
		MaxPerRun:       e.policy.MaxPerRun,
		QuietStart:      e.policy.QuietStart,
		QuietEnd:        e.policy.QuietEnd,
		CriticalUrgency: e.policy.CriticalUrgency,
	}
	content, err := e.complete(ctx, llm.Request{
		Prompt:    llm.SelectionPrompt(now.Hour(), now.Format(store.DateLayout), policy, inputs),
		MaxTokens: selectMaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("select reminders: %w", err)
	}

	var picked []any
	if err := llm.ParseJSON(content, &picked); err != nil {
		return nil, fmt.Errorf("select reminders: %w", err)
	}

	seen := make(map[string]bool, len(picked))
	var valid []string
	for _, v := range picked {
		id, ok := v.(string)
		if !ok || seen[id] {
			continue
		}
		if _, ok := byID[id]; !ok {
			e.obs.Log().Debug().Str("id", id).Msg("dropping id outside candidate set")
			continue
		}
		seen[id] = true
		valid = append(valid, id)
		if len(valid) == e.policy.MaxPerRun {
			break
		}
	}

	// Quiet hours are enforced on the truncated pick, in oracle order.
	if now.Hour() >= e.policy.QuietStart && now.Hour() <= e.policy.QuietEnd {
		return valid, nil
	}
	var ids []string
	for _, id := range valid {
		if byID[id].Urgency >= e.policy.CriticalUrgency {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
