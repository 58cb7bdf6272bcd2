package engine

import (
	"context"
	"fmt"

	"github.com/lazypower/nudge/internal/llm"
	"github.com/lazypower/nudge/internal/store"
)

const scoreMaxTokens = 500

// ScoreUrgency asks the oracle for a 0-10 urgency per item and persists the
// clamped result. Entries with a non-string id, a non-numeric urgency or an
// id outside the batch are dropped one by one. Returns how many scores were
// stored.
func (e *Engine) ScoreUrgency(ctx context.Context, items []store.Item) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	ctx, span := e.obs.StartSpan(ctx, "engine.score_urgency")
	defer span.End()

	inputs := make([]llm.ScoreInput, 0, len(items))
	batch := make(map[string]bool, len(items))
	for _, it := range items {
		inputs = append(inputs, llm.ScoreInput{
			ID:      it.ID,
			Type:    it.Type,
			Title:   it.Title,
			Detail:  it.Detail,
			DueDate: optionalDate(it.DueDate),
			Done:    it.Done,
		})
		batch[it.ID] = true
	}

	content, err := e.complete(ctx, llm.Request{
		Prompt:    llm.UrgencyPrompt(e.DayKey(), inputs),
		MaxTokens: scoreMaxTokens,
	})
	if err != nil {
		return 0, fmt.Errorf("score urgency: %w", err)
	}

	var entries []any
	if err := llm.ParseJSON(content, &entries); err != nil {
		return 0, fmt.Errorf("score urgency: %w", err)
	}

	stored := 0
	for _, entry := range entries {
		obj, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		id, ok := obj["id"].(string)
		if !ok || !batch[id] {
			continue
		}
		urgency, ok := obj["urgency"].(float64)
		if !ok {
			continue
		}
		if err := e.Store.SetUrgency(id, store.ClampUrgency(urgency)); err != nil {
			e.obs.Log().Warn().Str("id", id).Err(err).Msg("store urgency")
			continue
		}
		stored++
	}

	e.obs.Log().Debug().Int("items", len(items)).Int("scored", stored).Msg("urgency scored")
	return stored, nil
}

// ScoreAll rescores every undone item.
func (e *Engine) ScoreAll(ctx context.Context) (int, error) {
	undone, err := e.Store.GetUndone()
	if err != nil {
		return 0, fmt.Errorf("get undone: %w", err)
	}
	return e.ScoreUrgency(ctx, undone)
}

func optionalDate(d string) *string {
	if d == "" {
		return nil
	}
	return &d
}
