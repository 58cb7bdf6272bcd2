package llm

import (
	"encoding/json"
	"fmt"
)

// ScoreInput is one item as the urgency rubric sees it.
type ScoreInput struct {
	ID      string  `json:"id"`
	Type    string  `json:"type"`
	Title   string  `json:"title"`
	Detail  string  `json:"detail"`
	DueDate *string `json:"dueDate"`
	Done    bool    `json:"done"`
}

// Candidate is one reminder candidate as the selector sees it.
type Candidate struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Detail  string  `json:"detail"`
	DueDate *string `json:"dueDate"`
	Urgency float64 `json:"urgency"`
}

// SelectionPolicy carries the tunables quoted to the oracle.
type SelectionPolicy struct {
	MaxPerRun       int
	QuietStart      int
	QuietEnd        int
	CriticalUrgency float64
}

// UrgencyPrompt asks for a 0-10 urgency per item, anchored to today.
func UrgencyPrompt(today string, items []ScoreInput) string {
	return fmt.Sprintf(`Today is %s.
Score each memory's urgency from 0 to 10:
- 10 = due today or overdue
- 8-9 = due within 2 days
- 6-7 = due within a week
- 4-5 = due within 2 weeks, OR title has "urgent/pay/submit/call/deadline"
- 2-3 = vague notes, events far away
- 0-1 = person info, done items, non-actionable notes

Memories (JSON):
%s

Respond ONLY with a JSON array: [{"id":"...","urgency":8.5}, ...]
No markdown, no explanation.`, today, indentJSON(items))
}

// SelectionPrompt asks which candidates deserve a reminder right now.
func SelectionPrompt(hour int, today string, policy SelectionPolicy, candidates []Candidate) string {
	return fmt.Sprintf(`Current time: %d:00, date: %s.
You are a smart reminder system. Select which tasks to send WhatsApp reminders for RIGHT NOW.

Rules:
- Max %d reminders per run
- Prefer tasks due today or tomorrow
- Do NOT send reminders before %s or after %s UNLESS urgency >= %g
- Silence is better than spam; only send if genuinely useful
- If no tasks are urgent enough, return empty array

Candidate tasks (JSON):
%s

Respond ONLY with a JSON array of IDs to remind about: ["id1","id2"]
No markdown, no explanation.`, hour, today, policy.MaxPerRun,
		clockLabel(policy.QuietStart), clockLabel(policy.QuietEnd), policy.CriticalUrgency,
		indentJSON(candidates))
}

func clockLabel(hour int) string {
	switch {
	case hour == 0:
		return "12am"
	case hour < 12:
		return fmt.Sprintf("%dam", hour)
	case hour == 12:
		return "12pm"
	default:
		return fmt.Sprintf("%dpm", hour-12)
	}
}

func indentJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(b)
}
