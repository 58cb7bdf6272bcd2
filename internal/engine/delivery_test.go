package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/lazypower/nudge/internal/llm"
	"github.com/lazypower/nudge/internal/store"
)

func TestFormatReminder(t *testing.T) {
	items := []store.Item{
		{Type: "task", Title: "Pay rent", Detail: "landlord wants cash", DueDate: today, Urgency: 10},
		{Type: "note", Title: "Idea", Urgency: 5},
		{Type: "event", Title: "Dentist", DueDate: "2026-11-03", Urgency: 6.25},
		{Type: "widget", Title: "Odd", Urgency: 4},
	}
	want := "🧠 *Memory Reminder*\n\n" +
		"✅ *Pay rent*\n   Due: Today · Urgency: 10/10\n   landlord wants cash\n\n" +
		"📝 *Idea*\n   Urgency: 5/10\n\n" +
		"📅 *Dentist*\n   Due: Nov 3 · Urgency: 6.3/10\n\n" +
		"📌 *Odd*\n   Urgency: 4/10\n\n" +
		"Reply: *done [task]* · *snooze [task]* · *list* · *help*"

	if got := FormatReminder(items, today); got != want {
		t.Errorf("FormatReminder:\n got %q\nwant %q", got, want)
	}
}

func TestSendRemindersRecordsMarkers(t *testing.T) {
	h := newHarness(t)
	h.add(t, store.Item{ID: "a", Title: "a", Urgency: 8}, store.Item{ID: "b", Title: "b", Urgency: 7})

	n, err := h.engine.SendReminders(context.Background(), []string{"b", "a"})
	if err != nil {
		t.Fatalf("SendReminders: %v", err)
	}
	if n != 2 {
		t.Errorf("sent %d, want 2", n)
	}
	if len(h.sender.Sent()) != 1 {
		t.Errorf("sender got %d messages, want exactly 1", len(h.sender.Sent()))
	}
	for _, id := range []string{"a", "b"} {
		if sent, _ := h.db.HasSent(id, today); !sent {
			t.Errorf("no marker for %s", id)
		}
	}
}

func TestSendRemindersUsesFreshRead(t *testing.T) {
	h := newHarness(t)
	h.add(t, store.Item{ID: "a", Title: "a", Urgency: 8}, store.Item{ID: "b", Title: "b", Urgency: 8})

	// Completed between selection and send.
	h.db.MarkDone("b")

	n, err := h.engine.SendReminders(context.Background(), []string{"a", "b", "ghost"})
	if err != nil || n != 1 {
		t.Fatalf("SendReminders = %d, %v; want 1", n, err)
	}
	if sent, _ := h.db.HasSent("b", today); sent {
		t.Error("marker recorded for an item that was not sent")
	}
}

func TestSendRemindersNothingResolves(t *testing.T) {
	h := newHarness(t)
	n, err := h.engine.SendReminders(context.Background(), []string{"ghost"})
	if err != nil || n != 0 {
		t.Errorf("SendReminders = %d, %v", n, err)
	}
	if len(h.sender.Sent()) != 0 {
		t.Error("message sent with nothing to say")
	}
}

func TestSendFailureRecordsNothing(t *testing.T) {
	h := newHarness(t)
	h.add(t, store.Item{ID: "a", Title: "a", Urgency: 8}, store.Item{ID: "b", Title: "b", Urgency: 8})
	h.sender.Err = errors.New("twilio 500")

	if _, err := h.engine.SendReminders(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatal("expected send error")
	}
	for _, id := range []string{"a", "b"} {
		if sent, _ := h.db.HasSent(id, today); sent {
			t.Errorf("marker recorded for %s after failed send", id)
		}
	}

	// The next run can retry.
	h.sender.Err = nil
	h.llm.Response = llm.Text(`["a","b"]`)
	if got := h.engine.DecideReminders(context.Background()); len(got) != 2 {
		t.Errorf("retry run selected %v, want both", got)
	}
}

func TestRunReminders(t *testing.T) {
	h := newHarness(t)
	h.add(t, store.Item{ID: "a", Title: "Pay rent", Urgency: 9}, store.Item{ID: "b", Title: "Call mom", Urgency: 5})
	h.llm.Response = llm.Text(`["a","b"]`)

	res, err := h.engine.RunReminders(context.Background())
	if err != nil {
		t.Fatalf("RunReminders: %v", err)
	}
	if res.RunID == "" || res.Sent != 2 || len(res.Selected) != 2 {
		t.Errorf("result = %+v", res)
	}

	// Second run the same hour is silent.
	res, err = h.engine.RunReminders(context.Background())
	if err != nil || res.Sent != 0 || len(res.Selected) != 0 {
		t.Errorf("second run = %+v, %v", res, err)
	}
	if len(h.sender.Sent()) != 1 {
		t.Errorf("sender got %d messages, want 1", len(h.sender.Sent()))
	}
}
