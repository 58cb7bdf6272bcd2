package store

import (
	"errors"
	"reflect"
	"testing"
)

func mustUpsert(t *testing.T, db *DB, it Item) {
	t.Helper()
	if err := db.Upsert(&it); err != nil {
		t.Fatalf("Upsert %s: %v", it.ID, err)
	}
}

func TestUpsertAndGet(t *testing.T) {
	db := testDB(t)

	mustUpsert(t, db, Item{
		ID: "m1", Type: "task", Title: "Pay rent", Detail: "cash",
		Tags: []string{"home", "money", "home"}, DueDate: "2026-10-20", Urgency: 7.5,
	})

	it, err := db.GetItem("m1")
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if it == nil {
		t.Fatal("GetItem returned nil")
	}
	if it.Title != "Pay rent" || it.Type != "task" || it.Detail != "cash" {
		t.Errorf("unexpected item: %+v", it)
	}
	if it.DueDate != "2026-10-20" {
		t.Errorf("DueDate = %q", it.DueDate)
	}
	if !reflect.DeepEqual(it.Tags, []string{"home", "money"}) {
		t.Errorf("Tags = %v, want [home money]", it.Tags)
	}
	if it.Urgency != 7.5 {
		t.Errorf("Urgency = %v", it.Urgency)
	}
	if it.CreatedAt.IsZero() || it.UpdatedAt.IsZero() {
		t.Error("timestamps not set")
	}
}

func TestUpsertUpdatesAndKeepsCreatedAt(t *testing.T) {
	db := testDB(t)

	mustUpsert(t, db, Item{ID: "m1", Title: "Call mom"})
	first, _ := db.GetItem("m1")

	mustUpsert(t, db, Item{ID: "m1", Type: "task", Title: "Call mom tonight"})
	second, _ := db.GetItem("m1")

	if second.Title != "Call mom tonight" || second.Type != "task" {
		t.Errorf("update not applied: %+v", second)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("CreatedAt changed: %v -> %v", first.CreatedAt, second.CreatedAt)
	}
}

func TestUpsertClampsUrgency(t *testing.T) {
	db := testDB(t)

	mustUpsert(t, db, Item{ID: "hi", Title: "hi", Urgency: 15})
	mustUpsert(t, db, Item{ID: "lo", Title: "lo", Urgency: -3})

	hi, _ := db.GetItem("hi")
	lo, _ := db.GetItem("lo")
	if hi.Urgency != 10 {
		t.Errorf("hi urgency = %v, want 10", hi.Urgency)
	}
	if lo.Urgency != 0 {
		t.Errorf("lo urgency = %v, want 0", lo.Urgency)
	}
}

func TestUpsertValidation(t *testing.T) {
	db := testDB(t)

	cases := []Item{
		{Title: "no id"},
		{ID: "x"},
		{ID: "x", Title: "bad type", Type: "chore"},
		{ID: "x", Title: "bad date", DueDate: "tomorrow"},
	}
	for _, c := range cases {
		c := c
		if err := db.Upsert(&c); err == nil {
			t.Errorf("Upsert(%+v): expected error", c)
		}
	}
}

func TestUpsertDefaultsTypeToNote(t *testing.T) {
	db := testDB(t)
	mustUpsert(t, db, Item{ID: "m1", Title: "Something"})
	it, _ := db.GetItem("m1")
	if it.Type != "note" {
		t.Errorf("Type = %q, want note", it.Type)
	}
}

func TestGetItemMissing(t *testing.T) {
	db := testDB(t)
	it, err := db.GetItem("nope")
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if it != nil {
		t.Errorf("expected nil, got %+v", it)
	}
}

func TestGetUndoneOrdering(t *testing.T) {
	db := testDB(t)

	mustUpsert(t, db, Item{ID: "a", Title: "a", Urgency: 3})
	mustUpsert(t, db, Item{ID: "b", Title: "b", Urgency: 9})
	mustUpsert(t, db, Item{ID: "c", Title: "c", Urgency: 6, Done: true})
	mustUpsert(t, db, Item{ID: "d", Title: "d", Urgency: 9})

	undone, err := db.GetUndone()
	if err != nil {
		t.Fatalf("GetUndone: %v", err)
	}
	var ids []string
	for _, it := range undone {
		ids = append(ids, it.ID)
	}
	want := []string{"b", "d", "a"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("GetUndone order = %v, want %v", ids, want)
	}
}

func TestGetAll(t *testing.T) {
	db := testDB(t)
	mustUpsert(t, db, Item{ID: "a", Title: "a"})
	mustUpsert(t, db, Item{ID: "b", Title: "b", Done: true})

	all, err := db.GetAll()
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("GetAll returned %d items, want 2", len(all))
	}
}

func TestMarkDone(t *testing.T) {
	db := testDB(t)
	mustUpsert(t, db, Item{ID: "m1", Title: "Laundry"})

	if err := db.MarkDone("m1"); err != nil {
		t.Fatalf("MarkDone: %v", err)
	}
	undone, _ := db.GetUndone()
	if len(undone) != 0 {
		t.Errorf("expected no undone items, got %d", len(undone))
	}

	if err := db.MarkDone("ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("MarkDone(ghost) = %v, want ErrNotFound", err)
	}
}

func TestSetUrgencyClamps(t *testing.T) {
	db := testDB(t)
	mustUpsert(t, db, Item{ID: "m1", Title: "x"})

	tests := []struct {
		in, want float64
	}{
		{15, 10},
		{-3, 0},
		{6.5, 6.5},
	}
	for _, tt := range tests {
		if err := db.SetUrgency("m1", tt.in); err != nil {
			t.Fatalf("SetUrgency(%v): %v", tt.in, err)
		}
		it, _ := db.GetItem("m1")
		if it.Urgency != tt.want {
			t.Errorf("SetUrgency(%v) stored %v, want %v", tt.in, it.Urgency, tt.want)
		}
	}

	if err := db.SetUrgency("ghost", 5); err != nil {
		t.Errorf("SetUrgency(ghost) = %v, want nil", err)
	}
}

func TestDeleteCascadesMarkers(t *testing.T) {
	db := testDB(t)
	mustUpsert(t, db, Item{ID: "m1", Title: "Pay rent"})

	for _, day := range []string{"2026-10-17", "2026-10-18"} {
		if err := db.RecordSent("m1", day); err != nil {
			t.Fatalf("RecordSent: %v", err)
		}
	}

	if err := db.Delete("m1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	// Re-create with the same id: notification history starts clean.
	mustUpsert(t, db, Item{ID: "m1", Title: "Pay rent"})
	days, err := db.MarkerDays("m1")
	if err != nil {
		t.Fatalf("MarkerDays: %v", err)
	}
	if len(days) != 0 {
		t.Errorf("expected no markers after delete, got %v", days)
	}
}

func TestDeleteUnknown(t *testing.T) {
	db := testDB(t)
	if err := db.Delete("ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete(ghost) = %v, want ErrNotFound", err)
	}
}

func TestClampUrgency(t *testing.T) {
	tests := []struct{ in, want float64 }{
		{-1, 0}, {0, 0}, {4.2, 4.2}, {10, 10}, {10.01, 10},
	}
	for _, tt := range tests {
		if got := ClampUrgency(tt.in); got != tt.want {
			t.Errorf("ClampUrgency(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
