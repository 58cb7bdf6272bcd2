package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// DateLayout is the calendar-date format used for due dates and day keys.
const DateLayout = "2006-01-02"

// Item is a tracked memory: a task, note, event or person.
type Item struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Detail    string    `json:"detail"`
	Tags      []string  `json:"tags"`
	Done      bool      `json:"done"`
	DueDate   string    `json:"dueDate,omitempty"` // YYYY-MM-DD, no time component
	Urgency   float64   `json:"urgency"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ValidTypes are the allowed item types. The type only affects display.
var ValidTypes = map[string]bool{
	"task":   true,
	"note":   true,
	"event":  true,
	"person": true,
}

// ClampUrgency forces an urgency value into [0,10].
func ClampUrgency(u float64) float64 {
	if u != u { // NaN
		return 0
	}
	if u < 0 {
		return 0
	}
	if u > 10 {
		return 10
	}
	return u
}

// Validate checks the fields a writer must supply and normalizes the rest.
func (it *Item) Validate() error {
	it.ID = strings.TrimSpace(it.ID)
	it.Title = strings.TrimSpace(it.Title)
	if it.ID == "" {
		return fmt.Errorf("id required")
	}
	if it.Title == "" {
		return fmt.Errorf("title required")
	}
	if it.Type == "" {
		it.Type = "note"
	}
	if !ValidTypes[it.Type] {
		return fmt.Errorf("invalid type %q", it.Type)
	}
	if it.DueDate != "" {
		if _, err := time.Parse(DateLayout, it.DueDate); err != nil {
			return fmt.Errorf("invalid dueDate %q: want YYYY-MM-DD", it.DueDate)
		}
	}
	it.Urgency = ClampUrgency(it.Urgency)
	it.Tags = normalizeTags(it.Tags)
	return nil
}

// normalizeTags dedupes and sorts tags; a tag set has no order.
func normalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Upsert inserts an item or overwrites the mutable fields of an existing one.
// created_at is preserved on update.
func (db *DB) Upsert(it *Item) error {
	if err := it.Validate(); err != nil {
		return err
	}

	now := time.Now()
	if it.CreatedAt.IsZero() {
		it.CreatedAt = now
	}
	it.UpdatedAt = now

	tags, err := json.Marshal(it.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO memories (id, type, title, detail, tags, done, due_date, urgency, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, NULLIF(?, ''), ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			type       = excluded.type,
			title      = excluded.title,
			detail     = excluded.detail,
			tags       = excluded.tags,
			done       = excluded.done,
			due_date   = excluded.due_date,
			urgency    = excluded.urgency,
			updated_at = excluded.updated_at
	`, it.ID, it.Type, it.Title, it.Detail, string(tags), boolInt(it.Done), it.DueDate,
		it.Urgency, it.CreatedAt.UnixMilli(), it.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("upsert item: %w", err)
	}
	return nil
}

// Delete removes an item and all its sent markers atomically.
func (db *DB) Delete(id string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM reminders_sent WHERE memory_id = ?`, id); err != nil {
		return fmt.Errorf("delete markers: %w", err)
	}
	res, err := tx.Exec(`DELETE FROM memories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete %s: %w", id, ErrNotFound)
	}
	return tx.Commit()
}

// GetItem returns an item by id, or nil if not found.
func (db *DB) GetItem(id string) (*Item, error) {
	row := db.QueryRow(`SELECT `+itemColumns+` FROM memories WHERE id = ?`, id)
	it, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return it, nil
}

// GetAll returns every item, newest first.
func (db *DB) GetAll() ([]Item, error) {
	return db.queryItems(`SELECT ` + itemColumns + ` FROM memories ORDER BY created_at DESC, id`)
}

// GetUndone returns items not yet done, most urgent first. Ties keep
// creation order so callers that pick "first seen" are deterministic.
func (db *DB) GetUndone() ([]Item, error) {
	return db.queryItems(`SELECT ` + itemColumns + ` FROM memories WHERE done = 0
		ORDER BY urgency DESC, created_at ASC, id ASC`)
}

// MarkDone flags an item as done.
func (db *DB) MarkDone(id string) error {
	res, err := db.Exec(`UPDATE memories SET done = 1, updated_at = ? WHERE id = ?`,
		time.Now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("mark done: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("mark done %s: %w", id, ErrNotFound)
	}
	return nil
}

// SetUrgency stores a clamped urgency score. Unknown ids are a no-op.
func (db *DB) SetUrgency(id string, urgency float64) error {
	_, err := db.Exec(`UPDATE memories SET urgency = ?, updated_at = ? WHERE id = ?`,
		ClampUrgency(urgency), time.Now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("set urgency: %w", err)
	}
	return nil
}

const itemColumns = `id, type, title, detail, tags, done, due_date, urgency, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(s scanner) (*Item, error) {
	var it Item
	var done int
	var tags string
	var dueDate sql.NullString
	var createdAt, updatedAt int64
	if err := s.Scan(&it.ID, &it.Type, &it.Title, &it.Detail, &tags, &done, &dueDate,
		&it.Urgency, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	it.Done = done != 0
	it.DueDate = dueDate.String
	it.CreatedAt = time.UnixMilli(createdAt)
	it.UpdatedAt = time.UnixMilli(updatedAt)
	if err := json.Unmarshal([]byte(tags), &it.Tags); err != nil || it.Tags == nil {
		it.Tags = []string{}
	}
	return &it, nil
}

func (db *DB) queryItems(query string, args ...any) ([]Item, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, *it)
	}
	return items, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
