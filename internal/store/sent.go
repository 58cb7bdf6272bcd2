package store

import (
	"fmt"
	"time"
)

// Snooze is a suppression marker that carries its own expiry.
type Snooze struct {
	MemoryID string
	DayKey   string
	Until    time.Time
}

// recordMarker inserts a marker only when the item still exists; the UNIQUE
// (memory_id, day_key) constraint turns a duplicate into a no-op.
const recordMarker = `
	INSERT OR IGNORE INTO reminders_sent (memory_id, day_key, sent_at, reason)
	SELECT ?, ?, ?, 'sent' WHERE EXISTS (SELECT 1 FROM memories WHERE id = ?)`

// HasSent reports whether a marker exists for (id, dayKey).
func (db *DB) HasSent(id, dayKey string) (bool, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM reminders_sent WHERE memory_id = ? AND day_key = ?`,
		id, dayKey).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("has sent: %w", err)
	}
	return n > 0, nil
}

// SentToday returns the set of item ids that carry a marker for dayKey.
func (db *DB) SentToday(dayKey string) (map[string]bool, error) {
	rows, err := db.Query(`SELECT memory_id FROM reminders_sent WHERE day_key = ?`, dayKey)
	if err != nil {
		return nil, fmt.Errorf("sent today: %w", err)
	}
	defer rows.Close()

	sent := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan marker: %w", err)
		}
		sent[id] = true
	}
	return sent, rows.Err()
}

// RecordSent writes a marker for (id, dayKey). Repeats are ignored.
func (db *DB) RecordSent(id, dayKey string) error {
	if _, err := db.Exec(recordMarker, id, dayKey, time.Now().UnixMilli(), id); err != nil {
		return fmt.Errorf("record sent: %w", err)
	}
	return nil
}

// RecordSentBatch writes markers for every id in one transaction.
func (db *DB) RecordSentBatch(ids []string, dayKey string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin record sent: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UnixMilli()
	for _, id := range ids {
		if _, err := tx.Exec(recordMarker, id, dayKey, now, id); err != nil {
			return fmt.Errorf("record sent %s: %w", id, err)
		}
	}
	return tx.Commit()
}

// ClearSnooze removes the marker for (id, dayKey) only while it is still a
// snooze. A delivery marker written after the snooze is left alone.
func (db *DB) ClearSnooze(id, dayKey string) error {
	_, err := db.Exec(`DELETE FROM reminders_sent
		WHERE memory_id = ? AND day_key = ? AND reason = 'snooze'`, id, dayKey)
	if err != nil {
		return fmt.Errorf("clear snooze: %w", err)
	}
	return nil
}

// ClearElapsedSnoozes removes every snooze marker whose expiry is at or
// before now, whichever process recorded it. Returns how many were removed.
func (db *DB) ClearElapsedSnoozes(now time.Time) (int, error) {
	res, err := db.Exec(`DELETE FROM reminders_sent
		WHERE reason = 'snooze' AND snoozed_until IS NOT NULL AND snoozed_until <= ?`, now.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("clear elapsed snoozes: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// RecordSnooze writes (or converts) the marker for (id, dayKey) into a
// snooze that expires at until.
func (db *DB) RecordSnooze(id, dayKey string, until time.Time) error {
	res, err := db.Exec(`
		INSERT INTO reminders_sent (memory_id, day_key, sent_at, reason, snoozed_until)
		SELECT ?, ?, ?, 'snooze', ? WHERE EXISTS (SELECT 1 FROM memories WHERE id = ?)
		ON CONFLICT(memory_id, day_key) DO UPDATE SET
			reason        = 'snooze',
			snoozed_until = excluded.snoozed_until
	`, id, dayKey, time.Now().UnixMilli(), until.UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("record snooze: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("snooze %s: %w", id, ErrNotFound)
	}
	return nil
}

// PendingSnoozes lists every snooze marker still on disk.
func (db *DB) PendingSnoozes() ([]Snooze, error) {
	rows, err := db.Query(`
		SELECT memory_id, day_key, snoozed_until FROM reminders_sent
		WHERE snoozed_until IS NOT NULL ORDER BY snoozed_until
	`)
	if err != nil {
		return nil, fmt.Errorf("pending snoozes: %w", err)
	}
	defer rows.Close()

	var out []Snooze
	for rows.Next() {
		var s Snooze
		var until int64
		if err := rows.Scan(&s.MemoryID, &s.DayKey, &until); err != nil {
			return nil, fmt.Errorf("scan snooze: %w", err)
		}
		s.Until = time.UnixMilli(until)
		out = append(out, s)
	}
	return out, rows.Err()
}

// MarkerDays returns the day keys that carry a marker for id.
func (db *DB) MarkerDays(id string) ([]string, error) {
	rows, err := db.Query(`SELECT day_key FROM reminders_sent WHERE memory_id = ? ORDER BY day_key`, id)
	if err != nil {
		return nil, fmt.Errorf("marker days: %w", err)
	}
	defer rows.Close()

	var days []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan day: %w", err)
		}
		days = append(days, d)
	}
	return days, rows.Err()
}
