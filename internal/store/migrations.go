package store

import (
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "memories: tracked tasks, notes, events and people",
		SQL: `
CREATE TABLE memories (
    id          TEXT PRIMARY KEY,
    type        TEXT NOT NULL DEFAULT 'note' CHECK (type IN ('task', 'note', 'event', 'person')),
    title       TEXT NOT NULL CHECK (title <> ''),
    detail      TEXT NOT NULL DEFAULT '',
    tags        TEXT NOT NULL DEFAULT '[]',
    done        INTEGER NOT NULL DEFAULT 0,
    due_date    TEXT,
    urgency     REAL NOT NULL DEFAULT 0 CHECK (urgency >= 0 AND urgency <= 10),
    created_at  INTEGER NOT NULL,
    updated_at  INTEGER NOT NULL
);

CREATE INDEX idx_memories_undone ON memories(done, urgency DESC);
`,
	},
	{
		Version:     2,
		Description: "reminders_sent: per-day notification markers",
		SQL: `
CREATE TABLE reminders_sent (
    id          INTEGER PRIMARY KEY,
    memory_id   TEXT NOT NULL,
    day_key     TEXT NOT NULL,
    sent_at     INTEGER NOT NULL,
    reason      TEXT NOT NULL DEFAULT 'sent' CHECK (reason IN ('sent', 'snooze')),
    UNIQUE (memory_id, day_key),
    FOREIGN KEY (memory_id) REFERENCES memories(id) ON DELETE CASCADE
);

CREATE INDEX idx_sent_day ON reminders_sent(day_key);
`,
	},
	{
		Version:     3,
		Description: "reminders_sent: persist snooze expiry so snoozes survive restarts",
		SQL: `
ALTER TABLE reminders_sent ADD COLUMN snoozed_until INTEGER;

CREATE INDEX idx_sent_snoozed ON reminders_sent(snoozed_until) WHERE snoozed_until IS NOT NULL;
`,
	},
}

func (db *DB) migrate() error {
	// Create schema_versions table if it doesn't exist
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_versions WHERE version = ?", m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}
