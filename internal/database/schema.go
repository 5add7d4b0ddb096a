package database

import "database/sql"

// Timestamps are unix seconds.
var migrations = []migration{
	{
		version: 1,
		up: []string{
			`CREATE TABLE IF NOT EXISTS schema_version (
				version INTEGER PRIMARY KEY,
				applied_at INTEGER NOT NULL DEFAULT (strftime('%s','now'))
			)`,
			`CREATE TABLE IF NOT EXISTS links (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				source_path TEXT NOT NULL UNIQUE,
				link_path TEXT NOT NULL,
				kind TEXT NOT NULL,
				title TEXT NOT NULL,
				year INTEGER NOT NULL DEFAULT 0,
				external_id TEXT NOT NULL DEFAULT '',
				verified INTEGER NOT NULL DEFAULT 0,
				created_at INTEGER NOT NULL,
				updated_at INTEGER NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_links_link_path ON links(link_path)`,
			`CREATE INDEX IF NOT EXISTS idx_links_external_id ON links(external_id)`,
			`INSERT INTO schema_version (version) VALUES (1)`,
		},
	},
	{
		version: 2,
		up: []string{
			`CREATE TABLE IF NOT EXISTS skipped_items (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				path TEXT NOT NULL UNIQUE,
				kind TEXT NOT NULL DEFAULT '',
				reason TEXT NOT NULL,
				detail TEXT NOT NULL DEFAULT '',
				attempts INTEGER NOT NULL DEFAULT 1,
				created_at INTEGER NOT NULL,
				updated_at INTEGER NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_skipped_items_reason ON skipped_items(reason)`,
			`INSERT INTO schema_version (version) VALUES (2)`,
		},
	},
	{
		version: 3,
		up: []string{
			`CREATE TABLE IF NOT EXISTS runs (
				id TEXT PRIMARY KEY,
				mode TEXT NOT NULL,
				dry_run INTEGER NOT NULL DEFAULT 0,
				started_at INTEGER NOT NULL,
				finished_at INTEGER NOT NULL,
				created INTEGER NOT NULL DEFAULT 0,
				updated INTEGER NOT NULL DEFAULT 0,
				unchanged INTEGER NOT NULL DEFAULT 0,
				unverified INTEGER NOT NULL DEFAULT 0,
				skipped INTEGER NOT NULL DEFAULT 0,
				deferred INTEGER NOT NULL DEFAULT 0,
				failed INTEGER NOT NULL DEFAULT 0,
				removed INTEGER NOT NULL DEFAULT 0
			)`,
			`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
			`INSERT INTO schema_version (version) VALUES (3)`,
		},
	},
}

type migration struct {
	version int
	up      []string
}

// applyMigrations applies any pending schema migrations
func applyMigrations(db *sql.DB) error {
	var currentVersion int
	err := db.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&currentVersion)
	if err != nil {
		// schema_version doesn't exist yet - this is a fresh database
		currentVersion = 0
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return err
		}

		// Each migration inserts its own schema_version row.
		for _, stmt := range m.up {
			if _, err := tx.Exec(stmt); err != nil {
				tx.Rollback()
				return err
			}
		}

		if err := tx.Commit(); err != nil {
			return err
		}
	}

	return nil
}
