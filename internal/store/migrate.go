package store

import (
	"database/sql"
)

const schemaVersion = 1

// Migrate brings the schema up to schemaVersion. Versions are tracked in
// PRAGMA user_version.
func Migrate(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRow(`PRAGMA user_version;`).Scan(&v); err != nil {
		return err
	}

	if v >= schemaVersion {
		return tx.Commit()
	}

	// ---- Schema v1: tables ----

	stmts := []string{`
CREATE TABLE IF NOT EXISTS providers (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  website TEXT NOT NULL DEFAULT '',
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at TEXT NOT NULL
);`, `
CREATE TABLE IF NOT EXISTS locations (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  address TEXT NOT NULL DEFAULT '',
  city TEXT NOT NULL DEFAULT '',
  province TEXT NOT NULL DEFAULT '',
  facility_type TEXT NOT NULL DEFAULT '',
  UNIQUE(name, address)
);`, `
CREATE TABLE IF NOT EXISTS catalog_entries (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  provider_id TEXT NOT NULL REFERENCES providers(id),
  external_id TEXT NOT NULL,
  name TEXT NOT NULL,
  course_code TEXT,
  date_start_token TEXT,
  date_end_token TEXT,
  start_date TEXT,
  end_date TEXT,
  days_of_week TEXT NOT NULL DEFAULT '[]',
  time_start TEXT,
  time_end TEXT,
  age_min INTEGER,
  age_max INTEGER,
  location TEXT,
  price TEXT,
  availability TEXT NOT NULL,
  spots_available INTEGER NOT NULL DEFAULT 0,
  registration_url TEXT,
  section_label TEXT NOT NULL DEFAULT '',
  raw_text TEXT NOT NULL DEFAULT '',
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL,
  last_seen_at TEXT NOT NULL,
  UNIQUE(provider_id, external_id)
);`, `
CREATE TABLE IF NOT EXISTS sync_jobs (
  id TEXT PRIMARY KEY,
  provider_id TEXT NOT NULL REFERENCES providers(id),
  status TEXT NOT NULL,
  started_at TEXT NOT NULL,
  completed_at TEXT,
  activities_found INTEGER NOT NULL DEFAULT 0,
  created INTEGER NOT NULL DEFAULT 0,
  updated INTEGER NOT NULL DEFAULT 0,
  removed INTEGER NOT NULL DEFAULT 0,
  errors INTEGER NOT NULL DEFAULT 0,
  error TEXT NOT NULL DEFAULT ''
);`,

		// ---- Schema v1: indexes ----

		`CREATE INDEX IF NOT EXISTS idx_entries_provider_active ON catalog_entries(provider_id, is_active);`,
		`CREATE INDEX IF NOT EXISTS idx_entries_section ON catalog_entries(section_label);`,
		`CREATE INDEX IF NOT EXISTS idx_sync_jobs_started ON sync_jobs(started_at);`,
	}
	for _, s := range stmts {
		if _, err := tx.Exec(s); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(`PRAGMA user_version = 1;`); err != nil {
		return err
	}
	return tx.Commit()
}
