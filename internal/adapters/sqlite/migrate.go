package sqlite

import (
	"database/sql"
	"fmt"
)

// SchemaVersion is the latest schema version supported by the migrator.
const SchemaVersion = 1

// Migrate ensures the SQLite schema exists at SchemaVersion.
func Migrate(db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("migrate: db is nil")
	}

	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY);`)
	if err != nil {
		return fmt.Errorf("migrate: create schema_migrations: %w", err)
	}

	var current int
	err = db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations;`).Scan(&current)
	if err != nil {
		return fmt.Errorf("migrate: read current version: %w", err)
	}
	if current >= SchemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("migrate: begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			subject_id TEXT NOT NULL,
			saved_at TEXT NOT NULL,
			config_json TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("migrate: create runs table: %w", err)
	}

	_, err = tx.Exec(`
		CREATE TABLE IF NOT EXISTS block_orders (
			run_id TEXT PRIMARY KEY,
			order_json TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("migrate: create block_orders table: %w", err)
	}

	_, err = tx.Exec(`
		CREATE TABLE IF NOT EXISTS trial_results (
			run_id TEXT NOT NULL,
			trial INTEGER NOT NULL,
			design TEXT NOT NULL,
			block_num INTEGER NOT NULL,
			trial_ref TEXT NOT NULL,
			num_words INTEGER NOT NULL,
			syllables_per_word INTEGER NOT NULL,
			correct_global INTEGER NOT NULL,
			correct_local INTEGER NOT NULL,
			global_response INTEGER NULL,
			local_response INTEGER NULL,
			global_correct INTEGER NOT NULL,
			local_correct INTEGER NOT NULL,
			both_correct INTEGER NOT NULL,
			global_rt REAL NULL,
			local_rt REAL NULL,
			is_practice INTEGER NOT NULL,
			global_first INTEGER NOT NULL,
			PRIMARY KEY (run_id, trial)
		);
	`)
	if err != nil {
		return fmt.Errorf("migrate: create trial_results table: %w", err)
	}

	_, err = tx.Exec(`CREATE INDEX IF NOT EXISTS idx_trial_results_design ON trial_results(run_id, design);`)
	if err != nil {
		return fmt.Errorf("migrate: create idx_trial_results_design: %w", err)
	}

	_, err = tx.Exec(`INSERT INTO schema_migrations(version) VALUES (?);`, SchemaVersion)
	if err != nil {
		return fmt.Errorf("migrate: record schema version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migrate: commit: %w", err)
	}
	return nil
}
