package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/seqlab/cadence/pkg/domain"
	"github.com/seqlab/cadence/pkg/ports"
)

// Store implements ports.ResultStore on SQLite. Unlike the JSON backends it
// keeps trial results as queryable rows, which is convenient for post-hoc
// analysis without a parsing step.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) a database at path and migrates it.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// New wraps an existing, already migrated database handle.
func New(db *sql.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// SaveBlockOrder upserts the planned order for a run.
func (s *Store) SaveBlockOrder(ctx context.Context, runID string, order domain.BlockOrder) error {
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("save block order: marshal: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO block_orders (run_id, order_json) VALUES (?, ?)
		 ON CONFLICT(run_id) DO UPDATE SET order_json = excluded.order_json`,
		runID, string(data))
	if err != nil {
		return fmt.Errorf("save block order: insert: %w", err)
	}
	return nil
}

// LoadBlockOrder reads the planned order.
func (s *Store) LoadBlockOrder(ctx context.Context, runID string) (domain.BlockOrder, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT order_json FROM block_orders WHERE run_id = ?`, runID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, domain.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load block order: %w", err)
	}
	var order domain.BlockOrder
	if err := json.Unmarshal([]byte(data), &order); err != nil {
		return nil, fmt.Errorf("load block order: unmarshal: %w", err)
	}
	return order, nil
}

// SaveResults replaces the run's checkpoint atomically: the run row and all
// trial rows are rewritten in one transaction.
func (s *Store) SaveResults(ctx context.Context, rec *ports.RunRecord) error {
	cfg, err := json.Marshal(rec.Config)
	if err != nil {
		return fmt.Errorf("save results: marshal config: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save results: begin: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, subject_id, saved_at, config_json) VALUES (?, ?, ?, ?)
		 ON CONFLICT(run_id) DO UPDATE SET saved_at = excluded.saved_at, config_json = excluded.config_json`,
		rec.RunID, rec.Subject, rec.SavedAt.UTC().Format(time.RFC3339Nano), string(cfg))
	if err != nil {
		return fmt.Errorf("save results: upsert run: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM trial_results WHERE run_id = ?`, rec.RunID); err != nil {
		return fmt.Errorf("save results: clear previous checkpoint: %w", err)
	}

	for _, r := range rec.Results {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO trial_results (
				run_id, trial, design, block_num, trial_ref,
				num_words, syllables_per_word, correct_global, correct_local,
				global_response, local_response, global_correct, local_correct,
				both_correct, global_rt, local_rt, is_practice, global_first
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.RunID, r.Trial, r.Design, r.Block, r.TrialRef,
			r.NumWords, r.SyllablesPerWord, r.CorrectGlobal, r.CorrectLocal,
			nullableInt(r.GlobalResponse), nullableInt(r.LocalResponse),
			r.GlobalCorrect, r.LocalCorrect, r.BothCorrect,
			nullableFloat(r.GlobalRT), nullableFloat(r.LocalRT),
			r.IsPractice, r.GlobalFirst)
		if err != nil {
			return fmt.Errorf("save results: insert trial %d: %w", r.Trial, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save results: commit: %w", err)
	}
	return nil
}

// LoadResults reads the latest checkpoint.
func (s *Store) LoadResults(ctx context.Context, runID string) (*ports.RunRecord, error) {
	rec := &ports.RunRecord{RunID: runID}

	var savedAt, cfg string
	err := s.db.QueryRowContext(ctx,
		`SELECT subject_id, saved_at, config_json FROM runs WHERE run_id = ?`, runID).
		Scan(&rec.Subject, &savedAt, &cfg)
	if err == sql.ErrNoRows {
		return nil, domain.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load results: run row: %w", err)
	}
	if rec.SavedAt, err = time.Parse(time.RFC3339Nano, savedAt); err != nil {
		return nil, fmt.Errorf("load results: saved_at: %w", err)
	}
	if err := json.Unmarshal([]byte(cfg), &rec.Config); err != nil {
		return nil, fmt.Errorf("load results: config: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT trial, design, block_num, trial_ref,
			num_words, syllables_per_word, correct_global, correct_local,
			global_response, local_response, global_correct, local_correct,
			both_correct, global_rt, local_rt, is_practice, global_first
		 FROM trial_results WHERE run_id = ? ORDER BY trial`, runID)
	if err != nil {
		return nil, fmt.Errorf("load results: trial rows: %w", err)
	}
	defer rows.Close()

	rec.Results = []domain.TrialResult{}
	for rows.Next() {
		var r domain.TrialResult
		var gResp, lResp sql.NullInt64
		var gRT, lRT sql.NullFloat64
		err := rows.Scan(&r.Trial, &r.Design, &r.Block, &r.TrialRef,
			&r.NumWords, &r.SyllablesPerWord, &r.CorrectGlobal, &r.CorrectLocal,
			&gResp, &lResp, &r.GlobalCorrect, &r.LocalCorrect,
			&r.BothCorrect, &gRT, &lRT, &r.IsPractice, &r.GlobalFirst)
		if err != nil {
			return nil, fmt.Errorf("load results: scan: %w", err)
		}
		if gResp.Valid {
			v := int(gResp.Int64)
			r.GlobalResponse = &v
		}
		if lResp.Valid {
			v := int(lResp.Int64)
			r.LocalResponse = &v
		}
		if gRT.Valid {
			v := gRT.Float64
			r.GlobalRT = &v
		}
		if lRT.Valid {
			v := lRT.Float64
			r.LocalRT = &v
		}
		rec.Results = append(rec.Results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load results: rows: %w", err)
	}
	return rec, nil
}

// ListRuns returns every run that has an order or a checkpoint.
func (s *Store) ListRuns(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id FROM runs UNION SELECT run_id FROM block_orders ORDER BY run_id`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list runs: scan: %w", err)
		}
		runs = append(runs, id)
	}
	return runs, rows.Err()
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
