package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/seqlab/cadence/pkg/domain"
	"github.com/seqlab/cadence/pkg/ports"
)

// Store implements ports.ResultStore on the local filesystem, one directory
// per run holding block_order.json and results.json. This is the default
// backend and matches the original's on-disk layout of per-subject JSON
// files.
type Store struct {
	BasePath string
}

// New creates a Store rooted at basePath. An empty path defaults to "Data".
func New(basePath string) *Store {
	if basePath == "" {
		basePath = "Data"
	}
	return &Store{BasePath: basePath}
}

func (s *Store) runDir(runID string) string {
	return filepath.Join(s.BasePath, runID)
}

// SaveBlockOrder persists the planned order before the first trial runs.
func (s *Store) SaveBlockOrder(ctx context.Context, runID string, order domain.BlockOrder) error {
	return s.writeJSON(runID, "block_order.json", order)
}

// LoadBlockOrder reads a previously saved plan.
func (s *Store) LoadBlockOrder(ctx context.Context, runID string) (domain.BlockOrder, error) {
	var order domain.BlockOrder
	if err := s.readJSON(runID, "block_order.json", &order); err != nil {
		return nil, err
	}
	return order, nil
}

// SaveResults persists the run record, overwriting the previous checkpoint.
func (s *Store) SaveResults(ctx context.Context, rec *ports.RunRecord) error {
	return s.writeJSON(rec.RunID, "results.json", rec)
}

// LoadResults reads the latest checkpoint.
func (s *Store) LoadResults(ctx context.Context, runID string) (*ports.RunRecord, error) {
	var rec ports.RunRecord
	if err := s.readJSON(runID, "results.json", &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListRuns returns the run directories under the base path.
func (s *Store) ListRuns(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	var runs []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			runs = append(runs, e.Name())
		}
	}
	return runs, nil
}

// writeJSON writes atomically: temp file in the same directory, fsync, then
// rename, so a crash mid-save cannot leave a partial checkpoint.
func (s *Store) writeJSON(runID, name string, v any) error {
	if runID == "" {
		return fmt.Errorf("runID cannot be empty")
	}
	dir := s.runDir(runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to ensure run directory: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(dir, "tmp-"+name+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	dest := filepath.Join(dir, name)
	// Rename over the previous checkpoint. Delete-first keeps Windows happy.
	if _, err := os.Stat(dest); err == nil {
		if err := os.Remove(dest); err != nil {
			return fmt.Errorf("failed to replace previous checkpoint: %w", err)
		}
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

func (s *Store) readJSON(runID, name string, v any) error {
	if runID == "" {
		return fmt.Errorf("runID cannot be empty")
	}
	data, err := os.ReadFile(filepath.Join(s.runDir(runID), name))
	if err != nil {
		if os.IsNotExist(err) {
			return domain.ErrRunNotFound
		}
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", name, err)
	}
	return nil
}
