package ports

import (
	"context"
	"time"

	"github.com/seqlab/cadence/pkg/domain"
)

// RunRecord is the persisted snapshot of a run: all results so far plus the
// configuration they were collected under. Saved incrementally after every
// block, so a crash loses at most one block's results.
type RunRecord struct {
	RunID   string               `json:"run_id"`
	Subject string               `json:"subject_id"`
	SavedAt time.Time            `json:"saved_at"`
	Results []domain.TrialResult `json:"results"`
	Config  map[string]any       `json:"params"`
}

// ResultStore persists planned block orders and accumulated results.
// Implementations must overwrite prior saves for the same run ID (each save
// carries the full result list).
type ResultStore interface {
	// SaveBlockOrder persists the planned order before trial execution
	// begins, so a crash mid-experiment cannot lose the plan.
	SaveBlockOrder(ctx context.Context, runID string, order domain.BlockOrder) error

	// LoadBlockOrder retrieves a previously saved plan.
	// Returns domain.ErrRunNotFound if the run does not exist.
	LoadBlockOrder(ctx context.Context, runID string) (domain.BlockOrder, error)

	// SaveResults persists the run record.
	SaveResults(ctx context.Context, rec *RunRecord) error

	// LoadResults retrieves the latest run record.
	// Returns domain.ErrRunNotFound if the run does not exist.
	LoadResults(ctx context.Context, runID string) (*RunRecord, error)

	// ListRuns returns the known run IDs.
	ListRuns(ctx context.Context) ([]string, error)
}
