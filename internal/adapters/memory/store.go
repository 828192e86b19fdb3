package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/seqlab/cadence/pkg/domain"
	"github.com/seqlab/cadence/pkg/ports"
)

// Store implements ports.ResultStore in memory. Used by tests and dry runs
// where persistence is irrelevant.
type Store struct {
	mu      sync.Mutex
	orders  map[string]domain.BlockOrder
	records map[string]*ports.RunRecord
}

// New creates an empty store.
func New() *Store {
	return &Store{
		orders:  make(map[string]domain.BlockOrder),
		records: make(map[string]*ports.RunRecord),
	}
}

// SaveBlockOrder stores a copy of the planned order.
func (s *Store) SaveBlockOrder(ctx context.Context, runID string, order domain.BlockOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make(domain.BlockOrder, len(order))
	copy(cp, order)
	s.orders[runID] = cp
	return nil
}

// LoadBlockOrder returns the stored plan.
func (s *Store) LoadBlockOrder(ctx context.Context, runID string) (domain.BlockOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[runID]
	if !ok {
		return nil, domain.ErrRunNotFound
	}
	cp := make(domain.BlockOrder, len(order))
	copy(cp, order)
	return cp, nil
}

// SaveResults stores a copy of the run record.
func (s *Store) SaveResults(ctx context.Context, rec *ports.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	cp.Results = make([]domain.TrialResult, len(rec.Results))
	copy(cp.Results, rec.Results)
	s.records[rec.RunID] = &cp
	return nil
}

// LoadResults returns the latest record for a run.
func (s *Store) LoadResults(ctx context.Context, runID string) (*ports.RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[runID]
	if !ok {
		return nil, domain.ErrRunNotFound
	}
	cp := *rec
	cp.Results = make([]domain.TrialResult, len(rec.Results))
	copy(cp.Results, rec.Results)
	return &cp, nil
}

// ListRuns returns known run IDs in sorted order.
func (s *Store) ListRuns(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]bool)
	for id := range s.orders {
		seen[id] = true
	}
	for id := range s.records {
		seen[id] = true
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
