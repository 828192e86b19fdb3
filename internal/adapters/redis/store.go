package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/seqlab/cadence/pkg/domain"
	"github.com/seqlab/cadence/pkg/ports"
)

// Store implements ports.ResultStore on Redis, for labs that checkpoint
// sessions to a shared instance instead of the acquisition machine's disk.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets an expiration on saved runs.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// New creates a store with its own client.
func New(addr, password string, db int, opts ...Option) *Store {
	client := backend.NewClient(&backend.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewFromClient(client, opts...)
}

// NewFromClient creates a store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: "cadence:run:",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) orderKey(runID string) string   { return s.prefix + runID + ":order" }
func (s *Store) resultsKey(runID string) string { return s.prefix + runID + ":results" }
func (s *Store) indexKey() string               { return s.prefix + "index" }

// SaveBlockOrder persists the planned order and indexes the run.
func (s *Store) SaveBlockOrder(ctx context.Context, runID string, order domain.BlockOrder) error {
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to marshal block order: %w", err)
	}
	return s.save(ctx, runID, s.orderKey(runID), data)
}

// LoadBlockOrder retrieves the planned order.
func (s *Store) LoadBlockOrder(ctx context.Context, runID string) (domain.BlockOrder, error) {
	val, err := s.client.Get(ctx, s.orderKey(runID)).Result()
	if err != nil {
		if err == backend.Nil {
			return nil, domain.ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to get block order: %w", err)
	}
	var order domain.BlockOrder
	if err := json.Unmarshal([]byte(val), &order); err != nil {
		return nil, fmt.Errorf("failed to unmarshal block order: %w", err)
	}
	return order, nil
}

// SaveResults persists the run record checkpoint.
func (s *Store) SaveResults(ctx context.Context, rec *ports.RunRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal run record: %w", err)
	}
	return s.save(ctx, rec.RunID, s.resultsKey(rec.RunID), data)
}

// LoadResults retrieves the latest checkpoint.
func (s *Store) LoadResults(ctx context.Context, runID string) (*ports.RunRecord, error) {
	val, err := s.client.Get(ctx, s.resultsKey(runID)).Result()
	if err != nil {
		if err == backend.Nil {
			return nil, domain.ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to get run record: %w", err)
	}
	var rec ports.RunRecord
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run record: %w", err)
	}
	return &rec, nil
}

// ListRuns returns indexed run IDs.
func (s *Store) ListRuns(ctx context.Context) ([]string, error) {
	runs, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// Close closes the underlying client.
func (s *Store) Close() error { return s.client.Close() }

func (s *Store) save(ctx context.Context, runID, key string, data []byte) error {
	pipe := s.client.Pipeline()
	pipe.Set(ctx, key, data, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{
		Score:  float64(time.Now().Unix()),
		Member: runID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}
