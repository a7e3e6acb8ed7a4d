package eventstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is the in-process Store implementation.
//
// Each aggregate owns its own log and mutex, so concurrent appends to the
// same aggregate serialize through a single ownership point while different
// aggregates proceed fully in parallel.
type MemoryStore struct {
	mu   sync.RWMutex
	logs map[string]*aggregateLog
	now  func() time.Time
}

type aggregateLog struct {
	mu      sync.Mutex
	records []*Record
}

// MemoryStoreOption customizes a MemoryStore.
type MemoryStoreOption func(s *MemoryStore)

// WithMemoryClock overrides the time source. Intended for tests.
func WithMemoryClock(now func() time.Time) MemoryStoreOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemoryStore creates an empty in-memory event store.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	store := &MemoryStore{
		logs: make(map[string]*aggregateLog),
		now:  time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}

	return store
}

// Append implements Store.
func (s *MemoryStore) Append(ctx context.Context, aggregateID, eventType string, payload []byte, expectedVersion int64) (*Record, error) {
	if err := ValidateAppend(aggregateID, eventType, payload); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	agg := s.logFor(aggregateID)

	agg.mu.Lock()
	defer agg.mu.Unlock()

	head := int64(len(agg.records))
	if expectedVersion != head {
		return nil, &VersionConflictError{
			AggregateID: aggregateID,
			Expected:    expectedVersion,
			Actual:      head,
		}
	}

	stored := &Record{
		ID:          uuid.New(),
		AggregateID: aggregateID,
		Version:     head + 1,
		EventType:   eventType,
		Payload:     append([]byte(nil), payload...),
		RecordedAt:  s.now().UTC(),
	}

	agg.records = append(agg.records, stored)

	return copyRecord(stored), nil
}

// Load implements Store.
func (s *MemoryStore) Load(ctx context.Context, aggregateID string) ([]*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	agg, exists := s.logs[aggregateID]
	s.mu.RUnlock()

	if !exists {
		return nil, nil
	}

	agg.mu.Lock()
	defer agg.mu.Unlock()

	records := make([]*Record, len(agg.records))
	for i, record := range agg.records {
		records[i] = copyRecord(record)
	}

	return records, nil
}

// CurrentVersion implements Store.
func (s *MemoryStore) CurrentVersion(ctx context.Context, aggregateID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	agg, exists := s.logs[aggregateID]
	s.mu.RUnlock()

	if !exists {
		return 0, nil
	}

	agg.mu.Lock()
	defer agg.mu.Unlock()

	return int64(len(agg.records)), nil
}

func (s *MemoryStore) logFor(aggregateID string) *aggregateLog {
	s.mu.RLock()
	agg, exists := s.logs[aggregateID]
	s.mu.RUnlock()

	if exists {
		return agg
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if agg, exists = s.logs[aggregateID]; exists {
		return agg
	}

	agg = &aggregateLog{}
	s.logs[aggregateID] = agg

	return agg
}

func copyRecord(record *Record) *Record {
	cloned := *record
	cloned.Payload = append([]byte(nil), record.Payload...)

	return &cloned
}
