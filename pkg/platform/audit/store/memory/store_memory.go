package memory

import (
	"context"
	"fmt"
	"maps"
	"sync"

	id "adjudicator/pkg/domain"
	audit "adjudicator/pkg/platform/audit"
	"adjudicator/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu      sync.RWMutex
	records map[id.RefundID][]audit.Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[id.RefundID][]audit.Record)}
}

func (s *InMemoryStore) Append(_ context.Context, record audit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing := s.records[record.RefundID]
	if record.Seq != len(existing)+1 {
		return fmt.Errorf("append seq %d after %d: %w", record.Seq, len(existing), sentinel.ErrConflict)
	}
	record.Inputs = maps.Clone(record.Inputs)
	s.records[record.RefundID] = append(existing, record)
	return nil
}

func (s *InMemoryStore) ListByRefund(_ context.Context, refundID id.RefundID) ([]audit.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]audit.Record, 0, len(s.records[refundID]))
	for _, r := range s.records[refundID] {
		r.Inputs = maps.Clone(r.Inputs)
		out = append(out, r)
	}
	return out, nil
}
