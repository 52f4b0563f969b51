// Package store persists refund requests. Writers pass the version they loaded;
// a write against a stale version fails with sentinel.ErrConflict.
package store

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"adjudicator/internal/refund/models"
	id "adjudicator/pkg/domain"
	"adjudicator/pkg/platform/sentinel"
)

// InMemoryStore keeps requests in a map. Values are cloned on the way in and out.
type InMemoryStore struct {
	mu       sync.RWMutex
	requests map[id.RefundID]*models.RefundRequest
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{requests: make(map[id.RefundID]*models.RefundRequest)}
}

func (s *InMemoryStore) Create(_ context.Context, req *models.RefundRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[req.ID]; ok {
		return fmt.Errorf("refund %s exists: %w", req.ID, sentinel.ErrConflict)
	}
	s.requests[req.ID] = req.Clone()
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, refundID id.RefundID) (*models.RefundRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.requests[refundID]
	if !ok {
		return nil, fmt.Errorf("refund %s: %w", refundID, sentinel.ErrNotFound)
	}
	return req.Clone(), nil
}

func (s *InMemoryStore) Update(_ context.Context, req *models.RefundRequest, expectedVersion int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.requests[req.ID]
	if !ok {
		return fmt.Errorf("refund %s: %w", req.ID, sentinel.ErrNotFound)
	}
	if current.Version != expectedVersion {
		return fmt.Errorf("refund %s at version %d, expected %d: %w", req.ID, current.Version, expectedVersion, sentinel.ErrConflict)
	}
	s.requests[req.ID] = req.Clone()
	return nil
}

// FindPriorOpen returns the earliest request for req's transaction that was
// submitted before req and is still open or already approved.
func (s *InMemoryStore) FindPriorOpen(_ context.Context, req *models.RefundRequest) (*models.RefundRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found *models.RefundRequest
	for _, other := range s.requests {
		if other.TransactionID != req.TransactionID || !blocksDuplicate(other.State) || !submittedBefore(other, req) {
			continue
		}
		if found == nil || submittedBefore(other, found) {
			found = other
		}
	}
	if found == nil {
		return nil, fmt.Errorf("open refund for %s: %w", req.TransactionID, sentinel.ErrNotFound)
	}
	return found.Clone(), nil
}

func (s *InMemoryStore) ListNonTerminal(_ context.Context) ([]*models.RefundRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.RefundRequest, 0)
	for _, req := range s.requests {
		if !req.State.IsTerminal() {
			out = append(out, req.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.Before(out[j].SubmittedAt) })
	return out, nil
}

// AssigneeLoad counts requests awaiting an L2 decision per reviewer.
func (s *InMemoryStore) AssigneeLoad(_ context.Context, reviewers []id.ReviewerID) (map[id.ReviewerID]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	load := make(map[id.ReviewerID]int, len(reviewers))
	for _, r := range reviewers {
		load[r] = 0
	}
	for _, req := range s.requests {
		if req.State != models.StateL2Review {
			continue
		}
		if _, ok := load[req.Assignee]; ok {
			load[req.Assignee]++
		}
	}
	return load, nil
}

func blocksDuplicate(s models.State) bool {
	return !s.IsTerminal() || s == models.StateApproved
}

// submittedBefore orders requests by (submitted_at, id), matching the
// Postgres ordering of timestamptz and uuid columns.
func submittedBefore(a, b *models.RefundRequest) bool {
	at, bt := a.SubmittedAt.Truncate(time.Microsecond), b.SubmittedAt.Truncate(time.Microsecond)
	if !at.Equal(bt) {
		return at.Before(bt)
	}
	return bytes.Compare(a.ID[:], b.ID[:]) < 0
}
