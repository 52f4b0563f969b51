package documents

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	id "adjudicator/pkg/domain"
	"adjudicator/pkg/platform/sentinel"
)

type storedDocument struct {
	content []byte
	meta    Metadata
}

// InMemoryStore keeps artifacts in memory.
type InMemoryStore struct {
	mu   sync.RWMutex
	docs map[id.EvidenceID]storedDocument
	now  func() time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{docs: make(map[id.EvidenceID]storedDocument), now: time.Now}
}

func (s *InMemoryStore) Put(_ context.Context, doc Document) (Metadata, error) {
	if len(doc.Content) == 0 {
		return Metadata{}, fmt.Errorf("document content is required")
	}
	if len(doc.Content) > MaxSize {
		return Metadata{}, fmt.Errorf("document exceeds %d bytes", MaxSize)
	}
	meta := Metadata{
		EvidenceID:  id.NewEvidenceID(),
		RefundID:    doc.RefundID,
		Type:        doc.Type,
		Filename:    doc.Filename,
		ContentType: doc.ContentType,
		Size:        int64(len(doc.Content)),
		Digest:      Digest(doc.Content),
		StoredAt:    s.now(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[meta.EvidenceID] = storedDocument{content: bytes.Clone(doc.Content), meta: meta}
	return meta, nil
}

func (s *InMemoryStore) Get(_ context.Context, evidenceID id.EvidenceID) ([]byte, Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.docs[evidenceID]
	if !ok {
		return nil, Metadata{}, fmt.Errorf("evidence %s: %w", evidenceID, sentinel.ErrNotFound)
	}
	return bytes.Clone(d.content), d.meta, nil
}

func (s *InMemoryStore) VerifyIntegrity(ctx context.Context, evidenceID id.EvidenceID) (bool, error) {
	content, meta, err := s.Get(ctx, evidenceID)
	if err != nil {
		return false, err
	}
	return Digest(content) == meta.Digest, nil
}

// Overwrite replaces stored bytes without resealing. It simulates tampering
// at rest for development and tests.
func (s *InMemoryStore) Overwrite(evidenceID id.EvidenceID, content []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[evidenceID]
	if !ok {
		return fmt.Errorf("evidence %s: %w", evidenceID, sentinel.ErrNotFound)
	}
	d.content = bytes.Clone(content)
	s.docs[evidenceID] = d
	return nil
}
