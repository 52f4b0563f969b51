// Package documents stores evidence artifacts. Content is addressed by
// evidence id and sealed with a BLAKE2b-256 digest at upload so later
// tampering is detectable. There is no delete operation: evidence
// outlives the request for the retention window.
package documents

import (
	"context"
	"encoding/hex"
	"time"

	"golang.org/x/crypto/blake2b"

	id "adjudicator/pkg/domain"
)

// MaxSize bounds a single uploaded artifact.
const MaxSize = 10 << 20

// Document is an artifact on its way into the store.
type Document struct {
	RefundID    id.RefundID
	Type        string
	Filename    string
	ContentType string
	Content     []byte
}

// Metadata describes a stored artifact.
type Metadata struct {
	EvidenceID  id.EvidenceID
	RefundID    id.RefundID
	Type        string
	Filename    string
	ContentType string
	Size        int64
	Digest      string
	StoredAt    time.Time
}

// Store is the document store contract.
type Store interface {
	Put(ctx context.Context, doc Document) (Metadata, error)
	Get(ctx context.Context, evidenceID id.EvidenceID) ([]byte, Metadata, error)
	VerifyIntegrity(ctx context.Context, evidenceID id.EvidenceID) (bool, error)
}

// Digest returns the hex BLAKE2b-256 digest of content.
func Digest(content []byte) string {
	sum := blake2b.Sum256(content)
	return hex.EncodeToString(sum[:])
}
