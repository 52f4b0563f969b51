package pipeline

import (
	"context"

	"adjudicator/internal/evidence/documents"
	"adjudicator/internal/refund/models"
	"adjudicator/internal/screening"
	id "adjudicator/pkg/domain"
	audit "adjudicator/pkg/platform/audit"
)

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks Store,Screener,DocumentStore,AuditPublisher

// Store persists refund requests with optimistic versioning.
type Store interface {
	Create(ctx context.Context, req *models.RefundRequest) error
	Get(ctx context.Context, refundID id.RefundID) (*models.RefundRequest, error)
	Update(ctx context.Context, req *models.RefundRequest, expectedVersion int) error
	// FindPriorOpen returns the earliest open or approved request for the same
	// transaction that was submitted before req, ordered by (submitted_at, id).
	FindPriorOpen(ctx context.Context, req *models.RefundRequest) (*models.RefundRequest, error)
	ListNonTerminal(ctx context.Context) ([]*models.RefundRequest, error)
	AssigneeLoad(ctx context.Context, reviewers []id.ReviewerID) (map[id.ReviewerID]int, error)
}

// Screener is the AML/sanctions port.
type Screener interface {
	ScreenRequest(ctx context.Context, in screening.Input) (models.RiskVerdict, error)
}

// DocumentStore is the evidence port. It has no delete: evidence outlives
// the request for the statutory retention window.
type DocumentStore interface {
	Put(ctx context.Context, doc documents.Document) (documents.Metadata, error)
	VerifyIntegrity(ctx context.Context, evidenceID id.EvidenceID) (bool, error)
}

// AuditPublisher appends to the request trail and fails closed.
type AuditPublisher interface {
	Emit(ctx context.Context, record audit.Record) error
	List(ctx context.Context, refundID id.RefundID) ([]audit.Record, error)
}
