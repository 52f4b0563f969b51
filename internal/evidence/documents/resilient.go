package documents

import (
	"context"

	"adjudicator/internal/external"
	id "adjudicator/pkg/domain"
)

type getResult struct {
	content []byte
	meta    Metadata
}

// Resilient applies the external call policy to every store operation.
type Resilient struct {
	next   Store
	client *external.Client
}

func NewResilient(next Store, client *external.Client) *Resilient {
	return &Resilient{next: next, client: client}
}

func (r *Resilient) Put(ctx context.Context, doc Document) (Metadata, error) {
	return external.Do(ctx, r.client, func(ctx context.Context) (Metadata, error) {
		return r.next.Put(ctx, doc)
	})
}

func (r *Resilient) Get(ctx context.Context, evidenceID id.EvidenceID) ([]byte, Metadata, error) {
	res, err := external.Do(ctx, r.client, func(ctx context.Context) (getResult, error) {
		content, meta, err := r.next.Get(ctx, evidenceID)
		return getResult{content: content, meta: meta}, err
	})
	return res.content, res.meta, err
}

func (r *Resilient) VerifyIntegrity(ctx context.Context, evidenceID id.EvidenceID) (bool, error) {
	return external.Do(ctx, r.client, func(ctx context.Context) (bool, error) {
		return r.next.VerifyIntegrity(ctx, evidenceID)
	})
}
