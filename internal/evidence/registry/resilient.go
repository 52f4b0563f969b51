package registry

import (
	"context"

	"adjudicator/internal/external"
	id "adjudicator/pkg/domain"
)

// Resilient bounds every lookup with the client's timeout, retry and breaker policy.
type Resilient struct {
	next   Source
	client *external.Client
}

func NewResilient(next Source, client *external.Client) *Resilient {
	return &Resilient{next: next, client: client}
}

func (r *Resilient) Lookup(ctx context.Context, stakeholderID id.StakeholderID) (*Profile, error) {
	return external.Do(ctx, r.client, func(ctx context.Context) (*Profile, error) {
		return r.next.Lookup(ctx, stakeholderID)
	})
}
