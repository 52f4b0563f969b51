//go:build integration

package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"adjudicator/internal/refund/models"
	id "adjudicator/pkg/domain"
	"adjudicator/pkg/platform/sentinel"
	"adjudicator/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "refund_requests", "refund_audit"))
}

// Justification: the JSONB document must carry decimals, typed ids and nested
// verdicts without loss.
func (s *PostgresStoreSuite) TestCreateGetPreservesAggregate() {
	ctx := context.Background()
	req := newRequest("TX-PG-1", models.StateL2Review, submitted)
	req.Assignee = id.ReviewerID(id.NewRefundID())
	req.Amount = decimal.RequireFromString("50000.50")
	req.Risk = &models.RiskVerdict{Level: models.RiskEDDRequired, Score: 40, ListVersion: "2026-10-01"}
	req.Alerts = map[string]time.Time{"l2_sla": submitted}
	s.Require().NoError(s.store.Create(ctx, req))

	got, err := s.store.Get(ctx, req.ID)
	s.Require().NoError(err)
	s.Equal(req.ID, got.ID)
	s.Equal(req.Assignee, got.Assignee)
	s.True(req.Amount.Equal(got.Amount))
	s.Equal(models.RiskEDDRequired, got.Risk.Level)
	s.True(got.Alerts["l2_sla"].Equal(submitted))
}

// Justification: concurrent writers at the same version must produce exactly one winner.
func (s *PostgresStoreSuite) TestConcurrentUpdatesOneWins() {
	ctx := context.Background()
	req := newRequest("TX-PG-2", models.StateL2Review, submitted)
	s.Require().NoError(s.store.Create(ctx, req))

	const writers = 10
	var wg sync.WaitGroup
	var wins, conflicts atomic.Int32
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			next := req.Clone()
			next.Version = 2
			next.State = models.StateL3Review
			err := s.store.Update(ctx, next, 1)
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, sentinel.ErrConflict):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()
	s.Equal(int32(1), wins.Load())
	s.Equal(int32(writers-1), conflicts.Load())
}

func (s *PostgresStoreSuite) TestUpdateMissingIsNotFound() {
	req := newRequest("TX-PG-3", models.StateReceived, submitted)
	err := s.store.Update(context.Background(), req, 1)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestQueries() {
	ctx := context.Background()
	reviewer := id.ReviewerID(id.NewRefundID())
	open := newRequest("TX-PG-4", models.StateL2Review, submitted)
	open.Assignee = reviewer
	rejected := newRequest("TX-PG-4", models.StateRejected, submitted.Add(-time.Hour))
	fresh := newRequest("TX-PG-4", models.StateReceived, submitted.Add(time.Hour))
	for _, r := range []*models.RefundRequest{open, rejected, fresh} {
		s.Require().NoError(s.store.Create(ctx, r))
	}

	found, err := s.store.FindPriorOpen(ctx, fresh)
	s.Require().NoError(err)
	s.Equal(open.ID, found.ID)

	_, err = s.store.FindPriorOpen(ctx, open)
	s.Require().ErrorIs(err, sentinel.ErrNotFound, "a later claim does not block an earlier one")

	list, err := s.store.ListNonTerminal(ctx)
	s.Require().NoError(err)
	s.Len(list, 2)

	load, err := s.store.AssigneeLoad(ctx, []id.ReviewerID{reviewer})
	s.Require().NoError(err)
	s.Equal(1, load[reviewer])
}
