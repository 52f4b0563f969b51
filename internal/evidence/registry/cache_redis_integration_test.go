//go:build integration

package registry_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"adjudicator/internal/evidence/registry"
	id "adjudicator/pkg/domain"
	"adjudicator/pkg/platform/sentinel"
	"adjudicator/pkg/testutil/containers"
)

type countingSource struct {
	calls int
	inner registry.Source
}

func (c *countingSource) Lookup(ctx context.Context, sid id.StakeholderID) (*registry.Profile, error) {
	c.calls++
	return c.inner.Lookup(ctx, sid)
}

type RedisCacheSuite struct {
	suite.Suite
	redis   *containers.RedisContainer
	profile registry.Profile
	source  *countingSource
	cache   *registry.RedisCache
}

func TestRedisCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisCacheSuite))
}

func (s *RedisCacheSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
}

func (s *RedisCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
	s.profile = registry.Profile{
		StakeholderID:        id.StakeholderID(uuid.New()),
		FullName:             "Redis Stakeholder",
		KYCStatus:            registry.KYCVerified,
		RiskCategory:         registry.RiskMedium,
		DeclaredAnnualIncome: decimal.NewFromInt(900_000),
		PayoutAccounts:       []id.AccountID{"AXIS-77"},
	}
	s.source = &countingSource{inner: registry.NewInMemoryRegistry(s.profile)}
	s.cache = registry.NewRedisCache(s.redis.Client, s.source, 5*time.Minute, nil, nil)
}

func (s *RedisCacheSuite) TestSecondLookupIsServedFromCache() {
	ctx := context.Background()
	first, err := s.cache.Lookup(ctx, s.profile.StakeholderID)
	s.Require().NoError(err)
	second, err := s.cache.Lookup(ctx, s.profile.StakeholderID)
	s.Require().NoError(err)

	s.Equal(1, s.source.calls)
	s.Equal(first.FullName, second.FullName)
	s.True(first.DeclaredAnnualIncome.Equal(second.DeclaredAnnualIncome))
	s.Equal(s.profile.StakeholderID, second.StakeholderID)
}

func (s *RedisCacheSuite) TestInvalidateForcesReload() {
	ctx := context.Background()
	_, err := s.cache.Lookup(ctx, s.profile.StakeholderID)
	s.Require().NoError(err)
	s.Require().NoError(s.cache.Invalidate(ctx, s.profile.StakeholderID))
	_, err = s.cache.Lookup(ctx, s.profile.StakeholderID)
	s.Require().NoError(err)
	s.Equal(2, s.source.calls)
}

func (s *RedisCacheSuite) TestMissIsNotCached() {
	ctx := context.Background()
	unknown := id.StakeholderID(uuid.New())
	_, err := s.cache.Lookup(ctx, unknown)
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.cache.Lookup(ctx, unknown)
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.Equal(2, s.source.calls)
}

func (s *RedisCacheSuite) TestTTLEviction() {
	ctx := context.Background()
	short := registry.NewRedisCache(s.redis.Client, s.source, 50*time.Millisecond, nil, nil)
	_, err := short.Lookup(ctx, s.profile.StakeholderID)
	s.Require().NoError(err)

	time.Sleep(90 * time.Millisecond)

	_, err = short.Lookup(ctx, s.profile.StakeholderID)
	s.Require().NoError(err)
	s.Equal(2, s.source.calls)
}
