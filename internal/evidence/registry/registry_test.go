package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adjudicator/internal/external"
	id "adjudicator/pkg/domain"
	"adjudicator/pkg/platform/sentinel"
)

func sampleProfile() Profile {
	return Profile{
		StakeholderID:        id.StakeholderID(uuid.New()),
		FullName:             "Ananya Iyer",
		DateOfBirth:          "1988-02-14",
		KYCStatus:            KYCVerified,
		RiskCategory:         RiskLow,
		DeclaredAnnualIncome: decimal.NewFromInt(1_800_000),
		SourceAccounts:       []id.AccountID{"HDFC-0001"},
		PayoutAccounts:       []id.AccountID{"HDFC-0001"},
		RefundHistory: []PriorRefund{
			{Reference: "r-1", Amount: decimal.NewFromInt(4000), RequestedAt: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)},
			{Reference: "r-0", Amount: decimal.NewFromInt(9000), RequestedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
		},
	}
}

func TestInMemoryRegistry(t *testing.T) {
	p := sampleProfile()
	r := NewInMemoryRegistry(p)
	ctx := context.Background()

	got, err := r.Lookup(ctx, p.StakeholderID)
	require.NoError(t, err)
	assert.Equal(t, p.FullName, got.FullName)
	assert.True(t, got.HasPayoutAccount("HDFC-0001"))
	assert.False(t, got.HasPayoutAccount("ICICI-9"))

	got.PayoutAccounts[0] = "tampered"
	again, err := r.Lookup(ctx, p.StakeholderID)
	require.NoError(t, err)
	assert.Equal(t, id.AccountID("HDFC-0001"), again.PayoutAccounts[0], "lookups return copies")

	_, err = r.Lookup(ctx, id.StakeholderID(uuid.New()))
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestProfile_RefundsSince(t *testing.T) {
	p := sampleProfile()
	recent := p.RefundsSince(time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC))
	require.Len(t, recent, 1)
	assert.Equal(t, "r-1", recent[0].Reference)
}

type fakeDynamo struct {
	items map[string]profileItem
	err   error
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	var key struct {
		StakeholderID string `dynamodbav:"stakeholder_id"`
	}
	if err := attributevalue.UnmarshalMap(in.Key, &key); err != nil {
		return nil, err
	}
	item, ok := f.items[key.StakeholderID]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return nil, err
	}
	return &dynamodb.GetItemOutput{Item: av}, nil
}

func TestDynamoDBRegistry_Lookup(t *testing.T) {
	sid := id.StakeholderID(uuid.New())
	fake := &fakeDynamo{items: map[string]profileItem{
		sid.String(): {
			StakeholderID:        sid.String(),
			FullName:             "Rohan Das",
			KYCStatus:            "verified",
			RiskCategory:         "high",
			DeclaredAnnualIncome: "650000.50",
			SourceAccounts:       []string{"SBI-1"},
			PayoutAccounts:       []string{"SBI-1", "SBI-2"},
			RefundHistory: []priorRefundItem{
				{Reference: "x", Amount: "2500", RequestedAt: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), PayoutAccount: "SBI-2"},
			},
			ScreeningHistory: []screeningItem{{ListVersion: "2026-09", Outcome: "clear"}},
		},
	}}
	r := NewDynamoDBRegistry(fake, "stakeholders")
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		p, err := r.Lookup(ctx, sid)
		require.NoError(t, err)
		assert.Equal(t, sid, p.StakeholderID)
		assert.Equal(t, RiskHigh, p.RiskCategory)
		assert.True(t, decimal.RequireFromString("650000.50").Equal(p.DeclaredAnnualIncome))
		assert.Equal(t, []id.AccountID{"SBI-1", "SBI-2"}, p.PayoutAccounts)
		require.Len(t, p.RefundHistory, 1)
		assert.True(t, decimal.NewFromInt(2500).Equal(p.RefundHistory[0].Amount))
		assert.Equal(t, "2026-09", p.ScreeningHistory[0].ListVersion)
	})

	t.Run("missing item is not found", func(t *testing.T) {
		_, err := r.Lookup(ctx, id.StakeholderID(uuid.New()))
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("client failure is wrapped", func(t *testing.T) {
		failing := NewDynamoDBRegistry(&fakeDynamo{err: errors.New("throttled")}, "stakeholders")
		_, err := failing.Lookup(ctx, sid)
		require.Error(t, err)
		assert.NotErrorIs(t, err, sentinel.ErrNotFound)
	})
}

type flakySource struct {
	failures int
	calls    int
	next     Source
}

func (f *flakySource) Lookup(ctx context.Context, sid id.StakeholderID) (*Profile, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("connection refused")
	}
	return f.next.Lookup(ctx, sid)
}

func TestResilient(t *testing.T) {
	p := sampleProfile()
	policy := external.Policy{Attempts: 3, Timeout: time.Second, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}

	t.Run("recovers within the retry budget", func(t *testing.T) {
		src := &flakySource{failures: 2, next: NewInMemoryRegistry(p)}
		r := NewResilient(src, external.NewClient("registry", policy))
		got, err := r.Lookup(context.Background(), p.StakeholderID)
		require.NoError(t, err)
		assert.Equal(t, p.FullName, got.FullName)
		assert.Equal(t, 3, src.calls)
	})

	t.Run("exhausted retries surface as unavailable", func(t *testing.T) {
		src := &flakySource{failures: 10, next: NewInMemoryRegistry(p)}
		r := NewResilient(src, external.NewClient("registry", policy))
		_, err := r.Lookup(context.Background(), p.StakeholderID)
		require.Error(t, err)
		assert.True(t, external.IsUnavailable(err))
	})

	t.Run("unknown stakeholder is a definitive answer", func(t *testing.T) {
		r := NewResilient(NewInMemoryRegistry(), external.NewClient("registry", policy))
		_, err := r.Lookup(context.Background(), p.StakeholderID)
		require.Error(t, err)
		assert.True(t, external.IsNotFound(err))
	})
}
