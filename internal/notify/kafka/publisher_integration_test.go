//go:build integration

package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"adjudicator/internal/notify"
	"adjudicator/internal/refund/models"
	id "adjudicator/pkg/domain"
	"adjudicator/pkg/testutil/containers"
)

type PublisherSuite struct {
	suite.Suite
	redpanda *containers.RedpandaContainer
	client   *kgo.Client
	pub      *Publisher
	topics   Topics
}

func TestPublisherSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PublisherSuite))
}

func (s *PublisherSuite) SetupSuite() {
	s.redpanda = containers.GetManager().GetRedpanda(s.T())
	client, err := NewClient(s.redpanda.Brokers)
	s.Require().NoError(err)
	s.client = client
	s.topics = DefaultTopics()
	s.Require().NoError(EnsureTopics(context.Background(), client, 1, 1, s.topics.Public, s.topics.Confidential))
	s.pub = NewPublisher(client, s.topics)
}

func (s *PublisherSuite) TearDownSuite() {
	if s.client != nil {
		s.client.Close()
	}
}

// Justification: topic creation runs on every start and must be idempotent.
func (s *PublisherSuite) TestEnsureTopicsTwice() {
	s.Require().NoError(EnsureTopics(context.Background(), s.client, 1, 1, s.topics.Public))
}

// Justification: the public topic must only ever carry the public payload,
// with reports confined to the confidential topic.
func (s *PublisherSuite) TestStreamsAreSeparated() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ref := id.NewRefundID()
	ev, _ := notify.NewStateChanged(ref, "", models.StateL2Review, time.Now().UTC())
	s.Require().NoError(s.pub.PublishStateChanged(ctx, ev))
	s.Require().NoError(s.pub.FileSuspicionReport(ctx, notify.SuspicionReport{RefundID: ref, ListVersion: "v1"}))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.redpanda.Brokers...),
		kgo.ConsumeTopics(s.topics.Public),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	var found bool
	for !found {
		fetches := consumer.PollFetches(ctx)
		s.Require().NoError(ctx.Err())
		fetches.EachRecord(func(r *kgo.Record) {
			s.Equal(s.topics.Public, r.Topic)
			if string(r.Key) != ref.String() {
				return
			}
			var got map[string]any
			s.Require().NoError(json.Unmarshal(r.Value, &got))
			s.Equal("under_review", got["status"])
			s.NotContains(string(r.Value), "list_version")
			found = true
		})
	}
}
