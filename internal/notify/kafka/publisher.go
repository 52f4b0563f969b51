// Package kafka publishes engine events to Kafka with franz-go. Public status
// events and confidential suspicion reports go to separate topics so that
// consumers of the public stream can never see a report.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"adjudicator/internal/notify"
)

// Topics names the two streams.
type Topics struct {
	Public       string
	Confidential string
}

// DefaultTopics are the production topic names.
func DefaultTopics() Topics {
	return Topics{
		Public:       "refund.status.v1",
		Confidential: "compliance.str.v1",
	}
}

// Producer is the subset of *kgo.Client used for publishing.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Publisher implements notify.StatePublisher and notify.ComplianceReporter.
type Publisher struct {
	producer Producer
	topics   Topics
}

func NewPublisher(producer Producer, topics Topics) *Publisher {
	return &Publisher{producer: producer, topics: topics}
}

// NewClient connects a producer that waits for all in-sync replicas.
func NewClient(brokers []string, opts ...kgo.Opt) (*kgo.Client, error) {
	base := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ClientID("adjudicator"),
	}
	client, err := kgo.NewClient(append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return client, nil
}

// EnsureTopics creates any missing topics. Existing topics are left untouched.
func EnsureTopics(ctx context.Context, client *kgo.Client, partitions int32, replicas int16, topics ...string) error {
	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopics(ctx, partitions, replicas, nil, topics...)
	if err != nil {
		return fmt.Errorf("create topics: %w", err)
	}
	for name, t := range resp {
		if t.Err != nil && !errors.Is(t.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", name, t.Err)
		}
	}
	return nil
}

func (p *Publisher) PublishStateChanged(ctx context.Context, ev notify.StateChanged) error {
	return p.produce(ctx, p.topics.Public, ev.ReferenceID, ev)
}

func (p *Publisher) FileSuspicionReport(ctx context.Context, report notify.SuspicionReport) error {
	return p.produce(ctx, p.topics.Confidential, report.RefundID.String(), report)
}

// produce keys by refund reference so one request's events stay ordered
// within a partition.
func (p *Publisher) produce(ctx context.Context, topic, key string, payload any) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	record := &kgo.Record{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "content-type", Value: []byte("application/json")},
		},
	}
	if err := p.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce to %s: %w", topic, err)
	}
	return nil
}
