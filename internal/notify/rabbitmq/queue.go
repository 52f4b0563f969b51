// Package rabbitmq delivers operator tasks to a durable RabbitMQ queue.
package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"adjudicator/internal/notify"
)

const (
	DefaultExchange = "adjudicator.operator"
	DefaultQueue    = "adjudicator.operator.tasks"
	routingPrefix   = "operator."
)

// Channel is the subset of *amqp091.Channel the queue uses.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp091.Table) (amqp091.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp091.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// Queue publishes operator tasks as persistent messages routed by task kind.
type Queue struct {
	mu       sync.Mutex
	conn     *amqp091.Connection
	channel  Channel
	exchange string
	logger   *slog.Logger
}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}

// Dial connects and declares the exchange and task queue.
func Dial(amqpURL string, logger *slog.Logger) (*Queue, error) {
	cleanURL, err := sanitizeAMQPURL(amqpURL)
	if err != nil {
		return nil, err
	}
	conn, err := amqp091.DialConfig(cleanURL, amqp091.Config{Dial: amqp091.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	q, err := New(ch, DefaultExchange, DefaultQueue, logger)
	if err != nil {
		conn.Close()
		return nil, err
	}
	q.conn = conn
	return q, nil
}

// New declares the topology on ch and returns a queue publishing to exchange.
func New(ch Channel, exchange, queue string, logger *slog.Logger) (*Queue, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}
	if err := ch.QueueBind(queue, routingPrefix+"#", exchange, false, nil); err != nil {
		return nil, fmt.Errorf("bind queue %s: %w", queue, err)
	}
	return &Queue{channel: ch, exchange: exchange, logger: logger}, nil
}

// Enqueue publishes task. On a channel error the channel is reopened once.
func (q *Queue) Enqueue(ctx context.Context, task notify.OperatorTask) error {
	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encode operator task: %w", err)
	}
	msg := amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    task.TaskID.String(),
		Timestamp:    task.RaisedAt,
		Type:         string(task.Kind),
		Body:         body,
	}
	key := routingPrefix + string(task.Kind)

	q.mu.Lock()
	defer q.mu.Unlock()
	err = q.channel.PublishWithContext(ctx, q.exchange, key, false, false, msg)
	if err == nil {
		return nil
	}
	if q.conn == nil {
		return fmt.Errorf("publish operator task: %w", err)
	}
	q.logger.WarnContext(ctx, "operator task publish failed; reopening channel",
		"refund_id", task.RefundID.String(),
		"error", err,
	)
	ch, chErr := q.conn.Channel()
	if chErr != nil {
		return fmt.Errorf("reopen channel: %w", chErr)
	}
	q.channel = ch
	if err := q.channel.PublishWithContext(ctx, q.exchange, key, false, false, msg); err != nil {
		return fmt.Errorf("publish operator task: %w", err)
	}
	return nil
}

// Close closes the channel and connection.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.channel != nil {
		_ = q.channel.Close()
	}
	if q.conn != nil {
		_ = q.conn.Close()
	}
}
