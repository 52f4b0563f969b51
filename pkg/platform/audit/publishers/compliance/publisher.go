// Package compliance provides a fail-closed publisher for refund trail records.
//
// Emit writes synchronously and the caller blocks until the write succeeds. If the
// write fails an error is returned and the calling operation MUST fail: a
// transition that cannot be recorded must not happen.
package compliance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	id "adjudicator/pkg/domain"
	audit "adjudicator/pkg/platform/audit"
)

// Publisher emits trail records with fail-closed semantics.
type Publisher struct {
	store   audit.Store
	logger  *slog.Logger
	metrics *Metrics
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets a logger for error reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// New creates a compliance publisher over store.
func New(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store: store,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit synchronously appends a record to the trail.
func (p *Publisher) Emit(ctx context.Context, record audit.Record) error {
	start := time.Now()

	if record.RefundID.IsNil() {
		return fmt.Errorf("audit record requires RefundID")
	}
	if record.Action == "" {
		return fmt.Errorf("audit record requires Action")
	}
	if record.Seq < 1 {
		return fmt.Errorf("audit record requires a positive Seq")
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}
	if record.Category == "" {
		record.Category = record.Action.Category()
	}

	if err := p.store.Append(ctx, record); err != nil {
		p.metrics.IncPersistFailures()
		if p.logger != nil {
			p.logger.ErrorContext(ctx, "CRITICAL: refund audit failed",
				"action", record.Action,
				"refund_id", record.RefundID,
				"seq", record.Seq,
				"error", err,
			)
		}
		return fmt.Errorf("audit persistence failed: %w", err)
	}

	p.metrics.ObservePersistDuration(time.Since(start).Seconds())
	p.metrics.IncEventsEmitted(string(record.Category))
	return nil
}

// List returns the full trail for a request.
func (p *Publisher) List(ctx context.Context, refundID id.RefundID) ([]audit.Record, error) {
	return p.store.ListByRefund(ctx, refundID)
}
