package notify

import (
	"context"
	"log/slog"
	"time"
)

// Relay decouples public event delivery from request processing. Events are
// buffered in order and forwarded by Run; a failed delivery stays at the
// front of the buffer and is retried on the next tick.
type Relay struct {
	buf      *ringBuffer
	next     StatePublisher
	logger   *slog.Logger
	batch    int
	interval time.Duration
	wake     chan struct{}
}

type RelayOption func(*Relay)

func WithCapacity(n int) RelayOption {
	return func(r *Relay) {
		r.buf = newRingBuffer(n)
	}
}

func WithFlushInterval(d time.Duration) RelayOption {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithRelayLogger(logger *slog.Logger) RelayOption {
	return func(r *Relay) {
		r.logger = logger
	}
}

func NewRelay(next StatePublisher, opts ...RelayOption) *Relay {
	r := &Relay{
		buf:      newRingBuffer(0),
		next:     next,
		logger:   slog.Default(),
		batch:    100,
		interval: time.Second,
		wake:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// PublishStateChanged buffers ev and never blocks on the downstream.
func (r *Relay) PublishStateChanged(_ context.Context, ev StateChanged) error {
	r.buf.Enqueue(ev)
	select {
	case r.wake <- struct{}{}:
	default:
	}
	return nil
}

// Pending is the number of undelivered events.
func (r *Relay) Pending() int { return r.buf.Len() }

// Dropped is the number of events lost to overflow.
func (r *Relay) Dropped() int64 { return r.buf.Dropped() }

// Run forwards buffered events until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			r.Flush(flushCtx)
			cancel()
			return ctx.Err()
		case <-r.wake:
			r.Flush(ctx)
		case <-ticker.C:
			r.Flush(ctx)
		}
	}
}

// Flush delivers as many buffered events as the downstream accepts.
func (r *Relay) Flush(ctx context.Context) {
	for {
		events := r.buf.Peek(r.batch)
		if len(events) == 0 {
			return
		}
		for i, ev := range events {
			if err := r.next.PublishStateChanged(ctx, ev); err != nil {
				r.buf.Discard(i)
				r.logger.WarnContext(ctx, "status event delivery failed; will retry",
					"reference_id", ev.ReferenceID,
					"pending", r.buf.Len(),
					"error", err,
				)
				return
			}
		}
		r.buf.Discard(len(events))
	}
}
