package external

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"adjudicator/pkg/platform/circuit"
)

// Policy bounds a single logical call.
type Policy struct {
	Attempts        int
	Timeout         time.Duration
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultPolicy tries three times with a two second budget per attempt.
func DefaultPolicy() Policy {
	return Policy{
		Attempts:        3,
		Timeout:         2 * time.Second,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     time.Second,
	}
}

// Client carries the per-collaborator call policy and breaker.
type Client struct {
	name    string
	policy  Policy
	breaker *circuit.Breaker
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(c *Client) {
		c.breaker = b
	}
}

// NewClient creates a Client for the named collaborator.
func NewClient(name string, policy Policy, opts ...Option) *Client {
	if policy.Attempts <= 0 {
		policy.Attempts = 1
	}
	c := &Client{
		name:    name,
		policy:  policy,
		breaker: circuit.New(name),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Name() string { return c.name }

// Breaker exposes the breaker for health reporting.
func (c *Client) Breaker() *circuit.Breaker { return c.breaker }

func (c *Client) newBackOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	if c.policy.InitialInterval > 0 {
		exp.InitialInterval = c.policy.InitialInterval
	}
	if c.policy.MaxInterval > 0 {
		exp.MaxInterval = c.policy.MaxInterval
	}
	exp.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(c.policy.Attempts-1)), ctx)
}

// Do runs fn under the client's policy. Every returned error is an *Error.
// A not-found answer counts as a healthy response and is never retried.
func Do[T any](ctx context.Context, c *Client, fn func(ctx context.Context) (T, error)) (T, error) {
	op := func() (T, error) {
		var zero T
		if !c.breaker.Allow() {
			return zero, backoff.Permanent(Classify(c.name, ErrCircuitOpen))
		}

		attemptCtx := ctx
		if c.policy.Timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, c.policy.Timeout)
			defer cancel()
		}

		v, err := fn(attemptCtx)
		if err == nil {
			c.recordSuccess(ctx)
			return v, nil
		}

		classified := Classify(c.name, err)
		switch CategoryOf(classified) {
		case CategoryNotFound, CategoryBadData:
			c.recordSuccess(ctx)
			return zero, backoff.Permanent(classified)
		}
		c.recordFailure(ctx, classified)
		if !IsRetryable(classified) || ctx.Err() != nil {
			return zero, backoff.Permanent(classified)
		}
		return zero, classified
	}

	v, err := backoff.RetryWithData(op, c.newBackOff(ctx))
	if err != nil {
		return v, Classify(c.name, err)
	}
	return v, nil
}

func (c *Client) recordSuccess(ctx context.Context) {
	if _, change := c.breaker.RecordSuccess(); change.Closed && c.logger != nil {
		c.logger.InfoContext(ctx, "collaborator circuit closed", "collaborator", c.name)
	}
}

func (c *Client) recordFailure(ctx context.Context, err error) {
	_, change := c.breaker.RecordFailure()
	if c.logger == nil {
		return
	}
	if change.Opened {
		c.logger.ErrorContext(ctx, "collaborator circuit opened",
			"collaborator", c.name,
			"error", err,
		)
		return
	}
	c.logger.WarnContext(ctx, "collaborator call failed",
		"collaborator", c.name,
		"category", string(CategoryOf(err)),
		"error", err,
	)
}
