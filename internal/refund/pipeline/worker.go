package pipeline

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	id "adjudicator/pkg/domain"
	dErrors "adjudicator/pkg/domain-errors"
	"adjudicator/pkg/requestcontext"
)

// Worker drives submitted requests through automated processing on a fixed
// pool of goroutines. Distinct requests share no state; the per-request lock
// serializes anything else touching the same request.
type Worker struct {
	svc     *Service
	queue   chan id.RefundID
	workers int
	logger  *slog.Logger
}

func NewWorker(svc *Service, workers, buffer int, logger *slog.Logger) *Worker {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		svc:     svc,
		queue:   make(chan id.RefundID, buffer),
		workers: workers,
		logger:  logger,
	}
}

// Enqueue schedules a request. It blocks while the queue is full.
func (w *Worker) Enqueue(ctx context.Context, refundID id.RefundID) error {
	select {
	case w.queue <- refundID:
		return nil
	case <-ctx.Done():
		return dErrors.Wrap(ctx.Err(), dErrors.CodeInfrastructure, "processing queue full")
	}
}

// Run processes the queue until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < w.workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case refundID := <-w.queue:
					w.process(ctx, refundID)
				}
			}
		})
	}
	return g.Wait()
}

func (w *Worker) process(ctx context.Context, refundID id.RefundID) {
	ctx = requestcontext.WithPrincipal(ctx, requestcontext.Caller{Subject: "worker", Role: "system"})
	req, err := w.svc.Process(ctx, refundID)
	if err != nil {
		w.logger.WarnContext(ctx, "processing failed",
			"refund_id", refundID.String(),
			"code", string(dErrors.CodeOf(err)),
			"error", err,
		)
		return
	}
	w.logger.DebugContext(ctx, "processed",
		"refund_id", refundID.String(),
		"state", string(req.State),
	)
}
