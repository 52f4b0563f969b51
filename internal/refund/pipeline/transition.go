package pipeline

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"

	"adjudicator/internal/external"
	"adjudicator/internal/notify"
	"adjudicator/internal/refund/models"
	id "adjudicator/pkg/domain"
	dErrors "adjudicator/pkg/domain-errors"
	audit "adjudicator/pkg/platform/audit"
	"adjudicator/pkg/platform/sentinel"
	"adjudicator/pkg/requestcontext"
)

// change collects everything one mutation produces. Records are persisted
// with the request; events are delivered only after the write commits.
type change struct {
	now       time.Time
	actor     string
	requestID string

	records []audit.Record
	events  []notify.StateChanged
	reports []notify.SuspicionReport
	tasks   []notify.OperatorTask

	// then runs after the lock is released, e.g. screening a request that a
	// clearance returned to L1.
	then func(ctx context.Context) (*models.RefundRequest, error)
}

func newChange(ctx context.Context) *change {
	return &change{
		now:       requestcontext.Now(ctx),
		actor:     actorOf(ctx),
		requestID: requestcontext.RequestID(ctx),
	}
}

// actorOf renders the caller as role:subject, defaulting to the system.
func actorOf(ctx context.Context) string {
	c := requestcontext.Principal(ctx)
	if c.IsZero() {
		return string(models.RoleSystem)
	}
	return c.Role + ":" + c.Subject
}

func (c *change) record(action audit.Action, from, to models.State, rationale string, inputs map[string]string) {
	c.records = append(c.records, audit.Record{
		Timestamp: c.now,
		Actor:     c.actor,
		Action:    action,
		Category:  action.Category(),
		From:      string(from),
		To:        string(to),
		Inputs:    maps.Clone(inputs),
		Rationale: rationale,
		RequestID: c.requestID,
	})
}

// confidential records an action that must only be visible to compliance.
func (c *change) confidential(action audit.Action, rationale string, inputs map[string]string) {
	c.record(action, "", "", rationale, inputs)
	c.records[len(c.records)-1].Category = audit.CategoryConfidential
}

// transition moves req to state `to` if the edge exists. Entering Frozen
// remembers the interrupted state so a clearance can resume it.
func (c *change) transition(req *models.RefundRequest, to models.State, rationale string, inputs map[string]string) error {
	from := req.State
	if !models.CanTransition(from, to) {
		return dErrors.New(dErrors.CodeInvalidState,
			fmt.Sprintf("request cannot move from %s to %s", from, to))
	}
	if to == models.StateFrozen {
		req.PriorState = from
	}
	req.State = to
	req.StateEnteredAt = c.now

	action := audit.ActionTransition
	if to == models.StateFrozen {
		action = audit.ActionFrozen
	}
	c.record(action, from, to, rationale, inputs)
	if from == models.StateFrozen {
		c.records[len(c.records)-1].Category = audit.CategoryConfidential
	}
	if ev, ok := notify.NewStateChanged(req.ID, from, to, c.now); ok {
		c.events = append(c.events, ev)
	}
	return nil
}

func (c *change) empty() bool { return len(c.records) == 0 }

// mutate is the single write path: lock, load, apply fn, persist the request
// and its trail records atomically, then deliver events. When fn records
// nothing the request is returned unchanged and nothing is written.
func (s *Service) mutate(ctx context.Context, refundID id.RefundID, fn func(req *models.RefundRequest, c *change) error) (*models.RefundRequest, error) {
	req, c, err := s.apply(ctx, refundID, fn)
	if err != nil {
		return nil, err
	}
	if c.then == nil {
		return req, nil
	}
	next, err := c.then(ctx)
	if err != nil {
		// The committed change stands; the monitor picks the request up again.
		s.logger.WarnContext(ctx, "follow-up step failed",
			"refund_id", refundID.String(),
			"error", err,
		)
		return req, nil
	}
	return next, nil
}

func (s *Service) apply(ctx context.Context, refundID id.RefundID, fn func(req *models.RefundRequest, c *change) error) (*models.RefundRequest, *change, error) {
	release, err := s.locker.Acquire(ctx, "refund:"+refundID.String())
	if err != nil {
		return nil, nil, translate(err)
	}
	defer release()

	req, err := s.store.Get(ctx, refundID)
	if err != nil {
		return nil, nil, translate(err)
	}
	expected := req.Version
	c := newChange(ctx)

	if err := fn(req, c); err != nil {
		return nil, nil, err
	}
	if c.empty() {
		return req, c, nil
	}
	if err := s.commit(ctx, req, expected, c); err != nil {
		return nil, nil, err
	}
	return req, c, nil
}

func (s *Service) commit(ctx context.Context, req *models.RefundRequest, expected int, c *change) error {
	req.Version = expected + 1
	req.LastActivityAt = c.now
	for i := range c.records {
		req.AuditSeq++
		c.records[i].RefundID = req.ID
		c.records[i].Seq = req.AuditSeq
	}

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if expected == 0 {
			if err := s.store.Create(ctx, req); err != nil {
				return err
			}
		} else if err := s.store.Update(ctx, req, expected); err != nil {
			return err
		}
		for _, r := range c.records {
			if err := s.audit.Emit(ctx, r); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return translate(err)
	}

	for _, r := range c.records {
		if r.Action == audit.ActionTransition || r.Action == audit.ActionFrozen {
			s.metrics.IncTransition(r.From, r.To)
			s.logger.InfoContext(ctx, "refund transitioned",
				"refund_id", req.ID.String(),
				"from", r.From,
				"to", r.To,
				"actor", r.Actor,
			)
		}
	}
	s.deliver(ctx, c)
	return nil
}

// deliver sends committed events. Failures are logged: the trail already
// holds the facts and the relay retries public events.
func (s *Service) deliver(ctx context.Context, c *change) {
	for _, ev := range c.events {
		if err := s.publisher.PublishStateChanged(ctx, ev); err != nil {
			s.logger.WarnContext(ctx, "status event not published",
				"reference_id", ev.ReferenceID,
				"error", err,
			)
		}
	}
	for _, r := range c.reports {
		if err := s.reporter.FileSuspicionReport(ctx, r); err != nil {
			s.metrics.IncReportFailure()
			s.logger.ErrorContext(ctx, "suspicion report filing failed",
				"refund_id", r.RefundID.String(),
				"report_id", r.ReportID.String(),
				"confidential", true,
				"error", err,
			)
		}
	}
	for _, t := range c.tasks {
		if err := s.operators.Enqueue(ctx, t); err != nil {
			s.logger.ErrorContext(ctx, "operator task not enqueued",
				"refund_id", t.RefundID.String(),
				"kind", string(t.Kind),
				"error", err,
			)
		}
	}
}

func (c *change) task(kind notify.TaskKind, refundID id.RefundID, reason string, details map[string]string) {
	c.tasks = append(c.tasks, notify.OperatorTask{
		TaskID:   uuid.New(),
		Kind:     kind,
		RefundID: refundID,
		Reason:   reason,
		RaisedAt: c.now,
		Details:  details,
	})
}

// translate maps store, lock and collaborator failures onto domain codes.
// Domain errors pass through unchanged.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var de *dErrors.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "refund request not found")
	case errors.Is(err, sentinel.ErrConflict), errors.Is(err, sentinel.ErrLocked):
		return dErrors.Wrap(err, dErrors.CodeConflict, "request is being updated; retry")
	case external.IsUnavailable(err), errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeInfrastructure, "processing delayed")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return dErrors.Wrap(err, dErrors.CodeInfrastructure, "processing delayed")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "internal error")
}
