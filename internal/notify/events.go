// Package notify defines the outbound event surfaces of the engine:
//
//   - StateChanged, the public status stream a stakeholder-facing surface
//     consumes. It only ever carries public statuses and summaries.
//   - SuspicionReport, the confidential STR obligation. It travels on its own
//     topic and never on the public stream.
//   - OperatorTask, work items for the operations queue.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"adjudicator/internal/refund/models"
	id "adjudicator/pkg/domain"
)

// StateChanged is the public event. It must never carry risk levels,
// indicators or anything that would tip off the stakeholder.
type StateChanged struct {
	ReferenceID string              `json:"reference_id"`
	Status      models.PublicStatus `json:"status"`
	Summary     string              `json:"summary"`
	OccurredAt  time.Time           `json:"occurred_at"`
}

// NewStateChanged builds the public event for a request entering state.
// It returns false when the public status did not change.
func NewStateChanged(refundID id.RefundID, from, to models.State, at time.Time) (StateChanged, bool) {
	if from != "" && from.Public() == to.Public() {
		return StateChanged{}, false
	}
	status := to.Public()
	return StateChanged{
		ReferenceID: refundID.String(),
		Status:      status,
		Summary:     status.Summary(),
		OccurredAt:  at,
	}, true
}

// SuspicionReport is the confidential STR filing.
type SuspicionReport struct {
	ReportID      uuid.UUID          `json:"report_id"`
	RefundID      id.RefundID        `json:"refund_id"`
	StakeholderID id.StakeholderID   `json:"stakeholder_id"`
	TransactionID id.TransactionID   `json:"transaction_id"`
	Amount        decimal.Decimal    `json:"amount"`
	Indicators    []models.Indicator `json:"indicators"`
	ListVersion   string             `json:"list_version"`
	DetectedIn    models.State       `json:"detected_in"`
	DetectedAt    time.Time          `json:"detected_at"`
}

// TaskKind classifies operator work.
type TaskKind string

const (
	TaskParkedForRetry TaskKind = "parked_for_retry"
	TaskFrozenOverdue  TaskKind = "frozen_overdue"
	TaskL3SLABreach    TaskKind = "l3_sla_breach"
)

// OperatorTask asks a human to look at a request.
type OperatorTask struct {
	TaskID   uuid.UUID         `json:"task_id"`
	Kind     TaskKind          `json:"kind"`
	RefundID id.RefundID       `json:"refund_id"`
	Reason   string            `json:"reason"`
	RaisedAt time.Time         `json:"raised_at"`
	Details  map[string]string `json:"details,omitempty"`
}

// StatePublisher publishes public status events.
type StatePublisher interface {
	PublishStateChanged(ctx context.Context, ev StateChanged) error
}

// ComplianceReporter files suspicion reports on the confidential channel.
type ComplianceReporter interface {
	FileSuspicionReport(ctx context.Context, report SuspicionReport) error
}

// OperatorQueue receives operator tasks.
type OperatorQueue interface {
	Enqueue(ctx context.Context, task OperatorTask) error
}
