// Package audit defines the append-only trail of refund request transitions.
//
// Every state change, vote, clearance and amendment is recorded as a Record with
// a per-request sequence number. Stores accept a record only when its sequence
// directly follows the last stored one, so history can be extended but never
// rewritten or reordered.
package audit

import (
	"context"
	"time"

	id "adjudicator/pkg/domain"
)

// Category classifies records by audience and retention.
type Category string

const (
	// CategoryCompliance covers decisions and transitions with regulatory
	// significance. Retained for the statutory window.
	CategoryCompliance Category = "compliance"

	// CategoryOperations covers routine bookkeeping such as acknowledgements,
	// reviewer assignment and operator alerts.
	CategoryOperations Category = "operations"

	// CategoryConfidential covers AML facts (suspicion, report filing,
	// clearance). Visible only to compliance and senior roles.
	CategoryConfidential Category = "confidential"
)

// Action names the operation a record captures.
type Action string

const (
	ActionSubmitted        Action = "submitted"
	ActionEvidenceAttached Action = "evidence_attached"
	ActionTransition       Action = "transition"
	ActionAssigned         Action = "reviewer_assigned"
	ActionReviewRecorded   Action = "review_recorded"
	ActionVoteRecorded     Action = "vote_recorded"
	ActionSignOff          Action = "signoff_recorded"
	ActionDecision         Action = "decision_recorded"
	ActionAmendment        Action = "decision_amended"
	ActionFrozen           Action = "frozen"
	ActionReportFiled      Action = "suspicion_report_filed"
	ActionClearance        Action = "clearance_recorded"
	ActionAlert            Action = "alert_raised"
	ActionParked           Action = "parked_for_retry"
	ActionRescreened       Action = "rescreened"
)

var actionCategories = map[Action]Category{
	ActionSubmitted:        CategoryCompliance,
	ActionEvidenceAttached: CategoryCompliance,
	ActionTransition:       CategoryCompliance,
	ActionReviewRecorded:   CategoryCompliance,
	ActionVoteRecorded:     CategoryCompliance,
	ActionSignOff:          CategoryCompliance,
	ActionDecision:         CategoryCompliance,
	ActionAmendment:        CategoryCompliance,
	ActionFrozen:           CategoryConfidential,
	ActionReportFiled:      CategoryConfidential,
	ActionClearance:        CategoryConfidential,
	ActionRescreened:       CategoryConfidential,
	ActionAssigned:         CategoryOperations,
	ActionAlert:            CategoryOperations,
	ActionParked:           CategoryOperations,
}

// Category returns the category for this action.
// Unknown actions default to CategoryCompliance so nothing is under-retained.
func (a Action) Category() Category {
	if cat, ok := actionCategories[a]; ok {
		return cat
	}
	return CategoryCompliance
}

// Record is one immutable entry in a refund request's trail.
type Record struct {
	RefundID  id.RefundID
	Seq       int
	Timestamp time.Time
	Actor     string
	Action    Action
	Category  Category
	From      string
	To        string
	// Inputs lists the facts considered for this step, keyed by name.
	Inputs    map[string]string
	Rationale string
	RequestID string
}

// Store persists trail records. Implementations must reject a record whose
// Seq is not exactly one past the highest stored Seq for the same refund.
type Store interface {
	Append(ctx context.Context, record Record) error
	ListByRefund(ctx context.Context, refundID id.RefundID) ([]Record, error)
}

// Visible filters out confidential records unless the caller may see them.
func Visible(records []Record, includeConfidential bool) []Record {
	if includeConfidential {
		return records
	}
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if r.Category != CategoryConfidential {
			out = append(out, r)
		}
	}
	return out
}
