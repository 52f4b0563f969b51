package models

// State is a position in the verification pipeline.
type State string

const (
	StateReceived               State = "received"
	StateAcknowledged           State = "acknowledged"
	StateL1Screening            State = "l1_screening"
	StateL1Pass                 State = "l1_pass"
	StateL1Flagged              State = "l1_flagged"
	StateL1AutoReject           State = "l1_auto_reject"
	StateL2Review               State = "l2_review"
	StateL3Review               State = "l3_review"
	StateDisbursing             State = "disbursing"
	StateApproved               State = "approved"
	StateRejected               State = "rejected"
	StateExpired                State = "expired"
	StateFrozen                 State = "frozen"
	StatePendingRetry           State = "pending_retry"
	StateWithdrawn              State = "withdrawn"
	StateWithdrawnByStakeholder State = "withdrawn_by_stakeholder"
)

var transitions = map[State][]State{
	StateReceived:     {StateAcknowledged, StateWithdrawn, StateExpired, StateFrozen},
	StateAcknowledged: {StateL1Screening, StateWithdrawn, StateExpired, StateFrozen},
	StateL1Screening: {
		StateL1Pass, StateL1Flagged, StateL1AutoReject,
		StateFrozen, StatePendingRetry, StateWithdrawn, StateExpired,
	},
	StateL1Pass:    {StateL2Review, StateFrozen},
	StateL1Flagged: {StateL2Review, StateFrozen},
	StateL2Review: {
		StateDisbursing, StateRejected, StateL3Review,
		StateFrozen, StateWithdrawnByStakeholder, StateExpired,
	},
	StateL3Review: {
		StateDisbursing, StateRejected,
		StateFrozen, StateWithdrawnByStakeholder, StateExpired,
	},
	StateDisbursing:   {StateApproved, StateFrozen},
	StatePendingRetry: {StateL1Screening, StateWithdrawn, StateExpired, StateFrozen},
	// Leaving Frozen needs an external clearance: either back to the state it
	// interrupted, a fresh L1 pass, or rejection when the hold is upheld.
	StateFrozen: {
		StateReceived, StateAcknowledged, StateL1Screening, StatePendingRetry,
		StateL2Review, StateL3Review, StateDisbursing, StateRejected,
	},
}

// CanTransition reports whether from -> to is a pipeline edge.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s State) IsTerminal() bool {
	switch s {
	case StateApproved, StateRejected, StateL1AutoReject, StateExpired,
		StateWithdrawn, StateWithdrawnByStakeholder:
		return true
	}
	return false
}

// Tier returns the review tier responsible for the state, or 0.
func (s State) Tier() int {
	switch s {
	case StateL1Screening, StateL1Pass, StateL1Flagged, StateL1AutoReject:
		return 1
	case StateL2Review:
		return 2
	case StateL3Review:
		return 3
	}
	return 0
}

// NonTerminalStates lists every state the monitor sweeps.
func NonTerminalStates() []State {
	out := make([]State, 0, len(transitions))
	for s := range transitions {
		if !s.IsTerminal() {
			out = append(out, s)
		}
	}
	return out
}

// PublicStatus is the only view of a request exposed to the stakeholder.
type PublicStatus string

const (
	PublicReceived          PublicStatus = "received"
	PublicUnderReview       PublicStatus = "under_review"
	PublicProcessingDelayed PublicStatus = "processing_delayed"
	PublicApproved          PublicStatus = "approved"
	PublicDisbursed         PublicStatus = "disbursed"
	PublicRejected          PublicStatus = "rejected"
	PublicExpired           PublicStatus = "expired"
	PublicWithdrawn         PublicStatus = "withdrawn"
)

// Public maps internal state to the stakeholder-facing status. Frozen reads as
// under_review so a compliance hold is indistinguishable from normal review.
func (s State) Public() PublicStatus {
	switch s {
	case StateReceived, StateAcknowledged:
		return PublicReceived
	case StateL1Screening, StateL1Pass, StateL1Flagged, StateL2Review, StateL3Review, StateFrozen:
		return PublicUnderReview
	case StatePendingRetry:
		return PublicProcessingDelayed
	case StateDisbursing:
		return PublicApproved
	case StateApproved:
		return PublicDisbursed
	case StateRejected, StateL1AutoReject:
		return PublicRejected
	case StateExpired:
		return PublicExpired
	case StateWithdrawn, StateWithdrawnByStakeholder:
		return PublicWithdrawn
	}
	return PublicUnderReview
}

// Summary is the fixed public-safe sentence for a status.
func (p PublicStatus) Summary() string {
	switch p {
	case PublicReceived:
		return "Your refund request has been received."
	case PublicUnderReview:
		return "Your refund request is under review."
	case PublicProcessingDelayed:
		return "Processing of your refund request is delayed."
	case PublicApproved:
		return "Your refund has been approved and is being disbursed."
	case PublicDisbursed:
		return "Your refund has been disbursed."
	case PublicRejected:
		return "Your refund request has been rejected."
	case PublicExpired:
		return "Your refund request has expired."
	case PublicWithdrawn:
		return "Your refund request has been withdrawn."
	}
	return ""
}
