package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "adjudicator/pkg/domain"
)

func TestTransitions_TerminalStatesHaveNoExits(t *testing.T) {
	for from := range transitions {
		assert.False(t, from.IsTerminal(), "%s is terminal but listed with exits", from)
	}
	for _, terminal := range []State{StateApproved, StateRejected, StateL1AutoReject, StateExpired, StateWithdrawn, StateWithdrawnByStakeholder} {
		assert.Empty(t, transitions[terminal])
	}
}

func TestTransitions_ApprovedOnlyReachableFromDisbursing(t *testing.T) {
	for from, targets := range transitions {
		for _, to := range targets {
			if to == StateApproved {
				assert.Equal(t, StateDisbursing, from)
			}
		}
	}
}

func TestTransitions_L1AutoRejectNeverReachesReview(t *testing.T) {
	assert.True(t, CanTransition(StateL1Screening, StateL1AutoReject))
	assert.False(t, CanTransition(StateL1AutoReject, StateL2Review))
	assert.False(t, CanTransition(StateL1Screening, StateApproved))
}

func TestTransitions_WithdrawalSplitsAtHumanReview(t *testing.T) {
	for _, s := range []State{StateReceived, StateAcknowledged, StateL1Screening} {
		assert.True(t, CanTransition(s, StateWithdrawn), s)
		assert.False(t, CanTransition(s, StateWithdrawnByStakeholder), s)
	}
	for _, s := range []State{StateL2Review, StateL3Review} {
		assert.True(t, CanTransition(s, StateWithdrawnByStakeholder), s)
		assert.False(t, CanTransition(s, StateWithdrawn), s)
	}
}

func TestPublic_FrozenIsIndistinguishableFromReview(t *testing.T) {
	assert.Equal(t, StateL2Review.Public(), StateFrozen.Public())
	assert.Equal(t, PublicUnderReview, StateFrozen.Public())
	assert.NotContains(t, string(StateFrozen.Public().Summary()), "frozen")
}

func TestPublic_EveryStateHasSummary(t *testing.T) {
	all := append(NonTerminalStates(), StateApproved, StateRejected, StateL1AutoReject, StateExpired, StateWithdrawn, StateWithdrawnByStakeholder)
	for _, s := range all {
		assert.NotEmpty(t, s.Public().Summary(), s)
	}
}

func TestParseEnums(t *testing.T) {
	_, err := ParseCategory("completed-transaction")
	require.Error(t, err)
	c, err := ParseCategory("share-purchase")
	require.NoError(t, err)
	assert.True(t, c.IsInvestment())
	assert.False(t, CategoryPlatformFee.IsInvestment())

	_, err = ParseGround("bored")
	require.Error(t, err)
	_, err = ParseStage("completed")
	require.NoError(t, err)
	_, err = ParseEvidenceType("selfie")
	require.Error(t, err)
}

func TestRoles(t *testing.T) {
	assert.True(t, RoleFinance.IsCommittee())
	assert.True(t, RoleSenior.IsCommittee())
	assert.False(t, RoleReviewer.IsCommittee())
}

func TestClone_IsDeep(t *testing.T) {
	r := &RefundRequest{
		ID:       id.NewRefundID(),
		Grounds:  []Ground{GroundCoolingOff},
		Flags:    []string{FlagEDDRequired},
		Alerts:   map[string]time.Time{},
		Risk:     &RiskVerdict{Level: RiskClear, Indicators: []Indicator{{Code: "a"}}},
		Decision: &DecisionRecord{Deductions: []Deduction{{Kind: "processing", Amount: decimal.NewFromInt(1)}}},
	}
	c := r.Clone()
	c.Grounds[0] = GroundFraudMisrepresentation
	c.Flags[0] = "x"
	c.Risk.Indicators[0].Code = "b"
	c.Decision.Deductions[0].Kind = "other"
	c.Alerts["k"] = time.Time{}

	assert.Equal(t, GroundCoolingOff, r.Grounds[0])
	assert.Equal(t, FlagEDDRequired, r.Flags[0])
	assert.Equal(t, "a", r.Risk.Indicators[0].Code)
	assert.Equal(t, "processing", r.Decision.Deductions[0].Kind)
	assert.Empty(t, r.Alerts)
}

func TestFlagsAndEvidence(t *testing.T) {
	r := &RefundRequest{}
	r.AddFlag(FlagEDDRequired)
	r.AddFlag(FlagEDDRequired)
	assert.Len(t, r.Flags, 1)
	r.RemoveFlag(FlagEDDRequired)
	assert.False(t, r.HasFlag(FlagEDDRequired))

	r.Evidence = []EvidenceRef{{Type: EvidenceIdentity, Status: EvidenceRejectedForged}}
	assert.False(t, r.HasEvidence(EvidenceIdentity), "forged documents do not count")
	r.Evidence = append(r.Evidence, EvidenceRef{Type: EvidenceIdentity, Status: EvidenceUnverified})
	assert.True(t, r.HasEvidence(EvidenceIdentity))
}

func TestTransitions_EveryNonTerminalStateCanFreeze(t *testing.T) {
	for _, s := range NonTerminalStates() {
		if s == StateFrozen {
			continue
		}
		assert.True(t, CanTransition(s, StateFrozen), "%s cannot enter frozen", s)
	}
}
