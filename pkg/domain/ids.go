// Package domain holds the typed identifiers shared across the adjudication engine.
//
// Each identifier is a distinct named type over uuid.UUID so that a refund id can
// never be passed where a stakeholder id is expected. Parse* functions are the
// only trust-boundary constructors; they reject empty, malformed and nil values.
package domain

import (
	"strings"
	"unicode"

	"github.com/google/uuid"

	dErrors "adjudicator/pkg/domain-errors"
)

type (
	RefundID      uuid.UUID
	StakeholderID uuid.UUID
	EvidenceID    uuid.UUID
	ReviewerID    uuid.UUID
)

func NewRefundID() RefundID     { return RefundID(uuid.New()) }
func NewEvidenceID() EvidenceID { return EvidenceID(uuid.New()) }

func (id RefundID) String() string      { return uuid.UUID(id).String() }
func (id StakeholderID) String() string { return uuid.UUID(id).String() }
func (id EvidenceID) String() string    { return uuid.UUID(id).String() }
func (id ReviewerID) String() string    { return uuid.UUID(id).String() }

func (id RefundID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id StakeholderID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id EvidenceID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id ReviewerID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// Text marshalling keeps ids readable in JSON documents and cache entries.

func (id RefundID) MarshalText() ([]byte, error)      { return uuid.UUID(id).MarshalText() }
func (id StakeholderID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id EvidenceID) MarshalText() ([]byte, error)    { return uuid.UUID(id).MarshalText() }
func (id ReviewerID) MarshalText() ([]byte, error)    { return uuid.UUID(id).MarshalText() }

func (id *RefundID) UnmarshalText(b []byte) error      { return unmarshalUUID((*uuid.UUID)(id), b) }
func (id *StakeholderID) UnmarshalText(b []byte) error { return unmarshalUUID((*uuid.UUID)(id), b) }
func (id *EvidenceID) UnmarshalText(b []byte) error    { return unmarshalUUID((*uuid.UUID)(id), b) }
func (id *ReviewerID) UnmarshalText(b []byte) error    { return unmarshalUUID((*uuid.UUID)(id), b) }

func unmarshalUUID(dst *uuid.UUID, b []byte) error {
	if len(b) == 0 {
		*dst = uuid.Nil
		return nil
	}
	return dst.UnmarshalText(b)
}

func ParseRefundID(s string) (RefundID, error) {
	u, err := parseUUID(s, "refund id")
	return RefundID(u), err
}

func ParseStakeholderID(s string) (StakeholderID, error) {
	u, err := parseUUID(s, "stakeholder id")
	return StakeholderID(u), err
}

func ParseEvidenceID(s string) (EvidenceID, error) {
	u, err := parseUUID(s, "evidence id")
	return EvidenceID(u), err
}

func ParseReviewerID(s string) (ReviewerID, error) {
	u, err := parseUUID(s, "reviewer id")
	return ReviewerID(u), err
}

func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return u, nil
}

// TransactionID references the originating payment on the platform ledger.
type TransactionID string

// AccountID references a payout or source-of-payment bank account.
type AccountID string

const maxReferenceLength = 64

func ParseTransactionID(s string) (TransactionID, error) {
	ref, err := parseReference(s, "transaction id")
	return TransactionID(ref), err
}

func ParseAccountID(s string) (AccountID, error) {
	ref, err := parseReference(s, "account id")
	return AccountID(ref), err
}

// parseReference accepts opaque external references made of letters, digits,
// dashes, underscores and dots.
func parseReference(s, label string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, label+" is required")
	}
	if len(s) > maxReferenceLength {
		return "", dErrors.New(dErrors.CodeInvalidInput, label+" is too long")
	}
	for _, r := range s {
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' || r == '.') {
			return "", dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
		}
	}
	return s, nil
}
