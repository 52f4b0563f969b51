// Package registry is the read-only client side of the stakeholder registry:
// KYC identity, declared income band, registered accounts and the refund and
// screening history the AML screener analyses.
package registry

import (
	"context"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	id "adjudicator/pkg/domain"
)

// KYCStatus is the identity verification state held by the registry.
type KYCStatus string

const (
	KYCVerified KYCStatus = "verified"
	KYCPending  KYCStatus = "pending"
	KYCRejected KYCStatus = "rejected"
)

// RiskCategory is the historical risk band assigned at onboarding.
type RiskCategory string

const (
	RiskLow    RiskCategory = "low"
	RiskMedium RiskCategory = "medium"
	RiskHigh   RiskCategory = "high"
)

// PriorRefund is one refund the stakeholder previously requested.
type PriorRefund struct {
	Reference     string          `json:"reference"`
	Amount        decimal.Decimal `json:"amount"`
	RequestedAt   time.Time       `json:"requested_at"`
	PayoutAccount id.AccountID    `json:"payout_account"`
}

// ScreeningEntry records a past sanctions screening outcome.
type ScreeningEntry struct {
	ListVersion string    `json:"list_version"`
	Outcome     string    `json:"outcome"`
	ScreenedAt  time.Time `json:"screened_at"`
}

// Profile is the stakeholder as the registry knows them.
type Profile struct {
	StakeholderID        id.StakeholderID `json:"stakeholder_id"`
	FullName             string           `json:"full_name"`
	DateOfBirth          string           `json:"date_of_birth"`
	KYCStatus            KYCStatus        `json:"kyc_status"`
	RiskCategory         RiskCategory     `json:"risk_category"`
	DeclaredAnnualIncome decimal.Decimal  `json:"declared_annual_income"`
	SourceAccounts       []id.AccountID   `json:"source_accounts"`
	PayoutAccounts       []id.AccountID   `json:"payout_accounts"`
	RefundHistory        []PriorRefund    `json:"refund_history"`
	ScreeningHistory     []ScreeningEntry `json:"screening_history"`
}

// HasPayoutAccount reports whether account is registered for payouts.
func (p *Profile) HasPayoutAccount(account id.AccountID) bool {
	return slices.Contains(p.PayoutAccounts, account)
}

// HasSourceAccount reports whether account originated a payment.
func (p *Profile) HasSourceAccount(account id.AccountID) bool {
	return slices.Contains(p.SourceAccounts, account)
}

// RefundsSince returns prior refunds requested at or after since.
func (p *Profile) RefundsSince(since time.Time) []PriorRefund {
	var out []PriorRefund
	for _, r := range p.RefundHistory {
		if !r.RequestedAt.Before(since) {
			out = append(out, r)
		}
	}
	return out
}

// Source looks up stakeholder profiles. Implementations return an error
// wrapping sentinel.ErrNotFound for unknown stakeholders.
type Source interface {
	Lookup(ctx context.Context, stakeholderID id.StakeholderID) (*Profile, error)
}
