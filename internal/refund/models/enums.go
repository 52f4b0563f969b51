package models

import (
	"slices"

	dErrors "adjudicator/pkg/domain-errors"
)

// Category is the kind of transaction the refund is claimed against.
type Category string

const (
	CategorySubscriptionPreAllotment  Category = "subscription-pre-allotment"
	CategorySubscriptionPostAllotment Category = "subscription-post-allotment"
	CategorySharePurchase             Category = "share-purchase"
	CategoryAdvisoryService           Category = "advisory-service"
	CategoryPlatformFee               Category = "platform-fee"
	CategoryTechnicalError            Category = "technical-error"
)

var categories = []Category{
	CategorySubscriptionPreAllotment,
	CategorySubscriptionPostAllotment,
	CategorySharePurchase,
	CategoryAdvisoryService,
	CategoryPlatformFee,
	CategoryTechnicalError,
}

// IsInvestment reports whether the category moves money into a security.
func (c Category) IsInvestment() bool {
	switch c {
	case CategorySubscriptionPreAllotment, CategorySubscriptionPostAllotment, CategorySharePurchase:
		return true
	}
	return false
}

func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !slices.Contains(categories, c) {
		return "", dErrors.New(dErrors.CodeValidation, "unknown transaction category")
	}
	return c, nil
}

// Stage is where the underlying transaction sits in its own lifecycle.
type Stage string

const (
	StagePending    Stage = "pending"
	StageInProgress Stage = "in_progress"
	StageAllotted   Stage = "allotted"
	// StageCompleted is a settled or transferred transaction.
	StageCompleted Stage = "completed"
)

func ParseStage(s string) (Stage, error) {
	switch st := Stage(s); st {
	case StagePending, StageInProgress, StageAllotted, StageCompleted:
		return st, nil
	}
	return "", dErrors.New(dErrors.CodeValidation, "unknown transaction stage")
}

// Ground is a reason the stakeholder asserts for the refund.
type Ground string

const (
	GroundVoluntaryWithdrawal     Ground = "voluntary-withdrawal"
	GroundIssuerCancellation      Ground = "issuer-cancellation"
	GroundPlatformDefault         Ground = "platform-default"
	GroundTechnicalError          Ground = "technical-error"
	GroundDuplicateCharge         Ground = "duplicate-charge"
	GroundUnauthorizedTransaction Ground = "unauthorized-transaction"
	GroundFraudMisrepresentation  Ground = "fraud-misrepresentation"
	GroundCoolingOff              Ground = "cooling-off"
	GroundServiceDeficiency       Ground = "service-deficiency"
	GroundDissatisfaction         Ground = "dissatisfaction"
)

var grounds = []Ground{
	GroundVoluntaryWithdrawal,
	GroundIssuerCancellation,
	GroundPlatformDefault,
	GroundTechnicalError,
	GroundDuplicateCharge,
	GroundUnauthorizedTransaction,
	GroundFraudMisrepresentation,
	GroundCoolingOff,
	GroundServiceDeficiency,
	GroundDissatisfaction,
}

func ParseGround(s string) (Ground, error) {
	g := Ground(s)
	if !slices.Contains(grounds, g) {
		return "", dErrors.New(dErrors.CodeValidation, "unknown refund ground")
	}
	return g, nil
}

// Role is a reviewer's function. L3 committee votes are tagged with it.
type Role string

const (
	RoleStakeholder Role = "stakeholder"
	RoleReviewer    Role = "reviewer"
	RoleFinance     Role = "finance"
	RoleCompliance  Role = "compliance"
	RoleLegal       Role = "legal"
	RoleSenior      Role = "senior"
	RoleOperator    Role = "operator"
	RoleSystem      Role = "system"
)

// CommitteeRoles must all vote before an L3 decision is taken.
var CommitteeRoles = []Role{RoleFinance, RoleCompliance, RoleLegal}

// IsCommittee reports whether the role may vote at L3.
func (r Role) IsCommittee() bool {
	return slices.Contains(CommitteeRoles, r) || r == RoleSenior
}

// EvidenceType classifies uploaded documents.
type EvidenceType string

const (
	EvidenceIdentity         EvidenceType = "identity"
	EvidenceTransactionProof EvidenceType = "transaction-proof"
	EvidenceBankProof        EvidenceType = "bank-proof"
	EvidenceAuthorization    EvidenceType = "authorization"
	EvidenceGroundSpecific   EvidenceType = "ground-specific"
)

func ParseEvidenceType(s string) (EvidenceType, error) {
	switch t := EvidenceType(s); t {
	case EvidenceIdentity, EvidenceTransactionProof, EvidenceBankProof, EvidenceAuthorization, EvidenceGroundSpecific:
		return t, nil
	}
	return "", dErrors.New(dErrors.CodeValidation, "unknown evidence type")
}

// EvidenceStatus is the verification state of one document.
type EvidenceStatus string

const (
	EvidenceUnverified     EvidenceStatus = "unverified"
	EvidenceVerified       EvidenceStatus = "verified"
	EvidenceRejectedForged EvidenceStatus = "rejected-forged"
)
