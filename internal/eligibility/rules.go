package eligibility

import (
	"adjudicator/internal/policy"
	"adjudicator/internal/refund/models"
)

// FormulaID names a deduction formula.
type FormulaID string

const (
	FormulaProcessingPlusGateway FormulaID = "processing-2pct-plus-gateway"
	FormulaThirdPartyCapped      FormulaID = "third-party-costs-capped"
	FormulaFullRefund            FormulaID = "full-refund"
	FormulaFullPlusInterest      FormulaID = "full-refund-plus-interest"
	FormulaCoolingOff            FormulaID = "cooling-off"
	FormulaProRataMinusAdmin     FormulaID = "pro-rata-minus-admin"
)

// Rule maps (category, stage, ground) to an outcome. An empty Category matches
// every category; an empty Stages list matches every stage except completed.
type Rule struct {
	ID       string
	Category models.Category
	Stages   []models.Stage
	Ground   models.Ground
	Outcome  models.Eligibility
	Formula  FormulaID
	Clause   string
}

func (r Rule) matches(c models.Category, s models.Stage, g models.Ground) bool {
	if r.Ground != g {
		return false
	}
	if r.Category != "" && r.Category != c {
		return false
	}
	if len(r.Stages) == 0 {
		return s != models.StageCompleted
	}
	for _, st := range r.Stages {
		if st == s {
			return true
		}
	}
	return false
}

var (
	preExecution = []models.Stage{models.StagePending}
	beforeAllot  = []models.Stage{models.StagePending, models.StageInProgress}
	allotted     = []models.Stage{models.StageAllotted}
	anyStage     = []models.Stage{models.StagePending, models.StageInProgress, models.StageAllotted, models.StageCompleted}
)

// DefaultRules is the published rule table. New categories are added here
// without touching the pipeline.
func DefaultRules() []Rule {
	return []Rule{
		{"pre-allot-withdrawal", models.CategorySubscriptionPreAllotment, preExecution, models.GroundVoluntaryWithdrawal, models.Eligible, FormulaProcessingPlusGateway, policy.ClausePreAllotmentWithdrawal},
		{"pre-allot-withdrawal-late", models.CategorySubscriptionPreAllotment, []models.Stage{models.StageInProgress}, models.GroundVoluntaryWithdrawal, models.Conditional, FormulaProcessingPlusGateway, policy.ClausePreAllotmentWithdrawal},
		{"pre-allot-issuer-cancel", models.CategorySubscriptionPreAllotment, beforeAllot, models.GroundIssuerCancellation, models.Eligible, FormulaThirdPartyCapped, policy.ClauseIssuerCancellation},
		{"pre-allot-platform-default", models.CategorySubscriptionPreAllotment, beforeAllot, models.GroundPlatformDefault, models.Eligible, FormulaFullRefund, policy.ClausePreAllotmentDefault},

		{"post-allot-platform-default", models.CategorySubscriptionPostAllotment, allotted, models.GroundPlatformDefault, models.Eligible, FormulaFullPlusInterest, policy.ClausePostAllotmentDefault},
		{"post-allot-issuer-cancel", models.CategorySubscriptionPostAllotment, allotted, models.GroundIssuerCancellation, models.Eligible, FormulaThirdPartyCapped, policy.ClausePostAllotmentCancellation},

		{"share-withdrawal", models.CategorySharePurchase, preExecution, models.GroundVoluntaryWithdrawal, models.Eligible, FormulaProcessingPlusGateway, policy.ClauseShareWithdrawal},
		{"share-issuer-cancel", models.CategorySharePurchase, beforeAllot, models.GroundIssuerCancellation, models.Eligible, FormulaThirdPartyCapped, policy.ClauseIssuerCancellation},
		{"share-platform-default", models.CategorySharePurchase, beforeAllot, models.GroundPlatformDefault, models.Eligible, FormulaFullRefund, policy.ClauseShareDefault},
		{"share-allotted-default", models.CategorySharePurchase, allotted, models.GroundPlatformDefault, models.Eligible, FormulaFullPlusInterest, policy.ClauseShareAllottedDefault},

		{"advisory-cooling-off", models.CategoryAdvisoryService, nil, models.GroundCoolingOff, models.Eligible, FormulaCoolingOff, policy.ClauseCoolingOff},
		{"advisory-deficiency", models.CategoryAdvisoryService, nil, models.GroundServiceDeficiency, models.Conditional, FormulaProRataMinusAdmin, policy.ClauseServiceDeficiency},

		{"fee-duplicate", models.CategoryPlatformFee, nil, models.GroundDuplicateCharge, models.Eligible, FormulaFullRefund, policy.ClauseDuplicateCharge},
		{"fee-unauthorized", models.CategoryPlatformFee, nil, models.GroundUnauthorizedTransaction, models.Conditional, FormulaFullRefund, policy.ClauseUnauthorizedTransaction},
		{"fee-cooling-off", models.CategoryPlatformFee, nil, models.GroundCoolingOff, models.Eligible, FormulaCoolingOff, policy.ClauseCoolingOff},

		{"tech-error", models.CategoryTechnicalError, nil, models.GroundTechnicalError, models.Eligible, FormulaFullRefund, policy.ClauseTechnicalError},
		{"tech-duplicate", models.CategoryTechnicalError, nil, models.GroundDuplicateCharge, models.Eligible, FormulaFullRefund, policy.ClauseDuplicateCharge},

		// Fraud is the only ground that survives a completed transaction.
		{"fraud", "", anyStage, models.GroundFraudMisrepresentation, models.Conditional, FormulaFullRefund, policy.ClauseFraud},
	}
}

// Limitation is how long after the transaction a claim may be raised.
type Limitation struct {
	Days         int
	BusinessDays bool
}

// DefaultLimitations keys limitation windows by category.
func DefaultLimitations() map[models.Category]Limitation {
	return map[models.Category]Limitation{
		models.CategoryTechnicalError:            {Days: 7, BusinessDays: true},
		models.CategorySubscriptionPreAllotment:  {Days: 90},
		models.CategorySubscriptionPostAllotment: {Days: 90},
		models.CategorySharePurchase:             {Days: 90},
		models.CategoryAdvisoryService:           {Days: 30},
		models.CategoryPlatformFee:               {Days: 60},
	}
}
