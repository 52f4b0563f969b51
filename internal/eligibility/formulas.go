package eligibility

import (
	"github.com/shopspring/decimal"

	"adjudicator/internal/refund/models"
	"adjudicator/pkg/calendar"
)

var hundred = decimal.NewFromInt(100)

func pct(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate).Div(hundred).Round(2)
}

// apply computes the deductions for rule r. ok is false when the rule matched
// but its own precondition failed; v then carries the ineligible verdict.
func (e *Engine) apply(r Rule, in Input) (v models.EligibilityVerdict, ok bool) {
	p := e.params
	switch r.Formula {
	case FormulaProcessingPlusGateway:
		v.Deductions = []models.Deduction{
			{Kind: "processing", Amount: pct(in.Amount, p.ProcessingRatePct)},
		}
		if in.Facts.GatewayFee.IsPositive() {
			v.Deductions = append(v.Deductions, models.Deduction{Kind: "gateway_fee", Amount: in.Facts.GatewayFee.Round(2)})
		}

	case FormulaThirdPartyCapped:
		capped := decimal.Min(p.ThirdPartyCapFlat, pct(in.Amount, p.ThirdPartyCapPct))
		cost := decimal.Min(in.Facts.ThirdPartyCosts.Round(2), capped)
		if cost.IsPositive() {
			v.Deductions = []models.Deduction{{Kind: "third_party_costs", Amount: cost}}
		}

	case FormulaFullRefund:

	case FormulaFullPlusInterest:
		from := in.Facts.TransactedAt
		if in.Facts.AllotmentAt != nil {
			from = *in.Facts.AllotmentAt
		}
		v.InterestRate = p.DefaultInterestPct
		v.InterestFrom = &from

	case FormulaCoolingOff:
		if calendar.CalendarDaysBetween(in.Facts.TransactedAt, in.SubmittedAt) > p.CoolingOffDays {
			return models.EligibilityVerdict{
				Outcome: models.Ineligible,
				Ground:  r.Ground,
				RuleID:  r.ID,
				Clause:  r.Clause,
				Reason:  "cooling-off period has elapsed",
			}, false
		}
		if in.Facts.ServiceAccessed {
			v.Deductions = proRata(in, p)
		}

	case FormulaProRataMinusAdmin:
		v.Deductions = proRata(in, p)
	}
	return v, true
}

// proRata charges for the portion of the service term already used plus the
// administrative charge. Without a known term only the charge applies.
func proRata(in Input, p Params) []models.Deduction {
	var ds []models.Deduction
	term := in.Facts.ServiceTermDays
	if term > 0 && in.Facts.ServiceDaysUsed > 0 {
		used := min(in.Facts.ServiceDaysUsed, term)
		usedShare := in.Amount.Mul(decimal.NewFromInt(int64(used))).Div(decimal.NewFromInt(int64(term))).Round(2)
		ds = append(ds, models.Deduction{Kind: "service_used", Amount: usedShare})
	}
	return append(ds, models.Deduction{Kind: "administrative_charge", Amount: p.AdminCharge})
}
