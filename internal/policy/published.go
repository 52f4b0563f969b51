package policy

import "time"

func clauses(cs ...Clause) map[string]Clause {
	m := make(map[string]Clause, len(cs))
	for _, c := range cs {
		m[c.ID] = c
	}
	return m
}

var baseClauses = []Clause{
	{ClausePreAllotmentWithdrawal, "Voluntary withdrawal before allotment", "Refund less a processing charge of up to 2% and actual payment gateway fees."},
	{ClauseIssuerCancellation, "Issuer cancellation", "Refund less documented third-party costs, capped at the lower of INR 5,000 or 1% of the amount."},
	{ClausePreAllotmentDefault, "Platform default before allotment", "Full refund without deduction."},
	{ClausePostAllotmentDefault, "Platform default after allotment", "Full refund with simple interest at 12% per annum from the allotment date."},
	{ClausePostAllotmentCancellation, "Issuer cancellation after allotment", "Refund less documented third-party costs, capped at the lower of INR 5,000 or 1% of the amount."},
	{ClauseShareWithdrawal, "Share purchase withdrawal before execution", "Refund less a processing charge of up to 2% and actual payment gateway fees."},
	{ClauseShareDefault, "Share purchase platform default", "Full refund without deduction."},
	{ClauseShareAllottedDefault, "Share purchase default after allotment", "Full refund with simple interest at 12% per annum from the allotment date."},
	{ClauseCompletedTransactions, "Completed transactions", "Settled or transferred transactions are not refundable except for fraud or misrepresentation."},
	{ClauseLimitation, "Limitation periods", "Claims must be raised within the period set for the transaction category."},
	{ClauseUnrecognisedGround, "Unrecognised grounds", "Claims on grounds not recognised for the transaction are not refundable."},
	{ClauseDuplicateRequest, "Duplicate requests", "Only one open refund request may exist per transaction."},
	{ClauseMandatoryDocuments, "Mandatory documentation", "Identity, transaction and bank proof are required for every claim."},
	{ClauseCoolingOff, "Cooling-off period", "Full refund within 14 days if the service was not accessed; otherwise pro-rata less an administrative charge."},
	{ClauseServiceDeficiency, "Service deficiency", "Pro-rata refund for the undelivered portion less an administrative charge."},
	{ClauseDuplicateCharge, "Duplicate charge", "Full refund of the duplicate amount."},
	{ClauseUnauthorizedTransaction, "Unauthorised transaction", "Full refund subject to investigation."},
	{ClauseTechnicalError, "Technical error", "Full refund of amounts debited in error."},
	{ClauseFraud, "Fraud or misrepresentation", "Full refund subject to senior review, including for completed transactions."},
	{ClauseRegulatoryObligations, "Regulatory obligations", "Refunds may be declined where the platform's legal obligations require it."},
	{ClauseReviewerDetermination, "Reviewer determination", "The reviewing tier may decline a claim that fails verification."},
}

// Published returns the refund policy versions in force on the platform.
func Published() *Library {
	v2 := append([]Clause(nil), baseClauses...)
	for i, c := range v2 {
		if c.ID == ClauseCoolingOff {
			v2[i].Text = "Full refund within 14 calendar days if the service was not accessed; otherwise pro-rata for unused days less an administrative charge of INR 500."
		}
	}
	lib, err := NewLibrary(
		Document{
			Version:       "2025.1",
			EffectiveFrom: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
			Clauses:       clauses(baseClauses...),
		},
		Document{
			Version:       "2026.1",
			EffectiveFrom: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			Clauses:       clauses(v2...),
		},
	)
	if err != nil {
		panic(err)
	}
	return lib
}
