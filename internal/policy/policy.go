// Package policy holds the versioned refund policy documents.
//
// Documents are immutable once published. A request records the version in
// force at submission, so the clause cited in any later decision is resolved
// against that version rather than whatever is current.
package policy

import (
	"fmt"
	"sort"
	"time"

	"adjudicator/pkg/platform/sentinel"
)

// Clause identifiers cited by the rules engine and reviewers.
const (
	ClausePreAllotmentWithdrawal    = "4.2.1"
	ClauseIssuerCancellation        = "4.2.2"
	ClausePreAllotmentDefault       = "4.2.3"
	ClausePostAllotmentDefault      = "4.3.1"
	ClausePostAllotmentCancellation = "4.3.2"
	ClauseShareWithdrawal           = "4.4.1"
	ClauseShareDefault              = "4.4.2"
	ClauseShareAllottedDefault      = "4.4.3"
	ClauseCompletedTransactions     = "4.5"
	ClauseLimitation                = "4.6"
	ClauseUnrecognisedGround        = "4.7"
	ClauseDuplicateRequest          = "4.8"
	ClauseMandatoryDocuments        = "4.9"
	ClauseCoolingOff                = "5.1"
	ClauseServiceDeficiency         = "5.2"
	ClauseDuplicateCharge           = "6.1"
	ClauseUnauthorizedTransaction   = "6.2"
	ClauseTechnicalError            = "7.1"
	ClauseFraud                     = "8.1"
	ClauseRegulatoryObligations     = "9.4"
	ClauseReviewerDetermination     = "10.2"
)

// Clause is one numbered provision.
type Clause struct {
	ID    string
	Title string
	Text  string
}

// Document is one published version of the refund policy.
type Document struct {
	Version       string
	EffectiveFrom time.Time
	Clauses       map[string]Clause
}

// Library is the immutable set of published versions.
type Library struct {
	docs []Document
}

// NewLibrary sorts docs by effective date. Versions must be unique.
func NewLibrary(docs ...Document) (*Library, error) {
	seen := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		if d.Version == "" {
			return nil, fmt.Errorf("policy document without version")
		}
		if _, dup := seen[d.Version]; dup {
			return nil, fmt.Errorf("duplicate policy version %q", d.Version)
		}
		seen[d.Version] = struct{}{}
	}
	sorted := append([]Document(nil), docs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].EffectiveFrom.Before(sorted[j].EffectiveFrom) })
	return &Library{docs: sorted}, nil
}

// ForDate returns the version in force at t.
func (l *Library) ForDate(t time.Time) (Document, error) {
	for i := len(l.docs) - 1; i >= 0; i-- {
		if !t.Before(l.docs[i].EffectiveFrom) {
			return l.docs[i], nil
		}
	}
	return Document{}, fmt.Errorf("no policy in force at %s: %w", t.Format(time.DateOnly), sentinel.ErrNotFound)
}

// Get returns a version by id.
func (l *Library) Get(version string) (Document, error) {
	for _, d := range l.docs {
		if d.Version == version {
			return d, nil
		}
	}
	return Document{}, fmt.Errorf("policy version %q: %w", version, sentinel.ErrNotFound)
}

// Cite renders "clause <id> (<title>)" under the given version, falling back to
// the bare clause id when the version or clause is unknown.
func (l *Library) Cite(version, clauseID string) string {
	doc, err := l.Get(version)
	if err != nil {
		return "clause " + clauseID
	}
	c, ok := doc.Clauses[clauseID]
	if !ok {
		return "clause " + clauseID
	}
	return fmt.Sprintf("clause %s (%s)", c.ID, c.Title)
}

// Versions lists the published versions oldest first.
func (l *Library) Versions() []string {
	out := make([]string, 0, len(l.docs))
	for _, d := range l.docs {
		out = append(out, d.Version)
	}
	return out
}
