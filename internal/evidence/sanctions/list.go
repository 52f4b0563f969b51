// Package sanctions provides the sanctions and PEP list oracle.
//
// The list is loaded from a versioned YAML file and replaced wholesale on
// refresh. Lookups return candidates above a similarity threshold together
// with the list version so every screening decision can record which list it
// was made against.
package sanctions

import (
	"context"
	"sort"
	"sync"
)

// Kind separates sanctions designations from politically exposed persons.
type Kind string

const (
	KindSanctions Kind = "sanctions"
	KindPEP       Kind = "pep"
)

// Entry is one listed person.
type Entry struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Aliases     []string `yaml:"aliases"`
	DateOfBirth string   `yaml:"dob"`
	Kind        Kind     `yaml:"kind"`
	Program     string   `yaml:"program"`
}

// List is a published snapshot.
type List struct {
	Version string  `yaml:"version"`
	Entries []Entry `yaml:"entries"`
}

// Candidate is a possible match. Score is 1 for a normalized exact match.
type Candidate struct {
	EntryID     string
	Name        string
	Kind        Kind
	Score       float64
	DOBMismatch bool
}

// Exact reports a full-name match not contradicted by date of birth.
func (c Candidate) Exact() bool {
	return c.Score >= 1 && !c.DOBMismatch
}

// DefaultThreshold is the minimum similarity reported as a candidate.
const DefaultThreshold = 0.85

// Provider answers name queries against the current snapshot.
type Provider struct {
	mu        sync.RWMutex
	list      List
	threshold float64
}

// NewProvider serves list. A non-positive threshold uses DefaultThreshold.
func NewProvider(list List, threshold float64) *Provider {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Provider{list: list, threshold: threshold}
}

// Replace swaps in a refreshed snapshot.
func (p *Provider) Replace(list List) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.list = list
}

// Version returns the snapshot version currently served.
func (p *Provider) Version() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.list.Version
}

// MatchName returns candidates ordered by descending score. dob may be empty.
func (p *Provider) MatchName(ctx context.Context, name, dob string) ([]Candidate, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()

	var out []Candidate
	for _, e := range p.list.Entries {
		best := Similarity(name, e.Name)
		for _, alias := range e.Aliases {
			best = max(best, Similarity(name, alias))
		}
		if best < p.threshold {
			continue
		}
		out = append(out, Candidate{
			EntryID:     e.ID,
			Name:        e.Name,
			Kind:        e.Kind,
			Score:       best,
			DOBMismatch: dob != "" && e.DateOfBirth != "" && dob != e.DateOfBirth,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, p.list.Version, nil
}
