package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	id "adjudicator/pkg/domain"
	"adjudicator/pkg/platform/sentinel"
)

// InMemoryRegistry serves profiles from memory. Used in development and tests.
type InMemoryRegistry struct {
	mu       sync.RWMutex
	profiles map[id.StakeholderID]Profile
}

func NewInMemoryRegistry(profiles ...Profile) *InMemoryRegistry {
	r := &InMemoryRegistry{profiles: make(map[id.StakeholderID]Profile)}
	for _, p := range profiles {
		r.profiles[p.StakeholderID] = p
	}
	return r
}

// Put seeds or replaces a profile.
func (r *InMemoryRegistry) Put(p Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[p.StakeholderID] = p
}

func (r *InMemoryRegistry) Lookup(_ context.Context, stakeholderID id.StakeholderID) (*Profile, error) {
	r.mu.RLock()
	p, ok := r.profiles[stakeholderID]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("stakeholder %s: %w", stakeholderID, sentinel.ErrNotFound)
	}
	return cloneProfile(p)
}

// cloneProfile deep-copies through JSON so callers cannot alias registry state.
func cloneProfile(p Profile) (*Profile, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("copy profile: %w", err)
	}
	var out Profile
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("copy profile: %w", err)
	}
	return &out, nil
}
