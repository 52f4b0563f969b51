// Package lock serializes writers on a single refund request. The pipeline and
// the monitor take the same lock before loading a request, so a forced
// transition never races a reviewer's decision.
package lock

import (
	"context"
	"fmt"
	"sync"

	"adjudicator/pkg/platform/sentinel"
)

// Locker acquires an exclusive lock on key. Acquire blocks until the lock is
// held or ctx is done; the returned func releases it.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// Memory is a process-local keyed mutex.
type Memory struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

func NewMemory() *Memory {
	return &Memory{slots: make(map[string]*slot)}
}

func (m *Memory) Acquire(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()
	s, ok := m.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		m.slots[key] = s
	}
	s.refs++
	m.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		m.drop(key, s)
		return nil, fmt.Errorf("acquire %s: %w: %w", key, sentinel.ErrLocked, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			m.drop(key, s)
		})
	}, nil
}

func (m *Memory) drop(key string, s *slot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(m.slots, key)
	}
}

// Held reports the number of keys with holders or waiters.
func (m *Memory) Held() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.slots)
}
