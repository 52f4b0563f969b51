package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// outcome is one recorded call: true for success.
type outcome bool

const (
	ok   outcome = true
	fail outcome = false
)

func TestBreaker_Transitions(t *testing.T) {
	tests := []struct {
		name      string
		failures  int
		successes int
		calls     []outcome
		wantOpen  bool
	}{
		{name: "starts closed", failures: 3, wantOpen: false},
		{name: "below threshold stays closed", failures: 3, calls: []outcome{fail, fail}, wantOpen: false},
		{name: "threshold opens", failures: 3, calls: []outcome{fail, fail, fail}, wantOpen: true},
		{name: "success resets the failure run", failures: 3, calls: []outcome{fail, fail, ok, fail, fail}, wantOpen: false},
		{name: "one success closes by default", failures: 1, calls: []outcome{fail, ok}, wantOpen: false},
		{name: "success run shorter than threshold stays open", failures: 1, successes: 2, calls: []outcome{fail, ok}, wantOpen: true},
		{name: "failure while open resets the success run", failures: 1, successes: 2, calls: []outcome{fail, ok, fail, ok}, wantOpen: true},
		{name: "full success run closes", failures: 1, successes: 2, calls: []outcome{fail, ok, fail, ok, ok}, wantOpen: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New("registry", WithFailureThreshold(tt.failures), WithSuccessThreshold(tt.successes))
			for _, c := range tt.calls {
				if c == ok {
					b.RecordSuccess()
				} else {
					b.RecordFailure()
				}
			}
			assert.Equal(t, tt.wantOpen, b.IsOpen())
		})
	}
}

func TestBreaker_ReportsChangesOnce(t *testing.T) {
	b := New("documents", WithFailureThreshold(2))

	useFallback, change := b.RecordFailure()
	assert.False(t, useFallback)
	assert.False(t, change.Opened)

	useFallback, change = b.RecordFailure()
	assert.True(t, useFallback)
	assert.True(t, change.Opened)

	useFallback, change = b.RecordFailure()
	assert.True(t, useFallback)
	assert.False(t, change.Opened, "already open")

	usePrimary, change := b.RecordSuccess()
	assert.True(t, usePrimary)
	assert.True(t, change.Closed)
	assert.Equal(t, "documents", b.Name())
}

func TestBreaker_Reset(t *testing.T) {
	b := New("sanctions", WithFailureThreshold(1))
	b.RecordFailure()
	b.Reset()
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_AllowProbesAfterCooldown(t *testing.T) {
	now := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	b := New("registry",
		WithFailureThreshold(1),
		WithCooldown(time.Minute),
		WithClock(func() time.Time { return now }),
	)

	assert.True(t, b.Allow())
	b.RecordFailure()
	assert.False(t, b.Allow(), "open breaker rejects calls inside the cooldown")

	now = now.Add(time.Minute)
	assert.True(t, b.Allow(), "one probe is admitted after the cooldown")
	assert.False(t, b.Allow(), "second probe waits for the next window")

	b.RecordFailure()
	now = now.Add(30 * time.Second)
	assert.False(t, b.Allow(), "a failed probe restarts the cooldown")
}
