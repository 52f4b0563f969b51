package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adjudicator/internal/refund/models"
	id "adjudicator/pkg/domain"
)

var at = time.Date(2026, 10, 5, 9, 0, 0, 0, time.UTC)

func TestNewStateChanged(t *testing.T) {
	ref := id.NewRefundID()

	t.Run("first event is always emitted", func(t *testing.T) {
		ev, ok := NewStateChanged(ref, "", models.StateReceived, at)
		require.True(t, ok)
		assert.Equal(t, models.PublicReceived, ev.Status)
		assert.Equal(t, ref.String(), ev.ReferenceID)
	})

	t.Run("entering frozen from review emits nothing", func(t *testing.T) {
		_, ok := NewStateChanged(ref, models.StateL2Review, models.StateFrozen, at)
		assert.False(t, ok)
	})

	t.Run("entering frozen from acknowledged reads as under review", func(t *testing.T) {
		ev, ok := NewStateChanged(ref, models.StateAcknowledged, models.StateFrozen, at)
		require.True(t, ok)
		assert.Equal(t, models.PublicUnderReview, ev.Status)
	})

	t.Run("parking surfaces as processing delayed", func(t *testing.T) {
		ev, ok := NewStateChanged(ref, models.StateL1Screening, models.StatePendingRetry, at)
		require.True(t, ok)
		assert.Equal(t, models.PublicProcessingDelayed, ev.Status)
	})
}

// Justification: the public payload must not grow fields that could leak a
// compliance hold.
func TestStateChanged_PayloadFields(t *testing.T) {
	ev, _ := NewStateChanged(id.NewRefundID(), "", models.StateFrozen, at)
	raw, err := json.Marshal(ev)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.ElementsMatch(t, []string{"reference_id", "status", "summary", "occurred_at"}, keys(fields))
	assert.NotContains(t, string(raw), "frozen")
	assert.NotContains(t, string(raw), "suspicious")
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	ctx := context.Background()
	a, b := id.NewRefundID(), id.NewRefundID()

	evA, _ := NewStateChanged(a, "", models.StateReceived, at)
	evB, _ := NewStateChanged(b, "", models.StateReceived, at)
	require.NoError(t, r.PublishStateChanged(ctx, evA))
	require.NoError(t, r.PublishStateChanged(ctx, evB))
	require.NoError(t, r.FileSuspicionReport(ctx, SuspicionReport{RefundID: a}))
	require.NoError(t, r.Enqueue(ctx, OperatorTask{RefundID: b, Kind: TaskFrozenOverdue}))

	assert.Len(t, r.States(), 2)
	assert.Len(t, r.StatesFor(a.String()), 1)
	assert.Len(t, r.Reports(), 1)
	assert.Equal(t, TaskFrozenOverdue, r.Tasks()[0].Kind)
}

func TestRingBuffer_DropsOldest(t *testing.T) {
	b := newRingBuffer(2)
	for _, ref := range []string{"a", "b", "c"} {
		b.Enqueue(StateChanged{ReferenceID: ref})
	}
	assert.Equal(t, 2, b.Len())
	assert.Equal(t, int64(1), b.Dropped())
	got := b.Peek(10)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ReferenceID)
	assert.Equal(t, "c", got[1].ReferenceID)
}

type flakyPublisher struct {
	mu        sync.Mutex
	failUntil int
	calls     int
	delivered []string
}

func (f *flakyPublisher) PublishStateChanged(_ context.Context, ev StateChanged) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failUntil {
		return errors.New("broker unavailable")
	}
	f.delivered = append(f.delivered, ev.ReferenceID)
	return nil
}

func (f *flakyPublisher) Delivered() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.delivered...)
}

// Justification: a broker outage must delay events, not drop or reorder them.
func TestRelay_FailedDeliveryKeepsOrder(t *testing.T) {
	down := &flakyPublisher{failUntil: 1}
	relay := NewRelay(down)
	ctx := context.Background()

	for _, ref := range []string{"r1", "r2", "r3"} {
		require.NoError(t, relay.PublishStateChanged(ctx, StateChanged{ReferenceID: ref}))
	}

	relay.Flush(ctx)
	assert.Empty(t, down.Delivered())
	assert.Equal(t, 3, relay.Pending())

	relay.Flush(ctx)
	assert.Equal(t, []string{"r1", "r2", "r3"}, down.Delivered())
	assert.Equal(t, 0, relay.Pending())
}

func TestRelay_RunDrainsOnCancel(t *testing.T) {
	pub := &flakyPublisher{}
	relay := NewRelay(pub, WithFlushInterval(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	require.NoError(t, relay.PublishStateChanged(ctx, StateChanged{ReferenceID: "r1"}))
	require.Eventually(t, func() bool { return len(pub.Delivered()) == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
}
