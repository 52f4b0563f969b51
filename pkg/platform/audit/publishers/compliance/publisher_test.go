package compliance

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "adjudicator/pkg/domain"
	audit "adjudicator/pkg/platform/audit"
	"adjudicator/pkg/platform/audit/store/memory"
	"adjudicator/pkg/platform/sentinel"
)

type failingStore struct{}

func (failingStore) Append(context.Context, audit.Record) error {
	return errors.New("disk full")
}

func (failingStore) ListByRefund(context.Context, id.RefundID) ([]audit.Record, error) {
	return nil, nil
}

func newPublisher(store audit.Store) (*Publisher, *Metrics) {
	m := NewMetrics(prometheus.NewRegistry())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(store, WithLogger(logger), WithMetrics(m)), m
}

func TestPublisher_Emit(t *testing.T) {
	refundID := id.NewRefundID()

	t.Run("persists and derives category from action", func(t *testing.T) {
		pub, m := newPublisher(memory.NewInMemoryStore())
		err := pub.Emit(context.Background(), audit.Record{
			RefundID: refundID,
			Seq:      1,
			Action:   audit.ActionFrozen,
		})
		require.NoError(t, err)

		records, err := pub.List(context.Background(), refundID)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, audit.CategoryConfidential, records[0].Category)
		assert.False(t, records[0].Timestamp.IsZero())
		assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsEmitted.WithLabelValues("confidential")))
	})

	t.Run("rejects records without identity", func(t *testing.T) {
		pub, _ := newPublisher(memory.NewInMemoryStore())
		err := pub.Emit(context.Background(), audit.Record{Seq: 1, Action: audit.ActionSubmitted})
		require.Error(t, err)

		err = pub.Emit(context.Background(), audit.Record{RefundID: refundID, Seq: 1})
		require.Error(t, err)

		err = pub.Emit(context.Background(), audit.Record{RefundID: refundID, Action: audit.ActionSubmitted})
		require.Error(t, err)
	})

	t.Run("fails closed when the store fails", func(t *testing.T) {
		pub, m := newPublisher(failingStore{})
		err := pub.Emit(context.Background(), audit.Record{RefundID: refundID, Seq: 1, Action: audit.ActionSubmitted})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "audit persistence failed")
		assert.Equal(t, 1.0, testutil.ToFloat64(m.PersistFailures))
	})

	t.Run("nil metrics are tolerated", func(t *testing.T) {
		pub := New(memory.NewInMemoryStore())
		require.NoError(t, pub.Emit(context.Background(), audit.Record{RefundID: refundID, Seq: 1, Action: audit.ActionSubmitted}))
	})
}

func TestInMemoryStore_AppendOnly(t *testing.T) {
	ctx := context.Background()
	store := memory.NewInMemoryStore()
	refundID := id.NewRefundID()
	at := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	require.NoError(t, store.Append(ctx, audit.Record{RefundID: refundID, Seq: 1, Action: audit.ActionSubmitted, Timestamp: at}))
	require.NoError(t, store.Append(ctx, audit.Record{RefundID: refundID, Seq: 2, Action: audit.ActionTransition, Timestamp: at}))

	t.Run("rejects rewriting an existing seq", func(t *testing.T) {
		err := store.Append(ctx, audit.Record{RefundID: refundID, Seq: 2, Action: audit.ActionTransition})
		assert.ErrorIs(t, err, sentinel.ErrConflict)
	})

	t.Run("rejects gaps", func(t *testing.T) {
		err := store.Append(ctx, audit.Record{RefundID: refundID, Seq: 4, Action: audit.ActionTransition})
		assert.ErrorIs(t, err, sentinel.ErrConflict)
	})

	t.Run("returned slices do not alias stored inputs", func(t *testing.T) {
		other := id.NewRefundID()
		require.NoError(t, store.Append(ctx, audit.Record{RefundID: other, Seq: 1, Action: audit.ActionSubmitted, Inputs: map[string]string{"k": "v"}}))
		records, err := store.ListByRefund(ctx, other)
		require.NoError(t, err)
		records[0].Inputs["k"] = "tampered"

		again, err := store.ListByRefund(ctx, other)
		require.NoError(t, err)
		assert.Equal(t, "v", again[0].Inputs["k"])
	})

	t.Run("concurrent writers racing for the same seq: exactly one wins", func(t *testing.T) {
		racer := id.NewRefundID()
		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins int
		)
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if store.Append(ctx, audit.Record{RefundID: racer, Seq: 1, Action: audit.ActionSubmitted}) == nil {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, wins)
	})
}

func TestVisible(t *testing.T) {
	records := []audit.Record{
		{Seq: 1, Category: audit.CategoryCompliance},
		{Seq: 2, Category: audit.CategoryConfidential},
		{Seq: 3, Category: audit.CategoryOperations},
	}
	assert.Len(t, audit.Visible(records, true), 3)
	visible := audit.Visible(records, false)
	require.Len(t, visible, 2)
	assert.Equal(t, 3, visible[1].Seq)
}
