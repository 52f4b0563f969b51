package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adjudicator/pkg/platform/sentinel"
)

func TestMemory_SerializesSameKey(t *testing.T) {
	m := NewMemory()
	var inside, maxInside atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := m.Acquire(context.Background(), "refund-1")
			if !assert.NoError(t, err) {
				return
			}
			n := inside.Add(1)
			for {
				cur := maxInside.Load()
				if n <= cur || maxInside.CompareAndSwap(cur, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
			release()
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside.Load())
	assert.Equal(t, 0, m.Held())
}

func TestMemory_DistinctKeysDoNotBlock(t *testing.T) {
	m := NewMemory()
	releaseA, err := m.Acquire(context.Background(), "a")
	require.NoError(t, err)
	defer releaseA()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	releaseB, err := m.Acquire(ctx, "b")
	require.NoError(t, err)
	releaseB()
}

func TestMemory_ContextCancelWhileWaiting(t *testing.T) {
	m := NewMemory()
	release, err := m.Acquire(context.Background(), "a")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = m.Acquire(ctx, "a")
	require.ErrorIs(t, err, sentinel.ErrLocked)

	release()
	release()
	assert.Equal(t, 0, m.Held())
}
