package batch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessor_Process(t *testing.T) {
	items := make([]int, 25)
	for i := range items {
		items[i] = i
	}

	t.Run("Sequential", func(t *testing.T) {
		p, err := NewProcessor[int](10)
		require.NoError(t, err)
		var processedCount, batches int32
		var snaps []ProgressSnapshot
		p.WithProgressCallback(func(s ProgressSnapshot) { snaps = append(snaps, s) })

		err = p.Process(context.Background(), items, func(_ context.Context, batch []int, _ int) error {
			atomic.AddInt32(&batches, 1)
			atomic.AddInt32(&processedCount, int32(len(batch)))
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, int32(25), processedCount)
		assert.Equal(t, int32(3), batches)
		require.Len(t, snaps, 3)
		assert.Equal(t, 10, snaps[0].ProcessedItems)
		assert.True(t, snaps[2].IsComplete())
		assert.InDelta(t, 100.0, snaps[2].PercentComplete, 0.001)
	})

	t.Run("ErrorStopsSequential", func(t *testing.T) {
		p, _ := NewProcessor[int](10)
		var calls int32
		err := p.Process(context.Background(), items, func(_ context.Context, _ []int, batchIndex int) error {
			atomic.AddInt32(&calls, 1)
			if batchIndex == 1 {
				return errors.New("fail")
			}
			return nil
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "batch 1 failed")
		assert.Equal(t, int32(2), calls)
	})

	t.Run("CancelledContext", func(t *testing.T) {
		p, _ := NewProcessor[int](10)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := p.Process(ctx, items, func(context.Context, []int, int) error { return nil })
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("EmptyItems", func(t *testing.T) {
		p := NewProcessorWithDefaults[int]()
		assert.Equal(t, ErrEmptyItems, p.Process(context.Background(), nil, nil))
	})

	t.Run("NilCallback", func(t *testing.T) {
		p := NewProcessorWithDefaults[int]()
		assert.Equal(t, ErrNilCallback, p.Process(context.Background(), items, nil))
	})

	t.Run("InvalidBatchSize", func(t *testing.T) {
		_, err := NewProcessor[int](0)
		assert.ErrorIs(t, err, ErrInvalidBatchSize)
		_, err = NewProcessor[int](2000)
		assert.ErrorIs(t, err, ErrInvalidBatchSize)
	})
}

func TestProcessor_ProcessConcurrent(t *testing.T) {
	items := make([]int, 25)
	for i := range items {
		items[i] = i
	}

	t.Run("RespectsLimit", func(t *testing.T) {
		p, _ := NewProcessor[int](1)
		var inFlight, peak, processed int32

		err := p.ProcessConcurrent(context.Background(), items, func(_ context.Context, batch []int, _ int) error {
			n := atomic.AddInt32(&inFlight, 1)
			for {
				old := atomic.LoadInt32(&peak)
				if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&processed, int32(len(batch)))
			atomic.AddInt32(&inFlight, -1)
			return nil
		}, 3)
		require.NoError(t, err)
		assert.Equal(t, int32(25), processed)
		assert.LessOrEqual(t, peak, int32(3))
	})

	t.Run("CollectsAllErrors", func(t *testing.T) {
		p, _ := NewProcessor[int](5)
		var mu sync.Mutex
		var last ProgressSnapshot
		p.WithProgressCallback(func(s ProgressSnapshot) {
			mu.Lock()
			defer mu.Unlock()
			if s.Done() > last.Done() {
				last = s
			}
		})

		errOdd := errors.New("odd batch")
		var calls int32
		err := p.ProcessConcurrent(context.Background(), items, func(_ context.Context, _ []int, batchIndex int) error {
			atomic.AddInt32(&calls, 1)
			if batchIndex%2 == 1 {
				return errOdd
			}
			return nil
		}, 2)
		require.Error(t, err)
		assert.ErrorIs(t, err, errOdd)
		assert.Contains(t, err.Error(), "batch 1 failed")
		assert.Contains(t, err.Error(), "batch 3 failed")
		assert.Equal(t, int32(5), calls, "every batch runs despite failures")

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 2, last.FailedBatches)
		assert.Equal(t, 15, last.ProcessedItems)
		assert.True(t, last.IsComplete())
	})

	t.Run("ProgressIsOrdered", func(t *testing.T) {
		p, _ := NewProcessor[int](1)
		var (
			active int32
			done   []int
			last   ProgressSnapshot
		)
		p.WithProgressCallback(func(s ProgressSnapshot) {
			assert.Equal(t, int32(1), atomic.AddInt32(&active, 1), "progress callbacks overlap")
			time.Sleep(time.Millisecond)
			done = append(done, s.Done())
			last = s
			atomic.AddInt32(&active, -1)
		})

		err := p.ProcessConcurrent(context.Background(), items, func(context.Context, []int, int) error { return nil }, 8)
		require.NoError(t, err)
		assert.Len(t, done, len(items))
		assert.IsNonDecreasing(t, done)
		assert.True(t, last.IsComplete())
	})

	t.Run("DefaultConcurrency", func(t *testing.T) {
		p, _ := NewProcessor[int](10)
		err := p.ProcessConcurrent(context.Background(), items, func(context.Context, []int, int) error { return nil }, 0)
		assert.NoError(t, err)
	})

	t.Run("Cancelled", func(t *testing.T) {
		p, _ := NewProcessor[int](1)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := p.ProcessConcurrent(ctx, items, func(context.Context, []int, int) error { return nil }, 2)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestProgress(t *testing.T) {
	p := NewProgress(100, 10, 10)

	snap := p.Snapshot()
	assert.Equal(t, 0.0, snap.PercentComplete)
	assert.False(t, snap.IsComplete())
	assert.Zero(t, snap.EstimatedRemaining)

	p.AddProcessed(10)
	snap = p.Snapshot()
	assert.Equal(t, 10.0, snap.PercentComplete)
	assert.Equal(t, 10, snap.ProcessedItems)
	assert.Equal(t, 1, snap.ProcessedBatches)

	p.AddFailed(10)
	p.AddProcessed(80)
	snap = p.Snapshot()
	assert.Equal(t, 100.0, snap.PercentComplete)
	assert.True(t, snap.IsComplete())
	assert.Equal(t, 1, snap.FailedBatches)
	assert.Equal(t, 100, snap.Done())
	assert.GreaterOrEqual(t, snap.ElapsedTime, time.Duration(0))
}

func TestProcessor_CalculateBatches(t *testing.T) {
	p, _ := NewProcessor[int](10)
	batches := p.CalculateBatches(25)
	require.Len(t, batches, 3)
	assert.Equal(t, [2]int{0, 10}, batches[0])
	assert.Equal(t, [2]int{10, 20}, batches[1])
	assert.Equal(t, [2]int{20, 25}, batches[2])
	assert.Equal(t, 10, p.BatchSize())
}
