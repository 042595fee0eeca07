package batch

import (
	"sync"
	"time"
)

// percentMultiplier converts a ratio to a percentage.
const percentMultiplier = 100

// Progress tracks batch completion. Safe for concurrent use.
type Progress struct {
	mu sync.RWMutex

	totalItems       int
	totalBatches     int
	batchSize        int
	processedItems   int
	processedBatches int
	failedItems      int
	failedBatches    int
	startTime        time.Time
	lastUpdateTime   time.Time
}

// NewProgress creates a tracker starting now.
func NewProgress(totalItems, totalBatches, batchSize int) *Progress {
	now := time.Now()
	return &Progress{
		totalItems:     totalItems,
		totalBatches:   totalBatches,
		batchSize:      batchSize,
		startTime:      now,
		lastUpdateTime: now,
	}
}

// AddProcessed records one successful batch of n items.
func (p *Progress) AddProcessed(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.processedItems += n
	p.processedBatches++
	p.lastUpdateTime = time.Now()
}

// AddFailed records one failed batch of n items.
func (p *Progress) AddFailed(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.failedItems += n
	p.failedBatches++
	p.lastUpdateTime = time.Now()
}

// Snapshot returns a consistent copy of the counters.
func (p *Progress) Snapshot() ProgressSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	elapsed := time.Since(p.startTime)
	done := p.processedItems + p.failedItems

	snap := ProgressSnapshot{
		TotalItems:       p.totalItems,
		ProcessedItems:   p.processedItems,
		FailedItems:      p.failedItems,
		TotalBatches:     p.totalBatches,
		ProcessedBatches: p.processedBatches,
		FailedBatches:    p.failedBatches,
		BatchSize:        p.batchSize,
		StartTime:        p.startTime,
		LastUpdateTime:   p.lastUpdateTime,
		ElapsedTime:      elapsed,
	}
	if p.totalItems > 0 {
		snap.PercentComplete = float64(done) / float64(p.totalItems) * percentMultiplier
	}
	if done > 0 {
		snap.EstimatedRemaining = elapsed / time.Duration(done) * time.Duration(p.totalItems-done)
	}
	return snap
}

// ProgressSnapshot is an immutable view of a Progress.
type ProgressSnapshot struct {
	TotalItems         int
	ProcessedItems     int
	FailedItems        int
	TotalBatches       int
	ProcessedBatches   int
	FailedBatches      int
	BatchSize          int
	StartTime          time.Time
	LastUpdateTime     time.Time
	ElapsedTime        time.Duration
	PercentComplete    float64
	EstimatedRemaining time.Duration
}

// Done returns the number of items that finished, successfully or not.
func (s ProgressSnapshot) Done() int {
	return s.ProcessedItems + s.FailedItems
}

// IsComplete reports whether every item has finished.
func (s ProgressSnapshot) IsComplete() bool {
	return s.Done() >= s.TotalItems
}
