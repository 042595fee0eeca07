package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Default batch processing configuration.
const (
	// DefaultBatchSize is the default number of items per batch.
	DefaultBatchSize = 100

	// MinBatchSize is the minimum allowed batch size.
	MinBatchSize = 1

	// MaxBatchSize is the maximum allowed batch size.
	MaxBatchSize = 1000

	// DefaultConcurrency bounds ProcessConcurrent when the caller passes 0.
	DefaultConcurrency = 4
)

// Common batch processing errors.
var (
	ErrInvalidBatchSize = errors.New("batch size must be between 1 and 1000")
	ErrNilCallback      = errors.New("batch callback cannot be nil")
	ErrEmptyItems       = errors.New("items slice cannot be empty")
)

// Callback processes one batch. batchIndex is 0-based.
type Callback[T any] func(ctx context.Context, batch []T, batchIndex int) error

// ProgressCallback is invoked after each batch finishes, successfully or not.
// Calls never overlap, and Done never decreases from one call to the next.
type ProgressCallback func(snapshot ProgressSnapshot)

// Processor runs a callback over items in fixed-size batches.
type Processor[T any] struct {
	batchSize  int
	onProgress ProgressCallback

	// notifyMu orders snapshots and callbacks across workers.
	notifyMu sync.Mutex
}

// NewProcessor creates a processor with the given batch size.
func NewProcessor[T any](batchSize int) (*Processor[T], error) {
	if batchSize < MinBatchSize || batchSize > MaxBatchSize {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBatchSize, batchSize)
	}

	return &Processor[T]{batchSize: batchSize}, nil
}

// NewProcessorWithDefaults creates a processor with DefaultBatchSize.
func NewProcessorWithDefaults[T any]() *Processor[T] {
	return &Processor[T]{batchSize: DefaultBatchSize}
}

// WithProgressCallback sets the progress callback.
func (p *Processor[T]) WithProgressCallback(callback ProgressCallback) *Processor[T] {
	p.onProgress = callback
	return p
}

// BatchSize returns the configured batch size.
func (p *Processor[T]) BatchSize() int {
	return p.batchSize
}

// Process runs batches in order and stops on the first error.
func (p *Processor[T]) Process(ctx context.Context, items []T, callback Callback[T]) error {
	if len(items) == 0 {
		return ErrEmptyItems
	}

	if callback == nil {
		return ErrNilCallback
	}

	bounds := p.CalculateBatches(len(items))
	progress := NewProgress(len(items), len(bounds), p.batchSize)

	for batchIndex, b := range bounds {
		if err := ctx.Err(); err != nil {
			return err
		}

		batch := items[b[0]:b[1]]
		if err := callback(ctx, batch, batchIndex); err != nil {
			progress.AddFailed(len(batch))
			p.notify(progress)
			return fmt.Errorf("batch %d failed: %w", batchIndex, err)
		}

		progress.AddProcessed(len(batch))
		p.notify(progress)
	}

	return nil
}

// ProcessConcurrent runs up to maxConcurrency batches at once. Every batch
// runs even if others fail; the failures are joined into the returned error.
// A cancelled ctx stops batches that have not started yet.
func (p *Processor[T]) ProcessConcurrent(
	ctx context.Context,
	items []T,
	callback Callback[T],
	maxConcurrency int,
) error {
	if len(items) == 0 {
		return ErrEmptyItems
	}

	if callback == nil {
		return ErrNilCallback
	}

	if maxConcurrency < 1 {
		maxConcurrency = DefaultConcurrency
	}

	bounds := p.CalculateBatches(len(items))
	progress := NewProgress(len(items), len(bounds), p.batchSize)
	errs := make([]error, len(bounds))

	var g errgroup.Group
	g.SetLimit(maxConcurrency)

	for batchIndex, b := range bounds {
		if ctx.Err() != nil {
			break
		}

		batch := items[b[0]:b[1]]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[batchIndex] = err
				return nil
			}
			if err := callback(ctx, batch, batchIndex); err != nil {
				errs[batchIndex] = fmt.Errorf("batch %d failed: %w", batchIndex, err)
				progress.AddFailed(len(batch))
			} else {
				progress.AddProcessed(len(batch))
			}
			p.notify(progress)
			return nil
		})
	}

	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}
	return errors.Join(errs...)
}

// CalculateBatches returns [start, end) index pairs for totalItems.
func (p *Processor[T]) CalculateBatches(totalItems int) [][2]int {
	totalBatches := totalItems / p.batchSize
	if totalItems%p.batchSize > 0 {
		totalBatches++
	}

	batches := make([][2]int, totalBatches)
	for i := range totalBatches {
		start := i * p.batchSize
		batches[i] = [2]int{start, min(start+p.batchSize, totalItems)}
	}

	return batches
}

func (p *Processor[T]) notify(progress *Progress) {
	if p.onProgress == nil {
		return
	}
	p.notifyMu.Lock()
	defer p.notifyMu.Unlock()
	p.onProgress(progress.Snapshot())
}
