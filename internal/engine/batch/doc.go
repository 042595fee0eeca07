// Package batch splits work into fixed-size batches and runs them
// sequentially or with bounded concurrency, reporting progress after each
// batch. The engine uses it to fan out per-agency requests for comparisons.
package batch
