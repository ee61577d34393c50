package server

import (
	"context"
	"errors"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// ErrPoolSaturated is returned when no search slot frees up in time.
var ErrPoolSaturated = errors.New("server: all search workers are busy")

// SearchPool bounds the number of searches running at once. A search that
// has started always runs to completion; only the wait for a slot can be
// abandoned.
type SearchPool struct {
	sem     *semaphore.Weighted
	workers int
	queued  int64 // Number of requests waiting for a slot
	active  int64 // Number of running searches
	total   int64 // Searches finished
}

// PoolStats is a snapshot of the pool counters.
type PoolStats struct {
	Active  int64 `json:"active"`
	Queued  int64 `json:"queued"`
	Total   int64 `json:"total"`
	Workers int   `json:"workers"`
}

// NewSearchPool creates a pool with the given number of slots.
func NewSearchPool(workers int) *SearchPool {
	if workers <= 0 {
		workers = 1
	}
	return &SearchPool{sem: semaphore.NewWeighted(int64(workers)), workers: workers}
}

// Acquire waits for a slot. It returns ErrPoolSaturated wrapping the
// context error if ctx ends first.
func (p *SearchPool) Acquire(ctx context.Context) error {
	atomic.AddInt64(&p.queued, 1)
	defer atomic.AddInt64(&p.queued, -1)

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return errors.Join(ErrPoolSaturated, err)
	}
	atomic.AddInt64(&p.active, 1)
	return nil
}

// TryAcquire takes a slot without waiting.
func (p *SearchPool) TryAcquire() bool {
	if !p.sem.TryAcquire(1) {
		return false
	}
	atomic.AddInt64(&p.active, 1)
	return true
}

// Release frees a slot.
func (p *SearchPool) Release() {
	atomic.AddInt64(&p.active, -1)
	atomic.AddInt64(&p.total, 1)
	p.sem.Release(1)
}

// Go runs fn on a slot in its own goroutine. The returned channel closes
// when fn has returned and the slot is free again.
func (p *SearchPool) Go(ctx context.Context, fn func()) (<-chan struct{}, error) {
	if err := p.Acquire(ctx); err != nil {
		return nil, err
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer p.Release()
		fn()
	}()
	return done, nil
}

// Stats returns current pool statistics.
func (p *SearchPool) Stats() PoolStats {
	return PoolStats{
		Active:  atomic.LoadInt64(&p.active),
		Queued:  atomic.LoadInt64(&p.queued),
		Total:   atomic.LoadInt64(&p.total),
		Workers: p.workers,
	}
}
