package concurrent

import (
	"context"
	"sync"
)

// Pool runs background tasks with at most size of them in flight.
type Pool struct {
	sem chan struct{}
	wg  sync.WaitGroup
}

// NewPool creates a pool. A size of zero or less means one.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = 1
	}
	return &Pool{sem: make(chan struct{}, size)}
}

// Go schedules fn without blocking the caller. fn is skipped when ctx is
// cancelled before a slot frees up.
func (p *Pool) Go(ctx context.Context, fn func(context.Context)) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		select {
		case <-ctx.Done():
			return
		case p.sem <- struct{}{}:
			defer func() { <-p.sem }()
			fn(ctx)
		}
	}()
}

// Wait blocks until every scheduled task has returned.
func (p *Pool) Wait() {
	p.wg.Wait()
}
