// Package worker provides a bounded goroutine pool. The local compute
// back-end uses it to cap concurrent job processes at the partition's
// job ceiling.
package worker

import (
	"context"
	"sync"
	"sync/atomic"
)

// Pool bounds concurrent goroutines using a semaphore.
type Pool struct {
	sem      chan struct{}
	wg       sync.WaitGroup
	inFlight atomic.Int64
}

func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{sem: make(chan struct{}, size)}
}

// Launch runs fn on its own goroutine once a slot frees up, or returns
// the context error if ctx is done first.
func (p *Pool) Launch(ctx context.Context, fn func()) error {
	select {
	case p.sem <- struct{}{}:
		p.wg.Add(1)
		p.inFlight.Add(1)
		go func() {
			defer func() {
				<-p.sem
				p.inFlight.Add(-1)
				p.wg.Done()
			}()
			fn()
		}()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// InFlight returns the number of functions currently executing.
func (p *Pool) InFlight() int {
	return int(p.inFlight.Load())
}

// Wait blocks until all launched functions return.
func (p *Pool) Wait() {
	p.wg.Wait()
}
