// Package routines provides a pool of go-routines that run queued functions.
package routines

import (
	"sync"
)

// Pool runs queued functions in a fixed number of go-routines.
// Functions are started in the order they were queued. A Pool of size 1
// runs them sequentially.
type Pool struct {
	lock    sync.Mutex
	cond    *sync.Cond
	pending []func()
	closed  bool

	wg sync.WaitGroup
}

// NewPool creates a pool and starts size go-routines that process queued
// functions.
func NewPool(size int) *Pool {
	if size <= 0 {
		panic("pool size must be >0")
	}

	p := Pool{}
	p.cond = sync.NewCond(&p.lock)

	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.worker()
	}

	return &p
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		p.lock.Lock()
		for len(p.pending) == 0 && !p.closed {
			p.cond.Wait()
		}

		if len(p.pending) == 0 {
			p.lock.Unlock()
			return
		}

		fn := p.pending[0]
		p.pending[0] = nil
		p.pending = p.pending[1:]
		p.lock.Unlock()

		fn()
	}
}

// Queue schedules fn to be run by the pool.
// It never blocks. Queue panics when it is called after Wait().
func (p *Pool) Queue(fn func()) {
	p.lock.Lock()
	defer p.lock.Unlock()

	if p.closed {
		panic("Queue() called on terminated pool")
	}

	p.pending = append(p.pending, fn)
	p.cond.Signal()
}

// Wait waits until all queued functions finished and terminates the
// go-routines of the pool.
func (p *Pool) Wait() {
	p.lock.Lock()
	p.closed = true
	p.cond.Broadcast()
	p.lock.Unlock()

	p.wg.Wait()
}
