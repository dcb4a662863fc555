package utils

import "sync"

// Pool runs submitted jobs on at most maxWorkers goroutines.
type Pool struct {
	semaphore chan struct{}
	wg        sync.WaitGroup
}

// NewPool creates a Pool. A maxWorkers below one means one.
func NewPool(maxWorkers int) *Pool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &Pool{semaphore: make(chan struct{}, maxWorkers)}
}

// Submit blocks until a worker slot is free, then runs job on it.
func (p *Pool) Submit(job func()) {
	p.wg.Add(1)
	p.semaphore <- struct{}{}

	go func() {
		defer p.wg.Done()
		defer func() { <-p.semaphore }()
		job()
	}()
}

// Wait blocks until all submitted jobs have completed.
func (p *Pool) Wait() {
	p.wg.Wait()
}
