package utils

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestPoolRunsEveryJob(t *testing.T) {
	pool := NewPool(4)
	var done int64
	for i := 0; i < 50; i++ {
		pool.Submit(func() { atomic.AddInt64(&done, 1) })
	}
	pool.Wait()

	if done != 50 {
		t.Errorf("done: got %d, want 50", done)
	}
}

func TestPoolBoundsConcurrency(t *testing.T) {
	pool := NewPool(2)
	var running, peak int64
	for i := 0; i < 10; i++ {
		pool.Submit(func() {
			n := atomic.AddInt64(&running, 1)
			for {
				p := atomic.LoadInt64(&peak)
				if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt64(&running, -1)
		})
	}
	pool.Wait()

	if peak > 2 {
		t.Errorf("peak concurrency: got %d, want <= 2", peak)
	}
}

func TestNewPoolClampsWorkers(t *testing.T) {
	pool := NewPool(0)
	if cap(pool.semaphore) != 1 {
		t.Errorf("workers: got %d, want 1", cap(pool.semaphore))
	}
}
