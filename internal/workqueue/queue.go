// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package workqueue provides a serial worker goroutine that plays the role
// of a dedicated thread: work posted to a Queue runs one item at a time, in
// posting order.
package workqueue

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/gogpu/compositor"
)

// Queue runs posted functions on a single goroutine.
//
// Post is fire-and-forget. Sync blocks until the posted function has run,
// which gives callers a round trip through the queue. Sync must not be
// called from the queue's own goroutine.
//
// Thread safety: Queue is safe for concurrent use.
type Queue struct {
	name string
	work chan func()

	// done is closed by Stop.
	done     chan struct{}
	stopOnce sync.Once

	// exited is closed when Run returns.
	exited  chan struct{}
	started atomic.Bool

	// mu is held for reading by Post while it sends, so sealing the queue
	// under the write lock guarantees nothing slips in after the drain.
	mu     sync.RWMutex
	sealed bool

	executed atomic.Int64
}

// New creates a queue with a buffer of size pending items. If size is 0
// or negative, 64 is used. The queue does nothing until Run is called.
func New(name string, size int) *Queue {
	if size <= 0 {
		size = 64
	}
	return &Queue{
		name:   name,
		work:   make(chan func(), size),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
}

// Name returns the queue name.
func (q *Queue) Name() string { return q.name }

// Run executes posted work until Stop is called or ctx is cancelled. Work
// still queued at that point is run before Run returns. Run returns
// ctx.Err() on cancellation and nil after Stop.
func (q *Queue) Run(ctx context.Context) error {
	if !q.started.CompareAndSwap(false, true) {
		return nil
	}
	defer close(q.exited)

	for {
		select {
		case <-ctx.Done():
			q.stop()
			q.seal()
			q.drain()
			return ctx.Err()
		case <-q.done:
			q.seal()
			q.drain()
			compositor.Logger().Debug("workqueue: stopped", "queue", q.name, "executed", q.executed.Load())
			return nil
		case fn := <-q.work:
			q.exec(fn)
		}
	}
}

// Post queues fn and returns immediately. It reports false if the queue
// has been stopped, in which case fn will never run. Post blocks while the
// buffer is full.
func (q *Queue) Post(fn func()) bool {
	if fn == nil {
		return false
	}
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.sealed {
		return false
	}
	select {
	case q.work <- fn:
		return true
	case <-q.done:
		return false
	}
}

// Sync queues fn and waits until it has run. It reports false if the
// queue has been stopped.
func (q *Queue) Sync(fn func()) bool {
	ran := make(chan struct{})
	if !q.Post(func() {
		defer close(ran)
		fn()
	}) {
		return false
	}
	<-ran
	return true
}

// Stop stops accepting work, waits for queued work to finish and for Run
// to return. If Run was never started, queued work runs on the caller.
// Stop is safe to call multiple times.
func (q *Queue) Stop() {
	q.stop()
	if q.started.CompareAndSwap(false, true) {
		q.seal()
		q.drain()
		close(q.exited)
		return
	}
	<-q.exited
}

// Stopped reports whether Stop was called or Run's context was cancelled.
func (q *Queue) Stopped() bool {
	select {
	case <-q.done:
		return true
	default:
		return false
	}
}

// Executed returns the number of functions run so far.
func (q *Queue) Executed() int64 { return q.executed.Load() }

func (q *Queue) stop() {
	q.stopOnce.Do(func() { close(q.done) })
}

func (q *Queue) seal() {
	q.mu.Lock()
	q.sealed = true
	q.mu.Unlock()
}

func (q *Queue) drain() {
	for {
		select {
		case fn := <-q.work:
			q.exec(fn)
		default:
			return
		}
	}
}

func (q *Queue) exec(fn func()) {
	fn()
	q.executed.Add(1)
}
