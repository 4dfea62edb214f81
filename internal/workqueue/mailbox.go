// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package workqueue

import "sync"

// Mailbox collects functions posted from any goroutine and runs them on
// the goroutine that calls Drain. It has no goroutine of its own, so the
// owner decides when posted work runs.
//
// Thread safety: Post and Len are safe for concurrent use. Drain must be
// called by the owner only.
type Mailbox struct {
	mu     sync.Mutex
	items  []func()
	closed bool
}

// Post queues fn. It reports false once the mailbox is closed.
func (m *Mailbox) Post(fn func()) bool {
	if fn == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false
	}
	m.items = append(m.items, fn)
	return true
}

// Drain runs queued functions in posting order, including any posted while
// draining, and returns how many ran.
func (m *Mailbox) Drain() int {
	n := 0
	for {
		m.mu.Lock()
		items := m.items
		m.items = nil
		m.mu.Unlock()
		if len(items) == 0 {
			return n
		}
		for _, fn := range items {
			fn()
		}
		n += len(items)
	}
}

// Len returns the number of queued functions.
func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Close rejects further posts. Queued functions can still be drained.
func (m *Mailbox) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
}
