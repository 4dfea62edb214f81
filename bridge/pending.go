// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package bridge

import (
	"fmt"
	"time"

	"github.com/gogpu/compositor/renderapi"
)

// TransactionID identifies a content transaction. Zero means none.
type TransactionID uint64

// PendingTransaction correlates a content transaction with the epoch that
// confirms it reached the screen.
type PendingTransaction struct {
	ID    TransactionID
	Epoch renderapi.Epoch

	// RefreshStart is when the content refresh that produced the
	// transaction began; TxnStart when the transaction was built;
	// FwdTime when it was forwarded to the compositor.
	RefreshStart time.Time
	TxnStart     time.Time
	FwdTime      time.Time

	// UseForTelemetry is false for transactions that drew nothing.
	UseForTelemetry bool
}

// pendingQueue is a FIFO of pending transactions ordered by id and epoch.
type pendingQueue struct {
	items []PendingTransaction
}

// hold appends p. Ids must strictly increase and epochs must not go
// backwards; anything else breaks flush and panics.
func (q *pendingQueue) hold(p PendingTransaction) {
	if n := len(q.items); n > 0 {
		last := q.items[n-1]
		if p.ID <= last.ID {
			panic(fmt.Sprintf("bridge: pending transaction id %d not greater than %d", p.ID, last.ID))
		}
		// Equal epochs are allowed: an empty transaction without parent
		// commands reuses the current epoch.
		if p.Epoch < last.Epoch {
			panic(fmt.Sprintf("bridge: pending transaction epoch %d before %d", p.Epoch, last.Epoch))
		}
	}
	q.items = append(q.items, p)
}

// flush pops every entry whose epoch is at most epoch, in order, calling
// fn for each, and returns the id of the last one popped.
func (q *pendingQueue) flush(epoch renderapi.Epoch, fn func(PendingTransaction)) TransactionID {
	var id TransactionID
	n := 0
	for n < len(q.items) && q.items[n].Epoch <= epoch {
		if fn != nil {
			fn(q.items[n])
		}
		id = q.items[n].ID
		n++
	}
	q.items = append(q.items[:0], q.items[n:]...)
	return id
}

func (q *pendingQueue) len() int { return len(q.items) }

func (q *pendingQueue) last() TransactionID {
	if len(q.items) == 0 {
		return 0
	}
	return q.items[len(q.items)-1].ID
}
