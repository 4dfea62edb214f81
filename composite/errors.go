// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package composite

import "errors"

var (
	// ErrNotReady is returned by BeginTransaction while the compositor
	// cannot draw.
	ErrNotReady = errors.New("composite: compositor not ready")

	// ErrDestroyed is returned by operations on a destroyed manager.
	ErrDestroyed = errors.New("composite: manager destroyed")

	// ErrTransactionOpen is returned when a transaction is begun while
	// another one is open.
	ErrTransactionOpen = errors.New("composite: transaction already open")

	// ErrNoTransaction is returned by operations that need an open
	// transaction.
	ErrNoTransaction = errors.New("composite: no open transaction")
)
