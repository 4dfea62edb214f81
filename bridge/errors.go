// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package bridge

import "errors"

var (
	// ErrProtocol marks a hard protocol violation by the content.
	ErrProtocol = errors.New("bridge: protocol violation")

	// ErrDestroyed is returned by operations on a bridge whose resources
	// were cleared.
	ErrDestroyed = errors.New("bridge: destroyed")
)
