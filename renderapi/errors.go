// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderapi

import "errors"

var (
	// ErrDisconnected is returned by flushes after the server lost its
	// peer or was closed.
	ErrDisconnected = errors.New("renderapi: disconnected")

	// ErrInvalidDisplayList is returned when display list bytes cannot be
	// decoded.
	ErrInvalidDisplayList = errors.New("renderapi: invalid display list")
)
