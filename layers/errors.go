// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package layers

import "errors"

// Errors returned by tree edits.
var (
	// ErrProtocol wraps every error produced while applying edits received
	// from a content peer. The peer connection should be torn down.
	ErrProtocol = errors.New("layers: protocol violation")

	// ErrUnknownLayer is returned when an edit names a layer that does not
	// exist.
	ErrUnknownLayer = errors.New("layers: unknown layer")

	// ErrDuplicateLayer is returned when creating a layer whose id is taken.
	ErrDuplicateLayer = errors.New("layers: duplicate layer id")

	// ErrNotContainer is returned when a child operation targets a leaf.
	ErrNotContainer = errors.New("layers: layer is not a container")

	// ErrNotChild is returned when a layer is not a child of the container.
	ErrNotChild = errors.New("layers: layer is not a child of the container")

	// ErrHasParent is returned when inserting a layer that already has a
	// parent.
	ErrHasParent = errors.New("layers: layer already has a parent")

	// ErrCycle is returned when an insertion would make a layer its own
	// ancestor.
	ErrCycle = errors.New("layers: insertion would create a cycle")

	// ErrReferenceFull is returned when a reference layer already has its
	// referent.
	ErrReferenceFull = errors.New("layers: reference layer already has a referent")

	// ErrDestroyed is returned when editing a destroyed layer.
	ErrDestroyed = errors.New("layers: layer destroyed")

	// ErrInvalidEdit is returned for nil or unknown edit variants.
	ErrInvalidEdit = errors.New("layers: invalid edit")

	// ErrMaskConstruction is logged when a mask effect cannot be built.
	ErrMaskConstruction = errors.New("layers: cannot build mask effect")
)
