// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package layers implements the compositor layer tree: layer nodes, the
// whole-tree visibility and occlusion pass, and the two-phase container
// Prepare/Render pipeline that turns a tree into render.Compositor calls.
//
// # Coordinate spaces
//
// Every layer has a local Transform into its parent's layer space. The
// effective transform maps layer space into the space of the render target
// the layer draws into. For children of a container that renders through
// an intermediate surface, that target is the surface, whose space is the
// container's own layer space; for every other layer it is the target of
// the parent.
//
// Clip rectangles are expressed in the space of the target the layer
// draws into. Visible regions are expressed in layer space.
//
// # Frame sequence
//
// A composite runs, in order:
//
//	layers.ComputeEffectiveTransforms(root)
//	layers.PostProcess(root)
//	layers.Prepare(ctx, root, nil)
//	layers.Render(ctx, root, nil)
//
// Prepare and Render must be paired: Render consumes the state Prepare
// produced for the same frame.
package layers
