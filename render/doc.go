// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package render defines the GPU compositor abstraction the layer tree draws
// through, together with a software implementation.
//
// # Architecture
//
// A [Compositor] owns render targets. Every frame starts with
// [Compositor.BeginFrame], which binds the screen target and returns the
// area that actually needs drawing, and ends with [Compositor.EndFrame].
// Between the two, callers create offscreen targets for intermediate
// surfaces, switch between targets and issue [Compositor.DrawQuad] calls
// described by an [EffectChain].
//
// Targets are positioned: a [Target] covers [Target.Rect] in the coordinate
// space of whatever draws into it, so coordinates passed to DrawQuad and
// ClearRect never need to be rebased by the caller.
//
// # Implementations
//
//   - [SoftwareCompositor]: CPU compositor on *image.RGBA using golang.org/x/image/draw
//   - backend/wgpu: GPU compositor on github.com/gogpu/wgpu
//
// [TargetPool] recycles offscreen targets by geometry across frames.
package render
