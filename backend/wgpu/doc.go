// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package wgpu provides a [render.Compositor] accelerated by gogpu/wgpu.
//
// Targets keep their pixels in CPU memory so that any effect the GPU
// pipeline does not cover (textures, masks, blend modes, color matrices)
// can be drawn by the software rasterizer. Solid quads and clears are
// batched per target instead and drawn by a WGSL render pass:
//
//	upload target -> quad pass (premultiplied over / replace) -> readback
//
// A batch is flushed before anything else touches its target: a CPU draw,
// a target switch, EndFrame or ReadPixels. If the GPU pass fails, the
// batch is replayed on the CPU so frames are never lost.
//
// # Usage
//
// Importing the package registers the "wgpu" backend:
//
//	import _ "github.com/gogpu/compositor/backend/wgpu"
//
//	c, err := render.NewBackend("wgpu", 800, 600)
//
// The registered factory opens the first Vulkan adapter. Use [NewWithDevice]
// to share a device that already exists.
//
// Thread safety: a Compositor is not safe for concurrent use.
package wgpu
