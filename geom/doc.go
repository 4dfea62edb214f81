// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package geom provides the geometry used by the layer compositor:
// floating point rectangles, integer pixel regions and 4x4 transforms.
//
// Integer rectangles are plain [image.Rectangle] values. A [Region] is a set
// of disjoint integer rectangles and supports the union, subtraction and
// intersection operations used by invalidation and occlusion culling.
package geom
