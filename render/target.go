// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"image"

	"github.com/gogpu/gputypes"
)

// InitMode says how a freshly created render target is initialized.
type InitMode uint8

const (
	// InitClear clears the target to transparent black.
	InitClear InitMode = iota
	// InitNone leaves the contents undefined. Used when the caller is about
	// to cover every pixel with opaque content.
	InitNone
)

// String returns the name of the mode.
func (m InitMode) String() string {
	switch m {
	case InitClear:
		return "Clear"
	case InitNone:
		return "None"
	default:
		return "Unknown"
	}
}

// LoadOp maps the mode to the render pass load operation used by GPU
// backends.
func (m InitMode) LoadOp() gputypes.LoadOp {
	if m == InitClear {
		return gputypes.LoadOpClear
	}
	return gputypes.LoadOpLoad
}

// Target is a render target owned by a [Compositor].
//
// A target covers Rect() in the coordinate space it is drawn into. Pixel
// (x, y) of the target corresponds to point (x, y) in that space, so the
// origin of a target is Rect().Min rather than (0, 0).
type Target interface {
	// Rect returns the area covered by the target.
	Rect() image.Rectangle

	// Format returns the pixel format.
	Format() gputypes.TextureFormat

	// ClearOnBind reports whether the target is cleared the next time it
	// becomes the current render target.
	ClearOnBind() bool

	// SetClearOnBind requests a clear on the next bind. Used when a target
	// is recycled for a surface that must start transparent.
	SetClearOnBind(clear bool)
}

// TargetBase implements the bookkeeping part of [Target]. Backends embed it
// in their target types.
type TargetBase struct {
	rect        image.Rectangle
	format      gputypes.TextureFormat
	clearOnBind bool
}

// NewTargetBase returns a TargetBase for the given geometry.
func NewTargetBase(rect image.Rectangle, format gputypes.TextureFormat) TargetBase {
	return TargetBase{rect: rect, format: format}
}

// Rect implements Target.
func (t *TargetBase) Rect() image.Rectangle { return t.rect }

// Format implements Target.
func (t *TargetBase) Format() gputypes.TextureFormat { return t.format }

// ClearOnBind implements Target.
func (t *TargetBase) ClearOnBind() bool { return t.clearOnBind }

// SetClearOnBind implements Target.
func (t *TargetBase) SetClearOnBind(clear bool) { t.clearOnBind = clear }

// Origin returns the top-left corner of the target.
func Origin(t Target) image.Point {
	if t == nil {
		return image.Point{}
	}
	return t.Rect().Min
}
