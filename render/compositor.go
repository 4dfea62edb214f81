// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"
	"image"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/compositor/geom"
)

// Errors returned by compositors.
var (
	// ErrNotReady is returned when the compositor cannot draw yet, for
	// example before the window surface exists.
	ErrNotReady = errors.New("render: compositor not ready")

	// ErrTargetTooLarge is returned when a render target would exceed the
	// maximum texture size.
	ErrTargetTooLarge = errors.New("render: render target exceeds max texture size")

	// ErrEmptyTarget is returned when a render target has no area.
	ErrEmptyTarget = errors.New("render: empty render target")

	// ErrForeignTarget is returned when a target created by another
	// compositor is passed in.
	ErrForeignTarget = errors.New("render: target belongs to another compositor")
)

// Compositor is the drawing capability the layer tree renders through.
//
// A Compositor is not safe for concurrent use; all calls for one frame come
// from the goroutine running the composite.
type Compositor interface {
	// Ready reports whether frames can be drawn.
	Ready() bool

	// CreateRenderTarget creates an offscreen target covering rect.
	CreateRenderTarget(rect image.Rectangle, init InitMode) (Target, error)

	// CreateRenderTargetFromSource creates a target covering rect whose
	// initial contents are copied from source, starting at sourceOffset
	// relative to the origin of source.
	CreateRenderTargetFromSource(rect image.Rectangle, source Target, sourceOffset image.Point) (Target, error)

	// ReleaseRenderTarget frees a target. Releasing the current target or
	// a nil target is a no-op.
	ReleaseRenderTarget(t Target)

	// SetRenderTarget makes t the target for subsequent draws. A target
	// marked ClearOnBind is cleared first.
	SetRenderTarget(t Target)

	// CurrentRenderTarget returns the target draws currently go to.
	CurrentRenderTarget() Target

	// DrawQuad draws rect (in layer space) through transform onto the
	// current target, restricted to clip (in target space).
	DrawQuad(rect geom.Rect, clip image.Rectangle, effects EffectChain, opacity float32, transform geom.Matrix4x4)

	// ClearRect clears rect of the current target to transparent black.
	ClearRect(rect image.Rectangle)

	// BeginFrame binds the screen target and prepares to draw the invalid
	// region. clip, if non-nil, further restricts drawing. bounds is the
	// full screen area. Opaque areas need no clearing. The returned
	// rectangle is the area that will actually be drawn; an empty result
	// means the frame must be skipped.
	BeginFrame(invalid geom.Region, clip *image.Rectangle, bounds image.Rectangle, opaque geom.Region) image.Rectangle

	// EndFrame finishes the frame and presents it.
	EndFrame()

	// MaxTextureSize returns the largest supported target edge in pixels.
	MaxTextureSize() int
}

// Options configures a compositor.
type Options struct {
	MaxTextureSize int
	Format         gputypes.TextureFormat
}

// Option configures a compositor.
type Option func(*Options)

// WithMaxTextureSize overrides the maximum render target edge. Defaults to
// the WebGPU default limit for 2D textures.
func WithMaxTextureSize(size int) Option {
	return func(o *Options) {
		o.MaxTextureSize = size
	}
}

// WithFormat sets the pixel format of created targets.
func WithFormat(format gputypes.TextureFormat) Option {
	return func(o *Options) {
		o.Format = format
	}
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{
		MaxTextureSize: int(gputypes.DefaultLimits().MaxTextureDimension2D),
		Format:         gputypes.TextureFormatRGBA8Unorm,
	}
}

// ApplyOptions applies opts over the defaults.
func ApplyOptions(opts ...Option) Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// CheckTargetSize validates rect against the maximum texture size.
func CheckTargetSize(rect image.Rectangle, maxSize int) error {
	if rect.Empty() {
		return ErrEmptyTarget
	}
	if maxSize > 0 && (rect.Dx() > maxSize || rect.Dy() > maxSize) {
		return ErrTargetTooLarge
	}
	return nil
}

// ClampToMaxTextureSize shrinks rect so neither edge exceeds maxSize,
// keeping its origin.
func ClampToMaxTextureSize(rect image.Rectangle, maxSize int) image.Rectangle {
	if maxSize <= 0 {
		return rect
	}
	if rect.Dx() > maxSize {
		rect.Max.X = rect.Min.X + maxSize
	}
	if rect.Dy() > maxSize {
		rect.Max.Y = rect.Min.Y + maxSize
	}
	return rect
}
