// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package layers

import (
	"image"

	"github.com/gogpu/compositor/render"
)

// Debug holds developer options honored while rendering.
type Debug struct {
	// DrawScrollBorders outlines the composition bounds and displayport of
	// every scroll frame.
	DrawScrollBorders bool

	// HighlightCheckerboard fills checkerboarded areas with a fixed color
	// instead of the scroll frame background.
	HighlightCheckerboard bool
}

// Stats counts what one Prepare/Render cycle did.
type Stats struct {
	Prepared        int // containers prepared
	Culled          int // leaves skipped by visibility culling
	Quads           int // quads issued
	SurfacesCreated int // intermediate surfaces acquired
	SurfacesReused  int // intermediate surfaces kept from the last frame
	SurfaceCopies   int // surfaces initialized from the background
}

// Context carries what the pipeline needs from the frame coordinator. It
// is passed explicitly to every pipeline call.
type Context struct {
	Compositor render.Compositor

	// Pool recycles intermediate surfaces. When nil, surfaces are created
	// and released directly on Compositor.
	Pool *render.TargetPool

	Debug Debug

	// UnusedAsyncTransform is set during Render when a scroll placeholder
	// carries an async transform that was not applied to content.
	UnusedAsyncTransform bool

	Stats Stats
}

// NewContext returns a context drawing through c with a fresh pool.
func NewContext(c render.Compositor) *Context {
	return &Context{Compositor: c, Pool: render.NewTargetPool(c)}
}

// ResetFrame clears per-frame outputs.
func (ctx *Context) ResetFrame() {
	ctx.UnusedAsyncTransform = false
	ctx.Stats = Stats{}
}

func (ctx *Context) acquire(rect image.Rectangle, init render.InitMode) (render.Target, error) {
	if ctx.Pool != nil {
		return ctx.Pool.Acquire(rect, init)
	}
	return ctx.Compositor.CreateRenderTarget(rect, init)
}

func (ctx *Context) release(t render.Target) {
	if t == nil {
		return
	}
	if ctx.Pool != nil {
		ctx.Pool.Release(t)
		return
	}
	ctx.Compositor.ReleaseRenderTarget(t)
}

// Release hands targets returned by Destroy or ReleaseSurfaces back.
func (ctx *Context) Release(ts ...render.Target) {
	for _, t := range ts {
		ctx.release(t)
	}
}

// resolveClip turns an optional clip into a rectangle on the current
// target.
func (ctx *Context) resolveClip(clip *image.Rectangle) image.Rectangle {
	cur := ctx.Compositor.CurrentRenderTarget()
	if cur == nil {
		if clip == nil {
			return image.Rectangle{}
		}
		return *clip
	}
	r := cur.Rect()
	if clip != nil {
		r = r.Intersect(*clip)
	}
	return r
}
