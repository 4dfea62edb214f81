// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package layers

import (
	"image"
	"math"
	"slices"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/geom"
	"github.com/gogpu/compositor/render"
)

// preparedLayer is a child selected for rendering and its clip in the
// space of the target it draws into.
type preparedLayer struct {
	layer *Layer
	clip  *image.Rectangle
}

// preparedState lives from a container's Prepare to the matching Render.
type preparedState struct {
	children []preparedLayer
	target   render.Target

	// needsSurfaceCopy defers surface creation to Render, where the
	// background to copy is current.
	needsSurfaceCopy bool
	// vr defers everything to the stereo render path.
	vr bool
}

// PreparedChildren returns the ids of the children selected by the last
// Prepare, in render order. It is empty outside a Prepare/Render pair.
func (l *Layer) PreparedChildren() []ID {
	if l.prepared == nil {
		return nil
	}
	ids := make([]ID, len(l.prepared.children))
	for i, pl := range l.prepared.children {
		ids[i] = pl.layer.id
	}
	return ids
}

// Prepare runs the first pipeline phase for container l. clip is the clip
// l draws under, in the space of its target (nil means unclipped).
//
// Prepare selects the children to render and their clips, prepares child
// containers recursively, and, when l flattens its children, either keeps
// last frame's surface or renders the children into a new one right away.
func Prepare(ctx *Context, l *Layer, clip *image.Rectangle) {
	if !l.IsContainer() {
		return
	}
	ctx.Stats.Prepared++
	state := &preparedState{}
	l.prepared = state

	if l.VR != nil {
		state.vr = true
		return
	}

	// Children of a flattened container draw into its surface, which the
	// incoming clip does not describe.
	parentClip := clip
	if l.useIntermediate {
		parentClip = nil
	}

	for _, child := range l.sortedChildren() {
		childClip := geom.IntersectRect(parentClip, child.Clip)
		if !child.IsContainer() {
			if child.effVisible.IsEmpty() || (childClip != nil && childClip.Empty()) {
				ctx.Stats.Culled++
				continue
			}
		} else {
			Prepare(ctx, child, childClip)
		}
		state.children = append(state.children, preparedLayer{layer: child, clip: childClip})
	}

	if !l.useIntermediate {
		return
	}

	surfaceRect := render.ClampToMaxTextureSize(l.effVisible.Bounds(), ctx.Compositor.MaxTextureSize())
	if surfaceRect.Empty() {
		return
	}

	if l.needsCopy {
		state.needsSurfaceCopy = true
		ctx.release(l.lastSurface)
		l.lastSurface = nil
		return
	}

	if l.lastSurface != nil && !l.childrenChanged && l.lastSurface.Rect() == surfaceRect {
		state.target = l.lastSurface
		ctx.Stats.SurfacesReused++
		compositor.Logger().Debug("layers: reusing intermediate surface", "layer", l.id, "rect", surfaceRect)
		return
	}

	surface, err := l.createOrRecycleSurface(ctx, surfaceRect)
	if err != nil {
		compositor.Logger().Debug("layers: no intermediate surface", "layer", l.id, "rect", surfaceRect, "err", err)
		return
	}
	renderIntermediate(ctx, l, surface)
	l.childrenChanged = false
	state.target = surface
}

// createOrRecycleSurface returns a target for rect, reusing last frame's
// surface when the geometry matches.
func (l *Layer) createOrRecycleSurface(ctx *Context, rect image.Rectangle) (render.Target, error) {
	if last := l.lastSurface; last != nil {
		if last.Rect() == rect {
			last.SetClearOnBind(true)
			ctx.Stats.SurfacesReused++
			return last, nil
		}
		ctx.release(last)
		l.lastSurface = nil
	}

	init := render.InitClear
	if l.VisibleRegion.NumRects() == 1 && l.Flags&ContentOpaque != 0 {
		init = render.InitNone
	}
	surface, err := ctx.acquire(rect, init)
	if err != nil {
		return nil, err
	}
	ctx.Stats.SurfacesCreated++
	l.lastSurface = surface
	return surface, nil
}

// renderIntermediate renders the prepared children of l into surface and
// restores the previous target.
func renderIntermediate(ctx *Context, l *Layer, surface render.Target) {
	c := ctx.Compositor
	prev := c.CurrentRenderTarget()
	c.SetRenderTarget(surface)
	renderLayers(ctx, l)
	if prev != nil {
		c.SetRenderTarget(prev)
	}
}

// Render runs the second pipeline phase for container l and consumes the
// state of the matching Prepare. Rendering a container that was not
// prepared is a programming error and panics.
func Render(ctx *Context, l *Layer, clip *image.Rectangle) {
	if !l.IsContainer() {
		renderLeaf(ctx, l, clip)
		return
	}
	state := l.prepared
	if state == nil {
		panic("layers: Render of a container that was not prepared")
	}
	defer func() { l.prepared = nil }()

	switch {
	case state.vr:
		renderVR(ctx, l, clip)
	case l.useIntermediate:
		renderSurface(ctx, l, state, clip)
	default:
		renderLayers(ctx, l)
	}

	if len(l.children) == 0 && l.ScrollInfo {
		for _, md := range l.ScrollMetadata {
			if md.AsyncTransformUnused && !md.AsyncTransform.IsIdentity() {
				ctx.UnusedAsyncTransform = true
				compositor.Logger().Debug("layers: async transform not applied to content", "layer", l.id, "scrollID", md.ScrollID)
				break
			}
		}
	}
}

func renderSurface(ctx *Context, l *Layer, state *preparedState, clip *image.Rectangle) {
	c := ctx.Compositor
	surface := state.target
	copied := false

	if state.needsSurfaceCopy {
		surfaceRect := render.ClampToMaxTextureSize(l.effVisible.Bounds(), c.MaxTextureSize())
		cur := c.CurrentRenderTarget()
		if cur == nil || surfaceRect.Empty() {
			return
		}
		// A surface copy implies an integer translation.
		off, _ := l.effTransform.IntegerTranslation()
		source := surfaceRect.Min.Add(off).Sub(render.Origin(cur))
		var err error
		surface, err = c.CreateRenderTargetFromSource(surfaceRect, cur, source)
		if err != nil {
			compositor.Logger().Debug("layers: surface copy failed", "layer", l.id, "err", err)
			return
		}
		ctx.Stats.SurfaceCopies++
		copied = true
		renderIntermediate(ctx, l, surface)
	}
	if surface == nil {
		return
	}
	if copied {
		defer c.ReleaseRenderTarget(surface)
	}

	chain := render.FromTarget(surface)
	chain.Blend = l.Blend
	if l.mask != nil {
		mask, err := buildMask(l.mask)
		if err != nil {
			compositor.Logger().Warn("layers: skipping masked container", "layer", l.id, "err", err)
			return
		}
		chain.Mask = mask
	}

	ctx.Stats.Quads++
	c.DrawQuad(geom.RectFrom(surface.Rect()), ctx.resolveClip(clip), chain, l.effOpacity, l.effTransform)
}

// renderLayers draws the prepared children of l, back to front, onto the
// current target.
func renderLayers(ctx *Context, l *Layer) {
	c := ctx.Compositor
	for _, pl := range l.prepared.children {
		child := pl.layer

		if child.Flags&ContentOpaque != 0 {
			if color, ok := checkerboardColor(ctx, child); ok {
				ctx.Stats.Quads++
				c.DrawQuad(geom.RectFrom(child.localBounds()), ctx.resolveClip(pl.clip),
					render.Solid(color), child.effOpacity, child.effTransform)
			}
		}

		if child.composited {
			if !child.clearRect.Empty() {
				c.ClearRect(child.clearRect)
				child.clearRect = image.Rectangle{}
			}
			if child.IsContainer() {
				child.prepared = nil
			}
		} else {
			Render(ctx, child, pl.clip)
		}

		if ctx.Debug.DrawScrollBorders {
			drawScrollBorders(ctx, l, child, pl.clip)
		}
	}
}

// sortedChildren returns the children in render order. Members of a 3D
// rendering context are drawn far to near.
func (l *Layer) sortedChildren() []*Layer {
	if !l.Extend3DContext || len(l.children) < 2 {
		return l.children
	}
	sorted := slices.Clone(l.children)
	depth := func(c *Layer) float64 {
		b := c.localBounds()
		x := float64(b.Min.X+b.Max.X) / 2
		y := float64(b.Min.Y+b.Max.Y) / 2
		z := c.effTransform.TransformZ(x, y)
		if math.IsNaN(z) {
			return 0
		}
		return z
	}
	slices.SortStableFunc(sorted, func(a, b *Layer) int {
		za, zb := depth(a), depth(b)
		switch {
		case za < zb:
			return -1
		case za > zb:
			return 1
		default:
			return 0
		}
	})
	return sorted
}
