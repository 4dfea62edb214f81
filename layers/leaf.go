// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package layers

import (
	"fmt"
	"image"
	"image/color"

	"github.com/gogpu/gputypes"
	"golang.org/x/image/colornames"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/geom"
	"github.com/gogpu/compositor/render"
)

// renderLeaf draws the visible part of a leaf's content.
func renderLeaf(ctx *Context, l *Layer, clip *image.Rectangle) {
	if l.content.Empty() || l.effVisible.IsEmpty() {
		return
	}
	var chain render.EffectChain
	if l.content.Image != nil {
		chain.Primary = render.TextureEffect{Image: l.content.Image, Bounds: l.content.Bounds}
	} else {
		chain.Primary = render.SolidColorEffect{Color: l.content.Color}
	}
	chain.Blend = l.Blend
	if l.mask != nil {
		mask, err := buildMask(l.mask)
		if err != nil {
			compositor.Logger().Warn("layers: skipping masked layer", "layer", l.id, "err", err)
			return
		}
		chain.Mask = mask
	}

	c := ctx.Compositor
	clipRect := ctx.resolveClip(clip)
	for _, r := range l.effVisible.IntersectRect(l.content.Bounds).Rects() {
		ctx.Stats.Quads++
		c.DrawQuad(geom.RectFrom(r), clipRect, chain, l.effOpacity, l.effTransform)
	}
}

// buildMask turns a mask layer into a mask effect. The mask's alpha covers
// its content bounds in the space of the masked layer.
func buildMask(mask *Layer) (*render.MaskEffect, error) {
	if mask.IsContainer() {
		return nil, fmt.Errorf("%w: mask %d is a %s", ErrMaskConstruction, mask.id, mask.kind)
	}
	c := mask.content
	if c.Bounds.Empty() {
		return nil, fmt.Errorf("%w: mask %d has no content", ErrMaskConstruction, mask.id)
	}
	img := c.Image
	if img == nil {
		a := uint8(c.Color.A*255 + 0.5)
		u := image.NewAlpha(c.Bounds)
		for i := range u.Pix {
			u.Pix[i] = a
		}
		img = u
	}
	return &render.MaskEffect{Image: img, Bounds: c.Bounds}, nil
}

// checkerboardColor reports whether an async transform has outrun the
// painted content of l, and the color to fill the gap with.
func checkerboardColor(ctx *Context, l *Layer) (gputypes.Color, bool) {
	for _, md := range l.ScrollMetadata {
		if md.IsCheckerboarding() {
			if ctx.Debug.HighlightCheckerboard {
				return render.ColorFromRGBA(colornames.Lightcoral), true
			}
			return md.BackgroundColor, true
		}
	}
	return gputypes.Color{}, false
}

// drawScrollBorders outlines the scroll frames of child, outermost first,
// accumulating the async transform of every enclosing frame.
func drawScrollBorders(ctx *Context, container, child *Layer, clip *image.Rectangle) {
	if len(child.ScrollMetadata) == 0 {
		return
	}
	clipRect := ctx.resolveClip(clip)
	acc := geom.Identity()
	for i := len(child.ScrollMetadata) - 1; i >= 0; i-- {
		md := child.ScrollMetadata[i]
		acc = acc.Mul(md.AsyncTransform)
		m := container.effTransform.Mul(child.Transform).Mul(acc)
		drawBorder(ctx, md.Displayport, clipRect, colornames.Red, m)
		drawBorder(ctx, md.CompositionBounds, clipRect, colornames.Lime, m)
	}
}

const borderWidth = 2

func drawBorder(ctx *Context, r, clip image.Rectangle, c color.RGBA, m geom.Matrix4x4) {
	if r.Empty() {
		return
	}
	chain := render.Solid(render.ColorFromRGBA(c))
	w := borderWidth
	edges := [4]image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+w),
		image.Rect(r.Min.X, r.Max.Y-w, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+w, r.Max.Y),
		image.Rect(r.Max.X-w, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		ctx.Stats.Quads++
		ctx.Compositor.DrawQuad(geom.RectFrom(e.Intersect(r)), clip, chain, 1, m)
	}
}

// renderVR renders the children of l side by side into a stereo buffer
// and draws it through a distortion pass.
func renderVR(ctx *Context, l *Layer, clip *image.Rectangle) {
	c := ctx.Compositor
	vr := l.VR
	rect := render.ClampToMaxTextureSize(image.Rect(0, 0, 2*vr.EyeSize.X, vr.EyeSize.Y), c.MaxTextureSize())
	if rect.Empty() {
		return
	}
	surface, err := c.CreateRenderTarget(rect, render.InitClear)
	if err != nil {
		compositor.Logger().Warn("layers: no stereo buffer", "layer", l.id, "rect", rect, "err", err)
		return
	}
	defer c.ReleaseRenderTarget(surface)

	prev := c.CurrentRenderTarget()
	c.SetRenderTarget(surface)
	for _, child := range l.children {
		if child.IsContainer() {
			Prepare(ctx, child, child.Clip)
		} else if child.effVisible.IsEmpty() {
			continue
		}
		Render(ctx, child, child.Clip)
	}
	if prev != nil {
		c.SetRenderTarget(prev)
	}

	chain := render.FromTarget(surface)
	chain.Distortion = &render.DistortionEffect{EyeSize: vr.EyeSize, EyeOffsets: vr.EyeOffsets}
	ctx.Stats.Quads++
	c.DrawQuad(geom.RectFrom(rect), ctx.resolveClip(clip), chain, l.effOpacity, l.effTransform)
}
