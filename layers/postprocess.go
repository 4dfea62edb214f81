// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package layers

import (
	"image"

	"github.com/gogpu/compositor/geom"
	"github.com/gogpu/compositor/render"
)

// PostProcess recomputes the effective visible region of every layer
// below root: the nominal visible region (or, for containers, the union of
// what their descendants show) minus everything hidden behind opaque
// layers painted above it, clipped by the layer's clip and the clips of
// its ancestors.
//
// ComputeEffectiveTransforms must have run first.
func PostProcess(root *Layer) {
	var opaque, visible geom.Region
	postProcess(root, &opaque, &visible, nil)
}

// postProcess visits l. opaque is the region covered by opaque layers in
// front of l, in the parent's layer space; l adds its own opaque area to it.
// visible accumulates l's visible region in the parent's layer space.
// ancestorClip is the combined clip of the ancestors in the space of the
// target l draws into.
func postProcess(l *Layer, opaque, visible *geom.Region, ancestorClip *image.Rectangle) {
	in3D := l.parent != nil && l.parent.Extend3DContext

	// Occlusion only folds through whole-pixel translations. Members of a
	// 3D rendering context neither see nor contribute occlusion.
	var localOpaque geom.Region
	offset, integer := l.Transform.IntegerTranslation()
	integer = integer && !in3D
	if integer {
		localOpaque = opaque.Translate(offset.Mul(-1))
	}

	combined := geom.IntersectRect(l.Clip, ancestorClip)

	// A layer extending a 3D context passes the clip down unchanged; its
	// members apply it.
	var insideClip *image.Rectangle
	childClip := combined
	if !l.Extend3DContext && combined != nil {
		insideClip = untransformClip(*combined, l.effTransform)
		if l.useIntermediate {
			childClip = insideClip
		}
	}

	obscured := localOpaque

	var descendants geom.Region
	hasPreserve3DChild := false
	for i := len(l.children) - 1; i >= 0; i-- {
		c := l.children[i]
		postProcess(c, &localOpaque, &descendants, childClip)
		if c.Extend3DContext {
			hasPreserve3DChild = true
		}
	}

	vis := l.VisibleRegion
	if len(l.children) > 0 && !hasPreserve3DChild {
		vis = descendants
	}
	if !obscured.IsEmpty() {
		vis = vis.Subtract(obscured)
	}
	if insideClip != nil {
		vis = vis.IntersectRect(*insideClip)
	}
	l.effVisible = vis

	parentVis := vis.Transform(l.Transform)
	clipInParent, clipOK := l.clipInParentSpace()
	if l.Clip != nil && clipOK {
		parentVis = parentVis.IntersectRect(clipInParent)
	}
	*visible = visible.Union(parentVis)

	if !integer || l.mask != nil || !l.opaqueForVisibility() {
		return
	}
	if l.Clip != nil && !clipOK {
		return
	}
	if l.Flags&ContentOpaque != 0 {
		localOpaque = localOpaque.Union(l.fullyRenderedRegion())
	}
	localOpaque = localOpaque.Translate(offset)
	if l.Clip != nil {
		localOpaque = localOpaque.IntersectRect(clipInParent)
	}
	*opaque = opaque.Union(localOpaque)
}

// opaqueForVisibility reports whether the layer hides what is behind its
// opaque parts: it is drawn at full opacity with normal blending.
func (l *Layer) opaqueForVisibility() bool {
	return l.effOpacity >= 1 && l.Blend == render.BlendNormal
}

// fullyRenderedRegion returns the part of the layer drawn with final
// content.
func (l *Layer) fullyRenderedRegion() geom.Region {
	if l.kind == KindLeaf && !l.content.Bounds.Empty() {
		return l.effVisible.IntersectRect(l.content.Bounds)
	}
	return l.effVisible
}

// clipInParentSpace converts the clip into the parent's layer space. The
// conversion is exact only when the parent space maps onto the target by a
// whole-pixel translation.
func (l *Layer) clipInParentSpace() (image.Rectangle, bool) {
	if l.Clip == nil {
		return image.Rectangle{}, true
	}
	p, ok := l.base.IntegerTranslation()
	if !ok {
		return image.Rectangle{}, false
	}
	return l.Clip.Sub(p), true
}

// untransformClip maps a target space clip back into layer space. It
// returns nil when no meaningful rectangle exists (perspective or a
// singular transform).
func untransformClip(clip image.Rectangle, m geom.Matrix4x4) *image.Rectangle {
	if p, ok := m.IntegerTranslation(); ok {
		r := clip.Sub(p)
		return &r
	}
	if m.HasPerspective() {
		return nil
	}
	inv, ok := m.Inverse()
	if !ok {
		return nil
	}
	r := inv.TransformBounds(clip)
	return &r
}
