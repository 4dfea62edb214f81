// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package layers

import (
	"github.com/gogpu/compositor/geom"
	"github.com/gogpu/compositor/render"
)

// ComputeEffectiveTransforms recomputes the effective transform, opacity
// and intermediate surface decision of every layer below root. The root is
// drawn straight onto the screen, so its base transform is the identity.
func ComputeEffectiveTransforms(root *Layer) {
	computeEffective(root, geom.Identity(), geom.Identity(), 1)
}

func computeEffective(l *Layer, base, targetToScreen geom.Matrix4x4, parentOpacity float32) {
	l.base = base
	l.targetToScreen = targetToScreen
	l.effTransform = base.Mul(l.Transform)
	l.screenTransform = targetToScreen.Mul(l.effTransform)
	l.effOpacity = parentOpacity * l.Opacity

	if !l.IsContainer() {
		l.useIntermediate = false
		return
	}

	l.useIntermediate = l.computeUseIntermediate()
	childBase, childScreen, childOpacity := l.effTransform, targetToScreen, l.effOpacity
	if l.useIntermediate {
		childBase, childScreen, childOpacity = geom.Identity(), l.screenTransform, 1
	}
	l.computeSupportsComponentAlpha()
	for _, c := range l.children {
		computeEffective(c, childBase, childScreen, childOpacity)
	}
}

// computeUseIntermediate decides whether the container renders its
// children offscreen first. A container needs a surface when it is masked,
// blends with a non-normal mode, is rendered as a stereo pair, or applies a
// group opacity over more than one visible child.
func (l *Layer) computeUseIntermediate() bool {
	switch {
	case l.ForceIntermediate, l.mask != nil, l.Blend != render.BlendNormal, l.VR != nil:
		return true
	case l.effOpacity < 1:
		return l.visibleChildren() > 1
	default:
		return false
	}
}

func (l *Layer) visibleChildren() int {
	n := 0
	for _, c := range l.children {
		if c.Clip != nil && c.Clip.Empty() {
			continue
		}
		if c.IsContainer() {
			if len(c.children) > 0 {
				n++
			}
			continue
		}
		if !c.VisibleRegion.IsEmpty() {
			n++
		}
	}
	return n
}

// computeSupportsComponentAlpha decides whether subpixel children can be
// blended against the real background. An opaque single-rect surface always
// can. A transparent surface can when an opaque ancestor provides the
// background, the container sits on an integer pixel offset and blends
// normally; the surface then starts as a copy of that background.
func (l *Layer) computeSupportsComponentAlpha() {
	l.supportsCA, l.needsCopy = false, false
	if !l.useIntermediate {
		l.supportsCA = l.Flags&ContentOpaque != 0 || (l.parent != nil && l.parent.supportsCA)
		return
	}
	if l.VisibleRegion.NumRects() == 1 && l.Flags&ContentOpaque != 0 {
		l.supportsCA = true
		return
	}
	if !l.hasOpaqueAncestor() || l.Blend != render.BlendNormal || l.VR != nil {
		return
	}
	if _, ok := l.effTransform.IntegerTranslation(); !ok {
		return
	}
	l.supportsCA = true
	l.needsCopy = l.hasComponentAlphaChild()
}

func (l *Layer) hasOpaqueAncestor() bool {
	for p := l.parent; p != nil; p = p.parent {
		if p.Flags&ContentOpaque != 0 {
			return true
		}
	}
	return false
}

func (l *Layer) hasComponentAlphaChild() bool {
	for _, c := range l.children {
		if c.Flags&ContentComponentAlpha != 0 {
			return true
		}
	}
	return false
}
