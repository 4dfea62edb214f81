// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package layers

import (
	"image"

	"github.com/gogpu/compositor/geom"
	"github.com/gogpu/compositor/render"
)

// maxDirtyRects is the number of separate changed rectangles tracked
// before the whole screen is treated as changed.
const maxDirtyRects = 16

// Snapshot records the properties of a tree after a composite so the next
// composite can find what changed on screen.
type Snapshot struct {
	root *properties
}

type properties struct {
	layer *Layer

	transform    geom.Matrix4x4
	opacity      float32
	clip         *image.Rectangle
	blend        render.BlendMode
	flags        ContentFlags
	intermediate bool
	visible      geom.Region
	contentGen   uint64
	mask         *properties

	// bounds is the screen area the layer covered.
	bounds   image.Rectangle
	children []*properties
}

// TakeSnapshot records the current state of the tree below root and
// clears the accumulated content invalidation.
func TakeSnapshot(root *Layer) *Snapshot {
	if root == nil {
		return &Snapshot{}
	}
	return &Snapshot{root: snapshotLayer(root)}
}

func snapshotLayer(l *Layer) *properties {
	p := &properties{
		layer:        l,
		transform:    l.effTransform,
		opacity:      l.effOpacity,
		blend:        l.Blend,
		flags:        l.Flags,
		intermediate: l.useIntermediate,
		visible:      l.effVisible,
		contentGen:   l.contentGen,
		bounds:       screenBounds(l),
	}
	if l.Clip != nil {
		c := *l.Clip
		p.clip = &c
	}
	if l.mask != nil {
		p.mask = snapshotLayer(l.mask)
	}
	l.invalid = geom.Region{}
	if len(l.children) > 0 {
		p.children = make([]*properties, len(l.children))
		for i, c := range l.children {
			p.children[i] = snapshotLayer(c)
		}
	}
	return p
}

// screenBounds returns the screen area covered by the visible region of l.
func screenBounds(l *Layer) image.Rectangle {
	b := l.screenTransform.TransformBounds(l.effVisible.Bounds())
	if l.Clip != nil {
		b = b.Intersect(l.targetToScreen.TransformBounds(*l.Clip))
	}
	return b
}

// ComputeDifferences returns the screen region that changed between the
// snapshot and the tree below root. overflow is true when the change is
// too fragmented to track, in which case the caller should treat the
// whole screen as changed.
//
// Containers whose subtree changed are flagged so their intermediate
// surfaces are rendered again.
func (s *Snapshot) ComputeDifferences(root *Layer) (changed geom.Region, overflow bool) {
	d := &differ{}
	switch {
	case s == nil || s.root == nil:
		if root != nil {
			d.add(screenBounds(root))
		}
	case root == nil:
		d.add(s.root.bounds)
	default:
		d.compare(s.root, root)
	}
	if d.region.NumRects() > maxDirtyRects {
		return d.region.SimplifyOutward(1), true
	}
	return d.region, false
}

type differ struct {
	region  geom.Region
	changes int
}

func (d *differ) add(r image.Rectangle) {
	if !r.Empty() {
		d.region = d.region.UnionRect(r)
		d.changes++
	}
}

func (d *differ) addRegion(r geom.Region) {
	if !r.IsEmpty() {
		d.region = d.region.Union(r)
		d.changes++
	}
}

// compare adds what changed between old and l and reports whether
// anything did.
func (d *differ) compare(old *properties, l *Layer) bool {
	newBounds := screenBounds(l)

	if old.layer != l || old.contentChanged(l) {
		d.add(old.bounds)
		d.add(newBounds)
		l.markChanged()
		return true
	}

	// A layer drawn at a new place or strength changes its target, not
	// its own surface.
	placed := old.placementChanged(l)
	if placed {
		d.add(old.bounds)
		d.add(newBounds)
		l.markAncestorsChanged()
	}
	before := d.changes

	if l.IsContainer() {
		d.compareChildren(old, l)
	} else {
		if old.contentGen != l.contentGen {
			d.add(old.bounds)
			d.add(newBounds)
		}
		if !l.invalid.IsEmpty() {
			d.addRegion(l.invalid.IntersectRect(l.effVisible.Bounds()).Transform(l.screenTransform))
		}
	}

	// Newly exposed or hidden parts of the visible region.
	if !old.visible.Equal(l.effVisible) {
		xor := old.visible.Subtract(l.effVisible).Union(l.effVisible.Subtract(old.visible))
		d.addRegion(xor.Transform(l.screenTransform))
	}

	if d.changes != before {
		l.markChanged()
		return true
	}
	return placed
}

// compareChildren matches children by identity. A child that is new, or
// that moved below a sibling it used to be above, is invalidated whole.
func (d *differ) compareChildren(old *properties, l *Layer) {
	oldIndex := make(map[*Layer]int, len(old.children))
	for i, c := range old.children {
		oldIndex[c.layer] = i
	}
	seen := make(map[*Layer]bool, len(l.children))
	last := -1
	for _, c := range l.children {
		seen[c] = true
		i, ok := oldIndex[c]
		if !ok || i < last {
			if ok {
				d.add(old.children[i].bounds)
			}
			d.add(screenBounds(c))
			l.childrenChanged = true
			continue
		}
		last = i
		if d.compare(old.children[i], c) {
			l.childrenChanged = true
		}
	}
	for _, oc := range old.children {
		if !seen[oc.layer] {
			d.add(oc.bounds)
			l.childrenChanged = true
		}
	}
}

// contentChanged reports changes to what l itself draws.
func (p *properties) contentChanged(l *Layer) bool {
	return p.flags != l.Flags || p.intermediate != l.useIntermediate
}

// placementChanged reports changes to how l is drawn into its target.
// Transforms are compared in target space, so children of a moved
// surface see no change.
func (p *properties) placementChanged(l *Layer) bool {
	if p.transform != l.effTransform || p.opacity != l.effOpacity || p.blend != l.Blend {
		return true
	}
	if (p.clip == nil) != (l.Clip == nil) || (p.clip != nil && *p.clip != *l.Clip) {
		return true
	}
	switch {
	case (p.mask == nil) != (l.mask == nil):
		return true
	case p.mask != nil && (p.mask.layer != l.mask || p.mask.contentGen != l.mask.contentGen):
		return true
	}
	return false
}

// markChanged flags l, when it is a container, and its ancestors.
func (l *Layer) markChanged() {
	if l.IsContainer() {
		l.childrenChanged = true
	}
	l.markAncestorsChanged()
}
