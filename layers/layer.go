// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package layers

import (
	"image"
	"slices"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/compositor/geom"
	"github.com/gogpu/compositor/render"
)

// ID identifies a layer within a tree.
type ID uint64

// Kind is the variant of a layer.
type Kind uint8

const (
	// KindLeaf draws its own content and has no children.
	KindLeaf Kind = iota
	// KindContainer composites an ordered list of children.
	KindContainer
	// KindReference holds a single referent subtree, typically the root
	// of another content pipeline.
	KindReference
)

var kindNames = [...]string{
	KindLeaf:      "Leaf",
	KindContainer: "Container",
	KindReference: "Reference",
}

// String returns the name of the kind.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Unknown"
}

// ContentFlags describe the content of a layer.
type ContentFlags uint8

const (
	// ContentOpaque promises that every pixel of the visible region is
	// opaque.
	ContentOpaque ContentFlags = 1 << iota
	// ContentComponentAlpha marks subpixel-antialiased content that must be
	// blended against the real background.
	ContentComponentAlpha
)

// ScrollMetadata describes one scroll frame a layer scrolls with.
type ScrollMetadata struct {
	ScrollID uint64

	// AsyncTransform is the scroll/zoom transform applied by async
	// panning since the content was painted.
	AsyncTransform geom.Matrix4x4

	// AsyncTransformUnused is set when AsyncTransform could not be applied
	// to the content.
	AsyncTransformUnused bool

	// CompositionBounds is the scroll port, in layer space.
	CompositionBounds image.Rectangle

	// Displayport is the painted area, in layer space.
	Displayport image.Rectangle

	// BackgroundColor fills checkerboarded areas.
	BackgroundColor gputypes.Color
}

// IsCheckerboarding reports whether the async transform moved the scroll
// port outside of what has been painted.
func (m ScrollMetadata) IsCheckerboarding() bool {
	if m.CompositionBounds.Empty() {
		return false
	}
	shown := m.AsyncTransform.TransformBounds(m.CompositionBounds)
	return !shown.In(m.Displayport)
}

// VRInfo marks a container rendered as a stereo pair.
type VRInfo struct {
	// EyeSize is the per-eye resolution.
	EyeSize image.Point
	// EyeOffsets are the per-eye viewports handed to the distortion pass.
	EyeOffsets [2]geom.Rect
}

// Attributes are the properties a content peer sets on a layer.
type Attributes struct {
	// Transform maps layer space into the parent's layer space.
	Transform geom.Matrix4x4

	// Opacity in [0, 1].
	Opacity float32

	Flags ContentFlags

	// Clip restricts drawing, in the space of the target the layer draws
	// into. Nil means unclipped.
	Clip *image.Rectangle

	// VisibleRegion is the nominal visible region in layer space.
	VisibleRegion geom.Region

	Blend render.BlendMode

	// ForceIntermediate makes a container flatten its children first.
	ForceIntermediate bool

	// Extend3DContext makes the children share this layer's 3D rendering
	// context.
	Extend3DContext bool

	// ScrollMetadata lists the scroll frames, innermost first.
	ScrollMetadata []ScrollMetadata

	// ScrollInfo marks an empty container standing in for an async
	// scrollable frame.
	ScrollInfo bool

	// VR renders the container as a stereo pair when set.
	VR *VRInfo
}

// DefaultAttributes returns attributes with an identity transform and full
// opacity.
func DefaultAttributes() Attributes {
	return Attributes{Transform: geom.Identity(), Opacity: 1}
}

// Content is what a leaf draws: a solid color or an image, covering Bounds
// in layer space.
type Content struct {
	Bounds image.Rectangle
	Color  gputypes.Color
	Image  image.Image
}

// SolidContent returns content filling bounds with c.
func SolidContent(bounds image.Rectangle, c gputypes.Color) Content {
	return Content{Bounds: bounds, Color: c}
}

// ImageContent returns content stretching img over bounds.
func ImageContent(bounds image.Rectangle, img image.Image) Content {
	return Content{Bounds: bounds, Image: img}
}

// Empty reports whether the content draws nothing.
func (c Content) Empty() bool {
	return c.Bounds.Empty() || (c.Image == nil && c.Color.A == 0)
}

// Layer is a node of the layer tree.
//
// Layers are not safe for concurrent use; the whole tree belongs to the
// goroutine running composites.
type Layer struct {
	Attributes

	id       ID
	kind     Kind
	parent   *Layer
	children []*Layer
	mask     *Layer
	content  Content

	// contentGen changes whenever content is replaced.
	contentGen uint64
	// invalid accumulates content invalidation in layer space.
	invalid   geom.Region
	destroyed bool

	// Computed by ComputeEffectiveTransforms.
	base            geom.Matrix4x4 // parent layer space to target space
	effTransform    geom.Matrix4x4
	screenTransform geom.Matrix4x4
	targetToScreen  geom.Matrix4x4
	effOpacity      float32
	useIntermediate bool
	supportsCA      bool
	needsCopy       bool

	// Computed by PostProcess.
	effVisible geom.Region

	childrenChanged bool
	lastSurface     render.Target
	prepared        *preparedState

	// Set by a hardware composer for the current frame.
	composited bool
	clearRect  image.Rectangle
}

func newLayer(id ID, kind Kind) *Layer {
	return &Layer{
		Attributes:      DefaultAttributes(),
		id:              id,
		kind:            kind,
		effTransform:    geom.Identity(),
		base:            geom.Identity(),
		screenTransform: geom.Identity(),
		targetToScreen:  geom.Identity(),
		effOpacity:      1,
	}
}

// NewLeaf creates a content layer.
func NewLeaf(id ID) *Layer { return newLayer(id, KindLeaf) }

// NewContainer creates a container layer.
func NewContainer(id ID) *Layer { return newLayer(id, KindContainer) }

// NewReference creates a reference layer.
func NewReference(id ID) *Layer { return newLayer(id, KindReference) }

// New creates a layer of the given kind.
func New(id ID, kind Kind) *Layer { return newLayer(id, kind) }

// ID returns the layer id.
func (l *Layer) ID() ID { return l.id }

// Kind returns the layer variant.
func (l *Layer) Kind() Kind { return l.kind }

// IsContainer reports whether the layer can have children.
func (l *Layer) IsContainer() bool { return l.kind != KindLeaf }

// Parent returns the parent, or nil for a root or detached layer.
func (l *Layer) Parent() *Layer { return l.parent }

// Children returns the children in paint order, back to front. The slice
// must not be modified.
func (l *Layer) Children() []*Layer { return l.children }

// Mask returns the mask layer, if any.
func (l *Layer) Mask() *Layer { return l.mask }

// Content returns the leaf content.
func (l *Layer) Content() Content { return l.content }

// Destroyed reports whether Destroy was called.
func (l *Layer) Destroyed() bool { return l.destroyed }

// EffectiveTransform returns the transform from layer space to the space
// of the render target the layer draws into.
func (l *Layer) EffectiveTransform() geom.Matrix4x4 { return l.effTransform }

// ScreenTransform returns the transform from layer space to screen space.
func (l *Layer) ScreenTransform() geom.Matrix4x4 { return l.screenTransform }

// EffectiveOpacity returns the opacity the layer is drawn with.
func (l *Layer) EffectiveOpacity() float32 { return l.effOpacity }

// EffectiveVisibleRegion returns the visible region computed by
// PostProcess, in layer space.
func (l *Layer) EffectiveVisibleRegion() geom.Region { return l.effVisible }

// UseIntermediateSurface reports whether the container flattens its
// children into an offscreen target.
func (l *Layer) UseIntermediateSurface() bool { return l.useIntermediate }

// SupportsComponentAlphaChildren reports whether subpixel content below
// this layer can be blended correctly.
func (l *Layer) SupportsComponentAlphaChildren() bool { return l.supportsCA }

// NeedsSurfaceCopy reports whether the intermediate surface has to start
// from a copy of the background.
func (l *Layer) NeedsSurfaceCopy() bool { return l.needsCopy }

// ChildrenChanged reports whether something below the container changed
// since its intermediate surface was last rendered.
func (l *Layer) ChildrenChanged() bool { return l.childrenChanged }

// SetChildrenChanged forces the next composite to re-render the
// container's intermediate surface.
func (l *Layer) SetChildrenChanged(changed bool) { l.childrenChanged = changed }

// LastSurface returns the intermediate surface cached from the last frame.
func (l *Layer) LastSurface() render.Target { return l.lastSurface }

// SetAttributes replaces the attributes.
func (l *Layer) SetAttributes(a Attributes) {
	l.Attributes = a
	l.markAncestorsChanged()
}

// SetContent replaces the content of a leaf. The visible region is reset
// to the content bounds.
func (l *Layer) SetContent(c Content) {
	l.invalid = l.invalid.UnionRect(l.content.Bounds).UnionRect(c.Bounds)
	l.content = c
	l.contentGen++
	l.VisibleRegion = geom.RegionOf(c.Bounds)
	l.markAncestorsChanged()
}

// Invalidate marks rect (layer space) as repainted.
func (l *Layer) Invalidate(rect image.Rectangle) {
	if rect.Empty() {
		return
	}
	l.invalid = l.invalid.UnionRect(rect)
	l.markAncestorsChanged()
}

// SetMask sets the mask layer. The mask's content covers its bounds in the
// space of the masked layer.
func (l *Layer) SetMask(mask *Layer) {
	l.mask = mask
	l.markAncestorsChanged()
}

// SetComposited marks the layer as composited by a hardware composer for
// this frame. clear is cleared on the frame buffer instead of drawing.
func (l *Layer) SetComposited(composited bool, clear image.Rectangle) {
	l.composited = composited
	l.clearRect = clear
}

// Composited reports whether a hardware composer took the layer.
func (l *Layer) Composited() bool { return l.composited }

// AppendChild adds child on top of the existing children.
func (l *Layer) AppendChild(child *Layer) error {
	var after *Layer
	if n := len(l.children); n > 0 {
		after = l.children[n-1]
	}
	return l.InsertAfter(child, after)
}

// InsertAfter inserts child directly above after. A nil after inserts at
// the bottom.
func (l *Layer) InsertAfter(child, after *Layer) error {
	if err := l.checkInsert(child); err != nil {
		return err
	}
	idx := 0
	if after != nil {
		i := l.indexOf(after)
		if i < 0 {
			return ErrNotChild
		}
		idx = i + 1
	}
	l.children = slices.Insert(l.children, idx, child)
	child.parent = l
	l.childrenChanged = true
	l.markAncestorsChanged()
	return nil
}

// RemoveChild detaches child.
func (l *Layer) RemoveChild(child *Layer) error {
	i := l.indexOf(child)
	if i < 0 {
		return ErrNotChild
	}
	l.children = slices.Delete(l.children, i, i+1)
	child.parent = nil
	l.childrenChanged = true
	l.markAncestorsChanged()
	return nil
}

// RepositionChild moves child directly above after, or to the bottom when
// after is nil.
func (l *Layer) RepositionChild(child, after *Layer) error {
	if child == after {
		return ErrNotChild
	}
	i := l.indexOf(child)
	if i < 0 || (after != nil && l.indexOf(after) < 0) {
		return ErrNotChild
	}
	l.children = slices.Delete(l.children, i, i+1)
	idx := 0
	if after != nil {
		idx = l.indexOf(after) + 1
	}
	l.children = slices.Insert(l.children, idx, child)
	l.childrenChanged = true
	l.markAncestorsChanged()
	return nil
}

// Destroy destroys the subtree, children first, and unlinks the layer from
// its parent. It returns the cached render targets the subtree owned so
// the caller can release them.
func (l *Layer) Destroy() []render.Target {
	if l.destroyed {
		return nil
	}
	var orphans []render.Target
	for len(l.children) > 0 {
		child := l.children[len(l.children)-1]
		orphans = append(orphans, child.Destroy()...)
	}
	if l.parent != nil {
		_ = l.parent.RemoveChild(l)
	}
	if l.lastSurface != nil {
		orphans = append(orphans, l.lastSurface)
		l.lastSurface = nil
	}
	l.prepared = nil
	l.mask = nil
	l.destroyed = true
	return orphans
}

// Walk calls fn for l and every descendant, parents before children, in
// paint order.
func (l *Layer) Walk(fn func(*Layer)) {
	fn(l)
	for _, c := range l.children {
		c.Walk(fn)
	}
}

// ClearComposited resets the hardware composer marks of the subtree.
func (l *Layer) ClearComposited() {
	l.Walk(func(x *Layer) {
		x.composited = false
		x.clearRect = image.Rectangle{}
	})
}

// ReleaseSurfaces drops every cached intermediate surface of the subtree
// and returns them.
func (l *Layer) ReleaseSurfaces() []render.Target {
	var out []render.Target
	l.Walk(func(x *Layer) {
		if x.lastSurface != nil {
			out = append(out, x.lastSurface)
			x.lastSurface = nil
		}
	})
	return out
}

func (l *Layer) checkInsert(child *Layer) error {
	switch {
	case l.destroyed || child.destroyed:
		return ErrDestroyed
	case !l.IsContainer():
		return ErrNotContainer
	case child.parent != nil:
		return ErrHasParent
	case l.kind == KindReference && len(l.children) > 0:
		return ErrReferenceFull
	}
	for p := l; p != nil; p = p.parent {
		if p == child {
			return ErrCycle
		}
	}
	return nil
}

func (l *Layer) indexOf(child *Layer) int {
	return slices.Index(l.children, child)
}

func (l *Layer) markAncestorsChanged() {
	for p := l.parent; p != nil; p = p.parent {
		p.childrenChanged = true
	}
}

// localBounds returns the nominal extent of the layer in layer space.
func (l *Layer) localBounds() image.Rectangle {
	if !l.VisibleRegion.IsEmpty() {
		return l.VisibleRegion.Bounds()
	}
	return l.content.Bounds
}
