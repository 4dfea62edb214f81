// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package layers

import (
	"fmt"
	"image"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/render"
)

// Edit is one tree mutation received from a content peer.
type Edit interface {
	apply(t *Tree) error
	String() string
}

// CreateLayer creates a detached layer.
type CreateLayer struct {
	ID   ID
	Kind Kind
}

// SetRoot makes a layer the root of the tree.
type SetRoot struct {
	ID ID
}

// SetLayerAttributes replaces the attributes of a layer. Mask names the
// mask layer; zero removes it.
type SetLayerAttributes struct {
	ID         ID
	Attributes Attributes
	Mask       ID
}

// InsertChild inserts Child into Container directly above After. A zero
// After inserts at the bottom.
type InsertChild struct {
	Container, Child, After ID
}

// RemoveChild detaches Child from Container.
type RemoveChild struct {
	Container, Child ID
}

// RepositionChild moves Child directly above After within Container. A
// zero After moves it to the bottom.
type RepositionChild struct {
	Container, Child, After ID
}

// AttachCompositable attaches content to a leaf.
type AttachCompositable struct {
	ID      ID
	Content Content
}

// InvalidateContent marks part of a leaf as repainted.
type InvalidateContent struct {
	ID   ID
	Rect image.Rectangle
}

// DestroyLayer destroys a layer and its subtree.
type DestroyLayer struct {
	ID ID
}

func (e CreateLayer) String() string        { return fmt.Sprintf("CreateLayer(%d, %s)", e.ID, e.Kind) }
func (e SetRoot) String() string            { return fmt.Sprintf("SetRoot(%d)", e.ID) }
func (e SetLayerAttributes) String() string { return fmt.Sprintf("SetLayerAttributes(%d)", e.ID) }
func (e InsertChild) String() string {
	return fmt.Sprintf("InsertChild(%d, %d, after %d)", e.Container, e.Child, e.After)
}
func (e RemoveChild) String() string { return fmt.Sprintf("RemoveChild(%d, %d)", e.Container, e.Child) }
func (e RepositionChild) String() string {
	return fmt.Sprintf("RepositionChild(%d, %d, after %d)", e.Container, e.Child, e.After)
}
func (e AttachCompositable) String() string { return fmt.Sprintf("AttachCompositable(%d)", e.ID) }
func (e InvalidateContent) String() string {
	return fmt.Sprintf("InvalidateContent(%d, %v)", e.ID, e.Rect)
}
func (e DestroyLayer) String() string { return fmt.Sprintf("DestroyLayer(%d)", e.ID) }

// Tree owns the layers created by one content peer, indexed by id.
type Tree struct {
	layers   map[ID]*Layer
	root     *Layer
	released []render.Target
}

// NewTree creates an empty tree.
func NewTree() *Tree {
	return &Tree{layers: make(map[ID]*Layer)}
}

// Root returns the root layer, or nil.
func (t *Tree) Root() *Layer { return t.root }

// Layer returns the layer with the given id.
func (t *Tree) Layer(id ID) (*Layer, bool) {
	l, ok := t.layers[id]
	return l, ok
}

// Len returns the number of live layers.
func (t *Tree) Len() int { return len(t.layers) }

// Apply applies edits in order. It stops at the first invalid edit and
// returns an error wrapping ErrProtocol; edits before it stay applied.
func (t *Tree) Apply(edits ...Edit) error {
	for i, e := range edits {
		if e == nil {
			return fmt.Errorf("%w: edit %d: %w", ErrProtocol, i, ErrInvalidEdit)
		}
		if err := e.apply(t); err != nil {
			compositor.Logger().Error("layers: rejecting edit", "index", i, "edit", e.String(), "err", err)
			return fmt.Errorf("%w: edit %d %s: %w", ErrProtocol, i, e, err)
		}
	}
	return nil
}

// TakeReleased returns the render targets owned by destroyed layers since
// the last call.
func (t *Tree) TakeReleased() []render.Target {
	out := t.released
	t.released = nil
	return out
}

// Destroy destroys every layer and returns the render targets they owned.
func (t *Tree) Destroy() []render.Target {
	for _, l := range t.layers {
		if l.parent == nil {
			t.released = append(t.released, l.Destroy()...)
		}
	}
	clear(t.layers)
	t.root = nil
	return t.TakeReleased()
}

func (t *Tree) lookup(id ID) (*Layer, error) {
	l, ok := t.layers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownLayer, id)
	}
	return l, nil
}

// lookupOptional resolves an id where zero means none.
func (t *Tree) lookupOptional(id ID) (*Layer, error) {
	if id == 0 {
		return nil, nil
	}
	return t.lookup(id)
}

func (e CreateLayer) apply(t *Tree) error {
	if e.ID == 0 {
		return fmt.Errorf("%w: zero id", ErrInvalidEdit)
	}
	if e.Kind > KindReference {
		return fmt.Errorf("%w: layer kind %d", ErrInvalidEdit, e.Kind)
	}
	if _, ok := t.layers[e.ID]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicateLayer, e.ID)
	}
	t.layers[e.ID] = New(e.ID, e.Kind)
	return nil
}

func (e SetRoot) apply(t *Tree) error {
	l, err := t.lookup(e.ID)
	if err != nil {
		return err
	}
	if l.parent != nil {
		return ErrHasParent
	}
	t.root = l
	return nil
}

func (e SetLayerAttributes) apply(t *Tree) error {
	l, err := t.lookup(e.ID)
	if err != nil {
		return err
	}
	mask, err := t.lookupOptional(e.Mask)
	if err != nil {
		return err
	}
	if mask == l {
		return fmt.Errorf("%w: layer %d masks itself", ErrInvalidEdit, e.ID)
	}
	l.SetAttributes(e.Attributes)
	l.SetMask(mask)
	return nil
}

func (e InsertChild) apply(t *Tree) error {
	c, err := t.lookup(e.Container)
	if err != nil {
		return err
	}
	child, err := t.lookup(e.Child)
	if err != nil {
		return err
	}
	after, err := t.lookupOptional(e.After)
	if err != nil {
		return err
	}
	return c.InsertAfter(child, after)
}

func (e RemoveChild) apply(t *Tree) error {
	c, err := t.lookup(e.Container)
	if err != nil {
		return err
	}
	child, err := t.lookup(e.Child)
	if err != nil {
		return err
	}
	return c.RemoveChild(child)
}

func (e RepositionChild) apply(t *Tree) error {
	c, err := t.lookup(e.Container)
	if err != nil {
		return err
	}
	child, err := t.lookup(e.Child)
	if err != nil {
		return err
	}
	after, err := t.lookupOptional(e.After)
	if err != nil {
		return err
	}
	return c.RepositionChild(child, after)
}

func (e AttachCompositable) apply(t *Tree) error {
	l, err := t.lookup(e.ID)
	if err != nil {
		return err
	}
	if l.IsContainer() {
		return fmt.Errorf("%w: compositable attached to %s %d", ErrInvalidEdit, l.kind, e.ID)
	}
	l.SetContent(e.Content)
	return nil
}

func (e InvalidateContent) apply(t *Tree) error {
	l, err := t.lookup(e.ID)
	if err != nil {
		return err
	}
	l.Invalidate(e.Rect)
	return nil
}

func (e DestroyLayer) apply(t *Tree) error {
	l, err := t.lookup(e.ID)
	if err != nil {
		return err
	}
	l.Walk(func(x *Layer) { delete(t.layers, x.id) })
	t.released = append(t.released, l.Destroy()...)
	if t.root != nil && t.root.destroyed {
		t.root = nil
	}
	return nil
}
