// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package layers

import (
	"errors"
	"image"
	"testing"
)

func buildTree(t *testing.T) *Tree {
	t.Helper()
	tree := NewTree()
	err := tree.Apply(
		CreateLayer{ID: 1, Kind: KindContainer},
		CreateLayer{ID: 2, Kind: KindLeaf},
		CreateLayer{ID: 3, Kind: KindLeaf},
		SetRoot{ID: 1},
		InsertChild{Container: 1, Child: 2},
		InsertChild{Container: 1, Child: 3, After: 2},
		AttachCompositable{ID: 2, Content: SolidContent(image.Rect(0, 0, 10, 10), red)},
	)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	return tree
}

func childIDs(l *Layer) []ID {
	var ids []ID
	for _, c := range l.Children() {
		ids = append(ids, c.ID())
	}
	return ids
}

func TestTreeApply(t *testing.T) {
	tree := buildTree(t)
	if tree.Len() != 3 {
		t.Errorf("Len() = %d, want 3", tree.Len())
	}
	root := tree.Root()
	if root == nil || root.ID() != 1 {
		t.Fatalf("Root() = %v, want layer 1", root)
	}
	if got := childIDs(root); len(got) != 2 || got[0] != 2 || got[1] != 3 {
		t.Errorf("children = %v, want [2 3]", got)
	}
	l, _ := tree.Layer(2)
	if l.Content().Bounds != image.Rect(0, 0, 10, 10) {
		t.Errorf("content bounds = %v", l.Content().Bounds)
	}

	if err := tree.Apply(RepositionChild{Container: 1, Child: 2, After: 3}); err != nil {
		t.Fatalf("RepositionChild: %v", err)
	}
	if got := childIDs(root); got[0] != 3 || got[1] != 2 {
		t.Errorf("children after reposition = %v, want [3 2]", got)
	}

	attrs := DefaultAttributes()
	attrs.Opacity = 0.25
	if err := tree.Apply(SetLayerAttributes{ID: 1, Attributes: attrs, Mask: 3}); err != nil {
		t.Fatalf("SetLayerAttributes: %v", err)
	}
	if root.Opacity != 0.25 || root.Mask() == nil || root.Mask().ID() != 3 {
		t.Errorf("attributes not applied: opacity %v mask %v", root.Opacity, root.Mask())
	}
}

func TestTreeApplyErrors(t *testing.T) {
	tests := []struct {
		name string
		edit Edit
		want error
	}{
		{"nil edit", nil, ErrInvalidEdit},
		{"zero id", CreateLayer{ID: 0, Kind: KindLeaf}, ErrInvalidEdit},
		{"duplicate", CreateLayer{ID: 2, Kind: KindLeaf}, ErrDuplicateLayer},
		{"unknown child", InsertChild{Container: 1, Child: 99}, ErrUnknownLayer},
		{"unknown after", InsertChild{Container: 1, Child: 2, After: 99}, ErrUnknownLayer},
		{"leaf container", InsertChild{Container: 2, Child: 3}, ErrNotContainer},
		{"cycle", InsertChild{Container: 1, Child: 1}, ErrCycle},
		{"not a child", RemoveChild{Container: 1, Child: 1}, ErrNotChild},
		{"content on container", AttachCompositable{ID: 1}, ErrInvalidEdit},
		{"self mask", SetLayerAttributes{ID: 2, Attributes: DefaultAttributes(), Mask: 2}, ErrInvalidEdit},
		{"unknown destroy", DestroyLayer{ID: 42}, ErrUnknownLayer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := buildTree(t)
			err := tree.Apply(tt.edit)
			if !errors.Is(err, ErrProtocol) {
				t.Errorf("Apply() error = %v, want ErrProtocol", err)
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Apply() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestTreeApplyStopsAtFirstError(t *testing.T) {
	tree := NewTree()
	err := tree.Apply(
		CreateLayer{ID: 1, Kind: KindContainer},
		SetRoot{ID: 7},
		CreateLayer{ID: 2, Kind: KindLeaf},
	)
	if !errors.Is(err, ErrUnknownLayer) {
		t.Fatalf("Apply() error = %v, want ErrUnknownLayer", err)
	}
	if tree.Len() != 1 {
		t.Errorf("Len() = %d, want 1 (edits before the failure stay applied)", tree.Len())
	}
}

func TestTreeDestroyLayer(t *testing.T) {
	tree := buildTree(t)
	l2, _ := tree.Layer(2)

	if err := tree.Apply(DestroyLayer{ID: 2}); err != nil {
		t.Fatalf("DestroyLayer: %v", err)
	}
	if !l2.Destroyed() {
		t.Error("layer 2 should be destroyed")
	}
	if _, ok := tree.Layer(2); ok {
		t.Error("destroyed layer still indexed")
	}
	if got := childIDs(tree.Root()); len(got) != 1 || got[0] != 3 {
		t.Errorf("children = %v, want [3]", got)
	}

	if err := tree.Apply(DestroyLayer{ID: 1}); err != nil {
		t.Fatalf("DestroyLayer(root): %v", err)
	}
	if tree.Root() != nil || tree.Len() != 0 {
		t.Errorf("Root() = %v, Len() = %d; want empty tree", tree.Root(), tree.Len())
	}
}

func TestTreeDestroyReleasesSurfaces(t *testing.T) {
	tree := NewTree()
	err := tree.Apply(
		CreateLayer{ID: 1, Kind: KindContainer},
		CreateLayer{ID: 2, Kind: KindContainer},
		CreateLayer{ID: 3, Kind: KindLeaf},
		CreateLayer{ID: 4, Kind: KindLeaf},
		SetRoot{ID: 1},
		InsertChild{Container: 1, Child: 2},
		InsertChild{Container: 2, Child: 3},
		InsertChild{Container: 2, Child: 4, After: 3},
		AttachCompositable{ID: 3, Content: SolidContent(image.Rect(0, 0, 10, 10), red)},
		AttachCompositable{ID: 4, Content: SolidContent(image.Rect(5, 5, 15, 15), blue)},
	)
	if err != nil {
		t.Fatal(err)
	}
	group, _ := tree.Layer(2)
	group.Opacity = 0.5

	ctx, rec := newRecorderContext()
	frame(t, ctx, rec, tree.Root())
	if group.LastSurface() == nil {
		t.Fatal("group should own a surface after compositing")
	}

	released := tree.Destroy()
	if len(released) != 1 {
		t.Errorf("Destroy() released %d targets, want 1", len(released))
	}
	ctx.Release(released...)
	if tree.Len() != 0 {
		t.Errorf("Len() = %d, want 0", tree.Len())
	}
}
