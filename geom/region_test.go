// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package geom

import (
	"image"
	"testing"
)

func TestRegionUnion(t *testing.T) {
	tests := []struct {
		name     string
		rects    []image.Rectangle
		wantArea int
		wantBox  image.Rectangle
	}{
		{"empty", nil, 0, image.Rectangle{}},
		{"single", []image.Rectangle{image.Rect(0, 0, 10, 10)}, 100, image.Rect(0, 0, 10, 10)},
		{"disjoint", []image.Rectangle{image.Rect(0, 0, 10, 10), image.Rect(20, 0, 30, 10)}, 200, image.Rect(0, 0, 30, 10)},
		{"overlap", []image.Rectangle{image.Rect(0, 0, 10, 10), image.Rect(5, 5, 15, 15)}, 175, image.Rect(0, 0, 15, 15)},
		{"contained", []image.Rectangle{image.Rect(0, 0, 10, 10), image.Rect(2, 2, 4, 4)}, 100, image.Rect(0, 0, 10, 10)},
		{"empty rect ignored", []image.Rectangle{image.Rect(0, 0, 10, 10), image.Rect(3, 3, 3, 8)}, 100, image.Rect(0, 0, 10, 10)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := RegionOf(tt.rects...)
			if got := r.Area(); got != tt.wantArea {
				t.Errorf("Area() = %d, want %d", got, tt.wantArea)
			}
			if got := r.Bounds(); got != tt.wantBox {
				t.Errorf("Bounds() = %v, want %v", got, tt.wantBox)
			}
		})
	}
}

func TestRegionSubtract(t *testing.T) {
	base := RegionOf(image.Rect(0, 0, 10, 10))

	hole := base.SubtractRect(image.Rect(3, 3, 6, 6))
	if got := hole.Area(); got != 91 {
		t.Errorf("Area() after hole = %d, want 91", got)
	}
	if hole.ContainsRect(image.Rect(4, 4, 5, 5)) {
		t.Error("region with hole should not contain the hole")
	}
	if !hole.ContainsRect(image.Rect(0, 0, 10, 3)) {
		t.Error("region with hole should contain the top band")
	}

	if got := base.Subtract(RegionOf(image.Rect(-5, -5, 20, 20))); !got.IsEmpty() {
		t.Errorf("covered subtraction = %v, want empty", got)
	}
	if got := base.SubtractRect(image.Rect(20, 20, 30, 30)); !got.Equal(base) {
		t.Errorf("disjoint subtraction = %v, want %v", got, base)
	}
}

func TestRegionIntersect(t *testing.T) {
	a := RegionOf(image.Rect(0, 0, 10, 10), image.Rect(20, 0, 30, 10))
	b := RegionOf(image.Rect(5, 0, 25, 5))

	got := a.Intersect(b)
	want := RegionOf(image.Rect(5, 0, 10, 5), image.Rect(20, 0, 25, 5))
	if !got.Equal(want) {
		t.Errorf("Intersect() = %v, want %v", got, want)
	}
	if got := a.IntersectRect(image.Rect(100, 100, 110, 110)); !got.IsEmpty() {
		t.Errorf("IntersectRect() disjoint = %v, want empty", got)
	}
}

func TestRegionValueSemantics(t *testing.T) {
	a := RegionOf(image.Rect(0, 0, 10, 10))
	_ = a.UnionRect(image.Rect(10, 0, 20, 10))
	_ = a.SubtractRect(image.Rect(0, 0, 5, 5))
	if got := a.Area(); got != 100 {
		t.Errorf("receiver modified: Area() = %d, want 100", got)
	}
}

func TestRegionTranslateAndTransform(t *testing.T) {
	r := RegionOf(image.Rect(0, 0, 10, 10))

	if got := r.Translate(image.Pt(5, -2)).Bounds(); got != image.Rect(5, -2, 15, 8) {
		t.Errorf("Translate() bounds = %v, want (5,-2)-(15,8)", got)
	}
	if got := r.Transform(Translation(3, 4, 0)).Bounds(); got != image.Rect(3, 4, 13, 14) {
		t.Errorf("Transform(translation) bounds = %v", got)
	}
	if got := r.Transform(Scaling(2, 2, 1)).Bounds(); got != image.Rect(0, 0, 20, 20) {
		t.Errorf("Transform(scale) bounds = %v", got)
	}
	// Sub-pixel translation rounds out.
	if got := r.Transform(Translation(0.5, 0, 0)).Bounds(); got != image.Rect(0, 0, 11, 10) {
		t.Errorf("Transform(0.5) bounds = %v, want (0,0)-(11,10)", got)
	}
}

func TestRegionSimplifyOutward(t *testing.T) {
	var r Region
	for i := 0; i < 20; i++ {
		r = r.UnionRect(image.Rect(i*10, 0, i*10+5, 5))
	}
	if r.NumRects() != 20 {
		t.Fatalf("NumRects() = %d, want 20", r.NumRects())
	}
	s := r.SimplifyOutward(16)
	if s.NumRects() != 1 {
		t.Errorf("SimplifyOutward NumRects() = %d, want 1", s.NumRects())
	}
	if !r.Subtract(s).IsEmpty() {
		t.Error("simplified region must contain the original")
	}
	if got := r.SimplifyOutward(32); got.NumRects() != 20 {
		t.Errorf("SimplifyOutward under limit changed region: %d rects", got.NumRects())
	}
}

func TestRegionRectsDisjoint(t *testing.T) {
	r := RegionOf(
		image.Rect(0, 0, 10, 10),
		image.Rect(5, 5, 15, 15),
		image.Rect(-3, 4, 7, 20),
	)
	rects := r.Rects()
	for i := range rects {
		for j := i + 1; j < len(rects); j++ {
			if rects[i].Overlaps(rects[j]) {
				t.Fatalf("rects %v and %v overlap", rects[i], rects[j])
			}
		}
	}
}
