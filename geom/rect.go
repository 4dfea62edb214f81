// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package geom

import (
	"image"
	"math"
)

// Rect is an axis-aligned rectangle in floating point layer coordinates.
type Rect struct {
	X, Y, W, H float64
}

// RectFrom converts an integer rectangle to a Rect.
func RectFrom(r image.Rectangle) Rect {
	return Rect{
		X: float64(r.Min.X),
		Y: float64(r.Min.Y),
		W: float64(r.Dx()),
		H: float64(r.Dy()),
	}
}

// MaxX returns the right edge.
func (r Rect) MaxX() float64 { return r.X + r.W }

// MaxY returns the bottom edge.
func (r Rect) MaxY() float64 { return r.Y + r.H }

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool { return r.W <= 0 || r.H <= 0 }

// Intersect returns the largest rectangle contained by both r and o.
func (r Rect) Intersect(o Rect) Rect {
	x0 := math.Max(r.X, o.X)
	y0 := math.Max(r.Y, o.Y)
	x1 := math.Min(r.MaxX(), o.MaxX())
	y1 := math.Min(r.MaxY(), o.MaxY())
	if x1 <= x0 || y1 <= y0 {
		return Rect{}
	}
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// Union returns the smallest rectangle containing both r and o.
func (r Rect) Union(o Rect) Rect {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	x0 := math.Min(r.X, o.X)
	y0 := math.Min(r.Y, o.Y)
	x1 := math.Max(r.MaxX(), o.MaxX())
	y1 := math.Max(r.MaxY(), o.MaxY())
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// Translate returns r moved by (dx, dy).
func (r Rect) Translate(dx, dy float64) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, W: r.W, H: r.H}
}

// RoundOut returns the smallest integer rectangle containing r.
func (r Rect) RoundOut() image.Rectangle {
	if r.Empty() {
		return image.Rectangle{}
	}
	return image.Rect(
		int(math.Floor(r.X)),
		int(math.Floor(r.Y)),
		int(math.Ceil(r.MaxX())),
		int(math.Ceil(r.MaxY())),
	)
}

// RoundIn returns the largest integer rectangle contained in r.
func (r Rect) RoundIn() image.Rectangle {
	if r.Empty() {
		return image.Rectangle{}
	}
	out := image.Rect(
		int(math.Ceil(r.X)),
		int(math.Ceil(r.Y)),
		int(math.Floor(r.MaxX())),
		int(math.Floor(r.MaxY())),
	)
	if out.Empty() {
		return image.Rectangle{}
	}
	return out
}

// IntersectRect intersects two optional integer rectangles. A nil pointer
// means "unbounded", so the result is nil only if both inputs are nil.
func IntersectRect(a, b *image.Rectangle) *image.Rectangle {
	switch {
	case a == nil && b == nil:
		return nil
	case a == nil:
		r := *b
		return &r
	case b == nil:
		r := *a
		return &r
	}
	r := a.Intersect(*b)
	return &r
}
