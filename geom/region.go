// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package geom

import (
	"fmt"
	"image"
	"strings"
)

// Region is a set of pixels described by disjoint, non-empty integer
// rectangles. The zero value is the empty region.
//
// Regions are values: every operation returns a new Region and never
// modifies its receiver.
type Region struct {
	rects []image.Rectangle
}

// RegionOf returns the union of the given rectangles.
func RegionOf(rs ...image.Rectangle) Region {
	var r Region
	for _, rect := range rs {
		r = r.UnionRect(rect)
	}
	return r
}

// IsEmpty reports whether the region contains no pixels.
func (r Region) IsEmpty() bool { return len(r.rects) == 0 }

// NumRects returns the number of disjoint rectangles in the region.
func (r Region) NumRects() int { return len(r.rects) }

// Rects returns a copy of the disjoint rectangles.
func (r Region) Rects() []image.Rectangle {
	out := make([]image.Rectangle, len(r.rects))
	copy(out, r.rects)
	return out
}

// Bounds returns the smallest rectangle containing the region.
func (r Region) Bounds() image.Rectangle {
	var b image.Rectangle
	for _, rect := range r.rects {
		b = b.Union(rect)
	}
	return b
}

// Area returns the number of pixels in the region.
func (r Region) Area() int {
	n := 0
	for _, rect := range r.rects {
		n += rect.Dx() * rect.Dy()
	}
	return n
}

// ContainsRect reports whether every pixel of rect is in the region.
func (r Region) ContainsRect(rect image.Rectangle) bool {
	if rect.Empty() {
		return true
	}
	return RegionOf(rect).Subtract(r).IsEmpty()
}

// Intersects reports whether the region shares any pixel with rect.
func (r Region) Intersects(rect image.Rectangle) bool {
	for _, own := range r.rects {
		if own.Overlaps(rect) {
			return true
		}
	}
	return false
}

// Equal reports whether both regions cover exactly the same pixels.
func (r Region) Equal(o Region) bool {
	if r.Area() != o.Area() {
		return false
	}
	return r.Subtract(o).IsEmpty()
}

// UnionRect returns r with rect added.
func (r Region) UnionRect(rect image.Rectangle) Region {
	if rect.Empty() {
		return r.clone()
	}
	pieces := []image.Rectangle{rect}
	for _, own := range r.rects {
		pieces = subtractAll(pieces, own)
		if len(pieces) == 0 {
			return r.clone()
		}
	}
	out := r.clone()
	out.rects = append(out.rects, pieces...)
	return out
}

// Union returns the pixels in r or o.
func (r Region) Union(o Region) Region {
	out := r.clone()
	for _, rect := range o.rects {
		out = out.UnionRect(rect)
	}
	return out
}

// SubtractRect returns r without the pixels in rect.
func (r Region) SubtractRect(rect image.Rectangle) Region {
	if rect.Empty() {
		return r.clone()
	}
	return Region{rects: subtractAll(r.rects, rect)}
}

// Subtract returns the pixels in r that are not in o.
func (r Region) Subtract(o Region) Region {
	rects := append([]image.Rectangle(nil), r.rects...)
	for _, cut := range o.rects {
		rects = subtractAll(rects, cut)
		if len(rects) == 0 {
			break
		}
	}
	return Region{rects: rects}
}

// IntersectRect returns the pixels of r inside rect.
func (r Region) IntersectRect(rect image.Rectangle) Region {
	var out Region
	for _, own := range r.rects {
		if in := own.Intersect(rect); !in.Empty() {
			out.rects = append(out.rects, in)
		}
	}
	return out
}

// Intersect returns the pixels in both r and o.
func (r Region) Intersect(o Region) Region {
	var out Region
	for _, a := range r.rects {
		for _, b := range o.rects {
			if in := a.Intersect(b); !in.Empty() {
				out.rects = append(out.rects, in)
			}
		}
	}
	return out
}

// Translate returns r moved by p.
func (r Region) Translate(p image.Point) Region {
	out := Region{rects: make([]image.Rectangle, len(r.rects))}
	for i, rect := range r.rects {
		out.rects[i] = rect.Add(p)
	}
	return out
}

// Transform maps r through m. Integer translations are exact; any other
// transform maps each rectangle to its rounded-out bounding box.
func (r Region) Transform(m Matrix4x4) Region {
	if p, ok := m.IntegerTranslation(); ok {
		return r.Translate(p)
	}
	var out Region
	for _, rect := range r.rects {
		out = out.UnionRect(m.TransformRect(RectFrom(rect)).RoundOut())
	}
	return out
}

// SimplifyOutward collapses r into its bounding box when it is made of more
// than maxRects rectangles. The result always contains r.
func (r Region) SimplifyOutward(maxRects int) Region {
	if len(r.rects) <= maxRects {
		return r.clone()
	}
	return RegionOf(r.Bounds())
}

func (r Region) String() string {
	if r.IsEmpty() {
		return "{}"
	}
	parts := make([]string, len(r.rects))
	for i, rect := range r.rects {
		parts[i] = rect.String()
	}
	return fmt.Sprintf("{%s}", strings.Join(parts, " "))
}

func (r Region) clone() Region {
	if len(r.rects) == 0 {
		return Region{}
	}
	return Region{rects: append([]image.Rectangle(nil), r.rects...)}
}

// subtractAll removes cut from every rectangle in rs.
func subtractAll(rs []image.Rectangle, cut image.Rectangle) []image.Rectangle {
	out := make([]image.Rectangle, 0, len(rs))
	for _, r := range rs {
		out = appendDifference(out, r, cut)
	}
	return out
}

// appendDifference appends up to four rectangles covering r minus cut.
func appendDifference(dst []image.Rectangle, r, cut image.Rectangle) []image.Rectangle {
	in := r.Intersect(cut)
	if in.Empty() {
		return append(dst, r)
	}
	if in.Min.Y > r.Min.Y {
		dst = append(dst, image.Rect(r.Min.X, r.Min.Y, r.Max.X, in.Min.Y))
	}
	if in.Max.Y < r.Max.Y {
		dst = append(dst, image.Rect(r.Min.X, in.Max.Y, r.Max.X, r.Max.Y))
	}
	if in.Min.X > r.Min.X {
		dst = append(dst, image.Rect(r.Min.X, in.Min.Y, in.Min.X, in.Max.Y))
	}
	if in.Max.X < r.Max.X {
		dst = append(dst, image.Rect(in.Max.X, in.Min.Y, r.Max.X, in.Max.Y))
	}
	return dst
}
