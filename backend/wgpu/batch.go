// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"encoding/binary"
	"image"
	"math"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/compositor/geom"
	"github.com/gogpu/compositor/render"
)

type opKind uint8

const (
	opQuad opKind = iota
	opClear
)

// batchOp is one recorded draw. The original arguments are kept so the
// op can be replayed on the CPU.
type batchOp struct {
	kind opKind

	rect      geom.Rect
	clip      image.Rectangle
	color     gputypes.Color
	opacity   float32
	transform geom.Matrix4x4

	first, count uint32
}

// batch collects GPU draws for a single target.
type batch struct {
	target *render.SoftwareTarget
	ops    []batchOp
	verts  []byte
}

func (b *batch) empty() bool { return len(b.ops) == 0 }

func (b *batch) reset() {
	b.target = nil
	b.ops = b.ops[:0]
	b.verts = b.verts[:0]
}

// vertexCount returns the number of vertices recorded so far.
func (b *batch) vertexCount() uint32 {
	return uint32(len(b.verts) / quadVertexStride) //nolint:gosec // bounded by the vertex buffer size
}

// addQuad records a solid quad. It reports false when nothing is visible.
func (b *batch) addQuad(rect geom.Rect, clip image.Rectangle, c gputypes.Color, opacity float32, m geom.Matrix4x4) bool {
	area := geom.RectFrom(rect.RoundOut())
	poly := clipPolygon(quadPolygon(area, m), clip.Intersect(b.target.Rect()))
	if len(poly) < 3 {
		return false
	}
	first := b.vertexCount()
	b.appendFan(poly, premultiplied(c, opacity))
	b.ops = append(b.ops, batchOp{
		kind: opQuad, rect: rect, clip: clip, color: c, opacity: opacity, transform: m,
		first: first, count: b.vertexCount() - first,
	})
	return true
}

// addClear records a clear of r to transparent black.
func (b *batch) addClear(r image.Rectangle) bool {
	r = r.Intersect(b.target.Rect())
	if r.Empty() {
		return false
	}
	first := b.vertexCount()
	b.appendFan(quadPolygon(geom.RectFrom(r), geom.Identity()), [4]float32{})
	b.ops = append(b.ops, batchOp{kind: opClear, clip: r, first: first, count: b.vertexCount() - first})
	return true
}

// replay draws the batch with c, whose current target must be b.target.
func (b *batch) replay(c render.Compositor) {
	for _, op := range b.ops {
		switch op.kind {
		case opClear:
			c.ClearRect(op.clip)
		case opQuad:
			c.DrawQuad(op.rect, op.clip, render.Solid(op.color), op.opacity, op.transform)
		}
	}
}

// appendFan triangulates a convex polygon from its first vertex.
func (b *batch) appendFan(poly []point, color [4]float32) {
	for i := 1; i+1 < len(poly); i++ {
		b.verts = appendVertex(b.verts, poly[0], color)
		b.verts = appendVertex(b.verts, poly[i], color)
		b.verts = appendVertex(b.verts, poly[i+1], color)
	}
}

func appendVertex(buf []byte, p point, color [4]float32) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(float32(p.x)))
	buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(float32(p.y)))
	for _, v := range color {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
	}
	return buf
}

// premultiplied returns c with alpha scaled by opacity and multiplied into
// the color channels.
func premultiplied(c gputypes.Color, opacity float32) [4]float32 {
	a := clampUnit(c.A * float64(opacity))
	return [4]float32{
		float32(clampUnit(c.R) * a),
		float32(clampUnit(c.G) * a),
		float32(clampUnit(c.B) * a),
		float32(a),
	}
}

func clampUnit(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

type point struct{ x, y float64 }

// quadPolygon returns the corners of r after m, in order.
func quadPolygon(r geom.Rect, m geom.Matrix4x4) []point {
	corners := [4]point{{r.X, r.Y}, {r.MaxX(), r.Y}, {r.MaxX(), r.MaxY()}, {r.X, r.MaxY()}}
	poly := make([]point, 0, 8)
	for _, c := range corners {
		x, y := m.TransformPoint(c.x, c.y)
		poly = append(poly, point{x, y})
	}
	return poly
}

// clipPolygon clips a convex polygon to r (Sutherland-Hodgman).
func clipPolygon(poly []point, r image.Rectangle) []point {
	if r.Empty() {
		return nil
	}
	minX, minY := float64(r.Min.X), float64(r.Min.Y)
	maxX, maxY := float64(r.Max.X), float64(r.Max.Y)
	edges := []struct {
		inside func(point) bool
		cross  func(a, b point) point
	}{
		{func(p point) bool { return p.x >= minX }, func(a, b point) point { return atX(a, b, minX) }},
		{func(p point) bool { return p.x <= maxX }, func(a, b point) point { return atX(a, b, maxX) }},
		{func(p point) bool { return p.y >= minY }, func(a, b point) point { return atY(a, b, minY) }},
		{func(p point) bool { return p.y <= maxY }, func(a, b point) point { return atY(a, b, maxY) }},
	}
	for _, e := range edges {
		if len(poly) == 0 {
			return nil
		}
		in := poly
		poly = make([]point, 0, len(in)+2)
		prev := in[len(in)-1]
		for _, cur := range in {
			switch {
			case e.inside(cur):
				if !e.inside(prev) {
					poly = append(poly, e.cross(prev, cur))
				}
				poly = append(poly, cur)
			case e.inside(prev):
				poly = append(poly, e.cross(prev, cur))
			}
			prev = cur
		}
	}
	return poly
}

func atX(a, b point, x float64) point {
	t := (x - a.x) / (b.x - a.x)
	return point{x, a.y + (b.y-a.y)*t}
}

func atY(a, b point, y float64) point {
	t := (y - a.y) / (b.y - a.y)
	return point{a.x + (b.x-a.x)*t, y}
}
