// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package geom

import (
	"image"
	"math"

	"golang.org/x/image/math/f64"
)

// IntegerTranslationEpsilon is the tolerance used when deciding whether a
// translation component is an integer. Offsets closer than this to an
// integer are snapped.
const IntegerTranslationEpsilon = 1e-3

// linearEpsilon bounds how far the 2x2 linear part may drift from identity
// and still count as a pure translation.
const linearEpsilon = 1e-6

// Matrix4x4 is a row-major 4x4 transform applied to column vectors:
//
//	x' = M[0][0]*x + M[0][1]*y + M[0][2]*z + M[0][3]
//	y' = M[1][0]*x + M[1][1]*y + M[1][2]*z + M[1][3]
//	z' = M[2][0]*x + M[2][1]*y + M[2][2]*z + M[2][3]
//	w' = M[3][0]*x + M[3][1]*y + M[3][2]*z + M[3][3]
//
// The zero value is not a valid transform; use [Identity].
type Matrix4x4 [4][4]float64

// Identity returns the identity transform.
func Identity() Matrix4x4 {
	return Matrix4x4{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	}
}

// Translation returns a transform that moves points by (x, y, z).
func Translation(x, y, z float64) Matrix4x4 {
	m := Identity()
	m[0][3] = x
	m[1][3] = y
	m[2][3] = z
	return m
}

// Scaling returns a transform that scales by (sx, sy, sz).
func Scaling(sx, sy, sz float64) Matrix4x4 {
	m := Identity()
	m[0][0] = sx
	m[1][1] = sy
	m[2][2] = sz
	return m
}

// RotationZ returns a rotation around the Z axis (angle in radians).
func RotationZ(angle float64) Matrix4x4 {
	s, c := math.Sincos(angle)
	m := Identity()
	m[0][0], m[0][1] = c, -s
	m[1][0], m[1][1] = s, c
	return m
}

// Perspective returns a transform with a CSS-style perspective distance d.
func Perspective(d float64) Matrix4x4 {
	m := Identity()
	if d != 0 {
		m[3][2] = -1 / d
	}
	return m
}

// Affine2D builds a 2D transform from the affine coefficients
//
//	x' = a*x + b*y + c
//	y' = d*x + e*y + f
func Affine2D(a, b, c, d, e, f float64) Matrix4x4 {
	m := Identity()
	m[0][0], m[0][1], m[0][3] = a, b, c
	m[1][0], m[1][1], m[1][3] = d, e, f
	return m
}

// Mul returns m * o, the transform that applies o first and then m.
func (m Matrix4x4) Mul(o Matrix4x4) Matrix4x4 {
	var r Matrix4x4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			r[i][j] = m[i][0]*o[0][j] + m[i][1]*o[1][j] + m[i][2]*o[2][j] + m[i][3]*o[3][j]
		}
	}
	return r
}

// IsIdentity reports whether m is exactly the identity.
func (m Matrix4x4) IsIdentity() bool {
	return m == Identity()
}

// Is2D reports whether m only acts on the XY plane.
func (m Matrix4x4) Is2D() bool {
	return m[0][2] == 0 && m[1][2] == 0 &&
		m[2][0] == 0 && m[2][1] == 0 && m[2][2] == 1 && m[2][3] == 0 &&
		m[3][0] == 0 && m[3][1] == 0 && m[3][2] == 0 && m[3][3] == 1
}

// HasPerspective reports whether m has a non-trivial projective row.
func (m Matrix4x4) HasPerspective() bool {
	return m[3][0] != 0 || m[3][1] != 0 || m[3][2] != 0 || m[3][3] != 1
}

// Translation2D returns the XY translation components.
func (m Matrix4x4) Translation2D() (x, y float64) {
	return m[0][3], m[1][3]
}

// IsTranslation2D reports whether m is a 2D transform whose linear part is
// the identity.
func (m Matrix4x4) IsTranslation2D() bool {
	return m.Is2D() &&
		math.Abs(m[0][0]-1) <= linearEpsilon && math.Abs(m[0][1]) <= linearEpsilon &&
		math.Abs(m[1][0]) <= linearEpsilon && math.Abs(m[1][1]-1) <= linearEpsilon
}

// IntegerTranslation reports whether m is a pure 2D translation by whole
// pixels and returns that offset.
func (m Matrix4x4) IntegerTranslation() (image.Point, bool) {
	if !m.IsTranslation2D() {
		return image.Point{}, false
	}
	x, y := m.Translation2D()
	rx, ry := math.Round(x), math.Round(y)
	if math.Abs(x-rx) > IntegerTranslationEpsilon || math.Abs(y-ry) > IntegerTranslationEpsilon {
		return image.Point{}, false
	}
	return image.Pt(int(rx), int(ry)), true
}

// TransformPoint maps (x, y, 0) through m, including the projective divide.
func (m Matrix4x4) TransformPoint(x, y float64) (float64, float64) {
	tx := m[0][0]*x + m[0][1]*y + m[0][3]
	ty := m[1][0]*x + m[1][1]*y + m[1][3]
	w := m[3][0]*x + m[3][1]*y + m[3][3]
	if w != 0 && w != 1 {
		tx /= w
		ty /= w
	}
	return tx, ty
}

// TransformZ returns the depth of (x, y, 0) after m. Used to order layers
// back to front inside a 3D rendering context.
func (m Matrix4x4) TransformZ(x, y float64) float64 {
	z := m[2][0]*x + m[2][1]*y + m[2][3]
	w := m[3][0]*x + m[3][1]*y + m[3][3]
	if w != 0 && w != 1 {
		z /= w
	}
	return z
}

// TransformRect returns the bounding box of r after m.
func (m Matrix4x4) TransformRect(r Rect) Rect {
	if r.Empty() {
		return Rect{}
	}
	if m.IsTranslation2D() {
		return r.Translate(m[0][3], m[1][3])
	}
	xs := [4]float64{r.X, r.MaxX(), r.MaxX(), r.X}
	ys := [4]float64{r.Y, r.Y, r.MaxY(), r.MaxY()}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for i := range xs {
		x, y := m.TransformPoint(xs[i], ys[i])
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
	}
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// TransformBounds maps an integer rectangle through m and rounds out.
func (m Matrix4x4) TransformBounds(r image.Rectangle) image.Rectangle {
	if p, ok := m.IntegerTranslation(); ok {
		return r.Add(p)
	}
	return m.TransformRect(RectFrom(r)).RoundOut()
}

// Inverse returns the inverse of m. The second result is false if m is
// singular.
func (m Matrix4x4) Inverse() (Matrix4x4, bool) {
	// Gauss-Jordan elimination with partial pivoting on [m | I].
	var a [4][8]float64
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			a[i][j] = m[i][j]
		}
		a[i][4+i] = 1
	}
	for col := 0; col < 4; col++ {
		pivot := col
		for row := col + 1; row < 4; row++ {
			if math.Abs(a[row][col]) > math.Abs(a[pivot][col]) {
				pivot = row
			}
		}
		if math.Abs(a[pivot][col]) < 1e-12 {
			return Matrix4x4{}, false
		}
		a[col], a[pivot] = a[pivot], a[col]
		inv := 1 / a[col][col]
		for j := 0; j < 8; j++ {
			a[col][j] *= inv
		}
		for row := 0; row < 4; row++ {
			if row == col || a[row][col] == 0 {
				continue
			}
			f := a[row][col]
			for j := 0; j < 8; j++ {
				a[row][j] -= f * a[col][j]
			}
		}
	}
	var r Matrix4x4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			r[i][j] = a[i][4+j]
		}
	}
	return r, true
}

// Affine returns the 2D affine part of m in the layout used by
// golang.org/x/image/draw.
func (m Matrix4x4) Affine() f64.Aff3 {
	return f64.Aff3{
		m[0][0], m[0][1], m[0][3],
		m[1][0], m[1][1], m[1][3],
	}
}
