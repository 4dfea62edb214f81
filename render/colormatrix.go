// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import "math"

// ColorMatrix is a 4x5 color transform in row-major order:
//
//	[R']   [m00 m01 m02 m03 m04]   [R]
//	[G'] = [m10 m11 m12 m13 m14] * [G]
//	[B']   [m20 m21 m22 m23 m24]   [B]
//	[A']   [m30 m31 m32 m33 m34]   [A]
//	                               [1]
//
// Channels are straight (not premultiplied) values in [0, 1]; the fifth
// column is an offset in the same unit.
type ColorMatrix [20]float32

// IdentityColorMatrix returns the matrix that leaves colors unchanged.
func IdentityColorMatrix() ColorMatrix {
	return ColorMatrix{
		1, 0, 0, 0, 0,
		0, 1, 0, 0, 0,
		0, 0, 1, 0, 0,
		0, 0, 0, 1, 0,
	}
}

// GrayscaleColorMatrix desaturates using Rec. 709 luminance weights.
func GrayscaleColorMatrix() ColorMatrix {
	return SaturationColorMatrix(0)
}

// SaturationColorMatrix scales saturation: 0 is gray, 1 is unchanged.
func SaturationColorMatrix(factor float32) ColorMatrix {
	const (
		lumR = 0.2126
		lumG = 0.7152
		lumB = 0.0722
	)
	inv := 1 - factor
	return ColorMatrix{
		lumR*inv + factor, lumG * inv, lumB * inv, 0, 0,
		lumR * inv, lumG*inv + factor, lumB * inv, 0, 0,
		lumR * inv, lumG * inv, lumB*inv + factor, 0, 0,
		0, 0, 0, 1, 0,
	}
}

// InvertColorMatrix inverts the color channels and keeps alpha.
func InvertColorMatrix() ColorMatrix {
	return ColorMatrix{
		-1, 0, 0, 0, 1,
		0, -1, 0, 0, 1,
		0, 0, -1, 0, 1,
		0, 0, 0, 1, 0,
	}
}

// ContrastColorMatrix scales contrast around mid gray. 0 is flat gray,
// 1 is unchanged.
func ContrastColorMatrix(factor float32) ColorMatrix {
	offset := 0.5 * (1 - factor)
	return ColorMatrix{
		factor, 0, 0, 0, offset,
		0, factor, 0, 0, offset,
		0, 0, factor, 0, offset,
		0, 0, 0, 1, 0,
	}
}

// IsIdentity reports whether m leaves colors unchanged.
func (m ColorMatrix) IsIdentity() bool {
	return m == IdentityColorMatrix()
}

// Mul returns the matrix applying o first and then m.
func (m ColorMatrix) Mul(o ColorMatrix) ColorMatrix {
	// Treat both as 5x5 affine matrices with an implicit [0 0 0 0 1] row.
	var r ColorMatrix
	for i := 0; i < 4; i++ {
		for j := 0; j < 5; j++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += m[i*5+k] * o[k*5+j]
			}
			if j == 4 {
				sum += m[i*5+4]
			}
			r[i*5+j] = sum
		}
	}
	return r
}

// Apply transforms a straight-alpha color.
func (m ColorMatrix) Apply(r, g, b, a float32) (float32, float32, float32, float32) {
	out := [4]float32{}
	for i := 0; i < 4; i++ {
		v := m[i*5]*r + m[i*5+1]*g + m[i*5+2]*b + m[i*5+3]*a + m[i*5+4]
		out[i] = float32(math.Min(1, math.Max(0, float64(v))))
	}
	return out[0], out[1], out[2], out[3]
}
