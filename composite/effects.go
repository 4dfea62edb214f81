// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package composite

import "github.com/gogpu/compositor/render"

// ScreenEffects are color effects applied to the whole screen. When any is
// active the frame is rendered offscreen first and composited back through
// one color matrix.
type ScreenEffects struct {
	Grayscale bool
	Invert    bool

	// Contrast scales contrast around mid gray. Zero and one leave
	// contrast unchanged.
	Contrast float32
}

// Active reports whether the effects change any pixel.
func (e ScreenEffects) Active() bool {
	return !e.Matrix().IsIdentity()
}

// Matrix returns the combined color matrix: grayscale first, then
// inversion, then contrast.
func (e ScreenEffects) Matrix() render.ColorMatrix {
	m := render.IdentityColorMatrix()
	if e.Grayscale {
		m = render.GrayscaleColorMatrix().Mul(m)
	}
	if e.Invert {
		m = render.InvertColorMatrix().Mul(m)
	}
	if e.Contrast != 0 && e.Contrast != 1 {
		m = render.ContrastColorMatrix(e.Contrast).Mul(m)
	}
	return m
}
