// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"image"
	"image/color"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/compositor/geom"
)

// EffectKind identifies the primary effect of a draw.
type EffectKind uint8

const (
	EffectSolidColor EffectKind = iota
	EffectRenderTarget
	EffectTexture
)

// String returns the name of the effect kind.
func (k EffectKind) String() string {
	switch k {
	case EffectSolidColor:
		return "SolidColor"
	case EffectRenderTarget:
		return "RenderTarget"
	case EffectTexture:
		return "Texture"
	default:
		return "Unknown"
	}
}

// Effect is the primary source of a quad.
type Effect interface {
	Kind() EffectKind
}

// SolidColorEffect fills the quad with a single color.
type SolidColorEffect struct {
	Color gputypes.Color
}

// Kind implements Effect.
func (SolidColorEffect) Kind() EffectKind { return EffectSolidColor }

// RenderTargetEffect samples an offscreen target. Quad coordinates map
// directly onto target coordinates.
type RenderTargetEffect struct {
	Target Target
}

// Kind implements Effect.
func (RenderTargetEffect) Kind() EffectKind { return EffectRenderTarget }

// TextureEffect samples an image stretched over Bounds (in layer space).
type TextureEffect struct {
	Image  image.Image
	Bounds image.Rectangle
}

// Kind implements Effect.
func (TextureEffect) Kind() EffectKind { return EffectTexture }

// MaskEffect multiplies the quad by the alpha channel of Image, which covers
// Bounds in the layer space of the masked quad.
type MaskEffect struct {
	Image  image.Image
	Bounds image.Rectangle
}

// DistortionEffect marks a quad as the output of a stereo rendering pass.
// The per-eye lens parameters are consumed by GPU backends only.
type DistortionEffect struct {
	EyeSize    image.Point
	EyeOffsets [2]geom.Rect
}

// EffectChain describes everything applied to one quad.
type EffectChain struct {
	Primary     Effect
	Mask        *MaskEffect
	Blend       BlendMode
	ColorMatrix *ColorMatrix
	Distortion  *DistortionEffect
}

// Solid returns a chain drawing a plain color.
func Solid(c gputypes.Color) EffectChain {
	return EffectChain{Primary: SolidColorEffect{Color: c}}
}

// FromTarget returns a chain sampling t.
func FromTarget(t Target) EffectChain {
	return EffectChain{Primary: RenderTargetEffect{Target: t}}
}

// ColorFromRGBA converts an 8-bit color to a gputypes color.
func ColorFromRGBA(c color.RGBA) gputypes.Color {
	return gputypes.Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
		A: float64(c.A) / 255,
	}
}

// PremultipliedRGBA converts a straight-alpha color to premultiplied 8-bit
// form, scaled by opacity.
func PremultipliedRGBA(c gputypes.Color, opacity float32) color.RGBA {
	a := clamp01(c.A * float64(opacity))
	return color.RGBA{
		R: uint8(clamp01(c.R)*a*255 + 0.5),
		G: uint8(clamp01(c.G)*a*255 + 0.5),
		B: uint8(clamp01(c.B)*a*255 + 0.5),
		A: uint8(a*255 + 0.5),
	}
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
