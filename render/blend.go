// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import "math"

// BlendMode selects how a quad is combined with the target.
type BlendMode uint8

// Blend modes follow the W3C Compositing and Blending Level 1 definitions.
const (
	BlendNormal BlendMode = iota
	BlendMultiply
	BlendScreen
	BlendOverlay
	BlendDarken
	BlendLighten
	BlendDifference
	BlendExclusion
)

var blendModeNames = [...]string{
	BlendNormal:     "Normal",
	BlendMultiply:   "Multiply",
	BlendScreen:     "Screen",
	BlendOverlay:    "Overlay",
	BlendDarken:     "Darken",
	BlendLighten:    "Lighten",
	BlendDifference: "Difference",
	BlendExclusion:  "Exclusion",
}

// String returns the name of the blend mode.
func (m BlendMode) String() string {
	if int(m) < len(blendModeNames) {
		return blendModeNames[m]
	}
	return "Unknown"
}

// blendChannel returns B(Cb, Cs) for straight (unpremultiplied) channels.
func (m BlendMode) blendChannel(cs, cb float32) float32 {
	switch m {
	case BlendMultiply:
		return cs * cb
	case BlendScreen:
		return cs + cb - cs*cb
	case BlendOverlay:
		if cb <= 0.5 {
			return 2 * cs * cb
		}
		return 1 - 2*(1-cs)*(1-cb)
	case BlendDarken:
		return float32(math.Min(float64(cs), float64(cb)))
	case BlendLighten:
		return float32(math.Max(float64(cs), float64(cb)))
	case BlendDifference:
		return float32(math.Abs(float64(cs - cb)))
	case BlendExclusion:
		return cs + cb - 2*cs*cb
	default:
		return cs
	}
}

// blendPixel composites premultiplied source s onto premultiplied backdrop
// d with mode m:
//
//	result = (1 - Sa) * D + (1 - Da) * S + Sa * Da * B(Cs, Cb)
func (m BlendMode) blendPixel(s, d [4]float32) [4]float32 {
	sa, da := s[3], d[3]
	if sa == 0 {
		return d
	}
	var out [4]float32
	for i := 0; i < 3; i++ {
		var cs, cb float32
		if sa > 0 {
			cs = s[i] / sa
		}
		if da > 0 {
			cb = d[i] / da
		}
		out[i] = (1-sa)*d[i] + (1-da)*s[i] + sa*da*m.blendChannel(cs, cb)
	}
	out[3] = sa + da*(1-sa)
	return out
}
