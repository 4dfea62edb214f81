// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/compositor/geom"
)

var (
	red   = gputypes.Color{R: 1, A: 1}
	white = gputypes.Color{R: 1, G: 1, B: 1, A: 1}
	gray  = gputypes.Color{R: 0.5, G: 0.5, B: 0.5, A: 1}
)

func beginFull(t *testing.T, c *SoftwareCompositor) image.Rectangle {
	t.Helper()
	bounds := c.Screen().Rect
	got := c.BeginFrame(geom.RegionOf(bounds), nil, bounds, geom.Region{})
	if got != bounds {
		t.Fatalf("BeginFrame() = %v, want %v", got, bounds)
	}
	return bounds
}

func near(a, b uint8, tol int) bool {
	d := int(a) - int(b)
	return d >= -tol && d <= tol
}

func assertPixel(t *testing.T, img *image.RGBA, x, y int, want color.RGBA, tol int) {
	t.Helper()
	got := img.RGBAAt(x, y)
	if !near(got.R, want.R, tol) || !near(got.G, want.G, tol) || !near(got.B, want.B, tol) || !near(got.A, want.A, tol) {
		t.Errorf("pixel(%d,%d) = %v, want %v", x, y, got, want)
	}
}

func TestSoftwareDrawSolidQuad(t *testing.T) {
	c := NewSoftwareCompositor(32, 32)
	bounds := beginFull(t, c)

	c.DrawQuad(geom.Rect{X: 0, Y: 0, W: 10, H: 10}, bounds, Solid(red), 1, geom.Translation(4, 4, 0))
	c.EndFrame()

	assertPixel(t, c.Screen(), 5, 5, color.RGBA{255, 0, 0, 255}, 0)
	assertPixel(t, c.Screen(), 13, 13, color.RGBA{255, 0, 0, 255}, 0)
	assertPixel(t, c.Screen(), 14, 14, color.RGBA{}, 0)
	assertPixel(t, c.Screen(), 3, 3, color.RGBA{}, 0)
	if c.Frames() != 1 {
		t.Errorf("Frames() = %d, want 1", c.Frames())
	}
}

func TestSoftwareDrawQuadClip(t *testing.T) {
	c := NewSoftwareCompositor(32, 32)
	beginFull(t, c)

	c.DrawQuad(geom.Rect{W: 32, H: 32}, image.Rect(0, 0, 8, 8), Solid(red), 1, geom.Identity())

	assertPixel(t, c.Screen(), 7, 7, color.RGBA{255, 0, 0, 255}, 0)
	assertPixel(t, c.Screen(), 8, 8, color.RGBA{}, 0)
}

func TestSoftwareDrawQuadOpacity(t *testing.T) {
	c := NewSoftwareCompositor(8, 8)
	bounds := beginFull(t, c)

	c.DrawQuad(geom.RectFrom(bounds), bounds, Solid(red), 0.5, geom.Identity())

	assertPixel(t, c.Screen(), 2, 2, color.RGBA{128, 0, 0, 128}, 2)
}

func TestSoftwareRenderTargetEffect(t *testing.T) {
	c := NewSoftwareCompositor(32, 32)
	bounds := beginFull(t, c)

	surface, err := c.CreateRenderTarget(image.Rect(10, 10, 20, 20), InitClear)
	if err != nil {
		t.Fatalf("CreateRenderTarget: %v", err)
	}
	screen := c.CurrentRenderTarget()
	c.SetRenderTarget(surface)
	c.DrawQuad(geom.Rect{X: 10, Y: 10, W: 5, H: 10}, surface.Rect(), Solid(red), 1, geom.Identity())
	c.SetRenderTarget(screen)

	// Draw the surface shifted right by 5 pixels.
	c.DrawQuad(geom.RectFrom(surface.Rect()), bounds, FromTarget(surface), 1, geom.Translation(5, 0, 0))
	c.EndFrame()

	assertPixel(t, c.Screen(), 15, 12, color.RGBA{255, 0, 0, 255}, 0)
	assertPixel(t, c.Screen(), 19, 12, color.RGBA{255, 0, 0, 255}, 0)
	assertPixel(t, c.Screen(), 20, 12, color.RGBA{}, 0)
	assertPixel(t, c.Screen(), 12, 12, color.RGBA{}, 0)
}

func TestSoftwareCreateRenderTargetFromSource(t *testing.T) {
	c := NewSoftwareCompositor(16, 16)
	bounds := beginFull(t, c)
	c.DrawQuad(geom.RectFrom(bounds), bounds, Solid(white), 1, geom.Identity())

	copyT, err := c.CreateRenderTargetFromSource(image.Rect(0, 0, 4, 4), c.CurrentRenderTarget(), image.Pt(2, 2))
	if err != nil {
		t.Fatalf("CreateRenderTargetFromSource: %v", err)
	}
	img := copyT.(*SoftwareTarget).Image()
	assertPixel(t, img, 0, 0, color.RGBA{255, 255, 255, 255}, 0)

	other := NewSoftwareCompositor(4, 4)
	if _, err := c.CreateRenderTargetFromSource(image.Rect(0, 0, 4, 4), other.ScreenTarget(), image.Point{}); !errors.Is(err, ErrForeignTarget) {
		t.Errorf("foreign source error = %v, want ErrForeignTarget", err)
	}
}

func TestSoftwareClearOnBind(t *testing.T) {
	c := NewSoftwareCompositor(16, 16)
	beginFull(t, c)

	surface, _ := c.CreateRenderTarget(image.Rect(0, 0, 4, 4), InitClear)
	screen := c.CurrentRenderTarget()
	c.SetRenderTarget(surface)
	c.DrawQuad(geom.Rect{W: 4, H: 4}, surface.Rect(), Solid(red), 1, geom.Identity())
	c.SetRenderTarget(screen)

	surface.SetClearOnBind(true)
	c.SetRenderTarget(surface)
	if surface.ClearOnBind() {
		t.Error("ClearOnBind should reset after bind")
	}
	assertPixel(t, surface.(*SoftwareTarget).Image(), 1, 1, color.RGBA{}, 0)
}

func TestSoftwareBeginFrame(t *testing.T) {
	c := NewSoftwareCompositor(100, 100)
	bounds := image.Rect(0, 0, 100, 100)
	invalid := geom.RegionOf(image.Rect(10, 10, 50, 50))

	if got := c.BeginFrame(invalid, nil, bounds, geom.Region{}); got != image.Rect(10, 10, 50, 50) {
		t.Errorf("BeginFrame() = %v, want invalid bounds", got)
	}
	c.EndFrame()

	clip := image.Rect(0, 0, 20, 20)
	if got := c.BeginFrame(invalid, &clip, bounds, geom.Region{}); got != image.Rect(10, 10, 20, 20) {
		t.Errorf("BeginFrame() with clip = %v", got)
	}
	c.EndFrame()

	if got := c.BeginFrame(geom.Region{}, nil, bounds, geom.Region{}); !got.Empty() {
		t.Errorf("BeginFrame() with empty invalid = %v, want empty", got)
	}

	c.SetReady(false)
	if got := c.BeginFrame(invalid, nil, bounds, geom.Region{}); !got.Empty() {
		t.Errorf("BeginFrame() when not ready = %v, want empty", got)
	}
}

func TestSoftwareBlendAndColorMatrix(t *testing.T) {
	c := NewSoftwareCompositor(8, 8)
	bounds := beginFull(t, c)
	c.DrawQuad(geom.RectFrom(bounds), bounds, Solid(white), 1, geom.Identity())

	mul := Solid(gray)
	mul.Blend = BlendMultiply
	c.DrawQuad(geom.Rect{W: 4, H: 8}, bounds, mul, 1, geom.Identity())
	assertPixel(t, c.Screen(), 1, 1, color.RGBA{128, 128, 128, 255}, 2)

	inv := InvertColorMatrix()
	chain := Solid(red)
	chain.ColorMatrix = &inv
	c.DrawQuad(geom.Rect{X: 4, W: 4, H: 8}, bounds, chain, 1, geom.Identity())
	assertPixel(t, c.Screen(), 6, 1, color.RGBA{0, 255, 255, 255}, 1)
}

func TestSoftwareTextureAndMask(t *testing.T) {
	c := NewSoftwareCompositor(8, 8)
	bounds := beginFull(t, c)

	tex := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := range tex.Pix {
		tex.Pix[i] = 255
	}
	mask := image.NewAlpha(image.Rect(0, 0, 4, 4))
	mask.SetAlpha(0, 0, color.Alpha{A: 255})

	chain := EffectChain{
		Primary: TextureEffect{Image: tex, Bounds: image.Rect(2, 2, 6, 6)},
		Mask:    &MaskEffect{Image: mask, Bounds: image.Rect(2, 2, 6, 6)},
	}
	c.DrawQuad(geom.Rect{X: 2, Y: 2, W: 4, H: 4}, bounds, chain, 1, geom.Identity())

	assertPixel(t, c.Screen(), 2, 2, color.RGBA{255, 255, 255, 255}, 0)
	assertPixel(t, c.Screen(), 3, 3, color.RGBA{}, 0)
}

func TestSoftwareReleaseAndLimits(t *testing.T) {
	c := NewSoftwareCompositor(8, 8, WithMaxTextureSize(64))
	if c.MaxTextureSize() != 64 {
		t.Errorf("MaxTextureSize() = %d, want 64", c.MaxTextureSize())
	}
	if _, err := c.CreateRenderTarget(image.Rect(0, 0, 65, 10), InitClear); !errors.Is(err, ErrTargetTooLarge) {
		t.Errorf("oversized target error = %v, want ErrTargetTooLarge", err)
	}
	if _, err := c.CreateRenderTarget(image.Rectangle{}, InitClear); !errors.Is(err, ErrEmptyTarget) {
		t.Errorf("empty target error = %v, want ErrEmptyTarget", err)
	}

	tgt, _ := c.CreateRenderTarget(image.Rect(0, 0, 4, 4), InitNone)
	if c.LiveTargets() != 1 {
		t.Fatalf("LiveTargets() = %d, want 1", c.LiveTargets())
	}
	c.ReleaseRenderTarget(tgt)
	c.ReleaseRenderTarget(tgt)
	if c.LiveTargets() != 0 {
		t.Errorf("LiveTargets() after double release = %d, want 0", c.LiveTargets())
	}
}

func TestInitModeLoadOp(t *testing.T) {
	if InitClear.LoadOp() != gputypes.LoadOpClear {
		t.Errorf("InitClear.LoadOp() = %v", InitClear.LoadOp())
	}
	if InitNone.LoadOp() != gputypes.LoadOpLoad {
		t.Errorf("InitNone.LoadOp() = %v", InitNone.LoadOp())
	}
	if InitNone.String() != "None" {
		t.Errorf("InitNone.String() = %q", InitNone.String())
	}
}
