// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/geom"
)

// SoftwareTarget is a render target backed by an *image.RGBA whose bounds
// equal the target rectangle.
type SoftwareTarget struct {
	TargetBase
	img   *image.RGBA
	owner *SoftwareCompositor
}

// Image returns the backing pixels.
func (t *SoftwareTarget) Image() *image.RGBA { return t.img }

// SoftwareCompositor is a CPU [Compositor].
//
// Quads are drawn with golang.org/x/image/draw: nearest-neighbor sampling
// for integer translations and approximate bilinear sampling otherwise.
// Non-normal blend modes and color matrices go through a scratch image.
//
// Example:
//
//	sw := render.NewSoftwareCompositor(800, 600)
//	sw.BeginFrame(geom.RegionOf(bounds), nil, bounds, geom.Region{})
//	sw.DrawQuad(geom.RectFrom(bounds), bounds, render.Solid(red), 1, geom.Identity())
//	sw.EndFrame()
//	png.Encode(w, sw.Screen())
type SoftwareCompositor struct {
	opts    Options
	screen  *SoftwareTarget
	current *SoftwareTarget
	ready   bool
	inFrame bool

	frames int
	live   int
	draws  int
}

var (
	_ Compositor = (*SoftwareCompositor)(nil)
	_ Readback   = (*SoftwareCompositor)(nil)
)

// NewSoftwareCompositor creates a compositor drawing to a width x height
// screen.
func NewSoftwareCompositor(width, height int, opts ...Option) *SoftwareCompositor {
	c := &SoftwareCompositor{opts: ApplyOptions(opts...), ready: true}
	c.screen = c.allocTarget(image.Rect(0, 0, width, height))
	return c
}

// Screen returns the screen pixels.
func (c *SoftwareCompositor) Screen() *image.RGBA { return c.screen.img }

// ScreenTarget returns the screen target.
func (c *SoftwareCompositor) ScreenTarget() Target { return c.screen }

// SetReady toggles whether frames may be drawn.
func (c *SoftwareCompositor) SetReady(ready bool) { c.ready = ready }

// Resize replaces the screen with a new width x height one.
func (c *SoftwareCompositor) Resize(width, height int) {
	c.screen = c.allocTarget(image.Rect(0, 0, width, height))
	if !c.inFrame {
		c.current = nil
	}
}

// Frames returns the number of completed frames.
func (c *SoftwareCompositor) Frames() int { return c.frames }

// LiveTargets returns the number of offscreen targets not yet released.
func (c *SoftwareCompositor) LiveTargets() int { return c.live }

// Draws returns the number of quads drawn so far.
func (c *SoftwareCompositor) Draws() int { return c.draws }

// Ready implements Compositor.
func (c *SoftwareCompositor) Ready() bool { return c.ready }

// MaxTextureSize implements Compositor.
func (c *SoftwareCompositor) MaxTextureSize() int { return c.opts.MaxTextureSize }

// CreateRenderTarget implements Compositor.
func (c *SoftwareCompositor) CreateRenderTarget(rect image.Rectangle, init InitMode) (Target, error) {
	if err := CheckTargetSize(rect, c.opts.MaxTextureSize); err != nil {
		return nil, err
	}
	// Fresh images are zeroed, which satisfies both init modes.
	return c.newTarget(rect), nil
}

// CreateRenderTargetFromSource implements Compositor.
func (c *SoftwareCompositor) CreateRenderTargetFromSource(rect image.Rectangle, source Target, sourceOffset image.Point) (Target, error) {
	if err := CheckTargetSize(rect, c.opts.MaxTextureSize); err != nil {
		return nil, err
	}
	src, ok := source.(*SoftwareTarget)
	if !ok || src.owner != c {
		return nil, ErrForeignTarget
	}
	t := c.newTarget(rect)
	draw.Draw(t.img, rect, src.img, src.Rect().Min.Add(sourceOffset), draw.Src)
	return t, nil
}

// ReleaseRenderTarget implements Compositor.
func (c *SoftwareCompositor) ReleaseRenderTarget(t Target) {
	st, ok := t.(*SoftwareTarget)
	if !ok || st == c.screen || st == c.current || st.img == nil {
		return
	}
	st.img = nil
	c.live--
}

// SetRenderTarget implements Compositor.
func (c *SoftwareCompositor) SetRenderTarget(t Target) {
	st, ok := t.(*SoftwareTarget)
	if !ok || st.owner != c {
		compositor.Logger().Warn("render: SetRenderTarget with foreign target", "target", t)
		return
	}
	c.current = st
	if st.ClearOnBind() {
		clearRect(st.img, st.img.Rect)
		st.SetClearOnBind(false)
	}
}

// CurrentRenderTarget implements Compositor.
func (c *SoftwareCompositor) CurrentRenderTarget() Target {
	if c.current == nil {
		return nil
	}
	return c.current
}

// ClearRect implements Compositor.
func (c *SoftwareCompositor) ClearRect(rect image.Rectangle) {
	if c.current == nil || c.current.img == nil {
		return
	}
	clearRect(c.current.img, rect)
}

// BeginFrame implements Compositor.
func (c *SoftwareCompositor) BeginFrame(invalid geom.Region, clip *image.Rectangle, bounds image.Rectangle, opaque geom.Region) image.Rectangle {
	if !c.ready {
		return image.Rectangle{}
	}
	actual := invalid.Bounds().Intersect(bounds).Intersect(c.screen.img.Rect)
	if clip != nil {
		actual = actual.Intersect(*clip)
	}
	if actual.Empty() {
		return image.Rectangle{}
	}
	c.inFrame = true
	c.current = c.screen
	for _, r := range invalid.IntersectRect(actual).Subtract(opaque).Rects() {
		clearRect(c.screen.img, r)
	}
	return actual
}

// EndFrame implements Compositor.
func (c *SoftwareCompositor) EndFrame() {
	if !c.inFrame {
		return
	}
	c.inFrame = false
	c.current = nil
	c.frames++
}

// ReadPixels implements Readback.
func (c *SoftwareCompositor) ReadPixels(rect image.Rectangle) (*image.RGBA, error) {
	r := rect.Intersect(c.screen.img.Rect)
	out := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(out, out.Rect, c.screen.img, r.Min, draw.Src)
	return out, nil
}

// DrawQuad implements Compositor.
func (c *SoftwareCompositor) DrawQuad(rect geom.Rect, clip image.Rectangle, effects EffectChain, opacity float32, transform geom.Matrix4x4) {
	if c.current == nil || c.current.img == nil || effects.Primary == nil || opacity <= 0 {
		return
	}
	dst := c.current.img
	clip = clip.Intersect(dst.Rect)
	if clip.Empty() || rect.Empty() {
		return
	}
	src, sr := c.source(effects.Primary, rect)
	if src == nil || sr.Empty() {
		return
	}
	c.draws++

	opts := &draw.Options{SrcMask: srcMask(effects.Mask, sr, opacity)}
	s2d := transform.Affine()
	interp := draw.Interpolator(draw.ApproxBiLinear)
	if _, ok := transform.IntegerTranslation(); ok {
		interp = draw.NearestNeighbor
	}
	sub := dst.SubImage(clip).(*image.RGBA)

	if effects.Blend == BlendNormal && effects.ColorMatrix == nil {
		interp.Transform(sub, s2d, src, sr, draw.Over, opts)
		return
	}

	scratch := image.NewRGBA(clip)
	interp.Transform(scratch, s2d, src, sr, draw.Src, opts)
	if effects.ColorMatrix != nil {
		applyColorMatrix(scratch, *effects.ColorMatrix)
	}
	blendImage(sub, scratch, effects.Blend)
}

// source returns the image to sample, in layer coordinates, and the part
// of it covered by rect.
func (c *SoftwareCompositor) source(e Effect, rect geom.Rect) (image.Image, image.Rectangle) {
	area := rect.RoundOut()
	switch e := e.(type) {
	case SolidColorEffect:
		return image.NewUniform(PremultipliedRGBA(e.Color, 1)), area
	case RenderTargetEffect:
		st, ok := e.Target.(*SoftwareTarget)
		if !ok || st.img == nil {
			return nil, image.Rectangle{}
		}
		return st.img, area.Intersect(st.img.Rect)
	case TextureEffect:
		if e.Image == nil || e.Bounds.Empty() {
			return nil, image.Rectangle{}
		}
		area = area.Intersect(e.Bounds)
		if e.Image.Bounds().Size() == e.Bounds.Size() {
			return offsetImage{Image: e.Image, off: e.Bounds.Min.Sub(e.Image.Bounds().Min)}, area
		}
		scaled := image.NewRGBA(e.Bounds)
		draw.ApproxBiLinear.Scale(scaled, e.Bounds, e.Image, e.Image.Bounds(), draw.Src, nil)
		return scaled, area
	}
	return nil, image.Rectangle{}
}

// offsetImage presents an image translated by off.
type offsetImage struct {
	image.Image
	off image.Point
}

func (o offsetImage) Bounds() image.Rectangle { return o.Image.Bounds().Add(o.off) }

func (o offsetImage) At(x, y int) color.Color { return o.Image.At(x-o.off.X, y-o.off.Y) }

// srcMask combines opacity and an optional mask into a source mask over sr.
func srcMask(mask *MaskEffect, sr image.Rectangle, opacity float32) image.Image {
	if mask == nil || mask.Image == nil {
		if opacity >= 1 {
			return nil
		}
		return image.NewUniform(color.Alpha16{A: uint16(opacity*0xffff + 0.5)})
	}
	var m image.Image
	if mask.Image.Bounds().Size() != mask.Bounds.Size() {
		scaled := image.NewRGBA(mask.Bounds)
		draw.ApproxBiLinear.Scale(scaled, mask.Bounds, mask.Image, mask.Image.Bounds(), draw.Src, nil)
		m = scaled
	} else {
		m = offsetImage{Image: mask.Image, off: mask.Bounds.Min.Sub(mask.Image.Bounds().Min)}
	}
	out := image.NewAlpha(sr)
	for y := sr.Min.Y; y < sr.Max.Y; y++ {
		for x := sr.Min.X; x < sr.Max.X; x++ {
			if !image.Pt(x, y).In(mask.Bounds) {
				continue
			}
			_, _, _, a := m.At(x, y).RGBA()
			out.SetAlpha(x, y, color.Alpha{A: uint8(float32(a>>8)*opacity + 0.5)})
		}
	}
	return out
}

func clearRect(img *image.RGBA, r image.Rectangle) {
	draw.Draw(img, r.Intersect(img.Rect), image.Transparent, image.Point{}, draw.Src)
}

// applyColorMatrix transforms every pixel of img in place.
func applyColorMatrix(img *image.RGBA, m ColorMatrix) {
	for i := 0; i+3 < len(img.Pix); i += 4 {
		p := img.Pix[i : i+4 : i+4]
		a := float32(p[3]) / 255
		var r, g, b float32
		if a > 0 {
			r = float32(p[0]) / 255 / a
			g = float32(p[1]) / 255 / a
			b = float32(p[2]) / 255 / a
		}
		r, g, b, a = m.Apply(r, g, b, a)
		p[0] = uint8(r*a*255 + 0.5)
		p[1] = uint8(g*a*255 + 0.5)
		p[2] = uint8(b*a*255 + 0.5)
		p[3] = uint8(a*255 + 0.5)
	}
}

// blendImage composites src onto dst over src's bounds with mode.
func blendImage(dst, src *image.RGBA, mode BlendMode) {
	r := src.Rect.Intersect(dst.Rect)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			si := src.PixOffset(x, y)
			di := dst.PixOffset(x, y)
			s := toFloat(src.Pix[si : si+4])
			if s[3] == 0 {
				continue
			}
			out := mode.blendPixel(s, toFloat(dst.Pix[di:di+4]))
			for k := 0; k < 4; k++ {
				dst.Pix[di+k] = uint8(out[k]*255 + 0.5)
			}
		}
	}
}

func toFloat(p []uint8) [4]float32 {
	return [4]float32{float32(p[0]) / 255, float32(p[1]) / 255, float32(p[2]) / 255, float32(p[3]) / 255}
}

// Readback reads back screen pixels. Implemented by compositors that can
// serve screenshot requests.
type Readback interface {
	ReadPixels(rect image.Rectangle) (*image.RGBA, error)
}

func (c *SoftwareCompositor) newTarget(rect image.Rectangle) *SoftwareTarget {
	c.live++
	return c.allocTarget(rect)
}

func (c *SoftwareCompositor) allocTarget(rect image.Rectangle) *SoftwareTarget {
	return &SoftwareTarget{
		TargetBase: NewTargetBase(rect, c.opts.Format),
		img:        image.NewRGBA(rect),
		owner:      c,
	}
}
