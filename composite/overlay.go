// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package composite

import (
	"image"
	"image/color"
	"time"

	"golang.org/x/image/colornames"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/geom"
	"github.com/gogpu/compositor/layers"
	"github.com/gogpu/compositor/render"
)

const (
	textBoxWidth    = 180
	lineHeight      = 16
	textPadding     = 4
	fpsWindow       = time.Second
	maxPaintSamples = 16

	// The frame counter draws the low counterBits bits of the frame
	// number as squares, over a bar whose color changes every frame.
	counterBits   = 16
	counterSquare = 6
	warningSize   = 24
)

var flashPalette = []color.RGBA{
	colornames.Red, colornames.Orange, colornames.Yellow, colornames.Lime,
	colornames.Cyan, colornames.Blue, colornames.Magenta,
}

// overlay draws the developer overlay on top of a frame.
type overlay struct {
	face    font.Face
	faceErr error
	printer *message.Printer

	frames    []time.Time
	composite time.Duration
	paint     []time.Duration
	seq       uint64
}

func newOverlay() *overlay {
	return &overlay{printer: message.NewPrinter(language.English)}
}

func (o *overlay) loadFace() font.Face {
	if o.face != nil || o.faceErr != nil {
		return o.face
	}
	f, err := opentype.Parse(goregular.TTF)
	if err == nil {
		o.face, err = opentype.NewFace(f, &opentype.FaceOptions{Size: 12, DPI: 72, Hinting: font.HintingFull})
	}
	if err != nil {
		o.faceErr = err
		compositor.Logger().Warn("composite: overlay font unavailable", "err", err)
	}
	return o.face
}

// tick records a drawn frame.
func (o *overlay) tick(now time.Time, composite time.Duration) {
	o.seq++
	o.composite = composite
	o.frames = append(o.frames, now)
	cut := 0
	for cut < len(o.frames) && now.Sub(o.frames[cut]) > fpsWindow {
		cut++
	}
	o.frames = o.frames[cut:]
}

// fps returns the frame rate over the last second.
func (o *overlay) fps() float64 {
	if len(o.frames) < 2 {
		return 0
	}
	span := o.frames[len(o.frames)-1].Sub(o.frames[0]).Seconds()
	if span <= 0 {
		return 0
	}
	return float64(len(o.frames)-1) / span
}

func (o *overlay) recordPaint(d time.Duration) {
	o.paint = append(o.paint, d)
	if len(o.paint) > maxPaintSamples {
		o.paint = o.paint[len(o.paint)-maxPaintSamples:]
	}
}

func (o *overlay) averagePaint() time.Duration {
	if len(o.paint) == 0 {
		return 0
	}
	var sum time.Duration
	for _, d := range o.paint {
		sum += d
	}
	return sum / time.Duration(len(o.paint))
}

func textLineRect(bounds image.Rectangle, line int) image.Rectangle {
	at := bounds.Min.Add(image.Pt(0, line*lineHeight))
	return image.Rectangle{Min: at, Max: at.Add(image.Pt(textBoxWidth, lineHeight))}
}

func counterRect(bounds image.Rectangle) image.Rectangle {
	return image.Rect(bounds.Max.X-counterBits*counterSquare, bounds.Min.Y,
		bounds.Max.X, bounds.Min.Y+2*counterSquare)
}

func warningRect(bounds image.Rectangle) image.Rectangle {
	at := image.Pt(bounds.Max.X-warningSize, bounds.Min.Y+3*counterSquare)
	return image.Rectangle{Min: at, Max: at.Add(image.Pt(warningSize, warningSize))}
}

// extendInvalid grows invalid by the areas the overlay draws over.
func (o *overlay) extendInvalid(d DebugOptions, invalid geom.Region, bounds image.Rectangle) geom.Region {
	if d.DrawLayerBorders || d.FlashInvalidRegion {
		return geom.RegionOf(bounds)
	}
	if d.DrawFPS {
		invalid = invalid.UnionRect(textLineRect(bounds, 0).Intersect(bounds))
	}
	if d.DrawPaintTimes {
		invalid = invalid.UnionRect(textLineRect(bounds, 1).Intersect(bounds))
	}
	if d.DrawFrameCounter {
		invalid = invalid.UnionRect(counterRect(bounds).Intersect(bounds))
	}
	if d.WarnUnusedAsyncTransform {
		invalid = invalid.UnionRect(warningRect(bounds).Intersect(bounds))
	}
	return invalid
}

// draw renders the enabled overlay elements onto the current target.
func (o *overlay) draw(c render.Compositor, d DebugOptions, root *layers.Layer, invalid geom.Region, bounds image.Rectangle, unusedAsync bool) {
	if d.FlashInvalidRegion {
		tint := render.ColorFromRGBA(flashPalette[o.seq%uint64(len(flashPalette))])
		tint.A = 0.25
		for _, r := range invalid.Rects() {
			c.DrawQuad(geom.RectFrom(r), bounds, render.Solid(tint), 1, geom.Identity())
		}
	}
	if d.DrawLayerBorders && root != nil {
		border := render.Solid(render.ColorFromRGBA(colornames.Orange))
		root.Walk(func(l *layers.Layer) {
			r := l.ScreenTransform().TransformBounds(l.EffectiveVisibleRegion().Bounds())
			for _, e := range edges(r, 1) {
				c.DrawQuad(geom.RectFrom(e), bounds, border, 1, geom.Identity())
			}
		})
	}
	if d.DrawFPS {
		ms := float64(o.composite.Microseconds()) / 1000
		o.drawText(c, o.printer.Sprintf("%.0f FPS  %.1f ms", o.fps(), ms), textLineRect(bounds, 0), bounds)
	}
	if d.DrawPaintTimes {
		ms := float64(o.averagePaint().Microseconds()) / 1000
		o.drawText(c, o.printer.Sprintf("paint %.1f ms  frame %d", ms, o.seq), textLineRect(bounds, 1), bounds)
	}
	if d.DrawFrameCounter {
		o.drawCounter(c, bounds)
	}
	if d.WarnUnusedAsyncTransform && unusedAsync {
		c.DrawQuad(geom.RectFrom(warningRect(bounds)), bounds, render.Solid(render.ColorFromRGBA(colornames.Red)), 1, geom.Identity())
	}
}

func (o *overlay) drawCounter(c render.Compositor, bounds image.Rectangle) {
	r := counterRect(bounds)
	bar := image.Rect(r.Min.X, r.Min.Y+counterSquare, r.Max.X, r.Max.Y)
	c.DrawQuad(geom.RectFrom(bar), bounds, render.Solid(render.ColorFromRGBA(flashPalette[o.seq%uint64(len(flashPalette))])), 1, geom.Identity())
	for i := range counterBits {
		col := colornames.Black
		if o.seq&(1<<(counterBits-1-i)) != 0 {
			col = colornames.White
		}
		sq := image.Rect(r.Min.X+i*counterSquare, r.Min.Y, r.Min.X+(i+1)*counterSquare, r.Min.Y+counterSquare)
		c.DrawQuad(geom.RectFrom(sq), bounds, render.Solid(render.ColorFromRGBA(col)), 1, geom.Identity())
	}
}

// drawText draws one line of white text on a translucent box covering r.
func (o *overlay) drawText(c render.Compositor, text string, r, clip image.Rectangle) {
	face := o.loadFace()
	if face == nil {
		return
	}
	img := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(img, img.Rect, image.NewUniform(color.RGBA{A: 160}), image.Point{}, draw.Src)
	d := &font.Drawer{
		Dst:  img,
		Src:  image.White,
		Face: face,
		Dot:  fixed.P(textPadding, face.Metrics().Ascent.Ceil()+1),
	}
	d.DrawString(text)
	c.DrawQuad(geom.RectFrom(r), clip, render.EffectChain{Primary: render.TextureEffect{Image: img, Bounds: r}}, 1, geom.Identity())
}

// edges returns the four border strips of r, w pixels wide.
func edges(r image.Rectangle, w int) []image.Rectangle {
	if r.Empty() {
		return nil
	}
	return []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+w),
		image.Rect(r.Min.X, r.Max.Y-w, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+w, r.Max.Y),
		image.Rect(r.Max.X-w, r.Min.Y, r.Max.X, r.Max.Y),
	}
}
