// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderapi

import (
	"cmp"
	"image"
	"slices"

	"github.com/go-text/typesetting/font"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"golang.org/x/image/draw"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/geom"
	"github.com/gogpu/compositor/render"
)

type scene struct {
	pipeline PipelineID
	epoch    Epoch
	clear    gputypes.Color
	items    []DisplayItem
}

type storedImage struct {
	desc    ImageDescriptor
	pixels  *image.RGBA
	blob    *DisplayList
	visible image.Rectangle
	texture gpucontext.Texture
}

// backendState is touched only on the render backend goroutine.
type backendState struct {
	scenes     map[PipelineID]*scene
	images     map[ImageKey]*storedImage
	fonts      map[FontKey]*font.Face
	instances  map[FontInstanceKey]AddFontInstance
	properties map[uint64]PropertyValue
	window     image.Rectangle
	frames     uint64
	waiting    []*Transaction
}

func newBackendState() *backendState {
	return &backendState{
		scenes:     make(map[PipelineID]*scene),
		images:     make(map[ImageKey]*storedImage),
		fonts:      make(map[FontKey]*font.Face),
		instances:  make(map[FontInstanceKey]AddFontInstance),
		properties: make(map[uint64]PropertyValue),
	}
}

func (b *backendState) applyResource(u ResourceUpdate) {
	log := compositor.Logger()
	switch u := u.(type) {
	case AddImage:
		img, ok := pixelsFrom(u.Descriptor, u.Data)
		if !ok {
			log.Warn("renderapi: image data does not match descriptor", "key", u.Key, "bytes", len(u.Data))
			return
		}
		b.images[u.Key] = &storedImage{desc: u.Descriptor, pixels: img}
	case UpdateImage:
		st, ok := b.images[u.Key]
		if !ok {
			log.Warn("renderapi: update of unknown image", "key", u.Key)
			return
		}
		img, ok := pixelsFrom(u.Descriptor, u.Data)
		if !ok {
			log.Warn("renderapi: image data does not match descriptor", "key", u.Key, "bytes", len(u.Data))
			return
		}
		if u.Dirty.Empty() || st.pixels == nil || st.desc != u.Descriptor {
			st.desc, st.pixels = u.Descriptor, img
			return
		}
		draw.Draw(st.pixels, u.Dirty, img, u.Dirty.Min, draw.Src)
	case AddBlobImage:
		dl := u.Commands
		b.images[u.Key] = &storedImage{desc: u.Descriptor, blob: &dl, visible: u.VisibleArea,
			pixels: rasterizeBlob(u.Descriptor, dl, u.VisibleArea)}
	case UpdateBlobImage:
		st, ok := b.images[u.Key]
		if !ok || st.blob == nil {
			log.Warn("renderapi: update of unknown blob image", "key", u.Key)
			return
		}
		dl := u.Commands
		st.desc, st.blob = u.Descriptor, &dl
		st.pixels = rasterizeBlob(st.desc, dl, st.visible)
	case SetBlobImageVisibleArea:
		st, ok := b.images[u.Key]
		if !ok || st.blob == nil {
			return
		}
		st.visible = u.Area
		st.pixels = rasterizeBlob(st.desc, *st.blob, st.visible)
	case AddExternalImage:
		b.images[u.Key] = &storedImage{desc: u.Descriptor, texture: u.Texture}
	case UpdateExternalImage:
		st, ok := b.images[u.Key]
		if !ok {
			log.Warn("renderapi: update of unknown external image", "key", u.Key)
			return
		}
		st.desc, st.texture = u.Descriptor, u.Texture
	case DeleteImage:
		delete(b.images, u.Key)
	case AddFont:
		b.fonts[u.Key] = u.Face
	case AddFontInstance:
		if _, ok := b.fonts[u.Font]; !ok {
			log.Warn("renderapi: font instance of unknown font", "key", u.Key, "font", u.Font)
			return
		}
		b.instances[u.Key] = u
	case DeleteFont:
		delete(b.fonts, u.Key)
	case DeleteFontInstance:
		delete(b.instances, u.Key)
	}
}

func pixelsFrom(desc ImageDescriptor, data []byte) (*image.RGBA, bool) {
	if desc.Width <= 0 || desc.Height <= 0 || len(data) != desc.Size() {
		return nil, false
	}
	img := image.NewRGBA(image.Rect(0, 0, desc.Width, desc.Height))
	copy(img.Pix, data)
	return img, true
}

// rasterizeBlob draws the rectangles of dl that fall into visible. An
// empty visible area means the whole image.
func rasterizeBlob(desc ImageDescriptor, dl DisplayList, visible image.Rectangle) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, max(desc.Width, 0), max(desc.Height, 0)))
	area := img.Rect
	if !visible.Empty() {
		area = area.Intersect(visible)
	}
	items, err := dl.Items()
	if err != nil {
		compositor.Logger().Warn("renderapi: invalid blob commands", "err", err)
		return img
	}
	for _, it := range items {
		if it.Kind != ItemRect {
			continue
		}
		r := it.Bounds.Intersect(area)
		draw.Draw(img, r, image.NewUniform(render.PremultipliedRGBA(it.Color, 1)), image.Point{}, draw.Over)
	}
	return img
}

// source returns the pixels of an image resource.
func (st *storedImage) source() image.Image {
	if st.pixels != nil {
		return st.pixels
	}
	if t, ok := st.texture.(interface{ Image() *image.RGBA }); ok {
		return t.Image()
	}
	return nil
}

// screenSource is implemented by compositors that expose their screen.
type screenSource interface {
	ScreenTarget() render.Target
}

// draw renders every scene in pipeline order and returns the area drawn.
func (b *backendState) draw(c render.Compositor) image.Rectangle {
	bounds := b.window
	if bounds.Empty() {
		if s, ok := c.(screenSource); ok && s.ScreenTarget() != nil {
			bounds = s.ScreenTarget().Rect()
		}
	}
	if bounds.Empty() || !c.Ready() {
		return image.Rectangle{}
	}
	actual := c.BeginFrame(geom.RegionOf(bounds), nil, bounds, geom.Region{})
	if actual.Empty() {
		return image.Rectangle{}
	}
	scenes := make([]*scene, 0, len(b.scenes))
	for _, sc := range b.scenes {
		scenes = append(scenes, sc)
	}
	slices.SortFunc(scenes, func(x, y *scene) int {
		if n := cmp.Compare(x.pipeline.Namespace, y.pipeline.Namespace); n != 0 {
			return n
		}
		return cmp.Compare(x.pipeline.Handle, y.pipeline.Handle)
	})
	for _, sc := range scenes {
		if sc.clear.A > 0 {
			c.DrawQuad(geom.RectFrom(actual), actual, render.Solid(sc.clear), 1, geom.Identity())
		}
		for _, it := range sc.items {
			b.drawItem(c, it, actual)
		}
	}
	c.EndFrame()
	return actual
}

func (b *backendState) drawItem(c render.Compositor, it DisplayItem, clip image.Rectangle) {
	opacity := float32(1)
	transform := geom.Identity()
	if it.Binding != 0 {
		if v, ok := b.properties[it.Binding]; ok {
			switch v.Kind {
			case PropertyOpacity:
				opacity = v.Opacity
			case PropertyTransform:
				transform = v.Transform
			}
		}
	}
	switch it.Kind {
	case ItemRect:
		c.DrawQuad(geom.RectFrom(it.Bounds), clip, render.Solid(it.Color), opacity, transform)
	case ItemImage:
		st, ok := b.images[it.Image]
		if !ok {
			compositor.Logger().Debug("renderapi: display item references missing image", "key", it.Image)
			return
		}
		src := st.source()
		if src == nil {
			return
		}
		chain := render.EffectChain{Primary: render.TextureEffect{Image: src, Bounds: it.Bounds}}
		c.DrawQuad(geom.RectFrom(it.Bounds), clip, chain, opacity, transform)
	}
}
