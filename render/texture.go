// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"
	"fmt"
	"image"

	"github.com/gogpu/gpucontext"
)

// ErrTextureDestroyed is returned when updating a destroyed texture.
var ErrTextureDestroyed = errors.New("render: texture destroyed")

// Texture is a CPU texture holding premultiplied RGBA pixels. It implements the
// gpucontext texture interfaces so the render backend can treat CPU and GPU
// textures alike.
type Texture struct {
	img       *image.RGBA
	destroyed bool
}

var (
	_ gpucontext.Texture              = (*Texture)(nil)
	_ gpucontext.TextureUpdater       = (*Texture)(nil)
	_ gpucontext.TextureRegionUpdater = (*Texture)(nil)
)

// NewTexture creates a texture from width*height*4 bytes of RGBA data.
func NewTexture(width, height int, data []byte) (*Texture, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("render: invalid texture size %dx%d", width, height)
	}
	if len(data) != width*height*4 {
		return nil, fmt.Errorf("render: texture data is %d bytes, want %d", len(data), width*height*4)
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	copy(img.Pix, data)
	return &Texture{img: img}, nil
}

// Width implements gpucontext.Texture.
func (t *Texture) Width() int { return t.img.Rect.Dx() }

// Height implements gpucontext.Texture.
func (t *Texture) Height() int { return t.img.Rect.Dy() }

// Image returns the pixels. The image must not be modified.
func (t *Texture) Image() *image.RGBA { return t.img }

// UpdateData implements gpucontext.TextureUpdater.
func (t *Texture) UpdateData(data []byte) error {
	if t.destroyed {
		return ErrTextureDestroyed
	}
	if len(data) != len(t.img.Pix) {
		return fmt.Errorf("render: texture data is %d bytes, want %d", len(data), len(t.img.Pix))
	}
	copy(t.img.Pix, data)
	return nil
}

// UpdateRegion implements gpucontext.TextureRegionUpdater.
func (t *Texture) UpdateRegion(x, y, w, h int, data []byte) error {
	if t.destroyed {
		return ErrTextureDestroyed
	}
	r := image.Rect(x, y, x+w, y+h)
	if !r.In(t.img.Rect) {
		return fmt.Errorf("render: region %v outside texture %v", r, t.img.Rect)
	}
	if len(data) != w*h*4 {
		return fmt.Errorf("render: region data is %d bytes, want %d", len(data), w*h*4)
	}
	for row := 0; row < h; row++ {
		off := t.img.PixOffset(x, y+row)
		copy(t.img.Pix[off:off+w*4], data[row*w*4:(row+1)*w*4])
	}
	return nil
}

// Destroy marks the texture unusable.
func (t *Texture) Destroy() { t.destroyed = true }

// TextureCreator creates CPU textures.
type TextureCreator struct{}

var _ gpucontext.TextureCreator = TextureCreator{}

// NewTextureFromRGBA implements gpucontext.TextureCreator.
func (TextureCreator) NewTextureFromRGBA(width, height int, data []byte) (gpucontext.Texture, error) {
	return NewTexture(width, height, data)
}
