// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderapi

import (
	"fmt"
	"image"

	"github.com/go-text/typesetting/font"
	"github.com/gogpu/gpucontext"
)

// ResourceUpdate is one change to the render backend's resources.
type ResourceUpdate interface {
	fmt.Stringer
	resourceUpdate()
}

// AddImage uploads raw RGBA pixels.
type AddImage struct {
	Key        ImageKey
	Descriptor ImageDescriptor
	Data       []byte
}

// UpdateImage replaces the pixels of an image. Dirty bounds the change;
// an empty Dirty means the whole image.
type UpdateImage struct {
	Key        ImageKey
	Descriptor ImageDescriptor
	Data       []byte
	Dirty      image.Rectangle
}

// AddBlobImage registers a vector image rasterized by the backend from a
// display list.
type AddBlobImage struct {
	Key         ImageKey
	Descriptor  ImageDescriptor
	Commands    DisplayList
	VisibleArea image.Rectangle
}

// UpdateBlobImage replaces the commands of a blob image.
type UpdateBlobImage struct {
	Key        ImageKey
	Descriptor ImageDescriptor
	Commands   DisplayList
	Dirty      image.Rectangle
}

// SetBlobImageVisibleArea limits rasterization of a blob image.
type SetBlobImageVisibleArea struct {
	Key  ImageKey
	Area image.Rectangle
}

// AddExternalImage registers an image whose pixels live in a texture
// owned outside the backend.
type AddExternalImage struct {
	Key        ImageKey
	Descriptor ImageDescriptor
	Texture    gpucontext.Texture
}

// UpdateExternalImage points an external image at another texture.
type UpdateExternalImage struct {
	Key        ImageKey
	Descriptor ImageDescriptor
	Texture    gpucontext.Texture
}

// DeleteImage removes an image of any kind.
type DeleteImage struct {
	Key ImageKey
}

// AddFont registers a parsed font face.
type AddFont struct {
	Key  FontKey
	Face *font.Face
}

// AddFontInstance registers a font at a size.
type AddFontInstance struct {
	Key  FontInstanceKey
	Font FontKey
	Size float32
}

// DeleteFont removes a font.
type DeleteFont struct {
	Key FontKey
}

// DeleteFontInstance removes a font instance.
type DeleteFontInstance struct {
	Key FontInstanceKey
}

func (AddImage) resourceUpdate()                {}
func (UpdateImage) resourceUpdate()             {}
func (AddBlobImage) resourceUpdate()            {}
func (UpdateBlobImage) resourceUpdate()         {}
func (SetBlobImageVisibleArea) resourceUpdate() {}
func (AddExternalImage) resourceUpdate()        {}
func (UpdateExternalImage) resourceUpdate()     {}
func (DeleteImage) resourceUpdate()             {}
func (AddFont) resourceUpdate()                 {}
func (AddFontInstance) resourceUpdate()         {}
func (DeleteFont) resourceUpdate()              {}
func (DeleteFontInstance) resourceUpdate()      {}

func (u AddImage) String() string    { return fmt.Sprintf("AddImage(%v)", u.Key) }
func (u UpdateImage) String() string { return fmt.Sprintf("UpdateImage(%v)", u.Key) }
func (u AddBlobImage) String() string {
	return fmt.Sprintf("AddBlobImage(%v)", u.Key)
}
func (u UpdateBlobImage) String() string {
	return fmt.Sprintf("UpdateBlobImage(%v)", u.Key)
}
func (u SetBlobImageVisibleArea) String() string {
	return fmt.Sprintf("SetBlobImageVisibleArea(%v, %v)", u.Key, u.Area)
}
func (u AddExternalImage) String() string {
	return fmt.Sprintf("AddExternalImage(%v)", u.Key)
}
func (u UpdateExternalImage) String() string {
	return fmt.Sprintf("UpdateExternalImage(%v)", u.Key)
}
func (u DeleteImage) String() string { return fmt.Sprintf("DeleteImage(%v)", u.Key) }
func (u AddFont) String() string     { return fmt.Sprintf("AddFont(%v)", u.Key) }
func (u AddFontInstance) String() string {
	return fmt.Sprintf("AddFontInstance(%v, %v, %g)", u.Key, u.Font, u.Size)
}
func (u DeleteFont) String() string { return fmt.Sprintf("DeleteFont(%v)", u.Key) }
func (u DeleteFontInstance) String() string {
	return fmt.Sprintf("DeleteFontInstance(%v)", u.Key)
}
