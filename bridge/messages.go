// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package bridge

import (
	"image"
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/compositor/renderapi"
)

// SceneUpdate is a content transaction carrying a new display list.
type SceneUpdate struct {
	ID            TransactionID
	Namespace     renderapi.IdNamespace
	ObserverEpoch LayersObserverEpoch

	DisplayList renderapi.DisplayList
	ClearColor  gputypes.Color
	// Viewport is the window area. Only the root bridge uses it.
	Viewport image.Rectangle

	Scroll    ScrollData
	Resources []ResourceOp
	Commands  []Command

	RefreshStart time.Time
	TxnStart     time.Time
	FwdTime      time.Time
}

// EmptyUpdate is a content transaction without a display list: scrolling,
// animations, resource changes.
type EmptyUpdate struct {
	ID            TransactionID
	Namespace     renderapi.IdNamespace
	ObserverEpoch LayersObserverEpoch

	Focus         FocusTarget
	ScrollUpdates []ScrollUpdate
	Resources     []ResourceOp
	Commands      []Command

	RefreshStart time.Time
	TxnStart     time.Time
	FwdTime      time.Time
}

// Command is a parent-side command carried by a transaction.
type Command interface {
	command()
}

// AddAnimations registers compositor animations.
type AddAnimations struct {
	Animations []Animation
}

// AddAsyncImagePipeline creates an async image pipeline whose frames are
// shown through Image.
type AddAsyncImagePipeline struct {
	Pipeline renderapi.PipelineID
	Image    renderapi.ImageKey
}

// RemoveAsyncImagePipeline removes an async image pipeline.
type RemoveAsyncImagePipeline struct {
	Pipeline renderapi.PipelineID
}

// UpdateAsyncImage shows the texture host Host in an async image
// pipeline. Frames keep being generated until CompositeUntil.
type UpdateAsyncImage struct {
	Pipeline       renderapi.PipelineID
	Host           TextureHostID
	CompositeUntil time.Time
}

func (AddAnimations) command()            {}
func (AddAsyncImagePipeline) command()    {}
func (RemoveAsyncImagePipeline) command() {}
func (UpdateAsyncImage) command()         {}

// ResourceOp is one content resource update.
type ResourceOp interface {
	resourceOp()
}

// AddImage uploads raw RGBA pixels.
type AddImage struct {
	Key        renderapi.ImageKey
	Descriptor renderapi.ImageDescriptor
	Data       []byte
}

// UpdateImage replaces the pixels of an image added with AddImage.
type UpdateImage struct {
	Key        renderapi.ImageKey
	Descriptor renderapi.ImageDescriptor
	Data       []byte
	Dirty      image.Rectangle
}

// AddBlobImage adds a vector image.
type AddBlobImage struct {
	Key         renderapi.ImageKey
	Descriptor  renderapi.ImageDescriptor
	Commands    renderapi.DisplayList
	VisibleArea image.Rectangle
}

// UpdateBlobImage replaces the commands of a blob image.
type UpdateBlobImage struct {
	Key        renderapi.ImageKey
	Descriptor renderapi.ImageDescriptor
	Commands   renderapi.DisplayList
	Dirty      image.Rectangle
}

// SetBlobImageVisibleArea limits what is rasterized of a blob image.
type SetBlobImageVisibleArea struct {
	Key  renderapi.ImageKey
	Area image.Rectangle
}

// AddSharedSurface adds an image backed by a shared memory surface.
type AddSharedSurface struct {
	Key     renderapi.ImageKey
	Surface SurfaceID
}

// UpdateSharedSurface points an image at another shared surface.
type UpdateSharedSurface struct {
	Key     renderapi.ImageKey
	Surface SurfaceID
}

// AddTextureHost adds an image backed by a texture host.
type AddTextureHost struct {
	Key  renderapi.ImageKey
	Host TextureHostID
}

// UpdateTextureHost points an image at another texture host.
type UpdateTextureHost struct {
	Key  renderapi.ImageKey
	Host TextureHostID
}

// DeleteImage deletes an image of any kind.
type DeleteImage struct {
	Key renderapi.ImageKey
}

// AddFont adds a TrueType or OpenType font.
type AddFont struct {
	Key  renderapi.FontKey
	Data []byte
}

// AddFontInstance adds a font at a size.
type AddFontInstance struct {
	Key  renderapi.FontInstanceKey
	Font renderapi.FontKey
	Size float32
}

// DeleteFont deletes a font.
type DeleteFont struct {
	Key renderapi.FontKey
}

// DeleteFontInstance deletes a font instance.
type DeleteFontInstance struct {
	Key renderapi.FontInstanceKey
}

func (AddImage) resourceOp()                {}
func (UpdateImage) resourceOp()             {}
func (AddBlobImage) resourceOp()            {}
func (UpdateBlobImage) resourceOp()         {}
func (SetBlobImageVisibleArea) resourceOp() {}
func (AddSharedSurface) resourceOp()        {}
func (UpdateSharedSurface) resourceOp()     {}
func (AddTextureHost) resourceOp()          {}
func (UpdateTextureHost) resourceOp()       {}
func (DeleteImage) resourceOp()             {}
func (AddFont) resourceOp()                 {}
func (AddFontInstance) resourceOp()         {}
func (DeleteFont) resourceOp()              {}
func (DeleteFontInstance) resourceOp()      {}
