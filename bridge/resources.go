// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package bridge

import (
	"bytes"
	"fmt"
	"maps"

	"github.com/go-text/typesetting/font"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/renderapi"
)

type imageKind uint8

const (
	imagePlain imageKind = iota
	imageBlob
	imageSharedSurface
	imageTextureHost
)

var imageKindNames = [...]string{
	imagePlain:         "image",
	imageBlob:          "blob image",
	imageSharedSurface: "shared surface",
	imageTextureHost:   "texture host",
}

func (k imageKind) String() string {
	if int(k) < len(imageKindNames) {
		return imageKindNames[k]
	}
	return "Unknown"
}

// imageEntry is what the bridge holds for a registered image key.
type imageEntry struct {
	kind    imageKind
	texture gpucontext.Texture
	host    TextureHostID
}

// pendingRelease frees a texture reference once epoch has been rendered.
type pendingRelease struct {
	epoch   renderapi.Epoch
	release func()
}

// destroyTexture frees a texture the bridge created, if the texture
// supports it.
func destroyTexture(t gpucontext.Texture) {
	if d, ok := t.(interface{ Destroy() }); ok {
		d.Destroy()
	}
}

// imageRelease returns what frees the reference e holds, or nil.
func (b *Bridge) imageRelease(e imageEntry) func() {
	switch e.kind {
	case imageSharedSurface:
		tex := e.texture
		return func() { destroyTexture(tex) }
	case imageTextureHost:
		ext, host := b.opts.external, e.host
		return func() { ext.ReleaseTextureHost(host) }
	}
	return nil
}

// resourceBatch stages a batch of resource ops. Nothing reaches the
// bridge until commit, so a failing op leaves the bridge untouched.
type resourceBatch struct {
	b         *Bridge
	images    map[renderapi.ImageKey]imageEntry
	fonts     map[renderapi.FontKey]struct{}
	instances map[renderapi.FontInstanceKey]renderapi.FontKey

	updates  []renderapi.ResourceUpdate
	releases []func()
	undo     []func()
	writes   []func() error
	stale    int
}

func (b *Bridge) newBatch() *resourceBatch {
	return &resourceBatch{
		b:         b,
		images:    maps.Clone(b.images),
		fonts:     maps.Clone(b.fonts),
		instances: maps.Clone(b.instances),
	}
}

// translate stages ops and returns the resulting render API updates.
func (t *resourceBatch) translate(ops []ResourceOp) error {
	for i, op := range ops {
		if err := t.op(op); err != nil {
			t.abort()
			return fmt.Errorf("resource op %d: %w", i, err)
		}
	}
	return nil
}

// commit makes the batch the bridge's state. Released references wait for
// epoch to be rendered.
func (t *resourceBatch) commit(epoch renderapi.Epoch) {
	b := t.b
	b.images, b.fonts, b.instances = t.images, t.fonts, t.instances
	for _, fn := range t.releases {
		b.releases = append(b.releases, pendingRelease{epoch: epoch, release: fn})
	}
	b.staleOps += t.stale
	for _, w := range t.writes {
		if err := w(); err != nil {
			compositor.Logger().Warn("bridge: shared surface upload failed", "pipeline", b.pipeline, "err", err)
		}
	}
}

func (t *resourceBatch) abort() {
	for _, fn := range t.undo {
		fn()
	}
	t.undo = nil
}

func (t *resourceBatch) isStale(ns renderapi.IdNamespace, op ResourceOp) bool {
	if ns == t.b.namespace {
		return false
	}
	compositor.Logger().Debug("bridge: ignoring resource op from stale namespace",
		"pipeline", t.b.pipeline, "namespace", ns, "op", fmt.Sprintf("%T", op))
	t.stale++
	return true
}

// drop releases what the batch held for key, if anything.
func (t *resourceBatch) drop(key renderapi.ImageKey) {
	e, ok := t.images[key]
	if !ok {
		return
	}
	delete(t.images, key)
	if fn := t.b.imageRelease(e); fn != nil {
		t.releases = append(t.releases, fn)
	}
}

func (t *resourceBatch) lookup(key renderapi.ImageKey, kinds ...imageKind) (imageEntry, error) {
	e, ok := t.images[key]
	if !ok {
		return imageEntry{}, fmt.Errorf("%w: update of unknown image %v", ErrProtocol, key)
	}
	for _, k := range kinds {
		if e.kind == k {
			return e, nil
		}
	}
	return imageEntry{}, fmt.Errorf("%w: image %v is a %v", ErrProtocol, key, e.kind)
}

func (t *resourceBatch) op(op ResourceOp) error {
	switch op := op.(type) {
	case AddImage:
		if t.isStale(op.Key.Namespace, op) {
			return nil
		}
		t.drop(op.Key)
		t.images[op.Key] = imageEntry{kind: imagePlain}
		t.updates = append(t.updates, renderapi.AddImage{Key: op.Key, Descriptor: op.Descriptor, Data: op.Data})
	case UpdateImage:
		if t.isStale(op.Key.Namespace, op) {
			return nil
		}
		if _, err := t.lookup(op.Key, imagePlain); err != nil {
			return err
		}
		t.updates = append(t.updates, renderapi.UpdateImage{Key: op.Key, Descriptor: op.Descriptor, Data: op.Data, Dirty: op.Dirty})
	case AddBlobImage:
		if t.isStale(op.Key.Namespace, op) {
			return nil
		}
		t.drop(op.Key)
		t.images[op.Key] = imageEntry{kind: imageBlob}
		t.updates = append(t.updates, renderapi.AddBlobImage{Key: op.Key, Descriptor: op.Descriptor, Commands: op.Commands, VisibleArea: op.VisibleArea})
	case UpdateBlobImage:
		if t.isStale(op.Key.Namespace, op) {
			return nil
		}
		if _, err := t.lookup(op.Key, imageBlob); err != nil {
			return err
		}
		t.updates = append(t.updates, renderapi.UpdateBlobImage{Key: op.Key, Descriptor: op.Descriptor, Commands: op.Commands, Dirty: op.Dirty})
	case SetBlobImageVisibleArea:
		if t.isStale(op.Key.Namespace, op) {
			return nil
		}
		if _, err := t.lookup(op.Key, imageBlob); err != nil {
			return err
		}
		t.updates = append(t.updates, renderapi.SetBlobImageVisibleArea{Key: op.Key, Area: op.Area})
	case AddSharedSurface:
		if t.isStale(op.Key.Namespace, op) {
			return nil
		}
		tex, desc, err := t.mapSurface(op.Surface)
		if err != nil {
			return err
		}
		t.drop(op.Key)
		t.images[op.Key] = imageEntry{kind: imageSharedSurface, texture: tex}
		t.updates = append(t.updates, renderapi.AddExternalImage{Key: op.Key, Descriptor: desc, Texture: tex})
	case UpdateSharedSurface:
		if t.isStale(op.Key.Namespace, op) {
			return nil
		}
		e, err := t.lookup(op.Key, imageSharedSurface)
		if err != nil {
			return err
		}
		if ok, err := t.updateSurfaceInPlace(op.Key, e.texture, op.Surface); ok || err != nil {
			return err
		}
		tex, desc, err := t.mapSurface(op.Surface)
		if err != nil {
			return err
		}
		t.drop(op.Key)
		t.images[op.Key] = imageEntry{kind: imageSharedSurface, texture: tex}
		t.updates = append(t.updates, renderapi.UpdateExternalImage{Key: op.Key, Descriptor: desc, Texture: tex})
	case AddTextureHost:
		if t.isStale(op.Key.Namespace, op) {
			return nil
		}
		tex, desc, err := t.acquireHost(op.Host)
		if err != nil {
			return err
		}
		t.drop(op.Key)
		t.images[op.Key] = imageEntry{kind: imageTextureHost, texture: tex, host: op.Host}
		t.updates = append(t.updates, renderapi.AddExternalImage{Key: op.Key, Descriptor: desc, Texture: tex})
	case UpdateTextureHost:
		if t.isStale(op.Key.Namespace, op) {
			return nil
		}
		if _, err := t.lookup(op.Key, imageTextureHost); err != nil {
			return err
		}
		tex, desc, err := t.acquireHost(op.Host)
		if err != nil {
			return err
		}
		t.drop(op.Key)
		t.images[op.Key] = imageEntry{kind: imageTextureHost, texture: tex, host: op.Host}
		t.updates = append(t.updates, renderapi.UpdateExternalImage{Key: op.Key, Descriptor: desc, Texture: tex})
	case DeleteImage:
		if t.isStale(op.Key.Namespace, op) {
			return nil
		}
		if _, ok := t.images[op.Key]; !ok {
			compositor.Logger().Debug("bridge: delete of unknown image", "key", op.Key)
			return nil
		}
		t.drop(op.Key)
		t.updates = append(t.updates, renderapi.DeleteImage{Key: op.Key})
	case AddFont:
		if t.isStale(op.Key.Namespace, op) {
			return nil
		}
		face, err := font.ParseTTF(bytes.NewReader(op.Data))
		if err != nil {
			return fmt.Errorf("%w: font %v: %v", ErrProtocol, op.Key, err)
		}
		t.fonts[op.Key] = struct{}{}
		t.updates = append(t.updates, renderapi.AddFont{Key: op.Key, Face: face})
	case AddFontInstance:
		if t.isStale(op.Key.Namespace, op) {
			return nil
		}
		if _, ok := t.fonts[op.Font]; !ok {
			return fmt.Errorf("%w: font instance %v of unknown font %v", ErrProtocol, op.Key, op.Font)
		}
		t.instances[op.Key] = op.Font
		t.updates = append(t.updates, renderapi.AddFontInstance{Key: op.Key, Font: op.Font, Size: op.Size})
	case DeleteFont:
		if t.isStale(op.Key.Namespace, op) {
			return nil
		}
		if _, ok := t.fonts[op.Key]; !ok {
			return nil
		}
		delete(t.fonts, op.Key)
		t.updates = append(t.updates, renderapi.DeleteFont{Key: op.Key})
	case DeleteFontInstance:
		if t.isStale(op.Key.Namespace, op) {
			return nil
		}
		if _, ok := t.instances[op.Key]; !ok {
			return nil
		}
		delete(t.instances, op.Key)
		t.updates = append(t.updates, renderapi.DeleteFontInstance{Key: op.Key})
	default:
		return fmt.Errorf("%w: unknown resource op %T", ErrProtocol, op)
	}
	return nil
}

// updateSurfaceInPlace stages an upload into the texture already backing
// key when the new surface has the same size. The upload runs at commit.
func (t *resourceBatch) updateSurfaceInPlace(key renderapi.ImageKey, cur gpucontext.Texture, id SurfaceID) (bool, error) {
	up, ok := cur.(gpucontext.TextureUpdater)
	if !ok || t.b.opts.external == nil {
		return false, nil
	}
	s, ok := t.b.opts.external.SharedSurface(id)
	if !ok {
		return false, fmt.Errorf("%w: missing shared surface %d", ErrProtocol, id)
	}
	if !s.mapped() {
		return false, fmt.Errorf("%w: cannot map shared surface %d", ErrProtocol, id)
	}
	if s.Size.X != cur.Width() || s.Size.Y != cur.Height() {
		return false, nil
	}
	pix := s.pixels()
	t.writes = append(t.writes, func() error { return up.UpdateData(pix) })
	desc := renderapi.ImageDescriptor{Width: s.Size.X, Height: s.Size.Y, Format: gputypes.TextureFormatRGBA8Unorm}
	t.updates = append(t.updates, renderapi.UpdateExternalImage{Key: key, Descriptor: desc, Texture: cur})
	return true, nil
}

// mapSurface turns a shared surface into a texture the bridge owns.
func (t *resourceBatch) mapSurface(id SurfaceID) (gpucontext.Texture, renderapi.ImageDescriptor, error) {
	var desc renderapi.ImageDescriptor
	ext := t.b.opts.external
	if ext == nil {
		return nil, desc, fmt.Errorf("%w: shared surface %d without external images", ErrProtocol, id)
	}
	s, ok := ext.SharedSurface(id)
	if !ok {
		return nil, desc, fmt.Errorf("%w: missing shared surface %d", ErrProtocol, id)
	}
	if !s.mapped() {
		return nil, desc, fmt.Errorf("%w: cannot map shared surface %d (%v, stride %d, %d bytes)",
			ErrProtocol, id, s.Size, s.Stride, len(s.Data))
	}
	tex, err := t.b.opts.textures.NewTextureFromRGBA(s.Size.X, s.Size.Y, s.pixels())
	if err != nil {
		return nil, desc, fmt.Errorf("%w: shared surface %d: %v", ErrProtocol, id, err)
	}
	t.undo = append(t.undo, func() { destroyTexture(tex) })
	desc = renderapi.ImageDescriptor{Width: s.Size.X, Height: s.Size.Y, Format: gputypes.TextureFormatRGBA8Unorm}
	return tex, desc, nil
}

func (t *resourceBatch) acquireHost(id TextureHostID) (gpucontext.Texture, renderapi.ImageDescriptor, error) {
	var desc renderapi.ImageDescriptor
	ext := t.b.opts.external
	if ext == nil {
		return nil, desc, fmt.Errorf("%w: texture host %d without external images", ErrProtocol, id)
	}
	tex, ok := ext.AcquireTextureHost(id)
	if !ok {
		return nil, desc, fmt.Errorf("%w: missing texture host %d", ErrProtocol, id)
	}
	t.undo = append(t.undo, func() { ext.ReleaseTextureHost(id) })
	desc = renderapi.ImageDescriptor{Width: tex.Width(), Height: tex.Height(), Format: gputypes.TextureFormatRGBA8Unorm}
	return tex, desc, nil
}
