// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package bridge

import (
	"image"
	"sync"

	"github.com/gogpu/gpucontext"
)

// SurfaceID names a shared memory surface.
type SurfaceID uint64

// TextureHostID names a texture host.
type TextureHostID uint64

// SharedSurface is a mapped shared memory surface of RGBA rows.
type SharedSurface struct {
	Size   image.Point
	Stride int
	Data   []byte
}

// mapped reports whether Data holds Size.Y rows of Stride bytes, each
// with room for Size.X pixels. Products are bounded by len(Data) before
// they are formed.
func (s SharedSurface) mapped() bool {
	if s.Size.X <= 0 || s.Size.Y <= 0 || s.Size.X > len(s.Data)/4 {
		return false
	}
	row := s.Size.X * 4
	if s.Stride < row {
		return false
	}
	if s.Size.Y > 1 && s.Stride > (len(s.Data)-row)/(s.Size.Y-1) {
		return false
	}
	return true
}

// pixels returns the surface as tightly packed rows.
func (s SharedSurface) pixels() []byte {
	row := s.Size.X * 4
	if s.Stride == row {
		return s.Data[:row*s.Size.Y]
	}
	out := make([]byte, 0, row*s.Size.Y)
	for y := range s.Size.Y {
		out = append(out, s.Data[y*s.Stride:y*s.Stride+row]...)
	}
	return out
}

// ExternalImages resolves the handles content uses for externally backed
// images.
type ExternalImages interface {
	// SharedSurface maps a shared surface.
	SharedSurface(id SurfaceID) (SharedSurface, bool)

	// AcquireTextureHost takes a reference to a texture host.
	AcquireTextureHost(id TextureHostID) (gpucontext.Texture, bool)

	// ReleaseTextureHost drops a reference taken by AcquireTextureHost.
	ReleaseTextureHost(id TextureHostID)
}

// Registry is an in-memory ExternalImages that counts texture host
// references.
//
// Thread safety: Registry is safe for concurrent use.
type Registry struct {
	mu       sync.Mutex
	surfaces map[SurfaceID]SharedSurface
	hosts    map[TextureHostID]gpucontext.Texture
	refs     map[TextureHostID]int
}

var _ ExternalImages = (*Registry)(nil)

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		surfaces: make(map[SurfaceID]SharedSurface),
		hosts:    make(map[TextureHostID]gpucontext.Texture),
		refs:     make(map[TextureHostID]int),
	}
}

// AddSurface registers a shared surface.
func (r *Registry) AddSurface(id SurfaceID, s SharedSurface) {
	r.mu.Lock()
	r.surfaces[id] = s
	r.mu.Unlock()
}

// RemoveSurface unregisters a shared surface.
func (r *Registry) RemoveSurface(id SurfaceID) {
	r.mu.Lock()
	delete(r.surfaces, id)
	r.mu.Unlock()
}

// AddTextureHost registers a texture host.
func (r *Registry) AddTextureHost(id TextureHostID, t gpucontext.Texture) {
	r.mu.Lock()
	r.hosts[id] = t
	r.mu.Unlock()
}

// RemoveTextureHost unregisters a texture host. References already taken
// stay valid for their holders.
func (r *Registry) RemoveTextureHost(id TextureHostID) {
	r.mu.Lock()
	delete(r.hosts, id)
	r.mu.Unlock()
}

// Refs returns the number of outstanding references to a texture host.
func (r *Registry) Refs(id TextureHostID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refs[id]
}

// SharedSurface implements ExternalImages.
func (r *Registry) SharedSurface(id SurfaceID) (SharedSurface, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.surfaces[id]
	return s, ok
}

// AcquireTextureHost implements ExternalImages.
func (r *Registry) AcquireTextureHost(id TextureHostID) (gpucontext.Texture, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.hosts[id]
	if ok {
		r.refs[id]++
	}
	return t, ok
}

// ReleaseTextureHost implements ExternalImages.
func (r *Registry) ReleaseTextureHost(id TextureHostID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.refs[id] <= 1 {
		delete(r.refs, id)
		return
	}
	r.refs[id]--
}
