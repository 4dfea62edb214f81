// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package bridge

import (
	"sync"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/renderapi"
)

// asyncImagePipeline shows the latest frame of a video or canvas producer
// through an image key, without a new display list per frame.
type asyncImagePipeline struct {
	image   renderapi.ImageKey
	host    TextureHostID
	texture gpucontext.Texture
	hasHost bool
	added   bool
	dirty   bool
}

// asyncImages holds the async image pipelines of a root bridge and the
// bridges attached to it. Updates are folded into the root's next frame.
//
// Thread safety: asyncImages is safe for concurrent use.
type asyncImages struct {
	mu        sync.Mutex
	external  ExternalImages
	pipelines map[renderapi.PipelineID]*asyncImagePipeline
	deletes   []renderapi.ImageKey
	retired   []TextureHostID
	until     time.Time
}

func newAsyncImages(ext ExternalImages) *asyncImages {
	return &asyncImages{external: ext, pipelines: make(map[renderapi.PipelineID]*asyncImagePipeline)}
}

func (m *asyncImages) add(p renderapi.PipelineID, key renderapi.ImageKey) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.pipelines[p]; ok {
		m.retireLocked(old)
	}
	m.pipelines[p] = &asyncImagePipeline{image: key}
}

func (m *asyncImages) remove(p renderapi.PipelineID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.pipelines[p]; ok {
		m.retireLocked(old)
		delete(m.pipelines, p)
	}
}

func (m *asyncImages) retireLocked(a *asyncImagePipeline) {
	if a.added {
		m.deletes = append(m.deletes, a.image)
	}
	if a.hasHost {
		m.retired = append(m.retired, a.host)
	}
}

// update points pipeline p at a new texture host. Failures are logged and
// leave the pipeline showing its previous frame.
func (m *asyncImages) update(p renderapi.PipelineID, host TextureHostID, until time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if until.After(m.until) {
		m.until = until
	}
	a, ok := m.pipelines[p]
	if !ok {
		compositor.Logger().Warn("bridge: update of unknown async image pipeline", "pipeline", p)
		return false
	}
	if m.external == nil {
		compositor.Logger().Warn("bridge: async image without external images", "pipeline", p)
		return false
	}
	tex, ok := m.external.AcquireTextureHost(host)
	if !ok {
		compositor.Logger().Warn("bridge: async image texture host missing", "pipeline", p, "host", host)
		return false
	}
	if a.hasHost {
		m.retired = append(m.retired, a.host)
	}
	a.host, a.texture, a.hasHost, a.dirty = host, tex, true, true
	return true
}

// fold adds pending image changes to txn and returns the host references
// that may be released once the frame carrying txn has been rendered.
func (m *asyncImages) fold(txn *renderapi.Transaction) []func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range m.deletes {
		txn.UpdateResources(renderapi.DeleteImage{Key: key})
	}
	m.deletes = nil
	for _, a := range m.pipelines {
		if !a.dirty {
			continue
		}
		desc := renderapi.ImageDescriptor{
			Width:  a.texture.Width(),
			Height: a.texture.Height(),
			Format: gputypes.TextureFormatRGBA8Unorm,
		}
		if a.added {
			txn.UpdateResources(renderapi.UpdateExternalImage{Key: a.image, Descriptor: desc, Texture: a.texture})
		} else {
			txn.UpdateResources(renderapi.AddExternalImage{Key: a.image, Descriptor: desc, Texture: a.texture})
			a.added = true
		}
		a.dirty = false
	}
	releases := make([]func(), 0, len(m.retired))
	for _, host := range m.retired {
		ext, host := m.external, host
		releases = append(releases, func() { ext.ReleaseTextureHost(host) })
	}
	m.retired = nil
	return releases
}

// needsComposite reports whether a composite-until deadline lies after now.
func (m *asyncImages) needsComposite(now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return now.Before(m.until)
}

func (m *asyncImages) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pipelines)
}

// releaseRetired drops references that never reached a frame.
func (m *asyncImages) releaseRetired() {
	m.mu.Lock()
	retired := m.retired
	m.retired = nil
	ext := m.external
	m.mu.Unlock()
	for _, host := range retired {
		ext.ReleaseTextureHost(host)
	}
}
