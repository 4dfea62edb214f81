// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package bridge

import (
	"time"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/compositor/render"
)

// Option configures a Bridge.
type Option func(*options)

type options struct {
	now         func() time.Time
	testing     bool
	testingTime time.Time
	scheduler   Scheduler
	root        *Bridge
	observer    Observer
	telemetry   Telemetry
	external    ExternalImages
	textures    gpucontext.TextureCreator
	process     uint32
}

func defaultOptions() options {
	return options{
		now:      time.Now,
		observer: NopObserver{},
		textures: render.TextureCreator{},
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithTestingTime starts the bridge in test mode: animations are sampled
// at t instead of the current time.
func WithTestingTime(t time.Time) Option {
	return func(o *options) {
		o.testing = true
		o.testingTime = t
	}
}

// WithScheduler sets the frame scheduler of a root bridge. The default is
// a VsyncScheduler at DefaultVsyncInterval. Bridges attached with WithRoot
// use the root's scheduler and ignore this option.
func WithScheduler(s Scheduler) Option {
	return func(o *options) {
		o.scheduler = s
	}
}

// WithRoot attaches the bridge to root, which owns the window and
// generates frames for every attached bridge.
func WithRoot(root *Bridge) Option {
	return func(o *options) {
		o.root = root
	}
}

// WithObserver sets the upstream coordinator notified about epochs and
// composites.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithTelemetry records paint latencies.
func WithTelemetry(t Telemetry) Option {
	return func(o *options) {
		o.telemetry = t
	}
}

// WithExternalImages resolves shared surfaces and texture hosts. Without
// it every externally backed image is a protocol violation.
func WithExternalImages(e ExternalImages) Option {
	return func(o *options) {
		o.external = e
	}
}

// WithTextureCreator sets how shared surfaces are turned into textures.
// The default creates CPU textures.
func WithTextureCreator(c gpucontext.TextureCreator) Option {
	return func(o *options) {
		if c != nil {
			o.textures = c
		}
	}
}

// WithProcessID sets the content process id that animation ids must
// carry in their upper 32 bits.
func WithProcessID(id uint32) Option {
	return func(o *options) {
		o.process = id
	}
}
