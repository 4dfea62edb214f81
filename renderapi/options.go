// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderapi

import (
	"time"

	"github.com/gogpu/compositor/render"
)

// Option configures a Server.
type Option func(*options)

type options struct {
	queueSize  int
	compositor render.Compositor
	now        func() time.Time
}

func defaultOptions() options {
	return options{
		queueSize: 64,
		now:       time.Now,
	}
}

// WithQueueSize sets how many transactions each stage buffers before
// SendTransaction blocks. Values below 1 are ignored.
func WithQueueSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.queueSize = n
		}
	}
}

// WithCompositor makes the render backend draw every frame through c.
// Without a compositor frames are only accounted for.
func WithCompositor(c render.Compositor) Option {
	return func(o *options) {
		o.compositor = c
	}
}

// WithClock replaces time.Now for frame timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
