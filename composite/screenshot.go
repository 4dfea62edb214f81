// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package composite

import (
	"image"
	"sync"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/render"
)

// ScreenshotGrabber is offered every frame's pixels before the frame ends.
type ScreenshotGrabber interface {
	// MaybeGrab may read back bounds from c.
	MaybeGrab(c render.Compositor, bounds image.Rectangle)

	// NotifyEmptyFrame is called for frames that drew nothing.
	NotifyEmptyFrame()
}

// Screenshots grabs the screen of the next drawn frame for every pending
// request. Requests may be made from any goroutine.
type Screenshots struct {
	mu      sync.Mutex
	pending []chan *image.RGBA
	empty   int
}

var _ ScreenshotGrabber = (*Screenshots)(nil)

// NewScreenshots creates an idle grabber.
func NewScreenshots() *Screenshots {
	return &Screenshots{}
}

// Request asks for a copy of the next drawn frame. The channel receives
// one image, or nil when the compositor cannot read pixels back.
func (s *Screenshots) Request() <-chan *image.RGBA {
	ch := make(chan *image.RGBA, 1)
	s.mu.Lock()
	s.pending = append(s.pending, ch)
	s.mu.Unlock()
	return ch
}

// Pending returns the number of unanswered requests.
func (s *Screenshots) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// EmptyFrames returns the number of frames that drew nothing.
func (s *Screenshots) EmptyFrames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.empty
}

// MaybeGrab implements ScreenshotGrabber.
func (s *Screenshots) MaybeGrab(c render.Compositor, bounds image.Rectangle) {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()
	if len(pending) == 0 {
		return
	}

	var img *image.RGBA
	if rb, ok := c.(render.Readback); ok {
		var err error
		img, err = rb.ReadPixels(bounds)
		if err != nil {
			compositor.Logger().Warn("composite: screenshot readback failed", "err", err)
			img = nil
		}
	} else {
		compositor.Logger().Warn("composite: compositor cannot read back pixels")
	}
	for _, ch := range pending {
		ch <- img
	}
}

// NotifyEmptyFrame implements ScreenshotGrabber. Pending requests wait for
// a frame that draws.
func (s *Screenshots) NotifyEmptyFrame() {
	s.mu.Lock()
	s.empty++
	s.mu.Unlock()
}
