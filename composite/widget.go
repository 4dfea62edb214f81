// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package composite

import (
	"image"

	"github.com/gogpu/compositor/layers"
	"github.com/gogpu/compositor/render"
)

// Widget is the platform window a manager draws into.
type Widget interface {
	// PreRender is called before a frame begins. Returning false abandons
	// the frame.
	PreRender(c render.Compositor) bool

	// PostRender is called after every frame for which PreRender returned
	// true, including abandoned ones.
	PostRender(c render.Compositor)

	// DrawUnderlay draws a custom background below the layers.
	DrawUnderlay(c render.Compositor, rect image.Rectangle)

	// DrawOverlay draws a custom foreground above the layers.
	DrawOverlay(c render.Compositor, rect image.Rectangle)

	// OverlayChanged reports whether the foreground needs a redraw even
	// though no layer changed.
	OverlayChanged() bool
}

// NopWidget accepts every frame and draws nothing.
type NopWidget struct{}

func (NopWidget) PreRender(render.Compositor) bool                { return true }
func (NopWidget) PostRender(render.Compositor)                    {}
func (NopWidget) DrawUnderlay(render.Compositor, image.Rectangle) {}
func (NopWidget) DrawOverlay(render.Compositor, image.Rectangle)  {}
func (NopWidget) OverlayChanged() bool                            { return false }

// HardwareComposer takes layers off the GPU path, for example by handing
// them to a display overlay plane.
type HardwareComposer interface {
	// Assign marks the layers it composites with Layer.SetComposited. It
	// returns a rectangle of the frame buffer to clear once the layers
	// are drawn, so the plane underneath shows through.
	Assign(root *layers.Layer, bounds image.Rectangle) image.Rectangle
}
