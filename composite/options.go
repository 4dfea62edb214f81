// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package composite

import (
	"image"
	"time"

	"github.com/gogpu/compositor/layers"
	"github.com/gogpu/compositor/profiler"
)

// DebugOptions are developer preferences.
type DebugOptions struct {
	// DrawLayerBorders outlines every layer and scroll frame.
	DrawLayerBorders bool
	// DrawFPS draws the frame rate and composite time.
	DrawFPS bool
	// DrawFrameCounter draws the frame number as colored bars.
	DrawFrameCounter bool
	// DrawPaintTimes draws the content paint times reported with
	// RecordPaintTime.
	DrawPaintTimes bool
	// SkipComposition disables drawing; invalidation is still consumed.
	SkipComposition bool
	// FlashInvalidRegion tints the invalid region of every frame.
	FlashInvalidRegion bool
	// WarnUnusedAsyncTransform draws a warning box when an async scroll
	// transform could not be applied to content.
	WarnUnusedAsyncTransform bool
	// HighlightCheckerboard fills checkerboarded areas with a fixed color.
	HighlightCheckerboard bool
	// DumpLayerTree logs the layer tree before each frame at debug level.
	DumpLayerTree bool
}

// overlayEnabled reports whether any overlay element is drawn.
func (d DebugOptions) overlayEnabled() bool {
	return d.DrawLayerBorders || d.DrawFPS || d.DrawFrameCounter || d.DrawPaintTimes ||
		d.FlashInvalidRegion || d.WarnUnusedAsyncTransform
}

// FrameStats describes one UpdateAndRender call.
type FrameStats struct {
	// Frame counts the composites that reached the compositor.
	Frame uint64
	// Skipped is set when nothing was invalid.
	Skipped bool
	// Abandoned is set when the widget or the compositor refused the frame.
	Abandoned bool
	// Invalid is the region the frame was asked to redraw.
	Invalid image.Rectangle
	// Actual is the area the compositor drew.
	Actual   image.Rectangle
	Duration time.Duration
	// Layers are the pipeline counters of the frame.
	Layers layers.Stats
	// UnusedAsyncTransform is set when a scroll placeholder carried an
	// async transform that content did not reflect.
	UnusedAsyncTransform bool
}

// Option configures a Manager.
type Option func(*options)

type options struct {
	widget    Widget
	hwc       HardwareComposer
	profiler  profiler.Profiler
	debug     DebugOptions
	effects   ScreenEffects
	grabber   ScreenshotGrabber
	bounds    image.Rectangle
	now       func() time.Time
	listeners []func(FrameStats)
}

func defaultOptions() options {
	return options{
		widget:   NopWidget{},
		profiler: profiler.Nop{},
		now:      time.Now,
	}
}

// WithWidget sets the platform widget. The default accepts every frame.
func WithWidget(w Widget) Option {
	return func(o *options) {
		if w != nil {
			o.widget = w
		}
	}
}

// WithHardwareComposer sets the hardware composer consulted each frame.
func WithHardwareComposer(h HardwareComposer) Option {
	return func(o *options) {
		o.hwc = h
	}
}

// WithProfiler records composite intervals and markers to p.
func WithProfiler(p profiler.Profiler) Option {
	return func(o *options) {
		if p != nil {
			o.profiler = p
		}
	}
}

// WithDebug sets the developer preferences.
func WithDebug(d DebugOptions) Option {
	return func(o *options) {
		o.debug = d
	}
}

// WithScreenEffects sets the initial screen effects.
func WithScreenEffects(e ScreenEffects) Option {
	return func(o *options) {
		o.effects = e
	}
}

// WithScreenshotGrabber offers every frame to g.
func WithScreenshotGrabber(g ScreenshotGrabber) Option {
	return func(o *options) {
		o.grabber = g
	}
}

// WithBounds fixes the render area. By default the area follows the
// compositor's screen target.
func WithBounds(r image.Rectangle) Option {
	return func(o *options) {
		o.bounds = r
	}
}

// WithClock overrides the time source used for frame timing.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithFrameListener calls fn after every UpdateAndRender.
func WithFrameListener(fn func(FrameStats)) Option {
	return func(o *options) {
		o.listeners = append(o.listeners, fn)
	}
}
