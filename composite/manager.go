// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package composite

import (
	"fmt"
	"image"
	"strings"
	"time"

	"golang.org/x/image/draw"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/geom"
	"github.com/gogpu/compositor/layers"
	"github.com/gogpu/compositor/render"
)

type state uint8

const (
	stateIdle state = iota
	stateInTransaction
	stateComposing
)

var stateNames = [...]string{
	stateIdle:          "Idle",
	stateInTransaction: "InTransaction",
	stateComposing:     "Composing",
}

func (s state) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "Unknown"
}

// EndFlags modify EndTransaction.
type EndFlags uint8

const (
	// EndNoImmediateRedraw applies the transaction without compositing.
	EndNoImmediateRedraw EndFlags = 1 << iota
)

// screenSource is implemented by compositors that expose their screen.
type screenSource interface {
	ScreenTarget() render.Target
}

// Manager coordinates composites of one layer tree onto one compositor.
//
// A Manager is not safe for concurrent use.
type Manager struct {
	c    render.Compositor
	opts options
	ctx  *layers.Context
	tree *layers.Tree

	root      *layers.Layer
	state     state
	destroyed bool

	clip       *image.Rectangle
	target     draw.Image
	lastBounds image.Rectangle

	snapshot *layers.Snapshot
	// invalid is the region of the frame being composed.
	invalid geom.Region
	// persistentInvalid collects changes composed into an external target
	// that the screen has not seen yet.
	persistentInvalid geom.Region
	// requested collects rectangles passed to Invalidate.
	requested geom.Region
	clearRect image.Rectangle

	overlay *overlay
	frame   uint64
	last    FrameStats
}

// NewManager creates a manager drawing through c.
func NewManager(c render.Compositor, opts ...Option) *Manager {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	m := &Manager{
		c:       c,
		opts:    o,
		ctx:     layers.NewContext(c),
		tree:    layers.NewTree(),
		overlay: newOverlay(),
	}
	m.applyDebug()
	return m
}

func (m *Manager) applyDebug() {
	m.ctx.Debug = layers.Debug{
		DrawScrollBorders:     m.opts.debug.DrawLayerBorders,
		HighlightCheckerboard: m.opts.debug.HighlightCheckerboard,
	}
}

// Root returns the root layer.
func (m *Manager) Root() *layers.Layer { return m.root }

// SetRoot replaces the root layer. The next composite redraws everything.
func (m *Manager) SetRoot(root *layers.Layer) {
	if m.warnDestroyed("SetRoot") {
		return
	}
	m.root = root
	m.snapshot = nil
}

// Tree returns the tree that ApplyEdits mutates.
func (m *Manager) Tree() *layers.Tree { return m.tree }

// Context returns the pipeline context, for backends and tests.
func (m *Manager) Context() *layers.Context { return m.ctx }

// LastFrame returns the statistics of the last UpdateAndRender.
func (m *Manager) LastFrame() FrameStats { return m.last }

// SetDebug replaces the developer preferences.
func (m *Manager) SetDebug(d DebugOptions) {
	m.opts.debug = d
	m.applyDebug()
	m.requested = geom.RegionOf(m.lastBounds)
}

// SetScreenEffects replaces the screen effects and redraws everything.
func (m *Manager) SetScreenEffects(e ScreenEffects) {
	if m.opts.effects == e {
		return
	}
	m.opts.effects = e
	m.requested = geom.RegionOf(m.lastBounds)
}

// SetClip restricts drawing to clip. Nil removes the restriction.
func (m *Manager) SetClip(clip *image.Rectangle) {
	m.clip = clip
}

// Invalidate asks for rect (screen space) to be redrawn on the next
// composite to the screen.
func (m *Manager) Invalidate(rect image.Rectangle) {
	m.requested = m.requested.UnionRect(rect)
}

// RecordPaintTime reports how long content took to paint, for the paint
// time overlay.
func (m *Manager) RecordPaintTime(d time.Duration) {
	m.overlay.recordPaint(d)
}

// BeginTransaction opens a transaction composed to the screen.
func (m *Manager) BeginTransaction() error {
	return m.begin(nil)
}

// BeginTransactionWithTarget opens a transaction whose composite is copied
// into dst instead of being shown. The overlay is not drawn into dst.
func (m *Manager) BeginTransactionWithTarget(dst draw.Image) error {
	return m.begin(dst)
}

func (m *Manager) begin(dst draw.Image) error {
	if m.warnDestroyed("BeginTransaction") {
		return ErrDestroyed
	}
	if m.state != stateIdle {
		return fmt.Errorf("%w (state %s)", ErrTransactionOpen, m.state)
	}
	if !m.c.Ready() {
		return ErrNotReady
	}
	m.state = stateInTransaction
	m.target = dst
	return nil
}

// ApplyEdits applies layer tree edits inside the open transaction and
// makes the tree's root the manager's root. An error wraps
// layers.ErrProtocol; the edits before the failing one stay applied.
func (m *Manager) ApplyEdits(edits ...layers.Edit) error {
	if m.warnDestroyed("ApplyEdits") {
		return ErrDestroyed
	}
	if m.state != stateInTransaction {
		return ErrNoTransaction
	}
	err := m.tree.Apply(edits...)
	m.ctx.Release(m.tree.TakeReleased()...)
	if root := m.tree.Root(); root != m.root {
		m.root = root
		m.snapshot = nil
	}
	return err
}

// EndTransaction closes the open transaction and, unless flags say
// otherwise, composites the tree. Ending a transaction that was never
// begun is a programming error and panics.
func (m *Manager) EndTransaction(flags EndFlags) {
	if m.warnDestroyed("EndTransaction") {
		return
	}
	if m.state != stateInTransaction {
		panic("composite: EndTransaction without an open transaction")
	}
	if flags&EndNoImmediateRedraw == 0 && m.root != nil {
		m.UpdateAndRender()
	}
	m.target = nil
	m.state = stateIdle
}

// UpdateAndRender recomputes the tree and draws whatever changed since the
// last composite.
func (m *Manager) UpdateAndRender() {
	if m.warnDestroyed("UpdateAndRender") || m.root == nil {
		return
	}
	prev := m.state
	m.state = stateComposing
	defer func() { m.state = prev }()

	start := m.opts.now()
	stats := FrameStats{Frame: m.frame}
	defer func() {
		stats.Duration = m.opts.now().Sub(start)
		m.opts.profiler.RecordInterval("Composite", start, start.Add(stats.Duration))
		m.last = stats
		for _, fn := range m.opts.listeners {
			fn(stats)
		}
	}()

	if m.opts.debug.SkipComposition {
		m.invalid = geom.Region{}
		m.requested = geom.Region{}
		stats.Skipped = true
		return
	}

	root := m.root
	if root.Opacity != 1 {
		panic(fmt.Sprintf("composite: root layer %d has opacity %v, want 1", root.ID(), root.Opacity))
	}
	layers.ComputeEffectiveTransforms(root)
	layers.PostProcess(root)

	bounds := m.renderBounds()
	if bounds != m.lastBounds {
		m.snapshot = nil
		m.lastBounds = bounds
	}

	var changed geom.Region
	if m.snapshot != nil {
		diff, overflow := m.snapshot.ComputeDifferences(root)
		if overflow {
			diff = geom.RegionOf(bounds)
		}
		changed = diff
	}

	if m.target != nil {
		m.persistentInvalid = m.persistentInvalid.Union(changed)
		if m.snapshot == nil {
			m.persistentInvalid = m.persistentInvalid.UnionRect(bounds)
		}
		m.invalid = geom.RegionOf(bounds)
	} else {
		m.invalid = m.invalid.Union(changed)
		if m.snapshot == nil {
			m.invalid = m.invalid.UnionRect(bounds)
		}
		m.invalid = m.invalid.Union(m.requested).Union(m.persistentInvalid)
		m.requested = geom.Region{}
		m.persistentInvalid = geom.Region{}
	}
	m.invalid = m.invalid.IntersectRect(bounds)

	if m.invalid.IsEmpty() && !m.opts.widget.OverlayChanged() {
		m.snapshot = layers.TakeSnapshot(root)
		m.opts.profiler.AddMarker("CompositeSkipped", nil)
		compositor.Logger().Debug("composite: nothing invalid, skipping frame", "frame", m.frame)
		stats.Skipped = true
		return
	}

	if m.target == nil {
		if m.opts.widget.OverlayChanged() {
			m.invalid = geom.RegionOf(bounds)
		}
		m.invalid = m.overlay.extendInvalid(m.opts.debug, m.invalid, bounds)
	}
	stats.Invalid = m.invalid.Bounds()

	m.render(bounds, start, &stats)
	if stats.Abandoned && m.target == nil {
		// Nothing reached the screen; carry the damage to the next frame.
		m.requested = m.requested.Union(m.invalid)
	}
	m.snapshot = layers.TakeSnapshot(root)
	m.invalid = geom.Region{}
}

// renderBounds returns the area composed each frame.
func (m *Manager) renderBounds() image.Rectangle {
	if !m.opts.bounds.Empty() {
		return m.opts.bounds
	}
	if s, ok := m.c.(screenSource); ok {
		if t := s.ScreenTarget(); t != nil {
			return t.Rect()
		}
	}
	return m.root.EffectiveVisibleRegion().Bounds()
}

// render draws one frame. Any refusal by the widget or the compositor
// abandons the frame.
func (m *Manager) render(bounds image.Rectangle, start time.Time, stats *FrameStats) {
	root := m.root
	c := m.c

	root.ClearComposited()
	if m.opts.hwc != nil {
		if r := m.opts.hwc.Assign(root, bounds); !r.Empty() {
			m.clearRect = r
		}
	}
	if m.opts.debug.DumpLayerTree {
		var sb strings.Builder
		if err := DumpTree(&sb, root); err == nil {
			compositor.Logger().Debug("composite: layer tree", "frame", m.frame, "tree", sb.String())
		}
	}

	w := m.opts.widget
	if !w.PreRender(c) {
		compositor.Logger().Debug("composite: widget refused frame", "frame", m.frame)
		stats.Abandoned = true
		return
	}
	defer w.PostRender(c)

	var opaque geom.Region
	if root.Flags&layers.ContentOpaque != 0 {
		opaque = root.EffectiveVisibleRegion()
	}
	actual := c.BeginFrame(m.invalid, m.clip, bounds, opaque)
	if actual.Empty() {
		if m.opts.grabber != nil {
			m.opts.grabber.NotifyEmptyFrame()
		}
		stats.Abandoned = true
		return
	}
	stats.Actual = actual
	m.frame++
	stats.Frame = m.frame

	w.DrawUnderlay(c, actual)

	m.ctx.ResetFrame()
	screen := c.CurrentRenderTarget()
	effectsTarget := m.beginScreenEffects(actual)

	layers.Prepare(m.ctx, root, &actual)
	layers.Render(m.ctx, root, &actual)

	if !m.clearRect.Empty() {
		c.ClearRect(m.clearRect)
		m.clearRect = image.Rectangle{}
	}
	if effectsTarget != nil {
		m.endScreenEffects(screen, effectsTarget, actual)
	}

	w.DrawOverlay(c, actual)
	if m.opts.grabber != nil {
		m.opts.grabber.MaybeGrab(c, actual)
	}

	stats.Layers = m.ctx.Stats
	stats.UnusedAsyncTransform = m.ctx.UnusedAsyncTransform
	if m.ctx.UnusedAsyncTransform {
		compositor.Logger().Warn("composite: async transform not reflected by content", "frame", m.frame)
	}

	if m.target == nil {
		m.overlay.tick(start, m.opts.now().Sub(start))
		if m.opts.debug.overlayEnabled() {
			m.overlay.draw(c, m.opts.debug, root, m.invalid, actual, m.ctx.UnusedAsyncTransform)
		}
	}

	c.EndFrame()
	m.ctx.Pool.Frame()

	if m.target != nil {
		m.copyToTarget(bounds)
	}
}

// beginScreenEffects redirects drawing to an offscreen target when screen
// effects are active.
func (m *Manager) beginScreenEffects(actual image.Rectangle) render.Target {
	if !m.opts.effects.Active() {
		return nil
	}
	t, err := m.ctx.Pool.Acquire(actual, render.InitClear)
	if err != nil {
		compositor.Logger().Debug("composite: screen effects disabled for frame", "err", err)
		return nil
	}
	m.c.SetRenderTarget(t)
	return t
}

func (m *Manager) endScreenEffects(screen, t render.Target, actual image.Rectangle) {
	c := m.c
	c.SetRenderTarget(screen)
	matrix := m.opts.effects.Matrix()
	chain := render.FromTarget(t)
	chain.ColorMatrix = &matrix
	c.DrawQuad(geom.RectFrom(t.Rect()), actual, chain, 1, geom.Identity())
	m.ctx.Pool.Release(t)
}

func (m *Manager) copyToTarget(bounds image.Rectangle) {
	rb, ok := m.c.(render.Readback)
	if !ok {
		compositor.Logger().Warn("composite: compositor cannot read back into target")
		return
	}
	img, err := rb.ReadPixels(bounds)
	if err != nil {
		compositor.Logger().Warn("composite: target readback failed", "err", err)
		return
	}
	draw.Draw(m.target, m.target.Bounds(), img, img.Rect.Min, draw.Src)
}

// Destroy releases every surface the manager holds. Later calls warn and
// do nothing.
func (m *Manager) Destroy() {
	if m.warnDestroyed("Destroy") {
		return
	}
	m.ctx.Release(m.tree.Destroy()...)
	if m.root != nil {
		m.ctx.Release(m.root.ReleaseSurfaces()...)
	}
	m.ctx.Pool.Purge()
	m.root = nil
	m.snapshot = nil
	m.destroyed = true
	m.state = stateIdle
}

// Destroyed reports whether Destroy was called.
func (m *Manager) Destroyed() bool { return m.destroyed }

func (m *Manager) warnDestroyed(op string) bool {
	if m.destroyed {
		compositor.Logger().Warn("composite: call on destroyed manager", "op", op)
	}
	return m.destroyed
}
