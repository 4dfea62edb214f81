// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package recording

import (
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/gogpu/compositor/geom"
	"github.com/gogpu/compositor/render"
)

// Errors returned by recordings.
var (
	// ErrUnknownTarget is returned by Playback when a command refers to a
	// target that was never created in the recording.
	ErrUnknownTarget = errors.New("recording: unknown target")

	// ErrNoReadback is returned by ReadPixels when the inner compositor
	// cannot read back pixels.
	ErrNoReadback = errors.New("recording: inner compositor has no readback")
)

// Target is a render target created through a Recorder.
type Target struct {
	render.TargetBase
	ref   TargetRef
	inner render.Target
}

// Ref returns the reference commands use for this target.
func (t *Target) Ref() TargetRef { return t.ref }

// Inner returns the wrapped target of the inner compositor, or nil for a
// standalone recorder.
func (t *Target) Inner() render.Target { return t.inner }

// ClearOnBind implements render.Target, following the inner target.
func (t *Target) ClearOnBind() bool {
	if t.inner != nil {
		return t.inner.ClearOnBind()
	}
	return t.TargetBase.ClearOnBind()
}

// SetClearOnBind implements render.Target.
func (t *Target) SetClearOnBind(clear bool) {
	if t.inner != nil {
		t.inner.SetClearOnBind(clear)
	}
	t.TargetBase.SetClearOnBind(clear)
}

// Recorder captures compositor calls as commands.
//
// With a nil inner compositor the Recorder is standalone: targets carry no
// pixels and BeginFrame reports the invalid bounds clipped to the screen.
//
// The Recorder is not safe for concurrent use.
type Recorder struct {
	inner    render.Compositor
	screen   image.Rectangle
	opts     render.Options
	commands []Command

	targets []*Target
	byInner map[render.Target]*Target
	current *Target
	self    *Target // screen target of a standalone recorder
	ready   bool
}

var _ render.Compositor = (*Recorder)(nil)

// NewRecorder creates a Recorder in front of inner. screen is the area of
// the screen target; it is only used when inner is nil.
func NewRecorder(inner render.Compositor, screen image.Rectangle, opts ...render.Option) *Recorder {
	r := &Recorder{
		inner:    inner,
		screen:   screen,
		opts:     render.ApplyOptions(opts...),
		commands: make([]Command, 0, 64),
		byInner:  make(map[render.Target]*Target),
		ready:    true,
	}
	if inner == nil {
		r.self = r.newTarget(screen, nil)
	}
	return r
}

// Inner returns the wrapped compositor.
func (r *Recorder) Inner() render.Compositor { return r.inner }

// SetReady sets readiness of a standalone recorder.
func (r *Recorder) SetReady(ready bool) { r.ready = ready }

// Ready implements render.Compositor.
func (r *Recorder) Ready() bool {
	if r.inner != nil {
		return r.inner.Ready()
	}
	return r.ready
}

// MaxTextureSize implements render.Compositor.
func (r *Recorder) MaxTextureSize() int {
	if r.inner != nil {
		return r.inner.MaxTextureSize()
	}
	return r.opts.MaxTextureSize
}

// CreateRenderTarget implements render.Compositor.
func (r *Recorder) CreateRenderTarget(rect image.Rectangle, init render.InitMode) (render.Target, error) {
	var inner render.Target
	if r.inner != nil {
		var err error
		if inner, err = r.inner.CreateRenderTarget(rect, init); err != nil {
			return nil, err
		}
	} else if err := render.CheckTargetSize(rect, r.opts.MaxTextureSize); err != nil {
		return nil, err
	}
	t := r.newTarget(rect, inner)
	r.commands = append(r.commands, CreateTargetCommand{Ref: t.ref, Rect: rect, Init: init})
	return t, nil
}

// CreateRenderTargetFromSource implements render.Compositor.
func (r *Recorder) CreateRenderTargetFromSource(rect image.Rectangle, source render.Target, sourceOffset image.Point) (render.Target, error) {
	src, ok := source.(*Target)
	if !ok {
		return nil, render.ErrForeignTarget
	}
	var inner render.Target
	if r.inner != nil {
		var err error
		if inner, err = r.inner.CreateRenderTargetFromSource(rect, src.inner, sourceOffset); err != nil {
			return nil, err
		}
	} else if err := render.CheckTargetSize(rect, r.opts.MaxTextureSize); err != nil {
		return nil, err
	}
	t := r.newTarget(rect, inner)
	r.commands = append(r.commands, CreateTargetFromSourceCommand{
		Ref: t.ref, Rect: rect, Source: src.ref, Offset: sourceOffset,
	})
	return t, nil
}

// ReleaseRenderTarget implements render.Compositor.
func (r *Recorder) ReleaseRenderTarget(t render.Target) {
	rt, ok := t.(*Target)
	if !ok || rt == r.current {
		return
	}
	if r.inner != nil && rt.inner != nil {
		r.inner.ReleaseRenderTarget(rt.inner)
		delete(r.byInner, rt.inner)
	}
	r.commands = append(r.commands, ReleaseTargetCommand{Ref: rt.ref})
}

// SetRenderTarget implements render.Compositor.
func (r *Recorder) SetRenderTarget(t render.Target) {
	rt, ok := t.(*Target)
	if !ok {
		return
	}
	if r.inner != nil {
		r.inner.SetRenderTarget(rt.inner)
	} else {
		rt.TargetBase.SetClearOnBind(false)
	}
	r.current = rt
	r.commands = append(r.commands, SetTargetCommand{Ref: rt.ref})
}

// CurrentRenderTarget implements render.Compositor.
func (r *Recorder) CurrentRenderTarget() render.Target {
	if r.current == nil {
		return nil
	}
	return r.current
}

// DrawQuad implements render.Compositor.
func (r *Recorder) DrawQuad(rect geom.Rect, clip image.Rectangle, effects render.EffectChain, opacity float32, transform geom.Matrix4x4) {
	if r.current == nil {
		return
	}
	if r.inner != nil {
		r.inner.DrawQuad(rect, clip, mapChain(effects, func(t *Target) render.Target { return t.inner }), opacity, transform)
	}
	r.commands = append(r.commands, DrawQuadCommand{
		Target:    r.current.ref,
		Rect:      rect,
		Clip:      clip,
		Effects:   effects,
		Opacity:   opacity,
		Transform: transform,
	})
}

// ClearRect implements render.Compositor.
func (r *Recorder) ClearRect(rect image.Rectangle) {
	if r.current == nil {
		return
	}
	if r.inner != nil {
		r.inner.ClearRect(rect)
	}
	r.commands = append(r.commands, ClearRectCommand{Target: r.current.ref, Rect: rect})
}

// BeginFrame implements render.Compositor.
func (r *Recorder) BeginFrame(invalid geom.Region, clip *image.Rectangle, bounds image.Rectangle, opaque geom.Region) image.Rectangle {
	var actual image.Rectangle
	var screen *Target
	if r.inner != nil {
		actual = r.inner.BeginFrame(invalid, clip, bounds, opaque)
		if !actual.Empty() {
			screen = r.wrap(r.inner.CurrentRenderTarget())
		}
	} else if r.ready {
		actual = invalid.Bounds().Intersect(bounds).Intersect(r.screen)
		if clip != nil {
			actual = actual.Intersect(*clip)
		}
		screen = r.self
	}
	cmd := BeginFrameCommand{
		Invalid: invalid,
		Clip:    clip,
		Bounds:  bounds,
		Opaque:  opaque,
		Actual:  actual,
		Screen:  InvalidRef,
	}
	if !actual.Empty() && screen != nil {
		r.current = screen
		cmd.Screen = screen.ref
	} else {
		actual = image.Rectangle{}
	}
	r.commands = append(r.commands, cmd)
	return actual
}

// EndFrame implements render.Compositor.
func (r *Recorder) EndFrame() {
	if r.inner != nil {
		r.inner.EndFrame()
	}
	r.current = nil
	r.commands = append(r.commands, EndFrameCommand{})
}

// ReadPixels implements render.Readback when the inner compositor does.
func (r *Recorder) ReadPixels(rect image.Rectangle) (*image.RGBA, error) {
	rb, ok := r.inner.(render.Readback)
	if !ok {
		return nil, ErrNoReadback
	}
	return rb.ReadPixels(rect)
}

// Commands returns the commands recorded since the last FinishRecording.
func (r *Recorder) Commands() []Command { return r.commands }

// Count returns how many commands of type typ were recorded since the
// last FinishRecording.
func (r *Recorder) Count(typ CommandType) int { return count(r.commands, typ) }

// FinishRecording returns the commands recorded so far and starts a new
// recording. Targets stay valid across recordings.
func (r *Recorder) FinishRecording() *Recording {
	rec := &Recording{commands: r.commands}
	r.commands = make([]Command, 0, cap(r.commands))
	return rec
}

func (r *Recorder) newTarget(rect image.Rectangle, inner render.Target) *Target {
	format := r.opts.Format
	if inner != nil {
		format = inner.Format()
	}
	t := &Target{
		TargetBase: render.NewTargetBase(rect, format),
		ref:        TargetRef(len(r.targets)),
		inner:      inner,
	}
	r.targets = append(r.targets, t)
	if inner != nil {
		r.byInner[inner] = t
	}
	return t
}

// wrap returns the recorded target for an inner target, registering it if
// it was created outside the recorder (the inner screen target).
func (r *Recorder) wrap(inner render.Target) *Target {
	if inner == nil {
		return nil
	}
	if t, ok := r.byInner[inner]; ok {
		return t
	}
	return r.newTarget(inner.Rect(), inner)
}

// mapChain returns effects with recorded targets replaced by lookup(t).
func mapChain(effects render.EffectChain, lookup func(*Target) render.Target) render.EffectChain {
	if e, ok := effects.Primary.(render.RenderTargetEffect); ok {
		if t, ok := e.Target.(*Target); ok {
			effects.Primary = render.RenderTargetEffect{Target: lookup(t)}
		}
	}
	return effects
}

func count(cmds []Command, typ CommandType) int {
	n := 0
	for _, c := range cmds {
		if c.Type() == typ {
			n++
		}
	}
	return n
}

// Recording is an immutable list of recorded commands.
type Recording struct {
	commands []Command
}

// Commands returns the recorded commands.
func (r *Recording) Commands() []Command { return r.commands }

// Count returns how many commands of type typ were recorded.
func (r *Recording) Count(typ CommandType) int { return count(r.commands, typ) }

// Quads returns the recorded DrawQuad commands in order.
func (r *Recording) Quads() []DrawQuadCommand {
	var out []DrawQuadCommand
	for _, c := range r.commands {
		if q, ok := c.(DrawQuadCommand); ok {
			out = append(out, q)
		}
	}
	return out
}

// Dump writes one line per command to w.
func (r *Recording) Dump(w io.Writer) error {
	for i, c := range r.commands {
		var err error
		if s, ok := c.(fmt.Stringer); ok {
			_, err = fmt.Fprintf(w, "%4d %s\n", i, s)
		} else {
			_, err = fmt.Fprintf(w, "%4d %s %+v\n", i, c.Type(), c)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Playback replays the recording onto c. Targets created by the recording
// are created on c as well; targets that existed before the recording
// started cannot be referenced and produce ErrUnknownTarget.
//
// A recorded frame whose BeginFrame returns an empty rectangle on c is
// skipped up to its EndFrame.
func (r *Recording) Playback(c render.Compositor) error {
	targets := make(map[TargetRef]render.Target)
	get := func(ref TargetRef) (render.Target, error) {
		t, ok := targets[ref]
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrUnknownTarget, ref)
		}
		return t, nil
	}
	skipping := false

	for _, cmd := range r.commands {
		if skipping && cmd.Type() != CmdEndFrame {
			continue
		}
		switch cmd := cmd.(type) {
		case BeginFrameCommand:
			if cmd.Actual.Empty() {
				continue
			}
			if c.BeginFrame(cmd.Invalid, cmd.Clip, cmd.Bounds, cmd.Opaque).Empty() {
				skipping = true
				continue
			}
			targets[cmd.Screen] = c.CurrentRenderTarget()
		case EndFrameCommand:
			if skipping {
				skipping = false
				continue
			}
			c.EndFrame()
		case CreateTargetCommand:
			t, err := c.CreateRenderTarget(cmd.Rect, cmd.Init)
			if err != nil {
				return err
			}
			targets[cmd.Ref] = t
		case CreateTargetFromSourceCommand:
			src, err := get(cmd.Source)
			if err != nil {
				return err
			}
			t, err := c.CreateRenderTargetFromSource(cmd.Rect, src, cmd.Offset)
			if err != nil {
				return err
			}
			targets[cmd.Ref] = t
		case ReleaseTargetCommand:
			t, err := get(cmd.Ref)
			if err != nil {
				return err
			}
			c.ReleaseRenderTarget(t)
			delete(targets, cmd.Ref)
		case SetTargetCommand:
			t, err := get(cmd.Ref)
			if err != nil {
				return err
			}
			c.SetRenderTarget(t)
		case DrawQuadCommand:
			var missing error
			effects := mapChain(cmd.Effects, func(t *Target) render.Target {
				mt, err := get(t.ref)
				if err != nil {
					missing = err
				}
				return mt
			})
			if missing != nil {
				return missing
			}
			c.DrawQuad(cmd.Rect, cmd.Clip, effects, cmd.Opacity, cmd.Transform)
		case ClearRectCommand:
			c.ClearRect(cmd.Rect)
		}
	}
	return nil
}
