// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package layers

import (
	"image"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/compositor/geom"
	"github.com/gogpu/compositor/recording"
)

var (
	screenRect = image.Rect(0, 0, 100, 100)
	red        = gputypes.Color{R: 1, A: 1}
	blue       = gputypes.Color{B: 1, A: 1}
	gray       = gputypes.Color{R: 0.5, G: 0.5, B: 0.5, A: 1}
)

func solidLeaf(id ID, r image.Rectangle, opaque bool) *Layer {
	l := NewLeaf(id)
	l.SetContent(SolidContent(r, red))
	if opaque {
		l.Flags |= ContentOpaque
	}
	return l
}

func container(t *testing.T, id ID, children ...*Layer) *Layer {
	t.Helper()
	c := NewContainer(id)
	for _, ch := range children {
		if err := c.AppendChild(ch); err != nil {
			t.Fatalf("AppendChild(%d): %v", ch.ID(), err)
		}
	}
	return c
}

func update(root *Layer) {
	ComputeEffectiveTransforms(root)
	PostProcess(root)
}

func newRecorderContext() (*Context, *recording.Recorder) {
	rec := recording.NewRecorder(nil, screenRect)
	return NewContext(rec), rec
}

// frame runs one full composite of root on ctx and returns the commands
// it produced.
func frame(t *testing.T, ctx *Context, rec *recording.Recorder, root *Layer) *recording.Recording {
	t.Helper()
	update(root)
	ctx.ResetFrame()
	if rec.BeginFrame(geom.RegionOf(screenRect), nil, screenRect, geom.Region{}).Empty() {
		t.Fatal("BeginFrame returned empty bounds")
	}
	Prepare(ctx, root, nil)
	Render(ctx, root, nil)
	rec.EndFrame()
	return rec.FinishRecording()
}

func ptr(r image.Rectangle) *image.Rectangle { return &r }
