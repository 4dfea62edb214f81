// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"image"
	"testing"
)

func TestTargetPoolRecycle(t *testing.T) {
	c := NewSoftwareCompositor(64, 64)
	p := NewTargetPool(c)
	rect := image.Rect(0, 0, 16, 16)

	a, err := p.Acquire(rect, InitClear)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	p.Release(a)
	b, _ := p.Acquire(rect, InitClear)
	if a != b {
		t.Error("Acquire should recycle a released target of the same geometry")
	}
	if !b.ClearOnBind() {
		t.Error("recycled InitClear target should be cleared on bind")
	}

	p.Release(b)
	other, _ := p.Acquire(image.Rect(0, 0, 8, 8), InitNone)
	if other == b {
		t.Error("Acquire should not hand out a target of different geometry")
	}
	created, reused := p.Stats()
	if created != 2 || reused != 1 {
		t.Errorf("Stats() = %d, %d; want 2, 1", created, reused)
	}
}

func TestTargetPoolFrameAging(t *testing.T) {
	c := NewSoftwareCompositor(64, 64)
	p := NewTargetPool(c)

	tgt, _ := p.Acquire(image.Rect(0, 0, 16, 16), InitClear)
	p.Release(tgt)

	p.Frame()
	if p.Len() != 1 || c.LiveTargets() != 1 {
		t.Fatalf("after one frame: Len() = %d, LiveTargets() = %d; want 1, 1", p.Len(), c.LiveTargets())
	}
	p.Frame()
	if p.Len() != 0 || c.LiveTargets() != 0 {
		t.Errorf("after two frames: Len() = %d, LiveTargets() = %d; want 0, 0", p.Len(), c.LiveTargets())
	}
}

func TestTargetPoolPurge(t *testing.T) {
	c := NewSoftwareCompositor(64, 64)
	p := NewTargetPool(c)
	for i := 1; i <= 3; i++ {
		tgt, _ := p.Acquire(image.Rect(0, 0, i*4, i*4), InitNone)
		p.Release(tgt)
	}
	p.Purge()
	if p.Len() != 0 || c.LiveTargets() != 0 {
		t.Errorf("Purge left Len() = %d, LiveTargets() = %d", p.Len(), c.LiveTargets())
	}
}
