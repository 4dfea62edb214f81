// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import "image"

// TargetPool recycles offscreen render targets by geometry.
//
// Targets handed back with Release stay available for one more frame. A
// target that nobody reacquires before the following call to Frame is
// released to the compositor.
type TargetPool struct {
	c     Compositor
	free  map[image.Rectangle][]Target
	stale map[image.Rectangle][]Target

	created int
	reused  int
}

// NewTargetPool returns a pool that allocates from c.
func NewTargetPool(c Compositor) *TargetPool {
	return &TargetPool{
		c:     c,
		free:  make(map[image.Rectangle][]Target),
		stale: make(map[image.Rectangle][]Target),
	}
}

// Compositor returns the compositor the pool allocates from.
func (p *TargetPool) Compositor() Compositor { return p.c }

// Acquire returns a target covering exactly rect. A recycled target is
// cleared on its next bind when init is InitClear.
func (p *TargetPool) Acquire(rect image.Rectangle, init InitMode) (Target, error) {
	if t := p.take(p.free, rect); t != nil {
		return p.recycle(t, init), nil
	}
	if t := p.take(p.stale, rect); t != nil {
		return p.recycle(t, init), nil
	}
	t, err := p.c.CreateRenderTarget(rect, init)
	if err != nil {
		return nil, err
	}
	p.created++
	return t, nil
}

// Release hands t back to the pool. Nil targets are ignored.
func (p *TargetPool) Release(t Target) {
	if t == nil {
		return
	}
	r := t.Rect()
	p.free[r] = append(p.free[r], t)
}

// Frame ages the pool by one frame, freeing targets that were not reused.
func (p *TargetPool) Frame() {
	for r, ts := range p.stale {
		for _, t := range ts {
			p.c.ReleaseRenderTarget(t)
		}
		delete(p.stale, r)
	}
	p.free, p.stale = p.stale, p.free
}

// Purge frees every pooled target.
func (p *TargetPool) Purge() {
	for _, m := range []map[image.Rectangle][]Target{p.free, p.stale} {
		for r, ts := range m {
			for _, t := range ts {
				p.c.ReleaseRenderTarget(t)
			}
			delete(m, r)
		}
	}
}

// Len returns the number of pooled targets.
func (p *TargetPool) Len() int {
	n := 0
	for _, ts := range p.free {
		n += len(ts)
	}
	for _, ts := range p.stale {
		n += len(ts)
	}
	return n
}

// Stats returns how many targets were created and how many were recycled.
func (p *TargetPool) Stats() (created, reused int) {
	return p.created, p.reused
}

func (p *TargetPool) take(m map[image.Rectangle][]Target, rect image.Rectangle) Target {
	ts := m[rect]
	if len(ts) == 0 {
		return nil
	}
	t := ts[len(ts)-1]
	ts[len(ts)-1] = nil
	if len(ts) == 1 {
		delete(m, rect)
	} else {
		m[rect] = ts[:len(ts)-1]
	}
	return t
}

func (p *TargetPool) recycle(t Target, init InitMode) Target {
	p.reused++
	if init == InitClear {
		t.SetClearOnBind(true)
	}
	return t
}
