// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package bridge

import (
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/gogpu/compositor/geom"
	"github.com/gogpu/compositor/renderapi"
)

// Keyframe is a property value at a fraction of an iteration.
type Keyframe struct {
	// Offset in [0, 1].
	Offset    float64
	Opacity   float32
	Transform geom.Matrix4x4
}

// Animation animates one opacity or transform binding on the compositor.
type Animation struct {
	// ID is the display item binding. Its upper 32 bits are the id of the
	// content process that created it.
	ID       uint64
	Property renderapi.PropertyKind

	// Keyframes sorted by Offset. At least one is required.
	Keyframes []Keyframe

	// Start is when the first iteration begins. A zero Start is resolved
	// to the time of the first sample.
	Start    time.Time
	Duration time.Duration

	// Iterations is the number of iterations; 0 means 1 and +Inf repeats
	// forever.
	Iterations float64
}

// AnimationID builds an animation id from a process id and a serial.
func AnimationID(process, serial uint32) uint64 {
	return uint64(process)<<32 | uint64(serial)
}

func (a *Animation) validate(process uint32) error {
	if uint32(a.ID>>32) != process {
		return fmt.Errorf("%w: animation %#x not owned by process %d", ErrProtocol, a.ID, process)
	}
	if len(a.Keyframes) == 0 {
		return fmt.Errorf("%w: animation %#x has no keyframes", ErrProtocol, a.ID)
	}
	if a.Property != renderapi.PropertyOpacity && a.Property != renderapi.PropertyTransform {
		return fmt.Errorf("%w: animation %#x animates %v", ErrProtocol, a.ID, a.Property)
	}
	return nil
}

// sample returns the value at t and whether the animation is still
// running.
func (a *Animation) sample(t time.Time) (renderapi.PropertyValue, bool) {
	iterations := a.Iterations
	if iterations <= 0 {
		iterations = 1
	}
	var progress float64
	running := true
	if a.Duration <= 0 {
		progress, running = 1, false
	} else {
		elapsed := float64(t.Sub(a.Start)) / float64(a.Duration)
		switch {
		case elapsed < 0:
			progress = 0
		case elapsed >= iterations:
			progress, running = iterations-math.Floor(iterations), false
			if progress == 0 {
				progress = 1
			}
		default:
			progress = elapsed - math.Floor(elapsed)
		}
	}
	v := renderapi.PropertyValue{ID: a.ID, Kind: a.Property}
	from, to, f := a.segment(progress)
	switch a.Property {
	case renderapi.PropertyOpacity:
		v.Opacity = from.Opacity + (to.Opacity-from.Opacity)*float32(f)
	case renderapi.PropertyTransform:
		v.Transform = lerpMatrix(from.Transform, to.Transform, f)
	}
	return v, running
}

// segment returns the keyframes around progress and the position between
// them.
func (a *Animation) segment(progress float64) (from, to Keyframe, f float64) {
	kf := a.Keyframes
	if progress <= kf[0].Offset {
		return kf[0], kf[0], 0
	}
	for i := 1; i < len(kf); i++ {
		if progress <= kf[i].Offset {
			span := kf[i].Offset - kf[i-1].Offset
			if span <= 0 {
				return kf[i], kf[i], 0
			}
			return kf[i-1], kf[i], (progress - kf[i-1].Offset) / span
		}
	}
	last := kf[len(kf)-1]
	return last, last, 0
}

// lerpMatrix interpolates component-wise, which is exact for translations
// and scales.
func lerpMatrix(a, b geom.Matrix4x4, f float64) geom.Matrix4x4 {
	var m geom.Matrix4x4
	for i := range m {
		for j := range m[i] {
			m[i][j] = a[i][j] + (b[i][j]-a[i][j])*f
		}
	}
	return m
}

// animationStorage holds the animations of a root bridge and the bridges
// attached to it.
type animationStorage struct {
	mu         sync.Mutex
	animations map[uint64]*Animation
}

func newAnimationStorage() *animationStorage {
	return &animationStorage{animations: make(map[uint64]*Animation)}
}

func (s *animationStorage) set(a Animation) {
	a.Keyframes = slices.Clone(a.Keyframes)
	slices.SortStableFunc(a.Keyframes, func(x, y Keyframe) int {
		switch {
		case x.Offset < y.Offset:
			return -1
		case x.Offset > y.Offset:
			return 1
		}
		return 0
	})
	s.mu.Lock()
	s.animations[a.ID] = &a
	s.mu.Unlock()
}

func (s *animationStorage) remove(ids ...uint64) {
	s.mu.Lock()
	for _, id := range ids {
		delete(s.animations, id)
	}
	s.mu.Unlock()
}

func (s *animationStorage) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.animations)
}

// sample evaluates every animation at now. Animations without a start
// time start at start.
func (s *animationStorage) sample(start, now time.Time) ([]renderapi.PropertyValue, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]uint64, 0, len(s.animations))
	for id := range s.animations {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	values := make([]renderapi.PropertyValue, 0, len(ids))
	running := false
	for _, id := range ids {
		a := s.animations[id]
		if a.Start.IsZero() {
			a.Start = start
		}
		v, r := a.sample(now)
		values = append(values, v)
		running = running || r
	}
	return values, running
}

// animationsForEpoch are deleted once their epoch has been rendered.
type animationsForEpoch struct {
	epoch renderapi.Epoch
	ids   []uint64
}
