// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package bridge

import (
	"sync"
	"time"
)

// Scheduler paces frame generation. Schedule is idempotent: any number of
// calls before the handler runs produce one call.
//
// Implementations must call the handler without holding their own locks,
// and must allow Schedule from inside the handler.
type Scheduler interface {
	// SetHandler sets the function run for each scheduled composite.
	SetHandler(fn func(now time.Time))

	// Schedule asks for one composite.
	Schedule()

	// Cancel drops a scheduled composite and reports whether there was one.
	Cancel() bool

	// Pending reports whether a composite is scheduled.
	Pending() bool

	// LastComposeTime returns when the handler last ran.
	LastComposeTime() time.Time

	// UpdateLastComposeTime records a composite run outside the scheduler.
	UpdateLastComposeTime(t time.Time)

	// Stop cancels pending work; later Schedule calls do nothing.
	Stop()
}

// DefaultVsyncInterval is the frame interval of a 60 Hz display.
const DefaultVsyncInterval = time.Second / 60

// VsyncScheduler runs the handler on the next vsync tick after Schedule,
// simulated with a timer aligned to the last composite.
//
// Thread safety: VsyncScheduler is safe for concurrent use.
type VsyncScheduler struct {
	interval time.Duration
	now      func() time.Time

	mu       sync.Mutex
	handler  func(time.Time)
	timer    *time.Timer
	pending  bool
	seq      uint64
	last     time.Time
	stopped  bool
	composes int
}

var _ Scheduler = (*VsyncScheduler)(nil)

// NewVsyncScheduler returns a scheduler ticking every interval. A zero
// interval uses DefaultVsyncInterval; a nil clock uses time.Now.
func NewVsyncScheduler(interval time.Duration, now func() time.Time) *VsyncScheduler {
	if interval <= 0 {
		interval = DefaultVsyncInterval
	}
	if now == nil {
		now = time.Now
	}
	return &VsyncScheduler{interval: interval, now: now}
}

// SetHandler implements Scheduler.
func (s *VsyncScheduler) SetHandler(fn func(now time.Time)) {
	s.mu.Lock()
	s.handler = fn
	s.mu.Unlock()
}

// Schedule implements Scheduler.
func (s *VsyncScheduler) Schedule() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending || s.stopped {
		return
	}
	s.pending = true
	s.seq++
	seq := s.seq
	var delay time.Duration
	if !s.last.IsZero() {
		delay = s.last.Add(s.interval).Sub(s.now())
	}
	s.timer = time.AfterFunc(max(delay, 0), func() { s.fire(seq) })
}

func (s *VsyncScheduler) fire(seq uint64) {
	s.mu.Lock()
	if !s.pending || seq != s.seq {
		s.mu.Unlock()
		return
	}
	s.pending = false
	now := s.now()
	s.last = now
	s.composes++
	fn := s.handler
	s.mu.Unlock()
	if fn != nil {
		fn(now)
	}
}

// Cancel implements Scheduler.
func (s *VsyncScheduler) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.pending {
		return false
	}
	s.pending = false
	if s.timer != nil {
		s.timer.Stop()
	}
	return true
}

// Pending implements Scheduler.
func (s *VsyncScheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// LastComposeTime implements Scheduler.
func (s *VsyncScheduler) LastComposeTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// UpdateLastComposeTime implements Scheduler.
func (s *VsyncScheduler) UpdateLastComposeTime(t time.Time) {
	s.mu.Lock()
	s.last = t
	s.mu.Unlock()
}

// Composes returns how many times the handler was run by the timer.
func (s *VsyncScheduler) Composes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.composes
}

// Stop implements Scheduler.
func (s *VsyncScheduler) Stop() {
	s.Cancel()
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
}

// ManualScheduler runs the handler only when Fire is called, which makes
// frame generation deterministic in tests and offline rendering.
//
// Thread safety: ManualScheduler is safe for concurrent use.
type ManualScheduler struct {
	mu        sync.Mutex
	handler   func(time.Time)
	pending   bool
	stopped   bool
	last      time.Time
	scheduled int
}

var _ Scheduler = (*ManualScheduler)(nil)

// NewManualScheduler returns an idle scheduler.
func NewManualScheduler() *ManualScheduler { return &ManualScheduler{} }

// SetHandler implements Scheduler.
func (s *ManualScheduler) SetHandler(fn func(now time.Time)) {
	s.mu.Lock()
	s.handler = fn
	s.mu.Unlock()
}

// Schedule implements Scheduler.
func (s *ManualScheduler) Schedule() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending || s.stopped {
		return
	}
	s.pending = true
	s.scheduled++
}

// Fire runs the handler at now if a composite is scheduled and reports
// whether it ran.
func (s *ManualScheduler) Fire(now time.Time) bool {
	s.mu.Lock()
	if !s.pending {
		s.mu.Unlock()
		return false
	}
	s.pending = false
	s.last = now
	fn := s.handler
	s.mu.Unlock()
	if fn != nil {
		fn(now)
	}
	return true
}

// Scheduled returns how many composites were scheduled, counting
// collapsed calls once.
func (s *ManualScheduler) Scheduled() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scheduled
}

// Cancel implements Scheduler.
func (s *ManualScheduler) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	was := s.pending
	s.pending = false
	return was
}

// Pending implements Scheduler.
func (s *ManualScheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// LastComposeTime implements Scheduler.
func (s *ManualScheduler) LastComposeTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// UpdateLastComposeTime implements Scheduler.
func (s *ManualScheduler) UpdateLastComposeTime(t time.Time) {
	s.mu.Lock()
	s.last = t
	s.mu.Unlock()
}

// Stop implements Scheduler.
func (s *ManualScheduler) Stop() {
	s.mu.Lock()
	s.pending = false
	s.stopped = true
	s.mu.Unlock()
}
