// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package profiler defines the profiling capability used by the compositor
// and the scene bridge, with no-op, slog and in-memory implementations.
//
// Implementations must never block or fail observably: profiling is
// fire-and-forget from the caller's point of view.
package profiler

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gogpu/compositor"
)

// Profiler records timed intervals and point-in-time markers.
type Profiler interface {
	// RecordInterval records that label took place between start and end.
	RecordInterval(label string, start, end time.Time)

	// AddMarker records a named event with an optional payload.
	AddMarker(name string, payload any)
}

// Nop discards everything.
type Nop struct{}

// RecordInterval implements Profiler.
func (Nop) RecordInterval(string, time.Time, time.Time) {}

// AddMarker implements Profiler.
func (Nop) AddMarker(string, any) {}

// Slog writes intervals and markers to a logger at debug level.
type Slog struct {
	// Logger receives the records. If nil, compositor.Logger() is used.
	Logger *slog.Logger
}

func (p Slog) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return compositor.Logger()
}

// RecordInterval implements Profiler.
func (p Slog) RecordInterval(label string, start, end time.Time) {
	p.logger().Debug("profiler: interval", "label", label, "duration", end.Sub(start))
}

// AddMarker implements Profiler.
func (p Slog) AddMarker(name string, payload any) {
	if payload == nil {
		p.logger().Debug("profiler: marker", "name", name)
		return
	}
	p.logger().Debug("profiler: marker", "name", name, "payload", payload)
}

// Interval is one recorded interval.
type Interval struct {
	Label      string
	Start, End time.Time
}

// Duration returns End - Start.
func (i Interval) Duration() time.Duration { return i.End.Sub(i.Start) }

// Marker is one recorded marker.
type Marker struct {
	Name    string
	Payload any
}

// Recorder keeps everything in memory. It is safe for concurrent use and
// is mostly useful in tests.
type Recorder struct {
	mu        sync.Mutex
	intervals []Interval
	markers   []Marker
}

// RecordInterval implements Profiler.
func (r *Recorder) RecordInterval(label string, start, end time.Time) {
	r.mu.Lock()
	r.intervals = append(r.intervals, Interval{Label: label, Start: start, End: end})
	r.mu.Unlock()
}

// AddMarker implements Profiler.
func (r *Recorder) AddMarker(name string, payload any) {
	r.mu.Lock()
	r.markers = append(r.markers, Marker{Name: name, Payload: payload})
	r.mu.Unlock()
}

// Intervals returns a copy of the recorded intervals.
func (r *Recorder) Intervals() []Interval {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Interval(nil), r.intervals...)
}

// Markers returns a copy of the recorded markers.
func (r *Recorder) Markers() []Marker {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Marker(nil), r.markers...)
}

// MarkerCount returns how many markers named name were recorded.
func (r *Recorder) MarkerCount(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.markers {
		if m.Name == name {
			n++
		}
	}
	return n
}

// Reset forgets everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.intervals, r.markers = nil, nil
	r.mu.Unlock()
}

// Span starts an interval and returns the function that ends it.
//
//	defer profiler.Span(p, "Composite")()
func Span(p Profiler, label string) func() {
	if p == nil {
		return func() {}
	}
	start := time.Now()
	return func() { p.RecordInterval(label, start, time.Now()) }
}

var (
	_ Profiler = Nop{}
	_ Profiler = Slog{}
	_ Profiler = (*Recorder)(nil)
)
