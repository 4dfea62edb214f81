// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package profiler

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestRecorder(t *testing.T) {
	var r Recorder
	start := time.Unix(100, 0)
	r.RecordInterval("Composite", start, start.Add(5*time.Millisecond))
	r.AddMarker("CONTENT_FULL_PAINT_TIME", 12)
	r.AddMarker("CONTENT_FULL_PAINT_TIME", nil)

	iv := r.Intervals()
	if len(iv) != 1 || iv[0].Label != "Composite" {
		t.Fatalf("Intervals() = %v", iv)
	}
	if iv[0].Duration() != 5*time.Millisecond {
		t.Errorf("Duration() = %v, want 5ms", iv[0].Duration())
	}
	if got := r.MarkerCount("CONTENT_FULL_PAINT_TIME"); got != 2 {
		t.Errorf("MarkerCount() = %d, want 2", got)
	}

	r.Reset()
	if len(r.Intervals()) != 0 || len(r.Markers()) != 0 {
		t.Error("Reset should forget everything")
	}
}

func TestSpan(t *testing.T) {
	var r Recorder
	Span(&r, "Prepare")()
	if iv := r.Intervals(); len(iv) != 1 || iv[0].End.Before(iv[0].Start) {
		t.Errorf("Span recorded %v", iv)
	}
	Span(nil, "ignored")()
}

func TestSlog(t *testing.T) {
	var buf bytes.Buffer
	p := Slog{Logger: slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))}
	p.AddMarker("Flush", "scene")
	p.RecordInterval("Render", time.Now(), time.Now())

	out := buf.String()
	if !strings.Contains(out, "name=Flush") || !strings.Contains(out, "label=Render") {
		t.Errorf("unexpected log output:\n%s", out)
	}
	Slog{}.AddMarker("silent", nil)
	Nop{}.AddMarker("x", nil)
}
