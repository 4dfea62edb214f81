// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package recording captures render.Compositor calls as typed commands.
//
// A Recorder implements render.Compositor. It forwards every call to an
// optional inner compositor and appends a command describing the call, so
// a composite can be inspected (debug dumps, tests asserting the exact
// draw parameters of a frame) and replayed later onto any other
// compositor.
//
// Render targets created through a Recorder are wrapped in *Target values
// that carry a stable TargetRef. Commands refer to targets by ref, which
// lets Playback map them onto targets of the replaying compositor.
//
// # Example
//
//	sw := render.NewSoftwareCompositor(800, 600)
//	rec := recording.NewRecorder(sw, sw.Screen().Rect)
//	mgr := composite.NewManager(rec)
//	// ... composite a frame ...
//	r := rec.FinishRecording()
//	fmt.Println(r.Count(recording.CmdDrawQuad), "quads")
//	r.Playback(otherCompositor)
package recording
