// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package composite drives layer tree composites from "something changed"
// to pixels on screen.
//
// A [Manager] owns the root of a layer tree and a [render.Compositor]. Each
// transaction recomputes effective transforms and visible regions, diffs
// the tree against the previous frame to find what changed on screen, and
// renders only when something did:
//
//	mgr := composite.NewManager(sw)
//	if err := mgr.BeginTransaction(); err != nil {
//	    return err // backend not ready, try again later
//	}
//	if err := mgr.ApplyEdits(edits...); err != nil {
//	    return err // protocol violation, drop the peer
//	}
//	mgr.EndTransaction(0)
//
// Optional collaborators are injected with options: a platform [Widget]
// that may veto or decorate a frame, a [HardwareComposer] that takes
// layers off the GPU path, [ScreenEffects] applied to the whole screen, a
// [ScreenshotGrabber] and a profiler. [DebugOptions] enable the developer
// overlay.
package composite
