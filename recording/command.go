// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package recording

import (
	"fmt"
	"image"

	"github.com/gogpu/compositor/geom"
	"github.com/gogpu/compositor/render"
)

// CommandType identifies the type of a command.
// Each command type corresponds to one render.Compositor call.
type CommandType uint8

const (
	// Frame commands
	CmdBeginFrame CommandType = iota // Begin a frame
	CmdEndFrame                      // End a frame

	// Target commands
	CmdCreateTarget           // Create an offscreen target
	CmdCreateTargetFromSource // Create a target from existing pixels
	CmdReleaseTarget          // Release a target
	CmdSetTarget              // Bind a target

	// Drawing commands
	CmdDrawQuad  // Draw a quad
	CmdClearRect // Clear a rectangle
)

// commandTypeNames maps CommandType values to their string representation.
var commandTypeNames = [...]string{
	CmdBeginFrame:             "BeginFrame",
	CmdEndFrame:               "EndFrame",
	CmdCreateTarget:           "CreateTarget",
	CmdCreateTargetFromSource: "CreateTargetFromSource",
	CmdReleaseTarget:          "ReleaseTarget",
	CmdSetTarget:              "SetTarget",
	CmdDrawQuad:               "DrawQuad",
	CmdClearRect:              "ClearRect",
}

// String returns the string representation of a CommandType.
func (c CommandType) String() string {
	if int(c) < len(commandTypeNames) {
		return commandTypeNames[c]
	}
	return "Unknown"
}

// Command is the interface implemented by all command types.
type Command interface {
	// Type returns the CommandType for this command.
	Type() CommandType
}

// TargetRef identifies a target within a recording.
type TargetRef uint32

// InvalidRef is the sentinel value for an invalid reference.
const InvalidRef = TargetRef(^uint32(0))

// IsValid returns true if the reference points to a target.
func (r TargetRef) IsValid() bool {
	return r != InvalidRef
}

// --------------------------------------------------------------------------
// Frame Commands
// --------------------------------------------------------------------------

// BeginFrameCommand records a BeginFrame call and its result.
type BeginFrameCommand struct {
	Invalid geom.Region
	Clip    *image.Rectangle
	Bounds  image.Rectangle
	Opaque  geom.Region

	// Actual is the rectangle the compositor returned.
	Actual image.Rectangle

	// Screen is the ref of the target bound by BeginFrame.
	Screen TargetRef
}

// Type implements Command.
func (BeginFrameCommand) Type() CommandType { return CmdBeginFrame }

// EndFrameCommand records an EndFrame call.
type EndFrameCommand struct{}

// Type implements Command.
func (EndFrameCommand) Type() CommandType { return CmdEndFrame }

// --------------------------------------------------------------------------
// Target Commands
// --------------------------------------------------------------------------

// CreateTargetCommand records CreateRenderTarget.
type CreateTargetCommand struct {
	Ref  TargetRef
	Rect image.Rectangle
	Init render.InitMode
}

// Type implements Command.
func (CreateTargetCommand) Type() CommandType { return CmdCreateTarget }

// CreateTargetFromSourceCommand records CreateRenderTargetFromSource.
type CreateTargetFromSourceCommand struct {
	Ref    TargetRef
	Rect   image.Rectangle
	Source TargetRef
	Offset image.Point
}

// Type implements Command.
func (CreateTargetFromSourceCommand) Type() CommandType { return CmdCreateTargetFromSource }

// ReleaseTargetCommand records ReleaseRenderTarget.
type ReleaseTargetCommand struct {
	Ref TargetRef
}

// Type implements Command.
func (ReleaseTargetCommand) Type() CommandType { return CmdReleaseTarget }

// SetTargetCommand records SetRenderTarget.
type SetTargetCommand struct {
	Ref TargetRef
}

// Type implements Command.
func (SetTargetCommand) Type() CommandType { return CmdSetTarget }

// --------------------------------------------------------------------------
// Drawing Commands
// --------------------------------------------------------------------------

// DrawQuadCommand records DrawQuad. Target is the ref of the target that
// was current when the quad was drawn.
type DrawQuadCommand struct {
	Target    TargetRef
	Rect      geom.Rect
	Clip      image.Rectangle
	Effects   render.EffectChain
	Opacity   float32
	Transform geom.Matrix4x4
}

// Type implements Command.
func (DrawQuadCommand) Type() CommandType { return CmdDrawQuad }

// Source returns the ref of the sampled target, or InvalidRef when the
// primary effect is not a recorded render target.
func (c DrawQuadCommand) Source() TargetRef {
	if e, ok := c.Effects.Primary.(render.RenderTargetEffect); ok {
		if t, ok := e.Target.(*Target); ok {
			return t.ref
		}
	}
	return InvalidRef
}

// String formats the command for debug dumps.
func (c DrawQuadCommand) String() string {
	kind := "none"
	if c.Effects.Primary != nil {
		kind = c.Effects.Primary.Kind().String()
	}
	return fmt.Sprintf("DrawQuad target=%d rect=%v clip=%v effect=%s blend=%s opacity=%.3g",
		c.Target, c.Rect, c.Clip, kind, c.Effects.Blend, c.Opacity)
}

// ClearRectCommand records ClearRect.
type ClearRectCommand struct {
	Target TargetRef
	Rect   image.Rectangle
}

// Type implements Command.
func (ClearRectCommand) Type() CommandType { return CmdClearRect }
