// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderapi

import (
	"fmt"
	"image"
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/compositor/geom"
)

// IdNamespace identifies the resource key space of one API client. A
// renderer restart hands out a new namespace, which makes keys minted
// before the restart stale.
type IdNamespace uint32

// PipelineID names one display list pipeline.
type PipelineID struct {
	Namespace IdNamespace
	Handle    uint32
}

func (p PipelineID) String() string {
	return fmt.Sprintf("pipeline(%d:%d)", p.Namespace, p.Handle)
}

// Epoch versions the display lists of a pipeline. Epochs only grow.
type Epoch uint32

// ImageKey names an image resource.
type ImageKey struct {
	Namespace IdNamespace
	Handle    uint32
}

// FontKey names a font resource.
type FontKey struct {
	Namespace IdNamespace
	Handle    uint32
}

// FontInstanceKey names a font at a given size.
type FontInstanceKey struct {
	Namespace IdNamespace
	Handle    uint32
}

// ImageDescriptor describes image pixel data.
type ImageDescriptor struct {
	Width, Height int
	Format        gputypes.TextureFormat
	Opaque        bool
}

// Size returns the image size in bytes for 4 byte pixels.
func (d ImageDescriptor) Size() int { return d.Width * d.Height * 4 }

// PropertyKind selects which value of a PropertyValue is used.
type PropertyKind uint8

const (
	PropertyOpacity PropertyKind = iota
	PropertyTransform
)

var propertyKindNames = [...]string{
	PropertyOpacity:   "Opacity",
	PropertyTransform: "Transform",
}

func (k PropertyKind) String() string {
	if int(k) < len(propertyKindNames) {
		return propertyKindNames[k]
	}
	return "Unknown"
}

// PropertyValue is a sampled animated property. Display items bound to
// ID use it instead of their static value.
type PropertyValue struct {
	ID        uint64
	Kind      PropertyKind
	Opacity   float32
	Transform geom.Matrix4x4
}

// Checkpoint is a point in the life of a transaction that handlers can be
// notified about.
type Checkpoint uint8

const (
	// CheckpointSceneBuilt fires once the scene builder has processed the
	// transaction.
	CheckpointSceneBuilt Checkpoint = iota

	// CheckpointFrameRendered fires once a frame including the
	// transaction has been rendered.
	CheckpointFrameRendered

	numCheckpoints
)

var checkpointNames = [...]string{
	CheckpointSceneBuilt:    "SceneBuilt",
	CheckpointFrameRendered: "FrameRendered",
}

func (c Checkpoint) String() string {
	if int(c) < len(checkpointNames) {
		return checkpointNames[c]
	}
	return "Unknown"
}

// Frame reports a rendered frame.
type Frame struct {
	// ID counts frames from 1.
	ID uint64
	// Epochs holds the epoch of every pipeline visible in the frame.
	Epochs map[PipelineID]Epoch
	// Start and End bracket rendering.
	Start, End time.Time
	// Bounds is the area drawn, empty without a compositor.
	Bounds image.Rectangle
}

// API is the capability the bridge drives. Implementations must process
// transactions in submission order.
type API interface {
	// Namespace returns the client's current namespace.
	Namespace() IdNamespace

	// SendTransaction queues txn. It never blocks on processing.
	SendTransaction(txn *Transaction)

	// FlushSceneBuilder waits until every transaction sent so far has
	// passed the scene builder.
	FlushSceneBuilder() error

	// WaitFlushed waits until every transaction sent so far has been
	// processed by the render backend.
	WaitFlushed() error

	// OnFrameRendered registers fn to be called, on a backend goroutine,
	// after every rendered frame. The returned function unregisters it.
	OnFrameRendered(fn func(Frame)) (cancel func())
}
