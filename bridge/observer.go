// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package bridge

import (
	"time"

	"github.com/gogpu/compositor/layers"
	"github.com/gogpu/compositor/profiler"
	"github.com/gogpu/compositor/renderapi"
)

// LayersObserverEpoch is the content's count of layer updates. The
// content learns that an update landed when the epoch it sent is
// reported back.
type LayersObserverEpoch uint32

// ScrollData is the scroll and hit-test information sent with a display
// list.
type ScrollData struct {
	Metadata []layers.ScrollMetadata
}

// FocusTarget names the scroll frame keyboard scrolling applies to.
type FocusTarget struct {
	Sequence uint64
	ScrollID uint64
}

// ScrollUpdate moves a scroll frame without a new display list.
type ScrollUpdate struct {
	ScrollID   uint64
	X, Y       float64
	Generation uint32
}

// Observer is the upstream coordinator of a bridge. Methods run with the
// bridge lock held and must not call back into the bridge.
type Observer interface {
	// UpdateHitTestTree receives scroll data before the display list it
	// belongs to is sent, so hit testing sees it no later than the scene.
	UpdateHitTestTree(p renderapi.PipelineID, data ScrollData)

	// ApplyAsyncScroll receives focus and scroll offset updates of an
	// empty transaction.
	ApplyAsyncScroll(p renderapi.PipelineID, focus FocusTarget, updates []ScrollUpdate)

	// ObserverEpochReached reports that the layer update with epoch e is
	// live.
	ObserverEpochReached(p renderapi.PipelineID, e LayersObserverEpoch)

	// DidComposite reports that every transaction up to id is on screen.
	DidComposite(p renderapi.PipelineID, id TransactionID, start, end time.Time)
}

// NopObserver ignores every notification.
type NopObserver struct{}

func (NopObserver) UpdateHitTestTree(renderapi.PipelineID, ScrollData) {}
func (NopObserver) ApplyAsyncScroll(renderapi.PipelineID, FocusTarget, []ScrollUpdate) {
}
func (NopObserver) ObserverEpochReached(renderapi.PipelineID, LayersObserverEpoch) {}
func (NopObserver) DidComposite(renderapi.PipelineID, TransactionID, time.Time, time.Time) {
}

// Telemetry records paint latencies.
type Telemetry interface {
	// RecordFullPaint covers a display list from transaction start until
	// its scene was built.
	RecordFullPaint(p renderapi.PipelineID, start, end time.Time)

	// RecordContentFrame covers a transaction from its refresh until the
	// composite that showed it ended.
	RecordContentFrame(p renderapi.PipelineID, txn PendingTransaction, end time.Time)
}

// ProfilerTelemetry records telemetry as profiler intervals labelled
// "FullPaint" and "ContentFrame".
type ProfilerTelemetry struct {
	Profiler profiler.Profiler
}

// RecordFullPaint implements Telemetry.
func (t ProfilerTelemetry) RecordFullPaint(_ renderapi.PipelineID, start, end time.Time) {
	if t.Profiler != nil {
		t.Profiler.RecordInterval("FullPaint", start, end)
	}
}

// RecordContentFrame implements Telemetry.
func (t ProfilerTelemetry) RecordContentFrame(_ renderapi.PipelineID, txn PendingTransaction, end time.Time) {
	if t.Profiler == nil || !txn.UseForTelemetry {
		return
	}
	start := txn.RefreshStart
	if start.IsZero() {
		start = txn.TxnStart
	}
	if start.IsZero() {
		return
	}
	t.Profiler.RecordInterval("ContentFrame", start, end)
}
