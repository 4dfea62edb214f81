// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderapi

import (
	"image"

	"github.com/gogpu/gputypes"
)

// Transaction is a batch of changes to one pipeline. It is built on one
// goroutine and must not be modified after SendTransaction.
type Transaction struct {
	pipeline PipelineID
	epoch    Epoch

	updateEpoch      bool
	displayList      *DisplayList
	clearColor       gputypes.Color
	clearDisplayList bool
	window           *image.Rectangle

	resources     []ResourceUpdate
	properties    []PropertyValue
	propertiesSet bool

	generateFrame  bool
	removePipeline bool

	handlers [numCheckpoints][]func()
}

// NewTransaction returns an empty transaction for pipeline.
func NewTransaction(pipeline PipelineID) *Transaction {
	return &Transaction{pipeline: pipeline}
}

// Pipeline returns the pipeline the transaction changes.
func (t *Transaction) Pipeline() PipelineID { return t.pipeline }

// Epoch returns the epoch set by SetDisplayList or ClearDisplayList.
func (t *Transaction) Epoch() Epoch { return t.epoch }

// SetDisplayList replaces the pipeline's display list at epoch.
func (t *Transaction) SetDisplayList(epoch Epoch, clear gputypes.Color, dl DisplayList) {
	t.epoch = epoch
	t.clearColor = clear
	t.displayList = &dl
	t.clearDisplayList = false
}

// ClearDisplayList empties the pipeline at epoch so the backend can free
// what it referenced.
func (t *Transaction) ClearDisplayList(epoch Epoch) {
	t.epoch = epoch
	t.displayList = nil
	t.clearDisplayList = true
}

// UpdateEpoch moves the pipeline to epoch without replacing its display
// list.
func (t *Transaction) UpdateEpoch(epoch Epoch) {
	t.epoch = epoch
	t.updateEpoch = true
}

// SetWindowParameters sets the area frames are rendered to.
func (t *Transaction) SetWindowParameters(r image.Rectangle) {
	t.window = &r
}

// UpdateResources appends resource updates.
func (t *Transaction) UpdateResources(updates ...ResourceUpdate) {
	t.resources = append(t.resources, updates...)
}

// UpdateDynamicProperties appends sampled property values. A transaction
// carrying dynamic properties replaces all previous values, so calling it
// with no values clears them.
func (t *Transaction) UpdateDynamicProperties(values ...PropertyValue) {
	t.properties = append(t.properties, values...)
	t.propertiesSet = true
}

// GenerateFrame asks the backend to render a frame once the transaction
// is applied.
func (t *Transaction) GenerateFrame() { t.generateFrame = true }

// RemovePipeline makes the backend forget the pipeline.
func (t *Transaction) RemovePipeline() { t.removePipeline = true }

// Notify registers fn to run when the transaction reaches cp. Handlers
// run on the API's goroutines and must not block.
func (t *Transaction) Notify(cp Checkpoint, fn func()) {
	if cp >= numCheckpoints || fn == nil {
		return
	}
	t.handlers[cp] = append(t.handlers[cp], fn)
}

// DisplayList returns the display list, or nil.
func (t *Transaction) DisplayList() *DisplayList { return t.displayList }

// ClearColor returns the clear color set with the display list.
func (t *Transaction) ClearColor() gputypes.Color { return t.clearColor }

// ClearsDisplayList reports whether ClearDisplayList was called.
func (t *Transaction) ClearsDisplayList() bool { return t.clearDisplayList }

// Window returns the window area, or nil.
func (t *Transaction) Window() *image.Rectangle { return t.window }

// Resources returns the resource updates.
func (t *Transaction) Resources() []ResourceUpdate { return t.resources }

// Properties returns the dynamic property values.
func (t *Transaction) Properties() []PropertyValue { return t.properties }

// UpdatesEpoch reports whether UpdateEpoch was called.
func (t *Transaction) UpdatesEpoch() bool { return t.updateEpoch }

// GeneratesFrame reports whether GenerateFrame was called.
func (t *Transaction) GeneratesFrame() bool { return t.generateFrame }

// RemovesPipeline reports whether RemovePipeline was called.
func (t *Transaction) RemovesPipeline() bool { return t.removePipeline }

// IsEmpty reports whether the transaction carries nothing to do.
func (t *Transaction) IsEmpty() bool {
	return t.displayList == nil && !t.clearDisplayList && !t.updateEpoch &&
		t.window == nil && len(t.resources) == 0 && !t.propertiesSet &&
		!t.generateFrame && !t.removePipeline
}

// Fire runs the handlers registered for cp. API implementations call it.
func (t *Transaction) Fire(cp Checkpoint) {
	if cp >= numCheckpoints {
		return
	}
	hs := t.handlers[cp]
	t.handlers[cp] = nil
	for _, fn := range hs {
		fn()
	}
}

// Handlers returns how many handlers are registered for cp.
func (t *Transaction) Handlers(cp Checkpoint) int {
	if cp >= numCheckpoints {
		return 0
	}
	return len(t.handlers[cp])
}
