// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package bridge

import (
	"errors"
	"image"
	"maps"
	"math"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/gogpu/gputypes"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/gogpu/compositor/profiler"
	"github.com/gogpu/compositor/render"
	"github.com/gogpu/compositor/renderapi"
)

// fakeAPI processes transactions only when asked, which lets tests decide
// when scenes are built and frames rendered.
type fakeAPI struct {
	mu        sync.Mutex
	ns        renderapi.IdNamespace
	sent      []*renderapi.Transaction
	processed int
	epochs    map[renderapi.PipelineID]renderapi.Epoch
	waiting   []*renderapi.Transaction
	observers map[int]func(renderapi.Frame)
	nextObs   int
	frames    uint64
	frameTime time.Time
	lost      bool
	log       []string
}

var _ renderapi.API = (*fakeAPI)(nil)

func newFakeAPI(ns renderapi.IdNamespace) *fakeAPI {
	return &fakeAPI{
		ns:        ns,
		epochs:    make(map[renderapi.PipelineID]renderapi.Epoch),
		observers: make(map[int]func(renderapi.Frame)),
		frameTime: t0.Add(2 * time.Second),
	}
}

func (a *fakeAPI) Namespace() renderapi.IdNamespace { return a.ns }

func (a *fakeAPI) SendTransaction(txn *renderapi.Transaction) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.lost {
		return
	}
	a.sent = append(a.sent, txn)
	a.log = append(a.log, "send")
}

func (a *fakeAPI) FlushSceneBuilder() error {
	if a.isLost() {
		return renderapi.ErrDisconnected
	}
	a.process()
	return nil
}

func (a *fakeAPI) WaitFlushed() error { return a.FlushSceneBuilder() }

func (a *fakeAPI) OnFrameRendered(fn func(renderapi.Frame)) func() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nextObs++
	id := a.nextObs
	a.observers[id] = fn
	return func() {
		a.mu.Lock()
		delete(a.observers, id)
		a.mu.Unlock()
	}
}

func (a *fakeAPI) isLost() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lost
}

func (a *fakeAPI) setLost() {
	a.mu.Lock()
	a.lost = true
	a.mu.Unlock()
}

func (a *fakeAPI) note(s string) {
	a.mu.Lock()
	a.log = append(a.log, s)
	a.mu.Unlock()
}

func (a *fakeAPI) events() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.log)
}

func (a *fakeAPI) txns() []*renderapi.Transaction {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.sent)
}

func (a *fakeAPI) last(t *testing.T) *renderapi.Transaction {
	t.Helper()
	txns := a.txns()
	if len(txns) == 0 {
		t.Fatal("no transaction sent")
	}
	return txns[len(txns)-1]
}

// process builds and applies everything sent so far, rendering a frame
// for each transaction that asks for one.
func (a *fakeAPI) process() {
	for {
		a.mu.Lock()
		if a.lost || a.processed == len(a.sent) {
			a.mu.Unlock()
			return
		}
		txn := a.sent[a.processed]
		a.processed++
		a.mu.Unlock()

		txn.Fire(renderapi.CheckpointSceneBuilt)

		a.mu.Lock()
		p := txn.Pipeline()
		if txn.DisplayList() != nil || txn.ClearsDisplayList() || txn.UpdatesEpoch() {
			a.epochs[p] = txn.Epoch()
		}
		if txn.RemovesPipeline() {
			delete(a.epochs, p)
		}
		if txn.Handlers(renderapi.CheckpointFrameRendered) > 0 {
			a.waiting = append(a.waiting, txn)
		}
		a.mu.Unlock()
		if txn.GeneratesFrame() {
			a.render(a.snapshot())
		}
	}
}

func (a *fakeAPI) snapshot() map[renderapi.PipelineID]renderapi.Epoch {
	a.mu.Lock()
	defer a.mu.Unlock()
	return maps.Clone(a.epochs)
}

func (a *fakeAPI) render(epochs map[renderapi.PipelineID]renderapi.Epoch) {
	a.mu.Lock()
	a.frames++
	f := renderapi.Frame{ID: a.frames, Epochs: epochs, Start: a.frameTime, End: a.frameTime}
	observers := slices.Collect(maps.Values(a.observers))
	waiting := a.waiting
	a.waiting = nil
	a.mu.Unlock()
	for _, fn := range observers {
		fn(f)
	}
	for _, txn := range waiting {
		txn.Fire(renderapi.CheckpointFrameRendered)
	}
}

// deliver reports a frame showing p at epoch without processing anything.
func (a *fakeAPI) deliver(p renderapi.PipelineID, epoch renderapi.Epoch) {
	a.render(map[renderapi.PipelineID]renderapi.Epoch{p: epoch})
}

type recObserver struct {
	mu         sync.Mutex
	api        *fakeAPI
	hitTests   int
	scrolls    []ScrollUpdate
	epochs     []LayersObserverEpoch
	composites []TransactionID
}

func (o *recObserver) UpdateHitTestTree(renderapi.PipelineID, ScrollData) {
	o.mu.Lock()
	o.hitTests++
	o.mu.Unlock()
	if o.api != nil {
		o.api.note("hittest")
	}
}

func (o *recObserver) ApplyAsyncScroll(_ renderapi.PipelineID, _ FocusTarget, updates []ScrollUpdate) {
	o.mu.Lock()
	o.scrolls = append(o.scrolls, updates...)
	o.mu.Unlock()
}

func (o *recObserver) ObserverEpochReached(_ renderapi.PipelineID, e LayersObserverEpoch) {
	o.mu.Lock()
	o.epochs = append(o.epochs, e)
	o.mu.Unlock()
}

func (o *recObserver) DidComposite(_ renderapi.PipelineID, id TransactionID, _, _ time.Time) {
	o.mu.Lock()
	o.composites = append(o.composites, id)
	o.mu.Unlock()
}

func (o *recObserver) composited() []TransactionID {
	o.mu.Lock()
	defer o.mu.Unlock()
	return slices.Clone(o.composites)
}

func (o *recObserver) reached() []LayersObserverEpoch {
	o.mu.Lock()
	defer o.mu.Unlock()
	return slices.Clone(o.epochs)
}

type bogusCommand struct{}

func (bogusCommand) command() {}

var rootPipeline = renderapi.PipelineID{Namespace: 1, Handle: 1}

func newRoot(t *testing.T, api *fakeAPI, opts ...Option) (*Bridge, *ManualScheduler, *recObserver) {
	t.Helper()
	sched := NewManualScheduler()
	obs := &recObserver{api: api}
	base := []Option{
		WithScheduler(sched),
		WithObserver(obs),
		WithClock(func() time.Time { return t0 }),
	}
	b := New(api, rootPipeline, append(base, opts...)...)
	t.Cleanup(func() { b.Destroy(AbnormalShutdown) })
	return b, sched, obs
}

func rects() renderapi.DisplayList {
	return renderapi.EncodeDisplayList([]renderapi.DisplayItem{{
		Kind:   renderapi.ItemRect,
		Bounds: image.Rect(0, 0, 4, 4),
		Color:  gputypes.Color{R: 1, A: 1},
	}})
}

func imageKey(ns renderapi.IdNamespace, h uint32) renderapi.ImageKey {
	return renderapi.ImageKey{Namespace: ns, Handle: h}
}

var onePixel = renderapi.ImageDescriptor{Width: 1, Height: 1, Format: gputypes.TextureFormatRGBA8Unorm}

func TestBridgeSetDisplayList(t *testing.T) {
	api := newFakeAPI(1)
	b, sched, obs := newRoot(t, api)
	viewport := image.Rect(0, 0, 32, 32)

	err := b.SetDisplayList(SceneUpdate{ID: 1, Namespace: 1, ObserverEpoch: 7, DisplayList: rects(), Viewport: viewport})
	if err != nil {
		t.Fatalf("SetDisplayList() error = %v", err)
	}
	if got := b.Epoch(); got != 1 {
		t.Errorf("Epoch() = %d, want 1", got)
	}
	txn := api.last(t)
	if txn.DisplayList() == nil || txn.Epoch() != 1 {
		t.Errorf("transaction = epoch %d, list %v; want epoch 1 with a list", txn.Epoch(), txn.DisplayList())
	}
	if w := txn.Window(); w == nil || *w != viewport {
		t.Errorf("Window() = %v, want %v", w, viewport)
	}
	if got, want := api.events(), []string{"hittest", "send"}; !slices.Equal(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
	if got := b.PendingTransactions(); got != 1 {
		t.Errorf("PendingTransactions() = %d, want 1", got)
	}

	api.process()
	if got := obs.reached(); !slices.Equal(got, []LayersObserverEpoch{7}) {
		t.Errorf("observer epochs = %v, want [7]", got)
	}
	if !sched.Pending() {
		t.Fatal("scene build did not schedule a frame")
	}
	if len(obs.composited()) != 0 {
		t.Error("DidComposite before a frame was rendered")
	}

	sched.Fire(t0)
	if got := b.FramesGenerated(); got != 1 {
		t.Errorf("FramesGenerated() = %d, want 1", got)
	}
	if !api.last(t).GeneratesFrame() {
		t.Error("frame transaction does not generate a frame")
	}
	api.process()
	if got := obs.composited(); !slices.Equal(got, []TransactionID{1}) {
		t.Errorf("composites = %v, want [1]", got)
	}
	if got := b.PendingTransactions(); got != 0 {
		t.Errorf("PendingTransactions() = %d, want 0", got)
	}
	if got := b.LastRenderedEpoch(); got != 1 {
		t.Errorf("LastRenderedEpoch() = %d, want 1", got)
	}
}

func TestBridgeStaleNamespaceDisplayList(t *testing.T) {
	api := newFakeAPI(1)
	b, sched, obs := newRoot(t, api)

	err := b.SetDisplayList(SceneUpdate{
		ID:            4,
		Namespace:     9,
		ObserverEpoch: 2,
		DisplayList:   rects(),
		Resources:     []ResourceOp{AddImage{Key: imageKey(9, 1), Descriptor: onePixel, Data: make([]byte, 4)}},
	})
	if err != nil {
		t.Fatalf("SetDisplayList() error = %v", err)
	}
	if n := len(api.txns()); n != 0 {
		t.Errorf("sent %d transactions, want 0", n)
	}
	if obs.hitTests != 1 {
		t.Errorf("hit test updates = %d, want 1", obs.hitTests)
	}
	if got := obs.composited(); !slices.Equal(got, []TransactionID{4}) {
		t.Errorf("composites = %v, want [4]", got)
	}
	if got := obs.reached(); !slices.Equal(got, []LayersObserverEpoch{2}) {
		t.Errorf("observer epochs = %v, want [2]", got)
	}
	if got := b.Epoch(); got != 1 {
		t.Errorf("Epoch() = %d, want 1", got)
	}
	if b.Images() != 0 || b.PendingTransactions() != 0 || sched.Pending() {
		t.Errorf("stale update left state: images %d, pending %d, scheduled %v",
			b.Images(), b.PendingTransactions(), sched.Pending())
	}
}

func TestBridgeResources(t *testing.T) {
	api := newFakeAPI(1)
	b, _, _ := newRoot(t, api)
	img := imageKey(1, 1)
	font := renderapi.FontKey{Namespace: 1, Handle: 1}
	inst := renderapi.FontInstanceKey{Namespace: 1, Handle: 1}

	err := b.UpdateResources([]ResourceOp{
		AddImage{Key: img, Descriptor: onePixel, Data: make([]byte, 4)},
		AddFont{Key: font, Data: goregular.TTF},
		AddFontInstance{Key: inst, Font: font, Size: 12},
	})
	if err != nil {
		t.Fatalf("UpdateResources() error = %v", err)
	}
	if got := b.Images(); got != 1 {
		t.Errorf("Images() = %d, want 1", got)
	}
	if f, i := b.Fonts(); f != 1 || i != 1 {
		t.Errorf("Fonts() = %d, %d, want 1, 1", f, i)
	}
	if n := len(api.last(t).Resources()); n != 3 {
		t.Errorf("sent %d resource updates, want 3", n)
	}
	if got := b.Epoch(); got != 0 {
		t.Errorf("Epoch() = %d, want 0 without releases", got)
	}

	tests := []struct {
		name    string
		ops     []ResourceOp
		wantErr bool
	}{
		{"update image", []ResourceOp{UpdateImage{Key: img, Descriptor: onePixel, Data: make([]byte, 4)}}, false},
		{"delete unknown image", []ResourceOp{DeleteImage{Key: imageKey(1, 50)}}, false},
		{"stale namespace", []ResourceOp{AddImage{Key: imageKey(8, 2), Descriptor: onePixel, Data: make([]byte, 4)}}, false},
		{"update unknown image", []ResourceOp{UpdateImage{Key: imageKey(1, 50), Descriptor: onePixel}}, true},
		{"kind mismatch aborts batch", []ResourceOp{
			AddImage{Key: imageKey(1, 2), Descriptor: onePixel, Data: make([]byte, 4)},
			UpdateBlobImage{Key: img, Descriptor: onePixel, Commands: rects()},
		}, true},
		{"instance of unknown font", []ResourceOp{AddFontInstance{
			Key: renderapi.FontInstanceKey{Namespace: 1, Handle: 2}, Font: renderapi.FontKey{Namespace: 1, Handle: 9},
		}}, true},
		{"unparsable font", []ResourceOp{AddFont{Key: renderapi.FontKey{Namespace: 1, Handle: 2}, Data: []byte("nope")}}, true},
		{"nil op", []ResourceOp{nil}, true},
		{"shared surface without external images", []ResourceOp{AddSharedSurface{Key: imageKey(1, 3), Surface: 1}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := b.UpdateResources(tt.ops)
			if (err != nil) != tt.wantErr {
				t.Fatalf("UpdateResources() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrProtocol) {
				t.Errorf("UpdateResources() error = %v, want ErrProtocol", err)
			}
			if got := b.Images(); got != 1 {
				t.Errorf("Images() = %d, want 1", got)
			}
		})
	}
	if got := b.StaleResourceOps(); got != 1 {
		t.Errorf("StaleResourceOps() = %d, want 1", got)
	}

	if err := b.UpdateResources([]ResourceOp{DeleteFontInstance{Key: inst}, DeleteFont{Key: font}, DeleteImage{Key: img}}); err != nil {
		t.Fatalf("UpdateResources(deletes) error = %v", err)
	}
	if f, i := b.Fonts(); f != 0 || i != 0 || b.Images() != 0 {
		t.Errorf("after deletes: images %d, fonts %d, instances %d; want none", b.Images(), f, i)
	}
}

func TestBridgeSharedSurfaceRelease(t *testing.T) {
	reg := NewRegistry()
	red := []byte{255, 0, 0, 255, 255, 0, 0, 255, 255, 0, 0, 255, 255, 0, 0, 255}
	blue := []byte{0, 0, 255, 255, 0, 0, 255, 255, 0, 0, 255, 255, 0, 0, 255, 255}
	reg.AddSurface(1, SharedSurface{Size: image.Pt(2, 2), Stride: 8, Data: red})
	reg.AddSurface(2, SharedSurface{Size: image.Pt(3, 1), Stride: 12, Data: make([]byte, 12)})
	reg.AddSurface(3, SharedSurface{Size: image.Pt(2, 2), Stride: 8, Data: blue})
	reg.AddSurface(4, SharedSurface{Size: image.Pt(2, 2), Stride: 8, Data: make([]byte, 3)})
	reg.AddSurface(5, SharedSurface{Size: image.Pt(math.MaxInt/2, 1), Stride: math.MaxInt, Data: make([]byte, 16)})

	api := newFakeAPI(1)
	b, _, _ := newRoot(t, api, WithExternalImages(reg))
	key := imageKey(1, 1)

	if err := b.UpdateResources([]ResourceOp{AddSharedSurface{Key: key, Surface: 1}}); err != nil {
		t.Fatalf("AddSharedSurface error = %v", err)
	}
	added, ok := api.last(t).Resources()[0].(renderapi.AddExternalImage)
	if !ok {
		t.Fatalf("resource update = %v, want AddExternalImage", api.last(t).Resources()[0])
	}
	tex := added.Texture.(*render.Texture)

	// Same size: uploaded in place.
	if err := b.UpdateResources([]ResourceOp{UpdateSharedSurface{Key: key, Surface: 3}}); err != nil {
		t.Fatalf("UpdateSharedSurface(same size) error = %v", err)
	}
	if got := tex.Image().Pix[2]; got != 255 {
		t.Errorf("texture blue = %d after in-place update, want 255", got)
	}
	if b.PendingReleases() != 0 || b.Epoch() != 0 {
		t.Errorf("in-place update: releases %d, epoch %d; want 0, 0", b.PendingReleases(), b.Epoch())
	}

	// New size: replaced, old texture freed once the new epoch renders.
	if err := b.UpdateResources([]ResourceOp{UpdateSharedSurface{Key: key, Surface: 2}}); err != nil {
		t.Fatalf("UpdateSharedSurface(resize) error = %v", err)
	}
	if got := b.Epoch(); got != 1 {
		t.Fatalf("Epoch() = %d, want 1", got)
	}
	if !api.last(t).UpdatesEpoch() {
		t.Error("resize transaction does not move the epoch")
	}
	api.deliver(rootPipeline, 0)
	if got := b.PendingReleases(); got != 1 {
		t.Errorf("PendingReleases() after older epoch = %d, want 1", got)
	}
	if err := tex.UpdateData(make([]byte, 16)); err != nil {
		t.Errorf("old texture released early: %v", err)
	}
	api.deliver(rootPipeline, 1)
	if got := b.PendingReleases(); got != 0 {
		t.Errorf("PendingReleases() = %d, want 0", got)
	}
	if err := tex.UpdateData(make([]byte, 16)); !errors.Is(err, render.ErrTextureDestroyed) {
		t.Errorf("old texture UpdateData() error = %v, want ErrTextureDestroyed", err)
	}

	for _, id := range []SurfaceID{99, 4, 5} {
		err := b.UpdateResources([]ResourceOp{AddSharedSurface{Key: imageKey(1, 2), Surface: id}})
		if !errors.Is(err, ErrProtocol) {
			t.Errorf("AddSharedSurface(%d) error = %v, want ErrProtocol", id, err)
		}
	}
}

func TestBridgeTextureHostRelease(t *testing.T) {
	reg := NewRegistry()
	tex, err := render.NewTexture(1, 1, make([]byte, 4))
	if err != nil {
		t.Fatal(err)
	}
	reg.AddTextureHost(7, tex)
	reg.AddTextureHost(8, tex)

	api := newFakeAPI(1)
	b, _, _ := newRoot(t, api, WithExternalImages(reg))
	key := imageKey(1, 1)

	if err := b.UpdateResources([]ResourceOp{AddTextureHost{Key: key, Host: 7}}); err != nil {
		t.Fatalf("AddTextureHost error = %v", err)
	}
	if got := reg.Refs(7); got != 1 {
		t.Errorf("Refs(7) = %d, want 1", got)
	}

	// A missing host aborts the batch and returns the references it took.
	err = b.UpdateResources([]ResourceOp{
		AddTextureHost{Key: imageKey(1, 2), Host: 8},
		AddTextureHost{Key: imageKey(1, 3), Host: 99},
	})
	if !errors.Is(err, ErrProtocol) {
		t.Fatalf("missing host error = %v, want ErrProtocol", err)
	}
	if got := reg.Refs(8); got != 0 {
		t.Errorf("Refs(8) = %d after aborted batch, want 0", got)
	}
	if got := b.Images(); got != 1 {
		t.Errorf("Images() = %d, want 1", got)
	}

	if err := b.UpdateResources([]ResourceOp{DeleteImage{Key: key}}); err != nil {
		t.Fatalf("DeleteImage error = %v", err)
	}
	if got := reg.Refs(7); got != 1 {
		t.Errorf("Refs(7) = %d before the epoch rendered, want 1", got)
	}
	api.deliver(rootPipeline, b.Epoch())
	if got := reg.Refs(7); got != 0 {
		t.Errorf("Refs(7) = %d after the epoch rendered, want 0", got)
	}
}

// releaseWatcher records how many transactions the backend had processed
// when a texture host reference was dropped.
type releaseWatcher struct {
	*Registry
	api       *fakeAPI
	processed []int
}

func (w *releaseWatcher) ReleaseTextureHost(id TextureHostID) {
	w.api.mu.Lock()
	w.processed = append(w.processed, w.api.processed)
	w.api.mu.Unlock()
	w.Registry.ReleaseTextureHost(id)
}

func TestBridgeDestroyAfterClearWaitsForBackend(t *testing.T) {
	reg := NewRegistry()
	tex, err := render.NewTexture(1, 1, make([]byte, 4))
	if err != nil {
		t.Fatal(err)
	}
	reg.AddTextureHost(7, tex)

	api := newFakeAPI(1)
	watch := &releaseWatcher{Registry: reg, api: api}
	b, _, _ := newRoot(t, api, WithExternalImages(watch))
	if err := b.UpdateResources([]ResourceOp{AddTextureHost{Key: imageKey(1, 1), Host: 7}}); err != nil {
		t.Fatal(err)
	}

	b.ClearResources()
	if got := reg.Refs(7); got != 1 {
		t.Fatalf("Refs(7) after ClearResources = %d, want 1", got)
	}
	if got := b.PendingReleases(); got != 1 {
		t.Fatalf("PendingReleases() = %d, want 1", got)
	}

	b.Destroy(NormalShutdown)
	sent := len(api.txns())
	if len(watch.processed) != 1 {
		t.Fatalf("releases = %d, want 1", len(watch.processed))
	}
	if got := watch.processed[0]; got != sent {
		t.Errorf("released after %d of %d transactions were processed, want all", got, sent)
	}
	if got := reg.Refs(7); got != 0 {
		t.Errorf("Refs(7) after Destroy = %d, want 0", got)
	}
}

func TestBridgeCommandValidation(t *testing.T) {
	tests := []struct {
		name string
		cmds []Command
	}{
		{"foreign animation", []Command{AddAnimations{Animations: []Animation{fade(AnimationID(4, 1), 1)}}}},
		{"valid then foreign", []Command{
			AddAnimations{Animations: []Animation{fade(AnimationID(3, 1), 1)}},
			AddAnimations{Animations: []Animation{fade(AnimationID(4, 1), 1)}},
		}},
		{"unknown command", []Command{bogusCommand{}}},
		{"nil command", []Command{nil}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI(1)
			b, _, _ := newRoot(t, api, WithProcessID(3))
			err := b.EmptyTransaction(EmptyUpdate{ID: 1, Commands: tt.cmds})
			if !errors.Is(err, ErrProtocol) {
				t.Fatalf("EmptyTransaction() error = %v, want ErrProtocol", err)
			}
			if b.ActiveAnimations() != 0 || b.Epoch() != 0 || b.PendingTransactions() != 0 {
				t.Errorf("rejected transaction left state: animations %d, epoch %d, pending %d",
					b.ActiveAnimations(), b.Epoch(), b.PendingTransactions())
			}
			if n := len(api.txns()); n != 0 {
				t.Errorf("sent %d transactions, want 0", n)
			}
		})
	}
}

func opacityOf(t *testing.T, txn *renderapi.Transaction, id uint64) float32 {
	t.Helper()
	for _, v := range txn.Properties() {
		if v.ID == id {
			return v.Opacity
		}
	}
	t.Fatalf("no property value for %#x in %+v", id, txn.Properties())
	return 0
}

func TestBridgeAnimationTestTime(t *testing.T) {
	api := newFakeAPI(1)
	b, sched, _ := newRoot(t, api, WithProcessID(3), WithTestingTime(t0))
	id := AnimationID(3, 1)

	if err := b.EmptyTransaction(EmptyUpdate{ID: 1, Commands: []Command{AddAnimations{Animations: []Animation{fade(id, 1)}}}}); err != nil {
		t.Fatalf("EmptyTransaction() error = %v", err)
	}
	if got := b.Epoch(); got != 1 {
		t.Errorf("Epoch() = %d, want 1", got)
	}
	if got := b.ActiveAnimations(); got != 1 {
		t.Errorf("ActiveAnimations() = %d, want 1", got)
	}

	steps := []struct {
		at          time.Duration
		want        float32
		wantRunning bool
	}{
		{0, 0, true},
		{250 * time.Millisecond, 0.25, true},
		{2 * time.Second, 1, false},
	}
	for _, s := range steps {
		b.SetTestSampleTime(t0.Add(s.at))
		b.ScheduleGenerateFrame()
		// The wall clock passed to the handler is ignored in test mode.
		if !sched.Fire(time.Unix(0, 0)) {
			t.Fatal("no frame scheduled")
		}
		if got := opacityOf(t, api.last(t), id); got != s.want {
			t.Errorf("opacity at %v = %v, want %v", s.at, got, s.want)
		}
		if sched.Pending() != s.wantRunning {
			t.Errorf("rescheduled at %v = %v, want %v", s.at, sched.Pending(), s.wantRunning)
		}
		sched.Cancel()
	}
}

func TestBridgeAnimationResetsPreviousFrameTime(t *testing.T) {
	api := newFakeAPI(1)
	b, sched, _ := newRoot(t, api, WithProcessID(3))
	first, second := AnimationID(3, 1), AnimationID(3, 2)
	unstarted := func(id uint64) Animation {
		a := fade(id, 1)
		a.Start = time.Time{}
		return a
	}

	if err := b.EmptyTransaction(EmptyUpdate{ID: 1, Commands: []Command{AddAnimations{Animations: []Animation{unstarted(first)}}}}); err != nil {
		t.Fatal(err)
	}
	sched.Fire(t0)
	if got := opacityOf(t, api.last(t), first); got != 0 {
		t.Errorf("first frame opacity = %v, want 0", got)
	}
	sched.Fire(t0.Add(500 * time.Millisecond))
	if got := opacityOf(t, api.last(t), first); got != 0.5 {
		t.Errorf("opacity = %v, want 0.5", got)
	}
	sched.Fire(t0.Add(2 * time.Second))
	if sched.Pending() {
		t.Fatal("finished animation rescheduled a frame")
	}

	// A later animation starts at its first frame, not at the last frame
	// the finished one ran in.
	if err := b.EmptyTransaction(EmptyUpdate{ID: 2, Commands: []Command{AddAnimations{Animations: []Animation{unstarted(second)}}}}); err != nil {
		t.Fatal(err)
	}
	sched.Fire(t0.Add(10 * time.Second))
	if got := opacityOf(t, api.last(t), second); got != 0 {
		t.Errorf("new animation opacity = %v, want 0", got)
	}
}

func TestBridgeAnimationDeleteDeferred(t *testing.T) {
	api := newFakeAPI(1)
	b, _, _ := newRoot(t, api, WithProcessID(3))
	id := AnimationID(3, 1)
	add := func(txn TransactionID) {
		t.Helper()
		err := b.EmptyTransaction(EmptyUpdate{ID: txn, Commands: []Command{AddAnimations{Animations: []Animation{fade(id, 1)}}}})
		if err != nil {
			t.Fatal(err)
		}
	}

	add(1)
	b.DeleteAnimations(id)
	if got := b.PendingAnimationDeletes(); got != 1 {
		t.Errorf("PendingAnimationDeletes() = %d, want 1", got)
	}
	api.deliver(rootPipeline, 0)
	if got := b.ActiveAnimations(); got != 1 {
		t.Errorf("ActiveAnimations() before the epoch rendered = %d, want 1", got)
	}
	api.deliver(rootPipeline, 1)
	if b.ActiveAnimations() != 0 || b.PendingAnimationDeletes() != 0 || b.anims.len() != 0 {
		t.Errorf("after the epoch rendered: active %d, deletes %d, stored %d; want none",
			b.ActiveAnimations(), b.PendingAnimationDeletes(), b.anims.len())
	}

	// A delete queued before the animation was added again is stale.
	add(2)
	b.DeleteAnimations(id)
	add(3)
	api.deliver(rootPipeline, 3)
	if got := b.ActiveAnimations(); got != 1 {
		t.Errorf("ActiveAnimations() after stale delete = %d, want 1", got)
	}
	if got := b.anims.len(); got != 1 {
		t.Errorf("stored animations = %d, want 1", got)
	}
}

func TestBridgeEmptyTransactionDidComposite(t *testing.T) {
	tests := []struct {
		name          string
		inFlight      bool
		update        EmptyUpdate
		wantComposite []TransactionID
		wantScheduled bool
		wantPending   int
	}{
		{
			name:          "nothing to composite",
			update:        EmptyUpdate{ID: 2, ObserverEpoch: 1},
			wantComposite: []TransactionID{2},
		},
		{
			name:          "scroll schedules a composite",
			update:        EmptyUpdate{ID: 2, ScrollUpdates: []ScrollUpdate{{ScrollID: 1, Y: 10}}},
			wantScheduled: true,
			wantPending:   1,
		},
		{
			name:          "resources schedule a composite",
			update:        EmptyUpdate{ID: 2, Resources: []ResourceOp{AddImage{Key: imageKey(1, 1), Descriptor: onePixel, Data: make([]byte, 4)}}},
			wantScheduled: true,
			wantPending:   1,
		},
		{
			name:        "earlier transaction in flight",
			inFlight:    true,
			update:      EmptyUpdate{ID: 2},
			wantPending: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI(1)
			b, sched, obs := newRoot(t, api)
			if tt.inFlight {
				if err := b.SetDisplayList(SceneUpdate{ID: 1, Namespace: 1, DisplayList: rects()}); err != nil {
					t.Fatal(err)
				}
			}
			if err := b.EmptyTransaction(tt.update); err != nil {
				t.Fatalf("EmptyTransaction() error = %v", err)
			}
			if got := obs.composited(); !slices.Equal(got, tt.wantComposite) {
				t.Errorf("composites = %v, want %v", got, tt.wantComposite)
			}
			if sched.Pending() != tt.wantScheduled {
				t.Errorf("scheduled = %v, want %v", sched.Pending(), tt.wantScheduled)
			}
			if got := b.PendingTransactions(); got != tt.wantPending {
				t.Errorf("PendingTransactions() = %d, want %d", got, tt.wantPending)
			}
			if len(obs.scrolls) != len(tt.update.ScrollUpdates) {
				t.Errorf("scroll updates = %d, want %d", len(obs.scrolls), len(tt.update.ScrollUpdates))
			}
		})
	}
}

func TestBridgeScheduleGenerateFrameCollapses(t *testing.T) {
	api := newFakeAPI(1)
	b, sched, _ := newRoot(t, api)
	for i := 0; i < 3; i++ {
		b.ScheduleGenerateFrame()
	}
	if got := sched.Scheduled(); got != 1 {
		t.Errorf("Scheduled() = %d, want 1", got)
	}
	sched.Fire(t0)
	if sched.Fire(t0) {
		t.Error("second Fire() generated another frame")
	}
	if got := b.FramesGenerated(); got != 1 {
		t.Errorf("FramesGenerated() = %d, want 1", got)
	}
}

func TestBridgeFlushSceneBuilds(t *testing.T) {
	api := newFakeAPI(1)
	b, sched, obs := newRoot(t, api)
	if err := b.SetDisplayList(SceneUpdate{ID: 1, Namespace: 1, ObserverEpoch: 3, DisplayList: rects()}); err != nil {
		t.Fatal(err)
	}
	if err := b.FlushSceneBuilds(); err != nil {
		t.Fatalf("FlushSceneBuilds() error = %v", err)
	}
	if got := obs.reached(); !slices.Equal(got, []LayersObserverEpoch{3}) {
		t.Errorf("observer epochs = %v, want [3]", got)
	}
	if got := b.FramesGenerated(); got != 1 {
		t.Errorf("FramesGenerated() = %d, want 1", got)
	}
	if sched.Pending() {
		t.Error("frame scheduled by the build is still pending")
	}
	api.process()
	if got := obs.composited(); !slices.Equal(got, []TransactionID{1}) {
		t.Errorf("composites = %v, want [1]", got)
	}
}

func TestBridgeFlushFrameGeneration(t *testing.T) {
	api := newFakeAPI(1)
	b, sched, _ := newRoot(t, api)

	b.FlushFrameGeneration()
	if got := b.FramesGenerated(); got != 0 {
		t.Errorf("FramesGenerated() without a scheduled frame = %d, want 0", got)
	}
	b.ScheduleGenerateFrame()
	b.FlushFrameGeneration()
	if got := b.FramesGenerated(); got != 1 {
		t.Errorf("FramesGenerated() = %d, want 1", got)
	}
	if sched.Pending() {
		t.Error("Pending() = true after flush")
	}
	if got := sched.LastComposeTime(); !got.Equal(t0) {
		t.Errorf("LastComposeTime() = %v, want %v", got, t0)
	}
}

func TestBridgeFlushRendering(t *testing.T) {
	api := newFakeAPI(1)
	b, _, obs := newRoot(t, api)
	if err := b.SetDisplayList(SceneUpdate{ID: 1, Namespace: 1, DisplayList: rects()}); err != nil {
		t.Fatal(err)
	}
	if err := b.FlushRendering(true); err != nil {
		t.Fatalf("FlushRendering() error = %v", err)
	}
	if got := obs.composited(); !slices.Equal(got, []TransactionID{1}) {
		t.Errorf("composites = %v, want [1]", got)
	}
	if got := b.LastRenderedEpoch(); got != 1 {
		t.Errorf("LastRenderedEpoch() = %d, want 1", got)
	}

	api.setLost()
	if err := b.FlushRendering(true); !errors.Is(err, renderapi.ErrDisconnected) {
		t.Errorf("FlushRendering() after peer loss error = %v, want ErrDisconnected", err)
	}
}

func TestBridgeClearResources(t *testing.T) {
	reg := NewRegistry()
	tex, err := render.NewTexture(1, 1, make([]byte, 4))
	if err != nil {
		t.Fatal(err)
	}
	reg.AddTextureHost(7, tex)
	api := newFakeAPI(1)
	b, _, _ := newRoot(t, api, WithExternalImages(reg))

	err = b.UpdateResources([]ResourceOp{
		AddImage{Key: imageKey(1, 1), Descriptor: onePixel, Data: make([]byte, 4)},
		AddTextureHost{Key: imageKey(1, 2), Host: 7},
		AddFont{Key: renderapi.FontKey{Namespace: 1, Handle: 1}, Data: goregular.TTF},
	})
	if err != nil {
		t.Fatal(err)
	}
	before := len(api.txns())

	b.ClearResources()
	txns := api.txns()[before:]
	if len(txns) != 2 {
		t.Fatalf("ClearResources sent %d transactions, want 2", len(txns))
	}
	clearTxn, rm := txns[0], txns[1]
	if !clearTxn.ClearsDisplayList() || !clearTxn.GeneratesFrame() || clearTxn.Epoch() != 1 {
		t.Errorf("clear transaction: clears %v, frame %v, epoch %d", clearTxn.ClearsDisplayList(), clearTxn.GeneratesFrame(), clearTxn.Epoch())
	}
	var images, fonts int
	for _, u := range clearTxn.Resources() {
		switch u.(type) {
		case renderapi.DeleteImage:
			images++
		case renderapi.DeleteFont:
			fonts++
		}
	}
	if images != 2 || fonts != 1 {
		t.Errorf("clear deleted %d images and %d fonts, want 2 and 1", images, fonts)
	}
	if !rm.RemovesPipeline() {
		t.Error("last transaction does not remove the pipeline")
	}
	if f, _ := b.Fonts(); b.Images() != 0 || f != 0 {
		t.Errorf("bridge still tracks %d images and %d fonts", b.Images(), f)
	}
	if got := reg.Refs(7); got != 1 {
		t.Errorf("Refs(7) = %d before the cleared epoch rendered, want 1", got)
	}

	b.ClearResources()
	if n := len(api.txns()); n != before+2 {
		t.Errorf("second ClearResources sent %d more transactions", n-before-2)
	}
	if err := b.SetDisplayList(SceneUpdate{ID: 1, Namespace: 1}); !errors.Is(err, ErrDestroyed) {
		t.Errorf("SetDisplayList() after clear error = %v, want ErrDestroyed", err)
	}
	if err := b.EmptyTransaction(EmptyUpdate{ID: 1}); !errors.Is(err, ErrDestroyed) {
		t.Errorf("EmptyTransaction() after clear error = %v, want ErrDestroyed", err)
	}

	api.process()
	if got := reg.Refs(7); got != 0 {
		t.Errorf("Refs(7) = %d after the cleared epoch rendered, want 0", got)
	}
}

func TestBridgeDestroyDrainsAfterPeerLoss(t *testing.T) {
	for _, reason := range []ShutdownReason{NormalShutdown, AbnormalShutdown} {
		t.Run(reason.String(), func(t *testing.T) {
			reg := NewRegistry()
			tex, err := render.NewTexture(1, 1, make([]byte, 4))
			if err != nil {
				t.Fatal(err)
			}
			reg.AddTextureHost(7, tex)
			api := newFakeAPI(1)
			b, _, _ := newRoot(t, api, WithExternalImages(reg), WithProcessID(3))
			id := AnimationID(3, 1)
			key := imageKey(1, 1)

			if err := b.UpdateResources([]ResourceOp{AddTextureHost{Key: key, Host: 7}}); err != nil {
				t.Fatal(err)
			}
			err = b.EmptyTransaction(EmptyUpdate{ID: 1, Commands: []Command{AddAnimations{Animations: []Animation{fade(id, 1)}}}})
			if err != nil {
				t.Fatal(err)
			}
			if err := b.UpdateResources([]ResourceOp{DeleteImage{Key: key}}); err != nil {
				t.Fatal(err)
			}
			b.DeleteAnimations(id)
			if b.PendingReleases() != 1 || b.PendingAnimationDeletes() != 1 {
				t.Fatalf("setup: releases %d, animation deletes %d; want 1, 1",
					b.PendingReleases(), b.PendingAnimationDeletes())
			}

			api.setLost()
			done := make(chan struct{})
			go func() {
				b.Destroy(reason)
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(5 * time.Second):
				t.Fatal("Destroy() blocked after peer loss")
			}

			if !b.Destroyed() {
				t.Error("Destroyed() = false")
			}
			if b.PendingReleases() != 0 || b.PendingAnimationDeletes() != 0 || b.ActiveAnimations() != 0 {
				t.Errorf("queues not drained: releases %d, animation deletes %d, active %d",
					b.PendingReleases(), b.PendingAnimationDeletes(), b.ActiveAnimations())
			}
			if got := b.anims.len(); got != 0 {
				t.Errorf("stored animations = %d, want 0", got)
			}
			if got := reg.Refs(7); got != 0 {
				t.Errorf("Refs(7) = %d, want 0", got)
			}
			// Idempotent.
			b.Destroy(reason)
		})
	}
}

func TestBridgeChild(t *testing.T) {
	api := newFakeAPI(1)
	root, sched, _ := newRoot(t, api)
	childObs := &recObserver{}
	child := New(api, renderapi.PipelineID{Namespace: 1, Handle: 2}, WithRoot(root), WithObserver(childObs))
	t.Cleanup(func() { child.Destroy(NormalShutdown) })

	err := child.SetDisplayList(SceneUpdate{ID: 1, Namespace: 1, DisplayList: rects(), Viewport: image.Rect(0, 0, 8, 8)})
	if err != nil {
		t.Fatal(err)
	}
	if w := api.last(t).Window(); w != nil {
		t.Errorf("child set the window to %v", *w)
	}
	api.process()
	if !sched.Pending() {
		t.Fatal("child scene build did not schedule the root")
	}
	sched.Fire(t0)
	if got := child.FramesGenerated(); got != 1 {
		t.Errorf("FramesGenerated() = %d, want 1", got)
	}
	api.process()
	if got := childObs.composited(); !slices.Equal(got, []TransactionID{1}) {
		t.Errorf("child composites = %v, want [1]", got)
	}
}

func TestBridgeAsyncImages(t *testing.T) {
	reg := NewRegistry()
	for _, id := range []TextureHostID{5, 6} {
		tex, err := render.NewTexture(2, 2, make([]byte, 16))
		if err != nil {
			t.Fatal(err)
		}
		reg.AddTextureHost(id, tex)
	}
	api := newFakeAPI(1)
	b, sched, _ := newRoot(t, api, WithExternalImages(reg))
	video := renderapi.PipelineID{Namespace: 1, Handle: 9}
	key := imageKey(1, 40)
	until := t0.Add(time.Second)

	err := b.EmptyTransaction(EmptyUpdate{ID: 1, Commands: []Command{
		AddAsyncImagePipeline{Pipeline: video, Image: key},
		UpdateAsyncImage{Pipeline: video, Host: 5, CompositeUntil: until},
	}})
	if err != nil {
		t.Fatal(err)
	}
	if got := b.AsyncImagePipelines(); got != 1 {
		t.Errorf("AsyncImagePipelines() = %d, want 1", got)
	}
	sched.Fire(t0)
	if _, ok := api.last(t).Resources()[0].(renderapi.AddExternalImage); !ok {
		t.Errorf("first frame resources = %v, want AddExternalImage", api.last(t).Resources())
	}
	if !sched.Pending() {
		t.Error("frame before the composite-until deadline did not reschedule")
	}

	if err := b.EmptyTransaction(EmptyUpdate{ID: 2, Commands: []Command{UpdateAsyncImage{Pipeline: video, Host: 6, CompositeUntil: until}}}); err != nil {
		t.Fatal(err)
	}
	sched.Fire(t0.Add(100 * time.Millisecond))
	if _, ok := api.last(t).Resources()[0].(renderapi.UpdateExternalImage); !ok {
		t.Errorf("second frame resources = %v, want UpdateExternalImage", api.last(t).Resources())
	}
	if got := reg.Refs(5); got != 1 {
		t.Errorf("Refs(5) = %d before the frame rendered, want 1", got)
	}
	api.process()
	if got := reg.Refs(5); got != 0 {
		t.Errorf("Refs(5) = %d after the frame rendered, want 0", got)
	}

	sched.Fire(t0.Add(2 * time.Second))
	if sched.Pending() {
		t.Error("frame after the deadline rescheduled")
	}

	// Unknown pipelines are logged, not fatal.
	err = b.EmptyTransaction(EmptyUpdate{ID: 3, Commands: []Command{UpdateAsyncImage{Pipeline: renderapi.PipelineID{Namespace: 1, Handle: 77}, Host: 6}}})
	if err != nil {
		t.Errorf("update of unknown pipeline error = %v", err)
	}
	if got := reg.Refs(6); got != 1 {
		t.Errorf("Refs(6) = %d, want 1", got)
	}

	if err := b.EmptyTransaction(EmptyUpdate{ID: 4, Commands: []Command{RemoveAsyncImagePipeline{Pipeline: video}}}); err != nil {
		t.Fatal(err)
	}
	if got := b.AsyncImagePipelines(); got != 0 {
		t.Errorf("AsyncImagePipelines() = %d, want 0", got)
	}
	sched.Fire(t0.Add(3 * time.Second))
	deleted := false
	for _, u := range api.last(t).Resources() {
		if d, ok := u.(renderapi.DeleteImage); ok && d.Key == key {
			deleted = true
		}
	}
	if !deleted {
		t.Errorf("frame after removal = %v, want DeleteImage(%v)", api.last(t).Resources(), key)
	}
	api.process()
	if got := reg.Refs(6); got != 0 {
		t.Errorf("Refs(6) = %d after removal rendered, want 0", got)
	}
}

func TestBridgeTelemetry(t *testing.T) {
	rec := &profiler.Recorder{}
	api := newFakeAPI(1)
	b, sched, _ := newRoot(t, api, WithTelemetry(ProfilerTelemetry{Profiler: rec}))
	refresh := t0.Add(-time.Second)

	err := b.SetDisplayList(SceneUpdate{ID: 1, Namespace: 1, DisplayList: rects(), RefreshStart: refresh, TxnStart: t0.Add(-500 * time.Millisecond)})
	if err != nil {
		t.Fatal(err)
	}
	api.process()
	sched.Fire(t0)
	api.process()
	// Stale namespace: reported composited, never counted.
	if err := b.SetDisplayList(SceneUpdate{ID: 2, Namespace: 5, RefreshStart: refresh}); err != nil {
		t.Fatal(err)
	}

	var labels []string
	for _, iv := range rec.Intervals() {
		labels = append(labels, iv.Label)
		if iv.Label == "ContentFrame" && (!iv.Start.Equal(refresh) || !iv.End.Equal(api.frameTime)) {
			t.Errorf("ContentFrame = %v..%v, want %v..%v", iv.Start, iv.End, refresh, api.frameTime)
		}
	}
	if want := []string{"ContentFrame", "FullPaint"}; !slices.Equal(sortedStrings(labels), want) {
		t.Errorf("intervals = %v, want %v", labels, want)
	}
}

func sortedStrings(s []string) []string {
	s = slices.Clone(s)
	slices.Sort(s)
	return s
}
