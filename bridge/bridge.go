// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package bridge

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/internal/workqueue"
	"github.com/gogpu/compositor/renderapi"
)

// ShutdownReason tells Destroy whether the render API can still answer.
type ShutdownReason uint8

const (
	// NormalShutdown waits for the render API to process the cleanup.
	NormalShutdown ShutdownReason = iota

	// AbnormalShutdown assumes the peer is gone and waits for nothing.
	AbnormalShutdown
)

var shutdownReasonNames = [...]string{
	NormalShutdown:   "NormalShutdown",
	AbnormalShutdown: "AbnormalShutdown",
}

func (r ShutdownReason) String() string {
	if int(r) < len(shutdownReasonNames) {
		return shutdownReasonNames[r]
	}
	return "Unknown"
}

// Bridge forwards the transactions of one content pipeline to a render
// API. A root bridge owns the window and generates frames; bridges created
// WithRoot share its scheduler, animations and async images.
//
// Notifications from the render API arrive on its goroutines. They are
// posted to the bridge's mailbox and handled under the bridge lock, either
// right away when the bridge is idle or before the current holder
// releases it.
//
// Lock order: a child bridge may lock its root while holding nothing; a
// root never locks a child.
//
// Thread safety: Bridge is safe for concurrent use.
type Bridge struct {
	opts      options
	pipeline  renderapi.PipelineID
	namespace renderapi.IdNamespace
	root      *Bridge

	// Shared with the root.
	scheduler     Scheduler
	anims         *animationStorage
	async         *asyncImages
	ownsScheduler bool

	mu          sync.Mutex
	mailbox     workqueue.Mailbox
	api         renderapi.API // nil once resources are cleared
	conn        renderapi.API // kept for the final wait in Destroy
	unsubscribe func()
	destroyed   bool

	epoch        epochCounter
	lastRendered renderapi.Epoch
	pending      pendingQueue

	images    map[renderapi.ImageKey]imageEntry
	fonts     map[renderapi.FontKey]struct{}
	instances map[renderapi.FontInstanceKey]renderapi.FontKey
	releases  []pendingRelease
	staleOps  int

	active         map[uint64]renderapi.Epoch
	animDeletes    []animationsForEpoch
	asyncPipelines map[renderapi.PipelineID]struct{}

	// Root only.
	prevFrameTime   time.Time
	testing         bool
	testingTime     time.Time
	framesGenerated int
}

// New creates a bridge forwarding pipeline to api.
func New(api renderapi.API, pipeline renderapi.PipelineID, opts ...Option) *Bridge {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	b := &Bridge{
		opts:           o,
		pipeline:       pipeline,
		namespace:      api.Namespace(),
		api:            api,
		conn:           api,
		images:         make(map[renderapi.ImageKey]imageEntry),
		fonts:          make(map[renderapi.FontKey]struct{}),
		instances:      make(map[renderapi.FontInstanceKey]renderapi.FontKey),
		active:         make(map[uint64]renderapi.Epoch),
		asyncPipelines: make(map[renderapi.PipelineID]struct{}),
	}
	if root := o.root; root != nil {
		b.root = root
		b.scheduler = root.scheduler
		b.anims = root.anims
		b.async = root.async
	} else {
		b.root = b
		b.scheduler = o.scheduler
		if b.scheduler == nil {
			b.scheduler = NewVsyncScheduler(DefaultVsyncInterval, o.now)
			b.ownsScheduler = true
		}
		b.anims = newAnimationStorage()
		b.async = newAsyncImages(o.external)
		b.testing, b.testingTime = o.testing, o.testingTime
		b.scheduler.SetHandler(b.generateFrame)
	}
	b.unsubscribe = api.OnFrameRendered(b.frameRendered)
	compositor.Logger().Info("bridge: created", "pipeline", pipeline, "namespace", b.namespace, "root", b.isRoot())
	return b
}

func (b *Bridge) isRoot() bool { return b.root == b }

// post runs fn under the bridge lock: now if the bridge is idle, otherwise
// before the current holder releases the lock.
func (b *Bridge) post(fn func()) {
	if !b.mailbox.Post(fn) {
		return
	}
	if b.mu.TryLock() {
		b.unlock()
	}
}

// unlock drains the mailbox and releases the lock, picking it up again if
// something was posted in between.
func (b *Bridge) unlock() {
	for {
		b.mailbox.Drain()
		b.mu.Unlock()
		if b.mailbox.Len() == 0 || !b.mu.TryLock() {
			return
		}
	}
}

// frameRendered runs on the render backend.
func (b *Bridge) frameRendered(f renderapi.Frame) {
	e, ok := f.Epochs[b.pipeline]
	if !ok {
		return
	}
	start, end := f.Start, f.End
	b.post(func() { b.pipelineRendered(e, start, end) })
}

func (b *Bridge) pipelineRendered(epoch renderapi.Epoch, start, end time.Time) {
	if epoch > b.lastRendered {
		b.lastRendered = epoch
	}
	b.flushTransactions(epoch, start, end)
	b.releasePrior(epoch)
}

func (b *Bridge) flushTransactions(epoch renderapi.Epoch, start, end time.Time) TransactionID {
	tel := b.opts.telemetry
	id := b.pending.flush(epoch, func(p PendingTransaction) {
		if tel != nil {
			tel.RecordContentFrame(b.pipeline, p, end)
		}
	})
	if id != 0 {
		b.opts.observer.DidComposite(b.pipeline, id, start, end)
	}
	return id
}

// releasePrior runs the deferred releases and animation deletions of every
// epoch up to epoch.
func (b *Bridge) releasePrior(epoch renderapi.Epoch) {
	n := 0
	for n < len(b.releases) && b.releases[n].epoch <= epoch {
		b.releases[n].release()
		n++
	}
	b.releases = append(b.releases[:0], b.releases[n:]...)

	n = 0
	for n < len(b.animDeletes) && b.animDeletes[n].epoch <= epoch {
		d := b.animDeletes[n]
		for _, id := range d.ids {
			added, ok := b.active[id]
			if !ok {
				compositor.Logger().Debug("bridge: delete of unknown animation", "pipeline", b.pipeline, "id", id)
				continue
			}
			// Re-added after the delete was queued.
			if added > d.epoch {
				continue
			}
			b.anims.remove(id)
			delete(b.active, id)
		}
		n++
	}
	b.animDeletes = append(b.animDeletes[:0], b.animDeletes[n:]...)
}

// SetDisplayList replaces the pipeline's scene.
//
// An update from a stale namespace is not sent. Its scroll data still
// reaches the observer and its transaction id is reported as composited
// right away. Resource and command failures are returned as errors
// wrapping ErrProtocol and leave the bridge unchanged.
func (b *Bridge) SetDisplayList(u SceneUpdate) error {
	b.mu.Lock()
	defer b.unlock()
	if b.api == nil {
		return ErrDestroyed
	}
	valid := u.Namespace == b.namespace
	var batch *resourceBatch
	if valid {
		batch = b.newBatch()
		if err := batch.translate(u.Resources); err != nil {
			return err
		}
		if err := b.validateCommands(u.Commands); err != nil {
			batch.abort()
			return err
		}
	}

	epoch := b.epoch.next()
	// Hit testing must know the new scroll frames no later than the scene
	// that contains them goes live.
	b.opts.observer.UpdateHitTestTree(b.pipeline, u.Scroll)

	if valid {
		batch.commit(epoch)
		b.applyCommands(u.Commands, epoch)

		txn := renderapi.NewTransaction(b.pipeline)
		txn.UpdateResources(batch.updates...)
		txn.SetDisplayList(epoch, u.ClearColor, u.DisplayList)
		if b.isRoot() && !u.Viewport.Empty() {
			txn.SetWindowParameters(u.Viewport)
		}
		obsEpoch, txnStart := u.ObserverEpoch, u.TxnStart
		txn.Notify(renderapi.CheckpointSceneBuilt, func() {
			b.post(func() { b.sceneBuilt(obsEpoch, txnStart) })
		})
		b.api.SendTransaction(txn)
	} else {
		compositor.Logger().Debug("bridge: display list from stale namespace",
			"pipeline", b.pipeline, "namespace", u.Namespace, "current", b.namespace)
	}

	b.pending.hold(PendingTransaction{
		ID:              u.ID,
		Epoch:           epoch,
		RefreshStart:    u.RefreshStart,
		TxnStart:        u.TxnStart,
		FwdTime:         u.FwdTime,
		UseForTelemetry: valid,
	})
	if !valid {
		now := b.opts.now()
		b.opts.observer.ObserverEpochReached(b.pipeline, u.ObserverEpoch)
		b.flushTransactions(epoch, now, now)
	}
	return nil
}

func (b *Bridge) sceneBuilt(obsEpoch LayersObserverEpoch, txnStart time.Time) {
	b.opts.observer.ObserverEpochReached(b.pipeline, obsEpoch)
	if tel := b.opts.telemetry; tel != nil && !txnStart.IsZero() {
		tel.RecordFullPaint(b.pipeline, txnStart, b.opts.now())
	}
	b.scheduler.Schedule()
}

// EmptyTransaction applies scroll updates, resources and commands without
// a new display list. When nothing will composite and no earlier
// transaction is in flight, the observer hears DidComposite immediately.
func (b *Bridge) EmptyTransaction(u EmptyUpdate) error {
	b.mu.Lock()
	defer b.unlock()
	if b.api == nil {
		return ErrDestroyed
	}
	batch := b.newBatch()
	if err := batch.translate(u.Resources); err != nil {
		return err
	}
	if err := b.validateCommands(u.Commands); err != nil {
		batch.abort()
		return err
	}

	scheduleComposite := false
	if len(u.ScrollUpdates) > 0 || u.Focus != (FocusTarget{}) {
		b.opts.observer.ApplyAsyncScroll(b.pipeline, u.Focus, u.ScrollUpdates)
		scheduleComposite = len(u.ScrollUpdates) > 0
	}

	txn := renderapi.NewTransaction(b.pipeline)
	if len(batch.updates) > 0 {
		txn.UpdateResources(batch.updates...)
		scheduleComposite = true
	}
	epoch := b.epoch.current()
	if len(u.Commands) > 0 || len(batch.releases) > 0 {
		epoch = b.epoch.next()
		txn.UpdateEpoch(epoch)
		scheduleComposite = true
	}
	batch.commit(epoch)
	b.applyCommands(u.Commands, epoch)
	if !txn.IsEmpty() {
		b.api.SendTransaction(txn)
	}
	b.opts.observer.ObserverEpochReached(b.pipeline, u.ObserverEpoch)

	sendDidComposite := !scheduleComposite && b.pending.len() == 0
	b.pending.hold(PendingTransaction{
		ID:           u.ID,
		Epoch:        epoch,
		RefreshStart: u.RefreshStart,
		TxnStart:     u.TxnStart,
		FwdTime:      u.FwdTime,
	})
	switch {
	case scheduleComposite:
		b.scheduler.Schedule()
	case sendDidComposite:
		now := b.opts.now()
		b.flushTransactions(epoch, now, now)
	}
	return nil
}

// UpdateResources applies a standalone batch of resource ops. A batch that
// drops texture references moves the pipeline to a new epoch so they can
// be released once it is rendered.
func (b *Bridge) UpdateResources(ops []ResourceOp) error {
	b.mu.Lock()
	defer b.unlock()
	if b.api == nil {
		return ErrDestroyed
	}
	batch := b.newBatch()
	if err := batch.translate(ops); err != nil {
		return err
	}
	txn := renderapi.NewTransaction(b.pipeline)
	txn.UpdateResources(batch.updates...)
	epoch := b.epoch.current()
	bump := len(batch.releases) > 0
	if bump {
		epoch = b.epoch.next()
		txn.UpdateEpoch(epoch)
	}
	batch.commit(epoch)
	if !txn.IsEmpty() {
		b.api.SendTransaction(txn)
	}
	if bump {
		b.scheduler.Schedule()
	}
	return nil
}

func (b *Bridge) validateCommands(cmds []Command) error {
	for i, c := range cmds {
		switch c := c.(type) {
		case AddAnimations:
			for j := range c.Animations {
				if err := c.Animations[j].validate(b.opts.process); err != nil {
					return fmt.Errorf("command %d: %w", i, err)
				}
			}
		case AddAsyncImagePipeline, RemoveAsyncImagePipeline, UpdateAsyncImage:
		default:
			return fmt.Errorf("%w: command %d: unknown command %T", ErrProtocol, i, c)
		}
	}
	return nil
}

// applyCommands applies validated commands at epoch.
func (b *Bridge) applyCommands(cmds []Command, epoch renderapi.Epoch) {
	for _, c := range cmds {
		switch c := c.(type) {
		case AddAnimations:
			for _, a := range c.Animations {
				b.anims.set(a)
				b.active[a.ID] = epoch
			}
			b.scheduler.Schedule()
		case AddAsyncImagePipeline:
			b.async.add(c.Pipeline, c.Image)
			b.asyncPipelines[c.Pipeline] = struct{}{}
		case RemoveAsyncImagePipeline:
			b.async.remove(c.Pipeline)
			delete(b.asyncPipelines, c.Pipeline)
			b.scheduler.Schedule()
		case UpdateAsyncImage:
			b.async.update(c.Pipeline, c.Host, c.CompositeUntil)
			b.scheduler.Schedule()
		}
	}
}

// DeleteAnimations removes animations once the current epoch has been
// rendered. Animations added again in a later epoch survive.
func (b *Bridge) DeleteAnimations(ids ...uint64) {
	if len(ids) == 0 {
		return
	}
	b.mu.Lock()
	defer b.unlock()
	b.animDeletes = append(b.animDeletes, animationsForEpoch{epoch: b.epoch.current(), ids: slices.Clone(ids)})
}

func (b *Bridge) deleteActiveAnimations(epoch renderapi.Epoch) {
	if len(b.active) == 0 {
		return
	}
	ids := make([]uint64, 0, len(b.active))
	for id := range b.active {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	b.animDeletes = append(b.animDeletes, animationsForEpoch{epoch: epoch, ids: ids})
}

// ScheduleGenerateFrame asks for a frame. Calls before the frame is
// generated collapse into one.
func (b *Bridge) ScheduleGenerateFrame() {
	b.scheduler.Schedule()
}

// generateFrame is the root's scheduler handler.
func (b *Bridge) generateFrame(now time.Time) {
	b.mu.Lock()
	defer b.unlock()
	b.generateFrameLocked(now)
}

func (b *Bridge) generateFrameLocked(now time.Time) {
	if b.api == nil {
		return
	}
	animTime := now
	if b.testing {
		animTime = b.testingTime
	}
	start := b.prevFrameTime
	if start.IsZero() {
		start = animTime
	}
	values, running := b.anims.sample(start, animTime)
	// Test time is fixed, so tracking it would only add gaps.
	if !b.testing {
		if running {
			b.prevFrameTime = animTime
		} else {
			b.prevFrameTime = time.Time{}
		}
	}

	txn := renderapi.NewTransaction(b.pipeline)
	txn.UpdateDynamicProperties(values...)
	for _, release := range b.async.fold(txn) {
		txn.Notify(renderapi.CheckpointFrameRendered, release)
	}
	txn.GenerateFrame()
	b.api.SendTransaction(txn)
	b.framesGenerated++
	compositor.Logger().Debug("bridge: frame generated", "pipeline", b.pipeline, "properties", len(values))

	if running || b.async.needsComposite(now) {
		b.scheduler.Schedule()
	}
}

// forceGenerateFrame replaces a scheduled frame, if any, with one
// generated now.
func (b *Bridge) forceGenerateFrame() {
	b.mu.Lock()
	defer b.unlock()
	b.scheduler.Cancel()
	now := b.opts.now()
	b.scheduler.UpdateLastComposeTime(now)
	b.generateFrameLocked(now)
}

// SetTestSampleTime makes the root sample animations at t from now on.
func (b *Bridge) SetTestSampleTime(t time.Time) {
	r := b.root
	r.mu.Lock()
	defer r.unlock()
	r.testing = true
	r.testingTime = t
}

// LeaveTestMode returns the root to sampling at the current time.
func (b *Bridge) LeaveTestMode() {
	r := b.root
	r.mu.Lock()
	defer r.unlock()
	r.testing = false
	r.testingTime = time.Time{}
	r.prevFrameTime = time.Time{}
}

// FlushSceneBuilds waits until every display list sent so far has been
// built, then generates a frame. The frames the builds schedule would
// only be generated after this returns.
func (b *Bridge) FlushSceneBuilds() error {
	b.mu.Lock()
	if b.api == nil {
		b.unlock()
		return ErrDestroyed
	}
	err := b.api.FlushSceneBuilder()
	b.mailbox.Drain()
	b.unlock()
	if err != nil {
		return fmt.Errorf("bridge: flush scene builds: %w", err)
	}
	b.root.forceGenerateFrame()
	return nil
}

// FlushFrameGeneration generates a scheduled frame now instead of at the
// next vsync. It does nothing when no frame is scheduled.
func (b *Bridge) FlushFrameGeneration() {
	r := b.root
	r.mu.Lock()
	defer r.unlock()
	if !r.scheduler.Cancel() {
		return
	}
	now := r.opts.now()
	r.scheduler.UpdateLastComposeTime(now)
	r.generateFrameLocked(now)
}

// FlushFramePresentation waits until the render backend has processed
// every transaction sent so far, including the frames they generate.
func (b *Bridge) FlushFramePresentation() error {
	b.mu.Lock()
	defer b.unlock()
	if b.api == nil {
		return ErrDestroyed
	}
	err := b.api.WaitFlushed()
	b.mailbox.Drain()
	if err != nil {
		return fmt.Errorf("bridge: flush frame presentation: %w", err)
	}
	return nil
}

// FlushRendering brings the screen up to date after a resize. Without
// waitPresent it returns once the frame is generated.
func (b *Bridge) FlushRendering(waitPresent bool) error {
	if err := b.FlushSceneBuilds(); err != nil {
		return err
	}
	b.FlushFrameGeneration()
	if waitPresent {
		return b.FlushFramePresentation()
	}
	return nil
}

// ClearCachedResources empties the pipeline's scene so the backend can
// free what it referenced. Content sends a new display list afterwards.
func (b *Bridge) ClearCachedResources() {
	b.mu.Lock()
	defer b.unlock()
	if b.api == nil {
		return
	}
	epoch := b.epoch.next()
	txn := renderapi.NewTransaction(b.pipeline)
	txn.ClearDisplayList(epoch)
	b.api.SendTransaction(txn)
	b.deleteActiveAnimations(epoch)
	b.scheduler.Schedule()
}

// ClearResources empties the pipeline, deletes every resource the bridge
// registered and makes the backend forget the pipeline. Texture references
// and animations are released once the cleared epoch has been rendered,
// or by Destroy. Calls after the first do nothing.
func (b *Bridge) ClearResources() {
	b.mu.Lock()
	defer b.unlock()
	b.clearResourcesLocked()
}

func (b *Bridge) clearResourcesLocked() {
	if b.api == nil {
		return
	}
	epoch := b.epoch.next()
	txn := renderapi.NewTransaction(b.pipeline)
	for key, e := range b.images {
		txn.UpdateResources(renderapi.DeleteImage{Key: key})
		if fn := b.imageRelease(e); fn != nil {
			b.releases = append(b.releases, pendingRelease{epoch: epoch, release: fn})
		}
	}
	for key := range b.instances {
		txn.UpdateResources(renderapi.DeleteFontInstance{Key: key})
	}
	for key := range b.fonts {
		txn.UpdateResources(renderapi.DeleteFont{Key: key})
	}
	clear(b.images)
	clear(b.instances)
	clear(b.fonts)
	b.deleteActiveAnimations(epoch)
	for p := range b.asyncPipelines {
		b.async.remove(p)
	}
	clear(b.asyncPipelines)

	// One more frame lets the backend drop what the old scene referenced.
	txn.ClearDisplayList(epoch)
	txn.GenerateFrame()
	b.api.SendTransaction(txn)

	rm := renderapi.NewTransaction(b.pipeline)
	rm.RemovePipeline()
	b.api.SendTransaction(rm)
	b.api = nil
}

// Destroy tears the bridge down. With NormalShutdown it waits for the
// render API to process the cleanup; when that fails, or with
// AbnormalShutdown, no confirmation is expected and every deferred
// release runs immediately. Destroy is idempotent.
func (b *Bridge) Destroy(reason ShutdownReason) {
	b.mu.Lock()
	defer b.unlock()
	if b.destroyed {
		return
	}
	b.clearResourcesLocked()
	if reason == NormalShutdown && b.conn != nil {
		if err := b.conn.WaitFlushed(); err != nil {
			compositor.Logger().Info("bridge: render API lost during shutdown", "pipeline", b.pipeline, "err", err)
		}
		b.mailbox.Drain()
	}

	// The pipeline is gone from the backend, or the backend is gone: no
	// frame will ever confirm the remaining epochs.
	for _, r := range b.releases {
		r.release()
	}
	b.releases = nil
	for _, d := range b.animDeletes {
		b.anims.remove(d.ids...)
	}
	b.animDeletes = nil
	for id := range b.active {
		b.anims.remove(id)
	}
	clear(b.active)

	b.destroyed = true
	b.unsubscribe()
	b.mailbox.Close()
	if b.isRoot() {
		if b.ownsScheduler {
			b.scheduler.Stop()
		}
		b.async.releaseRetired()
	}
	compositor.Logger().Info("bridge: destroyed", "pipeline", b.pipeline, "reason", reason)
}

// HoldPendingTransactionID queues a transaction the content waits on. Ids
// must strictly increase and epochs must not go backwards.
func (b *Bridge) HoldPendingTransactionID(p PendingTransaction) {
	b.mu.Lock()
	defer b.unlock()
	b.pending.hold(p)
}

// FlushTransactionIDsForEpoch pops every pending transaction up to epoch,
// reports them composited between start and end, and returns the last
// popped id, or zero.
func (b *Bridge) FlushTransactionIDsForEpoch(epoch renderapi.Epoch, start, end time.Time) TransactionID {
	b.mu.Lock()
	defer b.unlock()
	return b.flushTransactions(epoch, start, end)
}

// Pipeline returns the bridge's pipeline.
func (b *Bridge) Pipeline() renderapi.PipelineID { return b.pipeline }

// Namespace returns the namespace resource keys must carry.
func (b *Bridge) Namespace() renderapi.IdNamespace { return b.namespace }

// Epoch returns the current epoch.
func (b *Bridge) Epoch() renderapi.Epoch {
	b.mu.Lock()
	defer b.unlock()
	return b.epoch.current()
}

// LastRenderedEpoch returns the newest epoch a frame has shown.
func (b *Bridge) LastRenderedEpoch() renderapi.Epoch {
	b.mu.Lock()
	defer b.unlock()
	return b.lastRendered
}

// PendingTransactions returns how many transactions wait for a composite.
func (b *Bridge) PendingTransactions() int {
	b.mu.Lock()
	defer b.unlock()
	return b.pending.len()
}

// LastPendingTransactionID returns the newest pending id, or zero.
func (b *Bridge) LastPendingTransactionID() TransactionID {
	b.mu.Lock()
	defer b.unlock()
	return b.pending.last()
}

// Images returns how many image keys the bridge tracks.
func (b *Bridge) Images() int {
	b.mu.Lock()
	defer b.unlock()
	return len(b.images)
}

// Fonts returns how many fonts and font instances the bridge tracks.
func (b *Bridge) Fonts() (fonts, instances int) {
	b.mu.Lock()
	defer b.unlock()
	return len(b.fonts), len(b.instances)
}

// PendingReleases returns how many texture references wait for a frame.
func (b *Bridge) PendingReleases() int {
	b.mu.Lock()
	defer b.unlock()
	return len(b.releases)
}

// PendingAnimationDeletes returns how many animation deletions wait for a
// frame.
func (b *Bridge) PendingAnimationDeletes() int {
	b.mu.Lock()
	defer b.unlock()
	n := 0
	for _, d := range b.animDeletes {
		n += len(d.ids)
	}
	return n
}

// ActiveAnimations returns how many animations the bridge added and has
// not deleted.
func (b *Bridge) ActiveAnimations() int {
	b.mu.Lock()
	defer b.unlock()
	return len(b.active)
}

// AsyncImagePipelines returns how many async image pipelines the root and
// its attached bridges hold.
func (b *Bridge) AsyncImagePipelines() int { return b.async.len() }

// StaleResourceOps returns how many resource ops were dropped for carrying
// a stale namespace.
func (b *Bridge) StaleResourceOps() int {
	b.mu.Lock()
	defer b.unlock()
	return b.staleOps
}

// FramesGenerated returns how many frames the root has generated.
func (b *Bridge) FramesGenerated() int {
	r := b.root
	r.mu.Lock()
	defer r.unlock()
	return r.framesGenerated
}

// Destroyed reports whether Destroy has run.
func (b *Bridge) Destroyed() bool {
	b.mu.Lock()
	defer b.unlock()
	return b.destroyed
}
