// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderapi

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/internal/workqueue"
)

// Server is an in-process scene builder and render backend. Each stage
// runs on its own goroutine; both are supervised by an errgroup.
//
// Thread safety: Server and its clients are safe for concurrent use.
type Server struct {
	opts    options
	builder *workqueue.Queue
	backend *workqueue.Queue
	group   *errgroup.Group
	cancel  context.CancelFunc

	disconnected atomic.Bool
	closeOnce    sync.Once
	closeErr     error
	namespaces   atomic.Uint32
	scenesBuilt  atomic.Int64

	obsMu     sync.Mutex
	observers map[uint64]func(Frame)
	nextObs   uint64

	// Owned by the backend goroutine.
	state *backendState
}

// NewServer starts a server. It stops when ctx is cancelled or Close is
// called.
func NewServer(ctx context.Context, opts ...Option) *Server {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	s := &Server{
		opts:      o,
		builder:   workqueue.New("scene-builder", o.queueSize),
		backend:   workqueue.New("render-backend", o.queueSize),
		group:     g,
		cancel:    cancel,
		observers: make(map[uint64]func(Frame)),
		state:     newBackendState(),
	}
	g.Go(func() error { return s.builder.Run(gctx) })
	g.Go(func() error { return s.backend.Run(gctx) })
	compositor.Logger().Info("renderapi: server started", "queue", o.queueSize, "compositor", o.compositor != nil)
	return s
}

// NewClient returns an API handle with a fresh namespace.
func (s *Server) NewClient() *Client {
	return &Client{srv: s, ns: IdNamespace(s.namespaces.Add(1))}
}

// Disconnect simulates losing the peer: later transactions are dropped,
// flushes fail with ErrDisconnected and no notification fires again.
func (s *Server) Disconnect() {
	if s.disconnected.CompareAndSwap(false, true) {
		compositor.Logger().Info("renderapi: disconnected")
	}
}

// Disconnected reports whether Disconnect or Close was called.
func (s *Server) Disconnected() bool { return s.disconnected.Load() }

// Close stops both stages after the queued work has run and waits for
// their goroutines.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		s.Disconnect()
		// The builder forwards to the backend, so it stops first.
		s.builder.Stop()
		s.backend.Stop()
		s.cancel()
		err := s.group.Wait()
		if errors.Is(err, context.Canceled) {
			err = nil
		}
		s.closeErr = err
	})
	return s.closeErr
}

// Stats describes the backend state.
type Stats struct {
	ScenesBuilt   int64
	Frames        uint64
	Pipelines     int
	Images        int
	Fonts         int
	FontInstances int
	Properties    int
}

// Stats returns a consistent view of the backend, waiting for the work
// queued so far. After Close it returns the final state.
func (s *Server) Stats() Stats {
	var st Stats
	read := func() {
		b := s.state
		st = Stats{
			Frames:        b.frames,
			Pipelines:     len(b.scenes),
			Images:        len(b.images),
			Fonts:         len(b.fonts),
			FontInstances: len(b.instances),
			Properties:    len(b.properties),
		}
	}
	// Builds forward to the backend, so the builder is flushed first.
	s.builder.Sync(func() {})
	if !s.backend.Sync(read) {
		read()
	}
	st.ScenesBuilt = s.scenesBuilt.Load()
	return st
}

func (s *Server) send(txn *Transaction) {
	if txn == nil {
		return
	}
	if s.disconnected.Load() {
		compositor.Logger().Debug("renderapi: dropping transaction after disconnect", "pipeline", txn.pipeline)
		return
	}
	s.builder.Post(func() { s.build(txn) })
}

// build runs on the scene builder.
func (s *Server) build(txn *Transaction) {
	var sc *scene
	if dl := txn.displayList; dl != nil {
		items, err := dl.Items()
		if err != nil {
			compositor.Logger().Warn("renderapi: dropping display list", "pipeline", txn.pipeline, "epoch", txn.epoch, "err", err)
		} else {
			sc = &scene{pipeline: txn.pipeline, epoch: txn.epoch, clear: txn.clearColor, items: items}
			s.scenesBuilt.Add(1)
		}
	}
	if !s.disconnected.Load() {
		txn.Fire(CheckpointSceneBuilt)
	}
	s.backend.Post(func() { s.apply(txn, sc) })
}

// apply runs on the render backend.
func (s *Server) apply(txn *Transaction, sc *scene) {
	b := s.state
	if txn.window != nil {
		b.window = *txn.window
	}
	for _, u := range txn.resources {
		b.applyResource(u)
	}
	switch {
	case sc != nil:
		b.scenes[txn.pipeline] = sc
	case txn.clearDisplayList:
		b.scenes[txn.pipeline] = &scene{pipeline: txn.pipeline, epoch: txn.epoch}
	case txn.updateEpoch:
		if cur, ok := b.scenes[txn.pipeline]; ok {
			cur.epoch = txn.epoch
		} else {
			b.scenes[txn.pipeline] = &scene{pipeline: txn.pipeline, epoch: txn.epoch}
		}
	}
	if txn.propertiesSet {
		clear(b.properties)
		for _, v := range txn.properties {
			b.properties[v.ID] = v
		}
	}
	if txn.removePipeline {
		delete(b.scenes, txn.pipeline)
	}
	if txn.Handlers(CheckpointFrameRendered) > 0 {
		b.waiting = append(b.waiting, txn)
	}
	if txn.generateFrame {
		s.renderFrame()
	}
}

func (s *Server) renderFrame() {
	b := s.state
	start := s.opts.now()
	b.frames++
	frame := Frame{ID: b.frames, Epochs: make(map[PipelineID]Epoch, len(b.scenes)), Start: start}
	for p, sc := range b.scenes {
		frame.Epochs[p] = sc.epoch
	}
	if c := s.opts.compositor; c != nil {
		frame.Bounds = b.draw(c)
	}
	frame.End = s.opts.now()
	compositor.Logger().Debug("renderapi: frame rendered", "frame", frame.ID, "pipelines", len(frame.Epochs))

	if s.disconnected.Load() {
		b.waiting = nil
		return
	}
	s.obsMu.Lock()
	observers := make([]func(Frame), 0, len(s.observers))
	for _, fn := range s.observers {
		observers = append(observers, fn)
	}
	s.obsMu.Unlock()
	for _, fn := range observers {
		fn(frame)
	}
	waiting := b.waiting
	b.waiting = nil
	for _, txn := range waiting {
		txn.Fire(CheckpointFrameRendered)
	}
}

func (s *Server) subscribe(fn func(Frame)) func() {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	s.nextObs++
	id := s.nextObs
	s.observers[id] = fn
	return func() {
		s.obsMu.Lock()
		delete(s.observers, id)
		s.obsMu.Unlock()
	}
}

// Client is the API handle of one namespace.
type Client struct {
	srv *Server
	ns  IdNamespace
}

var _ API = (*Client)(nil)

// Namespace implements API.
func (c *Client) Namespace() IdNamespace { return c.ns }

// Server returns the server the client talks to.
func (c *Client) Server() *Server { return c.srv }

// SendTransaction implements API.
func (c *Client) SendTransaction(txn *Transaction) { c.srv.send(txn) }

// FlushSceneBuilder implements API.
func (c *Client) FlushSceneBuilder() error {
	if c.srv.disconnected.Load() || !c.srv.builder.Sync(func() {}) {
		return ErrDisconnected
	}
	return nil
}

// WaitFlushed implements API.
func (c *Client) WaitFlushed() error {
	if err := c.FlushSceneBuilder(); err != nil {
		return err
	}
	if !c.srv.backend.Sync(func() {}) {
		return ErrDisconnected
	}
	return nil
}

// OnFrameRendered implements API.
func (c *Client) OnFrameRendered(fn func(Frame)) func() {
	if fn == nil {
		return func() {}
	}
	return c.srv.subscribe(fn)
}
