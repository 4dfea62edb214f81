// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"math"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/geom"
	"github.com/gogpu/compositor/render"
)

// copyPitchAlignment is the row alignment required for texture to buffer
// copies.
const copyPitchAlignment = 256

// fenceTimeout bounds the wait for one quad pass.
const fenceTimeout = 5 * time.Second

var errClosed = errors.New("wgpu: compositor closed")

func init() {
	render.Register("wgpu", func(width, height int, opts ...render.Option) (render.Compositor, error) {
		return Open(width, height, opts...)
	})
}

// Compositor is a [render.Compositor] that draws solid quads and clears on
// the GPU and everything else on the CPU.
type Compositor struct {
	cpu *render.SoftwareCompositor

	// owned is set when the compositor opened the device itself.
	owned  *device
	device hal.Device
	queue  hal.Queue
	pipes  *quadPipelines

	pending batch
	scratch scratchTexture

	passes    int
	fallbacks int
	gpuDraws  int
}

var (
	_ render.Compositor = (*Compositor)(nil)
	_ render.Readback   = (*Compositor)(nil)
)

// Open opens the first Vulkan adapter and creates a compositor drawing to
// a width x height screen. Close releases the device.
func Open(width, height int, opts ...render.Option) (*Compositor, error) {
	if err := validateShader(); err != nil {
		return nil, err
	}
	d, err := openDevice(gputypes.BackendVulkan)
	if err != nil {
		return nil, err
	}
	c, err := NewWithDevice(d.device, d.queue, width, height, opts...)
	if err != nil {
		d.release()
		return nil, err
	}
	c.owned = d
	return c, nil
}

// NewWithDevice creates a compositor on an existing device. The caller
// keeps ownership of device and queue.
func NewWithDevice(device hal.Device, queue hal.Queue, width, height int, opts ...render.Option) (*Compositor, error) {
	if device == nil || queue == nil {
		return nil, ErrNoAdapter
	}
	pipes, err := newQuadPipelines(device)
	if err != nil {
		return nil, fmt.Errorf("wgpu: %w", err)
	}
	o := render.ApplyOptions(opts...)
	limit := int(gputypes.DefaultLimits().MaxTextureDimension2D)
	if o.MaxTextureSize <= 0 || o.MaxTextureSize > limit {
		o.MaxTextureSize = limit
	}
	return &Compositor{
		cpu:    render.NewSoftwareCompositor(width, height, render.WithMaxTextureSize(o.MaxTextureSize), render.WithFormat(o.Format)),
		device: device,
		queue:  queue,
		pipes:  pipes,
	}, nil
}

// Close flushes pending work and releases GPU objects. The compositor keeps
// working on the CPU afterwards. Close is idempotent.
func (c *Compositor) Close() error {
	c.flush()
	if c.device == nil {
		return nil
	}
	c.scratch.destroy(c.device)
	if c.pipes != nil {
		c.pipes.destroy()
		c.pipes = nil
	}
	if c.owned != nil {
		c.owned.release()
		c.owned = nil
	}
	c.device, c.queue = nil, nil
	compositor.Logger().Info("wgpu: compositor closed", "passes", c.passes, "fallbacks", c.fallbacks)
	return nil
}

// Screen returns the screen pixels with all pending draws applied.
func (c *Compositor) Screen() *image.RGBA {
	c.flush()
	return c.cpu.Screen()
}

// ScreenTarget returns the screen target.
func (c *Compositor) ScreenTarget() render.Target { return c.cpu.ScreenTarget() }

// SetReady toggles whether frames may be drawn.
func (c *Compositor) SetReady(ready bool) { c.cpu.SetReady(ready) }

// Resize replaces the screen with a new width x height one.
func (c *Compositor) Resize(width, height int) {
	c.flush()
	c.cpu.Resize(width, height)
}

// Frames returns the number of completed frames.
func (c *Compositor) Frames() int { return c.cpu.Frames() }

// LiveTargets returns the number of offscreen targets not yet released.
func (c *Compositor) LiveTargets() int { return c.cpu.LiveTargets() }

// Passes returns the number of quad passes run on the GPU.
func (c *Compositor) Passes() int { return c.passes }

// Fallbacks returns the number of batches replayed on the CPU.
func (c *Compositor) Fallbacks() int { return c.fallbacks }

// GPUDraws returns the number of quads and clears drawn by the GPU.
func (c *Compositor) GPUDraws() int { return c.gpuDraws }

// Ready implements render.Compositor.
func (c *Compositor) Ready() bool { return c.cpu.Ready() }

// MaxTextureSize implements render.Compositor.
func (c *Compositor) MaxTextureSize() int { return c.cpu.MaxTextureSize() }

// CreateRenderTarget implements render.Compositor.
func (c *Compositor) CreateRenderTarget(rect image.Rectangle, init render.InitMode) (render.Target, error) {
	return c.cpu.CreateRenderTarget(rect, init)
}

// CreateRenderTargetFromSource implements render.Compositor.
func (c *Compositor) CreateRenderTargetFromSource(rect image.Rectangle, source render.Target, sourceOffset image.Point) (render.Target, error) {
	if st, ok := source.(*render.SoftwareTarget); ok && st == c.pending.target {
		c.flush()
	}
	return c.cpu.CreateRenderTargetFromSource(rect, source, sourceOffset)
}

// ReleaseRenderTarget implements render.Compositor.
func (c *Compositor) ReleaseRenderTarget(t render.Target) { c.cpu.ReleaseRenderTarget(t) }

// SetRenderTarget implements render.Compositor.
func (c *Compositor) SetRenderTarget(t render.Target) {
	c.flush()
	c.cpu.SetRenderTarget(t)
}

// CurrentRenderTarget implements render.Compositor.
func (c *Compositor) CurrentRenderTarget() render.Target { return c.cpu.CurrentRenderTarget() }

// ClearRect implements render.Compositor.
func (c *Compositor) ClearRect(rect image.Rectangle) {
	t := c.current()
	if t == nil {
		return
	}
	c.bind(t)
	c.pending.addClear(rect)
}

// DrawQuad implements render.Compositor.
func (c *Compositor) DrawQuad(rect geom.Rect, clip image.Rectangle, effects render.EffectChain, opacity float32, transform geom.Matrix4x4) {
	t := c.current()
	if t == nil || opacity <= 0 || rect.Empty() {
		return
	}
	if solid, ok := gpuSolid(effects, transform); ok {
		c.bind(t)
		c.pending.addQuad(rect, clip, solid.Color, opacity, transform)
		return
	}
	c.flush()
	c.cpu.DrawQuad(rect, clip, effects, opacity, transform)
}

// BeginFrame implements render.Compositor.
func (c *Compositor) BeginFrame(invalid geom.Region, clip *image.Rectangle, bounds image.Rectangle, opaque geom.Region) image.Rectangle {
	c.flush()
	return c.cpu.BeginFrame(invalid, clip, bounds, opaque)
}

// EndFrame implements render.Compositor.
func (c *Compositor) EndFrame() {
	c.flush()
	c.cpu.EndFrame()
}

// ReadPixels implements render.Readback.
func (c *Compositor) ReadPixels(rect image.Rectangle) (*image.RGBA, error) {
	c.flush()
	return c.cpu.ReadPixels(rect)
}

// gpuSolid reports whether a quad can be drawn by the quad pipeline.
func gpuSolid(effects render.EffectChain, transform geom.Matrix4x4) (render.SolidColorEffect, bool) {
	solid, ok := effects.Primary.(render.SolidColorEffect)
	if !ok || effects.Mask != nil || effects.Blend != render.BlendNormal || effects.ColorMatrix != nil {
		return render.SolidColorEffect{}, false
	}
	return solid, !transform.HasPerspective()
}

func (c *Compositor) current() *render.SoftwareTarget {
	st, ok := c.cpu.CurrentRenderTarget().(*render.SoftwareTarget)
	if !ok || st.Image() == nil {
		return nil
	}
	return st
}

// bind directs the pending batch at t, flushing work for another target.
func (c *Compositor) bind(t *render.SoftwareTarget) {
	if c.pending.target != t {
		c.flush()
		c.pending.target = t
	}
}

// flush draws the pending batch into its target.
func (c *Compositor) flush() {
	b := &c.pending
	if b.empty() {
		return
	}
	defer b.reset()
	img := b.target.Image()
	if img == nil {
		return
	}
	if err := c.drawBatch(img, b); err != nil {
		compositor.Logger().Warn("wgpu: quad pass failed, drawing on CPU", "ops", len(b.ops), "err", err)
		c.fallbacks++
		b.replay(c.cpu)
		return
	}
	c.passes++
	c.gpuDraws += len(b.ops)
}

// drawBatch uploads img, runs the quad pass over it and reads the result
// back into img.
func (c *Compositor) drawBatch(img *image.RGBA, b *batch) error {
	if c.device == nil || c.pipes == nil {
		return errClosed
	}
	w, h := uint32(img.Rect.Dx()), uint32(img.Rect.Dy()) //nolint:gosec // target size is bounded by MaxTextureSize
	if err := c.scratch.ensure(c.device, w, h); err != nil {
		return err
	}
	tex := c.scratch.tex
	extent := hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1}

	c.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: tex, MipLevel: 0},
		img.Pix,
		&hal.ImageDataLayout{Offset: 0, BytesPerRow: uint32(img.Stride), RowsPerImage: h}, //nolint:gosec // stride of a bounded target
		&extent,
	)

	vertBuf, err := c.upload("quad_verts", b.verts, gputypes.BufferUsageVertex|gputypes.BufferUsageCopyDst)
	if err != nil {
		return err
	}
	defer c.device.DestroyBuffer(vertBuf)

	uniformBuf, err := c.upload("quad_viewport", viewportUniform(img.Rect), gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst)
	if err != nil {
		return err
	}
	defer c.device.DestroyBuffer(uniformBuf)

	bindGroup, err := c.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "quad_bind",
		Layout: c.pipes.uniformLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{
				Buffer: uniformBuf.NativeHandle(), Offset: 0, Size: viewportUniformSize,
			}},
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group: %w", err)
	}
	defer c.device.DestroyBindGroup(bindGroup)

	encoder, err := c.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "quad_encoder"})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("quad_batch"); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}

	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopyDst,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})

	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "quad_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:    c.scratch.view,
			LoadOp:  gputypes.LoadOpLoad,
			StoreOp: gputypes.StoreOpStore,
		}},
	})
	var bound hal.RenderPipeline
	for _, op := range b.ops {
		pipeline := c.pipes.over
		if op.kind == opClear {
			pipeline = c.pipes.replace
		}
		if pipeline != bound {
			rp.SetPipeline(pipeline)
			rp.SetBindGroup(0, bindGroup, nil)
			rp.SetVertexBuffer(0, vertBuf, 0)
			bound = pipeline
		}
		rp.Draw(op.count, 1, op.first, 0)
	}
	rp.End()

	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})

	bytesPerRow := w * 4
	alignedBytesPerRow := (bytesPerRow + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
	stagingSize := uint64(alignedBytesPerRow) * uint64(h)
	staging, err := c.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "quad_staging",
		Size:  stagingSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		encoder.DiscardEncoding()
		return fmt.Errorf("create staging buffer: %w", err)
	}
	defer c.device.DestroyBuffer(staging)

	encoder.CopyTextureToBuffer(tex, staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: alignedBytesPerRow, RowsPerImage: h},
		TextureBase:  hal.ImageCopyTexture{Texture: tex, MipLevel: 0},
		Size:         extent,
	}})

	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageCopyDst,
		},
	}})

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer c.device.FreeCommandBuffer(cmdBuf)

	fence, err := c.device.CreateFence()
	if err != nil {
		return fmt.Errorf("create fence: %w", err)
	}
	defer c.device.DestroyFence(fence)

	if err := c.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	ok, err := c.device.Wait(fence, 1, fenceTimeout)
	if err != nil || !ok {
		return fmt.Errorf("wait for GPU: ok=%v err=%w", ok, err)
	}

	readback := make([]byte, stagingSize)
	if err := c.queue.ReadBuffer(staging, 0, readback); err != nil {
		return fmt.Errorf("readback: %w", err)
	}
	for row := 0; row < int(h); row++ {
		src := readback[row*int(alignedBytesPerRow):][:bytesPerRow]
		copy(img.Pix[row*img.Stride:], src)
	}
	return nil
}

func (c *Compositor) upload(label string, data []byte, usage gputypes.BufferUsage) (hal.Buffer, error) {
	buf, err := c.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", label, err)
	}
	c.queue.WriteBuffer(buf, 0, data)
	return buf, nil
}

// viewportUniform encodes the origin and size of a target.
func viewportUniform(r image.Rectangle) []byte {
	buf := make([]byte, 0, viewportUniformSize)
	for _, v := range [4]int{r.Min.X, r.Min.Y, r.Dx(), r.Dy()} {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(float32(v)))
	}
	return buf
}

// scratchTexture is the GPU copy of the target being drawn. It is reused
// across batches and recreated when the target size changes.
type scratchTexture struct {
	tex           hal.Texture
	view          hal.TextureView
	width, height uint32
}

func (s *scratchTexture) ensure(device hal.Device, width, height uint32) error {
	if s.tex != nil && s.width == width && s.height == height {
		return nil
	}
	s.destroy(device)

	tex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         "quad_target",
		Size:          hal.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        targetFormat,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create target texture: %w", err)
	}
	view, err := device.CreateTextureView(tex, &hal.TextureViewDescriptor{Label: "quad_target_view"})
	if err != nil {
		device.DestroyTexture(tex)
		return fmt.Errorf("create target texture view: %w", err)
	}
	s.tex, s.view = tex, view
	s.width, s.height = width, height
	return nil
}

func (s *scratchTexture) destroy(device hal.Device) {
	if s.view != nil {
		device.DestroyTextureView(s.view)
		s.view = nil
	}
	if s.tex != nil {
		device.DestroyTexture(s.tex)
		s.tex = nil
	}
	s.width, s.height = 0, 0
}
