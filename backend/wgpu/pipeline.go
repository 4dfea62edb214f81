// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

//go:embed shaders/quad.wgsl
var quadShaderSource string

// quadVertexStride is the byte stride of one vertex:
//
//	position (vec2<f32>) = 8 bytes  (location 0)
//	color    (vec4<f32>) = 16 bytes (location 1)
const quadVertexStride = 24

// viewportUniformSize is origin (vec2<f32>) followed by size (vec2<f32>).
const viewportUniformSize = 16

// targetFormat is the texture format of every GPU-side target copy. It
// matches the byte order of image.RGBA so uploads need no conversion.
const targetFormat = gputypes.TextureFormatRGBA8Unorm

// validateShader compiles the quad shader to SPIR-V with naga, which
// reports WGSL errors with line information before the driver sees them.
func validateShader() error {
	spirv, err := naga.Compile(quadShaderSource)
	if err != nil {
		return fmt.Errorf("wgpu: compile quad shader: %w", err)
	}
	if len(spirv) == 0 || len(spirv)%4 != 0 {
		return fmt.Errorf("wgpu: quad shader produced %d bytes of SPIR-V", len(spirv))
	}
	return nil
}

// quadPipelines holds the GPU objects shared by every quad pass.
type quadPipelines struct {
	device hal.Device

	shader        hal.ShaderModule
	uniformLayout hal.BindGroupLayout
	pipeLayout    hal.PipelineLayout

	// over blends premultiplied colors over the target.
	over hal.RenderPipeline
	// replace writes colors unblended; used for clears.
	replace hal.RenderPipeline
}

func newQuadPipelines(device hal.Device) (*quadPipelines, error) {
	p := &quadPipelines{device: device}
	if err := p.create(); err != nil {
		p.destroy()
		return nil, err
	}
	return p, nil
}

func (p *quadPipelines) create() error {
	shader, err := p.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "quad_shader",
		Source: hal.ShaderSource{WGSL: quadShaderSource},
	})
	if err != nil {
		return fmt.Errorf("create quad shader: %w", err)
	}
	p.shader = shader

	uniformLayout, err := p.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "quad_uniform_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create quad uniform layout: %w", err)
	}
	p.uniformLayout = uniformLayout

	pipeLayout, err := p.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "quad_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.uniformLayout},
	})
	if err != nil {
		return fmt.Errorf("create quad pipeline layout: %w", err)
	}
	p.pipeLayout = pipeLayout

	premul := gputypes.BlendStatePremultiplied()
	if p.over, err = p.pipeline("quad_over_pipeline", &premul); err != nil {
		return err
	}
	if p.replace, err = p.pipeline("quad_replace_pipeline", nil); err != nil {
		return err
	}
	return nil
}

func (p *quadPipelines) pipeline(label string, blend *gputypes.BlendState) (hal.RenderPipeline, error) {
	pipeline, err := p.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  label,
		Layout: p.pipeLayout,
		Vertex: hal.VertexState{
			Module:     p.shader,
			EntryPoint: "vs_main",
			Buffers:    quadVertexLayout(),
		},
		Fragment: &hal.FragmentState{
			Module:     p.shader,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{
				{
					Format:    targetFormat,
					Blend:     blend,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", label, err)
	}
	return pipeline, nil
}

// destroy releases everything in reverse creation order. It tolerates a
// partially created set.
func (p *quadPipelines) destroy() {
	if p.device == nil {
		return
	}
	if p.replace != nil {
		p.device.DestroyRenderPipeline(p.replace)
		p.replace = nil
	}
	if p.over != nil {
		p.device.DestroyRenderPipeline(p.over)
		p.over = nil
	}
	if p.pipeLayout != nil {
		p.device.DestroyPipelineLayout(p.pipeLayout)
		p.pipeLayout = nil
	}
	if p.uniformLayout != nil {
		p.device.DestroyBindGroupLayout(p.uniformLayout)
		p.uniformLayout = nil
	}
	if p.shader != nil {
		p.device.DestroyShaderModule(p.shader)
		p.shader = nil
	}
}

func quadVertexLayout() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: quadVertexStride,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
				{Format: gputypes.VertexFormatFloat32x4, Offset: 8, ShaderLocation: 1},
			},
		},
	}
}
