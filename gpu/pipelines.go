package gpu

import (
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/partview3d/partview/core"
	"github.com/partview3d/partview/shaders"
)

// GridVertex is the interleaved layout of the grid quad.
type GridVertex struct {
	Pos   [3]float32
	Plane [2]float32
}

// MeshPipelineKey selects the mesh pipeline variant: vertex-colored vs
// uniform-colored, and transparent (blending on, depth write off) vs opaque.
type MeshPipelineKey struct {
	VertexColored bool
	Transparent   bool
}

// PipelineFactory builds and caches the render pipelines for every object
// type. Caches are invalidated when pipeline state requirements change
// (sample count, grid transparency), not for uniform or geometry edits.
type PipelineFactory struct {
	ctx *Context

	meshModule      *wgpu.ShaderModule
	lineModule      *wgpu.ShaderModule
	gridModule      *wgpu.ShaderModule
	billboardModule *wgpu.ShaderModule

	// FrameBGL is group 0 (FrameData) for every pipeline.
	FrameBGL     *wgpu.BindGroupLayout
	MeshBGL      *wgpu.BindGroupLayout
	LineBGL      *wgpu.BindGroupLayout
	GridBGL      *wgpu.BindGroupLayout
	BillboardBGL *wgpu.BindGroupLayout

	meshPipelines map[MeshPipelineKey]*wgpu.RenderPipeline
	linePipeline  *wgpu.RenderPipeline
	gridPipelines map[bool]*wgpu.RenderPipeline // keyed by transparency
	billboard     *wgpu.RenderPipeline
}

func NewPipelineFactory(ctx *Context) (*PipelineFactory, error) {
	f := &PipelineFactory{
		ctx:           ctx,
		meshPipelines: make(map[MeshPipelineKey]*wgpu.RenderPipeline),
		gridPipelines: make(map[bool]*wgpu.RenderPipeline),
	}

	var err error
	load := func(label, code string) *wgpu.ShaderModule {
		if err != nil {
			return nil
		}
		var mod *wgpu.ShaderModule
		mod, err = ctx.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
			Label:          label,
			WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: code},
		})
		return mod
	}
	f.meshModule = load("MeshShader", shaders.MeshWGSL)
	f.lineModule = load("LineShader", shaders.LineWGSL)
	f.gridModule = load("GridShader", shaders.GridWGSL)
	f.billboardModule = load("BillboardShader", shaders.BillboardWGSL)
	if err != nil {
		return nil, err
	}

	f.FrameBGL, err = f.uniformLayout("FrameBGL", uint64(unsafe.Sizeof(FrameUniforms{})), wgpu.ShaderStageVertex|wgpu.ShaderStageFragment)
	if err != nil {
		return nil, err
	}
	f.MeshBGL, err = f.uniformLayout("MeshObjectBGL", uint64(unsafe.Sizeof(ObjectUniforms{})), wgpu.ShaderStageVertex)
	if err != nil {
		return nil, err
	}
	f.LineBGL, err = f.uniformLayout("LineObjectBGL", uint64(unsafe.Sizeof(LineUniforms{})), wgpu.ShaderStageVertex)
	if err != nil {
		return nil, err
	}
	f.GridBGL, err = f.uniformLayout("GridObjectBGL", uint64(unsafe.Sizeof(GridUniforms{})), wgpu.ShaderStageFragment)
	if err != nil {
		return nil, err
	}

	f.BillboardBGL, err = ctx.Device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "BillboardBGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageFragment,
				Sampler:    wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		return nil, err
	}

	return f, nil
}

func (f *PipelineFactory) uniformLayout(label string, size uint64, visibility wgpu.ShaderStage) (*wgpu.BindGroupLayout, error) {
	return f.ctx.Device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: label,
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: visibility,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: size,
				},
			},
		},
	})
}

// Invalidate drops every cached pipeline. Called after sample count or other
// pipeline-state changes; cached bind group layouts stay valid.
func (f *PipelineFactory) Invalidate() {
	f.meshPipelines = make(map[MeshPipelineKey]*wgpu.RenderPipeline)
	f.gridPipelines = make(map[bool]*wgpu.RenderPipeline)
	f.linePipeline = nil
	f.billboard = nil
}

func blendOver() *wgpu.BlendState {
	return &wgpu.BlendState{
		Color: wgpu.BlendComponent{
			Operation: wgpu.BlendOperationAdd,
			SrcFactor: wgpu.BlendFactorSrcAlpha,
			DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		},
		Alpha: wgpu.BlendComponent{
			Operation: wgpu.BlendOperationAdd,
			SrcFactor: wgpu.BlendFactorOne,
			DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		},
	}
}

func (f *PipelineFactory) depthState(depthWrite bool) *wgpu.DepthStencilState {
	return &wgpu.DepthStencilState{
		Format:            DepthFormat,
		DepthWriteEnabled: depthWrite,
		DepthCompare:      wgpu.CompareFunctionLess,
		StencilFront:      wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
		StencilBack:       wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
	}
}

func (f *PipelineFactory) colorTarget(transparent bool) wgpu.ColorTargetState {
	target := wgpu.ColorTargetState{
		Format:    f.ctx.Format(),
		WriteMask: wgpu.ColorWriteMaskAll,
	}
	if transparent {
		target.Blend = blendOver()
	}
	return target
}

func (f *PipelineFactory) multisample() wgpu.MultisampleState {
	return wgpu.MultisampleState{
		Count: f.ctx.SampleCount,
		Mask:  0xFFFFFFFF,
	}
}

func (f *PipelineFactory) pipelineLayout(objectBGL *wgpu.BindGroupLayout) (*wgpu.PipelineLayout, error) {
	return f.ctx.Device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		BindGroupLayouts: []*wgpu.BindGroupLayout{f.FrameBGL, objectBGL},
	})
}

// MeshPipeline returns the pipeline for the given color/transparency
// variant, building it on first use.
func (f *PipelineFactory) MeshPipeline(key MeshPipelineKey) (*wgpu.RenderPipeline, error) {
	if p, ok := f.meshPipelines[key]; ok {
		return p, nil
	}

	layout, err := f.pipelineLayout(f.MeshBGL)
	if err != nil {
		return nil, err
	}

	entry := "vs_uniform"
	buffers := []wgpu.VertexBufferLayout{
		{
			ArrayStride: 3 * 4,
			StepMode:    wgpu.VertexStepModeVertex,
			Attributes: []wgpu.VertexAttribute{
				{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
			},
		},
	}
	if key.VertexColored {
		entry = "vs_vertex"
		buffers = append(buffers, wgpu.VertexBufferLayout{
			ArrayStride: 4 * 4,
			StepMode:    wgpu.VertexStepModeVertex,
			Attributes: []wgpu.VertexAttribute{
				{Format: wgpu.VertexFormatFloat32x4, Offset: 0, ShaderLocation: 1},
			},
		})
	}

	pipeline, err := f.ctx.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "MeshPipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     f.meshModule,
			EntryPoint: entry,
			Buffers:    buffers,
		},
		Fragment: &wgpu.FragmentState{
			Module:     f.meshModule,
			EntryPoint: "fs_main",
			Targets:    []wgpu.ColorTargetState{f.colorTarget(key.Transparent)},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		DepthStencil: f.depthState(!key.Transparent),
		Multisample:  f.multisample(),
	})
	if err != nil {
		return nil, err
	}
	f.meshPipelines[key] = pipeline
	return pipeline, nil
}

// LinePipeline returns the stadium-line pipeline. Lines always blend, so
// there is a single transparent variant with depth writes off.
func (f *PipelineFactory) LinePipeline() (*wgpu.RenderPipeline, error) {
	if f.linePipeline != nil {
		return f.linePipeline, nil
	}

	layout, err := f.pipelineLayout(f.LineBGL)
	if err != nil {
		return nil, err
	}

	vec3Buf := func(loc uint32) wgpu.VertexBufferLayout {
		return wgpu.VertexBufferLayout{
			ArrayStride: 3 * 4,
			StepMode:    wgpu.VertexStepModeVertex,
			Attributes: []wgpu.VertexAttribute{
				{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: loc},
			},
		}
	}
	scalarBuf := func(loc uint32) wgpu.VertexBufferLayout {
		return wgpu.VertexBufferLayout{
			ArrayStride: 4,
			StepMode:    wgpu.VertexStepModeVertex,
			Attributes: []wgpu.VertexAttribute{
				{Format: wgpu.VertexFormatFloat32, Offset: 0, ShaderLocation: loc},
			},
		}
	}

	pipeline, err := f.ctx.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "LinePipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     f.lineModule,
			EntryPoint: "vs_main",
			Buffers: []wgpu.VertexBufferLayout{
				vec3Buf(0), // start positions
				vec3Buf(1), // end positions
				{
					ArrayStride: 4 * 4,
					StepMode:    wgpu.VertexStepModeVertex,
					Attributes: []wgpu.VertexAttribute{
						{Format: wgpu.VertexFormatFloat32x4, Offset: 0, ShaderLocation: 2},
					},
				},
				{
					ArrayStride: 2 * 4,
					StepMode:    wgpu.VertexStepModeVertex,
					Attributes: []wgpu.VertexAttribute{
						{Format: wgpu.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 3},
					},
				},
				scalarBuf(4), // thickness
				scalarBuf(5), // fade
			},
		},
		Fragment: &wgpu.FragmentState{
			Module:     f.lineModule,
			EntryPoint: "fs_main",
			Targets:    []wgpu.ColorTargetState{f.colorTarget(true)},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		DepthStencil: f.depthState(false),
		Multisample:  f.multisample(),
	})
	if err != nil {
		return nil, err
	}
	f.linePipeline = pipeline
	return pipeline, nil
}

// GridPipeline returns the grid pipeline for the requested transparency.
// Toggling transparency changes depth-write and blend state, which is why
// the grid needs a full pipeline rebuild rather than a uniform write.
func (f *PipelineFactory) GridPipeline(transparent bool) (*wgpu.RenderPipeline, error) {
	if p, ok := f.gridPipelines[transparent]; ok {
		return p, nil
	}

	layout, err := f.pipelineLayout(f.GridBGL)
	if err != nil {
		return nil, err
	}

	pipeline, err := f.ctx.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "GridPipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     f.gridModule,
			EntryPoint: "vs_main",
			Buffers: []wgpu.VertexBufferLayout{
				{
					ArrayStride: uint64(unsafe.Sizeof(GridVertex{})),
					StepMode:    wgpu.VertexStepModeVertex,
					Attributes: []wgpu.VertexAttribute{
						{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
						{Format: wgpu.VertexFormatFloat32x2, Offset: 12, ShaderLocation: 1},
					},
				},
			},
		},
		Fragment: &wgpu.FragmentState{
			Module:     f.gridModule,
			EntryPoint: "fs_main",
			Targets:    []wgpu.ColorTargetState{f.colorTarget(transparent)},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		DepthStencil: f.depthState(!transparent),
		Multisample:  f.multisample(),
	})
	if err != nil {
		return nil, err
	}
	f.gridPipelines[transparent] = pipeline
	return pipeline, nil
}

// BillboardPipeline returns the text-billboard pipeline.
func (f *PipelineFactory) BillboardPipeline() (*wgpu.RenderPipeline, error) {
	if f.billboard != nil {
		return f.billboard, nil
	}

	layout, err := f.pipelineLayout(f.BillboardBGL)
	if err != nil {
		return nil, err
	}

	pipeline, err := f.ctx.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "BillboardPipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     f.billboardModule,
			EntryPoint: "vs_main",
			Buffers: []wgpu.VertexBufferLayout{
				{
					ArrayStride: uint64(unsafe.Sizeof(core.BillboardVertex{})),
					StepMode:    wgpu.VertexStepModeVertex,
					Attributes: []wgpu.VertexAttribute{
						{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
						{Format: wgpu.VertexFormatFloat32x2, Offset: 12, ShaderLocation: 1},
						{Format: wgpu.VertexFormatFloat32x2, Offset: 20, ShaderLocation: 2},
						{Format: wgpu.VertexFormatFloat32x4, Offset: 28, ShaderLocation: 3},
					},
				},
			},
		},
		Fragment: &wgpu.FragmentState{
			Module:     f.billboardModule,
			EntryPoint: "fs_main",
			Targets:    []wgpu.ColorTargetState{f.colorTarget(true)},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		DepthStencil: f.depthState(false),
		Multisample:  f.multisample(),
	})
	if err != nil {
		return nil, err
	}
	f.billboard = pipeline
	return pipeline, nil
}
