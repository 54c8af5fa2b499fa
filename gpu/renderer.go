package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/partview3d/partview/core"
)

type gridObject struct {
	vertexBuf   *wgpu.Buffer
	uniformBuf  *wgpu.Buffer
	bindGroup   *wgpu.BindGroup
	pipeline    *wgpu.RenderPipeline
	transparent bool
	vertexCount uint32
	ready       bool
}

func (g *gridObject) release() {
	if g.vertexBuf != nil {
		g.vertexBuf.Release()
		g.vertexBuf = nil
	}
	if g.uniformBuf != nil {
		g.uniformBuf.Release()
		g.uniformBuf = nil
	}
	g.bindGroup = nil
	g.pipeline = nil
	g.ready = false
}

// Renderer is the per-frame orchestrator: it writes the shared camera
// uniforms, runs the opaque pass, then the depth-sorted transparent pass.
// It owns the built-in grid and coordinate-axes objects and reacts to
// option diffs with the cheapest sufficient rebuild.
type Renderer struct {
	ctx      *Context
	factory  *PipelineFactory
	Registry *Registry
	camera   *core.OrbitCamera
	opts     *core.Options
	log      core.Logger

	frameBuf *wgpu.Buffer
	frameBG  *wgpu.BindGroup

	grid *gridObject
	axes *lineEntry
}

func NewRenderer(ctx *Context, camera *core.OrbitCamera, opts *core.Options, atlas *core.GlyphAtlas, log core.Logger) (*Renderer, error) {
	if log == nil {
		log = core.NewNopLogger()
	}

	factory, err := NewPipelineFactory(ctx)
	if err != nil {
		return nil, fmt.Errorf("create pipeline factory: %w", err)
	}
	registry, err := NewRegistry(ctx, factory, atlas, log)
	if err != nil {
		return nil, fmt.Errorf("create registry: %w", err)
	}

	r := &Renderer{
		ctx:      ctx,
		factory:  factory,
		Registry: registry,
		camera:   camera,
		opts:     opts,
		log:      log,
		grid:     &gridObject{},
	}

	uniforms := FrameUniforms{}
	r.frameBuf, err = newBufferWith(ctx, "FrameUB", structBytes(&uniforms), wgpu.BufferUsageUniform)
	if err != nil {
		return nil, fmt.Errorf("create frame uniform buffer: %w", err)
	}
	r.frameBG, err = registry.uniformBindGroup("FrameBG", factory.FrameBGL, r.frameBuf, uint64(len(structBytes(&uniforms))))
	if err != nil {
		return nil, fmt.Errorf("create frame bind group: %w", err)
	}

	if err := r.buildGrid(); err != nil {
		return nil, err
	}
	if err := r.buildAxes(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Renderer) gridUniforms() GridUniforms {
	return GridUniforms{
		Color: [4]float32{r.opts.LineColor.X(), r.opts.LineColor.Y(), r.opts.LineColor.Z(), r.opts.LineColor.W()},
		Params: [4]float32{
			r.opts.GridSpacing,
			r.opts.LineWidthX,
			r.opts.LineWidthY,
			0,
		},
	}
}

// buildGrid (re)creates the grid quad in the ground plane of the current
// up-axis convention. Lines themselves are procedural in the fragment stage.
func (r *Renderer) buildGrid() error {
	r.grid.release()

	half := r.opts.GridSize / 2
	if half <= 0 {
		// Degenerate grid stays invisible but valid.
		r.grid.ready = false
		return nil
	}

	corner := func(a, b float32) GridVertex {
		if r.opts.ZIsUp {
			return GridVertex{Pos: [3]float32{a, b, 0}, Plane: [2]float32{a, b}}
		}
		return GridVertex{Pos: [3]float32{a, 0, b}, Plane: [2]float32{a, b}}
	}
	quad := []GridVertex{
		corner(-half, -half), corner(half, -half), corner(-half, half),
		corner(half, -half), corner(half, half), corner(-half, half),
	}

	data := make([]float32, 0, len(quad)*5)
	for _, v := range quad {
		data = append(data, v.Pos[0], v.Pos[1], v.Pos[2], v.Plane[0], v.Plane[1])
	}

	var err error
	r.grid.vertexBuf, err = newBufferWith(r.ctx, "GridVB", float32Bytes(data), wgpu.BufferUsageVertex)
	if err != nil {
		return fmt.Errorf("create grid vertex buffer: %w", err)
	}

	uniforms := r.gridUniforms()
	r.grid.uniformBuf, err = newBufferWith(r.ctx, "GridUB", structBytes(&uniforms), wgpu.BufferUsageUniform)
	if err != nil {
		return fmt.Errorf("create grid uniform buffer: %w", err)
	}
	r.grid.bindGroup, err = r.Registry.uniformBindGroup("GridBG", r.factory.GridBGL, r.grid.uniformBuf, uint64(len(structBytes(&uniforms))))
	if err != nil {
		return fmt.Errorf("create grid bind group: %w", err)
	}

	r.grid.transparent = r.opts.LineColor.W() < 1
	r.grid.pipeline, err = r.factory.GridPipeline(r.grid.transparent)
	if err != nil {
		return fmt.Errorf("create grid pipeline: %w", err)
	}
	r.grid.vertexCount = uint32(len(quad))
	r.grid.ready = true
	return nil
}

// buildAxes (re)creates the coordinate axes as three stadium segments along
// +X/+Y/+Z. Their thickness attribute is 1; the actual width comes from the
// CoordinateThickness uniform so width edits skip geometry regeneration.
func (r *Renderer) buildAxes() error {
	if r.axes != nil {
		r.axes.release()
		r.axes = nil
	}

	length := r.opts.AxisLength
	if length <= 0 {
		return nil
	}

	segments := [][2]mgl32.Vec3{
		{{0, 0, 0}, {length, 0, 0}},
		{{0, 0, 0}, {0, length, 0}},
		{{0, 0, 0}, {0, 0, length}},
	}
	colors := []mgl32.Vec4{
		{0.9, 0.2, 0.2, 1},
		{0.2, 0.8, 0.2, 1},
		{0.25, 0.4, 0.95, 1},
	}
	thickness := []float32{1, 1, 1}
	fades := []float32{0, 0, 0}

	g, err := core.BuildSegmentsGeometry(segments, thickness, colors, fades)
	if err != nil {
		return fmt.Errorf("build axes geometry: %w", err)
	}
	r.axes, err = r.Registry.newLineEntry("axes", g, mgl32.Vec3{}, r.opts.CoordinateThickness)
	if err != nil {
		return fmt.Errorf("create axes entry: %w", err)
	}
	return nil
}

func (r *Renderer) writeGridUniforms() {
	if r.grid.uniformBuf == nil {
		return
	}
	uniforms := r.gridUniforms()
	if err := r.ctx.Queue.WriteBuffer(r.grid.uniformBuf, 0, structBytes(&uniforms)); err != nil {
		r.ctx.ReportError("write grid uniforms failed", err)
	}
}

func (r *Renderer) writeAxesUniforms() {
	if r.axes == nil || r.axes.uniformBuf == nil {
		return
	}
	uniforms := LineUniforms{Params: [4]float32{r.opts.CoordinateThickness}}
	if err := r.ctx.Queue.WriteBuffer(r.axes.uniformBuf, 0, structBytes(&uniforms)); err != nil {
		r.ctx.ReportError("write axes uniforms failed", err)
	}
}

// rebuildPipelines re-resolves every object's pipeline after a cache
// invalidation (sample count change, grid transparency flip).
func (r *Renderer) rebuildPipelines() {
	for _, e := range r.Registry.meshes {
		pipeline, err := r.factory.MeshPipeline(MeshPipelineKey{
			VertexColored: e.colorBuf != nil,
			Transparent:   e.transparent,
		})
		if err != nil {
			r.ctx.ReportError("rebuild mesh pipeline failed", err)
			e.ready = false
			continue
		}
		e.pipeline = pipeline
		e.ready = true
	}
	for _, e := range r.Registry.lines {
		pipeline, err := r.factory.LinePipeline()
		if err != nil {
			r.ctx.ReportError("rebuild line pipeline failed", err)
			e.ready = false
			continue
		}
		e.pipeline = pipeline
		e.ready = true
	}
	if r.axes != nil {
		pipeline, err := r.factory.LinePipeline()
		if err == nil {
			r.axes.pipeline = pipeline
		}
	}
	if _, err := r.factory.BillboardPipeline(); err != nil {
		r.ctx.ReportError("rebuild billboard pipeline failed", err)
	}
}

// ApplyOptions reacts to the diff between the previous option snapshot and
// the current live options: uniform rewrites for value changes, geometry
// regeneration for size changes, and full pipeline rebuilds only when the
// pipeline state requirements actually changed.
func (r *Renderer) ApplyOptions(previous *core.Options) {
	changes := core.Diff(previous, r.opts)
	if len(changes) == 0 {
		return
	}

	var uniform, geometry, pipeline bool
	for _, ch := range changes {
		switch ch.Reaction {
		case core.ReactionUniform:
			uniform = true
		case core.ReactionGeometry:
			geometry = true
		case core.ReactionPipeline:
			pipeline = true
			if ch.Field == "SampleCount" {
				r.ctx.SetSampleCount(r.opts.SampleCount)
			}
		}
		r.log.Debugf("option %s changed (reaction %d)", ch.Field, ch.Reaction)
	}

	if pipeline {
		r.factory.Invalidate()
		r.rebuildPipelines()
	}
	if geometry || pipeline {
		if err := r.buildGrid(); err != nil {
			r.ctx.ReportError("rebuild grid failed", err)
		}
		if err := r.buildAxes(); err != nil {
			r.ctx.ReportError("rebuild axes failed", err)
		}
	} else if uniform {
		r.writeGridUniforms()
		r.writeAxesUniforms()
	}
}

func (r *Renderer) writeFrameUniforms() {
	width := float32(r.ctx.Config.Width)
	height := float32(r.ctx.Config.Height)
	aspect := float32(1)
	if height > 0 {
		aspect = width / height
	}

	light := r.opts.LightDir
	if light.Len() > 1e-9 {
		light = light.Normalize()
	}
	pos := r.camera.Position()

	uniforms := FrameUniforms{
		View:     r.camera.ViewMatrix(),
		Proj:     r.camera.ProjectionMatrix(aspect),
		CamPos:   [4]float32{pos.X(), pos.Y(), pos.Z(), 1},
		LightDir: [4]float32{light.X(), light.Y(), light.Z(), r.opts.Ambient},
		Params:   [4]float32{width, height, r.opts.SpecularPower, 0},
	}
	if err := r.ctx.Queue.WriteBuffer(r.frameBuf, 0, structBytes(&uniforms)); err != nil {
		r.ctx.ReportError("write frame uniforms failed", err)
	}
}

func (r *Renderer) drawMesh(pass *wgpu.RenderPassEncoder, e *meshEntry) {
	pass.SetPipeline(e.pipeline)
	pass.SetBindGroup(0, r.frameBG, nil)
	pass.SetBindGroup(1, e.bindGroup, nil)
	pass.SetVertexBuffer(0, e.vertexBuf, 0, e.vertexBuf.GetSize())
	if e.colorBuf != nil {
		pass.SetVertexBuffer(1, e.colorBuf, 0, e.colorBuf.GetSize())
	}
	pass.SetIndexBuffer(e.indexBuf, wgpu.IndexFormatUint16, 0, e.indexBuf.GetSize())
	pass.DrawIndexed(e.indexCount, 1, 0, 0, 0)
}

func (r *Renderer) drawLines(pass *wgpu.RenderPassEncoder, e *lineEntry) {
	pass.SetPipeline(e.pipeline)
	pass.SetBindGroup(0, r.frameBG, nil)
	pass.SetBindGroup(1, e.bindGroup, nil)
	pass.SetVertexBuffer(0, e.posBuf, 0, e.posBuf.GetSize())
	pass.SetVertexBuffer(1, e.endBuf, 0, e.endBuf.GetSize())
	pass.SetVertexBuffer(2, e.colorBuf, 0, e.colorBuf.GetSize())
	pass.SetVertexBuffer(3, e.uvBuf, 0, e.uvBuf.GetSize())
	pass.SetVertexBuffer(4, e.thicknessBuf, 0, e.thicknessBuf.GetSize())
	pass.SetVertexBuffer(5, e.fadeBuf, 0, e.fadeBuf.GetSize())
	pass.SetIndexBuffer(e.indexBuf, wgpu.IndexFormatUint16, 0, e.indexBuf.GetSize())
	pass.DrawIndexed(e.indexCount, 1, 0, 0, 0)
}

func (r *Renderer) drawGrid(pass *wgpu.RenderPassEncoder) {
	pass.SetPipeline(r.grid.pipeline)
	pass.SetBindGroup(0, r.frameBG, nil)
	pass.SetBindGroup(1, r.grid.bindGroup, nil)
	pass.SetVertexBuffer(0, r.grid.vertexBuf, 0, r.grid.vertexBuf.GetSize())
	pass.Draw(r.grid.vertexCount, 1, 0, 0)
}

func (r *Renderer) drawBillboard(pass *wgpu.RenderPassEncoder, e *billboardEntry) {
	if e.vertexBuf == nil || e.vertexCount == 0 {
		return
	}
	pipeline, err := r.factory.BillboardPipeline()
	if err != nil {
		return
	}
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, r.frameBG, nil)
	pass.SetBindGroup(1, r.Registry.billboardBindGroup, nil)
	pass.SetVertexBuffer(0, e.vertexBuf, 0, e.vertexBuf.GetSize())
	pass.Draw(e.vertexCount, 1, 0, 0)
}

// collectTransparent gathers every transparent drawable with its sort key.
// Grid and axes are origin-anchored and use the squared origin-to-camera
// distance; everything else uses its view-space depth.
func (r *Renderer) collectTransparent(view mgl32.Mat4, camPos mgl32.Vec3) []transparentDraw {
	var draws []transparentDraw

	if r.grid.ready && r.grid.transparent {
		draws = append(draws, transparentDraw{
			key:  originDepthKey(camPos),
			draw: func(pass *wgpu.RenderPassEncoder) { r.drawGrid(pass) },
		})
	}
	if r.axes != nil && r.axes.ready {
		axes := r.axes
		draws = append(draws, transparentDraw{
			key:  originDepthKey(camPos),
			draw: func(pass *wgpu.RenderPassEncoder) { r.drawLines(pass, axes) },
		})
	}
	for _, e := range r.Registry.meshes {
		if !e.ready || !e.transparent {
			continue
		}
		entry := e
		draws = append(draws, transparentDraw{
			key:  viewDepthKey(view, e.center),
			draw: func(pass *wgpu.RenderPassEncoder) { r.drawMesh(pass, entry) },
		})
	}
	for _, e := range r.Registry.lines {
		if !e.ready {
			continue
		}
		entry := e
		draws = append(draws, transparentDraw{
			key:  viewDepthKey(view, e.center),
			draw: func(pass *wgpu.RenderPassEncoder) { r.drawLines(pass, entry) },
		})
	}
	for _, e := range r.Registry.billboards {
		if !e.ready {
			continue
		}
		entry := e
		draws = append(draws, transparentDraw{
			key:  viewDepthKey(view, e.position),
			draw: func(pass *wgpu.RenderPassEncoder) { r.drawBillboard(pass, entry) },
		})
	}
	return draws
}

// RenderFrame renders one frame. Frames are skipped outright while render
// targets are absent (zero-size canvas); individual draws whose resources
// are not ready yet are skipped silently and self-heal on later frames.
func (r *Renderer) RenderFrame() {
	if !r.ctx.TargetsReady() {
		return
	}

	surfaceTex, err := r.ctx.Surface.GetCurrentTexture()
	if err != nil {
		r.ctx.ReportError("acquire surface texture failed", err)
		return
	}
	defer surfaceTex.Release()

	surfaceView, err := surfaceTex.CreateView(nil)
	if err != nil {
		r.ctx.ReportError("create surface view failed", err)
		return
	}
	defer surfaceView.Release()

	r.writeFrameUniforms()

	encoder, err := r.ctx.Device.CreateCommandEncoder(nil)
	if err != nil {
		r.ctx.ReportError("create command encoder failed", err)
		return
	}

	clear := r.opts.ClearColor
	colorAttachment := wgpu.RenderPassColorAttachment{
		View:    surfaceView,
		LoadOp:  wgpu.LoadOpClear,
		StoreOp: wgpu.StoreOpStore,
		ClearValue: wgpu.Color{
			R: float64(clear.X()),
			G: float64(clear.Y()),
			B: float64(clear.Z()),
			A: float64(clear.W()),
		},
	}
	if r.ctx.SampleCount > 1 {
		colorAttachment.View = r.ctx.MSAAView
		colorAttachment.ResolveTarget = surfaceView
		colorAttachment.StoreOp = wgpu.StoreOpDiscard
	}

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{colorAttachment},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            r.ctx.DepthView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpDiscard,
			DepthClearValue: 1.0,
		},
	})

	// Opaque pass: depth testing resolves occlusion, order is irrelevant.
	for _, e := range r.Registry.meshes {
		if e.ready && !e.transparent {
			r.drawMesh(pass, e)
		}
	}
	if r.grid.ready && !r.grid.transparent {
		r.drawGrid(pass)
	}

	// Transparent pass: farthest first, depth writes disabled by pipeline.
	view := r.camera.ViewMatrix()
	draws := r.collectTransparent(view, r.camera.Position())
	sortTransparent(draws)
	for _, d := range draws {
		d.draw(pass)
	}

	if err := pass.End(); err != nil {
		r.ctx.ReportError("render pass end failed", err)
		return
	}

	cmd, err := encoder.Finish(nil)
	if err != nil {
		r.ctx.ReportError("encoder finish failed", err)
		return
	}
	r.ctx.Queue.Submit(cmd)
	r.ctx.Surface.Present()
}
