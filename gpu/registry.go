package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/partview3d/partview/core"
)

type meshEntry struct {
	id          string
	data        *core.MeshData
	transparent bool
	center      mgl32.Vec3

	vertexBuf  *wgpu.Buffer
	colorBuf   *wgpu.Buffer // nil for uniform-colored meshes
	indexBuf   *wgpu.Buffer
	uniformBuf *wgpu.Buffer
	bindGroup  *wgpu.BindGroup
	pipeline   *wgpu.RenderPipeline
	indexCount uint32
	ready      bool
}

func (e *meshEntry) release() {
	for _, b := range []*wgpu.Buffer{e.vertexBuf, e.colorBuf, e.indexBuf, e.uniformBuf} {
		if b != nil {
			b.Release()
		}
	}
	e.vertexBuf, e.colorBuf, e.indexBuf, e.uniformBuf = nil, nil, nil, nil
	e.bindGroup = nil
	e.pipeline = nil
	e.ready = false
}

type lineEntry struct {
	id     string
	center mgl32.Vec3

	posBuf       *wgpu.Buffer
	endBuf       *wgpu.Buffer
	colorBuf     *wgpu.Buffer
	uvBuf        *wgpu.Buffer
	thicknessBuf *wgpu.Buffer
	fadeBuf      *wgpu.Buffer
	indexBuf     *wgpu.Buffer
	uniformBuf   *wgpu.Buffer
	bindGroup    *wgpu.BindGroup
	pipeline     *wgpu.RenderPipeline
	indexCount   uint32
	ready        bool
}

func (e *lineEntry) release() {
	for _, b := range []*wgpu.Buffer{e.posBuf, e.endBuf, e.colorBuf, e.uvBuf, e.thicknessBuf, e.fadeBuf, e.indexBuf, e.uniformBuf} {
		if b != nil {
			b.Release()
		}
	}
	e.posBuf, e.endBuf, e.colorBuf, e.uvBuf, e.thicknessBuf, e.fadeBuf, e.indexBuf, e.uniformBuf = nil, nil, nil, nil, nil, nil, nil, nil
	e.bindGroup = nil
	e.pipeline = nil
	e.ready = false
}

type billboardEntry struct {
	id       string
	position mgl32.Vec3

	vertexBuf   *wgpu.Buffer
	vertexCount uint32
	ready       bool
}

func (e *billboardEntry) release() {
	if e.vertexBuf != nil {
		e.vertexBuf.Release()
		e.vertexBuf = nil
	}
	e.ready = false
}

// Registry holds the ordered collections of live drawables, each paired with
// its device resources. Objects are keyed by stable string identifiers, not
// slice indexes, so removal can never race a pending add for another slot.
type Registry struct {
	ctx     *Context
	factory *PipelineFactory
	log     core.Logger

	meshes     []*meshEntry
	lines      []*lineEntry
	billboards []*billboardEntry

	atlas              *core.GlyphAtlas
	atlasView          *wgpu.TextureView
	sampler            *wgpu.Sampler
	billboardBindGroup *wgpu.BindGroup
}

func NewRegistry(ctx *Context, factory *PipelineFactory, atlas *core.GlyphAtlas, log core.Logger) (*Registry, error) {
	if log == nil {
		log = core.NewNopLogger()
	}
	r := &Registry{ctx: ctx, factory: factory, atlas: atlas, log: log}
	if atlas != nil {
		if err := r.uploadAtlas(); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) uploadAtlas() error {
	w := r.atlas.Image.Bounds().Dx()
	h := r.atlas.Image.Bounds().Dy()

	tex, err := r.ctx.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "GlyphAtlas",
		Size:          wgpu.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatR8Unorm,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create atlas texture: %w", err)
	}
	if err := r.ctx.Queue.WriteTexture(tex.AsImageCopy(), r.atlas.Image.Pix, &wgpu.TextureDataLayout{
		Offset:       0,
		BytesPerRow:  uint32(w),
		RowsPerImage: uint32(h),
	}, &wgpu.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1}); err != nil {
		return fmt.Errorf("upload atlas texture: %w", err)
	}

	r.atlasView, err = tex.CreateView(nil)
	if err != nil {
		return fmt.Errorf("create atlas view: %w", err)
	}

	r.sampler, err = r.ctx.Device.CreateSampler(&wgpu.SamplerDescriptor{
		MinFilter:     wgpu.FilterModeLinear,
		MagFilter:     wgpu.FilterModeLinear,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return fmt.Errorf("create atlas sampler: %w", err)
	}

	r.billboardBindGroup, err = r.ctx.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "BillboardBG",
		Layout: r.factory.BillboardBGL,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: r.atlasView},
			{Binding: 1, Sampler: r.sampler},
		},
	})
	if err != nil {
		return fmt.Errorf("create billboard bind group: %w", err)
	}
	return nil
}

func (r *Registry) uniformBindGroup(label string, layout *wgpu.BindGroupLayout, buf *wgpu.Buffer, size uint64) (*wgpu.BindGroup, error) {
	return r.ctx.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  label,
		Layout: layout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: buf, Size: size},
		},
	})
}

// AddMesh uploads the mesh and builds its pipeline variant. Returns the
// object id (generated when data.ID is empty).
func (r *Registry) AddMesh(data *core.MeshData) (string, error) {
	if data.ID == "" {
		data.ID = uuid.NewString()
	}
	if r.findMesh(data.ID) != nil {
		return "", fmt.Errorf("mesh %q already registered", data.ID)
	}

	obj := core.MeshObject(data)
	e := &meshEntry{
		id:          data.ID,
		data:        data,
		transparent: obj.Transparent(),
		center:      obj.Center(),
		indexCount:  uint32(len(data.Indices)),
	}

	var err error
	e.vertexBuf, err = newBufferWith(r.ctx, "MeshVB", float32Bytes(data.Vertices), wgpu.BufferUsageVertex)
	if err != nil {
		return "", fmt.Errorf("create mesh vertex buffer: %w", err)
	}
	e.indexBuf, err = newBufferWith(r.ctx, "MeshIB", uint16Bytes(data.Indices), wgpu.BufferUsageIndex)
	if err != nil {
		e.release()
		return "", fmt.Errorf("create mesh index buffer: %w", err)
	}

	uniforms := ObjectUniforms{}
	if len(data.Colors) >= 4 {
		copy(uniforms.Color[:], data.Colors[:4])
	}
	e.uniformBuf, err = newBufferWith(r.ctx, "MeshUB", structBytes(&uniforms), wgpu.BufferUsageUniform)
	if err != nil {
		e.release()
		return "", fmt.Errorf("create mesh uniform buffer: %w", err)
	}

	if !data.SingleColor {
		e.colorBuf, err = newBufferWith(r.ctx, "MeshColorVB", float32Bytes(data.Colors), wgpu.BufferUsageVertex)
		if err != nil {
			e.release()
			return "", fmt.Errorf("create mesh color buffer: %w", err)
		}
	}

	e.bindGroup, err = r.uniformBindGroup("MeshBG", r.factory.MeshBGL, e.uniformBuf, uint64(len(structBytes(&uniforms))))
	if err != nil {
		e.release()
		return "", fmt.Errorf("create mesh bind group: %w", err)
	}

	e.pipeline, err = r.factory.MeshPipeline(MeshPipelineKey{
		VertexColored: !data.SingleColor,
		Transparent:   e.transparent,
	})
	if err != nil {
		e.release()
		return "", fmt.Errorf("create mesh pipeline: %w", err)
	}

	e.ready = true
	r.meshes = append(r.meshes, e)
	r.log.Debugf("added mesh %s (%d indices, transparent=%v)", e.id, e.indexCount, e.transparent)
	return e.id, nil
}

func (r *Registry) findMesh(id string) *meshEntry {
	for _, e := range r.meshes {
		if e.id == id {
			return e
		}
	}
	return nil
}

// RemoveMesh releases the mesh's device resources and drops it.
func (r *Registry) RemoveMesh(id string) error {
	for i, e := range r.meshes {
		if e.id == id {
			e.release()
			r.meshes = append(r.meshes[:i], r.meshes[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("mesh %q not found", id)
}

// ChangeMeshColor recolors a mesh in place without recreating geometry
// buffers. Uniform-colored meshes get a uniform rewrite; vertex-colored
// meshes get their color buffer overwritten with the replicated color. If
// the new alpha flips the mesh across the transparency boundary, the
// pipeline variant is swapped (a cache hit after first use).
func (r *Registry) ChangeMeshColor(id string, color mgl32.Vec4) error {
	e := r.findMesh(id)
	if e == nil {
		return fmt.Errorf("mesh %q not found", id)
	}

	if e.data.SingleColor {
		e.data.Colors = []float32{color.X(), color.Y(), color.Z(), color.W()}
		uniforms := ObjectUniforms{Color: [4]float32{color.X(), color.Y(), color.Z(), color.W()}}
		if err := r.ctx.Queue.WriteBuffer(e.uniformBuf, 0, structBytes(&uniforms)); err != nil {
			return fmt.Errorf("write mesh color uniform: %w", err)
		}
	} else {
		for i := 0; i+3 < len(e.data.Colors); i += 4 {
			e.data.Colors[i] = color.X()
			e.data.Colors[i+1] = color.Y()
			e.data.Colors[i+2] = color.Z()
			e.data.Colors[i+3] = color.W()
		}
		if err := r.ctx.Queue.WriteBuffer(e.colorBuf, 0, float32Bytes(e.data.Colors)); err != nil {
			return fmt.Errorf("write mesh color buffer: %w", err)
		}
	}

	transparent := e.data.Transparent()
	if transparent != e.transparent {
		pipeline, err := r.factory.MeshPipeline(MeshPipelineKey{
			VertexColored: !e.data.SingleColor,
			Transparent:   transparent,
		})
		if err != nil {
			return fmt.Errorf("swap mesh pipeline: %w", err)
		}
		e.pipeline = pipeline
		e.transparent = transparent
	}
	return nil
}

// ClearMeshes removes every mesh and releases its resources.
func (r *Registry) ClearMeshes() {
	for _, e := range r.meshes {
		e.release()
	}
	r.meshes = nil
}

// newLineEntry builds the per-object buffers and pipeline for stadium line
// geometry. Shared by user line sets and the built-in coordinate axes.
func (r *Registry) newLineEntry(id string, g *core.LineGeometry, center mgl32.Vec3, widthScale float32) (*lineEntry, error) {
	e := &lineEntry{
		id:         id,
		center:     center,
		indexCount: uint32(len(g.Indices)),
	}

	type part struct {
		name string
		dst  **wgpu.Buffer
		data []float32
	}
	parts := []part{
		{"LinePosVB", &e.posBuf, g.Positions},
		{"LineEndVB", &e.endBuf, g.EndPositions},
		{"LineColorVB", &e.colorBuf, g.Colors},
		{"LineUVVB", &e.uvBuf, g.UVs},
		{"LineThicknessVB", &e.thicknessBuf, g.Thickness},
		{"LineFadeVB", &e.fadeBuf, g.Fades},
	}
	for _, p := range parts {
		buf, err := newBufferWith(r.ctx, p.name, float32Bytes(p.data), wgpu.BufferUsageVertex)
		if err != nil {
			e.release()
			return nil, fmt.Errorf("create %s: %w", p.name, err)
		}
		*p.dst = buf
	}

	var err error
	e.indexBuf, err = newBufferWith(r.ctx, "LineIB", uint16Bytes(g.Indices), wgpu.BufferUsageIndex)
	if err != nil {
		e.release()
		return nil, fmt.Errorf("create line index buffer: %w", err)
	}

	uniforms := LineUniforms{Params: [4]float32{widthScale}}
	e.uniformBuf, err = newBufferWith(r.ctx, "LineUB", structBytes(&uniforms), wgpu.BufferUsageUniform)
	if err != nil {
		e.release()
		return nil, fmt.Errorf("create line uniform buffer: %w", err)
	}

	e.bindGroup, err = r.uniformBindGroup("LineBG", r.factory.LineBGL, e.uniformBuf, uint64(len(structBytes(&uniforms))))
	if err != nil {
		e.release()
		return nil, fmt.Errorf("create line bind group: %w", err)
	}

	e.pipeline, err = r.factory.LinePipeline()
	if err != nil {
		e.release()
		return nil, fmt.Errorf("create line pipeline: %w", err)
	}

	e.ready = true
	return e, nil
}

// AddLines triangulates and uploads a line set.
func (r *Registry) AddLines(lines *core.LineSet) (string, error) {
	if lines.ID == "" {
		lines.ID = uuid.NewString()
	}
	for _, e := range r.lines {
		if e.id == lines.ID {
			return "", fmt.Errorf("line set %q already registered", lines.ID)
		}
	}

	g, err := lines.Geometry()
	if err != nil {
		return "", err
	}
	e, err := r.newLineEntry(lines.ID, g, core.LineObject(lines).Center(), 1)
	if err != nil {
		return "", err
	}
	r.lines = append(r.lines, e)
	r.log.Debugf("added line set %s (%d indices)", e.id, e.indexCount)
	return e.id, nil
}

// RemoveLines releases a line set's device resources and drops it.
func (r *Registry) RemoveLines(id string) error {
	for i, e := range r.lines {
		if e.id == id {
			e.release()
			r.lines = append(r.lines[:i], r.lines[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("line set %q not found", id)
}

// ClearLines removes every line set and releases its resources.
func (r *Registry) ClearLines() {
	for _, e := range r.lines {
		e.release()
	}
	r.lines = nil
}

// AddTextBillboard rasterizes the label against the glyph atlas and uploads
// its quads.
func (r *Registry) AddTextBillboard(b *core.Billboard) (string, error) {
	if r.atlas == nil {
		return "", fmt.Errorf("no glyph atlas configured")
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	for _, e := range r.billboards {
		if e.id == b.ID {
			return "", fmt.Errorf("billboard %q already registered", b.ID)
		}
	}

	vertices := r.atlas.BuildBillboard(b)
	e := &billboardEntry{
		id:          b.ID,
		position:    core.BillboardObject(b).Center(),
		vertexCount: uint32(len(vertices)),
	}
	if len(vertices) > 0 {
		buf, err := newBufferWith(r.ctx, "BillboardVB", billboardBytes(vertices), wgpu.BufferUsageVertex)
		if err != nil {
			return "", fmt.Errorf("create billboard buffer: %w", err)
		}
		e.vertexBuf = buf
	}

	// Billboard pipeline is shared; make sure it exists before first draw.
	if _, err := r.factory.BillboardPipeline(); err != nil {
		e.release()
		return "", fmt.Errorf("create billboard pipeline: %w", err)
	}

	e.ready = true
	r.billboards = append(r.billboards, e)
	r.log.Debugf("added billboard %s (%d vertices)", e.id, e.vertexCount)
	return e.id, nil
}

// RemoveTextBillboard releases a billboard's device resources and drops it.
func (r *Registry) RemoveTextBillboard(id string) error {
	for i, e := range r.billboards {
		if e.id == id {
			e.release()
			r.billboards = append(r.billboards[:i], r.billboards[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("billboard %q not found", id)
}

// ClearTextBillboards removes every billboard and releases its resources.
func (r *Registry) ClearTextBillboards() {
	for _, e := range r.billboards {
		e.release()
	}
	r.billboards = nil
}

// SceneBounds merges the bounding spheres of every registered mesh. The
// second return is false when no meshes are registered.
func (r *Registry) SceneBounds() (mgl32.Vec3, float32, bool) {
	if len(r.meshes) == 0 {
		return mgl32.Vec3{}, 0, false
	}
	center, radius := r.meshes[0].data.BoundingSphere()
	for _, e := range r.meshes[1:] {
		c, rad := e.data.BoundingSphere()
		d := c.Sub(center).Len()
		if d+rad <= radius {
			continue
		}
		if d+radius <= rad {
			center, radius = c, rad
			continue
		}
		merged := (d + radius + rad) / 2
		if d > 1e-9 {
			center = center.Add(c.Sub(center).Mul((merged - radius) / d))
		}
		radius = merged
	}
	return center, radius, true
}

// MeshIDs returns the registered mesh ids in draw order.
func (r *Registry) MeshIDs() []string {
	out := make([]string, len(r.meshes))
	for i, e := range r.meshes {
		out[i] = e.id
	}
	return out
}
