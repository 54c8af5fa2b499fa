package core

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func quadVertices() []mgl32.Vec3 {
	return []mgl32.Vec3{
		{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0},
	}
}

func TestEncodeMeshUniform(t *testing.T) {
	m, err := EncodeMesh("part", quadVertices(), []uint16{0, 1, 2, 0, 2, 3},
		[]mgl32.Vec4{{1, 0, 0, 1}}, ColorUniform)
	if err != nil {
		t.Fatalf("EncodeMesh failed: %v", err)
	}

	if !m.SingleColor {
		t.Error("uniform encoding should set SingleColor")
	}
	if len(m.Vertices) != 12 {
		t.Errorf("expected 12 floats, got %d", len(m.Vertices))
	}
	if len(m.Colors) != 4 {
		t.Errorf("expected 1 color entry, got %d floats", len(m.Colors))
	}
	if m.Transparent() {
		t.Error("alpha 1 mesh reported transparent")
	}
}

func TestEncodeMeshPerTriangleExpands(t *testing.T) {
	colors := []mgl32.Vec4{{1, 0, 0, 1}, {0, 1, 0, 1}}
	m, err := EncodeMesh("part", quadVertices(), []uint16{0, 1, 2, 0, 2, 3}, colors, ColorPerTriangle)
	if err != nil {
		t.Fatalf("EncodeMesh failed: %v", err)
	}

	if got := len(m.Vertices) / 3; got != 6 {
		t.Errorf("expected 6 expanded vertices, got %d", got)
	}
	if got := len(m.Colors) / 4; got != 6 {
		t.Errorf("expected 6 color entries, got %d", got)
	}
	for i, idx := range m.Indices {
		if int(idx) != i {
			t.Fatalf("expected sequential reindexing, indices[%d] = %d", i, idx)
		}
	}
	// First three vertices carry the first triangle's color.
	for v := 0; v < 3; v++ {
		if m.Colors[v*4] != 1 || m.Colors[v*4+1] != 0 {
			t.Fatalf("vertex %d lost its triangle color", v)
		}
	}
	if m.Colors[3*4+1] != 1 {
		t.Error("second triangle color not applied")
	}
}

func TestEncodeMeshRejectsMismatches(t *testing.T) {
	verts := quadVertices()
	idx := []uint16{0, 1, 2, 0, 2, 3}

	if _, err := EncodeMesh("p", verts, idx, []mgl32.Vec4{{1, 0, 0, 1}, {0, 1, 0, 1}}, ColorUniform); err == nil {
		t.Error("uniform mode accepted 2 colors")
	}
	if _, err := EncodeMesh("p", verts, idx, []mgl32.Vec4{{1, 0, 0, 1}}, ColorPerVertex); err == nil {
		t.Error("per-vertex mode accepted 1 color for 4 vertices")
	}
	if _, err := EncodeMesh("p", verts, idx, []mgl32.Vec4{{1, 0, 0, 1}}, ColorPerTriangle); err == nil {
		t.Error("per-triangle mode accepted 1 color for 2 triangles")
	}
	if _, err := EncodeMesh("p", verts, []uint16{0, 1}, []mgl32.Vec4{{1, 0, 0, 1}}, ColorPerTriangle); err == nil {
		t.Error("per-triangle mode accepted truncated index list")
	}
	if _, err := EncodeMesh("p", verts, []uint16{0, 1, 9}, []mgl32.Vec4{{1, 0, 0, 1}}, ColorPerTriangle); err == nil {
		t.Error("per-triangle mode accepted out-of-range index")
	}
}

func TestEncodeMeshPerTriangleIndexRange(t *testing.T) {
	verts := quadVertices()
	tri := func(count int) ([]uint16, []mgl32.Vec4) {
		idx := make([]uint16, 0, count*3)
		colors := make([]mgl32.Vec4, count)
		for i := 0; i < count; i++ {
			idx = append(idx, 0, 1, 2)
			colors[i] = mgl32.Vec4{1, 0, 0, 1}
		}
		return idx, colors
	}

	// 21845 triangles expand to exactly 65535 vertices, the largest count
	// addressable with 16-bit indices.
	idx, colors := tri(21845)
	m, err := EncodeMesh("p", verts, idx, colors, ColorPerTriangle)
	if err != nil {
		t.Fatalf("boundary expansion failed: %v", err)
	}
	if last := m.Indices[len(m.Indices)-1]; last != 65534 {
		t.Errorf("last index = %d, want 65534", last)
	}

	// One more triangle would wrap the expanded indices.
	idx, colors = tri(21846)
	if _, err := EncodeMesh("p", verts, idx, colors, ColorPerTriangle); err == nil {
		t.Error("expansion past the 16-bit index range should fail")
	}
}

func TestMeshTransparencyDetection(t *testing.T) {
	m := &MeshData{Colors: []float32{1, 0, 0, 1, 0, 1, 0, 0.5}}
	if !m.Transparent() {
		t.Error("mesh with alpha 0.5 entry should be transparent")
	}
}

func TestBoundingSphereCoversAllVertices(t *testing.T) {
	m := &MeshData{Vertices: []float32{
		-1, -2, -3,
		1, 2, 3,
		0, 0, 0,
	}}
	center, radius := m.BoundingSphere()

	if center != (mgl32.Vec3{0, 0, 0}) {
		t.Errorf("unexpected center %v", center)
	}
	want := mgl32.Vec3{1, 2, 3}.Len()
	if diff := radius - want; diff < -1e-5 || diff > 1e-5 {
		t.Errorf("radius %f, want %f", radius, want)
	}
}

func TestBoundsCenterEmptyMesh(t *testing.T) {
	m := &MeshData{}
	if m.BoundsCenter() != (mgl32.Vec3{}) {
		t.Error("empty mesh center should be the origin")
	}
}
