package core

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

var (
	red   = mgl32.Vec4{1, 0, 0, 1}
	green = mgl32.Vec4{0, 1, 0, 1}
)

// One stadium: 4 body vertices plus two cap fans of 1 center + 13 rim
// vertices each.
const (
	stadiumVertices  = 4 + 2*(1+capSteps+1)
	stadiumTriangles = 2 + 2*capSteps
)

func TestBuildLineGeometrySingleSegment(t *testing.T) {
	points := []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}}
	g, err := BuildLineGeometry(points, []float32{0.1}, []mgl32.Vec4{red}, []float32{0})
	if err != nil {
		t.Fatalf("BuildLineGeometry failed: %v", err)
	}

	if got := g.VertexCount(); got != stadiumVertices {
		t.Errorf("expected %d vertices, got %d", stadiumVertices, got)
	}
	if got := g.TriangleCount(); got != stadiumTriangles {
		t.Errorf("expected %d triangles, got %d", stadiumTriangles, got)
	}
	if got := len(g.Indices); got != stadiumTriangles*3 {
		t.Errorf("expected %d indices, got %d", stadiumTriangles*3, got)
	}

	// Every vertex carries the full segment endpoints.
	for i := 0; i < g.VertexCount(); i++ {
		if g.Positions[i*3] != 0 || g.EndPositions[i*3] != 1 {
			t.Fatalf("vertex %d does not carry segment endpoints", i)
		}
		if g.Thickness[i] != 0.1 {
			t.Fatalf("vertex %d thickness = %f", i, g.Thickness[i])
		}
	}
}

func TestBuildLineGeometryPolyline(t *testing.T) {
	points := []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}}
	g, err := BuildLineGeometry(points,
		[]float32{0.1, 0.2},
		[]mgl32.Vec4{red, green},
		[]float32{0, 1})
	if err != nil {
		t.Fatalf("BuildLineGeometry failed: %v", err)
	}

	if got := g.VertexCount(); got != 2*stadiumVertices {
		t.Errorf("expected %d vertices, got %d", 2*stadiumVertices, got)
	}
	if got := g.TriangleCount(); got != 2*stadiumTriangles {
		t.Errorf("expected %d triangles, got %d", 2*stadiumTriangles, got)
	}
}

func TestBuildLineGeometrySkipsZeroThickness(t *testing.T) {
	points := []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {2, 0, 0}}
	g, err := BuildLineGeometry(points,
		[]float32{0, 0.1},
		[]mgl32.Vec4{red, green},
		[]float32{0, 0})
	if err != nil {
		t.Fatalf("BuildLineGeometry failed: %v", err)
	}

	// Only the second segment produces geometry.
	if got := g.VertexCount(); got != stadiumVertices {
		t.Errorf("expected %d vertices, got %d", stadiumVertices, got)
	}
	if g.Positions[0] != 1 {
		t.Errorf("surviving segment should start at x=1, got %f", g.Positions[0])
	}
}

func TestBuildLineGeometryRejectsShortInput(t *testing.T) {
	_, err := BuildLineGeometry([]mgl32.Vec3{{0, 0, 0}}, nil, nil, nil)
	if err == nil {
		t.Fatal("expected error for fewer than 2 points")
	}
}

func TestBuildLineGeometryRejectsMismatchedAttributes(t *testing.T) {
	points := []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}}
	if _, err := BuildLineGeometry(points, []float32{0.1, 0.1}, []mgl32.Vec4{red}, []float32{0}); err == nil {
		t.Error("expected error for thickness count mismatch")
	}
	if _, err := BuildLineGeometry(points, []float32{0.1}, nil, []float32{0}); err == nil {
		t.Error("expected error for color count mismatch")
	}
	if _, err := BuildLineGeometry(points, []float32{0.1}, []mgl32.Vec4{red}, nil); err == nil {
		t.Error("expected error for fade count mismatch")
	}
}

func TestBodyQuadUVCorners(t *testing.T) {
	points := []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}}
	g, err := BuildLineGeometry(points, []float32{0.1}, []mgl32.Vec4{red}, []float32{0})
	if err != nil {
		t.Fatalf("BuildLineGeometry failed: %v", err)
	}

	want := [][2]float32{{0, -0.5}, {0, 0.5}, {1, -0.5}, {1, 0.5}}
	for i, uv := range want {
		if g.UVs[i*2] != uv[0] || g.UVs[i*2+1] != uv[1] {
			t.Errorf("body vertex %d UV = (%f,%f), want (%f,%f)",
				i, g.UVs[i*2], g.UVs[i*2+1], uv[0], uv[1])
		}
	}
}

func TestCapUVsExtendOutsideBody(t *testing.T) {
	points := []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}}
	g, err := BuildLineGeometry(points, []float32{0.1}, []mgl32.Vec4{red}, []float32{0})
	if err != nil {
		t.Fatalf("BuildLineGeometry failed: %v", err)
	}

	// Start cap rim spans 90..270 degrees, so its UV.x dips down to -0.5.
	minU := float32(0)
	for i := 4; i < g.VertexCount(); i++ {
		if u := g.UVs[i*2]; u < minU {
			minU = u
		}
	}
	if minU > -0.49 {
		t.Errorf("expected start cap UV.x to reach -0.5, min was %f", minU)
	}

	// End cap rim pushes UV.x up to 1.5.
	maxU := float32(0)
	for i := 4; i < g.VertexCount(); i++ {
		if u := g.UVs[i*2]; u > maxU {
			maxU = u
		}
	}
	if maxU < 1.49 {
		t.Errorf("expected end cap UV.x to reach 1.5, max was %f", maxU)
	}
}

func TestBuildSegmentsGeometryOffsetsIndices(t *testing.T) {
	segments := [][2]mgl32.Vec3{
		{{0, 0, 0}, {1, 0, 0}},
		{{0, 0, 0}, {0, 1, 0}},
	}
	g, err := BuildSegmentsGeometry(segments,
		[]float32{1, 1},
		[]mgl32.Vec4{red, green},
		[]float32{0, 0})
	if err != nil {
		t.Fatalf("BuildSegmentsGeometry failed: %v", err)
	}

	if got := g.VertexCount(); got != 2*stadiumVertices {
		t.Fatalf("expected %d vertices, got %d", 2*stadiumVertices, got)
	}

	// Indices of the second stadium must reference its own vertex range.
	half := len(g.Indices) / 2
	for _, idx := range g.Indices[half:] {
		if int(idx) < stadiumVertices {
			t.Fatalf("second segment index %d points into first segment", idx)
		}
	}
}
