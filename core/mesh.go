package core

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// ColorMode selects how mesh colors map onto vertices.
type ColorMode int

const (
	ColorUniform ColorMode = iota
	ColorPerVertex
	ColorPerTriangle
)

// MeshData is the wire shape handed to the renderer: flattened positions,
// flattened RGBA colors, 16-bit triangle indices and the single-color flag
// that selects the uniform-colored pipeline variant.
type MeshData struct {
	ID          string
	Vertices    []float32 // 3 per vertex
	Colors      []float32 // 4 per color entry
	Indices     []uint16
	SingleColor bool
}

// EncodeMesh flattens vertices/indices/colors into MeshData. Per-triangle
// coloring expands each triangle into three dedicated vertices carrying the
// triangle's color and re-indexes sequentially.
func EncodeMesh(id string, vertices []mgl32.Vec3, indices []uint16, colors []mgl32.Vec4, mode ColorMode) (*MeshData, error) {
	m := &MeshData{ID: id}

	switch mode {
	case ColorUniform:
		if len(colors) != 1 {
			return nil, fmt.Errorf("uniform coloring expects exactly 1 color, got %d", len(colors))
		}
		m.SingleColor = true
		m.Vertices = flattenVec3(vertices)
		m.Indices = append(m.Indices, indices...)
		m.Colors = []float32{colors[0].X(), colors[0].Y(), colors[0].Z(), colors[0].W()}

	case ColorPerVertex:
		if len(colors) != len(vertices) {
			return nil, fmt.Errorf("per-vertex coloring expects %d colors, got %d", len(vertices), len(colors))
		}
		m.Vertices = flattenVec3(vertices)
		m.Indices = append(m.Indices, indices...)
		for _, c := range colors {
			m.Colors = append(m.Colors, c.X(), c.Y(), c.Z(), c.W())
		}

	case ColorPerTriangle:
		if len(indices)%3 != 0 {
			return nil, fmt.Errorf("index count %d is not a multiple of 3", len(indices))
		}
		triangles := len(indices) / 3
		if len(colors) != triangles {
			return nil, fmt.Errorf("per-triangle coloring expects %d colors, got %d", triangles, len(colors))
		}
		if triangles*3 > math.MaxUint16+1 {
			return nil, fmt.Errorf("per-triangle expansion needs %d vertices, exceeding the 16-bit index range", triangles*3)
		}
		for t := 0; t < triangles; t++ {
			c := colors[t]
			for k := 0; k < 3; k++ {
				idx := indices[3*t+k]
				if int(idx) >= len(vertices) {
					return nil, fmt.Errorf("index %d out of range for %d vertices", idx, len(vertices))
				}
				v := vertices[idx]
				m.Vertices = append(m.Vertices, v.X(), v.Y(), v.Z())
				m.Colors = append(m.Colors, c.X(), c.Y(), c.Z(), c.W())
				m.Indices = append(m.Indices, uint16(3*t+k))
			}
		}

	default:
		return nil, fmt.Errorf("unknown color mode %d", mode)
	}

	return m, nil
}

func flattenVec3(vs []mgl32.Vec3) []float32 {
	out := make([]float32, 0, len(vs)*3)
	for _, v := range vs {
		out = append(out, v.X(), v.Y(), v.Z())
	}
	return out
}

// Transparent reports whether any color entry carries alpha below 1.
func (m *MeshData) Transparent() bool {
	for i := 3; i < len(m.Colors); i += 4 {
		if m.Colors[i] < 1 {
			return true
		}
	}
	return false
}

// BoundsCenter returns the axis-aligned bounding-box center, the sort anchor
// for transparent depth ordering.
func (m *MeshData) BoundsCenter() mgl32.Vec3 {
	min, max, ok := bounds(m.Vertices)
	if !ok {
		return mgl32.Vec3{}
	}
	return min.Add(max).Mul(0.5)
}

// BoundingSphere returns a sphere enclosing the mesh, centered on the
// bounding-box center. Used by camera Reset to frame the part.
func (m *MeshData) BoundingSphere() (mgl32.Vec3, float32) {
	min, max, ok := bounds(m.Vertices)
	if !ok {
		return mgl32.Vec3{}, 0
	}
	center := min.Add(max).Mul(0.5)
	var radius float32
	for i := 0; i+2 < len(m.Vertices); i += 3 {
		v := mgl32.Vec3{m.Vertices[i], m.Vertices[i+1], m.Vertices[i+2]}
		if d := v.Sub(center).Len(); d > radius {
			radius = d
		}
	}
	return center, radius
}

func bounds(flat []float32) (mgl32.Vec3, mgl32.Vec3, bool) {
	if len(flat) < 3 {
		return mgl32.Vec3{}, mgl32.Vec3{}, false
	}
	min := mgl32.Vec3{flat[0], flat[1], flat[2]}
	max := min
	for i := 3; i+2 < len(flat); i += 3 {
		for k := 0; k < 3; k++ {
			v := flat[i+k]
			if v < min[k] {
				min[k] = v
			}
			if v > max[k] {
				max[k] = v
			}
		}
	}
	return min, max, true
}
