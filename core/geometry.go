package core

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// LineGeometry is the flattened vertex data for a set of stadium-shaped line
// segments: a rectangular body plus two semicircular caps per segment. Every
// vertex carries both the segment start (Positions) and the far endpoint
// (EndPositions) so the vertex shader can reconstruct the segment axis in
// view space and extrude the billboard there.
type LineGeometry struct {
	Positions    []float32 // 3 per vertex, segment start point
	EndPositions []float32 // 3 per vertex, segment end point
	Colors       []float32 // 4 per vertex
	Thickness    []float32 // 1 per vertex
	UVs          []float32 // 2 per vertex
	Fades        []float32 // 1 per vertex
	Indices      []uint16
}

// VertexCount returns the number of vertices in the geometry.
func (g *LineGeometry) VertexCount() int { return len(g.Positions) / 3 }

// TriangleCount returns the number of triangles in the index list.
func (g *LineGeometry) TriangleCount() int { return len(g.Indices) / 3 }

// Append concatenates src onto g, offsetting indices. Errors when the merged
// geometry would overflow the 16-bit index range.
func (g *LineGeometry) Append(src *LineGeometry) error {
	base := g.VertexCount()
	if base+src.VertexCount() > math.MaxUint16+1 {
		return errors.New("line geometry exceeds 16-bit index range")
	}
	g.Positions = append(g.Positions, src.Positions...)
	g.EndPositions = append(g.EndPositions, src.EndPositions...)
	g.Colors = append(g.Colors, src.Colors...)
	g.Thickness = append(g.Thickness, src.Thickness...)
	g.UVs = append(g.UVs, src.UVs...)
	g.Fades = append(g.Fades, src.Fades...)
	for _, idx := range src.Indices {
		g.Indices = append(g.Indices, idx+uint16(base))
	}
	return nil
}

// Cap fans cover 180 degrees in 12 steps of 30 degrees each.
const (
	capSteps     = 12
	capStepAngle = math.Pi / capSteps
)

// BuildLineGeometry triangulates a polyline into one stadium per segment.
// thickness, colors and fades are per segment, so each must hold exactly
// len(points)-1 entries. Segments with thickness <= 0 are skipped. A fade of
// 0 is opaque; 1 fades linearly from the centerline to the edge.
//
// The body quad uses UV.x in {0,1} to mark start/end and UV.y in {-0.5,0.5}
// for the two thickness edges. Cap vertices push UV.x outside [0,1] by
// cos(a)/2 and set UV.y to sin(a)/2; the shader clamps UV.x to recover the
// interpolation factor and treats the remainder as an axial extrusion in
// thickness units, which reproduces the semicircular caps analytically.
func BuildLineGeometry(points []mgl32.Vec3, thickness []float32, colors []mgl32.Vec4, fades []float32) (*LineGeometry, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("line geometry needs at least 2 points, got %d", len(points))
	}
	segments := len(points) - 1
	if len(thickness) != segments {
		return nil, fmt.Errorf("thickness count %d does not match segment count %d", len(thickness), segments)
	}
	if len(colors) != segments {
		return nil, fmt.Errorf("color count %d does not match segment count %d", len(colors), segments)
	}
	if len(fades) != segments {
		return nil, fmt.Errorf("fade count %d does not match segment count %d", len(fades), segments)
	}

	g := &LineGeometry{}

	for i := 0; i < segments; i++ {
		th := thickness[i]
		if th <= 0 {
			continue
		}
		start := points[i]
		end := points[i+1]
		color := colors[i]
		fade := fades[i]

		emit := func(u, v float32) (uint16, error) {
			n := g.VertexCount()
			if n > math.MaxUint16 {
				return 0, errors.New("line geometry exceeds 16-bit index range")
			}
			g.Positions = append(g.Positions, start.X(), start.Y(), start.Z())
			g.EndPositions = append(g.EndPositions, end.X(), end.Y(), end.Z())
			g.Colors = append(g.Colors, color.X(), color.Y(), color.Z(), color.W())
			g.Thickness = append(g.Thickness, th)
			g.UVs = append(g.UVs, u, v)
			g.Fades = append(g.Fades, fade)
			return uint16(n), nil
		}
		tri := func(a, b, c uint16) {
			g.Indices = append(g.Indices, a, b, c)
		}

		// Body quad.
		v0, err := emit(0, -0.5)
		if err != nil {
			return nil, err
		}
		v1, _ := emit(0, 0.5)
		v2, _ := emit(1, -0.5)
		v3, _ := emit(1, 0.5)
		tri(v0, v2, v1)
		tri(v1, v2, v3)

		// Start cap: fan from 90 to 270 degrees around the start point.
		center, err := emit(0, 0)
		if err != nil {
			return nil, err
		}
		var prev uint16
		for k := 0; k <= capSteps; k++ {
			a := math.Pi/2 + float64(k)*capStepAngle
			u := float32(math.Cos(a)) * 0.5
			v := float32(math.Sin(a)) * 0.5
			cur, err := emit(u, v)
			if err != nil {
				return nil, err
			}
			if k > 0 {
				tri(center, prev, cur)
			}
			prev = cur
		}

		// End cap: fan from -90 to 90 degrees around the end point.
		center, err = emit(1, 0)
		if err != nil {
			return nil, err
		}
		for k := 0; k <= capSteps; k++ {
			a := -math.Pi/2 + float64(k)*capStepAngle
			u := 1 + float32(math.Cos(a))*0.5
			v := float32(math.Sin(a)) * 0.5
			cur, err := emit(u, v)
			if err != nil {
				return nil, err
			}
			if k > 0 {
				tri(center, prev, cur)
			}
			prev = cur
		}
	}

	return g, nil
}

// BuildSegmentsGeometry triangulates disjoint segments (each an independent
// start/end pair) into a single geometry. Used for the coordinate axes.
func BuildSegmentsGeometry(segments [][2]mgl32.Vec3, thickness []float32, colors []mgl32.Vec4, fades []float32) (*LineGeometry, error) {
	out := &LineGeometry{}
	for i, seg := range segments {
		part, err := BuildLineGeometry(seg[:], thickness[i:i+1], colors[i:i+1], fades[i:i+1])
		if err != nil {
			return nil, err
		}
		if err := out.Append(part); err != nil {
			return nil, err
		}
	}
	return out, nil
}
