package core

import "github.com/go-gl/mathgl/mgl32"

// LineSet is the declarative description of a polyline drawable: per-segment
// thickness, color and fade over an ordered point list.
type LineSet struct {
	ID        string
	Points    []mgl32.Vec3
	Thickness []float32
	Colors    []mgl32.Vec4
	Fades     []float32
}

// Geometry triangulates the line set into stadium billboard data.
func (l *LineSet) Geometry() (*LineGeometry, error) {
	return BuildLineGeometry(l.Points, l.Thickness, l.Colors, l.Fades)
}

// BoundsCenter returns the bounding-box center of the point list.
func (l *LineSet) BoundsCenter() mgl32.Vec3 {
	if len(l.Points) == 0 {
		return mgl32.Vec3{}
	}
	min, max := l.Points[0], l.Points[0]
	for _, p := range l.Points[1:] {
		for k := 0; k < 3; k++ {
			if p[k] < min[k] {
				min[k] = p[k]
			}
			if p[k] > max[k] {
				max[k] = p[k]
			}
		}
	}
	return min.Add(max).Mul(0.5)
}

// Billboard is a camera-facing text label anchored at a world position.
// ScalePx is the glyph scale in device pixels.
type Billboard struct {
	ID       string
	Text     string
	Position mgl32.Vec3
	ScalePx  float32
	Color    mgl32.Vec4
}

// ObjectKind tags the closed scene-object variant set.
type ObjectKind int

const (
	KindMesh ObjectKind = iota
	KindLineSet
	KindBillboard
)

// Object is the tagged union over the three drawable variants. The variant
// set is closed, so consumers dispatch on Kind instead of an interface.
type Object struct {
	Kind      ObjectKind
	Mesh      *MeshData
	Lines     *LineSet
	Billboard *Billboard
}

func MeshObject(m *MeshData) Object       { return Object{Kind: KindMesh, Mesh: m} }
func LineObject(l *LineSet) Object        { return Object{Kind: KindLineSet, Lines: l} }
func BillboardObject(b *Billboard) Object { return Object{Kind: KindBillboard, Billboard: b} }

func (o Object) ID() string {
	switch o.Kind {
	case KindMesh:
		return o.Mesh.ID
	case KindLineSet:
		return o.Lines.ID
	default:
		return o.Billboard.ID
	}
}

// Transparent reports whether the object belongs in the sorted transparent
// pass. Lines and billboards always do: lines blend their rounded caps and
// fades, billboards blend glyph coverage.
func (o Object) Transparent() bool {
	switch o.Kind {
	case KindMesh:
		return o.Mesh.Transparent()
	default:
		return true
	}
}

// Center returns the depth-sort anchor for the object.
func (o Object) Center() mgl32.Vec3 {
	switch o.Kind {
	case KindMesh:
		return o.Mesh.BoundsCenter()
	case KindLineSet:
		return o.Lines.BoundsCenter()
	default:
		return o.Billboard.Position
	}
}
