package core

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestObjectIDDispatch(t *testing.T) {
	cases := []struct {
		obj  Object
		want string
	}{
		{MeshObject(&MeshData{ID: "m1"}), "m1"},
		{LineObject(&LineSet{ID: "l1"}), "l1"},
		{BillboardObject(&Billboard{ID: "b1"}), "b1"},
	}
	for _, tc := range cases {
		if got := tc.obj.ID(); got != tc.want {
			t.Errorf("ID() = %q, want %q", got, tc.want)
		}
	}
}

func TestObjectTransparencyDispatch(t *testing.T) {
	opaque := MeshObject(&MeshData{Colors: []float32{1, 0, 0, 1}})
	if opaque.Transparent() {
		t.Error("opaque mesh reported transparent")
	}

	seeThrough := MeshObject(&MeshData{Colors: []float32{1, 0, 0, 0.5}})
	if !seeThrough.Transparent() {
		t.Error("alpha 0.5 mesh reported opaque")
	}

	// Lines blend their caps and fades, billboards blend glyph coverage, so
	// both variants are transparent regardless of color alpha.
	if !LineObject(&LineSet{Colors: []mgl32.Vec4{{1, 0, 0, 1}}}).Transparent() {
		t.Error("line set should always be transparent")
	}
	if !BillboardObject(&Billboard{Color: mgl32.Vec4{1, 1, 1, 1}}).Transparent() {
		t.Error("billboard should always be transparent")
	}
}

func TestObjectCenterDispatch(t *testing.T) {
	mesh := MeshObject(&MeshData{Vertices: []float32{
		-1, -1, -1,
		3, 3, 3,
	}})
	if got := mesh.Center(); got != (mgl32.Vec3{1, 1, 1}) {
		t.Errorf("mesh center = %v, want (1,1,1)", got)
	}

	lines := LineObject(&LineSet{Points: []mgl32.Vec3{{0, 0, 0}, {2, 4, 6}}})
	if got := lines.Center(); got != (mgl32.Vec3{1, 2, 3}) {
		t.Errorf("line center = %v, want (1,2,3)", got)
	}

	bb := BillboardObject(&Billboard{Position: mgl32.Vec3{5, 6, 7}})
	if got := bb.Center(); got != (mgl32.Vec3{5, 6, 7}) {
		t.Errorf("billboard center = %v, want its position", got)
	}
}
