package gpu

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

func TestSortTransparentDrawsFarthestFirst(t *testing.T) {
	// With an identity view the camera looks down -Z, so -5 is farthest.
	view := mgl32.Ident4()
	centers := []mgl32.Vec3{{0, 0, -1}, {0, 0, -5}, {0, 0, -2}}

	var order []float32
	var draws []transparentDraw
	for _, c := range centers {
		z := c.Z()
		draws = append(draws, transparentDraw{
			key:  viewDepthKey(view, c),
			draw: func(pass *wgpu.RenderPassEncoder) { order = append(order, z) },
		})
	}

	sortTransparent(draws)
	for _, d := range draws {
		d.draw(nil)
	}

	want := []float32{-5, -2, -1}
	for i, z := range want {
		if order[i] != z {
			t.Fatalf("draw order %v, want %v", order, want)
		}
	}
}

func TestSortTransparentIsStableForEqualKeys(t *testing.T) {
	var order []int
	draws := []transparentDraw{
		{key: 1, draw: func(pass *wgpu.RenderPassEncoder) { order = append(order, 0) }},
		{key: 1, draw: func(pass *wgpu.RenderPassEncoder) { order = append(order, 1) }},
		{key: 1, draw: func(pass *wgpu.RenderPassEncoder) { order = append(order, 2) }},
	}

	sortTransparent(draws)
	for _, d := range draws {
		d.draw(nil)
	}

	for i, v := range order {
		if v != i {
			t.Fatalf("equal-key order changed: %v", order)
		}
	}
}

func TestViewDepthKeyTracksViewSpaceZ(t *testing.T) {
	cam := mgl32.Translate3D(0, 0, 10) // camera at z=10 looking down -Z
	view := cam.Inv()

	near := viewDepthKey(view, mgl32.Vec3{0, 0, 9})
	far := viewDepthKey(view, mgl32.Vec3{0, 0, -20})
	if far <= near {
		t.Errorf("farther point should have larger key: near=%f far=%f", near, far)
	}
}

func TestOriginDepthKeyIsSquaredDistance(t *testing.T) {
	key := originDepthKey(mgl32.Vec3{3, 4, 0})
	if key != 25 {
		t.Errorf("expected squared distance 25, got %f", key)
	}
}
