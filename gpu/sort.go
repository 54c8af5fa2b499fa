package gpu

import (
	"sort"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

// transparentDraw pairs a depth-sort key with the draw it orders. Larger key
// means farther from the camera.
type transparentDraw struct {
	key  float32
	draw func(pass *wgpu.RenderPassEncoder)
}

// sortTransparent orders transparent draws farthest-first, the correctness
// requirement for alpha blending without a depth pre-pass. The sort is
// stable so equal-depth objects keep their registry order.
func sortTransparent(draws []transparentDraw) {
	sort.SliceStable(draws, func(i, j int) bool {
		return draws[i].key > draws[j].key
	})
}

// viewDepthKey derives the sort key for an object anchored at p: the negated
// view-space Z of the anchor, so objects deeper into the scene sort first.
func viewDepthKey(view mgl32.Mat4, p mgl32.Vec3) float32 {
	return -view.Mul4x1(p.Vec4(1)).Z()
}

// originDepthKey is the sort key for origin-anchored objects (grid, axes):
// the squared distance from the world origin to the camera.
func originDepthKey(camPos mgl32.Vec3) float32 {
	return camPos.Dot(camPos)
}
