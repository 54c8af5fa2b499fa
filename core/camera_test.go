package core

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertMat4Near(t *testing.T, expected, actual mgl32.Mat4, tol float32) {
	t.Helper()
	for i := 0; i < 16; i++ {
		assert.InDelta(t, expected[i], actual[i], float64(tol), "matrix element %d", i)
	}
}

func assertVec3Near(t *testing.T, expected, actual mgl32.Vec3, tol float32) {
	t.Helper()
	for i := 0; i < 3; i++ {
		assert.InDelta(t, expected[i], actual[i], float64(tol), "component %d", i)
	}
}

func TestViewIsInverseOfCameraMatrix(t *testing.T) {
	cam := NewOrbitCamera(nil)
	cam.Orbit(100, -40)
	cam.PanWithMouse(12, -7, false)

	product := cam.CameraMatrix().Mul4(cam.ViewMatrix())
	assertMat4Near(t, mgl32.Ident4(), product, 1e-4)
}

func TestViewIsInverseAfterUpSwap(t *testing.T) {
	cam := NewOrbitCamera(nil)
	cam.SwapCameraUp()
	cam.Orbit(-50, 80)

	product := cam.ViewMatrix().Mul4(cam.CameraMatrix())
	assertMat4Near(t, mgl32.Ident4(), product, 1e-4)
}

func TestSwapCameraUpPreservesPosition(t *testing.T) {
	cam := NewOrbitCamera(nil)
	cam.Orbit(200, 60)
	before := cam.Position()

	cam.SwapCameraUp()
	assertVec3Near(t, before, cam.Position(), 1e-4)
	assert.True(t, cam.ZIsUp())

	cam.SwapCameraUp()
	assertVec3Near(t, before, cam.Position(), 1e-4)
	assert.False(t, cam.ZIsUp())
}

func TestAzimuthWrapsIntoPiRange(t *testing.T) {
	opts := DefaultOptions()
	opts.OrbitSensitivity = 1 // make deltas direct angles
	cam := NewOrbitCamera(opts)

	const eps = 0.1
	target := float32(math.Pi) + eps
	cam.Orbit(target-cam.Azimuth(), 0)

	assert.InDelta(t, eps-math.Pi, float64(cam.Azimuth()), 1e-5)
}

func TestPolarClampedToLimits(t *testing.T) {
	opts := DefaultOptions()
	opts.OrbitSensitivity = 1
	cam := NewOrbitCamera(opts)

	cam.Orbit(0, 10)
	assert.InDelta(t, float64(opts.MaxPolar), float64(cam.Polar()), 1e-6)

	cam.Orbit(0, -20)
	assert.InDelta(t, float64(opts.MinPolar), float64(cam.Polar()), 1e-6)
}

func TestZoomClampsDistance(t *testing.T) {
	cam := NewOrbitCamera(nil)

	cam.Zoom(1e9)
	assert.InDelta(t, 9999, float64(cam.Distance()), 1e-3)

	for i := 0; i < 5; i++ {
		cam.Zoom(-9.99) // factor floors at 0.01
	}
	assert.InDelta(t, 0.5, float64(cam.Distance()), 1e-3)
}

func TestResetFramesBoundingSphere(t *testing.T) {
	opts := DefaultOptions()
	cam := NewOrbitCamera(opts)

	center := mgl32.Vec3{1, 2, 3}
	radius := float32(4)
	cam.Reset(center, radius)

	buffered := radius * (1 + opts.FitBuffer)
	sin := float32(math.Sin(float64(mgl32.DegToRad(opts.FOV)) / 2))
	wantDistance := buffered / sin

	require.Equal(t, center, cam.Target())
	assert.InDelta(t, float64(wantDistance), float64(cam.Distance()), 1e-3)
	assert.InDelta(t, float64(wantDistance+50*buffered), float64(cam.Far()), 1e-2)
	assert.InDelta(t, float64(0.001*buffered), float64(cam.Near()), 1e-6)
}

func TestResetZeroRadiusKeepsFrustumValid(t *testing.T) {
	cam := NewOrbitCamera(nil)

	cam.Reset(mgl32.Vec3{1, 2, 3}, 0)

	assert.Greater(t, cam.Distance(), float32(0))
	assert.Greater(t, cam.Near(), float32(0))
	assert.Greater(t, cam.Far(), cam.Near())
}

func TestCardinalViewsYUp(t *testing.T) {
	cam := NewOrbitCamera(nil)
	d := cam.Distance()

	cases := []struct {
		view CardinalView
		want mgl32.Vec3
	}{
		{ViewPosX, mgl32.Vec3{d, 0, 0}},
		{ViewNegX, mgl32.Vec3{-d, 0, 0}},
		{ViewPosZ, mgl32.Vec3{0, 0, d}},
		{ViewNegZ, mgl32.Vec3{0, 0, -d}},
	}
	for _, tc := range cases {
		cam.SetCardinalView(tc.view)
		assertVec3Near(t, tc.want, cam.Position(), 1e-4)
	}

	// Top and bottom hit the polar clamp, so only the dominant axis is exact.
	cam.SetCardinalView(ViewPosY)
	assert.InDelta(t, float64(d), float64(cam.Position().Y()), float64(d)*0.01)
	cam.SetCardinalView(ViewNegY)
	assert.InDelta(t, float64(-d), float64(cam.Position().Y()), float64(d)*0.01)
}

func TestCardinalViewsZUp(t *testing.T) {
	opts := DefaultOptions()
	opts.ZIsUp = true
	cam := NewOrbitCamera(opts)
	d := cam.Distance()

	cam.SetCardinalView(ViewNegY)
	assertVec3Near(t, mgl32.Vec3{0, -d, 0}, cam.Position(), 1e-4)

	cam.SetCardinalView(ViewPosX)
	assertVec3Near(t, mgl32.Vec3{d, 0, 0}, cam.Position(), 1e-4)

	cam.SetCardinalView(ViewPosZ)
	assert.InDelta(t, float64(d), float64(cam.Position().Z()), float64(d)*0.01)
}

func TestCenterRayPointsForward(t *testing.T) {
	cam := NewOrbitCamera(nil)
	cam.Orbit(75, -30)

	ray := cam.CreateRayFromScreenPoint(400, 300, 800, 600)

	_, _, forward := cam.localAxes()
	require.InDelta(t, 1, float64(ray.Direction.Len()), 1e-5)
	assert.InDelta(t, 1, float64(ray.Direction.Dot(forward)), 1e-3)
	assertVec3Near(t, cam.Position(), ray.Origin, 1e-5)
}

func TestRayFallsBackOnSingularViewProjection(t *testing.T) {
	cam := NewOrbitCamera(nil)
	cam.SetProjection(Orthographic)
	// Zero half-height makes the orthographic projection non-invertible.
	cam.orthoHeight = 0
	cam.dirty = true

	ray := cam.CreateRayFromScreenPoint(10, 20, 800, 600)

	assertVec3Near(t, cam.Position(), ray.Origin, 1e-5)
	require.InDelta(t, 1, float64(ray.Direction.Len()), 1e-5)
	for i := 0; i < 3; i++ {
		assert.False(t, math.IsNaN(float64(ray.Direction[i])), "component %d", i)
		assert.False(t, math.IsInf(float64(ray.Direction[i]), 0), "component %d", i)
	}
}

func TestRayHandlesDegenerateViewport(t *testing.T) {
	cam := NewOrbitCamera(nil)
	ray := cam.CreateRayFromScreenPoint(0, 0, 0, 0)
	assert.InDelta(t, 1, float64(ray.Direction.Len()), 1e-5)
}

func TestKeyboardPanFasterThanMouse(t *testing.T) {
	mouse := NewOrbitCamera(nil)
	keys := NewOrbitCamera(nil)

	// Same unit delta; keyboard pan carries the repeat-rate factor.
	mouse.PanWithMouse(0, -1, false)
	keys.PanWithKeyboard(0, 0, 1, false)

	mouseMove := mouse.Target().Len()
	keyMove := keys.Target().Len()
	assert.InDelta(t, 5, float64(keyMove/mouseMove), 1e-4)
}

func TestPanFastModifier(t *testing.T) {
	opts := DefaultOptions()
	slow := NewOrbitCamera(opts)
	fast := NewOrbitCamera(opts)

	slow.PanWithMouse(10, 0, false)
	fast.PanWithMouse(10, 0, true)

	ratio := fast.Target().Len() / slow.Target().Len()
	assert.InDelta(t, float64(opts.PanSpeedMultiplier), float64(ratio), 1e-4)
}

func TestOrthographicZoomScalesHeight(t *testing.T) {
	cam := NewOrbitCamera(nil)
	cam.SetProjection(Orthographic)
	before := cam.Distance()

	cam.Zoom(1)
	// Orthographic zoom leaves the orbit distance alone.
	assert.Equal(t, before, cam.Distance())

	proj := cam.ProjectionMatrix(1)
	assert.NotEqual(t, mgl32.Mat4{}, proj)
}
