package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

type ProjectionKind int

const (
	Perspective ProjectionKind = iota
	Orthographic
)

// CardinalView identifies one of the six axis-aligned camera snaps.
type CardinalView int

const (
	ViewPosX CardinalView = iota
	ViewNegX
	ViewPosY
	ViewNegY
	ViewPosZ
	ViewNegZ
)

const (
	defaultAzimuth  = float32(math.Pi / 4) // 45 degrees
	defaultPolar    = float32(math.Pi / 6) // 30 degrees
	defaultDistance = float32(10)
)

// OrbitCamera holds azimuth/polar/distance/target state and derives camera,
// view and projection matrices from it. Matrices are cached behind a dirty
// flag: every mutator marks the cache stale and the next read rebuilds it.
// The camera reads constraint and sensitivity values straight from the live
// Options, never from a copy.
type OrbitCamera struct {
	opts *Options

	azimuth  float32
	polar    float32
	distance float32
	target   mgl32.Vec3

	zIsUp       bool
	projection  ProjectionKind
	orthoHeight float32
	near        float32
	far         float32

	dirty    bool
	camMat   mgl32.Mat4
	viewMat  mgl32.Mat4
	position mgl32.Vec3
}

func NewOrbitCamera(opts *Options) *OrbitCamera {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &OrbitCamera{
		opts:        opts,
		azimuth:     defaultAzimuth,
		polar:       defaultPolar,
		distance:    defaultDistance,
		zIsUp:       opts.ZIsUp,
		orthoHeight: defaultDistance / 2,
		near:        0.01,
		far:         1000,
		dirty:       true,
	}
}

func (c *OrbitCamera) Azimuth() float32      { return c.azimuth }
func (c *OrbitCamera) Polar() float32        { return c.polar }
func (c *OrbitCamera) Distance() float32     { return c.distance }
func (c *OrbitCamera) Target() mgl32.Vec3    { return c.target }
func (c *OrbitCamera) Near() float32         { return c.near }
func (c *OrbitCamera) Far() float32          { return c.far }
func (c *OrbitCamera) ZIsUp() bool           { return c.zIsUp }
func (c *OrbitCamera) Projection() ProjectionKind { return c.projection }

func (c *OrbitCamera) SetProjection(kind ProjectionKind) {
	if c.projection != kind {
		c.projection = kind
		c.dirty = true
	}
}

// CameraMatrix returns the camera-to-world transform.
func (c *OrbitCamera) CameraMatrix() mgl32.Mat4 {
	c.refresh()
	return c.camMat
}

// ViewMatrix returns the exact matrix inverse of the camera matrix.
func (c *OrbitCamera) ViewMatrix() mgl32.Mat4 {
	c.refresh()
	return c.viewMat
}

// Position returns the world-space camera position.
func (c *OrbitCamera) Position() mgl32.Vec3 {
	c.refresh()
	return c.position
}

func (c *OrbitCamera) refresh() {
	if !c.dirty {
		return
	}
	var rot mgl32.Mat4
	if c.zIsUp {
		rot = mgl32.HomogRotate3DZ(c.azimuth).
			Mul4(mgl32.HomogRotate3DX(float32(math.Pi/2) - c.polar))
	} else {
		rot = mgl32.HomogRotate3DY(c.azimuth).
			Mul4(mgl32.HomogRotate3DX(-c.polar))
	}
	c.camMat = mgl32.Translate3D(c.target.X(), c.target.Y(), c.target.Z()).
		Mul4(rot).
		Mul4(mgl32.Translate3D(0, 0, c.distance))
	c.viewMat = c.camMat.Inv()
	c.position = c.camMat.Mul4x1(mgl32.Vec4{0, 0, 0, 1}).Vec3()
	c.dirty = false
}

// ProjectionMatrix builds the projection for the current mode. Near and far
// planes come from the last Reset so depth precision tracks the part size.
func (c *OrbitCamera) ProjectionMatrix(aspect float32) mgl32.Mat4 {
	if aspect <= 0 {
		aspect = 1
	}
	if c.projection == Orthographic {
		h := c.orthoHeight
		return mgl32.Ortho(-h*aspect, h*aspect, -h, h, c.near, c.far)
	}
	return mgl32.Perspective(mgl32.DegToRad(c.opts.FOV), aspect, c.near, c.far)
}

// wrapPi maps an angle into [-pi, pi).
func wrapPi(a float32) float32 {
	const twoPi = 2 * math.Pi
	w := math.Mod(float64(a)+math.Pi, twoPi)
	if w < 0 {
		w += twoPi
	}
	return float32(w - math.Pi)
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (c *OrbitCamera) applyAngleLimits() {
	if c.opts.ConstrainAzimuth {
		c.azimuth = clamp(c.azimuth, c.opts.MinAzimuth, c.opts.MaxAzimuth)
	} else {
		c.azimuth = wrapPi(c.azimuth)
	}
	if c.opts.ConstrainPolar {
		c.polar = clamp(c.polar, c.opts.MinPolar, c.opts.MaxPolar)
	}
}

func (c *OrbitCamera) clampDistance(d float32) float32 {
	if c.opts.ConstrainDistance {
		return clamp(d, c.opts.MinDistance, c.opts.MaxDistance)
	}
	return d
}

// Orbit applies pointer deltas to the azimuth and polar angles.
func (c *OrbitCamera) Orbit(deltaAzimuth, deltaPolar float32) {
	c.azimuth += deltaAzimuth * c.opts.OrbitSensitivity
	c.polar += deltaPolar * c.opts.OrbitSensitivity
	c.applyAngleLimits()
	c.dirty = true
}

// Zoom scales the orbit distance (perspective) or the orthographic
// half-height by 1 + wheelDelta * zoom sensitivity.
func (c *OrbitCamera) Zoom(wheelDelta float32) {
	factor := 1 + wheelDelta*c.opts.ZoomSensitivity
	if factor < 0.01 {
		factor = 0.01
	}
	if c.projection == Orthographic {
		c.orthoHeight = c.clampDistance(c.orthoHeight * factor)
	} else {
		c.distance = c.clampDistance(c.distance * factor)
	}
	c.dirty = true
}

// localAxes returns the camera right/up/forward axes in world space.
func (c *OrbitCamera) localAxes() (right, up, forward mgl32.Vec3) {
	m := c.CameraMatrix()
	right = mgl32.Vec3{m.At(0, 0), m.At(1, 0), m.At(2, 0)}
	up = mgl32.Vec3{m.At(0, 1), m.At(1, 1), m.At(2, 1)}
	forward = mgl32.Vec3{-m.At(0, 2), -m.At(1, 2), -m.At(2, 2)}
	return
}

func (c *OrbitCamera) panScale(fast bool) float32 {
	s := c.distance * c.opts.PanSensitivity
	if fast {
		s *= c.opts.PanSpeedMultiplier
	}
	return s
}

// PanWithMouse moves the target along the camera's right/up axes from
// per-pixel pointer deltas. Dragging right moves the scene right, which moves
// the target the opposite way; screen Y grows downward.
func (c *OrbitCamera) PanWithMouse(dx, dy float32, fast bool) {
	right, up, _ := c.localAxes()
	s := c.panScale(fast)
	c.target = c.target.Sub(right.Mul(dx * s)).Add(up.Mul(dy * s))
	c.dirty = true
}

// keyboardPanFactor compensates per-tick key repeat against per-pixel mouse
// deltas.
const keyboardPanFactor = 5

// PanWithKeyboard moves the target along the camera's local forward/right/up
// axes from unit key-press deltas.
func (c *OrbitCamera) PanWithKeyboard(forward, right, up float32, fast bool) {
	r, u, f := c.localAxes()
	s := c.panScale(fast) * keyboardPanFactor
	c.target = c.target.
		Add(f.Mul(forward * s)).
		Add(r.Mul(right * s)).
		Add(u.Mul(up * s))
	c.dirty = true
}

// Reset recenters the target on the bounding sphere and sets distance so the
// buffered sphere exactly fills the configured field of view. Near/far clip
// planes are derived from the buffered radius so the part is always fully
// visible and depth precision scales with part size.
func (c *OrbitCamera) Reset(center mgl32.Vec3, radius float32) {
	c.target = center
	c.azimuth = defaultAzimuth
	c.polar = defaultPolar

	// A degenerate sphere would collapse the frustum; frame a unit part.
	if radius < 1e-6 {
		radius = 1
	}
	buffered := radius * (1 + c.opts.FitBuffer)
	halfFov := float64(mgl32.DegToRad(c.opts.FOV)) / 2
	sin := float32(math.Sin(halfFov))
	if sin < 1e-6 {
		sin = 1e-6
	}
	c.distance = buffered / sin
	c.orthoHeight = buffered
	c.far = c.distance + 50*buffered
	c.near = float32(math.Max(0.0001, float64(0.001*buffered)))
	c.dirty = true
}

// SetCardinalView snaps azimuth/polar so the camera looks along one of the
// six world axes. Angle assignment depends on the up-axis convention.
func (c *OrbitCamera) SetCardinalView(view CardinalView) {
	const half = float32(math.Pi / 2)
	if c.zIsUp {
		switch view {
		case ViewPosX:
			c.azimuth, c.polar = half, 0
		case ViewNegX:
			c.azimuth, c.polar = -half, 0
		case ViewPosY:
			c.azimuth, c.polar = -float32(math.Pi), 0
		case ViewNegY:
			c.azimuth, c.polar = 0, 0
		case ViewPosZ:
			c.azimuth, c.polar = 0, half
		case ViewNegZ:
			c.azimuth, c.polar = 0, -half
		}
	} else {
		switch view {
		case ViewPosX:
			c.azimuth, c.polar = half, 0
		case ViewNegX:
			c.azimuth, c.polar = -half, 0
		case ViewPosY:
			c.azimuth, c.polar = 0, half
		case ViewNegY:
			c.azimuth, c.polar = 0, -half
		case ViewPosZ:
			c.azimuth, c.polar = 0, 0
		case ViewNegZ:
			c.azimuth, c.polar = -float32(math.Pi), 0
		}
	}
	c.applyAngleLimits()
	c.dirty = true
}

// SwapCameraUp toggles between Y-up and Z-up and reconstructs azimuth/polar
// from the current offset vector so the visual camera position is preserved.
func (c *OrbitCamera) SwapCameraUp() {
	offset := c.Position().Sub(c.target)
	dist := offset.Len()
	c.zIsUp = !c.zIsUp
	if dist > 1e-9 {
		if c.zIsUp {
			c.polar = float32(math.Asin(float64(clamp(offset.Z()/dist, -1, 1))))
			c.azimuth = float32(math.Atan2(float64(offset.X()), float64(-offset.Y())))
		} else {
			c.polar = float32(math.Asin(float64(clamp(offset.Y()/dist, -1, 1))))
			c.azimuth = float32(math.Atan2(float64(offset.X()), float64(offset.Z())))
		}
		c.applyAngleLimits()
	}
	c.dirty = true
}

// Ray is a world-space pick ray with a normalized direction.
type Ray struct {
	Origin    mgl32.Vec3
	Direction mgl32.Vec3
}

// CreateRayFromScreenPoint unprojects a pixel coordinate through the inverse
// view-projection matrix into a pick ray. If the view-projection matrix is
// singular the camera matrix is used instead, trading projection accuracy
// for robustness.
func (c *OrbitCamera) CreateRayFromScreenPoint(x, y, width, height float32) Ray {
	if width <= 0 || height <= 0 {
		width, height = 1, 1
	}
	ndcX := 2*x/width - 1
	ndcY := 1 - 2*y/height

	vp := c.ProjectionMatrix(width / height).Mul4(c.ViewMatrix())
	inv := vp.Inv()
	if det := float64(vp.Det()); det == 0 || math.IsNaN(det) || math.IsInf(det, 0) {
		inv = c.CameraMatrix()
	}

	far := inv.Mul4x1(mgl32.Vec4{ndcX, ndcY, 1, 1})
	if w := far.W(); w != 0 {
		far = far.Mul(1 / w)
	}

	origin := c.Position()
	dir := far.Vec3().Sub(origin)
	if dir.Len() < 1e-12 {
		_, _, fwd := c.localAxes()
		dir = fwd
	}
	return Ray{Origin: origin, Direction: dir.Normalize()}
}
