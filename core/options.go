package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Options is the flat viewer configuration. The hosting viewer owns the one
// live instance; camera and renderer hold a reference to it, so edits are
// visible immediately. Anything that needs a device-side reaction goes
// through Diff once per update cycle instead of per-field observers.
type Options struct {
	ZIsUp       bool
	SampleCount int

	// Lighting
	LightDir      mgl32.Vec3
	Ambient       float32
	SpecularPower float32

	// Colors
	BaseColor  mgl32.Vec4
	LineColor  mgl32.Vec4
	ClearColor mgl32.Vec4

	// Grid and coordinate axes
	GridSize            float32
	GridSpacing         float32
	LineWidthX          float32
	LineWidthY          float32
	AxisLength          float32
	CoordinateThickness float32

	// Camera projection and fit
	FOV       float32 // vertical field of view, degrees
	FitBuffer float32 // fractional margin added around the bounding sphere on Reset

	// Camera constraints
	ConstrainAzimuth  bool
	MinAzimuth        float32
	MaxAzimuth        float32
	ConstrainPolar    bool
	MinPolar          float32
	MaxPolar          float32
	ConstrainDistance bool
	MinDistance       float32
	MaxDistance       float32

	// Input sensitivity
	OrbitSensitivity   float32
	ZoomSensitivity    float32
	PanSensitivity     float32
	PanSpeedMultiplier float32
}

func DefaultOptions() *Options {
	return &Options{
		ZIsUp:       false,
		SampleCount: 4,

		LightDir:      mgl32.Vec3{-0.5, -1, -0.3},
		Ambient:       0.25,
		SpecularPower: 32,

		BaseColor:  mgl32.Vec4{0.7, 0.7, 0.75, 1},
		LineColor:  mgl32.Vec4{0.45, 0.45, 0.45, 1},
		ClearColor: mgl32.Vec4{0.12, 0.12, 0.14, 1},

		GridSize:            20,
		GridSpacing:         1,
		LineWidthX:          1,
		LineWidthY:          1,
		AxisLength:          1.2,
		CoordinateThickness: 0.01,

		FOV:       45,
		FitBuffer: 0.2,

		ConstrainPolar:    true,
		MinPolar:          float32(-math.Pi/2) + 0.01,
		MaxPolar:          float32(math.Pi/2) - 0.01,
		ConstrainDistance: true,
		MinDistance:       0.5,
		MaxDistance:       9999,

		OrbitSensitivity:   0.005,
		ZoomSensitivity:    0.1,
		PanSensitivity:     0.001,
		PanSpeedMultiplier: 4,
	}
}

// Reaction classifies what the renderer must do about a changed option.
type Reaction int

const (
	// ReactionNone: consumed live (camera constraints, sensitivities).
	ReactionNone Reaction = iota
	// ReactionUniform: rewrite a uniform buffer, nothing else.
	ReactionUniform
	// ReactionGeometry: regenerate grid/axes vertex data, keep pipelines.
	ReactionGeometry
	// ReactionPipeline: pipeline state requirements changed, full rebuild.
	ReactionPipeline
)

type Change struct {
	Field    string
	Reaction Reaction
}

const optionEpsilon = 1e-6

func feq(a, b float32) bool {
	return math.Abs(float64(a-b)) <= optionEpsilon
}

func veq3(a, b mgl32.Vec3) bool {
	return feq(a[0], b[0]) && feq(a[1], b[1]) && feq(a[2], b[2])
}

func veq4(a, b mgl32.Vec4) bool {
	return feq(a[0], b[0]) && feq(a[1], b[1]) && feq(a[2], b[2]) && feq(a[3], b[3])
}

// Diff compares two option snapshots and reports every real change together
// with the reaction it requires. Float comparisons use a small tolerance so
// UI round-trips don't produce spurious notifications.
func Diff(old, new *Options) []Change {
	var out []Change
	add := func(field string, r Reaction) {
		out = append(out, Change{Field: field, Reaction: r})
	}

	if old.ZIsUp != new.ZIsUp {
		add("ZIsUp", ReactionGeometry)
	}
	if old.SampleCount != new.SampleCount {
		add("SampleCount", ReactionPipeline)
	}

	if !veq3(old.LightDir, new.LightDir) {
		add("LightDir", ReactionUniform)
	}
	if !feq(old.Ambient, new.Ambient) {
		add("Ambient", ReactionUniform)
	}
	if !feq(old.SpecularPower, new.SpecularPower) {
		add("SpecularPower", ReactionUniform)
	}

	if !veq4(old.BaseColor, new.BaseColor) {
		add("BaseColor", ReactionUniform)
	}
	if !veq4(old.LineColor, new.LineColor) {
		// Crossing the alpha<1 boundary flips the grid between the opaque
		// and transparent pipeline variants.
		if (old.LineColor[3] < 1) != (new.LineColor[3] < 1) {
			add("LineColor", ReactionPipeline)
		} else {
			add("LineColor", ReactionUniform)
		}
	}
	if !veq4(old.ClearColor, new.ClearColor) {
		add("ClearColor", ReactionUniform)
	}

	if !feq(old.GridSize, new.GridSize) {
		add("GridSize", ReactionGeometry)
	}
	if !feq(old.GridSpacing, new.GridSpacing) {
		add("GridSpacing", ReactionGeometry)
	}
	if !feq(old.LineWidthX, new.LineWidthX) {
		add("LineWidthX", ReactionUniform)
	}
	if !feq(old.LineWidthY, new.LineWidthY) {
		add("LineWidthY", ReactionUniform)
	}
	if !feq(old.AxisLength, new.AxisLength) {
		add("AxisLength", ReactionGeometry)
	}
	if !feq(old.CoordinateThickness, new.CoordinateThickness) {
		add("CoordinateThickness", ReactionUniform)
	}

	if !feq(old.FOV, new.FOV) {
		add("FOV", ReactionNone)
	}
	if !feq(old.FitBuffer, new.FitBuffer) {
		add("FitBuffer", ReactionNone)
	}

	if old.ConstrainAzimuth != new.ConstrainAzimuth ||
		!feq(old.MinAzimuth, new.MinAzimuth) || !feq(old.MaxAzimuth, new.MaxAzimuth) ||
		old.ConstrainPolar != new.ConstrainPolar ||
		!feq(old.MinPolar, new.MinPolar) || !feq(old.MaxPolar, new.MaxPolar) ||
		old.ConstrainDistance != new.ConstrainDistance ||
		!feq(old.MinDistance, new.MinDistance) || !feq(old.MaxDistance, new.MaxDistance) {
		add("Constraints", ReactionNone)
	}

	if !feq(old.OrbitSensitivity, new.OrbitSensitivity) ||
		!feq(old.ZoomSensitivity, new.ZoomSensitivity) ||
		!feq(old.PanSensitivity, new.PanSensitivity) ||
		!feq(old.PanSpeedMultiplier, new.PanSpeedMultiplier) {
		add("Sensitivity", ReactionNone)
	}

	return out
}
