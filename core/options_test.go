package core

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reactionFor(t *testing.T, changes []Change, field string) Reaction {
	t.Helper()
	for _, c := range changes {
		if c.Field == field {
			return c.Reaction
		}
	}
	t.Fatalf("no change recorded for %s", field)
	return ReactionNone
}

func TestDiffIdenticalOptionsIsEmpty(t *testing.T) {
	a := DefaultOptions()
	b := *a
	assert.Empty(t, Diff(a, &b))
}

func TestDiffIgnoresSubEpsilonNoise(t *testing.T) {
	a := DefaultOptions()
	b := *a
	b.Ambient += 1e-8
	b.GridSpacing += 5e-7
	assert.Empty(t, Diff(a, &b))
}

func TestDiffReactionKinds(t *testing.T) {
	a := DefaultOptions()
	b := *a
	b.LightDir = mgl32.Vec3{0, -1, 0}
	b.GridSize = 40
	b.SampleCount = 1
	b.ZIsUp = true
	b.LineWidthX = 2

	changes := Diff(a, &b)
	require.Len(t, changes, 5)

	assert.Equal(t, ReactionUniform, reactionFor(t, changes, "LightDir"))
	assert.Equal(t, ReactionGeometry, reactionFor(t, changes, "GridSize"))
	assert.Equal(t, ReactionPipeline, reactionFor(t, changes, "SampleCount"))
	assert.Equal(t, ReactionGeometry, reactionFor(t, changes, "ZIsUp"))
	assert.Equal(t, ReactionUniform, reactionFor(t, changes, "LineWidthX"))
}

func TestDiffLineColorAlphaBoundary(t *testing.T) {
	a := DefaultOptions()

	// Hue-only change stays a uniform rewrite.
	b := *a
	b.LineColor = mgl32.Vec4{0.2, 0.2, 0.2, 1}
	changes := Diff(a, &b)
	assert.Equal(t, ReactionUniform, reactionFor(t, changes, "LineColor"))

	// Crossing below alpha 1 flips the grid pipeline variant.
	c := *a
	c.LineColor = mgl32.Vec4{0.45, 0.45, 0.45, 0.5}
	changes = Diff(a, &c)
	assert.Equal(t, ReactionPipeline, reactionFor(t, changes, "LineColor"))

	// Changing alpha within the transparent range stays a uniform rewrite.
	d := c
	d.LineColor[3] = 0.3
	changes = Diff(&c, &d)
	assert.Equal(t, ReactionUniform, reactionFor(t, changes, "LineColor"))
}

func TestDiffCameraTuningNeedsNoDeviceWork(t *testing.T) {
	a := DefaultOptions()
	b := *a
	b.FOV = 60
	b.MaxDistance = 500
	b.OrbitSensitivity = 0.01

	changes := Diff(a, &b)
	for _, c := range changes {
		assert.Equal(t, ReactionNone, c.Reaction, "field %s", c.Field)
	}
}
