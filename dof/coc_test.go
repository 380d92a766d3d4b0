package dof_test

import (
	"math/rand"
	"testing"

	"bokeh-gl/dof"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestCircleOfConfusionClamped(t *testing.T) {
	p := dof.DefaultParams()
	rng := rand.New(rand.NewSource(0))
	for i := 0; i < 10_000; i++ {
		depth := rng.Float32()*100 - 10
		coc := dof.CircleOfConfusion(depth, p)
		if coc < 0 || coc > p.MaxCoCRadius {
			t.Fatalf("coc(%v) = %v, outside [0, %v]", depth, coc, p.MaxCoCRadius)
		}
	}
}

func TestCircleOfConfusionRamps(t *testing.T) {
	p := dof.DefaultParams()

	assert.Zero(t, dof.CircleOfConfusion(5, p), "in focus")
	assert.Zero(t, dof.CircleOfConfusion(p.NearEnd, p))
	assert.Zero(t, dof.CircleOfConfusion(p.FarStart, p))
	assert.InDelta(t, p.MaxCoCRadius, dof.CircleOfConfusion(p.FarEnd, p), 1e-5)
	assert.InDelta(t, p.MaxCoCRadius, dof.CircleOfConfusion(1000, p), 1e-5)
	assert.InDelta(t, 8.0, dof.CircleOfConfusion(18, p), 1e-5)
	assert.InDelta(t, p.MaxCoCRadius, dof.CircleOfConfusion(p.NearStart, p), 1e-5)
	assert.InDelta(t, p.MaxCoCRadius, dof.CircleOfConfusion(-1, p), 1e-5)

	prev := float32(-1)
	for d := p.FarStart; d <= p.FarEnd+5; d += 0.25 {
		coc := dof.CircleOfConfusion(d, p)
		assert.GreaterOrEqual(t, coc, prev, "far field must not decrease at depth %v", d)
		prev = coc
	}

	prev = float32(-1)
	for d := p.NearEnd; d >= 0; d -= 0.05 {
		coc := dof.CircleOfConfusion(d, p)
		assert.GreaterOrEqual(t, coc, prev, "near field must not decrease at depth %v", d)
		prev = coc
	}
}

func TestCircleOfConfusionDegenerateRange(t *testing.T) {
	p := dof.DefaultParams()
	p.NearStart, p.NearEnd = 0, 0
	p.FarStart, p.FarEnd = 10, 10

	assert.Zero(t, dof.CircleOfConfusion(0.001, p), "near field disabled")
	assert.Zero(t, dof.CircleOfConfusion(10, p))
	assert.Equal(t, p.MaxCoCRadius, dof.CircleOfConfusion(10.001, p))
}

func TestLinearDepth(t *testing.T) {
	view := mgl32.LookAtV(mgl32.Vec3{0, 0, 5}, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0})

	assert.InDelta(t, 5.0, dof.LinearDepth(view, mgl32.Vec4{0, 0, 0, 1}, 20), 1e-5)
	assert.InDelta(t, 7.0, dof.LinearDepth(view, mgl32.Vec4{3, 1, -2, 1}, 20), 1e-5)
	assert.Equal(t, float32(20), dof.LinearDepth(view, mgl32.Vec4{0, 0, 0, 0}, 20), "background")
}

func TestIsBokeh(t *testing.T) {
	p := dof.DefaultParams()
	bright := mgl32.Vec3{6000, 6000, 6000}
	dark := mgl32.Vec3{1, 1, 1}

	assert.True(t, dof.IsBokeh(bright, 8, p))
	assert.False(t, dof.IsBokeh(bright, p.CoCThreshold, p), "coc must exceed the threshold")
	assert.False(t, dof.IsBokeh(dark, 8, p))
	assert.InDelta(t, 1.0, dof.Luminance(mgl32.Vec3{1, 1, 1}), 1e-6)
}

func TestParamsNormalized(t *testing.T) {
	p := dof.DefaultParams()
	p.NSamples = 0
	assert.Equal(t, 1, p.Normalized().NSamples)
	p.NSamples = 100
	assert.Equal(t, dof.MaxSamples, p.Normalized().NSamples)
	p.Blur = dof.BlurStrategy(7)
	assert.Equal(t, dof.BlurSeparable, p.Normalized().Blur)

	s, err := dof.ParseBlurStrategy("poisson")
	assert.NoError(t, err)
	assert.Equal(t, dof.BlurPoisson, s)
	_, err = dof.ParseBlurStrategy("box")
	assert.Error(t, err)
}
