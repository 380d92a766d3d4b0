package dof_test

import (
	"testing"

	"bokeh-gl/dof"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestPoissonSamplesTable(t *testing.T) {
	assert.Len(t, dof.PoissonSamples, 32)
	assert.Equal(t, mgl32.Vec2{-0.353553, 0.612372}, dof.PoissonSamples[0])
	assert.Equal(t, mgl32.Vec2{-0.0562987, 0.966608}, dof.PoissonSamples[14])
	assert.Equal(t, mgl32.Vec2{0.0311802, -0.121049}, dof.PoissonSamples[31])

	for i, s := range dof.PoissonSamples {
		assert.LessOrEqual(t, s.Len(), float32(1), "sample %d outside the unit disk", i)
	}
}

func TestSamplePrefix(t *testing.T) {
	assert.Len(t, dof.SamplePrefix(1), 1)
	assert.Len(t, dof.SamplePrefix(0), 1)
	assert.Len(t, dof.SamplePrefix(24), 24)
	assert.Len(t, dof.SamplePrefix(33), 32)

	prefix := dof.SamplePrefix(5)
	for i := range prefix {
		assert.Equal(t, dof.PoissonSamples[i], prefix[i])
	}
}
