package libscn_test

import (
	"testing"

	"bokeh-gl/dof"
	"bokeh-gl/libscn"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCameraRayThroughCenter(t *testing.T) {
	cam := libscn.NewCamera(64, 48)
	cam.Position = mgl32.Vec3{1, 2, 3}
	cam.Orientation = mgl32.Vec3{}
	cam.UpdateViewMatrix()

	dir := cam.Ray(32, 24)
	assert.InDeltaSlice(t, []float32{0, 0, -1}, dir[:], 1e-4)

	// right half of the viewport looks right
	assert.Greater(t, cam.Ray(60, 24).X(), float32(0))
	// origin is bottom left
	assert.Less(t, cam.Ray(32, 2).Y(), float32(0))
}

func TestRenderBackgroundAndHits(t *testing.T) {
	scene := &libscn.Scene{
		Spheres: []libscn.Sphere{{Center: mgl32.Vec3{0, 0, -5}, Radius: 1, Emission: mgl32.Vec3{7, 7, 7}}},
		Sky:     mgl32.Vec3{0.1, 0.2, 0.3},
	}
	cam := libscn.NewCamera(32, 32)
	cam.Position = mgl32.Vec3{}
	cam.Orientation = mgl32.Vec3{}

	gb := scene.Render(cam, 32, 32)
	require.Equal(t, 32, gb.Color.Width)

	center := gb.Position.Vec4(16, 16)
	assert.Equal(t, float32(1), center.W())
	assert.InDelta(t, -4, center.Z(), 0.05)
	assert.InDeltaSlice(t, []float32{7, 7, 7, 1}, gb.Color.Pix[gb.Color.Index(16, 16):gb.Color.Index(16, 16)+4], 1e-5)

	corner := gb.Position.Vec4(0, 0)
	assert.Zero(t, corner.W())
	assert.Equal(t, mgl32.Vec4{0.1, 0.2, 0.3, 1}, gb.Color.Vec4(0, 0))

	// the linear depth seen by the pipeline matches the hit distance along the view axis
	depth := dof.LinearDepth(cam.ViewMatrix, center, 20)
	assert.InDelta(t, 4, depth, 0.05)
}

func TestDefaultSceneProducesBokeh(t *testing.T) {
	const w, h = 160, 90
	cam := libscn.NewCamera(w, h)
	gb := libscn.DefaultScene().Render(cam, w, h)

	sw := dof.NewSoftware(w, h)
	_, err := sw.Draw(dof.Frame{Color: gb.Color, Position: gb.Position, View: cam.ViewMatrix}, dof.DefaultParams())
	require.NoError(t, err)
	assert.Greater(t, sw.Stats().BokehCount, 0)
}
