package dofcl_test

import (
	"math/rand"
	"testing"

	"bokeh-gl/dof"
	"bokeh-gl/dof/dofcl"
	"bokeh-gl/libio"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSize = 24

func newProcessor(t *testing.T) *dofcl.Processor {
	t.Helper()
	proc, err := dofcl.NewProcessor(testSize, testSize, dofcl.DeviceTypeCPU)
	if err != nil {
		t.Skipf("no usable opencl device: %v", err)
	}
	t.Cleanup(proc.Release)
	return proc
}

func testFrame(seed int64) dof.Frame {
	rng := rand.New(rand.NewSource(seed))
	color := libio.NewBlankFloatImage(3, testSize, testSize)
	position := libio.NewBlankFloatImage(4, testSize, testSize)
	for y := 0; y < testSize; y++ {
		for x := 0; x < testSize; x++ {
			c := mgl32.Vec4{rng.Float32(), rng.Float32(), rng.Float32()}
			if rng.Intn(12) == 0 {
				c = c.Mul(30_000)
			}
			color.SetVec4(x, y, c)
			var w float32 = 1
			if rng.Intn(20) == 0 {
				w = 0
			}
			position.SetVec4(x, y, mgl32.Vec4{float32(x), float32(y), -rng.Float32() * 25, w})
		}
	}
	view := mgl32.LookAtV(mgl32.Vec3{0, 0, 2}, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0})
	return dof.Frame{Color: color, Position: position, View: view}
}

func assertClose(t *testing.T, want, got []float32, tolerance float32) {
	t.Helper()
	require.Equal(t, len(want), len(got))
	for i := range want {
		diff := math32.Abs(want[i] - got[i])
		scale := math32.Max(1, math32.Abs(want[i]))
		if diff > tolerance*scale {
			t.Fatalf("value %d (pixel %d): want %v, got %v", i, i/4, want[i], got[i])
		}
	}
}

func TestMatchesSoftware(t *testing.T) {
	for _, blur := range []dof.BlurStrategy{dof.BlurSeparable, dof.BlurPoisson} {
		t.Run(blur.String(), func(t *testing.T) {
			proc := newProcessor(t)
			p := dof.DefaultParams()
			p.Blur = blur
			frame := testFrame(7)

			sw := dof.NewSoftware(testSize, testSize)
			want, err := sw.Draw(frame, p)
			require.NoError(t, err)

			got, err := proc.Draw(frame, p)
			require.NoError(t, err)

			assert.Equal(t, sw.Stats().BokehCount, proc.Stats().BokehCount)
			assert.Zero(t, proc.Stats().Dropped)
			assertClose(t, want.Pix, got.Pix, 1e-3)
		})
	}
}

func TestPointsMatchSoftware(t *testing.T) {
	proc := newProcessor(t)
	p := dof.DefaultParams()
	frame := testFrame(3)

	sw := dof.NewSoftware(testSize, testSize)
	_, err := sw.Draw(frame, p)
	require.NoError(t, err)
	_, err = proc.Draw(frame, p)
	require.NoError(t, err)

	points, err := proc.ReadPoints(proc.Stats().BokehCount)
	require.NoError(t, err)
	dof.SortPoints(points)

	want := sw.Points()
	require.Len(t, points, len(want))
	for i := range want {
		assert.Equal(t, want[i].Origin, points[i].Origin)
		assert.InDeltaSlice(t, want[i].Position[:], points[i].Position[:], 1e-3)
		assert.Equal(t, want[i].Color, points[i].Color)
	}
}

func TestRepeatedDrawIsStable(t *testing.T) {
	proc := newProcessor(t)
	p := dof.DefaultParams()
	frame := testFrame(11)

	first, err := proc.Draw(frame, p)
	require.NoError(t, err)
	firstPix := append([]float32(nil), first.Pix...)
	firstCount := proc.Stats().BokehCount

	second, err := proc.Draw(frame, p)
	require.NoError(t, err)
	assert.Equal(t, firstCount, proc.Stats().BokehCount)
	assertClose(t, firstPix, second.Pix, 1e-5)
}

func TestSizeMismatch(t *testing.T) {
	proc := newProcessor(t)
	frame := testFrame(1)
	frame.Color = libio.NewBlankFloatImage(4, testSize+1, testSize)

	_, err := proc.Draw(frame, dof.DefaultParams())
	assert.ErrorIs(t, err, dof.ErrSizeMismatch)
}
