package dofgl_test

import (
	"io/fs"
	"testing"
	"testing/fstest"

	"bokeh-gl/dof"
	"bokeh-gl/dof/dofgl"
	"bokeh-gl/libgl"
	"bokeh-gl/libio"

	"github.com/go-gl/gl/v4.5-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHost(t *testing.T) *dofgl.Host {
	t.Helper()
	var host *dofgl.Host
	var err error
	runMain(t, func() {
		host, err = dofgl.NewHost(testSize, testSize, dofgl.Options{Timings: true})
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		onMain <- host.Release
		<-onMainDone
	})
	return host
}

func TestDarkSceneMatchesSoftware(t *testing.T) {
	for _, blur := range []dof.BlurStrategy{dof.BlurSeparable, dof.BlurPoisson} {
		t.Run(blur.String(), func(t *testing.T) {
			host := newHost(t)
			p := dof.DefaultParams()
			p.Blur = blur
			frame := uniformFrame(testSize, 15, mgl32.Vec3{0.3, 0.2, 0.1})

			want, err := dof.NewSoftware(testSize, testSize).Draw(frame, p)
			require.NoError(t, err)

			var got []float32
			runMain(t, func() {
				out, drawErr := host.Draw(frame, p)
				err = drawErr
				if out != nil {
					got = append(got, out.Pix...)
				}
			})
			require.NoError(t, err)
			assert.Zero(t, host.Stats().BokehCount)

			for i := 0; i < len(got); i += 4 {
				for c := 0; c < 3; c++ {
					if !closeRel(want.Pix[i+c], got[i+c], 1e-5) {
						t.Fatalf("pixel %d channel %d: want %v, got %v", i/4, c, want.Pix[i+c], got[i+c])
					}
				}
			}
		})
	}
}

func TestSinglePointSource(t *testing.T) {
	host := newHost(t)
	p := dof.DefaultParams()
	frame := uniformFrame(testSize, 18, mgl32.Vec3{0.1, 0.1, 0.1})
	frame.Color.SetVec4(16, 16, mgl32.Vec4{10000, 10000, 10000, 1})

	sw := dof.NewSoftware(testSize, testSize)
	want, err := sw.Draw(frame, p)
	require.NoError(t, err)

	var center mgl32.Vec4
	var count int
	var points []dof.Point
	runMain(t, func() {
		out, drawErr := host.Draw(frame, p)
		err = drawErr
		if out != nil {
			center = out.Vec4(16, 16)
		}
		count = host.Processor().ReadBokehCount()
		points = host.Processor().ReadPoints(count)
	})
	require.NoError(t, err)

	assert.Equal(t, 1, count)
	assert.Equal(t, 1, host.Stats().BokehCount)
	require.Len(t, points, 1)
	assert.InDeltaSlice(t, sw.Points()[0].Position[:], points[0].Position[:], 1e-3)
	assert.Equal(t, 16*testSize+16, points[0].Origin)

	wantCenter := want.Vec4(16, 16)
	for c := 0; c < 3; c++ {
		assert.True(t, closeRel(wantCenter[c], center[c], 1e-2), "channel %d: want %v, got %v", c, wantCenter[c], center[c])
	}
}

func TestFullFrameFillsList(t *testing.T) {
	host := newHost(t)
	p := dof.DefaultParams()
	frame := uniformFrame(testSize, 18, mgl32.Vec3{8000, 8000, 8000})

	var count int
	var err error
	runMain(t, func() {
		_, err = host.Draw(frame, p)
		count = host.Processor().ReadBokehCount()
	})
	require.NoError(t, err)

	assert.Equal(t, testSize*testSize, count)
	assert.Equal(t, testSize*testSize, host.Stats().BokehCount)
	assert.Zero(t, host.Stats().Dropped)
}

func drawHost(t *testing.T, host *dofgl.Host, frame dof.Frame, p dof.Params) (pix []float32, count int) {
	t.Helper()
	var err error
	runMain(t, func() {
		out, drawErr := host.Draw(frame, p)
		err = drawErr
		if out != nil {
			pix = append(pix, out.Pix...)
		}
		count = host.Processor().ReadBokehCount()
	})
	require.NoError(t, err)
	return pix, count
}

func TestInFocusPassesThroughExactly(t *testing.T) {
	host := newHost(t)
	p := dof.DefaultParams()
	frame := uniformFrame(testSize, 5, mgl32.Vec3{0.25, 0.5, 1})
	// bright enough for bokeh and beyond the half float range, but in focus
	frame.Color.SetVec4(4, 7, mgl32.Vec4{70000, 1.5, 0.123456, 1})
	frame.Color.SetVec4(20, 11, mgl32.Vec4{1e-6, 3.3333333, 123456.79, 1})

	got, count := drawHost(t, host, frame, p)
	assert.Zero(t, count)
	assert.Equal(t, frame.Color.Pix, got)
}

func TestRepeatedDrawIsStable(t *testing.T) {
	host := newHost(t)
	p := dof.DefaultParams()
	frame := uniformFrame(testSize, 18, mgl32.Vec3{0.1, 0.1, 0.1})
	frame.Color.SetVec4(16, 16, mgl32.Vec4{10000, 10000, 10000, 1})
	frame.Color.SetVec4(8, 22, mgl32.Vec4{6000, 9000, 12000, 1})
	frame.Color.SetVec4(25, 5, mgl32.Vec4{20000, 7000, 7000, 1})

	first, firstCount := drawHost(t, host, frame, p)
	second, secondCount := drawHost(t, host, frame, p)

	assert.Equal(t, 3, firstCount)
	assert.Equal(t, firstCount, secondCount)
	require.Len(t, second, len(first))
	for i := range first {
		if !closeRel(first[i], second[i], 1e-5) {
			t.Fatalf("value %d: first %v, second %v", i, first[i], second[i])
		}
	}
}

func TestCounterResetsBetweenFrames(t *testing.T) {
	host := newHost(t)
	p := dof.DefaultParams()

	_, full := drawHost(t, host, uniformFrame(testSize, 18, mgl32.Vec3{8000, 8000, 8000}), p)
	assert.Equal(t, testSize*testSize, full)

	_, dark := drawHost(t, host, uniformFrame(testSize, 18, mgl32.Vec3{0.3, 0.2, 0.1}), p)
	assert.Zero(t, dark)
}

func TestLastBokehCountIsDeferred(t *testing.T) {
	var host *dofgl.Host
	var err error
	runMain(t, func() {
		host, err = dofgl.NewHost(testSize, testSize, dofgl.Options{CountReadback: true})
	})
	require.NoError(t, err)
	defer func() {
		onMain <- host.Release
		<-onMainDone
	}()

	frame := uniformFrame(testSize, 18, mgl32.Vec3{0.1, 0.1, 0.1})
	frame.Color.SetVec4(16, 16, mgl32.Vec4{10000, 10000, 10000, 1})
	frame.Color.SetVec4(3, 3, mgl32.Vec4{9000, 9000, 9000, 1})

	var before, after int
	var beforeOk, afterOk bool
	runMain(t, func() {
		before, beforeOk = host.Processor().LastBokehCount()
		_, err = host.Draw(frame, dof.DefaultParams())
		gl.Finish()
		after, afterOk = host.Processor().LastBokehCount()
	})
	require.NoError(t, err)

	assert.False(t, beforeOk)
	assert.Zero(t, before)
	assert.True(t, afterOk)
	assert.Equal(t, 2, after)
}

func TestLastBokehCountDisabled(t *testing.T) {
	host := newHost(t)
	frame := uniformFrame(testSize, 18, mgl32.Vec3{8000, 8000, 8000})
	drawHost(t, host, frame, dof.DefaultParams())

	var ok bool
	runMain(t, func() {
		gl.Finish()
		_, ok = host.Processor().LastBokehCount()
	})
	assert.False(t, ok)
}

func copyShaders(t *testing.T) fstest.MapFS {
	t.Helper()
	files := fstest.MapFS{}
	entries, err := fs.ReadDir(dofgl.Shaders, ".")
	require.NoError(t, err)
	for _, entry := range entries {
		data, err := fs.ReadFile(dofgl.Shaders, entry.Name())
		require.NoError(t, err)
		files[entry.Name()] = &fstest.MapFile{Data: data}
	}
	return files
}

func TestBrokenShadersFailConstruction(t *testing.T) {
	files := copyShaders(t)
	files["coc.frag"] = &fstest.MapFile{Data: []byte("#version 450 core\nvoid main() { syntax error }\n")}

	var proc *dofgl.Processor
	var err error
	runMain(t, func() {
		proc, err = dofgl.NewProcessor(testSize, testSize, dofgl.Options{Shaders: files})
	})
	assert.Error(t, err)
	assert.Nil(t, proc)
}

func TestReloadKeepsShadersOnError(t *testing.T) {
	files := copyShaders(t)

	var proc *dofgl.Processor
	var err error
	runMain(t, func() {
		proc, err = dofgl.NewProcessor(testSize, testSize, dofgl.Options{Shaders: files})
	})
	require.NoError(t, err)
	defer func() {
		onMain <- proc.Release
		<-onMainDone
	}()

	var reloadOk, reloadBroken error
	runMain(t, func() {
		reloadOk = proc.Reload()
	})
	files["detection.frag"] = &fstest.MapFile{Data: []byte("#version 450 core\nvoid main() { syntax error }\n")}
	runMain(t, func() {
		reloadBroken = proc.Reload()
	})
	assert.NoError(t, reloadOk)
	assert.Error(t, reloadBroken)

	// the previous shaders still run
	frame := uniformFrame(testSize, 18, mgl32.Vec3{1, 1, 1})
	frame.Color.SetVec4(3, 3, mgl32.Vec4{9000, 9000, 9000, 1})
	var count int
	runMain(t, func() {
		color := libgl.NewTexture2D(gl.RGBA32F, testSize, testSize)
		position := libgl.NewTexture2D(gl.RGBA32F, testSize, testSize)
		color.Load(0, testSize, testSize, gl.RGBA, frame.Color.Pix)
		position.Load(0, testSize, testSize, gl.RGBA, frame.Position.Pix)
		proc.Draw(dofgl.DrawInput{Color: color, Position: position, View: frame.View, Params: dof.DefaultParams()})
		count = proc.ReadBokehCount()
		color.Delete()
		position.Delete()
	})
	assert.Equal(t, 1, count)
}

func TestShapeTextureChannels(t *testing.T) {
	runMain(t, func() {
		for _, channels := range []int{1, 2, 3, 4} {
			pix := make([]uint8, 5*3*channels)
			tex := dofgl.NewShapeTexture(libio.NewIntImage(pix, channels, 5, 3))
			assert.Equal(t, 5, tex.Width())
			assert.Equal(t, 3, tex.Height())
			tex.Delete()
		}
		placeholder := dofgl.NewShapeTexture(nil)
		assert.Equal(t, 64, placeholder.Width())
		placeholder.Delete()
	})
}
