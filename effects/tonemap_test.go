package effects_test

import (
	"os"
	"runtime"
	"testing"
	"unsafe"

	"bokeh-gl/effects"
	"bokeh-gl/libgl"
	"bokeh-gl/libio"
	"bokeh-gl/libutil"

	"github.com/go-gl/gl/v4.5-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var onMain = make(chan func())
var onMainDone = make(chan struct{})
var glErr error

func TestMain(m *testing.M) {
	runtime.LockOSThread()

	glErr = setupContext()
	if glErr == nil {
		defer glfw.Terminate()
	}

	go func() {
		os.Exit(m.Run())
	}()

	for fn := range onMain {
		fn()
		onMainDone <- struct{}{}
	}
}

func setupContext() error {
	if err := glfw.Init(); err != nil {
		return err
	}
	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 5)
	ctx, err := glfw.CreateWindow(16, 16, "Testing Window", nil, nil)
	if err != nil {
		glfw.Terminate()
		return err
	}
	ctx.MakeContextCurrent()
	err = gl.InitWithProcAddrFunc(func(name string) unsafe.Pointer {
		addr := glfw.GetProcAddress(name)
		if addr == nil {
			return unsafe.Pointer(libutil.InvalidAddress)
		}
		return addr
	})
	if err != nil {
		return err
	}
	libgl.Init()
	return nil
}

func runMain(t *testing.T, fn func()) {
	t.Helper()
	if glErr != nil {
		t.Skipf("no OpenGL 4.5 context: %v", glErr)
	}
	onMain <- fn
	<-onMainDone
}

func TestTonemapMatchesImageConversion(t *testing.T) {
	const size = 4
	src := libio.NewBlankFloatImage(4, size, size)
	for i := range src.Pix {
		src.Pix[i] = float32(i%7) * 0.6
		if i%4 == 3 {
			src.Pix[i] = 1
		}
	}
	want := src.ToIntImage(1.5, 2.2)

	got := make([]uint8, size*size*4)
	var err error
	runMain(t, func() {
		var tonemap *effects.TonemapEffect
		tonemap, err = effects.NewTonemapEffect()
		if err != nil {
			return
		}
		defer tonemap.Release()
		tonemap.Exposure = 1.5
		tonemap.Gamma = 2.2

		hdr := libgl.NewTexture2D(gl.RGBA32F, size, size)
		defer hdr.Delete()
		hdr.Load(0, size, size, gl.RGBA, src.Pix)

		ldr := libgl.NewTexture2D(gl.RGBA8, size, size)
		defer ldr.Delete()
		fbo := libgl.NewFramebuffer()
		defer fbo.Delete()
		fbo.AttachTexture(0, ldr)
		fbo.BindTargets(0)
		if err = fbo.Check(gl.DRAW_FRAMEBUFFER); err != nil {
			return
		}

		tonemap.Render(hdr, fbo, size, size)
		gl.Finish()
		ldr.Read(0, gl.RGBA, got)
	})
	require.NoError(t, err)

	for i := range got {
		if i%4 == 3 {
			assert.Equal(t, uint8(0xff), got[i])
			continue
		}
		assert.InDelta(t, want.Pix[i], got[i], 1, "byte %d", i)
	}
}
