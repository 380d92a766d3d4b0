package dofgl_test

import (
	"os"
	"runtime"
	"testing"
	"unsafe"

	"bokeh-gl/dof"
	"bokeh-gl/libgl"
	"bokeh-gl/libio"
	"bokeh-gl/libutil"

	"github.com/chewxy/math32"
	"github.com/go-gl/gl/v4.5-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
)

var onMain chan func()
var onMainDone chan struct{}

// glErr is set when no GL 4.5 context could be created, every test skips then.
var glErr error

func TestMain(m *testing.M) {
	runtime.LockOSThread()

	glErr = setupContext()
	if glErr == nil {
		defer glfw.Terminate()
	}

	onMain = make(chan func())
	onMainDone = make(chan struct{})

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
	glfw.WindowHint(glfw.OpenGLDebugContext, glfw.True)
	ctx, err := glfw.CreateWindow(64, 64, "Testing Window", nil, nil)
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
	libgl.EnableDebugOutput()
	return nil
}

// runMain executes fn on the thread owning the context.
func runMain(t *testing.T, fn func()) {
	t.Helper()
	if glErr != nil {
		t.Skipf("no OpenGL 4.5 context: %v", glErr)
	}
	onMain <- fn
	<-onMainDone
}

const testSize = 32

func uniformFrame(size int, depth float32, color mgl32.Vec3) dof.Frame {
	colorImg := libio.NewBlankFloatImage(4, size, size)
	position := libio.NewBlankFloatImage(4, size, size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			colorImg.SetVec4(x, y, color.Vec4(1))
			position.SetVec4(x, y, mgl32.Vec4{float32(x), float32(y), -depth, 1})
		}
	}
	return dof.Frame{Color: colorImg, Position: position, View: mgl32.Ident4()}
}

// closeRel compares with a relative tolerance. Sprites sample the shape through the
// texture unit, whose bilinear weights carry only a few bits.
func closeRel(a, b, tolerance float32) bool {
	return math32.Abs(a-b) <= tolerance*math32.Max(1, math32.Max(math32.Abs(a), math32.Abs(b)))
}
