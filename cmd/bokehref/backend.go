package main

import (
	"fmt"
	"runtime"
	"unsafe"

	"bokeh-gl/dof"
	"bokeh-gl/dof/dofcl"
	"bokeh-gl/dof/dofgl"
	"bokeh-gl/libgl"
	"bokeh-gl/libutil"

	"github.com/go-gl/gl/v4.5-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// newProcessor returns the image processor of a backend. The gl backend owns a hidden
// window and must stay on the calling thread, release tears the window down too.
func newProcessor(b backend, width, height int) (proc dof.ImageProcessor, release func(), err error) {
	switch b {
	case backendSw:
		sw := dof.NewSoftware(width, height)
		return sw, sw.Release, nil
	case backendCl:
		clProc, err := dofcl.NewProcessor(width, height, dofcl.DeviceTypeGPU)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("device", clProc.DeviceName()).Msg("using opencl")
		return clProc, clProc.Release, nil
	case backendGl:
		return newGlProcessor(width, height)
	}
	return nil, nil, fmt.Errorf("unknown backend %q", b)
}

func newGlProcessor(width, height int) (dof.ImageProcessor, func(), error) {
	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		return nil, nil, err
	}
	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 5)
	glfw.WindowHint(glfw.OpenGLDebugContext, glfw.True)
	ctx, err := glfw.CreateWindow(64, 64, "bokehref", nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, nil, err
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
		ctx.Destroy()
		glfw.Terminate()
		return nil, nil, err
	}
	libgl.Init()
	libgl.EnableDebugOutput()
	log.Info().Str("renderer", libgl.Env.Renderer).Msg("using opengl")

	host, err := dofgl.NewHost(width, height, dofgl.Options{Timings: true})
	if err != nil {
		ctx.Destroy()
		glfw.Terminate()
		return nil, nil, err
	}
	return host, func() {
		host.Release()
		ctx.Destroy()
		glfw.Terminate()
	}, nil
}
