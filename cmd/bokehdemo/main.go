// Command bokehdemo shows the GPU depth of field on a ray cast scene with a settings panel.
//
// Fly with WASD, space and ctrl, look around holding the right mouse button.
package main

import (
	"flag"
	"os"
	"runtime"
	"unsafe"

	"bokeh-gl/config"
	"bokeh-gl/libgl"
	"bokeh-gl/liblog"
	"bokeh-gl/libutil"

	"github.com/go-gl/gl/v4.5-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
)

var Arguments struct {
	ConfigPath                 string
	EnableCompatibilityProfile bool
}

func main() {
	flag.StringVar(&Arguments.ConfigPath, "config", "", "config file, defaults to bokeh.yaml in the working or user config directory")
	flag.BoolVar(&Arguments.EnableCompatibilityProfile, "enable-compatibility-profile", false, "")
	flag.Parse()

	log := liblog.With("demo")
	cfg, err := config.Load(Arguments.ConfigPath)
	if err != nil {
		log.Fatal().Err(err).Msg("")
	}
	liblog.Setup(os.Stderr, liblog.Level(cfg.Log.Level), cfg.Log.Pretty)
	log = liblog.With("demo")

	savePath := Arguments.ConfigPath
	if savePath == "" {
		savePath = "bokeh.yaml"
	}

	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		log.Fatal().Err(err).Msg("could not initialize glfw")
	}
	defer glfw.Terminate()

	glfw.DefaultWindowHints()
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 5)
	glfw.WindowHint(glfw.OpenGLDebugContext, glfw.True)
	if Arguments.EnableCompatibilityProfile {
		glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCompatProfile)
	} else {
		glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	}
	window, err := glfw.CreateWindow(cfg.Window.Width, cfg.Window.Height, cfg.Window.Title, nil, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("could not create window")
	}
	window.MakeContextCurrent()
	if cfg.Window.VSync {
		glfw.SwapInterval(1)
	} else {
		glfw.SwapInterval(0)
	}

	err = gl.InitWithProcAddrFunc(func(name string) unsafe.Pointer {
		addr := glfw.GetProcAddress(name)
		if addr == nil {
			return unsafe.Pointer(libutil.InvalidAddress)
		}
		return addr
	})
	if err != nil {
		log.Fatal().Err(err).Msg("could not load OpenGL")
	}
	libgl.Init()
	libgl.EnableDebugOutput()
	log.Info().Str("renderer", libgl.Env.Renderer).Str("vendor", libgl.Env.Vendor).Msg("context created")

	app, err := NewApp(window, cfg, savePath)
	if err != nil {
		log.Fatal().Err(err).Msg("could not start")
	}
	defer app.Release()

	for !window.ShouldClose() {
		glfw.PollEvents()
		app.Update()
		app.Draw()
		window.SwapBuffers()
	}
}
