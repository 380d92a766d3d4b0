package main

import (
	"io/fs"
	"os"
	"time"

	"bokeh-gl/config"
	"bokeh-gl/dof/dofgl"
	"bokeh-gl/effects"
	"bokeh-gl/libgl"
	"bokeh-gl/libio"
	"bokeh-gl/liblog"
	"bokeh-gl/libscn"

	"github.com/go-gl/gl/v4.5-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/rs/zerolog"
)

// App renders the ray cast scene into a G-buffer on the CPU whenever the camera moves and
// runs the GPU depth of field on it every frame.
type App struct {
	cfg        *config.Config
	configPath string
	window     *glfw.Window
	input      *Input
	gui        *ImGui
	cam        *libscn.Camera
	scene      *libscn.Scene
	shaders    fs.FS
	watcher    *ShaderWatcher

	// scene resolution
	width, height int
	color         libgl.UnboundTexture
	position      libgl.UnboundTexture
	shape         libgl.UnboundTexture
	dof           *dofgl.Processor
	params        paramSource
	tonemap       *effects.TonemapEffect

	sceneDirty bool
	sceneTime  time.Duration
	saveError  error
	log        zerolog.Logger
}

func NewApp(window *glfw.Window, cfg *config.Config, configPath string) (*App, error) {
	app := &App{
		cfg:        cfg,
		configPath: configPath,
		window:     window,
		input:      NewInput(window),
		scene:      libscn.DefaultScene(),
		sceneDirty: true,
		log:        liblog.With("demo"),
	}
	app.params.log = app.log

	if cfg.Shaders.Dir != "" {
		app.shaders = os.DirFS(cfg.Shaders.Dir)
		if cfg.Shaders.Watch {
			watcher, err := NewShaderWatcher(cfg.Shaders.Dir, app.log)
			if err != nil {
				app.log.Warn().Err(err).Str("dir", cfg.Shaders.Dir).Msg("shader hot reload disabled")
			} else {
				app.watcher = watcher
			}
		}
	}

	var err error
	if app.gui, err = NewImGui(window); err != nil {
		app.Release()
		return nil, err
	}
	if app.tonemap, err = effects.NewTonemapEffect(); err != nil {
		app.Release()
		return nil, err
	}

	shapeImg := libio.LoadShapeOrPlaceholder(cfg.Shape.Path, cfg.Shape.Size, app.log)
	app.shape = dofgl.NewShapeTexture(shapeImg)

	fbWidth, fbHeight := window.GetFramebufferSize()
	if err := app.resize(fbWidth, fbHeight); err != nil {
		app.Release()
		return nil, err
	}
	return app, nil
}

func (app *App) sceneSize(fbWidth, fbHeight int) (int, int) {
	scale := app.cfg.Window.SceneScale
	if scale <= 0 || scale > 1 {
		scale = 1
	}
	w := int(float32(fbWidth) * scale)
	h := int(float32(fbHeight) * scale)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}

// resize reallocates everything sized to the scene resolution. The processor capacity
// depends on the size, so it is recreated too.
func (app *App) resize(fbWidth, fbHeight int) error {
	w, h := app.sceneSize(fbWidth, fbHeight)
	if app.dof != nil && w == app.width && h == app.height {
		return nil
	}

	proc, err := dofgl.NewProcessor(w, h, dofgl.Options{Shaders: app.shaders, Timings: true, CountReadback: true})
	if err != nil {
		return err
	}
	if app.dof != nil {
		app.dof.Release()
		app.color.Delete()
		app.position.Delete()
	}
	app.dof = proc
	app.width, app.height = w, h
	app.color = libgl.NewTexture2D(gl.RGBA32F, w, h)
	app.color.SetDebugLabel("scene color")
	app.position = libgl.NewTexture2D(gl.RGBA32F, w, h)
	app.position.SetDebugLabel("scene position")

	if app.cam == nil {
		app.cam = libscn.NewCamera(w, h)
	}
	app.sceneDirty = true
	app.log.Info().Int("width", w).Int("height", h).Int("capacity", proc.Capacity()).Msg("scene resized")
	return nil
}

func (app *App) Update() {
	app.input.Update(app.window)
	if app.input.IsKeyTap(glfw.KeyEscape) {
		app.window.SetShouldClose(true)
	}
	if app.watcher != nil && app.watcher.Changed() {
		app.dof.Reload()
	}

	if app.gui.WantsInput() {
		return
	}
	movement := app.input.Movement()
	if movement.LenSqr() != 0 {
		speed := float32(2)
		if app.input.IsKeyDown(glfw.KeyLeftShift) {
			speed *= 4
		}
		app.cam.Fly(movement.Normalize().Mul(app.input.TimeDelta() * speed))
		app.sceneDirty = true
	}
	if app.input.IsMouseDown(glfw.MouseButtonRight) {
		rotation := app.input.CursorDelta()
		if rotation.LenSqr() != 0 {
			app.cam.Orientation[0] += rotation[1] * 0.2
			app.cam.Orientation[1] += rotation[0] * 0.2
			app.cam.Orientation[0] = mgl32.Clamp(app.cam.Orientation[0], -89, 89)
			app.sceneDirty = true
		}
	}
}

func (app *App) renderScene() {
	start := time.Now()
	gb := app.scene.Render(app.cam, app.width, app.height)
	app.color.Load(0, app.width, app.height, gl.RGBA, gb.Color.Pix)
	app.position.Load(0, app.width, app.height, gl.RGBA, gb.Position.Pix)
	app.sceneTime = time.Since(start)
	app.sceneDirty = false
}

func (app *App) Draw() {
	fbWidth, fbHeight := app.window.GetFramebufferSize()
	if fbWidth == 0 || fbHeight == 0 {
		// minimized
		return
	}
	if err := app.resize(fbWidth, fbHeight); err != nil {
		app.log.Error().Err(err).Msg("resize failed")
		return
	}
	if app.sceneDirty {
		app.renderScene()
	}

	params := app.params.Params(app.cfg.DoF)
	app.dof.Draw(dofgl.DrawInput{
		Color:    app.color,
		Position: app.position,
		Shape:    app.shape,
		View:     app.cam.ViewMatrix,
		Params:   params,
	})

	app.tonemap.Exposure = app.cfg.Tonemap.Exposure
	app.tonemap.Gamma = app.cfg.Tonemap.Gamma
	app.tonemap.Render(app.dof.Output(), libgl.DefaultFramebuffer(), fbWidth, fbHeight)

	app.gui.NewFrame()
	count, countOk := app.dof.LastBokehCount()
	actions := drawPanel(app.cfg, panelStats{
		bokehCount: count,
		countValid: countOk,
		capacity:   app.dof.Capacity(),
		timings:    app.dof.Timings(),
		sceneTime:  app.sceneTime,
		saveError:  app.saveError,
	})
	app.gui.Draw()

	if actions.reload {
		app.dof.Reload()
	}
	if actions.save {
		app.saveError = config.Save(app.cfg, app.configPath)
		if app.saveError != nil {
			app.log.Error().Err(app.saveError).Msg("could not save config")
		} else {
			app.log.Info().Str("path", app.configPath).Msg("config saved")
		}
	}
}

func (app *App) Release() {
	if app.watcher != nil {
		app.watcher.Close()
	}
	for _, res := range []interface{ Delete() }{app.color, app.position, app.shape} {
		if res != nil {
			res.Delete()
		}
	}
	if app.dof != nil {
		app.dof.Release()
	}
	if app.tonemap != nil {
		app.tonemap.Release()
	}
	if app.gui != nil {
		app.gui.Release()
	}
}
