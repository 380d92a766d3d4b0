package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"bokeh-gl/dof"
	"bokeh-gl/libio"

	"github.com/go-gl/mathgl/mgl32"
)

type renderArgs struct {
	commonArgs
	backend       backend
	width, height int
	shape         string
	blur          string
	farStart      float64
	farEnd        float64
	exposure      float64
	frames        int
}

func createRenderCommand() *command {
	args := renderArgs{
		commonArgs: commonArgs{
			out: "bokeh.png",
		},
		backend: backendSw,
		width:   640,
		height:  360,
		frames:  1,
	}

	flags := flag.NewFlagSet("render", flag.ExitOnError)
	registerCommonFlags(flags, &args.commonArgs)
	flags.Var(&args.backend, "backend", "the implementation; sw, gl or cl (default from config)")
	flags.IntVar(&args.width, "width", args.width, "the image width when rendering the built in scene")
	flags.IntVar(&args.height, "height", args.height, "the image height when rendering the built in scene")
	flags.StringVar(&args.shape, "shape", args.shape, "the bokeh shape image, overrides the config")
	flags.StringVar(&args.blur, "blur", args.blur, "the blur strategy; separable or poisson, overrides the config")
	flags.Float64Var(&args.farStart, "far-start", -1, "the far blur start distance, overrides the config")
	flags.Float64Var(&args.farEnd, "far-end", -1, "the far blur end distance, overrides the config")
	flags.Float64Var(&args.exposure, "exposure", -1, "the png tone mapping exposure, overrides the config")
	flags.IntVar(&args.frames, "frames", args.frames, "draws this many times and reports the average timings")

	return &command{
		Name: "render",
		Help: "applies depth of field to the built in scene or to a color.f32 and position.f32 pair",
		Run: func(self *command) {
			if (self.Flags.NArg() != 0 && self.Flags.NArg() != 2) || args.frames < 1 {
				printCommandUsage(self, " [color.f32 position.f32]")
			}
			setCommonArgs(&args.commonArgs)
			backendSet := false
			self.Flags.Visit(func(f *flag.Flag) {
				backendSet = backendSet || f.Name == "backend"
			})
			if !backendSet {
				harderr(args.backend.Set(cfg.Backend))
			}
			runRender(args, self.Flags.Args())
		},
		Flags: flags,
	}
}

func renderParams(args renderArgs) (dof.Params, error) {
	if args.blur != "" {
		cfg.DoF.Blur = args.blur
	}
	if args.farStart >= 0 {
		cfg.DoF.FarStart = float32(args.farStart)
	}
	if args.farEnd >= 0 {
		cfg.DoF.FarEnd = float32(args.farEnd)
	}
	if args.exposure >= 0 {
		cfg.Tonemap.Exposure = float32(args.exposure)
	}
	return cfg.DoF.ToParams()
}

// loadFrame reads the inputs, or renders the built in scene when none are given.
// Positions read from files are taken as view space.
func loadFrame(args renderArgs, inputs []string) (dof.Frame, error) {
	if len(inputs) == 0 {
		gb, view := renderGBuffer(args.width, args.height)
		return dof.Frame{Color: gb.Color, Position: gb.Position, View: view}, nil
	}

	color, err := readFloatImage(inputs[0])
	if err != nil {
		return dof.Frame{}, fmt.Errorf("could not read color: %w", err)
	}
	position, err := readFloatImage(inputs[1])
	if err != nil {
		return dof.Frame{}, fmt.Errorf("could not read position: %w", err)
	}
	if position.Channels != 4 {
		return dof.Frame{}, fmt.Errorf("position must have 4 channels, %s has %d", inputs[1], position.Channels)
	}
	if color.Channels < 3 {
		return dof.Frame{}, fmt.Errorf("color must have 3 or 4 channels, %s has %d", inputs[0], color.Channels)
	}
	return dof.Frame{Color: color.ToChannels(4, 0, 0, 0, 1), Position: position, View: mgl32.Ident4()}, nil
}

func runRender(args renderArgs, inputs []string) {
	params, err := renderParams(args)
	harderr(err)

	frame, err := loadFrame(args, inputs)
	harderr(err)

	shapePath := cfg.Shape.Path
	if args.shape != "" {
		shapePath = args.shape
	}
	frame.Shape = libio.LoadShapeOrPlaceholder(shapePath, cfg.Shape.Size, log)

	proc, release, err := newProcessor(args.backend, frame.Color.Width, frame.Color.Height)
	harderr(err)
	defer release()

	var result *libio.FloatImage
	var sum dof.Timings
	start := time.Now()
	for i := 0; i < args.frames; i++ {
		result, err = proc.Draw(frame, params)
		harderr(err)
		timings := proc.Stats().Timings
		for phase := range sum {
			sum[phase] += timings[phase]
		}
	}
	wall := time.Since(start) / time.Duration(args.frames)

	stats := proc.Stats()
	event := log.Info().
		Str("backend", args.backend.String()).
		Int("bokeh", stats.BokehCount).
		Int("dropped", stats.Dropped).
		Dur("wall", wall)
	for phase := dof.Phase(0); phase < dof.PhaseCount; phase++ {
		event = event.Dur(phase.String(), sum[phase]/time.Duration(args.frames))
	}
	event.Msg("rendered")

	harderr(writeResult(cargs.out, result))
	log.Info().Str("file", cargs.out).Msg("written")
}

// writeResult stores raw HDR for .f32 outputs, any other extension gets a tonemapped png.
func writeResult(path string, img *libio.FloatImage) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	if strings.EqualFold(filepath.Ext(path), ".f32") {
		return writeFloatImage(path, img, libio.FloatImageCompressionNone)
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer close(file)
	// the bokeh splats leave alpha untouched, the png is opaque
	ldr := img.ToChannels(3).ToIntImage(cfg.Tonemap.Exposure, cfg.Tonemap.Gamma)
	return libio.EncodePNG(file, ldr)
}
