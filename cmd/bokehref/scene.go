package main

import (
	"flag"
	"os"
	"path/filepath"

	"bokeh-gl/libio"
	"bokeh-gl/libscn"

	"github.com/go-gl/mathgl/mgl32"
)

type sceneArgs struct {
	commonArgs
	width, height int
	compress      bool
}

func createSceneCommand() *command {
	args := sceneArgs{
		width:  640,
		height: 360,
	}

	flags := flag.NewFlagSet("scene", flag.ExitOnError)
	registerCommonFlags(flags, &args.commonArgs)
	flags.IntVar(&args.width, "width", args.width, "the image width")
	flags.IntVar(&args.height, "height", args.height, "the image height")
	flags.BoolVar(&args.compress, "compress", args.compress, "stores 16 bit fixed point lz4 compressed pixels")

	return &command{
		Name: "scene",
		Help: "writes the built in scene as color.f32 and position.f32 with view space positions",
		Run: func(self *command) {
			if args.width <= 0 || args.height <= 0 {
				printCommandUsage(self, "")
			}
			setCommonArgs(&args.commonArgs)
			runScene(args)
		},
		Flags: flags,
	}
}

// renderGBuffer ray casts the built in scene with the default camera.
func renderGBuffer(width, height int) (libscn.GBuffer, mgl32.Mat4) {
	cam := libscn.NewCamera(width, height)
	gb := libscn.DefaultScene().Render(cam, width, height)
	return gb, cam.ViewMatrix
}

// toViewSpace transforms the positions in place, background stays at w == 0.
func toViewSpace(position *libio.FloatImage, view mgl32.Mat4) {
	for y := 0; y < position.Height; y++ {
		for x := 0; x < position.Width; x++ {
			p := position.Vec4(x, y)
			if p.W() == 0 {
				continue
			}
			position.SetVec4(x, y, view.Mul4x1(p))
		}
	}
}

func runScene(args sceneArgs) {
	out := args.out
	if out == "" {
		out = "."
	}
	harderr(os.MkdirAll(out, 0755))

	gb, view := renderGBuffer(args.width, args.height)
	toViewSpace(gb.Position, view)

	compression := libio.FloatImageCompressionNone
	if args.compress {
		compression = libio.FloatImageCompressionFixedPoint16Lz4
	}
	// positions stay uncompressed, quantized depths would move pixels across the focus ramps
	harderr(writeFloatImage(filepath.Join(out, "color.f32"), gb.Color, compression))
	harderr(writeFloatImage(filepath.Join(out, "position.f32"), gb.Position, libio.FloatImageCompressionNone))
	log.Info().Str("dir", out).Int("width", args.width).Int("height", args.height).Msg("scene written")
}

func writeFloatImage(path string, img *libio.FloatImage, compression libio.FloatImageCompression) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer close(file)
	return libio.EncodeFloatImage(file, img, compression)
}

func readFloatImage(path string) (*libio.FloatImage, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer close(file)
	return libio.DecodeFloatImage(file)
}
