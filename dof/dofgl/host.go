package dofgl

import (
	"fmt"

	"bokeh-gl/dof"
	"bokeh-gl/libgl"
	"bokeh-gl/libio"

	"github.com/go-gl/gl/v4.5-core/gl"
)

// Host runs a Processor on host side images, uploading the inputs and reading the result
// back every frame. It is meant for offline rendering and comparisons with dof.Software.
type Host struct {
	proc      *Processor
	color     libgl.UnboundTexture
	position  libgl.UnboundTexture
	shape     libgl.UnboundTexture
	shapeFrom *libio.IntImage
	output    *libio.FloatImage
	stats     dof.Stats
}

var _ dof.ImageProcessor = (*Host)(nil)

func NewHost(width, height int, opts Options) (*Host, error) {
	proc, err := NewProcessor(width, height, opts)
	if err != nil {
		return nil, err
	}
	host := &Host{
		proc:     proc,
		color:    libgl.NewTexture2D(gl.RGBA32F, width, height),
		position: libgl.NewTexture2D(gl.RGBA32F, width, height),
		output:   libio.NewBlankFloatImage(4, width, height),
	}
	host.color.SetDebugLabel("host color")
	host.position.SetDebugLabel("host position")
	return host, nil
}

func (host *Host) Processor() *Processor {
	return host.proc
}

func uploadFormat(channels int) (uint32, error) {
	switch channels {
	case 3:
		return gl.RGB, nil
	case 4:
		return gl.RGBA, nil
	}
	return 0, fmt.Errorf("cannot upload %d channel image", channels)
}

func (host *Host) Draw(frame dof.Frame, params dof.Params) (*libio.FloatImage, error) {
	w, h := host.proc.Size()
	if err := dof.CheckFrame(frame, w, h); err != nil {
		return nil, err
	}
	colorFormat, err := uploadFormat(frame.Color.Channels)
	if err != nil {
		return nil, err
	}
	host.color.Load(0, w, h, colorFormat, frame.Color.Pix)
	host.position.Load(0, w, h, gl.RGBA, frame.Position.Pix)

	if host.shape == nil || host.shapeFrom != frame.Shape {
		if host.shape != nil {
			host.shape.Delete()
		}
		host.shape = NewShapeTexture(frame.Shape)
		host.shapeFrom = frame.Shape
	}

	host.proc.Draw(DrawInput{
		Color:    host.color,
		Position: host.position,
		Shape:    host.shape,
		View:     frame.View,
		Params:   params,
	})

	host.proc.Output().Read(0, gl.RGBA, host.output.Pix)
	count := host.proc.ReadBokehCount()
	host.stats = dof.Stats{
		BokehCount: dof.ClampCount(count, host.proc.Capacity()),
		Dropped:    count - dof.ClampCount(count, host.proc.Capacity()),
		Timings:    host.proc.Timings(),
	}
	if err := libgl.CheckError("dof host"); err != nil {
		return nil, err
	}
	return host.output, nil
}

func (host *Host) Stats() dof.Stats {
	return host.stats
}

func (host *Host) Release() {
	if host.shape != nil {
		host.shape.Delete()
	}
	host.color.Delete()
	host.position.Delete()
	host.proc.Release()
}
