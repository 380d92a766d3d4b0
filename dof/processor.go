package dof

import (
	"fmt"
	"time"

	"bokeh-gl/libio"

	"github.com/go-gl/mathgl/mgl32"
)

type Phase int

const (
	PhaseReset Phase = iota
	PhaseCoC
	PhaseDetection
	PhaseBlur
	PhaseRender
	PhaseCount
)

var phaseNames = [PhaseCount]string{"reset", "coc", "detection", "blur", "render"}

func (p Phase) String() string {
	if p < 0 || p >= PhaseCount {
		return fmt.Sprintf("Phase(%d)", int(p))
	}
	return phaseNames[p]
}

type Timings [PhaseCount]time.Duration

func (t Timings) Total() (sum time.Duration) {
	for _, d := range t {
		sum += d
	}
	return sum
}

type Stats struct {
	// BokehCount is the number of sprites drawn, at most the capacity.
	BokehCount int
	// Dropped counts qualifying pixels that did not fit.
	Dropped int
	Timings Timings
}

// Frame is the input of one Draw call on an image processor.
// Color and Position must match the processor size. Position holds world space
// positions, w == 0 marks background. Shape may be nil, then a placeholder is used.
type Frame struct {
	Color    *libio.FloatImage
	Position *libio.FloatImage
	Shape    *libio.IntImage
	View     mgl32.Mat4
}

// ImageProcessor runs the pipeline on host side images.
type ImageProcessor interface {
	Draw(frame Frame, params Params) (*libio.FloatImage, error)
	Stats() Stats
	Release()
}

// CheckFrame validates the sizes and channel counts of a frame against a processor.
func CheckFrame(frame Frame, width, height int) error {
	if frame.Color == nil || frame.Position == nil {
		return fmt.Errorf("frame is missing color or position")
	}
	if frame.Color.Width != width || frame.Color.Height != height {
		return fmt.Errorf("%w: color is %dx%d, want %dx%d", ErrSizeMismatch, frame.Color.Width, frame.Color.Height, width, height)
	}
	if frame.Position.Width != width || frame.Position.Height != height {
		return fmt.Errorf("%w: position is %dx%d, want %dx%d", ErrSizeMismatch, frame.Position.Width, frame.Position.Height, width, height)
	}
	if frame.Color.Channels < 3 || frame.Position.Channels != 4 {
		return fmt.Errorf("frame needs rgb(a) color and xyzw position, got %d and %d channels", frame.Color.Channels, frame.Position.Channels)
	}
	return nil
}
