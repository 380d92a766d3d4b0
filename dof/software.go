package dof

import (
	"time"

	"bokeh-gl/libio"
	"bokeh-gl/liblog"
)

// Software is the reference implementation. Every pass is spread across goroutines by row;
// a pass returning is the barrier before the next one.
type Software struct {
	width, height int
	counter       *Counter
	points        []Point
	blurDepth     *libio.FloatImage
	detection     *libio.FloatImage
	blurTmp       *libio.FloatImage
	output        *libio.FloatImage
	stats         Stats
}

func NewSoftware(width, height int) *Software {
	capacity := width * height
	return &Software{
		width:     width,
		height:    height,
		counter:   NewCounter(capacity),
		points:    make([]Point, capacity),
		blurDepth: libio.NewBlankFloatImage(2, width, height),
		detection: libio.NewBlankFloatImage(4, width, height),
		blurTmp:   libio.NewBlankFloatImage(4, width, height),
		output:    libio.NewBlankFloatImage(4, width, height),
	}
}

// Draw runs the pipeline. The returned image is owned by the processor and is
// overwritten by the next Draw.
func (sw *Software) Draw(frame Frame, params Params) (*libio.FloatImage, error) {
	if err := CheckFrame(frame, sw.width, sw.height); err != nil {
		return nil, err
	}
	p := params.Normalized()
	shape := NewShape(frame.Shape)

	var timings Timings
	start := time.Now()
	mark := func(phase Phase) {
		now := time.Now()
		timings[phase] = now.Sub(start)
		start = now
	}

	sw.counter.Reset()
	mark(PhaseReset)

	ComputeCoC(sw.blurDepth, frame.Position, frame.View, p)
	mark(PhaseCoC)

	Detect(sw.detection, frame.Color, sw.blurDepth, p, sw.counter, sw.points)
	mark(PhaseDetection)

	switch p.Blur {
	case BlurPoisson:
		PoissonBlur(sw.output, sw.detection, sw.blurDepth, p)
	default:
		SeparableBlur(sw.output, sw.blurTmp, sw.detection, sw.blurDepth, p)
	}
	mark(PhaseBlur)

	points := sw.points[:sw.counter.FinalizeCount()]
	SortPoints(points)
	RenderBokeh(sw.output, sw.blurDepth, points, shape, p)
	mark(PhaseRender)

	sw.stats = Stats{
		BokehCount: len(points),
		Dropped:    sw.counter.Dropped(),
		Timings:    timings,
	}
	if sw.stats.Dropped > 0 {
		log := liblog.With("dof")
		log.Warn().Int("dropped", sw.stats.Dropped).Msg("bokeh list overflow")
	}
	return sw.output, nil
}

func (sw *Software) Stats() Stats {
	return sw.stats
}

// BlurDepth is the (linear depth, coc) buffer of the last frame.
func (sw *Software) BlurDepth() *libio.FloatImage {
	return sw.blurDepth
}

// Detection is the non-bokeh color buffer of the last frame, before blurring.
func (sw *Software) Detection() *libio.FloatImage {
	return sw.detection
}

// Points are the bokeh of the last frame in source pixel order.
func (sw *Software) Points() []Point {
	return sw.points[:sw.stats.BokehCount]
}

func (sw *Software) Release() {
	sw.points = nil
}
