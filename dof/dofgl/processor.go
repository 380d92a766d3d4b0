// Package dofgl runs the depth of field pipeline on the GPU with OpenGL 4.5.
//
// The bokeh list lives in two rgba32f textures the size of the viewport. Detection
// appends to it with an image atomic on the instance count of an indirect draw
// command, so rendering the sprites needs no CPU readback.
package dofgl

import (
	"embed"
	"fmt"
	"io/fs"

	"bokeh-gl/dof"
	"bokeh-gl/libgl"
	"bokeh-gl/liblog"
	"bokeh-gl/libutil"

	"github.com/go-gl/gl/v4.5-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/rs/zerolog"
)

//go:embed shaders
var embedded embed.FS

// Shaders are the built in GLSL sources, rooted at the shader file names.
var Shaders fs.FS = mustSub(embedded, "shaders")

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}

type Options struct {
	// Shaders overrides the embedded sources, e.g. with os.DirFS for hot reloading.
	Shaders fs.FS
	// Timings enables GPU timer queries per phase.
	Timings bool
	// CountReadback copies the bokeh count to the host without stalling, see LastBokehCount.
	CountReadback bool
}

// DrawInput describes one frame. Color and Position must be 2D textures of the processor size.
type DrawInput struct {
	Color    libgl.UnboundTexture
	Position libgl.UnboundTexture
	// Shape is the sprite mask, nil uses the built in hexagon.
	Shape  libgl.UnboundTexture
	View   mgl32.Mat4
	Params dof.Params
	// Target receives the final image when set, its viewport must match the processor size.
	// Otherwise Draw renders into Output.
	Target libgl.UnboundFramebuffer
}

type pipelines struct {
	reset         libgl.UnboundShaderPipeline
	coc           libgl.UnboundShaderPipeline
	detection     libgl.UnboundShaderPipeline
	blurSeparable libgl.UnboundShaderPipeline
	blurPoisson   libgl.UnboundShaderPipeline
	bokeh         libgl.UnboundShaderPipeline
}

func (p *pipelines) all() []libutil.Deleter {
	return []libutil.Deleter{p.reset, p.coc, p.detection, p.blurSeparable, p.blurPoisson, p.bokeh}
}

type Processor struct {
	width, height int
	capacity      int
	shaders       fs.FS
	pipelines     pipelines

	indirect      libgl.UnboundBuffer
	indirectView  libgl.UnboundTexture
	blurDepth     libgl.UnboundTexture
	detection     libgl.UnboundTexture
	blurTmp       libgl.UnboundTexture
	output        libgl.UnboundTexture
	bokehPosition libgl.UnboundTexture
	bokehColor    libgl.UnboundTexture
	placeholder   libgl.UnboundTexture
	shapeSampler  libgl.UnboundSampler

	cocFbo       libgl.UnboundFramebuffer
	detectionFbo libgl.UnboundFramebuffer
	blurTmpFbo   libgl.UnboundFramebuffer
	outputFbo    libgl.UnboundFramebuffer

	timers  *libgl.TimerQueries
	counts  *countReadback
	cleanup []libutil.Deleter
	log     zerolog.Logger
}

// NewProcessor compiles the shaders and allocates every buffer for a fixed viewport size.
// A GL 4.5 context must be current and libgl.Init called.
func NewProcessor(width, height int, opts Options) (*Processor, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid processor size %dx%d", width, height)
	}
	shaders := opts.Shaders
	if shaders == nil {
		shaders = Shaders
	}

	proc := &Processor{
		width:    width,
		height:   height,
		capacity: width * height,
		shaders:  shaders,
		log:      liblog.With("dofgl"),
	}

	pl, err := loadPipelines(shaders)
	if err != nil {
		return nil, err
	}
	proc.pipelines = pl

	proc.indirect = libgl.NewBuffer()
	proc.indirect.SetDebugLabel("dof indirect")
	proc.indirect.Allocate([]libgl.DrawArraysIndirectCommand{{Count: 1}}, gl.DYNAMIC_STORAGE_BIT)
	proc.indirectView = libgl.NewBufferTexture(proc.indirect, gl.R32UI)
	proc.indirectView.SetDebugLabel("dof indirect view")

	proc.blurDepth = proc.newTexture(gl.RG32F, "dof blur depth")
	proc.detection = proc.newTexture(gl.RGBA32F, "dof detection")
	proc.blurTmp = proc.newTexture(gl.RGBA32F, "dof blur tmp")
	proc.output = proc.newTexture(gl.RGBA32F, "dof output")
	proc.bokehPosition = proc.newTexture(gl.RGBA32F, "dof bokeh position")
	proc.bokehColor = proc.newTexture(gl.RGBA32F, "dof bokeh color")

	proc.placeholder = NewShapeTexture(nil)
	proc.shapeSampler = libgl.NewSampler()
	proc.shapeSampler.FilterMode(gl.LINEAR, gl.LINEAR)
	proc.shapeSampler.WrapMode(gl.CLAMP_TO_EDGE, gl.CLAMP_TO_EDGE)

	proc.cocFbo = proc.newFramebuffer(proc.blurDepth, "dof coc")
	proc.detectionFbo = proc.newFramebuffer(proc.detection, "dof detection")
	proc.blurTmpFbo = proc.newFramebuffer(proc.blurTmp, "dof blur tmp")
	proc.outputFbo = proc.newFramebuffer(proc.output, "dof output")

	proc.cleanup = append(proc.cleanup,
		proc.indirectView, proc.indirect,
		proc.blurDepth, proc.detection, proc.blurTmp, proc.output,
		proc.bokehPosition, proc.bokehColor, proc.placeholder, proc.shapeSampler,
		proc.cocFbo, proc.detectionFbo, proc.blurTmpFbo, proc.outputFbo,
	)

	if opts.Timings {
		proc.timers = libgl.NewTimerQueries(int(dof.PhaseCount))
		proc.cleanup = append(proc.cleanup, proc.timers)
	}
	if opts.CountReadback {
		proc.counts = newCountReadback()
		proc.cleanup = append(proc.cleanup, proc.counts)
	}

	for _, fbo := range []libgl.UnboundFramebuffer{proc.cocFbo, proc.detectionFbo, proc.blurTmpFbo, proc.outputFbo} {
		if err := fbo.Check(gl.DRAW_FRAMEBUFFER); err != nil {
			proc.Release()
			return nil, fmt.Errorf("dof framebuffer incomplete: %w", err)
		}
	}

	if err := libgl.CheckError("dof setup"); err != nil {
		proc.Release()
		return nil, err
	}
	return proc, nil
}

func (proc *Processor) newTexture(format uint32, label string) libgl.UnboundTexture {
	tex := libgl.NewTexture2D(format, proc.width, proc.height)
	tex.SetDebugLabel(label)
	return tex
}

func (proc *Processor) newFramebuffer(tex libgl.UnboundTexture, label string) libgl.UnboundFramebuffer {
	fbo := libgl.NewFramebuffer()
	fbo.SetDebugLabel(label)
	fbo.AttachTexture(0, tex)
	fbo.BindTargets(0)
	return fbo
}

var pipelineFiles = map[string][]string{
	"reset":          {"reset.comp"},
	"coc":            {"fullscreen.vert", "coc.frag"},
	"detection":      {"fullscreen.vert", "detection.frag"},
	"blur separable": {"fullscreen.vert", "blur_separable.frag"},
	"blur poisson":   {"fullscreen.vert", "blur_poisson.frag"},
	"bokeh":          {"bokeh.vert", "bokeh.geom", "bokeh.frag"},
}

func loadPipelines(fsys fs.FS) (pipelines, error) {
	var pl pipelines
	targets := map[string]*libgl.UnboundShaderPipeline{
		"reset":          &pl.reset,
		"coc":            &pl.coc,
		"detection":      &pl.detection,
		"blur separable": &pl.blurSeparable,
		"blur poisson":   &pl.blurPoisson,
		"bokeh":          &pl.bokeh,
	}
	for name, files := range pipelineFiles {
		pipeline, err := loadPipeline(fsys, "dof "+name, files...)
		if err != nil {
			libutil.DeleteAll(pl.all())
			return pipelines{}, err
		}
		*targets[name] = pipeline
	}
	return pl, nil
}

func loadPipeline(fsys fs.FS, label string, files ...string) (libgl.UnboundShaderPipeline, error) {
	pipeline := libgl.NewPipeline()
	pipeline.SetDebugLabel(label)
	for _, file := range files {
		prog, err := libgl.NewShaderFromFS(fsys, file)
		if err != nil {
			pipeline.Delete()
			return nil, err
		}
		if err := prog.Compile(); err != nil {
			pipeline.Delete()
			return nil, fmt.Errorf("%v: %w", file, err)
		}
		pipeline.Attach(prog, libgl.StageBit(prog.Stage()))
	}
	return pipeline, nil
}

// Reload recompiles every shader. On failure the previous shaders stay in use.
func (proc *Processor) Reload() error {
	pl, err := loadPipelines(proc.shaders)
	if err != nil {
		proc.log.Error().Err(err).Msg("shader reload failed")
		return err
	}
	libutil.DeleteAll(proc.pipelines.all())
	proc.pipelines = pl
	proc.log.Info().Msg("shaders reloaded")
	return nil
}

func (proc *Processor) Size() (int, int) {
	return proc.width, proc.height
}

func (proc *Processor) Capacity() int {
	return proc.capacity
}

// Output is the texture Draw renders into when no target is given.
func (proc *Processor) Output() libgl.UnboundTexture {
	return proc.output
}

func (proc *Processor) BlurDepth() libgl.UnboundTexture {
	return proc.blurDepth
}

func (proc *Processor) Detection() libgl.UnboundTexture {
	return proc.detection
}

func (proc *Processor) begin(phase dof.Phase) {
	if proc.timers != nil {
		proc.timers.Begin(int(phase))
	}
}

func (proc *Processor) end() {
	if proc.timers != nil {
		proc.timers.End()
	}
}

// Draw records the whole pipeline. Nothing is read back, GL errors are logged.
func (proc *Processor) Draw(in DrawInput) {
	if in.Color == nil || in.Position == nil {
		proc.log.Error().Msg("draw input is missing color or position")
		return
	}
	if in.Color.Width() != proc.width || in.Color.Height() != proc.height ||
		in.Position.Width() != proc.width || in.Position.Height() != proc.height {
		proc.log.Error().Err(dof.ErrSizeMismatch).
			Int("width", proc.width).Int("height", proc.height).Msg("skipping dof")
		return
	}
	p := in.Params.Normalized()
	shape := in.Shape
	if shape == nil {
		shape = proc.placeholder
	}

	libgl.PushDebugGroup("Depth of Field")
	defer gl.PopDebugGroup()

	libgl.State.SetEnabled()
	libgl.State.Viewport(0, 0, proc.width, proc.height)
	libutil.EmptyVertexArray().Bind()

	proc.begin(dof.PhaseReset)
	proc.pipelines.reset.Bind()
	proc.indirectView.BindImage(0, gl.WRITE_ONLY, gl.R32UI)
	gl.DispatchCompute(1, 1, 1)
	libgl.MemoryBarrier(libgl.BarrierShaderImageAccess)
	proc.end()

	proc.begin(dof.PhaseCoC)
	coc := proc.pipelines.coc.FragmentStage()
	coc.SetUniform("u_view", in.View)
	coc.SetUniform("u_ranges", mgl32.Vec4{p.NearStart, p.NearEnd, p.FarStart, p.FarEnd})
	coc.SetUniform("u_max_coc", p.MaxCoCRadius)
	proc.pipelines.coc.Bind()
	proc.cocFbo.Bind(gl.DRAW_FRAMEBUFFER)
	in.Position.Bind(0)
	libutil.DrawTriangle()
	proc.end()

	proc.begin(dof.PhaseDetection)
	detection := proc.pipelines.detection.FragmentStage()
	detection.SetUniform("u_lum_threshold", p.LumThreshold)
	detection.SetUniform("u_coc_threshold", p.CoCThreshold)
	detection.SetUniform("u_capacity", uint32(proc.capacity))
	proc.pipelines.detection.Bind()
	proc.detectionFbo.Bind(gl.DRAW_FRAMEBUFFER)
	in.Color.Bind(0)
	proc.blurDepth.Bind(1)
	proc.indirectView.BindImage(0, gl.READ_WRITE, gl.R32UI)
	proc.bokehPosition.BindImage(1, gl.WRITE_ONLY, gl.RGBA32F)
	proc.bokehColor.BindImage(2, gl.WRITE_ONLY, gl.RGBA32F)
	libutil.DrawTriangle()
	proc.end()

	final := proc.outputFbo
	if in.Target != nil {
		final = in.Target
	}

	proc.begin(dof.PhaseBlur)
	proc.blurDepth.Bind(1)
	switch p.Blur {
	case dof.BlurPoisson:
		blur := proc.pipelines.blurPoisson.FragmentStage()
		blur.SetUniform("u_samples", dof.SamplePrefix(p.NSamples))
		blur.SetUniform("u_sample_count", p.NSamples)
		proc.pipelines.blurPoisson.Bind()
		final.Bind(gl.DRAW_FRAMEBUFFER)
		proc.detection.Bind(0)
		libutil.DrawTriangle()
	default:
		blur := proc.pipelines.blurSeparable.FragmentStage()
		blur.SetUniform("u_max_coc", p.MaxCoCRadius)
		proc.pipelines.blurSeparable.Bind()

		blur.SetUniform("u_direction", [2]int32{1, 0})
		proc.blurTmpFbo.Bind(gl.DRAW_FRAMEBUFFER)
		proc.detection.Bind(0)
		libutil.DrawTriangle()

		blur.SetUniform("u_direction", [2]int32{0, 1})
		final.Bind(gl.DRAW_FRAMEBUFFER)
		proc.blurTmp.Bind(0)
		libutil.DrawTriangle()
	}
	proc.end()

	proc.begin(dof.PhaseRender)
	// image stores and the atomic count must be visible to texel fetches and the indirect read
	libgl.MemoryBarrier(libgl.BarrierAll)
	bokeh := proc.pipelines.bokeh
	bokeh.VertexStage().SetUniform("u_capacity", uint32(proc.capacity))
	bokeh.GeometryStage().SetUniform("u_pixel_scale", mgl32.Vec2{1 / float32(proc.width), 1 / float32(proc.height)})
	bokeh.GeometryStage().SetUniform("u_max_bokeh_radius", p.MaxBokehRadius)
	bokeh.FragmentStage().SetUniform("u_depth_cutoff", p.BokehDepthCutoff)
	bokeh.Bind()
	final.Bind(gl.DRAW_FRAMEBUFFER)
	shape.Bind(0)
	proc.shapeSampler.Bind(0)
	proc.bokehPosition.Bind(1)
	proc.bokehColor.Bind(2)
	proc.blurDepth.Bind(3)
	libgl.State.SetEnabled(libgl.Blend)
	libgl.State.BlendFunc(libgl.BlendOne, libgl.BlendOne)
	libgl.State.BlendEquation(libgl.BlendFuncAdd)
	proc.indirect.Bind(gl.DRAW_INDIRECT_BUFFER)
	gl.DrawArraysIndirect(gl.POINTS, nil)
	libgl.State.SetEnabled()
	libgl.State.BindSampler(0, 0)
	proc.end()

	if proc.counts != nil {
		proc.counts.record(proc.indirect)
	}
	if proc.timers != nil {
		proc.timers.Swap()
	}
	libgl.CheckError("dof draw")
}

// LastBokehCount is the raw detection counter of a finished earlier frame, usually the
// previous one. It never waits. ok stays false until the first copy completes or when
// Options.CountReadback is off.
func (proc *Processor) LastBokehCount() (count int, ok bool) {
	if proc.counts == nil {
		return 0, false
	}
	proc.counts.poll()
	return proc.counts.count, proc.counts.valid
}

// ReadBokehCount returns the raw detection counter of the last frame, which may exceed
// the capacity. It waits for the GPU; use it for debugging only.
func (proc *Processor) ReadBokehCount() int {
	libgl.MemoryBarrier(libgl.BarrierBufferUpdate)
	var count uint32
	proc.indirect.Read(libgl.IndirectInstanceCountIndex*4, &count)
	return int(count)
}

// ReadPoints downloads the first n entries of the bokeh list. It waits for the GPU.
func (proc *Processor) ReadPoints(n int) []dof.Point {
	n = dof.ClampCount(n, proc.capacity)
	positions := make([]mgl32.Vec4, proc.capacity)
	colors := make([]mgl32.Vec4, proc.capacity)
	libgl.MemoryBarrier(libgl.BarrierTextureUpdate)
	proc.bokehPosition.Read(0, gl.RGBA, positions)
	proc.bokehColor.Read(0, gl.RGBA, colors)

	points := make([]dof.Point, n)
	for i := range points {
		pos := positions[i]
		x, y := int(pos.X()), int(pos.Y())
		points[i] = dof.Point{Position: pos, Color: colors[i], Origin: y*proc.width + x}
	}
	return points
}

// Timings are the GPU times of the phases, one frame late. Zero without Options.Timings.
func (proc *Processor) Timings() dof.Timings {
	var t dof.Timings
	if proc.timers != nil {
		copy(t[:], proc.timers.Results())
	}
	return t
}

func (proc *Processor) Release() {
	libutil.DeleteAll(proc.cleanup)
	libutil.DeleteAll(proc.pipelines.all())
	proc.cleanup = nil
	proc.pipelines = pipelines{}
}
