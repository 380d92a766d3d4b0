// Package dofcl runs the depth of field pipeline as OpenCL kernels on host side images.
package dofcl

import (
	_ "embed"
	"fmt"
	"time"
	"unsafe"

	"bokeh-gl/dof"
	"bokeh-gl/libio"
	"bokeh-gl/liblog"

	"github.com/Qendolin/go-opencl/cl"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/rs/zerolog"
	"golang.org/x/exp/slices"
)

//go:embed dof.cl
var kernelSrc string

type DeviceType = cl.DeviceType

const (
	DeviceTypeCPU         = DeviceType(cl.DeviceTypeCPU)
	DeviceTypeGPU         = DeviceType(cl.DeviceTypeGPU)
	DeviceTypeAccelerator = DeviceType(cl.DeviceTypeAccelerator)
)

const localSize = 16

type kernels struct {
	reset, coc, detect, blurSeparable, blurPoisson, render *cl.Kernel
}

type buffers struct {
	color, position, view              *cl.MemObject
	blurDepth, detection, blurTmp, dst *cl.MemObject
	counter, bokehPosition, bokehColor *cl.MemObject
	samples                            *cl.MemObject
}

type Processor struct {
	width, height int
	capacity      int
	context       *cl.Context
	queue         *cl.CommandQueue
	program       *cl.Program
	device        *cl.Device
	kernels       kernels
	buffers       buffers

	shape       *cl.MemObject
	shapeFrom   *libio.IntImage
	shapeWidth  int
	shapeHeight int

	output *libio.FloatImage
	stats  dof.Stats
	log    zerolog.Logger
}

var _ dof.ImageProcessor = (*Processor)(nil)

// pickDevice prefers the given device type, then the most compute units times clock.
func pickDevice(preferred DeviceType) (*cl.Device, error) {
	platforms, err := cl.GetPlatforms()
	if err != nil {
		return nil, err
	}

	var devices []*cl.Device
	for _, p := range platforms {
		devs, err := p.GetDevices(cl.DeviceTypeAll)
		if err != nil {
			continue
		}
		devices = append(devices, devs...)
	}
	if len(devices) == 0 {
		return nil, fmt.Errorf("no opencl devices found")
	}

	slices.SortFunc(devices, func(a, b *cl.Device) int {
		if a.Type() == preferred && b.Type() != preferred {
			return -1
		}
		if a.Type() != preferred && b.Type() == preferred {
			return 1
		}
		return b.MaxComputeUnits()*b.MaxClockFrequency() - a.MaxComputeUnits()*a.MaxClockFrequency()
	})
	return devices[0], nil
}

func NewProcessor(width, height int, preferred DeviceType) (proc *Processor, err error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid processor size %dx%d", width, height)
	}
	device, err := pickDevice(preferred)
	if err != nil {
		return nil, err
	}

	proc = &Processor{
		width:    width,
		height:   height,
		capacity: width * height,
		device:   device,
		output:   libio.NewBlankFloatImage(4, width, height),
		log:      liblog.With("dofcl"),
	}
	defer func() {
		if err != nil && proc != nil {
			proc.Release()
			proc = nil
		}
	}()

	if proc.context, err = cl.CreateContext([]*cl.Device{device}); err != nil {
		return
	}
	if proc.queue, err = proc.context.CreateCommandQueue(device, 0); err != nil {
		return
	}
	if proc.program, err = proc.context.CreateProgramWithSource([]string{kernelSrc}); err != nil {
		return
	}
	if err = proc.program.BuildProgram(nil, ""); err != nil {
		err = fmt.Errorf("could not build dof kernels: %w", err)
		return
	}

	for name, k := range map[string]**cl.Kernel{
		"reset":          &proc.kernels.reset,
		"coc":            &proc.kernels.coc,
		"detect":         &proc.kernels.detect,
		"blur_separable": &proc.kernels.blurSeparable,
		"blur_poisson":   &proc.kernels.blurPoisson,
		"render":         &proc.kernels.render,
	} {
		if *k, err = proc.program.CreateKernel(name); err != nil {
			err = fmt.Errorf("kernel %v: %w", name, err)
			return
		}
	}

	pixels := width * height
	b := &proc.buffers
	allocs := []struct {
		mem   **cl.MemObject
		flags cl.MemFlag
		size  int
	}{
		{&b.color, cl.MemReadOnly, pixels * 16},
		{&b.position, cl.MemReadOnly, pixels * 16},
		{&b.view, cl.MemReadOnly, 16 * 4},
		{&b.blurDepth, cl.MemReadWrite, pixels * 8},
		{&b.detection, cl.MemReadWrite, pixels * 16},
		{&b.blurTmp, cl.MemReadWrite, pixels * 16},
		{&b.dst, cl.MemReadWrite, pixels * 16},
		{&b.counter, cl.MemReadWrite, 4},
		{&b.bokehPosition, cl.MemReadWrite, proc.capacity * 16},
		{&b.bokehColor, cl.MemReadWrite, proc.capacity * 16},
	}
	for _, a := range allocs {
		if *a.mem, err = proc.context.CreateEmptyBuffer(a.flags, a.size); err != nil {
			return
		}
	}
	samples := dof.PoissonSamples
	if b.samples, err = proc.context.CreateBuffer(cl.MemReadOnly|cl.MemCopyHostPtr, len(samples)*int(unsafe.Sizeof(samples[0])), unsafe.Pointer(&samples[0])); err != nil {
		return
	}

	proc.log.Info().Str("device", device.Name()).Int("width", width).Int("height", height).Msg("opencl dof ready")
	return proc, nil
}

func roundUpKernelSize(groupSize, globalSize int) int {
	r := globalSize % groupSize
	if r == 0 {
		return globalSize
	}
	return globalSize + groupSize - r
}

// setArgs binds the arguments in order. Supported are buffers, int, int32 and float32.
func setArgs(k *cl.Kernel, args ...any) error {
	for i, arg := range args {
		var err error
		switch v := arg.(type) {
		case *cl.MemObject:
			err = k.SetArgBuffer(i, v)
		case int:
			err = k.SetArgInt32(i, int32(v))
		case int32:
			err = k.SetArgInt32(i, v)
		case float32:
			err = k.SetArgFloat32(i, v)
		default:
			err = fmt.Errorf("unsupported kernel argument %T", arg)
		}
		if err != nil {
			return fmt.Errorf("argument %d: %w", i, err)
		}
	}
	return nil
}

func (proc *Processor) run(k *cl.Kernel, global2d bool, args ...any) error {
	if err := setArgs(k, args...); err != nil {
		return err
	}
	global := []int{1}
	local := []int{1}
	if global2d {
		global = []int{roundUpKernelSize(localSize, proc.width), roundUpKernelSize(localSize, proc.height)}
		local = []int{localSize, localSize}
	}
	_, err := proc.queue.EnqueueNDRangeKernel(k, make([]int, len(global)), global, local, nil)
	return err
}

func (proc *Processor) write(mem *cl.MemObject, data []float32) error {
	_, err := proc.queue.EnqueueWriteBuffer(mem, true, 0, len(data)*4, unsafe.Pointer(&data[0]), nil)
	return err
}

// uploadShape converts the mask to premultiplied float rgba once per distinct image.
func (proc *Processor) uploadShape(img *libio.IntImage) error {
	if proc.shape != nil && proc.shapeFrom == img {
		return nil
	}
	src := img
	if src == nil || src.Count() == 0 {
		src = libio.PlaceholderShape(64)
	}
	pix := make([]float32, src.Count()*4)
	for i := 0; i < src.Count(); i++ {
		rgba := libio.ExpandRGBA(src.Pix[i*src.Channels : (i+1)*src.Channels])
		a := float32(rgba[3]) / 0xff
		for c := 0; c < 3; c++ {
			pix[i*4+c] = float32(rgba[c]) / 0xff * a
		}
		pix[i*4+3] = a
	}

	shape, err := proc.context.CreateBuffer(cl.MemReadOnly|cl.MemCopyHostPtr, len(pix)*4, unsafe.Pointer(&pix[0]))
	if err != nil {
		return err
	}
	if proc.shape != nil {
		proc.shape.Release()
	}
	proc.shape = shape
	proc.shapeFrom = img
	proc.shapeWidth, proc.shapeHeight = src.Width, src.Height
	return nil
}

// Draw runs every kernel in order on the in-order queue and reads the result back.
// The returned image is overwritten by the next Draw.
func (proc *Processor) Draw(frame dof.Frame, params dof.Params) (*libio.FloatImage, error) {
	if err := dof.CheckFrame(frame, proc.width, proc.height); err != nil {
		return nil, err
	}
	p := params.Normalized()
	b := &proc.buffers
	w, h := proc.width, proc.height

	if err := proc.uploadShape(frame.Shape); err != nil {
		return nil, err
	}
	if err := proc.write(b.color, frame.Color.ToChannels(4, 0, 0, 0, 1).Pix); err != nil {
		return nil, err
	}
	if err := proc.write(b.position, frame.Position.Pix); err != nil {
		return nil, err
	}
	view := frame.View
	if err := proc.write(b.view, view[:]); err != nil {
		return nil, err
	}

	var timings dof.Timings
	start := time.Now()
	step := func(phase dof.Phase, err error) error {
		if err != nil {
			return fmt.Errorf("dof %v: %w", phase, err)
		}
		if err := proc.queue.Finish(); err != nil {
			return fmt.Errorf("dof %v: %w", phase, err)
		}
		now := time.Now()
		timings[phase] = now.Sub(start)
		start = now
		return nil
	}

	err := step(dof.PhaseReset, proc.run(proc.kernels.reset, false, b.counter))
	if err == nil {
		err = step(dof.PhaseCoC, proc.run(proc.kernels.coc, true,
			b.position, b.blurDepth, b.view, w, h, p.NearStart, p.NearEnd, p.FarStart, p.FarEnd, p.MaxCoCRadius))
	}
	if err == nil {
		err = step(dof.PhaseDetection, proc.run(proc.kernels.detect, true,
			b.color, b.blurDepth, b.detection, b.counter, b.bokehPosition, b.bokehColor,
			w, h, proc.capacity, p.LumThreshold, p.CoCThreshold))
	}
	if err == nil {
		err = step(dof.PhaseBlur, proc.blur(p))
	}
	if err == nil {
		err = step(dof.PhaseRender, proc.run(proc.kernels.render, true,
			b.dst, b.blurDepth, b.bokehPosition, b.bokehColor, b.counter, proc.capacity,
			proc.shape, proc.shapeWidth, proc.shapeHeight, w, h, p.MaxBokehRadius, p.BokehDepthCutoff))
	}
	if err != nil {
		return nil, err
	}

	var count uint32
	if _, err := proc.queue.EnqueueReadBuffer(b.counter, true, 0, 4, unsafe.Pointer(&count), nil); err != nil {
		return nil, err
	}
	if _, err := proc.queue.EnqueueReadBuffer(b.dst, true, 0, proc.output.Bytes(), proc.output.Pointer(), nil); err != nil {
		return nil, err
	}

	finalized := dof.ClampCount(int(count), proc.capacity)
	proc.stats = dof.Stats{BokehCount: finalized, Dropped: int(count) - finalized, Timings: timings}
	if proc.stats.Dropped > 0 {
		proc.log.Warn().Int("dropped", proc.stats.Dropped).Msg("bokeh list overflow")
	}
	return proc.output, nil
}

func (proc *Processor) blur(p dof.Params) error {
	b := &proc.buffers
	w, h := proc.width, proc.height
	if p.Blur == dof.BlurPoisson {
		return proc.run(proc.kernels.blurPoisson, true, b.detection, b.dst, b.blurDepth, b.samples, p.NSamples, w, h)
	}
	if err := proc.run(proc.kernels.blurSeparable, true, b.detection, b.blurTmp, b.blurDepth, w, h, 1, 0, p.MaxCoCRadius); err != nil {
		return err
	}
	return proc.run(proc.kernels.blurSeparable, true, b.blurTmp, b.dst, b.blurDepth, w, h, 0, 1, p.MaxCoCRadius)
}

// ReadPoints downloads the first n entries of the bokeh list in slot order.
func (proc *Processor) ReadPoints(n int) ([]dof.Point, error) {
	n = dof.ClampCount(n, proc.capacity)
	if n <= 0 {
		return nil, nil
	}
	positions := make([]mgl32.Vec4, n)
	colors := make([]mgl32.Vec4, n)
	if _, err := proc.queue.EnqueueReadBuffer(proc.buffers.bokehPosition, true, 0, n*16, unsafe.Pointer(&positions[0]), nil); err != nil {
		return nil, err
	}
	if _, err := proc.queue.EnqueueReadBuffer(proc.buffers.bokehColor, true, 0, n*16, unsafe.Pointer(&colors[0]), nil); err != nil {
		return nil, err
	}
	points := make([]dof.Point, n)
	for i := range points {
		x, y := int(positions[i].X()), int(positions[i].Y())
		points[i] = dof.Point{Position: positions[i], Color: colors[i], Origin: x + y*proc.width}
	}
	return points, nil
}

func (proc *Processor) Stats() dof.Stats {
	return proc.stats
}

func (proc *Processor) DeviceName() string {
	return proc.device.Name()
}

func (proc *Processor) Release() {
	b := &proc.buffers
	for _, mem := range []*cl.MemObject{b.color, b.position, b.view, b.blurDepth, b.detection, b.blurTmp,
		b.dst, b.counter, b.bokehPosition, b.bokehColor, b.samples, proc.shape} {
		if mem != nil {
			mem.Release()
		}
	}
	k := &proc.kernels
	for _, kernel := range []*cl.Kernel{k.reset, k.coc, k.detect, k.blurSeparable, k.blurPoisson, k.render} {
		if kernel != nil {
			kernel.Release()
		}
	}
	if proc.program != nil {
		proc.program.Release()
	}
	if proc.queue != nil {
		proc.queue.Release()
	}
	if proc.context != nil {
		proc.context.Release()
	}
	*proc = Processor{width: proc.width, height: proc.height}
}
