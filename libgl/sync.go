package libgl

import (
	"time"

	"github.com/go-gl/gl/v4.5-core/gl"
)

type Barrier uint32

const (
	BarrierShaderImageAccess Barrier = gl.SHADER_IMAGE_ACCESS_BARRIER_BIT
	BarrierCommand           Barrier = gl.COMMAND_BARRIER_BIT
	BarrierTextureFetch      Barrier = gl.TEXTURE_FETCH_BARRIER_BIT
	BarrierFramebuffer       Barrier = gl.FRAMEBUFFER_BARRIER_BIT
	BarrierBufferUpdate      Barrier = gl.BUFFER_UPDATE_BARRIER_BIT
	BarrierTextureUpdate     Barrier = gl.TEXTURE_UPDATE_BARRIER_BIT
	BarrierAll               Barrier = gl.ALL_BARRIER_BITS
)

// MemoryBarrier orders incoherent writes (image stores and atomics) before the
// reads named by the barrier bits.
func MemoryBarrier(bits Barrier) {
	gl.MemoryBarrier(uint32(bits))
}

// TimerQueries measures GPU time of named sections. Results are collected one frame
// late so reading them never waits for the GPU.
type TimerQueries struct {
	ids     [2][]uint32
	frame   int
	pending bool
	results []time.Duration
}

func NewTimerQueries(sections int) *TimerQueries {
	q := &TimerQueries{results: make([]time.Duration, sections)}
	for i := range q.ids {
		q.ids[i] = make([]uint32, sections)
		gl.CreateQueries(gl.TIME_ELAPSED, int32(sections), &q.ids[i][0])
	}
	return q
}

func (q *TimerQueries) Begin(section int) {
	gl.BeginQuery(gl.TIME_ELAPSED, q.ids[q.frame][section])
}

func (q *TimerQueries) End() {
	gl.EndQuery(gl.TIME_ELAPSED)
}

// Swap finishes the current frame and collects the previous one if it is available.
func (q *TimerQueries) Swap() {
	prev := 1 - q.frame
	if q.pending {
		last := q.ids[prev][len(q.ids[prev])-1]
		var available int32
		gl.GetQueryObjectiv(last, gl.QUERY_RESULT_AVAILABLE, &available)
		if available != gl.FALSE {
			for i, id := range q.ids[prev] {
				var ns uint64
				gl.GetQueryObjectui64v(id, gl.QUERY_RESULT, &ns)
				q.results[i] = time.Duration(ns)
			}
		}
	}
	q.frame = prev
	q.pending = true
}

func (q *TimerQueries) Results() []time.Duration {
	return q.results
}

func (q *TimerQueries) Delete() {
	for i := range q.ids {
		gl.DeleteQueries(int32(len(q.ids[i])), &q.ids[i][0])
	}
}

// Fence is signaled once every command issued before it has completed.
type Fence struct {
	sync uintptr
}

func NewFence() *Fence {
	return &Fence{sync: gl.FenceSync(gl.SYNC_GPU_COMMANDS_COMPLETE, 0)}
}

// Signaled polls without waiting.
func (f *Fence) Signaled() bool {
	status := gl.ClientWaitSync(f.sync, gl.SYNC_FLUSH_COMMANDS_BIT, 0)
	return status == gl.ALREADY_SIGNALED || status == gl.CONDITION_SATISFIED
}

func (f *Fence) Delete() {
	if f.sync != 0 {
		gl.DeleteSync(f.sync)
		f.sync = 0
	}
}
