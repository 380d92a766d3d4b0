package dofgl

import (
	"unsafe"

	"bokeh-gl/libgl"

	"github.com/go-gl/gl/v4.5-core/gl"
)

const readbackFlags = gl.MAP_READ_BIT | gl.MAP_PERSISTENT_BIT | gl.MAP_COHERENT_BIT

// countReadback copies the instance count of the indirect command into a persistently
// mapped buffer at the end of a frame and picks it up once its fence has signaled.
// Only one copy is in flight, frames finishing while it is pending are skipped.
type countReadback struct {
	buffer libgl.UnboundBuffer
	mapped unsafe.Pointer
	fence  *libgl.Fence
	count  int
	valid  bool
}

func newCountReadback() *countReadback {
	buf := libgl.NewBuffer()
	buf.SetDebugLabel("dof count readback")
	buf.AllocateEmpty(4, readbackFlags)
	return &countReadback{buffer: buf, mapped: buf.MapRange(0, 4, readbackFlags)}
}

func (r *countReadback) poll() {
	if r.fence == nil || !r.fence.Signaled() {
		return
	}
	r.count = int(*(*uint32)(r.mapped))
	r.valid = true
	r.fence.Delete()
	r.fence = nil
}

// record must come after the barrier that makes the detection atomics visible.
func (r *countReadback) record(indirect libgl.UnboundBuffer) {
	r.poll()
	if r.fence != nil {
		return
	}
	indirect.CopyTo(r.buffer, libgl.IndirectInstanceCountIndex*4, 0, 4)
	r.fence = libgl.NewFence()
}

func (r *countReadback) Delete() {
	if r.fence != nil {
		r.fence.Delete()
		r.fence = nil
	}
	if r.mapped != nil {
		r.buffer.Unmap()
		r.mapped = nil
	}
	r.buffer.Delete()
}
