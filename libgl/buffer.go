package libgl

import (
	"encoding/binary"
	"fmt"
	"log"
	"unsafe"

	"github.com/go-gl/gl/v4.5-core/gl"
)

// DrawArraysIndirectCommand is the argument layout read by glDrawArraysIndirect.
type DrawArraysIndirectCommand struct {
	Count         uint32
	InstanceCount uint32
	First         uint32
	// must be zero
	BaseInstance uint32
}

// Offsets in 32 bit words
const (
	IndirectCountIndex         = 0
	IndirectInstanceCountIndex = 1
)

type buffer struct {
	glId      uint32
	size      int
	flags     uint32
	immutable bool
}

type UnboundBuffer interface {
	LabeledGlObject
	Id() uint32
	Allocate(data any, flags int)
	AllocateEmpty(size int, flags int)
	Write(offset int, data any)
	Read(offset int, data any)
	CopyTo(dst UnboundBuffer, readOffset, writeOffset, size int)
	MapRange(offset, length int, access uint32) unsafe.Pointer
	Unmap() bool
	Size() int
	Bind(target uint32) BoundBuffer
	Delete()
}

type BoundBuffer interface {
	UnboundBuffer
}

func NewBuffer() UnboundBuffer {
	var id uint32
	gl.CreateBuffers(1, &id)
	return &buffer{
		glId: id,
	}
}

func (vbo *buffer) Id() uint32 {
	return vbo.glId
}

func (vbo *buffer) SetDebugLabel(label string) {
	setObjectLabel(gl.BUFFER, vbo.glId, label)
}

func (vbo *buffer) Bind(target uint32) BoundBuffer {
	State.BindBuffer(target, vbo.glId)
	return BoundBuffer(vbo)
}

func (vbo *buffer) Size() int {
	return vbo.size
}

func (vbo *buffer) AllocateEmpty(size int, flags int) {
	if vbo.immutable {
		log.Panicf("buffer %d is immutable", vbo.glId)
	}
	if vbo.warnAllocationSizeZero(size) {
		return
	}
	gl.NamedBufferStorage(vbo.glId, size, nil, uint32(flags))
	vbo.size = size
	vbo.flags = uint32(flags)
	vbo.immutable = true
}

func (vbo *buffer) Allocate(data any, flags int) {
	if vbo.immutable {
		log.Panicf("buffer %d is immutable", vbo.glId)
	}
	size := binary.Size(data)
	if size == -1 {
		log.Panicf("%T does not have a fixed size", data)
	}
	if vbo.warnAllocationSizeZero(size) {
		return
	}
	gl.NamedBufferStorage(vbo.glId, size, Pointer(data), uint32(flags))
	vbo.size = size
	vbo.flags = uint32(flags)
	vbo.immutable = true
}

func (vbo *buffer) warnAllocationSizeZero(size int) bool {
	if size != 0 {
		return false
	}
	msg := "Zero size buffer allocation\x00"
	gl.DebugMessageInsert(gl.DEBUG_SOURCE_APPLICATION, gl.DEBUG_TYPE_ERROR, 1, gl.DEBUG_SEVERITY_MEDIUM, -1, gl.Str(msg))
	return true
}

// Write requires DYNAMIC_STORAGE_BIT.
func (vbo *buffer) Write(offset int, data any) {
	size := binary.Size(data)
	if size == -1 {
		log.Panicf("%T does not have a fixed size", data)
	}
	if offset+size > vbo.size {
		log.Panicf("write of %d bytes at %d overflows buffer of %d bytes", size, offset, vbo.size)
	}
	gl.NamedBufferSubData(vbo.glId, offset, size, Pointer(data))
}

// Read copies back into data, which must be a pointer or slice. It waits for the GPU.
func (vbo *buffer) Read(offset int, data any) {
	size := binary.Size(data)
	if size == -1 {
		log.Panicf("%T does not have a fixed size", data)
	}
	if offset+size > vbo.size {
		panic(fmt.Errorf("read of %d bytes at %d overflows buffer of %d bytes", size, offset, vbo.size))
	}
	gl.GetNamedBufferSubData(vbo.glId, offset, size, Pointer(data))
}

// CopyTo copies on the GPU, nothing waits.
func (vbo *buffer) CopyTo(dst UnboundBuffer, readOffset, writeOffset, size int) {
	if readOffset+size > vbo.size || writeOffset+size > dst.Size() {
		log.Panicf("copy of %d bytes from %d to %d is out of bounds", size, readOffset, writeOffset)
	}
	gl.CopyNamedBufferSubData(vbo.glId, dst.Id(), readOffset, writeOffset, size)
}

// MapRange requires the matching MAP_*_BIT storage flags.
func (vbo *buffer) MapRange(offset, length int, access uint32) unsafe.Pointer {
	return gl.MapNamedBufferRange(vbo.glId, offset, length, access)
}

func (vbo *buffer) Unmap() bool {
	return gl.UnmapNamedBuffer(vbo.glId)
}

func (vbo *buffer) Delete() {
	gl.DeleteBuffers(1, &vbo.glId)
	vbo.glId = 0
}

type vertexArray struct {
	glId uint32
}

type UnboundVertexArray interface {
	LabeledGlObject
	Id() uint32
	Layout(bufferIndex, attributeIndex, size int, dataType uint32, normalized bool, offset int)
	BindBuffer(bufferIndex int, vbo UnboundBuffer, offset, stride int)
	BindElementBuffer(ebo UnboundBuffer)
	Bind() BoundVertexArray
	Delete()
}

type BoundVertexArray interface {
	UnboundVertexArray
}

func NewVertexArray() UnboundVertexArray {
	var id uint32
	gl.CreateVertexArrays(1, &id)
	return &vertexArray{glId: id}
}

func (vao *vertexArray) Id() uint32 {
	return vao.glId
}

func (vao *vertexArray) SetDebugLabel(label string) {
	setObjectLabel(gl.VERTEX_ARRAY, vao.glId, label)
}

func (vao *vertexArray) Bind() BoundVertexArray {
	State.BindVertexArray(vao.glId)
	return BoundVertexArray(vao)
}

// Layout describes attribute attributeIndex as size components of dataType at offset
// within each vertex of buffer binding bufferIndex.
func (vao *vertexArray) Layout(bufferIndex, attributeIndex, size int, dataType uint32, normalized bool, offset int) {
	gl.EnableVertexArrayAttrib(vao.glId, uint32(attributeIndex))
	gl.VertexArrayAttribFormat(vao.glId, uint32(attributeIndex), int32(size), dataType, normalized, uint32(offset))
	gl.VertexArrayAttribBinding(vao.glId, uint32(attributeIndex), uint32(bufferIndex))
}

func (vao *vertexArray) BindBuffer(bufferIndex int, vbo UnboundBuffer, offset, stride int) {
	gl.VertexArrayVertexBuffer(vao.glId, uint32(bufferIndex), vbo.Id(), offset, int32(stride))
}

func (vao *vertexArray) BindElementBuffer(ebo UnboundBuffer) {
	gl.VertexArrayElementBuffer(vao.glId, ebo.Id())
}

func (vao *vertexArray) Delete() {
	gl.DeleteVertexArrays(1, &vao.glId)
	vao.glId = 0
}
