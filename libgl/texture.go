package libgl

import (
	"fmt"
	"log"

	"github.com/go-gl/gl/v4.5-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

type texture struct {
	glId          uint32
	target        uint32
	width, height int
}

type UnboundTexture interface {
	LabeledGlObject
	Id() uint32
	Type() uint32
	Width() int
	Height() int
	Bind(unit int) BoundTexture
	BindImage(unit int, access, format uint32)
	Allocate(levels int, internalFormat uint32, width, height int)
	Load(level int, width, height int, format uint32, data any)
	Read(level int, format uint32, data any)
	FilterMode(min, mag int32)
	WrapMode(s, t int32)
	Swizzle(r, g, b, a int32)
	Delete()
}

type BoundTexture interface {
	UnboundTexture
}

func NewTexture(target uint32) UnboundTexture {
	var id uint32
	gl.CreateTextures(target, 1, &id)
	if Env != nil && Env.UseIntelTextureBindingFix {
		Env.IntelTextureBindingTargets[id] = target
	}
	return &texture{
		glId:   id,
		target: target,
	}
}

// NewBufferTexture creates a texture buffer view over buf, for imageLoad, imageStore
// and image atomics on buffer memory.
func NewBufferTexture(buf UnboundBuffer, internalFormat uint32) UnboundTexture {
	tex := NewTexture(gl.TEXTURE_BUFFER).(*texture)
	gl.TextureBuffer(tex.glId, internalFormat, buf.Id())
	tex.width = buf.Size() / formatSize(internalFormat)
	tex.height = 1
	return tex
}

// NewTexture2D allocates a single level 2D texture with nearest filtering and edge clamping.
func NewTexture2D(internalFormat uint32, width, height int) UnboundTexture {
	tex := NewTexture(gl.TEXTURE_2D)
	tex.Allocate(1, internalFormat, width, height)
	tex.FilterMode(gl.NEAREST, gl.NEAREST)
	tex.WrapMode(gl.CLAMP_TO_EDGE, gl.CLAMP_TO_EDGE)
	return tex
}

func formatSize(internalFormat uint32) int {
	switch internalFormat {
	case gl.R32UI, gl.R32I, gl.R32F:
		return 4
	case gl.RG32F, gl.RG32UI:
		return 8
	case gl.RGBA32F, gl.RGBA32UI:
		return 16
	}
	log.Panicf("unsupported buffer texture format %04x", internalFormat)
	return 0
}

func (tex *texture) Id() uint32 {
	return tex.glId
}

func (tex *texture) Type() uint32 {
	return tex.target
}

func (tex *texture) Width() int {
	return tex.width
}

func (tex *texture) Height() int {
	return tex.height
}

func (tex *texture) SetDebugLabel(label string) {
	setObjectLabel(gl.TEXTURE, tex.glId, label)
}

func (tex *texture) Bind(unit int) BoundTexture {
	State.BindTextureUnit(unit, tex.glId)
	return BoundTexture(tex)
}

// BindImage binds level 0 to an image unit. access is READ_ONLY, WRITE_ONLY or READ_WRITE.
func (tex *texture) BindImage(unit int, access, format uint32) {
	State.BindImageTexture(unit, tex.glId, 0, access, format)
}

func (tex *texture) Allocate(levels int, internalFormat uint32, width, height int) {
	if levels <= 0 {
		levels = 1
	}
	tex.width = width
	tex.height = height
	switch tex.target {
	case gl.TEXTURE_1D:
		gl.TextureStorage1D(tex.glId, int32(levels), internalFormat, int32(width))
	case gl.TEXTURE_2D:
		gl.TextureStorage2D(tex.glId, int32(levels), internalFormat, int32(width), int32(height))
	default:
		log.Panicf("cannot allocate texture target %04x", tex.target)
	}
}

func (tex *texture) Load(level int, width, height int, format uint32, data any) {
	dataType := getGlType(data)
	switch tex.target {
	case gl.TEXTURE_1D:
		gl.TextureSubImage1D(tex.glId, int32(level), 0, int32(width), format, dataType, Pointer(data))
	case gl.TEXTURE_2D:
		gl.TextureSubImage2D(tex.glId, int32(level), 0, 0, int32(width), int32(height), format, dataType, Pointer(data))
	default:
		log.Panicf("cannot load texture target %04x", tex.target)
	}
}

// Read downloads a level into data. It waits for the GPU.
func (tex *texture) Read(level int, format uint32, data any) {
	dataType := getGlType(data)
	size := sliceBytes(data)
	gl.GetTextureImage(tex.glId, int32(level), format, dataType, int32(size), Pointer(data))
}

func (tex *texture) FilterMode(min, mag int32) {
	gl.TextureParameteri(tex.glId, gl.TEXTURE_MIN_FILTER, min)
	gl.TextureParameteri(tex.glId, gl.TEXTURE_MAG_FILTER, mag)
}

func (tex *texture) WrapMode(s, t int32) {
	gl.TextureParameteri(tex.glId, gl.TEXTURE_WRAP_S, s)
	gl.TextureParameteri(tex.glId, gl.TEXTURE_WRAP_T, t)
}

func (tex *texture) Swizzle(r, g, b, a int32) {
	swizzle := [4]int32{r, g, b, a}
	gl.TextureParameteriv(tex.glId, gl.TEXTURE_SWIZZLE_RGBA, &swizzle[0])
}

func (tex *texture) Delete() {
	if State != nil {
		State.Forget(tex.glId)
	}
	gl.DeleteTextures(1, &tex.glId)
	tex.glId = 0
}

func getGlType(data any) uint32 {
	switch data.(type) {
	case []byte, *byte:
		return gl.UNSIGNED_BYTE
	case []int32, *int32:
		return gl.INT
	case []uint32, *uint32:
		return gl.UNSIGNED_INT
	case []float32, *float32, []mgl32.Vec2, []mgl32.Vec4, *mgl32.Vec4:
		return gl.FLOAT
	}
	log.Panicf("invalid type: %T", data)
	return 0
}

func sliceBytes(data any) int {
	switch d := data.(type) {
	case []byte:
		return len(d)
	case []int32:
		return len(d) * 4
	case []uint32:
		return len(d) * 4
	case []float32:
		return len(d) * 4
	case []mgl32.Vec4:
		return len(d) * 16
	}
	panic(fmt.Errorf("cannot read texture into %T", data))
}

type sampler struct {
	glId uint32
}

type UnboundSampler interface {
	Id() uint32
	Bind(unit int) BoundSampler
	FilterMode(min, mag int32)
	WrapMode(s, t int32)
	Delete()
}

type BoundSampler interface {
	UnboundSampler
}

func NewSampler() UnboundSampler {
	var id uint32
	gl.CreateSamplers(1, &id)
	return &sampler{glId: id}
}

func (s *sampler) Id() uint32 {
	return s.glId
}

func (s *sampler) Bind(unit int) BoundSampler {
	State.BindSampler(unit, s.glId)
	return BoundSampler(s)
}

func (s *sampler) FilterMode(min, mag int32) {
	gl.SamplerParameteri(s.glId, gl.TEXTURE_MIN_FILTER, min)
	gl.SamplerParameteri(s.glId, gl.TEXTURE_MAG_FILTER, mag)
}

func (sampler *sampler) WrapMode(s, t int32) {
	gl.SamplerParameteri(sampler.glId, gl.TEXTURE_WRAP_S, s)
	gl.SamplerParameteri(sampler.glId, gl.TEXTURE_WRAP_T, t)
}

func (s *sampler) Delete() {
	gl.DeleteSamplers(1, &s.glId)
	s.glId = 0
}
