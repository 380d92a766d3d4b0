package libgl

import (
	"github.com/go-gl/gl/v4.5-core/gl"
)

type GlCapability uint32

const (
	DepthTest   GlCapability = gl.DEPTH_TEST
	Blend       GlCapability = gl.BLEND
	StencilTest GlCapability = gl.STENCIL_TEST
	ScissorTest GlCapability = gl.SCISSOR_TEST
	CullFace    GlCapability = gl.CULL_FACE
)

type GlBlendFactor uint32

const (
	BlendZero             GlBlendFactor = gl.ZERO
	BlendOne              GlBlendFactor = gl.ONE
	BlendSrcAlpha         GlBlendFactor = gl.SRC_ALPHA
	BlendOneMinusSrcAlpha GlBlendFactor = gl.ONE_MINUS_SRC_ALPHA
)

type GlBlendEquation uint32

const (
	BlendFuncAdd GlBlendEquation = gl.FUNC_ADD
	BlendMax     GlBlendEquation = gl.MAX
)

// GlStateManager caches bound objects and toggled state to skip redundant GL calls.
// It assumes it is the only code changing that state.
type GlStateManager struct {
	Caps                              map[GlCapability]bool
	TextureUnits, SamplerUnits        []uint32
	DrawFramebuffer, ReadFramebuffer  uint32
	DrawIndirectBuffer, TextureBuffer uint32
	ProgramPipeline, VertexArray      uint32
	ViewportRect, ScissorRect         [4]int
	BlendFactorSrc, BlendFactorDst    GlBlendFactor
	BlendEquationRGB                  GlBlendEquation
	imageUnits                        map[uint32][3]uint32
}

var State *GlStateManager

func NewGlStateManager() *GlStateManager {
	return &GlStateManager{
		Caps:         map[GlCapability]bool{},
		TextureUnits: make([]uint32, 32),
		SamplerUnits: make([]uint32, 32),
		imageUnits:   map[uint32][3]uint32{},
	}
}

func (s *GlStateManager) Enable(cap GlCapability) {
	if s.Caps[cap] {
		return
	}
	gl.Enable(uint32(cap))
	s.Caps[cap] = true
}

func (s *GlStateManager) Disable(cap GlCapability) {
	if !s.Caps[cap] {
		return
	}
	gl.Disable(uint32(cap))
	s.Caps[cap] = false
}

// SetEnabled enables exactly the given capabilities and disables every other one it knows of.
func (s *GlStateManager) SetEnabled(caps ...GlCapability) {
	want := make(map[GlCapability]bool, len(caps))
	for _, c := range caps {
		want[c] = true
	}
	for c, on := range s.Caps {
		if on && !want[c] {
			s.Disable(c)
		}
	}
	for c := range want {
		s.Enable(c)
	}
}

func (s *GlStateManager) BlendFunc(sfactor, dfactor GlBlendFactor) {
	if s.BlendFactorSrc == sfactor && s.BlendFactorDst == dfactor {
		return
	}
	gl.BlendFunc(uint32(sfactor), uint32(dfactor))
	s.BlendFactorSrc = sfactor
	s.BlendFactorDst = dfactor
}

func (s *GlStateManager) BlendEquation(mode GlBlendEquation) {
	if s.BlendEquationRGB == mode {
		return
	}
	gl.BlendEquation(uint32(mode))
	s.BlendEquationRGB = mode
}

func (s *GlStateManager) BindTextureUnit(unit int, texture uint32) {
	if s.TextureUnits[unit] == texture {
		return
	}
	if Env != nil && Env.UseIntelTextureBindingFix && texture != 0 {
		gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
		gl.BindTexture(Env.IntelTextureBindingTargets[texture], texture)
		s.TextureUnits[unit] = texture
		return
	}
	gl.BindTextureUnit(uint32(unit), texture)
	s.TextureUnits[unit] = texture
}

func (s *GlStateManager) BindSampler(unit int, sampler uint32) {
	if s.SamplerUnits[unit] == sampler {
		return
	}
	gl.BindSampler(uint32(unit), sampler)
	s.SamplerUnits[unit] = sampler
}

// BindImageTexture binds a texture level to an image unit for load, store and atomic access.
func (s *GlStateManager) BindImageTexture(unit int, texture uint32, level int, access, format uint32) {
	key := [3]uint32{texture, access, format}
	if prev, ok := s.imageUnits[uint32(unit)]; ok && prev == key && level == 0 {
		return
	}
	gl.BindImageTexture(uint32(unit), texture, int32(level), false, 0, access, format)
	if level == 0 {
		s.imageUnits[uint32(unit)] = key
	} else {
		delete(s.imageUnits, uint32(unit))
	}
}

func (s *GlStateManager) BindBuffer(target uint32, buffer uint32) {
	switch target {
	case gl.DRAW_INDIRECT_BUFFER:
		if s.DrawIndirectBuffer == buffer {
			return
		}
		s.DrawIndirectBuffer = buffer
	case gl.TEXTURE_BUFFER:
		if s.TextureBuffer == buffer {
			return
		}
		s.TextureBuffer = buffer
	}
	gl.BindBuffer(target, buffer)
}

func (s *GlStateManager) BindFramebuffer(target, framebuffer uint32) {
	switch target {
	case gl.DRAW_FRAMEBUFFER:
		if s.DrawFramebuffer == framebuffer {
			return
		}
		s.DrawFramebuffer = framebuffer
	case gl.READ_FRAMEBUFFER:
		if s.ReadFramebuffer == framebuffer {
			return
		}
		s.ReadFramebuffer = framebuffer
	default:
		if s.DrawFramebuffer == framebuffer && s.ReadFramebuffer == framebuffer {
			return
		}
		s.DrawFramebuffer = framebuffer
		s.ReadFramebuffer = framebuffer
		target = gl.FRAMEBUFFER
	}
	gl.BindFramebuffer(target, framebuffer)
}

func (s *GlStateManager) BindProgramPipeline(pipeline uint32) {
	if s.ProgramPipeline == pipeline {
		return
	}
	gl.BindProgramPipeline(pipeline)
	s.ProgramPipeline = pipeline
}

func (s *GlStateManager) BindVertexArray(array uint32) {
	if s.VertexArray == array {
		return
	}
	gl.BindVertexArray(array)
	s.VertexArray = array
}

func (s *GlStateManager) Viewport(x, y, w, h int) {
	rect := [4]int{x, y, w, h}
	if s.ViewportRect == rect {
		return
	}
	gl.Viewport(int32(x), int32(y), int32(w), int32(h))
	s.ViewportRect = rect
}

func (s *GlStateManager) Scissor(x, y, w, h int) {
	rect := [4]int{x, y, w, h}
	if s.ScissorRect == rect {
		return
	}
	gl.Scissor(int32(x), int32(y), int32(w), int32(h))
	s.ScissorRect = rect
}

// Forget drops every cached binding of an object that is about to be deleted,
// since GL may hand the same name out again.
func (s *GlStateManager) Forget(id uint32) {
	for i, t := range s.TextureUnits {
		if t == id {
			s.TextureUnits[i] = 0
		}
	}
	for unit, key := range s.imageUnits {
		if key[0] == id {
			delete(s.imageUnits, unit)
		}
	}
}
