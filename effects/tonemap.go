package effects

import (
	"embed"
	"fmt"

	"bokeh-gl/libgl"
	"bokeh-gl/libutil"

	"github.com/go-gl/gl/v4.5-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

//go:embed shaders
var shaders embed.FS

// TonemapEffect maps HDR color to display range with 1 - exp(-c * exposure) followed by gamma,
// the same curve as libio.FloatImage.ToIntImage. The source is stretched over the viewport.
type TonemapEffect struct {
	Exposure float32
	Gamma    float32
	shader   libgl.UnboundShaderPipeline
	sampler  libgl.UnboundSampler
}

func NewTonemapEffect() (*TonemapEffect, error) {
	pipeline := libgl.NewPipeline()
	pipeline.SetDebugLabel("tonemap")
	for _, name := range []string{"shaders/quad.vert", "shaders/tonemap.frag"} {
		prog, err := libgl.NewShaderFromFS(shaders, name)
		if err == nil {
			err = prog.Compile()
		}
		if err != nil {
			pipeline.Delete()
			return nil, fmt.Errorf("tonemap %v: %w", name, err)
		}
		pipeline.Attach(prog, libgl.StageBit(prog.Stage()))
	}

	sampler := libgl.NewSampler()
	sampler.FilterMode(gl.LINEAR, gl.LINEAR)
	sampler.WrapMode(gl.CLAMP_TO_EDGE, gl.CLAMP_TO_EDGE)

	return &TonemapEffect{
		Exposure: 1,
		Gamma:    2.2,
		shader:   pipeline,
		sampler:  sampler,
	}, nil
}

// Render draws hdr into a width x height viewport of target.
func (effect *TonemapEffect) Render(hdr libgl.UnboundTexture, target libgl.UnboundFramebuffer, width, height int) {
	libgl.PushDebugGroup("Tonemap")
	defer gl.PopDebugGroup()

	gamma := effect.Gamma
	if gamma <= 0 {
		gamma = 1
	}

	libgl.State.SetEnabled()
	libgl.State.Viewport(0, 0, width, height)
	target.Bind(gl.DRAW_FRAMEBUFFER)

	effect.shader.Bind()
	frag := effect.shader.FragmentStage()
	frag.SetUniform("u_inv_viewport", mgl32.Vec2{1 / float32(width), 1 / float32(height)})
	frag.SetUniform("u_exposure", effect.Exposure)
	frag.SetUniform("u_inv_gamma", 1/gamma)
	effect.sampler.Bind(0)
	hdr.Bind(0)
	libutil.DrawTriangle()
}

func (effect *TonemapEffect) Release() {
	effect.shader.Delete()
	effect.sampler.Delete()
}
