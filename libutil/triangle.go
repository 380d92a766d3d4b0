package libutil

import (
	"bokeh-gl/libgl"

	"github.com/go-gl/gl/v4.5-core/gl"
)

var emptyVao libgl.UnboundVertexArray

// EmptyVertexArray returns a shared vertex array without attributes,
// for draws that generate their vertices in the shader.
func EmptyVertexArray() libgl.UnboundVertexArray {
	if emptyVao == nil {
		emptyVao = libgl.NewVertexArray()
		emptyVao.SetDebugLabel("attributeless")
	}
	return emptyVao
}

// DrawTriangle draws one triangle covering the viewport.
// Positions come from gl_VertexID.
func DrawTriangle() {
	EmptyVertexArray().Bind()
	gl.DrawArrays(gl.TRIANGLES, 0, 3)
}
