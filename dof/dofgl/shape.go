package dofgl

import (
	"bokeh-gl/libgl"
	"bokeh-gl/libio"

	"github.com/go-gl/gl/v4.5-core/gl"
)

const placeholderShapeSize = 64

var shapeFormats = [5]struct {
	internal, format uint32
	swizzle          [4]int32
}{
	1: {gl.R8, gl.RED, [4]int32{gl.RED, gl.RED, gl.RED, gl.ONE}},
	2: {gl.RG8, gl.RG, [4]int32{gl.RED, gl.RED, gl.RED, gl.GREEN}},
	3: {gl.RGB8, gl.RGB, [4]int32{gl.RED, gl.GREEN, gl.BLUE, gl.ONE}},
	4: {gl.RGBA8, gl.RGBA, [4]int32{gl.RED, gl.GREEN, gl.BLUE, gl.ALPHA}},
}

// NewShapeTexture uploads a bokeh mask. Gray masks are swizzled so every texture
// samples as rgba. A nil image uploads the built in hexagon.
func NewShapeTexture(img *libio.IntImage) libgl.UnboundTexture {
	if img == nil || img.Channels < 1 || img.Channels > 4 {
		img = libio.PlaceholderShape(placeholderShapeSize)
	}
	f := shapeFormats[img.Channels]

	tex := libgl.NewTexture(gl.TEXTURE_2D)
	tex.SetDebugLabel("bokeh shape")
	tex.Allocate(1, f.internal, img.Width, img.Height)
	// rows of gray and rgb masks are not 4 byte aligned
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	tex.Load(0, img.Width, img.Height, f.format, img.Pix)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 4)
	tex.Swizzle(f.swizzle[0], f.swizzle[1], f.swizzle[2], f.swizzle[3])
	tex.FilterMode(gl.LINEAR, gl.LINEAR)
	tex.WrapMode(gl.CLAMP_TO_EDGE, gl.CLAMP_TO_EDGE)
	return tex
}
