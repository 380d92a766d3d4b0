package dof

import (
	"bokeh-gl/libio"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Shape samples a bokeh shape texture the way the GPU does:
// bilinear filtering, clamped to the edge, rgb premultiplied by alpha.
type Shape struct {
	img *libio.IntImage
}

func NewShape(img *libio.IntImage) Shape {
	if img == nil || img.Count() == 0 {
		img = libio.PlaceholderShape(64)
	}
	return Shape{img: img}
}

func (s Shape) texel(x, y int) mgl32.Vec3 {
	w, h := s.img.Width, s.img.Height
	x = clampInt(x, 0, w-1)
	y = clampInt(y, 0, h-1)
	i := s.img.Index(x, y)
	rgba := libio.ExpandRGBA(s.img.Pix[i : i+s.img.Channels])
	a := float32(rgba[3]) / 0xff
	return mgl32.Vec3{float32(rgba[0]) / 0xff * a, float32(rgba[1]) / 0xff * a, float32(rgba[2]) / 0xff * a}
}

// Sample reads the shape at uv in [0, 1], origin bottom left.
func (s Shape) Sample(u, v float32) mgl32.Vec3 {
	// -0.5 to adjust for the pixel center offset
	u = u*float32(s.img.Width) - 0.5
	v = v*float32(s.img.Height) - 0.5
	u0, v0 := math32.Floor(u), math32.Floor(v)
	fu, fv := u-u0, v-v0
	x, y := int(u0), int(v0)

	bottom := s.texel(x, y).Mul(1 - fu).Add(s.texel(x+1, y).Mul(fu))
	top := s.texel(x, y+1).Mul(1 - fu).Add(s.texel(x+1, y+1).Mul(fu))
	return bottom.Mul(1 - fv).Add(top.Mul(fv))
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
