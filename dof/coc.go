package dof

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Rec. 709 luma weights
var luminanceWeights = mgl32.Vec3{0.2126, 0.7152, 0.0722}

// LinearDepth is the distance in front of the camera of a world position.
// Background pixels (w == 0) are pushed to farEnd.
func LinearDepth(view mgl32.Mat4, position mgl32.Vec4, farEnd float32) float32 {
	if position.W() == 0 {
		return farEnd
	}
	return -view.Mul4x1(position.Vec3().Vec4(1)).Z()
}

// CircleOfConfusion maps a linear depth to a blur radius in pixels in [0, MaxCoCRadius].
// The radius is zero between NearEnd and FarStart and grows linearly towards NearStart and FarEnd.
func CircleOfConfusion(depth float32, p Params) float32 {
	near := ramp(p.NearEnd-depth, p.NearEnd-p.NearStart)
	far := ramp(depth-p.FarStart, p.FarEnd-p.FarStart)
	coc := p.MaxCoCRadius * math32.Max(near, far)
	return math32.Min(math32.Max(coc, 0), p.MaxCoCRadius)
}

// ramp is x/span clamped to [0, 1]; an empty span is a step at zero.
func ramp(x, span float32) float32 {
	if !(span > 0) {
		if x > 0 {
			return 1
		}
		return 0
	}
	return math32.Min(math32.Max(x/span, 0), 1)
}

func Luminance(color mgl32.Vec3) float32 {
	return color.Dot(luminanceWeights)
}

// IsBokeh reports whether a pixel is drawn as a sprite instead of being blurred.
func IsBokeh(color mgl32.Vec3, coc float32, p Params) bool {
	return coc > p.CoCThreshold && Luminance(color) > p.LumThreshold
}
