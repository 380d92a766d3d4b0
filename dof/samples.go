package dof

import "github.com/go-gl/mathgl/mgl32"

// PoissonSamples is a 32 point Halton set on the unit disk.
// A blur with n samples uses the first n entries.
var PoissonSamples = [MaxSamples]mgl32.Vec2{
	{-0.353553, 0.612372},
	{-0.25, -0.433013},
	{0.663414, 0.55667},
	{-0.332232, 0.120922},
	{0.137281, -0.778559},
	{0.106337, 0.603069},
	{-0.879002, -0.319931},
	{0.191511, -0.160697},
	{0.729784, 0.172962},
	{-0.383621, 0.406614},
	{-0.258521, -0.86352},
	{0.258577, 0.34733},
	{-0.82355, 0.0962588},
	{0.261982, -0.607343},
	{-0.0562987, 0.966608},
	{-0.147695, -0.0971404},
	{0.651341, -0.327115},
	{0.47392, 0.238012},
	{-0.738474, 0.485702},
	{-0.0229837, -0.394616},
	{0.320861, 0.74384},
	{-0.633068, -0.0739953},
	{0.568478, -0.763598},
	{-0.0878153, 0.293323},
	{-0.528785, -0.560479},
	{0.570498, -0.13521},
	{0.915797, 0.0711813},
	{-0.264538, 0.385706},
	{-0.365725, -0.76485},
	{0.488794, 0.479406},
	{-0.948199, 0.263949},
	{0.0311802, -0.121049},
}

// SamplePrefix returns the first n samples, n clamped to [1, MaxSamples].
func SamplePrefix(n int) []mgl32.Vec2 {
	if n < 1 {
		n = 1
	} else if n > MaxSamples {
		n = MaxSamples
	}
	return PoissonSamples[:n]
}
