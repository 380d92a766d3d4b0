// Package dof implements a depth of field post effect that renders bright out of focus
// pixels as bokeh sprites.
//
// A frame runs five passes in a fixed order: the bokeh counter is reset, a circle of
// confusion is computed per pixel, bright blurry pixels are moved into a point list,
// the rest of the image is blurred, and the points are splatted additively onto the
// blurred result. This package holds the parameters, the shared math and a software
// implementation. The GPU implementations live in dofgl and dofcl.
package dof

import (
	"errors"
	"fmt"
)

// MaxSamples is the size of the Poisson sample table.
const MaxSamples = 32

var ErrSizeMismatch = errors.New("input size does not match processor size")

type BlurStrategy int

const (
	BlurSeparable BlurStrategy = iota
	BlurPoisson
)

func (s BlurStrategy) String() string {
	switch s {
	case BlurSeparable:
		return "separable"
	case BlurPoisson:
		return "poisson"
	}
	return fmt.Sprintf("BlurStrategy(%d)", int(s))
}

func ParseBlurStrategy(name string) (BlurStrategy, error) {
	switch name {
	case "separable", "":
		return BlurSeparable, nil
	case "poisson":
		return BlurPoisson, nil
	}
	return BlurSeparable, fmt.Errorf("unknown blur strategy %q", name)
}

type Params struct {
	// Distances in view space units. Depth below NearEnd ramps up to full blur at NearStart,
	// depth past FarStart ramps up to full blur at FarEnd.
	NearStart, NearEnd float32
	FarStart, FarEnd   float32
	// In pixels
	MaxCoCRadius   float32
	MaxBokehRadius float32
	// Poisson taps per pixel, clamped to [1, MaxSamples]
	NSamples         int
	LumThreshold     float32
	CoCThreshold     float32
	BokehDepthCutoff float32
	Blur             BlurStrategy
}

func DefaultParams() Params {
	return Params{
		NearStart:        0.01,
		NearEnd:          3.0,
		FarStart:         10.0,
		FarEnd:           20.0,
		MaxCoCRadius:     10.0,
		MaxBokehRadius:   10.0,
		NSamples:         24,
		LumThreshold:     5000.0,
		CoCThreshold:     3.5,
		BokehDepthCutoff: 1.0,
		Blur:             BlurSeparable,
	}
}

// Normalized clamps the parameters into their valid ranges.
func (p Params) Normalized() Params {
	if p.NSamples < 1 {
		p.NSamples = 1
	} else if p.NSamples > MaxSamples {
		p.NSamples = MaxSamples
	}
	if p.MaxCoCRadius < 0 {
		p.MaxCoCRadius = 0
	}
	if p.MaxBokehRadius < 0 {
		p.MaxBokehRadius = 0
	}
	if p.BokehDepthCutoff < 0 {
		p.BokehDepthCutoff = 0
	}
	if p.Blur != BlurPoisson {
		p.Blur = BlurSeparable
	}
	return p
}
