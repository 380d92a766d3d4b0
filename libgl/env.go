package libgl

import (
	"strings"

	"github.com/go-gl/gl/v4.5-core/gl"
)

var Env *GlEnvironment

type GlEnvironment struct {
	Vendor                     string
	Renderer                   string
	UseIntelTextureBindingFix  bool
	IntelTextureBindingTargets map[uint32]uint32
	Features                   GlFeatures
}

type GlFeatures struct {
	MaxImageUnits          int32
	MaxTextureBufferSize   int32
	MaxGeometryOutputVerts int32
}

const (
	VendorIntel   = "intel"
	VendorNvidia  = "nvidia"
	VendorAmd     = "ati"
	VendorUnknown = "unknown"
)

func GetGlEnv() *GlEnvironment {
	vendor := strings.ToLower(gl.GoStr(gl.GetString(gl.VENDOR)))
	switch {
	case strings.Contains(vendor, "intel"):
		vendor = VendorIntel
	case strings.Contains(vendor, "nvidia"):
		vendor = VendorNvidia
	case strings.Contains(vendor, "ati ") || strings.Contains(vendor, "amd"):
		vendor = VendorAmd
	default:
		vendor = VendorUnknown
	}

	features := GlFeatures{}
	gl.GetIntegerv(gl.MAX_IMAGE_UNITS, &features.MaxImageUnits)
	gl.GetIntegerv(gl.MAX_TEXTURE_BUFFER_SIZE, &features.MaxTextureBufferSize)
	gl.GetIntegerv(gl.MAX_GEOMETRY_OUTPUT_VERTICES, &features.MaxGeometryOutputVerts)

	return &GlEnvironment{
		Vendor:                     vendor,
		Renderer:                   gl.GoStr(gl.GetString(gl.RENDERER)),
		UseIntelTextureBindingFix:  vendor == VendorIntel,
		IntelTextureBindingTargets: map[uint32]uint32{},
		Features:                   features,
	}
}

// Init must run once on the thread owning the current context, after gl.Init.
func Init() {
	Env = GetGlEnv()
	State = NewGlStateManager()
}
