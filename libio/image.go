package libio

import (
	goimg "image"
	"image/png"
	"io"
	"unsafe"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

type image struct {
	Channels      int
	Width, Height int
}

// Calculates the tuple index into the images data.
//
// Note that the origin (0,0) is in the bottom left, as opposed to Go's top left origin
func (img *image) Index(x, y int) int {
	return x*img.Channels + y*img.Channels*img.Width
}

func (img *image) Count() int {
	return img.Width * img.Height
}

func (img *image) Size() (int, int) {
	return img.Width, img.Height
}

type IntImage struct {
	image
	Pix []uint8
}

func NewIntImage(pix []uint8, channels int, width, height int) *IntImage {
	return &IntImage{
		Pix:   pix,
		image: image{Channels: channels, Width: width, Height: height},
	}
}

func (img *IntImage) Pointer() unsafe.Pointer {
	return unsafe.Pointer(&img.Pix[0])
}

func (img *IntImage) ToRGBA() *goimg.RGBA {
	rgba := goimg.NewRGBA(goimg.Rect(0, 0, img.Width, img.Height))

	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			i := img.Index(x, y)
			// flipped vertically
			j := (x + (img.Height-y-1)*img.Width) * 4
			copy(rgba.Pix[j:j+4], ExpandRGBA(img.Pix[i:i+img.Channels]))
		}
	}

	return rgba
}

// ExpandRGBA widens an R, RG, RGB or RGBA texel to RGBA.
// One channel is luminance, two channels are luminance and alpha.
func ExpandRGBA(texel []uint8) []uint8 {
	switch len(texel) {
	case 1:
		return []uint8{texel[0], texel[0], texel[0], 0xff}
	case 2:
		return []uint8{texel[0], texel[0], texel[0], texel[1]}
	case 3:
		return []uint8{texel[0], texel[1], texel[2], 0xff}
	}
	return texel[:4]
}

type FloatImage struct {
	image
	Pix []float32
}

func NewFloatImage(pix []float32, channels int, width, height int) *FloatImage {
	return &FloatImage{
		Pix:   pix,
		image: image{Channels: channels, Width: width, Height: height},
	}
}

func NewBlankFloatImage(channels int, width, height int) *FloatImage {
	return NewFloatImage(make([]float32, width*height*channels), channels, width, height)
}

func (img *FloatImage) Pointer() unsafe.Pointer {
	return unsafe.Pointer(&img.Pix[0])
}

func (img *FloatImage) Bytes() int {
	return img.Width * img.Height * img.Channels * 4
}

// Vec4 reads the pixel at (x, y); missing channels are 0.
func (img *FloatImage) Vec4(x, y int) mgl32.Vec4 {
	var v mgl32.Vec4
	i := img.Index(x, y)
	copy(v[:], img.Pix[i:i+img.Channels])
	return v
}

func (img *FloatImage) SetVec4(x, y int, v mgl32.Vec4) {
	i := img.Index(x, y)
	copy(img.Pix[i:i+img.Channels], v[:img.Channels])
}

func (img *FloatImage) Clone() *FloatImage {
	pix := make([]float32, len(img.Pix))
	copy(pix, img.Pix)
	return NewFloatImage(pix, img.Channels, img.Width, img.Height)
}

func (img *FloatImage) ToChannels(nr int, defaults ...float32) *FloatImage {
	if nr == img.Channels {
		return img
	}
	defaults = append(defaults, make([]float32, nr)...)

	dst := make([]float32, img.Count()*nr)
	for i := 0; i < img.Count(); i++ {
		for c := 0; c < nr; c++ {
			if c < img.Channels {
				dst[i*nr+c] = img.Pix[i*img.Channels+c]
			} else {
				dst[i*nr+c] = defaults[c]
			}
		}
	}
	return NewFloatImage(dst, nr, img.Width, img.Height)
}

// ToIntImage applies exposure and gamma then quantizes to 8 bits.
// The alpha channel is copied without tone mapping.
func (img *FloatImage) ToIntImage(exposure, gamma float32) *IntImage {
	pix := make([]uint8, len(img.Pix))
	for i, v := range img.Pix {
		if img.Channels == 4 && i%4 == 3 {
			pix[i] = uint8(math32.Min(math32.Max(v, 0), 1)*0xff + 0.5)
			continue
		}
		pix[i] = uint8(tonemap(v, exposure, 1/gamma)*0xff + 0.5)
	}
	return NewIntImage(pix, img.Channels, img.Width, img.Height)
}

func tonemap(value, exposure, invGamma float32) float32 {
	value = 1 - math32.Exp(-math32.Max(value, 0)*exposure)
	return math32.Min(math32.Pow(value, invGamma), 1)
}

func EncodePNG(w io.Writer, img *IntImage) error {
	return png.Encode(w, img.ToRGBA())
}
