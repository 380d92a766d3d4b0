package libio

import (
	"fmt"
	goimg "image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/chewxy/math32"
	"github.com/rs/zerolog"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
)

// DecodeShape reads a bokeh shape image and keeps only the channels it carries:
// gray images become R, gray with alpha RG, opaque color RGB and translucent color RGBA.
// When size > 0 the image is resampled to size x size.
func DecodeShape(r io.Reader, size int) (*IntImage, error) {
	src, _, err := goimg.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("could not decode bokeh shape: %w", err)
	}

	bounds := src.Bounds()
	if bounds.Empty() {
		return nil, fmt.Errorf("bokeh shape is empty")
	}

	channels := detectChannels(src)

	if size > 0 && (bounds.Dx() != size || bounds.Dy() != size) {
		dst := goimg.NewNRGBA(goimg.Rect(0, 0, size, size))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Src, nil)
		src = dst
		bounds = dst.Bounds()
	}

	w, h := bounds.Dx(), bounds.Dy()
	img := NewIntImage(make([]uint8, w*h*channels), channels, w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBAModel.Convert(src.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
			// flipped vertically, the origin is bottom left
			i := img.Index(x, h-y-1)
			switch channels {
			case 1:
				img.Pix[i] = c.R
			case 2:
				img.Pix[i], img.Pix[i+1] = c.R, c.A
			case 3:
				img.Pix[i], img.Pix[i+1], img.Pix[i+2] = c.R, c.G, c.B
			case 4:
				img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
			}
		}
	}
	return img, nil
}

func detectChannels(img goimg.Image) int {
	switch img.(type) {
	case *goimg.Gray, *goimg.Gray16:
		return 1
	case *goimg.YCbCr:
		return 3
	}

	gray, opaque := true, true
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			if c.A != 0xff {
				opaque = false
			}
			if c.R != c.G || c.G != c.B {
				gray = false
			}
		}
	}

	switch {
	case gray && opaque:
		return 1
	case gray:
		return 2
	case opaque:
		return 3
	}
	return 4
}

func LoadShape(path string, size int) (*IntImage, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return DecodeShape(file, size)
}

// LoadShapeOrPlaceholder never fails; a missing or malformed asset is logged and
// replaced by PlaceholderShape.
func LoadShapeOrPlaceholder(path string, size int, log zerolog.Logger) *IntImage {
	if path != "" {
		img, err := LoadShape(path, size)
		if err == nil {
			return img
		}
		log.Warn().Err(err).Str("path", path).Msg("using placeholder bokeh shape")
	}
	if size <= 0 {
		size = 64
	}
	return PlaceholderShape(size)
}

// PlaceholderShape is a filled hexagon with a one pixel anti-aliased edge, single channel.
func PlaceholderShape(size int) *IntImage {
	img := NewIntImage(make([]uint8, size*size), 1, size, size)
	half := float32(size) / 2
	// the hexagon spans the full width, flat edges on top and bottom
	apothem := half * math32.Sqrt(3) / 2
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			px := math32.Abs(float32(x) + 0.5 - half)
			py := math32.Abs(float32(y) + 0.5 - half)
			// distance to the slanted edge and to the flat edge
			d := math32.Max(px*math32.Sqrt(3)/2+py/2, py) - apothem
			coverage := math32.Min(math32.Max(0.5-d, 0), 1)
			img.Pix[img.Index(x, y)] = uint8(coverage*0xff + 0.5)
		}
	}
	return img
}
