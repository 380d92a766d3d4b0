package libio_test

import (
	"bytes"
	goimg "image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"bokeh-gl/libio"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encode(t *testing.T, img goimg.Image) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return &buf
}

func filled(w, h int, c color.NRGBA) *goimg.NRGBA {
	img := goimg.NewNRGBA(goimg.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestDecodeShapeChannels(t *testing.T) {
	tests := []struct {
		name     string
		color    color.NRGBA
		channels int
	}{
		{"gray", color.NRGBA{100, 100, 100, 255}, 1},
		{"gray alpha", color.NRGBA{100, 100, 100, 128}, 2},
		{"rgb", color.NRGBA{200, 100, 50, 255}, 3},
		{"rgba", color.NRGBA{200, 100, 50, 128}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shape, err := libio.DecodeShape(encode(t, filled(6, 4, tt.color)), 0)
			require.NoError(t, err)
			assert.Equal(t, tt.channels, shape.Channels)
			assert.Equal(t, 6, shape.Width)
			assert.Equal(t, 4, shape.Height)
			assert.Len(t, shape.Pix, 6*4*tt.channels)
		})
	}
}

func TestDecodeShapeFlipsRows(t *testing.T) {
	img := goimg.NewGray(goimg.Rect(0, 0, 2, 2))
	img.SetGray(0, 0, color.Gray{Y: 10})
	img.SetGray(0, 1, color.Gray{Y: 200})

	shape, err := libio.DecodeShape(encode(t, img), 0)
	require.NoError(t, err)
	require.Equal(t, 1, shape.Channels)
	// the top row of the file is the last row in memory
	assert.Equal(t, uint8(200), shape.Pix[shape.Index(0, 0)])
	assert.Equal(t, uint8(10), shape.Pix[shape.Index(0, 1)])
}

func TestDecodeShapeResizes(t *testing.T) {
	shape, err := libio.DecodeShape(encode(t, filled(40, 20, color.NRGBA{255, 255, 255, 255})), 16)
	require.NoError(t, err)
	assert.Equal(t, 16, shape.Width)
	assert.Equal(t, 16, shape.Height)
}

func TestDecodeShapeInvalid(t *testing.T) {
	_, err := libio.DecodeShape(bytes.NewReader([]byte("not an image")), 0)
	assert.Error(t, err)
}

func TestLoadShapeOrPlaceholder(t *testing.T) {
	log := zerolog.Nop()

	missing := libio.LoadShapeOrPlaceholder(filepath.Join(t.TempDir(), "missing.png"), 32, log)
	assert.Equal(t, 32, missing.Width)
	assert.Equal(t, 1, missing.Channels)

	path := filepath.Join(t.TempDir(), "shape.png")
	require.NoError(t, os.WriteFile(path, encode(t, filled(8, 8, color.NRGBA{200, 100, 50, 255})).Bytes(), 0644))
	loaded := libio.LoadShapeOrPlaceholder(path, 0, log)
	assert.Equal(t, 8, loaded.Width)
	assert.Equal(t, 3, loaded.Channels)

	assert.Equal(t, 64, libio.LoadShapeOrPlaceholder("", 0, log).Width)
}

func TestPlaceholderShape(t *testing.T) {
	shape := libio.PlaceholderShape(64)
	assert.Equal(t, uint8(255), shape.Pix[shape.Index(32, 32)])
	assert.Equal(t, uint8(0), shape.Pix[shape.Index(0, 0)])
	assert.Equal(t, uint8(0), shape.Pix[shape.Index(63, 63)])
	// flat edges on top and bottom, corners left and right
	assert.Equal(t, uint8(255), shape.Pix[shape.Index(32, 6)])
	assert.Equal(t, uint8(0), shape.Pix[shape.Index(32, 2)])
	assert.Equal(t, uint8(255), shape.Pix[shape.Index(2, 32)])
}
