package libio_test

import (
	"bytes"
	"image/png"
	"testing"

	"bokeh-gl/libio"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandRGBA(t *testing.T) {
	assert.Equal(t, []uint8{7, 7, 7, 255}, libio.ExpandRGBA([]uint8{7}))
	assert.Equal(t, []uint8{7, 7, 7, 9}, libio.ExpandRGBA([]uint8{7, 9}))
	assert.Equal(t, []uint8{1, 2, 3, 255}, libio.ExpandRGBA([]uint8{1, 2, 3}))
	assert.Equal(t, []uint8{1, 2, 3, 4}, libio.ExpandRGBA([]uint8{1, 2, 3, 4}))
}

func TestToChannels(t *testing.T) {
	img := libio.NewFloatImage([]float32{1, 2, 3, 4, 5, 6}, 3, 2, 1)

	rgba := img.ToChannels(4, 0, 0, 0, 1)
	assert.Equal(t, []float32{1, 2, 3, 1, 4, 5, 6, 1}, rgba.Pix)

	r := img.ToChannels(1)
	assert.Equal(t, []float32{1, 4}, r.Pix)
	assert.Same(t, img, img.ToChannels(3))
}

func TestToIntImage(t *testing.T) {
	img := libio.NewFloatImage([]float32{0, 1e9, -5, 0.5}, 4, 1, 1)
	ldr := img.ToIntImage(1, 2.2)
	assert.Equal(t, uint8(0), ldr.Pix[0])
	assert.Equal(t, uint8(255), ldr.Pix[1])
	assert.Equal(t, uint8(0), ldr.Pix[2])
	// alpha is copied
	assert.Equal(t, uint8(128), ldr.Pix[3])
}

func TestEncodePNGFlipsRows(t *testing.T) {
	img := libio.NewIntImage([]uint8{10, 200}, 1, 1, 2)
	var buf bytes.Buffer
	require.NoError(t, libio.EncodePNG(&buf, img))

	decoded, err := png.Decode(&buf)
	require.NoError(t, err)
	r, _, _, _ := decoded.At(0, 0).RGBA()
	assert.Equal(t, uint32(200), r>>8)
}

func TestFloatImageVec4(t *testing.T) {
	img := libio.NewBlankFloatImage(2, 3, 3)
	img.SetVec4(1, 2, mgl32.Vec4{5, 6, 7, 8})
	assert.Equal(t, mgl32.Vec4{5, 6, 0, 0}, img.Vec4(1, 2))
	assert.Equal(t, mgl32.Vec4{}, img.Vec4(2, 1))
}
