package libio_test

import (
	"bytes"
	"testing"

	"bokeh-gl/libio"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gradient(channels, w, h int) *libio.FloatImage {
	img := libio.NewBlankFloatImage(channels, w, h)
	for i := range img.Pix {
		img.Pix[i] = float32(i%97)*13.5 - 40
	}
	return img
}

func TestFloatImageRoundTrip(t *testing.T) {
	img := gradient(4, 7, 5)
	var buf bytes.Buffer
	require.NoError(t, libio.EncodeFloatImage(&buf, img, libio.FloatImageCompressionNone))

	got, err := libio.DecodeFloatImage(&buf)
	require.NoError(t, err)
	assert.Equal(t, img.Width, got.Width)
	assert.Equal(t, img.Height, got.Height)
	assert.Equal(t, img.Channels, got.Channels)
	assert.Equal(t, img.Pix, got.Pix)
}

func TestFloatImageCompressedRoundTrip(t *testing.T) {
	img := gradient(3, 16, 9)
	var buf bytes.Buffer
	require.NoError(t, libio.EncodeFloatImage(&buf, img, libio.FloatImageCompressionFixedPoint16Lz4))
	assert.Less(t, buf.Len(), len(img.Pix)*4)

	got, err := libio.DecodeFloatImage(&buf)
	require.NoError(t, err)
	// 16 bits over a range of about 1300
	assert.InDeltaSlice(t, img.Pix, got.Pix, 0.05)
}

func TestFloatImageConstantChannel(t *testing.T) {
	img := libio.NewBlankFloatImage(2, 4, 4)
	for i := range img.Pix {
		img.Pix[i] = 3
	}
	var buf bytes.Buffer
	require.NoError(t, libio.EncodeFloatImage(&buf, img, libio.FloatImageCompressionFixedPoint16Lz4))
	got, err := libio.DecodeFloatImage(&buf)
	require.NoError(t, err)
	assert.Equal(t, img.Pix, got.Pix)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := libio.DecodeFloatImage(bytes.NewReader([]byte("definitely not an f32 image file")))
	assert.ErrorIs(t, err, libio.ErrInvalidFormat)

	_, err = libio.DecodeFloatImage(bytes.NewReader([]byte{1, 2, 3}))
	assert.ErrorIs(t, err, libio.ErrInvalidFormat)
}

func TestDecodeTruncatedPixels(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, libio.EncodeFloatImage(&buf, gradient(4, 8, 8), libio.FloatImageCompressionNone))
	data := buf.Bytes()[:buf.Len()-10]

	_, err := libio.DecodeFloatImage(bytes.NewReader(data))
	assert.Error(t, err)
}
