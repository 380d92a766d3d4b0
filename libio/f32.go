package libio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/chewxy/math32"
	"github.com/pierrec/lz4/v4"
)

const MagicNumberF32 = 0x6d16837d

type FloatImageVersion uint32

const (
	F32Version1_001_000 = FloatImageVersion(1_001_000)
)

type FloatImageCompression uint32

const (
	FloatImageCompressionNone = FloatImageCompression(iota)
	FloatImageCompressionFixedPoint16Lz4
)

var ErrInvalidFormat = errors.New("invalid f32 image")

type FloatImageHeader struct {
	Check         uint32
	Version       FloatImageVersion
	Width, Height uint32
	Channels      uint8
	Compression   FloatImageCompression
	Unused        [14]uint8
}

func EncodeFloatImage(w io.Writer, img *FloatImage, compression FloatImageCompression) error {
	bw := &BinaryWriter{Dst: w, Order: binary.LittleEndian}

	header := FloatImageHeader{
		Check:       MagicNumberF32,
		Version:     F32Version1_001_000,
		Width:       uint32(img.Width),
		Height:      uint32(img.Height),
		Channels:    uint8(img.Channels),
		Compression: compression,
	}
	if !bw.WriteRef(header) {
		return fmt.Errorf("could not write f32 header: %w", bw.Err)
	}

	switch compression {
	case FloatImageCompressionNone:
		bw.WriteRef(img.Pix)
	case FloatImageCompressionFixedPoint16Lz4:
		data := compressFixedPoint16(img.Channels, img.Count(), img.Pix)
		lzw := lz4.NewWriter(bw.Dst)
		if err := lzw.Apply(lz4.CompressionLevelOption(lz4.Fast)); err != nil {
			return err
		}
		if _, err := lzw.Write(data); err != nil {
			return fmt.Errorf("could not compress f32 pixels: %w", err)
		}
		if err := lzw.Close(); err != nil {
			return fmt.Errorf("could not compress f32 pixels: %w", err)
		}
	default:
		return fmt.Errorf("%w: unknown compression %d", ErrInvalidFormat, compression)
	}

	if bw.Err != nil {
		return fmt.Errorf("could not write f32 pixels: %w", bw.Err)
	}
	return nil
}

func DecodeFloatImage(r io.Reader) (*FloatImage, error) {
	br := &BinaryReader{Src: r, Order: binary.LittleEndian}

	header := FloatImageHeader{}
	if !br.ReadRef(&header) {
		return nil, fmt.Errorf("%w: expected header at byte 0x%08x: %v", ErrInvalidFormat, br.LastIndex, br.Err)
	}
	if header.Check != MagicNumberF32 {
		return nil, fmt.Errorf("%w: header is corrupt", ErrInvalidFormat)
	}
	if header.Version != F32Version1_001_000 {
		return nil, fmt.Errorf("%w: version %d unsupported", ErrInvalidFormat, header.Version)
	}
	if header.Channels == 0 || header.Channels > 4 {
		return nil, fmt.Errorf("%w: %d channels", ErrInvalidFormat, header.Channels)
	}

	channels := int(header.Channels)
	count := int(header.Width) * int(header.Height)

	var data []float32
	var err error
	switch header.Compression {
	case FloatImageCompressionNone:
		data = make([]float32, count*channels)
		br.ReadRef(data)
		err = br.Err
	case FloatImageCompressionFixedPoint16Lz4:
		buf := make([]byte, channels*(8+count*2))
		if _, err = io.ReadFull(lz4.NewReader(br.Src), buf); err != nil {
			break
		}
		data, err = decompressFixedPoint16(channels, count, buf)
	default:
		err = fmt.Errorf("%w: unknown compression %d", ErrInvalidFormat, header.Compression)
	}
	if err != nil {
		return nil, fmt.Errorf("could not read f32 pixels: %w", err)
	}

	return NewFloatImage(data, channels, int(header.Width), int(header.Height)), nil
}

// Each channel is stored planar as (min, max float32 bits) followed by count uint16 values
// spanning that range.
func compressFixedPoint16(channels int, count int, pix []float32) []byte {
	buf := bytes.NewBuffer(make([]byte, 0, channels*(8+count*2)))
	bw := &BinaryWriter{Order: binary.LittleEndian, Dst: buf}
	for ch := 0; ch < channels; ch++ {
		min, max := math32.Inf(1), math32.Inf(-1)
		for i := 0; i < count; i++ {
			v := pix[i*channels+ch]
			min = math32.Min(min, v)
			max = math32.Max(max, v)
		}
		if count == 0 {
			min, max = 0, 0
		}

		bw.WriteUInt32(math32.Float32bits(min))
		bw.WriteUInt32(math32.Float32bits(max))

		r := max - min
		for i := 0; i < count; i++ {
			var fix uint16
			if r > 0 {
				fix = uint16(math32.Round((pix[i*channels+ch] - min) / r * 0xffff))
			}
			bw.WriteUInt16(fix)
		}
	}
	return buf.Bytes()
}

func decompressFixedPoint16(channels, count int, data []byte) ([]float32, error) {
	result := make([]float32, count*channels)
	br := &BinaryReader{Src: bytes.NewReader(data), Order: binary.LittleEndian}
	fixed := make([]uint16, count)
	for ch := 0; ch < channels; ch++ {
		var imin, imax uint32
		br.ReadUInt32(&imin)
		br.ReadUInt32(&imax)
		br.ReadRef(fixed)
		if br.Err != nil {
			return nil, br.Err
		}

		min := math32.Float32frombits(imin)
		r := math32.Float32frombits(imax) - min
		for i, fix := range fixed {
			result[i*channels+ch] = float32(fix)/0xffff*r + min
		}
	}
	return result, nil
}
