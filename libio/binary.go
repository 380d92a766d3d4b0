package libio

import (
	"encoding/binary"
	"io"
)

// BinaryReader keeps the first error it encounters; every read after that is a no-op.
type BinaryReader struct {
	Order     binary.ByteOrder
	Src       io.Reader
	Index     int
	LastIndex int
	Err       error
	buf       []byte
}

func (br *BinaryReader) Read(p []byte) (n int, err error) {
	return br.Src.Read(p)
}

func (br *BinaryReader) readN(n int) bool {
	if br.Err != nil {
		return false
	}
	if cap(br.buf) < n {
		br.buf = make([]byte, n)
	}
	br.buf = br.buf[:n]

	nread, err := io.ReadFull(br.Src, br.buf)
	br.LastIndex = br.Index
	br.Index += nread
	br.Err = err
	return err == nil
}

func (br *BinaryReader) ReadUInt32(v *uint32) (ok bool) {
	if !br.readN(4) {
		return false
	}
	*v = br.Order.Uint32(br.buf)
	return true
}

func (br *BinaryReader) ReadRef(data any) (ok bool) {
	if br.Err != nil {
		return false
	}
	br.Err = binary.Read(br.Src, br.Order, data)
	br.LastIndex = br.Index
	if br.Err == nil {
		br.Index += binary.Size(data)
	}
	return br.Err == nil
}

type BinaryWriter struct {
	Order binary.ByteOrder
	Dst   io.Writer
	Err   error
	buf   [4]byte
}

func (bw *BinaryWriter) Write(p []byte) (n int, err error) {
	return bw.Dst.Write(p)
}

func (bw *BinaryWriter) WriteBytes(p []byte) (ok bool) {
	if bw.Err != nil {
		return false
	}
	_, bw.Err = bw.Dst.Write(p)
	return bw.Err == nil
}

func (bw *BinaryWriter) WriteUInt32(v uint32) (ok bool) {
	bw.Order.PutUint32(bw.buf[:], v)
	return bw.WriteBytes(bw.buf[:4])
}

func (bw *BinaryWriter) WriteUInt16(v uint16) (ok bool) {
	bw.Order.PutUint16(bw.buf[:], v)
	return bw.WriteBytes(bw.buf[:2])
}

func (bw *BinaryWriter) WriteRef(data any) (ok bool) {
	if bw.Err != nil {
		return false
	}
	bw.Err = binary.Write(bw.Dst, bw.Order, data)
	return bw.Err == nil
}
