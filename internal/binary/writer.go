package binary

import (
	"encoding/binary"
	"io"
)

// Writer writes HDF5 binary structures with variable-width offset and
// length fields.
type Writer struct {
	w          io.WriterAt
	order      binary.ByteOrder
	offsetSize int
	lengthSize int
	pos        int64
}

// NewWriter creates a binary writer with the given configuration.
func NewWriter(w io.WriterAt, cfg Config) *Writer {
	return &Writer{
		w:          w,
		order:      cfg.ByteOrder,
		offsetSize: cfg.OffsetSize,
		lengthSize: cfg.LengthSize,
	}
}

// At returns a new writer positioned at the given offset. The new writer
// shares the underlying io.WriterAt but has an independent position.
func (w *Writer) At(offset int64) *Writer {
	nw := *w
	nw.pos = offset
	return &nw
}

// Pos returns the current write position.
func (w *Writer) Pos() int64 {
	return w.pos
}

// WriteBytes writes the given bytes at the current position.
func (w *Writer) WriteBytes(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	n, err := w.w.WriteAt(data, w.pos)
	w.pos += int64(n)
	return err
}

// WriteUint8 writes an unsigned 8-bit integer.
func (w *Writer) WriteUint8(v uint8) error {
	return w.WriteBytes([]byte{v})
}

// WriteUint16 writes an unsigned 16-bit integer.
func (w *Writer) WriteUint16(v uint16) error {
	buf := make([]byte, 2)
	w.order.PutUint16(buf, v)
	return w.WriteBytes(buf)
}

// WriteUint32 writes an unsigned 32-bit integer.
func (w *Writer) WriteUint32(v uint32) error {
	buf := make([]byte, 4)
	w.order.PutUint32(buf, v)
	return w.WriteBytes(buf)
}

// WriteUint64 writes an unsigned 64-bit integer.
func (w *Writer) WriteUint64(v uint64) error {
	buf := make([]byte, 8)
	w.order.PutUint64(buf, v)
	return w.WriteBytes(buf)
}

// WriteUintN writes an unsigned integer of n bytes.
func (w *Writer) WriteUintN(v uint64, n int) error {
	buf := make([]byte, n)
	PutUintN(buf, v, n)
	return w.WriteBytes(buf)
}

// WriteOffset writes a file offset using the configured offset size.
func (w *Writer) WriteOffset(v uint64) error {
	return w.WriteUintN(v, w.offsetSize)
}

// WriteLength writes a length value using the configured length size.
func (w *Writer) WriteLength(v uint64) error {
	return w.WriteUintN(v, w.lengthSize)
}

// WriteZeros writes n zero bytes.
func (w *Writer) WriteZeros(n int) error {
	if n <= 0 {
		return nil
	}
	return w.WriteBytes(make([]byte, n))
}

// UndefinedOffset returns the "undefined" sentinel for the configured
// offset size. HDF5 encodes undefined addresses as all 1-bits.
func (w *Writer) UndefinedOffset() uint64 {
	return undefined(w.offsetSize)
}

// OffsetSize returns the configured offset size in bytes.
func (w *Writer) OffsetSize() int { return w.offsetSize }

// LengthSize returns the configured length size in bytes.
func (w *Writer) LengthSize() int { return w.lengthSize }

// ByteOrder returns the configured byte order.
func (w *Writer) ByteOrder() binary.ByteOrder { return w.order }

// PutUintN encodes a little-endian unsigned integer into the first n bytes
// of buf.
func PutUintN(buf []byte, v uint64, n int) {
	for i := 0; i < n; i++ {
		buf[i] = byte(v >> (8 * i))
	}
}

// UndefinedOffset64 is the undefined-address sentinel for 8-byte offsets.
const UndefinedOffset64 = ^uint64(0)

func undefined(size int) uint64 {
	if size >= 8 {
		return ^uint64(0)
	}
	return uint64(1)<<(size*8) - 1
}

// Buffer is an in-memory io.WriterAt used to assemble checksummed
// structures before they hit the file.
type Buffer struct {
	buf []byte
}

// NewBuffer creates a Buffer with the given initial capacity.
func NewBuffer(size int) *Buffer {
	return &Buffer{buf: make([]byte, size)}
}

// WriteAt implements io.WriterAt, growing the buffer as needed.
func (b *Buffer) WriteAt(p []byte, off int64) (int, error) {
	if end := int(off) + len(p); end > len(b.buf) {
		grown := make([]byte, end)
		copy(grown, b.buf)
		b.buf = grown
	}
	copy(b.buf[off:], p)
	return len(p), nil
}

// Bytes returns the first n bytes of the buffer.
func (b *Buffer) Bytes(n int) []byte {
	return b.buf[:n]
}
