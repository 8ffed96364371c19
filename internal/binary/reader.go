// Package binary provides low-level binary I/O for the HDF5 on-disk
// structures: variable-width offsets and lengths, positioned readers and
// writers, and the lookup3 metadata checksum.
package binary

import (
	"encoding/binary"
	"io"
)

// Reader reads HDF5 binary structures with variable-width offset and
// length fields.
type Reader struct {
	r          io.ReaderAt
	order      binary.ByteOrder
	offsetSize int
	lengthSize int
	pos        int64
}

// Config holds offset and length field widths, derived from the superblock.
type Config struct {
	ByteOrder  binary.ByteOrder
	OffsetSize int
	LengthSize int
}

// DefaultConfig returns the configuration used before the superblock has
// been parsed: little-endian, 8-byte offsets and lengths.
func DefaultConfig() Config {
	return Config{
		ByteOrder:  binary.LittleEndian,
		OffsetSize: 8,
		LengthSize: 8,
	}
}

// NewReader creates a binary reader with the given configuration.
func NewReader(r io.ReaderAt, cfg Config) *Reader {
	return &Reader{
		r:          r,
		order:      cfg.ByteOrder,
		offsetSize: cfg.OffsetSize,
		lengthSize: cfg.LengthSize,
	}
}

// At returns a new reader positioned at the given offset. The new reader
// shares the underlying io.ReaderAt but has an independent position.
func (r *Reader) At(offset int64) *Reader {
	nr := *r
	nr.pos = offset
	return &nr
}

// WithSizes returns a new reader with updated offset and length sizes.
func (r *Reader) WithSizes(offsetSize, lengthSize int) *Reader {
	nr := *r
	nr.offsetSize = offsetSize
	nr.lengthSize = lengthSize
	return &nr
}

// Pos returns the current read position.
func (r *Reader) Pos() int64 {
	return r.pos
}

// ReadBytes reads exactly n bytes from the current position.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n <= 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if _, err := r.r.ReadAt(buf, r.pos); err != nil {
		return nil, err
	}
	r.pos += int64(n)
	return buf, nil
}

// ReadUint8 reads an unsigned 8-bit integer.
func (r *Reader) ReadUint8() (uint8, error) {
	buf, err := r.ReadBytes(1)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

// ReadUint16 reads an unsigned 16-bit integer.
func (r *Reader) ReadUint16() (uint16, error) {
	buf, err := r.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return r.order.Uint16(buf), nil
}

// ReadUint32 reads an unsigned 32-bit integer.
func (r *Reader) ReadUint32() (uint32, error) {
	buf, err := r.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return r.order.Uint32(buf), nil
}

// ReadUint64 reads an unsigned 64-bit integer.
func (r *Reader) ReadUint64() (uint64, error) {
	buf, err := r.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return r.order.Uint64(buf), nil
}

// ReadUintN reads an unsigned integer of n bytes.
func (r *Reader) ReadUintN(n int) (uint64, error) {
	buf, err := r.ReadBytes(n)
	if err != nil {
		return 0, err
	}
	return UintN(buf, n), nil
}

// ReadOffset reads a file offset using the configured offset size.
func (r *Reader) ReadOffset() (uint64, error) {
	return r.ReadUintN(r.offsetSize)
}

// ReadLength reads a length value using the configured length size.
func (r *Reader) ReadLength() (uint64, error) {
	return r.ReadUintN(r.lengthSize)
}

// IsUndefinedOffset reports whether offset is the "undefined" sentinel,
// encoded as all 1-bits in the configured offset width.
func (r *Reader) IsUndefinedOffset(offset uint64) bool {
	return offset == undefined(r.offsetSize)
}

// Skip advances the position by n bytes.
func (r *Reader) Skip(n int64) {
	r.pos += n
}

// Peek reads n bytes without advancing the position.
func (r *Reader) Peek(n int) ([]byte, error) {
	if n <= 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if _, err := r.r.ReadAt(buf, r.pos); err != nil {
		return nil, err
	}
	return buf, nil
}

// OffsetSize returns the configured offset size in bytes.
func (r *Reader) OffsetSize() int { return r.offsetSize }

// LengthSize returns the configured length size in bytes.
func (r *Reader) LengthSize() int { return r.lengthSize }

// ByteOrder returns the configured byte order.
func (r *Reader) ByteOrder() binary.ByteOrder { return r.order }

// UintN decodes a little-endian unsigned integer from the first n bytes
// of buf.
func UintN(buf []byte, n int) uint64 {
	var v uint64
	for i := n - 1; i >= 0; i-- {
		v = v<<8 | uint64(buf[i])
	}
	return v
}
