package n5

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/robert-malhotra/go-bdv/container"
)

// Chunk wire format: uint16 mode, uint16 ndim, ndim*uint32 chunk extents
// (x-fastest), all big-endian, followed by the gzip-compressed sample data.
// Mode 0 is the only one written or accepted; samples are big-endian on the
// wire and little-endian in memory.

const chunkModeDefault = 0

func encodeChunk(size [3]int64, dt container.DataType, data []byte) ([]byte, error) {
	var buf bytes.Buffer
	hdr := make([]byte, 4+3*4)
	binary.BigEndian.PutUint16(hdr[0:], chunkModeDefault)
	binary.BigEndian.PutUint16(hdr[2:], 3)
	rev := container.Reverse3(size)
	for i, d := range rev {
		binary.BigEndian.PutUint32(hdr[4+4*i:], uint32(d))
	}
	buf.Write(hdr)

	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(toBigEndian(data, dt.Size())); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeChunk(raw []byte, dt container.DataType) (size [3]int64, data []byte, err error) {
	if len(raw) < 16 {
		return size, nil, fmt.Errorf("n5: chunk header truncated")
	}
	mode := binary.BigEndian.Uint16(raw[0:])
	ndim := binary.BigEndian.Uint16(raw[2:])
	if mode != chunkModeDefault {
		return size, nil, fmt.Errorf("n5: unsupported chunk mode %d", mode)
	}
	if ndim != 3 {
		return size, nil, fmt.Errorf("n5: expected 3 chunk dimensions, got %d", ndim)
	}
	var rev [3]int64
	for i := range rev {
		rev[i] = int64(binary.BigEndian.Uint32(raw[4+4*i:]))
	}
	size = container.Reverse3(rev)

	zr, err := gzip.NewReader(bytes.NewReader(raw[16:]))
	if err != nil {
		return size, nil, fmt.Errorf("n5: chunk payload: %w", err)
	}
	defer zr.Close()

	want := size[0] * size[1] * size[2] * int64(dt.Size())
	data = make([]byte, want)
	if _, err := io.ReadFull(zr, data); err != nil {
		return size, nil, fmt.Errorf("n5: chunk payload: %w", err)
	}
	return size, toLittleEndian(data, dt.Size()), nil
}

func toBigEndian(data []byte, width int) []byte {
	return swapped(data, width)
}

func toLittleEndian(data []byte, width int) []byte {
	return swapped(data, width)
}

// swapped reverses the byte order of every width-sized sample. width 1
// returns the input unchanged.
func swapped(data []byte, width int) []byte {
	if width == 1 {
		return data
	}
	out := make([]byte, len(data))
	for i := 0; i+width <= len(data); i += width {
		for j := 0; j < width; j++ {
			out[i+j] = data[i+width-1-j]
		}
	}
	return out
}
