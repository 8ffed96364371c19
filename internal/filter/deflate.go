package filter

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"

	"github.com/robert-malhotra/go-bdv/internal/message"
)

// Deflate implements the DEFLATE filter using zlib framing, matching the
// HDF5 library's H5Z_FILTER_DEFLATE.
type Deflate struct {
	level int
}

// NewDeflate creates a DEFLATE filter. Client data slot 0 holds the
// compression level.
func NewDeflate(clientData []uint32) *Deflate {
	level := zlib.DefaultCompression
	if len(clientData) > 0 {
		level = int(clientData[0])
	}
	return &Deflate{level: level}
}

func (f *Deflate) ID() uint16 {
	return message.FilterDeflate
}

func (f *Deflate) Encode(input []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, f.level)
	if err != nil {
		return nil, fmt.Errorf("zlib writer: %w", err)
	}
	if _, err := zw.Write(input); err != nil {
		return nil, fmt.Errorf("zlib compress: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zlib compress: %w", err)
	}
	return buf.Bytes(), nil
}

func (f *Deflate) Decode(input []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(input))
	if err != nil {
		return nil, fmt.Errorf("zlib reader: %w", err)
	}
	defer zr.Close()

	output, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("zlib decompress: %w", err)
	}
	return output, nil
}
