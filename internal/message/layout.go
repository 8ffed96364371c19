package message

import (
	"fmt"

	binpkg "github.com/robert-malhotra/go-bdv/internal/binary"
)

// LayoutClass is the storage layout class.
type LayoutClass uint8

const (
	LayoutCompact    LayoutClass = 0
	LayoutContiguous LayoutClass = 1
	LayoutChunked    LayoutClass = 2
)

// ChunkIndexType is the chunk index flavor of a version 4 chunked layout.
type ChunkIndexType uint8

const (
	ChunkIndexSingleChunk     ChunkIndexType = 1
	ChunkIndexImplicit        ChunkIndexType = 2
	ChunkIndexFixedArray      ChunkIndexType = 3
	ChunkIndexExtensibleArray ChunkIndexType = 4
	ChunkIndexBTreeV2         ChunkIndexType = 5
)

// DataLayout is a data layout message (type 0x0008). Contiguous datasets
// use version 3; chunked datasets use version 4 with a fixed-array index.
type DataLayout struct {
	Version uint8
	Class   LayoutClass

	// Contiguous
	Address uint64
	Size    uint64

	// Chunked. ChunkDims carries the element size as a trailing
	// dimension, per the version 4 encoding.
	ChunkDims          []uint32
	DimensionSizeBytes uint8
	ChunkIndexType     ChunkIndexType
	PageBits           uint8
	ChunkIndexAddr     uint64
}

func (m *DataLayout) Type() Type { return TypeDataLayout }

// IsContiguous reports whether data is stored in one contiguous block.
func (m *DataLayout) IsContiguous() bool { return m.Class == LayoutContiguous }

// IsChunked reports whether data is stored in indexed chunks.
func (m *DataLayout) IsChunked() bool { return m.Class == LayoutChunked }

// NewContiguous creates a version 3 contiguous layout.
func NewContiguous(addr, size uint64) *DataLayout {
	return &DataLayout{
		Version: 3,
		Class:   LayoutContiguous,
		Address: addr,
		Size:    size,
	}
}

// NewChunked creates a version 4 chunked layout with a fixed-array index.
// chunkDims are the chunk extents without the element size; it is
// appended as the trailing dimension here.
func NewChunked(chunkDims []uint32, elementSize uint32, pageBits uint8, indexAddr uint64) *DataLayout {
	dims := make([]uint32, len(chunkDims)+1)
	copy(dims, chunkDims)
	dims[len(chunkDims)] = elementSize
	return &DataLayout{
		Version:            4,
		Class:              LayoutChunked,
		ChunkDims:          dims,
		DimensionSizeBytes: dimFieldSize(dims),
		ChunkIndexType:     ChunkIndexFixedArray,
		PageBits:           pageBits,
		ChunkIndexAddr:     indexAddr,
	}
}

// dimFieldSize returns the smallest field width that holds every
// dimension value.
func dimFieldSize(dims []uint32) uint8 {
	var maxDim uint32
	for _, d := range dims {
		if d > maxDim {
			maxDim = d
		}
	}
	switch {
	case maxDim < 1<<8:
		return 1
	case maxDim < 1<<16:
		return 2
	case maxDim < 1<<24:
		return 3
	default:
		return 4
	}
}

func parseDataLayout(data []byte, r *binpkg.Reader) (*DataLayout, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("data layout message too short")
	}

	layout := &DataLayout{
		Version: data[0],
		Class:   LayoutClass(data[1]),
	}

	switch {
	case layout.Version == 3 && layout.Class == LayoutContiguous:
		osize, lsize := r.OffsetSize(), r.LengthSize()
		if len(data) < 2+osize+lsize {
			return nil, fmt.Errorf("contiguous layout truncated")
		}
		layout.Address = binpkg.UintN(data[2:], osize)
		layout.Size = binpkg.UintN(data[2+osize:], lsize)
		return layout, nil

	case layout.Version == 4 && layout.Class == LayoutChunked:
		return parseChunkedV4(data, r, layout)

	default:
		return nil, fmt.Errorf("unsupported data layout version %d class %d", layout.Version, layout.Class)
	}
}

func parseChunkedV4(data []byte, r *binpkg.Reader, layout *DataLayout) (*DataLayout, error) {
	if len(data) < 5 {
		return nil, fmt.Errorf("chunked layout truncated")
	}
	// data[2] holds the flags; nothing this module writes sets any.
	ndims := int(data[3])
	layout.DimensionSizeBytes = data[4]

	dimSize := int(layout.DimensionSizeBytes)
	offset := 5
	if len(data) < offset+ndims*dimSize+1 {
		return nil, fmt.Errorf("chunked layout dimensions truncated")
	}
	layout.ChunkDims = make([]uint32, ndims)
	for i := range layout.ChunkDims {
		layout.ChunkDims[i] = uint32(binpkg.UintN(data[offset:], dimSize))
		offset += dimSize
	}

	layout.ChunkIndexType = ChunkIndexType(data[offset])
	offset++
	if layout.ChunkIndexType != ChunkIndexFixedArray {
		return nil, fmt.Errorf("unsupported chunk index type %d", layout.ChunkIndexType)
	}
	if len(data) < offset+1+r.OffsetSize() {
		return nil, fmt.Errorf("chunked layout index truncated")
	}
	layout.PageBits = data[offset]
	offset++
	layout.ChunkIndexAddr = binpkg.UintN(data[offset:], r.OffsetSize())

	return layout, nil
}

// Serialize writes the layout message body: version 3 for contiguous,
// version 4 fixed-array for chunked.
func (m *DataLayout) Serialize(w *binpkg.Writer) error {
	switch m.Class {
	case LayoutContiguous:
		if err := w.WriteBytes([]byte{3, uint8(LayoutContiguous)}); err != nil {
			return err
		}
		if err := w.WriteOffset(m.Address); err != nil {
			return err
		}
		return w.WriteLength(m.Size)

	case LayoutChunked:
		hdr := []byte{4, uint8(LayoutChunked), 0, uint8(len(m.ChunkDims)), m.DimensionSizeBytes}
		if err := w.WriteBytes(hdr); err != nil {
			return err
		}
		for _, d := range m.ChunkDims {
			if err := w.WriteUintN(uint64(d), int(m.DimensionSizeBytes)); err != nil {
				return err
			}
		}
		if err := w.WriteBytes([]byte{uint8(ChunkIndexFixedArray), m.PageBits}); err != nil {
			return err
		}
		return w.WriteOffset(m.ChunkIndexAddr)

	default:
		return fmt.Errorf("unsupported layout class %d", m.Class)
	}
}

// SerializedSize returns the message body size.
func (m *DataLayout) SerializedSize(w *binpkg.Writer) int {
	switch m.Class {
	case LayoutContiguous:
		return 2 + w.OffsetSize() + w.LengthSize()
	case LayoutChunked:
		return 5 + len(m.ChunkDims)*int(m.DimensionSizeBytes) + 2 + w.OffsetSize()
	default:
		return 0
	}
}
