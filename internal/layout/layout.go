// Package layout reads and writes HDF5 dataset storage: contiguous
// blocks and fixed-array indexed chunks.
package layout

import (
	"fmt"

	"github.com/robert-malhotra/go-bdv/internal/binary"
	"github.com/robert-malhotra/go-bdv/internal/message"
)

// Layout reads dataset data from a storage layout.
type Layout interface {
	// Read reads the whole dataset in row-major order. Chunks that
	// were never written come back as zeros.
	Read() ([]byte, error)

	// ReadSlice reads a rectangular selection. start holds the first
	// coordinate per dimension, count the extent per dimension.
	ReadSlice(start, count []uint64) ([]byte, error)

	// Class returns the layout class.
	Class() message.LayoutClass
}

// New creates a Layout from a DataLayout message.
func New(
	layout *message.DataLayout,
	dataspace *message.Dataspace,
	datatype *message.Datatype,
	filterPipeline *message.FilterPipeline,
	reader *binary.Reader,
) (Layout, error) {
	if layout == nil {
		return nil, fmt.Errorf("nil layout message")
	}

	switch layout.Class {
	case message.LayoutContiguous:
		return NewContiguous(layout, dataspace, datatype, reader), nil
	case message.LayoutChunked:
		return NewChunked(layout, dataspace, datatype, filterPipeline, reader)
	default:
		return nil, fmt.Errorf("unsupported layout class %d", layout.Class)
	}
}

func dataSize(dataspace *message.Dataspace, datatype *message.Datatype) uint64 {
	if dataspace == nil || datatype == nil {
		return 0
	}
	return dataspace.NumElements() * uint64(datatype.Size)
}

// rowMajorStrides returns per-dimension byte strides for a row-major
// array with the given dimensions.
func rowMajorStrides(dims []uint64, elementSize uint64) []uint64 {
	strides := make([]uint64, len(dims))
	strides[len(dims)-1] = elementSize
	for d := len(dims) - 2; d >= 0; d-- {
		strides[d] = strides[d+1] * dims[d+1]
	}
	return strides
}

// extractHyperslab copies a rectangular region out of a full row-major
// array.
func extractHyperslab(data []byte, dims, start, count []uint64, elementSize uint64) ([]byte, error) {
	ndims := len(dims)
	if ndims == 0 {
		return nil, fmt.Errorf("cannot extract hyperslab from scalar dataset")
	}

	total := elementSize
	for _, c := range count {
		total *= c
	}
	result := make([]byte, total)

	srcStrides := rowMajorStrides(dims, elementSize)
	dstStrides := rowMajorStrides(count, elementSize)

	var walk func(dim int, srcOff, dstOff uint64)
	walk = func(dim int, srcOff, dstOff uint64) {
		if dim == ndims-1 {
			rowBytes := count[dim] * elementSize
			srcStart := srcOff + start[dim]*srcStrides[dim]
			copy(result[dstOff:dstOff+rowBytes], data[srcStart:srcStart+rowBytes])
			return
		}
		for i := uint64(0); i < count[dim]; i++ {
			walk(dim+1, srcOff+(start[dim]+i)*srcStrides[dim], dstOff+i*dstStrides[dim])
		}
	}
	walk(0, 0, 0)

	return result, nil
}
