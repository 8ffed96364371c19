package layout

import (
	"fmt"

	"github.com/robert-malhotra/go-bdv/internal/binary"
	"github.com/robert-malhotra/go-bdv/internal/filter"
	"github.com/robert-malhotra/go-bdv/internal/message"
)

// Chunked is the chunked storage layout with a fixed-array index.
type Chunked struct {
	layout    *message.DataLayout
	dataspace *message.Dataspace
	datatype  *message.Datatype
	pipeline  *filter.Pipeline
	reader    *binary.Reader
}

// NewChunked creates a chunked layout handler.
func NewChunked(
	layout *message.DataLayout,
	dataspace *message.Dataspace,
	datatype *message.Datatype,
	filterPipeline *message.FilterPipeline,
	reader *binary.Reader,
) (*Chunked, error) {
	pipeline, err := filter.NewPipeline(filterPipeline)
	if err != nil {
		return nil, fmt.Errorf("creating filter pipeline: %w", err)
	}
	return &Chunked{
		layout:    layout,
		dataspace: dataspace,
		datatype:  datatype,
		pipeline:  pipeline,
		reader:    reader,
	}, nil
}

func (c *Chunked) Class() message.LayoutClass {
	return message.LayoutChunked
}

// chunkDims returns the chunk extents without the trailing element size
// dimension.
func (c *Chunked) chunkDims() []uint64 {
	rank := len(c.dataspace.Dimensions)
	dims := make([]uint64, rank)
	for d := 0; d < rank; d++ {
		dims[d] = uint64(c.layout.ChunkDims[d])
	}
	return dims
}

// chunkCounts returns the number of chunks along each dimension.
func chunkCounts(dims, chunkDims []uint64) []uint64 {
	counts := make([]uint64, len(dims))
	for d := range dims {
		counts[d] = (dims[d] + chunkDims[d] - 1) / chunkDims[d]
	}
	return counts
}

// chunkOffsetAt decodes a linear chunk index into the chunk's first
// coordinate. The last dimension varies fastest.
func chunkOffsetAt(index uint64, counts, chunkDims []uint64) []uint64 {
	offset := make([]uint64, len(counts))
	remaining := index
	for d := len(counts) - 1; d >= 0; d-- {
		offset[d] = (remaining % counts[d]) * chunkDims[d]
		remaining /= counts[d]
	}
	return offset
}

// ChunkIndexAt is the inverse of chunkOffsetAt: it encodes a chunk grid
// coordinate as a linear index.
func ChunkIndexAt(coord, counts []uint64) uint64 {
	var index uint64
	for d := 0; d < len(counts); d++ {
		index = index*counts[d] + coord[d]
	}
	return index
}

// Read reads the whole dataset. Unwritten chunks contribute zeros.
func (c *Chunked) Read() ([]byte, error) {
	dims := c.dataspace.Dimensions
	start := make([]uint64, len(dims))
	return c.ReadSlice(start, dims)
}

// ReadSlice reads a rectangular selection, assembling it from every
// chunk that overlaps it.
func (c *Chunked) ReadSlice(start, count []uint64) ([]byte, error) {
	dims := c.dataspace.Dimensions
	ndims := len(dims)
	if len(start) != ndims || len(count) != ndims {
		return nil, fmt.Errorf("selection rank %d does not match dataset rank %d", len(start), ndims)
	}
	for d := 0; d < ndims; d++ {
		if start[d]+count[d] > dims[d] {
			return nil, fmt.Errorf("selection out of bounds in dimension %d", d)
		}
	}

	elementSize := uint64(c.datatype.Size)
	total := elementSize
	for _, cnt := range count {
		total *= cnt
	}
	output := make([]byte, total)

	fa, err := OpenFixedArray(c.reader, c.layout.ChunkIndexAddr)
	if err != nil {
		return nil, fmt.Errorf("opening chunk index: %w", err)
	}

	chunkDims := c.chunkDims()
	counts := chunkCounts(dims, chunkDims)
	chunkBytes := elementSize
	for _, d := range chunkDims {
		chunkBytes *= d
	}

	for i := uint64(0); i < fa.NumEntries(); i++ {
		if !fa.Defined(i) {
			continue
		}
		offset := chunkOffsetAt(i, counts, chunkDims)
		if !overlaps(offset, chunkDims, start, count) {
			continue
		}

		chunkData, err := c.readChunk(fa, i, chunkBytes)
		if err != nil {
			return nil, fmt.Errorf("chunk at %v: %w", offset, err)
		}
		copyOverlap(output, start, count, chunkData, offset, chunkDims, dims, elementSize)
	}

	return output, nil
}

// readChunk reads and decodes the chunk stored in slot i. Chunks are
// stored at their full (padded) extent.
func (c *Chunked) readChunk(fa *FixedArray, i uint64, chunkBytes uint64) ([]byte, error) {
	e := fa.Entry(i)
	size := e.Size
	if !fa.Filtered() {
		size = chunkBytes
	}

	data, err := c.reader.At(int64(e.Address)).ReadBytes(int(size))
	if err != nil {
		return nil, err
	}
	if fa.Filtered() {
		if data, err = c.pipeline.Decode(data, e.FilterMask); err != nil {
			return nil, err
		}
	}
	if uint64(len(data)) < chunkBytes {
		return nil, fmt.Errorf("chunk holds %d bytes, want %d", len(data), chunkBytes)
	}
	return data, nil
}

// overlaps reports whether the chunk at offset intersects the selection.
func overlaps(chunkOffset, chunkDims, selStart, selCount []uint64) bool {
	for d := range chunkOffset {
		if chunkOffset[d]+chunkDims[d] <= selStart[d] || chunkOffset[d] >= selStart[d]+selCount[d] {
			return false
		}
	}
	return true
}

// copyOverlap copies the intersection of a chunk and the selection into
// the selection's output buffer. The chunk buffer has the full chunk
// extent; dims clips the valid region at the dataset boundary.
func copyOverlap(output []byte, selStart, selCount []uint64, chunkData []byte, chunkOffset, chunkDims, dims []uint64, elementSize uint64) {
	ndims := len(dims)

	lo := make([]uint64, ndims)
	hi := make([]uint64, ndims)
	for d := 0; d < ndims; d++ {
		lo[d] = maxU64(selStart[d], chunkOffset[d])
		hi[d] = minU64(selStart[d]+selCount[d], minU64(chunkOffset[d]+chunkDims[d], dims[d]))
		if lo[d] >= hi[d] {
			return
		}
	}

	chunkStrides := rowMajorStrides(chunkDims, elementSize)
	outputStrides := rowMajorStrides(selCount, elementSize)

	var walk func(dim int, chunkOff, outOff uint64)
	walk = func(dim int, chunkOff, outOff uint64) {
		if dim == ndims-1 {
			rowBytes := (hi[dim] - lo[dim]) * elementSize
			src := chunkOff + (lo[dim]-chunkOffset[dim])*chunkStrides[dim]
			dst := outOff + (lo[dim]-selStart[dim])*outputStrides[dim]
			copy(output[dst:dst+rowBytes], chunkData[src:src+rowBytes])
			return
		}
		for i := lo[dim]; i < hi[dim]; i++ {
			walk(dim+1,
				chunkOff+(i-chunkOffset[dim])*chunkStrides[dim],
				outOff+(i-selStart[dim])*outputStrides[dim])
		}
	}
	walk(0, 0, 0)
}

func maxU64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

func minU64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
