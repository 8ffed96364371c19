package hdf5

import (
	"fmt"

	"github.com/robert-malhotra/go-bdv/internal/dtype"
	"github.com/robert-malhotra/go-bdv/internal/filter"
	"github.com/robert-malhotra/go-bdv/internal/layout"
	"github.com/robert-malhotra/go-bdv/internal/message"
	"github.com/robert-malhotra/go-bdv/internal/object"
)

// Dataset is an HDF5 dataset. Data is read through ReadSlice or Read;
// chunked datasets are written chunk by chunk with WriteChunk and
// contiguous datasets in one piece with Write.
type Dataset struct {
	file      *File
	path      string
	numeric   dtype.Numeric
	dataspace *message.Dataspace
	datatype  *message.Datatype
	layout    *message.DataLayout
	filters   *message.FilterPipeline

	reader layout.Layout

	// Chunked write state. fa is opened lazily on datasets read back
	// from an existing file.
	fa        *layout.FixedArray
	pipeline  *filter.Pipeline
	chunkDims []uint64
	counts    []uint64
}

// newDataset builds a Dataset from a parsed object header.
func newDataset(f *File, path string, header *object.Header) (*Dataset, error) {
	ds := &Dataset{
		file:      f,
		path:      path,
		dataspace: header.Dataspace(),
		datatype:  header.Datatype(),
		layout:    header.DataLayout(),
		filters:   header.FilterPipeline(),
	}
	if ds.dataspace == nil || ds.datatype == nil || ds.layout == nil {
		return nil, ErrNotDataset
	}

	numeric, err := dtype.FromMessage(ds.datatype)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}
	ds.numeric = numeric

	return ds, ds.init()
}

// init builds the read-side layout handler and the chunk geometry.
func (ds *Dataset) init() error {
	reader, err := layout.New(ds.layout, ds.dataspace, ds.datatype, ds.filters, ds.file.reader)
	if err != nil {
		return fmt.Errorf("dataset %s: %w", ds.path, err)
	}
	ds.reader = reader

	if ds.layout.IsChunked() {
		dims := ds.dataspace.Dimensions
		ds.chunkDims = make([]uint64, len(dims))
		for d := range dims {
			ds.chunkDims[d] = uint64(ds.layout.ChunkDims[d])
		}
		ds.counts = chunkGridCounts(dims, ds.chunkDims)

		if ds.pipeline, err = filter.NewPipeline(ds.filters); err != nil {
			return fmt.Errorf("dataset %s: %w", ds.path, err)
		}
	}
	return nil
}

// Path returns the dataset's absolute path.
func (ds *Dataset) Path() string {
	return ds.path
}

// Shape returns the dataset dimensions.
func (ds *Dataset) Shape() []uint64 {
	dims := make([]uint64, len(ds.dataspace.Dimensions))
	copy(dims, ds.dataspace.Dimensions)
	return dims
}

// ChunkShape returns the chunk dimensions, or nil for contiguous
// datasets.
func (ds *Dataset) ChunkShape() []uint64 {
	if ds.chunkDims == nil {
		return nil
	}
	dims := make([]uint64, len(ds.chunkDims))
	copy(dims, ds.chunkDims)
	return dims
}

// Numeric returns the element type.
func (ds *Dataset) Numeric() dtype.Numeric {
	return ds.numeric
}

// NumElements returns the total number of elements.
func (ds *Dataset) NumElements() uint64 {
	return ds.dataspace.NumElements()
}

// Read reads the whole dataset in row-major order. Chunks that were
// never written come back as zeros.
func (ds *Dataset) Read() ([]byte, error) {
	if ds.file.closed {
		return nil, ErrClosed
	}
	return ds.reader.Read()
}

// ReadSlice reads a rectangular selection given by a start coordinate
// and an extent per dimension.
func (ds *Dataset) ReadSlice(start, count []uint64) ([]byte, error) {
	if ds.file.closed {
		return nil, ErrClosed
	}
	return ds.reader.ReadSlice(start, count)
}

// chunkBytes returns the byte size of one full chunk.
func (ds *Dataset) chunkBytes() uint64 {
	size := uint64(ds.numeric.Size)
	for _, c := range ds.chunkDims {
		size *= c
	}
	return size
}

// WriteChunk stores one chunk. offset is the chunk's first element
// coordinate and must be chunk-aligned; data holds the full chunk
// extent, padded at the dataset boundary. Compressed chunks that do not
// shrink are stored raw with the filter marked as skipped.
func (ds *Dataset) WriteChunk(offset []uint64, data []byte) error {
	if ds.file.closed {
		return ErrClosed
	}
	if !ds.file.writable {
		return ErrReadOnly
	}
	if !ds.layout.IsChunked() {
		return fmt.Errorf("dataset %s: %w: chunk write on contiguous storage", ds.path, ErrUnsupported)
	}

	dims := ds.dataspace.Dimensions
	if len(offset) != len(dims) {
		return fmt.Errorf("dataset %s: offset rank %d does not match dataset rank %d", ds.path, len(offset), len(dims))
	}
	coord := make([]uint64, len(offset))
	for d := range offset {
		if offset[d] >= dims[d] {
			return fmt.Errorf("dataset %s: chunk offset %v out of bounds", ds.path, offset)
		}
		if offset[d]%ds.chunkDims[d] != 0 {
			return fmt.Errorf("dataset %s: chunk offset %v not aligned to chunk shape %v", ds.path, offset, ds.chunkDims)
		}
		coord[d] = offset[d] / ds.chunkDims[d]
	}
	if uint64(len(data)) != ds.chunkBytes() {
		return fmt.Errorf("dataset %s: chunk holds %d bytes, want %d", ds.path, len(data), ds.chunkBytes())
	}

	if ds.fa == nil {
		fa, err := layout.OpenFixedArray(ds.file.reader, ds.layout.ChunkIndexAddr)
		if err != nil {
			return fmt.Errorf("dataset %s: opening chunk index: %w", ds.path, err)
		}
		ds.fa = fa
	}

	stored := data
	var filterMask uint32
	if ds.fa.Filtered() {
		encoded, err := ds.pipeline.Encode(data)
		if err != nil {
			return fmt.Errorf("dataset %s: encoding chunk: %w", ds.path, err)
		}
		if len(encoded) < len(data) {
			stored = encoded
		} else {
			// Incompressible chunk, stored raw so the size field
			// never exceeds the raw chunk size.
			filterMask = 1
		}
	}

	addr := ds.file.allocator.Alloc(uint64(len(stored)))
	if err := ds.file.writer.At(int64(addr)).WriteBytes(stored); err != nil {
		return fmt.Errorf("dataset %s: writing chunk: %w", ds.path, err)
	}

	index := layout.ChunkIndexAt(coord, ds.counts)
	entry := layout.Entry{Address: addr, Size: uint64(len(stored)), FilterMask: filterMask}
	if err := ds.fa.SetEntry(ds.file.writer, index, entry); err != nil {
		return fmt.Errorf("dataset %s: updating chunk index: %w", ds.path, err)
	}
	return nil
}

// Write fills a contiguous dataset in one piece. data must hold exactly
// the dataset's storage size.
func (ds *Dataset) Write(data []byte) error {
	if ds.file.closed {
		return ErrClosed
	}
	if !ds.file.writable {
		return ErrReadOnly
	}
	if !ds.layout.IsContiguous() {
		return fmt.Errorf("dataset %s: %w: whole-dataset write on chunked storage", ds.path, ErrUnsupported)
	}
	if uint64(len(data)) != ds.layout.Size {
		return fmt.Errorf("dataset %s: data holds %d bytes, want %d", ds.path, len(data), ds.layout.Size)
	}
	if err := ds.file.writer.At(int64(ds.layout.Address)).WriteBytes(data); err != nil {
		return fmt.Errorf("dataset %s: writing data: %w", ds.path, err)
	}
	return nil
}
