package h5

import (
	"fmt"

	"github.com/robert-malhotra/go-bdv/container"
	"github.com/robert-malhotra/go-bdv/hdf5"
)

// Array is one chunked dataset inside the HDF5 file.
type Array struct {
	store  *Store
	ds     *hdf5.Dataset
	shape  [3]int64
	chunks [3]int64
	dt     container.DataType
}

func (a *Array) Shape() [3]int64              { return a.shape }
func (a *Array) ChunkShape() [3]int64         { return a.chunks }
func (a *Array) DataType() container.DataType { return a.dt }

// chunkExtent returns the clipped extent of chunk c.
func (a *Array) chunkExtent(c [3]int64) [3]int64 {
	var size [3]int64
	for ax := 0; ax < 3; ax++ {
		size[ax] = a.chunks[ax]
		if rest := a.shape[ax] - c[ax]*a.chunks[ax]; rest < size[ax] {
			size[ax] = rest
		}
	}
	return size
}

// WriteBlock stores one chunk-aligned block. off must sit on the chunk grid
// and size must equal the chunk extent clipped at the volume boundary. Edge
// blocks are zero-padded to the full chunk extent before the chunk write.
func (a *Array) WriteBlock(off, size [3]int64, data []byte) error {
	var c [3]int64
	for ax := 0; ax < 3; ax++ {
		if off[ax]%a.chunks[ax] != 0 {
			return fmt.Errorf("h5: write offset %v not on chunk grid %v", off, a.chunks)
		}
		c[ax] = off[ax] / a.chunks[ax]
	}
	if size != a.chunkExtent(c) {
		return fmt.Errorf("h5: write size %v does not match chunk extent %v", size, a.chunkExtent(c))
	}
	w := int64(a.dt.Size())
	if want := size[0] * size[1] * size[2] * w; int64(len(data)) != want {
		return fmt.Errorf("h5: block data length %d, want %d", len(data), want)
	}

	if size != a.chunks {
		data = padToChunk(data, size, a.chunks, w)
	}

	a.store.mu.Lock()
	defer a.store.mu.Unlock()
	return a.ds.WriteChunk(dims(off), data)
}

// ReadBlock assembles an arbitrary region, possibly spanning several chunks.
// Chunks that were never written contribute zeros.
func (a *Array) ReadBlock(off, size [3]int64) ([]byte, error) {
	for ax := 0; ax < 3; ax++ {
		if off[ax] < 0 || size[ax] <= 0 || off[ax]+size[ax] > a.shape[ax] {
			return nil, fmt.Errorf("h5: block [%v +%v) outside shape %v", off, size, a.shape)
		}
	}
	a.store.mu.Lock()
	defer a.store.mu.Unlock()
	return a.ds.ReadSlice(dims(off), dims(size))
}

// padToChunk embeds a clipped edge block into a zero-filled full chunk
// buffer, row by row.
func padToChunk(data []byte, size, chunks [3]int64, w int64) []byte {
	out := make([]byte, chunks[0]*chunks[1]*chunks[2]*w)
	rowLen := size[2] * w
	for z := int64(0); z < size[0]; z++ {
		for y := int64(0); y < size[1]; y++ {
			src := ((z*size[1] + y) * size[2]) * w
			dst := ((z*chunks[1] + y) * chunks[2]) * w
			copy(out[dst:dst+rowLen], data[src:src+rowLen])
		}
	}
	return out
}
