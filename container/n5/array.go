package n5

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/robert-malhotra/go-bdv/container"
)

// Array is one N5 dataset. Chunk files live at <dir>/<cx>/<cy>/<cz> with the
// x-fastest grid coordinate outermost, per the N5 convention.
type Array struct {
	dir    string
	shape  [3]int64
	chunks [3]int64
	dt     container.DataType
}

func (a *Array) Shape() [3]int64              { return a.shape }
func (a *Array) ChunkShape() [3]int64         { return a.chunks }
func (a *Array) DataType() container.DataType { return a.dt }

// chunkPath returns the chunk file for grid coordinate c in (z, y, x) order.
func (a *Array) chunkPath(c [3]int64) string {
	return filepath.Join(a.dir,
		strconv.FormatInt(c[2], 10),
		strconv.FormatInt(c[1], 10),
		strconv.FormatInt(c[0], 10))
}

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
// and size must equal the chunk extent clipped at the volume boundary.
func (a *Array) WriteBlock(off, size [3]int64, data []byte) error {
	var c [3]int64
	for ax := 0; ax < 3; ax++ {
		if off[ax]%a.chunks[ax] != 0 {
			return fmt.Errorf("n5: write offset %v not on chunk grid %v", off, a.chunks)
		}
		c[ax] = off[ax] / a.chunks[ax]
	}
	if size != a.chunkExtent(c) {
		return fmt.Errorf("n5: write size %v does not match chunk extent %v", size, a.chunkExtent(c))
	}
	if want := size[0] * size[1] * size[2] * int64(a.dt.Size()); int64(len(data)) != want {
		return fmt.Errorf("n5: block data length %d, want %d", len(data), want)
	}

	raw, err := encodeChunk(size, a.dt, data)
	if err != nil {
		return err
	}
	path := a.chunkPath(c)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}

// readChunk returns the decoded chunk at grid coordinate c, or zeros when
// the chunk file does not exist.
func (a *Array) readChunk(c [3]int64) ([3]int64, []byte, error) {
	size := a.chunkExtent(c)
	raw, err := os.ReadFile(a.chunkPath(c))
	if os.IsNotExist(err) {
		return size, make([]byte, size[0]*size[1]*size[2]*int64(a.dt.Size())), nil
	}
	if err != nil {
		return size, nil, err
	}
	got, data, err := decodeChunk(raw, a.dt)
	if err != nil {
		return size, nil, err
	}
	if got != size {
		return size, nil, fmt.Errorf("n5: chunk %v has extent %v, want %v", c, got, size)
	}
	return size, data, nil
}

// ReadBlock assembles an arbitrary region, possibly spanning several chunks.
// Chunks that were never written contribute zeros.
func (a *Array) ReadBlock(off, size [3]int64) ([]byte, error) {
	for ax := 0; ax < 3; ax++ {
		if off[ax] < 0 || size[ax] <= 0 || off[ax]+size[ax] > a.shape[ax] {
			return nil, fmt.Errorf("n5: block [%v +%v) outside shape %v", off, size, a.shape)
		}
	}
	w := int64(a.dt.Size())
	out := make([]byte, size[0]*size[1]*size[2]*w)

	var c [3]int64
	for c[0] = off[0] / a.chunks[0]; c[0]*a.chunks[0] < off[0]+size[0]; c[0]++ {
		for c[1] = off[1] / a.chunks[1]; c[1]*a.chunks[1] < off[1]+size[1]; c[1]++ {
			for c[2] = off[2] / a.chunks[2]; c[2]*a.chunks[2] < off[2]+size[2]; c[2]++ {
				cs, data, err := a.readChunk(c)
				if err != nil {
					return nil, err
				}
				copyIntersection(out, off, size, data, [3]int64{
					c[0] * a.chunks[0], c[1] * a.chunks[1], c[2] * a.chunks[2],
				}, cs, w)
			}
		}
	}
	return out, nil
}

// copyIntersection copies the overlap of a chunk into the output block.
// Both buffers are row-major (z, y, x); w is the sample width in bytes.
func copyIntersection(dst []byte, dstOff, dstSize [3]int64, src []byte, srcOff, srcSize [3]int64, w int64) {
	var lo, hi [3]int64
	for ax := 0; ax < 3; ax++ {
		lo[ax] = max64(dstOff[ax], srcOff[ax])
		hi[ax] = min64(dstOff[ax]+dstSize[ax], srcOff[ax]+srcSize[ax])
		if lo[ax] >= hi[ax] {
			return
		}
	}
	rowLen := (hi[2] - lo[2]) * w
	for z := lo[0]; z < hi[0]; z++ {
		for y := lo[1]; y < hi[1]; y++ {
			di := (((z-dstOff[0])*dstSize[1]+(y-dstOff[1]))*dstSize[2] + (lo[2] - dstOff[2])) * w
			si := (((z-srcOff[0])*srcSize[1]+(y-srcOff[1]))*srcSize[2] + (lo[2] - srcOff[2])) * w
			copy(dst[di:di+rowLen], src[si:si+rowLen])
		}
	}
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
