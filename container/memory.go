package container

import "fmt"

// MemArray is an in-memory Array. It backs the conversion source and the
// unit tests; it is not a persistent store.
type MemArray struct {
	shape  [3]int64
	chunks [3]int64
	dt     DataType
	data   []byte
}

// NewMemArray wraps raw little-endian sample bytes as an Array. data may be
// nil, in which case the array starts zero-filled.
func NewMemArray(shape, chunks [3]int64, dt DataType, data []byte) (*MemArray, error) {
	if !dt.Valid() {
		return nil, fmt.Errorf("container: unsupported data type %q", dt)
	}
	want := shape[0] * shape[1] * shape[2] * int64(dt.Size())
	if data == nil {
		data = make([]byte, want)
	}
	if int64(len(data)) != want {
		return nil, fmt.Errorf("container: got %d data bytes, shape %v needs %d", len(data), shape, want)
	}
	for a := 0; a < 3; a++ {
		if shape[a] <= 0 || chunks[a] <= 0 {
			return nil, fmt.Errorf("container: non-positive extent in shape %v chunks %v", shape, chunks)
		}
	}
	return &MemArray{shape: shape, chunks: chunks, dt: dt, data: data}, nil
}

func (a *MemArray) Shape() [3]int64      { return a.shape }
func (a *MemArray) ChunkShape() [3]int64 { return a.chunks }
func (a *MemArray) DataType() DataType   { return a.dt }

// Data exposes the backing bytes.
func (a *MemArray) Data() []byte { return a.data }

func (a *MemArray) checkBounds(off, size [3]int64) error {
	for ax := 0; ax < 3; ax++ {
		if off[ax] < 0 || size[ax] <= 0 || off[ax]+size[ax] > a.shape[ax] {
			return fmt.Errorf("container: block [%v +%v) outside shape %v", off, size, a.shape)
		}
	}
	return nil
}

// ReadBlock copies the requested region out of the volume.
func (a *MemArray) ReadBlock(off, size [3]int64) ([]byte, error) {
	if err := a.checkBounds(off, size); err != nil {
		return nil, err
	}
	w := int64(a.dt.Size())
	out := make([]byte, size[0]*size[1]*size[2]*w)
	rowLen := size[2] * w
	for z := int64(0); z < size[0]; z++ {
		for y := int64(0); y < size[1]; y++ {
			src := (((off[0]+z)*a.shape[1]+off[1]+y)*a.shape[2] + off[2]) * w
			dst := (z*size[1] + y) * rowLen
			copy(out[dst:dst+rowLen], a.data[src:src+rowLen])
		}
	}
	return out, nil
}

// WriteBlock copies a block into the volume.
func (a *MemArray) WriteBlock(off, size [3]int64, data []byte) error {
	if err := a.checkBounds(off, size); err != nil {
		return err
	}
	w := int64(a.dt.Size())
	if int64(len(data)) != size[0]*size[1]*size[2]*w {
		return fmt.Errorf("container: block data length %d does not match size %v", len(data), size)
	}
	rowLen := size[2] * w
	for z := int64(0); z < size[0]; z++ {
		for y := int64(0); y < size[1]; y++ {
			dst := (((off[0]+z)*a.shape[1]+off[1]+y)*a.shape[2] + off[2]) * w
			src := (z*size[1] + y) * rowLen
			copy(a.data[dst:dst+rowLen], data[src:src+rowLen])
		}
	}
	return nil
}
