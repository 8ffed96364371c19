package bdv

import (
	"fmt"

	"github.com/robert-malhotra/go-bdv/container"
)

// Volume is an in-memory 3D image: raw little-endian samples in row-major
// (z, y, x) order.
type Volume struct {
	DType container.DataType
	Shape [3]int64
	Data  []byte
}

// NewVolume wraps raw sample bytes as a volume, validating the data type,
// shape positivity and byte length.
func NewVolume(dt container.DataType, shape [3]int64, data []byte) (*Volume, error) {
	if !dt.Valid() {
		return nil, fmt.Errorf("bdv: unsupported data type %q", dt)
	}
	for a := 0; a < 3; a++ {
		if shape[a] <= 0 {
			return nil, fmt.Errorf("bdv: non-positive volume shape %v", shape)
		}
	}
	if want := shape[0] * shape[1] * shape[2] * int64(dt.Size()); int64(len(data)) != want {
		return nil, fmt.Errorf("bdv: got %d data bytes, shape %v of %s needs %d", len(data), shape, dt, want)
	}
	return &Volume{DType: dt, Shape: shape, Data: data}, nil
}

// VolumeOf builds a volume from a typed sample slice.
func VolumeOf[T container.Sample](shape [3]int64, vals []T) (*Volume, error) {
	return NewVolume(container.TypeOf[T](), shape, container.Bytes(vals))
}

func VolumeFromUint8(shape [3]int64, vals []uint8) (*Volume, error)   { return VolumeOf(shape, vals) }
func VolumeFromUint16(shape [3]int64, vals []uint16) (*Volume, error) { return VolumeOf(shape, vals) }
func VolumeFromUint32(shape [3]int64, vals []uint32) (*Volume, error) { return VolumeOf(shape, vals) }
func VolumeFromUint64(shape [3]int64, vals []uint64) (*Volume, error) { return VolumeOf(shape, vals) }
func VolumeFromInt8(shape [3]int64, vals []int8) (*Volume, error)     { return VolumeOf(shape, vals) }
func VolumeFromInt16(shape [3]int64, vals []int16) (*Volume, error)   { return VolumeOf(shape, vals) }
func VolumeFromInt32(shape [3]int64, vals []int32) (*Volume, error)   { return VolumeOf(shape, vals) }
func VolumeFromInt64(shape [3]int64, vals []int64) (*Volume, error)   { return VolumeOf(shape, vals) }
func VolumeFromFloat32(shape [3]int64, vals []float32) (*Volume, error) {
	return VolumeOf(shape, vals)
}
func VolumeFromFloat64(shape [3]int64, vals []float64) (*Volume, error) {
	return VolumeOf(shape, vals)
}
