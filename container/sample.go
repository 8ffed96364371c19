package container

import (
	"encoding/binary"
	"fmt"
	"math"

	"golang.org/x/exp/constraints"
)

// Sample bounds the Go types a voxel can hold.
type Sample interface {
	constraints.Integer | constraints.Float
}

// TypeOf maps a Go sample type to its DataType name.
func TypeOf[T Sample]() DataType {
	var z T
	switch any(z).(type) {
	case uint8:
		return Uint8
	case uint16:
		return Uint16
	case uint32:
		return Uint32
	case uint64:
		return Uint64
	case int8:
		return Int8
	case int16:
		return Int16
	case int32:
		return Int32
	case int64:
		return Int64
	case float32:
		return Float32
	case float64:
		return Float64
	}
	return ""
}

// Bytes encodes a sample slice as little-endian bytes.
func Bytes[T Sample](vals []T) []byte {
	switch v := any(vals).(type) {
	case []uint8:
		return append([]byte(nil), v...)
	case []int8:
		out := make([]byte, len(v))
		for i, x := range v {
			out[i] = byte(x)
		}
		return out
	case []uint16:
		out := make([]byte, 2*len(v))
		for i, x := range v {
			binary.LittleEndian.PutUint16(out[2*i:], x)
		}
		return out
	case []int16:
		out := make([]byte, 2*len(v))
		for i, x := range v {
			binary.LittleEndian.PutUint16(out[2*i:], uint16(x))
		}
		return out
	case []uint32:
		out := make([]byte, 4*len(v))
		for i, x := range v {
			binary.LittleEndian.PutUint32(out[4*i:], x)
		}
		return out
	case []int32:
		out := make([]byte, 4*len(v))
		for i, x := range v {
			binary.LittleEndian.PutUint32(out[4*i:], uint32(x))
		}
		return out
	case []uint64:
		out := make([]byte, 8*len(v))
		for i, x := range v {
			binary.LittleEndian.PutUint64(out[8*i:], x)
		}
		return out
	case []int64:
		out := make([]byte, 8*len(v))
		for i, x := range v {
			binary.LittleEndian.PutUint64(out[8*i:], uint64(x))
		}
		return out
	case []float32:
		out := make([]byte, 4*len(v))
		for i, x := range v {
			binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(x))
		}
		return out
	case []float64:
		out := make([]byte, 8*len(v))
		for i, x := range v {
			binary.LittleEndian.PutUint64(out[8*i:], math.Float64bits(x))
		}
		return out
	}
	return nil
}

// Values decodes little-endian bytes back into a sample slice. The byte
// length must be a multiple of the sample width.
func Values[T Sample](data []byte) ([]T, error) {
	dt := TypeOf[T]()
	w := dt.Size()
	if len(data)%w != 0 {
		return nil, fmt.Errorf("container: %d bytes is not a whole number of %s samples", len(data), dt)
	}
	out := make([]T, len(data)/w)
	switch v := any(out).(type) {
	case []uint8:
		copy(v, data)
	case []int8:
		for i := range v {
			v[i] = int8(data[i])
		}
	case []uint16:
		for i := range v {
			v[i] = binary.LittleEndian.Uint16(data[2*i:])
		}
	case []int16:
		for i := range v {
			v[i] = int16(binary.LittleEndian.Uint16(data[2*i:]))
		}
	case []uint32:
		for i := range v {
			v[i] = binary.LittleEndian.Uint32(data[4*i:])
		}
	case []int32:
		for i := range v {
			v[i] = int32(binary.LittleEndian.Uint32(data[4*i:]))
		}
	case []uint64:
		for i := range v {
			v[i] = binary.LittleEndian.Uint64(data[8*i:])
		}
	case []int64:
		for i := range v {
			v[i] = int64(binary.LittleEndian.Uint64(data[8*i:]))
		}
	case []float32:
		for i := range v {
			v[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
		}
	case []float64:
		for i := range v {
			v[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[8*i:]))
		}
	}
	return out, nil
}

// GetSample reads one sample at the start of src, widened to float64.
func GetSample(src []byte, dt DataType) float64 {
	switch dt {
	case Uint8:
		return float64(src[0])
	case Int8:
		return float64(int8(src[0]))
	case Uint16:
		return float64(binary.LittleEndian.Uint16(src))
	case Int16:
		return float64(int16(binary.LittleEndian.Uint16(src)))
	case Uint32:
		return float64(binary.LittleEndian.Uint32(src))
	case Int32:
		return float64(int32(binary.LittleEndian.Uint32(src)))
	case Uint64:
		return float64(binary.LittleEndian.Uint64(src))
	case Int64:
		return float64(int64(binary.LittleEndian.Uint64(src)))
	case Float32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(src)))
	case Float64:
		return math.Float64frombits(binary.LittleEndian.Uint64(src))
	}
	return 0
}

// PutSample writes one sample, narrowing from float64, at the start of dst.
func PutSample(dst []byte, dt DataType, v float64) {
	switch dt {
	case Uint8:
		dst[0] = uint8(v)
	case Int8:
		dst[0] = byte(int8(v))
	case Uint16:
		binary.LittleEndian.PutUint16(dst, uint16(v))
	case Int16:
		binary.LittleEndian.PutUint16(dst, uint16(int16(v)))
	case Uint32:
		binary.LittleEndian.PutUint32(dst, uint32(v))
	case Int32:
		binary.LittleEndian.PutUint32(dst, uint32(int32(v)))
	case Uint64:
		binary.LittleEndian.PutUint64(dst, uint64(v))
	case Int64:
		binary.LittleEndian.PutUint64(dst, uint64(int64(v)))
	case Float32:
		binary.LittleEndian.PutUint32(dst, math.Float32bits(float32(v)))
	case Float64:
		binary.LittleEndian.PutUint64(dst, math.Float64bits(v))
	}
}
