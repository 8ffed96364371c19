// Package downsample reduces 3D sample blocks by integer per-axis factors.
package downsample

import (
	"fmt"

	"github.com/robert-malhotra/go-bdv/container"
)

// Mode selects the reduction applied to each factor-sized window.
type Mode int

const (
	// Nearest keeps the first sample of each window.
	Nearest Mode = iota
	// Mean averages the window, truncated back to integer types.
	Mean
	// Max keeps the window maximum.
	Max
	// Min keeps the window minimum.
	Min
)

var modeNames = map[string]Mode{
	"nearest": Nearest,
	"mean":    Mean,
	"max":     Max,
	"min":     Min,
}

func (m Mode) String() string {
	for s, v := range modeNames {
		if v == m {
			return s
		}
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode resolves a mode name. "interpolate" is recognised but not
// supported by this reducer.
func ParseMode(s string) (Mode, error) {
	if m, ok := modeNames[s]; ok {
		return m, nil
	}
	return 0, fmt.Errorf("downsample: unsupported mode %q", s)
}

// OutShape returns the reduced shape: ceil(shape/factor) per axis.
func OutShape(shape, factor [3]int64) [3]int64 {
	var out [3]int64
	for a := 0; a < 3; a++ {
		out[a] = (shape[a] + factor[a] - 1) / factor[a]
	}
	return out
}

// Apply reduces a (z, y, x) row-major block of raw little-endian samples by
// factor. Windows at the high edge cover only the samples that exist, so
// Mean averages over the actual window size there.
func Apply(mode Mode, dt container.DataType, src []byte, shape, factor [3]int64) ([]byte, [3]int64, error) {
	for a := 0; a < 3; a++ {
		if shape[a] <= 0 {
			return nil, [3]int64{}, fmt.Errorf("downsample: non-positive shape %v", shape)
		}
		if factor[a] <= 0 {
			return nil, [3]int64{}, fmt.Errorf("downsample: non-positive factor %v", factor)
		}
	}
	if want := shape[0] * shape[1] * shape[2] * int64(dt.Size()); int64(len(src)) != want {
		return nil, [3]int64{}, fmt.Errorf("downsample: got %d bytes, shape %v of %s needs %d", len(src), shape, dt, want)
	}

	var (
		out []byte
		err error
	)
	switch dt {
	case container.Uint8:
		out, err = reduce[uint8](mode, src, shape, factor)
	case container.Uint16:
		out, err = reduce[uint16](mode, src, shape, factor)
	case container.Uint32:
		out, err = reduce[uint32](mode, src, shape, factor)
	case container.Uint64:
		out, err = reduce[uint64](mode, src, shape, factor)
	case container.Int8:
		out, err = reduce[int8](mode, src, shape, factor)
	case container.Int16:
		out, err = reduce[int16](mode, src, shape, factor)
	case container.Int32:
		out, err = reduce[int32](mode, src, shape, factor)
	case container.Int64:
		out, err = reduce[int64](mode, src, shape, factor)
	case container.Float32:
		out, err = reduce[float32](mode, src, shape, factor)
	case container.Float64:
		out, err = reduce[float64](mode, src, shape, factor)
	default:
		err = fmt.Errorf("downsample: unsupported data type %q", dt)
	}
	if err != nil {
		return nil, [3]int64{}, err
	}
	return out, OutShape(shape, factor), nil
}

func reduce[T container.Sample](mode Mode, src []byte, shape, factor [3]int64) ([]byte, error) {
	vals, err := container.Values[T](src)
	if err != nil {
		return nil, err
	}
	os := OutShape(shape, factor)
	out := make([]T, os[0]*os[1]*os[2])

	at := func(z, y, x int64) T {
		return vals[(z*shape[1]+y)*shape[2]+x]
	}

	var i int
	for oz := int64(0); oz < os[0]; oz++ {
		z0, z1 := window(oz, factor[0], shape[0])
		for oy := int64(0); oy < os[1]; oy++ {
			y0, y1 := window(oy, factor[1], shape[1])
			for ox := int64(0); ox < os[2]; ox++ {
				x0, x1 := window(ox, factor[2], shape[2])
				switch mode {
				case Nearest:
					out[i] = at(z0, y0, x0)
				case Mean:
					var sum float64
					for z := z0; z < z1; z++ {
						for y := y0; y < y1; y++ {
							for x := x0; x < x1; x++ {
								sum += float64(at(z, y, x))
							}
						}
					}
					n := (z1 - z0) * (y1 - y0) * (x1 - x0)
					out[i] = T(sum / float64(n))
				case Max:
					best := at(z0, y0, x0)
					for z := z0; z < z1; z++ {
						for y := y0; y < y1; y++ {
							for x := x0; x < x1; x++ {
								if v := at(z, y, x); v > best {
									best = v
								}
							}
						}
					}
					out[i] = best
				case Min:
					best := at(z0, y0, x0)
					for z := z0; z < z1; z++ {
						for y := y0; y < y1; y++ {
							for x := x0; x < x1; x++ {
								if v := at(z, y, x); v < best {
									best = v
								}
							}
						}
					}
					out[i] = best
				default:
					return nil, fmt.Errorf("downsample: unsupported mode %v", mode)
				}
				i++
			}
		}
	}
	return container.Bytes(out), nil
}

func window(o, f, limit int64) (lo, hi int64) {
	lo = o * f
	hi = lo + f
	if hi > limit {
		hi = limit
	}
	return lo, hi
}
