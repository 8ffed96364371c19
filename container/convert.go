package container

import (
	"fmt"
	"math"
)

// CanWiden reports whether every value of from is representable in to.
func CanWiden(from, to DataType) bool {
	if from == to {
		return true
	}
	fb, tb := from.Size()*8, to.Size()*8
	switch {
	case !from.Float() && !to.Float():
		if from.Signed() == to.Signed() {
			return tb >= fb
		}
		// unsigned fits in a strictly wider signed type, never the reverse
		return !from.Signed() && to.Signed() && tb > fb
	case !from.Float() && to.Float():
		// float32 carries 24 mantissa bits, float64 carries 53
		mantissa := 24
		if to == Float64 {
			mantissa = 53
		}
		if from.Signed() {
			fb--
		}
		return fb <= mantissa
	case from.Float() && to.Float():
		return tb >= fb
	}
	// float to integer always loses information
	return false
}

// Convert remaps raw little-endian samples from one type to another.
// Conversions that cannot lose information are always allowed; narrowing
// conversions require clamp and saturate at the target range, truncating
// any fractional part.
func Convert(data []byte, from, to DataType, clamp bool) ([]byte, error) {
	if !from.Valid() || !to.Valid() {
		return nil, fmt.Errorf("container: convert %q to %q: unsupported type", from, to)
	}
	if from == to {
		return data, nil
	}
	if !CanWiden(from, to) && !clamp {
		return nil, fmt.Errorf("container: conversion %s to %s can lose information, clamping not enabled", from, to)
	}
	fw, tw := from.Size(), to.Size()
	if len(data)%fw != 0 {
		return nil, fmt.Errorf("container: %d bytes is not a whole number of %s samples", len(data), from)
	}
	n := len(data) / fw
	lo, hi := valueRange(to)
	out := make([]byte, n*tw)
	for i := 0; i < n; i++ {
		v := GetSample(data[i*fw:], from)
		if !to.Float() {
			v = math.Trunc(v)
			if v < lo {
				v = lo
			} else if v > hi {
				v = hi
			}
		}
		PutSample(out[i*tw:], to, v)
	}
	return out, nil
}

// valueRange returns the representable range of an integer type as float64
// bounds. Float targets return infinite bounds.
func valueRange(dt DataType) (lo, hi float64) {
	switch dt {
	case Uint8:
		return 0, math.MaxUint8
	case Uint16:
		return 0, math.MaxUint16
	case Uint32:
		return 0, math.MaxUint32
	case Uint64:
		// float64(MaxUint64) rounds up to 2^64, which overflows the
		// integer conversion; clamp at the next representable value down
		return 0, math.Nextafter(math.MaxUint64, 0)
	case Int8:
		return math.MinInt8, math.MaxInt8
	case Int16:
		return math.MinInt16, math.MaxInt16
	case Int32:
		return math.MinInt32, math.MaxInt32
	case Int64:
		return math.MinInt64, math.Nextafter(math.MaxInt64, 0)
	}
	return math.Inf(-1), math.Inf(1)
}
