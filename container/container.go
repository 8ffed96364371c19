// Package container abstracts the chunked storage backends a BigDataViewer
// dataset can live in. The two implementations, an HDF5 file (container/h5)
// and an N5 directory tree (container/n5), expose the same Array and Store
// surface so the conversion pipeline does not care which one it writes.
//
// All shapes, offsets and chunk shapes at this level are in (z, y, x) order.
// Backends that store axis metadata in (x, y, z) order reverse at their own
// boundary.
package container

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by the storage backends.
var (
	// ErrNotFound signals a missing array, group or attribute.
	ErrNotFound = errors.New("container: not found")

	// ErrExists signals creation of an array that is already present.
	ErrExists = errors.New("container: already exists")

	// ErrConsistency signals a compare-or-write metadata conflict: a prior
	// record exists for the setup and disagrees with the new values.
	ErrConsistency = errors.New("container: metadata inconsistent with prior write")
)

// DataType names a sample type using the N5 spelling, which doubles as the
// dataType attribute value.
type DataType string

const (
	Uint8   DataType = "uint8"
	Uint16  DataType = "uint16"
	Uint32  DataType = "uint32"
	Uint64  DataType = "uint64"
	Int8    DataType = "int8"
	Int16   DataType = "int16"
	Int32   DataType = "int32"
	Int64   DataType = "int64"
	Float32 DataType = "float32"
	Float64 DataType = "float64"
)

// Size returns the sample width in bytes, or 0 for an unknown type.
func (dt DataType) Size() int {
	switch dt {
	case Uint8, Int8:
		return 1
	case Uint16, Int16:
		return 2
	case Uint32, Int32, Float32:
		return 4
	case Uint64, Int64, Float64:
		return 8
	}
	return 0
}

// Valid reports whether dt is one of the supported sample types.
func (dt DataType) Valid() bool { return dt.Size() != 0 }

// Float reports whether dt is a floating-point type.
func (dt DataType) Float() bool { return dt == Float32 || dt == Float64 }

// Signed reports whether dt is a signed integer type.
func (dt DataType) Signed() bool {
	switch dt {
	case Int8, Int16, Int32, Int64:
		return true
	}
	return false
}

// ParseDataType validates a dataType string.
func ParseDataType(s string) (DataType, error) {
	dt := DataType(s)
	if !dt.Valid() {
		return "", fmt.Errorf("container: unsupported data type %q", s)
	}
	return dt, nil
}

// Array is one chunked n-dimensional dataset inside a store. Sample data
// crosses this interface as raw little-endian bytes in row-major (z, y, x)
// order.
type Array interface {
	Shape() [3]int64
	ChunkShape() [3]int64
	DataType() DataType

	// WriteBlock stores size samples at offset off. The block must be
	// chunk-aligned at its low corner and must not cross chunk boundaries.
	WriteBlock(off, size [3]int64, data []byte) error

	// ReadBlock returns the samples in [off, off+size). Regions that were
	// never written read back as zeros.
	ReadBlock(off, size [3]int64) ([]byte, error)
}

// Metadata is the per-setup record a store persists next to the sample data.
// Factors holds the cumulative per-axis scale factor of every pyramid level,
// level 0 first, in (z, y, x) order.
type Metadata struct {
	Resolution [3]float64
	Factors    [][3]int64
	DataType   DataType
	Timepoints []int
}

// Store is one BigDataViewer container. Implementations add the format's
// native metadata layout behind WriteSetupMetadata with compare-or-write
// semantics: rewriting identical metadata is a no-op, rewriting conflicting
// metadata fails with ErrConsistency and leaves the prior record untouched.
type Store interface {
	// DataKey returns the backend's key for one scale level of a setup.
	DataKey(setup, timepoint, level int) string

	CreateArray(key string, shape, chunks [3]int64, dt DataType) (Array, error)
	OpenArray(key string) (Array, error)

	// HasSetup reports whether any data exists for the setup id.
	HasSetup(setup int) (bool, error)

	// RemoveSetup deletes all data and metadata recorded for the setup id.
	RemoveSetup(setup int) error

	WriteSetupMetadata(setup int, md Metadata) error

	Close() error
}

// AllZero reports whether every byte of data is zero. Every supported
// sample type encodes its zero value as all-zero bytes, so this is the
// block emptiness test used to skip writes.
func AllZero(data []byte) bool {
	for _, b := range data {
		if b != 0 {
			return false
		}
	}
	return true
}

// Reverse3 flips a (z, y, x) triple into (x, y, z) order and back.
func Reverse3[T any](v [3]T) [3]T { return [3]T{v[2], v[1], v[0]} }
