package hdf5

import "github.com/robert-malhotra/go-bdv/internal/dtype"

// Numeric identifies a scalar element type by family and byte size.
type Numeric = dtype.Numeric

// Element types usable with CreateDataset.
var (
	Int8    = dtype.Int8
	Int16   = dtype.Int16
	Int32   = dtype.Int32
	Int64   = dtype.Int64
	Uint8   = dtype.Uint8
	Uint16  = dtype.Uint16
	Uint32  = dtype.Uint32
	Uint64  = dtype.Uint64
	Float32 = dtype.Float32
	Float64 = dtype.Float64
)
