// Package hdf5 provides a pure Go reader and writer for the subset of
// HDF5 used by BigDataViewer files: version 2/3 superblocks, version 2
// object headers with hard link messages, and contiguous or fixed-array
// chunked datasets with optional deflate compression.
package hdf5

import "errors"

var (
	ErrNotHDF5     = errors.New("not an HDF5 file")
	ErrNotFound    = errors.New("object not found")
	ErrNotDataset  = errors.New("object is not a dataset")
	ErrNotGroup    = errors.New("object is not a group")
	ErrUnsupported = errors.New("unsupported feature")
	ErrClosed      = errors.New("file is closed")
	ErrReadOnly    = errors.New("file is read-only")
)
