// Package filter implements the HDF5 chunk filter pipeline. Encoding
// applies filters in declaration order; decoding runs them in reverse.
// Deflate is the only filter this module writes.
package filter

import (
	"fmt"

	"github.com/robert-malhotra/go-bdv/internal/message"
)

// Filter transforms chunk data between its raw and encoded forms.
type Filter interface {
	// ID returns the filter identifier.
	ID() uint16

	// Encode transforms raw data to its encoded form.
	Encode(input []byte) ([]byte, error)

	// Decode transforms encoded data back to raw form.
	Decode(input []byte) ([]byte, error)
}

// Registry maps filter IDs to constructors taking the filter's client
// data.
var Registry = map[uint16]func([]uint32) Filter{
	message.FilterDeflate: func(cd []uint32) Filter { return NewDeflate(cd) },
}

// New creates a filter from a FilterInfo. Optional filters with no
// implementation come back nil.
func New(info message.FilterInfo) (Filter, error) {
	constructor, ok := Registry[info.ID]
	if !ok {
		if info.IsOptional() {
			return nil, nil
		}
		return nil, fmt.Errorf("unsupported filter ID %d", info.ID)
	}
	return constructor(info.ClientData), nil
}
