package message

import (
	"fmt"

	binpkg "github.com/robert-malhotra/go-bdv/internal/binary"
)

// DataspaceType distinguishes scalar, simple, and null dataspaces.
type DataspaceType uint8

const (
	DataspaceScalar DataspaceType = 0
	DataspaceSimple DataspaceType = 1
	DataspaceNull   DataspaceType = 2
)

// Dataspace is a dataspace message (type 0x0001). Written messages are
// always version 2 simple dataspaces without max dimensions.
type Dataspace struct {
	Version    uint8
	Rank       int
	SpaceType  DataspaceType
	Dimensions []uint64
	MaxDims    []uint64
}

func (m *Dataspace) Type() Type { return TypeDataspace }

// NewSimple creates a simple dataspace over the given dimensions.
func NewSimple(dims []uint64) *Dataspace {
	return &Dataspace{
		Version:    2,
		Rank:       len(dims),
		SpaceType:  DataspaceSimple,
		Dimensions: dims,
	}
}

// NumElements returns the total number of elements in the dataspace.
func (m *Dataspace) NumElements() uint64 {
	switch m.SpaceType {
	case DataspaceNull:
		return 0
	case DataspaceScalar:
		return 1
	default:
		n := uint64(1)
		for _, d := range m.Dimensions {
			n *= d
		}
		return n
	}
}

func parseDataspace(data []byte, r *binpkg.Reader) (*Dataspace, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("dataspace message too short")
	}

	ds := &Dataspace{
		Version: data[0],
		Rank:    int(data[1]),
	}
	flags := data[2]
	hasMaxDims := flags&0x01 != 0

	if ds.Version >= 2 {
		ds.SpaceType = DataspaceType(data[3])
	} else if ds.Rank == 0 {
		ds.SpaceType = DataspaceScalar
	} else {
		ds.SpaceType = DataspaceSimple
	}

	if ds.SpaceType != DataspaceSimple || ds.Rank == 0 {
		return ds, nil
	}

	offset := 4
	if ds.Version == 1 {
		// Version 1 has 4 reserved bytes after the flags.
		offset = 8
	}

	lsize := r.LengthSize()
	ds.Dimensions = make([]uint64, ds.Rank)
	for i := range ds.Dimensions {
		if offset+lsize > len(data) {
			return nil, fmt.Errorf("dataspace message truncated reading dimensions")
		}
		ds.Dimensions[i] = binpkg.UintN(data[offset:], lsize)
		offset += lsize
	}

	if hasMaxDims {
		ds.MaxDims = make([]uint64, ds.Rank)
		for i := range ds.MaxDims {
			if offset+lsize > len(data) {
				return nil, fmt.Errorf("dataspace message truncated reading max dimensions")
			}
			ds.MaxDims[i] = binpkg.UintN(data[offset:], lsize)
			offset += lsize
		}
	}

	return ds, nil
}

// Serialize writes a version 2 dataspace message body.
func (m *Dataspace) Serialize(w *binpkg.Writer) error {
	hdr := []byte{2, uint8(m.Rank), 0, uint8(m.SpaceType)}
	if err := w.WriteBytes(hdr); err != nil {
		return err
	}
	for _, d := range m.Dimensions {
		if err := w.WriteLength(d); err != nil {
			return err
		}
	}
	return nil
}

// SerializedSize returns the version 2 message body size.
func (m *Dataspace) SerializedSize(w *binpkg.Writer) int {
	return 4 + m.Rank*w.LengthSize()
}
