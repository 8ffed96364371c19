// Package message handles the HDF5 header messages embedded in object
// headers: dataspace, datatype, data layout, filter pipeline, and the
// link messages that form groups. Only the message types this module
// writes are parsed in full; everything else is passed through opaque.
package message

import (
	"fmt"

	"github.com/robert-malhotra/go-bdv/internal/binary"
)

// Type identifies an HDF5 header message type.
type Type uint16

const (
	TypeNIL                      Type = 0x0000
	TypeDataspace                Type = 0x0001
	TypeLinkInfo                 Type = 0x0002
	TypeDatatype                 Type = 0x0003
	TypeFillValueOld             Type = 0x0004
	TypeFillValue                Type = 0x0005
	TypeLink                     Type = 0x0006
	TypeDataLayout               Type = 0x0008
	TypeGroupInfo                Type = 0x000A
	TypeFilterPipeline           Type = 0x000B
	TypeAttribute                Type = 0x000C
	TypeObjectHeaderContinuation Type = 0x0010
	TypeSymbolTable              Type = 0x0011
)

// Message is implemented by all header messages.
type Message interface {
	Type() Type
}

// Parse parses a header message from raw bytes. Unhandled types come back
// wrapped in Unknown.
func Parse(typ Type, data []byte, r *binary.Reader) (Message, error) {
	switch typ {
	case TypeDataspace:
		return parseDataspace(data, r)
	case TypeDatatype:
		return parseDatatype(data)
	case TypeDataLayout:
		return parseDataLayout(data, r)
	case TypeFilterPipeline:
		return parseFilterPipeline(data)
	case TypeLink:
		return parseLink(data, r)
	case TypeLinkInfo:
		return parseLinkInfo(data, r)
	case TypeObjectHeaderContinuation:
		return parseContinuation(data, r)
	default:
		return &Unknown{typ: typ, data: data}, nil
	}
}

// Unknown wraps an unrecognized message type.
type Unknown struct {
	typ  Type
	data []byte
}

func (m *Unknown) Type() Type   { return m.typ }
func (m *Unknown) Data() []byte { return m.data }

// Continuation is an object header continuation message.
type Continuation struct {
	Offset uint64
	Length uint64
}

func (m *Continuation) Type() Type { return TypeObjectHeaderContinuation }

func parseContinuation(data []byte, r *binary.Reader) (*Continuation, error) {
	osize := r.OffsetSize()
	if len(data) < osize+r.LengthSize() {
		return nil, fmt.Errorf("continuation message too short")
	}
	return &Continuation{
		Offset: binary.UintN(data, osize),
		Length: binary.UintN(data[osize:], r.LengthSize()),
	}, nil
}
