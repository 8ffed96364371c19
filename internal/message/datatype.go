package message

import (
	"encoding/binary"
	"fmt"

	binpkg "github.com/robert-malhotra/go-bdv/internal/binary"
)

// DatatypeClass is the class of an HDF5 datatype. Only fixed-point and
// floating-point types are handled.
type DatatypeClass uint8

const (
	ClassFixedPoint DatatypeClass = 0
	ClassFloatPoint DatatypeClass = 1
)

// ByteOrder is the on-disk byte order of a numeric type.
type ByteOrder uint8

const (
	OrderLE ByteOrder = 0
	OrderBE ByteOrder = 1
)

// Datatype is a datatype message (type 0x0003) restricted to the numeric
// classes: little-endian fixed-point and IEEE floating-point.
type Datatype struct {
	Class     DatatypeClass
	Size      uint32
	ByteOrder ByteOrder

	// Fixed-point
	BitOffset    uint16
	BitPrecision uint16
	Signed       bool

	// Floating-point
	SignLocation     uint8
	ExponentLocation uint8
	ExponentSize     uint8
	MantissaLocation uint8
	MantissaSize     uint8
	ExponentBias     uint32
}

func (m *Datatype) Type() Type { return TypeDatatype }

// IsInteger reports whether this is a fixed-point type.
func (m *Datatype) IsInteger() bool { return m.Class == ClassFixedPoint }

// IsFloat reports whether this is a floating-point type.
func (m *Datatype) IsFloat() bool { return m.Class == ClassFloatPoint }

// NewFixedPoint creates a little-endian integer datatype of the given
// byte size.
func NewFixedPoint(size int, signed bool) *Datatype {
	return &Datatype{
		Class:        ClassFixedPoint,
		Size:         uint32(size),
		ByteOrder:    OrderLE,
		BitPrecision: uint16(8 * size),
		Signed:       signed,
	}
}

// NewFloat creates a little-endian IEEE 754 float datatype. Size must be
// 4 or 8.
func NewFloat(size int) *Datatype {
	dt := &Datatype{
		Class:        ClassFloatPoint,
		Size:         uint32(size),
		ByteOrder:    OrderLE,
		BitPrecision: uint16(8 * size),
	}
	switch size {
	case 4:
		dt.SignLocation = 31
		dt.ExponentLocation = 23
		dt.ExponentSize = 8
		dt.MantissaSize = 23
		dt.ExponentBias = 127
	case 8:
		dt.SignLocation = 63
		dt.ExponentLocation = 52
		dt.ExponentSize = 11
		dt.MantissaSize = 52
		dt.ExponentBias = 1023
	}
	return dt
}

func parseDatatype(data []byte) (*Datatype, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("datatype message too short")
	}

	class := DatatypeClass(data[0] & 0x0F)
	classBits := uint32(data[1]) | uint32(data[2])<<8 | uint32(data[3])<<16

	dt := &Datatype{
		Class:     class,
		Size:      binary.LittleEndian.Uint32(data[4:8]),
		ByteOrder: ByteOrder(classBits & 0x01),
	}
	props := data[8:]

	switch class {
	case ClassFixedPoint:
		if len(props) < 4 {
			return nil, fmt.Errorf("fixed-point datatype properties truncated")
		}
		dt.Signed = classBits&0x08 != 0
		dt.BitOffset = binary.LittleEndian.Uint16(props[0:2])
		dt.BitPrecision = binary.LittleEndian.Uint16(props[2:4])

	case ClassFloatPoint:
		if len(props) < 12 {
			return nil, fmt.Errorf("floating-point datatype properties truncated")
		}
		dt.SignLocation = uint8(classBits >> 8)
		dt.BitOffset = binary.LittleEndian.Uint16(props[0:2])
		dt.BitPrecision = binary.LittleEndian.Uint16(props[2:4])
		dt.ExponentLocation = props[4]
		dt.ExponentSize = props[5]
		dt.MantissaLocation = props[6]
		dt.MantissaSize = props[7]
		dt.ExponentBias = binary.LittleEndian.Uint32(props[8:12])

	default:
		return nil, fmt.Errorf("unsupported datatype class %d", class)
	}

	return dt, nil
}

func (m *Datatype) classBits() uint32 {
	switch m.Class {
	case ClassFixedPoint:
		bits := uint32(m.ByteOrder)
		if m.Signed {
			bits |= 0x08
		}
		return bits
	case ClassFloatPoint:
		// Bit 5 marks the sign-location field as meaningful; byte 1
		// holds the sign bit position.
		return uint32(m.ByteOrder) | 1<<5 | uint32(m.SignLocation)<<8
	default:
		return 0
	}
}

// Serialize writes a version 1 datatype message body.
func (m *Datatype) Serialize(w *binpkg.Writer) error {
	bits := m.classBits()
	hdr := []byte{
		uint8(m.Class) | 1<<4,
		uint8(bits), uint8(bits >> 8), uint8(bits >> 16),
	}
	if err := w.WriteBytes(hdr); err != nil {
		return err
	}
	if err := w.WriteUint32(m.Size); err != nil {
		return err
	}

	switch m.Class {
	case ClassFixedPoint:
		if err := w.WriteUint16(m.BitOffset); err != nil {
			return err
		}
		return w.WriteUint16(m.BitPrecision)

	case ClassFloatPoint:
		if err := w.WriteUint16(m.BitOffset); err != nil {
			return err
		}
		if err := w.WriteUint16(m.BitPrecision); err != nil {
			return err
		}
		props := []byte{m.ExponentLocation, m.ExponentSize, m.MantissaLocation, m.MantissaSize}
		if err := w.WriteBytes(props); err != nil {
			return err
		}
		return w.WriteUint32(m.ExponentBias)

	default:
		return fmt.Errorf("unsupported datatype class %d", m.Class)
	}
}

// SerializedSize returns the version 1 message body size.
func (m *Datatype) SerializedSize(w *binpkg.Writer) int {
	switch m.Class {
	case ClassFixedPoint:
		return 8 + 4
	case ClassFloatPoint:
		return 8 + 12
	default:
		return 8
	}
}
