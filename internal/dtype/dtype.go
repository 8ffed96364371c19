// Package dtype maps the numeric sample types supported by this module
// onto HDF5 datatype messages.
package dtype

import (
	"fmt"

	"github.com/robert-malhotra/go-bdv/internal/message"
)

// Kind is the numeric family of a sample type.
type Kind uint8

const (
	KindInt Kind = iota
	KindUint
	KindFloat
)

// Numeric identifies a scalar sample type by family and byte size.
type Numeric struct {
	Kind Kind
	Size int
}

var (
	Int8    = Numeric{KindInt, 1}
	Int16   = Numeric{KindInt, 2}
	Int32   = Numeric{KindInt, 4}
	Int64   = Numeric{KindInt, 8}
	Uint8   = Numeric{KindUint, 1}
	Uint16  = Numeric{KindUint, 2}
	Uint32  = Numeric{KindUint, 4}
	Uint64  = Numeric{KindUint, 8}
	Float32 = Numeric{KindFloat, 4}
	Float64 = Numeric{KindFloat, 8}
)

func (n Numeric) String() string {
	switch n.Kind {
	case KindInt:
		return fmt.Sprintf("int%d", 8*n.Size)
	case KindUint:
		return fmt.Sprintf("uint%d", 8*n.Size)
	case KindFloat:
		return fmt.Sprintf("float%d", 8*n.Size)
	default:
		return fmt.Sprintf("numeric(%d,%d)", n.Kind, n.Size)
	}
}

// Message builds the datatype message for n.
func (n Numeric) Message() (*message.Datatype, error) {
	switch n.Kind {
	case KindInt:
		return message.NewFixedPoint(n.Size, true), nil
	case KindUint:
		return message.NewFixedPoint(n.Size, false), nil
	case KindFloat:
		if n.Size != 4 && n.Size != 8 {
			return nil, fmt.Errorf("unsupported float size %d", n.Size)
		}
		return message.NewFloat(n.Size), nil
	default:
		return nil, fmt.Errorf("unsupported numeric kind %d", n.Kind)
	}
}

// FromMessage recovers the Numeric described by a datatype message.
func FromMessage(dt *message.Datatype) (Numeric, error) {
	switch {
	case dt.IsInteger() && dt.Signed:
		return Numeric{KindInt, int(dt.Size)}, nil
	case dt.IsInteger():
		return Numeric{KindUint, int(dt.Size)}, nil
	case dt.IsFloat():
		return Numeric{KindFloat, int(dt.Size)}, nil
	default:
		return Numeric{}, fmt.Errorf("unsupported datatype class %d", dt.Class)
	}
}
