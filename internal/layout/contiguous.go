package layout

import (
	"fmt"

	"github.com/robert-malhotra/go-bdv/internal/binary"
	"github.com/robert-malhotra/go-bdv/internal/message"
)

// Contiguous is the contiguous storage layout: all data in one block.
type Contiguous struct {
	address   uint64
	size      uint64
	dataspace *message.Dataspace
	datatype  *message.Datatype
	reader    *binary.Reader
}

// NewContiguous creates a contiguous layout handler.
func NewContiguous(
	layout *message.DataLayout,
	dataspace *message.Dataspace,
	datatype *message.Datatype,
	reader *binary.Reader,
) *Contiguous {
	size := layout.Size
	if size == 0 {
		size = dataSize(dataspace, datatype)
	}
	return &Contiguous{
		address:   layout.Address,
		size:      size,
		dataspace: dataspace,
		datatype:  datatype,
		reader:    reader,
	}
}

func (c *Contiguous) Class() message.LayoutClass {
	return message.LayoutContiguous
}

// Read reads the whole contiguous block.
func (c *Contiguous) Read() ([]byte, error) {
	if c.reader.IsUndefinedOffset(c.address) {
		return nil, fmt.Errorf("contiguous data not allocated")
	}
	if c.size == 0 {
		return []byte{}, nil
	}
	data, err := c.reader.At(int64(c.address)).ReadBytes(int(c.size))
	if err != nil {
		return nil, fmt.Errorf("reading contiguous data: %w", err)
	}
	return data, nil
}

// ReadSlice reads a rectangular selection from the contiguous block.
func (c *Contiguous) ReadSlice(start, count []uint64) ([]byte, error) {
	data, err := c.Read()
	if err != nil {
		return nil, err
	}
	dims := c.dataspace.Dimensions
	if len(start) != len(dims) || len(count) != len(dims) {
		return nil, fmt.Errorf("selection rank %d does not match dataset rank %d", len(start), len(dims))
	}
	for d := range dims {
		if start[d]+count[d] > dims[d] {
			return nil, fmt.Errorf("selection out of bounds in dimension %d", d)
		}
	}
	return extractHyperslab(data, dims, start, count, uint64(c.datatype.Size))
}

// Address returns the data address.
func (c *Contiguous) Address() uint64 {
	return c.address
}

// Size returns the data size in bytes.
func (c *Contiguous) Size() uint64 {
	return c.size
}
