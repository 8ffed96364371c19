package message

import (
	"fmt"

	binpkg "github.com/robert-malhotra/go-bdv/internal/binary"
)

// LinkType is the link flavor. Only hard links are written or parsed.
type LinkType uint8

const (
	LinkTypeHard LinkType = 0
	LinkTypeSoft LinkType = 1
)

// Link is a link message (type 0x0006). Groups written by this module
// store their members as version 1 hard link messages.
type Link struct {
	Version       uint8
	LinkType      LinkType
	Name          string
	ObjectAddress uint64
}

func (m *Link) Type() Type { return TypeLink }

// NewHardLink creates a hard link to the object header at addr.
func NewHardLink(name string, addr uint64) *Link {
	return &Link{
		Version:       1,
		LinkType:      LinkTypeHard,
		Name:          name,
		ObjectAddress: addr,
	}
}

func parseLink(data []byte, r *binpkg.Reader) (*Link, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("link message too short")
	}

	link := &Link{Version: data[0]}
	flags := data[1]
	offset := 2

	nameLenSize := 1 << (flags & 0x03)

	// Explicit link type (flag bit 3); absent means hard.
	if flags&0x08 != 0 {
		if offset >= len(data) {
			return nil, fmt.Errorf("link type truncated")
		}
		link.LinkType = LinkType(data[offset])
		offset++
	}
	// Creation order (flag bit 2).
	if flags&0x04 != 0 {
		offset += 8
	}
	// Name charset (flag bit 4).
	if flags&0x10 != 0 {
		offset++
	}

	if offset+nameLenSize > len(data) {
		return nil, fmt.Errorf("link name length truncated")
	}
	nameLen := int(binpkg.UintN(data[offset:], nameLenSize))
	offset += nameLenSize

	if offset+nameLen > len(data) {
		return nil, fmt.Errorf("link name truncated")
	}
	link.Name = string(data[offset : offset+nameLen])
	offset += nameLen

	if link.LinkType != LinkTypeHard {
		return nil, fmt.Errorf("unsupported link type %d for %q", link.LinkType, link.Name)
	}
	osize := r.OffsetSize()
	if offset+osize > len(data) {
		return nil, fmt.Errorf("hard link address truncated")
	}
	link.ObjectAddress = binpkg.UintN(data[offset:], osize)

	return link, nil
}

// nameLenBits returns the flag bits selecting the name length field width.
func (m *Link) nameLenBits() uint8 {
	switch {
	case len(m.Name) < 1<<8:
		return 0
	case len(m.Name) < 1<<16:
		return 1
	default:
		return 2
	}
}

// Serialize writes a version 1 hard link message body.
func (m *Link) Serialize(w *binpkg.Writer) error {
	bits := m.nameLenBits()
	if err := w.WriteBytes([]byte{1, bits}); err != nil {
		return err
	}
	if err := w.WriteUintN(uint64(len(m.Name)), 1<<bits); err != nil {
		return err
	}
	if err := w.WriteBytes([]byte(m.Name)); err != nil {
		return err
	}
	return w.WriteOffset(m.ObjectAddress)
}

// SerializedSize returns the version 1 message body size.
func (m *Link) SerializedSize(w *binpkg.Writer) int {
	return 2 + (1 << m.nameLenBits()) + len(m.Name) + w.OffsetSize()
}
