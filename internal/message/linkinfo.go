package message

import (
	"fmt"

	binpkg "github.com/robert-malhotra/go-bdv/internal/binary"
)

// LinkInfo is a link info message (type 0x0002). Groups written by this
// module keep links directly in the object header, so both heap addresses
// stay undefined.
type LinkInfo struct {
	Version         uint8
	Flags           uint8
	FractalHeapAddr uint64
	NameIndexBTree  uint64
}

func (m *LinkInfo) Type() Type { return TypeLinkInfo }

// NewLinkInfo creates a link info message with undefined heap addresses.
func NewLinkInfo() *LinkInfo {
	return &LinkInfo{
		FractalHeapAddr: binpkg.UndefinedOffset64,
		NameIndexBTree:  binpkg.UndefinedOffset64,
	}
}

func parseLinkInfo(data []byte, r *binpkg.Reader) (*LinkInfo, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("link info message too short")
	}
	li := &LinkInfo{Version: data[0], Flags: data[1]}
	offset := 2
	// Maximum creation index (flag bit 0).
	if li.Flags&0x01 != 0 {
		offset += 8
	}
	osize := r.OffsetSize()
	if len(data) < offset+2*osize {
		return nil, fmt.Errorf("link info message truncated")
	}
	li.FractalHeapAddr = binpkg.UintN(data[offset:], osize)
	li.NameIndexBTree = binpkg.UintN(data[offset+osize:], osize)
	return li, nil
}

// Serialize writes a version 0 link info message body.
func (m *LinkInfo) Serialize(w *binpkg.Writer) error {
	if err := w.WriteBytes([]byte{0, 0}); err != nil {
		return err
	}
	if err := w.WriteOffset(w.UndefinedOffset()); err != nil {
		return err
	}
	return w.WriteOffset(w.UndefinedOffset())
}

// SerializedSize returns the version 0 message body size.
func (m *LinkInfo) SerializedSize(w *binpkg.Writer) int {
	return 2 + 2*w.OffsetSize()
}

// GroupInfo is a group info message (type 0x000A) with no optional
// fields.
type GroupInfo struct{}

func (m *GroupInfo) Type() Type { return TypeGroupInfo }

// Serialize writes a version 0 group info message body.
func (m *GroupInfo) Serialize(w *binpkg.Writer) error {
	return w.WriteBytes([]byte{0, 0})
}

// SerializedSize returns the version 0 message body size.
func (m *GroupInfo) SerializedSize(w *binpkg.Writer) int {
	return 2
}
