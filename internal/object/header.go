// Package object reads and writes version 2 HDF5 object headers, the
// containers for the header messages that describe groups and datasets.
package object

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-bdv/internal/binary"
	"github.com/robert-malhotra/go-bdv/internal/message"
)

// SignatureV2 marks a version 2 object header.
var SignatureV2 = []byte{'O', 'H', 'D', 'R'}

var (
	ErrInvalidHeader      = errors.New("invalid object header")
	ErrUnsupportedVersion = errors.New("unsupported object header version")
)

/*
Version 2 object header layout:

	0    4    Signature ("OHDR")
	4    1    Version (2)
	5    1    Flags (bits 0-1: width of the chunk#0 size field)
	6    1-8  Size of chunk#0 (messages only, excluding checksum)
	var  var  Header messages
	var  4    Checksum (lookup3)

Each message: type (1) + size (2) + flags (1) + data. Messages larger
than 64 KiB use the extended form 0xFF + type (1) + size (4) + flags (1).
*/

// Header is a parsed object header.
type Header struct {
	Version  uint8
	Address  uint64
	Flags    uint8
	Messages []message.Message

	// ChunkSize is the on-disk size of chunk#0 in bytes, excluding the
	// prefix and checksum. A header can be rewritten in place as long
	// as its messages still fit this chunk.
	ChunkSize int
}

// Read parses a version 2 object header at the given address.
func Read(r *binary.Reader, address uint64) (*Header, error) {
	hr := r.At(int64(address))

	sig, err := hr.ReadBytes(4)
	if err != nil {
		return nil, fmt.Errorf("reading object header: %w", err)
	}
	if !bytes.Equal(sig, SignatureV2) {
		return nil, fmt.Errorf("%w: no OHDR signature at address %d", ErrInvalidHeader, address)
	}

	version, err := hr.ReadUint8()
	if err != nil {
		return nil, err
	}
	if version != 2 {
		return nil, fmt.Errorf("%w: object header version %d", ErrUnsupportedVersion, version)
	}

	flags, err := hr.ReadUint8()
	if err != nil {
		return nil, err
	}

	hdr := &Header{
		Version: 2,
		Address: address,
		Flags:   flags,
	}

	// Optional timestamps (flag bit 5).
	if flags&0x20 != 0 {
		hr.Skip(16)
	}
	// Optional attribute phase change values (flag bit 4).
	if flags&0x10 != 0 {
		hr.Skip(4)
	}

	chunkSize, err := hr.ReadUintN(1 << (flags & 0x03))
	if err != nil {
		return nil, err
	}
	hdr.ChunkSize = int(chunkSize)

	trackOrder := flags&0x04 != 0
	chunkEnd := hr.Pos() + int64(chunkSize)

	for hr.Pos() < chunkEnd {
		msg, err := readV2Message(hr, trackOrder)
		if err != nil {
			return nil, err
		}
		if msg == nil {
			continue
		}
		if cont, ok := msg.(*message.Continuation); ok {
			contMsgs, err := readContinuation(r, cont.Offset, cont.Length, trackOrder)
			if err != nil {
				return nil, err
			}
			hdr.Messages = append(hdr.Messages, contMsgs...)
			continue
		}
		hdr.Messages = append(hdr.Messages, msg)
	}

	return hdr, nil
}

// readContinuation reads messages from an OCHK continuation block.
func readContinuation(r *binary.Reader, offset, length uint64, trackOrder bool) ([]message.Message, error) {
	cr := r.At(int64(offset))

	sig, err := cr.ReadBytes(4)
	if err != nil {
		return nil, err
	}
	if string(sig) != "OCHK" {
		return nil, fmt.Errorf("%w: bad continuation block signature %q", ErrInvalidHeader, sig)
	}

	var messages []message.Message
	chunkEnd := int64(offset) + int64(length) - 4

	for cr.Pos() < chunkEnd {
		msg, err := readV2Message(cr, trackOrder)
		if err != nil {
			return nil, err
		}
		if msg == nil {
			continue
		}
		if cont, ok := msg.(*message.Continuation); ok {
			nested, err := readContinuation(r, cont.Offset, cont.Length, trackOrder)
			if err != nil {
				return nil, err
			}
			messages = append(messages, nested...)
			continue
		}
		messages = append(messages, msg)
	}

	return messages, nil
}

func readV2Message(r *binary.Reader, trackOrder bool) (message.Message, error) {
	first, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}

	var msgType uint8
	var dataSize uint32

	if first == 0xFF {
		if msgType, err = r.ReadUint8(); err != nil {
			return nil, err
		}
		if dataSize, err = r.ReadUint32(); err != nil {
			return nil, err
		}
	} else {
		msgType = first
		size16, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		dataSize = uint32(size16)
	}

	if _, err := r.ReadUint8(); err != nil {
		return nil, err
	}
	if trackOrder {
		r.Skip(2)
	}

	data, err := r.ReadBytes(int(dataSize))
	if err != nil {
		return nil, err
	}

	if msgType == 0 {
		// NIL padding.
		return nil, nil
	}
	return message.Parse(message.Type(msgType), data, r)
}

// GetMessage returns the first message of the given type, or nil.
func (h *Header) GetMessage(typ message.Type) message.Message {
	for _, msg := range h.Messages {
		if msg.Type() == typ {
			return msg
		}
	}
	return nil
}

// GetMessages returns all messages of the given type.
func (h *Header) GetMessages(typ message.Type) []message.Message {
	var result []message.Message
	for _, msg := range h.Messages {
		if msg.Type() == typ {
			result = append(result, msg)
		}
	}
	return result
}

// Dataspace returns the dataspace message if present.
func (h *Header) Dataspace() *message.Dataspace {
	if msg := h.GetMessage(message.TypeDataspace); msg != nil {
		return msg.(*message.Dataspace)
	}
	return nil
}

// Datatype returns the datatype message if present.
func (h *Header) Datatype() *message.Datatype {
	if msg := h.GetMessage(message.TypeDatatype); msg != nil {
		return msg.(*message.Datatype)
	}
	return nil
}

// DataLayout returns the data layout message if present.
func (h *Header) DataLayout() *message.DataLayout {
	if msg := h.GetMessage(message.TypeDataLayout); msg != nil {
		return msg.(*message.DataLayout)
	}
	return nil
}

// FilterPipeline returns the filter pipeline message if present.
func (h *Header) FilterPipeline() *message.FilterPipeline {
	if msg := h.GetMessage(message.TypeFilterPipeline); msg != nil {
		return msg.(*message.FilterPipeline)
	}
	return nil
}
