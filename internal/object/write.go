package object

import (
	"github.com/robert-malhotra/go-bdv/internal/binary"
	"github.com/robert-malhotra/go-bdv/internal/message"
)

// MinGroupChunkSize is the minimum chunk size used for group object
// headers, leaving room for links to be added without relocating the
// header. Matches what h5py produces.
const MinGroupChunkSize = 120

// WriteHeader writes a version 2 object header at the current writer
// position and returns the bytes written.
func WriteHeader(w *binary.Writer, messages []message.Message) (int64, error) {
	return WriteHeaderWithMinChunk(w, messages, 0)
}

// WriteHeaderWithMinChunk writes a version 2 object header padded with a
// NIL message up to minChunkSize. The chunk size field counts message
// bytes only; the checksum follows the chunk.
func WriteHeaderWithMinChunk(w *binary.Writer, messages []message.Message, minChunkSize int) (int64, error) {
	messagesSize := messagesSize(w, messages)

	chunkSize := messagesSize
	if minChunkSize > 0 && chunkSize < minChunkSize {
		chunkSize = minChunkSize
	}
	paddingSize := chunkSize - messagesSize

	chunkFieldSize := chunkSizeFieldBytes(int64(chunkSize))
	flags := uint8(chunkFieldSize - 1)

	headerSize := 4 + 1 + 1 + chunkFieldSize + chunkSize + 4
	buf := binary.NewBuffer(headerSize)
	bw := binary.NewWriter(buf, binary.Config{
		ByteOrder:  w.ByteOrder(),
		OffsetSize: w.OffsetSize(),
		LengthSize: w.LengthSize(),
	})

	if err := bw.WriteBytes(SignatureV2); err != nil {
		return 0, err
	}
	if err := bw.WriteBytes([]byte{2, flags}); err != nil {
		return 0, err
	}
	if err := bw.WriteUintN(uint64(chunkSize), chunkFieldSize); err != nil {
		return 0, err
	}

	for _, msg := range messages {
		if err := writeV2Message(bw, msg); err != nil {
			return 0, err
		}
	}

	if paddingSize > 0 {
		// NIL message: type (1) + size (2) + flags (1) + zeros.
		nilDataSize := paddingSize - 4
		if nilDataSize < 0 {
			nilDataSize = 0
		}
		if err := bw.WriteUint8(0); err != nil {
			return 0, err
		}
		if err := bw.WriteUint16(uint16(nilDataSize)); err != nil {
			return 0, err
		}
		if err := bw.WriteUint8(0); err != nil {
			return 0, err
		}
		if err := bw.WriteZeros(nilDataSize); err != nil {
			return 0, err
		}
	}

	checksum := binary.Lookup3Checksum(buf.Bytes(int(bw.Pos())))
	if err := bw.WriteUint32(checksum); err != nil {
		return 0, err
	}

	if err := w.WriteBytes(buf.Bytes(int(bw.Pos()))); err != nil {
		return 0, err
	}
	return bw.Pos(), nil
}

// writeV2Message writes one message, using the extended form when the
// body exceeds the 16-bit size field.
func writeV2Message(w *binary.Writer, msg message.Message) error {
	s, ok := msg.(message.Serializable)
	if !ok {
		return nil
	}

	dataSize := s.SerializedSize(w)
	if dataSize > 0xFFFF {
		if err := w.WriteBytes([]byte{0xFF, uint8(msg.Type())}); err != nil {
			return err
		}
		if err := w.WriteUint32(uint32(dataSize)); err != nil {
			return err
		}
	} else {
		if err := w.WriteUint8(uint8(msg.Type())); err != nil {
			return err
		}
		if err := w.WriteUint16(uint16(dataSize)); err != nil {
			return err
		}
	}
	if err := w.WriteUint8(0); err != nil {
		return err
	}
	return s.Serialize(w)
}

func messageHeaderSize(w *binary.Writer, msg message.Message) int {
	s, ok := msg.(message.Serializable)
	if !ok {
		return 0
	}
	if s.SerializedSize(w) > 0xFFFF {
		return 7
	}
	return 4
}

func messagesSize(w *binary.Writer, messages []message.Message) int {
	var size int
	for _, msg := range messages {
		size += messageHeaderSize(w, msg)
		if s, ok := msg.(message.Serializable); ok {
			size += s.SerializedSize(w)
		}
	}
	return size
}

// MessagesSize returns the serialized size of the given messages with
// their per-message headers, before any NIL padding.
func MessagesSize(w *binary.Writer, messages []message.Message) int {
	return messagesSize(w, messages)
}

func chunkSizeFieldBytes(size int64) int {
	switch {
	case size <= 0xFF:
		return 1
	case size <= 0xFFFF:
		return 2
	case size <= 0xFFFFFFFF:
		return 4
	default:
		return 8
	}
}

// HeaderSize returns the total on-disk size of a version 2 object header
// holding the given messages.
func HeaderSize(w *binary.Writer, messages []message.Message) int {
	return HeaderSizeWithMinChunk(w, messages, 0)
}

// HeaderSizeWithMinChunk returns the total on-disk size with NIL padding
// up to minChunkSize.
func HeaderSizeWithMinChunk(w *binary.Writer, messages []message.Message, minChunkSize int) int {
	chunkSize := messagesSize(w, messages)
	if minChunkSize > 0 && chunkSize < minChunkSize {
		chunkSize = minChunkSize
	}
	return 4 + 1 + 1 + chunkSizeFieldBytes(int64(chunkSize)) + chunkSize + 4
}

// GroupMessages assembles the header messages for a group with the given
// links.
func GroupMessages(links []*message.Link) []message.Message {
	messages := make([]message.Message, 0, len(links)+2)
	messages = append(messages, message.NewLinkInfo(), &message.GroupInfo{})
	for _, link := range links {
		messages = append(messages, link)
	}
	return messages
}

// DatasetMessages assembles the header messages for a dataset. The filter
// pipeline may be nil.
func DatasetMessages(dataspace *message.Dataspace, datatype *message.Datatype, layout *message.DataLayout, filters *message.FilterPipeline) []message.Message {
	messages := []message.Message{dataspace, datatype, layout}
	if filters != nil {
		messages = append(messages, filters)
	}
	return messages
}
