package message

import (
	"github.com/robert-malhotra/go-bdv/internal/binary"
)

// Serializable is implemented by messages that can be written back out.
type Serializable interface {
	Message
	// Serialize writes the message body at the writer's position.
	Serialize(w *binary.Writer) error
	// SerializedSize returns the body size in bytes for the writer's
	// offset and length configuration.
	SerializedSize(w *binary.Writer) int
}
