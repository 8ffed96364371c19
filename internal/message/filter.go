package message

import (
	"encoding/binary"
	"fmt"

	binpkg "github.com/robert-malhotra/go-bdv/internal/binary"
)

// Filter identifiers.
const (
	FilterDeflate    uint16 = 1
	FilterShuffle    uint16 = 2
	FilterFletcher32 uint16 = 3
)

// FilterInfo describes one filter in the pipeline.
type FilterInfo struct {
	ID         uint16
	Flags      uint16
	Name       string
	ClientData []uint32
}

// IsOptional reports whether the filter may be skipped on failure.
func (f *FilterInfo) IsOptional() bool {
	return f.Flags&0x01 != 0
}

// FilterPipeline is a filter pipeline message (type 0x000B). Written
// pipelines are version 2 and carry only the deflate filter.
type FilterPipeline struct {
	Version uint8
	Filters []FilterInfo
}

func (m *FilterPipeline) Type() Type { return TypeFilterPipeline }

// NewDeflatePipeline creates a pipeline with a single deflate filter at
// the given compression level.
func NewDeflatePipeline(level int) *FilterPipeline {
	return &FilterPipeline{
		Version: 2,
		Filters: []FilterInfo{{
			ID:         FilterDeflate,
			ClientData: []uint32{uint32(level)},
		}},
	}
}

// HasFilter reports whether the pipeline contains the given filter ID.
func (m *FilterPipeline) HasFilter(id uint16) bool {
	for _, f := range m.Filters {
		if f.ID == id {
			return true
		}
	}
	return false
}

func parseFilterPipeline(data []byte) (*FilterPipeline, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("filter pipeline message too short")
	}

	fp := &FilterPipeline{
		Version: data[0],
		Filters: make([]FilterInfo, data[1]),
	}

	offset := 2
	if fp.Version == 1 {
		// Version 1 has 6 reserved bytes after the count.
		offset = 8
	}

	for i := range fp.Filters {
		filter, consumed, err := parseFilterInfo(data[offset:], fp.Version)
		if err != nil {
			return nil, fmt.Errorf("parsing filter %d: %w", i, err)
		}
		fp.Filters[i] = filter
		offset += consumed
	}

	return fp, nil
}

func parseFilterInfo(data []byte, version uint8) (FilterInfo, int, error) {
	var f FilterInfo

	if len(data) < 6 {
		return f, 0, fmt.Errorf("filter info too short")
	}

	f.ID = binary.LittleEndian.Uint16(data[0:2])
	offset := 2

	// The name length field is present in v1, and in v2 only for
	// filters with ID >= 256.
	var nameLen uint16
	if version == 1 || f.ID >= 256 {
		nameLen = binary.LittleEndian.Uint16(data[offset:])
		offset += 2
	}

	f.Flags = binary.LittleEndian.Uint16(data[offset:])
	offset += 2
	numCD := binary.LittleEndian.Uint16(data[offset:])
	offset += 2

	if nameLen > 0 {
		if offset+int(nameLen) > len(data) {
			return f, 0, fmt.Errorf("filter name truncated")
		}
		nameEnd := offset
		for nameEnd < offset+int(nameLen) && data[nameEnd] != 0 {
			nameEnd++
		}
		f.Name = string(data[offset:nameEnd])
		offset += int(nameLen)
		if version == 1 && nameLen%8 != 0 {
			offset += 8 - int(nameLen%8)
		}
	}

	f.ClientData = make([]uint32, numCD)
	for j := 0; j < int(numCD) && offset+4 <= len(data); j++ {
		f.ClientData[j] = binary.LittleEndian.Uint32(data[offset:])
		offset += 4
	}
	// v1 pads to an even number of client data values.
	if version == 1 && numCD%2 != 0 {
		offset += 4
	}

	return f, offset, nil
}

// Serialize writes a version 2 filter pipeline message body. Filters with
// IDs above 255 are not supported.
func (m *FilterPipeline) Serialize(w *binpkg.Writer) error {
	if err := w.WriteBytes([]byte{2, uint8(len(m.Filters))}); err != nil {
		return err
	}
	for _, f := range m.Filters {
		if f.ID >= 256 {
			return fmt.Errorf("cannot serialize custom filter %d", f.ID)
		}
		if err := w.WriteUint16(f.ID); err != nil {
			return err
		}
		if err := w.WriteUint16(f.Flags); err != nil {
			return err
		}
		if err := w.WriteUint16(uint16(len(f.ClientData))); err != nil {
			return err
		}
		for _, cd := range f.ClientData {
			if err := w.WriteUint32(cd); err != nil {
				return err
			}
		}
	}
	return nil
}

// SerializedSize returns the version 2 message body size.
func (m *FilterPipeline) SerializedSize(w *binpkg.Writer) int {
	size := 2
	for _, f := range m.Filters {
		size += 6 + 4*len(f.ClientData)
	}
	return size
}
