package layout

import (
	"bytes"
	"fmt"

	"github.com/robert-malhotra/go-bdv/internal/binary"
)

// Fixed-array chunk index signatures.
var (
	fixedArrayHeaderSig = []byte{'F', 'A', 'H', 'D'}
	fixedArrayBlockSig  = []byte{'F', 'A', 'D', 'B'}
)

// Fixed-array client IDs: 0 indexes unfiltered chunks (address only per
// entry), 1 indexes filtered chunks (address + stored size + filter mask).
const (
	faClientUnfiltered uint8 = 0
	faClientFiltered   uint8 = 1
)

// Entry is one chunk slot in a fixed-array index. An unwritten slot has
// the undefined address.
type Entry struct {
	Address    uint64
	Size       uint64
	FilterMask uint32
}

/*
Fixed array header (FAHD):

	0    4  Signature
	4    1  Version (0)
	5    1  Client ID
	6    1  Entry size
	7    1  Page bits
	8    L  Max entries
	8+L  O  Data block address
	var  4  Checksum

Data block (FADB):

	0    4  Signature
	4    1  Version (0)
	5    1  Client ID
	6    O  Header address
	var     Entries
	var  4  Checksum

The page bits are chosen so one page covers every entry, keeping the
data block unpaged. Chunks are written incrementally: the whole index is
preallocated with undefined slots, and each chunk write patches its slot
and rewrites the data block checksum.
*/

// FixedArray is an in-memory view of a fixed-array chunk index.
type FixedArray struct {
	headerAddr    uint64
	dataBlockAddr uint64
	clientID      uint8
	entrySize     int
	pageBits      uint8
	entries       []Entry
	cfg           binary.Config
}

// CreateFixedArray allocates and writes a fixed-array index with every
// slot undefined. For filtered chunks maxChunkBytes bounds the stored
// chunk size and fixes the width of the per-entry size field.
func CreateFixedArray(w *binary.Writer, allocate func(uint64) uint64, numEntries uint64, filtered bool, maxChunkBytes uint64) (*FixedArray, error) {
	cfg := binary.Config{
		ByteOrder:  w.ByteOrder(),
		OffsetSize: w.OffsetSize(),
		LengthSize: w.LengthSize(),
	}

	fa := &FixedArray{
		clientID: faClientUnfiltered,
		pageBits: pageBitsFor(numEntries),
		entries:  make([]Entry, numEntries),
		cfg:      cfg,
	}
	fa.entrySize = cfg.OffsetSize
	if filtered {
		fa.clientID = faClientFiltered
		fa.entrySize += uintBytes(maxChunkBytes) + 4
	}
	undef := undefinedFor(cfg.OffsetSize)
	for i := range fa.entries {
		fa.entries[i].Address = undef
	}

	fa.headerAddr = allocate(uint64(fa.headerSize()))
	fa.dataBlockAddr = allocate(uint64(fa.dataBlockSize()))

	if err := fa.writeHeader(w); err != nil {
		return nil, err
	}
	if err := fa.writeDataBlock(w); err != nil {
		return nil, err
	}
	return fa, nil
}

// OpenFixedArray reads a fixed-array index from the file.
func OpenFixedArray(r *binary.Reader, headerAddr uint64) (*FixedArray, error) {
	hr := r.At(int64(headerAddr))

	sig, err := hr.ReadBytes(4)
	if err != nil {
		return nil, fmt.Errorf("reading fixed array header: %w", err)
	}
	if !bytes.Equal(sig, fixedArrayHeaderSig) {
		return nil, fmt.Errorf("invalid fixed array signature %q", sig)
	}

	hdr, err := hr.ReadBytes(4)
	if err != nil {
		return nil, err
	}
	if hdr[0] != 0 {
		return nil, fmt.Errorf("unsupported fixed array version %d", hdr[0])
	}

	fa := &FixedArray{
		headerAddr: headerAddr,
		clientID:   hdr[1],
		entrySize:  int(hdr[2]),
		pageBits:   hdr[3],
		cfg: binary.Config{
			ByteOrder:  r.ByteOrder(),
			OffsetSize: r.OffsetSize(),
			LengthSize: r.LengthSize(),
		},
	}
	if fa.clientID != faClientUnfiltered && fa.clientID != faClientFiltered {
		return nil, fmt.Errorf("unsupported fixed array client %d", fa.clientID)
	}

	numEntries, err := hr.ReadLength()
	if err != nil {
		return nil, err
	}
	if fa.dataBlockAddr, err = hr.ReadOffset(); err != nil {
		return nil, err
	}
	fa.entries = make([]Entry, numEntries)

	return fa, fa.readDataBlock(r)
}

func (fa *FixedArray) readDataBlock(r *binary.Reader) error {
	br := r.At(int64(fa.dataBlockAddr))

	sig, err := br.ReadBytes(4)
	if err != nil {
		return fmt.Errorf("reading fixed array data block: %w", err)
	}
	if !bytes.Equal(sig, fixedArrayBlockSig) {
		return fmt.Errorf("invalid fixed array data block signature %q", sig)
	}
	br.Skip(2) // version + client ID
	if _, err := br.ReadOffset(); err != nil {
		return err
	}

	sizeBytes := fa.entrySize - fa.cfg.OffsetSize - 4
	for i := range fa.entries {
		if fa.entries[i].Address, err = br.ReadOffset(); err != nil {
			return err
		}
		if fa.clientID == faClientFiltered {
			size, err := br.ReadUintN(sizeBytes)
			if err != nil {
				return err
			}
			mask, err := br.ReadUint32()
			if err != nil {
				return err
			}
			fa.entries[i].Size = size
			fa.entries[i].FilterMask = mask
		}
	}
	return nil
}

// SetEntry records a chunk at the given linear index and rewrites the
// data block with a fresh checksum.
func (fa *FixedArray) SetEntry(w *binary.Writer, index uint64, e Entry) error {
	if index >= uint64(len(fa.entries)) {
		return fmt.Errorf("chunk index %d out of range (%d entries)", index, len(fa.entries))
	}
	fa.entries[index] = e
	return fa.writeDataBlock(w)
}

// Entry returns the slot at the given linear index.
func (fa *FixedArray) Entry(index uint64) Entry {
	return fa.entries[index]
}

// Defined reports whether the slot at index holds a written chunk.
func (fa *FixedArray) Defined(index uint64) bool {
	return fa.entries[index].Address != undefinedFor(fa.cfg.OffsetSize)
}

// NumEntries returns the number of chunk slots.
func (fa *FixedArray) NumEntries() uint64 {
	return uint64(len(fa.entries))
}

// HeaderAddr returns the FAHD address referenced by the data layout
// message.
func (fa *FixedArray) HeaderAddr() uint64 {
	return fa.headerAddr
}

// PageBits returns the page size exponent recorded in the header.
func (fa *FixedArray) PageBits() uint8 {
	return fa.pageBits
}

// Filtered reports whether entries carry stored size and filter mask.
func (fa *FixedArray) Filtered() bool {
	return fa.clientID == faClientFiltered
}

func (fa *FixedArray) headerSize() int {
	return 8 + fa.cfg.LengthSize + fa.cfg.OffsetSize + 4
}

func (fa *FixedArray) dataBlockSize() int {
	return 6 + fa.cfg.OffsetSize + len(fa.entries)*fa.entrySize + 4
}

func (fa *FixedArray) writeHeader(w *binary.Writer) error {
	buf := binary.NewBuffer(fa.headerSize())
	bw := binary.NewWriter(buf, fa.cfg)

	if err := bw.WriteBytes(fixedArrayHeaderSig); err != nil {
		return err
	}
	if err := bw.WriteBytes([]byte{0, fa.clientID, uint8(fa.entrySize), fa.pageBits}); err != nil {
		return err
	}
	if err := bw.WriteLength(uint64(len(fa.entries))); err != nil {
		return err
	}
	if err := bw.WriteOffset(fa.dataBlockAddr); err != nil {
		return err
	}
	checksum := binary.Lookup3Checksum(buf.Bytes(int(bw.Pos())))
	if err := bw.WriteUint32(checksum); err != nil {
		return err
	}
	return w.At(int64(fa.headerAddr)).WriteBytes(buf.Bytes(int(bw.Pos())))
}

func (fa *FixedArray) writeDataBlock(w *binary.Writer) error {
	buf := binary.NewBuffer(fa.dataBlockSize())
	bw := binary.NewWriter(buf, fa.cfg)

	if err := bw.WriteBytes(fixedArrayBlockSig); err != nil {
		return err
	}
	if err := bw.WriteBytes([]byte{0, fa.clientID}); err != nil {
		return err
	}
	if err := bw.WriteOffset(fa.headerAddr); err != nil {
		return err
	}

	sizeBytes := fa.entrySize - fa.cfg.OffsetSize - 4
	for _, e := range fa.entries {
		if err := bw.WriteOffset(e.Address); err != nil {
			return err
		}
		if fa.clientID == faClientFiltered {
			if err := bw.WriteUintN(e.Size, sizeBytes); err != nil {
				return err
			}
			if err := bw.WriteUint32(e.FilterMask); err != nil {
				return err
			}
		}
	}

	checksum := binary.Lookup3Checksum(buf.Bytes(int(bw.Pos())))
	if err := bw.WriteUint32(checksum); err != nil {
		return err
	}
	return w.At(int64(fa.dataBlockAddr)).WriteBytes(buf.Bytes(int(bw.Pos())))
}

// pageBitsFor picks a page size exponent large enough that the data
// block stays unpaged.
func pageBitsFor(numEntries uint64) uint8 {
	bits := uint8(10)
	for uint64(1)<<bits < numEntries {
		bits++
	}
	return bits
}

// uintBytes returns the minimal byte width that holds v.
func uintBytes(v uint64) int {
	n := 1
	for v > 0xFF {
		v >>= 8
		n++
	}
	return n
}

func undefinedFor(offsetSize int) uint64 {
	if offsetSize >= 8 {
		return ^uint64(0)
	}
	return uint64(1)<<(offsetSize*8) - 1
}
