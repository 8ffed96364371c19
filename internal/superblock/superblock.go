// Package superblock reads and writes the HDF5 superblock, the entry
// point of every HDF5 file. Only versions 2 and 3 are handled; files are
// always written with a version 3 superblock.
package superblock

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"

	binpkg "github.com/robert-malhotra/go-bdv/internal/binary"
)

// Signature is the HDF5 file signature: 0x89 H D F \r \n 0x1a \n.
var Signature = []byte{0x89, 'H', 'D', 'F', '\r', '\n', 0x1a, '\n'}

// The signature may sit at any of these offsets; they are searched in order.
var superblockOffsets = []int64{0, 512, 1024, 2048}

var (
	ErrNotHDF5            = errors.New("not an HDF5 file: signature not found")
	ErrUnsupportedVersion = errors.New("unsupported superblock version")
	ErrInvalidSuperblock  = errors.New("invalid superblock structure")
)

/*
Version 2/3 superblock layout (O = offset size):

	0      8  Signature
	8      1  Version (2 or 3)
	9      1  Size of offsets
	10     1  Size of lengths
	11     1  File consistency flags
	12     O  Base address
	12+O   O  Superblock extension address
	12+2O  O  EOF address
	12+3O  O  Root group object header address
	12+4O  4  Checksum (lookup3)

Versions 2 and 3 share this structure.
*/

// Superblock holds the fields of a version 2/3 superblock.
type Superblock struct {
	Version              uint8
	OffsetSize           uint8
	LengthSize           uint8
	FileConsistencyFlags uint8

	// BaseAddress is the file address of byte 0, usually 0.
	BaseAddress uint64

	// SuperblockExtensionAddress is written as the undefined sentinel
	// when zero.
	SuperblockExtensionAddress uint64

	// EOFAddress is the logical end-of-file address.
	EOFAddress uint64

	// RootGroupAddress is the address of the root group object header.
	RootGroupAddress uint64

	// ByteOrder is always little-endian for HDF5.
	ByteOrder binary.ByteOrder

	// FileOffset is where the signature was found.
	FileOffset int64
}

// New creates a version 3 superblock with 8-byte offsets and lengths.
func New() *Superblock {
	return &Superblock{
		Version:    3,
		OffsetSize: 8,
		LengthSize: 8,
		ByteOrder:  binary.LittleEndian,
	}
}

// Read locates and parses the superblock. It searches the standard
// signature offsets and accepts versions 2 and 3.
func Read(r io.ReaderAt) (*Superblock, error) {
	sig := make([]byte, len(Signature)+1)

	for _, offset := range superblockOffsets {
		if _, err := r.ReadAt(sig, offset); err != nil {
			if err == io.EOF {
				continue
			}
			return nil, err
		}
		if !bytes.Equal(sig[:len(Signature)], Signature) {
			continue
		}

		version := sig[len(Signature)]
		if version != 2 && version != 3 {
			return nil, ErrUnsupportedVersion
		}

		sb, err := readV2V3(r, offset)
		if err != nil {
			return nil, err
		}
		sb.FileOffset = offset
		sb.ByteOrder = binary.LittleEndian
		return sb, nil
	}

	return nil, ErrNotHDF5
}

func readV2V3(r io.ReaderAt, offset int64) (*Superblock, error) {
	header := make([]byte, 4)
	if _, err := r.ReadAt(header, offset+8); err != nil {
		return nil, err
	}

	sb := &Superblock{
		Version:              header[0],
		OffsetSize:           header[1],
		LengthSize:           header[2],
		FileConsistencyFlags: header[3],
	}

	osize := int(sb.OffsetSize)
	body := make([]byte, 4*osize)
	if _, err := r.ReadAt(body, offset+12); err != nil {
		return nil, err
	}
	sb.BaseAddress = binpkg.UintN(body, osize)
	sb.SuperblockExtensionAddress = binpkg.UintN(body[osize:], osize)
	sb.EOFAddress = binpkg.UintN(body[2*osize:], osize)
	sb.RootGroupAddress = binpkg.UintN(body[3*osize:], osize)

	hdrLen := 12 + 4*osize
	hdr := make([]byte, hdrLen+4)
	if _, err := r.ReadAt(hdr, offset); err != nil {
		return nil, err
	}
	stored := binary.LittleEndian.Uint32(hdr[hdrLen:])
	if stored != binpkg.Lookup3Checksum(hdr[:hdrLen]) {
		return nil, ErrInvalidSuperblock
	}

	return sb, nil
}

// Size returns the serialized size of the superblock in bytes.
func (sb *Superblock) Size() int {
	osize := int(sb.OffsetSize)
	if osize == 0 {
		osize = 8
	}
	return 12 + 4*osize + 4
}

// Write serializes the superblock at the writer's current position and
// returns the bytes written. The checksum is computed over the buffered
// header before anything reaches the file.
func (sb *Superblock) Write(w *binpkg.Writer) (int64, error) {
	buf := binpkg.NewBuffer(sb.Size())
	bw := binpkg.NewWriter(buf, binpkg.Config{
		ByteOrder:  w.ByteOrder(),
		OffsetSize: int(sb.OffsetSize),
		LengthSize: int(sb.LengthSize),
	})

	version := sb.Version
	if version < 2 {
		version = 2
	}
	extAddr := sb.SuperblockExtensionAddress
	if extAddr == 0 {
		extAddr = bw.UndefinedOffset()
	}

	if err := bw.WriteBytes(Signature); err != nil {
		return 0, err
	}
	for _, b := range []uint8{version, sb.OffsetSize, sb.LengthSize, sb.FileConsistencyFlags} {
		if err := bw.WriteUint8(b); err != nil {
			return 0, err
		}
	}
	for _, addr := range []uint64{sb.BaseAddress, extAddr, sb.EOFAddress, sb.RootGroupAddress} {
		if err := bw.WriteOffset(addr); err != nil {
			return 0, err
		}
	}

	checksum := binpkg.Lookup3Checksum(buf.Bytes(int(bw.Pos())))
	if err := bw.WriteUint32(checksum); err != nil {
		return 0, err
	}

	if err := w.WriteBytes(buf.Bytes(int(bw.Pos()))); err != nil {
		return 0, err
	}
	return bw.Pos(), nil
}

// ReaderConfig returns the binary reader configuration described by the
// superblock.
func (sb *Superblock) ReaderConfig() binpkg.Config {
	return binpkg.Config{
		ByteOrder:  sb.ByteOrder,
		OffsetSize: int(sb.OffsetSize),
		LengthSize: int(sb.LengthSize),
	}
}
