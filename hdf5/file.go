package hdf5

import (
	"fmt"
	"os"
	"strings"

	"github.com/robert-malhotra/go-bdv/internal/alloc"
	"github.com/robert-malhotra/go-bdv/internal/binary"
	"github.com/robert-malhotra/go-bdv/internal/message"
	"github.com/robert-malhotra/go-bdv/internal/object"
	"github.com/robert-malhotra/go-bdv/internal/superblock"
)

// File is an open HDF5 file.
type File struct {
	path       string
	file       *os.File
	reader     *binary.Reader
	superblock *superblock.Superblock
	root       *Group
	closed     bool

	writable  bool
	writer    *binary.Writer
	allocator *alloc.Allocator
}

// Create creates a new HDF5 file, truncating any existing file at path.
func Create(path string) (*File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating file: %w", err)
	}

	sb := superblock.New()
	cfg := sb.ReaderConfig()

	hdf := &File{
		path:       path,
		file:       f,
		reader:     binary.NewReader(f, cfg),
		superblock: sb,
		writable:   true,
		writer:     binary.NewWriter(f, cfg),
		allocator:  alloc.New(uint64(sb.Size())),
	}

	// Root group header, padded so links can be added in place.
	rootMsgs := object.GroupMessages(nil)
	rootSize := object.HeaderSizeWithMinChunk(hdf.writer, rootMsgs, object.MinGroupChunkSize)
	rootAddr := hdf.allocator.Alloc(uint64(rootSize))
	if _, err := object.WriteHeaderWithMinChunk(hdf.writer.At(int64(rootAddr)), rootMsgs, object.MinGroupChunkSize); err != nil {
		f.Close()
		return nil, fmt.Errorf("writing root group: %w", err)
	}
	sb.RootGroupAddress = rootAddr

	hdf.root = &Group{
		file:      hdf,
		path:      "/",
		addr:      rootAddr,
		chunkSize: object.MinGroupChunkSize,
	}

	if err := hdf.Flush(); err != nil {
		f.Close()
		return nil, err
	}
	return hdf, nil
}

// Open opens an HDF5 file for reading.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	return fromOpenFile(path, f, false)
}

// OpenReadWrite opens an existing HDF5 file for reading and writing.
// Only files written by this package are supported.
func OpenReadWrite(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	return fromOpenFile(path, f, true)
}

func fromOpenFile(path string, f *os.File, writable bool) (*File, error) {
	sb, err := superblock.Read(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("reading superblock: %w", err)
	}

	hdf := &File{
		path:       path,
		file:       f,
		reader:     binary.NewReader(f, sb.ReaderConfig()),
		superblock: sb,
	}
	if writable {
		hdf.writable = true
		hdf.writer = binary.NewWriter(f, sb.ReaderConfig())
		hdf.allocator = alloc.New(0)
		hdf.allocator.SetEOFAddr(sb.EOFAddress)
	}

	root, err := hdf.openGroupAt(sb.RootGroupAddress, "/", nil)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("opening root group: %w", err)
	}
	hdf.root = root

	return hdf, nil
}

// Flush writes the superblock with the current end-of-file address.
func (f *File) Flush() error {
	if f.closed {
		return ErrClosed
	}
	if !f.writable {
		return nil
	}
	f.superblock.EOFAddress = f.allocator.EOFAddr()
	if _, err := f.superblock.Write(f.writer.At(0)); err != nil {
		return fmt.Errorf("writing superblock: %w", err)
	}
	return nil
}

// Close flushes pending metadata and closes the file.
func (f *File) Close() error {
	if f.closed {
		return nil
	}
	if err := f.Flush(); err != nil {
		f.closed = true
		f.file.Close()
		return err
	}
	f.closed = true
	return f.file.Close()
}

// Root returns the root group.
func (f *File) Root() *Group {
	return f.root
}

// Path returns the file path.
func (f *File) Path() string {
	return f.path
}

// OpenGroup opens a group by absolute path.
func (f *File) OpenGroup(path string) (*Group, error) {
	if f.closed {
		return nil, ErrClosed
	}
	return f.root.OpenGroup(path)
}

// OpenDataset opens a dataset by absolute path.
func (f *File) OpenDataset(path string) (*Dataset, error) {
	if f.closed {
		return nil, ErrClosed
	}
	return f.root.OpenDataset(path)
}

// openGroupAt reads the group object header at the given address.
func (f *File) openGroupAt(address uint64, path string, parent *Group) (*Group, error) {
	header, err := object.Read(f.reader, address)
	if err != nil {
		return nil, fmt.Errorf("reading object header: %w", err)
	}
	if header.GetMessage(message.TypeDataspace) != nil {
		return nil, ErrNotGroup
	}

	g := &Group{
		file:      f,
		path:      path,
		addr:      address,
		parent:    parent,
		chunkSize: header.ChunkSize,
	}
	for _, msg := range header.GetMessages(message.TypeLink) {
		g.links = append(g.links, msg.(*message.Link))
	}
	return g, nil
}

// openDatasetAt reads the dataset object header at the given address.
func (f *File) openDatasetAt(address uint64, path string) (*Dataset, error) {
	header, err := object.Read(f.reader, address)
	if err != nil {
		return nil, fmt.Errorf("reading object header: %w", err)
	}
	return newDataset(f, path, header)
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
