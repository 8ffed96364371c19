package hdf5

import (
	"fmt"

	"github.com/robert-malhotra/go-bdv/internal/dtype"
	"github.com/robert-malhotra/go-bdv/internal/layout"
	"github.com/robert-malhotra/go-bdv/internal/message"
	"github.com/robert-malhotra/go-bdv/internal/object"
)

// Group is an HDF5 group. Members are stored as hard link messages in
// the group's object header.
type Group struct {
	file   *File
	path   string
	addr   uint64
	parent *Group
	links  []*message.Link

	// chunkSize is the on-disk size of the header's message chunk. Links
	// can be added in place while the messages still fit it.
	chunkSize int
}

// Path returns the group's absolute path.
func (g *Group) Path() string {
	return g.path
}

// Members returns the names of the group's members in link order.
func (g *Group) Members() []string {
	names := make([]string, len(g.links))
	for i, link := range g.links {
		names[i] = link.Name
	}
	return names
}

// Exists reports whether the group has a member with the given name.
func (g *Group) Exists(name string) bool {
	return g.link(name) != nil
}

func (g *Group) link(name string) *message.Link {
	for _, link := range g.links {
		if link.Name == name {
			return link
		}
	}
	return nil
}

// name returns the group's link name in its parent.
func (g *Group) name() string {
	parts := splitPath(g.path)
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}

func joinPath(base, name string) string {
	if base == "/" {
		return "/" + name
	}
	return base + "/" + name
}

// OpenGroup opens a group by path relative to g.
func (g *Group) OpenGroup(path string) (*Group, error) {
	if g.file.closed {
		return nil, ErrClosed
	}
	current := g
	for _, name := range splitPath(path) {
		link := current.link(name)
		if link == nil {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, joinPath(current.path, name))
		}
		child, err := g.file.openGroupAt(link.ObjectAddress, joinPath(current.path, name), current)
		if err != nil {
			return nil, err
		}
		current = child
	}
	return current, nil
}

// OpenDataset opens a dataset by path relative to g.
func (g *Group) OpenDataset(path string) (*Dataset, error) {
	if g.file.closed {
		return nil, ErrClosed
	}
	parts := splitPath(path)
	if len(parts) == 0 {
		return nil, ErrNotDataset
	}

	parent := g
	if len(parts) > 1 {
		var err error
		if parent, err = g.OpenGroup(joinParts(parts[:len(parts)-1])); err != nil {
			return nil, err
		}
	}

	name := parts[len(parts)-1]
	link := parent.link(name)
	if link == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, joinPath(parent.path, name))
	}
	return g.file.openDatasetAt(link.ObjectAddress, joinPath(parent.path, name))
}

func joinParts(parts []string) string {
	path := ""
	for _, p := range parts {
		path += "/" + p
	}
	return path
}

// CreateGroup creates a child group. The new group's header is padded so
// its first members can be linked without relocating it.
func (g *Group) CreateGroup(name string) (*Group, error) {
	if g.file.closed {
		return nil, ErrClosed
	}
	if !g.file.writable {
		return nil, ErrReadOnly
	}
	if g.link(name) != nil {
		return nil, fmt.Errorf("member %q already exists in %s", name, g.path)
	}

	messages := object.GroupMessages(nil)
	size := object.HeaderSizeWithMinChunk(g.file.writer, messages, object.MinGroupChunkSize)
	addr := g.file.allocator.Alloc(uint64(size))
	if _, err := object.WriteHeaderWithMinChunk(g.file.writer.At(int64(addr)), messages, object.MinGroupChunkSize); err != nil {
		return nil, fmt.Errorf("writing group header: %w", err)
	}

	if err := g.addLink(message.NewHardLink(name, addr)); err != nil {
		return nil, err
	}

	return &Group{
		file:      g.file,
		path:      joinPath(g.path, name),
		addr:      addr,
		parent:    g,
		chunkSize: object.MinGroupChunkSize,
	}, nil
}

// addLink appends a link to the group's header, rewriting it in place
// when the messages still fit the header chunk and relocating the header
// to the end of the file otherwise.
func (g *Group) addLink(link *message.Link) error {
	links := append(append([]*message.Link(nil), g.links...), link)
	messages := object.GroupMessages(links)
	msgSize := object.MessagesSize(g.file.writer, messages)

	// Padding shorter than a NIL message header cannot be written.
	if msgSize == g.chunkSize || msgSize+4 <= g.chunkSize {
		if _, err := object.WriteHeaderWithMinChunk(g.file.writer.At(int64(g.addr)), messages, g.chunkSize); err != nil {
			return fmt.Errorf("rewriting group header: %w", err)
		}
		g.links = links
		return nil
	}

	return g.relocate(links, messages, msgSize)
}

// relocate moves the group header to the end of the file with headroom
// for further links and patches the reference to it. The old header
// space is not reclaimed.
func (g *Group) relocate(links []*message.Link, messages []message.Message, msgSize int) error {
	newChunk := g.chunkSize * 2
	for newChunk < msgSize {
		newChunk *= 2
	}

	size := object.HeaderSizeWithMinChunk(g.file.writer, messages, newChunk)
	newAddr := g.file.allocator.Alloc(uint64(size))
	if _, err := object.WriteHeaderWithMinChunk(g.file.writer.At(int64(newAddr)), messages, newChunk); err != nil {
		return fmt.Errorf("relocating group header: %w", err)
	}

	if g.parent == nil {
		g.file.superblock.RootGroupAddress = newAddr
	} else if err := g.parent.updateLink(g.name(), newAddr); err != nil {
		return err
	}

	g.addr = newAddr
	g.chunkSize = newChunk
	g.links = links
	return nil
}

// updateLink repoints an existing link. Addresses have a fixed width, so
// the header is rewritten in place.
func (g *Group) updateLink(name string, addr uint64) error {
	link := g.link(name)
	if link == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, joinPath(g.path, name))
	}
	link.ObjectAddress = addr
	if _, err := object.WriteHeaderWithMinChunk(g.file.writer.At(int64(g.addr)), object.GroupMessages(g.links), g.chunkSize); err != nil {
		return fmt.Errorf("rewriting group header: %w", err)
	}
	return nil
}

// RemoveLink removes a member link. The member's storage is not
// reclaimed.
func (g *Group) RemoveLink(name string) error {
	if g.file.closed {
		return ErrClosed
	}
	if !g.file.writable {
		return ErrReadOnly
	}

	links := make([]*message.Link, 0, len(g.links))
	found := false
	for _, link := range g.links {
		if link.Name == name {
			found = true
			continue
		}
		links = append(links, link)
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrNotFound, joinPath(g.path, name))
	}

	if _, err := object.WriteHeaderWithMinChunk(g.file.writer.At(int64(g.addr)), object.GroupMessages(links), g.chunkSize); err != nil {
		return fmt.Errorf("rewriting group header: %w", err)
	}
	g.links = links
	return nil
}

// CreateDataset creates a dataset holding elements of the given numeric
// type. Without WithChunks the data is stored contiguously, preallocated
// and zero-filled, to be filled with Write. With WithChunks the dataset
// uses a fixed-array chunk index and is filled chunk by chunk with
// WriteChunk; WithGzip additionally compresses each chunk.
func (g *Group) CreateDataset(name string, dims []uint64, numeric dtype.Numeric, opts ...DatasetOption) (*Dataset, error) {
	if g.file.closed {
		return nil, ErrClosed
	}
	if !g.file.writable {
		return nil, ErrReadOnly
	}
	if g.link(name) != nil {
		return nil, fmt.Errorf("member %q already exists in %s", name, g.path)
	}
	if len(dims) == 0 {
		return nil, fmt.Errorf("dataset %q needs at least one dimension", name)
	}

	datatype, err := numeric.Message()
	if err != nil {
		return nil, err
	}
	dataspace := message.NewSimple(dims)

	options := defaultDatasetOptions()
	for _, opt := range opts {
		opt(options)
	}

	if len(options.chunks) > 0 {
		return g.createChunkedDataset(name, dims, numeric, dataspace, datatype, options)
	}
	if options.gzipLevel > 0 {
		return nil, fmt.Errorf("dataset %q: compression requires chunked storage", name)
	}
	return g.createContiguousDataset(name, dims, numeric, dataspace, datatype)
}

func (g *Group) createChunkedDataset(
	name string,
	dims []uint64,
	numeric dtype.Numeric,
	dataspace *message.Dataspace,
	datatype *message.Datatype,
	options *datasetOptions,
) (*Dataset, error) {
	if len(options.chunks) != len(dims) {
		return nil, fmt.Errorf("dataset %q: chunk rank %d does not match dataset rank %d", name, len(options.chunks), len(dims))
	}
	chunkDims32 := make([]uint32, len(options.chunks))
	for d, c := range options.chunks {
		if c == 0 || c > 1<<31 {
			return nil, fmt.Errorf("dataset %q: invalid chunk extent %d", name, c)
		}
		chunkDims32[d] = uint32(c)
	}

	counts := chunkGridCounts(dims, options.chunks)
	numChunks := uint64(1)
	for _, c := range counts {
		numChunks *= c
	}
	chunkBytes := uint64(numeric.Size)
	for _, c := range options.chunks {
		chunkBytes *= c
	}

	filtered := options.gzipLevel > 0
	fa, err := layout.CreateFixedArray(g.file.writer, g.file.allocator.Alloc, numChunks, filtered, chunkBytes)
	if err != nil {
		return nil, fmt.Errorf("creating chunk index: %w", err)
	}

	layoutMsg := message.NewChunked(chunkDims32, uint32(numeric.Size), fa.PageBits(), fa.HeaderAddr())
	var filters *message.FilterPipeline
	if filtered {
		filters = message.NewDeflatePipeline(options.gzipLevel)
	}

	messages := object.DatasetMessages(dataspace, datatype, layoutMsg, filters)
	size := object.HeaderSize(g.file.writer, messages)
	addr := g.file.allocator.Alloc(uint64(size))
	if _, err := object.WriteHeader(g.file.writer.At(int64(addr)), messages); err != nil {
		return nil, fmt.Errorf("writing dataset header: %w", err)
	}
	if err := g.addLink(message.NewHardLink(name, addr)); err != nil {
		return nil, err
	}

	ds := &Dataset{
		file:      g.file,
		path:      joinPath(g.path, name),
		numeric:   numeric,
		dataspace: dataspace,
		datatype:  datatype,
		layout:    layoutMsg,
		filters:   filters,
		fa:        fa,
	}
	return ds, ds.init()
}

func (g *Group) createContiguousDataset(
	name string,
	dims []uint64,
	numeric dtype.Numeric,
	dataspace *message.Dataspace,
	datatype *message.Datatype,
) (*Dataset, error) {
	dataBytes := uint64(numeric.Size)
	for _, d := range dims {
		dataBytes *= d
	}

	dataAddr := g.file.allocator.Alloc(dataBytes)
	if err := g.file.writer.At(int64(dataAddr)).WriteZeros(int(dataBytes)); err != nil {
		return nil, fmt.Errorf("zeroing dataset storage: %w", err)
	}

	layoutMsg := message.NewContiguous(dataAddr, dataBytes)
	messages := object.DatasetMessages(dataspace, datatype, layoutMsg, nil)
	size := object.HeaderSize(g.file.writer, messages)
	addr := g.file.allocator.Alloc(uint64(size))
	if _, err := object.WriteHeader(g.file.writer.At(int64(addr)), messages); err != nil {
		return nil, fmt.Errorf("writing dataset header: %w", err)
	}
	if err := g.addLink(message.NewHardLink(name, addr)); err != nil {
		return nil, err
	}

	ds := &Dataset{
		file:      g.file,
		path:      joinPath(g.path, name),
		numeric:   numeric,
		dataspace: dataspace,
		datatype:  datatype,
		layout:    layoutMsg,
	}
	return ds, ds.init()
}

// chunkGridCounts returns the number of chunks along each dimension.
func chunkGridCounts(dims, chunkDims []uint64) []uint64 {
	counts := make([]uint64, len(dims))
	for d := range dims {
		counts[d] = (dims[d] + chunkDims[d] - 1) / chunkDims[d]
	}
	return counts
}
