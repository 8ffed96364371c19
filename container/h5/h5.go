// Package h5 implements the single-file HDF5 container used by bdv.hdf5
// datasets.
//
// Sample data lives at t{tt:05d}/s{ss:02d}/{level}/cells, one chunked and
// gzip-compressed 3D dataset per setup, timepoint and scale level. Setup
// metadata lives in the s{ss:02d} group as two small matrices, resolutions
// and subdivisions, with rows in (x, y, z) order. The (z, y, x) shapes used
// elsewhere in this module are reversed at that boundary only; dataset
// extents are stored row-major and need no reversal.
//
// Everything goes through one file handle, so the store serializes access
// with a single lock. An unwritten chunk reads back as zeros, which is what
// makes skipping all-zero blocks safe.
package h5

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/robert-malhotra/go-bdv/container"
	"github.com/robert-malhotra/go-bdv/hdf5"
)

// Matches the compression h5py applies for compression="gzip".
const gzipLevel = 4

// Store is one BigDataViewer HDF5 file.
type Store struct {
	mu   sync.Mutex
	file *hdf5.File
}

// Create creates a new HDF5 container, truncating any existing file.
func Create(path string) (*Store, error) {
	f, err := hdf5.Create(path)
	if err != nil {
		return nil, fmt.Errorf("h5: create %s: %w", path, err)
	}
	return &Store{file: f}, nil
}

// Open opens an existing container for reading and writing.
func Open(path string) (*Store, error) {
	f, err := hdf5.OpenReadWrite(path)
	if err != nil {
		return nil, fmt.Errorf("h5: open %s: %w", path, err)
	}
	return &Store{file: f}, nil
}

// Close flushes and closes the file.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}

// Path returns the file path.
func (s *Store) Path() string { return s.file.Path() }

// DataKey returns the dataset key for one scale level of a setup.
func (s *Store) DataKey(setup, timepoint, level int) string {
	return fmt.Sprintf("t%05d/s%02d/%d/cells", timepoint, setup, level)
}

// SetupKey returns the group key holding a setup's metadata.
func (s *Store) SetupKey(setup int) string {
	return fmt.Sprintf("s%02d", setup)
}

// ensureGroup opens the group at key, creating missing path segments.
func (s *Store) ensureGroup(key string) (*hdf5.Group, error) {
	g := s.file.Root()
	for _, name := range strings.Split(strings.Trim(key, "/"), "/") {
		if name == "" {
			continue
		}
		if g.Exists(name) {
			child, err := g.OpenGroup(name)
			if err != nil {
				return nil, err
			}
			g = child
			continue
		}
		child, err := g.CreateGroup(name)
		if err != nil {
			return nil, err
		}
		g = child
	}
	return g, nil
}

// CreateArray creates a chunked gzip dataset at key with the given (z, y, x)
// shape and chunk shape. Chunks larger than the volume are clipped.
func (s *Store) CreateArray(key string, shape, chunks [3]int64, dt container.DataType) (container.Array, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	numeric, err := numericOf(dt)
	if err != nil {
		return nil, fmt.Errorf("h5: create %s: %w", key, err)
	}
	for ax := 0; ax < 3; ax++ {
		if chunks[ax] > shape[ax] {
			chunks[ax] = shape[ax]
		}
	}

	parentKey, name := splitKey(key)
	parent, err := s.ensureGroup(parentKey)
	if err != nil {
		return nil, fmt.Errorf("h5: create %s: %w", key, err)
	}
	if parent.Exists(name) {
		return nil, fmt.Errorf("h5: create %s: %w", key, container.ErrExists)
	}

	ds, err := parent.CreateDataset(name, dims(shape), numeric,
		hdf5.WithChunks(dims(chunks)...), hdf5.WithGzip(gzipLevel))
	if err != nil {
		return nil, fmt.Errorf("h5: create %s: %w", key, err)
	}
	return &Array{store: s, ds: ds, shape: shape, chunks: chunks, dt: dt}, nil
}

// OpenArray opens the dataset at key.
func (s *Store) OpenArray(key string) (container.Array, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ds, err := s.file.OpenDataset(key)
	if err != nil {
		if errors.Is(err, hdf5.ErrNotFound) {
			return nil, fmt.Errorf("h5: open %s: %w", key, container.ErrNotFound)
		}
		return nil, fmt.Errorf("h5: open %s: %w", key, err)
	}

	shape, ok := triple(ds.Shape())
	if !ok {
		return nil, fmt.Errorf("h5: open %s: dataset is not 3D", key)
	}
	chunks, ok := triple(ds.ChunkShape())
	if !ok {
		chunks = shape
	}
	dt, err := dataTypeOf(ds.Numeric())
	if err != nil {
		return nil, fmt.Errorf("h5: open %s: %w", key, err)
	}
	return &Array{store: s, ds: ds, shape: shape, chunks: chunks, dt: dt}, nil
}

// HasSetup reports whether the setup's metadata group or any of its
// timepoint data groups exists.
func (s *Store) HasSetup(setup int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	root := s.file.Root()
	key := s.SetupKey(setup)
	if root.Exists(key) {
		return true, nil
	}
	for _, name := range root.Members() {
		if !strings.HasPrefix(name, "t") {
			continue
		}
		tp, err := root.OpenGroup(name)
		if err != nil {
			continue
		}
		if tp.Exists(key) {
			return true, nil
		}
	}
	return false, nil
}

// RemoveSetup unlinks the setup's metadata group and its data in every
// timepoint. File space held by the unlinked objects is not reclaimed.
func (s *Store) RemoveSetup(setup int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	root := s.file.Root()
	key := s.SetupKey(setup)
	if root.Exists(key) {
		if err := root.RemoveLink(key); err != nil {
			return fmt.Errorf("h5: remove setup %d: %w", setup, err)
		}
	}
	for _, name := range root.Members() {
		if !strings.HasPrefix(name, "t") {
			continue
		}
		tp, err := root.OpenGroup(name)
		if err != nil {
			continue
		}
		if tp.Exists(key) {
			if err := tp.RemoveLink(key); err != nil {
				return fmt.Errorf("h5: remove setup %d: %w", setup, err)
			}
		}
	}
	return nil
}

func splitKey(key string) (parent, name string) {
	key = strings.Trim(key, "/")
	if i := strings.LastIndex(key, "/"); i >= 0 {
		return key[:i], key[i+1:]
	}
	return "", key
}

func dims(v [3]int64) []uint64 {
	return []uint64{uint64(v[0]), uint64(v[1]), uint64(v[2])}
}

func triple(v []uint64) ([3]int64, bool) {
	if len(v) != 3 {
		return [3]int64{}, false
	}
	return [3]int64{int64(v[0]), int64(v[1]), int64(v[2])}, true
}

func numericOf(dt container.DataType) (hdf5.Numeric, error) {
	switch dt {
	case container.Uint8:
		return hdf5.Uint8, nil
	case container.Uint16:
		return hdf5.Uint16, nil
	case container.Uint32:
		return hdf5.Uint32, nil
	case container.Uint64:
		return hdf5.Uint64, nil
	case container.Int8:
		return hdf5.Int8, nil
	case container.Int16:
		return hdf5.Int16, nil
	case container.Int32:
		return hdf5.Int32, nil
	case container.Int64:
		return hdf5.Int64, nil
	case container.Float32:
		return hdf5.Float32, nil
	case container.Float64:
		return hdf5.Float64, nil
	}
	return hdf5.Numeric{}, fmt.Errorf("unsupported data type %q", dt)
}

func dataTypeOf(n hdf5.Numeric) (container.DataType, error) {
	dt, err := container.ParseDataType(n.String())
	if err != nil {
		return "", fmt.Errorf("unsupported element type %v", n)
	}
	return dt, nil
}
