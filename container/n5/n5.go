// Package n5 implements the N5 directory container used by bdv.n5 datasets.
//
// An N5 root is a directory tree. Every group is a directory; a dataset is a
// directory carrying an attributes.json with dimensions, blockSize, dataType
// and compression, plus one file per written chunk. Axis metadata is stored
// x-fastest, so the (z, y, x) shapes used elsewhere in this module are
// reversed at this boundary. A chunk file that does not exist reads back as
// zeros, which is what makes skipping all-zero blocks safe.
package n5

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/robert-malhotra/go-bdv/container"
)

const version = "2.0.0"

// Store is one N5 root directory.
type Store struct {
	root string
}

// Create initialises a new N5 root at path, writing the version attribute.
// The directory may already exist; an existing version attribute is kept.
func Create(path string) (*Store, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("n5: create root: %w", err)
	}
	s := &Store{root: path}
	attrs, err := readAttributes(s.attrPath(""))
	if err != nil {
		return nil, err
	}
	if _, ok := attrs["n5"]; !ok {
		if err := setAttributes(s.attrPath(""), map[string]any{"n5": version}); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Open opens an existing N5 root.
func Open(path string) (*Store, error) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("n5: open %s: %w", path, container.ErrNotFound)
	}
	return &Store{root: path}, nil
}

// Close releases the store. N5 holds no persistent handles.
func (s *Store) Close() error { return nil }

// Root returns the root directory path.
func (s *Store) Root() string { return s.root }

// DataKey returns the dataset key for one scale level of a setup.
func (s *Store) DataKey(setup, timepoint, level int) string {
	return fmt.Sprintf("setup%d/timepoint%d/s%d", setup, timepoint, level)
}

// SetupKey returns the group key holding all data of a setup.
func (s *Store) SetupKey(setup int) string {
	return fmt.Sprintf("setup%d", setup)
}

// TimepointKey returns the group key of one timepoint of a setup.
func (s *Store) TimepointKey(setup, timepoint int) string {
	return fmt.Sprintf("setup%d/timepoint%d", setup, timepoint)
}

func (s *Store) dir(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

func (s *Store) attrPath(key string) string {
	return filepath.Join(s.dir(key), "attributes.json")
}

// CreateArray creates a dataset at key with the given (z, y, x) shape and
// chunk shape. The dataset directory must not already hold one.
func (s *Store) CreateArray(key string, shape, chunks [3]int64, dt container.DataType) (container.Array, error) {
	if !dt.Valid() {
		return nil, fmt.Errorf("n5: create %s: unsupported data type %q", key, dt)
	}
	dir := s.dir(key)
	if _, err := loadDatasetAttributes(s.attrPath(key)); err == nil {
		return nil, fmt.Errorf("n5: create %s: %w", key, container.ErrExists)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("n5: create %s: %w", key, err)
	}
	da := datasetAttributes{
		Dimensions:  container.Reverse3(shape),
		BlockSize:   container.Reverse3(chunks),
		DataType:    string(dt),
		Compression: compressionAttr{Type: "gzip", Level: -1},
	}
	if err := setAttributes(s.attrPath(key), da.asMap()); err != nil {
		return nil, err
	}
	return &Array{dir: dir, shape: shape, chunks: chunks, dt: dt}, nil
}

// OpenArray opens the dataset at key.
func (s *Store) OpenArray(key string) (container.Array, error) {
	da, err := loadDatasetAttributes(s.attrPath(key))
	if err != nil {
		return nil, fmt.Errorf("n5: open %s: %w", key, err)
	}
	dt, err := container.ParseDataType(da.DataType)
	if err != nil {
		return nil, fmt.Errorf("n5: open %s: %w", key, err)
	}
	return &Array{
		dir:    s.dir(key),
		shape:  container.Reverse3(da.Dimensions),
		chunks: container.Reverse3(da.BlockSize),
		dt:     dt,
	}, nil
}

// HasSetup reports whether the setup's group directory exists.
func (s *Store) HasSetup(setup int) (bool, error) {
	info, err := os.Stat(s.dir(s.SetupKey(setup)))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}

// RemoveSetup deletes the setup's group and everything under it.
func (s *Store) RemoveSetup(setup int) error {
	return os.RemoveAll(s.dir(s.SetupKey(setup)))
}
