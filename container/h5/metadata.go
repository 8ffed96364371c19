package h5

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/robert-malhotra/go-bdv/container"
	"github.com/robert-malhotra/go-bdv/hdf5"
)

// WriteSetupMetadata persists the s{ss:02d} group of a setup: a resolutions
// matrix holding the cumulative downsampling factor of every level and a
// subdivisions matrix holding the chunk shape of every level, both with one
// row per level in (x, y, z) order. The chunk shapes are read back from the
// written level datasets of the first timepoint, so the data must be created
// before the metadata.
//
// The write is compare-or-write: when a prior record exists it must match
// exactly, otherwise the call fails with ErrConsistency and nothing changes.
func (s *Store) WriteSetupMetadata(setup int, md container.Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(md.Timepoints) == 0 {
		return fmt.Errorf("h5: setup %d metadata without timepoints", setup)
	}

	resolutions := make([][3]float32, len(md.Factors))
	for i, f := range md.Factors {
		rev := container.Reverse3(f)
		resolutions[i] = [3]float32{float32(rev[0]), float32(rev[1]), float32(rev[2])}
	}

	subdivisions := make([][3]int64, len(md.Factors))
	for level := range md.Factors {
		key := s.DataKey(setup, md.Timepoints[0], level)
		ds, err := s.file.OpenDataset(key)
		if err != nil {
			return fmt.Errorf("h5: setup %d metadata: level dataset %s: %w", setup, key, err)
		}
		chunks, ok := triple(ds.ChunkShape())
		if !ok {
			return fmt.Errorf("h5: setup %d metadata: level dataset %s is not chunked 3D", setup, key)
		}
		subdivisions[level] = container.Reverse3(chunks)
	}

	sg, err := s.ensureGroup(s.SetupKey(setup))
	if err != nil {
		return fmt.Errorf("h5: setup %d metadata: %w", setup, err)
	}

	if sg.Exists("resolutions") || sg.Exists("subdivisions") {
		return s.compareSetupMetadata(setup, resolutions, subdivisions)
	}

	n := uint64(len(md.Factors))
	resDS, err := sg.CreateDataset("resolutions", []uint64{n, 3}, hdf5.Float32)
	if err != nil {
		return fmt.Errorf("h5: setup %d metadata: %w", setup, err)
	}
	if err := resDS.Write(encodeFloat32Rows(resolutions)); err != nil {
		return fmt.Errorf("h5: setup %d metadata: %w", setup, err)
	}
	subDS, err := sg.CreateDataset("subdivisions", []uint64{n, 3}, hdf5.Int64)
	if err != nil {
		return fmt.Errorf("h5: setup %d metadata: %w", setup, err)
	}
	if err := subDS.Write(encodeInt64Rows(subdivisions)); err != nil {
		return fmt.Errorf("h5: setup %d metadata: %w", setup, err)
	}
	return nil
}

// compareSetupMetadata verifies a prior record against the new values.
func (s *Store) compareSetupMetadata(setup int, resolutions [][3]float32, subdivisions [][3]int64) error {
	key := s.SetupKey(setup)

	resDS, err := s.file.OpenDataset(key + "/resolutions")
	if err != nil {
		return fmt.Errorf("h5: setup %d metadata: prior resolutions: %w", setup, err)
	}
	resData, err := resDS.Read()
	if err != nil {
		return fmt.Errorf("h5: setup %d metadata: prior resolutions: %w", setup, err)
	}
	prior := decodeFloat32Rows(resData)
	if !equalFloat32Rows(prior, resolutions) {
		return fmt.Errorf("h5: setup %d resolutions %v conflict with prior %v: %w",
			setup, resolutions, prior, container.ErrConsistency)
	}

	subDS, err := s.file.OpenDataset(key + "/subdivisions")
	if err != nil {
		return fmt.Errorf("h5: setup %d metadata: prior subdivisions: %w", setup, err)
	}
	subData, err := subDS.Read()
	if err != nil {
		return fmt.Errorf("h5: setup %d metadata: prior subdivisions: %w", setup, err)
	}
	priorSub := decodeInt64Rows(subData)
	if !equalInt64Rows(priorSub, subdivisions) {
		return fmt.Errorf("h5: setup %d subdivisions %v conflict with prior %v: %w",
			setup, subdivisions, priorSub, container.ErrConsistency)
	}
	return nil
}

func encodeFloat32Rows(rows [][3]float32) []byte {
	out := make([]byte, 12*len(rows))
	for i, row := range rows {
		for j, v := range row {
			binary.LittleEndian.PutUint32(out[12*i+4*j:], math.Float32bits(v))
		}
	}
	return out
}

func decodeFloat32Rows(data []byte) [][3]float32 {
	rows := make([][3]float32, len(data)/12)
	for i := range rows {
		for j := 0; j < 3; j++ {
			rows[i][j] = math.Float32frombits(binary.LittleEndian.Uint32(data[12*i+4*j:]))
		}
	}
	return rows
}

func encodeInt64Rows(rows [][3]int64) []byte {
	out := make([]byte, 24*len(rows))
	for i, row := range rows {
		for j, v := range row {
			binary.LittleEndian.PutUint64(out[24*i+8*j:], uint64(v))
		}
	}
	return out
}

func decodeInt64Rows(data []byte) [][3]int64 {
	rows := make([][3]int64, len(data)/24)
	for i := range rows {
		for j := 0; j < 3; j++ {
			rows[i][j] = int64(binary.LittleEndian.Uint64(data[24*i+8*j:]))
		}
	}
	return rows
}

func equalFloat32Rows(a, b [][3]float32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalInt64Rows(a, b [][3]int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
