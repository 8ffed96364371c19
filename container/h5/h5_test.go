package h5

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-bdv/container"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := Create(filepath.Join(t.TempDir(), "data.h5"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestDataKeyLayout(t *testing.T) {
	s := newStore(t)
	assert.Equal(t, "t00000/s00/0/cells", s.DataKey(0, 0, 0))
	assert.Equal(t, "t00003/s12/2/cells", s.DataKey(12, 3, 2))
	assert.Equal(t, "s07", s.SetupKey(7))
}

func TestArrayWriteReadBlock(t *testing.T) {
	s := newStore(t)
	arr, err := s.CreateArray(s.DataKey(0, 0, 0), [3]int64{4, 4, 4}, [3]int64{2, 2, 2}, container.Uint8)
	require.NoError(t, err)

	blk := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	require.NoError(t, arr.WriteBlock([3]int64{2, 2, 0}, [3]int64{2, 2, 2}, blk))

	got, err := arr.ReadBlock([3]int64{2, 2, 0}, [3]int64{2, 2, 2})
	require.NoError(t, err)
	assert.Equal(t, blk, got)
}

func TestUnwrittenBlocksReadAsZeros(t *testing.T) {
	s := newStore(t)
	arr, err := s.CreateArray("d", [3]int64{4, 4, 4}, [3]int64{2, 2, 2}, container.Uint16)
	require.NoError(t, err)

	got, err := arr.ReadBlock([3]int64{0, 0, 0}, [3]int64{2, 2, 2})
	require.NoError(t, err)
	assert.Len(t, got, 8*2)
	assert.True(t, container.AllZero(got))
}

func TestReadBlockSpanningChunks(t *testing.T) {
	s := newStore(t)
	arr, err := s.CreateArray("d", [3]int64{2, 2, 4}, [3]int64{2, 2, 2}, container.Uint8)
	require.NoError(t, err)

	require.NoError(t, arr.WriteBlock([3]int64{0, 0, 0}, [3]int64{2, 2, 2}, []byte{1, 2, 3, 4, 5, 6, 7, 8}))
	require.NoError(t, arr.WriteBlock([3]int64{0, 0, 2}, [3]int64{2, 2, 2}, []byte{11, 12, 13, 14, 15, 16, 17, 18}))

	got, err := arr.ReadBlock([3]int64{0, 0, 0}, [3]int64{2, 2, 4})
	require.NoError(t, err)
	assert.Equal(t, []byte{
		1, 2, 11, 12,
		3, 4, 13, 14,
		5, 6, 15, 16,
		7, 8, 17, 18,
	}, got)
}

func TestEdgeBlockPadded(t *testing.T) {
	s := newStore(t)
	arr, err := s.CreateArray("d", [3]int64{3, 3, 3}, [3]int64{2, 2, 2}, container.Uint8)
	require.NoError(t, err)

	// Corner chunk is clipped to 1x1x1 and padded to the full chunk on disk.
	require.NoError(t, arr.WriteBlock([3]int64{2, 2, 2}, [3]int64{1, 1, 1}, []byte{9}))
	got, err := arr.ReadBlock([3]int64{2, 2, 2}, [3]int64{1, 1, 1})
	require.NoError(t, err)
	assert.Equal(t, []byte{9}, got)

	// Wrong extent is rejected.
	err = arr.WriteBlock([3]int64{2, 2, 2}, [3]int64{2, 2, 2}, make([]byte, 8))
	assert.Error(t, err)
}

func TestWriteBlockRequiresAlignment(t *testing.T) {
	s := newStore(t)
	arr, err := s.CreateArray("d", [3]int64{4, 4, 4}, [3]int64{2, 2, 2}, container.Uint8)
	require.NoError(t, err)
	err = arr.WriteBlock([3]int64{1, 0, 0}, [3]int64{2, 2, 2}, make([]byte, 8))
	assert.Error(t, err)
}

func TestCreateArrayTwiceFails(t *testing.T) {
	s := newStore(t)
	_, err := s.CreateArray("d", [3]int64{2, 2, 2}, [3]int64{2, 2, 2}, container.Uint8)
	require.NoError(t, err)
	_, err = s.CreateArray("d", [3]int64{2, 2, 2}, [3]int64{2, 2, 2}, container.Uint8)
	assert.ErrorIs(t, err, container.ErrExists)
}

func TestChunksClippedToShape(t *testing.T) {
	s := newStore(t)
	arr, err := s.CreateArray("d", [3]int64{2, 3, 3}, [3]int64{8, 8, 8}, container.Uint8)
	require.NoError(t, err)
	assert.Equal(t, [3]int64{2, 3, 3}, arr.ChunkShape())
}

func TestOpenArray(t *testing.T) {
	s := newStore(t)
	_, err := s.CreateArray("d", [3]int64{8, 4, 2}, [3]int64{4, 2, 1}, container.Float32)
	require.NoError(t, err)

	arr, err := s.OpenArray("d")
	require.NoError(t, err)
	assert.Equal(t, [3]int64{8, 4, 2}, arr.Shape())
	assert.Equal(t, [3]int64{4, 2, 1}, arr.ChunkShape())
	assert.Equal(t, container.Float32, arr.DataType())

	_, err = s.OpenArray("missing")
	assert.ErrorIs(t, err, container.ErrNotFound)
}

func TestReopenPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.h5")
	s, err := Create(path)
	require.NoError(t, err)
	arr, err := s.CreateArray(s.DataKey(0, 0, 0), [3]int64{2, 2, 2}, [3]int64{2, 2, 2}, container.Uint16)
	require.NoError(t, err)
	blk := container.Bytes([]uint16{1, 2, 3, 4, 5, 6, 7, 8})
	require.NoError(t, arr.WriteBlock([3]int64{0, 0, 0}, [3]int64{2, 2, 2}, blk))
	require.NoError(t, s.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	arr2, err := s2.OpenArray(s2.DataKey(0, 0, 0))
	require.NoError(t, err)
	got, err := arr2.ReadBlock([3]int64{0, 0, 0}, [3]int64{2, 2, 2})
	require.NoError(t, err)
	assert.Equal(t, blk, got)
}

func TestSetupMetadataCompareOrWrite(t *testing.T) {
	s := newStore(t)
	md := container.Metadata{
		Resolution: [3]float64{1, 0.5, 0.5},
		Factors:    [][3]int64{{1, 1, 1}, {1, 2, 2}},
		DataType:   container.Uint8,
		Timepoints: []int{0},
	}
	_, err := s.CreateArray(s.DataKey(3, 0, 0), [3]int64{4, 8, 8}, [3]int64{2, 4, 4}, container.Uint8)
	require.NoError(t, err)
	_, err = s.CreateArray(s.DataKey(3, 0, 1), [3]int64{4, 4, 4}, [3]int64{2, 4, 4}, container.Uint8)
	require.NoError(t, err)

	require.NoError(t, s.WriteSetupMetadata(3, md))

	// Identical rewrite is fine.
	require.NoError(t, s.WriteSetupMetadata(3, md))

	resDS, err := s.file.OpenDataset("s03/resolutions")
	require.NoError(t, err)
	assert.Equal(t, []uint64{2, 3}, resDS.Shape())
	resData, err := resDS.Read()
	require.NoError(t, err)
	assert.Equal(t, [][3]float32{{1, 1, 1}, {2, 2, 1}}, decodeFloat32Rows(resData))

	subDS, err := s.file.OpenDataset("s03/subdivisions")
	require.NoError(t, err)
	subData, err := subDS.Read()
	require.NoError(t, err)
	assert.Equal(t, [][3]int64{{4, 4, 2}, {4, 4, 2}}, decodeInt64Rows(subData))

	// Conflicting factors fail and leave the record alone.
	bad := md
	bad.Factors = [][3]int64{{1, 1, 1}, {2, 2, 2}}
	err = s.WriteSetupMetadata(3, bad)
	assert.ErrorIs(t, err, container.ErrConsistency)

	resData, err = resDS.Read()
	require.NoError(t, err)
	assert.Equal(t, [][3]float32{{1, 1, 1}, {2, 2, 1}}, decodeFloat32Rows(resData))
}

func TestHasAndRemoveSetup(t *testing.T) {
	s := newStore(t)
	ok, err := s.HasSetup(0)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.CreateArray(s.DataKey(0, 0, 0), [3]int64{2, 2, 2}, [3]int64{2, 2, 2}, container.Uint8)
	require.NoError(t, err)

	ok, err = s.HasSetup(0)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.RemoveSetup(0))
	ok, err = s.HasSetup(0)
	require.NoError(t, err)
	assert.False(t, ok)
}
