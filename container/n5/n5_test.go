package n5

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-bdv/container"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := Create(filepath.Join(t.TempDir(), "data.n5"))
	require.NoError(t, err)
	return s
}

func TestCreateWritesVersion(t *testing.T) {
	s := newStore(t)
	var v string
	require.NoError(t, attribute(s.attrPath(""), "n5", &v))
	assert.Equal(t, "2.0.0", v)
}

func TestChunkCodecRoundTrip(t *testing.T) {
	data := container.Bytes([]uint16{1, 2, 3, 4, 5, 6})
	raw, err := encodeChunk([3]int64{1, 2, 3}, container.Uint16, data)
	require.NoError(t, err)

	size, got, err := decodeChunk(raw, container.Uint16)
	require.NoError(t, err)
	assert.Equal(t, [3]int64{1, 2, 3}, size)
	assert.Equal(t, data, got)
}

func TestArrayWriteReadBlock(t *testing.T) {
	s := newStore(t)
	arr, err := s.CreateArray("setup0/timepoint0/s0", [3]int64{4, 4, 4}, [3]int64{2, 2, 2}, container.Uint8)
	require.NoError(t, err)

	blk := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	require.NoError(t, arr.WriteBlock([3]int64{2, 2, 0}, [3]int64{2, 2, 2}, blk))

	got, err := arr.ReadBlock([3]int64{2, 2, 0}, [3]int64{2, 2, 2})
	require.NoError(t, err)
	assert.Equal(t, blk, got)
}

func TestMissingChunkReadsAsZeros(t *testing.T) {
	s := newStore(t)
	arr, err := s.CreateArray("setup0/timepoint0/s0", [3]int64{4, 4, 4}, [3]int64{2, 2, 2}, container.Uint16)
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

func TestEdgeChunkClipped(t *testing.T) {
	s := newStore(t)
	arr, err := s.CreateArray("d", [3]int64{3, 3, 3}, [3]int64{2, 2, 2}, container.Uint8)
	require.NoError(t, err)

	// Corner chunk is 1x1x1.
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

func TestChunkFileLayout(t *testing.T) {
	s := newStore(t)
	arr, err := s.CreateArray("d", [3]int64{4, 4, 4}, [3]int64{2, 2, 2}, container.Uint8)
	require.NoError(t, err)
	// Chunk with grid coordinate z=1, y=0, x=1 lands at d/1/0/1 (x first).
	require.NoError(t, arr.WriteBlock([3]int64{2, 0, 2}, [3]int64{2, 2, 2}, []byte{1, 0, 0, 0, 0, 0, 0, 0}))
	_, err = os.Stat(filepath.Join(s.Root(), "d", "1", "0", "1"))
	assert.NoError(t, err)
}

func TestCreateArrayTwiceFails(t *testing.T) {
	s := newStore(t)
	_, err := s.CreateArray("d", [3]int64{2, 2, 2}, [3]int64{2, 2, 2}, container.Uint8)
	require.NoError(t, err)
	_, err = s.CreateArray("d", [3]int64{2, 2, 2}, [3]int64{2, 2, 2}, container.Uint8)
	assert.ErrorIs(t, err, container.ErrExists)
}

func TestOpenArrayReversesAxes(t *testing.T) {
	s := newStore(t)
	_, err := s.CreateArray("d", [3]int64{8, 4, 2}, [3]int64{4, 2, 1}, container.Float32)
	require.NoError(t, err)

	var da datasetAttributes
	require.NoError(t, func() error {
		d, err := loadDatasetAttributes(s.attrPath("d"))
		if err != nil {
			return err
		}
		da = *d
		return nil
	}())
	assert.Equal(t, [3]int64{2, 4, 8}, da.Dimensions)
	assert.Equal(t, [3]int64{1, 2, 4}, da.BlockSize)

	arr, err := s.OpenArray("d")
	require.NoError(t, err)
	assert.Equal(t, [3]int64{8, 4, 2}, arr.Shape())
	assert.Equal(t, [3]int64{4, 2, 1}, arr.ChunkShape())
	assert.Equal(t, container.Float32, arr.DataType())
}

func TestSetupMetadataCompareOrWrite(t *testing.T) {
	s := newStore(t)
	md := container.Metadata{
		Resolution: [3]float64{1, 0.5, 0.5},
		Factors:    [][3]int64{{1, 1, 1}, {2, 2, 2}, {2, 4, 4}},
		DataType:   container.Uint8,
		Timepoints: []int{0},
	}
	require.NoError(t, s.WriteSetupMetadata(3, md))

	// Identical rewrite is fine.
	require.NoError(t, s.WriteSetupMetadata(3, md))

	var factors [][3]float64
	require.NoError(t, attribute(s.attrPath(s.SetupKey(3)), "downsamplingFactors", &factors))
	assert.Equal(t, [][3]float64{{1, 1, 1}, {2, 2, 2}, {4, 4, 2}}, factors)

	var res [3]float64
	require.NoError(t, attribute(s.attrPath(s.TimepointKey(3, 0)), "resolution", &res))
	assert.Equal(t, [3]float64{0.5, 0.5, 1}, res)

	var level [3]float64
	require.NoError(t, attribute(s.attrPath(s.DataKey(3, 0, 2)), "downsamplingFactors", &level))
	assert.Equal(t, [3]float64{4, 4, 2}, level)

	// Conflicting factors fail and leave the record alone.
	bad := md
	bad.Factors = [][3]int64{{1, 1, 1}, {2, 2, 2}}
	err := s.WriteSetupMetadata(3, bad)
	assert.ErrorIs(t, err, container.ErrConsistency)

	bad = md
	bad.DataType = container.Uint16
	err = s.WriteSetupMetadata(3, bad)
	assert.ErrorIs(t, err, container.ErrConsistency)

	require.NoError(t, attribute(s.attrPath(s.SetupKey(3)), "downsamplingFactors", &factors))
	assert.Len(t, factors, 3)
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
