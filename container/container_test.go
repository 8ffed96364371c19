package container

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleRoundTrip(t *testing.T) {
	u16 := []uint16{0, 1, 255, 256, 65535}
	got, err := Values[uint16](Bytes(u16))
	require.NoError(t, err)
	assert.Equal(t, u16, got)

	f32 := []float32{0, -1.5, 3.25e7}
	gf, err := Values[float32](Bytes(f32))
	require.NoError(t, err)
	assert.Equal(t, f32, gf)

	i64 := []int64{-1, 1<<62 + 12345}
	gi, err := Values[int64](Bytes(i64))
	require.NoError(t, err)
	assert.Equal(t, i64, gi)
}

func TestValuesRejectsPartialSample(t *testing.T) {
	_, err := Values[uint32]([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestAllZero(t *testing.T) {
	assert.True(t, AllZero(nil))
	assert.True(t, AllZero(make([]byte, 64)))
	b := make([]byte, 64)
	b[63] = 1
	assert.False(t, AllZero(b))
}

func TestCanWiden(t *testing.T) {
	cases := []struct {
		from, to DataType
		ok       bool
	}{
		{Uint8, Uint16, true},
		{Uint8, Int16, true},
		{Uint8, Int8, false},
		{Int16, Uint32, false},
		{Uint16, Float32, true},
		{Uint32, Float32, false},
		{Uint32, Float64, true},
		{Uint64, Float64, false},
		{Float32, Float64, true},
		{Float64, Float32, false},
		{Float32, Int64, false},
		{Int32, Int32, true},
	}
	for _, c := range cases {
		assert.Equal(t, c.ok, CanWiden(c.from, c.to), "%s -> %s", c.from, c.to)
	}
}

func TestConvertWidening(t *testing.T) {
	src := Bytes([]uint8{0, 7, 255})
	out, err := Convert(src, Uint8, Uint16, false)
	require.NoError(t, err)
	vals, err := Values[uint16](out)
	require.NoError(t, err)
	assert.Equal(t, []uint16{0, 7, 255}, vals)
}

func TestConvertNarrowingNeedsClamp(t *testing.T) {
	src := Bytes([]uint16{100, 300, 65535})
	_, err := Convert(src, Uint16, Uint8, false)
	require.Error(t, err)

	out, err := Convert(src, Uint16, Uint8, true)
	require.NoError(t, err)
	vals, err := Values[uint8](out)
	require.NoError(t, err)
	assert.Equal(t, []uint8{100, 255, 255}, vals)
}

func TestConvertFloatToIntTruncates(t *testing.T) {
	src := Bytes([]float32{-1.9, 0.5, 300.7})
	out, err := Convert(src, Float32, Uint8, true)
	require.NoError(t, err)
	vals, err := Values[uint8](out)
	require.NoError(t, err)
	assert.Equal(t, []uint8{0, 0, 255}, vals)
}

func TestMemArrayBlockRoundTrip(t *testing.T) {
	a, err := NewMemArray([3]int64{4, 4, 4}, [3]int64{2, 2, 2}, Uint16, nil)
	require.NoError(t, err)

	blk := Bytes([]uint16{1, 2, 3, 4, 5, 6, 7, 8})
	require.NoError(t, a.WriteBlock([3]int64{2, 0, 2}, [3]int64{2, 2, 2}, blk))

	got, err := a.ReadBlock([3]int64{2, 0, 2}, [3]int64{2, 2, 2})
	require.NoError(t, err)
	assert.Equal(t, blk, got)

	// Neighbouring region stays zero.
	other, err := a.ReadBlock([3]int64{0, 0, 0}, [3]int64{2, 2, 2})
	require.NoError(t, err)
	assert.True(t, AllZero(other))
}

func TestMemArrayBounds(t *testing.T) {
	a, err := NewMemArray([3]int64{4, 4, 4}, [3]int64{2, 2, 2}, Uint8, nil)
	require.NoError(t, err)
	_, err = a.ReadBlock([3]int64{3, 0, 0}, [3]int64{2, 2, 2})
	assert.Error(t, err)
	err = a.WriteBlock([3]int64{0, 0, 0}, [3]int64{2, 2, 2}, make([]byte, 7))
	assert.Error(t, err)
}
