package downsample

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-bdv/container"
)

func ramp(n int) []uint8 {
	out := make([]uint8, n)
	for i := range out {
		out[i] = uint8(i)
	}
	return out
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("mean")
	require.NoError(t, err)
	assert.Equal(t, Mean, m)

	_, err = ParseMode("interpolate")
	assert.Error(t, err)
	_, err = ParseMode("median")
	assert.Error(t, err)
}

func TestOutShape(t *testing.T) {
	assert.Equal(t, [3]int64{50, 50, 50}, OutShape([3]int64{100, 100, 100}, [3]int64{2, 2, 2}))
	assert.Equal(t, [3]int64{3, 5, 1}, OutShape([3]int64{5, 9, 2}, [3]int64{2, 2, 2}))
	assert.Equal(t, [3]int64{5, 9, 2}, OutShape([3]int64{5, 9, 2}, [3]int64{1, 1, 1}))
}

func TestNearestTakesWindowOrigin(t *testing.T) {
	// 2x2x2 ramp, factor 2: single output sample = value at (0,0,0).
	src := container.Bytes(ramp(8))
	out, shape, err := Apply(Nearest, container.Uint8, src, [3]int64{2, 2, 2}, [3]int64{2, 2, 2})
	require.NoError(t, err)
	assert.Equal(t, [3]int64{1, 1, 1}, shape)
	vals, err := container.Values[uint8](out)
	require.NoError(t, err)
	assert.Equal(t, []uint8{0}, vals)
}

func TestMeanMaxMin(t *testing.T) {
	// One 2x2x2 window holding 0..7.
	src := container.Bytes(ramp(8))

	out, _, err := Apply(Mean, container.Uint8, src, [3]int64{2, 2, 2}, [3]int64{2, 2, 2})
	require.NoError(t, err)
	assert.Equal(t, []byte{3}, out) // trunc(28/8)

	out, _, err = Apply(Max, container.Uint8, src, [3]int64{2, 2, 2}, [3]int64{2, 2, 2})
	require.NoError(t, err)
	assert.Equal(t, []byte{7}, out)

	out, _, err = Apply(Min, container.Uint8, src, [3]int64{2, 2, 2}, [3]int64{2, 2, 2})
	require.NoError(t, err)
	assert.Equal(t, []byte{0}, out)
}

func TestMeanFloat(t *testing.T) {
	src := container.Bytes([]float32{1, 2, 3, 4})
	out, shape, err := Apply(Mean, container.Float32, src, [3]int64{1, 2, 2}, [3]int64{1, 2, 2})
	require.NoError(t, err)
	assert.Equal(t, [3]int64{1, 1, 1}, shape)
	vals, err := container.Values[float32](out)
	require.NoError(t, err)
	assert.Equal(t, []float32{2.5}, vals)
}

func TestAnisotropicFactor(t *testing.T) {
	// Shape (1,2,4), factor (1,1,2): pairs along x averaged.
	src := container.Bytes([]uint16{0, 10, 20, 30, 40, 50, 60, 70})
	out, shape, err := Apply(Mean, container.Uint16, src, [3]int64{1, 2, 4}, [3]int64{1, 1, 2})
	require.NoError(t, err)
	assert.Equal(t, [3]int64{1, 2, 2}, shape)
	vals, err := container.Values[uint16](out)
	require.NoError(t, err)
	assert.Equal(t, []uint16{5, 25, 45, 65}, vals)
}

func TestEdgeWindowAveragesActualSamples(t *testing.T) {
	// Shape (1,1,3), factor (1,1,2): second window holds a single sample.
	src := container.Bytes([]uint8{10, 20, 90})
	out, shape, err := Apply(Mean, container.Uint8, src, [3]int64{1, 1, 3}, [3]int64{1, 1, 2})
	require.NoError(t, err)
	assert.Equal(t, [3]int64{1, 1, 2}, shape)
	assert.Equal(t, []byte{15, 90}, out)
}

func TestMinSignedEdge(t *testing.T) {
	src := container.Bytes([]int16{-5, -9, -1})
	out, _, err := Apply(Min, container.Int16, src, [3]int64{1, 1, 3}, [3]int64{1, 1, 2})
	require.NoError(t, err)
	vals, err := container.Values[int16](out)
	require.NoError(t, err)
	assert.Equal(t, []int16{-9, -1}, vals)
}

func TestApplyRejectsBadInput(t *testing.T) {
	_, _, err := Apply(Mean, container.Uint8, []byte{1, 2}, [3]int64{1, 1, 3}, [3]int64{1, 1, 2})
	assert.Error(t, err)
	_, _, err = Apply(Mean, container.Uint8, []byte{1, 2, 3}, [3]int64{1, 1, 3}, [3]int64{0, 1, 1})
	assert.Error(t, err)
	_, _, err = Apply(Mean, container.DataType("complex64"), []byte{}, [3]int64{1, 1, 1}, [3]int64{1, 1, 1})
	assert.Error(t, err)
}
