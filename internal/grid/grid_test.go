package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGridPartitionsVolume(t *testing.T) {
	g, err := New([3]int64{100, 100, 100}, [3]int64{32, 32, 32})
	require.NoError(t, err)

	// ceil(100/32)^3 = 4^3
	require.Equal(t, 64, g.Len())

	seen := make(map[[3]int64]bool)
	var total int64
	for i := 0; i < g.Len(); i++ {
		b := g.At(i)
		total += b.NumElements()
		for a := 0; a < 3; a++ {
			require.Less(t, b.Start[a], b.Stop[a])
			require.LessOrEqual(t, b.Stop[a], int64(100))
		}
		// No two blocks share a start corner.
		require.False(t, seen[b.Start])
		seen[b.Start] = true
	}
	assert.Equal(t, int64(100*100*100), total)
}

func TestGridEdgeClipping(t *testing.T) {
	g, err := New([3]int64{100, 100, 100}, [3]int64{32, 32, 32})
	require.NoError(t, err)

	last := g.At(g.Len() - 1)
	assert.Equal(t, [3]int64{96, 96, 96}, last.Start)
	assert.Equal(t, [3]int64{100, 100, 100}, last.Stop)
	assert.Equal(t, [3]int64{4, 4, 4}, last.Size())
}

func TestGridDeterministic(t *testing.T) {
	g, err := New([3]int64{17, 9, 33}, [3]int64{8, 8, 8})
	require.NoError(t, err)

	first := make([]Block, g.Len())
	for i := range first {
		first[i] = g.At(i)
	}
	for i := range first {
		assert.Equal(t, first[i], g.At(i))
	}
}

func TestGridTraversalOrder(t *testing.T) {
	g, err := New([3]int64{4, 4, 4}, [3]int64{2, 2, 2})
	require.NoError(t, err)
	require.Equal(t, 8, g.Len())

	// x varies fastest, z slowest.
	assert.Equal(t, [3]int64{0, 0, 0}, g.At(0).Start)
	assert.Equal(t, [3]int64{0, 0, 2}, g.At(1).Start)
	assert.Equal(t, [3]int64{0, 2, 0}, g.At(2).Start)
	assert.Equal(t, [3]int64{2, 0, 0}, g.At(4).Start)
}

func TestGridIndexRoundTrip(t *testing.T) {
	g, err := New([3]int64{10, 20, 30}, [3]int64{3, 7, 11}) // counts 4,3,3
	require.NoError(t, err)
	for i := 0; i < g.Len(); i++ {
		b := g.At(i)
		c := [3]int64{
			b.Start[0] / 3,
			b.Start[1] / 7,
			b.Start[2] / 11,
		}
		assert.Equal(t, i, g.Index(c))
	}
}

func TestGridRejectsBadInput(t *testing.T) {
	_, err := New([3]int64{0, 1, 1}, [3]int64{1, 1, 1})
	assert.Error(t, err)
	_, err = New([3]int64{1, 1, 1}, [3]int64{1, 0, 1})
	assert.Error(t, err)
	_, err = New([3]int64{1, 1, 1}, [3]int64{1, 1, -2})
	assert.Error(t, err)
}
