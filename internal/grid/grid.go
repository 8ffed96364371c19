// Package grid tiles a 3D volume into axis-aligned blocks.
//
// Blocks are addressed by a flat index so a traversal can be restarted
// from any position; enumerating the same grid twice yields the same
// sequence of blocks.
package grid

import "fmt"

// Block is one half-open box [Start, Stop) in (z, y, x) order.
type Block struct {
	Start [3]int64
	Stop  [3]int64
}

// Size returns the block extent per axis.
func (b Block) Size() [3]int64 {
	return [3]int64{
		b.Stop[0] - b.Start[0],
		b.Stop[1] - b.Start[1],
		b.Stop[2] - b.Start[2],
	}
}

// NumElements returns the number of samples covered by the block.
func (b Block) NumElements() int64 {
	s := b.Size()
	return s[0] * s[1] * s[2]
}

// Grid is the block decomposition of a volume shape by a chunk shape.
// The zero value is not usable; construct with New.
type Grid struct {
	shape  [3]int64
	chunks [3]int64
	counts [3]int64
}

// New builds a grid over shape tiled by chunks, both in (z, y, x) order.
// Blocks at the high edge are clipped to the volume boundary.
func New(shape, chunks [3]int64) (Grid, error) {
	for a := 0; a < 3; a++ {
		if shape[a] <= 0 {
			return Grid{}, fmt.Errorf("grid: shape axis %d must be positive, got %d", a, shape[a])
		}
		if chunks[a] <= 0 {
			return Grid{}, fmt.Errorf("grid: chunk axis %d must be positive, got %d", a, chunks[a])
		}
	}
	g := Grid{shape: shape, chunks: chunks}
	for a := 0; a < 3; a++ {
		g.counts[a] = (shape[a] + chunks[a] - 1) / chunks[a]
	}
	return g, nil
}

// Shape returns the volume shape the grid covers.
func (g Grid) Shape() [3]int64 { return g.shape }

// ChunkShape returns the tiling chunk shape.
func (g Grid) ChunkShape() [3]int64 { return g.chunks }

// Counts returns the number of blocks along each axis.
func (g Grid) Counts() [3]int64 { return g.counts }

// Len returns the total number of blocks.
func (g Grid) Len() int {
	return int(g.counts[0] * g.counts[1] * g.counts[2])
}

// At returns the i-th block. The traversal order is row-major with the
// z axis varying slowest and x fastest. i must be in [0, Len()).
func (g Grid) At(i int) Block {
	n := int64(i)
	ix := n % g.counts[2]
	n /= g.counts[2]
	iy := n % g.counts[1]
	iz := n / g.counts[1]
	return g.block([3]int64{iz, iy, ix})
}

// Index returns the flat index of the block holding chunk coordinate c.
func (g Grid) Index(c [3]int64) int {
	return int((c[0]*g.counts[1]+c[1])*g.counts[2] + c[2])
}

func (g Grid) block(c [3]int64) Block {
	var b Block
	for a := 0; a < 3; a++ {
		b.Start[a] = c[a] * g.chunks[a]
		b.Stop[a] = b.Start[a] + g.chunks[a]
		if b.Stop[a] > g.shape[a] {
			b.Stop[a] = g.shape[a]
		}
	}
	return b
}
