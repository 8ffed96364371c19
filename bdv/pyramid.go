package bdv

import (
	"github.com/pkg/errors"

	"github.com/robert-malhotra/go-bdv/container"
	"github.com/robert-malhotra/go-bdv/internal/downsample"
	"github.com/robert-malhotra/go-bdv/internal/grid"
)

// validateFactors checks every stage factor for positivity.
func validateFactors(factors []Factor) error {
	for i, f := range factors {
		for a := 0; a < 3; a++ {
			if f[a] <= 0 {
				return errors.Errorf("scale factor %d is %v, want positive entries", i, f)
			}
		}
	}
	return nil
}

// levelShapes returns the shape of every pyramid level: level 0 is the
// full volume, each stage divides the previous level rounding up.
func levelShapes(base [3]int64, factors []Factor) [][3]int64 {
	shapes := make([][3]int64, len(factors)+1)
	shapes[0] = base
	for i, f := range factors {
		shapes[i+1] = downsample.OutShape(shapes[i], [3]int64(f))
	}
	return shapes
}

// cumulativeFactors returns the total downsampling of every level
// relative to level 0, which is always (1,1,1).
func cumulativeFactors(factors []Factor) [][3]int64 {
	cum := make([][3]int64, len(factors)+1)
	cum[0] = [3]int64{1, 1, 1}
	for i, f := range factors {
		for a := 0; a < 3; a++ {
			cum[i+1][a] = cum[i][a] * f[a]
		}
	}
	return cum
}

// clipChunks limits a chunk shape to the level shape so small levels do
// not allocate chunks larger than themselves.
func clipChunks(chunks, shape [3]int64) [3]int64 {
	out := chunks
	for a := 0; a < 3; a++ {
		if out[a] > shape[a] {
			out[a] = shape[a]
		}
	}
	return out
}

// downsampleLevel fills dst by reducing src with the stage factor. Each
// destination block reads its factor-scaled source window, so a stage
// only ever touches the level directly above it.
func downsampleLevel(src, dst container.Array, factor Factor, mode downsample.Mode, onBlock func()) error {
	g, err := grid.New(dst.Shape(), dst.ChunkShape())
	if err != nil {
		return errors.Wrap(err, "downsample grid")
	}
	srcShape := src.Shape()
	for i := 0; i < g.Len(); i++ {
		b := g.At(i)
		var start, size [3]int64
		for a := 0; a < 3; a++ {
			start[a] = b.Start[a] * factor[a]
			stop := b.Stop[a] * factor[a]
			if stop > srcShape[a] {
				stop = srcShape[a]
			}
			size[a] = stop - start[a]
		}
		window, err := src.ReadBlock(start, size)
		if err != nil {
			return errors.Wrapf(err, "read window %v", start)
		}
		if container.AllZero(window) {
			if onBlock != nil {
				onBlock()
			}
			continue
		}
		reduced, outShape, err := downsample.Apply(mode, src.DataType(), window, size, [3]int64(factor))
		if err != nil {
			return errors.Wrapf(err, "reduce window %v", start)
		}
		if outShape != b.Size() {
			return errors.Errorf("reduced window %v came out %v, want %v", start, outShape, b.Size())
		}
		if err := dst.WriteBlock(b.Start, b.Size(), reduced); err != nil {
			return errors.Wrapf(err, "write block %v", b.Start)
		}
		if onBlock != nil {
			onBlock()
		}
	}
	return nil
}
