package bdv

import (
	"github.com/pkg/errors"

	"github.com/robert-malhotra/go-bdv/container"
	"github.com/robert-malhotra/go-bdv/internal/grid"
)

// transfer copies src into dst block-wise over dst's chunk grid. Blocks
// whose bytes are all zero are skipped; every supported sample type reads
// an unwritten region back as zeros, so the skip is invisible. Samples
// are remapped when the array dtypes differ; clamp permits the lossy
// direction.
func transfer(src, dst container.Array, clamp bool, onBlock func()) error {
	g, err := grid.New(dst.Shape(), dst.ChunkShape())
	if err != nil {
		return errors.Wrap(err, "transfer grid")
	}
	from, to := src.DataType(), dst.DataType()
	for i := 0; i < g.Len(); i++ {
		b := g.At(i)
		data, err := src.ReadBlock(b.Start, b.Size())
		if err != nil {
			return errors.Wrapf(err, "read block %v", b.Start)
		}
		if !container.AllZero(data) {
			if from != to {
				data, err = container.Convert(data, from, to, clamp)
				if err != nil {
					return errors.Wrapf(err, "convert block %v", b.Start)
				}
			}
			if err := dst.WriteBlock(b.Start, b.Size(), data); err != nil {
				return errors.Wrapf(err, "write block %v", b.Start)
			}
		}
		if onBlock != nil {
			onBlock()
		}
	}
	return nil
}
