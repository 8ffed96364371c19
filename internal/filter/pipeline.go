package filter

import (
	"fmt"

	"github.com/robert-malhotra/go-bdv/internal/message"
)

// Pipeline applies a sequence of filters to chunk data.
type Pipeline struct {
	filters []Filter
}

// NewPipeline creates a pipeline from a FilterPipeline message. A nil or
// empty message yields an empty pipeline that passes data through.
func NewPipeline(fp *message.FilterPipeline) (*Pipeline, error) {
	if fp == nil || len(fp.Filters) == 0 {
		return &Pipeline{}, nil
	}

	p := &Pipeline{filters: make([]Filter, 0, len(fp.Filters))}
	for _, info := range fp.Filters {
		f, err := New(info)
		if err != nil {
			return nil, fmt.Errorf("creating filter %d: %w", info.ID, err)
		}
		if f != nil {
			p.filters = append(p.filters, f)
		}
	}
	return p, nil
}

// Encode applies the filters in declaration order.
func (p *Pipeline) Encode(input []byte) ([]byte, error) {
	data := input
	for _, f := range p.filters {
		var err error
		if data, err = f.Encode(data); err != nil {
			return nil, fmt.Errorf("filter %d encode: %w", f.ID(), err)
		}
	}
	return data, nil
}

// Decode applies the filters in reverse order. Bit i of filterMask marks
// filter i as skipped for this chunk.
func (p *Pipeline) Decode(input []byte, filterMask uint32) ([]byte, error) {
	data := input
	for i := len(p.filters) - 1; i >= 0; i-- {
		if filterMask&(1<<uint(i)) != 0 {
			continue
		}
		var err error
		if data, err = p.filters[i].Decode(data); err != nil {
			return nil, fmt.Errorf("filter %d decode: %w", p.filters[i].ID(), err)
		}
	}
	return data, nil
}

// Empty reports whether the pipeline has no filters.
func (p *Pipeline) Empty() bool {
	return len(p.filters) == 0
}
