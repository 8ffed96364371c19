package n5

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-bdv/container"
)

// WriteSetupMetadata persists the per-setup attributes: cumulative
// downsamplingFactors and dataType on the setup group, multiScale and the
// physical resolution on every timepoint group, and each level's own
// cumulative factor. The setup-group attributes are compare-or-write: a
// prior record must match exactly or the write fails with ErrConsistency
// and nothing changes.
func (s *Store) WriteSetupMetadata(setup int, md container.Metadata) error {
	factors := make([][3]float64, len(md.Factors))
	for i, f := range md.Factors {
		rev := container.Reverse3(f)
		factors[i] = [3]float64{float64(rev[0]), float64(rev[1]), float64(rev[2])}
	}

	setupAttr := s.attrPath(s.SetupKey(setup))

	var prior [][3]float64
	err := attribute(setupAttr, "downsamplingFactors", &prior)
	switch {
	case err == nil:
		if !equalFactors(prior, factors) {
			return fmt.Errorf("n5: setup %d downsamplingFactors %v conflict with prior %v: %w",
				setup, factors, prior, container.ErrConsistency)
		}
	case errors.Is(err, container.ErrNotFound):
	default:
		return err
	}

	var priorType string
	err = attribute(setupAttr, "dataType", &priorType)
	switch {
	case err == nil:
		if priorType != string(md.DataType) {
			return fmt.Errorf("n5: setup %d dataType %q conflicts with prior %q: %w",
				setup, md.DataType, priorType, container.ErrConsistency)
		}
	case errors.Is(err, container.ErrNotFound):
	default:
		return err
	}

	if err := setAttributes(setupAttr, map[string]any{
		"downsamplingFactors": factors,
		"dataType":            string(md.DataType),
	}); err != nil {
		return err
	}

	resolution := container.Reverse3(md.Resolution)
	for _, tp := range md.Timepoints {
		if err := setAttributes(s.attrPath(s.TimepointKey(setup, tp)), map[string]any{
			"multiScale": true,
			"resolution": resolution,
		}); err != nil {
			return err
		}
		for level, f := range factors {
			key := s.DataKey(setup, tp, level)
			if err := setAttributes(s.attrPath(key), map[string]any{
				"downsamplingFactors": f,
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

func equalFactors(a, b [][3]float64) bool {
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
