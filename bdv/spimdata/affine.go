package spimdata

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Affine is one named 3x4 row-major transform, the XML affine text split
// into its 12 coefficients.
type Affine struct {
	Name   string
	Values [12]float64
}

// NewAffine validates and wraps a 12-coefficient transform. All values
// must be finite.
func NewAffine(name string, vals []float64) (Affine, error) {
	if len(vals) != 12 {
		return Affine{}, fmt.Errorf("spimdata: affine %q: want 12 coefficients, got %d", name, len(vals))
	}
	var a Affine
	a.Name = name
	for i, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Affine{}, fmt.Errorf("spimdata: affine %q: coefficient %d is not finite", name, i)
		}
		a.Values[i] = v
	}
	return a, nil
}

// ScalingAffine is the default calibration transform of a view: a pure
// scaling by the voxel size. res is in (z, y, x) order; the diagonal is
// laid out (x, y, z) to match the XML axis order.
func ScalingAffine(res [3]float64) Affine {
	return Affine{Values: [12]float64{
		res[2], 0, 0, 0,
		0, res[1], 0, 0,
		0, 0, res[0], 0,
	}}
}

// text renders the coefficients as the space-separated XML form.
func (a Affine) text() string {
	parts := make([]string, len(a.Values))
	for i, v := range a.Values {
		parts[i] = formatFloat(v)
	}
	return strings.Join(parts, " ")
}

func parseAffineText(s string) ([]float64, error) {
	fields := strings.Fields(s)
	if len(fields) != 12 {
		return nil, fmt.Errorf("affine text: want 12 coefficients, got %d", len(fields))
	}
	out := make([]float64, 12)
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("affine text: bad coefficient %q", f)
		}
		out[i] = v
	}
	return out, nil
}
