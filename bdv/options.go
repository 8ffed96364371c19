package bdv

import (
	"github.com/sirupsen/logrus"

	"github.com/robert-malhotra/go-bdv/bdv/spimdata"
	"github.com/robert-malhotra/go-bdv/container"
)

// Policy decides what Convert does when the target setup id already holds
// data in the container.
type Policy int

const (
	// PolicyFail aborts the conversion.
	PolicyFail Policy = iota
	// PolicyOverwrite deletes the setup's data, metadata and XML view,
	// then converts from scratch.
	PolicyOverwrite
	// PolicySkip returns without writing anything.
	PolicySkip
)

func (p Policy) String() string {
	switch p {
	case PolicyFail:
		return "fail"
	case PolicyOverwrite:
		return "overwrite"
	case PolicySkip:
		return "skip"
	}
	return "unknown"
}

// ParsePolicy resolves a policy name.
func ParsePolicy(s string) (Policy, bool) {
	switch s {
	case "fail", "":
		return PolicyFail, true
	case "overwrite":
		return PolicyOverwrite, true
	case "skip":
		return PolicySkip, true
	}
	return 0, false
}

// Factor is one pyramid stage's per-axis downsampling factor in (z, y, x)
// order.
type Factor [3]int64

// Uniform builds an isotropic stage factor.
func Uniform(f int64) Factor { return Factor{f, f, f} }

// PerAxis builds an anisotropic stage factor from (z, y, x) components.
func PerAxis(z, y, x int64) Factor { return Factor{z, y, x} }

// ProgressFunc reports block-copy progress: done blocks out of total
// across all pyramid levels.
type ProgressFunc func(done, total int)

type options struct {
	setupID    *int
	setupName  string
	timepoint  int
	unit       string
	resolution [3]float64
	chunks     [3]int64
	factors    []Factor
	mode       string
	dtype      container.DataType
	unsafeCast bool
	policy     Policy
	attributes map[string]*int
	affines    []spimdata.Affine
	progress   ProgressFunc
	log        *logrus.Logger
}

func defaultOptions() options {
	return options{
		unit:       "pixel",
		resolution: [3]float64{1, 1, 1},
		chunks:     [3]int64{64, 64, 64},
		mode:       "nearest",
		attributes: map[string]*int{"channel": nil},
		log:        logrus.StandardLogger(),
	}
}

// Option configures a conversion.
type Option func(*options)

// WithSetupID pins the view setup id instead of allocating the next free
// one. Valid ids are 0 through 99.
func WithSetupID(id int) Option {
	return func(o *options) { o.setupID = &id }
}

// WithSetupName sets the display name of the setup. The default is the
// decimal setup id.
func WithSetupName(name string) Option {
	return func(o *options) { o.setupName = name }
}

// WithTimepoint selects the timepoint the volume belongs to. Default 0.
func WithTimepoint(t int) Option {
	return func(o *options) { o.timepoint = t }
}

// WithUnit sets the physical unit of the voxel size. Default "pixel".
func WithUnit(unit string) Option {
	return func(o *options) { o.unit = unit }
}

// WithResolution sets the voxel size in (z, y, x) order. Default (1,1,1).
func WithResolution(z, y, x float64) Option {
	return func(o *options) { o.resolution = [3]float64{z, y, x} }
}

// WithChunks sets the chunk shape in (z, y, x) order, clipped per level to
// the level's shape. Default (64,64,64).
func WithChunks(z, y, x int64) Option {
	return func(o *options) { o.chunks = [3]int64{z, y, x} }
}

// WithScaleFactors sets the pyramid stage factors. Each stage downsamples
// the previous level. No factors means level 0 only.
func WithScaleFactors(factors ...Factor) Option {
	return func(o *options) { o.factors = factors }
}

// WithDownsampleMode selects the reduction: nearest, mean, max or min.
// Default "nearest".
func WithDownsampleMode(mode string) Option {
	return func(o *options) { o.mode = mode }
}

// WithDType converts samples to dt during transfer. Widening conversions
// are value-preserving; narrowing ones additionally need WithUnsafeCast.
func WithDType(dt container.DataType) Option {
	return func(o *options) { o.dtype = dt }
}

// WithUnsafeCast permits lossy dtype conversion, clamping values at the
// target range.
func WithUnsafeCast(ok bool) Option {
	return func(o *options) { o.unsafeCast = ok }
}

// WithPolicy sets the existing-setup policy. Default PolicyFail.
func WithPolicy(p Policy) Option {
	return func(o *options) { o.policy = p }
}

// WithAttributes sets the view attributes. A nil id requests automatic
// assignment. The default is {"channel": nil}.
func WithAttributes(attrs map[string]*int) Option {
	return func(o *options) { o.attributes = attrs }
}

// WithAffines sets the view registration transforms, replacing the
// default scaling transform derived from the resolution.
func WithAffines(affines ...spimdata.Affine) Option {
	return func(o *options) { o.affines = affines }
}

// WithProgress installs a block-copy progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(o *options) { o.progress = fn }
}

// WithLogger routes the pipeline's structured logs to log.
func WithLogger(log *logrus.Logger) Option {
	return func(o *options) { o.log = log }
}
