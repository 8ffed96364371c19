// Command bdvconvert converts a raw binary volume into a BigDataViewer
// dataset. The volume's shape, sample type and conversion parameters come
// from a TOML description file:
//
//	dtype = "uint16"
//	shape = [64, 128, 128]            # z y x
//	resolution = [1.0, 0.5, 0.5]      # z y x
//	unit = "micrometer"
//	chunks = [32, 32, 32]
//	scale_factors = [2, [1, 2, 2]]    # scalar or per-axis per stage
//	downscale_mode = "mean"
//	on_existing = "fail"              # fail | overwrite | skip
//
// Usage:
//
//	bdvconvert -config volume.toml input.raw output.h5
//
// The output extension picks the container (.h5/.hdf/.hdf5 or .n5, or
// .xml next to an existing container).
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/cheggaaa/pb/v3"
	"github.com/pkg/errors"
	"github.com/pkg/profile"
	"github.com/sirupsen/logrus"

	"github.com/robert-malhotra/go-bdv/bdv"
	"github.com/robert-malhotra/go-bdv/bdv/spimdata"
	"github.com/robert-malhotra/go-bdv/container"
)

type affineConfig struct {
	Name   string    `toml:"name"`
	Values []float64 `toml:"values"`
}

type config struct {
	DType      string    `toml:"dtype"`
	Shape      []int64   `toml:"shape"`
	Resolution []float64 `toml:"resolution"`
	Unit       string    `toml:"unit"`

	SetupID   *int   `toml:"setup_id"`
	SetupName string `toml:"setup_name"`
	Timepoint int    `toml:"timepoint"`

	Chunks       []int64 `toml:"chunks"`
	ScaleFactors []any   `toml:"scale_factors"`
	Mode         string  `toml:"downscale_mode"`

	TargetDType string `toml:"target_dtype"`
	UnsafeCast  bool   `toml:"unsafe_cast"`
	OnExisting  string `toml:"on_existing"`

	// Attributes maps attribute names to explicit ids; names listed in
	// auto_attributes get their id assigned from the document.
	Attributes     map[string]int `toml:"attributes"`
	AutoAttributes []string       `toml:"auto_attributes"`

	Affines []affineConfig `toml:"affine"`
}

func main() {
	var (
		configPath  = flag.String("config", "", "TOML volume description (required)")
		verbose     = flag.Bool("v", false, "debug logging")
		profileMode = flag.Bool("profile", false, "write a CPU profile to the working directory")
	)
	flag.Parse()

	log := logrus.New()
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	if *configPath == "" || flag.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "usage: bdvconvert -config volume.toml input.raw output.{h5,n5,xml}")
		os.Exit(2)
	}

	if *profileMode {
		defer profile.Start(profile.ProfilePath(".")).Stop()
	}

	if err := run(*configPath, flag.Arg(0), flag.Arg(1), log); err != nil {
		log.Fatal(err)
	}
}

func run(configPath, input, output string, log *logrus.Logger) error {
	var cfg config
	if _, err := toml.DecodeFile(configPath, &cfg); err != nil {
		return errors.Wrapf(err, "read config %s", configPath)
	}

	vol, err := loadVolume(&cfg, input)
	if err != nil {
		return err
	}

	opts, prog, err := buildOptions(&cfg, log)
	if err != nil {
		return err
	}

	err = bdv.Convert(vol, output, opts...)
	prog.finish()
	return err
}

// progress lazily starts a terminal bar on the first callback, once the
// total block count is known.
type progress struct {
	bar *pb.ProgressBar
}

func (p *progress) update(done, total int) {
	if p.bar == nil {
		p.bar = pb.New(total).Start()
	}
	p.bar.SetCurrent(int64(done))
}

func (p *progress) finish() {
	if p.bar != nil {
		p.bar.Finish()
	}
}

// loadVolume reads the raw sample bytes and wraps them with the shape and
// dtype from the config.
func loadVolume(cfg *config, input string) (*bdv.Volume, error) {
	dt, err := container.ParseDataType(cfg.DType)
	if err != nil {
		return nil, errors.Wrap(err, "config dtype")
	}
	shape, err := triple(cfg.Shape)
	if err != nil {
		return nil, errors.Wrap(err, "config shape")
	}
	data, err := os.ReadFile(input)
	if err != nil {
		return nil, errors.Wrapf(err, "read volume %s", input)
	}
	return bdv.NewVolume(dt, shape, data)
}

func buildOptions(cfg *config, log *logrus.Logger) ([]bdv.Option, *progress, error) {
	opts := []bdv.Option{bdv.WithLogger(log)}

	if cfg.SetupID != nil {
		opts = append(opts, bdv.WithSetupID(*cfg.SetupID))
	}
	if cfg.SetupName != "" {
		opts = append(opts, bdv.WithSetupName(cfg.SetupName))
	}
	opts = append(opts, bdv.WithTimepoint(cfg.Timepoint))
	if cfg.Unit != "" {
		opts = append(opts, bdv.WithUnit(cfg.Unit))
	}
	if cfg.Resolution != nil {
		res, err := tripleFloat(cfg.Resolution)
		if err != nil {
			return nil, nil, errors.Wrap(err, "config resolution")
		}
		opts = append(opts, bdv.WithResolution(res[0], res[1], res[2]))
	}
	if cfg.Chunks != nil {
		chunks, err := triple(cfg.Chunks)
		if err != nil {
			return nil, nil, errors.Wrap(err, "config chunks")
		}
		opts = append(opts, bdv.WithChunks(chunks[0], chunks[1], chunks[2]))
	}
	if cfg.Mode != "" {
		opts = append(opts, bdv.WithDownsampleMode(cfg.Mode))
	}
	if cfg.ScaleFactors != nil {
		factors, err := parseFactors(cfg.ScaleFactors)
		if err != nil {
			return nil, nil, errors.Wrap(err, "config scale_factors")
		}
		opts = append(opts, bdv.WithScaleFactors(factors...))
	}
	if cfg.TargetDType != "" {
		dt, err := container.ParseDataType(cfg.TargetDType)
		if err != nil {
			return nil, nil, errors.Wrap(err, "config target_dtype")
		}
		opts = append(opts, bdv.WithDType(dt))
		opts = append(opts, bdv.WithUnsafeCast(cfg.UnsafeCast))
	}
	policy, ok := bdv.ParsePolicy(cfg.OnExisting)
	if !ok {
		return nil, nil, errors.Errorf("config on_existing: unknown policy %q", cfg.OnExisting)
	}
	opts = append(opts, bdv.WithPolicy(policy))

	if attrs := attributeRequest(cfg); attrs != nil {
		opts = append(opts, bdv.WithAttributes(attrs))
	}

	if len(cfg.Affines) > 0 {
		affines := make([]spimdata.Affine, len(cfg.Affines))
		for i, ac := range cfg.Affines {
			a, err := spimdata.NewAffine(ac.Name, ac.Values)
			if err != nil {
				return nil, nil, errors.Wrap(err, "config affine")
			}
			affines[i] = a
		}
		opts = append(opts, bdv.WithAffines(affines...))
	}

	prog := &progress{}
	opts = append(opts, bdv.WithProgress(prog.update))
	return opts, prog, nil
}

// attributeRequest merges the explicit and automatic attribute lists into
// one request map, or nil to keep the library default.
func attributeRequest(cfg *config) map[string]*int {
	if len(cfg.Attributes) == 0 && len(cfg.AutoAttributes) == 0 {
		return nil
	}
	out := make(map[string]*int, len(cfg.Attributes)+len(cfg.AutoAttributes))
	for name, id := range cfg.Attributes {
		id := id
		out[name] = &id
	}
	for _, name := range cfg.AutoAttributes {
		if _, ok := out[name]; !ok {
			out[name] = nil
		}
	}
	return out
}

// parseFactors expands the TOML scale_factors list, where each stage is
// either a scalar or a (z, y, x) triple.
func parseFactors(raw []any) ([]bdv.Factor, error) {
	factors := make([]bdv.Factor, len(raw))
	for i, entry := range raw {
		switch v := entry.(type) {
		case int64:
			factors[i] = bdv.Uniform(v)
		case []any:
			if len(v) != 3 {
				return nil, fmt.Errorf("stage %d: want 3 entries, got %d", i, len(v))
			}
			var f bdv.Factor
			for a, e := range v {
				n, ok := e.(int64)
				if !ok {
					return nil, fmt.Errorf("stage %d: non-integer entry %v", i, e)
				}
				f[a] = n
			}
			factors[i] = f
		default:
			return nil, fmt.Errorf("stage %d: want an integer or a 3-tuple, got %T", i, entry)
		}
	}
	return factors, nil
}

func triple(v []int64) ([3]int64, error) {
	if len(v) != 3 {
		return [3]int64{}, fmt.Errorf("want 3 entries, got %d", len(v))
	}
	return [3]int64{v[0], v[1], v[2]}, nil
}

func tripleFloat(v []float64) ([3]float64, error) {
	if len(v) != 3 {
		return [3]float64{}, fmt.Errorf("want 3 entries, got %d", len(v))
	}
	return [3]float64{v[0], v[1], v[2]}, nil
}
