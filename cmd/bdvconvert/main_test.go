package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-bdv/bdv"
)

const sampleConfig = `
dtype = "uint16"
shape = [4, 8, 8]
resolution = [1.0, 0.5, 0.5]
unit = "micrometer"
setup_id = 2
setup_name = "membrane"
chunks = [2, 4, 4]
scale_factors = [2, [1, 2, 2]]
downscale_mode = "max"
on_existing = "skip"
auto_attributes = ["tile"]

[attributes]
channel = 1

[[affine]]
name = "shift"
values = [1, 0, 0, 3, 0, 1, 0, 2, 0, 0, 1, 1]
`

func TestConfigDecode(t *testing.T) {
	var cfg config
	_, err := toml.Decode(sampleConfig, &cfg)
	require.NoError(t, err)

	assert.Equal(t, "uint16", cfg.DType)
	assert.Equal(t, []int64{4, 8, 8}, cfg.Shape)
	require.NotNil(t, cfg.SetupID)
	assert.Equal(t, 2, *cfg.SetupID)
	assert.Equal(t, "max", cfg.Mode)
	assert.Equal(t, "skip", cfg.OnExisting)

	factors, err := parseFactors(cfg.ScaleFactors)
	require.NoError(t, err)
	assert.Equal(t, []bdv.Factor{{2, 2, 2}, {1, 2, 2}}, factors)

	require.Len(t, cfg.Affines, 1)
	assert.Equal(t, "shift", cfg.Affines[0].Name)
	assert.Len(t, cfg.Affines[0].Values, 12)

	attrs := attributeRequest(&cfg)
	require.NotNil(t, attrs["channel"])
	assert.Equal(t, 1, *attrs["channel"])
	_, ok := attrs["tile"]
	assert.True(t, ok)
	assert.Nil(t, attrs["tile"])
}

func TestParseFactorsRejectsBadEntries(t *testing.T) {
	_, err := parseFactors([]any{"two"})
	assert.Error(t, err)
	_, err = parseFactors([]any{[]any{int64(1), int64(2)}})
	assert.Error(t, err)
}

func TestLoadVolume(t *testing.T) {
	dir := t.TempDir()
	raw := filepath.Join(dir, "vol.raw")
	require.NoError(t, os.WriteFile(raw, make([]byte, 2*2*2*2), 0o644))

	cfg := config{DType: "uint16", Shape: []int64{2, 2, 2}}
	vol, err := loadVolume(&cfg, raw)
	require.NoError(t, err)
	assert.Equal(t, [3]int64{2, 2, 2}, vol.Shape)

	cfg.Shape = []int64{2, 2}
	_, err = loadVolume(&cfg, raw)
	assert.Error(t, err)
}
