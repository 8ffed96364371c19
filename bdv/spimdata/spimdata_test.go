package spimdata

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testView(setup, timepoint int) View {
	return View{
		SetupID:    setup,
		Shape:      [3]int64{8, 16, 32},
		Resolution: [3]float64{2, 0.5, 0.5},
		Unit:       "micrometer",
		Attributes: map[string]int{"channel": 0},
		Timepoint:  timepoint,
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	doc := New(FormatHDF5, "data.h5")
	require.NoError(t, doc.Merge(testView(0, 0)))

	path := filepath.Join(t.TempDir(), "data.xml")
	require.NoError(t, doc.Save(path))

	got, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, FormatHDF5, got.Format())
	assert.Equal(t, "data.h5", got.DataPath())

	abs, err := got.DataPathAbs()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "data.h5"), abs)

	first, last := got.TimeRange()
	assert.Equal(t, 0, first)
	assert.Equal(t, 0, last)

	size, err := got.Size(0)
	require.NoError(t, err)
	assert.Equal(t, [3]int64{8, 16, 32}, size)

	res, err := got.Resolution(0)
	require.NoError(t, err)
	assert.Equal(t, [3]float64{2, 0.5, 0.5}, res)

	attrs, err := got.SetupAttributes(0)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"channel": 0}, attrs)
}

func TestXMLShape(t *testing.T) {
	doc := New(FormatN5, "data.n5")
	require.NoError(t, doc.Merge(testView(0, 0)))

	path := filepath.Join(t.TempDir(), "data.xml")
	require.NoError(t, doc.Save(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)

	assert.Contains(t, text, `<SpimData version="0.2">`)
	assert.Contains(t, text, `<ImageLoader format="bdv.n5">`)
	assert.Contains(t, text, `<n5 type="relative">data.n5</n5>`)
	assert.Contains(t, text, `<BasePath type="relative">.</BasePath>`)
	assert.Contains(t, text, "<name>Setup0</name>")
	assert.Contains(t, text, `<Attributes name="channel">`)
	assert.Contains(t, text, "<Channel>")
	assert.Contains(t, text, "<size>32 16 8</size>")
	assert.Contains(t, text, "<size>0.5 0.5 2</size>")
	assert.Contains(t, text, `<ViewRegistration timepoint="0" setup="0">`)
	assert.NotContains(t, text, "<Name>")
}

func TestRemergeIsIdempotent(t *testing.T) {
	doc := New(FormatHDF5, "data.h5")
	require.NoError(t, doc.Merge(testView(0, 0)))

	path := filepath.Join(t.TempDir(), "data.xml")
	require.NoError(t, doc.Save(path))
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, doc.Merge(testView(0, 0)))
	require.NoError(t, doc.Save(path))
	after, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, before, after)
}

func TestMismatchLeavesDocumentUnchanged(t *testing.T) {
	doc := New(FormatHDF5, "data.h5")
	require.NoError(t, doc.Merge(testView(0, 0)))

	v := testView(0, 1)
	v.Name = "other"
	err := doc.Merge(v)
	assert.ErrorIs(t, err, ErrNameMismatch)

	// The failed merge must not have widened the timepoint range.
	first, last := doc.TimeRange()
	assert.Equal(t, 0, first)
	assert.Equal(t, 0, last)

	v = testView(0, 0)
	v.Shape = [3]int64{9, 16, 32}
	assert.ErrorIs(t, doc.Merge(v), ErrSizeMismatch)

	v = testView(0, 0)
	v.Unit = "pixel"
	assert.ErrorIs(t, doc.Merge(v), ErrUnitMismatch)

	v = testView(0, 0)
	v.Resolution = [3]float64{1, 1, 1}
	assert.ErrorIs(t, doc.Merge(v), ErrVoxelSizeMismatch)

	v = testView(0, 0)
	v.Attributes = map[string]int{"channel": 1}
	assert.ErrorIs(t, doc.Merge(v), ErrAttributesMismatch)
}

func TestTimepointRangeWidens(t *testing.T) {
	doc := New(FormatHDF5, "data.h5")
	require.NoError(t, doc.Merge(testView(0, 2)))
	require.NoError(t, doc.Merge(testView(0, 0)))
	require.NoError(t, doc.Merge(testView(0, 5)))

	first, last := doc.TimeRange()
	assert.Equal(t, 0, first)
	assert.Equal(t, 5, last)
}

func TestDefaultAffineIsScaling(t *testing.T) {
	doc := New(FormatHDF5, "data.h5")
	require.NoError(t, doc.Merge(testView(0, 0)))

	affines, err := doc.Affines(0, 0)
	require.NoError(t, err)
	require.Len(t, affines, 1)
	assert.Equal(t, []float64{
		0.5, 0, 0, 0,
		0, 0.5, 0, 0,
		0, 0, 2, 0,
	}, affines["affine0"])
}

func TestNamedAffinesRoundTrip(t *testing.T) {
	doc := New(FormatHDF5, "data.h5")
	shift, err := NewAffine("shift", []float64{1, 0, 0, 3, 0, 1, 0, 2, 0, 0, 1, 1})
	require.NoError(t, err)
	v := testView(0, 0)
	v.Affines = []Affine{shift}
	require.NoError(t, doc.Merge(v))

	path := filepath.Join(t.TempDir(), "data.xml")
	require.NoError(t, doc.Save(path))
	got, err := Load(path)
	require.NoError(t, err)

	affines, err := got.Affines(0, 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0, 0, 3, 0, 1, 0, 2, 0, 0, 1, 1}, affines["shift"])
}

func TestNewAffineValidation(t *testing.T) {
	_, err := NewAffine("short", []float64{1, 2, 3})
	assert.Error(t, err)
	_, err = NewAffine("nan", []float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, nan()})
	assert.Error(t, err)
}

func nan() float64 {
	var zero float64
	return zero / zero
}

func TestResolveAttributes(t *testing.T) {
	doc := New(FormatHDF5, "data.h5")

	// Fresh document: nil id allocates from an empty registry.
	got, err := ResolveAttributes(doc, 0, map[string]*int{"channel": nil})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"channel": 0}, got)

	require.NoError(t, doc.Merge(testView(0, 0)))

	// New setup in an existing document: next free registry id.
	got, err = ResolveAttributes(doc, 1, map[string]*int{"channel": nil})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"channel": 1}, got)

	// Existing setup: nil resolves to the recorded id.
	got, err = ResolveAttributes(doc, 0, map[string]*int{"channel": nil})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"channel": 0}, got)

	// Explicit id that contradicts the record fails.
	two := 2
	_, err = ResolveAttributes(doc, 0, map[string]*int{"channel": &two})
	assert.ErrorIs(t, err, ErrAttributeConflict)

	// A name outside an existing document's schema fails.
	_, err = ResolveAttributes(doc, 1, map[string]*int{"channel": nil, "tile": nil})
	assert.ErrorIs(t, err, ErrSchema)

	// So does a request that omits a registered axis: every setup must
	// carry the same attribute names.
	_, err = ResolveAttributes(doc, 1, map[string]*int{})
	assert.ErrorIs(t, err, ErrSchema)
}

func TestRenameAttribute(t *testing.T) {
	doc := New(FormatHDF5, "data.h5")
	require.NoError(t, doc.Merge(testView(0, 0)))

	require.NoError(t, doc.RenameAttribute("channel", 0, "GFP"))
	reg := doc.findRegistry("channel")
	require.NotNil(t, reg)
	assert.Equal(t, "GFP", reg.Entries[0].Name)

	assert.ErrorIs(t, doc.RenameAttribute("tile", 0, "x"), ErrNotFound)
	assert.ErrorIs(t, doc.RenameAttribute("channel", 9, "x"), ErrNotFound)
}

func TestRemoveView(t *testing.T) {
	doc := New(FormatHDF5, "data.h5")
	require.NoError(t, doc.Merge(testView(0, 0)))
	require.NoError(t, doc.Merge(testView(1, 0)))
	require.NoError(t, doc.Merge(testView(0, 1)))

	doc.RemoveView(0)
	assert.False(t, doc.HasSetup(0))
	assert.True(t, doc.HasSetup(1))
	for _, reg := range doc.Registrations.Items {
		assert.NotEqual(t, 0, reg.Setup)
	}

	assert.Equal(t, 2, doc.NextSetupID())
}

func TestLoadRejectsWrongVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.xml")
	require.NoError(t, os.WriteFile(path, []byte(`<SpimData version="0.1"></SpimData>`), 0o644))
	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "version"))
}
