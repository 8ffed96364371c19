package spimdata

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Format names a BDV container flavor, used as the ImageLoader format
// attribute.
type Format string

const (
	FormatHDF5 Format = "bdv.hdf5"
	FormatN5   Format = "bdv.n5"
)

// Valid reports whether f is a known container format.
func (f Format) Valid() bool { return f == FormatHDF5 || f == FormatN5 }

// dataElement returns the loader child element carrying the data path.
func (f Format) dataElement() string {
	if f == FormatN5 {
		return "n5"
	}
	return "hdf5"
}

// Document is a parsed SpimData v0.2 tree.
type Document struct {
	XMLName       xml.Name          `xml:"SpimData"`
	Version       string            `xml:"version,attr"`
	BasePath      TypedValue        `xml:"BasePath"`
	Sequence      Sequence          `xml:"SequenceDescription"`
	Registrations ViewRegistrations `xml:"ViewRegistrations"`

	// path is where the document was loaded from or last saved to,
	// needed to resolve the relative data path.
	path string
}

// TypedValue is a text element with a type attribute, used for the
// relative BasePath and data path elements.
type TypedValue struct {
	Type  string `xml:"type,attr"`
	Value string `xml:",chardata"`
}

// Sequence is the SequenceDescription element.
type Sequence struct {
	Loader     ImageLoader `xml:"ImageLoader"`
	ViewSetups ViewSetups  `xml:"ViewSetups"`
	Timepoints Timepoints  `xml:"Timepoints"`
}

// ViewSetups holds the per-setup records and the global attribute
// registries.
type ViewSetups struct {
	Setups     []ViewSetup         `xml:"ViewSetup"`
	Registries []AttributeRegistry `xml:"Attributes"`
}

// ViewSetup is one view setup record. Size and voxel size are stored as
// their XML text, "x y z" ordered.
type ViewSetup struct {
	ID         int             `xml:"id"`
	Name       string          `xml:"name"`
	Size       string          `xml:"size"`
	VoxelSize  VoxelSize       `xml:"voxelSize"`
	Attributes SetupAttributes `xml:"attributes"`
}

// VoxelSize is the physical voxel extent of a setup.
type VoxelSize struct {
	Unit string `xml:"unit"`
	Size string `xml:"size"`
}

// Timepoints is the global timepoint range. The range is empty while
// First > Last; merging the first view initializes it.
type Timepoints struct {
	Type  string `xml:"type,attr"`
	First int    `xml:"first"`
	Last  int    `xml:"last"`
}

// ViewRegistrations holds the affine transforms per (timepoint, setup).
type ViewRegistrations struct {
	Items []ViewRegistration `xml:"ViewRegistration"`
}

// ViewRegistration is the ordered transform list of one (timepoint,
// setup) pair.
type ViewRegistration struct {
	Timepoint  int             `xml:"timepoint,attr"`
	Setup      int             `xml:"setup,attr"`
	Transforms []ViewTransform `xml:"ViewTransform"`
}

// ViewTransform is one affine entry; Name is omitted for unnamed
// transforms.
type ViewTransform struct {
	Type   string `xml:"type,attr"`
	Name   string `xml:"Name,omitempty"`
	Affine string `xml:"affine"`
}

// New creates an empty document for the given container format. dataPath
// is stored relative to the XML file.
func New(format Format, dataPath string) *Document {
	return &Document{
		Version:  "0.2",
		BasePath: TypedValue{Type: "relative", Value: "."},
		Sequence: Sequence{
			Loader: ImageLoader{Format: format, DataPath: dataPath},
			// Empty range until the first merge.
			Timepoints: Timepoints{Type: "range", First: 0, Last: -1},
		},
	}
}

// Load parses the document at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("spimdata: load %s: %w", path, err)
	}
	var doc Document
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("spimdata: parse %s: %w", path, err)
	}
	if doc.Version != "0.2" {
		return nil, fmt.Errorf("spimdata: %s: unsupported SpimData version %q", path, doc.Version)
	}
	doc.path = path
	return &doc, nil
}

// Save re-serializes the whole tree, pretty-indented, to path.
func (d *Document) Save(path string) error {
	out, err := xml.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("spimdata: marshal: %w", err)
	}
	data := append([]byte(xml.Header), out...)
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("spimdata: save %s: %w", path, err)
	}
	d.path = path
	return nil
}

// Format returns the container format recorded in the image loader.
func (d *Document) Format() Format {
	return d.Sequence.Loader.Format
}

// DataPath returns the data path exactly as recorded, relative to the
// XML file.
func (d *Document) DataPath() string {
	return d.Sequence.Loader.DataPath
}

// DataPathAbs resolves the data path against the document's file
// location. It fails on a document that was never loaded or saved.
func (d *Document) DataPathAbs() (string, error) {
	raw := d.DataPath()
	if filepath.IsAbs(raw) {
		return raw, nil
	}
	if d.path == "" {
		return "", fmt.Errorf("spimdata: document has no file location to resolve %q against", raw)
	}
	return filepath.Join(filepath.Dir(d.path), raw), nil
}

// TimeRange returns the declared [first, last] timepoint range.
func (d *Document) TimeRange() (first, last int) {
	return d.Sequence.Timepoints.First, d.Sequence.Timepoints.Last
}

// findSetup returns the setup record with the given id, or nil.
func (d *Document) findSetup(id int) *ViewSetup {
	for i := range d.Sequence.ViewSetups.Setups {
		if d.Sequence.ViewSetups.Setups[i].ID == id {
			return &d.Sequence.ViewSetups.Setups[i]
		}
	}
	return nil
}

// findRegistry returns the attribute registry with the given name, or nil.
func (d *Document) findRegistry(name string) *AttributeRegistry {
	for i := range d.Sequence.ViewSetups.Registries {
		if d.Sequence.ViewSetups.Registries[i].Name == name {
			return &d.Sequence.ViewSetups.Registries[i]
		}
	}
	return nil
}

// NextSetupID returns the smallest unused setup id.
func (d *Document) NextSetupID() int {
	next := 0
	for _, s := range d.Sequence.ViewSetups.Setups {
		if s.ID >= next {
			next = s.ID + 1
		}
	}
	return next
}

// HasSetup reports whether a setup record exists for id.
func (d *Document) HasSetup(id int) bool {
	return d.findSetup(id) != nil
}

// Resolution returns a setup's voxel size in (z, y, x) order, reversed
// from the (x, y, z) storage order.
func (d *Document) Resolution(setup int) ([3]float64, error) {
	s := d.findSetup(setup)
	if s == nil {
		return [3]float64{}, fmt.Errorf("%w: setup %d", ErrNotFound, setup)
	}
	xyz, err := parseFloats3(s.VoxelSize.Size)
	if err != nil {
		return [3]float64{}, fmt.Errorf("spimdata: setup %d voxel size: %w", setup, err)
	}
	return [3]float64{xyz[2], xyz[1], xyz[0]}, nil
}

// Size returns a setup's full-resolution shape in (z, y, x) order.
func (d *Document) Size(setup int) ([3]int64, error) {
	s := d.findSetup(setup)
	if s == nil {
		return [3]int64{}, fmt.Errorf("%w: setup %d", ErrNotFound, setup)
	}
	xyz, err := parseInts3(s.Size)
	if err != nil {
		return [3]int64{}, fmt.Errorf("spimdata: setup %d size: %w", setup, err)
	}
	return [3]int64{xyz[2], xyz[1], xyz[0]}, nil
}

// SetupAttributes returns a setup's attribute-id mapping.
func (d *Document) SetupAttributes(setup int) (map[string]int, error) {
	s := d.findSetup(setup)
	if s == nil {
		return nil, fmt.Errorf("%w: setup %d", ErrNotFound, setup)
	}
	out := make(map[string]int, len(s.Attributes))
	for _, a := range s.Attributes {
		out[a.Name] = a.ID
	}
	return out, nil
}

// Affines returns the named transforms of one (setup, timepoint) pair.
// A transform stored without a name comes back as affine<i> by list
// position.
func (d *Document) Affines(setup, timepoint int) (map[string][]float64, error) {
	for _, reg := range d.Registrations.Items {
		if reg.Setup != setup || reg.Timepoint != timepoint {
			continue
		}
		out := make(map[string][]float64, len(reg.Transforms))
		for i, tf := range reg.Transforms {
			name := tf.Name
			if name == "" {
				name = fmt.Sprintf("affine%d", i)
			}
			vals, err := parseAffineText(tf.Affine)
			if err != nil {
				return nil, fmt.Errorf("spimdata: setup %d timepoint %d: %w", setup, timepoint, err)
			}
			out[name] = vals
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: registration for setup %d timepoint %d", ErrNotFound, setup, timepoint)
}

// RenameAttribute changes the display name bound to an id in a registry.
// This is the only sanctioned way to change an existing binding.
func (d *Document) RenameAttribute(registry string, id int, name string) error {
	reg := d.findRegistry(registry)
	if reg == nil {
		return fmt.Errorf("%w: attribute registry %q", ErrNotFound, registry)
	}
	for i := range reg.Entries {
		if reg.Entries[i].ID == id {
			reg.Entries[i].Name = name
			return nil
		}
	}
	return fmt.Errorf("%w: id %d in registry %q", ErrNotFound, id, registry)
}

// formatInts3 renders a triple as the "a b c" XML text form.
func formatInts3(v [3]int64) string {
	return fmt.Sprintf("%d %d %d", v[0], v[1], v[2])
}

func parseInts3(s string) ([3]int64, error) {
	fields := strings.Fields(s)
	if len(fields) != 3 {
		return [3]int64{}, fmt.Errorf("want 3 integers, got %q", s)
	}
	var out [3]int64
	for i, f := range fields {
		v, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return [3]int64{}, fmt.Errorf("bad integer %q", f)
		}
		out[i] = v
	}
	return out, nil
}

func formatFloats3(v [3]float64) string {
	return formatFloat(v[0]) + " " + formatFloat(v[1]) + " " + formatFloat(v[2])
}

func parseFloats3(s string) ([3]float64, error) {
	fields := strings.Fields(s)
	if len(fields) != 3 {
		return [3]float64{}, fmt.Errorf("want 3 floats, got %q", s)
	}
	var out [3]float64
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return [3]float64{}, fmt.Errorf("bad float %q", f)
		}
		out[i] = v
	}
	return out, nil
}

// formatFloat renders a float the shortest way that round-trips.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
