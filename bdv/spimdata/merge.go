package spimdata

import (
	"fmt"
	"sort"
	"strconv"
)

// View is one (setup, timepoint) worth of merge input. Shape and
// Resolution are in (z, y, x) order; the document stores their reversed
// (x, y, z) text forms. An empty Affines list gets the default scaling
// transform derived from Resolution.
type View struct {
	SetupID    int
	Name       string
	Shape      [3]int64
	Resolution [3]float64
	Unit       string
	Attributes map[string]int
	Timepoint  int
	Affines    []Affine
}

// Merge folds one view into the document: it registers unseen attribute
// values, widens the timepoint range, appends or reconciles the setup
// record, and appends the view's registration unless one already exists
// for the same (timepoint, setup) pair. Re-merging an identical view is
// a no-op, so the same conversion can be replayed safely.
//
// All reconciliation runs before any mutation: a mismatch error leaves
// the document untouched.
func (d *Document) Merge(v View) error {
	if v.SetupID < 0 || v.SetupID > 99 {
		return fmt.Errorf("spimdata: setup id %d outside [0, 99]", v.SetupID)
	}

	name := v.Name
	if name == "" {
		name = fmt.Sprintf("Setup%d", v.SetupID)
	}
	sizeText := formatInts3([3]int64{v.Shape[2], v.Shape[1], v.Shape[0]})
	voxelText := formatFloats3([3]float64{v.Resolution[2], v.Resolution[1], v.Resolution[0]})

	if existing := d.findSetup(v.SetupID); existing != nil {
		if err := reconcileSetup(existing, name, sizeText, v.Unit, voxelText, v.Attributes); err != nil {
			return err
		}
	}

	for _, attrName := range sortedKeys(v.Attributes) {
		d.registerAttribute(attrName, v.Attributes[attrName])
	}

	tp := &d.Sequence.Timepoints
	if tp.First > tp.Last {
		tp.First, tp.Last = v.Timepoint, v.Timepoint
	} else {
		if v.Timepoint < tp.First {
			tp.First = v.Timepoint
		}
		if v.Timepoint > tp.Last {
			tp.Last = v.Timepoint
		}
	}

	if d.findSetup(v.SetupID) == nil {
		attrs := make(SetupAttributes, 0, len(v.Attributes))
		for _, attrName := range sortedKeys(v.Attributes) {
			attrs = append(attrs, SetupAttribute{Name: attrName, ID: v.Attributes[attrName]})
		}
		d.Sequence.ViewSetups.Setups = append(d.Sequence.ViewSetups.Setups, ViewSetup{
			ID:         v.SetupID,
			Name:       name,
			Size:       sizeText,
			VoxelSize:  VoxelSize{Unit: v.Unit, Size: voxelText},
			Attributes: attrs,
		})
	}

	d.registerView(v)
	return nil
}

// reconcileSetup checks a view against the prior record of its setup.
// Every field of an existing record is immutable.
func reconcileSetup(prior *ViewSetup, name, sizeText, unit, voxelText string, attrs map[string]int) error {
	if prior.Name != name {
		return fmt.Errorf("%w: setup %d: %q vs %q", ErrNameMismatch, prior.ID, name, prior.Name)
	}
	if prior.Size != sizeText {
		return fmt.Errorf("%w: setup %d: %q vs %q", ErrSizeMismatch, prior.ID, sizeText, prior.Size)
	}
	if prior.VoxelSize.Unit != unit {
		return fmt.Errorf("%w: setup %d: %q vs %q", ErrUnitMismatch, prior.ID, unit, prior.VoxelSize.Unit)
	}
	if prior.VoxelSize.Size != voxelText {
		return fmt.Errorf("%w: setup %d: %q vs %q", ErrVoxelSizeMismatch, prior.ID, voxelText, prior.VoxelSize.Size)
	}
	if len(prior.Attributes) != len(attrs) {
		return fmt.Errorf("%w: setup %d", ErrAttributesMismatch, prior.ID)
	}
	for _, a := range prior.Attributes {
		id, ok := attrs[a.Name]
		if !ok || id != a.ID {
			return fmt.Errorf("%w: setup %d: attribute %q", ErrAttributesMismatch, prior.ID, a.Name)
		}
	}
	return nil
}

// registerAttribute ensures the registry for name exists and carries an
// entry for id. Existing entries are never renumbered or renamed; a new
// entry's display name is the id's decimal form until RenameAttribute
// changes it.
func (d *Document) registerAttribute(name string, id int) {
	reg := d.findRegistry(name)
	if reg == nil {
		d.Sequence.ViewSetups.Registries = append(d.Sequence.ViewSetups.Registries,
			AttributeRegistry{Name: name})
		reg = &d.Sequence.ViewSetups.Registries[len(d.Sequence.ViewSetups.Registries)-1]
	}
	for _, e := range reg.Entries {
		if e.ID == id {
			return
		}
	}
	reg.Entries = append(reg.Entries, AttributeEntry{ID: id, Name: strconv.Itoa(id)})
}

// registerView appends the view's registration unless one is already
// recorded for its (timepoint, setup) pair.
func (d *Document) registerView(v View) {
	for _, reg := range d.Registrations.Items {
		if reg.Setup == v.SetupID && reg.Timepoint == v.Timepoint {
			return
		}
	}
	affines := v.Affines
	if len(affines) == 0 {
		affines = []Affine{ScalingAffine(v.Resolution)}
	}
	transforms := make([]ViewTransform, len(affines))
	for i, a := range affines {
		transforms[i] = ViewTransform{Type: "affine", Name: a.Name, Affine: a.text()}
	}
	d.Registrations.Items = append(d.Registrations.Items, ViewRegistration{
		Timepoint:  v.Timepoint,
		Setup:      v.SetupID,
		Transforms: transforms,
	})
}

// RemoveView drops a setup record and every registration referencing it.
// Attribute registries and the timepoint range are left as they are.
func (d *Document) RemoveView(setupID int) {
	setups := d.Sequence.ViewSetups.Setups[:0]
	for _, s := range d.Sequence.ViewSetups.Setups {
		if s.ID != setupID {
			setups = append(setups, s)
		}
	}
	d.Sequence.ViewSetups.Setups = setups

	regs := d.Registrations.Items[:0]
	for _, r := range d.Registrations.Items {
		if r.Setup != setupID {
			regs = append(regs, r)
		}
	}
	d.Registrations.Items = regs
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
