package spimdata

import (
	"fmt"
	"sort"
)

// ResolveAttributes turns a caller's attribute request into concrete ids
// for a setup. A nil id means "pick for me": the id already recorded for
// the setup when one exists, otherwise one past the registry's largest
// id (0 for a fresh registry). An explicit id is taken as-is but must
// agree with any prior record for the setup.
//
// A document that already holds setups fixes its attribute schema, in
// both directions: a requested name with no registry is an ErrSchema,
// and so is a request that omits a name the registries declare. Every
// setup carries the same attribute axes.
func ResolveAttributes(d *Document, setupID int, want map[string]*int) (map[string]int, error) {
	var recorded map[string]int
	if s := d.findSetup(setupID); s != nil {
		recorded = make(map[string]int, len(s.Attributes))
		for _, a := range s.Attributes {
			recorded[a.Name] = a.ID
		}
	}
	schemaFixed := len(d.Sequence.ViewSetups.Setups) > 0
	if schemaFixed {
		for _, reg := range d.Sequence.ViewSetups.Registries {
			if _, ok := want[reg.Name]; !ok {
				return nil, fmt.Errorf("%w: request omits %q", ErrSchema, reg.Name)
			}
		}
	}

	out := make(map[string]int, len(want))
	for _, name := range sortedPtrKeys(want) {
		reg := d.findRegistry(name)
		if reg == nil && schemaFixed {
			return nil, fmt.Errorf("%w: %q", ErrSchema, name)
		}
		prior, hasPrior := recorded[name]

		if explicit := want[name]; explicit != nil {
			if hasPrior && prior != *explicit {
				return nil, fmt.Errorf("%w: setup %d attribute %q: %d vs %d",
					ErrAttributeConflict, setupID, name, *explicit, prior)
			}
			out[name] = *explicit
			continue
		}
		if hasPrior {
			out[name] = prior
			continue
		}
		next := 0
		if reg != nil {
			for _, e := range reg.Entries {
				if e.ID >= next {
					next = e.ID + 1
				}
			}
		}
		out[name] = next
	}
	return out, nil
}

func sortedPtrKeys(m map[string]*int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
