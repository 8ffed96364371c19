// Package spimdata builds, merges and reads the SpimData v0.2 XML
// document that accompanies a BigDataViewer container.
//
// The document is handled as a typed tree: Load parses a whole file,
// Merge applies one view's worth of changes as a pure in-memory
// transform, and Save re-serializes the whole tree pretty-indented.
// There is no incremental on-disk patching.
package spimdata

import "errors"

// Merge reconciliation failures, one per immutable ViewSetup field.
var (
	ErrNameMismatch       = errors.New("spimdata: setup name differs from prior record")
	ErrSizeMismatch       = errors.New("spimdata: setup size differs from prior record")
	ErrUnitMismatch       = errors.New("spimdata: setup unit differs from prior record")
	ErrVoxelSizeMismatch  = errors.New("spimdata: setup voxel size differs from prior record")
	ErrAttributesMismatch = errors.New("spimdata: setup attributes differ from prior record")
)

var (
	// ErrNotFound signals a missing setup, registry entry or registration.
	ErrNotFound = errors.New("spimdata: not found")

	// ErrSchema signals an attribute request that does not line up with an
	// existing document's registries: a name with no registry, or a
	// registered name missing from the request.
	ErrSchema = errors.New("spimdata: attribute set differs from document registries")

	// ErrAttributeConflict signals an explicit attribute id that disagrees
	// with the id recorded for the setup.
	ErrAttributeConflict = errors.New("spimdata: attribute id conflicts with prior record")
)
