package bdv

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/robert-malhotra/go-bdv/bdv/spimdata"
)

// target names the resolved output locations of a conversion: the
// container data path, the XML sibling and the container format.
type target struct {
	format   spimdata.Format
	dataPath string
	xmlPath  string
}

// dataExtensions maps recognised container extensions to their format, in
// the order sibling detection probes them.
var dataExtensions = []struct {
	ext    string
	format spimdata.Format
}{
	{".h5", spimdata.FormatHDF5},
	{".hdf", spimdata.FormatHDF5},
	{".hdf5", spimdata.FormatHDF5},
	{".n5", spimdata.FormatN5},
}

// normalizeOutputPath resolves the conversion target from one output
// path. A container extension picks the format directly and the XML goes
// to the same-stem sibling. An .xml path keeps an existing same-stem data
// sibling if one is present, defaulting to a new .h5 otherwise. An
// extension-less path gets .h5 and .xml appended.
func normalizeOutputPath(out string) (target, error) {
	ext := strings.ToLower(filepath.Ext(out))
	stem := strings.TrimSuffix(out, filepath.Ext(out))

	if ext == "" {
		return target{format: spimdata.FormatHDF5, dataPath: out + ".h5", xmlPath: out + ".xml"}, nil
	}

	for _, de := range dataExtensions {
		if ext == de.ext {
			return target{format: de.format, dataPath: out, xmlPath: stem + ".xml"}, nil
		}
	}
	if ext == ".xml" {
		for _, de := range dataExtensions {
			candidate := stem + de.ext
			if _, err := os.Stat(candidate); err == nil {
				return target{format: de.format, dataPath: candidate, xmlPath: out}, nil
			}
		}
		return target{format: spimdata.FormatHDF5, dataPath: stem + ".h5", xmlPath: out}, nil
	}
	return target{}, fmt.Errorf("bdv: output %q: want a .h5, .hdf, .hdf5, .n5 or .xml path", out)
}
