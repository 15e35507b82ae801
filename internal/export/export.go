// Package export names and writes tessellation GeoJSON files.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb/geojson"
)

const ContentType = "application/geo+json"

var cleaner = strings.NewReplacer(" ", "_", ",", "_", "/", "_", `\`, "_")

// FileName is "<place>_resolution_<res>.geojson" with spaces, commas
// and path separators in place replaced by underscores.
func FileName(place string, res int) string {
	return cleaner.Replace(place) + "_resolution_" + strconv.Itoa(res) + ".geojson"
}

func Encode(w io.Writer, fc *geojson.FeatureCollection) error {
	if fc == nil {
		return fmt.Errorf("export: nil feature collection")
	}
	if err := json.NewEncoder(w).Encode(fc); err != nil {
		return fmt.Errorf("export: encode: %w", err)
	}
	return nil
}

// WriteFile writes fc to path, replacing any existing file.
func WriteFile(path string, fc *geojson.FeatureCollection) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("export: close %s: %w", path, cerr)
		}
	}()
	return Encode(f, fc)
}
