package cityhex

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/mohammed-shakir/h3-cities/internal/core/model"
)

const (
	// CellProperty is the feature property holding the cell id.
	CellProperty = "h"

	// CRS84 is EPSG:4326 with lon/lat axis order, as written into GeoJSON files.
	CRS84 = "urn:ogc:def:crs:OGC:1.3:CRS84"
)

func ToFeatureCollection(hexes model.HexCollection) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.ExtraMembers = geojson.Properties{
		"crs": map[string]any{
			"type":       "name",
			"properties": map[string]any{"name": CRS84},
		},
	}
	for _, h := range hexes {
		f := geojson.NewFeature(h.Polygon)
		f.ID = h.Cell
		f.Properties[CellProperty] = h.Cell
		fc.Append(f)
	}
	return fc
}

// FromFeatureCollection reverses ToFeatureCollection, keeping feature order.
func FromFeatureCollection(fc *geojson.FeatureCollection) (model.HexCollection, error) {
	if fc == nil {
		return nil, fmt.Errorf("nil feature collection")
	}
	out := make(model.HexCollection, 0, len(fc.Features))
	for i, f := range fc.Features {
		cell, ok := f.Properties[CellProperty].(string)
		if !ok || cell == "" {
			return nil, fmt.Errorf("feature %d: missing %q property", i, CellProperty)
		}
		poly, ok := f.Geometry.(orb.Polygon)
		if !ok {
			return nil, fmt.Errorf("feature %d: geometry is %T, want Polygon", i, f.Geometry)
		}
		out = append(out, model.HexRecord{Cell: cell, Polygon: poly})
	}
	return out, nil
}
