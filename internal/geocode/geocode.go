// Package geocode resolves place names to administrative boundaries.
package geocode

import (
	"context"
	"errors"
	"fmt"

	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/h3-cities/internal/core/model"
)

var (
	ErrNotFound            = errors.New("geocode: no result for place")
	ErrUnsupportedGeometry = errors.New("geocode: result has no polygon geometry")
)

type Resolver interface {
	Resolve(ctx context.Context, place string) (model.Boundary, error)
}

// ToBoundary maps an orb geometry onto the two boundary kinds.
func ToBoundary(g orb.Geometry) (model.Boundary, error) {
	switch v := g.(type) {
	case orb.Polygon:
		if len(v) == 0 {
			return nil, fmt.Errorf("%w: empty polygon", ErrUnsupportedGeometry)
		}
		return model.PolygonBoundary{Polygon: v}, nil
	case orb.MultiPolygon:
		if len(v) == 0 {
			return nil, fmt.Errorf("%w: empty multipolygon", ErrUnsupportedGeometry)
		}
		return model.MultiPolygonBoundary{MultiPolygon: v}, nil
	case nil:
		return nil, fmt.Errorf("%w: nil geometry", ErrUnsupportedGeometry)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedGeometry, g.GeoJSONType())
	}
}
