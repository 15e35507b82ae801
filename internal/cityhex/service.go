// Package cityhex turns a place name into the H3 cells covering its boundary.
package cityhex

import (
	"context"
	"errors"
	"fmt"

	"github.com/paulmach/orb/geojson"

	"github.com/mohammed-shakir/h3-cities/internal/core/model"
	"github.com/mohammed-shakir/h3-cities/internal/geocode"
	"github.com/mohammed-shakir/h3-cities/internal/mapper"
)

type Resolver interface {
	Resolve(ctx context.Context, place string) (model.Boundary, error)
}

// Interface is what consumers (HTTP, CLI, cache decorator) depend on.
type Interface interface {
	Hexagons(ctx context.Context, place string, res int) (model.HexCollection, error)
}

type Service struct {
	resolver Resolver
	grid     mapper.Interface
}

func New(r Resolver, g mapper.Interface) *Service {
	return &Service{resolver: r, grid: g}
}

// Hexagons validates input, geocodes place and fills every part of its
// boundary at res. Parts are filled in order and concatenated without
// de-duplication, so overlapping parts yield repeated cells.
func (s *Service) Hexagons(ctx context.Context, place string, res int) (model.HexCollection, error) {
	if err := ValidateResolution(res); err != nil {
		return nil, err
	}
	if err := ValidatePlace(place); err != nil {
		return nil, err
	}

	boundary, err := s.resolver.Resolve(ctx, place)
	if errors.Is(err, geocode.ErrNotFound) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, place)
	}
	if err != nil {
		return nil, err
	}
	if boundary == nil {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, place)
	}

	var cells model.Cells
	switch b := boundary.(type) {
	case model.PolygonBoundary:
		cells, err = s.grid.CellsForPolygon(b.Polygon, res)
		if err != nil {
			return nil, err
		}
	case model.MultiPolygonBoundary:
		for _, part := range b.MultiPolygon {
			pc, err := s.grid.CellsForPolygon(part, res)
			if err != nil {
				return nil, err
			}
			cells = append(cells, pc...)
		}
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedBoundary, boundary)
	}

	out := make(model.HexCollection, 0, len(cells))
	for _, c := range cells {
		poly, err := CellPolygon(s.grid, c)
		if err != nil {
			return nil, err
		}
		out = append(out, model.HexRecord{Cell: c, Polygon: poly})
	}
	return out, nil
}

// FeatureCollection is Hexagons shaped as a WGS84 GeoJSON FeatureCollection.
func (s *Service) FeatureCollection(ctx context.Context, place string, res int) (*geojson.FeatureCollection, error) {
	hexes, err := s.Hexagons(ctx, place, res)
	if err != nil {
		return nil, err
	}
	return ToFeatureCollection(hexes), nil
}
