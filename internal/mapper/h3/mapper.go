package h3mapper

import (
	"errors"
	"fmt"
	"sort"

	"github.com/paulmach/orb"
	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/h3-cities/internal/core/model"
)

type Mapper struct{}

func New() *Mapper { return &Mapper{} }

// CellsForPolygon fills one polygon (outer ring plus holes) with cells at res.
func (m *Mapper) CellsForPolygon(poly orb.Polygon, res int) (model.Cells, error) {
	if err := validateRes(res); err != nil {
		return nil, err
	}
	if len(poly) == 0 {
		return nil, errors.New("empty polygon")
	}
	outer := toLoop(poly[0])
	if len(outer) < 3 {
		return nil, errors.New("outer ring has < 3 distinct vertices")
	}
	var holes []h3.GeoLoop
	for i := 1; i < len(poly); i++ {
		h := toLoop(poly[i])
		if len(h) < 3 {
			return nil, fmt.Errorf("hole %d has < 3 distinct vertices", i-1)
		}
		holes = append(holes, h)
	}
	return polyfillOne(outer, holes, res)
}

// CellBoundary returns the cell outline as reported by h3, in (lat,lng) order.
func (m *Mapper) CellBoundary(cell string) ([]h3.LatLng, error) {
	var c h3.Cell
	if err := c.UnmarshalText([]byte(cell)); err != nil {
		return nil, fmt.Errorf("parse cell: %w", err)
	}
	if !c.IsValid() {
		return nil, fmt.Errorf("invalid h3 cell %q", cell)
	}
	b, err := c.Boundary()
	if err != nil {
		return nil, fmt.Errorf("h3 boundary: %w", err)
	}
	if len(b) == 0 {
		return nil, fmt.Errorf("empty boundary for cell %s", cell)
	}
	return []h3.LatLng(b), nil
}

func validateRes(res int) error {
	if res < model.MinRes || res > model.MaxRes {
		return fmt.Errorf("invalid H3 resolution %d (must be 0..15)", res)
	}
	return nil
}

// Convert an orb ring [[lon,lat], ...] to an h3.GeoLoop (in degrees).
// If the ring is explicitly closed (last == first), drop the trailing duplicate.
func toLoop(ring orb.Ring) h3.GeoLoop {
	loop := make(h3.GeoLoop, 0, len(ring))
	for _, p := range ring {
		loop = append(loop, h3.LatLng{Lat: p.Lat(), Lng: p.Lon()})
	}
	if len(loop) >= 2 {
		last := loop[len(loop)-1]
		first := loop[0]
		if last.Lat == first.Lat && last.Lng == first.Lng {
			loop = loop[:len(loop)-1]
		}
	}
	return loop
}

// polyfillOne computes unique cells and returns them sorted for determinism.
func polyfillOne(outer h3.GeoLoop, holes []h3.GeoLoop, res int) (model.Cells, error) {
	poly := h3.GeoPolygon{
		GeoLoop: outer,
		Holes:   holes,
	}

	indexes, err := h3.PolygonToCells(poly, res)
	if err != nil {
		return nil, fmt.Errorf("h3 polyfill: %w", err)
	}

	out := make(model.Cells, 0, len(indexes))
	seen := make(map[string]struct{}, len(indexes))
	for _, idx := range indexes {
		s := idx.String()
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out, nil
}
