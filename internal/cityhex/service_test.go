package cityhex

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/h3-cities/internal/core/model"
	"github.com/mohammed-shakir/h3-cities/internal/geocode"
	h3mapper "github.com/mohammed-shakir/h3-cities/internal/mapper/h3"
)

type fakeResolver struct {
	calls int
	b     model.Boundary
	err   error
}

func (f *fakeResolver) Resolve(_ context.Context, _ string) (model.Boundary, error) {
	f.calls++
	return f.b, f.err
}

// fakeGrid hands out cells named after the polygon's first longitude so
// parts can be told apart, and a fixed hexagon for every boundary.
type fakeGrid struct {
	fillCalls     int
	boundaryCalls int
	perPart       map[float64]model.Cells
	fillErr       error
}

func (g *fakeGrid) CellsForPolygon(poly orb.Polygon, _ int) (model.Cells, error) {
	g.fillCalls++
	if g.fillErr != nil {
		return nil, g.fillErr
	}
	return g.perPart[poly[0][0][0]], nil
}

func (g *fakeGrid) CellBoundary(_ string) ([]h3.LatLng, error) {
	g.boundaryCalls++
	return []h3.LatLng{
		{Lat: 1, Lng: 10}, {Lat: 2, Lng: 11}, {Lat: 3, Lng: 11},
		{Lat: 4, Lng: 10}, {Lat: 3, Lng: 9}, {Lat: 2, Lng: 9},
	}, nil
}

func square(x float64) orb.Polygon {
	return orb.Polygon{{{x, 0}, {x + 1, 0}, {x + 1, 1}, {x, 1}, {x, 0}}}
}

func TestHexagons_InvalidResolution_NoCollaboratorCalls(t *testing.T) {
	for _, res := range []int{-1, 16, 100} {
		r := &fakeResolver{b: model.PolygonBoundary{Polygon: square(0)}}
		g := &fakeGrid{}
		s := New(r, g)

		_, err := s.Hexagons(context.Background(), "Paris, France", res)
		if !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("res=%d: want ErrInvalidArgument, got %v", res, err)
		}
		if !strings.Contains(err.Error(), "between 0 and 15") {
			t.Fatalf("res=%d: message must name the range, got %q", res, err)
		}
		if r.calls != 0 || g.fillCalls != 0 || g.boundaryCalls != 0 {
			t.Fatalf("res=%d: collaborators called (resolver=%d fill=%d boundary=%d)",
				res, r.calls, g.fillCalls, g.boundaryCalls)
		}
	}
}

func TestHexagons_InvalidPlace(t *testing.T) {
	for _, place := range []string{"", "   ", "\xff\xfe"} {
		r := &fakeResolver{}
		s := New(r, &fakeGrid{})
		if _, err := s.Hexagons(context.Background(), place, 8); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("place=%q: want ErrInvalidArgument, got %v", place, err)
		}
		if r.calls != 0 {
			t.Fatalf("place=%q: resolver must not be called", place)
		}
	}
}

func TestParseResolution_NonInteger(t *testing.T) {
	for _, raw := range []string{"8.5", "abc", "", "1e1"} {
		if _, err := ParseResolution(raw); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("raw=%q: want ErrInvalidArgument, got %v", raw, err)
		}
	}
	if _, err := ParseResolution("16"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("raw=16: want ErrInvalidArgument, got %v", err)
	}
	res, err := ParseResolution(" 8 ")
	if err != nil || res != 8 {
		t.Fatalf("raw=' 8 ': got %d, %v", res, err)
	}
}

func TestHexagons_NotFound(t *testing.T) {
	cases := map[string]*fakeResolver{
		"sentinel":     {err: fmt.Errorf("%w: %q", geocode.ErrNotFound, "x")},
		"nil boundary": {},
	}
	for name, r := range cases {
		g := &fakeGrid{}
		s := New(r, g)
		_, err := s.Hexagons(context.Background(), "Zzzznotarealplace123", 8)
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("%s: want ErrNotFound, got %v", name, err)
		}
		if g.fillCalls != 0 {
			t.Fatalf("%s: filler must not be called", name)
		}
	}
}

func TestHexagons_CollaboratorErrorsPropagateUnmodified(t *testing.T) {
	boom := errors.New("network down")
	s := New(&fakeResolver{err: boom}, &fakeGrid{})
	if _, err := s.Hexagons(context.Background(), "Paris", 8); err != boom {
		t.Fatalf("resolver error must pass through unchanged, got %v", err)
	}

	fillErr := errors.New("polyfill failed")
	s = New(&fakeResolver{b: model.PolygonBoundary{Polygon: square(0)}}, &fakeGrid{fillErr: fillErr})
	if _, err := s.Hexagons(context.Background(), "Paris", 8); err != fillErr {
		t.Fatalf("filler error must pass through unchanged, got %v", err)
	}
}

type strangeBoundary struct{ model.PolygonBoundary }

func TestHexagons_UnknownBoundaryKind(t *testing.T) {
	r := &fakeResolver{b: strangeBoundary{}}
	g := &fakeGrid{}
	_, err := New(r, g).Hexagons(context.Background(), "Paris", 8)
	if !errors.Is(err, ErrUnsupportedBoundary) {
		t.Fatalf("want ErrUnsupportedBoundary, got %v", err)
	}
	if g.fillCalls != 0 {
		t.Fatalf("filler must not run for unknown kinds")
	}
}

func TestHexagons_MultiPolygonConcatenatesWithoutDedupe(t *testing.T) {
	mp := orb.MultiPolygon{square(0), square(5), square(9)}
	g := &fakeGrid{perPart: map[float64]model.Cells{
		0: {"a", "b"},
		5: {"c"},
		9: {"b", "d", "e"}, // "b" overlaps part 0
	}}
	s := New(&fakeResolver{b: model.MultiPolygonBoundary{MultiPolygon: mp}}, g)

	got, err := s.Hexagons(context.Background(), "Archipelago", 7)
	if err != nil {
		t.Fatalf("Hexagons: %v", err)
	}
	if g.fillCalls != 3 {
		t.Fatalf("fill calls=%d want 3", g.fillCalls)
	}
	want := model.Cells{"a", "b", "c", "b", "d", "e"}
	if ids := got.CellIDs(); !reflect.DeepEqual(ids, want) {
		t.Fatalf("cells=%v want %v", ids, want)
	}
	if g.boundaryCalls != len(want) {
		t.Fatalf("boundary calls=%d want %d", g.boundaryCalls, len(want))
	}
}

func TestHexagons_RecordsAreClosedLonLatRings(t *testing.T) {
	g := &fakeGrid{perPart: map[float64]model.Cells{0: {"a"}}}
	s := New(&fakeResolver{b: model.PolygonBoundary{Polygon: square(0)}}, g)

	got, err := s.Hexagons(context.Background(), "Paris", 8)
	if err != nil {
		t.Fatalf("Hexagons: %v", err)
	}
	ring := got[0].Polygon[0]
	if len(ring) != 7 || !ring.Closed() {
		t.Fatalf("want closed 7-point ring, got %v", ring)
	}
	if ring[0] != (orb.Point{10, 1}) {
		t.Fatalf("first vertex must be (lon,lat)=(10,1); got %v", ring[0])
	}
}

func TestHexagons_Idempotent(t *testing.T) {
	m := h3mapper.New()
	r := &fakeResolver{b: model.PolygonBoundary{Polygon: parisPolygon}}
	s := New(r, m)

	a, err := s.Hexagons(context.Background(), "Paris, France", 8)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	b, err := s.Hexagons(context.Background(), "Paris, France", 8)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	ia, ib := a.CellIDs(), b.CellIDs()
	sort.Strings(ia)
	sort.Strings(ib)
	if !reflect.DeepEqual(ia, ib) {
		t.Fatalf("cell sets differ between identical calls")
	}
}

var parisPolygon = orb.Polygon{{
	{2.2241, 48.8156}, {2.4699, 48.8156}, {2.4699, 48.9022}, {2.2241, 48.9022}, {2.2241, 48.8156},
}}

func TestHexagons_ParisAtRes8_RealGrid(t *testing.T) {
	s := New(&fakeResolver{b: model.PolygonBoundary{Polygon: parisPolygon}}, h3mapper.New())

	got, err := s.Hexagons(context.Background(), "Paris, France", 8)
	if err != nil {
		t.Fatalf("Hexagons: %v", err)
	}
	if len(got) == 0 {
		t.Fatalf("expected a non-empty collection")
	}

	// cells are kept by centroid, so their outline may poke out by
	// up to one edge length (~0.5km at res 8)
	bb := parisPolygon.Bound().Pad(0.01)
	for _, rec := range got {
		ring := rec.Polygon[0]
		if len(ring) < 7 || !ring.Closed() {
			t.Fatalf("cell %s: want closed ring with >=6 distinct vertices, got %d points", rec.Cell, len(ring))
		}
		for _, p := range ring {
			if !bb.Contains(p) {
				t.Fatalf("cell %s vertex %v outside Paris bbox %v", rec.Cell, p, bb)
			}
		}
	}
}
