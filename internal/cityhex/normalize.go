package cityhex

import (
	"fmt"

	"github.com/paulmach/orb"
	h3 "github.com/uber/h3-go/v4"
)

// BoundaryGrid returns a cell outline in (lat,lng) order.
type BoundaryGrid interface {
	CellBoundary(cell string) ([]h3.LatLng, error)
}

// SwapLatLon turns h3's (lat,lng) vertices into (lon,lat) points.
// Vertex count and order are preserved.
func SwapLatLon(vs []h3.LatLng) []orb.Point {
	out := make([]orb.Point, len(vs))
	for i, v := range vs {
		out[i] = orb.Point{v.Lng, v.Lat}
	}
	return out
}

// CloseRing repeats the first vertex at the end unless the ring is already closed.
func CloseRing(pts []orb.Point) orb.Ring {
	ring := make(orb.Ring, 0, len(pts)+1)
	ring = append(ring, pts...)
	if len(ring) > 0 && !ring.Closed() {
		ring = append(ring, ring[0])
	}
	return ring
}

func CellPolygon(g BoundaryGrid, cell string) (orb.Polygon, error) {
	b, err := g.CellBoundary(cell)
	if err != nil {
		return nil, err
	}
	if len(b) < 3 {
		return nil, fmt.Errorf("cell %s boundary has %d vertices", cell, len(b))
	}
	return orb.Polygon{CloseRing(SwapLatLon(b))}, nil
}
