// Package model defines core domain types shared across the service.
package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

const (
	MinRes = 0
	MaxRes = 15
)

// Boundary is the geocoded outline of a place. The only implementations are
// PolygonBoundary and MultiPolygonBoundary.
type Boundary interface {
	Bound() orb.Bound
	isBoundary()
}

type PolygonBoundary struct {
	Polygon orb.Polygon
}

func (PolygonBoundary) isBoundary() {}

func (b PolygonBoundary) Bound() orb.Bound { return b.Polygon.Bound() }

type MultiPolygonBoundary struct {
	MultiPolygon orb.MultiPolygon
}

func (MultiPolygonBoundary) isBoundary() {}

func (b MultiPolygonBoundary) Bound() orb.Bound { return b.MultiPolygon.Bound() }

type Cells []string

// HexRecord pairs an H3 cell with its closed (lon,lat) outline.
type HexRecord struct {
	Cell    string
	Polygon orb.Polygon
}

type HexCollection []HexRecord

// CellIDs returns the cell ids in collection order.
func (c HexCollection) CellIDs() Cells {
	out := make(Cells, 0, len(c))
	for _, r := range c {
		out = append(out, r.Cell)
	}
	return out
}

type HexRequest struct {
	Place    string
	Res      int
	Download bool
}

// ParseResolution parses a raw resolution as found in query strings and flags.
// Fractional and non-numeric input is rejected, range is checked by the caller.
func ParseResolution(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("resolution is empty")
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("resolution %q is not an integer", raw)
	}
	return n, nil
}
