// Package mapper converts between geometric coordinates and H3 cells.
package mapper

import (
	"github.com/paulmach/orb"
	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/h3-cities/internal/core/model"
)

type Interface interface {
	CellsForPolygon(poly orb.Polygon, res int) (model.Cells, error)
	CellBoundary(cell string) ([]h3.LatLng, error)
}
