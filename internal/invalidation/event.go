// Package invalidation consumes boundary-change events and purges cached
// tessellations for the affected place.
package invalidation

import (
	"fmt"
	"strings"
	"time"

	"github.com/mohammed-shakir/h3-cities/internal/core/model"
)

const (
	// OpBoundaryChanged means the geocoder's polygon for Place changed;
	// the memoized boundary is dropped along with cached tessellations.
	OpBoundaryChanged = "boundary_changed"
	// OpPurge only drops cached tessellations.
	OpPurge = "purge"
)

type Event struct {
	Version int       `json:"version"`
	Op      string    `json:"op"`
	Place   string    `json:"place"`
	Res     []int     `json:"res,omitempty"` // empty means every resolution
	TS      time.Time `json:"ts"`
	Source  string    `json:"source,omitempty"`
}

func (e Event) Validate() error {
	if e.Version != 1 {
		return fmt.Errorf("version must be 1")
	}
	switch e.Op {
	case OpBoundaryChanged, OpPurge:
	default:
		return fmt.Errorf("op must be %s|%s", OpBoundaryChanged, OpPurge)
	}
	if strings.TrimSpace(e.Place) == "" {
		return fmt.Errorf("place is required")
	}
	if e.TS.IsZero() {
		return fmt.Errorf("ts is required")
	}
	for _, r := range e.Res {
		if r < model.MinRes || r > model.MaxRes {
			return fmt.Errorf("res %d out of range %d..%d", r, model.MinRes, model.MaxRes)
		}
	}
	return nil
}

// Resolutions lists the resolutions the event applies to.
func (e Event) Resolutions() []int {
	if len(e.Res) > 0 {
		return e.Res
	}
	out := make([]int, 0, model.MaxRes-model.MinRes+1)
	for r := model.MinRes; r <= model.MaxRes; r++ {
		out = append(out, r)
	}
	return out
}
