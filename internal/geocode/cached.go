package geocode

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/mohammed-shakir/h3-cities/internal/core/model"
	"github.com/mohammed-shakir/h3-cities/internal/core/observability"
)

// Cached memoizes successful lookups of another Resolver.
type Cached struct {
	next Resolver
	lru  *expirable.LRU[string, model.Boundary]
}

func NewCached(next Resolver, size int, ttl time.Duration) *Cached {
	if size <= 0 {
		size = 256
	}
	return &Cached{
		next: next,
		lru:  expirable.NewLRU[string, model.Boundary](size, nil, ttl),
	}
}

func (c *Cached) Resolve(ctx context.Context, place string) (model.Boundary, error) {
	k := placeKey(place)
	if b, ok := c.lru.Get(k); ok {
		observability.IncBoundaryCache("hit")
		return b, nil
	}
	observability.IncBoundaryCache("miss")

	b, err := c.next.Resolve(ctx, place)
	if err != nil {
		return nil, err
	}
	if b != nil {
		c.lru.Add(k, b)
	}
	return b, nil
}

// Forget drops the memoized boundary for place, if any.
func (c *Cached) Forget(place string) bool { return c.lru.Remove(placeKey(place)) }

func (c *Cached) Len() int { return c.lru.Len() }

func placeKey(place string) string {
	return strings.ToLower(strings.Join(strings.Fields(place), " "))
}
