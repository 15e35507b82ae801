// Package hotness keeps an exponentially decaying request score per place.
// A score of n means roughly n requests within the last half-life.
package hotness

import (
	"math"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/mohammed-shakir/h3-cities/internal/cache/keys"
	"github.com/mohammed-shakir/h3-cities/internal/core/observability"
)

const numShards = 64

// Tracker is safe for concurrent use. Places are keyed by their
// normalized form, so "Paris, France" and "paris,  FRANCE" share a score.
type Tracker struct {
	HalfLife time.Duration

	now func() time.Time

	shards [numShards]shard
}

type shard struct {
	mu sync.RWMutex
	m  map[string]*counter
}

type counter struct {
	score float64
	last  time.Time
}

func New(halfLife time.Duration) *Tracker {
	if halfLife <= 0 {
		halfLife = 10 * time.Minute
	}
	t := &Tracker{HalfLife: halfLife, now: time.Now}
	for i := range t.shards {
		t.shards[i].m = make(map[string]*counter)
	}
	return t
}

// Inc records one request and returns the updated score.
func (t *Tracker) Inc(place string) float64 {
	k := keys.NormalizePlace(place)
	if k == "" {
		return 0
	}
	s := t.pick(k)
	n := t.now()

	s.mu.Lock()
	c := s.m[k]
	if c == nil {
		c = &counter{}
		s.m[k] = c
	}
	c.score = decay(c.score, n.Sub(c.last).Seconds(), t.HalfLife.Seconds()) + 1
	c.last = n
	score := c.score
	s.mu.Unlock()

	observability.SetTrackedPlaces(t.Size())
	return score
}

func (t *Tracker) Score(place string) float64 {
	k := keys.NormalizePlace(place)
	if k == "" {
		return 0
	}
	s := t.pick(k)

	s.mu.RLock()
	c := s.m[k]
	if c == nil {
		s.mu.RUnlock()
		return 0
	}
	score, last := c.score, c.last
	s.mu.RUnlock()

	return decay(score, t.now().Sub(last).Seconds(), t.HalfLife.Seconds())
}

// Reset forgets the given places.
func (t *Tracker) Reset(places ...string) {
	for _, p := range places {
		k := keys.NormalizePlace(p)
		if k == "" {
			continue
		}
		s := t.pick(k)
		s.mu.Lock()
		delete(s.m, k)
		s.mu.Unlock()
	}
	observability.SetTrackedPlaces(t.Size())
}

// Prune drops places whose score decayed below floor and reports how many
// were removed.
func (t *Tracker) Prune(floor float64) int {
	n := t.now()
	hl := t.HalfLife.Seconds()
	removed := 0
	for i := range t.shards {
		s := &t.shards[i]
		s.mu.Lock()
		for k, c := range s.m {
			if decay(c.score, n.Sub(c.last).Seconds(), hl) < floor {
				delete(s.m, k)
				removed++
			}
		}
		s.mu.Unlock()
	}
	observability.SetTrackedPlaces(t.Size())
	return removed
}

func (t *Tracker) Size() int {
	total := 0
	for i := range t.shards {
		t.shards[i].mu.RLock()
		total += len(t.shards[i].m)
		t.shards[i].mu.RUnlock()
	}
	return total
}

func decay(score, dt, halfLife float64) float64 {
	if score == 0 || dt <= 0 || halfLife <= 0 {
		return score
	}
	// e^(-λt) with λ = ln2 / halfLife
	return score * math.Exp(-math.Ln2/halfLife*dt)
}

func (t *Tracker) pick(k string) *shard {
	return &t.shards[xxhash.Sum64String(k)&(numShards-1)]
}
