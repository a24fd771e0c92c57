// Package routing is the stand-in for a street router. It produces plausible
// grid-shaped polylines between two points and caches them so repeated
// lookups for the same trip draw the same line.
package routing

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"blueway/internal/domain"
	"blueway/internal/geo"
)

// Average urban speed, 30 km/h.
const avgSpeedMps = 8.33

type Result struct {
	Coordinates    []domain.Point `json:"coordinates"`
	DistanceMeters float64        `json:"distance"`
	Duration       time.Duration  `json:"-"`
}

type Router struct {
	cache *cache.Cache

	mu  sync.Mutex
	rng *rand.Rand
}

type Option func(*Router)

// WithSeed makes the generated polylines reproducible.
func WithSeed(seed uint64) Option {
	return func(r *Router) { r.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }
}

// WithTTL sets how long a computed route stays cached.
func WithTTL(ttl time.Duration) Option {
	return func(r *Router) { r.cache = cache.New(ttl, 2*ttl) }
}

func New(opts ...Option) *Router {
	r := &Router{
		cache: cache.New(10*time.Minute, 20*time.Minute),
		rng:   rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 1)),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Route returns a polyline from origin to destination. The first point is
// origin and the last point is exactly destination.
func (r *Router) Route(origin, destination domain.Point) (Result, error) {
	if !geo.Valid(origin) || !geo.Valid(destination) {
		return Result{}, fmt.Errorf("routing.Router.Route: %w: invalid coordinates", domain.ErrValidation)
	}
	key := geo.Key(origin, 5) + ">" + geo.Key(destination, 5)
	if v, ok := r.cache.Get(key); ok {
		return clone(v.(Result)), nil
	}

	r.mu.Lock()
	legs := 8 + r.rng.IntN(5)
	r.mu.Unlock()

	dist := geo.Haversine(origin, destination)
	res := Result{
		Coordinates:    smooth(grid(origin, destination, legs)),
		DistanceMeters: dist,
		Duration:       time.Duration(dist / avgSpeedMps * float64(time.Second)),
	}
	r.cache.Set(key, res, cache.DefaultExpiration)
	return clone(res), nil
}

// Approach picks a starting point 0.01 to 0.03 degrees away from destination
// in a random direction and routes from there. Used for the van driving to a
// pickup point.
func (r *Router) Approach(destination domain.Point) (Result, error) {
	if !geo.Valid(destination) {
		return Result{}, fmt.Errorf("routing.Router.Approach: %w: invalid coordinates", domain.ErrValidation)
	}
	r.mu.Lock()
	radius := 0.01 + r.rng.Float64()*0.02
	angle := r.rng.Float64() * 2 * math.Pi
	r.mu.Unlock()

	start := domain.Point{
		Lat: destination.Lat + radius*math.Sin(angle),
		Lng: destination.Lng + radius*math.Cos(angle),
	}
	return r.Route(start, destination)
}

// grid splits the trip into legs that alternate between moving along the
// main axis and the secondary one, like driving a street grid.
func grid(from, to domain.Point, legs int) []domain.Point {
	steps := legs / 2
	if steps < 1 {
		steps = 1
	}
	dLat := (to.Lat - from.Lat) / float64(steps)
	dLng := (to.Lng - from.Lng) / float64(steps)
	northSouth := math.Abs(to.Lat-from.Lat) > math.Abs(to.Lng-from.Lng)

	pts := make([]domain.Point, 0, 2*steps+1)
	pts = append(pts, from)
	cur := from
	for i := 0; i < steps; i++ {
		if northSouth {
			cur.Lat += dLat
			pts = append(pts, cur)
			cur.Lng += dLng
		} else {
			cur.Lng += dLng
			pts = append(pts, cur)
			cur.Lat += dLat
		}
		pts = append(pts, cur)
	}
	pts[len(pts)-1] = to
	return pts
}

// smooth inserts two evenly spaced points inside every leg.
func smooth(pts []domain.Point) []domain.Point {
	if len(pts) < 2 {
		return pts
	}
	out := make([]domain.Point, 0, 3*len(pts))
	for i := 0; i < len(pts)-1; i++ {
		out = append(out, pts[i])
		out = append(out, geo.Lerp(pts[i], pts[i+1], 1.0/3), geo.Lerp(pts[i], pts[i+1], 2.0/3))
	}
	return append(out, pts[len(pts)-1])
}

func clone(r Result) Result {
	c := r
	c.Coordinates = make([]domain.Point, len(r.Coordinates))
	copy(c.Coordinates, r.Coordinates)
	return c
}
