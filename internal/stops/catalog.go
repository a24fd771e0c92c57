// Package stops is the reference data provider: stop points and van routes,
// loaded once at start-up and read-only afterwards.
package stops

import (
	"fmt"
	"strings"

	"blueway/internal/domain"
	"blueway/internal/geo"
)

type Catalog struct {
	stops     []domain.StopPoint
	routes    []domain.VanRoute
	stopByID  map[string]int
	routeByID map[string]int
}

// New validates the data and indexes it. Stop.Routes is derived from the
// routes' stop lists when a stop does not name its routes itself.
func New(stopPoints []domain.StopPoint, routes []domain.VanRoute) (*Catalog, error) {
	c := &Catalog{
		stops:     make([]domain.StopPoint, len(stopPoints)),
		routes:    make([]domain.VanRoute, len(routes)),
		stopByID:  make(map[string]int, len(stopPoints)),
		routeByID: make(map[string]int, len(routes)),
	}
	copy(c.stops, stopPoints)
	copy(c.routes, routes)

	for i, s := range c.stops {
		if strings.TrimSpace(s.ID) == "" {
			return nil, fmt.Errorf("%w: stop %d has no id", domain.ErrValidation, i)
		}
		if _, dup := c.stopByID[s.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate stop id %q", domain.ErrValidation, s.ID)
		}
		if !geo.Valid(s.Location) {
			return nil, fmt.Errorf("%w: stop %q has invalid location", domain.ErrValidation, s.ID)
		}
		c.stopByID[s.ID] = i
	}

	derived := make(map[string][]string)
	for i, r := range c.routes {
		if strings.TrimSpace(r.ID) == "" {
			return nil, fmt.Errorf("%w: route %d has no id", domain.ErrValidation, i)
		}
		if _, dup := c.routeByID[r.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate route id %q", domain.ErrValidation, r.ID)
		}
		if len(r.Path) < 2 {
			return nil, fmt.Errorf("%w: route %q needs at least two path points", domain.ErrValidation, r.ID)
		}
		for _, sid := range r.Stops {
			if _, ok := c.stopByID[sid]; !ok {
				return nil, fmt.Errorf("%w: route %q references unknown stop %q", domain.ErrValidation, r.ID, sid)
			}
			derived[sid] = append(derived[sid], r.ID)
		}
		c.routeByID[r.ID] = i
	}
	for i := range c.stops {
		if len(c.stops[i].Routes) == 0 {
			c.stops[i].Routes = derived[c.stops[i].ID]
		}
	}
	return c, nil
}

func (c *Catalog) AllStopPoints() []domain.StopPoint {
	out := make([]domain.StopPoint, len(c.stops))
	copy(out, c.stops)
	return out
}

func (c *Catalog) AllRoutes() []domain.VanRoute {
	out := make([]domain.VanRoute, len(c.routes))
	copy(out, c.routes)
	return out
}

func (c *Catalog) StopPointByID(id string) (domain.StopPoint, bool) {
	i, ok := c.stopByID[id]
	if !ok {
		return domain.StopPoint{}, false
	}
	return c.stops[i], true
}

func (c *Catalog) RouteByID(id string) (domain.VanRoute, bool) {
	i, ok := c.routeByID[id]
	if !ok {
		return domain.VanRoute{}, false
	}
	return c.routes[i], true
}

// RouteByName matches the display name case-insensitively.
func (c *Catalog) RouteByName(name string) (domain.VanRoute, bool) {
	name = strings.TrimSpace(name)
	for _, r := range c.routes {
		if strings.EqualFold(r.Name, name) {
			return r, true
		}
	}
	return domain.VanRoute{}, false
}

// StopPointsByRouteID returns the route's stops in route order. Unknown
// routes yield an empty slice.
func (c *Catalog) StopPointsByRouteID(routeID string) []domain.StopPoint {
	r, ok := c.RouteByID(routeID)
	if !ok {
		return []domain.StopPoint{}
	}
	out := make([]domain.StopPoint, 0, len(r.Stops))
	for _, sid := range r.Stops {
		if s, ok := c.StopPointByID(sid); ok {
			out = append(out, s)
		}
	}
	return out
}

func (c *Catalog) RoutesByStopPointID(stopID string) []domain.VanRoute {
	s, ok := c.StopPointByID(stopID)
	if !ok {
		return []domain.VanRoute{}
	}
	out := make([]domain.VanRoute, 0, len(s.Routes))
	for _, rid := range s.Routes {
		if r, ok := c.RouteByID(rid); ok {
			out = append(out, r)
		}
	}
	return out
}

// NearestWithin returns the stop closest to p whose planar distance is
// strictly below threshold.
func (c *Catalog) NearestWithin(p domain.Point, threshold float64) (domain.StopPoint, bool) {
	best := -1
	bestDist := threshold
	for i, s := range c.stops {
		d := geo.PlanarDistance(p, s.Location)
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return domain.StopPoint{}, false
	}
	return c.stops[best], true
}
