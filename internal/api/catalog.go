package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"blueway/internal/domain"
)

// listStops handles GET /stops.
func (s *Server) listStops(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.AllStopPoints())
}

// getStop handles GET /stops/{id}.
func (s *Server) getStop(w http.ResponseWriter, r *http.Request) {
	stop, ok := s.catalog.StopPointByID(chi.URLParam(r, "id"))
	if !ok {
		notFound(w, "stop not found")
		return
	}
	writeJSON(w, http.StatusOK, stop)
}

// listRoutes handles GET /routes.
func (s *Server) listRoutes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.AllRoutes())
}

// getRoute handles GET /routes/{id}.
func (s *Server) getRoute(w http.ResponseWriter, r *http.Request) {
	route, ok := s.catalog.RouteByID(chi.URLParam(r, "id"))
	if !ok {
		notFound(w, "route not found")
		return
	}
	writeJSON(w, http.StatusOK, route)
}

// routeStops handles GET /routes/{id}/stops, in travel order.
func (s *Server) routeStops(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := s.catalog.RouteByID(id); !ok {
		notFound(w, "route not found")
		return
	}
	writeJSON(w, http.StatusOK, s.catalog.StopPointsByRouteID(id))
}

type routeRequest struct {
	Origin      *domain.Point `json:"origin"`
	Destination *domain.Point `json:"destination"`
}

type routeResponse struct {
	Coordinates     []domain.Point `json:"coordinates"`
	DistanceMeters  float64        `json:"distance"`
	DurationSeconds float64        `json:"duration"`
}

// computeRoute handles POST /routing/route.
func (s *Server) computeRoute(w http.ResponseWriter, r *http.Request) {
	var req routeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Origin == nil || req.Destination == nil {
		badRequest(w, "origin and destination are required")
		return
	}
	res, err := s.router.Route(*req.Origin, *req.Destination)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, routeResponse{
		Coordinates:     res.Coordinates,
		DistanceMeters:  res.DistanceMeters,
		DurationSeconds: res.Duration.Seconds(),
	})
}
