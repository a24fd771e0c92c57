package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type startRideRequest struct {
	RouteID string `json:"routeId"`
}

// startRide handles POST /rides.
func (s *Server) startRide(w http.ResponseWriter, r *http.Request) {
	var req startRideRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.RouteID == "" {
		badRequest(w, "routeId is required")
		return
	}
	snap, err := s.rides.Start(r.Context(), req.RouteID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

// getRide handles GET /rides/{id}.
func (s *Server) getRide(w http.ResponseWriter, r *http.Request) {
	snap, err := s.rides.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// cancelRide handles DELETE /rides/{id}.
func (s *Server) cancelRide(w http.ResponseWriter, r *http.Request) {
	if err := s.rides.Cancel(chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
