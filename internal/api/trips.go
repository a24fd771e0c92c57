package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"blueway/internal/domain"
)

type startTripRequest struct {
	Driver domain.DriverProfile `json:"driver"`
	Route  string               `json:"route"`
}

// startTrip handles POST /trips.
func (s *Server) startTrip(w http.ResponseWriter, r *http.Request) {
	var req startTripRequest
	if !decodeBody(w, r, &req) {
		return
	}
	trip, err := s.registry.StartTrip(r.Context(), req.Driver, req.Route)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, trip)
}

// currentTrip handles GET /trips/current.
func (s *Server) currentTrip(w http.ResponseWriter, r *http.Request) {
	trip, ok := s.registry.CurrentTrip()
	if !ok {
		s.writeError(w, r, domain.ErrNoActiveTrip)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

type capacityResponse struct {
	Active bool `json:"active"`
	domain.Occupancy
	CanAcceptMore bool `json:"canAcceptMore"`
}

// capacity handles GET /trips/current/capacity. Without a trip every count
// is zero.
func (s *Server) capacity(w http.ResponseWriter, _ *http.Request) {
	occ, ok := s.registry.Occupancy()
	writeJSON(w, http.StatusOK, capacityResponse{
		Active:        ok,
		Occupancy:     occ,
		CanAcceptMore: occ.Available > 0,
	})
}

// requestRide handles POST /trips/current/passengers.
func (s *Server) requestRide(w http.ResponseWriter, r *http.Request) {
	var req domain.RideRequest
	if !decodeBody(w, r, &req) {
		return
	}
	p, err := s.registry.RequestRide(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

type driverRequest struct {
	DriverID string `json:"driverId"`
}

// boardPassenger handles POST /trips/current/passengers/{pid}/board.
func (s *Server) boardPassenger(w http.ResponseWriter, r *http.Request) {
	var req driverRequest
	if !decodeBody(w, r, &req) {
		return
	}
	p, err := s.registry.BoardPassenger(r.Context(), req.DriverID, chi.URLParam(r, "pid"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// dropOffPassenger handles POST /trips/current/passengers/{pid}/dropoff.
func (s *Server) dropOffPassenger(w http.ResponseWriter, r *http.Request) {
	p, err := s.registry.DropOffPassenger(r.Context(), chi.URLParam(r, "pid"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// confirmPayment handles POST /trips/current/passengers/{pid}/payment.
func (s *Server) confirmPayment(w http.ResponseWriter, r *http.Request) {
	p, err := s.registry.ConfirmPayment(r.Context(), chi.URLParam(r, "pid"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// updateLocation handles PUT /trips/current/location.
func (s *Server) updateLocation(w http.ResponseWriter, r *http.Request) {
	var p domain.Point
	if !decodeBody(w, r, &p) {
		return
	}
	if err := s.registry.UpdateLocation(r.Context(), p); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type stopsRequest struct {
	CurrentStop string `json:"currentStop"`
	NextStop    string `json:"nextStop"`
}

// updateStops handles PUT /trips/current/stops.
func (s *Server) updateStops(w http.ResponseWriter, r *http.Request) {
	var req stopsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.registry.UpdateStops(r.Context(), req.CurrentStop, req.NextStop); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// endTrip handles POST /trips/current/end.
func (s *Server) endTrip(w http.ResponseWriter, r *http.Request) {
	var req driverRequest
	if !decodeBody(w, r, &req) {
		return
	}
	trip, err := s.registry.EndTrip(r.Context(), req.DriverID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}
