package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"blueway/internal/domain"
	"blueway/internal/tracker"
)

// tripHistory handles GET /drivers/{id}/history, newest first.
func (s *Server) tripHistory(w http.ResponseWriter, r *http.Request) {
	trips, err := s.registry.TripHistory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if trips == nil {
		trips = []domain.LiveTrip{}
	}
	writeJSON(w, http.StatusOK, trips)
}

// earnings handles GET /drivers/{id}/earnings.
func (s *Server) earnings(w http.ResponseWriter, r *http.Request) {
	e, err := s.registry.Earnings(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if e.Entries == nil {
		e.Entries = []domain.EarningEntry{}
	}
	writeJSON(w, http.StatusOK, e)
}

type notificationsResponse struct {
	Notifications []domain.DriverNotification `json:"notifications"`
	Unread        int                         `json:"unread"`
}

// notifications handles GET /drivers/{id}/notifications.
func (s *Server) notifications(w http.ResponseWriter, r *http.Request) {
	notes, err := s.registry.DriverNotifications(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := notificationsResponse{Notifications: notes}
	if resp.Notifications == nil {
		resp.Notifications = []domain.DriverNotification{}
	}
	for _, n := range notes {
		if !n.Read {
			resp.Unread++
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// markRead handles POST /drivers/{id}/notifications/{nid}/read.
func (s *Server) markRead(w http.ResponseWriter, r *http.Request) {
	err := s.registry.MarkNotificationAsRead(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "nid"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// dashboard handles GET /drivers/{id}/dashboard.
func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	snap, err := tracker.Dashboard(r.Context(), s.registry, chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
