package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"blueway/internal/tracker"
)

const writeWait = 5 * time.Second

// dashboardStream handles GET /drivers/{id}/dashboard/stream. It pushes a
// dashboard snapshot every poll interval until the client goes away.
func (s *Server) dashboardStream(w http.ResponseWriter, r *http.Request) {
	driverID := chi.URLParam(r, "id")
	poller := tracker.Poller[tracker.DashboardSnapshot]{
		Interval: s.pollInterval,
		Fetch: func(ctx context.Context) (tracker.DashboardSnapshot, error) {
			return tracker.Dashboard(ctx, s.registry, driverID)
		},
		Log: s.log,
	}
	s.stream(w, r, func(ctx context.Context, send func(any) error) error {
		return poller.Run(ctx, func(snap tracker.DashboardSnapshot) error { return send(snap) })
	})
}

// rideStream handles GET /rides/{id}/stream. Every session change is sent;
// the socket closes once the ride is over.
func (s *Server) rideStream(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.rides.Get(id); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.stream(w, r, func(ctx context.Context, send func(any) error) error {
		updates, err := s.rides.Watch(ctx, id)
		if err != nil {
			return err
		}
		for snap := range updates {
			if err := send(snap); err != nil {
				return err
			}
		}
		return nil
	})
}

// stream upgrades the connection and runs produce until it returns or the
// client disconnects. Incoming messages are discarded; reading is only how a
// closed socket is noticed.
func (s *Server) stream(w http.ResponseWriter, r *http.Request, produce func(ctx context.Context, send func(any) error) error) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the client.
		s.log.WarnContext(r.Context(), "websocket upgrade failed", "path", r.URL.Path, "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	send := func(v any) error {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(v)
	}
	err = produce(ctx, send)
	if err != nil && !errors.Is(err, context.Canceled) {
		s.log.DebugContext(r.Context(), "stream ended", "path", r.URL.Path, "error", err)
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
}
