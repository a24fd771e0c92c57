// Package api is the HTTP surface of the service. Handlers are methods on
// Server and are split by resource into trips.go, drivers.go, catalog.go and
// rides.go; streams.go holds the WebSocket endpoints.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"blueway/internal/domain"
	"blueway/internal/livetrip"
	"blueway/internal/middleware"
	"blueway/internal/ride"
	"blueway/internal/routing"
	"blueway/internal/tracker"
)

// maxBodyBytes bounds every request body.
const maxBodyBytes = 1 << 20

// Registry is the live trip surface the handlers depend on.
// *livetrip.Registry implements it.
type Registry interface {
	tracker.Source
	CurrentTrip() (domain.LiveTrip, bool)
	Occupancy() (domain.Occupancy, bool)
	StartTrip(ctx context.Context, driver domain.DriverProfile, routeName string) (domain.LiveTrip, error)
	RequestRide(ctx context.Context, req domain.RideRequest) (domain.LivePassenger, error)
	BoardPassenger(ctx context.Context, driverID, passengerID string) (domain.LivePassenger, error)
	DropOffPassenger(ctx context.Context, passengerID string) (domain.LivePassenger, error)
	ConfirmPayment(ctx context.Context, passengerID string) (domain.LivePassenger, error)
	UpdateLocation(ctx context.Context, p domain.Point) error
	UpdateStops(ctx context.Context, current, next string) error
	EndTrip(ctx context.Context, driverID string) (domain.LiveTrip, error)
	TripHistory(ctx context.Context, driverID string) ([]domain.LiveTrip, error)
	Earnings(ctx context.Context, driverID string) (livetrip.Earnings, error)
	MarkNotificationAsRead(ctx context.Context, driverID, notificationID string) error
}

// Catalog is the stop and route reference data. *stops.Catalog implements it.
type Catalog interface {
	AllStopPoints() []domain.StopPoint
	StopPointByID(id string) (domain.StopPoint, bool)
	AllRoutes() []domain.VanRoute
	RouteByID(id string) (domain.VanRoute, bool)
	StopPointsByRouteID(routeID string) []domain.StopPoint
}

type Router interface {
	Route(origin, destination domain.Point) (routing.Result, error)
}

// Rides manages passenger ride sessions. *ride.Manager implements it.
type Rides interface {
	Start(ctx context.Context, routeID string) (ride.Snapshot, error)
	Get(id string) (ride.Snapshot, error)
	Watch(ctx context.Context, id string) (<-chan ride.Snapshot, error)
	Cancel(id string) error
}

type Option func(*Server)

// WithPollInterval sets how often the dashboard stream refreshes.
func WithPollInterval(d time.Duration) Option { return func(s *Server) { s.pollInterval = d } }

// WithAllowedOrigins sets the CORS origins. WebSocket upgrades from other
// origins are refused.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) { s.origins = origins }
}

func WithLogger(l *slog.Logger) Option { return func(s *Server) { s.log = l } }

type Server struct {
	registry Registry
	catalog  Catalog
	router   Router
	rides    Rides

	pollInterval time.Duration
	origins      []string
	log          *slog.Logger
	upgrader     websocket.Upgrader
}

func NewServer(reg Registry, catalog Catalog, router Router, rides Rides, opts ...Option) *Server {
	s := &Server{
		registry:     reg,
		catalog:      catalog,
		router:       router,
		rides:        rides,
		pollInterval: time.Second,
		log:          slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// Handler returns the full middleware stack and routes.
// Middleware order: RequestID → RealIP → Logger → Recoverer → CORS → body limit.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(s.log))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(s.origins))
	r.Use(middleware.NewMaxBodySizeHandler(maxBodyBytes))

	r.Get("/healthz", s.health)

	r.Get("/stops", s.listStops)
	r.Get("/stops/{id}", s.getStop)
	r.Get("/routes", s.listRoutes)
	r.Get("/routes/{id}", s.getRoute)
	r.Get("/routes/{id}/stops", s.routeStops)
	r.Post("/routing/route", s.computeRoute)

	r.Post("/trips", s.startTrip)
	r.Route("/trips/current", func(r chi.Router) {
		r.Get("/", s.currentTrip)
		r.Get("/capacity", s.capacity)
		r.Post("/passengers", s.requestRide)
		r.Post("/passengers/{pid}/board", s.boardPassenger)
		r.Post("/passengers/{pid}/dropoff", s.dropOffPassenger)
		r.Post("/passengers/{pid}/payment", s.confirmPayment)
		r.Put("/location", s.updateLocation)
		r.Put("/stops", s.updateStops)
		r.Post("/end", s.endTrip)
	})

	r.Route("/drivers/{id}", func(r chi.Router) {
		r.Get("/history", s.tripHistory)
		r.Get("/earnings", s.earnings)
		r.Get("/notifications", s.notifications)
		r.Post("/notifications/{nid}/read", s.markRead)
		r.Get("/dashboard", s.dashboard)
		r.Get("/dashboard/stream", s.dashboardStream)
	})

	r.Post("/rides", s.startRide)
	r.Get("/rides/{id}", s.getRide)
	r.Delete("/rides/{id}", s.cancelRide)
	r.Get("/rides/{id}/stream", s.rideStream)

	return otelhttp.NewHandler(r, "blueway.api",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

// health handles GET /healthz.
func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range s.origins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}
