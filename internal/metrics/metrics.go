package metrics

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Settings are the static configuration values exported as gauges.
type Settings struct {
	FrameInterval   time.Duration
	PollInterval    time.Duration
	SpeedMultiplier float64
	Capacity        string
}

type Collector struct {
	reg *prometheus.Registry

	ActiveTrip    prometheus.Gauge
	OccupiedSeats prometheus.Gauge
	ActiveRides   prometheus.Gauge

	TripsStarted     prometheus.Counter
	TripsEnded       prometheus.Counter
	RideRequests     *prometheus.CounterVec // outcome label: accepted|full|no_trip|invalid
	PassengersBoard  prometheus.Counter
	PassengersDrop   prometheus.Counter
	Notifications    prometheus.Counter
	RidesStarted     prometheus.Counter
	RidesFinished    prometheus.Counter
	PositionUpdates  prometheus.Counter
	StopsReached     prometheus.Counter
	NATSPublished    prometheus.Counter
	NATSPublishErrs  prometheus.Counter
	NATSConnected    prometheus.Gauge
	FrameDuration    prometheus.Histogram
	PublishDuration  prometheus.Histogram
	SpeedMultiplier  prometheus.Gauge
	FrameInterval    prometheus.Gauge // seconds
	PollInterval     prometheus.Gauge // seconds
	CapacityPolicies *prometheus.GaugeVec
}

func NewCollector(s Settings) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		ActiveTrip: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "blueway_active_trip",
			Help: "1 while a live trip is running, 0 otherwise.",
		}),
		OccupiedSeats: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "blueway_occupied_seats",
			Help: "Seats held on the active trip under the capacity policy.",
		}),
		ActiveRides: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "blueway_active_ride_sessions",
			Help: "Number of passenger ride sessions running their timeline.",
		}),
		TripsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blueway_trips_started_total",
			Help: "Total live trips started.",
		}),
		TripsEnded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blueway_trips_ended_total",
			Help: "Total live trips completed, including displaced ones.",
		}),
		RideRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blueway_ride_requests_total",
			Help: "Ride requests by outcome.",
		}, []string{"outcome"}),
		PassengersBoard: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blueway_passengers_boarded_total",
			Help: "Total passengers boarded.",
		}),
		PassengersDrop: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blueway_passengers_dropped_total",
			Help: "Total passengers dropped off.",
		}),
		Notifications: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blueway_driver_notifications_total",
			Help: "Total driver notifications raised.",
		}),
		RidesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blueway_ride_sessions_started_total",
			Help: "Total passenger ride sessions started.",
		}),
		RidesFinished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blueway_ride_sessions_finished_total",
			Help: "Total passenger ride sessions that completed or were cancelled.",
		}),
		PositionUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blueway_motion_position_updates_total",
			Help: "Total de-duplicated van position reports.",
		}),
		StopsReached: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blueway_motion_stops_reached_total",
			Help: "Total stop points reached by animated vans.",
		}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blueway_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blueway_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "blueway_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		FrameDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "blueway_motion_frame_duration_seconds",
			Help:    "Duration of one animation frame computation and dispatch.",
			Buckets: prometheus.ExponentialBuckets(0.00005, 2, 15),
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "blueway_publish_duration_seconds",
			Help:    "Duration to publish a NATS message.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		SpeedMultiplier: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "blueway_speed_multiplier",
			Help: "Simulated seconds per wall-clock second.",
		}),
		FrameInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "blueway_frame_interval_seconds",
			Help: "Animation frame interval in seconds.",
		}),
		PollInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "blueway_poll_interval_seconds",
			Help: "Dashboard poll interval in seconds.",
		}),
		CapacityPolicies: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "blueway_capacity_policy",
			Help: "1 for the configured capacity policy.",
		}, []string{"policy"}),
	}

	reg.MustRegister(
		c.ActiveTrip, c.OccupiedSeats, c.ActiveRides,
		c.TripsStarted, c.TripsEnded, c.RideRequests,
		c.PassengersBoard, c.PassengersDrop, c.Notifications,
		c.RidesStarted, c.RidesFinished, c.PositionUpdates, c.StopsReached,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected,
		c.FrameDuration, c.PublishDuration,
		c.SpeedMultiplier, c.FrameInterval, c.PollInterval, c.CapacityPolicies,
	)

	c.SpeedMultiplier.Set(s.SpeedMultiplier)
	c.FrameInterval.Set(s.FrameInterval.Seconds())
	c.PollInterval.Set(s.PollInterval.Seconds())
	if s.Capacity != "" {
		c.CapacityPolicies.WithLabelValues(s.Capacity).Set(1)
	}

	return c
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server error", "error", err)
		}
	}()
	slog.Info("metrics listening", "addr", addr)
	return srv
}

// Registry metrics.

func (c *Collector) TripStartedInc()               { c.TripsStarted.Inc() }
func (c *Collector) TripEndedInc()                 { c.TripsEnded.Inc() }
func (c *Collector) RideRequestInc(outcome string) { c.RideRequests.WithLabelValues(outcome).Inc() }
func (c *Collector) PassengerBoardedInc()          { c.PassengersBoard.Inc() }
func (c *Collector) PassengerDroppedInc()          { c.PassengersDrop.Inc() }
func (c *Collector) NotificationInc()              { c.Notifications.Inc() }

func (c *Collector) SetTripState(active bool, occupied int) {
	c.ActiveTrip.Set(boolGauge(active))
	c.OccupiedSeats.Set(float64(occupied))
}

// Motion runner metrics.

func (c *Collector) FrameObserve(d time.Duration) { c.FrameDuration.Observe(d.Seconds()) }
func (c *Collector) PositionUpdatedInc()          { c.PositionUpdates.Inc() }
func (c *Collector) StopReachedInc()              { c.StopsReached.Inc() }

// Ride session metrics.

func (c *Collector) RideStartedInc()      { c.RidesStarted.Inc() }
func (c *Collector) RideFinishedInc()     { c.RidesFinished.Inc() }
func (c *Collector) SetActiveRides(n int) { c.ActiveRides.Set(float64(n)) }

// Publisher metrics.

func (c *Collector) NATSPublishedInc()              { c.NATSPublished.Inc() }
func (c *Collector) NATSPublishErrInc()             { c.NATSPublishErrs.Inc() }
func (c *Collector) PublishObserve(d time.Duration) { c.PublishDuration.Observe(d.Seconds()) }
func (c *Collector) NATSSetConnected(b bool)        { c.NATSConnected.Set(boolGauge(b)) }

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
