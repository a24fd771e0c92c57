// Package livetrip is the Live Trip Registry: the single active trip a driver
// is running, its passenger roster and the driver-facing logs that go with it
// (notifications, trip history, earnings).
//
// All mutations go through one mutex, so the capacity check and the roster
// append in RequestRide happen as one step. Events are delivered to
// subscribers after the mutex is released, in the order the mutations
// happened.
package livetrip

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"blueway/internal/domain"
	"blueway/internal/geo"
	"blueway/internal/stops"
	"blueway/internal/store"
)

const (
	DefaultRouteName         = "Linha 1 - Paulista-Moema"
	DefaultNotificationLimit = 50
	DefaultHistoryLimit      = 100
	DefaultFare              = 8.50

	earningsLimit = 1000
)

// CapacityPolicy decides which passengers hold a seat.
type CapacityPolicy string

const (
	// CapacityReserved counts waiting and boarded passengers, so a van cannot
	// be overbooked before anyone gets on.
	CapacityReserved CapacityPolicy = "reserved"
	// CapacityBoarded counts only passengers on board.
	CapacityBoarded CapacityPolicy = "boarded"
)

// DuplicatePolicy decides what StartTrip does while a trip is active.
type DuplicatePolicy string

const (
	// DuplicateOverwrite archives the running trip as completed and starts
	// the new one.
	DuplicateOverwrite DuplicatePolicy = "overwrite"
	DuplicateReject    DuplicatePolicy = "reject"
)

// RouteLocator resolves a route display name. *stops.Catalog implements it.
type RouteLocator interface {
	RouteByName(name string) (domain.VanRoute, bool)
}

type Metrics interface {
	TripStartedInc()
	TripEndedInc()
	RideRequestInc(outcome string)
	PassengerBoardedInc()
	PassengerDroppedInc()
	NotificationInc()
	SetTripState(active bool, occupied int)
}

type Option func(*Registry)

func WithCapacityPolicy(p CapacityPolicy) Option { return func(r *Registry) { r.capacity = p } }

func WithDuplicatePolicy(p DuplicatePolicy) Option { return func(r *Registry) { r.duplicate = p } }

func WithNotificationLimit(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.notificationLimit = n
		}
	}
}

func WithHistoryLimit(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.historyLimit = n
		}
	}
}

// WithFare sets the amount credited to the driver for every drop-off.
func WithFare(f float64) Option { return func(r *Registry) { r.fare = f } }

func WithRouteLocator(l RouteLocator) Option { return func(r *Registry) { r.routes = l } }

func WithClock(now func() time.Time) Option { return func(r *Registry) { r.now = now } }

func WithMetrics(m Metrics) Option { return func(r *Registry) { r.metrics = m } }

func WithLogger(l *slog.Logger) Option { return func(r *Registry) { r.log = l } }

type Registry struct {
	docs              store.Documents
	capacity          CapacityPolicy
	duplicate         DuplicatePolicy
	notificationLimit int
	historyLimit      int
	fare              float64
	routes            RouteLocator
	now               func() time.Time
	metrics           Metrics
	log               *slog.Logger
	tracer            trace.Tracer

	mu   sync.Mutex
	trip *domain.LiveTrip

	events bus
}

func New(docs store.Documents, opts ...Option) *Registry {
	r := &Registry{
		docs:              docs,
		capacity:          CapacityReserved,
		duplicate:         DuplicateOverwrite,
		notificationLimit: DefaultNotificationLimit,
		historyLimit:      DefaultHistoryLimit,
		fare:              DefaultFare,
		now:               time.Now,
		log:               slog.Default(),
		tracer:            otel.Tracer("livetrip"),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Restore reloads the active trip persisted by a previous process. A missing
// or unreadable snapshot leaves the registry empty.
func (r *Registry) Restore(ctx context.Context) error {
	ctx, span := r.tracer.Start(ctx, "livetrip.restore")
	defer span.End()

	trip, ok, err := store.LoadValue[domain.LiveTrip](ctx, r.docs, store.CurrentTripKey)
	if err != nil {
		return r.fail(ctx, span, "Restore", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !ok || trip.Status == domain.TripCompleted || trip.ID == "" {
		return nil
	}
	if trip.Passengers == nil {
		trip.Passengers = []domain.LivePassenger{}
	}
	r.trip = &trip
	r.updateGauges()
	r.log.InfoContext(ctx, "restored active trip", "trip_id", trip.ID, "driver_id", trip.DriverID, "passengers", len(trip.Passengers))
	return nil
}

// StartTrip opens a trip for driver on the named route. An empty route name
// selects DefaultRouteName. The van starts at the first point of the route
// when the route is known, else at Av. Paulista.
func (r *Registry) StartTrip(ctx context.Context, driver domain.DriverProfile, routeName string) (domain.LiveTrip, error) {
	ctx, span := r.tracer.Start(ctx, "livetrip.start_trip", trace.WithAttributes(
		attribute.String("driver_id", driver.ID),
	))
	defer span.End()

	if strings.TrimSpace(driver.ID) == "" {
		return domain.LiveTrip{}, r.fail(ctx, span, "StartTrip", fmt.Errorf("%w: driver id is required", domain.ErrValidation))
	}
	if driver.Vehicle.Capacity <= 0 {
		return domain.LiveTrip{}, r.fail(ctx, span, "StartTrip", fmt.Errorf("%w: vehicle capacity must be positive", domain.ErrValidation))
	}
	routeName = strings.TrimSpace(routeName)
	if routeName == "" {
		routeName = DefaultRouteName
	}
	start := stops.DefaultStartLocation
	if r.routes != nil {
		if route, ok := r.routes.RouteByName(routeName); ok && len(route.Path) > 0 {
			start = route.Path[0]
		}
	}

	r.mu.Lock()
	if r.trip != nil {
		if r.duplicate == DuplicateReject {
			r.mu.Unlock()
			return domain.LiveTrip{}, r.fail(ctx, span, "StartTrip", domain.ErrTripAlreadyActive)
		}
		r.log.WarnContext(ctx, "starting a trip while another is active, archiving the previous one",
			"previous_trip_id", r.trip.ID, "previous_driver_id", r.trip.DriverID)
		r.archiveLocked(ctx)
	}

	trip := domain.LiveTrip{
		ID:              uuid.NewString(),
		DriverID:        driver.ID,
		DriverName:      driver.Name,
		DriverPhone:     driver.Phone,
		Vehicle:         driver.Vehicle,
		Route:           routeName,
		Status:          domain.TripWaitingPassengers,
		CurrentLocation: start,
		Passengers:      []domain.LivePassenger{},
		StartTime:       r.now(),
	}
	r.trip = &trip
	r.persistLocked(ctx)
	snap := trip.Clone()
	r.events.enqueue(Event{Type: EventTripStarted, At: snap.StartTime, Trip: &snap, DriverID: driver.ID})
	if r.metrics != nil {
		r.metrics.TripStartedInc()
	}
	r.updateGauges()
	r.mu.Unlock()
	r.events.flush()

	span.SetAttributes(attribute.String("trip_id", snap.ID))
	r.log.InfoContext(ctx, "trip started", "trip_id", snap.ID, "driver_id", driver.ID, "route", routeName, "capacity", driver.Vehicle.Capacity)
	return snap, nil
}

// RequestRide adds a passenger to the active trip if a seat is free. The
// capacity check and the append happen under the same lock.
func (r *Registry) RequestRide(ctx context.Context, req domain.RideRequest) (domain.LivePassenger, error) {
	ctx, span := r.tracer.Start(ctx, "livetrip.request_ride")
	defer span.End()

	r.mu.Lock()
	if r.trip == nil {
		r.mu.Unlock()
		r.countRequest("no_trip")
		return domain.LivePassenger{}, r.fail(ctx, span, "RequestRide", domain.ErrNoActiveTrip)
	}
	if strings.TrimSpace(req.Name) == "" {
		r.mu.Unlock()
		r.countRequest("invalid")
		return domain.LivePassenger{}, r.fail(ctx, span, "RequestRide", fmt.Errorf("%w: passenger name is required", domain.ErrValidation))
	}
	if r.occupiedLocked() >= r.trip.Vehicle.Capacity {
		r.mu.Unlock()
		r.countRequest("full")
		return domain.LivePassenger{}, r.fail(ctx, span, "RequestRide", domain.ErrVanFull)
	}

	now := r.now()
	p := domain.LivePassenger{
		ID:            uuid.NewString(),
		Name:          strings.TrimSpace(req.Name),
		Phone:         req.Phone,
		Origin:        req.Origin,
		Destination:   req.Destination,
		Status:        domain.PassengerWaiting,
		PaymentStatus: req.PaymentStatus,
		PaymentMethod: req.PaymentMethod,
		Amount:        req.Amount,
		RequestTime:   now,
	}
	if p.PaymentStatus == "" {
		p.PaymentStatus = domain.PaymentPaid
	}
	r.trip.Passengers = append(r.trip.Passengers, p)
	r.persistLocked(ctx)
	r.enqueuePassengerLocked(EventPassengerRequested, p, now)
	r.addNotificationLocked(ctx, r.trip.DriverID, domain.DriverNotification{
		Type:        domain.NotificationNewPassenger,
		Title:       "Nova solicitação!",
		Message:     fmt.Sprintf("%s solicitou embarque de %s para %s", p.Name, p.Origin, p.Destination),
		PassengerID: p.ID,
	})
	tripID := r.trip.ID
	r.updateGauges()
	r.mu.Unlock()
	r.events.flush()

	r.countRequest("accepted")
	span.SetAttributes(attribute.String("trip_id", tripID), attribute.String("passenger_id", p.ID))
	r.log.InfoContext(ctx, "ride requested", "trip_id", tripID, "passenger_id", p.ID)
	return p, nil
}

// BoardPassenger moves a waiting passenger on board. The first boarding puts
// the trip in progress.
func (r *Registry) BoardPassenger(ctx context.Context, driverID, passengerID string) (domain.LivePassenger, error) {
	ctx, span := r.tracer.Start(ctx, "livetrip.board_passenger", trace.WithAttributes(
		attribute.String("driver_id", driverID),
		attribute.String("passenger_id", passengerID),
	))
	defer span.End()

	r.mu.Lock()
	if r.trip == nil {
		r.mu.Unlock()
		return domain.LivePassenger{}, r.fail(ctx, span, "BoardPassenger", domain.ErrNoActiveTrip)
	}
	if r.trip.DriverID != driverID {
		r.mu.Unlock()
		return domain.LivePassenger{}, r.fail(ctx, span, "BoardPassenger", domain.ErrUnauthorizedDriver)
	}
	i := r.indexLocked(passengerID)
	if i < 0 {
		r.mu.Unlock()
		return domain.LivePassenger{}, r.fail(ctx, span, "BoardPassenger", domain.ErrPassengerNotFound)
	}
	if st := r.trip.Passengers[i].Status; st != domain.PassengerWaiting {
		r.mu.Unlock()
		return domain.LivePassenger{}, r.fail(ctx, span, "BoardPassenger", fmt.Errorf("%w: passenger is %s", domain.ErrInvalidTransition, st))
	}

	now := r.now()
	p := &r.trip.Passengers[i]
	p.Status = domain.PassengerBoarded
	p.BoardingTime = &now
	if r.trip.Status == domain.TripWaitingPassengers {
		r.trip.Status = domain.TripInProgress
	}
	out := *p
	r.persistLocked(ctx)
	r.enqueuePassengerLocked(EventPassengerBoarded, out, now)
	r.addNotificationLocked(ctx, r.trip.DriverID, domain.DriverNotification{
		Type:        domain.NotificationPassengerBoarded,
		Title:       "Passageiro embarcou!",
		Message:     fmt.Sprintf("%s embarcou no veículo", out.Name),
		PassengerID: out.ID,
	})
	if r.metrics != nil {
		r.metrics.PassengerBoardedInc()
	}
	r.updateGauges()
	r.mu.Unlock()
	r.events.flush()

	r.log.InfoContext(ctx, "passenger boarded", "passenger_id", passengerID)
	return out, nil
}

// DropOffPassenger completes a boarded passenger's ride and credits the fare
// to the driver's earnings log.
func (r *Registry) DropOffPassenger(ctx context.Context, passengerID string) (domain.LivePassenger, error) {
	ctx, span := r.tracer.Start(ctx, "livetrip.drop_off_passenger", trace.WithAttributes(
		attribute.String("passenger_id", passengerID),
	))
	defer span.End()

	r.mu.Lock()
	if r.trip == nil {
		r.mu.Unlock()
		return domain.LivePassenger{}, r.fail(ctx, span, "DropOffPassenger", domain.ErrNoActiveTrip)
	}
	i := r.indexLocked(passengerID)
	if i < 0 {
		r.mu.Unlock()
		return domain.LivePassenger{}, r.fail(ctx, span, "DropOffPassenger", domain.ErrPassengerNotFound)
	}
	if st := r.trip.Passengers[i].Status; st != domain.PassengerBoarded {
		r.mu.Unlock()
		return domain.LivePassenger{}, r.fail(ctx, span, "DropOffPassenger", fmt.Errorf("%w: passenger is %s", domain.ErrInvalidTransition, st))
	}

	now := r.now()
	p := &r.trip.Passengers[i]
	p.Status = domain.PassengerDroppedOff
	p.DropOffTime = &now
	out := *p
	driverID := r.trip.DriverID
	r.persistLocked(ctx)

	if r.fare > 0 {
		entry := domain.EarningEntry{
			Amount:      r.fare,
			Description: "Corrida - " + out.Name,
			PassengerID: out.ID,
			At:          now,
		}
		if _, err := store.PrependCapped(ctx, r.docs, store.EarningsKey(driverID), entry, earningsLimit); err != nil {
			r.log.ErrorContext(ctx, "failed to credit earnings", "driver_id", driverID, "passenger_id", out.ID, "error", err)
		}
	}
	r.enqueuePassengerLocked(EventPassengerDropped, out, now)
	r.addNotificationLocked(ctx, driverID, domain.DriverNotification{
		Type:        domain.NotificationPassengerDropped,
		Title:       "Passageiro desembarcou!",
		Message:     fmt.Sprintf("%s desembarcou no destino", out.Name),
		PassengerID: out.ID,
	})
	if r.metrics != nil {
		r.metrics.PassengerDroppedInc()
	}
	r.updateGauges()
	r.mu.Unlock()
	r.events.flush()

	r.log.InfoContext(ctx, "passenger dropped off", "passenger_id", passengerID)
	return out, nil
}

// ConfirmPayment marks a pending payment as paid.
func (r *Registry) ConfirmPayment(ctx context.Context, passengerID string) (domain.LivePassenger, error) {
	ctx, span := r.tracer.Start(ctx, "livetrip.confirm_payment", trace.WithAttributes(
		attribute.String("passenger_id", passengerID),
	))
	defer span.End()

	r.mu.Lock()
	if r.trip == nil {
		r.mu.Unlock()
		return domain.LivePassenger{}, r.fail(ctx, span, "ConfirmPayment", domain.ErrNoActiveTrip)
	}
	i := r.indexLocked(passengerID)
	if i < 0 {
		r.mu.Unlock()
		return domain.LivePassenger{}, r.fail(ctx, span, "ConfirmPayment", domain.ErrPassengerNotFound)
	}
	if r.trip.Passengers[i].PaymentStatus == domain.PaymentPaid {
		r.mu.Unlock()
		return domain.LivePassenger{}, r.fail(ctx, span, "ConfirmPayment", fmt.Errorf("%w: payment already confirmed", domain.ErrInvalidTransition))
	}

	now := r.now()
	r.trip.Passengers[i].PaymentStatus = domain.PaymentPaid
	out := r.trip.Passengers[i]
	r.persistLocked(ctx)
	r.enqueuePassengerLocked(EventPaymentConfirmed, out, now)
	r.addNotificationLocked(ctx, r.trip.DriverID, domain.DriverNotification{
		Type:        domain.NotificationPaymentReceived,
		Title:       "Pagamento recebido!",
		Message:     fmt.Sprintf("%s pagou %s via %s", out.Name, out.Amount, out.PaymentMethod),
		PassengerID: out.ID,
	})
	r.mu.Unlock()
	r.events.flush()
	return out, nil
}

// UpdateLocation records where the van is.
func (r *Registry) UpdateLocation(ctx context.Context, p domain.Point) error {
	ctx, span := r.tracer.Start(ctx, "livetrip.update_location")
	defer span.End()

	if !geo.Valid(p) {
		return r.fail(ctx, span, "UpdateLocation", fmt.Errorf("%w: invalid coordinates", domain.ErrValidation))
	}
	r.mu.Lock()
	if r.trip == nil {
		r.mu.Unlock()
		return r.fail(ctx, span, "UpdateLocation", domain.ErrNoActiveTrip)
	}
	r.trip.CurrentLocation = p
	r.persistLocked(ctx)
	snap := r.trip.Clone()
	loc := p
	r.events.enqueue(Event{Type: EventLocationUpdated, At: r.now(), Trip: &snap, Location: &loc, DriverID: snap.DriverID})
	r.mu.Unlock()
	r.events.flush()
	return nil
}

// UpdateStops sets the stop the van is at and the one it heads to next, and
// tells the driver.
func (r *Registry) UpdateStops(ctx context.Context, current, next string) error {
	ctx, span := r.tracer.Start(ctx, "livetrip.update_stops")
	defer span.End()

	r.mu.Lock()
	if r.trip == nil {
		r.mu.Unlock()
		return r.fail(ctx, span, "UpdateStops", domain.ErrNoActiveTrip)
	}
	r.trip.CurrentStop = current
	r.trip.NextStop = next
	r.persistLocked(ctx)
	snap := r.trip.Clone()
	r.events.enqueue(Event{Type: EventStopsUpdated, At: r.now(), Trip: &snap, DriverID: snap.DriverID})

	msg := "Parada atual: " + current
	if next != "" {
		msg = fmt.Sprintf("Parada atual: %s. Próxima parada: %s", current, next)
	}
	r.addNotificationLocked(ctx, snap.DriverID, domain.DriverNotification{
		Type:    domain.NotificationRouteUpdate,
		Title:   "Atualização de rota",
		Message: msg,
	})
	r.mu.Unlock()
	r.events.flush()
	return nil
}

// EndTrip completes the active trip, archives it to the driver's history and
// frees the slot.
func (r *Registry) EndTrip(ctx context.Context, driverID string) (domain.LiveTrip, error) {
	ctx, span := r.tracer.Start(ctx, "livetrip.end_trip", trace.WithAttributes(
		attribute.String("driver_id", driverID),
	))
	defer span.End()

	r.mu.Lock()
	if r.trip == nil {
		r.mu.Unlock()
		return domain.LiveTrip{}, r.fail(ctx, span, "EndTrip", domain.ErrNoActiveTrip)
	}
	if r.trip.DriverID != driverID {
		r.mu.Unlock()
		return domain.LiveTrip{}, r.fail(ctx, span, "EndTrip", domain.ErrUnauthorizedDriver)
	}
	done := r.archiveLocked(ctx)
	r.updateGauges()
	r.mu.Unlock()
	r.events.flush()

	r.log.InfoContext(ctx, "trip ended", "trip_id", done.ID, "driver_id", driverID, "passengers", len(done.Passengers))
	return done, nil
}

// archiveLocked completes the active trip, prepends it to the driver's
// history, clears the slot and queues trip_ended.
func (r *Registry) archiveLocked(ctx context.Context) domain.LiveTrip {
	now := r.now()
	r.trip.Status = domain.TripCompleted
	r.trip.EndTime = &now
	done := r.trip.Clone()
	r.trip = nil

	if _, err := store.PrependCapped(ctx, r.docs, store.HistoryKey(done.DriverID), done, r.historyLimit); err != nil {
		r.log.ErrorContext(ctx, "failed to archive trip", "trip_id", done.ID, "error", err)
	}
	r.persistLocked(ctx)
	r.events.enqueue(Event{Type: EventTripEnded, At: now, Trip: &done, DriverID: done.DriverID})
	if r.metrics != nil {
		r.metrics.TripEndedInc()
	}
	return done
}

func (r *Registry) CurrentTrip() (domain.LiveTrip, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.trip == nil {
		return domain.LiveTrip{}, false
	}
	return r.trip.Clone(), true
}

// AvailableCapacity is the number of free seats, zero without a trip.
func (r *Registry) AvailableCapacity() int {
	occ, _ := r.Occupancy()
	return occ.Available
}

func (r *Registry) CanAcceptMorePassengers() bool {
	return r.AvailableCapacity() > 0
}

// Occupancy reports seat usage of the active trip. ok is false without one.
func (r *Registry) Occupancy() (domain.Occupancy, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.trip == nil {
		return domain.Occupancy{}, false
	}
	return r.occupancyLocked(), true
}

// TripWithOccupancy reads the current trip and its occupancy under one lock,
// so the two always agree.
func (r *Registry) TripWithOccupancy() (domain.LiveTrip, domain.Occupancy, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.trip == nil {
		return domain.LiveTrip{}, domain.Occupancy{}, false
	}
	return r.trip.Clone(), r.occupancyLocked(), true
}

// TripHistory returns the driver's completed trips, newest first.
func (r *Registry) TripHistory(ctx context.Context, driverID string) ([]domain.LiveTrip, error) {
	trips, err := store.LoadList[domain.LiveTrip](ctx, r.docs, store.HistoryKey(driverID))
	if err != nil {
		return nil, fmt.Errorf("livetrip.Registry.TripHistory: %w", err)
	}
	return trips, nil
}

type Earnings struct {
	Total   float64               `json:"total"`
	Rides   int                   `json:"rides"`
	Entries []domain.EarningEntry `json:"entries"`
}

func (r *Registry) Earnings(ctx context.Context, driverID string) (Earnings, error) {
	entries, err := store.LoadList[domain.EarningEntry](ctx, r.docs, store.EarningsKey(driverID))
	if err != nil {
		return Earnings{}, fmt.Errorf("livetrip.Registry.Earnings: %w", err)
	}
	e := Earnings{Entries: entries, Rides: len(entries)}
	for _, en := range entries {
		e.Total += en.Amount
	}
	return e, nil
}

// Subscribe registers fn for one event type. Handlers run on the goroutine
// that performed the mutation, after the registry lock is released.
func (r *Registry) Subscribe(event EventType, fn Handler) Subscription {
	return r.events.subscribe(event, fn)
}

// SubscribeAll registers fn for every event type.
func (r *Registry) SubscribeAll(fn Handler) Subscription {
	return r.events.subscribe("", fn)
}

// Unsubscribe removes the handler registered under sub. It reports whether
// the handler was still registered.
func (r *Registry) Unsubscribe(sub Subscription) bool {
	return r.events.unsubscribe(sub)
}

func (r *Registry) occupancyLocked() domain.Occupancy {
	occupied := r.occupiedLocked()
	avail := r.trip.Vehicle.Capacity - occupied
	if avail < 0 {
		avail = 0
	}
	return domain.Occupancy{Total: r.trip.Vehicle.Capacity, Occupied: occupied, Available: avail}
}

func (r *Registry) occupiedLocked() int {
	if r.capacity == CapacityBoarded {
		return r.trip.CountByStatus(domain.PassengerBoarded)
	}
	return r.trip.CountByStatus(domain.PassengerWaiting, domain.PassengerBoarded)
}

func (r *Registry) indexLocked(passengerID string) int {
	for i, p := range r.trip.Passengers {
		if p.ID == passengerID {
			return i
		}
	}
	return -1
}

func (r *Registry) enqueuePassengerLocked(t EventType, p domain.LivePassenger, at time.Time) {
	snap := r.trip.Clone()
	r.events.enqueue(Event{Type: t, At: at, Trip: &snap, Passenger: &p, DriverID: snap.DriverID})
}

// persistLocked writes the active trip snapshot, or removes it when the slot
// is empty. Failures are logged; the in-memory state stays authoritative.
func (r *Registry) persistLocked(ctx context.Context) {
	var err error
	if r.trip == nil {
		err = r.docs.Delete(ctx, store.CurrentTripKey)
	} else {
		err = store.SaveValue(ctx, r.docs, store.CurrentTripKey, r.trip)
	}
	if err != nil {
		r.log.ErrorContext(ctx, "failed to persist active trip", "error", err)
	}
}

func (r *Registry) updateGauges() {
	if r.metrics == nil {
		return
	}
	if r.trip == nil {
		r.metrics.SetTripState(false, 0)
		return
	}
	r.metrics.SetTripState(true, r.occupiedLocked())
}

func (r *Registry) countRequest(outcome string) {
	if r.metrics != nil {
		r.metrics.RideRequestInc(outcome)
	}
}

// fail records err on the span, logs the rejection and wraps err with the
// operation name.
func (r *Registry) fail(ctx context.Context, span trace.Span, op string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	r.log.WarnContext(ctx, "registry operation rejected", "op", op, "reason", err)
	return fmt.Errorf("livetrip.Registry.%s: %w", op, err)
}
