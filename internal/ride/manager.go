// Package ride runs passenger ride sessions: the stage timeline a passenger
// sees after booking a seat, with the van animated on the map during the
// arriving and journey stages.
package ride

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"blueway/internal/domain"
	"blueway/internal/motion"
	"blueway/internal/publisher"
	"blueway/internal/routing"
)

// Delays are the fixed waits of the stage timeline. Arriving and journey
// last as long as the animation does.
type Delays struct {
	Searching time.Duration
	Found     time.Duration
	Pickup    time.Duration
	Complete  time.Duration
}

var DefaultDelays = Delays{
	Searching: 3 * time.Second,
	Found:     2 * time.Second,
	Pickup:    3 * time.Second,
	Complete:  5 * time.Second,
}

// RouteSource is the reference data a session needs. *stops.Catalog
// implements it.
type RouteSource interface {
	RouteByID(id string) (domain.VanRoute, bool)
	StopPointsByRouteID(routeID string) []domain.StopPoint
	NearestWithin(p domain.Point, threshold float64) (domain.StopPoint, bool)
}

// Approacher plans the path a van takes to reach the boarding stop.
type Approacher interface {
	Approach(destination domain.Point) (routing.Result, error)
}

type PositionSink interface {
	PublishRidePosition(sessionID string, msg publisher.PositionMessage) error
}

type Metrics interface {
	RideStartedInc()
	RideFinishedInc()
	SetActiveRides(n int)
}

type Option func(*Manager)

func WithDelays(d Delays) Option { return func(m *Manager) { m.delays = d } }

func WithPositionSink(s PositionSink) Option { return func(m *Manager) { m.sink = s } }

func WithMetrics(mt Metrics) Option { return func(m *Manager) { m.metrics = mt } }

func WithLogger(l *slog.Logger) Option { return func(m *Manager) { m.log = l } }

// WithSimulatorOptions are applied to every session's simulator after the
// stop finder.
func WithSimulatorOptions(opts ...motion.Option) Option {
	return func(m *Manager) { m.simOpts = append(m.simOpts, opts...) }
}

func WithRunnerOptions(opts ...motion.RunnerOption) Option {
	return func(m *Manager) { m.runOpts = append(m.runOpts, opts...) }
}

// WithRetention keeps finished sessions readable for d.
func WithRetention(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.retention = d
		}
	}
}

type Manager struct {
	routes    RouteSource
	approach  Approacher
	sink      PositionSink
	delays    Delays
	simOpts   []motion.Option
	runOpts   []motion.RunnerOption
	metrics   Metrics
	log       *slog.Logger
	retention time.Duration

	mu      sync.Mutex
	running map[string]*entry // session id -> live session
	wg      sync.WaitGroup

	finished *cache.Cache // session id -> Snapshot
}

type entry struct {
	session *Session
	cancel  context.CancelFunc
}

func NewManager(routes RouteSource, approach Approacher, opts ...Option) *Manager {
	m := &Manager{
		routes:    routes,
		approach:  approach,
		delays:    DefaultDelays,
		log:       slog.Default(),
		retention: 10 * time.Minute,
		running:   make(map[string]*entry),
	}
	for _, o := range opts {
		o(m)
	}
	m.finished = cache.New(m.retention, 2*m.retention)
	return m
}

// Start books a ride on routeID and launches its timeline. The returned
// snapshot is in the searching stage.
func (m *Manager) Start(ctx context.Context, routeID string) (Snapshot, error) {
	route, ok := m.routes.RouteByID(routeID)
	if !ok {
		return Snapshot{}, fmt.Errorf("ride.Manager.Start: route %q: %w", routeID, domain.ErrNotFound)
	}
	if len(route.Path) == 0 {
		return Snapshot{}, fmt.Errorf("ride.Manager.Start: %w: route %q has no path", domain.ErrValidation, routeID)
	}
	stops := m.routes.StopPointsByRouteID(routeID)
	boarding := route.Path[0]
	if len(stops) > 0 {
		boarding = stops[0].Location
	}
	approach, err := m.approach.Approach(boarding)
	if err != nil {
		return Snapshot{}, fmt.Errorf("ride.Manager.Start: %w", err)
	}
	if len(approach.Coordinates) == 0 {
		approach.Coordinates = []domain.Point{boarding}
	}

	now := time.Now()
	s := &Session{
		id:         uuid.NewString(),
		route:      route,
		stops:      stops,
		approach:   approach.Coordinates,
		delays:     m.delays,
		sink:       m.sink,
		log:        m.log,
		motionDone: make(chan struct{}, 1),
		watchers:   make(map[int]chan Snapshot),
		done:       make(chan struct{}),
	}
	s.snap = Snapshot{
		ID:        s.id,
		RouteID:   route.ID,
		RouteName: route.Name,
		Stage:     domain.StageSearching,
		Status:    StatusLabel(domain.StageSearching),
		Message:   fmt.Sprintf("Viagem confirmada na linha %s. A van está a caminho!", route.Name),
		Position:  approach.Coordinates[0],
		StartedAt: now,
		UpdatedAt: now,
	}
	simOpts := append([]motion.Option{motion.WithStopFinder(m.routes)}, m.simOpts...)
	s.runner = motion.NewRunner(motion.NewSimulator(simOpts...), s.callbacks(), m.runOpts...)

	// sessions outlive the request that created them
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	m.mu.Lock()
	m.running[s.id] = &entry{session: s, cancel: cancel}
	m.wg.Add(1)
	if m.metrics != nil {
		m.metrics.RideStartedInc()
		m.metrics.SetActiveRides(len(m.running))
	}
	m.mu.Unlock()

	m.log.InfoContext(ctx, "ride started", "session_id", s.id, "route_id", route.ID, "stops", len(stops))
	go func() {
		defer m.wg.Done()
		s.run(runCtx)
		cancel()
		final := s.Snapshot()
		m.mu.Lock()
		if _, ok := m.running[s.id]; ok {
			delete(m.running, s.id)
			if final.Stage == domain.StageComplete {
				m.finished.SetDefault(s.id, final)
			}
		}
		if m.metrics != nil {
			m.metrics.RideFinishedInc()
			m.metrics.SetActiveRides(len(m.running))
		}
		m.mu.Unlock()
	}()
	return s.Snapshot(), nil
}

// Get returns the session's latest snapshot, live or recently finished.
func (m *Manager) Get(id string) (Snapshot, error) {
	m.mu.Lock()
	e, ok := m.running[id]
	m.mu.Unlock()
	if ok {
		return e.session.Snapshot(), nil
	}
	if v, ok := m.finished.Get(id); ok {
		return v.(Snapshot).clone(), nil
	}
	return Snapshot{}, fmt.Errorf("ride.Manager.Get: session %q: %w", id, domain.ErrNotFound)
}

// Watch streams snapshots of a live session. A finished session yields its
// final snapshot and a closed channel.
func (m *Manager) Watch(ctx context.Context, id string) (<-chan Snapshot, error) {
	m.mu.Lock()
	e, ok := m.running[id]
	m.mu.Unlock()
	if ok {
		return e.session.Watch(ctx), nil
	}
	if v, ok := m.finished.Get(id); ok {
		ch := make(chan Snapshot, 1)
		ch <- v.(Snapshot).clone()
		close(ch)
		return ch, nil
	}
	return nil, fmt.Errorf("ride.Manager.Watch: session %q: %w", id, domain.ErrNotFound)
}

// Cancel stops a session and forgets it. When Cancel returns the session
// publishes nothing more.
func (m *Manager) Cancel(id string) error {
	m.mu.Lock()
	e, ok := m.running[id]
	if ok {
		delete(m.running, id)
	}
	m.mu.Unlock()
	if !ok {
		if _, found := m.finished.Get(id); found {
			m.finished.Delete(id)
			return nil
		}
		return fmt.Errorf("ride.Manager.Cancel: session %q: %w", id, domain.ErrNotFound)
	}
	e.cancel()
	<-e.session.Done()
	m.log.Info("ride cancelled", "session_id", id)
	return nil
}

// Active is the number of sessions still running their timeline.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.running)
}

// Stop cancels every live session and waits for them.
func (m *Manager) Stop() {
	m.mu.Lock()
	for _, e := range m.running {
		e.cancel()
	}
	m.mu.Unlock()
	m.wg.Wait()
}
