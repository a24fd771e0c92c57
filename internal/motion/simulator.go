// Package motion animates a van along a polyline. Simulator is the pure state
// machine: it only moves when Advance is called and reports what happened as
// events. Runner drives a Simulator from a ticker goroutine.
package motion

import (
	"time"

	"blueway/internal/domain"
	"blueway/internal/geo"
)

type State int

const (
	Idle State = iota
	Running
	Completed
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Completed:
		return "completed"
	default:
		return "idle"
	}
}

type EventKind int

const (
	PositionChanged EventKind = iota + 1
	NearStop
	ReachedStop
	Finished
)

type Event struct {
	Kind     EventKind
	Position domain.Point
	Heading  float64
	Stop     domain.StopPoint
}

// StopFinder resolves the closest stop within a planar threshold.
// *stops.Catalog implements it.
type StopFinder interface {
	NearestWithin(p domain.Point, threshold float64) (domain.StopPoint, bool)
}

// Speeds are in degrees of planar distance per simulated second.
type Speeds struct {
	Arriving float64
	Journey  float64
	Slowed   float64
	Slowdown time.Duration
}

// DefaultSpeeds: 0.00015°/s is about 60 km/h on the planar metric.
var DefaultSpeeds = Speeds{
	Arriving: 0.0001,
	Journey:  0.00015,
	Slowed:   0.00005,
	Slowdown: 3 * time.Second,
}

type Thresholds struct {
	Near    float64
	Reached float64
}

var DefaultThresholds = Thresholds{Near: 0.001, Reached: 0.0005}

type Option func(*Simulator)

func WithSpeeds(s Speeds) Option { return func(sim *Simulator) { sim.speeds = s } }

func WithThresholds(t Thresholds) Option { return func(sim *Simulator) { sim.thresholds = t } }

// WithPrecision sets how many decimals two positions must share to count as
// the same position.
func WithPrecision(decimals int) Option { return func(sim *Simulator) { sim.precision = decimals } }

func WithStopFinder(f StopFinder) Option { return func(sim *Simulator) { sim.stops = f } }

type Simulator struct {
	speeds     Speeds
	thresholds Thresholds
	precision  int
	stops      StopFinder

	points   []domain.Point
	stage    domain.RideStage
	state    State
	segment  int
	progress float64
	position domain.Point
	heading  float64
	lastKey  string
	slowFor  time.Duration

	// ids of the last stops reported; a stop fires again only after
	// another stop has been reported in between
	lastNear    string
	lastReached string
}

func NewSimulator(opts ...Option) *Simulator {
	s := &Simulator{
		speeds:     DefaultSpeeds,
		thresholds: DefaultThresholds,
		precision:  5,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Configure discards any previous animation and loads a new route. An empty
// route or a stage where the van does not move leaves the simulator idle. A
// single point is reported and completes at once. Otherwise the first point
// is reported and the simulator starts running. A stop at the first point is
// reported on the first move away from it.
func (s *Simulator) Configure(points []domain.Point, stage domain.RideStage) []Event {
	s.points = append([]domain.Point(nil), points...)
	s.stage = stage
	s.segment = 0
	s.progress = 0
	s.heading = 0
	s.lastKey = ""
	s.slowFor = 0
	s.lastNear = ""
	s.lastReached = ""

	if !stage.Animated() || len(s.points) == 0 {
		s.state = Idle
		s.position = domain.Point{}
		return nil
	}

	s.position = s.points[0]
	s.lastKey = geo.Key(s.position, s.precision)
	if len(s.points) > 1 {
		s.heading = geo.Heading(s.points[0], s.points[1])
	}
	evs := []Event{{Kind: PositionChanged, Position: s.position, Heading: s.heading}}
	if len(s.points) == 1 {
		s.state = Completed
		return append(evs, Event{Kind: Finished, Position: s.position, Heading: s.heading})
	}
	s.state = Running
	return evs
}

// Advance moves the van by dt of simulated time.
func (s *Simulator) Advance(dt time.Duration) []Event {
	if s.state != Running || dt <= 0 {
		return nil
	}

	speed := s.speeds.Journey
	if s.stage == domain.StageArriving {
		speed = s.speeds.Arriving
	}
	if s.slowFor > 0 {
		speed = s.speeds.Slowed
		s.slowFor -= dt
	}

	last := len(s.points) - 1
	for s.segment < last && geo.PlanarDistance(s.points[s.segment], s.points[s.segment+1]) == 0 {
		s.segment++
		s.progress = 0
	}
	if s.segment >= last {
		return s.finish(nil)
	}

	from, to := s.points[s.segment], s.points[s.segment+1]
	s.progress += speed * dt.Seconds() / geo.PlanarDistance(from, to)
	if s.progress > 1 {
		s.progress = 1
	}
	s.heading = geo.Heading(from, to)
	s.position = geo.Lerp(from, to, s.progress)

	evs := s.observe(nil)
	if s.progress >= 1 {
		s.segment++
		s.progress = 0
		if s.segment >= last {
			return s.finish(evs)
		}
	}
	return evs
}

func (s *Simulator) finish(evs []Event) []Event {
	s.position = s.points[len(s.points)-1]
	s.progress = 1
	s.segment = len(s.points) - 1
	evs = s.observe(evs)
	s.state = Completed
	return append(evs, Event{Kind: Finished, Position: s.position, Heading: s.heading})
}

// observe reports the current position when its rounded key changed and
// runs the stop proximity checks for it.
func (s *Simulator) observe(evs []Event) []Event {
	key := geo.Key(s.position, s.precision)
	if key == s.lastKey {
		return evs
	}
	s.lastKey = key
	evs = append(evs, Event{Kind: PositionChanged, Position: s.position, Heading: s.heading})
	if s.stops == nil {
		return evs
	}

	if st, ok := s.stops.NearestWithin(s.position, s.thresholds.Near); ok && st.ID != s.lastNear {
		s.lastNear = st.ID
		evs = append(evs, Event{Kind: NearStop, Position: s.position, Heading: s.heading, Stop: st})
	}
	if st, ok := s.stops.NearestWithin(s.position, s.thresholds.Reached); ok && st.ID != s.lastReached {
		s.lastReached = st.ID
		s.slowFor = s.speeds.Slowdown
		evs = append(evs, Event{Kind: ReachedStop, Position: s.position, Heading: s.heading, Stop: st})
	}
	return evs
}

func (s *Simulator) State() State { return s.state }

func (s *Simulator) Stage() domain.RideStage { return s.stage }

func (s *Simulator) Position() domain.Point { return s.position }

// Heading is the icon rotation in degrees, see geo.Heading.
func (s *Simulator) Heading() float64 { return s.heading }

func (s *Simulator) Segment() int { return s.segment }

// Progress is the fraction of the current segment already covered.
func (s *Simulator) Progress() float64 { return s.progress }
