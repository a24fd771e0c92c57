package ride

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"blueway/internal/domain"
	"blueway/internal/geo"
	"blueway/internal/motion"
	"blueway/internal/publisher"
)

// Snapshot is what a passenger sees of a ride at one moment.
type Snapshot struct {
	ID          string           `json:"id"`
	RouteID     string           `json:"routeId"`
	RouteName   string           `json:"routeName"`
	Stage       domain.RideStage `json:"stage"`
	Status      string           `json:"status"`
	Message     string           `json:"message,omitempty"`
	Position    domain.Point     `json:"position"`
	Heading     float64          `json:"heading"`
	SpeedMps    float64          `json:"speedMps"`
	CurrentStop string           `json:"currentStop,omitempty"`
	NextStop    string           `json:"nextStop,omitempty"`
	Path        []domain.Point   `json:"path,omitempty"`
	StartedAt   time.Time        `json:"startedAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

func (s Snapshot) clone() Snapshot {
	c := s
	if s.Path != nil {
		c.Path = append([]domain.Point(nil), s.Path...)
	}
	return c
}

// StatusLabel is the passenger-facing label of a stage.
func StatusLabel(stage domain.RideStage) string {
	switch stage {
	case domain.StageSearching:
		return "Procurando van..."
	case domain.StageFound:
		return "Van encontrada!"
	case domain.StageArriving:
		return "Van a caminho"
	case domain.StagePickup:
		return "Embarque"
	case domain.StageJourney:
		return "Em viagem"
	case domain.StageComplete:
		return "Viagem concluída"
	}
	return "Aguardando"
}

// Session is one passenger ride. A goroutine walks the stage timeline and
// hands the animated stages to a motion.Runner.
type Session struct {
	id       string
	route    domain.VanRoute
	stops    []domain.StopPoint
	approach []domain.Point
	delays   Delays
	sink     PositionSink
	log      *slog.Logger

	runner     *motion.Runner
	motionDone chan struct{}

	mu       sync.Mutex
	snap     Snapshot
	lastAt   time.Time
	watchers map[int]chan Snapshot
	nextW    int
	closed   bool
	// index into stops of the next stop expected on the journey
	cursor int

	done chan struct{}
}

func (s *Session) ID() string { return s.id }

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.clone()
}

// Done is closed once the session goroutine has exited.
func (s *Session) Done() <-chan struct{} { return s.done }

// Watch returns a channel that receives the latest snapshot after every
// change. A slow reader only misses intermediate snapshots. The channel is
// closed when ctx ends or the session is over.
func (s *Session) Watch(ctx context.Context) <-chan Snapshot {
	ch := make(chan Snapshot, 1)
	s.mu.Lock()
	ch <- s.snap.clone()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch
	}
	id := s.nextW
	s.nextW++
	s.watchers[id] = ch
	s.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-s.done:
			return
		}
		s.mu.Lock()
		if c, ok := s.watchers[id]; ok {
			delete(s.watchers, id)
			close(c)
		}
		s.mu.Unlock()
	}()
	return ch
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)
	defer s.closeWatchers()
	defer s.runner.Stop()

	if !sleep(ctx, s.delays.Searching) {
		return
	}
	s.setStage(domain.StageFound, "", nil)
	if !sleep(ctx, s.delays.Found) {
		return
	}

	s.setStage(domain.StageArriving, "", s.approach)
	s.runner.Configure(s.approach, domain.StageArriving)
	if !s.waitMotion(ctx) {
		return
	}

	s.setStage(domain.StagePickup, "", nil)
	if !sleep(ctx, s.delays.Pickup) {
		return
	}

	s.mu.Lock()
	s.cursor = 0
	if len(s.stops) > 0 {
		s.snap.CurrentStop = s.stops[0].Name
		s.snap.NextStop = ""
		if len(s.stops) > 1 {
			s.snap.NextStop = s.stops[1].Name
		}
	}
	s.mu.Unlock()
	s.setStage(domain.StageJourney, "", s.route.Path)
	s.runner.Configure(s.route.Path, domain.StageJourney)
	if !s.waitMotion(ctx) {
		return
	}

	if !sleep(ctx, s.delays.Complete) {
		return
	}
	s.setStage(domain.StageComplete, "", nil)
	s.log.Info("ride completed", "session_id", s.id, "route_id", s.route.ID)
}

func (s *Session) waitMotion(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-s.motionDone:
		return true
	}
}

func (s *Session) callbacks() motion.Callbacks {
	return motion.Callbacks{
		OnPositionChange: s.onPosition,
		OnNearStopPoint: func(stop domain.StopPoint) {
			s.update(func(snap *Snapshot) {
				snap.Message = fmt.Sprintf("Aproximando-se do ponto %s. Prepare-se para descer.", stop.Name)
			})
		},
		OnReachedStopPoint: s.onReached,
		OnCompleted: func() {
			select {
			case s.motionDone <- struct{}{}:
			default:
			}
		},
	}
}

func (s *Session) onPosition(p domain.Point, heading float64) {
	now := time.Now()
	var msg publisher.PositionMessage
	s.update(func(snap *Snapshot) {
		prev := snap.Position
		speed := 0.0
		if !s.lastAt.IsZero() {
			if dt := now.Sub(s.lastAt).Seconds(); dt > 0 {
				speed = geo.Haversine(prev, p) / dt
			}
		}
		s.lastAt = now
		snap.Position = p
		snap.Heading = heading
		snap.SpeedMps = speed
		msg = publisher.PositionMessage{
			SessionID: s.id,
			RouteID:   s.route.ID,
			Stage:     string(snap.Stage),
			Timestamp: now,
			Lat:       p.Lat,
			Lon:       p.Lng,
			Heading:   heading,
			Bearing:   geo.Bearing(prev, p),
			SpeedMps:  speed,
		}
	})
	if s.sink == nil {
		return
	}
	if err := s.sink.PublishRidePosition(s.id, msg); err != nil {
		s.log.Warn("publish ride position failed", "session_id", s.id, "error", err)
	}
}

func (s *Session) onReached(stop domain.StopPoint) {
	s.update(func(snap *Snapshot) {
		snap.CurrentStop = stop.Name
		if i := s.stopIndexLocked(stop.ID); i >= 0 {
			s.cursor = i + 1
			snap.NextStop = ""
			if i+1 < len(s.stops) {
				snap.NextStop = s.stops[i+1].Name
			}
		}
		snap.Message = fmt.Sprintf("Chegamos ao ponto %s. Deseja descer aqui?", stop.Name)
	})
}

// stopIndexLocked finds id in the stop order, preferring the first match at
// or after the cursor so a route that revisits a stop moves forward.
func (s *Session) stopIndexLocked(id string) int {
	for i := s.cursor; i < len(s.stops); i++ {
		if s.stops[i].ID == id {
			return i
		}
	}
	for i := 0; i < s.cursor && i < len(s.stops); i++ {
		if s.stops[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Session) setStage(stage domain.RideStage, message string, path []domain.Point) {
	s.update(func(snap *Snapshot) {
		snap.Stage = stage
		snap.Status = StatusLabel(stage)
		if message != "" {
			snap.Message = message
		}
		snap.Path = path
	})
}

// update applies fn to the snapshot and fans the result out to watchers.
func (s *Session) update(fn func(*Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	fn(&s.snap)
	s.snap.UpdatedAt = time.Now()
	snap := s.snap.clone()
	for _, ch := range s.watchers {
		offer(ch, snap)
	}
}

func (s *Session) closeWatchers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for id, ch := range s.watchers {
		delete(s.watchers, id)
		close(ch)
	}
}

// offer replaces whatever is buffered in ch with snap. Only the session
// sends on ch, under its lock.
func offer(ch chan Snapshot, snap Snapshot) {
	select {
	case ch <- snap:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snap:
	default:
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
