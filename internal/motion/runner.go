package motion

import (
	"context"
	"sync"
	"time"

	"blueway/internal/domain"
)

// Callbacks receive simulator events on the runner goroutine. They must not
// call Configure or Stop on the runner that invoked them; schedule that work
// elsewhere instead.
type Callbacks struct {
	OnPositionChange   func(p domain.Point, heading float64)
	OnNearStopPoint    func(stop domain.StopPoint)
	OnReachedStopPoint func(stop domain.StopPoint)
	OnCompleted        func()
}

type RunnerMetrics interface {
	FrameObserve(d time.Duration)
	PositionUpdatedInc()
	StopReachedInc()
}

type RunnerOption func(*Runner)

// WithFrameInterval sets the wall-clock time between two animation frames.
func WithFrameInterval(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithSpeedMultiplier scales elapsed wall-clock time into simulated time.
func WithSpeedMultiplier(f float64) RunnerOption {
	return func(r *Runner) {
		if f > 0 {
			r.multiplier = f
		}
	}
}

func WithRunnerMetrics(m RunnerMetrics) RunnerOption {
	return func(r *Runner) { r.metrics = m }
}

type Runner struct {
	cb         Callbacks
	interval   time.Duration
	multiplier float64
	metrics    RunnerMetrics

	life   sync.Mutex // serialises Configure and Stop
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu  sync.Mutex // guards sim
	sim *Simulator
}

func NewRunner(sim *Simulator, cb Callbacks, opts ...RunnerOption) *Runner {
	r := &Runner{
		cb:         cb,
		interval:   50 * time.Millisecond,
		multiplier: 1,
		sim:        sim,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Configure stops the current animation, loads the new route and reports the
// first position before returning. A frame loop is started when the
// simulator ends up running.
func (r *Runner) Configure(points []domain.Point, stage domain.RideStage) {
	r.life.Lock()
	defer r.life.Unlock()
	r.halt()

	r.mu.Lock()
	evs := r.sim.Configure(points, stage)
	running := r.sim.State() == Running
	r.mu.Unlock()

	r.dispatch(evs)
	if !running {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.loop(ctx)
	}()
}

// Stop cancels the frame loop and waits for it. No callback runs after Stop
// returns.
func (r *Runner) Stop() {
	r.life.Lock()
	defer r.life.Unlock()
	r.halt()
}

func (r *Runner) halt() {
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.wg.Wait()
}

func (r *Runner) loop(ctx context.Context) {
	tick := time.NewTicker(r.interval)
	defer tick.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-tick.C:
			frameStart := time.Now()
			elapsed := time.Duration(float64(now.Sub(last)) * r.multiplier)
			last = now

			r.mu.Lock()
			evs := r.sim.Advance(elapsed)
			done := r.sim.State() != Running
			r.mu.Unlock()

			if ctx.Err() != nil {
				return
			}
			r.dispatch(evs)
			if r.metrics != nil {
				r.metrics.FrameObserve(time.Since(frameStart))
			}
			if done {
				return
			}
		}
	}
}

func (r *Runner) dispatch(evs []Event) {
	for _, ev := range evs {
		switch ev.Kind {
		case PositionChanged:
			if r.metrics != nil {
				r.metrics.PositionUpdatedInc()
			}
			if r.cb.OnPositionChange != nil {
				r.cb.OnPositionChange(ev.Position, ev.Heading)
			}
		case NearStop:
			if r.cb.OnNearStopPoint != nil {
				r.cb.OnNearStopPoint(ev.Stop)
			}
		case ReachedStop:
			if r.metrics != nil {
				r.metrics.StopReachedInc()
			}
			if r.cb.OnReachedStopPoint != nil {
				r.cb.OnReachedStopPoint(ev.Stop)
			}
		case Finished:
			if r.cb.OnCompleted != nil {
				r.cb.OnCompleted()
			}
		}
	}
}

// Position returns the van's current position and heading.
func (r *Runner) Position() (domain.Point, float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sim.Position(), r.sim.Heading()
}

func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sim.State()
}
