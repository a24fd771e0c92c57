// Package demo feeds the registry with simulated riders so a driver can try
// the dashboard without real passengers.
package demo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"blueway/internal/domain"
	"blueway/internal/livetrip"
)

// Registry is the registry surface the riders use. *livetrip.Registry
// implements it.
type Registry interface {
	Subscribe(event livetrip.EventType, fn livetrip.Handler) livetrip.Subscription
	Unsubscribe(sub livetrip.Subscription) bool
	RequestRide(ctx context.Context, req domain.RideRequest) (domain.LivePassenger, error)
	AvailableCapacity() int
}

// Timing controls when simulated riders show up.
type Timing struct {
	Initial      time.Duration // first scripted rider after trip_started
	Between      time.Duration // gap between scripted riders
	AfterDropOff time.Duration // wait after passenger_dropped before new riders
	MaxJitter    time.Duration // upper bound of each new rider's extra delay
}

var DefaultTiming = Timing{
	Initial:      2 * time.Second,
	Between:      3 * time.Second,
	AfterDropOff: 3 * time.Second,
	MaxJitter:    5 * time.Second,
}

var scripted = []domain.RideRequest{
	{
		Name:          "Maria Silva",
		Phone:         "(11) 99999-1111",
		Origin:        "Terminal Rodoviário",
		Destination:   "Shopping Center",
		PaymentStatus: domain.PaymentPaid,
		PaymentMethod: "PIX",
		Amount:        "R$ 8,50",
	},
	{
		Name:          "João Santos",
		Phone:         "(11) 99999-2222",
		Origin:        "Praça Central",
		Destination:   "Hospital Municipal",
		PaymentStatus: domain.PaymentPaid,
		PaymentMethod: "Cartão",
		Amount:        "R$ 8,50",
	},
}

var (
	names        = []string{"Ana Costa", "Pedro Lima", "Carla Santos", "Roberto Silva", "Lucia Oliveira", "Fernando Souza"}
	origins      = []string{"Terminal Central", "Shopping Norte", "Hospital Municipal", "Universidade", "Centro Comercial"}
	destinations = []string{"Aeroporto", "Rodoviária", "Shopping Sul", "Parque Central", "Zona Industrial"}
)

type Option func(*Riders)

func WithTiming(t Timing) Option { return func(r *Riders) { r.timing = t } }

func WithSeed(seed uint64) Option {
	return func(r *Riders) { r.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }
}

func WithLogger(l *slog.Logger) Option { return func(r *Riders) { r.log = l } }

type Riders struct {
	reg    Registry
	timing Timing
	log    *slog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	subs    []livetrip.Subscription
	pending map[*time.Timer]struct{}
	wg      sync.WaitGroup
}

func New(reg Registry, opts ...Option) *Riders {
	r := &Riders{
		reg:     reg,
		timing:  DefaultTiming,
		log:     slog.Default(),
		rng:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		pending: make(map[*time.Timer]struct{}),
	}
	for _, o := range opts {
		o(r)
	}
	r.ctx, r.cancel = context.WithCancel(context.Background())
	return r
}

// Start subscribes to the registry. Riders are only scheduled from the
// event handlers, so Start never blocks.
func (r *Riders) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = append(r.subs,
		r.reg.Subscribe(livetrip.EventTripStarted, r.onTripStarted),
		r.reg.Subscribe(livetrip.EventPassengerDropped, r.onDropped),
	)
	r.log.Info("demo riders enabled")
}

// Stop unsubscribes, cancels pending riders and waits for any request
// already in flight.
func (r *Riders) Stop() {
	r.cancel()
	r.mu.Lock()
	for _, s := range r.subs {
		r.reg.Unsubscribe(s)
	}
	r.subs = nil
	for t := range r.pending {
		if t.Stop() {
			r.wg.Done()
		}
		delete(r.pending, t)
	}
	r.mu.Unlock()
	r.wg.Wait()
}

func (r *Riders) onTripStarted(livetrip.Event) {
	for i, req := range scripted {
		r.after(r.timing.Initial+time.Duration(i)*r.timing.Between, req)
	}
}

func (r *Riders) onDropped(livetrip.Event) {
	r.schedule(r.timing.AfterDropOff, func() {
		n := min(r.reg.AvailableCapacity(), r.intN(3)+1)
		for i := 0; i < n; i++ {
			r.after(r.jitter(), r.randomRider())
		}
	})
}

func (r *Riders) after(d time.Duration, req domain.RideRequest) {
	r.schedule(d, func() { r.request(req) })
}

func (r *Riders) request(req domain.RideRequest) {
	p, err := r.reg.RequestRide(r.ctx, req)
	switch {
	case errors.Is(err, domain.ErrVanFull), errors.Is(err, domain.ErrNoActiveTrip):
		r.log.Debug("demo rider turned away", "name", req.Name, "reason", err)
	case err != nil:
		r.log.Warn("demo rider request failed", "name", req.Name, "error", err)
	default:
		r.log.Info("demo rider requested a seat", "passenger_id", p.ID, "name", p.Name)
	}
}

// schedule runs fn after d unless Stop is called first.
func (r *Riders) schedule(d time.Duration, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ctx.Err() != nil {
		return
	}
	r.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		defer r.wg.Done()
		r.mu.Lock()
		delete(r.pending, t)
		r.mu.Unlock()
		if r.ctx.Err() != nil {
			return
		}
		fn()
	})
	r.pending[t] = struct{}{}
}

func (r *Riders) randomRider() domain.RideRequest {
	r.rngMu.Lock()
	defer r.rngMu.Unlock()
	method := "Cartão"
	if r.rng.Float64() > 0.5 {
		method = "PIX"
	}
	return domain.RideRequest{
		Name:          names[r.rng.IntN(len(names))],
		Phone:         fmt.Sprintf("(11) 9%04d-%04d", r.rng.IntN(10000), r.rng.IntN(10000)),
		Origin:        origins[r.rng.IntN(len(origins))],
		Destination:   destinations[r.rng.IntN(len(destinations))],
		PaymentStatus: domain.PaymentPaid,
		PaymentMethod: method,
		Amount:        "R$ 8,50",
	}
}

func (r *Riders) intN(n int) int {
	r.rngMu.Lock()
	defer r.rngMu.Unlock()
	return r.rng.IntN(n)
}

func (r *Riders) jitter() time.Duration {
	if r.timing.MaxJitter <= 0 {
		return 0
	}
	r.rngMu.Lock()
	defer r.rngMu.Unlock()
	return time.Duration(r.rng.Int64N(int64(r.timing.MaxJitter)))
}
