package demo_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blueway/internal/demo"
	"blueway/internal/domain"
	"blueway/internal/livetrip"
	"blueway/internal/store"
)

var _ demo.Registry = (*livetrip.Registry)(nil)

var fast = demo.Timing{
	Initial:      time.Millisecond,
	Between:      time.Millisecond,
	AfterDropOff: time.Millisecond,
	MaxJitter:    5 * time.Millisecond,
}

func driver(capacity int) domain.DriverProfile {
	return domain.DriverProfile{ID: "d1", Name: "Carlos", Vehicle: domain.Vehicle{Capacity: capacity}}
}

func passengers(reg *livetrip.Registry) []domain.LivePassenger {
	trip, ok := reg.CurrentTrip()
	if !ok {
		return nil
	}
	return trip.Passengers
}

func TestRiders_ScriptedRidersAfterTripStart(t *testing.T) {
	reg := livetrip.New(store.NewMemory())
	r := demo.New(reg, demo.WithTiming(fast), demo.WithSeed(1))
	r.Start()
	defer r.Stop()

	_, err := reg.StartTrip(context.Background(), driver(16), "")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(passengers(reg)) == 2 }, 2*time.Second, 5*time.Millisecond)
	ps := passengers(reg)
	assert.Equal(t, "Maria Silva", ps[0].Name)
	assert.Equal(t, "João Santos", ps[1].Name)
	assert.Equal(t, domain.PassengerWaiting, ps[0].Status)
}

func TestRiders_NewRidersAfterDropOffRespectCapacity(t *testing.T) {
	ctx := context.Background()
	reg := livetrip.New(store.NewMemory())
	_, err := reg.StartTrip(ctx, driver(2), "")
	require.NoError(t, err)

	r := demo.New(reg, demo.WithTiming(fast), demo.WithSeed(42))
	r.Start()
	defer r.Stop()

	a, _ := reg.RequestRide(ctx, domain.RideRequest{Name: "A"})
	b, _ := reg.RequestRide(ctx, domain.RideRequest{Name: "B"})
	_, _ = reg.BoardPassenger(ctx, "d1", a.ID)
	_, _ = reg.BoardPassenger(ctx, "d1", b.ID)
	_, err = reg.DropOffPassenger(ctx, a.ID)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(passengers(reg)) == 3 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	assert.Len(t, passengers(reg), 3, "only one seat was free")
	assert.Equal(t, 0, reg.AvailableCapacity())
	newcomer := passengers(reg)[2]
	assert.Equal(t, "R$ 8,50", newcomer.Amount)
	assert.Contains(t, []string{"PIX", "Cartão"}, newcomer.PaymentMethod)
}

func TestRiders_StopCancelsPendingRiders(t *testing.T) {
	reg := livetrip.New(store.NewMemory())
	r := demo.New(reg, demo.WithTiming(demo.Timing{Initial: 50 * time.Millisecond, Between: time.Millisecond}))
	r.Start()

	_, err := reg.StartTrip(context.Background(), driver(16), "")
	require.NoError(t, err)
	r.Stop()

	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, passengers(reg))

	// unsubscribed: a new trip schedules nothing either
	_, err = reg.StartTrip(context.Background(), driver(16), "")
	require.NoError(t, err)
	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, passengers(reg))
}

func TestRiders_StopIsSafeWithRequestsInFlight(t *testing.T) {
	reg := livetrip.New(store.NewMemory())
	r := demo.New(reg, demo.WithTiming(demo.Timing{}))
	r.Start()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = reg.StartTrip(context.Background(), driver(16), "")
		}()
	}
	wg.Wait()
	assert.NotPanics(t, r.Stop)
}
