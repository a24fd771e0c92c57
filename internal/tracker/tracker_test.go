package tracker_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blueway/internal/domain"
	"blueway/internal/livetrip"
	"blueway/internal/store"
	"blueway/internal/tracker"
)

var _ tracker.Source = (*livetrip.Registry)(nil)

type mockSource struct {
	TripWithOccupancyFn   func() (domain.LiveTrip, domain.Occupancy, bool)
	DriverNotificationsFn func(ctx context.Context, driverID string) ([]domain.DriverNotification, error)
}

func (m *mockSource) TripWithOccupancy() (domain.LiveTrip, domain.Occupancy, bool) {
	return m.TripWithOccupancyFn()
}
func (m *mockSource) DriverNotifications(ctx context.Context, driverID string) ([]domain.DriverNotification, error) {
	return m.DriverNotificationsFn(ctx, driverID)
}

func TestDashboard_WithTrip(t *testing.T) {
	ctx := context.Background()
	reg := livetrip.New(store.NewMemory())
	_, err := reg.StartTrip(ctx, domain.DriverProfile{ID: "d1", Vehicle: domain.Vehicle{Capacity: 4}}, "")
	require.NoError(t, err)
	a, _ := reg.RequestRide(ctx, domain.RideRequest{Name: "A"})
	b, _ := reg.RequestRide(ctx, domain.RideRequest{Name: "B"})
	c, _ := reg.RequestRide(ctx, domain.RideRequest{Name: "C"})
	_, _ = reg.BoardPassenger(ctx, "d1", b.ID)
	_, _ = reg.BoardPassenger(ctx, "d1", c.ID)
	_, _ = reg.DropOffPassenger(ctx, c.ID)

	snap, err := tracker.Dashboard(ctx, reg, "d1")
	require.NoError(t, err)

	require.NotNil(t, snap.Trip)
	assert.Equal(t, domain.Occupancy{Total: 4, Occupied: 2, Available: 2}, snap.Occupancy)
	require.Len(t, snap.Waiting, 1)
	assert.Equal(t, a.ID, snap.Waiting[0].ID)
	require.Len(t, snap.Boarded, 1)
	assert.Equal(t, b.ID, snap.Boarded[0].ID)
	require.Len(t, snap.DroppedOff, 1)
	assert.Len(t, snap.Notifications, 6)
	assert.Equal(t, 6, snap.Unread)
}

func TestDashboard_WithoutTrip(t *testing.T) {
	src := &mockSource{
		TripWithOccupancyFn: func() (domain.LiveTrip, domain.Occupancy, bool) {
			return domain.LiveTrip{}, domain.Occupancy{}, false
		},
		DriverNotificationsFn: func(context.Context, string) ([]domain.DriverNotification, error) {
			return []domain.DriverNotification{{ID: "n1", Read: true}, {ID: "n2"}}, nil
		},
	}
	snap, err := tracker.Dashboard(context.Background(), src, "d1")
	require.NoError(t, err)
	assert.Nil(t, snap.Trip)
	assert.Equal(t, domain.Occupancy{}, snap.Occupancy)
	assert.Empty(t, snap.Waiting)
	assert.NotNil(t, snap.Waiting)
	assert.Equal(t, 1, snap.Unread)
}

func TestDashboard_OtherDriversTripHidden(t *testing.T) {
	src := &mockSource{
		TripWithOccupancyFn: func() (domain.LiveTrip, domain.Occupancy, bool) {
			return domain.LiveTrip{DriverID: "d2"}, domain.Occupancy{Total: 9}, true
		},
		DriverNotificationsFn: func(context.Context, string) ([]domain.DriverNotification, error) {
			return []domain.DriverNotification{}, nil
		},
	}
	snap, err := tracker.Dashboard(context.Background(), src, "d1")
	require.NoError(t, err)
	assert.Nil(t, snap.Trip)
	assert.Equal(t, 0, snap.Occupancy.Total)
}

func TestDashboard_ReadsTripAndOccupancyTogether(t *testing.T) {
	var reads int
	src := &mockSource{
		TripWithOccupancyFn: func() (domain.LiveTrip, domain.Occupancy, bool) {
			reads++
			trip := domain.LiveTrip{
				DriverID: "d1",
				Passengers: []domain.LivePassenger{
					{ID: "p1", Status: domain.PassengerBoarded},
				},
			}
			return trip, domain.Occupancy{Total: 4, Occupied: 1, Available: 3}, true
		},
		DriverNotificationsFn: func(context.Context, string) ([]domain.DriverNotification, error) {
			return nil, nil
		},
	}
	snap, err := tracker.Dashboard(context.Background(), src, "d1")
	require.NoError(t, err)
	assert.Equal(t, 1, reads)
	require.NotNil(t, snap.Trip)
	assert.Equal(t, domain.Occupancy{Total: 4, Occupied: 1, Available: 3}, snap.Occupancy)
	require.Len(t, snap.Boarded, 1)
	assert.Equal(t, "p1", snap.Boarded[0].ID)
}

func TestDashboard_StoreError(t *testing.T) {
	src := &mockSource{
		TripWithOccupancyFn: func() (domain.LiveTrip, domain.Occupancy, bool) {
			return domain.LiveTrip{}, domain.Occupancy{}, false
		},
		DriverNotificationsFn: func(context.Context, string) ([]domain.DriverNotification, error) {
			return nil, errors.New("db down")
		},
	}
	_, err := tracker.Dashboard(context.Background(), src, "d1")
	assert.Error(t, err)
}

func TestPoller_FirstFetchIsImmediate(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan int, 1)
	p := tracker.Poller[int]{
		Interval: time.Hour,
		Fetch:    func(context.Context) (int, error) { return 7, nil },
	}
	go func() { _ = p.Run(ctx, func(v int) error { got <- v; return nil }) }()

	select {
	case v := <-got:
		assert.Equal(t, 7, v)
	case <-time.After(time.Second):
		t.Fatal("no immediate fetch")
	}
}

func TestPoller_StopsOnSinkError(t *testing.T) {
	var calls atomic.Int32
	p := tracker.Poller[int]{
		Interval: time.Millisecond,
		Fetch: func(context.Context) (int, error) {
			return int(calls.Add(1)), nil
		},
	}
	stop := errors.New("client gone")
	err := p.Run(context.Background(), func(v int) error {
		if v == 3 {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, int32(3), calls.Load())
}

func TestPoller_SkipsFailedFetchAndStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	var delivered atomic.Int32
	p := tracker.Poller[int]{
		Interval: time.Millisecond,
		Fetch: func(context.Context) (int, error) {
			if calls.Add(1)%2 == 1 {
				return 0, errors.New("transient")
			}
			return 1, nil
		},
	}
	done := make(chan error, 1)
	go func() {
		done <- p.Run(ctx, func(int) error {
			if delivered.Add(1) == 2 {
				cancel()
			}
			return nil
		})
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop")
	}
	assert.GreaterOrEqual(t, calls.Load(), int32(4))
}
