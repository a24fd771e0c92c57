// Package tracker builds the driver dashboard view and polls it on a fixed
// interval for streaming consumers.
package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"blueway/internal/domain"
)

// Source is the registry surface the dashboard reads. *livetrip.Registry
// implements it.
type Source interface {
	TripWithOccupancy() (domain.LiveTrip, domain.Occupancy, bool)
	DriverNotifications(ctx context.Context, driverID string) ([]domain.DriverNotification, error)
}

type DashboardSnapshot struct {
	DriverID      string                      `json:"driverId"`
	Trip          *domain.LiveTrip            `json:"trip"`
	Occupancy     domain.Occupancy            `json:"occupancy"`
	Waiting       []domain.LivePassenger      `json:"waiting"`
	Boarded       []domain.LivePassenger      `json:"boarded"`
	DroppedOff    []domain.LivePassenger      `json:"droppedOff"`
	Notifications []domain.DriverNotification `json:"notifications"`
	Unread        int                         `json:"unread"`
	At            time.Time                   `json:"at"`
}

// Dashboard assembles what a driver sees. The trip is only included when
// it belongs to driverID; occupancy is zero otherwise.
func Dashboard(ctx context.Context, src Source, driverID string) (DashboardSnapshot, error) {
	snap := DashboardSnapshot{
		DriverID:   driverID,
		Waiting:    []domain.LivePassenger{},
		Boarded:    []domain.LivePassenger{},
		DroppedOff: []domain.LivePassenger{},
		At:         time.Now(),
	}
	if trip, occ, ok := src.TripWithOccupancy(); ok && trip.DriverID == driverID {
		snap.Trip = &trip
		snap.Occupancy = occ
		for _, p := range trip.Passengers {
			switch p.Status {
			case domain.PassengerWaiting:
				snap.Waiting = append(snap.Waiting, p)
			case domain.PassengerBoarded:
				snap.Boarded = append(snap.Boarded, p)
			case domain.PassengerDroppedOff:
				snap.DroppedOff = append(snap.DroppedOff, p)
			}
		}
	}

	notes, err := src.DriverNotifications(ctx, driverID)
	if err != nil {
		return DashboardSnapshot{}, fmt.Errorf("tracker.Dashboard: %w", err)
	}
	snap.Notifications = notes
	for _, n := range notes {
		if !n.Read {
			snap.Unread++
		}
	}
	return snap, nil
}

// Poller calls Fetch every Interval, the first time immediately, and hands
// each result to the sink until ctx ends or the sink returns an error.
// A failed fetch is logged and retried on the next tick.
type Poller[T any] struct {
	Interval time.Duration
	Fetch    func(ctx context.Context) (T, error)
	Log      *slog.Logger
}

func (p Poller[T]) Run(ctx context.Context, sink func(T) error) error {
	log := p.Log
	if log == nil {
		log = slog.Default()
	}
	interval := p.Interval
	if interval <= 0 {
		interval = time.Second
	}
	tick := time.NewTicker(interval)
	defer tick.Stop()

	for {
		v, err := p.Fetch(ctx)
		switch {
		case err != nil && ctx.Err() != nil:
			return ctx.Err()
		case err != nil:
			log.WarnContext(ctx, "poll failed", "error", err)
		default:
			if err := sink(v); err != nil {
				return err
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
		}
	}
}
