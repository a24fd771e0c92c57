package livetrip

import (
	"sync"
	"time"

	"blueway/internal/domain"
)

type EventType string

const (
	EventTripStarted        EventType = "trip_started"
	EventPassengerRequested EventType = "passenger_requested"
	EventPassengerBoarded   EventType = "passenger_boarded"
	EventPassengerDropped   EventType = "passenger_dropped"
	EventPaymentConfirmed   EventType = "payment_confirmed"
	EventLocationUpdated    EventType = "location_updated"
	EventStopsUpdated       EventType = "stops_updated"
	EventTripEnded          EventType = "trip_ended"
	EventDriverNotification EventType = "driver_notification"
)

// Event carries a snapshot of the trip taken right after the mutation, so
// handlers never observe later changes through it.
type Event struct {
	Type         EventType                  `json:"type"`
	At           time.Time                  `json:"at"`
	Trip         *domain.LiveTrip           `json:"trip,omitempty"`
	Passenger    *domain.LivePassenger      `json:"passenger,omitempty"`
	Notification *domain.DriverNotification `json:"notification,omitempty"`
	Location     *domain.Point              `json:"location,omitempty"`
	DriverID     string                     `json:"driverId,omitempty"`
}

type Handler func(Event)

// Subscription identifies one registered handler. Pass it back to
// Unsubscribe; nothing else can remove the handler.
type Subscription struct {
	id    uint64
	event EventType
}

type subscriber struct {
	sub Subscription
	fn  Handler
}

// bus keeps subscribers in registration order and delivers queued events one
// at a time. Whoever finds the queue idle drains it, so a handler that
// mutates the registry has its own events delivered after the current one
// instead of deadlocking.
type bus struct {
	mu     sync.Mutex
	nextID uint64
	subs   []subscriber

	qmu      sync.Mutex
	queue    []Event
	draining bool
}

func (b *bus) subscribe(event EventType, fn Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	s := Subscription{id: b.nextID, event: event}
	b.subs = append(b.subs, subscriber{sub: s, fn: fn})
	return s
}

func (b *bus) unsubscribe(s Subscription) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subs {
		if sub.sub.id == s.id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return true
		}
	}
	return false
}

func (b *bus) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (b *bus) enqueue(evs ...Event) {
	b.qmu.Lock()
	b.queue = append(b.queue, evs...)
	b.qmu.Unlock()
}

func (b *bus) flush() {
	b.qmu.Lock()
	if b.draining {
		b.qmu.Unlock()
		return
	}
	b.draining = true
	for len(b.queue) > 0 {
		ev := b.queue[0]
		b.queue = b.queue[1:]
		b.qmu.Unlock()
		b.deliver(ev)
		b.qmu.Lock()
	}
	b.draining = false
	b.qmu.Unlock()
}

func (b *bus) deliver(ev Event) {
	b.mu.Lock()
	targets := make([]Handler, 0, len(b.subs))
	for _, s := range b.subs {
		if s.sub.event == "" || s.sub.event == ev.Type {
			targets = append(targets, s.fn)
		}
	}
	b.mu.Unlock()
	for _, fn := range targets {
		fn(ev)
	}
}
