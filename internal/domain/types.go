// Package domain holds the types shared by the registry, the motion
// simulator, the reference data provider and the API.
package domain

import "time"

type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type StopPoint struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Address       string   `json:"address"`
	Description   string   `json:"description"`
	Location      Point    `json:"location"`
	AvailableVans int      `json:"availableVans"`
	WaitingTime   string   `json:"waitingTime"`
	Routes        []string `json:"routes"`
}

// VanRoute is a published line. Path order is significant (start to end);
// Stops holds stop ids, first = boarding point, last = final destination.
type VanRoute struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Color          string   `json:"color"`
	Path           []Point  `json:"path"`
	Stops          []string `json:"stops"`
	Frequency      string   `json:"frequency"`
	FirstDeparture string   `json:"firstDeparture"`
	LastDeparture  string   `json:"lastDeparture"`
}

type Vehicle struct {
	Plate    string `json:"plate"`
	Model    string `json:"model"`
	Color    string `json:"color"`
	Capacity int    `json:"capacity"`
}

type DriverProfile struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Phone   string  `json:"phone"`
	Vehicle Vehicle `json:"vehicle"`
}

type TripStatus string

const (
	TripWaitingPassengers TripStatus = "waiting_passengers"
	TripInProgress        TripStatus = "in_progress"
	TripCompleted         TripStatus = "completed"
)

type PassengerStatus string

const (
	PassengerWaiting    PassengerStatus = "waiting"
	PassengerBoarded    PassengerStatus = "boarded"
	PassengerDroppedOff PassengerStatus = "dropped_off"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
)

type LiveTrip struct {
	ID              string          `json:"id"`
	DriverID        string          `json:"driverId"`
	DriverName      string          `json:"driverName"`
	DriverPhone     string          `json:"driverPhone"`
	Vehicle         Vehicle         `json:"vehicle"`
	Route           string          `json:"route"`
	Status          TripStatus      `json:"status"`
	CurrentLocation Point           `json:"currentLocation"`
	Passengers      []LivePassenger `json:"passengers"`
	StartTime       time.Time       `json:"startTime"`
	EndTime         *time.Time      `json:"endTime,omitempty"`
	CurrentStop     string          `json:"currentStop,omitempty"`
	NextStop        string          `json:"nextStop,omitempty"`
}

// Clone returns a copy that shares no mutable state with t.
func (t LiveTrip) Clone() LiveTrip {
	c := t
	if t.Passengers != nil {
		c.Passengers = make([]LivePassenger, len(t.Passengers))
		copy(c.Passengers, t.Passengers)
	}
	if t.EndTime != nil {
		end := *t.EndTime
		c.EndTime = &end
	}
	return c
}

// CountByStatus returns how many passengers currently hold any of the given statuses.
func (t LiveTrip) CountByStatus(statuses ...PassengerStatus) int {
	n := 0
	for _, p := range t.Passengers {
		for _, s := range statuses {
			if p.Status == s {
				n++
				break
			}
		}
	}
	return n
}

type LivePassenger struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Phone         string          `json:"phone"`
	Origin        string          `json:"origin"`
	Destination   string          `json:"destination"`
	Status        PassengerStatus `json:"status"`
	BoardingTime  *time.Time      `json:"boardingTime,omitempty"`
	DropOffTime   *time.Time      `json:"dropOffTime,omitempty"`
	PaymentStatus PaymentStatus   `json:"paymentStatus"`
	PaymentMethod string          `json:"paymentMethod"`
	Amount        string          `json:"amount"`
	RequestTime   time.Time       `json:"requestTime"`
}

// RideRequest is what a passenger submits when asking for a seat.
type RideRequest struct {
	Name          string        `json:"name"`
	Phone         string        `json:"phone"`
	Origin        string        `json:"origin"`
	Destination   string        `json:"destination"`
	PaymentStatus PaymentStatus `json:"paymentStatus,omitempty"`
	PaymentMethod string        `json:"paymentMethod"`
	Amount        string        `json:"amount"`
}

type NotificationType string

const (
	NotificationNewPassenger     NotificationType = "new_passenger"
	NotificationPassengerBoarded NotificationType = "passenger_boarded"
	NotificationPassengerDropped NotificationType = "passenger_dropped"
	NotificationPaymentReceived  NotificationType = "payment_received"
	NotificationRouteUpdate      NotificationType = "route_update"
)

type DriverNotification struct {
	ID          string           `json:"id"`
	Type        NotificationType `json:"type"`
	Title       string           `json:"title"`
	Message     string           `json:"message"`
	Timestamp   time.Time        `json:"timestamp"`
	Read        bool             `json:"read"`
	PassengerID string           `json:"passengerId,omitempty"`
}

// EarningEntry is one credit in a driver's earnings log.
type EarningEntry struct {
	Amount      float64   `json:"amount"`
	Description string    `json:"description"`
	PassengerID string    `json:"passengerId,omitempty"`
	At          time.Time `json:"at"`
}

type Occupancy struct {
	Total     int `json:"total"`
	Occupied  int `json:"occupied"`
	Available int `json:"available"`
}

// RideStage is the coarse phase of a passenger's ride.
type RideStage string

const (
	StageSearching RideStage = "searching"
	StageFound     RideStage = "found"
	StageArriving  RideStage = "arriving"
	StagePickup    RideStage = "pickup"
	StageJourney   RideStage = "journey"
	StageComplete  RideStage = "complete"
)

// Animated reports whether the van moves on the map during this stage.
func (s RideStage) Animated() bool {
	return s == StageArriving || s == StageJourney
}
