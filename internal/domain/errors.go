package domain

import "errors"

// Registry precondition failures. They are expected business outcomes, not
// crashes: callers branch on them with errors.Is and render a message.
var (
	ErrNoActiveTrip         = errors.New("no active trip")
	ErrVanFull              = errors.New("van is full")
	ErrUnauthorizedDriver   = errors.New("driver does not own the active trip")
	ErrPassengerNotFound    = errors.New("passenger not found")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrTripAlreadyActive    = errors.New("a trip is already active")
	ErrNotificationNotFound = errors.New("notification not found")
)

// ErrNotFound is returned when a requested resource does not exist.
// The API maps it to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned when input fails validation.
// The API maps it to HTTP 422.
var ErrValidation = errors.New("validation error")
