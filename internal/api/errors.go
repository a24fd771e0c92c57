package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"blueway/internal/domain"
)

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorDetail `json:"error"`
}

// statuses maps registry and lookup sentinels to HTTP. First match wins.
var statuses = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrNoActiveTrip, http.StatusNotFound, "not_found"},
	{domain.ErrPassengerNotFound, http.StatusNotFound, "not_found"},
	{domain.ErrNotificationNotFound, http.StatusNotFound, "not_found"},
	{domain.ErrNotFound, http.StatusNotFound, "not_found"},
	{domain.ErrVanFull, http.StatusConflict, "van_full"},
	{domain.ErrTripAlreadyActive, http.StatusConflict, "trip_already_active"},
	{domain.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{domain.ErrUnauthorizedDriver, http.StatusForbidden, "forbidden"},
	{domain.ErrValidation, http.StatusUnprocessableEntity, "validation_error"},
}

// writeError renders err as {"error":{"code","message"}}. Unknown errors are
// logged and hidden behind a generic 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	for _, st := range statuses {
		if errors.Is(err, st.err) {
			writeJSON(w, st.status, errorResponse{Error: errorDetail{Code: st.code, Message: unwrapMessage(err, st.err)}})
			return
		}
	}
	s.log.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	writeJSON(w, http.StatusInternalServerError, errorResponse{
		Error: errorDetail{Code: "internal_error", Message: "internal server error"},
	})
}

func notFound(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusNotFound, errorResponse{Error: errorDetail{Code: "not_found", Message: message}})
}

// badRequest answers a body that never reached the domain layer.
func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: errorDetail{Code: "validation_error", Message: message}})
}

// unwrapMessage strips the operation prefixes from a wrapped sentinel.
// "livetrip.Registry.RequestRide: validation error: passenger name is required"
// becomes "passenger name is required"; other sentinels render as their own text.
func unwrapMessage(err, sentinel error) string {
	if !errors.Is(sentinel, domain.ErrValidation) {
		return sentinel.Error()
	}
	_, detail, ok := strings.Cut(err.Error(), domain.ErrValidation.Error()+": ")
	if !ok || detail == "" {
		return domain.ErrValidation.Error()
	}
	return detail
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeBody reads a JSON body into v and answers the client itself when the
// body is unusable. It reports whether the handler should continue.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{
			Error: errorDetail{Code: "payload_too_large", Message: "request body too large"},
		})
	case errors.Is(err, io.EOF):
		badRequest(w, "request body is required")
	default:
		badRequest(w, "invalid JSON body")
	}
	return false
}
