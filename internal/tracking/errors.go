package tracking

import (
	"errors"
	"net/http"
)

// Error kinds raised by the engine and by store implementations.
// Callers wrap them with context: fmt.Errorf("%w: technician %s", ErrNotFound, id)
var (
	ErrTrackingDisabled = errors.New("location tracking is not enabled")
	ErrRouteAlreadyOpen = errors.New("route already started for this job")
	ErrRouteNotFound    = errors.New("no open route for this job")
	ErrNotFound         = errors.New("not found")
	ErrValidation       = errors.New("validation failed")
	ErrStoreFailure     = errors.New("store failure")
)

// StatusCode maps an error kind to the HTTP status surfaced to clients
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrRouteNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrTrackingDisabled), errors.Is(err, ErrRouteAlreadyOpen):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message safe to send to a client.
// Store failures and unknown errors never leak driver details.
func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	if StatusCode(err) == http.StatusInternalServerError {
		return "Failed to process tracking event"
	}
	return err.Error()
}
