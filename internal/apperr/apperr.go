// Package apperr classifies engine errors so handlers can map them to
// HTTP responses without knowing which component produced them.
package apperr

import (
	"context"
	"errors"
	"net/http"
)

var (
	// ErrValidation marks malformed user input (plate, holder id, phone, email)
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a missing resource, including an empty catalog for a vehicle
	ErrNotFound = errors.New("not found")

	// ErrStepOutOfOrder marks a wizard step attempted before its prerequisites
	ErrStepOutOfOrder = errors.New("wizard step out of order")

	// ErrUpstreamUnavailable marks an upstream failure that has no local fallback
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrPaymentGateway marks a terminal payment gateway failure
	ErrPaymentGateway = errors.New("payment system unavailable")

	// ErrUnauthorized marks missing or invalid operator credentials
	ErrUnauthorized = errors.New("unauthorized")
)

// StatusClientClosedRequest is returned when the caller went away mid-request
const StatusClientClosedRequest = 499

// Kind returns a stable machine-readable code for err
func Kind(err error) string {
	switch {
	case err == nil:
		return ""

	case errors.Is(err, ErrValidation):
		return "validation_error"

	case errors.Is(err, ErrNotFound):
		return "not_found"

	case errors.Is(err, ErrStepOutOfOrder):
		return "step_out_of_order"

	case errors.Is(err, ErrPaymentGateway):
		return "payment_unavailable"

	case errors.Is(err, ErrUpstreamUnavailable):
		return "upstream_unavailable"

	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"

	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"

	case errors.Is(err, context.Canceled):
		return "canceled"

	default:
		return "internal"
	}
}

// HTTPStatus maps err to the response status code
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK

	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest

	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, ErrStepOutOfOrder):
		return http.StatusConflict

	case errors.Is(err, ErrPaymentGateway),
		errors.Is(err, ErrUpstreamUnavailable):
		return http.StatusBadGateway

	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout

	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest

	default:
		return http.StatusInternalServerError
	}
}
