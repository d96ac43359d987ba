package interactions

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/dispatch/pkg/repository"
)

// Domain errors for interaction operations.
var (
	ErrNotFound   = errors.New("interaction not found")
	ErrDuplicate  = errors.New("interaction already recorded for run")
	ErrInvalidID  = errors.New("interaction id must be a positive integer")
	ErrBadRequest = errors.New("invalid search request")
)

// MapHTTPStatus maps interaction domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidID), errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrSchemaMissing):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
