package pipeline

import (
	"errors"
	"net/http"
)

// Input and run errors.
var (
	ErrNoInput         = errors.New("no input provided; provide a 'file', 'raw_text', or 'json_data'")
	ErrUnsupportedFile = errors.New("unsupported file type")
	ErrInvalidJSON     = errors.New("invalid JSON format provided in 'json_data' field")
	ErrFileTooLarge    = errors.New("file exceeds maximum upload size")
	ErrBatchTooLarge   = errors.New("batch exceeds maximum file count")
	ErrCancelled       = errors.New("run cancelled before action resolution")
	ErrNotRecorded     = errors.New("run completed but interaction was not recorded")
)

// MapHTTPStatus maps pipeline errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNoInput),
		errors.Is(err, ErrUnsupportedFile),
		errors.Is(err, ErrInvalidJSON),
		errors.Is(err, ErrBatchTooLarge):
		return http.StatusBadRequest
	case errors.Is(err, ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrCancelled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
