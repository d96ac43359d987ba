package storage

import (
	"errors"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

// Archive errors.
var (
	ErrNotFound         = errors.New("archived file not found")
	ErrEmptyKey         = errors.New("storage key must not be empty")
	ErrInvalidKey       = errors.New("storage key contains invalid path segment")
	ErrContainerMissing = errors.New("archive container does not exist")
)

// MapHTTPStatus maps storage errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrEmptyKey), errors.Is(err, ErrInvalidKey):
		return http.StatusBadRequest
	case errors.Is(err, ErrContainerMissing):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// mapError converts Azure error codes to archive errors, keeping the cause.
func mapError(err error) error {
	switch {
	case bloberror.HasCode(err, bloberror.BlobNotFound):
		return ErrNotFound
	case bloberror.HasCode(err, bloberror.ContainerNotFound):
		return errors.Join(ErrContainerMissing, err)
	default:
		return err
	}
}
