package handler

import (
	"net/http"

	"github.com/playroomlabs/partyroom/internal/api/apierr"
)

// WriteError writes an error response using the shared API error mapping
func WriteError(w http.ResponseWriter, err error) {
	apierr.WriteError(w, err)
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return apierr.NewInvalidRequestError(message)
}
