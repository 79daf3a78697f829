package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/playroomlabs/partyroom/internal/model"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest  = "INVALID_REQUEST"
	CodeRoomNotFound    = "ROOM_NOT_FOUND"
	CodeRoomEnded       = "ROOM_ENDED"
	CodePlayerNotFound  = "PLAYER_NOT_FOUND"
	CodeAlreadyInRoom   = "ALREADY_IN_ROOM"
	CodeUnknownGameKind = "UNKNOWN_GAME_KIND"
	CodeMediaNotFound   = "MEDIA_NOT_FOUND"
	CodeInternalError   = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	// Map model errors
	switch {
	case errors.Is(err, model.ErrRoomNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeRoomNotFound, "Room not found"}}
	case errors.Is(err, model.ErrRoomEnded):
		return &httpError{http.StatusConflict, APIError{CodeRoomEnded, "This room's game has ended"}}
	case errors.Is(err, model.ErrPlayerNotFound):
		return &httpError{http.StatusNotFound, APIError{CodePlayerNotFound, "Player not found"}}
	case errors.Is(err, model.ErrAlreadyInRoom):
		return &httpError{http.StatusConflict, APIError{CodeAlreadyInRoom, "That username is already in the room"}}
	case errors.Is(err, model.ErrUnknownGameKind):
		return &httpError{http.StatusBadRequest, APIError{CodeUnknownGameKind, "Unknown game kind"}}
	case errors.Is(err, model.ErrMediaNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeMediaNotFound, "Media not found"}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
