package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/playroomlabs/partyroom/internal/storage"
)

// MediaHandler serves generated images by reference
type MediaHandler struct {
	store storage.Storage
}

// NewMediaHandler creates a new media handler
func NewMediaHandler(store storage.Storage) *MediaHandler {
	return &MediaHandler{store: store}
}

// Get handles GET /api/media/{ref}
func (h *MediaHandler) Get(w http.ResponseWriter, r *http.Request) {
	ref := mux.Vars(r)["ref"]

	data, err := h.store.GetMedia(r.Context(), ref)
	if err != nil {
		WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400, immutable")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
