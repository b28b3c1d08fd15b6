package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/simple-upload/pkg/simpleupload"
)

// CallbackHandler receives derivative completion notifications from the
// worker. The notification is informational; derivative state lives in the
// repository and this endpoint only acknowledges receipt.
type CallbackHandler struct{}

func NewCallbackHandler() *CallbackHandler {
	return &CallbackHandler{}
}

// Routes returns the router for callback endpoints
func (h *CallbackHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/callback", h.ThumbnailCallback)
	return r
}

// ThumbnailCallback acknowledges a worker notification
func (h *CallbackHandler) ThumbnailCallback(w http.ResponseWriter, r *http.Request) {
	var derivative simpleupload.DerivativeRecord
	if err := json.NewDecoder(r.Body).Decode(&derivative); err != nil {
		slog.Error("Failed to decode thumbnail callback", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	slog.Info("Thumbnail callback received",
		"derivative_id", derivative.ID,
		"original_storage_key", derivative.OriginalStorageKey,
		"derivative_storage_key", derivative.DerivativeStorageKey,
		"status", derivative.Status)

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]string{"status": "received"})
}
