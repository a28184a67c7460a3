package handlers

import (
	"net/http"
	"package-tracking-service/internal/platform/logger"
	"package-tracking-service/internal/services"

	"github.com/go-chi/chi/v5"
)

// TrackingHandler serves the anonymous lookup surface.
type TrackingHandler struct {
	Tracker *services.Tracker
	Log     *logger.Logger
}

func (h *TrackingHandler) Track() http.HandlerFunc {
	return makeHandler(h.Log, func(w http.ResponseWriter, r *http.Request) error {
		view, err := h.Tracker.Track(r.Context(), chi.URLParam(r, "trackingNumber"))
		if err != nil {
			return err
		}
		return writeJSON(w, http.StatusOK, view)
	})
}
