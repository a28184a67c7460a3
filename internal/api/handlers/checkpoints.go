package handlers

import (
	"net/http"
	"package-tracking-service/internal/api/dto"

	"github.com/go-chi/chi/v5"
)

func (h *PackageHandler) AddCheckpoint() http.HandlerFunc {
	return makeHandler(h.Log, func(w http.ResponseWriter, r *http.Request) error {
		var req dto.CheckpointRequest
		if err := decodeJSON(w, r, &req); err != nil {
			return err
		}

		pkg, cp, err := h.Lifecycle.AddCheckpoint(r.Context(), trackingNumber(r), req.ToInput())
		if err != nil {
			return err
		}
		return writeJSON(w, http.StatusCreated, dto.CheckpointResponse{
			Checkpoint: cp,
			Package:    dto.NewPackageResponse(pkg),
		})
	})
}

func (h *PackageHandler) UpdateCheckpoint() http.HandlerFunc {
	return makeHandler(h.Log, func(w http.ResponseWriter, r *http.Request) error {
		var req dto.CheckpointPatchRequest
		if err := decodeJSON(w, r, &req); err != nil {
			return err
		}

		pkg, cp, err := h.Lifecycle.UpdateCheckpoint(r.Context(), trackingNumber(r), chi.URLParam(r, "checkpointID"), req.ToPatch())
		if err != nil {
			return err
		}
		return writeJSON(w, http.StatusOK, dto.CheckpointResponse{
			Checkpoint: cp,
			Package:    dto.NewPackageResponse(pkg),
		})
	})
}

func (h *PackageHandler) DeleteCheckpoint() http.HandlerFunc {
	return makeHandler(h.Log, func(w http.ResponseWriter, r *http.Request) error {
		pkg, err := h.Lifecycle.DeleteCheckpoint(r.Context(), trackingNumber(r), chi.URLParam(r, "checkpointID"))
		if err != nil {
			return err
		}
		return writeJSON(w, http.StatusOK, dto.NewPackageResponse(pkg))
	})
}
