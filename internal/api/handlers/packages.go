package handlers

import (
	"errors"
	"net/http"
	"package-tracking-service/internal/api/dto"
	"package-tracking-service/internal/auth"
	"package-tracking-service/internal/domain"
	"package-tracking-service/internal/platform/logger"
	"package-tracking-service/internal/ports"
	"package-tracking-service/internal/services"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// PackageHandler exposes the operator surface. Every route runs behind the
// operator auth middleware.
type PackageHandler struct {
	Lifecycle *services.Lifecycle
	Exporter  *services.Exporter
	Log       *logger.Logger
}

func trackingNumber(r *http.Request) string {
	return chi.URLParam(r, "trackingNumber")
}

func (h *PackageHandler) List() http.HandlerFunc {
	return makeHandler(h.Log, func(w http.ResponseWriter, r *http.Request) error {
		q := r.URL.Query()
		filter := ports.PackageFilter{
			AdminID: q.Get("adminId"),
			Status:  domain.Status(q.Get("status")),
		}

		var err error
		if filter.Limit, err = intParam(q.Get("limit"), "limit"); err != nil {
			return err
		}
		if filter.Offset, err = intParam(q.Get("offset"), "offset"); err != nil {
			return err
		}

		pkgs, err := h.Lifecycle.List(r.Context(), filter)
		if err != nil {
			return err
		}
		return writeJSON(w, http.StatusOK, dto.NewListPackagesResponse(pkgs))
	})
}

func (h *PackageHandler) Create() http.HandlerFunc {
	return makeHandler(h.Log, func(w http.ResponseWriter, r *http.Request) error {
		adminID, ok := auth.AdminFrom(r.Context())
		if !ok {
			return errors.New("create package: operator missing from context")
		}

		var req dto.CreatePackageRequest
		if err := decodeJSON(w, r, &req); err != nil {
			return err
		}

		pkg, err := h.Lifecycle.Create(r.Context(), req.ToInput(adminID))
		if err != nil {
			return err
		}
		w.Header().Set("Location", "/admin/packages/"+pkg.TrackingNumber)
		return writeJSON(w, http.StatusCreated, dto.NewPackageResponse(pkg))
	})
}

func (h *PackageHandler) Get() http.HandlerFunc {
	return makeHandler(h.Log, func(w http.ResponseWriter, r *http.Request) error {
		pkg, err := h.Lifecycle.Get(r.Context(), trackingNumber(r))
		if err != nil {
			return err
		}
		return writeJSON(w, http.StatusOK, dto.NewPackageResponse(pkg))
	})
}

func (h *PackageHandler) Edit() http.HandlerFunc {
	return makeHandler(h.Log, func(w http.ResponseWriter, r *http.Request) error {
		var req dto.EditPackageRequest
		if err := decodeJSON(w, r, &req); err != nil {
			return err
		}

		pkg, err := h.Lifecycle.Edit(r.Context(), trackingNumber(r), req.ToPatch())
		if err != nil {
			return err
		}
		return writeJSON(w, http.StatusOK, dto.NewPackageResponse(pkg))
	})
}

func (h *PackageHandler) Delete() http.HandlerFunc {
	return makeHandler(h.Log, func(w http.ResponseWriter, r *http.Request) error {
		if err := h.Lifecycle.Delete(r.Context(), trackingNumber(r)); err != nil {
			return err
		}
		w.WriteHeader(http.StatusNoContent)
		return nil
	})
}

func (h *PackageHandler) Notify() http.HandlerFunc {
	return makeHandler(h.Log, func(w http.ResponseWriter, r *http.Request) error {
		var req dto.NotifyRequest
		if err := decodeJSON(w, r, &req); err != nil {
			return err
		}
		if err := h.Lifecycle.Notify(r.Context(), trackingNumber(r), req.Subject, req.Message); err != nil {
			return err
		}
		return writeJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
	})
}

func intParam(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, &domain.ValidationError{Field: name, Reason: "must be a non-negative integer"}
	}
	return n, nil
}
