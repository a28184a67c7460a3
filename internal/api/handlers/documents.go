package handlers

import (
	"net/http"
	"package-tracking-service/internal/api/dto"
)

// Export returns the QR payload and display bundle without rendering anything.
func (h *PackageHandler) Export() http.HandlerFunc {
	return makeHandler(h.Log, func(w http.ResponseWriter, r *http.Request) error {
		payload, err := h.Exporter.Export(r.Context(), trackingNumber(r))
		if err != nil {
			return err
		}
		return writeJSON(w, http.StatusOK, payload)
	})
}

// GenerateDocument renders and stores a document, then records it on the package.
func (h *PackageHandler) GenerateDocument() http.HandlerFunc {
	return makeHandler(h.Log, func(w http.ResponseWriter, r *http.Request) error {
		pkg, ref, err := h.Exporter.Generate(r.Context(), trackingNumber(r))
		if err != nil {
			return err
		}
		return writeJSON(w, http.StatusCreated, dto.DocumentResponse{
			Ref:     ref,
			Package: dto.NewPackageResponse(pkg),
		})
	})
}
