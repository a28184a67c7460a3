package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"package-tracking-service/internal/domain"
	"package-tracking-service/internal/platform/logger"

	"github.com/go-chi/chi/v5/middleware"
)

// Request bodies larger than this are rejected.
const maxBodyBytes = 1 << 20

// appHandler returns an error instead of writing failures itself; makeHandler
// maps it onto a status code and a JSON body.
type appHandler func(w http.ResponseWriter, r *http.Request) error

func makeHandler(log *logger.Logger, h appHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		err := h(ww, r)
		if err == nil {
			return
		}

		status, msg := statusFor(err)
		reqID := middleware.GetReqID(r.Context())
		if status >= http.StatusInternalServerError {
			log.Error("request failed", "req_id", reqID, "method", r.Method, "path", r.URL.Path, "status", status, "err", err)
		} else {
			log.Debug("request rejected", "req_id", reqID, "method", r.Method, "path", r.URL.Path, "status", status, "err", err)
		}

		if ww.Status() != 0 {
			log.Warn("handler returned error after writing response", "req_id", reqID, "path", r.URL.Path, "err", err)
			return
		}
		writeError(ww, status, msg)
	}
}

// statusFor maps the domain error taxonomy onto HTTP.
func statusFor(err error) (int, string) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Error()
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, "validation failed"
	case errors.Is(err, domain.ErrCheckpointNotFound):
		return http.StatusNotFound, "checkpoint not found"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "package not found"
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, "conflict: package was changed concurrently or already exists"
	case errors.Is(err, domain.ErrEncoding):
		return http.StatusUnprocessableEntity, "tracking number cannot be encoded"
	case errors.Is(err, domain.ErrRenderingFailed):
		return http.StatusBadGateway, "document rendering failed"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	return nil
}

func writeError(w http.ResponseWriter, status int, msg string) {
	_ = writeJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON reads exactly one JSON object into dst, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return &domain.ValidationError{Field: "body", Reason: "invalid json: " + err.Error()}
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return &domain.ValidationError{Field: "body", Reason: "must contain only one JSON object"}
	}
	return nil
}
