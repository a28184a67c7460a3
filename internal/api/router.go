package api

import (
	"net/http"
	"package-tracking-service/internal/api/handlers"
	"package-tracking-service/internal/auth"
	"package-tracking-service/internal/platform/logger"
	"package-tracking-service/internal/services"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RouterDeps struct {
	Lifecycle *services.Lifecycle
	Tracker   *services.Tracker
	Exporter  *services.Exporter
	Tokens    *auth.Tokens
	Log       *logger.Logger

	// When FilesDir is set, stored documents are served at FilesBaseURL.
	FilesDir     string
	FilesBaseURL string
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(deps RouterDeps) http.Handler {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}

	trackHandler := &handlers.TrackingHandler{Tracker: deps.Tracker, Log: log}
	pkgHandler := &handlers.PackageHandler{
		Lifecycle: deps.Lifecycle,
		Exporter:  deps.Exporter,
		Log:       log,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(loggingMiddleware(log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", handlers.Health)
	r.Get("/track/{trackingNumber}", trackHandler.Track())

	r.Route("/admin/packages", func(r chi.Router) {
		r.Use(requireOperator(deps.Tokens, log))

		r.Get("/", pkgHandler.List())
		r.Post("/", pkgHandler.Create())

		r.Route("/{trackingNumber}", func(r chi.Router) {
			r.Get("/", pkgHandler.Get())
			r.Patch("/", pkgHandler.Edit())
			r.Delete("/", pkgHandler.Delete())

			r.Post("/checkpoints", pkgHandler.AddCheckpoint())
			r.Patch("/checkpoints/{checkpointID}", pkgHandler.UpdateCheckpoint())
			r.Delete("/checkpoints/{checkpointID}", pkgHandler.DeleteCheckpoint())

			r.Get("/export", pkgHandler.Export())
			r.Post("/documents", pkgHandler.GenerateDocument())
			r.Post("/notify", pkgHandler.Notify())
		})
	})

	if deps.FilesDir != "" {
		base := "/" + strings.Trim(deps.FilesBaseURL, "/")
		fs := http.StripPrefix(base, http.FileServer(http.Dir(deps.FilesDir)))
		r.Handle(base+"/*", fs)
	}

	return r
}
