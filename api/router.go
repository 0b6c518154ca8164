// Package api exposes the callable functions and dashboard endpoints over HTTP.
package api

import (
	"context"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"agent-optimus/services"
	"agent-optimus/storage"
	"agent-optimus/utils"
)

// maxBodySize bounds request bodies; uploads arrive base64-encoded inline.
const maxBodySize = 32 << 20

// Pinger is a backing store that can report its health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the services the router dispatches to.
type Deps struct {
	Uploader    *services.Uploader
	Trials      *services.TrialService
	Insights    *services.InsightService
	Properties  storage.PropertyStore
	Users       storage.UserStore
	DB          Pinger
	CORSOrigins []string
	Logger      *utils.Logger
}

// NewRouter creates and configures the HTTP router.
func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()

	// Metrics first so every request is counted.
	r.Use(Metrics)

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(RequestLogger(d.Logger.Zerolog()))
	r.Use(chimw.Recoverer)

	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	h := &Handler{deps: d, logger: d.Logger}
	auth := NewAuthenticator(d.Users, d.Logger)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health", h.Health)

	r.Group(func(r chi.Router) {
		r.Use(auth.Identify)

		r.Post("/functions/uploadPropertyCSV", h.UploadPropertyCSV)
		r.Post("/functions/activateTrial", h.ActivateTrial)
		r.Get("/properties/insights", h.PropertyInsights)
	})

	return r
}
