package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	ChiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/mejo-sal/pinable/internal/api/middleware"
)

func NewRouter(h *Handlers, redisClient *redis.Client) http.Handler {
	r := chi.NewRouter()

	r.Use(ChiMiddleware.Logger)
	r.Use(ChiMiddleware.Recoverer)
	r.Use(ChiMiddleware.RequestID)

	r.Get("/", h.Root)
	r.Get("/health", h.Health)

	// Duplicate webhook deliveries from the source are suppressed by event
	// id when redis is configured.
	if redisClient != nil {
		r.With(middleware.Dedupe(redisClient)).Post("/webhooks/wuilt", h.Webhook)
	} else {
		r.Post("/webhooks/wuilt", h.Webhook)
	}

	r.Handle("/metrics", promhttp.Handler())

	// the original gateway answered 200 to everything it didn't know
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "OK"})
	})

	return r
}
