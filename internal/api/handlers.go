package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/mejo-sal/pinable/internal/notify"
)

// Pinger reports delivery-channel connectivity for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handlers struct {
	router  *notify.Router
	store   interface{ Len() int }
	pinger  Pinger
	appName string
	started time.Time
}

func NewHandlers(router *notify.Router, store interface{ Len() int }, pinger Pinger, appName string) *Handlers {
	return &Handlers{
		router:  router,
		store:   store,
		pinger:  pinger,
		appName: appName,
		started: time.Now(),
	}
}

// Webhook acknowledges immediately and unconditionally. Processing happens
// after the response is committed; the source must never retry on our
// internal failures.
func (h *Handlers) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		// even a broken read is acknowledged; there is nothing to process
		body = nil
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":    "OK",
		"message":   "Received",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})

	if len(body) > 0 {
		h.router.Route(r.Context(), body)
	}
}

func (h *Handlers) Root(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message":   h.appName,
		"status":    "Running",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	channel := "Connected"
	if h.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := h.pinger.Ping(ctx); err != nil {
			channel = "Connecting"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(h.started).Round(time.Second).String(),
		"channel":   channel,
		"storage": map[string]int{
			"customerPhones": h.store.Len(),
		},
	})
}
