package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// Dedupe suppresses duplicate webhook deliveries. The source retries on
// network hiccups even though we always answer 200, so the same event can
// arrive more than once. Duplicates are still acknowledged with 200 -- they
// just never reach the pipeline.
func Dedupe(redisClient *redis.Client) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get("X-Webhook-Id")
			if key == "" {
				// fall back to a body digest
				body, err := io.ReadAll(r.Body)
				if err != nil {
					next.ServeHTTP(w, r)
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
				sum := sha256.Sum256(body)
				key = hex.EncodeToString(sum[:])
			}

			dedupeKey := fmt.Sprintf("webhook:seen:%s", key)
			ctx := r.Context()

			// First delivery wins the SETNX; everything after is a duplicate.
			acquired, err := redisClient.SetNX(ctx, dedupeKey, "1", 24*time.Hour).Result()
			if err != nil {
				// redis down must not cost us events
				next.ServeHTTP(w, r)
				return
			}
			if !acquired {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("X-Dedupe-Hit", "true")
				w.WriteHeader(http.StatusOK)
				json.NewEncoder(w).Encode(map[string]string{
					"status":    "OK",
					"message":   "Duplicate",
					"timestamp": time.Now().UTC().Format(time.RFC3339),
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
