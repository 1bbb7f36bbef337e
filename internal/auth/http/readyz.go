package http

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AndriiLiubov/homework-web-14/internal/auth/store"
	"github.com/AndriiLiubov/homework-web-14/pkg/httpx"
)

// CachePinger is the slice of the Redis client the readiness probe needs.
// Satisfied by *redis.Client.
type CachePinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

// ReadyzHandler is the readiness probe. The database is a hard dependency: if
// it is down the service cannot serve and the probe returns 503. The cache is
// a soft dependency; principal resolution degrades to the database, so a cache
// outage only marks the service degraded.
func ReadyzHandler(startTime time.Time, version string, st store.Store, cache CachePinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := &HealthChecks{
			Database: "ok",
			Cache:    "ok",
		}
		overallStatus := "ok"
		statusCode := http.StatusOK

		if err := st.Ping(r.Context()); err != nil {
			checks.Database = "error: " + err.Error()
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		if cache == nil {
			checks.Cache = "not configured"
		} else if err := cache.Ping(r.Context()).Err(); err != nil {
			checks.Cache = "error: " + err.Error()
			if overallStatus == "ok" {
				overallStatus = "degraded"
			}
		}

		httpx.WriteJSON(w, statusCode, HealthResponse{
			Status:  overallStatus,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		})
	}
}
