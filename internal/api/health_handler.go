package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/pos-harmonizer/internal/pkg/httputil"
	"github.com/ignite/pos-harmonizer/internal/storage"
)

// HealthStatus represents the overall health of the pipeline service.
type HealthStatus struct {
	Status  string                    `json:"status"` // "healthy", "degraded"
	Version string                    `json:"version"`
	Uptime  string                    `json:"uptime"`
	Checks  map[string]ComponentCheck `json:"checks"`
}

// ComponentCheck represents the health of a single component.
type ComponentCheck struct {
	Status  string `json:"status"` // "up", "down", "not_configured"
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
}

// HealthChecker reports the state of the pipeline's dependencies.
// Any dependency can be nil/empty; the check then reports "not_configured".
type HealthChecker struct {
	store       storage.BlobStore
	redisClient *redis.Client
	storageType string
	queueURL    string
	startTime   time.Time
}

// NewHealthChecker creates a HealthChecker.
func NewHealthChecker(store storage.BlobStore, redisClient *redis.Client, storageType, queueURL string) *HealthChecker {
	return &HealthChecker{
		store:       store,
		redisClient: redisClient,
		storageType: storageType,
		queueURL:    queueURL,
		startTime:   time.Now(),
	}
}

const healthVersion = "1.0.0"

// HandleHealth returns the health status of the service and its
// dependencies. The storage check writes a small probe blob so "up" means
// the backend actually accepted a write. Redis being down only degrades
// the service: runs still work, they just lose per-input serialization.
//
//	GET /health
func (hc *HealthChecker) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	checks := map[string]ComponentCheck{}

	storageMsg := fmt.Sprintf("type=%s", hc.storageType)
	if hc.store == nil {
		checks["storage"] = ComponentCheck{Status: "not_configured"}
	} else {
		probeCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		start := time.Now()
		probe := []byte(start.UTC().Format(time.RFC3339))
		if err := hc.store.Put(probeCtx, "health/probe", probe, "text/plain"); err != nil {
			checks["storage"] = ComponentCheck{Status: "down", Message: err.Error()}
			status = "degraded"
		} else {
			checks["storage"] = ComponentCheck{
				Status:  "up",
				Latency: time.Since(start).String(),
				Message: storageMsg,
			}
		}
		cancel()
	}

	if hc.queueURL == "" {
		checks["queue"] = ComponentCheck{Status: "not_configured"}
	} else {
		checks["queue"] = ComponentCheck{Status: "up", Message: hc.queueURL}
	}

	if hc.redisClient == nil {
		checks["redis"] = ComponentCheck{Status: "not_configured"}
	} else {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		start := time.Now()
		if err := hc.redisClient.Ping(ctx).Err(); err != nil {
			checks["redis"] = ComponentCheck{Status: "down", Message: err.Error()}
			status = "degraded"
		} else {
			checks["redis"] = ComponentCheck{Status: "up", Latency: time.Since(start).String()}
		}
	}

	httputil.OK(w, HealthStatus{
		Status:  status,
		Version: healthVersion,
		Uptime:  time.Since(hc.startTime).Round(time.Second).String(),
		Checks:  checks,
	})
}
