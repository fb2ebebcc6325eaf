package api

import (
	"fmt"
	"net/http"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/pos-harmonizer/internal/harmonize"
	"github.com/ignite/pos-harmonizer/internal/pkg/distlock"
	"github.com/ignite/pos-harmonizer/internal/pkg/httputil"
	"github.com/ignite/pos-harmonizer/internal/pkg/logger"
	"github.com/ignite/pos-harmonizer/internal/storage"
)

// nowMillis is the run clock. Split out for testability.
var nowMillis = func() int64 { return time.Now().UnixMilli() }

// Handlers holds the dependencies of the harmonization API.
type Handlers struct {
	store           storage.BlobStore
	harmonizer      *harmonize.Harmonizer
	newLock         func(file string) distlock.DistLock
	rawPrefix       string
	processedPrefix string
}

// NewHandlers creates the API handlers. redisClient may be nil; run
// locking is then disabled and concurrent runs fall back to the store's
// last-writer-wins semantics.
func NewHandlers(store storage.BlobStore, h *harmonize.Harmonizer, redisClient *redis.Client, rawPrefix, processedPrefix string, lockTTL time.Duration) *Handlers {
	handlers := &Handlers{
		store:           store,
		harmonizer:      h,
		rawPrefix:       rawPrefix,
		processedPrefix: processedPrefix,
	}
	if redisClient != nil {
		handlers.newLock = func(file string) distlock.DistLock {
			return distlock.NewRedisLock(redisClient, file, lockTTL)
		}
	}
	return handlers
}

type harmonizeRequest struct {
	FileName string `json:"fileName"`
}

type harmonizeResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	RunID   string `json:"run_id"`
}

// HandleHarmonize runs one harmonization over a raw input file and writes
// every resulting artifact pair. The run is atomic from the caller's view:
// any failure before the last write reports an error and the run is
// considered failed.
//
//	POST /api/harmonize {"fileName": "sales-2025-09-15.csv"}
func (h *Handlers) HandleHarmonize(w http.ResponseWriter, r *http.Request) {
	var req harmonizeRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if req.FileName == "" {
		httputil.BadRequest(w, "Please pass a 'fileName' in the request body")
		return
	}

	ctx := r.Context()
	runID := uuid.NewString()
	logger.Info("harmonization run started", "run_id", runID, "file", req.FileName)

	if h.newLock != nil {
		lock := h.newLock(req.FileName)
		acquired, err := lock.Acquire(ctx)
		if err != nil {
			// Redis trouble downgrades to unserialized last-writer-wins.
			logger.Warn("run lock unavailable, proceeding without it", "run_id", runID, "error", err)
		} else if !acquired {
			httputil.Error(w, http.StatusConflict, "a harmonization run for this input is already in progress")
			return
		} else {
			defer lock.Release(ctx)
		}
	}

	raw, err := h.store.Get(ctx, path.Join(h.rawPrefix, req.FileName))
	if err != nil {
		httputil.InternalError(w, "processing failed during input setup or storage access", err)
		return
	}

	artifacts, err := h.harmonizer.Harmonize(raw, nowMillis())
	if err != nil {
		httputil.InternalError(w, "processing failed during transformation", err)
		return
	}

	for _, a := range artifacts {
		key := path.Join(h.processedPrefix, a.Name)
		if err := h.store.Put(ctx, key, a.Content, "application/json"); err != nil {
			httputil.InternalError(w, "processing failed during output writing to storage", err)
			return
		}
		logger.Info("artifact written", "run_id", runID, "key", key)
	}

	logger.Info("harmonization run finished", "run_id", runID, "artifacts", len(artifacts))
	httputil.OK(w, harmonizeResponse{
		Status:  "Success",
		Message: fmt.Sprintf("Processed %d output blobs successfully.", len(artifacts)),
		RunID:   runID,
	})
}
