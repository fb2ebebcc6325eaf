package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/pos-harmonizer/internal/harmonize"
	"github.com/ignite/pos-harmonizer/internal/pkg/distlock"
	"github.com/ignite/pos-harmonizer/internal/storage"
)

const testCSV = `device_id,timestamp,item_id,qty,unit_price,store
S-101,2025-09-15T08:00:00Z,SKU-03,1,19.99,CLUJ-D
S-101,2025-09-15T08:15:00Z,SKU-05,2,9.99,CLUJ-D
S-102,2025-09-15T08:45:00Z,SKU-01,2,129.99,CLUJ-D
`

// 2025-09-15T09:00:00Z
const testRunTS = int64(1757926800000)

func newTestServer(t *testing.T) (*httptest.Server, storage.BlobStore) {
	t.Helper()

	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	h := NewHandlers(store, harmonize.New(harmonize.Config{}), nil, "raw", "processed", time.Minute)
	hc := NewHealthChecker(store, nil, "local", "")
	srv := httptest.NewServer(SetupRoutes(h, hc))
	t.Cleanup(srv.Close)
	return srv, store
}

func postHarmonize(t *testing.T, srv *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(srv.URL+"/api/harmonize", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHandleHarmonizeSuccess(t *testing.T) {
	srv, store := newTestServer(t)
	ctx := context.Background()

	prev := nowMillis
	nowMillis = func() int64 { return testRunTS }
	defer func() { nowMillis = prev }()

	require.NoError(t, store.Put(ctx, "raw/sales-2025-09-15.csv", []byte(testCSV), "text/csv"))

	resp := postHarmonize(t, srv, `{"fileName": "sales-2025-09-15.csv"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		RunID   string `json:"run_id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Success", body.Status)
	assert.Equal(t, "Processed 4 output blobs successfully.", body.Message)
	assert.NotEmpty(t, body.RunID)

	latest, err := store.Get(ctx, "processed/latest/device-S-101.json")
	require.NoError(t, err)
	history, err := store.Get(ctx, "processed/by-timestamp/20250915090000/device-S-101.json")
	require.NoError(t, err)
	assert.Equal(t, latest, history)

	var rec harmonize.Record
	require.NoError(t, json.Unmarshal(latest, &rec))
	assert.Equal(t, 39.97, rec.Summary.TotalRevenue)
}

func TestHandleHarmonizeOverwritesLatest(t *testing.T) {
	srv, store := newTestServer(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "raw/sales.csv", []byte(testCSV), "text/csv"))

	resp := postHarmonize(t, srv, `{"fileName": "sales.csv"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	smaller := "device_id,timestamp,item_id,qty,unit_price,store\n" +
		"S-101,2025-09-16T08:00:00Z,SKU-03,1,5.00,CLUJ-D\n"
	require.NoError(t, store.Put(ctx, "raw/sales.csv", []byte(smaller), "text/csv"))

	resp = postHarmonize(t, srv, `{"fileName": "sales.csv"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	latest, err := store.Get(ctx, "processed/latest/device-S-101.json")
	require.NoError(t, err)
	var rec harmonize.Record
	require.NoError(t, json.Unmarshal(latest, &rec))
	assert.Equal(t, 5.0, rec.Summary.TotalRevenue, "latest snapshot reflects the newest run")
}

func TestHandleHarmonizeMissingFileName(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postHarmonize(t, srv, `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postHarmonize(t, srv, `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleHarmonizeMissingInput(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postHarmonize(t, srv, `{"fileName": "does-not-exist.csv"}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body.Error, "input setup or storage access")
}

func TestHandleHarmonizeTransformFailure(t *testing.T) {
	srv, store := newTestServer(t)
	ctx := context.Background()

	tests := []struct {
		name string
		csv  string
	}{
		{"empty input", "device_id,timestamp,item_id,qty,unit_price,store\n"},
		{"bad timestamp", "device_id,timestamp,item_id,qty,unit_price,store\nS-1,soon,SKU-1,1,1.00,X\n"},
		{"missing column", "device_id,timestamp\nS-1,2025-09-15T08:00:00Z\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, store.Put(ctx, "raw/bad.csv", []byte(tt.csv), "text/csv"))

			resp := postHarmonize(t, srv, `{"fileName": "bad.csv"}`)
			assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

			var body struct {
				Error string `json:"error"`
			}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Contains(t, body.Error, "transformation")

			// A failed run must leave no artifacts behind.
			_, err := store.Get(ctx, "processed/latest/device-S-1.json")
			assert.Error(t, err)
		})
	}
}

type fakeLock struct {
	acquired   bool
	acquireErr error
	released   bool
}

func (l *fakeLock) Acquire(ctx context.Context) (bool, error) { return l.acquired, l.acquireErr }
func (l *fakeLock) Release(ctx context.Context) error         { l.released = true; return nil }
func (l *fakeLock) Extend(ctx context.Context) (bool, error)  { return l.acquired, nil }

func newLockedTestServer(t *testing.T, lock distlock.DistLock) (*httptest.Server, storage.BlobStore) {
	t.Helper()

	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	h := NewHandlers(store, harmonize.New(harmonize.Config{}), nil, "raw", "processed", time.Minute)
	h.newLock = func(file string) distlock.DistLock { return lock }
	hc := NewHealthChecker(store, nil, "local", "")
	srv := httptest.NewServer(SetupRoutes(h, hc))
	t.Cleanup(srv.Close)
	return srv, store
}

func TestHandleHarmonizeLockHeld(t *testing.T) {
	srv, store := newLockedTestServer(t, &fakeLock{acquired: false})
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "raw/sales.csv", []byte(testCSV), "text/csv"))

	resp := postHarmonize(t, srv, `{"fileName": "sales.csv"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// The run never started, so no artifacts were written.
	_, err := store.Get(ctx, "processed/latest/device-S-101.json")
	assert.Error(t, err)
}

func TestHandleHarmonizeLockAcquiredAndReleased(t *testing.T) {
	lock := &fakeLock{acquired: true}
	srv, store := newLockedTestServer(t, lock)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "raw/sales.csv", []byte(testCSV), "text/csv"))

	resp := postHarmonize(t, srv, `{"fileName": "sales.csv"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, lock.released, "lock must be released after the run")
}

func TestHandleHarmonizeLockErrorDegrades(t *testing.T) {
	srv, store := newLockedTestServer(t, &fakeLock{acquireErr: fmt.Errorf("redis down")})
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "raw/sales.csv", []byte(testCSV), "text/csv"))

	// A broken lock backend must not block runs.
	resp := postHarmonize(t, srv, `{"fileName": "sales.csv"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHandleHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status HealthStatus
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, "up", status.Checks["storage"].Status)
	assert.NotEmpty(t, status.Checks["storage"].Latency, "storage check probes the backend")
	assert.Equal(t, "not_configured", status.Checks["redis"].Status)
}

type brokenStore struct{}

func (brokenStore) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, fmt.Errorf("backend unreachable")
}

func (brokenStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	return fmt.Errorf("backend unreachable")
}

func TestHandleHealthStorageDown(t *testing.T) {
	hc := NewHealthChecker(brokenStore{}, nil, "aws", "")
	srv := httptest.NewServer(http.HandlerFunc(hc.HandleHealth))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	var status HealthStatus
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, "degraded", status.Status)
	assert.Equal(t, "down", status.Checks["storage"].Status)
	assert.Contains(t, status.Checks["storage"].Message, "backend unreachable")
}
