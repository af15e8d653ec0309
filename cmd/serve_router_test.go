package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andes-group/invest-cli/internal/model"
	"github.com/andes-group/invest-cli/internal/resilience"
	"github.com/andes-group/invest-cli/internal/store"
)

func newTestEnv(t *testing.T) *env {
	t.Helper()
	st, err := store.NewSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { st.Close() })

	return &env{
		breaker: resilience.NewBreaker(resilience.BreakerConfig{}),
		store:   st,
	}
}

func TestRouter_Health(t *testing.T) {
	h := buildRouter(context.Background(), newTestEnv(t))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "closed", body["model_circuit"])
}

func TestRouter_Webhook_Accepted_NilOrchestrator(t *testing.T) {
	// With a nil orchestrator the run is accepted and then marked failed.
	testEnv := newTestEnv(t)
	h := buildRouter(context.Background(), testEnv)

	payload, _ := json.Marshal(model.ReportRequest{
		ListingURL:  "https://portal.example.cl/depto-123",
		PrincipalUF: 6900,
	})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/webhook/report", bytes.NewReader(payload)))

	assert.Equal(t, http.StatusAccepted, rr.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "accepted", resp["status"])
	require.NotEmpty(t, resp["run_id"])

	require.Eventually(t, func() bool {
		run, err := testEnv.store.GetRun(context.Background(), resp["run_id"])
		return err == nil && run.Status == model.RunStatusFailed
	}, time.Second, 10*time.Millisecond)
}

func TestRouter_Webhook_InvalidJSON(t *testing.T) {
	h := buildRouter(context.Background(), newTestEnv(t))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/webhook/report", bytes.NewReader([]byte("not json"))))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid request body")
}

func TestRouter_Webhook_InvalidRequest(t *testing.T) {
	h := buildRouter(context.Background(), newTestEnv(t))

	payload, _ := json.Marshal(model.ReportRequest{
		ListingURL:  "https://portal.example.cl/depto-123",
		PrincipalUF: 50,
	})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/webhook/report", bytes.NewReader(payload)))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "out of range")
}

func TestRouter_GetRun(t *testing.T) {
	testEnv := newTestEnv(t)
	run, err := testEnv.store.CreateRun(context.Background(), model.ReportRequest{
		ListingURL:  "https://portal.example.cl/depto-123",
		PrincipalUF: 6900,
	})
	require.NoError(t, err)

	h := buildRouter(context.Background(), testEnv)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/runs/"+run.ID, nil))

	assert.Equal(t, http.StatusOK, rr.Code)

	var got model.Run
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, model.RunStatusQueued, got.Status)
}

func TestRouter_GetRun_NotFound(t *testing.T) {
	h := buildRouter(context.Background(), newTestEnv(t))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/runs/missing", nil))

	assert.Equal(t, http.StatusNotFound, rr.Code)
}
