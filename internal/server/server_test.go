package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/unisync/internal/app/services"
	"github.com/yigit/unisync/internal/config"
	"github.com/yigit/unisync/internal/pkg/filestorage"
	"github.com/yigit/unisync/internal/pkg/metrics"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Server.Mode = "test"
	return cfg
}

func seedArchive(t *testing.T, n int) (*services.ReportArchive, []*services.Run) {
	t.Helper()
	archive := services.NewReportArchive(filestorage.NewMemoryStorage())
	base := time.Date(2024, 10, 1, 9, 0, 0, 0, time.UTC)

	var runs []*services.Run
	for i := range n {
		run := services.NewRun(services.KindGenerate)
		run.StartedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, run.Transition(services.StateFailed))
		run.Error = "relational store unreachable"
		require.NoError(t, archive.Save(context.Background(), run))
		runs = append(runs, run)
	}
	return archive, runs
}

func get(t *testing.T, srv *Server, path string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body envelope
	if rec.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestHealth(t *testing.T) {
	archive, _ := seedArchive(t, 0)
	srv := NewServer(testConfig(), archive, prometheus.NewRegistry(), zerolog.Nop())

	rec, body := get(t, srv, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, body.Success)
	assert.JSONEq(t, `{"status":"ok"}`, string(body.Data))
}

func TestLatestRun(t *testing.T) {
	archive, runs := seedArchive(t, 3)
	srv := NewServer(testConfig(), archive, prometheus.NewRegistry(), zerolog.Nop())

	rec, body := get(t, srv, "/runs/latest")
	require.Equal(t, http.StatusOK, rec.Code)

	var run services.Run
	require.NoError(t, json.Unmarshal(body.Data, &run))
	assert.Equal(t, runs[2].ID, run.ID)
	assert.Equal(t, services.StateFailed, run.State)
	assert.Equal(t, "relational store unreachable", run.Error)
}

func TestLatestRunOnEmptyArchive(t *testing.T) {
	archive, _ := seedArchive(t, 0)
	srv := NewServer(testConfig(), archive, prometheus.NewRegistry(), zerolog.Nop())

	rec, body := get(t, srv, "/runs/latest")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, body.Error)
	assert.Equal(t, "RUN_001", body.Error.Code)
}

func TestRunByID(t *testing.T) {
	archive, runs := seedArchive(t, 2)
	srv := NewServer(testConfig(), archive, prometheus.NewRegistry(), zerolog.Nop())

	rec, body := get(t, srv, "/runs/"+runs[0].ID.String())
	require.Equal(t, http.StatusOK, rec.Code)
	var run services.Run
	require.NoError(t, json.Unmarshal(body.Data, &run))
	assert.Equal(t, runs[0].ID, run.ID)

	rec, body = get(t, srv, "/runs/not-a-uuid")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VAL_001", body.Error.Code)

	rec, body = get(t, srv, "/runs/00000000-0000-0000-0000-000000000001")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "RUN_001", body.Error.Code)
}

func TestListRunsPaginatesNewestFirst(t *testing.T) {
	archive, runs := seedArchive(t, 5)
	srv := NewServer(testConfig(), archive, prometheus.NewRegistry(), zerolog.Nop())

	rec, body := get(t, srv, "/runs?page=2&size=2")
	require.Equal(t, http.StatusOK, rec.Code)

	var page struct {
		Runs       []services.Run `json:"runs"`
		Pagination struct {
			CurrentPage int   `json:"currentPage"`
			TotalPages  int   `json:"totalPages"`
			TotalItems  int64 `json:"totalItems"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &page))
	require.Len(t, page.Runs, 2)
	assert.Equal(t, runs[2].ID, page.Runs[0].ID)
	assert.Equal(t, runs[1].ID, page.Runs[1].ID)
	assert.Equal(t, 2, page.Pagination.CurrentPage)
	assert.Equal(t, 3, page.Pagination.TotalPages)
	assert.Equal(t, int64(5), page.Pagination.TotalItems)
}

func TestMetricsEndpoint(t *testing.T) {
	archive, _ := seedArchive(t, 0)
	reg := prometheus.NewRegistry()
	rec, err := metrics.NewRecorder(reg)
	require.NoError(t, err)
	rec.Run("Completed")

	srv := NewServer(testConfig(), archive, reg, zerolog.Nop())
	resp := httptest.NewRecorder()
	srv.Handler().ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `unisync_runs_total{state="Completed"} 1`)
}

func TestRunStopsWhenContextIsCancelled(t *testing.T) {
	archive, _ := seedArchive(t, 0)
	cfg := testConfig()
	cfg.Server.Port = "0"
	srv := NewServer(cfg, archive, prometheus.NewRegistry(), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
