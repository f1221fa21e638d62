package db

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/unisync/internal/app/projectors"
	"github.com/yigit/unisync/internal/config"
	"github.com/yigit/unisync/internal/pkg/apperrors"
)

// fakeCluster answers the handful of endpoints the adapter uses.
type fakeCluster struct {
	mu       sync.Mutex
	indices  map[string]bool
	docs     map[string]string
	requests []string
	status   int
}

func (f *fakeCluster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	if f.status != 0 && r.URL.Path != "/" {
		w.WriteHeader(f.status)
		_, _ = io.WriteString(w, `{"error":"injected"}`)
		return
	}

	switch {
	case r.URL.Path == "/":
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, `{"version":{"number":"8.17.0"}}`)
	case r.Method == http.MethodHead:
		if f.indices[r.URL.Path[1:]] {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	case r.Method == http.MethodPut && len(r.URL.Path) > 1 && !strings.Contains(r.URL.Path, "/_doc/"):
		f.indices[r.URL.Path[1:]] = true
		_, _ = io.WriteString(w, `{"acknowledged":true}`)
	case r.Method == http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.docs[r.URL.Path] = string(body)
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"result":"created"}`)
	case r.Method == http.MethodDelete:
		clear(f.indices)
		clear(f.docs)
		_, _ = io.WriteString(w, `{"acknowledged":true}`)
	default:
		w.WriteHeader(http.StatusBadRequest)
	}
}

func newTestSearch(t *testing.T) (*ElasticSearch, *fakeCluster) {
	t.Helper()
	fake := &fakeCluster{indices: map[string]bool{}, docs: map[string]string{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	cfg := &config.Config{}
	cfg.Search.Addresses = srv.URL
	cfg.Search.SessionsIndex = "sessions"
	cfg.Search.MaterialsIndex = "session_materials"

	es, err := NewElasticSearch(context.Background(), cfg)
	require.NoError(t, err)
	return es, fake
}

func TestElasticEnsureIndexCreatesOnce(t *testing.T) {
	ctx := context.Background()
	es, fake := newTestSearch(t)

	require.NoError(t, es.EnsureIndex(ctx, "sessions", projectors.SessionsMapping))
	require.NoError(t, es.EnsureIndex(ctx, "sessions", projectors.SessionsMapping))

	creates := 0
	for _, r := range fake.requests {
		if r == "PUT /sessions" {
			creates++
		}
	}
	assert.Equal(t, 1, creates)
}

func TestElasticIndexUsesCanonicalID(t *testing.T) {
	ctx := context.Background()
	es, fake := newTestSearch(t)

	doc := projectors.SessionDoc{Topic: "Indexes", DurationHours: 2}
	require.NoError(t, es.Index(ctx, "sessions", 42, doc))
	require.NoError(t, es.Index(ctx, "sessions", 42, doc))

	assert.Len(t, fake.docs, 1)
	assert.Contains(t, fake.docs["/sessions/_doc/42"], `"topic":"Indexes"`)

	require.NoError(t, es.Reset(ctx))
	assert.Empty(t, fake.docs)
}

func TestElasticErrorStatusesAreClassified(t *testing.T) {
	ctx := context.Background()
	es, fake := newTestSearch(t)

	fake.status = http.StatusBadRequest
	err := es.Index(ctx, "sessions", 1, projectors.SessionDoc{})
	assert.Equal(t, apperrors.KindWriteRejected, apperrors.KindOf(err))

	fake.status = http.StatusTooManyRequests
	err = es.Index(ctx, "sessions", 1, projectors.SessionDoc{})
	assert.True(t, apperrors.IsRetriable(err))
}
