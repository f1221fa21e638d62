package filestorage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/unisync/internal/config"
)

// fakeS3 serves the object calls S3Storage makes from a map keyed by object key.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeS3) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}
	reply := func(status int, body string) *http.Response {
		return &http.Response{
			StatusCode: status,
			Body:       io.NopCloser(strings.NewReader(body)),
			Header:     http.Header{"Content-Type": {"application/xml"}},
			Request:    req,
		}
	}

	if req.Method == http.MethodGet && req.URL.Query().Get("list-type") == "2" {
		prefix := req.URL.Query().Get("prefix")
		var keys []string
		for k := range f.objects {
			if strings.HasPrefix(k, prefix) {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		var b strings.Builder
		b.WriteString(`<?xml version="1.0"?><ListBucketResult><IsTruncated>false</IsTruncated>`)
		for _, k := range keys {
			fmt.Fprintf(&b, "<Contents><Key>%s</Key><Size>%d</Size><LastModified>2024-01-01T00:00:00Z</LastModified></Contents>", k, len(f.objects[k]))
		}
		b.WriteString("</ListBucketResult>")
		return reply(http.StatusOK, b.String()), nil
	}

	switch req.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(req.Body)
		f.objects[key] = body
		return reply(http.StatusOK, ""), nil
	case http.MethodGet:
		if body, ok := f.objects[key]; ok {
			return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewReader(body)), Header: http.Header{}, Request: req}, nil
		}
		return reply(http.StatusNotFound, `<?xml version="1.0"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`), nil
	case http.MethodDelete:
		delete(f.objects, key)
		return reply(http.StatusNoContent, ""), nil
	}
	return reply(http.StatusNotImplemented, ""), nil
}

func newFakeS3Storage(t *testing.T) (*S3Storage, *fakeS3) {
	t.Helper()
	fake := &fakeS3{objects: map[string][]byte{}}
	st, err := NewS3Storage(context.Background(), S3Config{
		Bucket:   "reports",
		Endpoint: "https://s3.test.local",
		Prefix:   "unisync",
	}, func(o *s3.Options) {
		o.HTTPClient = &http.Client{Transport: fake}
		o.Credentials = aws.AnonymousCredentials{}
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})
	require.NoError(t, err)
	return st, fake
}

// exerciseStorage runs the common contract against any backend.
func exerciseStorage(t *testing.T, st FileStorage) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, st.Save(ctx, "runs/b.json", []byte(`{"id":"b"}`)))
	require.NoError(t, st.Save(ctx, "runs/a.json", []byte(`{"id":"a"}`)))
	require.NoError(t, st.Save(ctx, "other/c.json", []byte(`{}`)))
	require.NoError(t, st.Save(ctx, "runs/a.json", []byte(`{"id":"a2"}`)))

	data, err := st.Read(ctx, "runs/a.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"a2"}`, string(data))

	files, err := st.List(ctx, "runs/")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "runs/a.json", files[0].Path)
	assert.Equal(t, "runs/b.json", files[1].Path)
	assert.Equal(t, int64(len(`{"id":"b"}`)), files[1].FileSize)

	require.NoError(t, st.Delete(ctx, "runs/b.json"))
	require.NoError(t, st.Delete(ctx, "runs/b.json"))

	_, err = st.Read(ctx, "runs/b.json")
	assert.ErrorIs(t, err, ErrNotExist)
}

func TestLocalStorage(t *testing.T) {
	st, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	exerciseStorage(t, st)
}

func TestLocalStorageRejectsEscapingPaths(t *testing.T) {
	st, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	assert.Error(t, st.Save(context.Background(), "../outside.json", []byte("{}")))
	assert.Error(t, st.Save(context.Background(), "", []byte("{}")))
}

func TestMemoryStorage(t *testing.T) {
	exerciseStorage(t, NewMemoryStorage())
}

func TestS3Storage(t *testing.T) {
	st, fake := newFakeS3Storage(t)
	exerciseStorage(t, st)

	_, ok := fake.objects["unisync/runs/a.json"]
	assert.True(t, ok, "keys carry the configured prefix")
}

func TestNewSelectsDriver(t *testing.T) {
	cfg := &config.Config{}
	cfg.Reports.Driver = "memory"
	st, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStorage{}, st)

	cfg.Reports.Driver = "local"
	cfg.Reports.Path = t.TempDir()
	st, err = New(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &LocalStorage{}, st)

	cfg.Reports.Driver = "ftp"
	_, err = New(context.Background(), cfg)
	assert.Error(t, err)
}
