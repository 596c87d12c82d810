package repository

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	appConfig "github.com/mansoorceksport/liftlog/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 answers the three calls the archive makes and records what it saw
type fakeS3 struct {
	mu       sync.Mutex
	buckets  map[string]bool
	requests []string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_, _ = io.Copy(io.Discard, r.Body)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)

	switch {
	case r.Method == http.MethodHead && r.URL.Path == "/sessions":
		if !f.buckets["sessions"] {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodPut && r.URL.Path == "/sessions":
		f.buckets["sessions"] = true
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodPut:
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusBadRequest)
	}
}

func (f *fakeS3) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

func TestS3ArchiveRepository_CreatesBucketAndUploads(t *testing.T) {
	t.Setenv("AWS_PROFILE", "")
	t.Setenv("AWS_CONFIG_FILE", "/dev/null")
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", "/dev/null")

	store := &fakeS3{buckets: map[string]bool{}}
	ts := httptest.NewServer(store)
	defer ts.Close()

	ctx := context.Background()
	repo, err := NewS3ArchiveRepository(ctx, appConfig.S3Config{
		Endpoint:  ts.URL,
		Region:    "us-east-1",
		Bucket:    "sessions",
		AccessKey: "any",
		SecretKey: "any",
	})
	require.NoError(t, err)

	url, err := repo.Upload(ctx, []byte(`{"session_id":1}`), "sessions/1.json", "application/json")
	require.NoError(t, err)
	assert.Equal(t, ts.URL+"/sessions/sessions/1.json", url)

	assert.Equal(t, []string{
		"HEAD /sessions",
		"PUT /sessions",
		"PUT /sessions/sessions/1.json",
	}, store.seen())
}
