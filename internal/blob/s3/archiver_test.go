package s3blob

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evergreen/internal/decision"
	"evergreen/internal/store"
)

type capturedPut struct {
	method string
	path   string
	body   string
}

func fakeS3(t *testing.T) (*httptest.Server, func() []capturedPut) {
	t.Helper()
	var (
		mu   sync.Mutex
		puts []capturedPut
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		puts = append(puts, capturedPut{method: r.Method, path: r.URL.Path, body: string(body)})
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []capturedPut {
		mu.Lock()
		defer mu.Unlock()
		return append([]capturedPut(nil), puts...)
	}
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(context.Background(), ClientConfig{Region: "us-east-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket")

	_, err = New(context.Background(), ClientConfig{Bucket: "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "region")
}

func TestNormaliseEndpoint(t *testing.T) {
	assert.Equal(t, "http://minio:9000", normaliseEndpoint("minio:9000", false))
	assert.Equal(t, "https://minio:9000", normaliseEndpoint("minio:9000", true))
	assert.Equal(t, "http://x", normaliseEndpoint("http://x", true))
}

func TestArchiverPutsDatedKey(t *testing.T) {
	srv, puts := fakeS3(t)
	c, err := New(context.Background(), ClientConfig{
		Endpoint:       srv.URL,
		Region:         "us-east-1",
		Bucket:         "evergreen",
		AccessKey:      "test",
		SecretKey:      "test",
		ForcePathStyle: true,
	})
	require.NoError(t, err)

	a := NewArchiver(c, "/archive/")
	rec := store.DecisionRecord{
		DecisionID:         "d-1",
		Timestamp:          time.Date(2025, 1, 31, 23, 0, 0, 0, time.UTC),
		MarketSymbol:       "BTC-TEST",
		ConsensusDirection: decision.DirectionYes,
	}
	key, err := a.Archive(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, "archive/2025/01/31/d-1.json", key)

	got := puts()
	require.Len(t, got, 1)
	assert.Equal(t, http.MethodPut, got[0].method)
	assert.Equal(t, "/evergreen/archive/2025/01/31/d-1.json", got[0].path)
	assert.Contains(t, got[0].body, `"decision_id":"d-1"`)
}

func TestArchiverDefaultsPrefixAndRejectsEmptyID(t *testing.T) {
	c := &Client{bucket: "b"}
	a := NewArchiver(c, "  ")
	assert.Equal(t, "decisions", a.prefix)

	_, err := a.Archive(context.Background(), store.DecisionRecord{})
	require.Error(t, err)
}
