package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheHooks(t *testing.T) {
	c := New("llmemo")
	c.Hit()
	c.Hit()
	c.Miss()
	c.Expired(3)
	c.Evicted(5)
	c.Size(42)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.CacheHits))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.CacheMisses))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.CacheExpired))
	assert.Equal(t, 5.0, testutil.ToFloat64(c.CacheEvictions))
	assert.Equal(t, 42.0, testutil.ToFloat64(c.CacheEntries))
}

func TestBackendCall(t *testing.T) {
	c := New("llmemo")
	c.BackendCall("normal", "ok", 200*time.Millisecond)
	c.BackendCall("normal", "ok", 300*time.Millisecond)
	c.BackendCall("fast", "timeout", 10*time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.BackendCalls.WithLabelValues("normal", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.BackendCalls.WithLabelValues("fast", "timeout")))
	assert.Equal(t, 2, testutil.CollectAndCount(c.BackendLatency))
}

func TestCollectorsAreIndependent(t *testing.T) {
	a := New("llmemo")
	b := New("llmemo")
	a.Hit()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.CacheHits))
}

func TestHandler(t *testing.T) {
	c := New("llmemo")
	c.Miss()

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "llmemo_cache_misses_total 1")
	assert.Contains(t, string(body), "go_goroutines")
}
