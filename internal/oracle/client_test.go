package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promobg/matcher/internal/config"
	"github.com/promobg/matcher/internal/domain"
)

func testServer(t *testing.T, calls *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/embed", r.URL.Path)
		calls.Add(1)

		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		resp := embedResponse{Embeddings: make([][]float32, len(req.Input))}
		for i := range req.Input {
			// Deterministic per-string vector keyed on rune count.
			resp.Embeddings[i] = []float32{float32(len([]rune(req.Input[i]))), 1}
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func testClient(baseURL string, batchSize int) *Client {
	return New(config.OracleConfig{
		BaseURL:        baseURL,
		Model:          "bge-m3",
		TimeoutSeconds: 5,
		BatchSize:      batchSize,
	})
}

func TestEmbed(t *testing.T) {
	var calls atomic.Int64
	srv := testServer(t, &calls)
	defer srv.Close()

	c := testClient(srv.URL, 64)

	vectors, err := c.Embed(context.Background(), []string{"мляко", "yogurt"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{5, 1}, vectors["мляко"])
	assert.Equal(t, []float32{6, 1}, vectors["yogurt"])
	assert.Equal(t, int64(1), calls.Load())
}

func TestEmbedBatches(t *testing.T) {
	var calls atomic.Int64
	srv := testServer(t, &calls)
	defer srv.Close()

	c := testClient(srv.URL, 2)

	inputs := []string{"a1", "b22", "c333", "d4444", "e55555"}
	vectors, err := c.Embed(context.Background(), inputs)
	require.NoError(t, err)
	assert.Len(t, vectors, len(inputs))
	assert.Equal(t, int64(3), calls.Load(), "5 inputs at batch size 2 take 3 requests")
}

func TestEmbedCaches(t *testing.T) {
	var calls atomic.Int64
	srv := testServer(t, &calls)
	defer srv.Close()

	c := testClient(srv.URL, 64)

	_, err := c.Embed(context.Background(), []string{"мляко", "yogurt"})
	require.NoError(t, err)
	_, err = c.Embed(context.Background(), []string{"мляко", "yogurt", "сирене"})
	require.NoError(t, err)

	assert.Equal(t, int64(2), calls.Load(), "second call only fetches the cache miss")
}

func TestEmbedServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := testClient(srv.URL, 64)

	_, err := c.Embed(context.Background(), []string{"мляко"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrOracleUnavailable))
}

func TestEmbedUnreachable(t *testing.T) {
	c := testClient("http://127.0.0.1:1", 64)

	_, err := c.Embed(context.Background(), []string{"мляко"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrOracleUnavailable))
}

func TestEmbedCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(embedResponse{Embeddings: [][]float32{{1, 2}}})
	}))
	defer srv.Close()

	c := testClient(srv.URL, 64)

	_, err := c.Embed(context.Background(), []string{"мляко", "yogurt"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrOracleUnavailable))
}
