// Package oracle talks to the external embedding service. The service
// is an Ollama-compatible endpoint: POST /api/embed with a batch of
// strings returns one vector per string.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/promobg/matcher/internal/config"
	"github.com/promobg/matcher/internal/domain"
)

// Client is a batching, caching embedding client.
type Client struct {
	baseURL   string
	model     string
	batchSize int
	http      *http.Client

	mu    sync.Mutex
	cache map[string][]float32
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// New builds a client from configuration.
func New(cfg config.OracleConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 64
	}
	return &Client{
		baseURL:   cfg.BaseURL,
		model:     cfg.Model,
		batchSize: batch,
		http:      &http.Client{Timeout: timeout},
		cache:     make(map[string][]float32),
	}
}

// Embed returns one vector per input string, batching requests and
// serving repeats from cache. Any transport or protocol failure wraps
// domain.ErrOracleUnavailable so callers can degrade instead of abort.
func (c *Client) Embed(ctx context.Context, inputs []string) (map[string][]float32, error) {
	out := make(map[string][]float32, len(inputs))

	var missing []string
	c.mu.Lock()
	for _, s := range inputs {
		if vec, ok := c.cache[s]; ok {
			out[s] = vec
		} else {
			missing = append(missing, s)
		}
	}
	c.mu.Unlock()

	for start := 0; start < len(missing); start += c.batchSize {
		end := start + c.batchSize
		if end > len(missing) {
			end = len(missing)
		}
		batch := missing[start:end]

		vectors, err := c.embedBatch(ctx, batch)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		for i, s := range batch {
			c.cache[s] = vectors[i]
			out[s] = vectors[i]
		}
		c.mu.Unlock()
	}

	return out, nil
}

func (c *Client) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	body, err := json.Marshal(embedRequest{Model: c.model, Input: batch})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrOracleUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrOracleUnavailable, resp.StatusCode, payload)
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", domain.ErrOracleUnavailable, err)
	}
	if len(parsed.Embeddings) != len(batch) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d inputs",
			domain.ErrOracleUnavailable, len(parsed.Embeddings), len(batch))
	}

	return parsed.Embeddings, nil
}
