// Package llm wraps the OpenAI API for embedding generation.
package llm

import (
	"context"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
)

const (
	DefaultEmbeddingModel = string(openai.AdaEmbeddingV2)
	DefaultEmbeddingDim   = 1536
)

// Client is the embedding provider client. All calls go through a circuit
// breaker so a misbehaving provider fails fast instead of piling up timeouts.
type Client struct {
	client *openai.Client
	model  openai.EmbeddingModel
	dim    int
	cb     *gobreaker.CircuitBreaker
}

// ClientConfig holds configuration for creating a Client.
type ClientConfig struct {
	APIKey    string
	Model     string
	Dimension int
}

// NewClient creates a new embedding client.
func NewClient(cfg ClientConfig) *Client {
	model := cfg.Model
	if model == "" {
		model = DefaultEmbeddingModel
	}
	dim := cfg.Dimension
	if dim == 0 {
		dim = DefaultEmbeddingDim
	}

	cbSettings := gobreaker.Settings{
		Name:        "openai-embeddings",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}

	return &Client{
		client: openai.NewClient(cfg.APIKey),
		model:  openai.EmbeddingModel(model),
		dim:    dim,
		cb:     gobreaker.NewCircuitBreaker(cbSettings),
	}
}

// Dimension returns the fixed embedding dimensionality.
func (c *Client) Dimension() int {
	return c.dim
}

// Embedding generates an embedding for a single text.
func (c *Client) Embedding(ctx context.Context, text string) ([]float32, error) {
	result, err := c.cb.Execute(func() (interface{}, error) {
		resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Model: c.model,
			Input: []string{text},
		})
		if err != nil {
			return nil, err
		}
		if len(resp.Data) == 0 {
			return []float32(nil), nil
		}
		return resp.Data[0].Embedding, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]float32), nil
}

// EmbeddingBatch generates embeddings for multiple texts in one API call.
// The response preserves input order.
func (c *Client) EmbeddingBatch(ctx context.Context, texts []string) ([][]float32, error) {
	result, err := c.cb.Execute(func() (interface{}, error) {
		resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Model: c.model,
			Input: texts,
		})
		if err != nil {
			return nil, err
		}
		out := make([][]float32, len(resp.Data))
		for i, data := range resp.Data {
			out[i] = data.Embedding
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([][]float32), nil
}
