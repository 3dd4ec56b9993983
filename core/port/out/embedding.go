// Package out defines outbound ports (driven ports) for the application.
// These interfaces represent dependencies that the application needs.
package out

import "context"

// EmbeddingProvider maps text to fixed-length vectors. Dimensionality is
// fixed per deployment and must match the vector stores' declared dimension.
//
// Embed returns an error on provider failure; callers treat that as a
// transient condition and degrade to an empty result, never a crash.
// EmbedMany preserves input order and tolerates individual failures: a failed
// item yields a nil vector at its position without aborting the batch.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedMany(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}
