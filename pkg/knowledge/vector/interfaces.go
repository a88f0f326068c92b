// Package vector is the Knowledge Store's vector index (spec §4.5):
// Insert appends a KnowledgeRecord's embedding, Similar scores the
// index by cosine similarity against a query embedding. Two backends
// satisfy Index: an in-memory slice for tests and small deployments,
// and a PostgreSQL+pgvector-backed one for durable, shared state,
// selected by config.VectorDBConfig.Backend.
package vector

import (
	"context"

	"github.com/recist-project/recist/pkg/domain"
)

// Scored pairs a stored record with its similarity to the query.
type Scored struct {
	Record domain.KnowledgeRecord
	Score  float64
}

// Index is the vector index surface the Knowledge Store depends on.
type Index interface {
	Insert(ctx context.Context, record domain.KnowledgeRecord) error
	Similar(ctx context.Context, embedding []float64, k int, namespace string, errorType domain.FaultKind) ([]Scored, error)
	Close() error
}
