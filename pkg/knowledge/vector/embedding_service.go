package vector

import (
	"context"
	"crypto/sha256"
	"math"
	"strings"

	"github.com/go-logr/logr"
)

const defaultDimension = 384

// EmbeddingService turns a text summary into a fixed-dim vector.
type EmbeddingService interface {
	GenerateTextEmbedding(ctx context.Context, text string) ([]float64, error)
	Dimension() int
}

// LocalEmbeddingService is a deterministic, dependency-free embedder:
// every whitespace-delimited token is hashed into a bucket of the
// output vector via SHA-256, the bucket gains +1 or -1 depending on a
// hash bit, and the result is L2-normalized. It produces no semantic
// understanding, only a stable bag-of-words fingerprint — enough for
// the Knowledge Store's cosine-similarity k-NN without requiring an
// external embedding API. It is the only EmbeddingService
// implementation in this module: serve and replay build it regardless
// of EmbeddingConfig.Service.
type LocalEmbeddingService struct {
	dimension int
	log       logr.Logger
}

func NewLocalEmbeddingService(dimension int, log logr.Logger) *LocalEmbeddingService {
	if dimension <= 0 {
		dimension = defaultDimension
	}
	return &LocalEmbeddingService{dimension: dimension, log: log}
}

func (s *LocalEmbeddingService) Dimension() int { return s.dimension }

func (s *LocalEmbeddingService) GenerateTextEmbedding(ctx context.Context, text string) ([]float64, error) {
	vec := make([]float64, s.dimension)
	if strings.TrimSpace(text) == "" {
		return vec, nil
	}

	for _, token := range strings.Fields(strings.ToLower(text)) {
		sum := sha256.Sum256([]byte(token))
		bucket := int(sum[0])<<8 | int(sum[1])
		bucket %= s.dimension
		sign := 1.0
		if sum[2]&1 == 1 {
			sign = -1.0
		}
		vec[bucket] += sign
	}

	return normalize(vec), nil
}

// GenerateActionEmbedding embeds an action kind plus its scalar
// parameters, for callers that want to bias similarity toward the
// remediation shape rather than free text.
func (s *LocalEmbeddingService) GenerateActionEmbedding(ctx context.Context, actionKind string, parameters map[string]interface{}) ([]float64, error) {
	var b strings.Builder
	b.WriteString(actionKind)
	for k, v := range parameters {
		switch val := v.(type) {
		case string:
			b.WriteString(" " + k + "=" + val)
		case nil:
			// skip: no scalar representation
		default:
			b.WriteString(" " + k)
		}
	}
	return s.GenerateTextEmbedding(ctx, b.String())
}

func normalize(vec []float64) []float64 {
	var sumSquares float64
	for _, v := range vec {
		sumSquares += v * v
	}
	if sumSquares == 0 {
		return vec
	}
	magnitude := math.Sqrt(sumSquares)
	out := make([]float64, len(vec))
	for i, v := range vec {
		out[i] = v / magnitude
	}
	return out
}
