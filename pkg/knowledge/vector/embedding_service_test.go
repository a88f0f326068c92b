package vector

import (
	"context"
	"math"
	"testing"

	"github.com/go-logr/logr"
)

func TestNewLocalEmbeddingServiceDefaultsDimension(t *testing.T) {
	svc := NewLocalEmbeddingService(0, logr.Discard())
	if svc.Dimension() != defaultDimension {
		t.Errorf("Dimension() = %d, want %d", svc.Dimension(), defaultDimension)
	}
}

func TestGenerateTextEmbeddingIsNormalized(t *testing.T) {
	svc := NewLocalEmbeddingService(384, logr.Discard())
	embedding, err := svc.GenerateTextEmbedding(context.Background(), "pod memory usage high alert")
	if err != nil {
		t.Fatalf("GenerateTextEmbedding() error = %v", err)
	}
	if len(embedding) != 384 {
		t.Fatalf("len(embedding) = %d, want 384", len(embedding))
	}
	var sumSquares float64
	for _, v := range embedding {
		sumSquares += v * v
	}
	if math.Abs(sumSquares-1.0) > 0.01 {
		t.Errorf("magnitude^2 = %v, want ~1.0", sumSquares)
	}
}

func TestGenerateTextEmbeddingEmptyTextIsZero(t *testing.T) {
	svc := NewLocalEmbeddingService(384, logr.Discard())
	embedding, err := svc.GenerateTextEmbedding(context.Background(), "")
	if err != nil {
		t.Fatalf("GenerateTextEmbedding() error = %v", err)
	}
	for _, v := range embedding {
		if v != 0.0 {
			t.Fatalf("expected a zero embedding for empty text, got %v", embedding)
		}
	}
}

func TestGenerateTextEmbeddingIsDeterministic(t *testing.T) {
	svc := NewLocalEmbeddingService(384, logr.Discard())
	a, _ := svc.GenerateTextEmbedding(context.Background(), "deployment scaling alert")
	b, _ := svc.GenerateTextEmbedding(context.Background(), "deployment scaling alert")
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same text produced different embeddings at index %d: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestGenerateTextEmbeddingDiffersAcrossTexts(t *testing.T) {
	svc := NewLocalEmbeddingService(384, logr.Discard())
	a, _ := svc.GenerateTextEmbedding(context.Background(), "memory usage")
	b, _ := svc.GenerateTextEmbedding(context.Background(), "cpu throttling")
	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("expected different texts to produce different embeddings")
	}
}
