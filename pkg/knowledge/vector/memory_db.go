package vector

import (
	"context"
	"sort"
	"sync"

	"github.com/recist-project/recist/pkg/domain"
	sharedmath "github.com/recist-project/recist/pkg/shared/math"
)

type entry struct {
	record    domain.KnowledgeRecord
	embedding []float64
}

// MemoryIndex is an in-process Index backed by a guarded slice, the
// "memory" VectorDBConfig.Backend. It scores every candidate on each
// Similar call rather than maintaining an ANN structure. Insert appends
// without a cap (the Knowledge Store's bounded hot buffer is a separate
// list), so the linear scan grows with every recorded incident.
type MemoryIndex struct {
	mu      sync.RWMutex
	entries []entry
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{}
}

func (m *MemoryIndex) Insert(ctx context.Context, record domain.KnowledgeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry{record: record, embedding: record.Embedding})
	return nil
}

func (m *MemoryIndex) Similar(ctx context.Context, embedding []float64, k int, namespace string, errorType domain.FaultKind) ([]Scored, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var scored []Scored
	for _, e := range m.entries {
		if namespace != "" && e.record.Namespace != namespace {
			continue
		}
		if errorType != "" && e.record.ErrorType != errorType {
			continue
		}
		scored = append(scored, Scored{Record: e.record, Score: sharedmath.CosineSimilarity(embedding, e.embedding)})
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if k > 0 && len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

func (m *MemoryIndex) Close() error { return nil }
