package knowledge

import (
	"fmt"
	"sync"

	"github.com/recist-project/recist/pkg/domain"
	sharedmath "github.com/recist-project/recist/pkg/shared/math"
)

// topicSimilarityDefault is spec §4.5's default topic_similarity.
const topicSimilarityDefault = 0.8

// TopicIndex assigns KnowledgeRecords to Topics by cosine similarity
// to each topic's centroid, recomputing the centroid as the mean of
// member embeddings on every insertion (spec §4.5 "Topic assignment").
type TopicIndex struct {
	mu              sync.Mutex
	threshold       float64
	topics          map[string]*domain.Topic
	memberEmbeddings map[string][][]float64 // topicID -> every member's embedding, for centroid recompute
	nextID          int
}

func NewTopicIndex(threshold float64) *TopicIndex {
	if threshold <= 0 {
		threshold = topicSimilarityDefault
	}
	return &TopicIndex{
		threshold:        threshold,
		topics:           make(map[string]*domain.Topic),
		memberEmbeddings: make(map[string][][]float64),
	}
}

// Assign finds the best-matching topic for record's embedding and
// appends it, or creates a new topic if no existing centroid clears
// the similarity threshold.
func (t *TopicIndex) Assign(record domain.KnowledgeRecord) *domain.Topic {
	t.mu.Lock()
	defer t.mu.Unlock()

	var best *domain.Topic
	bestScore := -1.0
	for _, topic := range t.topics {
		score := sharedmath.CosineSimilarity(record.Embedding, topic.Centroid)
		if score > bestScore {
			bestScore = score
			best = topic
		}
	}

	if best != nil && bestScore >= t.threshold {
		best.MemberIDs = append(best.MemberIDs, record.ID)
		t.memberEmbeddings[best.ID] = append(t.memberEmbeddings[best.ID], record.Embedding)
		best.Centroid = sharedmath.MeanVector(t.memberEmbeddings[best.ID])
		return best
	}

	t.nextID++
	topic := &domain.Topic{
		ID:        fmt.Sprintf("topic-%d", t.nextID),
		AutoLabel: autoLabel(record),
		Centroid:  append([]float64(nil), record.Embedding...),
		MemberIDs: []string{record.ID},
	}
	t.topics[topic.ID] = topic
	t.memberEmbeddings[topic.ID] = [][]float64{record.Embedding}
	return topic
}

// Topics returns a snapshot of every topic currently tracked.
func (t *TopicIndex) Topics() []domain.Topic {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]domain.Topic, 0, len(t.topics))
	for _, topic := range t.topics {
		out = append(out, *topic)
	}
	return out
}

func autoLabel(record domain.KnowledgeRecord) string {
	if record.Diagnosis.RootCause != "" {
		return fmt.Sprintf("%s: %s", record.ErrorType, record.Diagnosis.RootCause)
	}
	return string(record.ErrorType)
}
