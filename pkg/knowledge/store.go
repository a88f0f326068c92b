// Package knowledge implements spec §4.5's Knowledge Agent: record,
// similar, and proactive_scan over a vector index, with topic
// assignment and a bounded hot buffer of recent records kept alongside
// the index (Similar always queries the index itself).
package knowledge

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/recist-project/recist/internal/config"
	"github.com/recist-project/recist/pkg/bus"
	"github.com/recist-project/recist/pkg/containment"
	"github.com/recist-project/recist/pkg/domain"
	"github.com/recist-project/recist/pkg/knowledge/vector"
	sharedmath "github.com/recist-project/recist/pkg/shared/math"
)

const (
	defaultMaxLocalEvents = 100
	defaultKnowledgeTTL   = 90 * 24 * time.Hour
)

// hotEntry is one hot-buffer slot: an LRU entry carrying its own TTL
// deadline. container/list backs the LRU ordering; the corpus has no
// third-party LRU cache library, so this is hand-rolled (see
// DESIGN.md).
type hotEntry struct {
	record  domain.KnowledgeRecord
	expires time.Time
}

// Store is the Knowledge Agent.
type Store struct {
	mu          sync.Mutex
	index       vector.Index
	embeddings  vector.EmbeddingService
	topics      *TopicIndex
	hotBuffer   *list.List
	hotElements map[string]*list.Element
	maxEvents   int
	ttl         time.Duration
	log         logr.Logger
}

func NewStore(index vector.Index, embeddings vector.EmbeddingService, cfg config.OrchestrationConfig, log logr.Logger) *Store {
	maxEvents := defaultMaxLocalEvents
	ttl := defaultKnowledgeTTL
	return &Store{
		index:       index,
		embeddings:  embeddings,
		topics:      NewTopicIndex(cfg.TopicSimilarity),
		hotBuffer:   list.New(),
		hotElements: make(map[string]*list.Element),
		maxEvents:   maxEvents,
		ttl:         ttl,
		log:         log,
	}
}

// Record embeds incident's canonical summary, appends it to the vector
// index, assigns it to a topic, and appends it to the hot buffer
// (spec §4.5 "record").
func (s *Store) Record(ctx context.Context, incident domain.Incident) (string, error) {
	var diagnosis domain.Diagnosis
	if incident.Diagnosis != nil {
		diagnosis = *incident.Diagnosis
	}
	var outcome domain.Outcome
	if incident.Outcome != nil {
		outcome = *incident.Outcome
	}
	var plan domain.Plan
	if len(incident.AppliedActions) > 0 {
		for _, applied := range incident.AppliedActions {
			plan.Actions = append(plan.Actions, applied.Action)
		}
	}

	summary := canonicalSummary(incident, diagnosis, outcome)
	embedding, err := s.embeddings.GenerateTextEmbedding(ctx, summary)
	if err != nil {
		return "", err
	}

	record := domain.KnowledgeRecord{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Namespace: incident.Namespace,
		Target:    incident.Target,
		ErrorType: incident.TriggerReason,
		Diagnosis: diagnosis,
		Plan:      plan,
		Outcome:   outcome,
		Embedding: embedding,
	}

	if err := s.index.Insert(ctx, record); err != nil {
		return "", err
	}
	s.topics.Assign(record)
	s.pushHotBuffer(record)

	return record.ID, nil
}

func canonicalSummary(incident domain.Incident, diagnosis domain.Diagnosis, outcome domain.Outcome) string {
	return fmt.Sprintf("%s %s/%s root_cause=%s success=%v", incident.TriggerReason, incident.Namespace, incident.Target, diagnosis.RootCause, outcome.Success)
}

func (s *Store) pushHotBuffer(record domain.KnowledgeRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem := s.hotBuffer.PushFront(hotEntry{record: record, expires: time.Now().Add(s.ttl)})
	s.hotElements[record.ID] = elem

	for s.hotBuffer.Len() > s.maxEvents {
		oldest := s.hotBuffer.Back()
		if oldest == nil {
			break
		}
		s.hotBuffer.Remove(oldest)
		delete(s.hotElements, oldest.Value.(hotEntry).record.ID)
	}
}

// Similar implements spec §4.5's "similar" operation: cosine similarity
// over the vector index with optional namespace/error_type filters,
// applied before scoring.
func (s *Store) Similar(ctx context.Context, queryText string, k int, filter domain.FaultKind) ([]domain.KnowledgeRecord, error) {
	return s.SimilarInNamespace(ctx, queryText, k, "", filter)
}

func (s *Store) SimilarInNamespace(ctx context.Context, queryText string, k int, namespace string, filter domain.FaultKind) ([]domain.KnowledgeRecord, error) {
	embedding, err := s.embeddings.GenerateTextEmbedding(ctx, queryText)
	if err != nil {
		return nil, err
	}
	scored, err := s.index.Similar(ctx, embedding, k, namespace, filter)
	if err != nil {
		return nil, err
	}
	out := make([]domain.KnowledgeRecord, len(scored))
	for i, sc := range scored {
		out[i] = sc.Record
	}
	return out, nil
}

// TrendReading is one namespace/target's short-horizon metric trend,
// the input to ProactiveScan (spec §4.5 "proactive_scan").
type TrendReading struct {
	Namespace   string
	Target      string
	TrendSummary string
	Embedding   []float64
}

// ProactiveAdvisory is published on bus.EventProactiveAdvisory.
type ProactiveAdvisory struct {
	Target        string
	SuggestedPlan domain.Plan
}

// ProactiveScan compares each reading's trend embedding against known
// precursor embeddings (the diagnosis embeddings of past incidents
// whose plan succeeded) and emits an advisory for any that clears the
// similarity threshold, without applying any action.
func (s *Store) ProactiveScan(ctx context.Context, readings []TrendReading, threshold float64, eventBus bus.Bus) {
	for _, reading := range readings {
		records, err := s.SimilarInNamespace(ctx, reading.TrendSummary, 1, reading.Namespace, "")
		if err != nil || len(records) == 0 {
			continue
		}
		best := records[0]
		if !best.Outcome.Success {
			continue
		}
		if sharedmath.CosineSimilarity(reading.Embedding, best.Embedding) < threshold {
			continue
		}
		eventBus.Publish(bus.Event{
			Type:    bus.EventProactiveAdvisory,
			Payload: ProactiveAdvisory{Target: reading.Target, SuggestedPlan: best.Plan},
		})
	}
}

// GatherTrendReadings adapts the Containment Agent's live samples into
// the TrendReadings ProactiveScan compares against known precursors,
// embedding each target's short trend summary the same way Record
// embeds an incident's canonical summary.
func (s *Store) GatherTrendReadings(ctx context.Context, readings []containment.TargetReading) ([]TrendReading, error) {
	out := make([]TrendReading, 0, len(readings))
	for _, r := range readings {
		summary := trendSummary(r)
		embedding, err := s.embeddings.GenerateTextEmbedding(ctx, summary)
		if err != nil {
			return nil, err
		}
		out = append(out, TrendReading{
			Namespace:    r.Namespace,
			Target:       r.TargetID,
			TrendSummary: summary,
			Embedding:    embedding,
		})
	}
	return out, nil
}

func trendSummary(r containment.TargetReading) string {
	return fmt.Sprintf("cpu=%.2f memory=%.2f latency_ms=%.0f error_rate=%.3f crash_loop=%t oom_killed=%t",
		r.CPU, r.Memory, r.LatencyMs, r.ErrorRate, r.CrashLoop, r.OOMKilled)
}
