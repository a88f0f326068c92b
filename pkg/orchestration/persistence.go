package orchestration

import (
	"context"
	"sync"

	"github.com/recist-project/recist/internal/errors"
	"github.com/recist-project/recist/pkg/domain"
)

// Store persists Incident state transitions. CRD-backed production
// deployments satisfy this by patching HealingEvent.status (see
// internal/controller); tests and the replay CLI use InMemoryStore.
type Store interface {
	Save(ctx context.Context, incident domain.Incident) error
	Get(ctx context.Context, id string) (domain.Incident, error)
	ActiveByTarget(ctx context.Context, target string) (domain.Incident, bool, error)
	ListActive(ctx context.Context) ([]domain.Incident, error)
}

// InMemoryStore is a process-local Store.
type InMemoryStore struct {
	mu        sync.RWMutex
	incidents map[string]domain.Incident
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{incidents: make(map[string]domain.Incident)}
}

func (s *InMemoryStore) Save(ctx context.Context, incident domain.Incident) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.incidents[incident.ID] = incident
	return nil
}

func (s *InMemoryStore) Get(ctx context.Context, id string) (domain.Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	incident, ok := s.incidents[id]
	if !ok {
		return domain.Incident{}, errors.New(errors.ErrorTypeNotFound, "incident not found: "+id)
	}
	return incident, nil
}

// ActiveByTarget implements the "at most one non-terminal Incident per
// target_id" invariant's lookup half (spec §3).
func (s *InMemoryStore) ActiveByTarget(ctx context.Context, target string) (domain.Incident, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, incident := range s.incidents {
		if incident.Target == target && !incident.Phase.Terminal() {
			return incident, true, nil
		}
	}
	return domain.Incident{}, false, nil
}

func (s *InMemoryStore) ListActive(ctx context.Context) ([]domain.Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var active []domain.Incident
	for _, incident := range s.incidents {
		if !incident.Phase.Terminal() {
			active = append(active, incident)
		}
	}
	return active, nil
}
