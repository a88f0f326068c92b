// Package containment is the fault detector and isolator (spec §4.2):
// it owns threshold evaluation against the live fault set, isolation
// mode selection, and the single-writer isolation registry.
package containment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/recist-project/recist/pkg/domain"
)

// IsolationApplier installs or removes the cluster-level effect of an
// isolation mode. Soft isolation removes a target from load-balancing
// endpoints; Hard additionally installs a deny-all NetworkPolicy.
type IsolationApplier interface {
	ApplyHard(ctx context.Context, namespace, target string) error
	ApplySoft(ctx context.Context, namespace, target string) error
	Remove(ctx context.Context, namespace, target string) error
}

// IsolationRegistry is the target_id → descriptor map described in
// spec §5: written only by the Containment Agent and the Orchestrator's
// rollback path, serialized behind a single mutex so concurrent
// detection cycles never race on the same target.
type IsolationRegistry struct {
	mu      sync.Mutex
	applier IsolationApplier
	entries map[string]domain.IsolationDescriptor
}

func NewIsolationRegistry(applier IsolationApplier) *IsolationRegistry {
	return &IsolationRegistry{applier: applier, entries: make(map[string]domain.IsolationDescriptor)}
}

// Apply installs mode for target idempotently: if a descriptor with the
// same target and mode is already present, this is a no-op (spec §4.2
// step 4). On applier failure, the caller is responsible for degrading
// to Soft and annotating the incident (spec §4.2's failure contract);
// Apply itself just reports the error.
func (r *IsolationRegistry) Apply(ctx context.Context, namespace, target string, mode domain.IsolationMode) (domain.IsolationDescriptor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.entries[target]; ok && existing.Mode == mode {
		return existing, nil
	}

	var err error
	switch mode {
	case domain.IsolationHard:
		err = r.applier.ApplyHard(ctx, namespace, target)
	default:
		err = r.applier.ApplySoft(ctx, namespace, target)
	}
	if err != nil {
		return domain.IsolationDescriptor{}, fmt.Errorf("failed to apply %s isolation to %s: %w", mode, target, err)
	}

	descriptor := domain.IsolationDescriptor{
		TargetID:    target,
		Namespace:   namespace,
		Mode:        mode,
		AppliedAt:   time.Now().UTC(),
		RevertToken: uuid.NewString(),
	}
	r.entries[target] = descriptor
	return descriptor, nil
}

func (r *IsolationRegistry) Remove(ctx context.Context, namespace, target string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[target]; !ok {
		return nil
	}
	if err := r.applier.Remove(ctx, namespace, target); err != nil {
		return fmt.Errorf("failed to remove isolation from %s: %w", target, err)
	}
	delete(r.entries, target)
	return nil
}

func (r *IsolationRegistry) Get(target string) (domain.IsolationDescriptor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.entries[target]
	return d, ok
}

// Stale returns descriptors applied more than ttl ago, for the
// stale-isolation cleanup sweep (SPEC_FULL.md supplemented feature:
// an incident that failed with DiagnosisInconclusive leaves isolation
// in place indefinitely per spec §8 scenario 3 unless something reaps it).
func (r *IsolationRegistry) Stale(ttl time.Duration) []domain.IsolationDescriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := time.Now().UTC().Add(-ttl)
	var stale []domain.IsolationDescriptor
	for _, d := range r.entries {
		if d.AppliedAt.Before(cutoff) {
			stale = append(stale, d)
		}
	}
	return stale
}
