// Package executor applies the Action variant's cluster mutations
// idempotently and computes the compensate descriptor for each dispatch,
// so the MetaCognitive Agent can roll a Plan back by replaying
// compensates in reverse (spec §4.4, §8).
package executor

import (
	"context"
	"fmt"
	"sync"

	"github.com/recist-project/recist/pkg/domain"
)

// ActionHandler applies one Action and returns any error from the
// underlying mutation.
type ActionHandler func(ctx context.Context, action domain.Action) error

// ActionRegistry maps an ActionKind to the handler that applies it.
// Safe for concurrent registration, lookup, and execution.
type ActionRegistry struct {
	mu       sync.RWMutex
	handlers map[domain.ActionKind]ActionHandler
}

func NewActionRegistry() *ActionRegistry {
	return &ActionRegistry{handlers: make(map[domain.ActionKind]ActionHandler)}
}

func (r *ActionRegistry) Register(kind domain.ActionKind, handler ActionHandler) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[kind]; exists {
		return fmt.Errorf("action %s already registered", kind)
	}
	r.handlers[kind] = handler
	return nil
}

func (r *ActionRegistry) Unregister(kind domain.ActionKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, kind)
}

func (r *ActionRegistry) Execute(ctx context.Context, action domain.Action) error {
	r.mu.RLock()
	handler, ok := r.handlers[action.Kind]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown action: %s", action.Kind)
	}
	return handler(ctx, action)
}

func (r *ActionRegistry) IsRegistered(kind domain.ActionKind) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[kind]
	return ok
}

func (r *ActionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}

func (r *ActionRegistry) RegisteredActions() []domain.ActionKind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]domain.ActionKind, 0, len(r.handlers))
	for k := range r.handlers {
		kinds = append(kinds, k)
	}
	return kinds
}
