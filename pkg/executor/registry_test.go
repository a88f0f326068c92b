package executor

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/recist-project/recist/pkg/domain"
)

func noopHandler(ctx context.Context, action domain.Action) error { return nil }

func TestNewActionRegistry(t *testing.T) {
	registry := NewActionRegistry()
	if registry.Count() != 0 {
		t.Fatalf("Count() = %d, want 0", registry.Count())
	}
}

func TestActionRegistryRegister(t *testing.T) {
	registry := NewActionRegistry()

	if err := registry.Register(domain.ActionRestart, noopHandler); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if registry.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", registry.Count())
	}
	if !registry.IsRegistered(domain.ActionRestart) {
		t.Fatal("expected ActionRestart to be registered")
	}

	err := registry.Register(domain.ActionRestart, noopHandler)
	if err == nil {
		t.Fatal("expected error registering a duplicate action")
	}
	if got := err.Error(); !contains(got, "already registered") {
		t.Errorf("error = %q, want to contain %q", got, "already registered")
	}
}

func TestActionRegistryUnregister(t *testing.T) {
	registry := NewActionRegistry()
	registry.Register(domain.ActionRestart, noopHandler)
	registry.Unregister(domain.ActionRestart)

	if registry.Count() != 0 {
		t.Fatalf("Count() = %d, want 0 after unregister", registry.Count())
	}
	// Unregistering something absent must not panic.
	registry.Unregister(domain.ActionScaleHorizontal)
}

func TestActionRegistryExecute(t *testing.T) {
	registry := NewActionRegistry()
	executed := false
	registry.Register(domain.ActionRestart, func(ctx context.Context, action domain.Action) error {
		executed = true
		return nil
	})

	err := registry.Execute(context.Background(), domain.Action{Kind: domain.ActionRestart, Target: "pod-a"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !executed {
		t.Fatal("expected handler to run")
	}
}

func TestActionRegistryExecuteUnknownAction(t *testing.T) {
	registry := NewActionRegistry()
	err := registry.Execute(context.Background(), domain.Action{Kind: domain.ActionKind("bogus")})
	if err == nil || !contains(err.Error(), "unknown action") {
		t.Fatalf("Execute() error = %v, want unknown action", err)
	}
}

func TestActionRegistryExecuteHandlerError(t *testing.T) {
	registry := NewActionRegistry()
	want := errors.New("handler error")
	registry.Register(domain.ActionRestart, func(ctx context.Context, action domain.Action) error { return want })

	err := registry.Execute(context.Background(), domain.Action{Kind: domain.ActionRestart})
	if !errors.Is(err, want) {
		t.Fatalf("Execute() error = %v, want %v", err, want)
	}
}

func TestActionRegistryConcurrentAccess(t *testing.T) {
	registry := NewActionRegistry()
	done := make(chan bool)

	go func() {
		for i := 0; i < 10; i++ {
			registry.Register(domain.ActionKind(fmt.Sprintf("action%d", i)), noopHandler)
		}
		done <- true
	}()
	go func() {
		for i := 0; i < 10; i++ {
			registry.RegisteredActions()
			registry.Count()
		}
		done <- true
	}()
	<-done
	<-done

	if registry.Count() != 10 {
		t.Fatalf("Count() = %d, want 10", registry.Count())
	}
}

func contains(s, substr string) bool {
	return len(s) >= len(substr) && (func() bool {
		for i := 0; i+len(substr) <= len(s); i++ {
			if s[i:i+len(substr)] == substr {
				return true
			}
		}
		return false
	})()
}
