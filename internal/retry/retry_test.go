package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	recisterrors "github.com/recist-project/recist/internal/errors"
)

func TestDoRetriesTransientErrorsUntilSuccess(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), Schedule{Base: time.Millisecond, MaxRetries: 5}, func(context.Context) error {
		attempts++
		if attempts < 3 {
			return recisterrors.NewBackendUnavailableError("metrics", errors.New("connection refused"))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v, want nil", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestDoDoesNotRetryNonTransientErrors(t *testing.T) {
	attempts := 0
	wantErr := recisterrors.NewValidationError("bad selector")
	err := Do(context.Background(), Schedule{Base: time.Millisecond, MaxRetries: 5}, func(context.Context) error {
		attempts++
		return wantErr
	})
	if err != wantErr {
		t.Fatalf("Do() error = %v, want %v", err, wantErr)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (no retry on non-transient error)", attempts)
	}
}

func TestDoGivesUpAfterMaxRetries(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), Schedule{Base: time.Millisecond, MaxRetries: 2}, func(context.Context) error {
		attempts++
		return recisterrors.NewBackendTimeoutError("metrics", errors.New("slow"))
	})
	if err == nil {
		t.Fatal("Do() error = nil, want an error after exhausting retries")
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3 (1 initial + 2 retries)", attempts)
	}
}
