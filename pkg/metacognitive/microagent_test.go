package metacognitive

import (
	"context"
	"testing"
	"time"

	"github.com/recist-project/recist/pkg/domain"
)

type fakeModel struct {
	responses []string
	calls     int
	err       error
}

func (f *fakeModel) Complete(ctx context.Context, prompt string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	r := f.responses[f.calls%len(f.responses)]
	f.calls++
	return r, nil
}

func TestRunMicroAgentStopsAtTargetConfidence(t *testing.T) {
	model := &fakeModel{responses: []string{`{"success_probability": 0.95, "risk": "low", "duration_estimate": "1m"}`}}
	candidate := Candidate{Plan: domain.Plan{CandidateID: "c1", ExpectedOutcome: domain.ExpectedOutcomePredicate{FaultKind: domain.FaultHighCPU}}}

	result := runMicroAgent(context.Background(), model, candidate, 0.5, 0.8, 10, time.Second)

	if result.Confidence < 0.8 {
		t.Errorf("confidence = %v, want >= 0.8", result.Confidence)
	}
	if model.calls == 0 || model.calls >= 10 {
		t.Errorf("calls = %d, want a small number well under max_depth", model.calls)
	}
}

func TestRunMicroAgentStopsAtMaxDepth(t *testing.T) {
	model := &fakeModel{responses: []string{`{"success_probability": 0.5, "risk": "medium", "duration_estimate": "1m"}`}}
	candidate := Candidate{Plan: domain.Plan{CandidateID: "c1"}}

	result := runMicroAgent(context.Background(), model, candidate, 0.4, 0.99, 3, time.Second)

	if model.calls != 3 {
		t.Errorf("calls = %d, want exactly max_depth=3", model.calls)
	}
	if result.Confidence < 0.4 {
		t.Errorf("confidence should never decrease below the prior: got %v", result.Confidence)
	}
}

func TestRunMicroAgentConfidenceNeverDecreases(t *testing.T) {
	model := &fakeModel{responses: []string{`{"success_probability": 0.1, "risk": "high", "duration_estimate": "1m"}`}}
	candidate := Candidate{Plan: domain.Plan{CandidateID: "c1"}}

	result := runMicroAgent(context.Background(), model, candidate, 0.6, 0.99, 2, time.Second)

	if result.Confidence < 0.6 {
		t.Errorf("confidence = %v, a weak answer must never lower it below the prior 0.6", result.Confidence)
	}
}
