package telemetry

import (
	"testing"
	"time"

	"github.com/recist-project/recist/pkg/domain"
)

func TestNormalizeLogsCollapsesRepeatsWithin500ms(t *testing.T) {
	base := time.Now().UTC()
	entries := []domain.LogEntry{
		{Timestamp: base, Message: "connection refused", Source: "api"},
		{Timestamp: base.Add(100 * time.Millisecond), Message: "connection refused", Source: "api"},
		{Timestamp: base.Add(200 * time.Millisecond), Message: "connection refused", Source: "api"},
		{Timestamp: base.Add(900 * time.Millisecond), Message: "connection refused", Source: "api"},
	}

	collapsed := normalizeLogs(entries)

	if len(collapsed) != 2 {
		t.Fatalf("len(collapsed) = %d, want 2 (first 3 collapse, 4th starts fresh)", len(collapsed))
	}
	if collapsed[0].RepeatCount != 3 {
		t.Errorf("RepeatCount = %d, want 3", collapsed[0].RepeatCount)
	}
}

func TestNormalizeLogsLeavesDistinctMessagesAlone(t *testing.T) {
	base := time.Now().UTC()
	entries := []domain.LogEntry{
		{Timestamp: base, Message: "a", Source: "api"},
		{Timestamp: base.Add(10 * time.Millisecond), Message: "b", Source: "api"},
	}
	collapsed := normalizeLogs(entries)
	if len(collapsed) != 2 {
		t.Fatalf("len(collapsed) = %d, want 2", len(collapsed))
	}
}

func TestParseLogLineDetectsLevel(t *testing.T) {
	e := parseLogLine(time.Now(), map[string]string{"app": "checkout"}, "ERROR database connection lost")
	if e.Level != domain.LogLevelError {
		t.Errorf("Level = %s, want ERROR", e.Level)
	}
	if e.Source != "checkout" {
		t.Errorf("Source = %s, want checkout", e.Source)
	}
}
