package containment

import (
	"time"

	"github.com/recist-project/recist/internal/config"
	"github.com/recist-project/recist/pkg/domain"
)

// TargetReading is one target's latest sample readings, the input
// EvaluateThresholds turns into the set of fault kinds currently firing
// (spec §4.2 step 2). crashLoop and
// oomKilled are driven by event observations rather than threshold
// config, so they are passed in directly.
type TargetReading struct {
	TargetID      string
	Namespace     string
	CPU           float64
	Memory        float64
	LatencyMs     float64
	ErrorRate     float64
	CrashLoop     bool
	OOMKilled     bool
	CPUHeadroom   float64
	ServiceGroup  string
}

// EvaluateThresholds returns the FaultRecords this reading triggers
// against profile, each severity-scored as the ratio of observed to
// threshold (capped at 1.0).
func EvaluateThresholds(now time.Time, reading TargetReading, profile config.ThresholdConfig) []domain.FaultRecord {
	var faults []domain.FaultRecord
	add := func(kind domain.FaultKind, severity float64) {
		faults = append(faults, domain.FaultRecord{
			TargetID:      reading.TargetID,
			Namespace:     reading.Namespace,
			Kind:          kind,
			FirstObserved: now,
			LastObserved:  now,
			Severity:      capSeverity(severity),
		})
	}

	if profile.CPU > 0 && reading.CPU > profile.CPU {
		add(domain.FaultHighCPU, reading.CPU/profile.CPU)
	}
	if profile.Memory > 0 && reading.Memory > profile.Memory {
		add(domain.FaultHighMemory, reading.Memory/profile.Memory)
	}
	if profile.LatencyMs > 0 && reading.LatencyMs > profile.LatencyMs {
		add(domain.FaultHighLatency, reading.LatencyMs/profile.LatencyMs)
	}
	if profile.ErrorRate > 0 && reading.ErrorRate > profile.ErrorRate {
		add(domain.FaultHighErrorRate, reading.ErrorRate/profile.ErrorRate)
	}
	if reading.CrashLoop {
		add(domain.FaultCrashLoop, 1.0)
	}
	if reading.OOMKilled {
		add(domain.FaultOOMKilled, 1.0)
	}
	return faults
}

func capSeverity(s float64) float64 {
	if s > 1.0 {
		return 1.0
	}
	return s
}

// SelectIsolationMode implements spec §4.2 step 4: Hard if observed
// error_rate exceeds 0.5 or the fault is a crash loop, Soft otherwise.
func SelectIsolationMode(reading TargetReading) domain.IsolationMode {
	if reading.ErrorRate > 0.5 || reading.CrashLoop {
		return domain.IsolationHard
	}
	return domain.IsolationSoft
}

// EligibleNeighbor implements spec §4.2 step 5's capacity check: a
// neighbor is eligible to absorb requestedShare of diverted load iff its
// headroom exceeds the share after a 20% safety margin is applied.
func EligibleNeighbor(neighborHeadroom, requestedShare float64) bool {
	return neighborHeadroom >= requestedShare*1.2
}
