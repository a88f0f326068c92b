package containment

import (
	"context"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/recist-project/recist/internal/config"
	"github.com/recist-project/recist/pkg/bus"
	"github.com/recist-project/recist/pkg/domain"
)

// FaultDetected is the payload published on bus.EventFaultDetected.
type FaultDetected struct {
	IncidentSeed  domain.FaultRecord
	IsolationMode domain.IsolationMode
	Degraded      bool
}

// FaultCleared is the payload published on bus.EventFaultCleared.
type FaultCleared struct {
	Target string
	Kind   domain.FaultKind
}

// ReadingSource supplies the current reading for every in-scope target,
// filtered by the policy's namespace set and label selectors (spec §4.2
// step 1). Implementations typically wrap telemetry.Adapters.
type ReadingSource interface {
	CurrentReadings(ctx context.Context) ([]TargetReading, error)
}

// Agent runs the periodic scan loop described in spec §4.2.
type Agent struct {
	readings  ReadingSource
	isolation *IsolationRegistry
	router    NeighborRouter
	bus       bus.Bus
	profile   config.ThresholdConfig
	interval  time.Duration
	log       logr.Logger

	mu     sync.RWMutex
	faults domain.FaultSet
}

// NewAgent wires router as the step 5 handler: it may be nil, in which
// case the neighbor-preference step is skipped entirely (e.g. replay
// mode, where there is no live Service to repoint).
func NewAgent(readings ReadingSource, isolation *IsolationRegistry, router NeighborRouter, eventBus bus.Bus, profile config.ThresholdConfig, interval time.Duration, log logr.Logger) *Agent {
	return &Agent{
		readings:  readings,
		isolation: isolation,
		router:    router,
		bus:       eventBus,
		profile:   profile,
		interval:  interval,
		log:       log,
		faults:    make(domain.FaultSet),
	}
}

// Run loops until ctx is cancelled, scanning every interval. Each
// scan's own work is bounded by ctx but never by the interval itself,
// so a slow telemetry backend delays rather than skips a cycle.
func (a *Agent) Run(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.scan(ctx)
		}
	}
}

func (a *Agent) scan(ctx context.Context) {
	readings, err := a.readings.CurrentReadings(ctx)
	if err != nil {
		a.log.Error(err, "failed to gather readings for this detection cycle")
		return
	}

	next := make(domain.FaultSet)
	byTarget := make(map[string]TargetReading, len(readings))
	now := time.Now().UTC()
	for _, reading := range readings {
		byTarget[reading.TargetID] = reading
		for _, f := range EvaluateThresholds(now, reading, a.profile) {
			next[f.Key()] = f
		}
	}

	a.mu.Lock()
	entered, exited := a.faults.Diff(next)
	a.faults = next
	a.mu.Unlock()

	for _, fault := range entered {
		a.handleEntrant(ctx, fault, byTarget[fault.TargetID], byTarget)
	}
	for _, fault := range exited {
		a.bus.Publish(bus.Event{Type: bus.EventFaultCleared, Payload: FaultCleared{Target: fault.TargetID, Kind: fault.Kind}})
	}
}

func (a *Agent) handleEntrant(ctx context.Context, fault domain.FaultRecord, reading TargetReading, byTarget map[string]TargetReading) {
	mode := SelectIsolationMode(reading)
	degraded := false
	if _, err := a.isolation.Apply(ctx, fault.Namespace, fault.TargetID, mode); err != nil {
		// Spec §4.2: a failed isolation mutation degrades to Soft and is
		// annotated on the incident, but never blocks FaultDetected.
		a.log.Error(err, "isolation mutation failed, degrading to soft", "target", fault.TargetID)
		mode = domain.IsolationSoft
		degraded = true
	}

	a.preferHealthyNeighbors(ctx, fault, reading, byTarget)

	a.bus.Publish(bus.Event{
		Type:    bus.EventFaultDetected,
		Payload: FaultDetected{IncidentSeed: fault, IsolationMode: mode, Degraded: degraded},
	})
}

// preferHealthyNeighbors implements spec §4.2 step 5: every other
// reading sharing fault's ServiceGroup is a candidate to absorb an
// equal share of the faulted target's diverted load; candidates with
// enough headroom (EligibleNeighbor) get their routing preference
// stamped via router. A nil router, or a reading with no ServiceGroup,
// makes this a no-op, not an error.
func (a *Agent) preferHealthyNeighbors(ctx context.Context, fault domain.FaultRecord, reading TargetReading, byTarget map[string]TargetReading) {
	if a.router == nil || reading.ServiceGroup == "" {
		return
	}

	var candidates []TargetReading
	for id, r := range byTarget {
		if id == fault.TargetID || r.ServiceGroup != reading.ServiceGroup {
			continue
		}
		candidates = append(candidates, r)
	}
	if len(candidates) == 0 {
		return
	}

	requestedShare := 1.0 / float64(len(candidates))
	for _, neighbor := range candidates {
		if !EligibleNeighbor(neighbor.CPUHeadroom, requestedShare) {
			continue
		}
		if err := a.router.PreferNeighbor(ctx, neighbor.Namespace, neighbor.TargetID); err != nil {
			a.log.Error(err, "failed to update neighbor routing preference", "neighbor", neighbor.TargetID, "group", reading.ServiceGroup)
		}
	}
}

// FaultsFor satisfies metacognitive.FaultSetProbe: it re-queries the
// last scanned fault set for target's entries, used during plan
// verification (spec §4.4) rather than running an out-of-band scan.
func (a *Agent) FaultsFor(ctx context.Context, target string) (domain.FaultSet, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make(domain.FaultSet)
	for key, record := range a.faults {
		if key.TargetID == target {
			out[key] = record
		}
	}
	return out, nil
}
