// Package domain holds the data model shared by every agent: fault
// records, the causal subgraph, diagnoses, plans, actions, and the
// Incident aggregate root. Nothing here talks to Kubernetes, a language
// model, or a database; it is pure value types plus the small amount of
// behavior (diffing, DAG insertion) that is data-shape-dependent only.
package domain

import "time"

// FaultKind enumerates the trigger reasons a HealingEvent can carry.
type FaultKind string

const (
	FaultHighCPU       FaultKind = "HighCpu"
	FaultHighMemory    FaultKind = "HighMemory"
	FaultHighLatency   FaultKind = "HighLatency"
	FaultHighErrorRate FaultKind = "HighErrorRate"
	FaultCrashLoop     FaultKind = "CrashLoop"
	FaultOOMKilled     FaultKind = "OOMKilled"
)

// FaultRecord is uniquely keyed by (TargetID, Kind).
type FaultRecord struct {
	TargetID      string
	Namespace     string
	Kind          FaultKind
	FirstObserved time.Time
	LastObserved  time.Time
	Severity      float64
}

func (f FaultRecord) Key() FaultKey {
	return FaultKey{TargetID: f.TargetID, Kind: f.Kind}
}

type FaultKey struct {
	TargetID string
	Kind     FaultKind
}

// FaultSet is the set of currently active fault records for a detection
// cycle, keyed for O(1) diffing.
type FaultSet map[FaultKey]FaultRecord

// Diff computes entrants (in next but not in f) and exits (in f but not
// in next), per spec §4.2 step 3.
func (f FaultSet) Diff(next FaultSet) (entered, exited []FaultRecord) {
	for k, v := range next {
		if _, ok := f[k]; !ok {
			entered = append(entered, v)
		}
	}
	for k, v := range f {
		if _, ok := next[k]; !ok {
			exited = append(exited, v)
		}
	}
	return entered, exited
}

// IsolationMode is the severity of traffic isolation applied to a target.
type IsolationMode string

const (
	IsolationSoft IsolationMode = "Soft"
	IsolationHard IsolationMode = "Hard"
)

// IsolationDescriptor records what containment applied to a target so it
// can be identified, re-applied idempotently, or removed.
type IsolationDescriptor struct {
	TargetID    string
	Namespace   string
	Mode        IsolationMode
	AppliedAt   time.Time
	RevertToken string
}

// LogLevel mirrors the normalized levels Telemetry Adapters parse out of
// raw log lines (spec §4.1).
type LogLevel string

const (
	LogLevelError LogLevel = "ERROR"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelDebug LogLevel = "DEBUG"
	LogLevelTrace LogLevel = "TRACE"
)

type LogEntry struct {
	Timestamp    time.Time
	Level        LogLevel
	Source       string
	Message      string
	Fields       map[string]string
	RepeatCount  int
}

// Sample is a single (timestamp, value) point for a named metric series.
type Sample struct {
	Timestamp time.Time
	Value     float64
}

// MetricSeries is one labeled time series returned by a PromQL query.
type MetricSeries struct {
	Name   string
	Labels map[string]string
	Points []Sample
}

type ClusterEvent struct {
	Timestamp time.Time
	Reason    string
	Object    string
	Namespace string
	Message   string
}

// TelemetrySlice is the correlated evidence window the Diagnosis Agent
// assembles for one incident (spec §3).
type TelemetrySlice struct {
	WindowStart time.Time
	WindowEnd   time.Time
	Logs        []LogEntry
	Metrics     []MetricSeries
	Events      []ClusterEvent
}

// Diagnosis is immutable once emitted (spec §3).
type Diagnosis struct {
	Hypothesis  string
	Confidence  float64
	RootCause   string
	Evidence    []LogEntry
	GeneratedAt time.Time
}

// ActionKind tags the Action variant (spec §3).
type ActionKind string

const (
	ActionRestart            ActionKind = "Restart"
	ActionScaleHorizontal    ActionKind = "ScaleHorizontal"
	ActionScaleVertical      ActionKind = "ScaleVertical"
	ActionPatchConfig        ActionKind = "PatchConfig"
	ActionRemoveIsolation    ActionKind = "RemoveIsolation"
)

// RiskClass orders actions from least to most disruptive for the
// MetaCognitive Agent's tie-break rule (spec §4.4). Lower is safer.
type RiskClass int

const (
	RiskRestart           RiskClass = 0
	RiskHorizontalScale   RiskClass = 1
	RiskPatchConfig       RiskClass = 2
	RiskVerticalScale     RiskClass = 3
	RiskDependencyRestart RiskClass = 4
)

func (k ActionKind) RiskClass() RiskClass {
	switch k {
	case ActionRestart:
		return RiskRestart
	case ActionScaleHorizontal:
		return RiskHorizontalScale
	case ActionPatchConfig:
		return RiskPatchConfig
	case ActionScaleVertical:
		return RiskVerticalScale
	default:
		return RiskDependencyRestart
	}
}

// CompensateDescriptor is the rollback recipe captured at dispatch time
// for an Action, per spec §3/§4.4.
type CompensateDescriptor struct {
	Kind   ActionKind
	Params map[string]string
}

// Action is the tagged variant over cluster mutations (spec §3). Params
// holds the kind-specific payload; see the executor package's decoders.
type Action struct {
	Kind       ActionKind
	Namespace  string
	Target     string
	Deployment string
	Replicas   int32
	CPU        string
	Memory     string
	ConfigName string
	Patch      []byte
	Compensate *CompensateDescriptor
}

// ActionResult records what happened when an Action was dispatched.
type ActionResult struct {
	Action      Action
	DispatchedAt time.Time
	Error       error
}

// ExpectedOutcomePredicate is evaluated during verification to decide
// whether a Plan's effect materialized (spec §3).
type ExpectedOutcomePredicate struct {
	FaultKind FaultKind
	TargetID  string
}

// Plan is an ordered list of Actions plus the predicate verification
// checks against (spec §3).
type Plan struct {
	CandidateID      string
	Actions          []Action
	ExpectedOutcome  ExpectedOutcomePredicate
	Confidence       float64
	RiskClass        RiskClass
	ExpectedDuration time.Duration
}

// Phase is one of the Incident Orchestrator's state machine states
// (spec §4.6).
type Phase string

const (
	PhaseContaining Phase = "Containing"
	PhaseDiagnosing Phase = "Diagnosing"
	PhasePlanning   Phase = "Planning"
	PhaseExecuting  Phase = "Executing"
	PhaseVerifying  Phase = "Verifying"
	PhaseCompleted  Phase = "Completed"
	PhaseFailed     Phase = "Failed"
)

// Terminal reports whether no further transitions leave this phase.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseFailed
}

// Outcome is set once an Incident reaches a terminal phase.
type Outcome struct {
	Success bool
	Message string
	Reason  string
}

// AppliedAction is one entry of an Incident's append-only applied_actions
// log (spec §3 invariants).
type AppliedAction struct {
	Action      Action
	DispatchedAt time.Time
	Result      *ActionResult
}

// Incident is the durable aggregate root the orchestrator owns (spec §3).
type Incident struct {
	ID            string
	PolicyRef     string
	Target        string
	Namespace     string
	TriggerReason FaultKind
	Phase         Phase
	StartedAt     time.Time
	EndedAt       *time.Time
	Diagnosis     *Diagnosis
	AppliedActions []AppliedAction
	Outcome       *Outcome
	AttemptCount  int
	LastObserved  time.Time
}

// KnowledgeRecord is immutable once written (spec §3/§4.5).
type KnowledgeRecord struct {
	ID        string
	Timestamp time.Time
	Namespace string
	Target    string
	ErrorType FaultKind
	Diagnosis Diagnosis
	Plan      Plan
	Outcome   Outcome
	Embedding []float64
}

// Topic groups KnowledgeRecords around a recomputed centroid (spec §3/§4.5).
type Topic struct {
	ID        string
	AutoLabel string
	Centroid  []float64
	MemberIDs []string
}
