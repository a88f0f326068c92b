/*
Copyright 2025 ReCiSt Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// ThresholdProfile mirrors spec §3's per-target threshold set.
type ThresholdProfile struct {
	CPU       float64 `json:"cpu,omitempty"`
	Memory    float64 `json:"memory,omitempty"`
	LatencyMs float64 `json:"latencyMs,omitempty"`
	ErrorRate float64 `json:"errorRate,omitempty"`
}

// LLMSpec names the language-model backend a policy's diagnosis and
// planning agents should use.
type LLMSpec struct {
	// +kubebuilder:validation:Enum=claude;openai;gemini;ollama
	Provider      string `json:"provider"`
	Model         string `json:"model"`
	APIKeySecret  string `json:"apiKeySecret,omitempty"`
	TimeoutSeconds int   `json:"timeoutSeconds,omitempty"`
}

// NotificationSpec names the channels a policy reports healing
// lifecycle events to.
type NotificationSpec struct {
	Enabled      bool   `json:"enabled,omitempty"`
	SlackWebhook string `json:"slackWebhook,omitempty"`
	Email        string `json:"email,omitempty"`
}

// SelfHealingPolicySpec is the desired-state contract for one policy
// (spec §6).
type SelfHealingPolicySpec struct {
	TargetNamespaces []string          `json:"targetNamespaces,omitempty"`
	TargetLabels     map[string]string `json:"targetLabels,omitempty"`
	Thresholds       ThresholdProfile  `json:"thresholds,omitempty"`

	// +kubebuilder:validation:Enum=restart;scale;updateConfig;updateResources
	AllowedActions []string         `json:"allowedActions,omitempty"`
	LLMConfig      LLMSpec          `json:"llmConfig"`
	Notifications  NotificationSpec `json:"notifications,omitempty"`
}

// Condition mirrors the standard Kubernetes condition shape.
type Condition struct {
	Type               string      `json:"type"`
	Status             string      `json:"status"`
	Reason             string      `json:"reason,omitempty"`
	Message            string      `json:"message,omitempty"`
	LastTransitionTime metav1.Time `json:"lastTransitionTime,omitempty"`
}

// SelfHealingPolicyStatus reports the policy's observed operating
// state (spec §6).
type SelfHealingPolicyStatus struct {
	ObservedGeneration int64       `json:"observedGeneration,omitempty"`
	ActiveHealings     int         `json:"activeHealings,omitempty"`
	LastHealingTime    *metav1.Time `json:"lastHealingTime,omitempty"`
	Conditions         []Condition `json:"conditions,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:scope=Namespaced

// SelfHealingPolicy scopes the Containment/Diagnosis/MetaCognitive
// agents to a set of targets and bounds what actions they may take.
type SelfHealingPolicy struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   SelfHealingPolicySpec   `json:"spec,omitempty"`
	Status SelfHealingPolicyStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// SelfHealingPolicyList is a list of SelfHealingPolicy.
type SelfHealingPolicyList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []SelfHealingPolicy `json:"items"`
}

// TriggerReason is the fault kind that opened this healing event
// (spec §3 FaultKind, surfaced on the CR).
// +kubebuilder:validation:Enum=highCpu;highMemory;highLatency;highErrorRate;crashLoop
type TriggerReason string

const (
	TriggerHighCPU       TriggerReason = "highCpu"
	TriggerHighMemory    TriggerReason = "highMemory"
	TriggerHighLatency   TriggerReason = "highLatency"
	TriggerHighErrorRate TriggerReason = "highErrorRate"
	TriggerCrashLoop     TriggerReason = "crashLoop"
)

// HealingEventSpec identifies the policy and target this event
// covers.
type HealingEventSpec struct {
	PolicyRef       string        `json:"policyRef"`
	TargetPod       string        `json:"targetPod"`
	TargetNamespace string        `json:"targetNamespace"`
	TriggerReason   TriggerReason `json:"triggerReason"`
}

// HealingPhase is the Incident Orchestrator's state machine phase as
// surfaced on the CR (spec §4.6). It is the CRD-facing vocabulary;
// internally the orchestrator uses domain.Phase, which names the
// Executing phase "Executing" rather than "Healing".
// +kubebuilder:validation:Enum=Containing;Diagnosing;Healing;Verifying;Completed;Failed
type HealingPhase string

const (
	HealingPhaseContaining HealingPhase = "Containing"
	HealingPhaseDiagnosing HealingPhase = "Diagnosing"
	HealingPhaseHealing    HealingPhase = "Healing"
	HealingPhaseVerifying  HealingPhase = "Verifying"
	HealingPhaseCompleted  HealingPhase = "Completed"
	HealingPhaseFailed     HealingPhase = "Failed"
)

// DiagnosisStatus mirrors domain.Diagnosis for the CR's status
// subresource.
type DiagnosisStatus struct {
	Hypothesis string  `json:"hypothesis,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	RootCause  string  `json:"rootCause,omitempty"`
}

// AppliedActionStatus is one append-only entry of the actions this
// event has dispatched.
type AppliedActionStatus struct {
	Action    string      `json:"action"`
	Timestamp metav1.Time `json:"timestamp"`
	Result    string      `json:"result,omitempty"`
}

// OutcomeStatus reports the event's terminal result.
type OutcomeStatus struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// HealingEventStatus is the Incident Orchestrator's durable, observed
// state for one healing event (spec §4.6, §3 invariants).
type HealingEventStatus struct {
	Phase          HealingPhase          `json:"phase,omitempty"`
	StartTime      *metav1.Time          `json:"startTime,omitempty"`
	EndTime        *metav1.Time          `json:"endTime,omitempty"`
	Diagnosis      *DiagnosisStatus      `json:"diagnosis,omitempty"`
	AppliedActions []AppliedActionStatus `json:"appliedActions,omitempty"`
	Outcome        *OutcomeStatus        `json:"outcome,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:scope=Namespaced

// HealingEvent is the durable record of one incident's lifecycle,
// reconciled by internal/controller.
type HealingEvent struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   HealingEventSpec   `json:"spec,omitempty"`
	Status HealingEventStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// HealingEventList is a list of HealingEvent.
type HealingEventList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []HealingEvent `json:"items"`
}

func init() {
	SchemeBuilder.Register(&SelfHealingPolicy{}, &SelfHealingPolicyList{})
	SchemeBuilder.Register(&HealingEvent{}, &HealingEventList{})
}
