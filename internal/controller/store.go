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

package controller

import (
	"context"
	"fmt"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"

	healingv1alpha1 "github.com/recist-project/recist/internal/apis/healing/v1alpha1"
	"github.com/recist-project/recist/internal/errors"
	"github.com/recist-project/recist/pkg/domain"
)

// CRDStore is the production orchestration.Store: every transition is
// persisted as a HealingEvent.status patch, so the CRD itself is the
// "durable custom resource" spec §3/§4.6 require, and a crash-resume
// reload is just a List against the API server (see
// orchestration.Orchestrator.Resume).
type CRDStore struct {
	client client.Client
}

func NewCRDStore(c client.Client) *CRDStore {
	return &CRDStore{client: c}
}

func (s *CRDStore) Save(ctx context.Context, incident domain.Incident) error {
	var existing healingv1alpha1.HealingEvent
	key := client.ObjectKey{Namespace: incident.Namespace, Name: incident.ID}
	err := s.client.Get(ctx, key, &existing)
	if apierrors.IsNotFound(err) {
		event := toHealingEvent(incident)
		if createErr := s.client.Create(ctx, event); createErr != nil {
			return fmt.Errorf("create healing event: %w", createErr)
		}
		event.Status = toHealingEventStatus(incident)
		return s.client.Status().Update(ctx, event)
	}
	if err != nil {
		return fmt.Errorf("get healing event: %w", err)
	}

	existing.Status = toHealingEventStatus(incident)
	if err := s.client.Status().Update(ctx, &existing); err != nil {
		return fmt.Errorf("update healing event status: %w", err)
	}
	return nil
}

func (s *CRDStore) Get(ctx context.Context, id string) (domain.Incident, error) {
	var list healingv1alpha1.HealingEventList
	if err := s.client.List(ctx, &list); err != nil {
		return domain.Incident{}, fmt.Errorf("list healing events: %w", err)
	}
	for _, e := range list.Items {
		if e.Name == id {
			return fromHealingEvent(e), nil
		}
	}
	return domain.Incident{}, errors.New(errors.ErrorTypeNotFound, "incident not found: "+id)
}

func (s *CRDStore) ActiveByTarget(ctx context.Context, target string) (domain.Incident, bool, error) {
	var list healingv1alpha1.HealingEventList
	if err := s.client.List(ctx, &list); err != nil {
		return domain.Incident{}, false, fmt.Errorf("list healing events: %w", err)
	}
	for _, e := range list.Items {
		incident := fromHealingEvent(e)
		if incident.Target == target && !incident.Phase.Terminal() {
			return incident, true, nil
		}
	}
	return domain.Incident{}, false, nil
}

func (s *CRDStore) ListActive(ctx context.Context) ([]domain.Incident, error) {
	var list healingv1alpha1.HealingEventList
	if err := s.client.List(ctx, &list); err != nil {
		return nil, fmt.Errorf("list healing events: %w", err)
	}
	var active []domain.Incident
	for _, e := range list.Items {
		incident := fromHealingEvent(e)
		if !incident.Phase.Terminal() {
			active = append(active, incident)
		}
	}
	return active, nil
}

func toHealingEvent(incident domain.Incident) *healingv1alpha1.HealingEvent {
	return &healingv1alpha1.HealingEvent{
		ObjectMeta: metav1.ObjectMeta{
			Name:      incident.ID,
			Namespace: incident.Namespace,
		},
		Spec: healingv1alpha1.HealingEventSpec{
			PolicyRef:       incident.PolicyRef,
			TargetPod:       incident.Target,
			TargetNamespace: incident.Namespace,
			TriggerReason:   toTriggerReason(incident.TriggerReason),
		},
	}
}

func toHealingEventStatus(incident domain.Incident) healingv1alpha1.HealingEventStatus {
	status := healingv1alpha1.HealingEventStatus{
		Phase:     toHealingPhase(incident.Phase),
		StartTime: toMetaTime(&incident.StartedAt),
		EndTime:   toMetaTime(incident.EndedAt),
	}
	if incident.Diagnosis != nil {
		status.Diagnosis = &healingv1alpha1.DiagnosisStatus{
			Hypothesis: incident.Diagnosis.Hypothesis,
			Confidence: incident.Diagnosis.Confidence,
			RootCause:  incident.Diagnosis.RootCause,
		}
	}
	for _, applied := range incident.AppliedActions {
		result := "pending"
		if applied.Result != nil {
			if applied.Result.Error != nil {
				result = "error: " + applied.Result.Error.Error()
			} else {
				result = "applied"
			}
		}
		status.AppliedActions = append(status.AppliedActions, healingv1alpha1.AppliedActionStatus{
			Action:    string(applied.Action.Kind),
			Timestamp: metav1.NewTime(applied.DispatchedAt),
			Result:    result,
		})
	}
	if incident.Outcome != nil {
		status.Outcome = &healingv1alpha1.OutcomeStatus{
			Success: incident.Outcome.Success,
			Message: incident.Outcome.Message,
		}
	}
	return status
}

func fromHealingEvent(e healingv1alpha1.HealingEvent) domain.Incident {
	incident := domain.Incident{
		ID:            e.Name,
		PolicyRef:     e.Spec.PolicyRef,
		Target:        e.Spec.TargetPod,
		Namespace:     e.Spec.TargetNamespace,
		TriggerReason: domain.FaultKind(e.Spec.TriggerReason),
		Phase:         fromHealingPhase(e.Status.Phase),
	}
	if e.Status.StartTime != nil {
		incident.StartedAt = e.Status.StartTime.Time
	}
	if e.Status.EndTime != nil {
		t := e.Status.EndTime.Time
		incident.EndedAt = &t
	}
	if e.Status.Diagnosis != nil {
		incident.Diagnosis = &domain.Diagnosis{
			Hypothesis: e.Status.Diagnosis.Hypothesis,
			Confidence: e.Status.Diagnosis.Confidence,
			RootCause:  e.Status.Diagnosis.RootCause,
		}
	}
	if e.Status.Outcome != nil {
		incident.Outcome = &domain.Outcome{
			Success: e.Status.Outcome.Success,
			Message: e.Status.Outcome.Message,
		}
	}
	return incident
}

func toMetaTime(t *time.Time) *metav1.Time {
	if t == nil {
		return nil
	}
	mt := metav1.NewTime(*t)
	return &mt
}

func toTriggerReason(kind domain.FaultKind) healingv1alpha1.TriggerReason {
	return healingv1alpha1.TriggerReason(kind)
}

func toHealingPhase(phase domain.Phase) healingv1alpha1.HealingPhase {
	if phase == domain.PhaseExecuting {
		return healingv1alpha1.HealingPhaseHealing
	}
	return healingv1alpha1.HealingPhase(phase)
}

func fromHealingPhase(phase healingv1alpha1.HealingPhase) domain.Phase {
	if phase == healingv1alpha1.HealingPhaseHealing {
		return domain.PhaseExecuting
	}
	return domain.Phase(phase)
}
