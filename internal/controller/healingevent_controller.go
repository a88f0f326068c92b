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

// Package controller hosts the controller-runtime reconcilers that
// bridge the CRD surface (internal/apis/healing/v1alpha1) to
// pkg/orchestration's event-bus-driven Incident Orchestrator (spec
// §4.6, §6). HealingEvent status is written by the orchestrator
// itself through a Store implementation (see store.go); this
// reconciler's job is the aggregate SelfHealingPolicy.status fields
// the orchestrator has no reason to know about.
package controller

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"

	healingv1alpha1 "github.com/recist-project/recist/internal/apis/healing/v1alpha1"
)

// Reconciler maintains SelfHealingPolicy.status by aggregating the
// HealingEvents it owns (spec §6 status fields: observedGeneration,
// activeHealings, lastHealingTime, conditions).
type Reconciler struct {
	client client.Client
	log    logr.Logger
}

func NewReconciler(c client.Client, log logr.Logger) *Reconciler {
	return &Reconciler{client: c, log: log}
}

func (r *Reconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	var policy healingv1alpha1.SelfHealingPolicy
	if err := r.client.Get(ctx, req.NamespacedName, &policy); err != nil {
		if apierrors.IsNotFound(err) {
			return ctrl.Result{}, nil
		}
		return ctrl.Result{}, fmt.Errorf("get policy: %w", err)
	}

	var events healingv1alpha1.HealingEventList
	if err := r.client.List(ctx, &events, client.InNamespace(req.Namespace)); err != nil {
		return ctrl.Result{}, fmt.Errorf("list healing events: %w", err)
	}

	active := 0
	var lastHealingTime *metav1.Time
	for _, e := range events.Items {
		if e.Spec.PolicyRef != req.Name {
			continue
		}
		if e.Status.Phase != healingv1alpha1.HealingPhaseCompleted && e.Status.Phase != healingv1alpha1.HealingPhaseFailed {
			active++
		}
		if e.Status.EndTime != nil && (lastHealingTime == nil || e.Status.EndTime.After(lastHealingTime.Time)) {
			lastHealingTime = e.Status.EndTime
		}
	}

	policy.Status.ObservedGeneration = policy.Generation
	policy.Status.ActiveHealings = active
	policy.Status.LastHealingTime = lastHealingTime
	policy.Status.Conditions = []healingv1alpha1.Condition{{
		Type:               "Ready",
		Status:             "True",
		Reason:             "PolicyObserved",
		Message:            fmt.Sprintf("%d active healing(s)", active),
		LastTransitionTime: metav1.Now(),
	}}

	if err := r.client.Status().Update(ctx, &policy); err != nil {
		return ctrl.Result{}, fmt.Errorf("update policy status: %w", err)
	}
	return ctrl.Result{}, nil
}

func (r *Reconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&healingv1alpha1.SelfHealingPolicy{}).
		Owns(&healingv1alpha1.HealingEvent{}).
		Complete(r)
}
