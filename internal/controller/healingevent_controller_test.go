package controller

import (
	"context"
	"testing"

	"github.com/go-logr/logr"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	runtimescheme "k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	healingv1alpha1 "github.com/recist-project/recist/internal/apis/healing/v1alpha1"
)

func newTestScheme(t *testing.T) *runtimescheme.Scheme {
	t.Helper()
	scheme := runtimescheme.NewScheme()
	if err := healingv1alpha1.AddToScheme(scheme); err != nil {
		t.Fatalf("AddToScheme() error = %v", err)
	}
	return scheme
}

func TestReconcileReturnsEmptyResultForMissingPolicy(t *testing.T) {
	c := fake.NewClientBuilder().WithScheme(newTestScheme(t)).Build()
	r := NewReconciler(c, logr.Discard())

	result, err := r.Reconcile(context.Background(), ctrl.Request{
		NamespacedName: types.NamespacedName{Name: "missing", Namespace: "default"},
	})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if result != (ctrl.Result{}) {
		t.Errorf("Reconcile() result = %v, want empty", result)
	}
}

func TestReconcileAggregatesActiveHealingsFromOwnedEvents(t *testing.T) {
	scheme := newTestScheme(t)
	policy := &healingv1alpha1.SelfHealingPolicy{
		ObjectMeta: metav1.ObjectMeta{Name: "policy-a", Namespace: "default"},
	}
	active := &healingv1alpha1.HealingEvent{
		ObjectMeta: metav1.ObjectMeta{Name: "incident-1", Namespace: "default"},
		Spec:       healingv1alpha1.HealingEventSpec{PolicyRef: "policy-a"},
		Status:     healingv1alpha1.HealingEventStatus{Phase: healingv1alpha1.HealingPhaseDiagnosing},
	}
	completed := &healingv1alpha1.HealingEvent{
		ObjectMeta: metav1.ObjectMeta{Name: "incident-2", Namespace: "default"},
		Spec:       healingv1alpha1.HealingEventSpec{PolicyRef: "policy-a"},
		Status:     healingv1alpha1.HealingEventStatus{Phase: healingv1alpha1.HealingPhaseCompleted},
	}

	c := fake.NewClientBuilder().
		WithScheme(scheme).
		WithStatusSubresource(&healingv1alpha1.SelfHealingPolicy{}).
		WithObjects(policy, active, completed).
		Build()

	r := NewReconciler(c, logr.Discard())
	_, err := r.Reconcile(context.Background(), ctrl.Request{
		NamespacedName: types.NamespacedName{Name: "policy-a", Namespace: "default"},
	})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	var got healingv1alpha1.SelfHealingPolicy
	if err := c.Get(context.Background(), client.ObjectKey{Name: "policy-a", Namespace: "default"}, &got); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status.ActiveHealings != 1 {
		t.Errorf("ActiveHealings = %d, want 1", got.Status.ActiveHealings)
	}
	if len(got.Status.Conditions) != 1 || got.Status.Conditions[0].Type != "Ready" {
		t.Errorf("Conditions = %v, want one Ready condition", got.Status.Conditions)
	}
}
