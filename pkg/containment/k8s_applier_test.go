package containment

import (
	"context"
	"testing"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/recist-project/recist/pkg/k8s"
)

func testClient(t *testing.T) k8s.Client {
	t.Helper()
	pod := &corev1.Pod{ObjectMeta: metav1.ObjectMeta{Name: "pod-a", Namespace: "default"}}
	clientset := fake.NewSimpleClientset(pod)
	c, err := k8s.NewClientForTesting(clientset, "default")
	if err != nil {
		t.Fatalf("NewClientForTesting() error = %v", err)
	}
	return c
}

func TestApplySoftStampsIsolatedLabel(t *testing.T) {
	client := testClient(t)
	applier := NewK8sIsolationApplier(client)
	ctx := context.Background()

	if err := applier.ApplySoft(ctx, "default", "pod-a"); err != nil {
		t.Fatalf("ApplySoft() error = %v", err)
	}

	pod, err := client.GetPod(ctx, "default", "pod-a")
	if err != nil {
		t.Fatalf("GetPod() error = %v", err)
	}
	if pod.Labels[isolatedLabelKey] != isolatedLabelValue {
		t.Errorf("labels = %v, want %s=%s", pod.Labels, isolatedLabelKey, isolatedLabelValue)
	}
}

func TestApplyHardCreatesNetworkPolicyAndLabel(t *testing.T) {
	client := testClient(t)
	applier := NewK8sIsolationApplier(client)
	ctx := context.Background()

	if err := applier.ApplyHard(ctx, "default", "pod-a"); err != nil {
		t.Fatalf("ApplyHard() error = %v", err)
	}

	if _, err := client.GetNetworkPolicy(ctx, "default", policyName("pod-a")); err != nil {
		t.Fatalf("GetNetworkPolicy() error = %v", err)
	}
}

func TestRemoveDeletesNetworkPolicyAndLabel(t *testing.T) {
	client := testClient(t)
	applier := NewK8sIsolationApplier(client)
	ctx := context.Background()

	if err := applier.ApplyHard(ctx, "default", "pod-a"); err != nil {
		t.Fatalf("ApplyHard() error = %v", err)
	}
	if err := applier.Remove(ctx, "default", "pod-a"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	if _, err := client.GetNetworkPolicy(ctx, "default", policyName("pod-a")); err == nil {
		t.Error("GetNetworkPolicy() error = nil, want not-found after Remove")
	}

	pod, err := client.GetPod(ctx, "default", "pod-a")
	if err != nil {
		t.Fatalf("GetPod() error = %v", err)
	}
	if pod.Labels[isolatedLabelKey] != readyLabelValue {
		t.Errorf("labels = %v, want %s=%s", pod.Labels, isolatedLabelKey, readyLabelValue)
	}
}
