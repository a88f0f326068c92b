package containment

import (
	"context"
	"fmt"

	networkingv1 "k8s.io/api/networking/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/recist-project/recist/pkg/k8s"
)

const (
	isolatedLabelKey   = "recist.io/isolated"
	isolatedLabelValue = "true"
	readyLabelValue    = "false"
)

// K8sIsolationApplier implements IsolationApplier against a live
// cluster (spec §6): Hard isolation installs a deny-all NetworkPolicy
// named recist-isolate-{target}; Soft isolation stamps a label a
// Service's selector is expected to exclude, pulling the pod out of
// load balancing without a network block (spec §8).
type K8sIsolationApplier struct {
	client k8s.Client
}

func NewK8sIsolationApplier(client k8s.Client) *K8sIsolationApplier {
	return &K8sIsolationApplier{client: client}
}

func policyName(target string) string {
	return fmt.Sprintf("recist-isolate-%s", target)
}

func (a *K8sIsolationApplier) ApplyHard(ctx context.Context, namespace, target string) error {
	if err := a.ApplySoft(ctx, namespace, target); err != nil {
		return err
	}
	policy := &networkingv1.NetworkPolicy{
		ObjectMeta: metav1.ObjectMeta{
			Name:      policyName(target),
			Namespace: namespace,
		},
		Spec: networkingv1.NetworkPolicySpec{
			PodSelector: metav1.LabelSelector{
				MatchLabels: map[string]string{"app": target},
			},
			PolicyTypes: []networkingv1.PolicyType{
				networkingv1.PolicyTypeIngress,
				networkingv1.PolicyTypeEgress,
			},
		},
	}
	return a.client.CreateNetworkPolicy(ctx, namespace, policy)
}

func (a *K8sIsolationApplier) ApplySoft(ctx context.Context, namespace, target string) error {
	return a.client.SetPodLabel(ctx, namespace, target, isolatedLabelKey, isolatedLabelValue)
}

func (a *K8sIsolationApplier) Remove(ctx context.Context, namespace, target string) error {
	if err := a.client.DeleteNetworkPolicy(ctx, namespace, policyName(target)); err != nil {
		return err
	}
	return a.client.SetPodLabel(ctx, namespace, target, isolatedLabelKey, readyLabelValue)
}
