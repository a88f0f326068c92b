// Package k8s is the thin Action Executor façade over client-go: it
// exposes exactly the mutations spec §6 names (pod restart, deployment
// scale, ConfigMap patch, NetworkPolicy install/remove) behind a small
// interface pair so the executor can be tested against a fake clientset.
package k8s

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	jsonpatch "github.com/evanphx/json-patch/v5"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/recist-project/recist/internal/config"
)

// BasicClient covers pod/deployment/configmap reads and the mutations
// the Action Executor issues directly.
type BasicClient interface {
	GetPod(ctx context.Context, namespace, name string) (*corev1.Pod, error)
	DeletePod(ctx context.Context, namespace, name string) error
	ListPodsWithLabel(ctx context.Context, namespace, labelSelector string) (*corev1.PodList, error)
	GetDeployment(ctx context.Context, namespace, name string) (*appsv1.Deployment, error)
	ScaleDeployment(ctx context.Context, namespace, name string, replicas int32) error
	PatchDeploymentResources(ctx context.Context, namespace, name string, resources corev1.ResourceRequirements) error
	PatchConfigMap(ctx context.Context, namespace, name string, patch []byte) error
	// SetPodLabel patches a single label on a pod. The Containment
	// Agent's Soft isolation uses this to stamp a
	// recist.io/isolated=true label a Service's selector is expected to
	// exclude, pulling the pod out of load balancing without a
	// NetworkPolicy (spec §8 "removal from service load balancing
	// without network block").
	SetPodLabel(ctx context.Context, namespace, name, key, value string) error
	IsHealthy() bool
}

// AdvancedClient covers the isolation surface: creating and removing the
// deny-all NetworkPolicy that implements Hard isolation (spec §6).
type AdvancedClient interface {
	CreateNetworkPolicy(ctx context.Context, namespace string, policy *networkingv1.NetworkPolicy) error
	DeleteNetworkPolicy(ctx context.Context, namespace, name string) error
	GetNetworkPolicy(ctx context.Context, namespace, name string) (*networkingv1.NetworkPolicy, error)
}

// Client is the full surface the executor package depends on.
type Client interface {
	BasicClient
	AdvancedClient
}

type basicClient struct {
	clientset kubernetes.Interface
	namespace string
	log       logr.Logger
}

type advancedClient struct {
	clientset kubernetes.Interface
}

type client struct {
	*basicClient
	*advancedClient
}

// NewClient builds a Client from cfg, using in-cluster config if
// cfg.Context is empty, otherwise the named context from the default
// kubeconfig loading rules.
func NewClient(cfg config.KubernetesConfig, log logr.Logger) (Client, error) {
	restConfig, err := buildRESTConfig(cfg.Context)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kubernetes config: %w", err)
	}
	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kubernetes clientset: %w", err)
	}
	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "default"
	}
	return &client{
		basicClient:    &basicClient{clientset: clientset, namespace: namespace, log: log},
		advancedClient: &advancedClient{clientset: clientset},
	}, nil
}

// NewClientForTesting builds a Client over an already-constructed
// clientset (typically k8s.io/client-go/kubernetes/fake), bypassing
// kubeconfig discovery entirely.
func NewClientForTesting(clientset kubernetes.Interface, namespace string) (Client, error) {
	return &client{
		basicClient:    &basicClient{clientset: clientset, namespace: namespace, log: logr.Discard()},
		advancedClient: &advancedClient{clientset: clientset},
	}, nil
}

func buildRESTConfig(contextName string) (*rest.Config, error) {
	if contextName == "" {
		if cfg, err := rest.InClusterConfig(); err == nil {
			return cfg, nil
		}
	}
	loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
	overrides := &clientcmd.ConfigOverrides{}
	if contextName != "" {
		overrides.CurrentContext = contextName
	}
	return clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, overrides).ClientConfig()
}

func (b *basicClient) GetPod(ctx context.Context, namespace, name string) (*corev1.Pod, error) {
	return b.clientset.CoreV1().Pods(namespace).Get(ctx, name, metav1.GetOptions{})
}

// DeletePod is idempotent under re-issue: a NotFound on delete is treated
// as success, since the desired end state (pod gone) already holds.
func (b *basicClient) DeletePod(ctx context.Context, namespace, name string) error {
	err := b.clientset.CoreV1().Pods(namespace).Delete(ctx, name, metav1.DeleteOptions{})
	if apierrors.IsNotFound(err) {
		return nil
	}
	return err
}

func (b *basicClient) ListPodsWithLabel(ctx context.Context, namespace, labelSelector string) (*corev1.PodList, error) {
	return b.clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{LabelSelector: labelSelector})
}

func (b *basicClient) GetDeployment(ctx context.Context, namespace, name string) (*appsv1.Deployment, error) {
	return b.clientset.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
}

func (b *basicClient) ScaleDeployment(ctx context.Context, namespace, name string, replicas int32) error {
	patch := []byte(fmt.Sprintf(`{"spec":{"replicas":%d}}`, replicas))
	_, err := b.clientset.AppsV1().Deployments(namespace).Patch(ctx, name, types.MergePatchType, patch, metav1.PatchOptions{})
	return err
}

func (b *basicClient) PatchDeploymentResources(ctx context.Context, namespace, name string, resources corev1.ResourceRequirements) error {
	deployment, err := b.GetDeployment(ctx, namespace, name)
	if err != nil {
		return err
	}
	if len(deployment.Spec.Template.Spec.Containers) == 0 {
		return fmt.Errorf("deployment %s/%s has no containers to patch", namespace, name)
	}
	deployment.Spec.Template.Spec.Containers[0].Resources = resources
	_, err = b.clientset.AppsV1().Deployments(namespace).Update(ctx, deployment, metav1.UpdateOptions{})
	return err
}

// PatchConfigMap applies a strategic/merge JSON patch to a ConfigMap's
// Data, per spec §6.
func (b *basicClient) PatchConfigMap(ctx context.Context, namespace, name string, patch []byte) error {
	cm, err := b.clientset.CoreV1().ConfigMaps(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return err
	}
	original, err := jsonMarshalData(cm.Data)
	if err != nil {
		return err
	}
	merged, err := jsonpatch.MergePatch(original, patch)
	if err != nil {
		return fmt.Errorf("failed to apply config patch: %w", err)
	}
	data, err := jsonUnmarshalData(merged)
	if err != nil {
		return err
	}
	cm.Data = data
	_, err = b.clientset.CoreV1().ConfigMaps(namespace).Update(ctx, cm, metav1.UpdateOptions{})
	return err
}

func (b *basicClient) SetPodLabel(ctx context.Context, namespace, name, key, value string) error {
	patch := []byte(fmt.Sprintf(`{"metadata":{"labels":{%q:%q}}}`, key, value))
	_, err := b.clientset.CoreV1().Pods(namespace).Patch(ctx, name, types.MergePatchType, patch, metav1.PatchOptions{})
	return err
}

func (b *basicClient) IsHealthy() bool {
	_, err := b.clientset.Discovery().ServerVersion()
	return err == nil
}

// CreateNetworkPolicy installs the deny-all policy idempotently: if one
// by this name already exists, it is left untouched rather than erroring,
// matching the executor's at-most-one-NetworkPolicy invariant (spec §8).
func (a *advancedClient) CreateNetworkPolicy(ctx context.Context, namespace string, policy *networkingv1.NetworkPolicy) error {
	_, err := a.clientset.NetworkingV1().NetworkPolicies(namespace).Create(ctx, policy, metav1.CreateOptions{})
	if apierrors.IsAlreadyExists(err) {
		return nil
	}
	return err
}

func (a *advancedClient) DeleteNetworkPolicy(ctx context.Context, namespace, name string) error {
	err := a.clientset.NetworkingV1().NetworkPolicies(namespace).Delete(ctx, name, metav1.DeleteOptions{})
	if apierrors.IsNotFound(err) {
		return nil
	}
	return err
}

func (a *advancedClient) GetNetworkPolicy(ctx context.Context, namespace, name string) (*networkingv1.NetworkPolicy, error) {
	return a.clientset.NetworkingV1().NetworkPolicies(namespace).Get(ctx, name, metav1.GetOptions{})
}
