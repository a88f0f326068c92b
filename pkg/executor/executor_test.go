package executor

import (
	"context"
	"testing"

	"github.com/go-logr/logr"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/recist-project/recist/internal/config"
	"github.com/recist-project/recist/pkg/domain"
	"github.com/recist-project/recist/pkg/k8s"
)

// fakeClient wraps a real k8s.Client built on a fake clientset so the
// executor is exercised through its production path instead of a
// hand-rolled stub.
func fakeClient(t *testing.T, objects ...runtime.Object) k8s.Client {
	t.Helper()
	clientset := fake.NewSimpleClientset(objects...)
	c, err := k8s.NewClientForTesting(clientset, "test-namespace")
	if err != nil {
		t.Fatalf("NewClientForTesting() error = %v", err)
	}
	return c
}

func testDeployment(namespace, name string, replicas int32) *appsv1.Deployment {
	return &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace},
		Spec: appsv1.DeploymentSpec{
			Replicas: &replicas,
			Template: corev1.PodTemplateSpec{
				Spec: corev1.PodSpec{Containers: []corev1.Container{{Name: "main", Image: "nginx"}}},
			},
		},
	}
}

func testPod(namespace, name string) *corev1.Pod {
	return &corev1.Pod{ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace}}
}

func testDeploymentWithResources(namespace, name, cpu, memory string) *appsv1.Deployment {
	replicas := int32(1)
	return &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace},
		Spec: appsv1.DeploymentSpec{
			Replicas: &replicas,
			Template: corev1.PodTemplateSpec{
				Spec: corev1.PodSpec{Containers: []corev1.Container{{
					Name:  "main",
					Image: "nginx",
					Resources: corev1.ResourceRequirements{
						Limits: corev1.ResourceList{
							corev1.ResourceCPU:    resource.MustParse(cpu),
							corev1.ResourceMemory: resource.MustParse(memory),
						},
					},
				}}},
			},
		},
	}
}

func TestDispatchScaleHorizontal(t *testing.T) {
	client := fakeClient(t, testDeployment("ns", "api", 2))
	exec := New(client, config.ActionsConfig{}, logr.Discard())

	plan := domain.Plan{Actions: []domain.Action{{Kind: domain.ActionScaleHorizontal, Deployment: "api", Replicas: 5}}}
	applied, err := exec.Dispatch(context.Background(), "ns", plan)
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if len(applied) != 1 {
		t.Fatalf("len(applied) = %d, want 1", len(applied))
	}
	if applied[0].Action.Compensate == nil {
		t.Fatal("expected a compensate descriptor for ScaleHorizontal")
	}

	deployment, err := client.GetDeployment(context.Background(), "ns", "api")
	if err != nil {
		t.Fatalf("GetDeployment() error = %v", err)
	}
	if *deployment.Spec.Replicas != 5 {
		t.Errorf("replicas = %d, want 5", *deployment.Spec.Replicas)
	}
}

func TestDispatchStopsAndReturnsAppliedOnError(t *testing.T) {
	client := fakeClient(t, testPod("ns", "pod-a"))
	exec := New(client, config.ActionsConfig{}, logr.Discard())

	plan := domain.Plan{Actions: []domain.Action{
		{Kind: domain.ActionRestart, Target: "pod-a"},
		{Kind: domain.ActionScaleHorizontal, Deployment: "missing-deployment", Replicas: 2},
	}}
	applied, err := exec.Dispatch(context.Background(), "ns", plan)
	if err == nil {
		t.Fatal("expected an error from the second action (deployment does not exist)")
	}
	if len(applied) != 2 {
		t.Fatalf("len(applied) = %d, want 2 (including the failing action)", len(applied))
	}
	if applied[0].Result.Error != nil {
		t.Errorf("first action should have succeeded, got %v", applied[0].Result.Error)
	}
	if applied[1].Result.Error == nil {
		t.Error("second action should have failed")
	}
}

func TestCompensateReplaysInReverse(t *testing.T) {
	client := fakeClient(t, testDeployment("ns", "api", 2))
	exec := New(client, config.ActionsConfig{}, logr.Discard())

	plan := domain.Plan{Actions: []domain.Action{{Kind: domain.ActionScaleHorizontal, Deployment: "api", Replicas: 5}}}
	applied, err := exec.Dispatch(context.Background(), "ns", plan)
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	if err := exec.Compensate(context.Background(), applied); err != nil {
		t.Fatalf("Compensate() error = %v", err)
	}

	deployment, err := client.GetDeployment(context.Background(), "ns", "api")
	if err != nil {
		t.Fatalf("GetDeployment() error = %v", err)
	}
	if *deployment.Spec.Replicas != 2 {
		t.Errorf("replicas after compensate = %d, want 2 (restored)", *deployment.Spec.Replicas)
	}
}

func TestCompensateRestoresPriorVerticalScaleResources(t *testing.T) {
	client := fakeClient(t, testDeploymentWithResources("ns", "api", "500m", "512Mi"))
	exec := New(client, config.ActionsConfig{}, logr.Discard())

	plan := domain.Plan{Actions: []domain.Action{{Kind: domain.ActionScaleVertical, Deployment: "api", CPU: "2", Memory: "4Gi"}}}
	applied, err := exec.Dispatch(context.Background(), "ns", plan)
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if applied[0].Action.Compensate == nil {
		t.Fatal("expected a compensate descriptor for ScaleVertical")
	}
	if got := applied[0].Action.Compensate.Params["cpu"]; got != "500m" {
		t.Errorf("compensate cpu = %q, want %q", got, "500m")
	}
	if got := applied[0].Action.Compensate.Params["memory"]; got != "512Mi" {
		t.Errorf("compensate memory = %q, want %q", got, "512Mi")
	}

	deployment, err := client.GetDeployment(context.Background(), "ns", "api")
	if err != nil {
		t.Fatalf("GetDeployment() error = %v", err)
	}
	if got := deployment.Spec.Template.Spec.Containers[0].Resources.Limits.Cpu().String(); got != "2" {
		t.Fatalf("applied cpu = %q, want %q", got, "2")
	}

	if err := exec.Compensate(context.Background(), applied); err != nil {
		t.Fatalf("Compensate() error = %v", err)
	}

	deployment, err = client.GetDeployment(context.Background(), "ns", "api")
	if err != nil {
		t.Fatalf("GetDeployment() error = %v", err)
	}
	resources := deployment.Spec.Template.Spec.Containers[0].Resources
	if got := resources.Limits.Cpu().String(); got != "500m" {
		t.Errorf("cpu after compensate = %q, want restored %q", got, "500m")
	}
	if got := resources.Limits.Memory().String(); got != "512Mi" {
		t.Errorf("memory after compensate = %q, want restored %q", got, "512Mi")
	}
}

func TestDispatchDryRunAppliesNoMutation(t *testing.T) {
	client := fakeClient(t, testDeployment("ns", "api", 2))
	exec := New(client, config.ActionsConfig{DryRun: true}, logr.Discard())

	plan := domain.Plan{Actions: []domain.Action{{Kind: domain.ActionScaleHorizontal, Deployment: "api", Replicas: 9}}}
	applied, err := exec.Dispatch(context.Background(), "ns", plan)
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if len(applied) != 1 {
		t.Fatalf("len(applied) = %d, want 1", len(applied))
	}

	deployment, err := client.GetDeployment(context.Background(), "ns", "api")
	if err != nil {
		t.Fatalf("GetDeployment() error = %v", err)
	}
	if *deployment.Spec.Replicas != 2 {
		t.Errorf("replicas = %d, want unchanged 2 under dry-run", *deployment.Spec.Replicas)
	}
}
