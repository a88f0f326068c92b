package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/recist-project/recist/internal/config"
	"github.com/recist-project/recist/pkg/domain"
	"github.com/recist-project/recist/pkg/k8s"
	"github.com/recist-project/recist/pkg/shared/logging"
)

// Executor dispatches a Plan's Actions in order against a k8s.Client,
// capturing each action's compensate descriptor as it goes so a caller
// can roll back on any mid-plan failure (spec §4.4).
type Executor struct {
	client   k8s.Client
	registry *ActionRegistry
	cfg      config.ActionsConfig
	log      logr.Logger
}

func New(client k8s.Client, cfg config.ActionsConfig, log logr.Logger) *Executor {
	e := &Executor{client: client, registry: NewActionRegistry(), cfg: cfg, log: log}
	e.registerHandlers()
	return e
}

func (e *Executor) registerHandlers() {
	_ = e.registry.Register(domain.ActionRestart, e.restart)
	_ = e.registry.Register(domain.ActionScaleHorizontal, e.scaleHorizontal)
	_ = e.registry.Register(domain.ActionScaleVertical, e.scaleVertical)
	_ = e.registry.Register(domain.ActionPatchConfig, e.patchConfig)
	_ = e.registry.Register(domain.ActionRemoveIsolation, e.removeIsolation)
}

// Dispatch applies plan.Actions in order, stamping each with its
// compensate descriptor before the mutation runs (so the descriptor is
// available for rollback even if the mutation itself fails) and its
// dispatch timestamp. It stops and returns on the first error, with the
// results gathered so far — including the failing action's result —
// so the caller can run compensates in reverse (spec §4.4).
func (e *Executor) Dispatch(ctx context.Context, namespace string, plan domain.Plan) ([]domain.AppliedAction, error) {
	if e.cfg.DryRun {
		return e.dryRun(plan, namespace), nil
	}

	var applied []domain.AppliedAction
	for _, action := range plan.Actions {
		action.Namespace = namespace
		action.Compensate = e.computeCompensate(ctx, action)
		dispatchedAt := e.now()

		err := e.registry.Execute(ctx, action)
		result := &domain.ActionResult{Action: action, DispatchedAt: dispatchedAt, Error: err}
		applied = append(applied, domain.AppliedAction{Action: action, DispatchedAt: dispatchedAt, Result: result})

		if err != nil {
			e.log.Error(err, "action dispatch failed", "action", action.Kind, "target", action.Target)
			return applied, fmt.Errorf("action %s failed: %w", action.Kind, err)
		}
		e.log.V(1).Info("action dispatched", logging.NewFields().Operation(string(action.Kind)).Resource("target", action.Target).ToLogrus())
	}
	return applied, nil
}

func (e *Executor) dryRun(plan domain.Plan, namespace string) []domain.AppliedAction {
	applied := make([]domain.AppliedAction, 0, len(plan.Actions))
	for _, action := range plan.Actions {
		action.Namespace = namespace
		// Compensate lookups read cluster state, so they are skipped
		// when the executor has no client.
		if e.client != nil {
			action.Compensate = e.computeCompensate(context.Background(), action)
		}
		applied = append(applied, domain.AppliedAction{Action: action, DispatchedAt: e.now()})
	}
	return applied
}

// Compensate replays applied, which must be in dispatch order, back to
// front, applying each entry's compensate descriptor. Errors are
// collected and chained rather than aborting early: every dispatched
// action gets a rollback attempt regardless of whether an earlier one
// failed (spec §8: the multiset of applied compensates must equal the
// multiset of dispatched compensates).
func (e *Executor) Compensate(ctx context.Context, applied []domain.AppliedAction) error {
	var errs []error
	for i := len(applied) - 1; i >= 0; i-- {
		comp := applied[i].Action.Compensate
		if comp == nil {
			continue
		}
		if err := e.applyCompensate(ctx, applied[i].Action.Namespace, *comp); err != nil {
			errs = append(errs, fmt.Errorf("compensate %s failed: %w", comp.Kind, err))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	msg := "rollback encountered errors: "
	for i, err := range errs {
		if i > 0 {
			msg += "; "
		}
		msg += err.Error()
	}
	return fmt.Errorf("%s", msg)
}

func (e *Executor) applyCompensate(ctx context.Context, namespace string, comp domain.CompensateDescriptor) error {
	action := domain.Action{
		Kind:       comp.Kind,
		Namespace:  namespace,
		Target:     comp.Params["target"],
		Deployment: comp.Params["deployment"],
		ConfigName: comp.Params["name"],
	}
	if v, ok := comp.Params["replicas"]; ok {
		var replicas int32
		fmt.Sscanf(v, "%d", &replicas)
		action.Replicas = replicas
	}
	action.CPU = comp.Params["cpu"]
	action.Memory = comp.Params["memory"]
	return e.registry.Execute(ctx, action)
}

// computeCompensate derives the rollback recipe before the mutation is
// applied, reading current cluster state so the descriptor captures the
// pre-mutation value (e.g. the replica count to restore), not the
// action's target value.
func (e *Executor) computeCompensate(ctx context.Context, action domain.Action) *domain.CompensateDescriptor {
	switch action.Kind {
	case domain.ActionRestart:
		// Restarting a pod has no meaningful compensate; the replacement
		// pod created by its controller is the new steady state.
		return nil
	case domain.ActionScaleHorizontal:
		prior := int32(0)
		if d, err := e.client.GetDeployment(ctx, action.Namespace, action.Deployment); err == nil && d.Spec.Replicas != nil {
			prior = *d.Spec.Replicas
		}
		return &domain.CompensateDescriptor{
			Kind:   domain.ActionScaleHorizontal,
			Params: map[string]string{"deployment": action.Deployment, "replicas": fmt.Sprintf("%d", prior)},
		}
	case domain.ActionScaleVertical:
		params := map[string]string{"deployment": action.Deployment}
		if d, err := e.client.GetDeployment(ctx, action.Namespace, action.Deployment); err == nil && len(d.Spec.Template.Spec.Containers) > 0 {
			resources := d.Spec.Template.Spec.Containers[0].Resources
			if q, ok := resources.Limits[corev1.ResourceCPU]; ok {
				params["cpu"] = q.String()
			}
			if q, ok := resources.Limits[corev1.ResourceMemory]; ok {
				params["memory"] = q.String()
			}
		}
		return &domain.CompensateDescriptor{
			Kind:   domain.ActionScaleVertical,
			Params: params,
		}
	case domain.ActionPatchConfig:
		return &domain.CompensateDescriptor{
			Kind:   domain.ActionPatchConfig,
			Params: map[string]string{"name": action.ConfigName},
		}
	case domain.ActionRemoveIsolation:
		return nil
	default:
		return nil
	}
}

func (e *Executor) restart(ctx context.Context, action domain.Action) error {
	return e.client.DeletePod(ctx, action.Namespace, action.Target)
}

func (e *Executor) scaleHorizontal(ctx context.Context, action domain.Action) error {
	return e.client.ScaleDeployment(ctx, action.Namespace, action.Deployment, action.Replicas)
}

func (e *Executor) scaleVertical(ctx context.Context, action domain.Action) error {
	resources, err := k8s.ResourceRequirements{CPULimit: action.CPU, MemoryLimit: action.Memory}.ToK8sResourceRequirements()
	if err != nil {
		return fmt.Errorf("invalid resource quantities: %w", err)
	}
	return e.client.PatchDeploymentResources(ctx, action.Namespace, action.Deployment, resources)
}

func (e *Executor) patchConfig(ctx context.Context, action domain.Action) error {
	return e.client.PatchConfigMap(ctx, action.Namespace, action.ConfigName, action.Patch)
}

// removeIsolation deletes the deny-all NetworkPolicy installed for this
// target. Idempotent: deleting an already-absent policy is a success.
func (e *Executor) removeIsolation(ctx context.Context, action domain.Action) error {
	name := isolationPolicyName(action.Target)
	return e.client.DeleteNetworkPolicy(ctx, action.Namespace, name)
}

// InstallIsolation creates the deny-all NetworkPolicy for Hard isolation
// (spec §6). It is not part of the Action registry and has no caller in
// this module: the Containment Agent installs its policies through
// K8sIsolationApplier (pkg/containment) instead.
func (e *Executor) InstallIsolation(ctx context.Context, namespace, target string) error {
	policy := &networkingv1.NetworkPolicy{
		ObjectMeta: metav1.ObjectMeta{Name: isolationPolicyName(target), Namespace: namespace},
		Spec: networkingv1.NetworkPolicySpec{
			PodSelector: metav1.LabelSelector{MatchLabels: map[string]string{"recist.io/target": target}},
			PolicyTypes: []networkingv1.PolicyType{networkingv1.PolicyTypeIngress, networkingv1.PolicyTypeEgress},
		},
	}
	return e.client.CreateNetworkPolicy(ctx, namespace, policy)
}

func isolationPolicyName(target string) string {
	return fmt.Sprintf("recist-isolate-%s", target)
}

func (e *Executor) now() time.Time {
	return time.Now().UTC()
}
