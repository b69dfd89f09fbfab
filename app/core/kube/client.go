package kube

import (
	"context"
	"fmt"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	config "deploypilot/app/configs"
	"deploypilot/app/pkg/cmdutil"
)

// Runner abstracts the kubectl invocation so tests can substitute
// canned output.
type Runner interface {
	Run(ctx context.Context, name string, args []string, timeout time.Duration) (string, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args []string, timeout time.Duration) (string, error) {
	return cmdutil.Run(ctx, name, args, timeout)
}

type Client struct {
	namespace string
	timeout   time.Duration
	runner    Runner
}

type Metrics struct {
	Replicas          int64 `json:"replicas"`
	ReadyReplicas     int64 `json:"ready_replicas"`
	AvailableReplicas int64 `json:"available_replicas"`
	UpdatedReplicas   int64 `json:"updated_replicas"`
}

type Health struct {
	Healthy       bool  `json:"healthy"`
	ReadyReplicas int64 `json:"ready_replicas"`
	Replicas      int64 `json:"replicas"`
}

func NewClient(cfg config.KubeConfig) *Client {
	return &Client{
		namespace: cfg.Namespace,
		timeout:   time.Duration(cfg.CommandTimeoutSec) * time.Second,
		runner:    execRunner{},
	}
}

// NewClientWithRunner exists for tests.
func NewClientWithRunner(cfg config.KubeConfig, runner Runner) *Client {
	c := NewClient(cfg)
	c.runner = runner
	return c
}

func RequireKubectl() error {
	return cmdutil.RequireExecutable("kubectl")
}

func (c *Client) Namespace() string {
	return c.namespace
}

func (c *Client) GetDeploymentJSON(ctx context.Context, deployment string) (string, error) {
	args := []string{"get", "deployment", deployment, "-n", c.namespace, "-o", "json"}
	out, err := c.runner.Run(ctx, "kubectl", args, c.timeout)
	if err != nil {
		return "", fmt.Errorf("get deployment %s/%s: %w", c.namespace, deployment, err)
	}
	if !gjson.Valid(out) {
		return "", fmt.Errorf("get deployment %s/%s: kubectl returned invalid JSON", c.namespace, deployment)
	}
	return out, nil
}

// Metrics reads replica counters from the deployment status. Missing
// fields read as zero, matching how a brand-new deployment looks.
func (c *Client) Metrics(ctx context.Context, deployment string) (Metrics, error) {
	raw, err := c.GetDeploymentJSON(ctx, deployment)
	if err != nil {
		return Metrics{}, err
	}
	status := gjson.Get(raw, "status")
	return Metrics{
		Replicas:          status.Get("replicas").Int(),
		ReadyReplicas:     status.Get("readyReplicas").Int(),
		AvailableReplicas: status.Get("availableReplicas").Int(),
		UpdatedReplicas:   status.Get("updatedReplicas").Int(),
	}, nil
}

// Health reports a deployment as healthy only when every desired
// replica is ready and at least one exists.
func (c *Client) Health(ctx context.Context, deployment string) (Health, error) {
	metrics, err := c.Metrics(ctx, deployment)
	if err != nil {
		return Health{}, err
	}
	return HealthFromMetrics(metrics), nil
}

func HealthFromMetrics(metrics Metrics) Health {
	return Health{
		Healthy:       metrics.ReadyReplicas == metrics.Replicas && metrics.ReadyReplicas > 0,
		ReadyReplicas: metrics.ReadyReplicas,
		Replicas:      metrics.Replicas,
	}
}

func (c *Client) RolloutStatus(ctx context.Context, deployment string) (string, error) {
	args := []string{"rollout", "status", "deployment/" + deployment, "-n", c.namespace}
	out, err := c.runner.Run(ctx, "kubectl", args, c.timeout)
	if err != nil {
		return "", fmt.Errorf("rollout status %s/%s: %w", c.namespace, deployment, err)
	}
	return out, nil
}

func (c *Client) RolloutUndo(ctx context.Context, deployment string) (string, error) {
	args := []string{"rollout", "undo", "deployment/" + deployment, "-n", c.namespace}
	out, err := c.runner.Run(ctx, "kubectl", args, c.timeout)
	if err != nil {
		return "", fmt.Errorf("rollout undo %s/%s: %w", c.namespace, deployment, err)
	}
	return out, nil
}

// Scale patches spec.replicas through a merge patch instead of
// `kubectl scale` so the applied payload is explicit and auditable.
func (c *Client) Scale(ctx context.Context, deployment string, replicas int64) error {
	if replicas < 0 {
		return fmt.Errorf("scale %s/%s: negative replica count %d", c.namespace, deployment, replicas)
	}
	patch, err := ScalePatch(replicas)
	if err != nil {
		return fmt.Errorf("scale %s/%s: %w", c.namespace, deployment, err)
	}
	args := []string{"patch", "deployment", deployment, "-n", c.namespace, "--type=merge", "-p", patch}
	if _, err := c.runner.Run(ctx, "kubectl", args, c.timeout); err != nil {
		return fmt.Errorf("scale %s/%s: %w", c.namespace, deployment, err)
	}
	return nil
}

func ScalePatch(replicas int64) (string, error) {
	patch, err := sjson.Set("{}", "spec.replicas", replicas)
	if err != nil {
		return "", fmt.Errorf("build scale patch: %w", err)
	}
	return patch, nil
}
