package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"deploypilot/app/core/kube"
	"deploypilot/app/core/llm"
	"deploypilot/app/core/replicas"
	"deploypilot/app/core/triage"
	"deploypilot/app/pkg/logger"
)

// HealthChecker and LogFetcher narrow the kube/logsource clients so the
// driver can run against fakes.
type HealthChecker interface {
	Metrics(ctx context.Context, deployment string) (kube.Metrics, error)
}

type LogFetcher interface {
	FetchWindow(ctx context.Context, hoursBack int) (string, error)
}

type Deps struct {
	Kube     HealthChecker
	Logs     LogFetcher
	Triage   *triage.Analyzer
	Replicas *replicas.Suggester
	Trail    *Trail
}

type Options struct {
	Deployment     string
	Namespace      string
	HoursBack      int
	TrafficPattern string
	Now            time.Time
}

type Report struct {
	GeneratedAt string         `json:"generated_at"`
	Namespace   string         `json:"namespace"`
	Deployment  string         `json:"deployment"`
	Health      HealthSection  `json:"health"`
	Triage      TriageSection  `json:"triage"`
	Replicas    ReplicaSection `json:"replicas"`
	Gate        GateResult     `json:"gate"`
}

type HealthSection struct {
	Checked       bool   `json:"checked"`
	Healthy       bool   `json:"healthy"`
	ReadyReplicas int64  `json:"ready_replicas"`
	Replicas      int64  `json:"replicas"`
	Error         string `json:"error,omitempty"`
}

type TriageSection struct {
	Skipped    bool            `json:"skipped"`
	SkipReason string          `json:"skip_reason,omitempty"`
	Analysis   triage.Analysis `json:"analysis"`
	Rollback   bool            `json:"rollback_recommended"`
	Error      string          `json:"error,omitempty"`
}

type ReplicaSection struct {
	Skipped    bool                `json:"skipped"`
	SkipReason string              `json:"skip_reason,omitempty"`
	Current    int64               `json:"current"`
	Suggestion replicas.Suggestion `json:"suggestion"`
	Error      string              `json:"error,omitempty"`
}

type GateResult struct {
	Passed   bool     `json:"passed"`
	Failures []string `json:"failures,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Run performs the one-shot post-deploy analysis: health, log triage
// with the rollback recommendation, and the replica suggestion. AI
// stages degrade to skips when no completer is configured; the health
// check always runs and decides the gate.
func Run(ctx context.Context, deps Deps, opts Options) Report {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	report := Report{
		GeneratedAt: now.UTC().Format(time.RFC3339),
		Namespace:   opts.Namespace,
		Deployment:  opts.Deployment,
		Gate: GateResult{
			Failures: make([]string, 0),
			Warnings: make([]string, 0),
		},
	}

	metrics, err := deps.Kube.Metrics(ctx, opts.Deployment)
	if err != nil {
		report.Health.Error = err.Error()
		report.Gate.Failures = append(report.Gate.Failures, fmt.Sprintf("deployment health check failed: %v", err))
	} else {
		health := kube.HealthFromMetrics(metrics)
		report.Health = HealthSection{
			Checked:       true,
			Healthy:       health.Healthy,
			ReadyReplicas: health.ReadyReplicas,
			Replicas:      health.Replicas,
		}
		if !health.Healthy {
			report.Gate.Failures = append(report.Gate.Failures,
				fmt.Sprintf("deployment unhealthy: %d/%d replicas ready", health.ReadyReplicas, health.Replicas))
		}
	}
	deps.record(StageHealth, decisionText(report.Health.Checked && report.Health.Healthy, "healthy", "unhealthy"),
		fmt.Sprintf("%d/%d replicas ready", report.Health.ReadyReplicas, report.Health.Replicas))

	report.Triage = runTriage(ctx, deps, opts)
	if report.Triage.Rollback {
		report.Gate.Failures = append(report.Gate.Failures, "rollback recommended by log triage")
	}
	if report.Triage.Error != "" {
		report.Gate.Warnings = append(report.Gate.Warnings, "log triage failed: "+report.Triage.Error)
	}

	report.Replicas = runReplicas(ctx, deps, opts, metrics)
	if report.Replicas.Error != "" {
		report.Gate.Warnings = append(report.Gate.Warnings, "replica suggestion failed: "+report.Replicas.Error)
	}

	report.Gate.Passed = len(report.Gate.Failures) == 0
	deps.record(StageGate, decisionText(report.Gate.Passed, "pass", "fail"), strings.Join(report.Gate.Failures, "; "))
	return report
}

func runTriage(ctx context.Context, deps Deps, opts Options) TriageSection {
	section := TriageSection{}
	if deps.Triage == nil {
		section.Skipped = true
		section.SkipReason = "OPENAI_API_KEY not set"
		deps.record(StageTriage, "skipped", section.SkipReason)
		return section
	}
	if deps.Logs == nil {
		section.Skipped = true
		section.SkipReason = "log source not configured"
		deps.record(StageTriage, "skipped", section.SkipReason)
		return section
	}

	logs, err := deps.Logs.FetchWindow(ctx, opts.HoursBack)
	if err != nil {
		section.Error = err.Error()
		deps.record(StageTriage, "error", section.Error)
		return section
	}
	if strings.TrimSpace(logs) == "" {
		// Normal for a fresh deployment.
		section.Skipped = true
		section.SkipReason = "no logs in window"
		deps.record(StageTriage, "skipped", section.SkipReason)
		return section
	}

	analysis, err := deps.Triage.Analyze(ctx, logs)
	if err != nil {
		section.Error = err.Error()
		deps.record(StageTriage, "error", section.Error)
		return section
	}
	section.Analysis = analysis
	section.Rollback = deps.Triage.ShouldRollback(analysis)
	deps.record(StageTriage, decisionText(section.Rollback, "rollback", "keep"),
		fmt.Sprintf("severity=%s errors=%d", analysis.Severity, len(analysis.Errors)))
	return section
}

func runReplicas(ctx context.Context, deps Deps, opts Options, metrics kube.Metrics) ReplicaSection {
	section := ReplicaSection{Current: metrics.Replicas}
	if deps.Replicas == nil {
		section.Skipped = true
		section.SkipReason = "OPENAI_API_KEY not set"
		deps.record(StageReplicas, "skipped", section.SkipReason)
		return section
	}

	suggestion, err := deps.Replicas.Suggest(ctx, metrics, opts.TrafficPattern)
	if err != nil {
		section.Error = err.Error()
		deps.record(StageReplicas, "error", section.Error)
		return section
	}
	section.Suggestion = suggestion
	deps.record(StageReplicas, fmt.Sprintf("suggest=%d", suggestion.SuggestedReplicas),
		fmt.Sprintf("confidence=%s current=%d", suggestion.Confidence, metrics.Replicas))
	return section
}

func (d Deps) record(stage, decision, reason string) {
	if d.Trail == nil {
		return
	}
	if err := d.Trail.Append(stage, decision, reason); err != nil {
		logger.Warn("audit append failed: %v", err)
	}
}

func decisionText(ok bool, yes, no string) string {
	if ok {
		return yes
	}
	return no
}

// SkippableCompleterErr reports whether an LLM construction error means
// "run without AI stages" rather than "abort".
func SkippableCompleterErr(err error) bool {
	return errors.Is(err, llm.ErrNoAPIKey)
}
