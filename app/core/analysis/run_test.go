package analysis

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	config "deploypilot/app/configs"
	"deploypilot/app/core/kube"
	"deploypilot/app/core/llm"
	"deploypilot/app/core/replicas"
	"deploypilot/app/core/triage"
)

type fakeKube struct {
	metrics kube.Metrics
	err     error
}

func (f *fakeKube) Metrics(ctx context.Context, deployment string) (kube.Metrics, error) {
	if f.err != nil {
		return kube.Metrics{}, f.err
	}
	return f.metrics, nil
}

type fakeLogs struct {
	logs string
	err  error
}

func (f *fakeLogs) FetchWindow(ctx context.Context, hoursBack int) (string, error) {
	return f.logs, f.err
}

type fakeCompleter struct {
	replies map[string]string
}

func (f *fakeCompleter) Complete(ctx context.Context, req llm.Request) (string, error) {
	for marker, reply := range f.replies {
		if marker == "" || strings.Contains(req.Prompt, marker) {
			return reply, nil
		}
	}
	return "", fmt.Errorf("no canned reply for prompt")
}

func aiDeps(kubeDep HealthChecker, logs LogFetcher, completer llm.Completer) Deps {
	return Deps{
		Kube:     kubeDep,
		Logs:     logs,
		Triage:   triage.NewAnalyzer(completer, config.LogsConfig{PromptCharCap: 5000}, config.RollbackConfig{ErrorThreshold: 3}),
		Replicas: replicas.NewSuggester(completer, config.ReplicaConfig{Min: 2, Max: 10}),
	}
}

func defaultOptions() Options {
	return Options{
		Deployment:     "ideas-api",
		Namespace:      "ideas-api",
		HoursBack:      1,
		TrafficPattern: "normal",
		Now:            time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
	}
}

func TestRunHealthyDeploymentPassesGate(t *testing.T) {
	completer := &fakeCompleter{replies: map[string]string{
		"Analyze these application logs": `{"errors": [], "warnings": [], "severity": "LOW", "recommendations": []}`,
		"suggest optimal replica count":  `{"suggested_replicas": 3, "reason": "steady traffic", "confidence": "HIGH"}`,
	}}
	deps := aiDeps(
		&fakeKube{metrics: kube.Metrics{Replicas: 3, ReadyReplicas: 3, AvailableReplicas: 3}},
		&fakeLogs{logs: "INFO request served"},
		completer,
	)

	report := Run(context.Background(), deps, defaultOptions())
	if !report.Gate.Passed {
		t.Fatalf("expected gate pass, got failures=%v", report.Gate.Failures)
	}
	if !report.Health.Healthy {
		t.Fatalf("expected healthy, got %+v", report.Health)
	}
	if report.Triage.Rollback {
		t.Fatal("LOW severity should not recommend rollback")
	}
	if report.Replicas.Suggestion.SuggestedReplicas != 3 {
		t.Fatalf("unexpected replica suggestion: %+v", report.Replicas)
	}
	if report.GeneratedAt != "2026-08-30T10:00:00Z" {
		t.Fatalf("unexpected timestamp: %s", report.GeneratedAt)
	}
}

func TestRunUnhealthyDeploymentFailsGate(t *testing.T) {
	deps := Deps{Kube: &fakeKube{metrics: kube.Metrics{Replicas: 3, ReadyReplicas: 1}}}

	report := Run(context.Background(), deps, defaultOptions())
	if report.Gate.Passed {
		t.Fatal("expected gate fail for unhealthy deployment")
	}
	if len(report.Gate.Failures) == 0 {
		t.Fatal("expected a gate failure entry")
	}
}

func TestRunCriticalLogsRecommendRollback(t *testing.T) {
	completer := &fakeCompleter{replies: map[string]string{
		"Analyze these application logs": `{"errors": ["panic"], "warnings": [], "severity": "CRITICAL", "recommendations": ["rollback"]}`,
		"suggest optimal replica count":  `{"suggested_replicas": 2, "reason": "", "confidence": "LOW"}`,
	}}
	deps := aiDeps(
		&fakeKube{metrics: kube.Metrics{Replicas: 2, ReadyReplicas: 2}},
		&fakeLogs{logs: "panic: runtime error"},
		completer,
	)

	report := Run(context.Background(), deps, defaultOptions())
	if !report.Triage.Rollback {
		t.Fatal("expected rollback recommendation")
	}
	if report.Gate.Passed {
		t.Fatal("rollback recommendation should fail the gate")
	}
}

func TestRunWithoutCompleterSkipsAIStages(t *testing.T) {
	deps := Deps{Kube: &fakeKube{metrics: kube.Metrics{Replicas: 2, ReadyReplicas: 2}}}

	report := Run(context.Background(), deps, defaultOptions())
	if !report.Gate.Passed {
		t.Fatalf("healthy deployment without AI should pass, failures=%v", report.Gate.Failures)
	}
	if !report.Triage.Skipped || !report.Replicas.Skipped {
		t.Fatalf("expected AI stages skipped: triage=%+v replicas=%+v", report.Triage, report.Replicas)
	}
}

func TestRunEmptyLogWindowIsSkipNotError(t *testing.T) {
	completer := &fakeCompleter{replies: map[string]string{
		"suggest optimal replica count": `{"suggested_replicas": 2, "reason": "", "confidence": "LOW"}`,
	}}
	deps := aiDeps(
		&fakeKube{metrics: kube.Metrics{Replicas: 2, ReadyReplicas: 2}},
		&fakeLogs{logs: ""},
		completer,
	)

	report := Run(context.Background(), deps, defaultOptions())
	if !report.Triage.Skipped {
		t.Fatalf("expected triage skip for empty window: %+v", report.Triage)
	}
	if report.Triage.SkipReason != "no logs in window" {
		t.Fatalf("unexpected skip reason: %s", report.Triage.SkipReason)
	}
	if !report.Gate.Passed {
		t.Fatalf("empty log window should not fail the gate: %v", report.Gate.Failures)
	}
}

func TestRunLogFetchErrorIsWarningNotFailure(t *testing.T) {
	completer := &fakeCompleter{replies: map[string]string{
		"suggest optimal replica count": `{"suggested_replicas": 2, "reason": "", "confidence": "LOW"}`,
	}}
	deps := aiDeps(
		&fakeKube{metrics: kube.Metrics{Replicas: 2, ReadyReplicas: 2}},
		&fakeLogs{err: fmt.Errorf("throttled")},
		completer,
	)

	report := Run(context.Background(), deps, defaultOptions())
	if !report.Gate.Passed {
		t.Fatalf("log fetch error should not fail the gate: %v", report.Gate.Failures)
	}
	if len(report.Gate.Warnings) == 0 {
		t.Fatal("expected a gate warning for log fetch error")
	}
}

func TestRunKubeErrorFailsGate(t *testing.T) {
	deps := Deps{Kube: &fakeKube{err: fmt.Errorf("exit code 1: connection refused")}}

	report := Run(context.Background(), deps, defaultOptions())
	if report.Gate.Passed {
		t.Fatal("kube error should fail the gate")
	}
	if report.Health.Checked {
		t.Fatal("health should not be marked checked on error")
	}
}

func TestSkippableCompleterErr(t *testing.T) {
	if !SkippableCompleterErr(llm.ErrNoAPIKey) {
		t.Fatal("ErrNoAPIKey should be skippable")
	}
	if SkippableCompleterErr(fmt.Errorf("boom")) {
		t.Fatal("arbitrary errors are not skippable")
	}
}
