package triage

import (
	"context"
	"fmt"
	"strings"
	"testing"

	config "deploypilot/app/configs"
	"deploypilot/app/core/llm"
)

type fakeCompleter struct {
	reply   string
	err     error
	lastReq llm.Request
}

func (f *fakeCompleter) Complete(ctx context.Context, req llm.Request) (string, error) {
	f.lastReq = req
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func testAnalyzer(completer llm.Completer) *Analyzer {
	return NewAnalyzer(completer,
		config.LogsConfig{PromptCharCap: 5000},
		config.RollbackConfig{ErrorThreshold: 3})
}

func TestAnalyzeParsesReply(t *testing.T) {
	completer := &fakeCompleter{reply: `{
		"errors": ["db connection refused", "timeout on /ideas"],
		"warnings": ["high latency"],
		"severity": "high",
		"recommendations": ["check database pool"]
	}`}
	analyzer := testAnalyzer(completer)

	analysis, err := analyzer.Analyze(context.Background(), "ERROR db connection refused")
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if len(analysis.Errors) != 2 {
		t.Fatalf("unexpected errors: %v", analysis.Errors)
	}
	if analysis.Severity != SeverityHigh {
		t.Fatalf("severity not normalized: %s", analysis.Severity)
	}
	if len(analysis.Recommendations) != 1 {
		t.Fatalf("unexpected recommendations: %v", analysis.Recommendations)
	}
}

func TestAnalyzeCapsPromptLogs(t *testing.T) {
	completer := &fakeCompleter{reply: `{"severity": "LOW"}`}
	analyzer := NewAnalyzer(completer,
		config.LogsConfig{PromptCharCap: 100},
		config.RollbackConfig{ErrorThreshold: 3})

	logs := strings.Repeat("x", 10000)
	if _, err := analyzer.Analyze(context.Background(), logs); err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if len(completer.lastReq.Prompt) > 500 {
		t.Fatalf("prompt not capped: %d chars", len(completer.lastReq.Prompt))
	}
}

func TestAnalyzeRejectsEmptyLogs(t *testing.T) {
	analyzer := testAnalyzer(&fakeCompleter{reply: "{}"})
	if _, err := analyzer.Analyze(context.Background(), "   \n  "); err == nil {
		t.Fatal("expected error for empty logs")
	}
}

func TestAnalyzeWrapsCompleterError(t *testing.T) {
	analyzer := testAnalyzer(&fakeCompleter{err: fmt.Errorf("rate limited")})
	_, err := analyzer.Analyze(context.Background(), "some logs")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "log triage") {
		t.Fatalf("error not wrapped: %v", err)
	}
}

func TestAnalyzeRejectsProseReply(t *testing.T) {
	analyzer := testAnalyzer(&fakeCompleter{reply: "everything looks fine"})
	if _, err := analyzer.Analyze(context.Background(), "some logs"); err == nil {
		t.Fatal("expected decode error for prose reply")
	}
}

func TestShouldRollback(t *testing.T) {
	analyzer := testAnalyzer(&fakeCompleter{})
	cases := []struct {
		name     string
		analysis Analysis
		want     bool
	}{
		{"critical always rolls back", Analysis{Severity: SeverityCritical}, true},
		{"high with many errors", Analysis{Severity: SeverityHigh, Errors: []string{"a", "b", "c", "d"}}, true},
		{"high at threshold stays", Analysis{Severity: SeverityHigh, Errors: []string{"a", "b", "c"}}, false},
		{"medium never rolls back", Analysis{Severity: SeverityMedium, Errors: []string{"a", "b", "c", "d", "e"}}, false},
		{"unknown stays", Analysis{Severity: SeverityUnknown}, false},
	}
	for _, tc := range cases {
		if got := analyzer.ShouldRollback(tc.analysis); got != tc.want {
			t.Fatalf("%s: ShouldRollback = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestNormalizeSeverity(t *testing.T) {
	cases := map[string]string{
		"critical": SeverityCritical,
		" High ":   SeverityHigh,
		"LOW":      SeverityLow,
		"medium":   SeverityMedium,
		"weird":    SeverityUnknown,
		"":         SeverityUnknown,
	}
	for input, want := range cases {
		if got := NormalizeSeverity(input); got != want {
			t.Fatalf("NormalizeSeverity(%q) = %s, want %s", input, got, want)
		}
	}
}
