package triage

import (
	"context"
	"fmt"
	"strings"

	config "deploypilot/app/configs"
	"deploypilot/app/core/llm"
	"deploypilot/app/core/logsource"
)

const (
	SeverityLow      = "LOW"
	SeverityMedium   = "MEDIUM"
	SeverityHigh     = "HIGH"
	SeverityCritical = "CRITICAL"
	SeverityUnknown  = "UNKNOWN"
)

const systemPrompt = "You are a DevOps engineer analyzing application logs. Return JSON only."

type Analysis struct {
	Errors          []string `json:"errors"`
	Warnings        []string `json:"warnings"`
	Severity        string   `json:"severity"`
	Recommendations []string `json:"recommendations"`
}

type Analyzer struct {
	completer      llm.Completer
	promptCharCap  int
	errorThreshold int
}

func NewAnalyzer(completer llm.Completer, logsCfg config.LogsConfig, rollbackCfg config.RollbackConfig) *Analyzer {
	return &Analyzer{
		completer:      completer,
		promptCharCap:  logsCfg.PromptCharCap,
		errorThreshold: rollbackCfg.ErrorThreshold,
	}
}

// Analyze forwards a capped log block to the model and parses the
// structured triage out of its reply.
func (a *Analyzer) Analyze(ctx context.Context, logs string) (Analysis, error) {
	if strings.TrimSpace(logs) == "" {
		return Analysis{}, fmt.Errorf("no logs to analyze")
	}

	reply, err := a.completer.Complete(ctx, llm.Request{
		System: systemPrompt,
		Prompt: buildPrompt(logsource.Truncate(logs, a.promptCharCap)),
	})
	if err != nil {
		return Analysis{}, fmt.Errorf("log triage: %w", err)
	}

	result, err := llm.DecodeJSONReply(reply)
	if err != nil {
		return Analysis{}, fmt.Errorf("log triage: %w", err)
	}

	analysis := Analysis{
		Errors:          llm.StringList(result, "errors"),
		Warnings:        llm.StringList(result, "warnings"),
		Severity:        NormalizeSeverity(result.Get("severity").String()),
		Recommendations: llm.StringList(result, "recommendations"),
	}
	return analysis, nil
}

// ShouldRollback applies the rollback policy: CRITICAL always rolls
// back, HIGH rolls back once the error count exceeds the threshold.
func (a *Analyzer) ShouldRollback(analysis Analysis) bool {
	switch analysis.Severity {
	case SeverityCritical:
		return true
	case SeverityHigh:
		return len(analysis.Errors) > a.errorThreshold
	default:
		return false
	}
}

func NormalizeSeverity(raw string) string {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case SeverityLow:
		return SeverityLow
	case SeverityMedium:
		return SeverityMedium
	case SeverityHigh:
		return SeverityHigh
	case SeverityCritical:
		return SeverityCritical
	default:
		return SeverityUnknown
	}
}

func buildPrompt(logs string) string {
	var b strings.Builder
	b.WriteString("Analyze these application logs and provide:\n")
	b.WriteString("1. List of errors (if any)\n")
	b.WriteString("2. List of warnings (if any)\n")
	b.WriteString("3. Severity level (LOW, MEDIUM, HIGH, CRITICAL)\n")
	b.WriteString("4. Recommendations for fixing issues\n\n")
	b.WriteString("Logs:\n")
	b.WriteString(logs)
	b.WriteString("\n\nFormat response as JSON with keys: errors, warnings, severity, recommendations")
	return b.String()
}
