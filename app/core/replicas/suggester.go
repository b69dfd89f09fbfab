package replicas

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	config "deploypilot/app/configs"
	"deploypilot/app/core/kube"
	"deploypilot/app/core/llm"
)

const (
	ConfidenceLow     = "LOW"
	ConfidenceMedium  = "MEDIUM"
	ConfidenceHigh    = "HIGH"
	ConfidenceUnknown = "UNKNOWN"
)

const systemPrompt = "You are a Kubernetes expert. Return JSON only."

type Suggestion struct {
	SuggestedReplicas int64  `json:"suggested_replicas"`
	Reason            string `json:"reason"`
	Confidence        string `json:"confidence"`
	Clamped           bool   `json:"clamped,omitempty"`
}

type Suggester struct {
	completer llm.Completer
	min       int64
	max       int64
}

func NewSuggester(completer llm.Completer, cfg config.ReplicaConfig) *Suggester {
	return &Suggester{
		completer: completer,
		min:       int64(cfg.Min),
		max:       int64(cfg.Max),
	}
}

// Suggest asks the model for a replica count and clamps whatever comes
// back into the configured [min, max] band.
func (s *Suggester) Suggest(ctx context.Context, metrics kube.Metrics, trafficPattern string) (Suggestion, error) {
	if strings.TrimSpace(trafficPattern) == "" {
		trafficPattern = "normal"
	}

	reply, err := s.completer.Complete(ctx, llm.Request{
		System:    systemPrompt,
		Prompt:    buildPrompt(metrics, trafficPattern, s.min),
		MaxTokens: 200,
	})
	if err != nil {
		return Suggestion{}, fmt.Errorf("replica suggestion: %w", err)
	}

	result, err := llm.DecodeJSONReply(reply)
	if err != nil {
		return Suggestion{}, fmt.Errorf("replica suggestion: %w", err)
	}

	field := result.Get("suggested_replicas")
	if !field.Exists() || field.Type != gjson.Number {
		return Suggestion{}, fmt.Errorf("replica suggestion: suggested_replicas missing or not a number")
	}

	suggestion := Suggestion{
		SuggestedReplicas: field.Int(),
		Reason:            strings.TrimSpace(result.Get("reason").String()),
		Confidence:        NormalizeConfidence(result.Get("confidence").String()),
	}
	if suggestion.Reason == "" {
		suggestion.Reason = "No reason provided"
	}

	clamped := clamp(suggestion.SuggestedReplicas, s.min, s.max)
	if clamped != suggestion.SuggestedReplicas {
		suggestion.SuggestedReplicas = clamped
		suggestion.Clamped = true
	}
	return suggestion, nil
}

func NormalizeConfidence(raw string) string {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case ConfidenceLow:
		return ConfidenceLow
	case ConfidenceMedium:
		return ConfidenceMedium
	case ConfidenceHigh:
		return ConfidenceHigh
	default:
		return ConfidenceUnknown
	}
}

func clamp(value, min, max int64) int64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func buildPrompt(metrics kube.Metrics, trafficPattern string, minReplicas int64) string {
	var b strings.Builder
	b.WriteString("Based on these Kubernetes deployment metrics, suggest optimal replica count:\n\n")
	fmt.Fprintf(&b, "Current replicas: %d\n", metrics.Replicas)
	fmt.Fprintf(&b, "Ready replicas: %d\n", metrics.ReadyReplicas)
	fmt.Fprintf(&b, "Available replicas: %d\n", metrics.AvailableReplicas)
	fmt.Fprintf(&b, "Traffic pattern: %s\n\n", trafficPattern)
	b.WriteString("Consider:\n")
	fmt.Fprintf(&b, "- High availability (minimum %d replicas)\n", minReplicas)
	b.WriteString("- Cost optimization\n")
	b.WriteString("- Traffic patterns\n")
	b.WriteString("- Resource utilization\n\n")
	b.WriteString("Return JSON with keys: suggested_replicas (number), reason (string), confidence (LOW/MEDIUM/HIGH)")
	return b.String()
}
