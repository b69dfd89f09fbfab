package kubecmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"deploypilot/app/core/llm"
)

const systemPrompt = "You are a kubectl command generator. Return only valid kubectl commands, no explanations."

// ErrDestructiveCommand is returned when the generated command would
// delete or disrupt cluster resources and the caller did not opt in.
var ErrDestructiveCommand = errors.New("generated command is destructive")

var destructiveVerbs = []string{"delete", "drain", "replace --force", "evict"}

type Generator struct {
	completer        llm.Completer
	allowDestructive bool
}

func NewGenerator(completer llm.Completer, allowDestructive bool) *Generator {
	return &Generator{completer: completer, allowDestructive: allowDestructive}
}

// Generate turns a natural-language query into a kubectl command line.
func (g *Generator) Generate(ctx context.Context, query string) (string, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return "", fmt.Errorf("empty query")
	}

	reply, err := g.completer.Complete(ctx, llm.Request{
		System:    systemPrompt,
		Prompt:    "Convert to kubectl command: " + trimmed,
		MaxTokens: 100,
	})
	if err != nil {
		return "", fmt.Errorf("generate kubectl command: %w", err)
	}

	command := firstLine(llm.StripFences(reply))
	if command == "" {
		return "", fmt.Errorf("model returned no command")
	}
	if !strings.HasPrefix(command, "kubectl") {
		return "", fmt.Errorf("model returned a non-kubectl command: %s", command)
	}
	if !g.allowDestructive && IsDestructive(command) {
		return "", fmt.Errorf("%w: %s", ErrDestructiveCommand, command)
	}
	return command, nil
}

// IsDestructive flags verbs that mutate or remove resources. The
// check is deliberately coarse: false positives are cheaper than an
// accidental delete pasted into a terminal.
func IsDestructive(command string) bool {
	lower := strings.ToLower(command)
	for _, verb := range destructiveVerbs {
		if strings.Contains(lower, "kubectl "+verb) || strings.Contains(lower, " "+verb+" ") || strings.HasSuffix(lower, " "+verb) {
			return true
		}
	}
	return false
}

func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}
