package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	config "deploypilot/app/configs"
)

// ErrNoAPIKey signals that AI-backed stages should be skipped, not failed.
var ErrNoAPIKey = errors.New("OPENAI_API_KEY not set")

// Completer is the single entry point everything AI-backed goes through.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

type Request struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

type Client struct {
	api         openai.Client
	model       string
	maxTokens   int
	temperature float64
	timeout     time.Duration
}

func NewClient(cfg config.ModelConfig) (*Client, error) {
	key := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if key == "" {
		return nil, ErrNoAPIKey
	}
	return &Client{
		api:         openai.NewClient(option.WithAPIKey(key)),
		model:       cfg.Name,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		timeout:     time.Duration(cfg.RequestTimeoutSec) * time.Second,
	}, nil
}

func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}
	temperature := req.Temperature
	if temperature <= 0 {
		temperature = c.temperature
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	resp, err := c.api.Chat.Completions.New(callCtx, openai.ChatCompletionNewParams{
		Model:               openai.ChatModel(c.model),
		Messages:            messages,
		MaxCompletionTokens: openai.Int(int64(maxTokens)),
		Temperature:         openai.Float(temperature),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("chat completion returned empty content")
	}
	return content, nil
}
