package model

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"prompetition/pkg/core"
)

const defaultAnthropicModel = "claude-3-5-haiku-latest"

// AnthropicGenerator calls the Anthropic Messages API. Single attempt
// per Generate, same as the OpenAI client.
type AnthropicGenerator struct {
	Client    anthropic.Client
	Model     string
	Timeout   time.Duration
	MaxTokens int
}

// NewAnthropicFromEnv builds a client from ANTHROPIC_API_KEY.
func NewAnthropicFromEnv(modelName string) (*AnthropicGenerator, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return nil, errors.New("anthropic: ANTHROPIC_API_KEY is required")
	}
	if modelName == "" {
		modelName = defaultAnthropicModel
	}
	return &AnthropicGenerator{
		Client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		Model:     modelName,
		Timeout:   30 * time.Second,
		MaxTokens: 1024,
	}, nil
}

func (a AnthropicGenerator) Name() string {
	if a.Model == "" {
		return defaultAnthropicModel
	}
	return a.Model
}

func (a AnthropicGenerator) Generate(ctx context.Context, input string, opts core.GenerateOptions) (core.Response, error) {
	timeout := a.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxTokens := a.MaxTokens
	if opts.MaxTokens > 0 {
		maxTokens = opts.MaxTokens
	}
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.Name()),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(input)),
		},
	}
	if opts.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: opts.SystemPrompt},
		}
	}
	if opts.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(opts.Temperature))
	}
	if opts.TopP > 0 {
		params.TopP = anthropic.Float(float64(opts.TopP))
	}
	if len(opts.Stop) > 0 {
		params.StopSequences = opts.Stop
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	message, err := a.Client.Messages.New(callCtx, params)
	if err != nil {
		return core.Response{}, fmt.Errorf("anthropic: %w", err)
	}

	usage := core.TokenUsage{
		PromptTokens:     int(message.Usage.InputTokens),
		CompletionTokens: int(message.Usage.OutputTokens),
	}
	usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	return core.Response{
		Content:    extractAnthropicText(message.Content),
		TokenUsage: usage,
		Latency:    time.Since(start),
	}, nil
}

func extractAnthropicText(blocks []anthropic.ContentBlockUnion) string {
	var builder strings.Builder
	for _, block := range blocks {
		if block.Type == "text" {
			builder.WriteString(block.Text)
		}
	}
	return builder.String()
}
