package model

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"

	"prompetition/pkg/core"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAIGenerator calls an OpenAI-compatible endpoint. Each Generate
// is a single attempt under a timeout; retrying is left to the
// caller's policy (the evaluation engine deliberately has none).
type OpenAIGenerator struct {
	Client  openai.Client
	Model   string
	Timeout time.Duration
}

// NewOpenAIFromEnv builds a client from OPENAI_API_KEY, and
// OPENAI_BASE_URL when set (the competition originally ran against a
// non-OpenAI chat-completion host).
func NewOpenAIFromEnv(modelName string) (*OpenAIGenerator, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("openai: OPENAI_API_KEY is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if modelName == "" {
		modelName = defaultOpenAIModel
	}
	return &OpenAIGenerator{
		Client:  openai.NewClient(opts...),
		Model:   modelName,
		Timeout: 30 * time.Second,
	}, nil
}

func (o OpenAIGenerator) Name() string {
	if o.Model == "" {
		return defaultOpenAIModel
	}
	return o.Model
}

func (o OpenAIGenerator) Generate(ctx context.Context, input string, opts core.GenerateOptions) (core.Response, error) {
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	params := responses.ResponseNewParams{
		Model: openai.ChatModel(o.Name()),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: openai.String(input),
		},
		Store: openai.Bool(false),
	}
	if opts.SystemPrompt != "" {
		params.Instructions = openai.String(opts.SystemPrompt)
	}
	if opts.Temperature > 0 {
		params.Temperature = openai.Float(float64(opts.Temperature))
	}
	if opts.MaxTokens > 0 {
		params.MaxOutputTokens = openai.Int(int64(opts.MaxTokens))
	}
	if opts.TopP > 0 {
		params.TopP = openai.Float(float64(opts.TopP))
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	resp, err := o.Client.Responses.New(callCtx, params)
	if err != nil {
		return core.Response{}, fmt.Errorf("openai: %w", err)
	}
	content := resp.OutputText()
	if content == "" {
		return core.Response{}, errors.New("openai: empty response")
	}
	return core.Response{
		Content: content,
		TokenUsage: core.TokenUsage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
		Latency: time.Since(start),
	}, nil
}
