package model

import (
	"context"
	"time"

	"prompetition/pkg/core"
)

// MockGenerator returns canned text without any network call. With no
// configuration it echoes the input, which makes a perfectly scoring
// prompt trivial to set up in tests.
type MockGenerator struct {
	NameValue    string
	ResponseText string
	// Responses overrides ResponseText for specific inputs.
	Responses map[string]string
	// Err fails every call, exercising the executor's failure path.
	Err error
	// Delay simulates call latency.
	Delay time.Duration
}

func (m MockGenerator) Name() string {
	if m.NameValue == "" {
		return "mock"
	}
	return m.NameValue
}

func (m MockGenerator) Generate(ctx context.Context, input string, _ core.GenerateOptions) (core.Response, error) {
	start := time.Now()
	if m.Delay > 0 {
		select {
		case <-ctx.Done():
			return core.Response{}, ctx.Err()
		case <-time.After(m.Delay):
		}
	}
	if m.Err != nil {
		return core.Response{}, m.Err
	}

	content := input
	if m.ResponseText != "" {
		content = m.ResponseText
	}
	if text, ok := m.Responses[input]; ok {
		content = text
	}
	return core.Response{
		Content: content,
		Latency: time.Since(start),
	}, nil
}
