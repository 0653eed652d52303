package core

import "context"

// Generator produces model text for an input under a system prompt.
type Generator interface {
	Name() string
	Generate(ctx context.Context, input string, opts GenerateOptions) (Response, error)
}
