package llm

import "context"

type GenerateOptions struct {
	Temperature     float32
	MaxOutputTokens int32
}

type Provider interface {
	// Generate runs a single bounded completion and returns the full text.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
	Close() error
}
