package core

import "context"

// Options controls model behavior; fields are optional per provider.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int
	SystemPrompt        string
}

// Client is a provider-agnostic interface for the narrative oracle. The
// returned text is opaque to the pipeline beyond length-bounding.
type Client interface {
	GenerateNarrative(ctx context.Context, evidenceSummary string, opts Options) (string, error)
}
