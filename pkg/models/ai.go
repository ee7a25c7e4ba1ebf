// Package models contains shared data models used across the service.
package models

import "context"

// AIProvider is the core interface that all AI integrations must implement.
// Handlers and services depend on this interface, never on a concrete provider.
type AIProvider interface {
	// Complete sends a single prompt and returns the model's text output.
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
	// Name returns the provider identifier (e.g., "openai", "anthropic").
	Name() string
}

// CompletionRequest is the input to a single model call.
type CompletionRequest struct {
	System    string
	Prompt    string
	MaxTokens int
	// JSON asks the provider to constrain output to a single JSON object when it can.
	JSON bool
}

// Completion is the raw output of a model call.
type Completion struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
}
