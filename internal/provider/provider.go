// Package provider defines the contract between the chat engine and
// LLM completion backends. Concrete implementations live in separate
// modules (e.g. modules/provider/anthropic) and also implement
// core.Module for lifecycle management.
package provider

import "context"

// Provider is the interface for communicating with an LLM.
type Provider interface {
	// Complete sends a completion request and returns the full response.
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)

	// Stream sends a completion request and returns a channel of chunks.
	// Initial connection errors are returned directly. Mid-stream errors
	// are delivered via StreamChunk.Err. The channel is closed when the
	// stream ends; the sequence is finite and non-restartable.
	Stream(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error)

	// ContextWindowSize returns the maximum context window in tokens.
	ContextWindowSize() int

	// ModelName returns the identifier of the underlying model.
	ModelName() string
}

// ServiceName is the AppContext service key under which the active
// provider module registers itself.
const ServiceName = "provider.llm"
