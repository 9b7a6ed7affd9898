// Package provider talks to upstream chat-completion models used by the
// field verifier.
package provider

import (
	"context"
)

// Message is a normalized chat message.
type Message struct {
	Role    string
	Content string
}

// Request is a normalized chat request.
type Request struct {
	Model    string
	Messages []Message
	// JSON asks the backend for a JSON-only reply when it supports it.
	JSON bool
}

// Usage holds token accounting.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Response is a normalized chat reply.
type Response struct {
	Message Message
	Usage   Usage
}

// Provider is the interface for all upstream LLM providers.
type Provider interface {
	ChatCompletion(ctx context.Context, req *Request) (*Response, error)
}
