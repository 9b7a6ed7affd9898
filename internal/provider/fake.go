package provider

import (
	"context"
	"sync"
)

// FakeProvider returns a canned reply and records the requests it saw.
type FakeProvider struct {
	ResponseText string
	Error        error

	mu       sync.Mutex
	requests []*Request
}

func (f *FakeProvider) ChatCompletion(ctx context.Context, req *Request) (*Response, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.Error != nil {
		return nil, f.Error
	}

	return &Response{
		Message: Message{
			Role:    "assistant",
			Content: f.ResponseText,
		},
		Usage: Usage{
			PromptTokens:     2,
			CompletionTokens: 3,
			TotalTokens:      5,
		},
	}, nil
}

// Requests returns the requests received so far.
func (f *FakeProvider) Requests() []*Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Request(nil), f.requests...)
}

func NewFake(response string) *FakeProvider {
	return &FakeProvider{ResponseText: response}
}
