package provider

import (
	"context"
)

// Client is an interface for invoking hosted model providers.
// This allows mocking in tests without making real API calls.
type Client interface {
	Invoke(ctx context.Context, request Request) (*Response, error)
}

type Request struct {
	Prompt      string
	MaxTokens   int
	Temperature float64
}

type Response struct {
	Content      string
	ModelVersion string
	StopReason   string
}
