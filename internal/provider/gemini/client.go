package gemini

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"github.com/guardkit/guardkit/internal/provider"
	"google.golang.org/api/option"
)

type Client struct {
	client  *genai.Client
	ModelID string
}

func NewClient(ctx context.Context, apiKey string, modelID string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if modelID == "" {
		return nil, fmt.Errorf("Gemini model ID is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("unable to create gemini client: %w", err)
	}

	return &Client{
		client:  client,
		ModelID: modelID,
	}, nil
}

func (c *Client) Invoke(ctx context.Context, request provider.Request) (*provider.Response, error) {
	model := c.client.GenerativeModel(c.ModelID)

	temperature := float32(request.Temperature)
	maxTokens := int32(request.MaxTokens)
	model.GenerationConfig = genai.GenerationConfig{
		Temperature:     &temperature,
		MaxOutputTokens: &maxTokens,
	}

	resp, err := model.GenerateContent(ctx, genai.Text(request.Prompt))
	if err != nil {
		return nil, fmt.Errorf("unable to invoke gemini model: %w", err)
	}

	content := firstText(resp)
	if content == "" {
		return nil, fmt.Errorf("empty gemini response")
	}

	return &provider.Response{
		Content:      content,
		ModelVersion: c.ModelID,
	}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func firstText(resp *genai.GenerateContentResponse) string {
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				return string(text)
			}
		}
	}
	return ""
}
