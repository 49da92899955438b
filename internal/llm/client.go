package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Completer abstracts the completion primitive for testability. The response
// is raw model text; callers extract structured JSON from it themselves.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int32) (string, error)
	Close() error
}

// GeminiClient implements Completer using the google.golang.org/genai SDK.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a new Gemini client via Vertex AI backend.
func NewGeminiClient(ctx context.Context, projectID, region, model string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  projectID,
		Location: region,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiClient{
		client: client,
		model:  model,
	}, nil
}

func (c *GeminiClient) Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int32) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx,
		c.model,
		[]*genai.Content{
			{Parts: []*genai.Part{{Text: userPrompt}}, Role: "user"},
		},
		&genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{
				Parts: []*genai.Part{{Text: systemPrompt}},
			},
			Temperature:     genai.Ptr[float32](0.2),
			MaxOutputTokens: maxTokens,
		},
	)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return resp.Text(), nil
}

func (c *GeminiClient) Close() error {
	// The genai client doesn't have a Close method that returns error.
	return nil
}
