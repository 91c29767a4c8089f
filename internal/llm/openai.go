package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperjump/kioku/internal/models"
)

// OpenAIClient completes prompts against an OpenAI-compatible chat API.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// OpenAIConfig holds chat API settings. BaseURL may point at any
// OpenAI-compatible endpoint; empty uses the official API.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// NewOpenAIClient creates a chat client.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("chat API key is not configured")
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
	}, nil
}

// Complete sends prompt as a single user message and returns the reply text.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", models.NewTransportError("chat completion", err)
	}
	if len(resp.Choices) == 0 {
		return "", models.NewTransportError("chat completion", fmt.Errorf("no choices returned"))
	}
	return resp.Choices[0].Message.Content, nil
}
