package llm

import (
	"context"
	"errors"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Client is the single capability the analyzer needs from a completion
// service: submit a two-role (system/user) text prompt, receive free text.
type Client interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// DefaultModel is used when no model is configured. gpt-3.5-turbo matches
// the token budget and latency profile of a single-form analysis.
const DefaultModel = "gpt-3.5-turbo"

// requestTimeout bounds each completion call. The service is never retried;
// a timeout goes straight to the caller's fallback path.
const requestTimeout = 30 * time.Second

// OpenAIClient calls the OpenAI chat-completion API. Sampling temperature is
// pinned near zero to favor literal, structured output, and the token budget
// is sized for a multi-category JSON answer.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient constructs an OpenAI-backed client. The API key must be
// non-empty; model falls back to DefaultModel when blank.
func NewOpenAIClient(apiKey, model string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}
	if model == "" {
		model = DefaultModel
	}
	return &OpenAIClient{
		client: openai.NewClient(apiKey),
		model:  model,
	}, nil
}

// Complete sends the system instruction and user content to the chat
// completion API and returns the assistant's raw text response.
func (c *OpenAIClient) Complete(ctx context.Context, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		MaxTokens:   1200,
		Temperature: 0.1,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
