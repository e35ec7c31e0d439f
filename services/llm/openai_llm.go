package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sashabaranov/go-openai"
)

// OpenAIClient talks directly to the OpenAI API. Used when the gateway is
// deployed outside Azure (local development, public-cloud OpenAI).
type OpenAIClient struct {
	client *openai.Client
	model  string
}

var _ ChatClient = (*OpenAIClient)(nil)

// NewOpenAIClient creates a client for the public OpenAI API.
func NewOpenAIClient(apiKey, model string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: missing OpenAI API key", ErrNotConfigured)
	}
	if model == "" {
		model = "gpt-4o-mini"
		slog.Warn("OpenAI model not set, defaulting", "model", model)
	}
	slog.Info("Initializing OpenAI client", "model", model)
	return &OpenAIClient{
		client: openai.NewClient(apiKey),
		model:  model,
	}, nil
}

// Complete implements the ChatClient interface.
func (o *OpenAIClient) Complete(ctx context.Context, messages []Message, maxTokens int) (*Completion, error) {
	slog.Debug("Requesting chat completion via OpenAI", "model", o.model)

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    toOpenAIMessages(messages),
		Temperature: SamplingTemperature,
		TopP:        SamplingTopP,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return nil, wrapOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &UpstreamError{StatusCode: 502, Body: "upstream returned no choices"}
	}

	model := resp.Model
	if model == "" {
		model = o.model
	}
	return &Completion{
		Content:     resp.Choices[0].Message.Content,
		Model:       model,
		TotalTokens: resp.Usage.TotalTokens,
	}, nil
}
