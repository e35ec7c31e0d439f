package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sashabaranov/go-openai"
)

// AzureOpenAIClient talks to an Azure OpenAI chat-completion deployment.
type AzureOpenAIClient struct {
	client     *openai.Client
	deployment string
}

var _ ChatClient = (*AzureOpenAIClient)(nil)

// AzureConfig holds the deployment settings for the Azure backend.
// Endpoint and APIKey are required; the rest default sensibly.
type AzureConfig struct {
	Endpoint   string
	APIKey     string
	Deployment string
	APIVersion string
}

// NewAzureOpenAIClient creates a client for an Azure OpenAI deployment.
//
// Missing endpoint or credential is a configuration fault detected here,
// before any network call, and reported as ErrNotConfigured.
func NewAzureOpenAIClient(cfg AzureConfig) (*AzureOpenAIClient, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("%w: missing Azure OpenAI endpoint", ErrNotConfigured)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: missing Azure OpenAI API key", ErrNotConfigured)
	}
	if cfg.Deployment == "" {
		cfg.Deployment = "gpt-4o-mini"
		slog.Warn("Azure OpenAI deployment not set, defaulting", "deployment", cfg.Deployment)
	}

	clientConfig := openai.DefaultAzureConfig(cfg.APIKey, cfg.Endpoint)
	if cfg.APIVersion != "" {
		clientConfig.APIVersion = cfg.APIVersion
	}

	slog.Info("Initializing Azure OpenAI client",
		"deployment", cfg.Deployment,
		"api_version", clientConfig.APIVersion,
	)
	return &AzureOpenAIClient{
		client:     openai.NewClientWithConfig(clientConfig),
		deployment: cfg.Deployment,
	}, nil
}

// Complete implements the ChatClient interface.
func (a *AzureOpenAIClient) Complete(ctx context.Context, messages []Message, maxTokens int) (*Completion, error) {
	slog.Debug("Requesting chat completion via Azure OpenAI", "deployment", a.deployment)

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.deployment,
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
		model = a.deployment
	}
	return &Completion{
		Content:     resp.Choices[0].Message.Content,
		Model:       model,
		TotalTokens: resp.Usage.TotalTokens,
	}, nil
}

// toOpenAIMessages converts assembled prompt messages to the wire type.
func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}
	return out
}

// wrapOpenAIError converts go-openai errors into the gateway taxonomy.
// HTTP-level failures become *UpstreamError; context cancellation and
// deadline errors pass through so callers can distinguish timeouts.
func wrapOpenAIError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &UpstreamError{StatusCode: apiErr.HTTPStatusCode, Body: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &UpstreamError{StatusCode: reqErr.HTTPStatusCode, Body: reqErr.Error()}
	}
	// Transport-level failure with no HTTP status.
	return &UpstreamError{StatusCode: 0, Body: err.Error()}
}
