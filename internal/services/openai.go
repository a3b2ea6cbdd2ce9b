package services

import (
	"context"
	"errors"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const (
	defaultOpenAIModel = openai.GPT3Dot5Turbo
	replyMaxTokens     = 200
	replyTemperature   = 0.7
)

var errEmptyCompletion = errors.New("empty completion")

// OpenAIResponder generates replies with the OpenAI chat completions API
type OpenAIResponder struct {
	client *openai.Client
	model  string
}

// NewOpenAIResponder creates a responder for the given API key and model
func NewOpenAIResponder(apiKey, model string) *OpenAIResponder {
	return NewOpenAIResponderWithConfig(openai.DefaultConfig(apiKey), model)
}

// NewOpenAIResponderWithConfig allows a custom base URL (Azure, local gateways, tests)
func NewOpenAIResponderWithConfig(cfg openai.ClientConfig, model string) *OpenAIResponder {
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAIResponder{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// Name identifies the provider
func (r *OpenAIResponder) Name() string {
	return "openai"
}

// Respond sends the rendered prompt as a single user message
func (r *OpenAIResponder) Respond(ctx context.Context, pc PromptContext) (string, error) {
	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(pc)},
		},
		MaxTokens:   replyMaxTokens,
		Temperature: replyTemperature,
	})
	if err != nil {
		return "", &GatewayError{Provider: r.Name(), Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &GatewayError{Provider: r.Name(), Err: errEmptyCompletion}
	}

	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	if reply == "" {
		return "", &GatewayError{Provider: r.Name(), Err: errEmptyCompletion}
	}
	return reply, nil
}
