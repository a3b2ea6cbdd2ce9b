package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-2.0-flash-001"

// GeminiResponder generates replies with Google's Gemini models
type GeminiResponder struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGeminiResponder connects to Gemini with an API key
func NewGeminiResponder(ctx context.Context, apiKey, model string) (*GeminiResponder, error) {
	if model == "" {
		model = defaultGeminiModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	m := client.GenerativeModel(model)
	m.SetMaxOutputTokens(replyMaxTokens)
	m.SetTemperature(replyTemperature)

	return &GeminiResponder{client: client, model: m}, nil
}

// Name identifies the provider
func (r *GeminiResponder) Name() string {
	return "gemini"
}

// Respond sends the rendered prompt and joins the text parts of the first candidate
func (r *GeminiResponder) Respond(ctx context.Context, pc PromptContext) (string, error) {
	resp, err := r.model.GenerateContent(ctx, genai.Text(BuildPrompt(pc)))
	if err != nil {
		return "", &GatewayError{Provider: r.Name(), Err: err}
	}
	reply, err := candidateText(resp)
	if err != nil {
		return "", &GatewayError{Provider: r.Name(), Err: err}
	}
	return reply, nil
}

// Close releases the underlying client
func (r *GeminiResponder) Close() error {
	return r.client.Close()
}

func candidateText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errEmptyCompletion
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}

	reply := strings.TrimSpace(sb.String())
	if reply == "" {
		return "", errEmptyCompletion
	}
	return reply, nil
}
