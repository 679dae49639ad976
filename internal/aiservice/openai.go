package aiservice

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"MealVibe/internal/models"
)

// OpenAIProvider calls the chat completions API, including vision input.
type OpenAIProvider struct {
	client     *openai.Client
	model      string
	maxRetries int
	log        *zerolog.Logger
}

var _ Provider = (*OpenAIProvider)(nil)

// NewOpenAIProvider returns a provider for apiKey. baseURL overrides the API
// endpoint and may be empty.
func NewOpenAIProvider(apiKey, model, baseURL string, maxRetries int, log *zerolog.Logger) *OpenAIProvider {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT4o
	}
	return &OpenAIProvider{
		client:     openai.NewClientWithConfig(config),
		model:      model,
		maxRetries: maxRetries,
		log:        log,
	}
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) Complete(ctx context.Context, call Call) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       p.model,
		MaxTokens:   call.MaxTokens,
		Temperature: call.Temperature,
	}
	if call.System != "" {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: call.System,
		})
	}

	usrMsg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
	if len(call.Image) > 0 {
		usrMsg.MultiContent = []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: call.Prompt},
			{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
				URL:    "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(call.Image),
				Detail: openai.ImageURLDetailLow,
			}},
		}
	} else {
		usrMsg.Content = call.Prompt
	}
	req.Messages = append(req.Messages, usrMsg)

	if call.Structured {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "suggestion_set",
				Schema: SuggestionSetJSONSchema(),
			},
		}
	}

	return withRetry(ctx, p.log, p.Name(), p.maxRetries, func(ctx context.Context) (string, error) {
		resp, err := p.client.CreateChatCompletion(ctx, req)
		if err != nil {
			var apiErr *openai.APIError
			if errors.As(err, &apiErr) && apiErr.HTTPStatusCode >= 400 && apiErr.HTTPStatusCode < 500 &&
				apiErr.HTTPStatusCode != http.StatusTooManyRequests {
				return "", permanentError{err}
			}
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("no content found in OpenAI response")
		}
		return strings.TrimSpace(resp.Choices[0].Message.Content), nil
	})
}

// SuggestionSetJSONSchema reflects models.SuggestionSet for structured output.
func SuggestionSetJSONSchema() *jsonschema.Schema {
	r := jsonschema.Reflector{DoNotReference: true}
	return r.Reflect(&models.SuggestionSet{})
}
