package aiservice

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

// GeminiProvider calls Gemini through the genai SDK.
type GeminiProvider struct {
	client     *genai.Client
	model      string
	maxRetries int
	log        *zerolog.Logger
}

var _ Provider = (*GeminiProvider)(nil)

// NewGeminiProvider creates a Gemini API client. baseURL overrides the API
// endpoint when set.
func NewGeminiProvider(ctx context.Context, apiKey, model, baseURL string, maxRetries int, log *zerolog.Logger) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &GeminiProvider{client: client, model: model, maxRetries: maxRetries, log: log}, nil
}

func (p *GeminiProvider) Name() string { return "gemini" }

func (p *GeminiProvider) Complete(ctx context.Context, call Call) (string, error) {
	parts := []*genai.Part{genai.NewPartFromText(call.Prompt)}
	if len(call.Image) > 0 {
		parts = append(parts, genai.NewPartFromBytes(call.Image, "image/jpeg"))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(call.Temperature),
		MaxOutputTokens: int32(call.MaxTokens),
	}
	if call.System != "" {
		config.SystemInstruction = genai.NewContentFromText(call.System, genai.RoleUser)
	}
	if call.Structured {
		config.ResponseMIMEType = structuredMimeType
		config.ResponseSchema = RecommendationSchema
	}

	return withRetry(ctx, p.log, p.Name(), p.maxRetries, func(ctx context.Context) (string, error) {
		resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, config)
		if err != nil {
			return "", err
		}
		text := strings.TrimSpace(resp.Text())
		if text == "" {
			return "", fmt.Errorf("no content found in Gemini response")
		}
		return text, nil
	})
}

/* =================================================================================
							GEMINI SCHEMA DEFINITION
	Tells Gemini how to format its JSON response
=================================================================================*/

// RecommendationSchema mirrors models.SuggestionSet.
var RecommendationSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"message": {
			Type:        genai.TypeString,
			Description: "A warm, validating message that acknowledges their mood and cravings (1-2 sentences)",
		},
		"suggestions": {
			Type:     genai.TypeArray,
			MinItems: genai.Ptr[int64](3),
			MaxItems: genai.Ptr[int64](3),
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"title": {Type: genai.TypeString, Description: "3-5 word catchy title"},
					"prep":  {Type: genai.TypeString, Description: "Simple preparation instructions in 3-5 sentences"},
					"vibe":  {Type: genai.TypeString, Description: "Three descriptive words separated by ' • '"},
				},
				Required: []string{"title", "prep", "vibe"},
			},
		},
	},
	Required: []string{"message", "suggestions"},
}
