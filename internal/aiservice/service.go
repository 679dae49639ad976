package aiservice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"MealVibe/internal/config"
	"MealVibe/internal/models"
	"MealVibe/internal/wizard"
)

// Generation parameters.
const (
	recommendMaxTokens   = 1000
	recommendTemperature = 0.7
	scanMaxTokens        = 150
	scanTemperature      = 0.1
)

// Service writes recommendations and scans photos with one provider. It
// satisfies wizard.Recommender and wizard.Scanner.
type Service struct {
	provider Provider
	log      *zerolog.Logger
}

var (
	_ wizard.Recommender = (*Service)(nil)
	_ wizard.Scanner     = (*Service)(nil)
)

// NewService wraps provider. A nil provider makes every call fail with
// ErrNotConfigured, so callers fall back.
func NewService(provider Provider) *Service {
	return &Service{provider: provider, log: &log.Logger}
}

// NewFromConfig picks OpenAI when its key is set, then Gemini.
func NewFromConfig(ctx context.Context, cfg *config.Config) (*Service, error) {
	logger := log.With().Str("component", "aiservice").Logger()

	switch {
	case cfg.OpenAIKey != "":
		return NewService(NewOpenAIProvider(cfg.OpenAIKey, cfg.OpenAIModel, "", cfg.AIMaxRetries, &logger)), nil
	case cfg.GeminiKey != "":
		p, err := NewGeminiProvider(ctx, cfg.GeminiKey, cfg.GeminiModel, "", cfg.AIMaxRetries, &logger)
		if err != nil {
			return nil, err
		}
		return NewService(p), nil
	}

	logger.Warn().Msg("OPENAI_API_KEY and GEMINI_API_KEY are not set, serving fallback recommendations only")
	return NewService(nil), nil
}

// Provider returns the provider name, or "none".
func (s *Service) Provider() string {
	if s.provider == nil {
		return "none"
	}
	return s.provider.Name()
}

// Recommend asks the provider for three suggestions.
func (s *Service) Recommend(ctx context.Context, req wizard.Request) (models.SuggestionSet, error) {
	if s.provider == nil {
		return models.SuggestionSet{}, ErrNotConfigured
	}

	raw, err := s.provider.Complete(ctx, Call{
		System:      SystemPrompt,
		Prompt:      BuildRecommendationPrompt(req),
		MaxTokens:   recommendMaxTokens,
		Temperature: recommendTemperature,
		Structured:  true,
	})
	if err != nil {
		return models.SuggestionSet{}, err
	}

	set, err := ParseSuggestions(raw)
	if err != nil {
		s.log.Error().Err(err).Str("raw", truncate(raw, 500)).Msg("failed to parse recommendation response")
		return models.SuggestionSet{}, err
	}
	return set, nil
}

// Scan lists the ingredients visible in a JPEG photo.
func (s *Service) Scan(ctx context.Context, image []byte) (string, error) {
	if s.provider == nil {
		return "", ErrNotConfigured
	}
	if len(image) == 0 {
		return "", errors.New("image is empty")
	}

	raw, err := s.provider.Complete(ctx, Call{
		Prompt:      FridgeScanPrompt,
		Image:       image,
		MaxTokens:   scanMaxTokens,
		Temperature: scanTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("fridge scan failed: %w", err)
	}

	if strings.Contains(raw, strings.TrimSuffix(UnidentifiedIngredients, ".")) {
		return "", wizard.ErrNoIngredients
	}
	ingredients := cleanIngredients(raw)
	if ingredients == "" {
		return "", wizard.ErrNoIngredients
	}
	return ingredients, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
