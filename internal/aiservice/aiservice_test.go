package aiservice

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MealVibe/internal/models"
	"MealVibe/internal/wizard"
)

type fakeProvider struct {
	answer string
	err    error
	calls  []Call
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Complete(ctx context.Context, call Call) (string, error) {
	f.calls = append(f.calls, call)
	return f.answer, f.err
}

const validAnswer = `{"message":"Cozy vibes ahead.","suggestions":[
 {"title":"Miso Ramen","prep":"Simmer broth.","vibe":"Warm • Slurpy • Cozy"},
 {"title":"Egg Fried Rice","prep":"Fry rice with eggs.","vibe":"Savory • Quick • Filling"},
 {"title":"Chicken Congee","prep":"Cook rice slowly.","vibe":"Soft • Gentle • Warm"}]}`

func TestParseSuggestions(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"plain", validAnswer, false},
		{"fenced", "```json\n" + validAnswer + "\n```", false},
		{"chatter around json", "Here you go!\n" + validAnswer + "\nEnjoy.", false},
		{"two suggestions", `{"message":"x","suggestions":[{"title":"a"},{"title":"b"}]}`, true},
		{"not json", "I cannot help with that.", true},
		{"broken json", `{"message": "x", "suggestions": [}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := ParseSuggestions(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, wizard.ErrMalformedSuggestions)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Cozy vibes ahead.", set.Message)
			assert.Len(t, set.Suggestions, 3)
			assert.Equal(t, "Miso Ramen", set.Suggestions[0].Title)
		})
	}
}

func TestBuildRecommendationPrompt(t *testing.T) {
	req := wizard.CompileInputs(models.UserInputs{
		Mood:         []string{"tired", "cozy"},
		Protocols:    []string{"Vegetarian"},
		Allergies:    []string{"Dairy", "Other"},
		OtherAllergy: " sesame ",
		Ingredients:  "eggs, spinach",
	}, wizard.KindInitial)

	prompt := BuildRecommendationPrompt(req)
	assert.Contains(t, prompt, "MOOD: tired, cozy")
	assert.Contains(t, prompt, "FLAVOR PREFERENCES: not specified")
	assert.Contains(t, prompt, "DIETARY PROTOCOLS: Vegetarian")
	assert.Contains(t, prompt, "ALLERGIES/INTOLERANCES: Dairy, sesame")
	assert.NotContains(t, prompt, "Other")
	assert.Contains(t, prompt, "AVAILABLE INGREDIENTS: eggs, spinach")
	assert.Contains(t, prompt, wizard.ProteinVegetarian.Instruction())
	assert.NotContains(t, prompt, "DIFFERENT")
	assert.False(t, strings.HasPrefix(prompt, "\t"))

	req.Kind = wizard.KindMore
	req.Inputs.Ingredients = ""
	req.Allergies = nil
	prompt = BuildRecommendationPrompt(req)
	assert.Contains(t, prompt, "DIFFERENT")
	assert.Contains(t, prompt, "AVAILABLE INGREDIENTS: none specified")
	assert.Contains(t, prompt, "ALLERGIES/INTOLERANCES: none specified")
}

func TestServiceRecommend(t *testing.T) {
	p := &fakeProvider{answer: validAnswer}
	s := NewService(p)

	set, err := s.Recommend(context.Background(), wizard.Compile(wizard.AnswerRecord{}, wizard.KindInitial))
	require.NoError(t, err)
	assert.Len(t, set.Suggestions, 3)

	require.Len(t, p.calls, 1)
	assert.Equal(t, recommendMaxTokens, p.calls[0].MaxTokens)
	assert.InDelta(t, 0.7, p.calls[0].Temperature, 0.001)
	assert.True(t, p.calls[0].Structured)
	assert.Equal(t, SystemPrompt, p.calls[0].System)

	p.answer = "sorry"
	_, err = s.Recommend(context.Background(), wizard.Compile(wizard.AnswerRecord{}, wizard.KindInitial))
	assert.ErrorIs(t, err, wizard.ErrMalformedSuggestions)

	p.err = errors.New("upstream down")
	_, err = s.Recommend(context.Background(), wizard.Compile(wizard.AnswerRecord{}, wizard.KindInitial))
	assert.Error(t, err)

	_, err = NewService(nil).Recommend(context.Background(), wizard.Request{})
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Equal(t, "none", NewService(nil).Provider())
}

func TestServiceScan(t *testing.T) {
	tests := []struct {
		name    string
		answer  string
		want    string
		wantErr error
	}{
		{"list", "chicken breast, broccoli florets, eggs", "chicken breast, broccoli florets, eggs", nil},
		{"quoted with period", `"salmon fillet, lemons".`, "salmon fillet, lemons", nil},
		{"bulleted", "- ground turkey,\n- baby spinach", "ground turkey, baby spinach", nil},
		{"unidentified", UnidentifiedIngredients, "", wizard.ErrNoIngredients},
		{"blank", "  ", "", wizard.ErrNoIngredients},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeProvider{answer: tt.answer}
			got, err := NewService(p).Scan(context.Background(), []byte{0xff, 0xd8})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, scanMaxTokens, p.calls[0].MaxTokens)
			assert.NotEmpty(t, p.calls[0].Image)
		})
	}

	_, err := NewService(&fakeProvider{}).Scan(context.Background(), nil)
	assert.Error(t, err)
}

func TestOpenAIProvider(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		body, _ := io.ReadAll(r.Body)
		var req map[string]any
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, "gpt-4o", req["model"])

		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": " eggs, milk "},
			}},
		})
	}))
	defer srv.Close()

	logger := zerolog.Nop()
	p := NewOpenAIProvider("sk-test", "", srv.URL+"/v1", 2, &logger)
	out, err := p.Complete(context.Background(), Call{Prompt: FridgeScanPrompt, Image: []byte("jpeg"), MaxTokens: 150})
	require.NoError(t, err)
	assert.Equal(t, "eggs, milk", out)
	assert.Equal(t, int32(2), hits.Load())
}

func TestOpenAIProviderDoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	logger := zerolog.Nop()
	p := NewOpenAIProvider("sk-bad", "gpt-4o", srv.URL+"/v1", 3, &logger)
	_, err := p.Complete(context.Background(), Call{Prompt: "hi"})
	assert.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestGeminiProvider(t *testing.T) {
	image := []byte{0xff, 0xd8, 0xff}
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.True(t, strings.HasSuffix(r.URL.Path, "models/gemini-test:generateContent"), r.URL.Path)
		assert.Equal(t, "gm-test", r.Header.Get("x-goog-api-key"))

		var req struct {
			Contents []struct {
				Parts []struct {
					Text       string `json:"text"`
					InlineData *struct {
						MimeType string `json:"mimeType"`
						Data     string `json:"data"`
					} `json:"inlineData"`
				} `json:"parts"`
			} `json:"contents"`
			SystemInstruction map[string]any `json:"systemInstruction"`
			GenerationConfig  map[string]any `json:"generationConfig"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		require.Len(t, req.Contents, 1)
		parts := req.Contents[0].Parts
		require.Len(t, parts, 2)
		assert.Contains(t, parts[0].Text, "MOOD: tired")
		require.NotNil(t, parts[1].InlineData)
		assert.Equal(t, "image/jpeg", parts[1].InlineData.MimeType)
		assert.Equal(t, base64.StdEncoding.EncodeToString(image), parts[1].InlineData.Data)

		assert.NotEmpty(t, req.SystemInstruction)
		assert.Equal(t, "application/json", req.GenerationConfig["responseMimeType"])
		assert.Contains(t, req.GenerationConfig, "responseSchema")
		assert.EqualValues(t, recommendMaxTokens, req.GenerationConfig["maxOutputTokens"])

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"role":  "model",
					"parts": []map[string]any{{"text": validAnswer}},
				},
				"finishReason": "STOP",
			}},
		})
	}))
	defer srv.Close()

	logger := zerolog.Nop()
	p, err := NewGeminiProvider(context.Background(), "gm-test", "gemini-test", srv.URL, 1, &logger)
	require.NoError(t, err)
	assert.Equal(t, "gemini", p.Name())

	prompt := BuildRecommendationPrompt(wizard.CompileInputs(models.UserInputs{Mood: []string{"tired"}}, wizard.KindInitial))
	out, err := p.Complete(context.Background(), Call{
		System:      SystemPrompt,
		Prompt:      prompt,
		Image:       image,
		MaxTokens:   recommendMaxTokens,
		Temperature: 0.7,
		Structured:  true,
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())

	set, err := ParseSuggestions(out)
	require.NoError(t, err)
	assert.Len(t, set.Suggestions, 3)
}

func TestSchemas(t *testing.T) {
	data, err := json.Marshal(SuggestionSetJSONSchema())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"suggestions"`)
	assert.Contains(t, string(data), `"minItems":3`)

	assert.ElementsMatch(t, []string{"message", "suggestions"}, RecommendationSchema.Required)
	assert.Equal(t, int64(3), *RecommendationSchema.Properties["suggestions"].MinItems)
}
