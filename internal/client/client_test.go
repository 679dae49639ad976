package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MealVibe/internal/meals"
	"MealVibe/internal/models"
	"MealVibe/internal/wizard"
)

var threeIdeas = models.SuggestionSet{
	Message: "Soft food for a long day.",
	Suggestions: []models.Suggestion{
		{Title: "Mashed Potatoes", Prep: "Boil and mash.", Vibe: "Soft • Warm • Simple"},
		{Title: "Banana Oats", Prep: "Simmer oats.", Vibe: "Sweet • Creamy • Gentle"},
		{Title: "Tomato Soup", Prep: "Blend and heat.", Vibe: "Warm • Tangy • Smooth"},
	},
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func TestRecommend(t *testing.T) {
	var got models.RecommendationRequest
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/recommendations", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, threeIdeas)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(srv.URL)
	defer c.Close()

	rec := wizard.AnswerRecord{Mood: []string{"tired"}, Ingredients: "potatoes", DetectedIngredients: "milk"}
	set, err := c.Recommend(context.Background(), wizard.Compile(rec, wizard.KindMore))
	require.NoError(t, err)
	if diff := cmp.Diff(threeIdeas, set); diff != "" {
		t.Errorf("suggestions mismatch (-want +got):\n%s", diff)
	}

	require.NotNil(t, got.UserInputs)
	assert.Equal(t, "more", got.RequestType)
	assert.Equal(t, "milk, potatoes", got.UserInputs.Ingredients)
}

func TestRecommendErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		check   func(t *testing.T, err error)
	}{
		{
			name: "server fallback",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set(meals.FallbackHeader, "true")
				writeJSON(w, http.StatusOK, wizard.SelectFallback(nil))
			},
			check: func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrServerFallback) },
		},
		{
			name: "bad request",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "User inputs are required"})
			},
			check: func(t *testing.T, err error) {
				var se *StatusError
				require.ErrorAs(t, err, &se)
				assert.Equal(t, http.StatusBadRequest, se.Code)
				assert.Equal(t, "User inputs are required", se.Message)
			},
		},
		{
			name: "malformed set",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, models.SuggestionSet{Message: "hi"})
			},
			check: func(t *testing.T, err error) { assert.ErrorIs(t, err, wizard.ErrMalformedSuggestions) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := New(srv.URL).Recommend(context.Background(), wizard.Compile(wizard.AnswerRecord{}, wizard.KindInitial))
			tt.check(t, err)
		})
	}
}

func TestScan(t *testing.T) {
	image := []byte{0xff, 0xd8, 0x01}
	success := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req models.ScanRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, base64.StdEncoding.EncodeToString(image), req.Image)
		if success {
			writeJSON(w, http.StatusOK, models.ScanResponse{Ingredients: "eggs, milk", Success: true})
			return
		}
		writeJSON(w, http.StatusOK, models.ScanResponse{Ingredients: meals.ScanFailedMessage})
	}))
	defer srv.Close()

	c := New(srv.URL)
	got, err := c.Scan(context.Background(), image)
	require.NoError(t, err)
	assert.Equal(t, "eggs, milk", got)

	success = false
	_, err = c.Scan(context.Background(), image)
	assert.ErrorIs(t, err, wizard.ErrNoIngredients)
}

func TestAuthSetsToken(t *testing.T) {
	var authHeaders []string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, models.AuthResponse{
			UserProfile: models.UserProfile{ID: "u1", SavedDiet: "Keto"},
			Token:       "tok-123",
		})
	})
	mux.HandleFunc("POST /api/scan-fridge", func(w http.ResponseWriter, r *http.Request) {
		authHeaders = append(authHeaders, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, models.ScanResponse{Ingredients: "kale", Success: true})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(srv.URL)
	res, err := c.Auth(context.Background(), models.AuthRequest{Action: "signin", Email: "a@b.co", Password: "password1"})
	require.NoError(t, err)
	assert.Equal(t, "Keto", res.SavedDiet)

	_, err = c.Scan(context.Background(), []byte{1})
	require.NoError(t, err)
	assert.Equal(t, []string{"Bearer tok-123"}, authHeaders)
}
