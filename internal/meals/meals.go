// Package meals serves the stateless recommendation and fridge scan
// endpoints used by the wizard front end.
package meals

import (
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"MealVibe/internal/models"
	"MealVibe/internal/utility"
	"MealVibe/internal/wizard"
)

// FallbackHeader is set on recommendation responses built from the canned sets.
const FallbackHeader = "X-Mealvibe-Fallback"

// ScanFailedMessage is returned in place of ingredients when a scan fails.
const ScanFailedMessage = "Unable to scan ingredients from photo. Please add them manually."

// Handler exposes a Recommender and a Scanner over HTTP.
type Handler struct {
	recommender wizard.Recommender
	scanner     wizard.Scanner
}

func NewHandler(recommender wizard.Recommender, scanner wizard.Scanner) *Handler {
	return &Handler{recommender: recommender, scanner: scanner}
}

// Recommendations serves POST /api/recommendations. Provider failures are
// answered with a fallback set, never with an error status.
func (h *Handler) Recommendations(c echo.Context) error {
	logger := utility.RequestLogger(c)

	var req models.RecommendationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request format"})
	}
	if req.UserInputs == nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "User inputs are required"})
	}
	kind, err := wizard.ParseRequestKind(req.RequestType)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	compiled := wizard.CompileInputs(*req.UserInputs, kind)
	logger.Info().
		Str("kind", kind.Value).
		Strs("mood", compiled.Inputs.Mood).
		Strs("protocols", compiled.Inputs.Protocols).
		Msg("Processing recommendation request")

	set, err := h.recommender.Recommend(c.Request().Context(), compiled)
	if err == nil {
		err = wizard.ValidateSuggestions(set)
	}
	if err != nil {
		logger.Error().Err(err).Msg("recommendation failed, serving fallback")
		c.Response().Header().Set(FallbackHeader, "true")
		return c.JSON(http.StatusOK, wizard.Fallback(compiled.Inputs.Mood, compiled.Inputs.Protocols))
	}
	return c.JSON(http.StatusOK, set)
}

// ScanFridge serves POST /api/scan-fridge.
func (h *Handler) ScanFridge(c echo.Context) error {
	logger := utility.RequestLogger(c)

	var req models.ScanRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request format"})
	}
	if strings.TrimSpace(req.Image) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Image data is required"})
	}
	image, err := DecodeImage(req.Image)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Image data must be base64 encoded"})
	}

	ingredients, err := h.scanner.Scan(c.Request().Context(), image)
	if err != nil {
		logger.Warn().Err(err).Int("bytes", len(image)).Msg("fridge scan failed")
		return c.JSON(http.StatusOK, models.ScanResponse{Ingredients: ScanFailedMessage, Success: false})
	}
	return c.JSON(http.StatusOK, models.ScanResponse{Ingredients: ingredients, Success: true})
}

// DecodeImage decodes a base64 image, with or without a data URL prefix.
func DecodeImage(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		if i := strings.Index(s, ","); i >= 0 {
			s = s[i+1:]
		}
	}
	image, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(image) == 0 {
		return nil, base64.CorruptInputError(0)
	}
	return image, nil
}
