package aiservice

import (
	"encoding/json"
	"fmt"
	"strings"

	"MealVibe/internal/models"
	"MealVibe/internal/wizard"
)

// cleanJSON strips markdown code fences around a model answer.
func cleanJSON(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// extractJSONObject returns the text between the first '{' and the last '}'.
func extractJSONObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

// ParseSuggestions decodes and validates a model answer.
func ParseSuggestions(raw string) (models.SuggestionSet, error) {
	var set models.SuggestionSet

	body := cleanJSON(raw)
	if err := json.Unmarshal([]byte(body), &set); err != nil {
		obj, ok := extractJSONObject(body)
		if !ok {
			return set, fmt.Errorf("%w: no JSON object in response", wizard.ErrMalformedSuggestions)
		}
		if err := json.Unmarshal([]byte(obj), &set); err != nil {
			return set, fmt.Errorf("%w: %v", wizard.ErrMalformedSuggestions, err)
		}
	}

	set.Message = strings.TrimSpace(set.Message)
	for i := range set.Suggestions {
		s := &set.Suggestions[i]
		s.Title = strings.TrimSpace(s.Title)
		s.Prep = strings.TrimSpace(s.Prep)
		s.Vibe = strings.TrimSpace(s.Vibe)
	}
	if err := wizard.ValidateSuggestions(set); err != nil {
		return set, err
	}
	return set, nil
}

// cleanIngredients normalises a vision answer into a comma-separated list.
func cleanIngredients(raw string) string {
	s := strings.TrimSuffix(strings.TrimSpace(raw), ".")
	s = strings.TrimSuffix(strings.Trim(s, "\"'`"), ".")

	var items []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(item), "-"))
		if item != "" {
			items = append(items, item)
		}
	}
	return strings.Join(items, ", ")
}
