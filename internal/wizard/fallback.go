package wizard

import (
	"fmt"
	"slices"
	"strings"

	"MealVibe/internal/models"
)

// Fallback messages, chosen by how many moods were selected.
const (
	MessageSingleFeeling = "Let's find something that feels just right for you today."
	MessageMixedFeelings = "I can sense you're feeling a mix of things right now—let's find something that honors all those feelings."
)

var (
	veganFallback = []models.Suggestion{
		{
			Title: "Protein-Packed Lentil Bowl",
			Prep:  "Heat canned lentils in a pan with garlic and cumin. Serve over greens with tahini dressing and hemp seeds.",
			Vibe:  "Hearty • Nourishing • Plant-Based",
		},
		{
			Title: "Tofu Scramble Wrap",
			Prep:  "Crumble firm tofu and sauté with turmeric and nutritional yeast. Wrap in collard greens with avocado.",
			Vibe:  "Protein-Rich • Fresh • Satisfying",
		},
		{
			Title: "Quinoa Power Bowl",
			Prep:  "Cook quinoa and top with chickpeas, roasted vegetables, and almond butter drizzle.",
			Vibe:  "Complete • Energizing • Wholesome",
		},
	}

	vegetarianFallback = []models.Suggestion{
		{
			Title: "Veggie Scrambled Eggs",
			Prep:  "Scramble eggs with spinach and mushrooms. Serve with avocado slices and everything bagel seasoning.",
			Vibe:  "Protein-Rich • Simple • Comforting",
		},
		{
			Title: "Bean & Cheese Quesadilla",
			Prep:  "Mash black beans and spread on tortilla with cheese. Cook until crispy and serve with salsa.",
			Vibe:  "Cheesy • Warm • Satisfying",
		},
		{
			Title: "Greek Yogurt Power Bowl",
			Prep:  "Top Greek yogurt with nuts, seeds, and berries. Drizzle with honey and add a sprinkle of granola.",
			Vibe:  "Creamy • Protein-Packed • Fresh",
		},
	}

	omnivoreFallback = []models.Suggestion{
		{
			Title: "Simple Chicken Bowl",
			Prep:  "Pan-sear chicken breast with herbs. Serve over greens with avocado and olive oil dressing.",
			Vibe:  "Protein-Rich • Clean • Satisfying",
		},
		{
			Title: "Salmon & Sweet Potato",
			Prep:  "Bake salmon fillet and roasted sweet potato cubes. Season with lemon and herbs.",
			Vibe:  "Omega-Rich • Nourishing • Simple",
		},
		{
			Title: "Turkey & Veggie Wrap",
			Prep:  "Wrap sliced turkey, cucumber, and sprouts in lettuce leaves with mustard or hummus.",
			Vibe:  "Fresh • Lean • Light",
		},
	}
)

// SelectFallback returns the canned suggestions for protocols with the
// single-feeling message. Branch order matches ProteinFor.
func SelectFallback(protocols []string) models.SuggestionSet {
	var suggestions []models.Suggestion
	switch ProteinFor(protocols) {
	case ProteinPlant:
		suggestions = veganFallback
	case ProteinVegetarian:
		suggestions = vegetarianFallback
	default:
		suggestions = omnivoreFallback
	}
	return models.SuggestionSet{
		Message:     MessageSingleFeeling,
		Suggestions: slices.Clone(suggestions),
	}
}

// FallbackMessage picks the message variant for the selected moods.
func FallbackMessage(moods []string) string {
	if len(moods) > 1 {
		return MessageMixedFeelings
	}
	return MessageSingleFeeling
}

// Fallback combines both axes: protocols pick the meals, moods the message.
func Fallback(moods, protocols []string) models.SuggestionSet {
	set := SelectFallback(protocols)
	set.Message = FallbackMessage(moods)
	return set
}

// ValidateSuggestions checks the shape every suggestion set must have.
func ValidateSuggestions(set models.SuggestionSet) error {
	if len(set.Suggestions) != 3 {
		return fmt.Errorf("%w: want 3 suggestions, got %d", ErrMalformedSuggestions, len(set.Suggestions))
	}
	for i, s := range set.Suggestions {
		if strings.TrimSpace(s.Title) == "" {
			return fmt.Errorf("%w: suggestion %d has no title", ErrMalformedSuggestions, i+1)
		}
	}
	return nil
}
