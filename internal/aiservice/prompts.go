package aiservice

import (
	"fmt"
	"strings"

	"github.com/lithammer/dedent"

	"MealVibe/internal/wizard"
)

/* =================================================================================
						PROMPT ENGINEERING & GUARDRAILS
=================================================================================*/

// SystemPrompt sets the persona for recommendation calls.
var SystemPrompt = strings.TrimSpace(dedent.Dedent(`
	You are a compassionate, creative, mood-aware clean eating assistant.
	You only suggest meals and snacks. Never recommend anything that contains one
	of the listed allergies or breaks one of the listed dietary protocols.
`))

// UserPromptTemplate is filled by BuildRecommendationPrompt.
var UserPromptTemplate = strings.TrimSpace(dedent.Dedent(`
	Generate 3 personalized meal/snack recommendations based on these user inputs:

	MOOD: %s
	FLAVOR PREFERENCES: %s
	TEMPERATURE: %s
	TEXTURE CRAVINGS: %s
	DIETARY PROTOCOLS: %s
	ALLERGIES/INTOLERANCES: %s
	AVAILABLE INGREDIENTS: %s

	%s
	%s
	Create recommendations that honor their mood and cravings. Each should be easy to prepare with 10 or fewer simple ingredients.

	YOUR ENTIRE RESPONSE MUST BE A SINGLE, VALID JSON OBJECT:
	{
	  "message": "A warm, validating message that acknowledges their mood and cravings (1-2 sentences)",
	  "suggestions": [
	    {
	      "title": "3-5 word catchy title",
	      "prep": "Simple preparation instructions in 3-5 sentences",
	      "vibe": "Three descriptive words separated by ' • '"
	    }
	  ]
	}
	The "suggestions" array must contain exactly 3 items.
`))

const moreInstruction = "The user has already seen some ideas. Suggest 3 DIFFERENT meals than the obvious first picks."

// FridgeScanPrompt asks the vision model for a plain ingredient list.
var FridgeScanPrompt = strings.TrimSpace(dedent.Dedent(`
	You are an expert at identifying food ingredients in refrigerators and pantries. Analyze this photo very carefully and list ONLY the specific food items you can clearly see and are 95%+ certain about.

	CRITICAL RULES:
	- ONLY list what you can actually see in the image
	- Be extremely specific (e.g., "chicken breast" not "chicken", "ground beef" not "beef")
	- Do NOT assume or add similar items (if you see chicken, don't add turkey or beef)
	- Do NOT list generic categories - list the actual specific items visible
	- Look carefully at packaging, labels, and actual food items
	- If you see eggs, specify "eggs" not "protein"
	- If you see specific vegetables, name them exactly

	EXAMPLES OF GOOD RESPONSES:
	- "chicken breast, broccoli florets, eggs, whole milk, sharp cheddar cheese"
	- "ground turkey, baby spinach, roma tomatoes, greek yogurt"
	- "salmon fillet, asparagus, lemons, olive oil"

	EXAMPLES OF BAD RESPONSES:
	- "meat, vegetables, dairy" (too generic)
	- "chicken, turkey, beef" (only list what you actually see)
	- "protein, greens, cheese" (be specific)

	FORMAT: Simple comma-separated list of the exact items you can identify.

	If you cannot clearly see specific food items, respond with: "` + UnidentifiedIngredients + `"
`))

// UnidentifiedIngredients is what the vision model answers for unusable photos.
const UnidentifiedIngredients = "Unable to clearly identify specific ingredients in this image."

// BuildRecommendationPrompt renders the user prompt for a compiled request.
func BuildRecommendationPrompt(req wizard.Request) string {
	in := req.Inputs
	more := ""
	if req.Kind == wizard.KindMore {
		more = moreInstruction + "\n"
	}
	return fmt.Sprintf(UserPromptTemplate,
		joinOr(in.Mood, "not specified"),
		joinOr(in.Flavor, "not specified"),
		joinOr(in.Temperature, "not specified"),
		joinOr(in.Texture, "not specified"),
		joinOr(in.Protocols, "none specified"),
		// the "Other" placeholder is not listed; only the text the user typed for it is
		joinOr(req.Allergies, "none specified"),
		orDefault(in.Ingredients, "none specified"),
		req.Protein.Instruction(),
		more,
	)
}

func joinOr(values []string, def string) string {
	if len(values) == 0 {
		return def
	}
	return strings.Join(values, ", ")
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}
