/*
Package models holds the wire-level types shared by the wizard core,
the HTTP handlers and the remote client.
*/
package models

// UserInputs is the answer payload sent to the recommendation service.
// Field names follow the public JSON contract.
type UserInputs struct {
	Mood         []string `json:"mood"`
	Flavor       []string `json:"flavor"`
	Temperature  []string `json:"temperature"`
	Texture      []string `json:"texture"`
	Protocols    []string `json:"protocols"`
	Allergies    []string `json:"allergies"`
	OtherAllergy string   `json:"otherAllergy"`
	Ingredients  string   `json:"ingredients"`
}

// RecommendationRequest is the body of POST /api/recommendations.
type RecommendationRequest struct {
	UserInputs  *UserInputs `json:"userInputs"`
	RequestType string      `json:"requestType,omitempty"` // "initial" or "more"
}

// Suggestion is a single meal idea.
type Suggestion struct {
	Title string `json:"title" jsonschema:"description=3-5 word catchy title"`
	Prep  string `json:"prep" jsonschema:"description=Simple preparation instructions in 3-5 sentences"`
	Vibe  string `json:"vibe" jsonschema:"description=Three descriptive words separated by ' • '"`
}

// SuggestionSet is the response of the recommendation service and the
// unit the fallback selector produces.
type SuggestionSet struct {
	Message     string       `json:"message" jsonschema:"description=A warm validating message that acknowledges the mood and cravings (1-2 sentences)"`
	Suggestions []Suggestion `json:"suggestions" jsonschema:"minItems=3,maxItems=3"`
}

// ScanRequest is the body of POST /api/scan-fridge.
type ScanRequest struct {
	Image string `json:"image"` // base64 encoded JPEG
}

// ScanResponse is returned by the fridge scan service.
type ScanResponse struct {
	Ingredients string `json:"ingredients"`
	Success     bool   `json:"success"`
}

// AuthRequest is the body of POST /api/auth.
type AuthRequest struct {
	Action    string   `json:"action"` // "signup", "signin" or "complete-setup"
	Name      string   `json:"name,omitempty"`
	Email     string   `json:"email,omitempty"`
	Password  string   `json:"password,omitempty"`
	Diet      string   `json:"diet,omitempty"`
	Allergies []string `json:"allergies,omitempty"`
}

// NoDiet is the savedDiet sentinel meaning "no dietary protocol".
const NoDiet = "None"

// UserProfile is what the auth service returns. The password is never part of it.
type UserProfile struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Email          string   `json:"email"`
	SavedDiet      string   `json:"savedDiet"`
	SavedAllergies []string `json:"savedAllergies"`
}

// AuthResponse wraps a profile with the bearer token issued for it.
type AuthResponse struct {
	UserProfile
	Token string `json:"token,omitempty"`
}
