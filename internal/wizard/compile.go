package wizard

import (
	"fmt"
	"slices"
	"strings"

	"github.com/orsinium-labs/enum"

	"MealVibe/internal/models"
)

// RequestKind distinguishes the first recommendation call from "show more".
type RequestKind enum.Member[string]

var (
	KindInitial  = RequestKind{"initial"}
	KindMore     = RequestKind{"more"}
	RequestKinds = enum.New(KindInitial, KindMore)
)

// ParseRequestKind maps the wire value to a kind. Empty means initial.
func ParseRequestKind(s string) (RequestKind, error) {
	if s == "" {
		return KindInitial, nil
	}
	k := RequestKinds.Parse(s)
	if k == nil {
		return RequestKind{}, fmt.Errorf("invalid request type %q, must be 'initial' or 'more'", s)
	}
	return *k, nil
}

// ProteinDirective is the protein constraint derived from the protocols.
type ProteinDirective string

const (
	ProteinPlant      ProteinDirective = "plant"
	ProteinVegetarian ProteinDirective = "vegetarian"
	ProteinAnimal     ProteinDirective = "animal"
)

// ProteinFor picks the directive. Vegan wins over Vegetarian.
func ProteinFor(protocols []string) ProteinDirective {
	switch {
	case slices.Contains(protocols, "Vegan"):
		return ProteinPlant
	case slices.Contains(protocols, "Vegetarian"):
		return ProteinVegetarian
	}
	return ProteinAnimal
}

// Instruction is the prompt sentence enforcing the directive.
func (p ProteinDirective) Instruction() string {
	switch p {
	case ProteinPlant:
		return "CRITICAL: Each recommendation MUST include plant-based protein (like beans, lentils, tofu, tempeh, nuts, seeds, quinoa, or hemp hearts)."
	case ProteinVegetarian:
		return "CRITICAL: Each recommendation MUST include vegetarian protein (like eggs, beans, lentils, tofu, tempeh, nuts, seeds, quinoa, or dairy)."
	}
	return "CRITICAL: Each recommendation MUST include animal protein (like chicken, beef, fish, eggs, or turkey)."
}

// Request is the compiled recommendation request.
type Request struct {
	Kind    RequestKind
	Inputs  models.UserInputs
	Protein ProteinDirective

	// Allergies is the selected allergies without the Other sentinel, plus
	// the other-allergy text when Other is selected.
	Allergies []string
}

// Wire returns the JSON body for the recommendation service.
func (r Request) Wire() models.RecommendationRequest {
	in := r.Inputs
	return models.RecommendationRequest{UserInputs: &in, RequestType: r.Kind.Value}
}

// Compile builds the request for kind from an answer record. Detected and
// typed ingredients are merged here and nowhere else.
func Compile(rec AnswerRecord, kind RequestKind) Request {
	return CompileInputs(models.UserInputs{
		Mood:         rec.Mood,
		Flavor:       rec.Flavor,
		Temperature:  rec.Temperature,
		Texture:      rec.Texture,
		Protocols:    rec.Protocols,
		Allergies:    rec.Allergies,
		OtherAllergy: rec.OtherAllergy,
		Ingredients:  MergeIngredients(rec.DetectedIngredients, rec.Ingredients),
	}, kind)
}

// CompileInputs normalises wire inputs whose ingredients are already merged.
// The recommendation handler uses it on whatever the client sent.
func CompileInputs(in models.UserInputs, kind RequestKind) Request {
	out := models.UserInputs{
		Mood:        cloneSet(in.Mood),
		Flavor:      cloneSet(in.Flavor),
		Temperature: cloneSet(in.Temperature),
		Texture:     cloneSet(in.Texture),
		Protocols:   cloneSet(in.Protocols),
		Allergies:   cloneSet(in.Allergies),
		Ingredients: strings.TrimSpace(in.Ingredients),
	}
	if slices.Contains(out.Allergies, OtherAllergy) {
		out.OtherAllergy = strings.TrimSpace(in.OtherAllergy)
	}

	return Request{
		Kind:      kind,
		Inputs:    out,
		Protein:   ProteinFor(out.Protocols),
		Allergies: AllergyUnion(out.Allergies, out.OtherAllergy),
	}
}

// AllergyUnion merges selected allergies with the free-text one. The text
// only counts when the Other sentinel is selected and is added once. The
// sentinel itself is dropped, so a prompt never lists "Other" as an allergy.
func AllergyUnion(selected []string, other string) []string {
	hasOther := slices.Contains(selected, OtherAllergy)
	out := make([]string, 0, len(selected)+1)
	for _, a := range selected {
		if a == OtherAllergy || slices.Contains(out, a) {
			continue
		}
		out = append(out, a)
	}
	if other = strings.TrimSpace(other); hasOther && other != "" && !slices.Contains(out, other) {
		out = append(out, other)
	}
	return out
}
