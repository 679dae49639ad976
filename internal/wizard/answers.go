package wizard

import (
	"fmt"
	"slices"
	"strings"
)

// Field names a multi-select answer.
type Field string

const (
	FieldMood        Field = "mood"
	FieldFlavor      Field = "flavor"
	FieldTemperature Field = "temperature"
	FieldTexture     Field = "texture"
	FieldProtocols   Field = "protocols"
	FieldAllergies   Field = "allergies"
)

// TextField names a free-text answer.
type TextField string

const (
	TextOtherAllergy TextField = "otherAllergy"
	TextIngredients  TextField = "ingredients"
)

// OtherAllergy is the allergies sentinel that unlocks the free-text field.
const OtherAllergy = "Other"

// ParseField validates a multi-select field name.
func ParseField(s string) (Field, error) {
	switch f := Field(s); f {
	case FieldMood, FieldFlavor, FieldTemperature, FieldTexture, FieldProtocols, FieldAllergies:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, s)
}

// ParseTextField validates a free-text field name.
func ParseTextField(s string) (TextField, error) {
	switch f := TextField(s); f {
	case TextOtherAllergy, TextIngredients:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, s)
}

// Enumerated reports whether answers to f must come from the catalogue.
func (f Field) Enumerated() bool {
	switch f {
	case FieldMood, FieldFlavor, FieldTemperature, FieldTexture:
		return true
	}
	return false
}

// AnswerRecord is the accumulated input of one wizard session. Set-valued
// fields keep insertion order and never contain duplicates.
type AnswerRecord struct {
	Mood         []string `json:"mood"`
	Flavor       []string `json:"flavor"`
	Temperature  []string `json:"temperature"`
	Texture      []string `json:"texture"`
	Protocols    []string `json:"protocols"`
	Allergies    []string `json:"allergies"`
	OtherAllergy string   `json:"otherAllergy"`
	Ingredients  string   `json:"ingredients"`

	// DetectedIngredients is owned by the photo scan and never edited directly.
	DetectedIngredients string `json:"detectedIngredients"`
}

func (r *AnswerRecord) set(f Field) *[]string {
	switch f {
	case FieldMood:
		return &r.Mood
	case FieldFlavor:
		return &r.Flavor
	case FieldTemperature:
		return &r.Temperature
	case FieldTexture:
		return &r.Texture
	case FieldProtocols:
		return &r.Protocols
	case FieldAllergies:
		return &r.Allergies
	}
	return nil
}

// Values returns a copy of the selections of f.
func (r *AnswerRecord) Values(f Field) []string {
	s := r.set(f)
	if s == nil {
		return nil
	}
	return slices.Clone(*s)
}

// Has reports whether tag is selected in f.
func (r *AnswerRecord) Has(f Field, tag string) bool {
	s := r.set(f)
	return s != nil && slices.Contains(*s, tag)
}

// Toggle adds tag to f when absent and removes it when present. It returns
// whether the tag is selected afterwards.
func (r *AnswerRecord) Toggle(f Field, tag string) bool {
	s := r.set(f)
	if s == nil {
		return false
	}
	if i := slices.Index(*s, tag); i >= 0 {
		*s = slices.Delete(*s, i, i+1)
		return false
	}
	*s = append(*s, tag)
	return true
}

// SetText stores a free-text answer.
func (r *AnswerRecord) SetText(f TextField, value string) {
	switch f {
	case TextOtherAllergy:
		r.OtherAllergy = value
	case TextIngredients:
		r.Ingredients = value
	}
}

// Clone returns a deep copy.
func (r AnswerRecord) Clone() AnswerRecord {
	c := r
	c.Mood = cloneSet(r.Mood)
	c.Flavor = cloneSet(r.Flavor)
	c.Temperature = cloneSet(r.Temperature)
	c.Texture = cloneSet(r.Texture)
	c.Protocols = cloneSet(r.Protocols)
	c.Allergies = cloneSet(r.Allergies)
	return c
}

// cloneSet copies s and never returns nil so empty sets encode as [].
func cloneSet(s []string) []string {
	out := make([]string, 0, len(s))
	return append(out, s...)
}

// uniqueSet drops blanks and repeated values, keeping first occurrences.
func uniqueSet(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || slices.Contains(out, v) {
			continue
		}
		out = append(out, v)
	}
	return out
}
