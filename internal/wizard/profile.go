package wizard

import (
	"strings"

	"MealVibe/internal/models"
)

// Seed builds the initial answer record for a signed-in user. A nil
// profile, as for guests, yields an empty record.
func Seed(p *models.UserProfile) AnswerRecord {
	rec := AnswerRecord{}.Clone()
	if p == nil {
		return rec
	}
	if diet := strings.TrimSpace(p.SavedDiet); diet != "" && diet != models.NoDiet {
		rec.Protocols = []string{diet}
	}
	rec.Allergies = uniqueSet(p.SavedAllergies)
	return rec
}
