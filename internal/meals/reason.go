package meals

import (
	"time"

	"homeplan/internal/model"
)

// Reason is a short human explanation for suggesting r on day, or "".
func Reason(r model.Recipe, day time.Weekday) string {
	switch {
	case day == time.Sunday && r.Category == CategoryRoasts:
		return "Sunday roast!"
	case day == time.Friday && r.HasTag(TagNiceMeal):
		return "Friday treat night!"
	case r.HasTag(TagQuick):
		return "Quick & easy"
	case r.HasTag(TagFamilyFavourite):
		return "Family favourite"
	}
	return ""
}
