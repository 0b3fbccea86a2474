package meals

import "time"

// Tags and categories the scorer knows about.
const (
	TagQuick           = "quick"
	TagAirfryer        = "airfryer"
	TagFreezer         = "freezer"
	TagFamilyFavourite = "family-favourite"
	TagNiceMeal        = "nice-meal"
	TagDate            = "date"
	TagKidApproved     = "kid-approved"
	TagGrazer          = "grazer"

	CategoryRoasts = "Roasts & Big Meals"
)

// DayPreference biases scoring for one weekday.
type DayPreference struct {
	PreferTags     []string
	PreferCategory string
	AvoidCategory  string
	PreferIDs      []string
	FallbackIDs    []string
}

// Preferences is indexed by time.Weekday (Sunday = 0).
type Preferences [7]DayPreference

// For returns the preference for day.
func (p *Preferences) For(day time.Weekday) DayPreference {
	if day < time.Sunday || day > time.Saturday {
		return DayPreference{}
	}
	return p[day]
}

// DefaultPreferences is the household's weekly rhythm: a roast on Sunday,
// something nice on Friday, easy meals midweek.
func DefaultPreferences() Preferences {
	return Preferences{
		time.Sunday: {
			PreferCategory: CategoryRoasts,
			FallbackIDs:    []string{"roast-chicken", "roast-gammon"},
		},
		time.Monday: {
			PreferTags:    []string{TagQuick, TagFreezer},
			AvoidCategory: CategoryRoasts,
		},
		time.Tuesday: {
			PreferTags:    []string{TagFamilyFavourite, TagKidApproved},
			AvoidCategory: CategoryRoasts,
		},
		time.Wednesday: {
			PreferTags:    []string{TagQuick, TagAirfryer},
			AvoidCategory: CategoryRoasts,
		},
		time.Thursday: {
			PreferTags:    []string{TagFamilyFavourite},
			AvoidCategory: CategoryRoasts,
		},
		time.Friday: {
			PreferTags:    []string{TagNiceMeal},
			PreferIDs:     []string{"steak-chips", "burgers-chips"},
			AvoidCategory: CategoryRoasts,
		},
		time.Saturday: {
			PreferTags:    []string{TagFamilyFavourite, TagKidApproved},
			AvoidCategory: CategoryRoasts,
		},
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
