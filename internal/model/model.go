package model

import "time"

// CalendarEvent is a single VEVENT as produced by the ICS parser. It is
// immutable once emitted and only meaningful within the fetch that produced it.
type CalendarEvent struct {
	ID     string // iCalendar UID; may be empty for sloppy producers
	Title  string
	AllDay bool

	// Start / End carry the event's own zone (TZID, UTC, or the configured
	// zone for floating and date-only values). End equals Start when the
	// event had no DTEND.
	Start time.Time
	End   time.Time

	// Recurrence data, kept raw; expansion lives in internal/ics.
	RawRRule     string
	ExDates      []time.Time
	RecurrenceID *time.Time
}

// IsOverride reports whether the event replaces one instance of a recurring series.
func (e CalendarEvent) IsOverride() bool {
	return e.RecurrenceID != nil
}

// Ingredient is one line of a recipe's shopping list. Quantity is nil when
// the recipe leaves it to taste.
type Ingredient struct {
	Name     string  `json:"name" yaml:"name"`
	Quantity *string `json:"quantity" yaml:"quantity"`
}

// Recipe is the merged view over built-in and user-authored recipes.
// Builtin only gates editing; scoring never looks at it.
type Recipe struct {
	ID          string       `json:"id" yaml:"id"`
	Name        string       `json:"name" yaml:"name"`
	Category    string       `json:"category" yaml:"category"`
	Tags        []string     `json:"tags" yaml:"tags"`
	Serves      string       `json:"serves" yaml:"serves"`
	Time        string       `json:"time,omitempty" yaml:"time"`
	Ingredients []Ingredient `json:"ingredients" yaml:"ingredients"`
	Builtin     bool         `json:"builtin" yaml:"-"`
}

// HasTag reports whether the recipe carries tag.
func (r Recipe) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Slot is a meal-of-day bucket in the plan.
type Slot string

const (
	SlotBreakfast Slot = "breakfast"
	SlotLunch     Slot = "lunch"
	SlotDinner    Slot = "dinner"
)

// Valid reports whether s is one of the known slots.
func (s Slot) Valid() bool {
	switch s {
	case SlotBreakfast, SlotLunch, SlotDinner:
		return true
	}
	return false
}

// PlanEntry is what the meal-plan store holds for one (date, slot).
// Meal is free text; RecipeID is empty for ad-hoc entries.
type PlanEntry struct {
	Date      string    `json:"date"`
	Slot      Slot      `json:"slot"`
	Meal      string    `json:"meal"`
	RecipeID  string    `json:"recipe_id,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsEmpty reports whether nothing has been planned in this entry.
func (p PlanEntry) IsEmpty() bool {
	return p.Meal == "" && p.RecipeID == ""
}

// MealAssignment is one suggestion produced by the weekly selector.
type MealAssignment struct {
	Date       string `json:"date"`
	Slot       Slot   `json:"slot"`
	RecipeID   string `json:"recipe_id"`
	RecipeName string `json:"recipe_name"`
}
