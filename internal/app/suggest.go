package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	appLog "homeplan/internal/log"
	"homeplan/internal/meals"
	"homeplan/internal/metrics"
	"homeplan/internal/model"
	"homeplan/internal/presence"
)

// SuggestedDay is one row of a weekly suggestion.
type SuggestedDay struct {
	Date       string                `json:"date"`
	Weekday    string                `json:"weekday"`
	Assignment *model.MealAssignment `json:"assignment"`
	Reason     string                `json:"reason,omitempty"`
	// Headcount is nil when presence is unknown for the day.
	Headcount *int     `json:"headcount"`
	Away      []string `json:"away,omitempty"`
	// Existing is the stored dinner left untouched, if any.
	Existing *model.PlanEntry `json:"existing,omitempty"`
	Applied  bool             `json:"applied"`
	// ApplyError is set when writing this day's assignment failed.
	ApplyError string `json:"apply_error,omitempty"`
}

// WeekSuggestion is the result of one selector run.
type WeekSuggestion struct {
	WeekStart     string         `json:"week_start"`
	PresenceKnown bool           `json:"presence_known"`
	Days          []SuggestedDay `json:"days"`
	ApplyFailed   int            `json:"apply_failed,omitempty"`
}

// ErrPartialApply is returned with a WeekSuggestion when some days could not
// be written.
var ErrPartialApply = errors.New("suggestion only partly applied")

// SuggestWeek runs the selector for the Monday-to-Sunday week containing
// anyDate. With apply, every assignment is upserted as that date's dinner.
//
// Days are written one at a time and a failed write does not stop the rest,
// so the plan can end up partly updated. In that case the suggestion is still
// returned, Applied and ApplyError say which days were written, and the error
// wraps ErrPartialApply.
func (a *App) SuggestWeek(ctx context.Context, anyDate time.Time, apply bool, seed uint64) (*WeekSuggestion, error) {
	dates := meals.WeekDates(anyDate.In(a.Location))
	keys := make([]string, len(dates))
	for i, d := range dates {
		keys[i] = d.Format(presence.DateLayout)
	}

	existing, err := a.Store.DinnersByDate(ctx, keys)
	if err != nil {
		return nil, err
	}
	catalog, err := a.Store.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	table := a.snapshotOrNil()

	rng := meals.NewRand(seed)
	sel := meals.NewSelector(meals.NewScorer(a.Roster, a.Prefs, rng), rng)
	week := sel.SelectWeek(dates, existing, catalog, table)

	out := &WeekSuggestion{
		WeekStart:     keys[0],
		PresenceKnown: table != nil,
		Days:          make([]SuggestedDay, 0, len(dates)),
	}
	var applyErrs []error
	for i, d := range dates {
		row := SuggestedDay{Date: keys[i], Weekday: d.Weekday().String()}
		if e, ok := existing[keys[i]]; ok && !e.IsEmpty() {
			e := e
			row.Existing = &e
		}
		if day := table.Day(d); day != nil {
			hc := day.Headcount
			row.Headcount = &hc
			row.Away = day.Away(a.Roster.IDs())
		}

		asg := week[keys[i]]
		switch {
		case asg != nil:
			row.Assignment = asg
			if r, ok := meals.Find(catalog, asg.RecipeID); ok {
				row.Reason = meals.Reason(r, d.Weekday())
			}
			metrics.MealSuggestion(metrics.SuggestionAssigned)
		case row.Existing != nil:
			metrics.MealSuggestion(metrics.SuggestionKept)
		default:
			metrics.MealSuggestion(metrics.SuggestionNone)
		}

		if apply && asg != nil {
			if _, err := a.plans.UpsertPlan(ctx, asg.Date, asg.Slot, asg.RecipeName, asg.RecipeID); err != nil {
				appLog.Error("apply suggestion failed", err, "date", asg.Date, "recipe", asg.RecipeID)
				row.ApplyError = err.Error()
				applyErrs = append(applyErrs, fmt.Errorf("%s: %w", asg.Date, err))
			} else {
				row.Applied = true
			}
		}
		out.Days = append(out.Days, row)
	}

	appLog.Info("week suggested",
		"week_start", out.WeekStart,
		"presence_known", out.PresenceKnown,
		"applied", apply,
		"apply_failed", len(applyErrs),
	)
	if len(applyErrs) > 0 {
		out.ApplyFailed = len(applyErrs)
		return out, fmt.Errorf("%w: %w", ErrPartialApply, errors.Join(applyErrs...))
	}
	return out, nil
}
