package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"homeplan/internal/model"
)

// planKey identifies one plan cell.
type planKey struct {
	Date string `validate:"required,isodate"`
	Slot string `validate:"required,slot"`
}

// GetPlan returns the entry for (date, slot), or nil when nothing is stored.
func (s *Store) GetPlan(ctx context.Context, date string, slot model.Slot) (*model.PlanEntry, error) {
	if err := check(planKey{Date: date, Slot: string(slot)}); err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx, `SELECT date, slot, meal, recipe_id, updated_at FROM meal_plan WHERE date = ? AND slot = ?`, date, string(slot))
	e, err := scanPlan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// UpsertPlan writes (date, slot). Repeating a call with the same values
// leaves the same row behind.
func (s *Store) UpsertPlan(ctx context.Context, date string, slot model.Slot, meal, recipeID string) (model.PlanEntry, error) {
	if err := check(planKey{Date: date, Slot: string(slot)}); err != nil {
		return model.PlanEntry{}, err
	}
	e := model.PlanEntry{
		Date:      date,
		Slot:      slot,
		Meal:      strings.TrimSpace(meal),
		RecipeID:  strings.TrimSpace(recipeID),
		UpdatedAt: s.now().UTC(),
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO meal_plan (date, slot, meal, recipe_id, updated_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(date, slot) DO UPDATE SET meal = excluded.meal, recipe_id = excluded.recipe_id, updated_at = excluded.updated_at`,
		e.Date, string(e.Slot), e.Meal, e.RecipeID, e.UpdatedAt.Format(timeLayout))
	if err != nil {
		return model.PlanEntry{}, err
	}
	return e, nil
}

// ListPlan returns every entry with from <= date <= to, ordered by date and slot.
func (s *Store) ListPlan(ctx context.Context, from, to string) ([]model.PlanEntry, error) {
	if err := check(struct {
		From string `validate:"required,isodate"`
		To   string `validate:"required,isodate"`
	}{from, to}); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT date, slot, meal, recipe_id, updated_at FROM meal_plan
		WHERE date >= ? AND date <= ? ORDER BY date, slot`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.PlanEntry{}
	for rows.Next() {
		e, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DinnersByDate returns the dinner entries for dates, keyed by date.
// Dates with nothing stored are absent from the map.
func (s *Store) DinnersByDate(ctx context.Context, dates []string) (map[string]model.PlanEntry, error) {
	out := make(map[string]model.PlanEntry, len(dates))
	for _, d := range dates {
		e, err := s.GetPlan(ctx, d, model.SlotDinner)
		if err != nil {
			return nil, err
		}
		if e != nil {
			out[d] = *e
		}
	}
	return out, nil
}

func scanPlan(row rowScanner) (model.PlanEntry, error) {
	var (
		e             model.PlanEntry
		slot, updated string
	)
	if err := row.Scan(&e.Date, &slot, &e.Meal, &e.RecipeID, &updated); err != nil {
		return model.PlanEntry{}, err
	}
	e.Slot = model.Slot(slot)
	e.UpdatedAt = parseTime(updated)
	return e, nil
}
