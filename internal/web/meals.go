package web

import (
	"errors"
	"net/http"

	"homeplan/internal/app"
	"homeplan/internal/model"
	"homeplan/internal/presence"
)

// handleListMeals returns plan entries in a date range.
//
// GET /api/meals?from=2024-06-03&to=2024-06-09
//   - from: default today
//   - to:   default from + 6 days
func (s *Server) handleListMeals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from := s.app.Today()
	if v := q.Get("from"); v != "" {
		d, err := s.app.ParseDate(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		from = d
	}
	to := from.AddDate(0, 0, 6)
	if v := q.Get("to"); v != "" {
		d, err := s.app.ParseDate(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		to = d
	}
	if to.Before(from) {
		writeError(w, http.StatusBadRequest, "to is before from")
		return
	}

	entries, err := s.app.Store.ListPlan(r.Context(), from.Format(presence.DateLayout), to.Format(presence.DateLayout))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

type upsertMealRequest struct {
	Date     string     `json:"date"`
	Slot     model.Slot `json:"slot"`
	Meal     string     `json:"meal"`
	RecipeID string     `json:"recipe_id"`
}

// handleUpsertMeal stores one plan cell. Slot defaults to dinner.
//
// POST /api/meals {"date":"2024-06-07","slot":"dinner","meal":"Steak & Chips","recipe_id":"steak-chips"}
func (s *Server) handleUpsertMeal(w http.ResponseWriter, r *http.Request) {
	var req upsertMealRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Slot == "" {
		req.Slot = model.SlotDinner
	}
	e, err := s.app.Store.UpsertPlan(r.Context(), req.Date, req.Slot, req.Meal, req.RecipeID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

type suggestRequest struct {
	WeekStart string  `json:"week_start"`
	Apply     bool    `json:"apply"`
	Seed      *uint64 `json:"seed,omitempty"`
}

// handleSuggest proposes dinners for the week containing week_start, using
// the stored presence snapshot only.
//
// POST /api/meals/suggest {"week_start":"2024-06-03","apply":false}
func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	var req suggestRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	day := s.app.Today()
	if req.WeekStart != "" {
		d, err := s.app.ParseDate(req.WeekStart)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		day = d
	}
	seed := uint64(s.app.Now().UnixNano())
	if req.Seed != nil {
		seed = *req.Seed
	}

	res, err := s.app.SuggestWeek(r.Context(), day, req.Apply, seed)
	switch {
	case errors.Is(err, app.ErrPartialApply):
		// Some days were written; the body says which.
		writeJSON(w, http.StatusInternalServerError, res)
		return
	case err != nil:
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
