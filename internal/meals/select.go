package meals

import (
	"math/rand/v2"
	"time"

	appLog "homeplan/internal/log"
	"homeplan/internal/model"
	"homeplan/internal/presence"
)

// NewRand returns a PCG-backed source. Tests pass a fixed seed; callers
// that want variety pass something like time.Now().UnixNano().
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Selector picks dinners for a week, greedily and in date order. It never
// writes anything: applying a result is the caller's job.
type Selector struct {
	scorer *Scorer
	rng    *rand.Rand
}

// NewSelector uses rng for the catalog shuffle. A Selector is not safe for
// concurrent use; build one per request.
func NewSelector(scorer *Scorer, rng *rand.Rand) *Selector {
	return &Selector{scorer: scorer, rng: rng}
}

// Week maps a date (YYYY-MM-DD) to its suggestion. A nil value means
// "leave this date alone": either it is already planned or nothing viable
// was left.
type Week map[string]*model.MealAssignment

// SelectWeek suggests a dinner for each date. existing holds the plan
// entries already stored for those dates, keyed by date. table may be nil,
// in which case every day is scored on weekday preferences alone.
func (s *Selector) SelectWeek(dates []time.Time, existing map[string]model.PlanEntry, catalog []model.Recipe, table *presence.Table) Week {
	used := make(map[string]bool)
	for _, e := range existing {
		if e.RecipeID != "" {
			used[e.RecipeID] = true
		}
	}

	candidates := dinnerCandidates(catalog)
	if s.rng != nil {
		s.rng.Shuffle(len(candidates), func(i, j int) {
			candidates[i], candidates[j] = candidates[j], candidates[i]
		})
	}

	out := make(Week, len(dates))
	for _, d := range dates {
		key := d.Format(presence.DateLayout)
		if e, ok := existing[key]; ok && !e.IsEmpty() {
			out[key] = nil
			continue
		}

		best := s.pick(d.Weekday(), used, candidates, table.Day(d))
		if best == nil {
			appLog.Info("no viable recipe", "date", key, "candidates", len(candidates), "used", len(used))
			out[key] = nil
			continue
		}
		used[best.ID] = true
		out[key] = &model.MealAssignment{
			Date:       key,
			Slot:       model.SlotDinner,
			RecipeID:   best.ID,
			RecipeName: best.Name,
		}
	}
	return out
}

// SelectForDay returns the best recipe for one weekday, or nil when nothing
// clears Floor. The catalog is scored in the order given.
func (s *Selector) SelectForDay(day time.Weekday, used map[string]bool, catalog []model.Recipe, p *presence.Day) *model.Recipe {
	return s.pick(day, used, dinnerCandidates(catalog), p)
}

// pick keeps the first recipe with the highest score, so the candidate
// order decides exact ties.
func (s *Selector) pick(day time.Weekday, used map[string]bool, candidates []model.Recipe, p *presence.Day) *model.Recipe {
	var (
		best      *model.Recipe
		bestScore float64
	)
	for i := range candidates {
		score := s.scorer.Score(candidates[i], day, used, p)
		if score <= Floor {
			continue
		}
		if best == nil || score > bestScore {
			best = &candidates[i]
			bestScore = score
		}
	}
	if best == nil {
		return nil
	}
	r := *best
	return &r
}
