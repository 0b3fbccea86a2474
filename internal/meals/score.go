package meals

import (
	"math/rand/v2"
	"strconv"
	"time"

	"homeplan/internal/household"
	"homeplan/internal/model"
	"homeplan/internal/presence"
)

// Score weights. Structural scores are whole numbers and jitter stays in
// [0, 1), so jitter only ever reorders exact ties.
const (
	UsedScore = -1000
	// Floor is the score a recipe must exceed to be assigned.
	Floor = -500

	preferIDBonus       = 50
	fallbackIDBonus     = 40
	preferCategoryBonus = 30
	preferTagBonus      = 10
	avoidCategoryMalus  = -50

	familyFavouriteBonus = 5
	kidApprovedBonus     = 3

	servesExactBonus = 15
	servesNearBonus  = 5
	servesNearBand   = 2
	servesOverMalus  = -10

	smallQuickBonus   = 4
	smallFreezerBonus = 4

	adultsNiceBonus   = 20
	adultsDateBonus   = 20
	kidsApprovedBonus = 10
	kidsFreezerBonus  = 5

	bigMealMalus  = -15
	bigMealServes = 6
)

// Scorer rates recipes for a day. It holds no state between calls other
// than the random source used for jitter.
type Scorer struct {
	prefs  Preferences
	roster *household.Roster
	rng    *rand.Rand
}

// NewScorer returns a scorer. A nil rng disables jitter.
func NewScorer(roster *household.Roster, prefs Preferences, rng *rand.Rand) *Scorer {
	return &Scorer{prefs: prefs, roster: roster, rng: rng}
}

// Score is Base plus a tie-breaking jitter.
func (s *Scorer) Score(r model.Recipe, day time.Weekday, used map[string]bool, p *presence.Day) float64 {
	base := s.Base(r, day, used, p)
	if base == UsedScore || s.rng == nil {
		return base
	}
	return base + s.rng.Float64()
}

// Base is the deterministic part of the score. p may be nil when presence
// is unknown; presence rules are then skipped entirely.
func (s *Scorer) Base(r model.Recipe, day time.Weekday, used map[string]bool, p *presence.Day) float64 {
	if used[r.ID] {
		return UsedScore
	}

	pref := s.prefs.For(day)
	score := 0

	if contains(pref.PreferIDs, r.ID) {
		score += preferIDBonus
	}
	if contains(pref.FallbackIDs, r.ID) {
		score += fallbackIDBonus
	}
	if pref.PreferCategory != "" && r.Category == pref.PreferCategory {
		score += preferCategoryBonus
	}
	if pref.AvoidCategory != "" && r.Category == pref.AvoidCategory {
		score += avoidCategoryMalus
	}
	for _, t := range r.Tags {
		if contains(pref.PreferTags, t) {
			score += preferTagBonus
		}
	}

	if r.HasTag(TagFamilyFavourite) {
		score += familyFavouriteBonus
	}
	if r.HasTag(TagKidApproved) {
		score += kidApprovedBonus
	}

	if p != nil {
		score += s.presenceScore(r, p)
	}
	return float64(score)
}

func (s *Scorer) presenceScore(r model.Recipe, p *presence.Day) int {
	headcount := p.Headcount
	if len(p.Present) == 0 {
		headcount = s.roster.Size()
	}

	score := 0
	serves := ServesCount(r.Serves)
	if serves > 0 {
		switch {
		case serves == headcount:
			score += servesExactBonus
		case serves > headcount && serves <= headcount+servesNearBand:
			score += servesNearBonus
		case serves > headcount+servesNearBand:
			score += servesOverMalus
		}
	}

	if headcount <= 2 {
		if r.HasTag(TagQuick) {
			score += smallQuickBonus
		}
		if r.HasTag(TagFreezer) {
			score += smallFreezerBonus
		}
	}

	switch {
	case s.roster.IsExactly(p.Present, household.RoleAdult):
		if r.HasTag(TagNiceMeal) {
			score += adultsNiceBonus
		}
		if r.HasTag(TagDate) {
			score += adultsDateBonus
		}
	case s.roster.IsExactly(p.Present, household.RoleChild):
		if r.HasTag(TagKidApproved) {
			score += kidsApprovedBonus
		}
		if r.HasTag(TagFreezer) {
			score += kidsFreezerBonus
		}
	}

	if headcount < 3 && (r.Category == CategoryRoasts || serves >= bigMealServes) {
		score += bigMealMalus
	}
	return score
}

// ServesCount returns the first whole number in serves ("4-6" gives 4),
// or 0 when there is none.
func ServesCount(serves string) int {
	start := -1
	for i, c := range serves {
		if c >= '0' && c <= '9' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			n, _ := strconv.Atoi(serves[start:i])
			return n
		}
	}
	if start < 0 {
		return 0
	}
	n, _ := strconv.Atoi(serves[start:])
	return n
}
