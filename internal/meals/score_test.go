package meals

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"homeplan/internal/config"
	"homeplan/internal/household"
	"homeplan/internal/model"
	"homeplan/internal/presence"
)

func testRoster() *household.Roster {
	return household.FromConfig(config.DefaultHousehold())
}

// presentDay builds a presence day where only the given members are home.
func presentDay(home ...string) *presence.Day {
	day := &presence.Day{Present: map[string]bool{"rob": false, "aimee": false, "dexter": false, "logan": false}}
	for _, id := range home {
		day.Present[id] = true
	}
	day.Headcount = len(home)
	return day
}

func recipe(id, category, serves string, tags ...string) model.Recipe {
	if tags == nil {
		tags = []string{}
	}
	return model.Recipe{ID: id, Name: id, Category: category, Serves: serves, Tags: tags}
}

func TestScorer_UsedRecipeIsExcluded(t *testing.T) {
	s := NewScorer(testRoster(), DefaultPreferences(), NewRand(1))
	used := map[string]bool{"lasagne": true}

	got := s.Score(recipe("lasagne", "Midweek Mains", "4", TagFamilyFavourite), time.Tuesday, used, nil)
	assert.Equal(t, float64(UsedScore), got)
	assert.LessOrEqual(t, got, float64(Floor))
}

func TestScorer_JitterOnlyBreaksTies(t *testing.T) {
	s := NewScorer(testRoster(), Preferences{}, NewRand(7))
	r := recipe("a", "", "4", TagFamilyFavourite)

	for i := 0; i < 50; i++ {
		got := s.Score(r, time.Monday, nil, nil)
		assert.GreaterOrEqual(t, got, 5.0)
		assert.Less(t, got, 6.0)
	}
}

func TestScorer_WeekdayPreferences(t *testing.T) {
	s := NewScorer(testRoster(), DefaultPreferences(), nil)

	roast := recipe("roast-chicken", CategoryRoasts, "", TagFamilyFavourite, TagKidApproved)
	// category +30, fallback id +40, favourite +5, kid-approved +3
	assert.Equal(t, 78.0, s.Base(roast, time.Sunday, nil, nil))
	// avoid category -50, favourite tag +10, kid tag +10, +5, +3
	assert.Equal(t, -22.0, s.Base(roast, time.Tuesday, nil, nil))

	steak := recipe("steak-chips", "Midweek Mains", "", TagNiceMeal, TagAirfryer)
	// preferred id +50, nice-meal tag +10
	assert.Equal(t, 60.0, s.Base(steak, time.Friday, nil, nil))
	// airfryer tag +10
	assert.Equal(t, 10.0, s.Base(steak, time.Wednesday, nil, nil))
}

func TestScorer_ServesBands(t *testing.T) {
	s := NewScorer(testRoster(), Preferences{}, nil)
	everyone := presentDay("rob", "aimee", "dexter", "logan")

	cases := map[string]float64{
		"4":    15,
		"4-6":  15,
		"5":    5,
		"6":    5,
		"7":    -10,
		"3":    0,
		"":     0,
		"lots": 0,
	}
	for serves, want := range cases {
		got := s.Base(recipe("r", "", serves), time.Monday, nil, everyone)
		assert.Equal(t, want, got, "serves %q", serves)
	}
}

func TestScorer_EmptyPresenceFallsBackToRosterSize(t *testing.T) {
	s := NewScorer(testRoster(), Preferences{}, nil)
	got := s.Base(recipe("r", "", "4"), time.Monday, nil, &presence.Day{})
	assert.Equal(t, 15.0, got)
}

func TestScorer_AdultsOnly(t *testing.T) {
	s := NewScorer(testRoster(), Preferences{}, nil)
	adults := presentDay("rob", "aimee")

	// exact serves +15, nice-meal +20
	assert.Equal(t, 35.0, s.Base(recipe("a", "", "2", TagNiceMeal), time.Monday, nil, adults))
	// exact serves +15, date +20
	assert.Equal(t, 35.0, s.Base(recipe("b", "", "2", TagDate), time.Monday, nil, adults))

	// One adult plus one child is not "adults only".
	mixed := presentDay("rob", "dexter")
	assert.Equal(t, 15.0, s.Base(recipe("a", "", "2", TagNiceMeal), time.Monday, nil, mixed))
}

func TestScorer_ChildrenOnly(t *testing.T) {
	s := NewScorer(testRoster(), Preferences{}, nil)
	kids := presentDay("dexter", "logan")

	// kid-approved +3, exact serves +15, small freezer +4, kids kid-approved +10, kids freezer +5
	got := s.Base(recipe("k", "", "2", TagKidApproved, TagFreezer), time.Monday, nil, kids)
	assert.Equal(t, 37.0, got)
}

func TestScorer_SmallHouseholdPrefersQuick(t *testing.T) {
	s := NewScorer(testRoster(), Preferences{}, nil)
	two := presentDay("rob", "dexter")

	assert.Equal(t, 4.0, s.Base(recipe("q", "", "", TagQuick), time.Monday, nil, two))
	assert.Equal(t, 0.0, s.Base(recipe("q", "", "", TagQuick), time.Monday, nil, presentDay("rob", "aimee", "dexter")))
}

func TestScorer_BigMealsPenalisedWhenFew(t *testing.T) {
	s := NewScorer(testRoster(), Preferences{}, nil)
	adults := presentDay("rob", "aimee")

	// serves 4 within +2 band: +5, roast category: -15
	assert.Equal(t, -10.0, s.Base(recipe("roast", CategoryRoasts, "4-6"), time.Monday, nil, adults))
	// serves 6 over band: -10, six or more: -15
	assert.Equal(t, -25.0, s.Base(recipe("chilli", "Midweek Mains", "6"), time.Monday, nil, adults))
	// Three at home: no big-meal penalty, serves 6 is over band (3+2).
	assert.Equal(t, -10.0, s.Base(recipe("chilli", "Midweek Mains", "6"), time.Monday, nil, presentDay("rob", "aimee", "logan")))
}

func TestServesCount(t *testing.T) {
	cases := map[string]int{
		"4":         4,
		"4-6":       4,
		"2-4":       2,
		"serves 10": 10,
		"":          0,
		"a few":     0,
		"٣":         0,
	}
	for in, want := range cases {
		assert.Equal(t, want, ServesCount(in), in)
	}
}
