package store

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homeplan/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "db", "homeplan.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func stringPtr(s string) *string { return &s }

func soup() RecipeInput {
	return RecipeInput{
		Name:     "  Leek Soup ",
		Category: "Midweek Mains",
		Tags:     []string{"Quick", " freezer", ""},
		Serves:   "4",
		Ingredients: []IngredientInput{
			{Name: "leeks", Quantity: stringPtr("3")},
			{Name: "salt"},
		},
	}
}

func TestOpen_MigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "homeplan.db")
	ctx := context.Background()

	s, err := Open(ctx, path)
	require.NoError(t, err)
	_, err = s.CreateRecipe(ctx, soup())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	var n int
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations`).Scan(&n))
	assert.Equal(t, 1, n)

	recipes, err := s.ListRecipes(ctx)
	require.NoError(t, err)
	assert.Len(t, recipes, 1)
	assert.NoError(t, s.Ping(ctx))
}

func TestRecipes_CRUD(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	created, err := s.CreateRecipe(ctx, soup())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(created.ID, UserRecipePrefix))
	assert.Equal(t, "Leek Soup", created.Name)
	assert.Equal(t, []string{"quick", "freezer"}, created.Tags)
	assert.False(t, created.Builtin)

	got, err := s.GetRecipe(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)
	require.Len(t, got.Ingredients, 2)
	assert.Equal(t, "3", *got.Ingredients[0].Quantity)
	assert.Nil(t, got.Ingredients[1].Quantity)

	in := soup()
	in.Name = "Leek and Potato Soup"
	in.Tags = nil
	updated, err := s.UpdateRecipe(ctx, created.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "Leek and Potato Soup", updated.Name)

	got, err = s.GetRecipe(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Leek and Potato Soup", got.Name)
	assert.Equal(t, []string{}, got.Tags)

	require.NoError(t, s.DeleteRecipe(ctx, created.ID))
	_, err = s.GetRecipe(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteRecipe(ctx, created.ID), ErrNotFound)
	_, err = s.UpdateRecipe(ctx, created.ID, soup())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecipes_BuiltinsAreReadOnly(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.UpdateRecipe(ctx, "lasagne", soup())
	assert.ErrorIs(t, err, ErrBuiltinRecipe)
	assert.ErrorIs(t, s.DeleteRecipe(ctx, "roast-chicken"), ErrBuiltinRecipe)
}

func TestRecipes_Validation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	in := soup()
	in.Name = "   "
	_, err := s.CreateRecipe(ctx, in)
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, err.Error(), "Name")

	in = soup()
	in.Ingredients = []IngredientInput{{Name: ""}}
	_, err = s.CreateRecipe(ctx, in)
	assert.True(t, errors.As(err, &verr))

	recipes, err := s.ListRecipes(ctx)
	require.NoError(t, err)
	assert.Empty(t, recipes)
}

func TestCatalog_MergesBuiltinsFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	in := soup()
	in.Name = "Aardvark Stew"
	created, err := s.CreateRecipe(ctx, in)
	require.NoError(t, err)

	catalog, err := s.Catalog(ctx)
	require.NoError(t, err)
	require.Len(t, catalog, 17)
	assert.True(t, catalog[0].Builtin)
	assert.Equal(t, created.ID, catalog[16].ID)
}

func TestPlan_UpsertIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	s.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }

	for i := 0; i < 2; i++ {
		e, err := s.UpsertPlan(ctx, "2024-06-03", model.SlotDinner, "Lasagne", "lasagne")
		require.NoError(t, err)
		assert.Equal(t, "lasagne", e.RecipeID)
	}

	entries, err := s.ListPlan(ctx, "2024-06-03", "2024-06-03")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Lasagne", entries[0].Meal)
	assert.Equal(t, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC), entries[0].UpdatedAt)

	_, err = s.UpsertPlan(ctx, "2024-06-03", model.SlotDinner, "Takeaway", "")
	require.NoError(t, err)
	got, err := s.GetPlan(ctx, "2024-06-03", model.SlotDinner)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Takeaway", got.Meal)
	assert.Empty(t, got.RecipeID)
}

func TestPlan_ListAndDinners(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.UpsertPlan(ctx, "2024-06-04", model.SlotDinner, "Pasta Bake", "pasta-bake")
	require.NoError(t, err)
	_, err = s.UpsertPlan(ctx, "2024-06-04", model.SlotBreakfast, "Pancakes", "pancakes")
	require.NoError(t, err)
	_, err = s.UpsertPlan(ctx, "2024-06-10", model.SlotDinner, "Out of range", "")
	require.NoError(t, err)

	entries, err := s.ListPlan(ctx, "2024-06-03", "2024-06-09")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, model.SlotBreakfast, entries[0].Slot)
	assert.Equal(t, model.SlotDinner, entries[1].Slot)

	empty, err := s.ListPlan(ctx, "2023-01-01", "2023-01-07")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	dinners, err := s.DinnersByDate(ctx, []string{"2024-06-03", "2024-06-04"})
	require.NoError(t, err)
	assert.Len(t, dinners, 1)
	assert.Equal(t, "pasta-bake", dinners["2024-06-04"].RecipeID)

	missing, err := s.GetPlan(ctx, "2024-06-05", model.SlotLunch)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestPlan_RejectsBadKeys(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var verr *ValidationError
	_, err := s.UpsertPlan(ctx, "03/06/2024", model.SlotDinner, "x", "")
	assert.True(t, errors.As(err, &verr))
	_, err = s.UpsertPlan(ctx, "2024-06-03", model.Slot("supper"), "x", "")
	assert.True(t, errors.As(err, &verr))
	_, err = s.ListPlan(ctx, "2024-06-03", "")
	assert.True(t, errors.As(err, &verr))
}
