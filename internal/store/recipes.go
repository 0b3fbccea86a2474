package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"homeplan/internal/meals"
	"homeplan/internal/model"
)

// UserRecipePrefix marks ids minted for user-authored recipes.
const UserRecipePrefix = "custom-"

// IngredientInput is one ingredient line in a recipe request.
type IngredientInput struct {
	Name     string  `json:"name" validate:"required,max=200"`
	Quantity *string `json:"quantity" validate:"omitempty,max=100"`
}

// RecipeInput is the editable part of a user recipe.
type RecipeInput struct {
	Name        string            `json:"name" validate:"required,max=200"`
	Category    string            `json:"category" validate:"required,max=100"`
	Tags        []string          `json:"tags" validate:"max=20,dive,required,max=40"`
	Serves      string            `json:"serves" validate:"required,max=20"`
	Time        string            `json:"time" validate:"max=40"`
	Ingredients []IngredientInput `json:"ingredients" validate:"max=100,dive"`
}

func (in RecipeInput) normalized() RecipeInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Category = strings.TrimSpace(in.Category)
	in.Serves = strings.TrimSpace(in.Serves)
	in.Time = strings.TrimSpace(in.Time)
	tags := make([]string, 0, len(in.Tags))
	for _, t := range in.Tags {
		if t = strings.TrimSpace(strings.ToLower(t)); t != "" {
			tags = append(tags, t)
		}
	}
	in.Tags = tags
	return in
}

func (in RecipeInput) ingredients() []model.Ingredient {
	out := make([]model.Ingredient, 0, len(in.Ingredients))
	for _, i := range in.Ingredients {
		out = append(out, model.Ingredient{Name: strings.TrimSpace(i.Name), Quantity: i.Quantity})
	}
	return out
}

// ListRecipes returns every user recipe ordered by name.
func (s *Store) ListRecipes(ctx context.Context) ([]model.Recipe, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, category, tags, serves, cook_time, ingredients FROM recipes ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Recipe
	for rows.Next() {
		r, err := scanRecipe(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetRecipe returns one user recipe.
func (s *Store) GetRecipe(ctx context.Context, id string) (model.Recipe, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, category, tags, serves, cook_time, ingredients FROM recipes WHERE id = ?`, id)
	r, err := scanRecipe(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Recipe{}, fmt.Errorf("recipe %s: %w", id, ErrNotFound)
	}
	return r, err
}

// CreateRecipe stores a new user recipe under a fresh id.
func (s *Store) CreateRecipe(ctx context.Context, in RecipeInput) (model.Recipe, error) {
	in = in.normalized()
	if err := check(in); err != nil {
		return model.Recipe{}, err
	}

	r := model.Recipe{
		ID:          UserRecipePrefix + uuid.NewString(),
		Name:        in.Name,
		Category:    in.Category,
		Tags:        in.Tags,
		Serves:      in.Serves,
		Time:        in.Time,
		Ingredients: in.ingredients(),
	}
	tags, ingredients, err := encodeLists(r)
	if err != nil {
		return model.Recipe{}, err
	}
	now := s.now().UTC().Format(timeLayout)
	_, err = s.db.ExecContext(ctx, `INSERT INTO recipes (id, name, category, tags, serves, cook_time, ingredients, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Name, r.Category, tags, r.Serves, r.Time, ingredients, now, now)
	if err != nil {
		return model.Recipe{}, err
	}
	return r, nil
}

// UpdateRecipe replaces a user recipe. Built-in ids are refused.
func (s *Store) UpdateRecipe(ctx context.Context, id string, in RecipeInput) (model.Recipe, error) {
	if meals.IsBuiltinID(id) {
		return model.Recipe{}, fmt.Errorf("recipe %s: %w", id, ErrBuiltinRecipe)
	}
	in = in.normalized()
	if err := check(in); err != nil {
		return model.Recipe{}, err
	}

	r := model.Recipe{
		ID:          id,
		Name:        in.Name,
		Category:    in.Category,
		Tags:        in.Tags,
		Serves:      in.Serves,
		Time:        in.Time,
		Ingredients: in.ingredients(),
	}
	tags, ingredients, err := encodeLists(r)
	if err != nil {
		return model.Recipe{}, err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE recipes SET name = ?, category = ?, tags = ?, serves = ?, cook_time = ?, ingredients = ?, updated_at = ?
		WHERE id = ?`,
		r.Name, r.Category, tags, r.Serves, r.Time, ingredients, s.now().UTC().Format(timeLayout), id)
	if err != nil {
		return model.Recipe{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.Recipe{}, fmt.Errorf("recipe %s: %w", id, ErrNotFound)
	}
	return r, nil
}

// DeleteRecipe removes a user recipe. Built-in ids are refused.
func (s *Store) DeleteRecipe(ctx context.Context, id string) error {
	if meals.IsBuiltinID(id) {
		return fmt.Errorf("recipe %s: %w", id, ErrBuiltinRecipe)
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM recipes WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("recipe %s: %w", id, ErrNotFound)
	}
	return nil
}

// Catalog is the merged built-in and user recipe list used for scoring.
func (s *Store) Catalog(ctx context.Context) ([]model.Recipe, error) {
	user, err := s.ListRecipes(ctx)
	if err != nil {
		return nil, err
	}
	return meals.Merge(meals.Builtin(), user), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecipe(row rowScanner) (model.Recipe, error) {
	var (
		r                 model.Recipe
		tags, ingredients string
	)
	if err := row.Scan(&r.ID, &r.Name, &r.Category, &tags, &r.Serves, &r.Time, &ingredients); err != nil {
		return model.Recipe{}, err
	}
	if err := json.Unmarshal([]byte(tags), &r.Tags); err != nil {
		return model.Recipe{}, fmt.Errorf("recipe %s tags: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(ingredients), &r.Ingredients); err != nil {
		return model.Recipe{}, fmt.Errorf("recipe %s ingredients: %w", r.ID, err)
	}
	if r.Tags == nil {
		r.Tags = []string{}
	}
	if r.Ingredients == nil {
		r.Ingredients = []model.Ingredient{}
	}
	return r, nil
}

func encodeLists(r model.Recipe) (string, string, error) {
	tags, err := json.Marshal(r.Tags)
	if err != nil {
		return "", "", err
	}
	ingredients, err := json.Marshal(r.Ingredients)
	if err != nil {
		return "", "", err
	}
	return string(tags), string(ingredients), nil
}
