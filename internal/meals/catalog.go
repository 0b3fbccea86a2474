// Package meals scores recipes against a day and picks a week of dinners.
package meals

import (
	_ "embed"
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"homeplan/internal/model"
)

//go:embed builtin.yaml
var builtinYAML []byte

var (
	builtinOnce    sync.Once
	builtinRecipes []model.Recipe
	builtinIDs     map[string]bool
)

// ParseRecipes decodes a YAML list of recipes.
func ParseRecipes(data []byte) ([]model.Recipe, error) {
	var out []model.Recipe
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode recipes: %w", err)
	}
	for i, r := range out {
		if r.ID == "" || r.Name == "" {
			return nil, fmt.Errorf("recipe %d: id and name are required", i)
		}
		if out[i].Tags == nil {
			out[i].Tags = []string{}
		}
		if out[i].Ingredients == nil {
			out[i].Ingredients = []model.Ingredient{}
		}
	}
	return out, nil
}

func loadBuiltin() {
	recipes, err := ParseRecipes(builtinYAML)
	if err != nil {
		// Embedded data is part of the binary; a bad file is a build defect.
		panic(err)
	}
	builtinIDs = make(map[string]bool, len(recipes))
	for i := range recipes {
		recipes[i].Builtin = true
		builtinIDs[recipes[i].ID] = true
	}
	builtinRecipes = recipes
}

// Builtin returns a copy of the built-in recipes in their declared order.
func Builtin() []model.Recipe {
	builtinOnce.Do(loadBuiltin)
	return append([]model.Recipe(nil), builtinRecipes...)
}

// IsBuiltinID reports whether id belongs to the reserved built-in namespace.
func IsBuiltinID(id string) bool {
	builtinOnce.Do(loadBuiltin)
	return builtinIDs[id]
}

// Merge returns built-ins followed by user recipes sorted by name. A user
// recipe never shadows a built-in id.
func Merge(builtin, user []model.Recipe) []model.Recipe {
	seen := make(map[string]bool, len(builtin)+len(user))
	out := make([]model.Recipe, 0, len(builtin)+len(user))
	for _, r := range builtin {
		seen[r.ID] = true
		out = append(out, r)
	}

	extra := make([]model.Recipe, 0, len(user))
	for _, r := range user {
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		extra = append(extra, r)
	}
	sort.SliceStable(extra, func(i, j int) bool { return extra[i].Name < extra[j].Name })
	return append(out, extra...)
}

// Find returns the recipe with id, if present.
func Find(catalog []model.Recipe, id string) (model.Recipe, bool) {
	for _, r := range catalog {
		if r.ID == id {
			return r, true
		}
	}
	return model.Recipe{}, false
}

// dinnerCandidates drops recipes whose only tag is "grazer".
func dinnerCandidates(catalog []model.Recipe) []model.Recipe {
	out := make([]model.Recipe, 0, len(catalog))
	for _, r := range catalog {
		if len(r.Tags) == 1 && r.Tags[0] == TagGrazer {
			continue
		}
		out = append(out, r)
	}
	return out
}
