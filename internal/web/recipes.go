package web

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	appLog "homeplan/internal/log"
	"homeplan/internal/meals"
	"homeplan/internal/store"
)

// GET /api/recipes returns built-in and user recipes merged.
func (s *Server) handleListRecipes(w http.ResponseWriter, r *http.Request) {
	catalog, err := s.app.Store.Catalog(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, catalog)
}

func (s *Server) handleGetRecipe(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	catalog, err := s.app.Store.Catalog(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	rec, ok := meals.Find(catalog, id)
	if !ok {
		writeError(w, http.StatusNotFound, "recipe not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleCreateRecipe(w http.ResponseWriter, r *http.Request) {
	var in store.RecipeInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	rec, err := s.app.Store.CreateRecipe(r.Context(), in)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	appLog.Info("recipe created", "id", rec.ID, "name", rec.Name)
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleUpdateRecipe(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var in store.RecipeInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	rec, err := s.app.Store.UpdateRecipe(r.Context(), id, in)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteRecipe(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.app.Store.DeleteRecipe(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	appLog.Info("recipe deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

func writeStoreError(w http.ResponseWriter, err error) {
	var verr *store.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, store.ErrBuiltinRecipe):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		appLog.Error("store request failed", err)
		writeError(w, http.StatusInternalServerError, "storage error")
	}
}
