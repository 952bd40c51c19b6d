package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	applog "foodgram/internal/log"
	"foodgram/internal/recipes"
	"foodgram/internal/views"
	"foodgram/models"
)

const recipesPrefix = "/api/recipes"

// RecipeResource serves recipes and the per-recipe favorite and cart toggles.
func RecipeResource(w http.ResponseWriter, r *http.Request) {
	if serviceUnavailable(w, r) {
		return
	}

	segments := resourcePath(r, recipesPrefix)
	switch {
	case len(segments) == 0:
		switch r.Method {
		case http.MethodGet:
			listRecipes(w, r)
		case http.MethodPost:
			createRecipe(w, r)
		default:
			methodNotAllowed(w, r)
		}
		return
	case len(segments) == 1 && segments[0] == "download_shopping_cart":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r)
			return
		}
		downloadShoppingCart(w, r)
		return
	}

	recipeID, ok := parseID(segments[0])
	if !ok || len(segments) > 2 {
		applog.Debug(r.Context(), "invalid recipe path", "path", r.URL.Path)
		http.NotFound(w, r)
		return
	}

	if len(segments) == 2 {
		switch segments[1] {
		case "favorite":
			toggleRecipeRelation(w, r, recipeID, favorites())
		case "shopping_cart":
			toggleRecipeRelation(w, r, recipeID, shoppingCart())
		default:
			http.NotFound(w, r)
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		showRecipe(w, r, recipeID)
	case http.MethodPatch, http.MethodPut:
		updateRecipe(w, r, recipeID)
	case http.MethodDelete:
		deleteRecipe(w, r, recipeID)
	default:
		methodNotAllowed(w, r)
	}
}

func listRecipes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	query := r.URL.Query()
	filter := recipes.Filter{TagSlugs: query["tags"]}
	if author := query.Get("author"); author != "" {
		authorID, ok := parseID(author)
		if !ok {
			writeJSON(w, http.StatusOK, []recipeResponse{})
			return
		}
		filter.AuthorID = authorID
	}
	if queryFlag(r, "is_favorited") || queryFlag(r, "is_in_shopping_cart") {
		if viewer == nil {
			writeJSON(w, http.StatusOK, []recipeResponse{})
			return
		}
		if queryFlag(r, "is_favorited") {
			filter.FavoritedBy = viewer.ID
		}
		if queryFlag(r, "is_in_shopping_cart") {
			filter.InCartOf = viewer.ID
		}
	}

	page, err := recipeManager().List(ctx, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	marks, err := marksFor(ctx, viewer, page)
	if err != nil {
		writeError(w, r, err)
		return
	}

	responses := make([]recipeResponse, 0, len(page))
	for _, recipe := range page {
		responses = append(responses, projectRecipe(recipe, marks))
	}
	writeJSON(w, http.StatusOK, responses)
}

func showRecipe(w http.ResponseWriter, r *http.Request, recipeID uint) {
	viewer, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	recipe, err := recipeManager().Get(r.Context(), recipeID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithRecipe(w, r, http.StatusOK, viewer, recipe)
}

func createRecipe(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var payload recipes.Submission
	if !decodeJSON(w, r, &payload) {
		return
	}

	recipe, err := recipeManager().Create(r.Context(), user.ID, payload)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithRecipe(w, r, http.StatusCreated, user, recipe)
}

// updateRecipe replaces the whole recipe; PATCH expects the same complete
// payload as create.
func updateRecipe(w http.ResponseWriter, r *http.Request, recipeID uint) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	manager := recipeManager()
	current, err := manager.Get(r.Context(), recipeID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := recipes.CheckAuthor(*user, current); err != nil {
		writeError(w, r, err)
		return
	}

	var payload recipes.Submission
	if !decodeJSON(w, r, &payload) {
		return
	}

	recipe, err := manager.Update(r.Context(), recipeID, payload)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithRecipe(w, r, http.StatusOK, user, recipe)
}

func deleteRecipe(w http.ResponseWriter, r *http.Request, recipeID uint) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	manager := recipeManager()
	current, err := manager.Get(r.Context(), recipeID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := recipes.CheckAuthor(*user, current); err != nil {
		writeError(w, r, err)
		return
	}

	if err := manager.Delete(r.Context(), recipeID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func respondWithRecipe(w http.ResponseWriter, r *http.Request, status int, viewer *models.User, recipe models.Recipe) {
	marks, err := marksFor(r.Context(), viewer, []models.Recipe{recipe})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, status, projectRecipe(recipe, marks))
}

type recipeToggle interface {
	Add(ctx context.Context, userID, targetID uint) error
	Remove(ctx context.Context, userID, targetID uint) error
}

func toggleRecipeRelation(w http.ResponseWriter, r *http.Request, recipeID uint, toggle recipeToggle) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodPost:
		if err := toggle.Add(r.Context(), user.ID, recipeID); err != nil {
			writeError(w, r, err)
			return
		}
		recipe, err := recipeManager().Get(r.Context(), recipeID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, projectShortRecipe(recipe))
	case http.MethodDelete:
		if err := toggle.Remove(r.Context(), user.ID, recipeID); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r)
	}
}

func downloadShoppingCart(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	doc, err := shoppingLists().Document(r.Context(), *user, time.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(doc.Filename()))
	if err := views.ShoppingList(doc).Render(r.Context(), w); err != nil {
		applog.Error(r.Context(), "failed to render shopping list", "error", err, "userID", user.ID)
		return
	}
	applog.Debug(r.Context(), "shopping list downloaded", "userID", user.ID, "lines", len(doc.Lines))
}
