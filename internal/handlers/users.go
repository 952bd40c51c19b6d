package handlers

import (
	"net/http"
	"strconv"

	"foodgram/internal/errs"
	applog "foodgram/internal/log"
	"foodgram/internal/recipes"
	"foodgram/models"
)

const usersPrefix = "/api/users"

// UserResource serves the user list, registration, profiles, the current
// user and author subscriptions.
func UserResource(w http.ResponseWriter, r *http.Request) {
	if serviceUnavailable(w, r) {
		return
	}

	segments := resourcePath(r, usersPrefix)
	if len(segments) == 0 {
		switch r.Method {
		case http.MethodGet:
			listUsers(w, r)
		case http.MethodPost:
			Signup(w, r)
		default:
			methodNotAllowed(w, r)
		}
		return
	}
	if len(segments) == 1 {
		switch segments[0] {
		case "me":
			if r.Method != http.MethodGet {
				methodNotAllowed(w, r)
				return
			}
			showCurrentUser(w, r)
			return
		case "subscriptions":
			if r.Method != http.MethodGet {
				methodNotAllowed(w, r)
				return
			}
			listSubscriptions(w, r)
			return
		case "set_password":
			SetPassword(w, r)
			return
		}
	}

	if len(segments) > 2 {
		http.NotFound(w, r)
		return
	}
	userID, ok := parseID(segments[0])
	if !ok {
		applog.Debug(r.Context(), "invalid user identifier", "identifier", segments[0])
		http.NotFound(w, r)
		return
	}

	if len(segments) == 2 {
		if segments[1] != "subscribe" {
			http.NotFound(w, r)
			return
		}
		toggleSubscription(w, r, userID)
		return
	}

	if r.Method != http.MethodGet {
		methodNotAllowed(w, r)
		return
	}
	showUser(w, r, userID)
}

// listUsers returns every account in sign-up order, flagged with the
// viewer's subscriptions.
func listUsers(w http.ResponseWriter, r *http.Request) {
	viewer, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var users []models.User
	if err := database.WithContext(r.Context()).Order("id asc").Find(&users).Error; err != nil {
		writeError(w, r, err)
		return
	}

	subscribed := map[uint]bool{}
	if viewer != nil {
		if subscribed, err = subscriptions().TargetIDs(r.Context(), viewer.ID, nil); err != nil {
			writeError(w, r, err)
			return
		}
	}

	responses := make([]userResponse, 0, len(users))
	for _, user := range users {
		responses = append(responses, projectUser(user, subscribed[user.ID]))
	}
	writeJSON(w, http.StatusOK, responses)
}

func showCurrentUser(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, projectUser(*user, false))
}

func loadUser(r *http.Request, userID uint) (*models.User, error) {
	user := &models.User{}
	if err := database.WithContext(r.Context()).First(user, userID).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func writeUserLookupError(w http.ResponseWriter, r *http.Request, err error) {
	if errs.IsNotFound(err) {
		err = errs.NotFound("user not found")
	}
	writeError(w, r, err)
}

func showUser(w http.ResponseWriter, r *http.Request, userID uint) {
	viewer, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	user, err := loadUser(r, userID)
	if err != nil {
		writeUserLookupError(w, r, err)
		return
	}

	subscribed := false
	if viewer != nil {
		if subscribed, err = subscriptions().Has(r.Context(), viewer.ID, user.ID); err != nil {
			writeError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, projectUser(*user, subscribed))
}

func toggleSubscription(w http.ResponseWriter, r *http.Request, authorID uint) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodPost:
		if err := subscriptions().Add(r.Context(), user.ID, authorID); err != nil {
			writeError(w, r, err)
			return
		}
		author, err := loadUser(r, authorID)
		if err != nil {
			writeUserLookupError(w, r, err)
			return
		}
		entry, err := projectSubscription(r, *author, recipesLimit(r))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, entry)
	case http.MethodDelete:
		if err := subscriptions().Remove(r.Context(), user.ID, authorID); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r)
	}
}

func listSubscriptions(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	authorIDs, err := subscriptions().Targets(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var authors []models.User
	if len(authorIDs) > 0 {
		if err := database.WithContext(r.Context()).Where("id IN ?", authorIDs).Find(&authors).Error; err != nil {
			writeError(w, r, err)
			return
		}
	}
	byID := make(map[uint]models.User, len(authors))
	for _, author := range authors {
		byID[author.ID] = author
	}

	limit := recipesLimit(r)
	responses := make([]subscriptionResponse, 0, len(authorIDs))
	for _, id := range authorIDs {
		author, found := byID[id]
		if !found {
			continue
		}
		entry, err := projectSubscription(r, author, limit)
		if err != nil {
			writeError(w, r, err)
			return
		}
		responses = append(responses, entry)
	}
	writeJSON(w, http.StatusOK, responses)
}

func projectSubscription(r *http.Request, author models.User, limit int) (subscriptionResponse, error) {
	manager := recipeManager()
	filter := recipes.Filter{AuthorID: author.ID, Limit: limit}

	authored, err := manager.List(r.Context(), filter)
	if err != nil {
		return subscriptionResponse{}, err
	}
	count, err := manager.Count(r.Context(), filter)
	if err != nil {
		return subscriptionResponse{}, err
	}

	entry := subscriptionResponse{
		userResponse: projectUser(author, true),
		Recipes:      make([]shortRecipeResponse, 0, len(authored)),
		RecipesCount: count,
	}
	for _, recipe := range authored {
		entry.Recipes = append(entry.Recipes, projectShortRecipe(recipe))
	}
	return entry, nil
}

// recipesLimit reads ?recipes_limit; missing or invalid values mean no limit.
func recipesLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("recipes_limit"))
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}
