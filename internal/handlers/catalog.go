package handlers

import (
	"net/http"

	"foodgram/internal/catalog"
	applog "foodgram/internal/log"
)

const (
	ingredientsPrefix      = "/api/ingredients"
	tagsPrefix             = "/api/tags"
	measurementUnitsPrefix = "/api/measurement_units"
)

type measurementUnitResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// IngredientResource lists and searches ingredients; administrators can add,
// change and remove them.
func IngredientResource(w http.ResponseWriter, r *http.Request) {
	if serviceUnavailable(w, r) {
		return
	}

	segments := resourcePath(r, ingredientsPrefix)
	switch len(segments) {
	case 0:
		switch r.Method {
		case http.MethodGet:
			listIngredients(w, r)
		case http.MethodPost:
			createIngredient(w, r)
		default:
			methodNotAllowed(w, r)
		}
	case 1:
		id, ok := parseID(segments[0])
		if !ok {
			http.NotFound(w, r)
			return
		}
		switch r.Method {
		case http.MethodGet:
			ingredient, err := catalogStore().Ingredient(r.Context(), id)
			if err != nil {
				writeError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, projectIngredient(ingredient))
		case http.MethodPut, http.MethodPatch:
			updateIngredient(w, r, id)
		case http.MethodDelete:
			if _, ok := requireAdmin(w, r); !ok {
				return
			}
			if err := catalogStore().DeleteIngredient(r.Context(), id); err != nil {
				writeError(w, r, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			methodNotAllowed(w, r)
		}
	default:
		http.NotFound(w, r)
	}
}

func listIngredients(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("name")
	ingredients, err := catalogStore().Ingredients(r.Context(), prefix)
	if err != nil {
		writeError(w, r, err)
		return
	}
	applog.Debug(r.Context(), "ingredients listed", "prefix", prefix, "count", len(ingredients))

	responses := make([]ingredientResponse, 0, len(ingredients))
	for _, ingredient := range ingredients {
		responses = append(responses, projectIngredient(ingredient))
	}
	writeJSON(w, http.StatusOK, responses)
}

func createIngredient(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	var payload catalog.IngredientInput
	if !decodeJSON(w, r, &payload) {
		return
	}
	ingredient, err := catalogStore().CreateIngredient(r.Context(), payload)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, projectIngredient(ingredient))
}

func updateIngredient(w http.ResponseWriter, r *http.Request, id uint) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	var payload catalog.IngredientInput
	if !decodeJSON(w, r, &payload) {
		return
	}
	ingredient, err := catalogStore().UpdateIngredient(r.Context(), id, payload)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projectIngredient(ingredient))
}

// TagResource lists tags; administrators can add, change and remove them.
func TagResource(w http.ResponseWriter, r *http.Request) {
	if serviceUnavailable(w, r) {
		return
	}

	segments := resourcePath(r, tagsPrefix)
	switch len(segments) {
	case 0:
		switch r.Method {
		case http.MethodGet:
			tags, err := catalogStore().Tags(r.Context())
			if err != nil {
				writeError(w, r, err)
				return
			}
			responses := make([]tagResponse, 0, len(tags))
			for _, tag := range tags {
				responses = append(responses, projectTag(tag))
			}
			writeJSON(w, http.StatusOK, responses)
		case http.MethodPost:
			if _, ok := requireAdmin(w, r); !ok {
				return
			}
			var payload catalog.TagInput
			if !decodeJSON(w, r, &payload) {
				return
			}
			tag, err := catalogStore().CreateTag(r.Context(), payload)
			if err != nil {
				writeError(w, r, err)
				return
			}
			writeJSON(w, http.StatusCreated, projectTag(tag))
		default:
			methodNotAllowed(w, r)
		}
	case 1:
		id, ok := parseID(segments[0])
		if !ok {
			http.NotFound(w, r)
			return
		}
		switch r.Method {
		case http.MethodGet:
			tag, err := catalogStore().Tag(r.Context(), id)
			if err != nil {
				writeError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, projectTag(tag))
		case http.MethodPut, http.MethodPatch:
			if _, ok := requireAdmin(w, r); !ok {
				return
			}
			var payload catalog.TagInput
			if !decodeJSON(w, r, &payload) {
				return
			}
			tag, err := catalogStore().UpdateTag(r.Context(), id, payload)
			if err != nil {
				writeError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, projectTag(tag))
		case http.MethodDelete:
			if _, ok := requireAdmin(w, r); !ok {
				return
			}
			if err := catalogStore().DeleteTag(r.Context(), id); err != nil {
				writeError(w, r, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			methodNotAllowed(w, r)
		}
	default:
		http.NotFound(w, r)
	}
}

// MeasurementUnitResource lists units; administrators can remove one, which
// leaves its ingredients without a unit.
func MeasurementUnitResource(w http.ResponseWriter, r *http.Request) {
	if serviceUnavailable(w, r) {
		return
	}

	segments := resourcePath(r, measurementUnitsPrefix)
	switch {
	case len(segments) == 0 && r.Method == http.MethodGet:
		units, err := catalogStore().MeasurementUnits(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		responses := make([]measurementUnitResponse, 0, len(units))
		for _, unit := range units {
			responses = append(responses, measurementUnitResponse{ID: unit.ID, Name: unit.Name})
		}
		writeJSON(w, http.StatusOK, responses)
	case len(segments) == 1:
		id, ok := parseID(segments[0])
		if !ok {
			http.NotFound(w, r)
			return
		}
		if r.Method != http.MethodDelete {
			methodNotAllowed(w, r)
			return
		}
		if _, ok := requireAdmin(w, r); !ok {
			return
		}
		if err := catalogStore().DeleteMeasurementUnit(r.Context(), id); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case len(segments) == 0:
		methodNotAllowed(w, r)
	default:
		http.NotFound(w, r)
	}
}
