// Package recipes validates recipe submissions and writes recipes together
// with their tag links and ingredient lines.
package recipes

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"foodgram/internal/errs"
)

const maxNameLength = 200

// IngredientAmount is one requested ingredient line.
type IngredientAmount struct {
	ID     uint `json:"id"`
	Amount int  `json:"amount"`
}

// Submission is the payload of a recipe create or update.
type Submission struct {
	Name        string             `json:"name"`
	Image       string             `json:"image"`
	Text        string             `json:"text"`
	CookingTime int                `json:"cooking_time"`
	Ingredients []IngredientAmount `json:"ingredients"`
	Tags        []uint             `json:"tags"`
}

// Catalog answers which of the referenced ids exist.
type Catalog interface {
	ExistingIngredientIDs(ctx context.Context, ids []uint) (map[uint]bool, error)
	ExistingTagIDs(ctx context.Context, ids []uint) (map[uint]bool, error)
}

// Validator checks submissions against the catalog. It stops at the first
// violation and reports it as a field-scoped error.
type Validator struct {
	catalog Catalog
}

func NewValidator(catalog Catalog) *Validator {
	return &Validator{catalog: catalog}
}

func (v *Validator) Validate(ctx context.Context, sub Submission) error {
	if len(sub.Ingredients) == 0 {
		return errs.Validation("ingredients", "at least one ingredient is required")
	}
	if len(sub.Tags) == 0 {
		return errs.Validation("tags", "at least one tag is required")
	}

	ingredientIDs := make([]uint, 0, len(sub.Ingredients))
	for _, item := range sub.Ingredients {
		ingredientIDs = append(ingredientIDs, item.ID)
	}
	knownIngredients, err := v.catalog.ExistingIngredientIDs(ctx, ingredientIDs)
	if err != nil {
		return fmt.Errorf("look up ingredients: %w", err)
	}

	seenIngredients := make(map[uint]struct{}, len(sub.Ingredients))
	for _, item := range sub.Ingredients {
		if !knownIngredients[item.ID] {
			return errs.Validation("ingredients", "ingredient not found: %d", item.ID)
		}
		if _, dup := seenIngredients[item.ID]; dup {
			return errs.Validation("ingredients", "duplicate ingredient: %d", item.ID)
		}
		seenIngredients[item.ID] = struct{}{}
		if item.Amount <= 0 {
			return errs.Validation("ingredients", "amount must be positive: ingredient %d", item.ID)
		}
	}

	knownTags, err := v.catalog.ExistingTagIDs(ctx, sub.Tags)
	if err != nil {
		return fmt.Errorf("look up tags: %w", err)
	}

	seenTags := make(map[uint]struct{}, len(sub.Tags))
	for _, id := range sub.Tags {
		if !knownTags[id] {
			return errs.Validation("tags", "tag not found: %d", id)
		}
		if _, dup := seenTags[id]; dup {
			return errs.Validation("tags", "duplicate tag: %d", id)
		}
		seenTags[id] = struct{}{}
	}

	return validateScalars(sub)
}

func validateScalars(sub Submission) error {
	name := strings.TrimSpace(sub.Name)
	switch {
	case name == "":
		return errs.Validation("name", "name is required")
	case utf8.RuneCountInString(name) > maxNameLength:
		return errs.Validation("name", "name must be at most %d characters", maxNameLength)
	case strings.TrimSpace(sub.Text) == "":
		return errs.Validation("text", "text is required")
	case sub.CookingTime < 1:
		return errs.Validation("cooking_time", "cooking time must be at least 1 minute")
	case strings.TrimSpace(sub.Image) == "":
		return errs.Validation("image", "image is required")
	}
	return nil
}
