// Package shopping sums the ingredients of every recipe in a user's cart.
package shopping

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"foodgram/internal/errs"
	"foodgram/models"
)

// ErrCartEmpty is returned when there is nothing to aggregate.
var ErrCartEmpty = errs.Invalid("your shopping cart is empty")

// Line is the total amount of one ingredient across the cart.
type Line struct {
	IngredientName      string
	MeasurementUnitName string
	TotalAmount         int64
}

// Document is a shopping list ready to be rendered for its owner.
type Document struct {
	Owner       string
	Username    string
	GeneratedAt time.Time
	Lines       []Line
}

// Filename is the attachment name the document is served under.
func (d Document) Filename() string {
	return d.Username + "_shopping_cart.txt"
}

type Aggregator struct {
	db *gorm.DB
}

func NewAggregator(database *gorm.DB) *Aggregator {
	return &Aggregator{db: database}
}

// Build returns one line per distinct ingredient and unit, ordered by
// ingredient name. Ingredients whose unit was deleted carry an empty unit.
func (a *Aggregator) Build(ctx context.Context, userID uint) ([]Line, error) {
	var entries int64
	if err := a.db.WithContext(ctx).Model(&models.ShoppingCartEntry{}).Where("user_id = ?", userID).Count(&entries).Error; err != nil {
		return nil, fmt.Errorf("count cart entries: %w", err)
	}
	if entries == 0 {
		return nil, ErrCartEmpty
	}

	var lines []Line
	err := a.db.WithContext(ctx).
		Table("recipe_ingredients").
		Select("ingredients.name AS ingredient_name, COALESCE(measurement_units.name, '') AS measurement_unit_name, SUM(recipe_ingredients.amount) AS total_amount").
		Joins("JOIN shopping_cart_entries ON shopping_cart_entries.recipe_id = recipe_ingredients.recipe_id").
		Joins("JOIN ingredients ON ingredients.id = recipe_ingredients.ingredient_id").
		Joins("LEFT JOIN measurement_units ON measurement_units.id = ingredients.measurement_unit_id").
		Where("shopping_cart_entries.user_id = ?", userID).
		Group("ingredients.id, ingredients.name, measurement_units.name").
		Order("ingredients.name, ingredients.id").
		Scan(&lines).Error
	if err != nil {
		return nil, fmt.Errorf("aggregate shopping list: %w", err)
	}
	return lines, nil
}

// Document builds the shopping list of user as of now.
func (a *Aggregator) Document(ctx context.Context, user models.User, now time.Time) (Document, error) {
	lines, err := a.Build(ctx, user.ID)
	if err != nil {
		return Document{}, err
	}
	return Document{
		Owner:       user.FullName(),
		Username:    user.Username,
		GeneratedAt: now,
		Lines:       lines,
	}, nil
}
