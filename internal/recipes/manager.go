package recipes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"foodgram/internal/db"
	"foodgram/internal/errs"
	applog "foodgram/internal/log"
	"foodgram/models"
)

// Filter narrows List. Zero values disable a criterion.
type Filter struct {
	// TagSlugs matches recipes carrying any of the slugs.
	TagSlugs    []string
	AuthorID    uint
	FavoritedBy uint
	InCartOf    uint
	Limit       int
}

// Manager owns recipe aggregates: the recipe row, its tag links and its
// ingredient lines are always written together in one transaction.
type Manager struct {
	db        *gorm.DB
	tx        db.TxRunner
	validator *Validator
	now       func() time.Time
}

func NewManager(database *gorm.DB, catalog Catalog) *Manager {
	return &Manager{
		db:        database,
		tx:        db.NewTxRunner(database),
		validator: NewValidator(catalog),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (m *Manager) Create(ctx context.Context, authorID uint, sub Submission) (models.Recipe, error) {
	if err := m.validator.Validate(ctx, sub); err != nil {
		return models.Recipe{}, err
	}

	recipe := models.Recipe{
		Name:        strings.TrimSpace(sub.Name),
		Image:       strings.TrimSpace(sub.Image),
		Text:        sub.Text,
		CookingTime: sub.CookingTime,
		AuthorID:    authorID,
		PublishedAt: m.now(),
	}
	err := m.tx.InTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&recipe).Error; err != nil {
			return fmt.Errorf("insert recipe: %w", err)
		}
		return writeComponents(tx, recipe.ID, sub)
	})
	if err != nil {
		return models.Recipe{}, catalogChanged(err)
	}

	applog.Info(ctx, "recipe created", "recipe_id", recipe.ID, "author_id", authorID)
	return m.Get(ctx, recipe.ID)
}

// Update replaces the recipe's scalar fields, tags and ingredient lines with
// the submission. The author and publication date never change.
func (m *Manager) Update(ctx context.Context, recipeID uint, sub Submission) (models.Recipe, error) {
	if err := m.exists(ctx, recipeID); err != nil {
		return models.Recipe{}, err
	}
	if err := m.validator.Validate(ctx, sub); err != nil {
		return models.Recipe{}, err
	}

	err := m.tx.InTx(ctx, func(tx *gorm.DB) error {
		var current models.Recipe
		if err := tx.Select("id").First(&current, recipeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.NotFound("recipe not found")
			}
			return fmt.Errorf("load recipe %d: %w", recipeID, err)
		}

		if err := tx.Model(&current).Updates(map[string]any{
			"name":         strings.TrimSpace(sub.Name),
			"image":        strings.TrimSpace(sub.Image),
			"text":         sub.Text,
			"cooking_time": sub.CookingTime,
		}).Error; err != nil {
			return fmt.Errorf("update recipe %d: %w", recipeID, err)
		}

		if err := tx.Where("recipe_id = ?", recipeID).Delete(&models.RecipeTag{}).Error; err != nil {
			return fmt.Errorf("clear tags of recipe %d: %w", recipeID, err)
		}
		if err := tx.Where("recipe_id = ?", recipeID).Delete(&models.RecipeIngredient{}).Error; err != nil {
			return fmt.Errorf("clear ingredients of recipe %d: %w", recipeID, err)
		}
		return writeComponents(tx, recipeID, sub)
	})
	if err != nil {
		return models.Recipe{}, catalogChanged(err)
	}

	applog.Info(ctx, "recipe updated", "recipe_id", recipeID)
	return m.Get(ctx, recipeID)
}

func (m *Manager) exists(ctx context.Context, recipeID uint) error {
	var count int64
	if err := m.db.WithContext(ctx).Model(&models.Recipe{}).Where("id = ?", recipeID).Count(&count).Error; err != nil {
		return fmt.Errorf("look up recipe %d: %w", recipeID, err)
	}
	if count == 0 {
		return errs.NotFound("recipe not found")
	}
	return nil
}

// catalogChanged reports an ingredient or tag removed after validation
// passed as a rejected submission.
func catalogChanged(err error) error {
	if errs.IsForeignKeyViolation(err) {
		return errs.Invalid("an ingredient or tag of this recipe no longer exists")
	}
	return err
}

func writeComponents(tx *gorm.DB, recipeID uint, sub Submission) error {
	links := make([]models.RecipeTag, 0, len(sub.Tags))
	for _, tagID := range sub.Tags {
		links = append(links, models.RecipeTag{RecipeID: recipeID, TagID: tagID})
	}
	if err := tx.Create(&links).Error; err != nil {
		return fmt.Errorf("insert tag links: %w", err)
	}

	lines := make([]models.RecipeIngredient, 0, len(sub.Ingredients))
	for _, item := range sub.Ingredients {
		lines = append(lines, models.RecipeIngredient{RecipeID: recipeID, IngredientID: item.ID, Amount: item.Amount})
	}
	if err := tx.Omit(clause.Associations).Create(&lines).Error; err != nil {
		return fmt.Errorf("insert ingredient lines: %w", err)
	}
	return nil
}

// Delete removes the recipe along with everything that references it.
func (m *Manager) Delete(ctx context.Context, recipeID uint) error {
	err := m.tx.InTx(ctx, func(tx *gorm.DB) error {
		for _, dependent := range []any{
			&models.RecipeIngredient{},
			&models.RecipeTag{},
			&models.Favorite{},
			&models.ShoppingCartEntry{},
		} {
			if err := tx.Where("recipe_id = ?", recipeID).Delete(dependent).Error; err != nil {
				return fmt.Errorf("delete dependents of recipe %d: %w", recipeID, err)
			}
		}

		result := tx.Delete(&models.Recipe{}, recipeID)
		if result.Error != nil {
			return fmt.Errorf("delete recipe %d: %w", recipeID, result.Error)
		}
		if result.RowsAffected == 0 {
			return errs.NotFound("recipe not found")
		}
		return nil
	})
	if err != nil {
		return err
	}

	applog.Info(ctx, "recipe deleted", "recipe_id", recipeID)
	return nil
}

func (m *Manager) Get(ctx context.Context, recipeID uint) (models.Recipe, error) {
	var recipe models.Recipe
	err := withComponents(m.db.WithContext(ctx)).First(&recipe, recipeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Recipe{}, errs.NotFound("recipe not found")
	}
	if err != nil {
		return models.Recipe{}, fmt.Errorf("load recipe %d: %w", recipeID, err)
	}
	return recipe, nil
}

// List returns recipes matching filter, newest first.
func (m *Manager) List(ctx context.Context, filter Filter) ([]models.Recipe, error) {
	query := withComponents(m.filtered(ctx, filter)).Order(models.RecipeOrder)
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var recipes []models.Recipe
	if err := query.Find(&recipes).Error; err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	return recipes, nil
}

// Count returns how many recipes match filter, ignoring its limit.
func (m *Manager) Count(ctx context.Context, filter Filter) (int64, error) {
	var count int64
	if err := m.filtered(ctx, filter).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count recipes: %w", err)
	}
	return count, nil
}

func (m *Manager) filtered(ctx context.Context, filter Filter) *gorm.DB {
	query := m.db.WithContext(ctx).Model(&models.Recipe{})
	if len(filter.TagSlugs) > 0 {
		tagged := m.db.Model(&models.RecipeTag{}).
			Select("recipe_tags.recipe_id").
			Joins("JOIN tags ON tags.id = recipe_tags.tag_id").
			Where("tags.slug IN ?", filter.TagSlugs)
		query = query.Where("recipes.id IN (?)", tagged)
	}
	if filter.AuthorID != 0 {
		query = query.Where("recipes.author_id = ?", filter.AuthorID)
	}
	if filter.FavoritedBy != 0 {
		query = query.Where("recipes.id IN (?)", m.db.Model(&models.Favorite{}).Select("recipe_id").Where("user_id = ?", filter.FavoritedBy))
	}
	if filter.InCartOf != 0 {
		query = query.Where("recipes.id IN (?)", m.db.Model(&models.ShoppingCartEntry{}).Select("recipe_id").Where("user_id = ?", filter.InCartOf))
	}
	return query
}

func withComponents(query *gorm.DB) *gorm.DB {
	return query.
		Preload("Author").
		Preload("Tags", func(tx *gorm.DB) *gorm.DB { return tx.Order(models.NameOrder) }).
		Preload("Ingredients", func(tx *gorm.DB) *gorm.DB { return tx.Order("id asc") }).
		Preload("Ingredients.Ingredient.MeasurementUnit")
}

// CheckAuthor allows changes to a recipe by its author or an administrator.
func CheckAuthor(user models.User, recipe models.Recipe) error {
	if user.IsAdmin || user.ID == recipe.AuthorID {
		return nil
	}
	return errs.Forbidden("only the author can change this recipe")
}
