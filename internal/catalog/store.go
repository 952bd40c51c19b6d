// Package catalog serves the reference data recipes are built from:
// ingredients with their measurement units, and tags.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gosimple/slug"
	"gorm.io/gorm"

	"foodgram/internal/db"
	"foodgram/internal/errs"
	applog "foodgram/internal/log"
	"foodgram/models"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Store reads and administers catalog entries.
type Store struct {
	db *gorm.DB
	tx db.TxRunner
}

func NewStore(database *gorm.DB) *Store {
	return &Store{db: database, tx: db.NewTxRunner(database)}
}

// Ingredients lists ingredients whose name starts with prefix, ignoring case.
// An empty prefix returns the whole catalog.
func (s *Store) Ingredients(ctx context.Context, prefix string) ([]models.Ingredient, error) {
	query := s.db.WithContext(ctx).Preload("MeasurementUnit").Order(models.NameOrder)
	if prefix = strings.TrimSpace(prefix); prefix != "" {
		query = query.Where(`LOWER(name) LIKE ? ESCAPE '\'`, likeEscaper.Replace(strings.ToLower(prefix))+"%")
	}

	var ingredients []models.Ingredient
	if err := query.Find(&ingredients).Error; err != nil {
		return nil, fmt.Errorf("list ingredients: %w", err)
	}
	return ingredients, nil
}

func (s *Store) Ingredient(ctx context.Context, id uint) (models.Ingredient, error) {
	var ingredient models.Ingredient
	err := s.db.WithContext(ctx).Preload("MeasurementUnit").First(&ingredient, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Ingredient{}, errs.NotFound("ingredient not found")
	}
	if err != nil {
		return models.Ingredient{}, fmt.Errorf("load ingredient %d: %w", id, err)
	}
	return ingredient, nil
}

func (s *Store) Tags(ctx context.Context) ([]models.Tag, error) {
	var tags []models.Tag
	if err := s.db.WithContext(ctx).Order(models.NameOrder).Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return tags, nil
}

func (s *Store) Tag(ctx context.Context, id uint) (models.Tag, error) {
	var tag models.Tag
	err := s.db.WithContext(ctx).First(&tag, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Tag{}, errs.NotFound("tag not found")
	}
	if err != nil {
		return models.Tag{}, fmt.Errorf("load tag %d: %w", id, err)
	}
	return tag, nil
}

// ExistingIngredientIDs returns the subset of ids that name catalog ingredients.
func (s *Store) ExistingIngredientIDs(ctx context.Context, ids []uint) (map[uint]bool, error) {
	return existingIDs(ctx, s.db, &models.Ingredient{}, ids)
}

// ExistingTagIDs returns the subset of ids that name tags.
func (s *Store) ExistingTagIDs(ctx context.Context, ids []uint) (map[uint]bool, error) {
	return existingIDs(ctx, s.db, &models.Tag{}, ids)
}

func existingIDs(ctx context.Context, database *gorm.DB, model any, ids []uint) (map[uint]bool, error) {
	found := make(map[uint]bool, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	var rows []uint
	if err := database.WithContext(ctx).Model(model).Where("id IN ?", ids).Pluck("id", &rows).Error; err != nil {
		return nil, fmt.Errorf("look up ids: %w", err)
	}
	for _, id := range rows {
		found[id] = true
	}
	return found, nil
}

// TagInput describes a tag created by an administrator. Slug is derived from
// Name when left empty.
type TagInput struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	Slug  string `json:"slug"`
}

// tag validates the input and fills in the derived slug.
func (in TagInput) tag() (models.Tag, error) {
	name := strings.TrimSpace(in.Name)
	color := strings.TrimSpace(in.Color)
	tagSlug := strings.TrimSpace(in.Slug)

	switch {
	case name == "":
		return models.Tag{}, errs.Validation("name", "name is required")
	case len([]rune(name)) > 200:
		return models.Tag{}, errs.Validation("name", "name must be at most 200 characters")
	case !models.ValidColor(color):
		return models.Tag{}, errs.Validation("color", "color must be a hex value such as #49B64E")
	}
	if tagSlug == "" {
		tagSlug = slug.Make(name)
	}
	if !slug.IsSlug(tagSlug) {
		return models.Tag{}, errs.Validation("slug", "slug may only contain lowercase letters, digits and hyphens")
	}
	return models.Tag{Named: models.Named{Name: name}, Color: color, Slug: tagSlug}, nil
}

func (s *Store) CreateTag(ctx context.Context, input TagInput) (models.Tag, error) {
	tag, err := input.tag()
	if err != nil {
		return models.Tag{}, err
	}

	if err := s.db.WithContext(ctx).Create(&tag).Error; err != nil {
		if errs.IsDuplicateKey(err) {
			return models.Tag{}, errs.Conflict("tag with this name, color or slug already exists")
		}
		return models.Tag{}, fmt.Errorf("create tag %q: %w", tag.Name, err)
	}

	applog.Info(ctx, "tag created", "tag_id", tag.ID, "slug", tag.Slug)
	return tag, nil
}

// UpdateTag replaces every field of tag id with the input.
func (s *Store) UpdateTag(ctx context.Context, id uint, input TagInput) (models.Tag, error) {
	changed, err := input.tag()
	if err != nil {
		return models.Tag{}, err
	}
	if _, err := s.Tag(ctx, id); err != nil {
		return models.Tag{}, err
	}

	err = s.db.WithContext(ctx).Model(&models.Tag{ID: id}).Updates(map[string]any{
		"name":  changed.Name,
		"color": changed.Color,
		"slug":  changed.Slug,
	}).Error
	if err != nil {
		if errs.IsDuplicateKey(err) {
			return models.Tag{}, errs.Conflict("tag with this name, color or slug already exists")
		}
		return models.Tag{}, fmt.Errorf("update tag %d: %w", id, err)
	}

	applog.Info(ctx, "tag updated", "tag_id", id, "slug", changed.Slug)
	return s.Tag(ctx, id)
}

// DeleteTag removes a tag and unlinks it from every recipe.
func (s *Store) DeleteTag(ctx context.Context, id uint) error {
	err := s.tx.InTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("tag_id = ?", id).Delete(&models.RecipeTag{}).Error; err != nil {
			return fmt.Errorf("unlink tag %d: %w", id, err)
		}
		result := tx.Delete(&models.Tag{}, id)
		if result.Error != nil {
			return fmt.Errorf("delete tag %d: %w", id, result.Error)
		}
		if result.RowsAffected == 0 {
			return errs.NotFound("tag not found")
		}
		return nil
	})
	if err != nil {
		return err
	}
	applog.Info(ctx, "tag deleted", "tag_id", id)
	return nil
}

// IngredientInput describes an ingredient created by an administrator.
type IngredientInput struct {
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
}

func (in IngredientInput) validate() (name, unit string, err error) {
	name = strings.TrimSpace(in.Name)
	unit = strings.TrimSpace(in.MeasurementUnit)
	switch {
	case name == "":
		return "", "", errs.Validation("name", "name is required")
	case len([]rune(name)) > 200:
		return "", "", errs.Validation("name", "name must be at most 200 characters")
	case unit == "":
		return "", "", errs.Validation("measurement_unit", "measurement unit is required")
	}
	return name, unit, nil
}

// CreateIngredient adds an ingredient, creating its measurement unit when the
// unit is not known yet.
func (s *Store) CreateIngredient(ctx context.Context, input IngredientInput) (models.Ingredient, error) {
	name, unitName, err := input.validate()
	if err != nil {
		return models.Ingredient{}, err
	}

	var ingredient models.Ingredient
	err = s.tx.InTx(ctx, func(tx *gorm.DB) error {
		unit, err := unitByName(tx, unitName)
		if err != nil {
			return err
		}
		ingredient = models.Ingredient{Named: models.Named{Name: name}, MeasurementUnitID: &unit.ID, MeasurementUnit: &unit}
		return tx.Omit("MeasurementUnit").Create(&ingredient).Error
	})
	if err != nil {
		if errs.IsDuplicateKey(err) {
			return models.Ingredient{}, errs.Conflict("ingredient %q already exists", name)
		}
		return models.Ingredient{}, fmt.Errorf("create ingredient %q: %w", name, err)
	}

	applog.Info(ctx, "ingredient created", "ingredient_id", ingredient.ID, "unit", unitName)
	return ingredient, nil
}

// UpdateIngredient renames an ingredient and moves it to the named unit,
// creating the unit when needed.
func (s *Store) UpdateIngredient(ctx context.Context, id uint, input IngredientInput) (models.Ingredient, error) {
	name, unitName, err := input.validate()
	if err != nil {
		return models.Ingredient{}, err
	}

	err = s.tx.InTx(ctx, func(tx *gorm.DB) error {
		var current models.Ingredient
		if err := tx.Select("id").First(&current, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.NotFound("ingredient not found")
			}
			return fmt.Errorf("load ingredient %d: %w", id, err)
		}
		unit, err := unitByName(tx, unitName)
		if err != nil {
			return err
		}
		return tx.Model(&current).Updates(map[string]any{"name": name, "measurement_unit_id": unit.ID}).Error
	})
	if err != nil {
		if errs.IsDuplicateKey(err) {
			return models.Ingredient{}, errs.Conflict("ingredient %q already exists", name)
		}
		if errors.Is(err, errs.ErrNotFound) {
			return models.Ingredient{}, err
		}
		return models.Ingredient{}, fmt.Errorf("update ingredient %d: %w", id, err)
	}

	applog.Info(ctx, "ingredient updated", "ingredient_id", id, "unit", unitName)
	return s.Ingredient(ctx, id)
}

// DeleteIngredient removes an ingredient together with the recipe lines
// that use it.
func (s *Store) DeleteIngredient(ctx context.Context, id uint) error {
	err := s.tx.InTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("ingredient_id = ?", id).Delete(&models.RecipeIngredient{}).Error; err != nil {
			return fmt.Errorf("delete lines of ingredient %d: %w", id, err)
		}
		result := tx.Delete(&models.Ingredient{}, id)
		if result.Error != nil {
			return fmt.Errorf("delete ingredient %d: %w", id, result.Error)
		}
		if result.RowsAffected == 0 {
			return errs.NotFound("ingredient not found")
		}
		return nil
	})
	if err != nil {
		return err
	}
	applog.Info(ctx, "ingredient deleted", "ingredient_id", id)
	return nil
}

func (s *Store) MeasurementUnits(ctx context.Context) ([]models.MeasurementUnit, error) {
	var units []models.MeasurementUnit
	if err := s.db.WithContext(ctx).Order(models.NameOrder).Find(&units).Error; err != nil {
		return nil, fmt.Errorf("list measurement units: %w", err)
	}
	return units, nil
}

// DeleteMeasurementUnit removes a unit. Ingredients measured in it keep
// existing with no unit.
func (s *Store) DeleteMeasurementUnit(ctx context.Context, id uint) error {
	err := s.tx.InTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Model(&models.Ingredient{}).Where("measurement_unit_id = ?", id).Update("measurement_unit_id", nil).Error; err != nil {
			return fmt.Errorf("detach ingredients from unit %d: %w", id, err)
		}
		result := tx.Delete(&models.MeasurementUnit{}, id)
		if result.Error != nil {
			return fmt.Errorf("delete unit %d: %w", id, result.Error)
		}
		if result.RowsAffected == 0 {
			return errs.NotFound("measurement unit not found")
		}
		return nil
	})
	if err != nil {
		return err
	}
	applog.Info(ctx, "measurement unit deleted", "unit_id", id)
	return nil
}

// unitByName returns the unit called name, creating it if needed.
func unitByName(tx *gorm.DB, name string) (models.MeasurementUnit, error) {
	var unit models.MeasurementUnit
	err := tx.Where("name = ?", name).First(&unit).Error
	if err == nil {
		return unit, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.MeasurementUnit{}, fmt.Errorf("find unit %q: %w", name, err)
	}

	unit = models.MeasurementUnit{Named: models.Named{Name: name}}
	if err := tx.Create(&unit).Error; err != nil {
		return models.MeasurementUnit{}, fmt.Errorf("create unit %q: %w", name, err)
	}
	return unit, nil
}
