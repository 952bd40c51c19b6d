// Package dbtest opens migrated in-memory sqlite databases for tests.
package dbtest

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"foodgram/internal/db"
	"foodgram/models"
)

var counter atomic.Int64

// Open returns a fresh, fully migrated in-memory database that is closed when
// the test finishes. The pool is limited to one connection so sqlite never
// sees concurrent writers.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	url := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, counter.Add(1))

	database, err := gorm.Open(db.Dialector(url), db.GormConfig(logger.Silent))
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	sqlDB, err := database.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	if err := db.AutoMigrate(database); err != nil {
		t.Fatalf("migrate schema: %v", err)
	}
	return database
}

// User inserts a user with a placeholder password hash.
func User(t testing.TB, database *gorm.DB, username string) models.User {
	t.Helper()
	user := models.User{
		Email:        username + "@example.com",
		Username:     username,
		FirstName:    strings.ToUpper(username[:1]) + username[1:],
		PasswordHash: "hash",
	}
	if err := database.Create(&user).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return user
}

// Ingredient inserts an ingredient measured in unit, creating the unit when needed.
func Ingredient(t testing.TB, database *gorm.DB, name, unit string) models.Ingredient {
	t.Helper()
	var measurement models.MeasurementUnit
	if err := database.Where("name = ?", unit).Limit(1).Find(&measurement).Error; err != nil {
		t.Fatalf("find unit %s: %v", unit, err)
	}
	if measurement.ID == 0 {
		measurement.Name = unit
		if err := database.Create(&measurement).Error; err != nil {
			t.Fatalf("create unit %s: %v", unit, err)
		}
	}
	ingredient := models.Ingredient{Named: models.Named{Name: name}, MeasurementUnitID: &measurement.ID}
	if err := database.Create(&ingredient).Error; err != nil {
		t.Fatalf("create ingredient %s: %v", name, err)
	}
	ingredient.MeasurementUnit = &measurement
	return ingredient
}

// Tag inserts a tag whose slug equals its name.
func Tag(t testing.TB, database *gorm.DB, name, color string) models.Tag {
	t.Helper()
	tag := models.Tag{Named: models.Named{Name: name}, Color: color, Slug: name}
	if err := database.Create(&tag).Error; err != nil {
		t.Fatalf("create tag %s: %v", name, err)
	}
	return tag
}

// Line is one ingredient line passed to Recipe.
type Line struct {
	Ingredient models.Ingredient
	Amount     int
}

// Recipe inserts a recipe by authorID with the given ingredient lines.
func Recipe(t testing.TB, database *gorm.DB, authorID uint, name string, lines ...Line) models.Recipe {
	t.Helper()
	recipe := models.Recipe{
		Name:        name,
		Image:       "recipes/images/" + name + ".png",
		Text:        "Cook " + name + ".",
		CookingTime: 15,
		AuthorID:    authorID,
		PublishedAt: time.Now().UTC(),
	}
	if err := database.Omit(clause.Associations).Create(&recipe).Error; err != nil {
		t.Fatalf("create recipe %s: %v", name, err)
	}
	for _, line := range lines {
		row := models.RecipeIngredient{RecipeID: recipe.ID, IngredientID: line.Ingredient.ID, Amount: line.Amount}
		if err := database.Omit(clause.Associations).Create(&row).Error; err != nil {
			t.Fatalf("create line for %s: %v", name, err)
		}
		recipe.Ingredients = append(recipe.Ingredients, row)
	}
	return recipe
}
