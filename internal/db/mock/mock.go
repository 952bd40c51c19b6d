package mock

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"foodgram/internal/db"
	applog "foodgram/internal/log"
	"foodgram/models"
)

// Password is the password of every seeded account.
const Password = "foodgram"

// New returns an in-memory sqlite database seeded with a small kitchen:
// two cooks, a catalog, three recipes and a filled shopping cart.
func New(ctx context.Context) (*gorm.DB, error) {
	applog.Debug(ctx, "initialising mock database")

	database, err := gorm.Open(db.Dialector("file:foodgram-mock?mode=memory&cache=shared"), db.GormConfig(logger.Silent))
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(database); err != nil {
		return nil, err
	}

	var users int64
	if err := database.WithContext(ctx).Model(&models.User{}).Count(&users).Error; err != nil {
		return nil, err
	}
	if users > 0 {
		applog.Debug(ctx, "mock database already seeded")
		return database, nil
	}

	if err := database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return seed(ctx, tx)
	}); err != nil {
		return nil, err
	}

	applog.Debug(ctx, "mock database ready")
	return database, nil
}

func seed(ctx context.Context, tx *gorm.DB) error {
	applog.Debug(ctx, "seeding mock database")

	password, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	anna := &models.User{
		Email:        "anna@foodgram.app",
		Username:     "anna",
		FirstName:    "Anna",
		LastName:     "Pavlova",
		PasswordHash: string(password),
		IsAdmin:      true,
	}
	boris := &models.User{
		Email:        "boris@foodgram.app",
		Username:     "boris",
		FirstName:    "Boris",
		LastName:     "Kovalev",
		PasswordHash: string(password),
	}
	for _, user := range []*models.User{anna, boris} {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
	}

	units := map[string]*models.MeasurementUnit{}
	for _, name := range []string{"g", "ml", "pcs"} {
		unit := &models.MeasurementUnit{Named: models.Named{Name: name}}
		if err := tx.Create(unit).Error; err != nil {
			return err
		}
		units[name] = unit
	}

	catalog := []struct{ name, unit string }{
		{"flour", "g"},
		{"sugar", "g"},
		{"milk", "ml"},
		{"eggs", "pcs"},
		{"butter", "g"},
	}
	ingredients := map[string]*models.Ingredient{}
	for _, entry := range catalog {
		ingredient := &models.Ingredient{Named: models.Named{Name: entry.name}, MeasurementUnitID: &units[entry.unit].ID}
		if err := tx.Create(ingredient).Error; err != nil {
			return err
		}
		ingredients[entry.name] = ingredient
	}

	tags := map[string]*models.Tag{}
	for _, entry := range []models.Tag{
		{Named: models.Named{Name: "breakfast"}, Color: "#E26C2D", Slug: "breakfast"},
		{Named: models.Named{Name: "lunch"}, Color: "#49B64E", Slug: "lunch"},
		{Named: models.Named{Name: "dinner"}, Color: "#8775D2", Slug: "dinner"},
	} {
		tag := entry
		if err := tx.Create(&tag).Error; err != nil {
			return err
		}
		tags[tag.Slug] = &tag
	}

	type line struct {
		ingredient string
		amount     int
	}
	recipes := []struct {
		author      *models.User
		name        string
		cookingTime int
		lines       []line
		tags        []string
	}{
		{anna, "Pancakes", 25, []line{{"flour", 200}, {"milk", 300}, {"eggs", 2}}, []string{"breakfast"}},
		{anna, "Shortbread", 40, []line{{"flour", 300}, {"butter", 200}, {"sugar", 100}}, []string{"dinner"}},
		{boris, "Omelette", 10, []line{{"eggs", 3}, {"milk", 50}}, []string{"breakfast", "lunch"}},
	}

	published := time.Now().UTC().Add(-time.Hour)
	for idx, entry := range recipes {
		recipe := models.Recipe{
			Name:        entry.name,
			Image:       fmt.Sprintf("recipes/images/%s.png", entry.name),
			Text:        fmt.Sprintf("How to cook %s.", entry.name),
			CookingTime: entry.cookingTime,
			AuthorID:    entry.author.ID,
			PublishedAt: published.Add(time.Duration(idx) * time.Minute),
		}
		if err := tx.Omit("Tags", "Ingredients", "Author").Create(&recipe).Error; err != nil {
			return err
		}
		for _, l := range entry.lines {
			if err := tx.Create(&models.RecipeIngredient{RecipeID: recipe.ID, IngredientID: ingredients[l.ingredient].ID, Amount: l.amount}).Error; err != nil {
				return err
			}
		}
		for _, slug := range entry.tags {
			if err := tx.Create(&models.RecipeTag{RecipeID: recipe.ID, TagID: tags[slug].ID}).Error; err != nil {
				return err
			}
		}
		if entry.author == anna {
			if err := tx.Create(&models.ShoppingCartEntry{UserID: boris.ID, RecipeID: recipe.ID}).Error; err != nil {
				return err
			}
		}
	}

	if err := tx.Create(&models.Subscription{UserID: boris.ID, SubscribingID: anna.ID}).Error; err != nil {
		return err
	}

	applog.Debug(ctx, "mock database seeded")
	return nil
}
