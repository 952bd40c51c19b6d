package shopping

import (
	"context"
	"errors"
	"testing"
	"time"

	"foodgram/internal/db/dbtest"
	"foodgram/internal/errs"
	"foodgram/models"
)

func addToCart(t *testing.T, aggregator *Aggregator, userID, recipeID uint) {
	t.Helper()
	if err := aggregator.db.Create(&models.ShoppingCartEntry{UserID: userID, RecipeID: recipeID}).Error; err != nil {
		t.Fatalf("add to cart: %v", err)
	}
}

func TestBuildSumsAmountsAcrossRecipes(t *testing.T) {
	database := dbtest.Open(t)
	user := dbtest.User(t, database, "anna")
	flour := dbtest.Ingredient(t, database, "flour", "g")
	milk := dbtest.Ingredient(t, database, "milk", "ml")
	eggs := dbtest.Ingredient(t, database, "eggs", "pcs")

	bread := dbtest.Recipe(t, database, user.ID, "bread", dbtest.Line{Ingredient: flour, Amount: 200}, dbtest.Line{Ingredient: milk, Amount: 100})
	cake := dbtest.Recipe(t, database, user.ID, "cake", dbtest.Line{Ingredient: flour, Amount: 300}, dbtest.Line{Ingredient: eggs, Amount: 3})
	dbtest.Recipe(t, database, user.ID, "omelette", dbtest.Line{Ingredient: eggs, Amount: 4})

	aggregator := NewAggregator(database)
	addToCart(t, aggregator, user.ID, bread.ID)
	addToCart(t, aggregator, user.ID, cake.ID)

	lines, err := aggregator.Build(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	want := []Line{
		{IngredientName: "eggs", MeasurementUnitName: "pcs", TotalAmount: 3},
		{IngredientName: "flour", MeasurementUnitName: "g", TotalAmount: 500},
		{IngredientName: "milk", MeasurementUnitName: "ml", TotalAmount: 100},
	}
	if len(lines) != len(want) {
		t.Fatalf("Build() returned %d lines, want %d: %+v", len(lines), len(want), lines)
	}
	for idx := range want {
		if lines[idx] != want[idx] {
			t.Fatalf("line %d = %+v, want %+v", idx, lines[idx], want[idx])
		}
	}
}

func TestBuildKeepsIngredientsWithoutUnit(t *testing.T) {
	database := dbtest.Open(t)
	user := dbtest.User(t, database, "anna")
	salt := dbtest.Ingredient(t, database, "salt", "pinch")
	soup := dbtest.Recipe(t, database, user.ID, "soup", dbtest.Line{Ingredient: salt, Amount: 2})
	if err := database.Model(&models.Ingredient{}).Where("id = ?", salt.ID).Update("measurement_unit_id", nil).Error; err != nil {
		t.Fatalf("detach unit: %v", err)
	}

	aggregator := NewAggregator(database)
	addToCart(t, aggregator, user.ID, soup.ID)

	lines, err := aggregator.Build(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(lines) != 1 || lines[0].MeasurementUnitName != "" || lines[0].TotalAmount != 2 {
		t.Fatalf("unexpected lines %+v", lines)
	}
}

func TestBuildEmptyCart(t *testing.T) {
	database := dbtest.Open(t)
	user := dbtest.User(t, database, "anna")

	_, err := NewAggregator(database).Build(context.Background(), user.ID)
	if !errors.Is(err, ErrCartEmpty) {
		t.Fatalf("Build() error = %v, want ErrCartEmpty", err)
	}
	if !errors.Is(err, errs.ErrValidation) {
		t.Fatal("an empty cart should be reported as a rejected request")
	}
}

func TestDocument(t *testing.T) {
	database := dbtest.Open(t)
	user := dbtest.User(t, database, "anna")
	flour := dbtest.Ingredient(t, database, "flour", "g")
	bread := dbtest.Recipe(t, database, user.ID, "bread", dbtest.Line{Ingredient: flour, Amount: 250})
	aggregator := NewAggregator(database)
	addToCart(t, aggregator, user.ID, bread.ID)

	now := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)
	doc, err := aggregator.Document(context.Background(), user, now)
	if err != nil {
		t.Fatalf("Document() error = %v", err)
	}
	if doc.Owner != "Anna" || doc.Filename() != "anna_shopping_cart.txt" || !doc.GeneratedAt.Equal(now) || len(doc.Lines) != 1 {
		t.Fatalf("unexpected document %+v", doc)
	}
}
