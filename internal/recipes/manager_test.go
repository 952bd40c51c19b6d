package recipes

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"foodgram/internal/catalog"
	"foodgram/internal/db/dbtest"
	"foodgram/internal/errs"
	"foodgram/models"
)

type fixture struct {
	db      *gorm.DB
	manager *Manager
	author  models.User
	flour   models.Ingredient
	milk    models.Ingredient
	eggs    models.Ingredient
	x, y, z models.Tag
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	database := dbtest.Open(t)
	return fixture{
		db:      database,
		manager: NewManager(database, catalog.NewStore(database)),
		author:  dbtest.User(t, database, "anna"),
		flour:   dbtest.Ingredient(t, database, "flour", "g"),
		milk:    dbtest.Ingredient(t, database, "milk", "ml"),
		eggs:    dbtest.Ingredient(t, database, "eggs", "pcs"),
		x:       dbtest.Tag(t, database, "breakfast", "#E26C2D"),
		y:       dbtest.Tag(t, database, "lunch", "#49B64E"),
		z:       dbtest.Tag(t, database, "dinner", "#8775D2"),
	}
}

func (f fixture) submission(tags ...models.Tag) Submission {
	ids := make([]uint, 0, len(tags))
	for _, tag := range tags {
		ids = append(ids, tag.ID)
	}
	return Submission{
		Name:        "Pancakes",
		Image:       "recipes/images/pancakes.png",
		Text:        "Mix and fry.",
		CookingTime: 20,
		Ingredients: []IngredientAmount{{ID: f.flour.ID, Amount: 200}, {ID: f.milk.ID, Amount: 300}},
		Tags:        ids,
	}
}

func countRows(t *testing.T, database *gorm.DB, model any) int64 {
	t.Helper()
	var count int64
	if err := database.Model(model).Count(&count).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	return count
}

func tagIDs(recipe models.Recipe) map[uint]bool {
	ids := map[uint]bool{}
	for _, tag := range recipe.Tags {
		ids[tag.ID] = true
	}
	return ids
}

func TestCreateWritesWholeAggregate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	recipe, err := f.manager.Create(ctx, f.author.ID, f.submission(f.x, f.y))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if recipe.ID == 0 || recipe.AuthorID != f.author.ID || recipe.Author == nil || recipe.Author.Username != "anna" {
		t.Fatalf("unexpected recipe header: %+v", recipe)
	}
	if recipe.PublishedAt.IsZero() {
		t.Fatal("expected publication time to be set")
	}
	if len(recipe.Ingredients) != 2 || recipe.Ingredients[0].Amount != 200 || recipe.Ingredients[1].Amount != 300 {
		t.Fatalf("unexpected ingredient lines: %+v", recipe.Ingredients)
	}
	if recipe.Ingredients[0].Ingredient == nil || recipe.Ingredients[0].Ingredient.UnitName() != "g" {
		t.Fatalf("expected ingredient and unit to be loaded, got %+v", recipe.Ingredients[0].Ingredient)
	}
	if ids := tagIDs(recipe); len(ids) != 2 || !ids[f.x.ID] || !ids[f.y.ID] {
		t.Fatalf("unexpected tags: %+v", recipe.Tags)
	}
}

func TestCreateRejectsEmptyIngredientsWithoutWriting(t *testing.T) {
	f := newFixture(t)
	sub := f.submission(f.x)
	sub.Ingredients = nil

	_, err := f.manager.Create(context.Background(), f.author.ID, sub)
	if field, _ := errs.Field(err); field != "ingredients" {
		t.Fatalf("Create() error = %v, want ingredients validation error", err)
	}
	if n := countRows(t, f.db, &models.Recipe{}); n != 0 {
		t.Fatalf("expected no recipe rows, got %d", n)
	}
}

func TestCreateFailureIsIdempotent(t *testing.T) {
	f := newFixture(t)
	sub := f.submission(f.x)
	sub.Ingredients = append(sub.Ingredients, IngredientAmount{ID: f.flour.ID, Amount: 1})

	for attempt := 0; attempt < 2; attempt++ {
		_, err := f.manager.Create(context.Background(), f.author.ID, sub)
		if !errors.Is(err, errs.ErrValidation) {
			t.Fatalf("attempt %d: Create() error = %v, want validation error", attempt, err)
		}
	}
	for _, model := range []any{&models.Recipe{}, &models.RecipeIngredient{}, &models.RecipeTag{}} {
		if n := countRows(t, f.db, model); n != 0 {
			t.Fatalf("expected no stray rows in %T, got %d", model, n)
		}
	}
}

func TestUpdateWithDuplicateIngredientLeavesRecipeUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	before, err := f.manager.Create(ctx, f.author.ID, f.submission(f.x))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	sub := f.submission(f.y)
	sub.Name = "Crepes"
	sub.Ingredients = []IngredientAmount{{ID: f.eggs.ID, Amount: 2}, {ID: f.eggs.ID, Amount: 3}}
	if _, err := f.manager.Update(ctx, before.ID, sub); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("Update() error = %v, want validation error", err)
	}

	after, err := f.manager.Get(ctx, before.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if after.Name != before.Name || len(after.Ingredients) != len(before.Ingredients) || len(after.Tags) != 1 || after.Tags[0].ID != f.x.ID {
		t.Fatalf("recipe changed after rejected update: before %+v after %+v", before, after)
	}
}

func TestUpdateReplacesTagsAndLines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.manager.Create(ctx, f.author.ID, f.submission(f.x, f.y))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	sub := f.submission(f.y, f.z)
	sub.Name = "Crepes"
	sub.CookingTime = 35
	sub.Ingredients = []IngredientAmount{{ID: f.eggs.ID, Amount: 3}}

	updated, err := f.manager.Update(ctx, created.ID, sub)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if ids := tagIDs(updated); len(ids) != 2 || !ids[f.y.ID] || !ids[f.z.ID] || ids[f.x.ID] {
		t.Fatalf("expected tags {y, z}, got %+v", updated.Tags)
	}
	if len(updated.Ingredients) != 1 || updated.Ingredients[0].IngredientID != f.eggs.ID {
		t.Fatalf("expected only the eggs line, got %+v", updated.Ingredients)
	}
	if updated.Name != "Crepes" || updated.CookingTime != 35 {
		t.Fatalf("scalar fields not updated: %+v", updated)
	}
	if updated.AuthorID != created.AuthorID || !updated.PublishedAt.Equal(created.PublishedAt) {
		t.Fatal("author and publication date must not change on update")
	}
	if n := countRows(t, f.db, &models.RecipeTag{}); n != 2 {
		t.Fatalf("expected 2 tag links, got %d", n)
	}
}

func TestUpdateMissingRecipe(t *testing.T) {
	f := newFixture(t)
	if _, err := f.manager.Update(context.Background(), 404, f.submission(f.x)); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("Update() error = %v, want not found", err)
	}
}

func TestUpdateMissingRecipeIsReportedBeforeValidation(t *testing.T) {
	f := newFixture(t)
	sub := f.submission(f.x)
	sub.Ingredients = nil
	if _, err := f.manager.Update(context.Background(), 404, sub); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("Update() error = %v, want not found", err)
	}
}

// staleCatalog vouches for every id, like a catalog read just before an
// admin removed the row.
type staleCatalog struct{}

func (staleCatalog) ExistingIngredientIDs(_ context.Context, ids []uint) (map[uint]bool, error) {
	return everything(ids), nil
}

func (staleCatalog) ExistingTagIDs(_ context.Context, ids []uint) (map[uint]bool, error) {
	return everything(ids), nil
}

func everything(ids []uint) map[uint]bool {
	found := map[uint]bool{}
	for _, id := range ids {
		found[id] = true
	}
	return found
}

func TestCreateWithVanishedIngredientRollsBack(t *testing.T) {
	f := newFixture(t)
	manager := NewManager(f.db, staleCatalog{})

	sub := f.submission(f.x)
	sub.Ingredients = []IngredientAmount{{ID: f.flour.ID, Amount: 200}, {ID: 999, Amount: 5}}
	_, err := manager.Create(context.Background(), f.author.ID, sub)
	if !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("Create() error = %v, want validation error", err)
	}
	for _, model := range []any{&models.Recipe{}, &models.RecipeIngredient{}, &models.RecipeTag{}} {
		if n := countRows(t, f.db, model); n != 0 {
			t.Fatalf("expected no rows in %T after a dangling reference, got %d", model, n)
		}
	}
}

func TestUpdateWithVanishedTagKeepsRecipe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.manager.Create(ctx, f.author.ID, f.submission(f.x))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	sub := f.submission(f.y)
	sub.Tags = append(sub.Tags, 999)
	if _, err := NewManager(f.db, staleCatalog{}).Update(ctx, created.ID, sub); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("Update() error = %v, want validation error", err)
	}

	after, err := f.manager.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ids := tagIDs(after); len(ids) != 1 || !ids[f.x.ID] {
		t.Fatalf("expected the original tag to survive, got %+v", after.Tags)
	}
}

func TestStorageRejectsDanglingLine(t *testing.T) {
	f := newFixture(t)
	recipe := dbtest.Recipe(t, f.db, f.author.ID, "bread")

	err := f.db.Create(&models.RecipeIngredient{RecipeID: recipe.ID, IngredientID: 999, Amount: 1}).Error
	if !errs.IsForeignKeyViolation(err) {
		t.Fatalf("insert error = %v, want foreign key violation", err)
	}
}

func TestCreateRollsBackOnStorageFailure(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("disk full")
	if err := f.db.Callback().Create().Before("gorm:create").Register("test:fail_lines", func(tx *gorm.DB) {
		if tx.Statement.Table == "recipe_ingredients" {
			tx.AddError(boom)
		}
	}); err != nil {
		t.Fatalf("register callback: %v", err)
	}

	if _, err := f.manager.Create(context.Background(), f.author.ID, f.submission(f.x)); !errors.Is(err, boom) {
		t.Fatalf("Create() error = %v, want %v", err, boom)
	}
	if n := countRows(t, f.db, &models.Recipe{}); n != 0 {
		t.Fatalf("expected the recipe row to be rolled back, got %d", n)
	}
	if n := countRows(t, f.db, &models.RecipeTag{}); n != 0 {
		t.Fatalf("expected tag links to be rolled back, got %d", n)
	}
}

func TestDeleteRemovesDependents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	recipe, err := f.manager.Create(ctx, f.author.ID, f.submission(f.x))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := f.db.Create(&models.Favorite{UserID: f.author.ID, RecipeID: recipe.ID}).Error; err != nil {
		t.Fatalf("create favorite: %v", err)
	}
	if err := f.db.Create(&models.ShoppingCartEntry{UserID: f.author.ID, RecipeID: recipe.ID}).Error; err != nil {
		t.Fatalf("create cart entry: %v", err)
	}

	if err := f.manager.Delete(ctx, recipe.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	for _, model := range []any{&models.Recipe{}, &models.RecipeIngredient{}, &models.RecipeTag{}, &models.Favorite{}, &models.ShoppingCartEntry{}} {
		if n := countRows(t, f.db, model); n != 0 {
			t.Fatalf("expected %T rows to be removed, got %d", model, n)
		}
	}

	if err := f.manager.Delete(ctx, recipe.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("second Delete() error = %v, want not found", err)
	}
	if _, err := f.manager.Get(ctx, recipe.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("Get() error = %v, want not found", err)
	}
}

func TestListFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := dbtest.User(t, f.db, "boris")

	first, err := f.manager.Create(ctx, f.author.ID, f.submission(f.x))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	second, err := f.manager.Create(ctx, f.author.ID, f.submission(f.y))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	third, err := f.manager.Create(ctx, other.ID, f.submission(f.x, f.z))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := f.db.Create(&models.Favorite{UserID: other.ID, RecipeID: first.ID}).Error; err != nil {
		t.Fatalf("create favorite: %v", err)
	}
	if err := f.db.Create(&models.ShoppingCartEntry{UserID: other.ID, RecipeID: second.ID}).Error; err != nil {
		t.Fatalf("create cart entry: %v", err)
	}

	cases := []struct {
		name   string
		filter Filter
		want   []uint
	}{
		{"all newest first", Filter{}, []uint{third.ID, second.ID, first.ID}},
		{"tag any-of", Filter{TagSlugs: []string{f.x.Slug, f.z.Slug}}, []uint{third.ID, first.ID}},
		{"author", Filter{AuthorID: f.author.ID}, []uint{second.ID, first.ID}},
		{"favorited", Filter{FavoritedBy: other.ID}, []uint{first.ID}},
		{"in cart", Filter{InCartOf: other.ID}, []uint{second.ID}},
		{"limit", Filter{AuthorID: f.author.ID, Limit: 1}, []uint{second.ID}},
		{"combined", Filter{AuthorID: f.author.ID, TagSlugs: []string{f.y.Slug}}, []uint{second.ID}},
	}
	for _, tt := range cases {
		got, err := f.manager.List(ctx, tt.filter)
		if err != nil {
			t.Fatalf("%s: List() error = %v", tt.name, err)
		}
		if len(got) != len(tt.want) {
			t.Fatalf("%s: List() returned %d recipes, want %d", tt.name, len(got), len(tt.want))
		}
		for idx := range got {
			if got[idx].ID != tt.want[idx] {
				t.Fatalf("%s: recipe %d = %d, want %d", tt.name, idx, got[idx].ID, tt.want[idx])
			}
		}
	}

	count, err := f.manager.Count(ctx, Filter{AuthorID: f.author.ID, Limit: 1})
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 2 {
		t.Fatalf("Count() = %d, want 2", count)
	}
}

func TestCheckAuthor(t *testing.T) {
	t.Parallel()
	recipe := models.Recipe{AuthorID: 1}

	author := models.User{}
	author.ID = 1
	stranger := models.User{}
	stranger.ID = 2
	admin := models.User{IsAdmin: true}
	admin.ID = 3

	if err := CheckAuthor(author, recipe); err != nil {
		t.Fatalf("author: %v", err)
	}
	if err := CheckAuthor(admin, recipe); err != nil {
		t.Fatalf("admin: %v", err)
	}
	if err := CheckAuthor(stranger, recipe); !errors.Is(err, errs.ErrForbidden) {
		t.Fatalf("stranger: error = %v, want forbidden", err)
	}
}
