package db

import (
	"context"
	"errors"
	"testing"

	"foodgram/internal/config"
	"foodgram/models"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDatabase(t *testing.T, name string) *gorm.DB {
	t.Helper()
	database, err := gorm.Open(Dialector("file:"+name+"?mode=memory&cache=shared"), GormConfig(logger.Silent))
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := database.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return database
}

func TestInitializeRequiresURL(t *testing.T) {
	t.Parallel()

	db, err := Initialize(config.DatabaseConfig{URL: ""})
	if err == nil {
		t.Fatal("expected error when database URL is empty")
	}
	if db != nil {
		t.Fatal("expected returned db handle to be nil on error")
	}
}

func TestInitializeOpensSQLiteURL(t *testing.T) {
	t.Parallel()

	database, err := Initialize(config.DatabaseConfig{URL: "sqlite://file:initdb?mode=memory&cache=shared", MaxOpenConns: 1})
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if database.Dialector.Name() != "sqlite" {
		t.Fatalf("dialector = %q, want sqlite", database.Dialector.Name())
	}
}

func TestDialectorSelectsDriver(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"postgres://user@localhost/foodgram": "postgres",
		"sqlite:foodgram.db":                 "sqlite",
		"file:foodgram.db":                   "sqlite",
	}
	for url, want := range cases {
		if got := Dialector(url).Name(); got != want {
			t.Fatalf("Dialector(%q) = %q, want %q", url, got, want)
		}
	}
}

func TestAutoMigrateRejectsNilDatabase(t *testing.T) {
	t.Parallel()

	if err := AutoMigrate(nil); err == nil {
		t.Fatal("expected error when database handle is nil")
	}
}

func TestAutoMigrateWithSQLite(t *testing.T) {
	t.Parallel()

	database := openTestDatabase(t, "migratedb")
	if err := AutoMigrate(database); err != nil {
		t.Fatalf("automigrate sqlite database: %v", err)
	}

	for _, table := range []string{"recipes", "recipe_ingredients", "recipe_tags", "favorites", "shopping_cart_entries", "subscriptions"} {
		if !database.Migrator().HasTable(table) {
			t.Fatalf("expected table %s to exist", table)
		}
	}
}

func TestConfigurePropagatesInitializationError(t *testing.T) {
	t.Parallel()

	if _, err := Configure(config.DatabaseConfig{}); err == nil {
		t.Fatal("expected configuration error when initialize fails")
	}
}

func TestMustConfigurePanicsOnError(t *testing.T) {
	t.Parallel()

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic when configuration fails")
		}
	}()

	MustConfigure(config.DatabaseConfig{})
}

func TestTxRunnerRollsBackOnError(t *testing.T) {
	t.Parallel()

	database := openTestDatabase(t, "txdb")
	if err := AutoMigrate(database); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	runner := NewTxRunner(database)
	boom := errors.New("boom")
	err := runner.InTx(context.Background(), func(tx *gorm.DB) error {
		if err := tx.Create(&models.MeasurementUnit{Named: models.Named{Name: "g"}}).Error; err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("InTx() error = %v, want boom", err)
	}

	var count int64
	if err := database.Model(&models.MeasurementUnit{}).Count(&count).Error; err != nil {
		t.Fatalf("count units: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected rollback, found %d units", count)
	}
}

func TestTxRunnerWithoutDatabase(t *testing.T) {
	t.Parallel()

	err := NewTxRunner(nil).InTx(context.Background(), func(*gorm.DB) error { return nil })
	if !errors.Is(err, gorm.ErrInvalidDB) {
		t.Fatalf("InTx() error = %v, want ErrInvalidDB", err)
	}
}

func TestSQLiteDSNEnablesForeignKeys(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"/tmp/foodgram.db":                  "/tmp/foodgram.db?_foreign_keys=1",
		"file:kitchen?mode=memory":          "file:kitchen?mode=memory&_foreign_keys=1",
		"file:kitchen?_foreign_keys=0":      "file:kitchen?_foreign_keys=0",
		"file:kitchen?mode=memory&_fk=true": "file:kitchen?mode=memory&_fk=true",
	}
	for dsn, want := range cases {
		if got := SQLiteDSN(dsn); got != want {
			t.Fatalf("SQLiteDSN(%q) = %q, want %q", dsn, got, want)
		}
	}
}

func TestMigratedSchemaEnforcesReferences(t *testing.T) {
	t.Parallel()

	database := openTestDatabase(t, "referencesdb")
	if err := AutoMigrate(database); err != nil {
		t.Fatalf("automigrate sqlite database: %v", err)
	}

	if err := database.Create(&models.Favorite{UserID: 42, RecipeID: 42}).Error; err == nil {
		t.Fatal("expected a favorite of unknown user and recipe to be rejected")
	}

	unit := models.MeasurementUnit{Named: models.Named{Name: "g"}}
	if err := database.Create(&unit).Error; err != nil {
		t.Fatalf("create unit: %v", err)
	}
	flour := models.Ingredient{Named: models.Named{Name: "flour"}, MeasurementUnitID: &unit.ID}
	if err := database.Omit("MeasurementUnit").Create(&flour).Error; err != nil {
		t.Fatalf("create ingredient: %v", err)
	}
	if err := database.Delete(&models.MeasurementUnit{}, unit.ID).Error; err != nil {
		t.Fatalf("delete unit: %v", err)
	}

	var reloaded models.Ingredient
	if err := database.First(&reloaded, flour.ID).Error; err != nil {
		t.Fatalf("reload ingredient: %v", err)
	}
	if reloaded.MeasurementUnitID != nil {
		t.Fatalf("expected the unit reference to be cleared, got %d", *reloaded.MeasurementUnitID)
	}
}
