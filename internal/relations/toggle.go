// Package relations tracks the per-user toggles: favorite recipes, the
// shopping cart and author subscriptions.
package relations

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"foodgram/internal/errs"
	applog "foodgram/internal/log"
	"foodgram/models"
)

// Kind describes one relation table and how its rows are built and checked.
type Kind[E any] struct {
	// Name is used in log records.
	Name string
	// TargetColumn holds the id of the related entity; the owner is always user_id.
	TargetColumn string
	New          func(userID, targetID uint) E
	// TargetModel is queried to confirm the target exists before inserting.
	TargetModel any
	// Check, when set, runs before anything else in Add.
	Check func(userID, targetID uint) error

	TargetMissing string
	Duplicate     string
	Missing       string
}

// Toggle adds and removes relation rows of one kind. Uniqueness of a
// (user, target) pair is enforced by the table's unique index, so two
// concurrent adds for the same pair can never both succeed.
type Toggle[E any] struct {
	db   *gorm.DB
	kind Kind[E]
}

func New[E any](database *gorm.DB, kind Kind[E]) *Toggle[E] {
	return &Toggle[E]{db: database, kind: kind}
}

func (t *Toggle[E]) Add(ctx context.Context, userID, targetID uint) error {
	if t.kind.Check != nil {
		if err := t.kind.Check(userID, targetID); err != nil {
			return err
		}
	}

	var targets int64
	if err := t.db.WithContext(ctx).Model(t.kind.TargetModel).Where("id = ?", targetID).Count(&targets).Error; err != nil {
		return fmt.Errorf("check %s target %d: %w", t.kind.Name, targetID, err)
	}
	if targets == 0 {
		return errs.NotFound("%s", t.kind.TargetMissing)
	}

	entity := t.kind.New(userID, targetID)
	if err := t.db.WithContext(ctx).Create(&entity).Error; err != nil {
		if errs.IsDuplicateKey(err) {
			return errs.Conflict("%s", t.kind.Duplicate)
		}
		return fmt.Errorf("add %s: %w", t.kind.Name, err)
	}

	applog.Debug(ctx, "relation added", "kind", t.kind.Name, "user_id", userID, "target_id", targetID)
	return nil
}

func (t *Toggle[E]) Remove(ctx context.Context, userID, targetID uint) error {
	result := t.db.WithContext(ctx).
		Where("user_id = ? AND "+t.kind.TargetColumn+" = ?", userID, targetID).
		Delete(new(E))
	if result.Error != nil {
		return fmt.Errorf("remove %s: %w", t.kind.Name, result.Error)
	}
	if result.RowsAffected == 0 {
		return errs.NotFound("%s", t.kind.Missing)
	}

	applog.Debug(ctx, "relation removed", "kind", t.kind.Name, "user_id", userID, "target_id", targetID)
	return nil
}

func (t *Toggle[E]) Has(ctx context.Context, userID, targetID uint) (bool, error) {
	if userID == 0 {
		return false, nil
	}
	var count int64
	err := t.db.WithContext(ctx).Model(new(E)).
		Where("user_id = ? AND "+t.kind.TargetColumn+" = ?", userID, targetID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check %s: %w", t.kind.Name, err)
	}
	return count > 0, nil
}

// TargetIDs reports which of candidates the user is related to. A nil
// candidate list returns every target of the user.
func (t *Toggle[E]) TargetIDs(ctx context.Context, userID uint, candidates []uint) (map[uint]bool, error) {
	found := map[uint]bool{}
	if userID == 0 || (candidates != nil && len(candidates) == 0) {
		return found, nil
	}

	query := t.db.WithContext(ctx).Model(new(E)).Where("user_id = ?", userID)
	if candidates != nil {
		query = query.Where(t.kind.TargetColumn+" IN ?", candidates)
	}
	var ids []uint
	if err := query.Pluck(t.kind.TargetColumn, &ids).Error; err != nil {
		return nil, fmt.Errorf("list %s targets: %w", t.kind.Name, err)
	}
	for _, id := range ids {
		found[id] = true
	}
	return found, nil
}

// Targets lists every target of the user in the order the relations were made.
func (t *Toggle[E]) Targets(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := t.db.WithContext(ctx).Model(new(E)).
		Where("user_id = ?", userID).
		Order("id asc").
		Pluck(t.kind.TargetColumn, &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list %s targets: %w", t.kind.Name, err)
	}
	return ids, nil
}

func Favorites(database *gorm.DB) *Toggle[models.Favorite] {
	return New(database, Kind[models.Favorite]{
		Name:         "favorite",
		TargetColumn: "recipe_id",
		TargetModel:  &models.Recipe{},
		New: func(userID, recipeID uint) models.Favorite {
			return models.Favorite{UserID: userID, RecipeID: recipeID}
		},
		TargetMissing: "recipe not found",
		Duplicate:     "recipe is already in favorites",
		Missing:       "recipe is not in favorites",
	})
}

func ShoppingCart(database *gorm.DB) *Toggle[models.ShoppingCartEntry] {
	return New(database, Kind[models.ShoppingCartEntry]{
		Name:         "shopping_cart",
		TargetColumn: "recipe_id",
		TargetModel:  &models.Recipe{},
		New: func(userID, recipeID uint) models.ShoppingCartEntry {
			return models.ShoppingCartEntry{UserID: userID, RecipeID: recipeID}
		},
		TargetMissing: "recipe not found",
		Duplicate:     "recipe is already in the shopping cart",
		Missing:       "recipe is not in the shopping cart",
	})
}

func Subscriptions(database *gorm.DB) *Toggle[models.Subscription] {
	return New(database, Kind[models.Subscription]{
		Name:         "subscription",
		TargetColumn: "subscribing_id",
		TargetModel:  &models.User{},
		New: func(userID, authorID uint) models.Subscription {
			return models.Subscription{UserID: userID, SubscribingID: authorID}
		},
		Check: func(userID, authorID uint) error {
			if userID == authorID {
				return errs.Invalid("cannot subscribe to yourself")
			}
			return nil
		},
		TargetMissing: "user not found",
		Duplicate:     "already subscribed to this user",
		Missing:       "not subscribed to this user",
	})
}
