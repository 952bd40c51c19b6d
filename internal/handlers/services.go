package handlers

import (
	"context"

	"foodgram/internal/catalog"
	"foodgram/internal/recipes"
	"foodgram/internal/relations"
	"foodgram/internal/shopping"
	"foodgram/models"
)

// Domain services are cheap wrappers around the configured database, so they
// are built per request from whatever Configure installed.

func catalogStore() *catalog.Store {
	return catalog.NewStore(database)
}

func recipeManager() *recipes.Manager {
	return recipes.NewManager(database, catalogStore())
}

func favorites() *relations.Toggle[models.Favorite] {
	return relations.Favorites(database)
}

func shoppingCart() *relations.Toggle[models.ShoppingCartEntry] {
	return relations.ShoppingCart(database)
}

func subscriptions() *relations.Toggle[models.Subscription] {
	return relations.Subscriptions(database)
}

func shoppingLists() *shopping.Aggregator {
	return shopping.NewAggregator(database)
}

// marksFor computes the viewer's favorite, cart and subscription flags for a
// page of recipes. Anonymous viewers get empty marks.
func marksFor(ctx context.Context, viewer *models.User, page []models.Recipe) (recipeMarks, error) {
	marks := recipeMarks{favorited: map[uint]bool{}, inCart: map[uint]bool{}, subscribed: map[uint]bool{}}
	if viewer == nil || len(page) == 0 {
		return marks, nil
	}

	recipeIDs := make([]uint, 0, len(page))
	authorIDs := make([]uint, 0, len(page))
	for _, recipe := range page {
		recipeIDs = append(recipeIDs, recipe.ID)
		authorIDs = append(authorIDs, recipe.AuthorID)
	}

	var err error
	if marks.favorited, err = favorites().TargetIDs(ctx, viewer.ID, recipeIDs); err != nil {
		return recipeMarks{}, err
	}
	if marks.inCart, err = shoppingCart().TargetIDs(ctx, viewer.ID, recipeIDs); err != nil {
		return recipeMarks{}, err
	}
	if marks.subscribed, err = subscriptions().TargetIDs(ctx, viewer.ID, authorIDs); err != nil {
		return recipeMarks{}, err
	}
	return marks, nil
}
