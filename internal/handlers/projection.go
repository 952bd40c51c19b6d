package handlers

import (
	"foodgram/models"
)

type userResponse struct {
	ID           uint   `json:"id"`
	Email        string `json:"email"`
	Username     string `json:"username"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	IsSubscribed bool   `json:"is_subscribed"`
}

type tagResponse struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Slug  string `json:"slug"`
}

type ingredientResponse struct {
	ID              uint   `json:"id"`
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
}

type recipeIngredientResponse struct {
	ID              uint   `json:"id"`
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
	Amount          int    `json:"amount"`
}

type recipeResponse struct {
	ID               uint                       `json:"id"`
	Tags             []tagResponse              `json:"tags"`
	Author           *userResponse              `json:"author"`
	Ingredients      []recipeIngredientResponse `json:"ingredients"`
	IsFavorited      bool                       `json:"is_favorited"`
	IsInShoppingCart bool                       `json:"is_in_shopping_cart"`
	Name             string                     `json:"name"`
	Image            string                     `json:"image"`
	Text             string                     `json:"text"`
	CookingTime      int                        `json:"cooking_time"`
}

// shortRecipeResponse is returned by the favorite and cart toggles and
// embedded in subscriptions.
type shortRecipeResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Image       string `json:"image"`
	CookingTime int    `json:"cooking_time"`
}

type subscriptionResponse struct {
	userResponse
	Recipes      []shortRecipeResponse `json:"recipes"`
	RecipesCount int64                 `json:"recipes_count"`
}

// recipeMarks carries the viewer-specific flags of a page of recipes.
type recipeMarks struct {
	favorited  map[uint]bool
	inCart     map[uint]bool
	subscribed map[uint]bool
}

func projectUser(user models.User, subscribed bool) userResponse {
	return userResponse{
		ID:           user.ID,
		Email:        user.Email,
		Username:     user.Username,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		IsSubscribed: subscribed,
	}
}

func projectTag(tag models.Tag) tagResponse {
	return tagResponse{ID: tag.ID, Name: tag.Name, Color: tag.Color, Slug: tag.Slug}
}

func projectIngredient(ingredient models.Ingredient) ingredientResponse {
	return ingredientResponse{ID: ingredient.ID, Name: ingredient.Name, MeasurementUnit: ingredient.UnitName()}
}

func projectRecipe(recipe models.Recipe, marks recipeMarks) recipeResponse {
	resp := recipeResponse{
		ID:               recipe.ID,
		Tags:             make([]tagResponse, 0, len(recipe.Tags)),
		Ingredients:      make([]recipeIngredientResponse, 0, len(recipe.Ingredients)),
		IsFavorited:      marks.favorited[recipe.ID],
		IsInShoppingCart: marks.inCart[recipe.ID],
		Name:             recipe.Name,
		Image:            recipe.Image,
		Text:             recipe.Text,
		CookingTime:      recipe.CookingTime,
	}
	if recipe.Author != nil {
		author := projectUser(*recipe.Author, marks.subscribed[recipe.AuthorID])
		resp.Author = &author
	}
	for _, tag := range recipe.Tags {
		resp.Tags = append(resp.Tags, projectTag(tag))
	}
	for _, line := range recipe.Ingredients {
		item := recipeIngredientResponse{ID: line.IngredientID, Amount: line.Amount}
		if line.Ingredient != nil {
			item.Name = line.Ingredient.Name
			item.MeasurementUnit = line.Ingredient.UnitName()
		}
		resp.Ingredients = append(resp.Ingredients, item)
	}
	return resp
}

func projectShortRecipe(recipe models.Recipe) shortRecipeResponse {
	return shortRecipeResponse{ID: recipe.ID, Name: recipe.Name, Image: recipe.Image, CookingTime: recipe.CookingTime}
}
