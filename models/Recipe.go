package models

import "time"

// RecipeOrder lists newest publications first.
const RecipeOrder = "published_at desc, id desc"

type Recipe struct {
	ID          uint               `gorm:"primaryKey" json:"id"`
	Name        string             `gorm:"size:200;not null" json:"name"`
	Image       string             `gorm:"not null" json:"image"`
	Text        string             `gorm:"type:text;not null" json:"text"`
	CookingTime int                `gorm:"not null;check:cooking_time >= 1" json:"cooking_time"`
	AuthorID    uint               `gorm:"not null;index" json:"author_id"`
	Author      *User              `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	PublishedAt time.Time          `gorm:"not null;index" json:"published_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
	Ingredients []RecipeIngredient `gorm:"foreignKey:RecipeID" json:"ingredients"`
	Tags        []Tag              `gorm:"many2many:recipe_tags" json:"tags"`
}

// RecipeIngredient is one ingredient line of a recipe. A recipe lists each
// ingredient at most once.
type RecipeIngredient struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	RecipeID     uint        `gorm:"not null;uniqueIndex:idx_recipe_ingredient" json:"recipe_id"`
	IngredientID uint        `gorm:"not null;uniqueIndex:idx_recipe_ingredient;index" json:"ingredient_id"`
	Amount       int         `gorm:"not null;check:amount >= 1" json:"amount"`
	Recipe       *Recipe     `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE" json:"-"`
	Ingredient   *Ingredient `gorm:"foreignKey:IngredientID;constraint:OnDelete:CASCADE" json:"ingredient,omitempty"`
}

// RecipeTag is the join row behind Recipe.Tags.
type RecipeTag struct {
	RecipeID uint `gorm:"primaryKey"`
	TagID    uint `gorm:"primaryKey;index"`
}
