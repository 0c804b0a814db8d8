package models

import (
	"time"
)

// Recipe is owned by its author. PubDate is set once on creation and drives
// the default newest-first ordering.
type Recipe struct {
	ID          uint               `gorm:"primaryKey" json:"id"`
	AuthorID    uint               `gorm:"not null;index" json:"author_id"`
	Author      *User              `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"-"`
	Name        string             `gorm:"size:200;not null" json:"name"`
	Image       string             `gorm:"size:500;not null" json:"image"`
	Text        string             `gorm:"type:text;not null" json:"text"`
	PubDate     time.Time          `gorm:"not null;index" json:"pub_date"`
	CookingTime int                `gorm:"not null" json:"cooking_time"`
	Ingredients []RecipeIngredient `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE" json:"-"`
}

// RecipeTag links a recipe to a tag.
type RecipeTag struct {
	RecipeID uint    `gorm:"primaryKey;autoIncrement:false"`
	TagID    uint    `gorm:"primaryKey;autoIncrement:false;index"`
	Recipe   *Recipe `gorm:"constraint:OnDelete:CASCADE"`
	Tag      *Tag    `gorm:"constraint:OnDelete:CASCADE"`
}

// RecipeIngredient is one quantified ingredient line of a recipe. A recipe
// lists each ingredient at most once.
type RecipeIngredient struct {
	ID           uint        `gorm:"primaryKey"`
	RecipeID     uint        `gorm:"not null;uniqueIndex:idx_recipe_ingredient"`
	IngredientID uint        `gorm:"not null;uniqueIndex:idx_recipe_ingredient;index"`
	Ingredient   *Ingredient `gorm:"constraint:OnDelete:CASCADE"`
	Amount       int         `gorm:"not null"`
}
