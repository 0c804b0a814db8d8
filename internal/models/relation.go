package models

import (
	"time"
)

// Subscription records that User follows Author.
type Subscription struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_subscription_pair"`
	AuthorID  uint      `gorm:"not null;uniqueIndex:idx_subscription_pair;index"`
	User      *User     `gorm:"constraint:OnDelete:CASCADE"`
	Author    *User     `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
}

type Favorite struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_favorite_pair"`
	RecipeID  uint      `gorm:"not null;uniqueIndex:idx_favorite_pair;index"`
	User      *User     `gorm:"constraint:OnDelete:CASCADE"`
	Recipe    *Recipe   `gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
}

// CartItem puts a recipe into a user's shopping cart.
type CartItem struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_cart_pair"`
	RecipeID  uint      `gorm:"not null;uniqueIndex:idx_cart_pair;index"`
	User      *User     `gorm:"constraint:OnDelete:CASCADE"`
	Recipe    *Recipe   `gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
}
