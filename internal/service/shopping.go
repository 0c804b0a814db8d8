package service

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/metrics"
)

// ShoppingListHeader is the first line of every shopping list.
const ShoppingListHeader = "Список покупок:"

// ShoppingItem is one aggregated line of a shopping list.
type ShoppingItem struct {
	Name            string
	MeasurementUnit string
	Amount          int64
}

type ShoppingListService struct {
	db *gorm.DB
}

func NewShoppingListService(db *gorm.DB) *ShoppingListService {
	return &ShoppingListService{db: db}
}

// Items sums ingredient amounts over every recipe in the user's cart,
// grouped by (name, unit) and ordered by name then unit.
func (s *ShoppingListService) Items(ctx context.Context, userID uint) ([]ShoppingItem, error) {
	var items []ShoppingItem
	if err := s.db.WithContext(ctx).Table("recipe_ingredients").
		Select("ingredients.name AS name, ingredients.measurement_unit AS measurement_unit, SUM(recipe_ingredients.amount) AS amount").
		Joins("JOIN ingredients ON ingredients.id = recipe_ingredients.ingredient_id").
		Joins("JOIN cart_items ON cart_items.recipe_id = recipe_ingredients.recipe_id").
		Where("cart_items.user_id = ?", userID).
		Group("ingredients.name, ingredients.measurement_unit").
		Order("ingredients.name, ingredients.measurement_unit").
		Scan(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate shopping list: %w", err)
	}
	return items, nil
}

// BuildShoppingList renders the user's cart as a plain-text list.
func (s *ShoppingListService) BuildShoppingList(ctx context.Context, userID uint) (string, error) {
	items, err := s.Items(ctx, userID)
	if err != nil {
		return "", err
	}
	metrics.ShoppingListsBuilt.Inc()
	return RenderShoppingList(items), nil
}

// RenderShoppingList formats items as the header line followed by one
// "{name} - {amount}, {unit}" line per item.
func RenderShoppingList(items []ShoppingItem) string {
	var b strings.Builder
	b.WriteString(ShoppingListHeader)
	b.WriteString("\n")
	for _, item := range items {
		fmt.Fprintf(&b, "%s - %d, %s\n", item.Name, item.Amount, item.MeasurementUnit)
	}
	return b.String()
}
