package service

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
)

// Presenter renders models into viewer-relative views. A nil viewer is
// anonymous: every flag is false and no flag query runs. Lists are rendered
// with one query per concern regardless of their length.
type Presenter struct {
	db *gorm.DB
}

func NewPresenter(db *gorm.DB) *Presenter {
	return &Presenter{db: db}
}

func (p *Presenter) Users(ctx context.Context, viewer *uint, users []models.User) ([]types.UserView, error) {
	ids := make([]uint, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	subscribed, err := p.flagSet(ctx, viewer, &models.Subscription{}, "author_id", ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load subscriptions: %w", err)
	}

	views := make([]types.UserView, 0, len(users))
	for _, u := range users {
		views = append(views, userView(u, subscribed[u.ID]))
	}
	return views, nil
}

func (p *Presenter) User(ctx context.Context, viewer *uint, user models.User) (*types.UserView, error) {
	views, err := p.Users(ctx, viewer, []models.User{user})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

type recipeTagRow struct {
	RecipeID uint
	ID       uint
	Name     string
	Color    *string
	Slug     string
}

type authorRecipeCount struct {
	AuthorID uint
	Total    int64
}

type recipeIngredientRow struct {
	RecipeID        uint
	ID              uint
	Name            string
	MeasurementUnit string
	Amount          int
}

func (p *Presenter) Recipes(ctx context.Context, viewer *uint, recipes []models.Recipe) ([]types.RecipeView, error) {
	views := make([]types.RecipeView, 0, len(recipes))
	if len(recipes) == 0 {
		return views, nil
	}

	db := p.db.WithContext(ctx)
	recipeIDs := make([]uint, 0, len(recipes))
	authorIDs := make([]uint, 0, len(recipes))
	for _, r := range recipes {
		recipeIDs = append(recipeIDs, r.ID)
		authorIDs = append(authorIDs, r.AuthorID)
	}

	var tagRows []recipeTagRow
	if err := db.Table("recipe_tags").
		Select("recipe_tags.recipe_id, tags.id, tags.name, tags.color, tags.slug").
		Joins("JOIN tags ON tags.id = recipe_tags.tag_id").
		Where("recipe_tags.recipe_id IN ?", recipeIDs).
		Order("tags.name").
		Scan(&tagRows).Error; err != nil {
		return nil, fmt.Errorf("failed to load recipe tags: %w", err)
	}
	tagsByRecipe := make(map[uint][]types.TagView)
	for _, row := range tagRows {
		tagsByRecipe[row.RecipeID] = append(tagsByRecipe[row.RecipeID], types.TagView{
			ID: row.ID, Name: row.Name, Color: row.Color, Slug: row.Slug,
		})
	}

	var ingredientRows []recipeIngredientRow
	if err := db.Table("recipe_ingredients").
		Select("recipe_ingredients.recipe_id, ingredients.id, ingredients.name, ingredients.measurement_unit, recipe_ingredients.amount").
		Joins("JOIN ingredients ON ingredients.id = recipe_ingredients.ingredient_id").
		Where("recipe_ingredients.recipe_id IN ?", recipeIDs).
		Order("recipe_ingredients.id").
		Scan(&ingredientRows).Error; err != nil {
		return nil, fmt.Errorf("failed to load recipe ingredients: %w", err)
	}
	ingredientsByRecipe := make(map[uint][]types.RecipeIngredientView)
	for _, row := range ingredientRows {
		ingredientsByRecipe[row.RecipeID] = append(ingredientsByRecipe[row.RecipeID], types.RecipeIngredientView{
			ID: row.ID, Name: row.Name, MeasurementUnit: row.MeasurementUnit, Amount: row.Amount,
		})
	}

	var authors []models.User
	if err := db.Where("id IN ?", authorIDs).Find(&authors).Error; err != nil {
		return nil, fmt.Errorf("failed to load recipe authors: %w", err)
	}
	authorViews, err := p.Users(ctx, viewer, authors)
	if err != nil {
		return nil, err
	}
	authorsByID := make(map[uint]types.UserView, len(authorViews))
	for _, a := range authorViews {
		authorsByID[a.ID] = a
	}

	favorited, err := p.flagSet(ctx, viewer, &models.Favorite{}, "recipe_id", recipeIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load favorites: %w", err)
	}
	inCart, err := p.flagSet(ctx, viewer, &models.CartItem{}, "recipe_id", recipeIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	for _, r := range recipes {
		tags := tagsByRecipe[r.ID]
		if tags == nil {
			tags = []types.TagView{}
		}
		ingredients := ingredientsByRecipe[r.ID]
		if ingredients == nil {
			ingredients = []types.RecipeIngredientView{}
		}
		views = append(views, types.RecipeView{
			ID:               r.ID,
			Tags:             tags,
			Author:           authorsByID[r.AuthorID],
			Ingredients:      ingredients,
			IsFavorited:      favorited[r.ID],
			IsInShoppingCart: inCart[r.ID],
			Name:             r.Name,
			Image:            r.Image,
			Text:             r.Text,
			CookingTime:      r.CookingTime,
		})
	}
	return views, nil
}

func (p *Presenter) Recipe(ctx context.Context, viewer *uint, recipe models.Recipe) (*types.RecipeView, error) {
	views, err := p.Recipes(ctx, viewer, []models.Recipe{recipe})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// Subscriptions renders authors with up to recipesLimit of their newest
// recipes (all when recipesLimit <= 0) and their total recipe count.
func (p *Presenter) Subscriptions(ctx context.Context, viewer *uint, authors []models.User, recipesLimit int) ([]types.SubscriptionView, error) {
	userViews, err := p.Users(ctx, viewer, authors)
	if err != nil {
		return nil, err
	}

	db := p.db.WithContext(ctx)
	counts := make(map[uint]int64, len(authors))
	if len(authors) > 0 {
		ids := make([]uint, 0, len(authors))
		for _, a := range authors {
			ids = append(ids, a.ID)
		}
		var rows []authorRecipeCount
		if err := db.Model(&models.Recipe{}).
			Select("author_id, COUNT(*) AS total").
			Where("author_id IN ?", ids).
			Group("author_id").
			Scan(&rows).Error; err != nil {
			return nil, fmt.Errorf("failed to count recipes: %w", err)
		}
		for _, row := range rows {
			counts[row.AuthorID] = row.Total
		}
	}

	views := make([]types.SubscriptionView, 0, len(authors))
	for _, uv := range userViews {
		q := db.Where("author_id = ?", uv.ID).Order("pub_date DESC, id DESC")
		if recipesLimit > 0 {
			q = q.Limit(recipesLimit)
		}
		var recipes []models.Recipe
		if err := q.Find(&recipes).Error; err != nil {
			return nil, fmt.Errorf("failed to load recipes of author %d: %w", uv.ID, err)
		}
		short := make([]types.RecipeShortView, 0, len(recipes))
		for _, r := range recipes {
			short = append(short, ShortRecipe(r))
		}
		views = append(views, types.SubscriptionView{
			UserView:     uv,
			Recipes:      short,
			RecipesCount: counts[uv.ID],
		})
	}
	return views, nil
}

// ShortRecipe renders the compact recipe form.
func ShortRecipe(r models.Recipe) types.RecipeShortView {
	return types.RecipeShortView{
		ID:          r.ID,
		Name:        r.Name,
		Image:       r.Image,
		CookingTime: r.CookingTime,
	}
}

func userView(u models.User, subscribed bool) types.UserView {
	return types.UserView{
		ID:           u.ID,
		Email:        u.Email,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		IsSubscribed: subscribed,
	}
}

// flagSet returns which of ids the viewer is related to through model,
// matching ids against column.
func (p *Presenter) flagSet(ctx context.Context, viewer *uint, model interface{}, column string, ids []uint) (map[uint]bool, error) {
	set := make(map[uint]bool)
	if viewer == nil || len(ids) == 0 {
		return set, nil
	}
	var related []uint
	if err := p.db.WithContext(ctx).Model(model).
		Where("user_id = ?", *viewer).
		Where(column+" IN ?", ids).
		Pluck(column, &related).Error; err != nil {
		return nil, err
	}
	for _, id := range related {
		set[id] = true
	}
	return set, nil
}
