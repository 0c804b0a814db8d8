package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/apperrors"
	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
	"github.com/pageza/foodgram/backend/internal/validation"
)

// RecipeService creates, edits and queries recipes. A recipe and its tag
// and ingredient links are always written in one transaction, and updates
// replace both sets wholesale.
type RecipeService struct {
	db        *gorm.DB
	limits    config.LimitsConfig
	images    ImageStore
	presenter *Presenter
}

func NewRecipeService(db *gorm.DB, limits config.LimitsConfig, images ImageStore, presenter *Presenter) *RecipeService {
	return &RecipeService{
		db:        db,
		limits:    limits,
		images:    images,
		presenter: presenter,
	}
}

func (s *RecipeService) CreateRecipe(ctx context.Context, authorID uint, req *types.RecipeRequest) (*types.RecipeView, error) {
	tagIDs, err := s.validate(ctx, req, true)
	if err != nil {
		return nil, err
	}

	imageURL, err := s.storeImage(ctx, req.Image)
	if err != nil {
		return nil, err
	}

	recipe := models.Recipe{
		AuthorID:    authorID,
		Name:        req.Name,
		Image:       imageURL,
		Text:        req.Text,
		PubDate:     time.Now().UTC(),
		CookingTime: req.CookingTime,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&recipe).Error; err != nil {
			return fmt.Errorf("failed to create recipe: %w", err)
		}
		return writeComposition(tx, recipe.ID, tagIDs, req.Ingredients)
	})
	if err != nil {
		return nil, translateWriteError(err)
	}

	logging.Ctx(ctx).Info().
		Uint("recipe_id", recipe.ID).
		Uint("author_id", authorID).
		Msg("recipe created")
	return s.presenter.Recipe(ctx, &authorID, recipe)
}

// UpdateRecipe replaces the recipe's fields, tags and ingredients. An empty
// image keeps the current one; the publication date never changes.
func (s *RecipeService) UpdateRecipe(ctx context.Context, actorID, recipeID uint, req *types.RecipeRequest) (*types.RecipeView, error) {
	recipe, err := s.loadOwned(ctx, actorID, recipeID)
	if err != nil {
		return nil, err
	}

	tagIDs, err := s.validate(ctx, req, false)
	if err != nil {
		return nil, err
	}

	if req.Image != "" {
		if recipe.Image, err = s.storeImage(ctx, req.Image); err != nil {
			return nil, err
		}
	}
	recipe.Name = req.Name
	recipe.Text = req.Text
	recipe.CookingTime = req.CookingTime

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Recipe{}).Where("id = ?", recipe.ID).Updates(map[string]interface{}{
			"name":         recipe.Name,
			"text":         recipe.Text,
			"cooking_time": recipe.CookingTime,
			"image":        recipe.Image,
		}).Error; err != nil {
			return fmt.Errorf("failed to update recipe: %w", err)
		}
		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.RecipeTag{}).Error; err != nil {
			return fmt.Errorf("failed to clear recipe tags: %w", err)
		}
		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.RecipeIngredient{}).Error; err != nil {
			return fmt.Errorf("failed to clear recipe ingredients: %w", err)
		}
		return writeComposition(tx, recipe.ID, tagIDs, req.Ingredients)
	})
	if err != nil {
		return nil, translateWriteError(err)
	}

	logging.Ctx(ctx).Info().Uint("recipe_id", recipe.ID).Msg("recipe updated")
	return s.presenter.Recipe(ctx, &actorID, *recipe)
}

// DeleteRecipe removes the recipe; tag links, ingredient lines, favorites
// and cart entries go with it.
func (s *RecipeService) DeleteRecipe(ctx context.Context, actorID, recipeID uint) error {
	recipe, err := s.loadOwned(ctx, actorID, recipeID)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(&models.Recipe{}, recipe.ID).Error; err != nil {
		return fmt.Errorf("failed to delete recipe: %w", err)
	}
	logging.Ctx(ctx).Info().Uint("recipe_id", recipe.ID).Msg("recipe deleted")
	return nil
}

func (s *RecipeService) GetRecipe(ctx context.Context, viewer *uint, id uint) (*types.RecipeView, error) {
	recipe, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.presenter.Recipe(ctx, viewer, *recipe)
}

// ListRecipes returns recipes newest first. Favorited and cart filters apply
// only to an authenticated viewer.
func (s *RecipeService) ListRecipes(ctx context.Context, viewer *uint, filter types.RecipeFilter) ([]types.RecipeView, error) {
	q := s.db.WithContext(ctx).Model(&models.Recipe{})

	if len(filter.Tags) > 0 {
		q = q.Where("recipes.id IN (?)", s.db.Table("recipe_tags").
			Select("recipe_tags.recipe_id").
			Joins("JOIN tags ON tags.id = recipe_tags.tag_id").
			Where("tags.slug IN ?", filter.Tags))
	}
	if filter.AuthorID != nil {
		q = q.Where("recipes.author_id = ?", *filter.AuthorID)
	}
	if viewer != nil && filter.IsFavorited {
		q = q.Where("recipes.id IN (?)", s.db.Model(&models.Favorite{}).
			Select("recipe_id").
			Where("user_id = ?", *viewer))
	}
	if viewer != nil && filter.IsInShoppingCart {
		q = q.Where("recipes.id IN (?)", s.db.Model(&models.CartItem{}).
			Select("recipe_id").
			Where("user_id = ?", *viewer))
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var recipes []models.Recipe
	if err := q.Order("recipes.pub_date DESC").Order("recipes.id DESC").Find(&recipes).Error; err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	return s.presenter.Recipes(ctx, viewer, recipes)
}

// validate checks the request shape and that every referenced tag and
// ingredient exists. It returns the de-duplicated tag ids.
func (s *RecipeService) validate(ctx context.Context, req *types.RecipeRequest, requireImage bool) ([]uint, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if requireImage && req.Image == "" {
		return nil, apperrors.Validation("image", "this field is required")
	}
	if err := s.checkRange("cooking_time", req.CookingTime); err != nil {
		return nil, err
	}

	ingredientIDs := make([]uint, 0, len(req.Ingredients))
	seen := make(map[uint]bool, len(req.Ingredients))
	for _, item := range req.Ingredients {
		if seen[item.ID] {
			return nil, apperrors.Validation("ingredients", "ingredients must not repeat")
		}
		seen[item.ID] = true
		if err := s.checkRange("amount", item.Amount); err != nil {
			return nil, err
		}
		ingredientIDs = append(ingredientIDs, item.ID)
	}

	tagIDs := dedupe(req.Tags)

	db := s.db.WithContext(ctx)
	var foundIngredients []uint
	if err := db.Model(&models.Ingredient{}).Where("id IN ?", ingredientIDs).Pluck("id", &foundIngredients).Error; err != nil {
		return nil, fmt.Errorf("failed to check ingredients: %w", err)
	}
	if missing := firstMissing(ingredientIDs, foundIngredients); missing != 0 {
		return nil, apperrors.NotFound(fmt.Sprintf("ingredient %d not found", missing))
	}

	var foundTags []uint
	if err := db.Model(&models.Tag{}).Where("id IN ?", tagIDs).Pluck("id", &foundTags).Error; err != nil {
		return nil, fmt.Errorf("failed to check tags: %w", err)
	}
	if missing := firstMissing(tagIDs, foundTags); missing != 0 {
		return nil, apperrors.Validation("tags", fmt.Sprintf("invalid tag id %d", missing))
	}

	return tagIDs, nil
}

func (s *RecipeService) checkRange(field string, v int) error {
	if v < s.limits.Min || v > s.limits.Max {
		return apperrors.Validation(field, fmt.Sprintf("must be between %d and %d", s.limits.Min, s.limits.Max))
	}
	return nil
}

func (s *RecipeService) storeImage(ctx context.Context, dataURI string) (string, error) {
	data, contentType, err := DecodeImage(dataURI)
	if err != nil {
		return "", err
	}
	return s.images.Save(ctx, data, contentType)
}

func (s *RecipeService) load(ctx context.Context, id uint) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := s.db.WithContext(ctx).First(&recipe, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("recipe not found")
		}
		return nil, fmt.Errorf("failed to load recipe: %w", err)
	}
	return &recipe, nil
}

func (s *RecipeService) loadOwned(ctx context.Context, actorID, id uint) (*models.Recipe, error) {
	recipe, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if recipe.AuthorID != actorID {
		return nil, apperrors.Forbidden("you do not have permission to perform this action")
	}
	return recipe, nil
}

func writeComposition(tx *gorm.DB, recipeID uint, tagIDs []uint, items []types.IngredientAmount) error {
	links := make([]models.RecipeTag, 0, len(tagIDs))
	for _, id := range tagIDs {
		links = append(links, models.RecipeTag{RecipeID: recipeID, TagID: id})
	}
	if err := tx.Create(&links).Error; err != nil {
		return fmt.Errorf("failed to link tags: %w", err)
	}

	lines := make([]models.RecipeIngredient, 0, len(items))
	for _, item := range items {
		lines = append(lines, models.RecipeIngredient{RecipeID: recipeID, IngredientID: item.ID, Amount: item.Amount})
	}
	if err := tx.Create(&lines).Error; err != nil {
		return fmt.Errorf("failed to add ingredients: %w", err)
	}
	return nil
}

// translateWriteError maps a reference that vanished between validation and
// the write to a not-found error.
func translateWriteError(err error) error {
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return apperrors.NotFound("a referenced tag or ingredient no longer exists")
	}
	return err
}

func dedupe(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// firstMissing returns the smallest id in want that is absent from got, or 0.
func firstMissing(want, got []uint) uint {
	present := make(map[uint]bool, len(got))
	for _, id := range got {
		present[id] = true
	}
	var missing []uint
	for _, id := range want {
		if !present[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return 0
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
	return missing[0]
}
