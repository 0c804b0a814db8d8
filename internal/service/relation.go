package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/apperrors"
	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/metrics"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
)

// RelationKind names one of the user-owned pair relations.
type RelationKind string

const (
	RelationSubscription RelationKind = "subscription"
	RelationFavorite     RelationKind = "favorite"
	RelationCart         RelationKind = "cart"
)

type relationDef struct {
	targetColumn string
	// targetTable holds the rows targetColumn references.
	targetTable string
	targetName  string
	newRow      func(userID, targetID uint) interface{}
	model       func() interface{}
	duplicate   string
	missing     string
}

var relationDefs = map[RelationKind]relationDef{
	RelationSubscription: {
		targetColumn: "author_id",
		targetTable:  "users",
		targetName:   "user",
		newRow: func(userID, targetID uint) interface{} {
			return &models.Subscription{UserID: userID, AuthorID: targetID}
		},
		model:     func() interface{} { return &models.Subscription{} },
		duplicate: "you are already subscribed to this user",
		missing:   "you are not subscribed to this user",
	},
	RelationFavorite: {
		targetColumn: "recipe_id",
		targetTable:  "recipes",
		targetName:   "recipe",
		newRow: func(userID, targetID uint) interface{} {
			return &models.Favorite{UserID: userID, RecipeID: targetID}
		},
		model:     func() interface{} { return &models.Favorite{} },
		duplicate: "recipe is already in favorites",
		missing:   "recipe is not in favorites",
	},
	RelationCart: {
		targetColumn: "recipe_id",
		targetTable:  "recipes",
		targetName:   "recipe",
		newRow: func(userID, targetID uint) interface{} {
			return &models.CartItem{UserID: userID, RecipeID: targetID}
		},
		model:     func() interface{} { return &models.CartItem{} },
		duplicate: "recipe is already in the shopping cart",
		missing:   "recipe is not in the shopping cart",
	},
}

// RelationService toggles subscriptions, favorites and cart entries. Each
// (user, target) pair exists at most once; adding twice is a conflict and
// removing an absent pair is an error rather than a no-op.
type RelationService struct {
	db        *gorm.DB
	presenter *Presenter
}

func NewRelationService(db *gorm.DB, presenter *Presenter) *RelationService {
	return &RelationService{db: db, presenter: presenter}
}

func lookupRelation(kind RelationKind) (relationDef, error) {
	def, ok := relationDefs[kind]
	if !ok {
		return relationDef{}, fmt.Errorf("unknown relation kind %q", kind)
	}
	return def, nil
}

// Add creates the (userID, targetID) pair.
func (s *RelationService) Add(ctx context.Context, kind RelationKind, userID, targetID uint) error {
	def, err := lookupRelation(kind)
	if err != nil {
		return err
	}
	if err := s.requireTarget(ctx, def, targetID); err != nil {
		return err
	}
	if kind == RelationSubscription && userID == targetID {
		return apperrors.Validation("errors", "you cannot subscribe to yourself")
	}

	exists, err := s.Exists(ctx, kind, userID, targetID)
	if err != nil {
		return err
	}
	if exists {
		return apperrors.Conflict(def.duplicate)
	}

	if err := s.db.WithContext(ctx).Create(def.newRow(userID, targetID)).Error; err != nil {
		// a concurrent add won the race for the unique pair
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.Conflict(def.duplicate)
		}
		return fmt.Errorf("failed to add %s: %w", kind, err)
	}

	metrics.RecordRelationChange(string(kind), "add")
	logging.Ctx(ctx).Debug().
		Str("kind", string(kind)).
		Uint("user_id", userID).
		Uint("target_id", targetID).
		Msg("relation added")
	return nil
}

// Remove deletes the (userID, targetID) pair.
func (s *RelationService) Remove(ctx context.Context, kind RelationKind, userID, targetID uint) error {
	def, err := lookupRelation(kind)
	if err != nil {
		return err
	}
	if err := s.requireTarget(ctx, def, targetID); err != nil {
		return err
	}

	res := s.db.WithContext(ctx).
		Where("user_id = ? AND "+def.targetColumn+" = ?", userID, targetID).
		Delete(def.model())
	if res.Error != nil {
		return fmt.Errorf("failed to remove %s: %w", kind, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotRelated(def.missing)
	}

	metrics.RecordRelationChange(string(kind), "remove")
	logging.Ctx(ctx).Debug().
		Str("kind", string(kind)).
		Uint("user_id", userID).
		Uint("target_id", targetID).
		Msg("relation removed")
	return nil
}

func (s *RelationService) Exists(ctx context.Context, kind RelationKind, userID, targetID uint) (bool, error) {
	def, err := lookupRelation(kind)
	if err != nil {
		return false, err
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(def.model()).
		Where("user_id = ? AND "+def.targetColumn+" = ?", userID, targetID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check %s: %w", kind, err)
	}
	return count > 0, nil
}

// Subscribe follows authorID and returns the author with a preview of
// recipesLimit newest recipes.
func (s *RelationService) Subscribe(ctx context.Context, userID, authorID uint, recipesLimit int) (*types.SubscriptionView, error) {
	if err := s.Add(ctx, RelationSubscription, userID, authorID); err != nil {
		return nil, err
	}
	var author models.User
	if err := s.db.WithContext(ctx).First(&author, authorID).Error; err != nil {
		return nil, fmt.Errorf("failed to load author: %w", err)
	}
	views, err := s.presenter.Subscriptions(ctx, &userID, []models.User{author}, recipesLimit)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// AddRecipe adds recipeID to the user's favorites or cart and returns the
// recipe in short form.
func (s *RelationService) AddRecipe(ctx context.Context, kind RelationKind, userID, recipeID uint) (*types.RecipeShortView, error) {
	if kind != RelationFavorite && kind != RelationCart {
		return nil, fmt.Errorf("relation %q does not target recipes", kind)
	}
	if err := s.Add(ctx, kind, userID, recipeID); err != nil {
		return nil, err
	}
	var recipe models.Recipe
	if err := s.db.WithContext(ctx).First(&recipe, recipeID).Error; err != nil {
		return nil, fmt.Errorf("failed to load recipe: %w", err)
	}
	short := ShortRecipe(recipe)
	return &short, nil
}

func (s *RelationService) requireTarget(ctx context.Context, def relationDef, targetID uint) error {
	var count int64
	if err := s.db.WithContext(ctx).Table(def.targetTable).Where("id = ?", targetID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to load %s: %w", def.targetName, err)
	}
	if count == 0 {
		return apperrors.NotFound(def.targetName + " not found")
	}
	return nil
}
