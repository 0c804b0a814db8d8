package service

import (
	"context"
	"io"

	"github.com/pageza/foodgram/backend/internal/types"
)

// IAuthService defines the interface for account and token operations
type IAuthService interface {
	Register(ctx context.Context, req *types.RegisterRequest) (*types.RegisteredUser, error)
	Login(ctx context.Context, req *types.LoginRequest) (string, error)
	Logout(ctx context.Context, claims *types.TokenClaims) error
	ValidateToken(ctx context.Context, token string) (*types.TokenClaims, error)
	SetPassword(ctx context.Context, userID uint, req *types.SetPasswordRequest) error
}

// IUserService defines the interface for user profile reads
type IUserService interface {
	ListUsers(ctx context.Context, viewer *uint, limit int) ([]types.UserView, error)
	GetUser(ctx context.Context, viewer *uint, id uint) (*types.UserView, error)
	Me(ctx context.Context, userID uint) (*types.UserView, error)
	ListSubscriptions(ctx context.Context, userID uint, limit, recipesLimit int) ([]types.SubscriptionView, error)
}

// ICatalogService defines the interface for tag and ingredient operations
type ICatalogService interface {
	ListTags(ctx context.Context) ([]types.TagView, error)
	GetTag(ctx context.Context, id uint) (*types.TagView, error)
	CreateTag(ctx context.Context, req *types.TagRequest) (*types.TagView, error)
	ListIngredients(ctx context.Context, namePrefix string) ([]types.IngredientView, error)
	GetIngredient(ctx context.Context, id uint) (*types.IngredientView, error)
	ImportIngredients(ctx context.Context, r io.Reader) (*ImportStats, error)
}

// IRecipeService defines the interface for recipe operations
type IRecipeService interface {
	CreateRecipe(ctx context.Context, authorID uint, req *types.RecipeRequest) (*types.RecipeView, error)
	UpdateRecipe(ctx context.Context, actorID, recipeID uint, req *types.RecipeRequest) (*types.RecipeView, error)
	DeleteRecipe(ctx context.Context, actorID, recipeID uint) error
	GetRecipe(ctx context.Context, viewer *uint, id uint) (*types.RecipeView, error)
	ListRecipes(ctx context.Context, viewer *uint, filter types.RecipeFilter) ([]types.RecipeView, error)
}

// IRelationService defines the interface for subscription, favorite and
// cart toggles
type IRelationService interface {
	Add(ctx context.Context, kind RelationKind, userID, targetID uint) error
	Subscribe(ctx context.Context, userID, authorID uint, recipesLimit int) (*types.SubscriptionView, error)
	AddRecipe(ctx context.Context, kind RelationKind, userID, recipeID uint) (*types.RecipeShortView, error)
	Remove(ctx context.Context, kind RelationKind, userID, targetID uint) error
	Exists(ctx context.Context, kind RelationKind, userID, targetID uint) (bool, error)
}

// IShoppingListService defines the interface for shopping list export
type IShoppingListService interface {
	BuildShoppingList(ctx context.Context, userID uint) (string, error)
}
