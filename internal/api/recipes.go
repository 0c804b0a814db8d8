package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/apperrors"
	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

const shoppingListFilename = "shopping_cart.txt"

type RecipeHandler struct {
	recipes   service.IRecipeService
	relations service.IRelationService
	shopping  service.IShoppingListService
}

func NewRecipeHandler(recipes service.IRecipeService, relations service.IRelationService, shopping service.IShoppingListService) *RecipeHandler {
	return &RecipeHandler{recipes: recipes, relations: relations, shopping: shopping}
}

func (h *RecipeHandler) RegisterRoutes(rg *gin.RouterGroup, required, optional, writes gin.HandlerFunc) {
	recipes := rg.Group("/recipes")
	recipes.GET("/", optional, h.List)
	recipes.POST("/", required, writes, h.Create)
	recipes.GET("/download_shopping_cart/", required, h.DownloadShoppingCart)
	recipes.GET("/:id/", optional, h.Get)
	recipes.PATCH("/:id/", required, writes, h.Update)
	recipes.DELETE("/:id/", required, writes, h.Delete)
	recipes.POST("/:id/favorite/", required, h.addRelation(service.RelationFavorite))
	recipes.DELETE("/:id/favorite/", required, h.removeRelation(service.RelationFavorite))
	recipes.POST("/:id/shopping_cart/", required, h.addRelation(service.RelationCart))
	recipes.DELETE("/:id/shopping_cart/", required, h.removeRelation(service.RelationCart))
}

// List supports ?tags=<slug> (repeatable, any-of), ?author=<id>,
// ?is_favorited=1, ?is_in_shopping_cart=1 and ?limit=N.
func (h *RecipeHandler) List(c *gin.Context) {
	filter := types.RecipeFilter{
		Tags:             c.QueryArray("tags"),
		IsFavorited:      queryFlag(c, "is_favorited"),
		IsInShoppingCart: queryFlag(c, "is_in_shopping_cart"),
	}
	if raw := c.Query("author"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			fail(c, apperrors.Validation("author", "must be a user id"))
			return
		}
		author := uint(id)
		filter.AuthorID = &author
	}
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}
	filter.Limit = limit

	recipes, err := h.recipes.ListRecipes(c.Request.Context(), middleware.ViewerFromContext(c), filter)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, recipes)
}

func (h *RecipeHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "recipe")
	if !ok {
		return
	}
	recipe, err := h.recipes.GetRecipe(c.Request.Context(), middleware.ViewerFromContext(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

func (h *RecipeHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req types.RecipeRequest
	if !bindJSON(c, &req) {
		return
	}
	recipe, err := h.recipes.CreateRecipe(c.Request.Context(), userID, &req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, recipe)
}

func (h *RecipeHandler) Update(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "recipe")
	if !ok {
		return
	}
	var req types.RecipeRequest
	if !bindJSON(c, &req) {
		return
	}
	recipe, err := h.recipes.UpdateRecipe(c.Request.Context(), userID, id, &req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

func (h *RecipeHandler) Delete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "recipe")
	if !ok {
		return
	}
	if err := h.recipes.DeleteRecipe(c.Request.Context(), userID, id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RecipeHandler) addRelation(kind service.RelationKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		id, ok := pathID(c, "recipe")
		if !ok {
			return
		}
		view, err := h.relations.AddRecipe(c.Request.Context(), kind, userID, id)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, view)
	}
}

func (h *RecipeHandler) removeRelation(kind service.RelationKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		id, ok := pathID(c, "recipe")
		if !ok {
			return
		}
		if err := h.relations.Remove(c.Request.Context(), kind, userID, id); err != nil {
			fail(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// DownloadShoppingCart returns the aggregated cart as a text attachment.
func (h *RecipeHandler) DownloadShoppingCart(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	text, err := h.shopping.BuildShoppingList(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+shoppingListFilename+`"`)
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(text))
}
