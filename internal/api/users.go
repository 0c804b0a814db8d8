package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

type UserHandler struct {
	auth      service.IAuthService
	users     service.IUserService
	relations service.IRelationService
}

func NewUserHandler(auth service.IAuthService, users service.IUserService, relations service.IRelationService) *UserHandler {
	return &UserHandler{auth: auth, users: users, relations: relations}
}

func (h *UserHandler) RegisterRoutes(rg *gin.RouterGroup, required, optional gin.HandlerFunc) {
	users := rg.Group("/users")
	users.GET("/", optional, h.List)
	users.POST("/", h.Register)
	users.GET("/me/", required, h.Me)
	users.POST("/set_password/", required, h.SetPassword)
	users.GET("/subscriptions/", required, h.Subscriptions)
	users.GET("/:id/", optional, h.Get)
	users.POST("/:id/subscribe/", required, h.Subscribe)
	users.DELETE("/:id/subscribe/", required, h.Unsubscribe)
}

func (h *UserHandler) List(c *gin.Context) {
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}
	users, err := h.users.ListUsers(c.Request.Context(), middleware.ViewerFromContext(c), limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *UserHandler) Register(c *gin.Context) {
	var req types.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.auth.Register(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *UserHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "user")
	if !ok {
		return
	}
	user, err := h.users.GetUser(c.Request.Context(), middleware.ViewerFromContext(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) Me(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	user, err := h.users.Me(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) SetPassword(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req types.SetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.auth.SetPassword(c.Request.Context(), userID, &req); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) Subscriptions(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}
	recipesLimit, ok := queryInt(c, "recipes_limit")
	if !ok {
		return
	}
	subs, err := h.users.ListSubscriptions(c.Request.Context(), userID, limit, recipesLimit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, subs)
}

func (h *UserHandler) Subscribe(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	authorID, ok := pathID(c, "user")
	if !ok {
		return
	}
	recipesLimit, ok := queryInt(c, "recipes_limit")
	if !ok {
		return
	}
	view, err := h.relations.Subscribe(c.Request.Context(), userID, authorID, recipesLimit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *UserHandler) Unsubscribe(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	authorID, ok := pathID(c, "user")
	if !ok {
		return
	}
	if err := h.relations.Remove(c.Request.Context(), service.RelationSubscription, userID, authorID); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
