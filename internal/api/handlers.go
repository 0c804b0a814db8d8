// Package api exposes the services over HTTP with gin.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pageza/foodgram/backend/internal/apperrors"
	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/service"
)

// Services bundles everything the handlers depend on.
type Services struct {
	Auth      service.IAuthService
	Users     service.IUserService
	Catalog   service.ICatalogService
	Recipes   service.IRecipeService
	Relations service.IRelationService
	Shopping  service.IShoppingListService

	// RecipeWrites limits recipe create, update and delete. Optional.
	RecipeWrites *middleware.RateLimiter
	// MediaDir is served under /media when images are stored locally.
	MediaDir string
}

// HealthCheck returns the health status of the API
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// RegisterRoutes registers all API routes
func RegisterRoutes(router *gin.Engine, s Services) {
	router.GET("/health", HealthCheck)
	router.GET("/api/health", HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if s.MediaDir != "" {
		router.Static("/media", s.MediaDir)
	}

	required := middleware.AuthMiddleware(s.Auth)
	optional := middleware.OptionalAuth(s.Auth)
	var writes gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if s.RecipeWrites != nil {
		writes = s.RecipeWrites.Middleware()
	}

	root := router.Group("/api")
	NewAuthHandler(s.Auth).RegisterRoutes(root, required)
	NewUserHandler(s.Auth, s.Users, s.Relations).RegisterRoutes(root, required, optional)
	NewCatalogHandler(s.Catalog).RegisterRoutes(root)
	NewRecipeHandler(s.Recipes, s.Relations, s.Shopping).RegisterRoutes(root, required, optional, writes)
}

func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// bindJSON decodes the request body. Field-level checks happen in the
// services, so this only rejects bodies that are not valid JSON for the
// target type.
func bindJSON(c *gin.Context, v any) bool {
	err := c.ShouldBindJSON(v)
	if err == nil {
		return true
	}
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &typeErr) && typeErr.Field != "":
		fail(c, apperrors.Validation(typeErr.Field, "invalid value type"))
	case errors.Is(err, io.EOF):
		fail(c, apperrors.Validation("non_field_errors", "request body is empty"))
	default:
		fail(c, apperrors.Validation("non_field_errors", "request body is not valid JSON"))
	}
	return false
}

// pathID parses the :id route parameter. Malformed ids can never match a
// row, so they are reported as not found.
func pathID(c *gin.Context, what string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		fail(c, apperrors.NotFound(what+" not found"))
		return 0, false
	}
	return uint(id), true
}

// queryInt parses an optional non-negative integer query parameter; 0 means
// absent.
func queryInt(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		fail(c, apperrors.Validation(name, "must be a non-negative integer"))
		return 0, false
	}
	return n, true
}

func queryFlag(c *gin.Context, name string) bool {
	switch c.Query(name) {
	case "1", "true", "True":
		return true
	}
	return false
}

func currentUser(c *gin.Context) (uint, bool) {
	id, ok := middleware.UserIDFromContext(c)
	if !ok {
		fail(c, apperrors.Unauthenticated("authentication credentials were not provided"))
	}
	return id, ok
}
