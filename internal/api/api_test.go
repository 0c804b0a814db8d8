package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/api"
	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
	"github.com/pageza/foodgram/backend/internal/types"
)

type testAPI struct {
	t      *testing.T
	db     *gorm.DB
	auth   *service.AuthService
	router *gin.Engine
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testhelpers.SetupTestDatabase(t)
	mediaDir := t.TempDir()
	presenter := service.NewPresenter(db)
	auth := service.NewAuthService(db, "test-secret", time.Hour, nil)

	router := gin.New()
	router.Use(middleware.ErrorHandler())
	api.RegisterRoutes(router, api.Services{
		Auth:      auth,
		Users:     service.NewUserService(db, presenter),
		Catalog:   service.NewCatalogService(db),
		Recipes:   service.NewRecipeService(db, config.LimitsConfig{Min: 1, Max: 32000}, service.NewLocalImageStore(mediaDir, "/media"), presenter),
		Relations: service.NewRelationService(db, presenter),
		Shopping:  service.NewShoppingListService(db),
		MediaDir:  mediaDir,
	})
	return &testAPI{t: t, db: db, auth: auth, router: router}
}

func (a *testAPI) tokenFor(user *models.User) string {
	token, _, err := a.auth.GenerateToken(user.ID)
	require.NoError(a.t, err)
	return token
}

func (a *testAPI) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestAccountFlow(t *testing.T) {
	a := newTestAPI(t)

	w := a.do(http.MethodPost, "/api/users/", "", map[string]string{
		"email": "vera@example.com", "username": "vera",
		"first_name": "Vera", "last_name": "Ivanova", "password": "long-password",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	registered := decode[map[string]any](t, w)
	assert.Equal(t, "vera", registered["username"])
	assert.NotContains(t, registered, "password")

	w = a.do(http.MethodPost, "/api/users/", "", map[string]string{
		"email": "vera@example.com", "username": "vera2",
		"first_name": "Vera", "last_name": "Ivanova", "password": "long-password",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[map[string]any](t, w), "email")

	w = a.do(http.MethodPost, "/api/auth/token/login/", "", map[string]string{"email": "vera@example.com", "password": "long-password"})
	require.Equal(t, http.StatusOK, w.Code)
	token := decode[types.TokenResponse](t, w).AuthToken
	require.NotEmpty(t, token)

	w = a.do(http.MethodGet, "/api/users/me/", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "vera", decode[types.UserView](t, w).Username)

	w = a.do(http.MethodPost, "/api/users/set_password/", token, map[string]string{"current_password": "long-password", "new_password": "longer-password"})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = a.do(http.MethodPost, "/api/auth/token/logout/", token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = a.do(http.MethodGet, "/api/users/me/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.do(http.MethodPost, "/api/auth/token/login/", "", "not an object")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecipeLifecycle(t *testing.T) {
	a := newTestAPI(t)
	author := testhelpers.CreateUser(t, a.db, "author")
	other := testhelpers.CreateUser(t, a.db, "other")
	lunch := testhelpers.CreateTag(t, a.db, "Lunch", "lunch")
	flour := testhelpers.CreateIngredient(t, a.db, "Flour", "g")
	eggs := testhelpers.CreateIngredient(t, a.db, "Eggs", "pcs")
	token := a.tokenFor(author)

	body := map[string]any{
		"name": "Pancakes", "text": "Mix and fry", "cooking_time": 20,
		"image": testhelpers.PNGDataURI,
		"tags":  []uint{lunch.ID},
		"ingredients": []map[string]any{
			{"id": flour.ID, "amount": 200},
			{"id": eggs.ID, "amount": 2},
		},
	}
	w := a.do(http.MethodPost, "/api/recipes/", token, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[types.RecipeView](t, w)
	assert.Equal(t, "author", created.Author.Username)
	assert.True(t, strings.HasPrefix(created.Image, "/media/recipes/images/"), created.Image)
	require.Len(t, created.Ingredients, 2)

	img := a.do(http.MethodGet, created.Image, "", nil)
	assert.Equal(t, http.StatusOK, img.Code)

	body["cooking_time"] = 0
	w = a.do(http.MethodPost, "/api/recipes/", token, body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[map[string]any](t, w), "cooking_time")

	w = a.do(http.MethodPost, "/api/recipes/", "", body)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	path := fmt.Sprintf("/api/recipes/%d/", created.ID)
	update := map[string]any{
		"name": "Pancakes", "text": "Mix, rest, fry", "cooking_time": 25,
		"tags":        []uint{lunch.ID},
		"ingredients": []map[string]any{{"id": flour.ID, "amount": 250}},
	}
	w = a.do(http.MethodPatch, path, a.tokenFor(other), update)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(http.MethodPatch, path, token, update)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[types.RecipeView](t, w)
	assert.Equal(t, created.Image, updated.Image)
	require.Len(t, updated.Ingredients, 1)
	assert.Equal(t, 250, updated.Ingredients[0].Amount)

	w = a.do(http.MethodGet, path, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Mix, rest, fry", decode[types.RecipeView](t, w).Text)

	w = a.do(http.MethodGet, "/api/recipes/abc/", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.do(http.MethodDelete, path, a.tokenFor(other), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = a.do(http.MethodDelete, path, token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = a.do(http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFavoriteAndCartToggles(t *testing.T) {
	a := newTestAPI(t)
	author := testhelpers.CreateUser(t, a.db, "author")
	fan := testhelpers.CreateUser(t, a.db, "fan")
	recipe := testhelpers.CreateRecipe(t, a.db, author, "Soup", nil)
	token := a.tokenFor(fan)

	for _, relation := range []string{"favorite", "shopping_cart"} {
		t.Run(relation, func(t *testing.T) {
			path := fmt.Sprintf("/api/recipes/%d/%s/", recipe.ID, relation)

			w := a.do(http.MethodPost, path, token, nil)
			require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
			short := decode[types.RecipeShortView](t, w)
			assert.Equal(t, "Soup", short.Name)

			w = a.do(http.MethodPost, path, token, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)

			w = a.do(http.MethodDelete, path, token, nil)
			assert.Equal(t, http.StatusNoContent, w.Code)

			w = a.do(http.MethodDelete, path, token, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, decode[map[string]any](t, w), "errors")

			w = a.do(http.MethodPost, fmt.Sprintf("/api/recipes/%d/%s/", 9999, relation), token, nil)
			assert.Equal(t, http.StatusNotFound, w.Code)
		})
	}
}

func TestRecipeListFlags(t *testing.T) {
	a := newTestAPI(t)
	author := testhelpers.CreateUser(t, a.db, "author")
	fan := testhelpers.CreateUser(t, a.db, "fan")
	breakfast := testhelpers.CreateTag(t, a.db, "Breakfast", "breakfast")
	first := testhelpers.CreateRecipe(t, a.db, author, "Oatmeal", []*models.Tag{breakfast})
	testhelpers.CreateRecipe(t, a.db, author, "Stew", nil)
	token := a.tokenFor(fan)

	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, fmt.Sprintf("/api/recipes/%d/favorite/", first.ID), token, nil).Code)

	w := a.do(http.MethodGet, "/api/recipes/", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	all := decode[[]types.RecipeView](t, w)
	require.Len(t, all, 2)
	assert.Equal(t, "Stew", all[0].Name)
	assert.True(t, all[1].IsFavorited)

	w = a.do(http.MethodGet, "/api/recipes/?is_favorited=1", token, nil)
	favorites := decode[[]types.RecipeView](t, w)
	require.Len(t, favorites, 1)
	assert.Equal(t, "Oatmeal", favorites[0].Name)

	w = a.do(http.MethodGet, "/api/recipes/?is_favorited=1", "", nil)
	assert.Len(t, decode[[]types.RecipeView](t, w), 2)

	w = a.do(http.MethodGet, "/api/recipes/?tags=breakfast&tags=dinner", "", nil)
	assert.Len(t, decode[[]types.RecipeView](t, w), 1)

	w = a.do(http.MethodGet, fmt.Sprintf("/api/recipes/?author=%d&limit=1", author.ID), "", nil)
	assert.Len(t, decode[[]types.RecipeView](t, w), 1)

	w = a.do(http.MethodGet, "/api/recipes/?limit=-1", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodGet, "/api/recipes/", "Token not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSubscriptions(t *testing.T) {
	a := newTestAPI(t)
	author := testhelpers.CreateUser(t, a.db, "author")
	fan := testhelpers.CreateUser(t, a.db, "fan")
	testhelpers.CreateRecipe(t, a.db, author, "One", nil)
	testhelpers.CreateRecipe(t, a.db, author, "Two", nil)
	token := a.tokenFor(fan)
	path := fmt.Sprintf("/api/users/%d/subscribe/", author.ID)

	w := a.do(http.MethodPost, path+"?recipes_limit=1", token, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	view := decode[types.SubscriptionView](t, w)
	assert.True(t, view.IsSubscribed)
	assert.Equal(t, int64(2), view.RecipesCount)
	require.Len(t, view.Recipes, 1)
	assert.Equal(t, "Two", view.Recipes[0].Name)

	w = a.do(http.MethodPost, path, token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodPost, fmt.Sprintf("/api/users/%d/subscribe/", fan.ID), token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodGet, "/api/users/subscriptions/", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	subs := decode[[]types.SubscriptionView](t, w)
	require.Len(t, subs, 1)
	assert.Len(t, subs[0].Recipes, 2)

	w = a.do(http.MethodGet, fmt.Sprintf("/api/users/%d/", author.ID), token, nil)
	assert.True(t, decode[types.UserView](t, w).IsSubscribed)
	w = a.do(http.MethodGet, fmt.Sprintf("/api/users/%d/", author.ID), "", nil)
	assert.False(t, decode[types.UserView](t, w).IsSubscribed)

	w = a.do(http.MethodDelete, path, token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = a.do(http.MethodDelete, path, token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodGet, "/api/users/424242/", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDownloadShoppingCart(t *testing.T) {
	a := newTestAPI(t)
	author := testhelpers.CreateUser(t, a.db, "author")
	sugar := testhelpers.CreateIngredient(t, a.db, "Sugar", "g")
	cake := testhelpers.CreateRecipe(t, a.db, author, "Cake", nil, testhelpers.Line{Ingredient: sugar, Amount: 100})
	token := a.tokenFor(author)

	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, fmt.Sprintf("/api/recipes/%d/shopping_cart/", cake.ID), token, nil).Code)

	w := a.do(http.MethodGet, "/api/recipes/download_shopping_cart/", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="shopping_cart.txt"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "Список покупок:\nSugar - 100, g\n", w.Body.String())

	w = a.do(http.MethodGet, "/api/recipes/download_shopping_cart/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCatalogRoutes(t *testing.T) {
	a := newTestAPI(t)
	tag := testhelpers.CreateTag(t, a.db, "Dinner", "dinner")
	testhelpers.CreateIngredient(t, a.db, "Salt", "g")
	testhelpers.CreateIngredient(t, a.db, "Pepper", "g")

	w := a.do(http.MethodGet, "/api/tags/", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]types.TagView](t, w), 1)

	w = a.do(http.MethodGet, fmt.Sprintf("/api/tags/%d/", tag.ID), "", nil)
	assert.Equal(t, "dinner", decode[types.TagView](t, w).Slug)

	w = a.do(http.MethodGet, "/api/ingredients/?name=sa", "", nil)
	found := decode[[]types.IngredientView](t, w)
	require.Len(t, found, 1)
	assert.Equal(t, "Salt", found[0].Name)

	w = a.do(http.MethodGet, "/api/ingredients/0/", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
