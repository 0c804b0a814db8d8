package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pageza/foodgram/backend/internal/apperrors"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
	"github.com/pageza/foodgram/backend/internal/testhelpers/mocks"
	"github.com/pageza/foodgram/backend/internal/types"
)

type catalog struct {
	breakfast *models.Tag
	dinner    *models.Tag
	sugar     *models.Ingredient
	flour     *models.Ingredient
	eggs      *models.Ingredient
}

func seedCatalog(t *testing.T, f *fixture) catalog {
	return catalog{
		breakfast: testhelpers.CreateTag(t, f.db, "Breakfast", "breakfast"),
		dinner:    testhelpers.CreateTag(t, f.db, "Dinner", "dinner"),
		sugar:     testhelpers.CreateIngredient(t, f.db, "Sugar", "g"),
		flour:     testhelpers.CreateIngredient(t, f.db, "Flour", "g"),
		eggs:      testhelpers.CreateIngredient(t, f.db, "Eggs", "pcs"),
	}
}

func recipeRequest(c catalog) *types.RecipeRequest {
	return &types.RecipeRequest{
		Name:        "Pancakes",
		Text:        "Mix and fry.",
		CookingTime: 20,
		Image:       testhelpers.PNGDataURI,
		Tags:        []uint{c.breakfast.ID},
		Ingredients: []types.IngredientAmount{
			{ID: c.flour.ID, Amount: 200},
			{ID: c.eggs.ID, Amount: 2},
		},
	}
}

func TestCreateRecipe(t *testing.T) {
	f := newFixture(t)
	c := seedCatalog(t, f)
	author := testhelpers.CreateUser(t, f.db, "chef")

	view, err := f.recipes.CreateRecipe(context.Background(), author.ID, recipeRequest(c))
	require.NoError(t, err)

	assert.NotZero(t, view.ID)
	assert.Equal(t, "Pancakes", view.Name)
	assert.Equal(t, storedImageURL, view.Image)
	assert.Equal(t, 20, view.CookingTime)
	assert.Equal(t, author.ID, view.Author.ID)
	assert.False(t, view.Author.IsSubscribed)
	assert.False(t, view.IsFavorited)
	assert.False(t, view.IsInShoppingCart)

	require.Len(t, view.Tags, 1)
	assert.Equal(t, "breakfast", view.Tags[0].Slug)

	require.Len(t, view.Ingredients, 2)
	assert.Equal(t, c.flour.ID, view.Ingredients[0].ID)
	assert.Equal(t, "Flour", view.Ingredients[0].Name)
	assert.Equal(t, "g", view.Ingredients[0].MeasurementUnit)
	assert.Equal(t, 200, view.Ingredients[0].Amount)

	f.images.AssertNumberOfCalls(t, "Save", 1)
}

func TestCreateRecipeLimits(t *testing.T) {
	tests := []struct {
		name        string
		cookingTime int
		amount      int
		wantErr     bool
	}{
		{"lower bound", 1, 1, false},
		{"upper bound", 32000, 32000, false},
		{"cooking time zero", 0, 10, true},
		{"cooking time above max", 32001, 10, true},
		{"amount zero", 10, 0, true},
		{"amount above max", 10, 32001, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			c := seedCatalog(t, f)
			author := testhelpers.CreateUser(t, f.db, "chef")

			req := recipeRequest(c)
			req.CookingTime = tt.cookingTime
			req.Ingredients = []types.IngredientAmount{{ID: c.sugar.ID, Amount: tt.amount}}

			_, err := f.recipes.CreateRecipe(context.Background(), author.ID, req)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperrors.ErrValidation)
				var count int64
				f.db.Model(&models.Recipe{}).Count(&count)
				assert.Zero(t, count)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCreateRecipeRejectsBadReferences(t *testing.T) {
	f := newFixture(t)
	c := seedCatalog(t, f)
	author := testhelpers.CreateUser(t, f.db, "chef")
	ctx := context.Background()

	t.Run("unknown ingredient", func(t *testing.T) {
		req := recipeRequest(c)
		req.Ingredients = append(req.Ingredients, types.IngredientAmount{ID: 999, Amount: 1})
		_, err := f.recipes.CreateRecipe(ctx, author.ID, req)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("unknown tag", func(t *testing.T) {
		req := recipeRequest(c)
		req.Tags = []uint{c.breakfast.ID, 999}
		_, err := f.recipes.CreateRecipe(ctx, author.ID, req)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})

	t.Run("repeated ingredient", func(t *testing.T) {
		req := recipeRequest(c)
		req.Ingredients = append(req.Ingredients, types.IngredientAmount{ID: c.flour.ID, Amount: 5})
		_, err := f.recipes.CreateRecipe(ctx, author.ID, req)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})

	t.Run("no tags", func(t *testing.T) {
		req := recipeRequest(c)
		req.Tags = []uint{}
		_, err := f.recipes.CreateRecipe(ctx, author.ID, req)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})

	t.Run("no ingredients", func(t *testing.T) {
		req := recipeRequest(c)
		req.Ingredients = nil
		_, err := f.recipes.CreateRecipe(ctx, author.ID, req)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})

	t.Run("missing image", func(t *testing.T) {
		req := recipeRequest(c)
		req.Image = ""
		_, err := f.recipes.CreateRecipe(ctx, author.ID, req)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})

	t.Run("image is not a data uri", func(t *testing.T) {
		req := recipeRequest(c)
		req.Image = "https://example.com/cat.png"
		_, err := f.recipes.CreateRecipe(ctx, author.ID, req)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})

	var count int64
	f.db.Model(&models.Recipe{}).Count(&count)
	assert.Zero(t, count)
	f.images.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateRecipeDuplicateTagsAreCollapsed(t *testing.T) {
	f := newFixture(t)
	c := seedCatalog(t, f)
	author := testhelpers.CreateUser(t, f.db, "chef")

	req := recipeRequest(c)
	req.Tags = []uint{c.breakfast.ID, c.breakfast.ID, c.dinner.ID}
	view, err := f.recipes.CreateRecipe(context.Background(), author.ID, req)
	require.NoError(t, err)
	assert.Len(t, view.Tags, 2)
}

func TestCreateRecipeStorageUnavailable(t *testing.T) {
	db := testhelpers.SetupTestDatabase(t)
	images := &mocks.MockImageStore{}
	images.On("Save", mock.Anything, mock.Anything, "image/png").
		Return("", apperrors.Unavailable("image storage is unavailable", errors.New("breaker open")))
	presenter := service.NewPresenter(db)
	recipes := service.NewRecipeService(db, testLimits, images, presenter)

	author := testhelpers.CreateUser(t, db, "chef")
	tag := testhelpers.CreateTag(t, db, "Lunch", "lunch")
	salt := testhelpers.CreateIngredient(t, db, "Salt", "g")

	_, err := recipes.CreateRecipe(context.Background(), author.ID, &types.RecipeRequest{
		Name:        "Soup",
		Text:        "Boil.",
		CookingTime: 30,
		Image:       testhelpers.PNGDataURI,
		Tags:        []uint{tag.ID},
		Ingredients: []types.IngredientAmount{{ID: salt.ID, Amount: 5}},
	})
	assert.ErrorIs(t, err, apperrors.ErrUnavailable)
	assert.Equal(t, 503, apperrors.StatusOf(err))

	var count int64
	db.Model(&models.Recipe{}).Count(&count)
	assert.Zero(t, count)
}

func TestUpdateRecipeReplacesComposition(t *testing.T) {
	f := newFixture(t)
	c := seedCatalog(t, f)
	author := testhelpers.CreateUser(t, f.db, "chef")
	ctx := context.Background()

	created, err := f.recipes.CreateRecipe(ctx, author.ID, recipeRequest(c))
	require.NoError(t, err)

	var before models.Recipe
	require.NoError(t, f.db.First(&before, created.ID).Error)

	updated, err := f.recipes.UpdateRecipe(ctx, author.ID, created.ID, &types.RecipeRequest{
		Name:        "Sweet pancakes",
		Text:        "Mix, sweeten and fry.",
		CookingTime: 25,
		Tags:        []uint{c.dinner.ID},
		Ingredients: []types.IngredientAmount{{ID: c.sugar.ID, Amount: 10}},
	})
	require.NoError(t, err)

	assert.Equal(t, "Sweet pancakes", updated.Name)
	assert.Equal(t, 25, updated.CookingTime)
	assert.Equal(t, storedImageURL, updated.Image)
	require.Len(t, updated.Tags, 1)
	assert.Equal(t, "dinner", updated.Tags[0].Slug)
	require.Len(t, updated.Ingredients, 1)
	assert.Equal(t, c.sugar.ID, updated.Ingredients[0].ID)
	assert.Equal(t, 10, updated.Ingredients[0].Amount)

	var lines int64
	f.db.Model(&models.RecipeIngredient{}).Where("recipe_id = ? AND ingredient_id = ?", created.ID, c.flour.ID).Count(&lines)
	assert.Zero(t, lines)

	var after models.Recipe
	require.NoError(t, f.db.First(&after, created.ID).Error)
	assert.True(t, before.PubDate.Equal(after.PubDate))

	// the image is only uploaded on create
	f.images.AssertNumberOfCalls(t, "Save", 1)
}

func TestUpdateRecipeValidationKeepsOldComposition(t *testing.T) {
	f := newFixture(t)
	c := seedCatalog(t, f)
	author := testhelpers.CreateUser(t, f.db, "chef")
	ctx := context.Background()

	created, err := f.recipes.CreateRecipe(ctx, author.ID, recipeRequest(c))
	require.NoError(t, err)

	req := recipeRequest(c)
	req.Ingredients = []types.IngredientAmount{{ID: c.sugar.ID, Amount: 0}}
	_, err = f.recipes.UpdateRecipe(ctx, author.ID, created.ID, req)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	view, err := f.recipes.GetRecipe(ctx, nil, created.ID)
	require.NoError(t, err)
	assert.Len(t, view.Ingredients, 2)
}

func TestOnlyAuthorMayModifyRecipe(t *testing.T) {
	f := newFixture(t)
	c := seedCatalog(t, f)
	author := testhelpers.CreateUser(t, f.db, "chef")
	other := testhelpers.CreateUser(t, f.db, "critic")
	ctx := context.Background()

	created, err := f.recipes.CreateRecipe(ctx, author.ID, recipeRequest(c))
	require.NoError(t, err)

	_, err = f.recipes.UpdateRecipe(ctx, other.ID, created.ID, recipeRequest(c))
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	err = f.recipes.DeleteRecipe(ctx, other.ID, created.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = f.recipes.UpdateRecipe(ctx, author.ID, 999, recipeRequest(c))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDeleteRecipeCascades(t *testing.T) {
	f := newFixture(t)
	c := seedCatalog(t, f)
	author := testhelpers.CreateUser(t, f.db, "chef")
	fan := testhelpers.CreateUser(t, f.db, "fan")
	ctx := context.Background()

	created, err := f.recipes.CreateRecipe(ctx, author.ID, recipeRequest(c))
	require.NoError(t, err)
	require.NoError(t, f.relations.Add(ctx, service.RelationFavorite, fan.ID, created.ID))
	require.NoError(t, f.relations.Add(ctx, service.RelationCart, fan.ID, created.ID))

	require.NoError(t, f.recipes.DeleteRecipe(ctx, author.ID, created.ID))

	_, err = f.recipes.GetRecipe(ctx, nil, created.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	for _, model := range []interface{}{&models.Favorite{}, &models.CartItem{}, &models.RecipeIngredient{}, &models.RecipeTag{}} {
		var count int64
		f.db.Model(model).Count(&count)
		assert.Zero(t, count)
	}
}

func TestListRecipes(t *testing.T) {
	f := newFixture(t)
	c := seedCatalog(t, f)
	ctx := context.Background()
	chef := testhelpers.CreateUser(t, f.db, "chef")
	baker := testhelpers.CreateUser(t, f.db, "baker")
	fan := testhelpers.CreateUser(t, f.db, "fan")

	testhelpers.CreateRecipe(t, f.db, chef, "Omelette", []*models.Tag{c.breakfast},
		testhelpers.Line{Ingredient: c.eggs, Amount: 3})
	stew := testhelpers.CreateRecipe(t, f.db, chef, "Stew", []*models.Tag{c.dinner})
	bread := testhelpers.CreateRecipe(t, f.db, baker, "Bread", []*models.Tag{c.breakfast, c.dinner},
		testhelpers.Line{Ingredient: c.flour, Amount: 500})
	testhelpers.CreateRecipe(t, f.db, baker, "Plain", nil)

	require.NoError(t, f.relations.Add(ctx, service.RelationFavorite, fan.ID, stew.ID))
	require.NoError(t, f.relations.Add(ctx, service.RelationCart, fan.ID, bread.ID))
	require.NoError(t, f.relations.Add(ctx, service.RelationSubscription, fan.ID, chef.ID))

	names := func(views []types.RecipeView) []string {
		out := make([]string, 0, len(views))
		for _, v := range views {
			out = append(out, v.Name)
		}
		return out
	}

	t.Run("newest first", func(t *testing.T) {
		views, err := f.recipes.ListRecipes(ctx, nil, types.RecipeFilter{})
		require.NoError(t, err)
		assert.Equal(t, []string{"Plain", "Bread", "Stew", "Omelette"}, names(views))
	})

	t.Run("anonymous viewer sees cleared flags", func(t *testing.T) {
		views, err := f.recipes.ListRecipes(ctx, nil, types.RecipeFilter{})
		require.NoError(t, err)
		for _, v := range views {
			assert.False(t, v.IsFavorited)
			assert.False(t, v.IsInShoppingCart)
			assert.False(t, v.Author.IsSubscribed)
		}
	})

	t.Run("flags for viewer", func(t *testing.T) {
		views, err := f.recipes.ListRecipes(ctx, ptr(fan.ID), types.RecipeFilter{})
		require.NoError(t, err)
		byName := make(map[string]types.RecipeView)
		for _, v := range views {
			byName[v.Name] = v
		}
		assert.True(t, byName["Stew"].IsFavorited)
		assert.False(t, byName["Stew"].IsInShoppingCart)
		assert.True(t, byName["Bread"].IsInShoppingCart)
		assert.True(t, byName["Omelette"].Author.IsSubscribed)
		assert.False(t, byName["Bread"].Author.IsSubscribed)
		assert.Empty(t, byName["Plain"].Tags)
		assert.NotNil(t, byName["Plain"].Ingredients)
	})

	t.Run("tags match any", func(t *testing.T) {
		views, err := f.recipes.ListRecipes(ctx, nil, types.RecipeFilter{Tags: []string{"breakfast"}})
		require.NoError(t, err)
		assert.Equal(t, []string{"Bread", "Omelette"}, names(views))

		views, err = f.recipes.ListRecipes(ctx, nil, types.RecipeFilter{Tags: []string{"breakfast", "dinner"}})
		require.NoError(t, err)
		assert.Equal(t, []string{"Bread", "Stew", "Omelette"}, names(views))
	})

	t.Run("author", func(t *testing.T) {
		views, err := f.recipes.ListRecipes(ctx, nil, types.RecipeFilter{AuthorID: ptr(baker.ID)})
		require.NoError(t, err)
		assert.Equal(t, []string{"Plain", "Bread"}, names(views))
	})

	t.Run("favorited and cart", func(t *testing.T) {
		views, err := f.recipes.ListRecipes(ctx, ptr(fan.ID), types.RecipeFilter{IsFavorited: true})
		require.NoError(t, err)
		assert.Equal(t, []string{"Stew"}, names(views))

		views, err = f.recipes.ListRecipes(ctx, ptr(fan.ID), types.RecipeFilter{IsInShoppingCart: true})
		require.NoError(t, err)
		assert.Equal(t, []string{"Bread"}, names(views))
	})

	t.Run("viewer filters ignored for anonymous", func(t *testing.T) {
		views, err := f.recipes.ListRecipes(ctx, nil, types.RecipeFilter{IsFavorited: true, IsInShoppingCart: true})
		require.NoError(t, err)
		assert.Len(t, views, 4)
	})

	t.Run("limit", func(t *testing.T) {
		views, err := f.recipes.ListRecipes(ctx, nil, types.RecipeFilter{Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, []string{"Plain", "Bread"}, names(views))
	})
}
