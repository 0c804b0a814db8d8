package service_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/foodgram/backend/internal/apperrors"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
	"github.com/pageza/foodgram/backend/internal/types"
)

func TestListIngredientsByPrefix(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, name := range []string{"Sugar", "salt", "Soy sauce", "Basil", "Mustard"} {
		testhelpers.CreateIngredient(t, f.db, name, "g")
	}

	names := func(prefix string) []string {
		views, err := f.catalog.ListIngredients(ctx, prefix)
		require.NoError(t, err)
		out := make([]string, 0, len(views))
		for _, v := range views {
			out = append(out, v.Name)
		}
		return out
	}

	assert.ElementsMatch(t, []string{"Sugar", "salt", "Soy sauce"}, names("s"))
	assert.ElementsMatch(t, []string{"Sugar"}, names("SU"))
	assert.Empty(t, names("us"), "match is anchored at the start")
	assert.Empty(t, names("%"))
	assert.Len(t, names(""), 5)
}

func TestGetIngredient(t *testing.T) {
	f := newFixture(t)
	ing := testhelpers.CreateIngredient(t, f.db, "Flour", "g")

	view, err := f.catalog.GetIngredient(context.Background(), ing.ID)
	require.NoError(t, err)
	assert.Equal(t, "Flour", view.Name)
	assert.Equal(t, "g", view.MeasurementUnit)

	_, err = f.catalog.GetIngredient(context.Background(), 404)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestImportIngredients(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	const data = "Sugar,g\nSalt,g\n\nFlour, kg\n\"Salt, sea\",g\n"

	stats, err := f.catalog.ImportIngredients(ctx, strings.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Created)
	assert.Equal(t, 0, stats.Skipped)

	var flour models.Ingredient
	require.NoError(t, f.db.Where("name = ?", "Flour").First(&flour).Error)
	assert.Equal(t, "kg", flour.MeasurementUnit)

	stats, err = f.catalog.ImportIngredients(ctx, strings.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Created)
	assert.Equal(t, 4, stats.Skipped)

	var count int64
	f.db.Model(&models.Ingredient{}).Count(&count)
	assert.Equal(t, int64(4), count)
}

func TestImportIngredientsRollsBackOnBadRow(t *testing.T) {
	f := newFixture(t)

	_, err := f.catalog.ImportIngredients(context.Background(), strings.NewReader("Sugar,g\nOnlyName\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")

	var count int64
	f.db.Model(&models.Ingredient{}).Count(&count)
	assert.Zero(t, count)
}

func TestTags(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	lunch, err := f.catalog.CreateTag(ctx, &types.TagRequest{Name: "Lunch", Color: "#e26c2d", Slug: "lunch"})
	require.NoError(t, err)
	require.NotNil(t, lunch.Color)
	assert.Equal(t, "#E26C2D", *lunch.Color)

	_, err = f.catalog.CreateTag(ctx, &types.TagRequest{Name: "Breakfast", Slug: "breakfast"})
	require.NoError(t, err)

	_, err = f.catalog.CreateTag(ctx, &types.TagRequest{Name: "Lunch again", Slug: "lunch"})
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	_, err = f.catalog.CreateTag(ctx, &types.TagRequest{Name: "Bad", Slug: "not a slug"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	tags, err := f.catalog.ListTags(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "Breakfast", tags[0].Name)
	assert.Nil(t, tags[0].Color)

	got, err := f.catalog.GetTag(ctx, lunch.ID)
	require.NoError(t, err)
	assert.Equal(t, "lunch", got.Slug)

	_, err = f.catalog.GetTag(ctx, 999)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
