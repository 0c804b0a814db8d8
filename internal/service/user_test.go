package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/foodgram/backend/internal/apperrors"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
)

func TestListUsers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	carol := testhelpers.CreateUser(t, f.db, "carol")
	alice := testhelpers.CreateUser(t, f.db, "alice")
	bob := testhelpers.CreateUser(t, f.db, "bob")

	require.NoError(t, f.relations.Add(ctx, service.RelationSubscription, alice.ID, carol.ID))

	users, err := f.users.ListUsers(ctx, ptr(alice.ID), 0)
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "alice", users[0].Username)
	assert.Equal(t, "bob", users[1].Username)
	assert.Equal(t, "carol", users[2].Username)
	assert.False(t, users[1].IsSubscribed)
	assert.True(t, users[2].IsSubscribed)

	anonymous, err := f.users.ListUsers(ctx, nil, 2)
	require.NoError(t, err)
	require.Len(t, anonymous, 2)
	for _, u := range anonymous {
		assert.False(t, u.IsSubscribed)
	}

	got, err := f.users.GetUser(ctx, ptr(alice.ID), carol.ID)
	require.NoError(t, err)
	assert.True(t, got.IsSubscribed)

	me, err := f.users.Me(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", me.Email)
	assert.False(t, me.IsSubscribed)

	_, err = f.users.GetUser(ctx, nil, 999)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestListSubscriptions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fan := testhelpers.CreateUser(t, f.db, "fan")
	zoe := testhelpers.CreateUser(t, f.db, "zoe")
	adam := testhelpers.CreateUser(t, f.db, "adam")
	testhelpers.CreateUser(t, f.db, "stranger")

	testhelpers.CreateRecipe(t, f.db, zoe, "Z1", nil)
	testhelpers.CreateRecipe(t, f.db, zoe, "Z2", nil)
	testhelpers.CreateRecipe(t, f.db, zoe, "Z3", nil)

	require.NoError(t, f.relations.Add(ctx, service.RelationSubscription, fan.ID, zoe.ID))
	require.NoError(t, f.relations.Add(ctx, service.RelationSubscription, fan.ID, adam.ID))

	subs, err := f.users.ListSubscriptions(ctx, fan.ID, 0, 1)
	require.NoError(t, err)
	require.Len(t, subs, 2)

	assert.Equal(t, "adam", subs[0].Username)
	assert.Empty(t, subs[0].Recipes)
	assert.NotNil(t, subs[0].Recipes)
	assert.Zero(t, subs[0].RecipesCount)

	assert.Equal(t, "zoe", subs[1].Username)
	assert.True(t, subs[1].IsSubscribed)
	assert.Equal(t, int64(3), subs[1].RecipesCount)
	require.Len(t, subs[1].Recipes, 1)
	assert.Equal(t, "Z3", subs[1].Recipes[0].Name)

	all, err := f.users.ListSubscriptions(ctx, fan.ID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all[1].Recipes, 3)

	none, err := f.users.ListSubscriptions(ctx, zoe.ID, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}
