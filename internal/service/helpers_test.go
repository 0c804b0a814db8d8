package service_test

import (
	"testing"

	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
	"github.com/pageza/foodgram/backend/internal/testhelpers/mocks"
)

const storedImageURL = "https://cdn.example.com/recipes/images/test.png"

var testLimits = config.LimitsConfig{Min: 1, Max: 32000}

func ptr(v uint) *uint {
	return &v
}

type fixture struct {
	db        *gorm.DB
	images    *mocks.MockImageStore
	presenter *service.Presenter
	recipes   *service.RecipeService
	relations *service.RelationService
	shopping  *service.ShoppingListService
	users     *service.UserService
	catalog   *service.CatalogService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testhelpers.SetupTestDatabase(t)
	images := &mocks.MockImageStore{}
	images.On("Save", mock.Anything, mock.Anything, "image/png").Return(storedImageURL, nil)
	presenter := service.NewPresenter(db)
	return &fixture{
		db:        db,
		images:    images,
		presenter: presenter,
		recipes:   service.NewRecipeService(db, testLimits, images, presenter),
		relations: service.NewRelationService(db, presenter),
		shopping:  service.NewShoppingListService(db),
		users:     service.NewUserService(db, presenter),
		catalog:   service.NewCatalogService(db),
	}
}
