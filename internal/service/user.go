package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/apperrors"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
)

type UserService struct {
	db        *gorm.DB
	presenter *Presenter
}

func NewUserService(db *gorm.DB, presenter *Presenter) *UserService {
	return &UserService{db: db, presenter: presenter}
}

// ListUsers returns users ordered by username. limit <= 0 means no limit.
func (s *UserService) ListUsers(ctx context.Context, viewer *uint, limit int) ([]types.UserView, error) {
	q := s.db.WithContext(ctx).Order("username")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var users []models.User
	if err := q.Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return s.presenter.Users(ctx, viewer, users)
}

func (s *UserService) GetUser(ctx context.Context, viewer *uint, id uint) (*types.UserView, error) {
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.presenter.User(ctx, viewer, *user)
}

func (s *UserService) Me(ctx context.Context, userID uint) (*types.UserView, error) {
	return s.GetUser(ctx, &userID, userID)
}

// ListSubscriptions returns the authors userID follows, each with a preview
// of recipesLimit newest recipes.
func (s *UserService) ListSubscriptions(ctx context.Context, userID uint, limit, recipesLimit int) ([]types.SubscriptionView, error) {
	q := s.db.WithContext(ctx).
		Joins("JOIN subscriptions ON subscriptions.author_id = users.id").
		Where("subscriptions.user_id = ?", userID).
		Order("users.username")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var authors []models.User
	if err := q.Find(&authors).Error; err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return s.presenter.Subscriptions(ctx, &userID, authors, recipesLimit)
}

func (s *UserService) load(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("user not found")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}
