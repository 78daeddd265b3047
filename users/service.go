// Package users exposes the account profile and the per-user favorite
// sets. Every operation here runs behind the access-token middleware, so
// handlers resolve the caller from the verified claims rather than from
// request parameters.
package users

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/user/pokesphere-go/apperror"
	"github.com/user/pokesphere-go/store"
)

// Service reads and mutates user records.
type Service struct {
	users  store.UserStore
	logger *zap.Logger
}

// NewService creates the users Service.
func NewService(users store.UserStore, logger *zap.Logger) *Service {
	return &Service{users: users, logger: logger}
}

// GetByID returns the user's profile.
func (s *Service) GetByID(ctx context.Context, userID string) (*store.User, error) {
	user, err := s.users.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperror.NewNotFoundError("user not found", nil)
		}
		return nil, apperror.NewDatabaseError("cannot fetch user, server error", err)
	}
	return user, nil
}

// AddFavorite records id in one of the user's favorite sets. Adding an id
// that is already present leaves the set unchanged.
func (s *Service) AddFavorite(ctx context.Context, userID string, set store.FavoriteSet, id int) (*store.User, error) {
	user, err := s.users.AddToSet(ctx, userID, set, id)
	if err != nil {
		return nil, s.favoriteError(err)
	}
	s.logger.Debug("favorite added",
		zap.String("userId", userID), zap.String("set", string(set)), zap.Int("id", id))
	return user, nil
}

// RemoveFavorite removes id from one of the user's favorite sets. Removing
// an absent id leaves the set unchanged.
func (s *Service) RemoveFavorite(ctx context.Context, userID string, set store.FavoriteSet, id int) (*store.User, error) {
	user, err := s.users.PullFromSet(ctx, userID, set, id)
	if err != nil {
		return nil, s.favoriteError(err)
	}
	s.logger.Debug("favorite removed",
		zap.String("userId", userID), zap.String("set", string(set)), zap.Int("id", id))
	return user, nil
}

func (s *Service) favoriteError(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperror.NewNotFoundError("user not found", nil)
	}
	return apperror.NewDatabaseError("cannot update favorites, server error", err)
}
