package usecase

import (
	"context"

	"identity-sync-backend/internal/domain"
	"identity-sync-backend/pkg/apperror"
)

const (
	defaultListLimit = 50
	maxListLimit     = 100
)

type userUsecase struct {
	userRepo domain.UserRepository
}

func NewUserUsecase(userRepo domain.UserRepository) domain.UserUsecase {
	return &userUsecase{userRepo: userRepo}
}

func (u *userUsecase) Me(ctx context.Context, sc *domain.SessionContext) (*domain.User, error) {
	if !sc.Authenticated() {
		return nil, apperror.Unauthorized("User not authenticated")
	}
	return sc.User, nil
}

func (u *userUsecase) List(ctx context.Context, limit, offset int) ([]domain.User, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	users, err := u.userRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return users, nil
}
