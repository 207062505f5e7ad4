package usecase_test

import (
	"context"
	"net/http"
	"testing"

	"identity-sync-backend/internal/domain"
	"identity-sync-backend/internal/usecase"
	"identity-sync-backend/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserMe(t *testing.T) {
	uc := usecase.NewUserUsecase(new(MockUserRepo))

	t.Run("Should fail when the context has no user", func(t *testing.T) {
		_, err := uc.Me(context.Background(), &domain.SessionContext{})
		assert.Equal(t, http.StatusUnauthorized, apperror.CodeOf(err))

		_, err = uc.Me(context.Background(), nil)
		assert.Equal(t, http.StatusUnauthorized, apperror.CodeOf(err))
	})

	t.Run("Should return the context user", func(t *testing.T) {
		user := &domain.User{ID: "u-1", AuthID: "user_1"}
		got, err := uc.Me(context.Background(), &domain.SessionContext{User: user})
		require.NoError(t, err)
		assert.Same(t, user, got)
	})
}

func TestUserList(t *testing.T) {
	ctx := context.Background()

	t.Run("Should clamp paging arguments", func(t *testing.T) {
		repo := new(MockUserRepo)
		repo.On("List", ctx, 100, 0).Return([]domain.User{{ID: "u-1"}}, nil)
		uc := usecase.NewUserUsecase(repo)

		users, err := uc.List(ctx, 5000, -3)
		require.NoError(t, err)
		assert.Len(t, users, 1)
		repo.AssertExpectations(t)
	})

	t.Run("Should default the limit", func(t *testing.T) {
		repo := new(MockUserRepo)
		repo.On("List", ctx, 50, 10).Return([]domain.User{}, nil)
		uc := usecase.NewUserUsecase(repo)

		_, err := uc.List(ctx, 0, 10)
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("Should hide store errors", func(t *testing.T) {
		repo := new(MockUserRepo)
		repo.On("List", ctx, 50, 0).Return(nil, errStore)
		uc := usecase.NewUserUsecase(repo)

		_, err := uc.List(ctx, 0, 0)
		assert.Equal(t, http.StatusInternalServerError, apperror.CodeOf(err))
	})
}
