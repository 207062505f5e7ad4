package usecase_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"identity-sync-backend/internal/domain"
	"identity-sync-backend/internal/usecase"
	"identity-sync-backend/pkg/metrics"
	"identity-sync-backend/pkg/security"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSessionBuildContext(t *testing.T) {
	ctx := context.Background()
	headers := http.Header{"X-Pathname": []string{"/"}}
	claims := &domain.SessionClaims{Subject: "user_1", SessionID: "sess_1", PrimaryEmail: "ada@example.com"}
	existing := &domain.User{ID: "u-1", AuthID: "user_1", Email: "ada@example.com", Role: domain.RoleAdmin}

	t.Run("Should return an anonymous context without claims", func(t *testing.T) {
		repo := new(MockUserRepo)
		uc := usecase.NewSessionUsecase(repo, nil, security.Nop())

		sc := uc.BuildContext(ctx, nil, headers)
		assert.False(t, sc.Authenticated())
		assert.Equal(t, headers, sc.Headers)
		repo.AssertNotCalled(t, "GetByAuthID", mock.Anything, mock.Anything)
	})

	t.Run("Should return the stored user as-is", func(t *testing.T) {
		repo := new(MockUserRepo)
		provider := new(MockIdentityProvider)
		repo.On("GetByAuthID", ctx, "user_1").Return(existing, nil)
		uc := usecase.NewSessionUsecase(repo, provider, security.Nop())

		sc := uc.BuildContext(ctx, claims, headers)
		assert.Equal(t, existing, sc.User)
		assert.Equal(t, claims, sc.Claims)
		provider.AssertNotCalled(t, "GetUserProfile", mock.Anything, mock.Anything)
	})

	t.Run("Should lazily create a USER with provider names", func(t *testing.T) {
		repo := new(MockUserRepo)
		provider := new(MockIdentityProvider)
		repo.On("GetByAuthID", ctx, "user_1").Return(nil, nil)
		provider.On("GetUserProfile", ctx, "user_1").Return(&domain.UserProfile{
			AuthID: "user_1", Email: "other@example.com", FirstName: ptr("Ada"), LastName: ptr("Lovelace"),
		}, nil)
		created := &domain.User{ID: "u-2", AuthID: "user_1", Email: "ada@example.com", Role: domain.RoleUser}
		repo.On("EnsureByAuthID", ctx, domain.UserProfile{
			AuthID: "user_1", Email: "ada@example.com", FirstName: ptr("Ada"), LastName: ptr("Lovelace"),
		}).Return(created, true, nil)
		uc := usecase.NewSessionUsecase(repo, provider, security.Nop())

		sc := uc.BuildContext(ctx, claims, headers)
		assert.Equal(t, created, sc.User)
		repo.AssertExpectations(t)
	})

	t.Run("Should fall back to the provider email when the claim is empty", func(t *testing.T) {
		repo := new(MockUserRepo)
		provider := new(MockIdentityProvider)
		repo.On("GetByAuthID", ctx, "user_1").Return(nil, nil)
		provider.On("GetUserProfile", ctx, "user_1").Return(&domain.UserProfile{AuthID: "user_1", Email: "ada@example.com"}, nil)
		repo.On("EnsureByAuthID", ctx, domain.UserProfile{AuthID: "user_1", Email: "ada@example.com"}).
			Return(&domain.User{AuthID: "user_1", Email: "ada@example.com", Role: domain.RoleUser}, true, nil)
		uc := usecase.NewSessionUsecase(repo, provider, security.Nop())

		sc := uc.BuildContext(ctx, &domain.SessionClaims{Subject: "user_1"}, headers)
		assert.True(t, sc.Authenticated())
	})

	t.Run("Should not count a row another writer inserted as provisioned", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		repo := new(MockUserRepo)
		repo.On("GetByAuthID", ctx, "user_1").Return(nil, nil)
		repo.On("EnsureByAuthID", ctx, domain.UserProfile{AuthID: "user_1", Email: "ada@example.com"}).Return(existing, false, nil)
		uc := usecase.NewSessionUsecase(repo, nil, security.NewWithZap(zap.New(core), "identity-sync", "test"))
		provisioned := metrics.UserProvisioned.WithLabelValues("session")
		before := testutil.ToFloat64(provisioned)

		sc := uc.BuildContext(ctx, claims, headers)
		assert.Equal(t, existing, sc.User)
		assert.Equal(t, before, testutil.ToFloat64(provisioned))
		assert.Equal(t, 0, logs.FilterMessage(string(security.EventUserProvisioned)).Len())
	})

	t.Run("Should degrade to no user on store failure", func(t *testing.T) {
		repo := new(MockUserRepo)
		repo.On("GetByAuthID", ctx, "user_1").Return(nil, errStore)
		uc := usecase.NewSessionUsecase(repo, nil, security.Nop())

		sc := uc.BuildContext(ctx, claims, headers)
		assert.Nil(t, sc.User)
		assert.Equal(t, claims, sc.Claims)
	})

	t.Run("Should degrade to no user on provider failure", func(t *testing.T) {
		repo := new(MockUserRepo)
		provider := new(MockIdentityProvider)
		repo.On("GetByAuthID", ctx, "user_1").Return(nil, nil)
		provider.On("GetUserProfile", ctx, "user_1").Return(nil, errors.New("502 bad gateway"))
		uc := usecase.NewSessionUsecase(repo, provider, security.Nop())

		sc := uc.BuildContext(ctx, claims, headers)
		assert.Nil(t, sc.User)
		repo.AssertNotCalled(t, "EnsureByAuthID", mock.Anything, mock.Anything)
	})

	t.Run("Should not create a user without any email", func(t *testing.T) {
		repo := new(MockUserRepo)
		repo.On("GetByAuthID", ctx, "user_1").Return(nil, nil)
		uc := usecase.NewSessionUsecase(repo, nil, security.Nop())

		sc := uc.BuildContext(ctx, &domain.SessionClaims{Subject: "user_1"}, headers)
		assert.Nil(t, sc.User)
		repo.AssertNotCalled(t, "EnsureByAuthID", mock.Anything, mock.Anything)
	})
}
