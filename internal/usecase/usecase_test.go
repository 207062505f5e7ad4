package usecase_test

import (
	"context"
	"errors"
	"net/http"

	"identity-sync-backend/internal/domain"

	"github.com/stretchr/testify/mock"
)

// Mock Repositories
type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) UpsertByAuthID(ctx context.Context, profile domain.UserProfile) (*domain.User, bool, error) {
	args := m.Called(ctx, profile)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*domain.User), args.Bool(1), args.Error(2)
}

func (m *MockUserRepo) EnsureByAuthID(ctx context.Context, profile domain.UserProfile) (*domain.User, bool, error) {
	args := m.Called(ctx, profile)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*domain.User), args.Bool(1), args.Error(2)
}

func (m *MockUserRepo) GetByAuthID(ctx context.Context, authID string) (*domain.User, error) {
	args := m.Called(ctx, authID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepo) List(ctx context.Context, limit, offset int) ([]domain.User, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.User), args.Error(1)
}

type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) Verify(payload []byte, headers http.Header) error {
	return m.Called(payload, headers).Error(0)
}

// MockIdentityProvider also serves as the ProfileProvider.
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) GetUserProfile(ctx context.Context, authID string) (*domain.UserProfile, error) {
	args := m.Called(ctx, authID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UserProfile), args.Error(1)
}

func (m *MockIdentityProvider) CreateSignUp(ctx context.Context, email, password string) (*domain.SignUpAttempt, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SignUpAttempt), args.Error(1)
}

func (m *MockIdentityProvider) PrepareEmailVerification(ctx context.Context, attempt domain.SignUpAttempt) (*domain.SignUpAttempt, error) {
	args := m.Called(ctx, attempt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SignUpAttempt), args.Error(1)
}

func (m *MockIdentityProvider) AttemptEmailVerification(ctx context.Context, attempt domain.SignUpAttempt, code string) (*domain.SignUpAttempt, error) {
	args := m.Called(ctx, attempt, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SignUpAttempt), args.Error(1)
}

func (m *MockIdentityProvider) SignIn(ctx context.Context, email, password string) (*domain.AuthSession, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AuthSession), args.Error(1)
}

func (m *MockIdentityProvider) RevokeSession(ctx context.Context, sessionID string) error {
	return m.Called(ctx, sessionID).Error(0)
}

func (m *MockIdentityProvider) OAuthRedirectURL(ctx context.Context, strategy, redirectURL, redirectURLComplete string) (string, error) {
	args := m.Called(ctx, strategy, redirectURL, redirectURLComplete)
	return args.String(0), args.Error(1)
}

var errStore = errors.New("connection refused")

func ptr(s string) *string { return &s }
