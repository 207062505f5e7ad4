package usecase

import (
	"context"
	"fmt"
	"time"

	"identity-sync-backend/internal/domain"
	"identity-sync-backend/pkg/apperror"
	"identity-sync-backend/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type SignupConfig struct {
	AttemptTTL time.Duration
	// OAuthRedirectURL receives the provider callback; OAuthCompleteURL is
	// where the browser lands once the provider has finished.
	OAuthRedirectURL string
	OAuthCompleteURL string
}

type signupUsecase struct {
	provider domain.IdentityProvider
	store    domain.SignupStore
	validate *validator.Validate
	cfg      SignupConfig
}

func NewSignupUsecase(provider domain.IdentityProvider, store domain.SignupStore, validate *validator.Validate, cfg SignupConfig) domain.SignupUsecase {
	if cfg.AttemptTTL <= 0 {
		cfg.AttemptTTL = 15 * time.Minute
	}
	return &signupUsecase{
		provider: provider,
		store:    store,
		validate: validate,
		cfg:      cfg,
	}
}

// Current returns the stored flow for attemptID, or a fresh unsaved flow
// when the attempt is unknown, expired or attemptID is empty.
func (u *signupUsecase) Current(ctx context.Context, attemptID string) (*domain.SignupFlow, error) {
	if attemptID == "" {
		return domain.NewSignupFlow(uuid.NewString()), nil
	}
	flow, err := u.store.Load(ctx, attemptID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if flow == nil {
		return domain.NewSignupFlow(attemptID), nil
	}
	return flow, nil
}

func (u *signupUsecase) SubmitCredentials(ctx context.Context, attemptID string, in domain.SignupCredentials) (*domain.SignupFlow, error) {
	flow, err := u.Current(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if err := u.validate.Struct(in); err != nil {
		return flow, err
	}
	if flow.State != domain.SignupCollectingCredentials {
		return flow, fmt.Errorf("%w: credentials already submitted", domain.ErrInvalidTransition)
	}

	attempt, err := u.provider.CreateSignUp(ctx, in.Email, in.Password)
	if err != nil {
		return flow, err
	}
	prepared, err := u.provider.PrepareEmailVerification(ctx, *attempt)
	if err != nil {
		return flow, err
	}
	if err := flow.BeginVerification(prepared); err != nil {
		return flow, err
	}
	if err := u.store.Save(ctx, flow, u.cfg.AttemptTTL); err != nil {
		return flow, apperror.Internal(err)
	}

	logger.Log.Info("Signup awaiting email verification", "attempt_id", flow.ID)
	return flow, nil
}

// SubmitVerification completes the flow when the provider reports the
// sign-up complete; any other status keeps it awaiting verification and
// returns ErrVerificationIncomplete.
func (u *signupUsecase) SubmitVerification(ctx context.Context, attemptID string, in domain.VerificationCode) (*domain.SignupFlow, error) {
	flow, err := u.store.Load(ctx, attemptID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if flow == nil {
		return nil, domain.ErrSignupNotFound
	}
	if err := u.validate.Struct(in); err != nil {
		return flow, err
	}
	if flow.State != domain.SignupAwaitingVerification {
		return flow, fmt.Errorf("%w: no verification pending", domain.ErrInvalidTransition)
	}

	result, err := u.provider.AttemptEmailVerification(ctx, flow.Pending(), in.Code)
	if err != nil {
		return flow, err
	}
	if result.ClientToken != "" {
		flow.ClientToken = result.ClientToken
	}

	if result.Status != domain.SignUpStatusComplete || result.SessionToken == "" {
		if err := u.store.Save(ctx, flow, u.cfg.AttemptTTL); err != nil {
			return flow, apperror.Internal(err)
		}
		return flow, domain.ErrVerificationIncomplete
	}

	if err := flow.Complete(result.CreatedSessionID, result.SessionToken); err != nil {
		return flow, err
	}
	if err := u.store.Delete(ctx, attemptID); err != nil {
		logger.Log.Warn("Failed to delete completed signup attempt", "attempt_id", attemptID, "error", err)
	}
	return flow, nil
}

func (u *signupUsecase) Restart(ctx context.Context, attemptID string) error {
	if attemptID == "" {
		return nil
	}
	if err := u.store.Delete(ctx, attemptID); err != nil {
		return apperror.Internal(err)
	}
	return nil
}

func (u *signupUsecase) StartOAuth(ctx context.Context, strategy string) (string, error) {
	if strategy != domain.OAuthStrategyGoogle {
		return "", apperror.BadRequest("Unsupported sign-in provider")
	}
	return u.provider.OAuthRedirectURL(ctx, strategy, u.cfg.OAuthRedirectURL, u.cfg.OAuthCompleteURL)
}

func (u *signupUsecase) SignIn(ctx context.Context, in domain.SigninCredentials) (*domain.AuthSession, error) {
	if err := u.validate.Struct(in); err != nil {
		return nil, err
	}
	return u.provider.SignIn(ctx, in.Email, in.Password)
}

// SignOut revokes the provider session behind claims. Anonymous callers are a no-op.
func (u *signupUsecase) SignOut(ctx context.Context, claims *domain.SessionClaims) error {
	if claims == nil || claims.SessionID == "" {
		return nil
	}
	return u.provider.RevokeSession(ctx, claims.SessionID)
}
