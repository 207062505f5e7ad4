package usecase

import (
	"context"
	"errors"
	"net/http"

	"identity-sync-backend/internal/domain"
	"identity-sync-backend/pkg/logger"
	"identity-sync-backend/pkg/metrics"
	"identity-sync-backend/pkg/security"
)

var errNoEmail = errors.New("no primary email in claims or provider profile")

type sessionUsecase struct {
	userRepo    domain.UserRepository
	profiles    domain.ProfileProvider
	securityLog *security.SecurityLogger
}

// NewSessionUsecase builds the per-request context resolver. profiles may be
// nil, in which case lazily created users carry only what the claims hold.
func NewSessionUsecase(userRepo domain.UserRepository, profiles domain.ProfileProvider, securityLog *security.SecurityLogger) domain.SessionUsecase {
	return &sessionUsecase{
		userRepo:    userRepo,
		profiles:    profiles,
		securityLog: securityLog,
	}
}

// BuildContext never fails. Any error while resolving the local user is
// logged and leaves User nil, so pages still render for a signed-out view.
func (u *sessionUsecase) BuildContext(ctx context.Context, claims *domain.SessionClaims, headers http.Header) *domain.SessionContext {
	sc := &domain.SessionContext{Claims: claims, Headers: headers}
	if claims == nil || claims.Subject == "" {
		return sc
	}

	user, err := u.userRepo.GetByAuthID(ctx, claims.Subject)
	if err != nil {
		u.degrade(ctx, claims.Subject, "lookup", err)
		return sc
	}
	if user != nil {
		sc.User = user
		return sc
	}

	profile := domain.UserProfile{
		AuthID: claims.Subject,
		Email:  claims.PrimaryEmail,
	}
	if u.profiles != nil {
		remote, err := u.profiles.GetUserProfile(ctx, claims.Subject)
		if err != nil {
			u.degrade(ctx, claims.Subject, "provider_profile", err)
			return sc
		}
		profile.FirstName = remote.FirstName
		profile.LastName = remote.LastName
		if profile.Email == "" {
			profile.Email = remote.Email
		}
	}
	if profile.Email == "" {
		u.degrade(ctx, claims.Subject, "email", errNoEmail)
		return sc
	}

	user, created, err := u.userRepo.EnsureByAuthID(ctx, profile)
	if err != nil {
		u.degrade(ctx, claims.Subject, "create", err)
		return sc
	}

	if created {
		u.securityLog.LogUserProvisioned(ctx, user.AuthID, "session")
		metrics.UserProvisioned.WithLabelValues("session").Inc()
	}
	sc.User = user
	return sc
}

func (u *sessionUsecase) degrade(ctx context.Context, authID, stage string, err error) {
	logger.Log.Error("Failed to resolve session user", "stage", stage, "error", err)
	u.securityLog.LogProvisionDegraded(ctx, authID, stage, err)
}
