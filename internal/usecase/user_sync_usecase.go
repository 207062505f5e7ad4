package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"identity-sync-backend/internal/domain"
	"identity-sync-backend/pkg/logger"
	"identity-sync-backend/pkg/metrics"
	"identity-sync-backend/pkg/security"

	"github.com/go-playground/validator/v10"
)

type userSyncUsecase struct {
	verifier    domain.WebhookVerifier
	userRepo    domain.UserRepository
	validate    *validator.Validate
	securityLog *security.SecurityLogger
}

func NewUserSyncUsecase(verifier domain.WebhookVerifier, userRepo domain.UserRepository, validate *validator.Validate, securityLog *security.SecurityLogger) domain.UserSyncUsecase {
	return &userSyncUsecase{
		verifier:    verifier,
		userRepo:    userRepo,
		validate:    validate,
		securityLog: securityLog,
	}
}

// HandleEvent verifies a provider delivery and mirrors user.created and
// user.updated into the local store. Nothing is written unless the signature
// checks out and the payload resolves a primary email.
func (u *userSyncUsecase) HandleEvent(ctx context.Context, payload []byte, headers http.Header) (outcome domain.WebhookOutcome, err error) {
	eventType := "unknown"
	defer func() {
		label := string(outcome)
		if err != nil {
			label = "rejected"
		}
		metrics.WebhookEvents.WithLabelValues(eventType, label).Inc()
	}()

	if err := u.verifier.Verify(payload, headers); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrInvalidSignature, err)
	}

	var event domain.WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrMalformedEvent, err)
	}
	if event.Type != "" {
		eventType = event.Type
	}

	// Verified deliveries of any other type are acknowledged, whatever their shape.
	if !event.IsUserEvent() {
		logger.Log.Debug("Ignoring webhook event", "type", eventType)
		return domain.WebhookIgnored, nil
	}

	if len(event.Data) == 0 || string(event.Data) == "null" {
		return "", fmt.Errorf("%w: %s without data", domain.ErrMalformedEvent, event.Type)
	}
	var data domain.UserEventData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrMalformedEvent, err)
	}
	if err := u.validate.Struct(data); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrMalformedEvent, err)
	}

	profile, err := data.Profile()
	if err != nil {
		return "", err
	}

	user, created, err := u.userRepo.UpsertByAuthID(ctx, profile)
	if err != nil {
		logger.Log.Error("Failed to upsert user from webhook", "type", event.Type, "error", err)
		return "", fmt.Errorf("upsert user: %w", err)
	}

	if created {
		u.securityLog.LogUserProvisioned(ctx, user.AuthID, "webhook")
		metrics.UserProvisioned.WithLabelValues("webhook").Inc()
	} else {
		logger.Log.Debug("Refreshed user from webhook", "type", event.Type, "user_id", user.ID)
	}
	return domain.WebhookSynced, nil
}
