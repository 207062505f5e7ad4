package domain

import (
	"context"
	"encoding/json"
	"net/http"
)

const (
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
)

type WebhookOutcome string

const (
	WebhookSynced  WebhookOutcome = "synced"
	WebhookIgnored WebhookOutcome = "ignored"
)

type WebhookEvent struct {
	Type   string          `json:"type"`
	Object string          `json:"object"`
	Data   json.RawMessage `json:"data"`
}

// IsUserEvent reports whether the event carries a user the store mirrors.
func (e WebhookEvent) IsUserEvent() bool {
	return e.Type == EventUserCreated || e.Type == EventUserUpdated
}

type EmailAddress struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
}

type UserEventData struct {
	ID                    string         `json:"id" validate:"required"`
	EmailAddresses        []EmailAddress `json:"email_addresses"`
	PrimaryEmailAddressID *string        `json:"primary_email_address_id"`
	FirstName             *string        `json:"first_name"`
	LastName              *string        `json:"last_name"`
	CreatedAt             int64          `json:"created_at"`
	UpdatedAt             int64          `json:"updated_at"`
}

// PrimaryEmail resolves primary_email_address_id against the address list.
func (d UserEventData) PrimaryEmail() (string, error) {
	if d.PrimaryEmailAddressID == nil {
		return "", ErrPrimaryEmailMissing
	}
	for _, addr := range d.EmailAddresses {
		if addr.ID == *d.PrimaryEmailAddressID && addr.EmailAddress != "" {
			return addr.EmailAddress, nil
		}
	}
	return "", ErrPrimaryEmailMissing
}

func (d UserEventData) Profile() (UserProfile, error) {
	email, err := d.PrimaryEmail()
	if err != nil {
		return UserProfile{}, err
	}
	return UserProfile{
		AuthID:    d.ID,
		Email:     email,
		FirstName: d.FirstName,
		LastName:  d.LastName,
	}, nil
}

type UserSyncUsecase interface {
	HandleEvent(ctx context.Context, payload []byte, headers http.Header) (WebhookOutcome, error)
}

// WebhookVerifier checks a signed delivery. Implementations must fail closed.
type WebhookVerifier interface {
	Verify(payload []byte, headers http.Header) error
}
