package domain

import (
	"context"
	"net/http"
	"time"
)

// SessionClaims is the verified payload of an identity-provider session token.
type SessionClaims struct {
	Subject      string    `json:"sub"`
	SessionID    string    `json:"sid"`
	PrimaryEmail string    `json:"primaryEmail"`
	IssuedAt     time.Time `json:"iat"`
	ExpiresAt    time.Time `json:"exp"`
}

// SessionContext is what RPC procedures see for a request. User is nil when the
// caller is anonymous or when resolving the local record failed.
type SessionContext struct {
	User    *User
	Claims  *SessionClaims
	Headers http.Header
}

func (sc *SessionContext) Authenticated() bool {
	return sc != nil && sc.User != nil
}

type SessionUsecase interface {
	BuildContext(ctx context.Context, claims *SessionClaims, headers http.Header) *SessionContext
}

// ProfileProvider fetches the provider-side account for an auth id.
type ProfileProvider interface {
	GetUserProfile(ctx context.Context, authID string) (*UserProfile, error)
}
