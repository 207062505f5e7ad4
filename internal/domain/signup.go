package domain

import (
	"context"
	"fmt"
	"time"
)

type SignupState string

const (
	SignupCollectingCredentials SignupState = "collecting_credentials"
	SignupAwaitingVerification  SignupState = "awaiting_verification"
	SignupComplete              SignupState = "complete"
)

// SignupFlow is one browser's progress through email/password registration.
//
//	collecting_credentials --BeginVerification--> awaiting_verification
//	awaiting_verification  --Complete-----------> complete
//	any                    --Reset--------------> collecting_credentials
type SignupFlow struct {
	ID           string      `json:"id"`
	State        SignupState `json:"state"`
	SignUpID     string      `json:"signUpId,omitempty"`
	ClientToken  string      `json:"clientToken,omitempty"`
	Email        string      `json:"email,omitempty"`
	SessionID    string      `json:"sessionId,omitempty"`
	SessionToken string      `json:"sessionToken,omitempty"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

func NewSignupFlow(id string) *SignupFlow {
	return &SignupFlow{
		ID:        id,
		State:     SignupCollectingCredentials,
		UpdatedAt: time.Now().UTC(),
	}
}

func (f *SignupFlow) BeginVerification(attempt *SignUpAttempt) error {
	if f.State != SignupCollectingCredentials {
		return fmt.Errorf("%w: cannot begin verification from %s", ErrInvalidTransition, f.State)
	}
	f.State = SignupAwaitingVerification
	f.SignUpID = attempt.ID
	f.ClientToken = attempt.ClientToken
	f.Email = attempt.EmailAddress
	f.UpdatedAt = time.Now().UTC()
	return nil
}

// Pending returns the provider sign-up this flow is waiting on.
func (f *SignupFlow) Pending() SignUpAttempt {
	return SignUpAttempt{
		ID:           f.SignUpID,
		ClientToken:  f.ClientToken,
		EmailAddress: f.Email,
	}
}

func (f *SignupFlow) Complete(sessionID, sessionToken string) error {
	if f.State != SignupAwaitingVerification {
		return fmt.Errorf("%w: cannot complete from %s", ErrInvalidTransition, f.State)
	}
	f.State = SignupComplete
	f.SessionID = sessionID
	f.SessionToken = sessionToken
	f.UpdatedAt = time.Now().UTC()
	return nil
}

type SignupCredentials struct {
	Email           string `form:"email" json:"email" validate:"required,email"`
	Password        string `form:"password" json:"password" validate:"required,min=8"`
	ConfirmPassword string `form:"confirmPassword" json:"confirmPassword" validate:"required,min=8,eqfield=Password"`
}

type VerificationCode struct {
	Code string `form:"code" json:"code" validate:"required,otp_code"`
}

type SigninCredentials struct {
	Email    string `form:"email" json:"email" validate:"required,email"`
	Password string `form:"password" json:"password" validate:"required"`
}

// SignUpAttempt mirrors the provider's sign-up object. ClientToken identifies
// the provider-side client that owns it and must accompany follow-up calls.
type SignUpAttempt struct {
	ID               string
	ClientToken      string
	Status           string
	EmailAddress     string
	CreatedSessionID string
	SessionToken     string
}

const (
	SignUpStatusComplete = "complete"
	OAuthStrategyGoogle  = "oauth_google"
)

type AuthSession struct {
	SessionID string
	Token     string
}

// IdentityProvider is the subset of the identity provider's API this service drives.
type IdentityProvider interface {
	ProfileProvider
	CreateSignUp(ctx context.Context, email, password string) (*SignUpAttempt, error)
	PrepareEmailVerification(ctx context.Context, attempt SignUpAttempt) (*SignUpAttempt, error)
	AttemptEmailVerification(ctx context.Context, attempt SignUpAttempt, code string) (*SignUpAttempt, error)
	SignIn(ctx context.Context, email, password string) (*AuthSession, error)
	RevokeSession(ctx context.Context, sessionID string) error
	OAuthRedirectURL(ctx context.Context, strategy, redirectURL, redirectURLComplete string) (string, error)
}

type SignupStore interface {
	// Load returns nil, nil when the attempt is unknown or expired.
	Load(ctx context.Context, id string) (*SignupFlow, error)
	Save(ctx context.Context, flow *SignupFlow, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

type SignupUsecase interface {
	Current(ctx context.Context, attemptID string) (*SignupFlow, error)
	SubmitCredentials(ctx context.Context, attemptID string, in SignupCredentials) (*SignupFlow, error)
	SubmitVerification(ctx context.Context, attemptID string, in VerificationCode) (*SignupFlow, error)
	Restart(ctx context.Context, attemptID string) error
	StartOAuth(ctx context.Context, strategy string) (string, error)
	SignIn(ctx context.Context, in SigninCredentials) (*AuthSession, error)
	SignOut(ctx context.Context, claims *SessionClaims) error
}
