package clerk

import (
	"context"
	"errors"
	"net/http"

	"identity-sync-backend/internal/domain"
	"identity-sync-backend/pkg/apperror"
	"identity-sync-backend/pkg/identity"

	clerksdk "github.com/clerk/clerk-sdk-go/v2"
	"github.com/clerk/clerk-sdk-go/v2/session"
	"github.com/clerk/clerk-sdk-go/v2/user"
)

// Provider adapts the provider to domain.IdentityProvider: the SDK serves
// Backend API calls, the identity client drives the Frontend API flows.
type Provider struct {
	client   *identity.Client
	users    *user.Client
	sessions *session.Client
}

func NewProvider(client *identity.Client, backend *clerksdk.ClientConfig) *Provider {
	return &Provider{
		client:   client,
		users:    user.NewClient(backend),
		sessions: session.NewClient(backend),
	}
}

var _ domain.IdentityProvider = (*Provider)(nil)

func (p *Provider) GetUserProfile(ctx context.Context, authID string) (*domain.UserProfile, error) {
	u, err := p.users.Get(ctx, authID)
	if err != nil {
		return nil, mapError(err)
	}
	return &domain.UserProfile{
		AuthID:    u.ID,
		Email:     primaryEmail(u),
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}, nil
}

// primaryEmail resolves PrimaryEmailAddressID, or "" when no address matches.
func primaryEmail(u *clerksdk.User) string {
	if u.PrimaryEmailAddressID == nil {
		return ""
	}
	for _, addr := range u.EmailAddresses {
		if addr != nil && addr.ID == *u.PrimaryEmailAddressID {
			return addr.EmailAddress
		}
	}
	return ""
}

func (p *Provider) CreateSignUp(ctx context.Context, email, password string) (*domain.SignUpAttempt, error) {
	res, err := p.client.CreateSignUp(ctx, email, password)
	if err != nil {
		return nil, mapError(err)
	}
	return toAttempt(res), nil
}

func (p *Provider) PrepareEmailVerification(ctx context.Context, attempt domain.SignUpAttempt) (*domain.SignUpAttempt, error) {
	res, err := p.client.PrepareEmailVerification(ctx, attempt.ClientToken, attempt.ID)
	if err != nil {
		return nil, mapError(err)
	}
	out := toAttempt(res)
	if out.EmailAddress == "" {
		out.EmailAddress = attempt.EmailAddress
	}
	return out, nil
}

func (p *Provider) AttemptEmailVerification(ctx context.Context, attempt domain.SignUpAttempt, code string) (*domain.SignUpAttempt, error) {
	res, err := p.client.AttemptEmailVerification(ctx, attempt.ClientToken, attempt.ID, code)
	if err != nil {
		return nil, mapError(err)
	}
	out := toAttempt(res)
	if out.EmailAddress == "" {
		out.EmailAddress = attempt.EmailAddress
	}
	return out, nil
}

func (p *Provider) SignIn(ctx context.Context, email, password string) (*domain.AuthSession, error) {
	res, err := p.client.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, mapError(err)
	}
	if res.Object.Status != identity.StatusComplete || res.SessionToken == "" {
		return nil, apperror.Unauthorized("Additional verification is required to sign in")
	}
	return &domain.AuthSession{
		SessionID: res.Object.CreatedSessionID,
		Token:     res.SessionToken,
	}, nil
}

func (p *Provider) RevokeSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return apperror.BadRequest("session id is required")
	}
	if _, err := p.sessions.Revoke(ctx, &session.RevokeParams{ID: sessionID}); err != nil {
		return mapError(err)
	}
	return nil
}

func (p *Provider) OAuthRedirectURL(ctx context.Context, strategy, redirectURL, redirectURLComplete string) (string, error) {
	target, err := p.client.StartOAuth(ctx, strategy, redirectURL, redirectURLComplete)
	if err != nil {
		return "", mapError(err)
	}
	return target, nil
}

func toAttempt(res *identity.Result[identity.SignUp]) *domain.SignUpAttempt {
	return &domain.SignUpAttempt{
		ID:               res.Object.ID,
		ClientToken:      res.ClientToken,
		Status:           res.Object.Status,
		EmailAddress:     res.Object.EmailAddress,
		CreatedSessionID: res.Object.CreatedSessionID,
		SessionToken:     res.SessionToken,
	}
}

// mapError turns provider 4xx responses into user-facing errors and
// everything else into a gateway failure.
func mapError(err error) error {
	status, message, ok := providerStatus(err)
	if ok {
		switch {
		case status == http.StatusNotFound:
			return apperror.New(http.StatusNotFound, message, err)
		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			return apperror.New(http.StatusUnauthorized, message, err)
		case status == http.StatusTooManyRequests:
			return apperror.New(http.StatusTooManyRequests, message, err)
		case status < 500:
			return apperror.New(http.StatusBadRequest, message, err)
		}
	}
	return apperror.BadGateway("Identity provider unavailable", err)
}

// providerStatus reads the HTTP status and first message from either the
// SDK's or the Frontend API client's error envelope.
func providerStatus(err error) (int, string, bool) {
	var sdkErr *clerksdk.APIErrorResponse
	if errors.As(err, &sdkErr) && sdkErr.HTTPStatusCode != 0 {
		message := "Something went wrong. Please try again."
		for _, e := range sdkErr.Errors {
			if e.LongMessage != "" {
				message = e.LongMessage
				break
			}
			if e.Message != "" {
				message = e.Message
				break
			}
		}
		return sdkErr.HTTPStatusCode, message, true
	}
	var apiErr *identity.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status, apiErr.UserMessage(), true
	}
	return 0, "", false
}
