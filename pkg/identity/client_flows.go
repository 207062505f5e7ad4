package identity

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

const (
	StrategyEmailCode   = "email_code"
	StrategyPassword    = "password"
	StrategyOAuthGoogle = "oauth_google"

	StatusComplete = "complete"
)

type Verification struct {
	Status                          string `json:"status"`
	Strategy                        string `json:"strategy"`
	ExternalVerificationRedirectURL string `json:"external_verification_redirect_url"`
}

type SignUp struct {
	ID               string `json:"id"`
	Status           string `json:"status"`
	EmailAddress     string `json:"email_address"`
	CreatedSessionID string `json:"created_session_id"`
	Verifications    struct {
		EmailAddress *Verification `json:"email_address"`
	} `json:"verifications"`
}

type SignIn struct {
	ID                      string        `json:"id"`
	Status                  string        `json:"status"`
	CreatedSessionID        string        `json:"created_session_id"`
	FirstFactorVerification *Verification `json:"first_factor_verification"`
}

type session struct {
	ID              string `json:"id"`
	LastActiveToken *struct {
		JWT string `json:"jwt"`
	} `json:"last_active_token"`
}

type clientState struct {
	Sessions []session `json:"sessions"`
}

// Result pairs a Frontend API object with the client token and, once a
// session exists, its token.
type Result[T any] struct {
	Object       T
	ClientToken  string
	SessionToken string
}

type envelope[T any] struct {
	Response T           `json:"response"`
	Client   clientState `json:"client"`
}

func (c *Client) frontendCall(ctx context.Context, path, clientToken string, form url.Values, out any) (string, error) {
	if c.frontendURL == "" {
		return "", fmt.Errorf("frontend api url is not configured")
	}
	resp, err := c.do(ctx, request{
		method:      http.MethodPost,
		url:         c.nativeURL(path),
		form:        form,
		clientToken: clientToken,
	}, out)
	if err != nil {
		return "", err
	}
	if rotated := resp.header.Get("Authorization"); rotated != "" {
		clientToken = rotated
	}
	return clientToken, nil
}

func sessionToken(state clientState, sessionID string) string {
	for _, s := range state.Sessions {
		if s.ID == sessionID && s.LastActiveToken != nil {
			return s.LastActiveToken.JWT
		}
	}
	return ""
}

func (c *Client) CreateSignUp(ctx context.Context, email, password string) (*Result[SignUp], error) {
	var env envelope[SignUp]
	token, err := c.frontendCall(ctx, "/v1/client/sign_ups", "", url.Values{
		"email_address": {email},
		"password":      {password},
	}, &env)
	if err != nil {
		return nil, err
	}
	return &Result[SignUp]{Object: env.Response, ClientToken: token}, nil
}

func (c *Client) PrepareEmailVerification(ctx context.Context, clientToken, signUpID string) (*Result[SignUp], error) {
	var env envelope[SignUp]
	token, err := c.frontendCall(ctx, "/v1/client/sign_ups/"+url.PathEscape(signUpID)+"/prepare_verification", clientToken, url.Values{
		"strategy": {StrategyEmailCode},
	}, &env)
	if err != nil {
		return nil, err
	}
	return &Result[SignUp]{Object: env.Response, ClientToken: token}, nil
}

func (c *Client) AttemptEmailVerification(ctx context.Context, clientToken, signUpID, code string) (*Result[SignUp], error) {
	var env envelope[SignUp]
	token, err := c.frontendCall(ctx, "/v1/client/sign_ups/"+url.PathEscape(signUpID)+"/attempt_verification", clientToken, url.Values{
		"strategy": {StrategyEmailCode},
		"code":     {code},
	}, &env)
	if err != nil {
		return nil, err
	}
	return &Result[SignUp]{
		Object:       env.Response,
		ClientToken:  token,
		SessionToken: sessionToken(env.Client, env.Response.CreatedSessionID),
	}, nil
}

func (c *Client) SignInWithPassword(ctx context.Context, identifier, password string) (*Result[SignIn], error) {
	var env envelope[SignIn]
	token, err := c.frontendCall(ctx, "/v1/client/sign_ins", "", url.Values{
		"identifier": {identifier},
		"password":   {password},
		"strategy":   {StrategyPassword},
	}, &env)
	if err != nil {
		return nil, err
	}
	return &Result[SignIn]{
		Object:       env.Response,
		ClientToken:  token,
		SessionToken: sessionToken(env.Client, env.Response.CreatedSessionID),
	}, nil
}

// StartOAuth creates an OAuth sign-in and returns the provider consent URL.
func (c *Client) StartOAuth(ctx context.Context, strategy, redirectURL, redirectURLComplete string) (string, error) {
	var env envelope[SignIn]
	_, err := c.frontendCall(ctx, "/v1/client/sign_ins", "", url.Values{
		"strategy":                     {strategy},
		"redirect_url":                 {redirectURL},
		"action_complete_redirect_url": {redirectURLComplete},
	}, &env)
	if err != nil {
		return "", err
	}
	v := env.Response.FirstFactorVerification
	if v == nil || v.ExternalVerificationRedirectURL == "" {
		return "", fmt.Errorf("identity provider returned no redirect for %s", strategy)
	}
	return v.ExternalVerificationRedirectURL, nil
}
