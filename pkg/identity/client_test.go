package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"errors":[{"code":"form_password_pwned","message":"weak password","long_message":"Password has been found in an online data breach."}]}`))
	}))
	defer server.Close()

	c := NewClient(Config{FrontendAPIURL: server.URL + "/"})
	_, err := c.CreateSignUp(context.Background(), "ada@example.com", "password1")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Equal(t, "Password has been found in an online data breach.", apiErr.UserMessage())
	assert.Contains(t, apiErr.Error(), "status 422")
	assert.Contains(t, apiErr.Error(), "form_password_pwned")
}

func TestSignUpFlow(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/client/sign_ups", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "1", r.URL.Query().Get("_is_native"))
		assert.Equal(t, "ada@example.com", r.PostForm.Get("email_address"))
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Header().Set("Authorization", "client_jwt_1")
		_, _ = w.Write([]byte(`{"response":{"id":"sua_1","status":"missing_requirements","email_address":"ada@example.com"}}`))
	})
	mux.HandleFunc("/v1/client/sign_ups/sua_1/prepare_verification", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_jwt_1", r.Header.Get("Authorization"))
		assert.Equal(t, StrategyEmailCode, r.PostForm.Get("strategy"))
		_, _ = w.Write([]byte(`{"response":{"id":"sua_1","status":"missing_requirements","verifications":{"email_address":{"status":"unverified","strategy":"email_code"}}}}`))
	})
	mux.HandleFunc("/v1/client/sign_ups/sua_1/attempt_verification", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "424242", r.PostForm.Get("code"))
		w.Header().Set("Authorization", "client_jwt_2")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"response": map[string]any{"id": "sua_1", "status": "complete", "created_session_id": "sess_9"},
			"client": map[string]any{"sessions": []any{
				map[string]any{"id": "sess_other", "last_active_token": map[string]any{"jwt": "nope"}},
				map[string]any{"id": "sess_9", "last_active_token": map[string]any{"jwt": "session_jwt"}},
			}},
		})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := NewClient(Config{FrontendAPIURL: server.URL})
	ctx := context.Background()

	created, err := c.CreateSignUp(ctx, "ada@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, "sua_1", created.Object.ID)
	assert.Equal(t, "client_jwt_1", created.ClientToken)

	prepared, err := c.PrepareEmailVerification(ctx, created.ClientToken, "sua_1")
	require.NoError(t, err)
	assert.Equal(t, "client_jwt_1", prepared.ClientToken)
	require.NotNil(t, prepared.Object.Verifications.EmailAddress)
	assert.Equal(t, StrategyEmailCode, prepared.Object.Verifications.EmailAddress.Strategy)

	done, err := c.AttemptEmailVerification(ctx, prepared.ClientToken, "sua_1", "424242")
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, done.Object.Status)
	assert.Equal(t, "client_jwt_2", done.ClientToken)
	assert.Equal(t, "session_jwt", done.SessionToken)
}

func TestStartOAuth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, StrategyOAuthGoogle, r.PostForm.Get("strategy"))
		assert.Equal(t, "https://app.example.com/sso-callback", r.PostForm.Get("redirect_url"))
		assert.Equal(t, "https://app.example.com/", r.PostForm.Get("action_complete_redirect_url"))
		_, _ = w.Write([]byte(`{"response":{"id":"sia_1","status":"needs_first_factor","first_factor_verification":{"status":"unverified","external_verification_redirect_url":"https://accounts.google.com/o/oauth2/auth?x=1"}}}`))
	}))
	defer server.Close()

	c := NewClient(Config{FrontendAPIURL: server.URL})
	redirect, err := c.StartOAuth(context.Background(), StrategyOAuthGoogle, "https://app.example.com/sso-callback", "https://app.example.com/")
	require.NoError(t, err)
	assert.Equal(t, "https://accounts.google.com/o/oauth2/auth?x=1", redirect)
}

func TestFrontendCallsRequireURL(t *testing.T) {
	c := NewClient(Config{})
	_, err := c.CreateSignUp(context.Background(), "a@b.co", "password1")
	assert.Error(t, err)
}
