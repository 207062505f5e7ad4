package v1_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	v1 "identity-sync-backend/internal/delivery/http/v1"
	"identity-sync-backend/internal/domain"
	"identity-sync-backend/internal/repository/memory"
	"identity-sync-backend/internal/repository/sqlite"
	"identity-sync-backend/internal/usecase"
	"identity-sync-backend/pkg/apperror"
	"identity-sync-backend/pkg/database"
	"identity-sync-backend/pkg/rpc"
	"identity-sync-backend/pkg/security"
	"identity-sync-backend/pkg/validation"
	"identity-sync-backend/pkg/webhook"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const testSecret = "whsec_MfKQ9r8GKYqrTwjUPD8ILPZIo2LaLaSw"

func init() {
	gin.SetMode(gin.TestMode)
}

func newRepo(t *testing.T) *sqlite.UserRepo {
	t.Helper()
	ctx := context.Background()
	db, err := database.NewSQLiteConnection(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := sqlite.NewUserRepository(db)
	require.NoError(t, repo.Migrate(ctx))
	return repo
}

func newObserved() (*security.SecurityLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return security.NewWithZap(zap.New(core), "identity-sync", "test"), logs
}

func userEvent(eventType, authID, email string) string {
	return `{"type":"` + eventType + `","object":"event","data":{` +
		`"id":"` + authID + `","first_name":"Ada","last_name":null,` +
		`"primary_email_address_id":"idn_1",` +
		`"email_addresses":[{"id":"idn_1","email_address":"` + email + `"}]}}`
}

func TestWebhookHandler(t *testing.T) {
	repo := newRepo(t)
	verifier, err := webhook.NewVerifier(testSecret)
	require.NoError(t, err)
	securityLog, logs := newObserved()

	r := gin.New()
	v1.NewWebhookHandler(r, usecase.NewUserSyncUsecase(verifier, repo, validation.New(), securityLog), securityLog)

	send := func(method, payload string, headers http.Header) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, v1.WebhookPath, strings.NewReader(payload))
		for k, vs := range headers {
			req.Header[k] = vs
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}
	signed := func(payload string) http.Header {
		h, err := verifier.Sign("msg_"+time.Now().Format("150405.000000"), time.Now(), []byte(payload))
		require.NoError(t, err)
		return h
	}
	ctx := context.Background()

	t.Run("Should create the user on a signed user.created", func(t *testing.T) {
		payload := userEvent(domain.EventUserCreated, "user_1", "ada@example.com")
		w := send(http.MethodPost, payload, signed(payload))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{}`, w.Body.String())

		user, err := repo.GetByAuthID(ctx, "user_1")
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, "ada@example.com", user.Email)
		assert.Equal(t, domain.RoleUser, user.Role)
	})

	t.Run("Should refresh email on user.updated without touching role", func(t *testing.T) {
		require.NoError(t, repo.SetRole(ctx, "user_1", domain.RoleAdmin))

		payload := userEvent(domain.EventUserUpdated, "user_1", "ada@lovelace.dev")
		w := send(http.MethodPut, payload, signed(payload))
		assert.Equal(t, http.StatusOK, w.Code)

		user, err := repo.GetByAuthID(ctx, "user_1")
		require.NoError(t, err)
		assert.Equal(t, "ada@lovelace.dev", user.Email)
		assert.Equal(t, domain.RoleAdmin, user.Role)
	})

	t.Run("Should acknowledge other event types over GET", func(t *testing.T) {
		payload := `{"type":"session.created","object":"event","data":{"id":"sess_1"}}`
		w := send(http.MethodGet, payload, signed(payload))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Should acknowledge signed non-user events that carry no data", func(t *testing.T) {
		payload := `{"type":"session.ended","object":"event"}`
		w := send(http.MethodPost, payload, signed(payload))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{}`, w.Body.String())
	})

	t.Run("Should reject a bad signature without writing", func(t *testing.T) {
		payload := userEvent(domain.EventUserCreated, "user_2", "eve@example.com")
		headers := signed(`{"type":"something else"}`)
		w := send(http.MethodPost, payload, headers)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{}`, w.Body.String())
		user, err := repo.GetByAuthID(ctx, "user_2")
		require.NoError(t, err)
		assert.Nil(t, user)
		assert.Equal(t, 1, logs.FilterMessage(string(security.EventWebhookSignatureInvalid)).Len())
	})

	t.Run("Should reject unsigned deliveries", func(t *testing.T) {
		w := send(http.MethodPost, userEvent(domain.EventUserCreated, "user_2", "eve@example.com"), nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Should reject an event without a resolvable primary email", func(t *testing.T) {
		payload := strings.Replace(userEvent(domain.EventUserCreated, "user_3", "bob@example.com"), `"primary_email_address_id":"idn_1"`, `"primary_email_address_id":"idn_9"`, 1)
		w := send(http.MethodPost, payload, signed(payload))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		user, err := repo.GetByAuthID(ctx, "user_3")
		require.NoError(t, err)
		assert.Nil(t, user)
		assert.Equal(t, 1, logs.FilterMessage(string(security.EventWebhookRejected)).Len())
	})
}

func TestWebhookHandlerWithoutSecret(t *testing.T) {
	repo := newRepo(t)
	verifier, err := webhook.NewVerifier("")
	require.NoError(t, err)
	signer, err := webhook.NewVerifier(testSecret)
	require.NoError(t, err)

	r := gin.New()
	v1.NewWebhookHandler(r, usecase.NewUserSyncUsecase(verifier, repo, validation.New(), security.Nop()), security.Nop())

	payload := userEvent(domain.EventUserCreated, "user_1", "ada@example.com")
	headers, err := signer.Sign("msg_1", time.Now(), []byte(payload))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, v1.WebhookPath, strings.NewReader(payload))
	for k, vs := range headers {
		req.Header[k] = vs
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	user, err := repo.GetByAuthID(context.Background(), "user_1")
	require.NoError(t, err)
	assert.Nil(t, user)
}

func withSession(sc *domain.SessionContext) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(string(domain.KeySessionCtx), sc)
		c.Next()
	}
}

func TestRPCHandler(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	admin, _, err := repo.UpsertByAuthID(ctx, domain.UserProfile{AuthID: "user_admin", Email: "admin@example.com"})
	require.NoError(t, err)
	require.NoError(t, repo.SetRole(ctx, "user_admin", domain.RoleAdmin))
	admin.Role = domain.RoleAdmin
	member, _, err := repo.UpsertByAuthID(ctx, domain.UserProfile{AuthID: "user_member", Email: "member@example.com"})
	require.NoError(t, err)

	procedures := v1.NewRPCProcedures(usecase.NewUserUsecase(repo), domain.NewRolePolicy(), validation.New())

	serve := func(sc *domain.SessionContext) (*rpc.Client, *observer.ObservedLogs) {
		securityLog, logs := newObserved()
		r := gin.New()
		r.Use(withSession(sc))
		v1.NewRPCHandler(r, procedures, securityLog)
		srv := httptest.NewServer(r)
		t.Cleanup(srv.Close)
		return rpc.NewClient(rpc.ClientConfig{URL: srv.URL + v1.RPCPrefix, Source: "server"}), logs
	}

	t.Run("Should answer health anonymously", func(t *testing.T) {
		client, _ := serve(&domain.SessionContext{})
		var out string
		require.NoError(t, client.Query(ctx, "health", nil, &out))
		assert.Equal(t, "ok", out)
	})

	t.Run("Should reject user.me without a user", func(t *testing.T) {
		client, logs := serve(&domain.SessionContext{})
		var out domain.User
		err := client.Query(ctx, "user.me", nil, &out)

		var rpcErr *rpc.Error
		require.ErrorAs(t, err, &rpcErr)
		assert.Equal(t, rpc.CodeUnauthorized, rpcErr.Code)
		assert.Equal(t, 1, logs.FilterMessage(string(security.EventUnauthorizedAccess)).Len())
	})

	t.Run("Should return the session user with dates intact", func(t *testing.T) {
		client, _ := serve(&domain.SessionContext{User: member})
		var out domain.User
		require.NoError(t, client.Query(ctx, "user.me", nil, &out))
		assert.Equal(t, member.AuthID, out.AuthID)
		assert.True(t, member.CreatedAt.Equal(out.CreatedAt))
	})

	t.Run("Should deny user.me to a role without read:self", func(t *testing.T) {
		stranger := *member
		stranger.Role = domain.Role("GUEST")
		client, logs := serve(&domain.SessionContext{User: &stranger})
		var out domain.User
		err := client.Query(ctx, "user.me", nil, &out)

		var rpcErr *rpc.Error
		require.ErrorAs(t, err, &rpcErr)
		assert.Equal(t, rpc.CodeUnauthorized, rpcErr.Code)
		assert.Equal(t, "You are not permitted to invoke this request", rpcErr.Message)
		assert.Equal(t, 1, logs.FilterMessage(string(security.EventForbiddenAccess)).Len())
	})

	t.Run("Should deny admin.users.list to a plain user", func(t *testing.T) {
		client, logs := serve(&domain.SessionContext{User: member})
		var out []domain.User
		err := client.Query(ctx, "admin.users.list", nil, &out)

		var rpcErr *rpc.Error
		require.ErrorAs(t, err, &rpcErr)
		assert.Equal(t, rpc.CodeUnauthorized, rpcErr.Code)
		assert.Equal(t, "You must be an admin to invoke this request", rpcErr.Message)
		assert.Equal(t, 1, logs.FilterMessage(string(security.EventForbiddenAccess)).Len())
	})

	t.Run("Should list users for an admin", func(t *testing.T) {
		client, _ := serve(&domain.SessionContext{User: admin})
		var out []domain.User
		require.NoError(t, client.Query(ctx, "admin.users.list", map[string]int{"limit": 10}, &out))
		assert.Len(t, out, 2)
	})

	t.Run("Should validate admin.users.list input", func(t *testing.T) {
		client, _ := serve(&domain.SessionContext{User: admin})
		var out []domain.User
		err := client.Query(ctx, "admin.users.list", map[string]int{"limit": 500}, &out)

		var rpcErr *rpc.Error
		require.ErrorAs(t, err, &rpcErr)
		assert.Equal(t, rpc.CodeBadRequest, rpcErr.Code)
	})

	t.Run("Should batch mixed results", func(t *testing.T) {
		client, _ := serve(&domain.SessionContext{User: member})
		var status string
		var me domain.User
		var users []domain.User
		calls := []*rpc.Call{
			{Path: "health", Out: &status},
			{Path: "user.me", Out: &me},
			{Path: "admin.users.list", Out: &users},
		}
		require.NoError(t, client.Batch(ctx, calls...))
		assert.NoError(t, calls[0].Err)
		assert.NoError(t, calls[1].Err)
		assert.Error(t, calls[2].Err)
		assert.Equal(t, "member@example.com", me.Email)
	})
}

// fakeProvider scripts the identity provider for the sign-up pages.
type fakeProvider struct {
	signUpErr error
	attempt   *domain.SignUpAttempt
	session   *domain.AuthSession
	signInErr error
	revoked   []string
}

func (f *fakeProvider) GetUserProfile(context.Context, string) (*domain.UserProfile, error) {
	return nil, apperror.NotFound("not found")
}

func (f *fakeProvider) CreateSignUp(_ context.Context, email, _ string) (*domain.SignUpAttempt, error) {
	if f.signUpErr != nil {
		return nil, f.signUpErr
	}
	return &domain.SignUpAttempt{ID: "sua_1", ClientToken: "client_1", EmailAddress: email}, nil
}

func (f *fakeProvider) PrepareEmailVerification(_ context.Context, attempt domain.SignUpAttempt) (*domain.SignUpAttempt, error) {
	return &attempt, nil
}

func (f *fakeProvider) AttemptEmailVerification(_ context.Context, attempt domain.SignUpAttempt, _ string) (*domain.SignUpAttempt, error) {
	if f.attempt != nil {
		return f.attempt, nil
	}
	attempt.Status = "missing_requirements"
	return &attempt, nil
}

func (f *fakeProvider) SignIn(context.Context, string, string) (*domain.AuthSession, error) {
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	return f.session, nil
}

func (f *fakeProvider) RevokeSession(_ context.Context, sessionID string) error {
	f.revoked = append(f.revoked, sessionID)
	return nil
}

func (f *fakeProvider) OAuthRedirectURL(_ context.Context, strategy, redirectURL, _ string) (string, error) {
	return "https://accounts.example.com/oauth?strategy=" + strategy + "&redirect_url=" + url.QueryEscape(redirectURL), nil
}

type pageEnv struct {
	engine   *gin.Engine
	provider *fakeProvider
	logs     *observer.ObservedLogs
}

func newPageEnv(t *testing.T, sc *domain.SessionContext) *pageEnv {
	t.Helper()
	provider := &fakeProvider{}
	securityLog, logs := newObserved()
	signupUC := usecase.NewSignupUsecase(provider, memory.NewSignupStore(), validation.New(), usecase.SignupConfig{
		OAuthRedirectURL: "http://localhost:8080/sso-callback",
		OAuthCompleteURL: "http://localhost:8080/",
	})
	procedures := v1.NewRPCProcedures(usecase.NewUserUsecase(newRepo(t)), domain.NewRolePolicy(), validation.New())

	r := gin.New()
	if sc != nil {
		r.Use(withSession(sc), func(c *gin.Context) {
			c.Set(string(domain.KeySessionClaims), sc.Claims)
			c.Next()
		})
	}
	limit := func(c *gin.Context) { c.Next() }
	v1.NewPageHandler(r, signupUC, procedures, securityLog, v1.CookieConfig{SessionName: "__session", AttemptTTL: 15 * time.Minute}, limit)
	return &pageEnv{engine: r, provider: provider, logs: logs}
}

func (e *pageEnv) do(method, target string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func cookieNamed(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestSignupPages(t *testing.T) {
	t.Run("Should render the credentials form first", func(t *testing.T) {
		env := newPageEnv(t, nil)
		w := env.do(http.MethodGet, "/signup", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
		assert.Contains(t, w.Body.String(), `name="confirmPassword"`)
	})

	t.Run("Should show inline errors for invalid credentials", func(t *testing.T) {
		env := newPageEnv(t, nil)
		w := env.do(http.MethodPost, "/signup", url.Values{
			"step":            {"credentials"},
			"email":           {"not-an-email"},
			"password":        {"password1"},
			"confirmPassword": {"password2"},
		})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "Please enter a valid email address")
		assert.Contains(t, w.Body.String(), "Passwords do not match")
		assert.Nil(t, cookieNamed(w, v1.SignupAttemptCookie))
		assert.Equal(t, 1, env.logs.FilterMessage(string(security.EventSignupFailed)).Len())
	})

	t.Run("Should walk credentials to verification to a session", func(t *testing.T) {
		env := newPageEnv(t, nil)
		w := env.do(http.MethodPost, "/signup", url.Values{
			"step":            {"credentials"},
			"email":           {"ada@example.com"},
			"password":        {"password1"},
			"confirmPassword": {"password1"},
		})
		require.Equal(t, http.StatusSeeOther, w.Code)
		attempt := cookieNamed(w, v1.SignupAttemptCookie)
		require.NotNil(t, attempt)

		w = env.do(http.MethodGet, "/signup", nil, attempt)
		assert.Contains(t, w.Body.String(), `name="code"`)
		assert.Contains(t, w.Body.String(), "ada@example.com")

		w = env.do(http.MethodPost, "/signup", url.Values{"step": {"verify"}, "code": {"123456"}}, attempt)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Verification is not complete")

		env.provider.attempt = &domain.SignUpAttempt{ID: "sua_1", Status: domain.SignUpStatusComplete, CreatedSessionID: "sess_1", SessionToken: "jwt"}
		w = env.do(http.MethodPost, "/signup", url.Values{"step": {"verify"}, "code": {"123456"}}, attempt)
		require.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/", w.Header().Get("Location"))
		session := cookieNamed(w, "__session")
		require.NotNil(t, session)
		assert.Equal(t, "jwt", session.Value)
		assert.True(t, session.HttpOnly)
	})

	t.Run("Should start over when the attempt expired", func(t *testing.T) {
		env := newPageEnv(t, nil)
		w := env.do(http.MethodPost, "/signup", url.Values{"step": {"verify"}, "code": {"123456"}}, &http.Cookie{Name: v1.SignupAttemptCookie, Value: "gone"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Your sign-up session expired")
		assert.Contains(t, w.Body.String(), `name="password"`)
	})

	t.Run("Should restart the flow", func(t *testing.T) {
		env := newPageEnv(t, nil)
		w := env.do(http.MethodPost, "/signup", url.Values{"step": {"restart"}}, &http.Cookie{Name: v1.SignupAttemptCookie, Value: "a1"})
		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/signup", w.Header().Get("Location"))
	})

	t.Run("Should redirect to the provider for Google", func(t *testing.T) {
		env := newPageEnv(t, nil)
		w := env.do(http.MethodGet, "/signup/google", nil)
		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Contains(t, w.Header().Get("Location"), "strategy=oauth_google")
		assert.Contains(t, w.Header().Get("Location"), url.QueryEscape("http://localhost:8080/sso-callback"))
	})
}

func TestSignInPage(t *testing.T) {
	t.Run("Should set the session cookie on success", func(t *testing.T) {
		env := newPageEnv(t, nil)
		env.provider.session = &domain.AuthSession{SessionID: "sess_1", Token: "jwt"}

		w := env.do(http.MethodPost, "/signin", url.Values{"email": {"ada@example.com"}, "password": {"secret"}})
		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "jwt", cookieNamed(w, "__session").Value)
	})

	t.Run("Should show the provider message on failure", func(t *testing.T) {
		env := newPageEnv(t, nil)
		env.provider.signInErr = apperror.BadRequest("Password is incorrect. Try again, or use another method.")

		w := env.do(http.MethodPost, "/signin", url.Values{"email": {"ada@example.com"}, "password": {"wrong"}})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Password is incorrect.")
		assert.Nil(t, cookieNamed(w, "__session"))
		assert.Equal(t, 1, env.logs.FilterMessage(string(security.EventSigninFailed)).Len())
	})
}

func TestDashboardPages(t *testing.T) {
	user := &domain.User{ID: "u1", AuthID: "user_1", Email: "ada@example.com", FirstName: domain.StringPtr("Ada"), Role: domain.RoleUser}
	claims := &domain.SessionClaims{Subject: "user_1", SessionID: "sess_1"}

	t.Run("Should render home with the user.me result", func(t *testing.T) {
		env := newPageEnv(t, &domain.SessionContext{User: user, Claims: claims})
		w := env.do(http.MethodGet, "/", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Welcome, Ada")
	})

	t.Run("Should degrade when the user could not be resolved", func(t *testing.T) {
		env := newPageEnv(t, &domain.SessionContext{Claims: claims})
		w := env.do(http.MethodGet, "/settings", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Profile unavailable.")
	})

	t.Run("Should revoke the session and clear the cookie on sign-out", func(t *testing.T) {
		env := newPageEnv(t, &domain.SessionContext{User: user, Claims: claims})
		w := env.do(http.MethodPost, "/signout", url.Values{})

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/signin", w.Header().Get("Location"))
		assert.Equal(t, []string{"sess_1"}, env.provider.revoked)
		cleared := cookieNamed(w, "__session")
		require.NotNil(t, cleared)
		assert.Empty(t, cleared.Value)
		assert.Equal(t, 1, env.logs.FilterMessage(string(security.EventSignOut)).Len())
	})
}
