package v1

import (
	"context"
	"errors"
	"net/http"
	"time"

	"identity-sync-backend/internal/delivery/http/middleware"
	"identity-sync-backend/internal/domain"
	"identity-sync-backend/internal/ui"
	"identity-sync-backend/pkg/apperror"
	"identity-sync-backend/pkg/logger"
	"identity-sync-backend/pkg/rpc"
	"identity-sync-backend/pkg/security"
	"identity-sync-backend/pkg/validation"

	"github.com/a-h/templ"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const (
	SignupAttemptCookie = "signup_attempt"

	msgGeneric        = "Something went wrong. Please try again."
	msgSignupExpired  = "Your sign-up session expired. Please start again."
	msgIncomplete     = "Verification is not complete. Check the code and try again."
	msgStepOutOfOrder = "This step is no longer available. Please start again."
)

type CookieConfig struct {
	SessionName string
	Secure      bool
	AttemptTTL  time.Duration
}

type PageHandler struct {
	signupUC    domain.SignupUsecase
	procedures  *rpc.Router[*domain.SessionContext]
	securityLog *security.SecurityLogger
	cookies     CookieConfig
}

func NewPageHandler(r gin.IRoutes, signupUC domain.SignupUsecase, procedures *rpc.Router[*domain.SessionContext], securityLog *security.SecurityLogger, cookies CookieConfig, authLimit gin.HandlerFunc) {
	handler := &PageHandler{
		signupUC:    signupUC,
		procedures:  procedures,
		securityLog: securityLog,
		cookies:     cookies,
	}

	r.GET("/signin", handler.SignInForm)
	r.POST("/signin", authLimit, handler.SignIn)
	r.GET("/signup", handler.SignupForm)
	r.POST("/signup", authLimit, handler.Signup)
	r.GET("/signup/google", authLimit, handler.GoogleOAuth)
	r.GET("/sso-callback", handler.SSOCallback)
	r.POST("/signout", handler.SignOut)
	r.GET("/", handler.Home)
	r.GET("/settings", handler.Settings)
}

func renderHTML(c *gin.Context, status int, page templ.Component) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(status)
	if err := page.Render(c.Request.Context(), c.Writer); err != nil {
		logger.Log.Error("Failed to render page", "path", c.Request.URL.Path, "error", err)
	}
}

func csrfToken(c *gin.Context) string {
	return c.GetString(middleware.CSRFContextKey)
}

// formStatus picks the status a re-rendered form is served with.
func formStatus(err error) int {
	var validationErrs validator.ValidationErrors
	var appErr *apperror.AppError
	switch {
	case errors.As(err, &validationErrs):
		return http.StatusUnprocessableEntity
	case errors.As(err, &appErr):
		return appErr.Code
	case errors.Is(err, domain.ErrSignupNotFound), errors.Is(err, domain.ErrVerificationIncomplete), errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// formMessage is the banner shown above a form; provider 5xx details stay in the log.
func formMessage(err error) string {
	var appErr *apperror.AppError
	switch {
	case errors.As(err, &appErr) && appErr.Code < http.StatusInternalServerError:
		return appErr.Message
	case errors.Is(err, domain.ErrSignupNotFound):
		return msgSignupExpired
	case errors.Is(err, domain.ErrVerificationIncomplete):
		return msgIncomplete
	case errors.Is(err, domain.ErrInvalidTransition):
		return msgStepOutOfOrder
	default:
		return msgGeneric
	}
}

func (h *PageHandler) setSessionCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookies.SessionName, token, 0, "/", "", h.cookies.Secure, true)
}

func (h *PageHandler) setAttemptCookie(c *gin.Context, id string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SignupAttemptCookie, id, int(h.cookies.AttemptTTL.Seconds()), "/signup", "", h.cookies.Secure, true)
}

func (h *PageHandler) clearCookie(c *gin.Context, name, path string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, "", -1, path, "", h.cookies.Secure, true)
}

func (h *PageHandler) SignInForm(c *gin.Context) {
	renderHTML(c, http.StatusOK, ui.SignInPage(ui.SignInView{CSRFToken: csrfToken(c)}))
}

func (h *PageHandler) SignIn(c *gin.Context) {
	ctx := c.Request.Context()
	var in domain.SigninCredentials
	if err := c.ShouldBindWith(&in, binding.Form); err != nil {
		logger.Log.Debug("Failed to bind sign-in form", "error", err)
	}

	session, err := h.signupUC.SignIn(ctx, in)
	if err != nil {
		h.securityLog.LogSigninFailed(ctx, middleware.RequestMeta(c), in.Email, err.Error())
		view := ui.SignInView{CSRFToken: csrfToken(c), Email: in.Email, Errors: validation.FieldErrors(err)}
		if len(view.Errors) == 0 {
			view.FormError = formMessage(err)
		}
		renderHTML(c, formStatus(err), ui.SignInPage(view))
		return
	}

	h.setSessionCookie(c, session.Token)
	c.Redirect(http.StatusSeeOther, middleware.HomePath)
}

func (h *PageHandler) SignupForm(c *gin.Context) {
	attemptID, _ := c.Cookie(SignupAttemptCookie)
	flow, err := h.signupUC.Current(c.Request.Context(), attemptID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	renderHTML(c, http.StatusOK, ui.SignupPage(ui.SignupView{
		CSRFToken: csrfToken(c),
		State:     flow.State,
		Email:     flow.Email,
	}))
}

// Signup dispatches on the hidden step field of the sign-up forms.
func (h *PageHandler) Signup(c *gin.Context) {
	attemptID, _ := c.Cookie(SignupAttemptCookie)

	switch c.PostForm("step") {
	case ui.SignupStepCredentials:
		h.submitCredentials(c, attemptID)
	case ui.SignupStepVerify:
		h.submitVerification(c, attemptID)
	case ui.SignupStepRestart:
		if err := h.signupUC.Restart(c.Request.Context(), attemptID); err != nil {
			_ = c.Error(err)
			return
		}
		h.clearCookie(c, SignupAttemptCookie, "/signup")
		c.Redirect(http.StatusSeeOther, "/signup")
	default:
		_ = c.Error(apperror.BadRequest("Unknown sign-up step"))
	}
}

func (h *PageHandler) submitCredentials(c *gin.Context, attemptID string) {
	ctx := c.Request.Context()
	var in domain.SignupCredentials
	if err := c.ShouldBindWith(&in, binding.Form); err != nil {
		logger.Log.Debug("Failed to bind sign-up form", "error", err)
	}

	flow, err := h.signupUC.SubmitCredentials(ctx, attemptID, in)
	if err != nil {
		h.securityLog.LogSignupFailed(ctx, middleware.RequestMeta(c), in.Email, ui.SignupStepCredentials, err.Error())
		view := ui.SignupView{
			CSRFToken: csrfToken(c),
			State:     domain.SignupCollectingCredentials,
			Email:     in.Email,
			Errors:    validation.FieldErrors(err),
		}
		if flow != nil && errors.Is(err, domain.ErrInvalidTransition) {
			view.State, view.Email = flow.State, flow.Email
		}
		if len(view.Errors) == 0 {
			view.FormError = formMessage(err)
		}
		renderHTML(c, formStatus(err), ui.SignupPage(view))
		return
	}

	h.setAttemptCookie(c, flow.ID)
	c.Redirect(http.StatusSeeOther, "/signup")
}

func (h *PageHandler) submitVerification(c *gin.Context, attemptID string) {
	ctx := c.Request.Context()
	in := domain.VerificationCode{Code: c.PostForm("code")}

	flow, err := h.signupUC.SubmitVerification(ctx, attemptID, in)
	if err != nil {
		view := ui.SignupView{CSRFToken: csrfToken(c), Errors: validation.FieldErrors(err)}
		email := ""
		if flow != nil {
			view.State, view.Email = flow.State, flow.Email
			email = flow.Email
		} else {
			view.State = domain.SignupCollectingCredentials
			h.clearCookie(c, SignupAttemptCookie, "/signup")
		}
		h.securityLog.LogSignupFailed(ctx, middleware.RequestMeta(c), email, ui.SignupStepVerify, err.Error())
		if len(view.Errors) == 0 {
			view.FormError = formMessage(err)
		}
		renderHTML(c, formStatus(err), ui.SignupPage(view))
		return
	}

	h.clearCookie(c, SignupAttemptCookie, "/signup")
	h.setSessionCookie(c, flow.SessionToken)
	c.Redirect(http.StatusSeeOther, middleware.HomePath)
}

func (h *PageHandler) GoogleOAuth(c *gin.Context) {
	target, err := h.signupUC.StartOAuth(c.Request.Context(), domain.OAuthStrategyGoogle)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.Redirect(http.StatusSeeOther, target)
}

// SSOCallback is where the provider returns the browser after OAuth. The
// provider has already set the session cookie, so the gate takes it from here.
func (h *PageHandler) SSOCallback(c *gin.Context) {
	c.Redirect(http.StatusSeeOther, middleware.HomePath)
}

func (h *PageHandler) SignOut(c *gin.Context) {
	ctx := c.Request.Context()
	claims := middleware.SessionClaimsFrom(c)
	if err := h.signupUC.SignOut(ctx, claims); err != nil {
		logger.Log.Warn("Failed to revoke provider session", "error", err)
	}
	if claims != nil {
		h.securityLog.LogSignOut(ctx, middleware.RequestMeta(c), claims.Subject)
	}

	h.clearCookie(c, h.cookies.SessionName, "/")
	c.Redirect(http.StatusSeeOther, middleware.SignInPath)
}

// currentUser resolves the signed-in user through the user.me procedure. A
// nil user renders the page without profile data.
func (h *PageHandler) currentUser(ctx context.Context, c *gin.Context) *domain.User {
	out, err := h.procedures.Call(ctx, middleware.SessionContextFrom(c), "user.me", nil)
	if err != nil {
		logger.Log.Warn("user.me failed during page render", "path", c.Request.URL.Path, "error", err)
		return nil
	}
	user, _ := out.(*domain.User)
	return user
}

func (h *PageHandler) Home(c *gin.Context) {
	user := h.currentUser(c.Request.Context(), c)
	renderHTML(c, http.StatusOK, ui.HomePage(user, csrfToken(c)))
}

func (h *PageHandler) Settings(c *gin.Context) {
	user := h.currentUser(c.Request.Context(), c)
	renderHTML(c, http.StatusOK, ui.SettingsPage(user, csrfToken(c)))
}
