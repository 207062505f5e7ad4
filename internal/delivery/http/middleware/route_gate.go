package middleware

import (
	"errors"
	"net/http"
	"path"
	"strings"

	"identity-sync-backend/internal/domain"
	"identity-sync-backend/pkg/auth"
	"identity-sync-backend/pkg/security"

	"github.com/gin-gonic/gin"
)

const (
	HeaderURL      = "x-url"
	HeaderOrigin   = "x-origin"
	HeaderPathname = "x-pathname"

	SignInPath = "/signin"
	HomePath   = "/"
)

// DefaultPublicRoutes are reachable without a session.
var DefaultPublicRoutes = []string{
	"/signin",
	"/signup",
	"/reset-password",
	"/api/webhooks/clerk/user",
	"/signup/google",
	"/sso-callback",
}

// DefaultBypassPrefixes are operational endpoints the gate never redirects.
var DefaultBypassPrefixes = []string{
	"/v1/",
	"/ready",
	"/metrics",
}

type GateAction int

const (
	GateAllow GateAction = iota
	GateRedirectSignIn
	GateRedirectHome
)

func (a GateAction) String() string {
	switch a {
	case GateRedirectSignIn:
		return "redirect_signin"
	case GateRedirectHome:
		return "redirect_home"
	default:
		return "allow"
	}
}

// Decide is the gate's transition table:
//
//	hasSession  isPublic  action
//	false       false     redirect to sign-in
//	true        true      redirect to home
//	false       true      allow
//	true        false     allow
func Decide(hasSession, isPublic bool) GateAction {
	switch {
	case !hasSession && !isPublic:
		return GateRedirectSignIn
	case hasSession && isPublic:
		return GateRedirectHome
	default:
		return GateAllow
	}
}

// RouteMatcher classifies request paths for the gate.
type RouteMatcher struct {
	public map[string]bool
	bypass []string
}

func NewRouteMatcher(public []string, bypass []string) *RouteMatcher {
	m := &RouteMatcher{public: make(map[string]bool, len(public)), bypass: bypass}
	for _, p := range public {
		m.public[normalize(p)] = true
	}
	return m
}

func DefaultRouteMatcher() *RouteMatcher {
	return NewRouteMatcher(DefaultPublicRoutes, DefaultBypassPrefixes)
}

func (m *RouteMatcher) IsPublic(p string) bool {
	return m.public[normalize(p)]
}

// Applies reports whether the gate runs for p. Static assets (anything under
// /static/ or whose last segment has an extension) are skipped unless they
// live under /api or /trpc.
func (m *RouteMatcher) Applies(p string) bool {
	if hasPrefixSegment(p, "/api") || hasPrefixSegment(p, "/trpc") {
		return true
	}
	for _, prefix := range m.bypass {
		if strings.HasPrefix(p, prefix) || p == strings.TrimSuffix(prefix, "/") {
			return false
		}
	}
	if strings.HasPrefix(p, "/static/") {
		return false
	}
	return path.Ext(path.Base(p)) == ""
}

func hasPrefixSegment(p, prefix string) bool {
	return p == prefix || strings.HasPrefix(p, prefix+"/")
}

func normalize(p string) string {
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	return p
}

// RouteGate verifies the session token, applies Decide, and on pass-through
// stamps x-url, x-origin and x-pathname onto the forwarded request. Verified
// claims are stored under domain.KeySessionClaims for the session builder.
func RouteGate(matcher *RouteMatcher, verifier auth.TokenVerifier, cookieName string, securityLog *security.SecurityLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := c.Request.URL.Path
		if !matcher.Applies(p) {
			c.Next()
			return
		}

		claims := verifySession(c, verifier, cookieName, securityLog)

		switch Decide(claims != nil, matcher.IsPublic(p)) {
		case GateRedirectSignIn:
			redirectPreservingQuery(c, SignInPath)
			return
		case GateRedirectHome:
			redirectPreservingQuery(c, HomePath)
			return
		}

		if claims != nil {
			c.Set(string(domain.KeySessionClaims), claims)
		}

		origin := requestOrigin(c.Request)
		c.Request.Header.Set(HeaderURL, origin+c.Request.URL.RequestURI())
		c.Request.Header.Set(HeaderOrigin, origin)
		c.Request.Header.Set(HeaderPathname, p)
		c.Next()
	}
}

func verifySession(c *gin.Context, verifier auth.TokenVerifier, cookieName string, securityLog *security.SecurityLogger) *domain.SessionClaims {
	if verifier == nil {
		return nil
	}
	raw := auth.TokenFromRequest(c.Request, cookieName)
	if raw == "" {
		return nil
	}
	claims, err := verifier.Verify(c.Request.Context(), raw)
	if err != nil {
		if !errors.Is(err, auth.ErrNoToken) {
			securityLog.LogSessionInvalid(c.Request.Context(), RequestMeta(c), err.Error())
		}
		return nil
	}
	return &domain.SessionClaims{
		Subject:      claims.Subject,
		SessionID:    claims.SessionID,
		PrimaryEmail: claims.PrimaryEmail,
		IssuedAt:     claims.IssuedAt,
		ExpiresAt:    claims.ExpiresAt,
	}
}

func redirectPreservingQuery(c *gin.Context, target string) {
	if c.Request.URL.RawQuery != "" {
		target += "?" + c.Request.URL.RawQuery
	}
	c.Redirect(http.StatusTemporaryRedirect, target)
	c.Abort()
}

func requestOrigin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if forwarded := r.Header.Get("X-Forwarded-Proto"); forwarded != "" {
		scheme = strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	return scheme + "://" + r.Host
}

// SessionClaimsFrom returns the claims the gate verified for this request.
func SessionClaimsFrom(c *gin.Context) *domain.SessionClaims {
	v, ok := c.Get(string(domain.KeySessionClaims))
	if !ok {
		return nil
	}
	claims, _ := v.(*domain.SessionClaims)
	return claims
}
