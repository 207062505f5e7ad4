package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrNoToken = errors.New("no session token")

// Claims is the subset of a session token the service relies on.
type Claims struct {
	Subject      string
	SessionID    string
	PrimaryEmail string
	IssuedAt     time.Time
	ExpiresAt    time.Time
}

type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (*Claims, error)
}

// sessionClaims matches the provider's session JWT, including the custom
// primaryEmail claim configured on the session token template.
type sessionClaims struct {
	SessionID    string `json:"sid"`
	PrimaryEmail string `json:"primaryEmail"`
	jwt.RegisteredClaims
}

// JWTVerifier accepts RS256 tokens signed by a key from the JWKS provider and,
// when hmacKey is set, HS256 tokens signed with that key.
type JWTVerifier struct {
	jwks    *Provider
	hmacKey []byte
	issuer  string
	leeway  time.Duration
}

func NewJWTVerifier(jwks *Provider, hmacKey, issuer string) *JWTVerifier {
	v := &JWTVerifier{jwks: jwks, issuer: issuer, leeway: 5 * time.Second}
	if hmacKey != "" {
		v.hmacKey = []byte(hmacKey)
	}
	return v
}

func (v *JWTVerifier) Verify(_ context.Context, raw string) (*Claims, error) {
	if raw == "" {
		return nil, ErrNoToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"RS256", "HS256"}),
		jwt.WithLeeway(v.leeway),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var sc sessionClaims
	token, err := jwt.ParseWithClaims(raw, &sc, v.keyFunc, opts...)
	if err != nil {
		return nil, fmt.Errorf("verify session token: %w", err)
	}
	if !token.Valid || sc.Subject == "" {
		return nil, fmt.Errorf("verify session token: missing subject")
	}

	claims := &Claims{
		Subject:      sc.Subject,
		SessionID:    sc.SessionID,
		PrimaryEmail: sc.PrimaryEmail,
	}
	if sc.IssuedAt != nil {
		claims.IssuedAt = sc.IssuedAt.Time
	}
	if sc.ExpiresAt != nil {
		claims.ExpiresAt = sc.ExpiresAt.Time
	}
	return claims, nil
}

func (v *JWTVerifier) keyFunc(token *jwt.Token) (interface{}, error) {
	switch token.Method.(type) {
	case *jwt.SigningMethodHMAC:
		if v.hmacKey == nil {
			return nil, fmt.Errorf("HS256 token received but CLERK_JWT_KEY is not configured")
		}
		return v.hmacKey, nil
	case *jwt.SigningMethodRSA:
		if v.jwks == nil {
			return nil, fmt.Errorf("RS256 token received but no JWKS endpoint is configured")
		}
		return v.jwks.KeyFunc(token)
	default:
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
}

// TokenFromRequest reads the bearer token first, then the session cookie.
func TokenFromRequest(r *http.Request, cookieName string) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(cookieName); err == nil {
		return cookie.Value
	}
	return ""
}
