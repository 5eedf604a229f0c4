// Package jwt provides a JWT authenticator validating HS256-signed
// bearer tokens against a shared secret.
package jwt

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fhuber/dozent/pkg/auth"
)

// Authenticator validates HS256 JWTs.
type Authenticator struct {
	secret   []byte
	issuer   string
	audience string
}

var _ auth.Authenticator = (*Authenticator)(nil)

// New creates a JWT authenticator. issuer and audience are enforced
// when non-empty.
func New(secret []byte, issuer, audience string) *Authenticator {
	return &Authenticator{secret: secret, issuer: issuer, audience: audience}
}

// Authenticate validates a bearer JWT. Tokens without the three-segment
// JWT shape are abstained on, so API keys can share the Bearer scheme.
func (a *Authenticator) Authenticate(_ context.Context, r *http.Request) auth.AuthResult {
	header := r.Header.Get("Authorization")
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return auth.AuthResult{Decision: auth.Abstain}
	}

	raw := strings.TrimPrefix(header, "Bearer ")
	if strings.Count(raw, ".") != 2 {
		return auth.AuthResult{Decision: auth.Abstain}
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256"}),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	if a.audience != "" {
		opts = append(opts, jwt.WithAudience(a.audience))
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return auth.AuthResult{Decision: auth.No, Err: fmt.Errorf("invalid token: %w", err)}
	}

	subject, _ := claims.GetSubject()
	if subject == "" {
		return auth.AuthResult{Decision: auth.No, Err: fmt.Errorf("token has no subject")}
	}

	id := &auth.Identity{Subject: subject}
	if scope, ok := claims["scope"].(string); ok && scope != "" {
		id.Scopes = strings.Fields(scope)
	}

	return auth.AuthResult{Decision: auth.Yes, Identity: id}
}
