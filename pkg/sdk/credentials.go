package sdk

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

const (
	bearerScheme = "Bearer"
	bearerPrefix = bearerScheme + " "
)

// Credential is a bearer credential in its normalized form ("Bearer <token>").
// The zero value is the absent credential.
type Credential string

// NormalizeCredential returns raw with exactly one "Bearer " prefix.
// A prefix in any letter case is rewritten to the canonical spelling, so
// NormalizeCredential(NormalizeCredential(s)) == NormalizeCredential(s).
// Blank input normalizes to the absent credential.
func NormalizeCredential(raw string) Credential {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if len(raw) >= len(bearerPrefix) && strings.EqualFold(raw[:len(bearerPrefix)], bearerPrefix) {
		return Credential(bearerPrefix + raw[len(bearerPrefix):])
	}
	return Credential(bearerPrefix + raw)
}

// String returns the normalized header value.
func (c Credential) String() string {
	return string(c)
}

// Token returns the raw token without the scheme prefix.
func (c Credential) Token() string {
	return strings.TrimPrefix(string(c), bearerPrefix)
}

// OAuth2Token adapts the credential for golang.org/x/oauth2 consumers.
// Expiry is filled from the token's exp claim when it is a JWT.
func (c Credential) OAuth2Token() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken: c.Token(),
		TokenType:   bearerScheme,
	}
	if exp, ok := c.ExpiresAt(); ok {
		tok.Expiry = exp
	}
	return tok
}

// Claims decodes the registered JWT claims of the credential WITHOUT verifying
// the signature. The result is for display only and must never drive an
// authorization decision; the server's identity lookup is authoritative.
func (c Credential) Claims() (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(c.Token(), claims); err != nil {
		return nil, fmt.Errorf("decode credential claims: %w", err)
	}
	return claims, nil
}

// ExpiresAt reports the exp claim, if the credential is a JWT carrying one.
func (c Credential) ExpiresAt() (time.Time, bool) {
	claims, err := c.Claims()
	if err != nil || claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// IsExpired reports whether the exp claim lies before now. Credentials without
// a readable exp claim are never considered expired locally.
func (c Credential) IsExpired(now time.Time) bool {
	exp, ok := c.ExpiresAt()
	return ok && now.After(exp)
}
