// Package auth resolves the caller of a request and decides what it may do.
//
// Bearer tokens are decoded without signature verification. The API Gateway
// Cognito authorizer in front of every function verifies them first.
package auth

import (
	"fmt"
	"strings"
	"time"

	"certification/lib/apperr"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is what the portal reads from an identity token.
type TokenClaims struct {
	Subject   string
	Email     string
	ExpiresAt time.Time
}

// ExtractBearerToken returns the token of the Authorization header. Header
// names are matched case-insensitively since API Gateway forwards them as sent.
func ExtractBearerToken(headers map[string]string) (string, error) {
	var value string
	for name, v := range headers {
		if strings.EqualFold(name, "Authorization") {
			value = strings.TrimSpace(v)
			break
		}
	}
	if value == "" {
		return "", apperr.Unauthenticated("missing bearer token")
	}
	scheme, token, ok := strings.Cut(value, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", apperr.Unauthenticated("authorization header must use the Bearer scheme")
	}
	return strings.TrimSpace(token), nil
}

// DecodeToken reads the payload of token and checks its expiry against now.
// A token without exp is rejected.
func DecodeToken(token string, now time.Time) (*TokenClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, apperr.Unauthenticated("malformed token")
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, apperr.Unauthenticated("token has no expiry")
	}
	if !now.Before(exp.Time) {
		return nil, apperr.Unauthenticated("token expired")
	}

	email := stringClaim(claims, "email")
	if email == "" {
		email = stringClaim(claims, "preferred_username")
	}
	if email == "" {
		return nil, apperr.Unauthenticated("token carries no email")
	}

	subject, _ := claims.GetSubject()
	return &TokenClaims{
		Subject:   subject,
		Email:     strings.ToLower(email),
		ExpiresAt: exp.Time,
	}, nil
}

func stringClaim(claims jwt.MapClaims, name string) string {
	value, ok := claims[name].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(value)
}

// String is used in log fields; the token itself is never logged.
func (c *TokenClaims) String() string {
	return fmt.Sprintf("sub=%s email=%s exp=%s", c.Subject, c.Email, c.ExpiresAt.Format(time.RFC3339))
}
