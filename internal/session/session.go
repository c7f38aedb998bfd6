// Package session reads and issues the access tokens that identify the
// dashboard viewer.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nhle/sim-admin/internal/model"
)

// Claims is the token payload. Hosted auth services keep custom roles in
// app_metadata or user_metadata; tokens minted here use Role directly.
type Claims struct {
	Role         string                 `json:"role,omitempty"`
	Email        string                 `json:"email,omitempty"`
	AppMetadata  map[string]interface{} `json:"app_metadata,omitempty"`
	UserMetadata map[string]interface{} `json:"user_metadata,omitempty"`
	jwt.RegisteredClaims
}

// EffectiveRole returns the most specific role the token carries.
func (c *Claims) EffectiveRole() string {
	for _, meta := range []map[string]interface{}{c.AppMetadata, c.UserMetadata} {
		if r, ok := meta["role"].(string); ok && r != "" {
			return r
		}
	}
	return c.Role
}

// Mint signs an HS256 token for subject with the given role.
func Mint(secret, subject, role string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("signing secret must not be empty")
	}

	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of an HS256 token.
func Verify(secret, tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return nil, fmt.Errorf("verifying token: %w", err)
	}
	return claims, nil
}

// Inspect decodes a token without checking its signature. The console
// cannot verify tokens; the backend does that on every request.
func Inspect(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, _, err := jwt.NewParser().ParseUnverified(tokenString, claims)
	if err != nil {
		return nil, fmt.Errorf("decoding token: %w", err)
	}
	return claims, nil
}

// IsAdmin reports whether the token belongs to an administrator. Expired
// or undecodable tokens are not admin.
func IsAdmin(tokenString string) bool {
	if tokenString == "" {
		return false
	}
	claims, err := Inspect(tokenString)
	if err != nil {
		return false
	}
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return false
	}
	return claims.EffectiveRole() == model.RoleAdmin
}
