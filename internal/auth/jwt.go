// Package auth issues and checks the bearer tokens guarding the admin
// endpoints.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"asnlookup/internal/support"
)

const (
	RoleAdmin = "admin"

	issuer          = "asnlookup"
	DefaultTokenTTL = 24 * time.Hour
)

var (
	ErrNoSecret     = errors.New("auth: ADMIN_JWT_SECRET is not set")
	ErrInvalidToken = errors.New("auth: invalid token")
)

func secret() []byte {
	return []byte(support.GetEnv("ADMIN_JWT_SECRET", ""))
}

// Enabled reports whether a signing secret is configured.
func Enabled() bool {
	return len(secret()) > 0
}

// GenerateJWT signs an HS256 token for subject with the given role.
func GenerateJWT(subject, role string, ttl time.Duration) (string, error) {
	key := secret()
	if len(key) == 0 {
		return "", ErrNoSecret
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"iss":  issuer,
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return token, nil
}

// ValidateJWT verifies signature, issuer and expiry and returns the claims.
func ValidateJWT(tokenString string) (jwt.MapClaims, error) {
	key := secret()
	if len(key) == 0 {
		return nil, ErrNoSecret
	}

	token, err := jwt.Parse(tokenString, func(*jwt.Token) (interface{}, error) {
		return key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
