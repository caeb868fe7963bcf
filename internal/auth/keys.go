// Package auth mints and checks the API keys the backend accepts.
// A key is an HS256 JWT carrying a role.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const (
	RoleAnon    = "anon"
	RoleService = "service_role"

	issuer = "cloudtodo"
)

var ErrUnknownRole = errors.New("unknown role")

// Claims is the payload of an API key.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// KnownRole reports whether role may use the API.
func KnownRole(role string) bool { return role == RoleAnon || role == RoleService }

// GenerateKey signs a key for role. ttl <= 0 means no expiry.
func GenerateKey(secret []byte, role string, ttl time.Duration, now time.Time) (string, error) {
	if !KnownRole(role) {
		return "", fmt.Errorf("%q: %w", role, ErrUnknownRole)
	}
	if len(secret) == 0 {
		return "", errors.New("empty signing secret")
	}
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   issuer,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign key: %w", err)
	}
	return s, nil
}

// ValidateKey verifies signature, expiry and role.
func ValidateKey(secret []byte, key string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(key, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		var ve *jwt.ValidationError
		switch {
		case errors.As(err, &ve) && ve.Errors&jwt.ValidationErrorMalformed != 0:
			return nil, errors.New("key is malformed")
		case errors.As(err, &ve) && ve.Errors&(jwt.ValidationErrorExpired|jwt.ValidationErrorNotValidYet) != 0:
			return nil, errors.New("key is expired or not active yet")
		default:
			return nil, fmt.Errorf("couldn't handle this key: %w", err)
		}
	}
	if !token.Valid {
		return nil, errors.New("key is invalid")
	}
	if !KnownRole(claims.Role) {
		return nil, fmt.Errorf("%q: %w", claims.Role, ErrUnknownRole)
	}
	return claims, nil
}

// Inspect decodes a key's claims without checking the signature.
// Used by the client to show who it is; never for access decisions.
func Inspect(key string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(key, claims); err != nil {
		return nil, fmt.Errorf("parse key: %w", err)
	}
	return claims, nil
}
