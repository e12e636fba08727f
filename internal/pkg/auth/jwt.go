// Package auth verifies bearer tokens issued by the identity service.
package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// UserIDClaim is the claim carrying the authenticated user's ID.
const UserIDClaim = "user_id"

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
)

// Verifier validates HMAC-signed JWTs and extracts the user ID.
type Verifier struct {
	secret    []byte
	algorithm string
}

// NewVerifier creates a Verifier for one of HS256, HS384 or HS512.
func NewVerifier(secret, algorithm string) (*Verifier, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	switch algorithm {
	case "HS256", "HS384", "HS512":
	default:
		return nil, fmt.Errorf("unsupported jwt algorithm %q", algorithm)
	}
	return &Verifier{secret: []byte(secret), algorithm: algorithm}, nil
}

// UserID parses a raw token and returns its user_id claim.
func (v *Verifier) UserID(raw string) (string, error) {
	if raw == "" {
		return "", ErrMissingToken
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{v.algorithm}), jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	userID, _ := claims[UserIDClaim].(string)
	if userID == "" {
		return "", fmt.Errorf("%w: %s claim missing", ErrInvalidToken, UserIDClaim)
	}
	return userID, nil
}

// FromHeader strips the Bearer scheme from an Authorization header value.
func FromHeader(header string) (string, error) {
	if header == "" {
		return "", ErrMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", ErrInvalidToken
	}
	return strings.TrimSpace(token), nil
}

// Sign issues a token for userID. Used by tests and local tooling.
func (v *Verifier) Sign(userID string, claims jwt.MapClaims) (string, error) {
	c := jwt.MapClaims{UserIDClaim: userID}
	for k, val := range claims {
		c[k] = val
	}
	return jwt.NewWithClaims(jwt.GetSigningMethod(v.algorithm), c).SignedString(v.secret)
}
