// Package auth issues and validates bearer tokens and owns the client-side
// session that holds the current one.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_food/internal/apperr"
	"github.com/golang-jwt/jwt/v4"
)

const defaultTokenTTL = 24 * time.Hour

var ErrInvalidToken = fmt.Errorf("%w: invalid token", apperr.ErrUnauthorized)

type User struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

type Claims struct {
	User User `json:"user"`
	jwt.RegisteredClaims
}

// Tokens signs and validates HS256 bearer tokens carrying the user profile.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (t *Tokens) Issue(u User) (string, error) {
	if u.ID == "" {
		return "", errors.New("issue token: user id is required")
	}
	now := t.now()
	claims := Claims{
		User: u,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (t *Tokens) Parse(token string) (*User, error) {
	claims := &Claims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	_, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.User.ID == "" || claims.User.ID != claims.Subject {
		return nil, fmt.Errorf("%w: subject mismatch", ErrInvalidToken)
	}
	return &claims.User, nil
}

// UserFromToken reads the profile out of a token without verifying it. The
// client holds no secret; the backend remains the authority.
func UserFromToken(token string) (User, error) {
	claims, err := unverifiedClaims(token)
	if err != nil {
		return User{}, err
	}
	if claims.User.ID == "" {
		return User{}, fmt.Errorf("%w: token carries no user", ErrInvalidToken)
	}
	return claims.User, nil
}

// expired reports whether an unverified token is past its expiry.
func expired(token string, now time.Time) bool {
	claims, err := unverifiedClaims(token)
	if err != nil {
		return true
	}
	return claims.ExpiresAt != nil && !now.Before(claims.ExpiresAt.Time)
}

func unverifiedClaims(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}
