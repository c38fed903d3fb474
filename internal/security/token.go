package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SiteAccessSubject is the subject of every site access token
const SiteAccessSubject = "site-access"

var ErrInvalidToken = errors.New("invalid site access token")

// SiteClaims are carried by the site access cookie
type SiteClaims struct {
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 site access tokens
type TokenIssuer struct {
	secret   []byte
	duration time.Duration
	now      func() time.Time
}

// NewTokenIssuer creates a token issuer
func NewTokenIssuer(secret string, duration time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), duration: duration, now: time.Now}
}

// Issue returns a signed token and its expiry
func (i *TokenIssuer) Issue() (string, time.Time, error) {
	tokenID, err := uuid.NewRandom()
	if err != nil {
		return "", time.Time{}, err
	}

	issuedAt := i.now()
	expiresAt := issuedAt.Add(i.duration)
	claims := &SiteClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID.String(),
			Subject:   SiteAccessSubject,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Validate parses a token and checks its signature, expiry and subject
func (i *TokenIssuer) Validate(tokenString string) (*SiteClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SiteClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now), jwt.WithSubject(SiteAccessSubject))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*SiteClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
