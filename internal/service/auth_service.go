package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"impactfamilies/internal/security"
)

var (
	ErrInvalidPassword    = errors.New("invalid password")
	ErrSiteAccessDisabled = errors.New("site password is not configured")
	ErrSessionInvalid     = errors.New("session invalid or expired")
	ErrNoSessionSecret    = errors.New("session secret is required")
)

// Session is a granted site access
type Session struct {
	Token     string    `json:"-"`
	TokenID   string    `json:"-"`
	CSRFToken string    `json:"csrf_token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AuthService gates the site behind one shared password
type AuthService struct {
	passwordHash string
	tokens       *security.TokenIssuer
	csrf         *security.CSRFGenerator
	log          zerolog.Logger
}

// NewAuthService creates the site access service. When only the plain
// password is given it is hashed once here. An empty secret is refused
// with ErrNoSessionSecret.
func NewAuthService(password, passwordHash, secret string, sessionDuration time.Duration, log zerolog.Logger) (*AuthService, error) {
	if secret == "" {
		return nil, ErrNoSessionSecret
	}

	if passwordHash == "" && password != "" {
		hash, err := security.HashPassword(password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash site password: %w", err)
		}
		passwordHash = hash
	}

	return &AuthService{
		passwordHash: passwordHash,
		tokens:       security.NewTokenIssuer(secret, sessionDuration),
		csrf:         security.NewCSRFGenerator(secret),
		log:          log.With().Str("service", "auth").Logger(),
	}, nil
}

// Login checks the site password and opens a session
func (s *AuthService) Login(password string) (*Session, error) {
	if s.passwordHash == "" {
		return nil, ErrSiteAccessDisabled
	}
	if !security.CheckPassword(s.passwordHash, password) {
		s.log.Warn().Msg("rejected site password")
		return nil, ErrInvalidPassword
	}

	token, expiresAt, err := s.tokens.Issue()
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	session, err := s.ValidateSession(token)
	if err != nil {
		return nil, err
	}
	session.ExpiresAt = expiresAt
	return session, nil
}

// ValidateSession verifies a site access token
func (s *AuthService) ValidateSession(token string) (*Session, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, ErrSessionInvalid
	}

	csrfToken, err := s.csrf.GenerateToken(claims.ID)
	if err != nil {
		return nil, ErrSessionInvalid
	}

	return &Session{
		Token:     token,
		TokenID:   claims.ID,
		CSRFToken: csrfToken,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// ValidateCSRF checks the CSRF token sent alongside a session
func (s *AuthService) ValidateCSRF(session *Session, token string) bool {
	return s.csrf.ValidateToken(session.TokenID, token)
}
