package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/stagelink/backend/internal/models"
)

const issuer = "stagelink"

var (
	// ErrInvalidToken indicates the bearer token could not be verified.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired indicates the bearer token verified but is past its expiry.
	ErrTokenExpired = errors.New("token expired")
)

// Manager issues and verifies HS256 access tokens.
type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewManager constructs a Manager signing with secret and issuing tokens valid for ttl.
func NewManager(secret string, ttl time.Duration) *Manager {
	if secret == "" {
		panic("auth: signing secret must not be empty")
	}
	return &Manager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithNowFunc allows tests to override the time source.
func (m *Manager) WithNowFunc(now func() time.Time) {
	m.now = now
}

// Issue signs a new access token for userID.
func (m *Manager) Issue(_ context.Context, userID string) (models.SessionToken, error) {
	if userID == "" {
		return models.SessionToken{}, errors.New("user id must be provided")
	}

	now := m.now().UTC()
	expires := now.Add(m.ttl)
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return models.SessionToken{}, fmt.Errorf("sign token: %w", err)
	}

	return models.SessionToken{AccessToken: signed, ExpiresAt: expires}, nil
}

// Verify checks the token signature and expiry and returns the user id it was issued for.
func (m *Manager) Verify(token string) (string, error) {
	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
