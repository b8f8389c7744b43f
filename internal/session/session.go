// Package session issues and validates browser session tokens.
//
// A session is anonymous: there are no user accounts. The server hands each
// browser a signed JWT carrying a random session id and a CSRF token, and
// every stored record is scoped to that session id. Losing the cookie means
// losing the data, which is the intended lifecycle for a cleanup tool.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// CookieName is the HTTP cookie carrying the session token.
	CookieName = "cardtidy_session"

	// CSRFHeader is the request header that must echo the session's CSRF
	// token on mutating requests.
	CSRFHeader = "X-CSRF-Token"
)

var (
	ErrInvalidToken = errors.New("invalid or expired session token")
	ErrMissingToken = errors.New("session token required")
	ErrCSRFMismatch = errors.New("csrf token mismatch")
)

// Manager handles session token generation and validation.
type Manager struct {
	secretKey     []byte
	tokenDuration time.Duration
}

// Claims represents the custom JWT claims for a browser session.
type Claims struct {
	SessionID string `json:"session_id"`
	CSRF      string `json:"csrf"`
	jwt.RegisteredClaims
}

// NewManager creates a session manager with the given secret and token
// duration. secretKey should be a strong random string (e.g., 32 bytes).
func NewManager(secretKey string, tokenDuration time.Duration) *Manager {
	return &Manager{
		secretKey:     []byte(secretKey),
		tokenDuration: tokenDuration,
	}
}

// Issue creates a fresh session with random session and CSRF tokens and
// returns the signed JWT alongside its claims.
func (m *Manager) Issue() (string, *Claims, error) {
	claims := &Claims{
		SessionID: randomToken(),
		CSRF:      randomToken(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.tokenDuration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, claims, nil
}

// Validate parses and validates a session token, returning the claims if valid.
func (m *Manager) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			// Verify the signing method
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return m.secretKey, nil
		},
	)

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// CheckCSRF compares a request-supplied token against the session's.
func (m *Manager) CheckCSRF(claims *Claims, supplied string) error {
	if supplied == "" || supplied != claims.CSRF {
		return ErrCSRFMismatch
	}
	return nil
}

// randomToken returns 16 random bytes hex-encoded.
func randomToken() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	return hex.EncodeToString(b)
}
