// Package auth holds the static identity table, session lifecycle and
// role-based access decisions. The user table is fixed at startup; only
// sessions come and go.
package auth

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Project-Kyra/Project-Kyra/internal/config"
)

var (
	// ErrInvalidCredentials is returned for an unknown identity or a
	// wrong secret; callers get no hint which one it was.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrSessionNotFound is returned when a token does not map to an
	// active session (expired, logged out, or never issued).
	ErrSessionNotFound = errors.New("session not found")
)

// User is one entry of the static identity table
type User struct {
	Username string
	Role     Role

	password string
}

// Session is the state established by a successful login
type Session struct {
	TokenID   string    `json:"-"`
	Username  string    `json:"username"`
	Role      Role      `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Service authenticates users and tracks active sessions in memory.
// Sessions live only as long as the process.
type Service struct {
	users      map[string]User
	evaluators []string
	jwtSecret  []byte
	ttl        time.Duration

	mu       sync.RWMutex
	sessions map[string]Session
}

// NewService builds the service from the configured identity table
func NewService(users []config.UserConfig, jwtSecret string, sessionTTL time.Duration) (*Service, error) {
	s := &Service{
		users:     make(map[string]User, len(users)),
		jwtSecret: []byte(jwtSecret),
		ttl:       sessionTTL,
		sessions:  make(map[string]Session),
	}

	for _, u := range users {
		role, err := ParseRole(u.Role)
		if err != nil {
			return nil, fmt.Errorf("user %q: %w", u.Username, err)
		}
		s.users[u.Username] = User{
			Username: u.Username,
			Role:     role,
			password: u.Password,
		}
		if role == RoleEvaluator {
			s.evaluators = append(s.evaluators, u.Username)
		}
	}

	return s, nil
}

// DefaultEvaluator returns the evaluator new submissions are assigned
// to: the first one in the identity table.
func (s *Service) DefaultEvaluator() string {
	if len(s.evaluators) == 0 {
		return ""
	}
	return s.evaluators[0]
}

// Login authenticates a user and establishes a session. On failure no
// partial session exists and the error is typed, never swallowed.
func (s *Service) Login(username, password string) (Session, string, error) {
	user, ok := s.users[username]
	if !ok || user.password != password {
		return Session{}, "", ErrInvalidCredentials
	}

	session := Session{
		TokenID:   uuid.New().String(),
		Username:  user.Username,
		Role:      user.Role,
		ExpiresAt: time.Now().Add(s.ttl),
	}

	claims := jwt.MapClaims{
		"sub":  session.Username,
		"role": string(session.Role),
		"jti":  session.TokenID,
		"exp":  session.ExpiresAt.Unix(),
		"iat":  time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return Session{}, "", fmt.Errorf("failed to sign session token: %w", err)
	}

	s.mu.Lock()
	s.sessions[session.TokenID] = session
	s.mu.Unlock()

	return session, tokenString, nil
}

// Logout tears down a session. The result is explicit: a missing
// session is reported as ErrSessionNotFound, not ignored.
func (s *Service) Logout(tokenID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[tokenID]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, tokenID)

	return nil
}

// ValidateToken checks a bearer token and returns the live session it
// belongs to. Tokens from logged-out sessions fail even when the JWT
// itself is still within its expiry.
func (s *Service) ValidateToken(tokenString string) (Session, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return Session{}, ErrSessionNotFound
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	tokenID, ok := claims["jti"].(string)
	if !ok {
		return Session{}, ErrSessionNotFound
	}

	s.mu.RLock()
	session, ok := s.sessions[tokenID]
	s.mu.RUnlock()

	if !ok || time.Now().After(session.ExpiresAt) {
		return Session{}, ErrSessionNotFound
	}

	return session, nil
}
