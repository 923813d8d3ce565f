// Package auth issues and verifies the signed session tokens of the student portal.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// RoleStudent is the role carried by student portal sessions.
const RoleStudent = "student"

var (
	// ErrInvalidSession indicates the presented token cannot be trusted.
	ErrInvalidSession = errors.New("invalid session token")
	// ErrSessionRevoked indicates the session was closed by logout.
	ErrSessionRevoked = errors.New("session has been revoked")
	// ErrSessionSecretMissing indicates the manager was built without a signing secret.
	ErrSessionSecretMissing = errors.New("session secret must not be empty")
)

// Session is the identity of a signed-in student. It is passed explicitly to the
// components that act on behalf of the student.
type Session struct {
	StudentID uint      `json:"student_id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	ClassID   *uint     `json:"class_id,omitempty"`
	ClassName string    `json:"class_name,omitempty"`
	TokenID   string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}

type sessionClaims struct {
	Role      string `json:"role"`
	Code      string `json:"code"`
	Name      string `json:"name"`
	ClassID   *uint  `json:"class_id,omitempty"`
	ClassName string `json:"class_name,omitempty"`
	jwt.RegisteredClaims
}

// Manager signs and parses student session tokens.
type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewManager builds a session manager using HMAC-SHA256 signatures.
func NewManager(secret string, ttl time.Duration) (*Manager, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrSessionSecretMissing
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}

	return &Manager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Issue signs a new token for the session and returns it together with the session
// carrying its token id and expiry.
func (m *Manager) Issue(session Session) (string, Session, error) {
	now := m.now().UTC()
	session.TokenID = uuid.NewString()
	session.ExpiresAt = now.Add(m.ttl)

	claims := sessionClaims{
		Role:      RoleStudent,
		Code:      session.Code,
		Name:      session.Name,
		ClassID:   session.ClassID,
		ClassName: session.ClassName,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        session.TokenID,
			Subject:   strconv.FormatUint(uint64(session.StudentID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", Session{}, fmt.Errorf("sign session token: %w", err)
	}

	return signed, session, nil
}

// Parse verifies the token signature and expiry and returns the session it carries.
func (m *Manager) Parse(tokenString string) (Session, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil || !token.Valid {
		return Session{}, ErrInvalidSession
	}

	if claims.Role != RoleStudent || claims.ID == "" || claims.ExpiresAt == nil {
		return Session{}, ErrInvalidSession
	}

	studentID, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || studentID == 0 {
		return Session{}, ErrInvalidSession
	}

	return Session{
		StudentID: uint(studentID),
		Code:      claims.Code,
		Name:      claims.Name,
		ClassID:   claims.ClassID,
		ClassName: claims.ClassName,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

type sessionKey struct{}

// WithSession binds the session to the context.
func WithSession(ctx context.Context, session Session) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, sessionKey{}, session)
}

// FromContext returns the session bound to the context, if any.
func FromContext(ctx context.Context) (Session, bool) {
	if ctx == nil {
		return Session{}, false
	}
	session, ok := ctx.Value(sessionKey{}).(Session)
	return session, ok
}
