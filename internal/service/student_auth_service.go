package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-survey-api/internal/auth"
	"github.com/noah-isme/gema-survey-api/internal/dto"
	"github.com/noah-isme/gema-survey-api/internal/repository"
)

const revokedSessionPrefix = "auth:revoked:"

var (
	// ErrStudentInvalidCredentials indicates the code or password did not match.
	ErrStudentInvalidCredentials = errors.New("invalid student code or password")
	// ErrStudentInactive indicates the student exists but may not sign in.
	ErrStudentInactive = errors.New("student account is not active")
	// ErrSessionRevoked indicates the session was closed by logout.
	ErrSessionRevoked = auth.ErrSessionRevoked
)

// StudentAuthService signs students in and out of the portal.
type StudentAuthService interface {
	Login(ctx context.Context, payload dto.StudentLoginRequest) (dto.StudentLoginResponse, error)
	Logout(ctx context.Context, session auth.Session) error
	Authenticate(ctx context.Context, token string) (auth.Session, error)
}

type studentAuthService struct {
	students  repository.StudentRepository
	sessions  *auth.Manager
	revoked   *redis.Client
	validator *validator.Validate
	logger    zerolog.Logger
	now       func() time.Time
}

// NewStudentAuthService constructs the portal authentication service. Without Redis,
// logout cannot revoke tokens before they expire.
func NewStudentAuthService(students repository.StudentRepository, sessions *auth.Manager, revoked *redis.Client, validate *validator.Validate, logger zerolog.Logger) StudentAuthService {
	return &studentAuthService{
		students:  students,
		sessions:  sessions,
		revoked:   revoked,
		validator: validate,
		logger:    logger.With().Str("component", "student_auth_service").Logger(),
		now:       time.Now,
	}
}

func (s *studentAuthService) Login(ctx context.Context, payload dto.StudentLoginRequest) (dto.StudentLoginResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.StudentLoginResponse{}, err
	}

	student, err := s.students.GetByCode(ctx, strings.TrimSpace(payload.Code))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.StudentLoginResponse{}, ErrStudentInvalidCredentials
		}
		return dto.StudentLoginResponse{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(student.PasswordHash), []byte(payload.Password)); err != nil {
		s.logger.Warn().Str("code", student.Code).Msg("student login rejected")
		return dto.StudentLoginResponse{}, ErrStudentInvalidCredentials
	}
	if !student.IsActive() {
		return dto.StudentLoginResponse{}, ErrStudentInactive
	}

	token, session, err := s.sessions.Issue(auth.Session{
		StudentID: student.ID,
		Code:      student.Code,
		Name:      student.Name,
		ClassID:   student.ClassID,
		ClassName: student.ClassName,
	})
	if err != nil {
		return dto.StudentLoginResponse{}, err
	}

	s.logger.Info().Uint("student_id", student.ID).Msg("student signed in")
	return dto.StudentLoginResponse{
		Token:   token,
		Session: dto.NewStudentSessionResponse(session),
	}, nil
}

// Logout denylists the token id until the token would have expired anyway.
func (s *studentAuthService) Logout(ctx context.Context, session auth.Session) error {
	if s.revoked == nil || session.TokenID == "" {
		return nil
	}

	ttl := session.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}

	if err := s.revoked.Set(ctx, revokedSessionPrefix+session.TokenID, session.StudentID, ttl).Err(); err != nil {
		return err
	}

	s.logger.Info().Uint("student_id", session.StudentID).Msg("student signed out")
	return nil
}

func (s *studentAuthService) Authenticate(ctx context.Context, token string) (auth.Session, error) {
	session, err := s.sessions.Parse(strings.TrimSpace(token))
	if err != nil {
		return auth.Session{}, err
	}

	if s.revoked != nil {
		exists, err := s.revoked.Exists(ctx, revokedSessionPrefix+session.TokenID).Result()
		if err != nil {
			return auth.Session{}, fmt.Errorf("check session revocation: %w", err)
		}
		if exists > 0 {
			return auth.Session{}, ErrSessionRevoked
		}
	}

	return session, nil
}
