package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-survey-api/internal/dto"
	"github.com/noah-isme/gema-survey-api/internal/models"
	"github.com/noah-isme/gema-survey-api/internal/observability"
	"github.com/noah-isme/gema-survey-api/internal/repository"
)

const surveyTokenAttempts = 3

// StatisticsInvalidator drops cached statistics after assignments or responses change.
type StatisticsInvalidator interface {
	Invalidate(ctx context.Context)
}

// SurveyAssignmentService issues templates to students and tracks assignment lifecycle.
type SurveyAssignmentService interface {
	Assign(ctx context.Context, payload dto.SurveyAssignRequest, actor ActivityActor) (dto.SurveyAssignResponse, error)
	Cancel(ctx context.Context, id uint, actor ActivityActor) error
	Get(ctx context.Context, id uint) (dto.SurveyAssignmentResponse, error)
	GetByToken(ctx context.Context, token string) (*dto.SurveyAssignmentResponse, error)
	PendingForStudent(ctx context.Context, studentID uint) ([]dto.SurveyAssignmentResponse, error)
	List(ctx context.Context, req dto.SurveyAssignmentListRequest) ([]dto.SurveyAssignmentResponse, error)
	Subscribe(studentID *uint) (<-chan []dto.SurveyAssignmentResponse, func())
	SubscribePending(studentID uint) (<-chan []dto.SurveyAssignmentResponse, func())
	ExpireOverdue(ctx context.Context, actor ActivityActor) (int64, error)
	StartExpirySweep(ctx context.Context, interval time.Duration)
}

type surveyAssignmentService struct {
	assignments repository.SurveyAssignmentRepository
	templates   repository.SurveyTemplateRepository
	students    repository.StudentRepository
	feed        SurveyFeed
	stats       StatisticsInvalidator
	validator   *validator.Validate
	activity    ActivityRecorder
	logger      zerolog.Logger
	tracer      trace.Tracer
	newToken    TokenGenerator
	now         func() time.Time
}

// NewSurveyAssignmentService constructs the assignment manager.
func NewSurveyAssignmentService(
	assignments repository.SurveyAssignmentRepository,
	templates repository.SurveyTemplateRepository,
	students repository.StudentRepository,
	feed SurveyFeed,
	stats StatisticsInvalidator,
	validate *validator.Validate,
	activity ActivityRecorder,
	logger zerolog.Logger,
) SurveyAssignmentService {
	return &surveyAssignmentService{
		assignments: assignments,
		templates:   templates,
		students:    students,
		feed:        feed,
		stats:       stats,
		validator:   validate,
		activity:    activity,
		logger:      logger.With().Str("component", "survey_assignment_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/gema-survey-api/internal/service/survey_assignment"),
		newToken:    NewSurveyToken,
		now:         time.Now,
	}
}

// Assign creates one pending assignment per requested student. Students that already hold
// a pending assignment for the template, or that do not exist, are reported per student
// rather than failing the whole request.
func (s *surveyAssignmentService) Assign(ctx context.Context, payload dto.SurveyAssignRequest, actor ActivityActor) (dto.SurveyAssignResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SurveyAssignResponse{}, err
	}

	now := s.now()
	var expiresAt *time.Time
	if payload.ExpiresAt != nil && strings.TrimSpace(*payload.ExpiresAt) != "" {
		parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(*payload.ExpiresAt))
		if err != nil {
			return dto.SurveyAssignResponse{}, newSurveyValidationError("expires_at must be RFC3339")
		}
		if !parsed.After(now) {
			return dto.SurveyAssignResponse{}, newSurveyValidationError("expires_at must be in the future")
		}
		expiresAt = &parsed
	}

	spanCtx, span := s.tracer.Start(ctx, "surveys.assign", trace.WithAttributes(
		attribute.Int("survey.template_id", int(payload.TemplateID)),
		attribute.Int("survey.students", len(payload.StudentIDs)),
	))
	defer span.End()

	template, err := s.templates.GetByID(spanCtx, payload.TemplateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SurveyAssignResponse{}, ErrSurveyTemplateNotFound
		}
		span.RecordError(err)
		return dto.SurveyAssignResponse{}, err
	}

	studentIDs := uniqueIDs(payload.StudentIDs)
	students, err := s.students.ListByIDs(spanCtx, studentIDs)
	if err != nil {
		span.RecordError(err)
		return dto.SurveyAssignResponse{}, err
	}
	byID := make(map[uint]models.Student, len(students))
	for _, student := range students {
		byID[student.ID] = student
	}

	var assignedBy *uint
	if actor.ID > 0 {
		assignedBy = uintPtr(actor.ID)
	}

	result := dto.SurveyAssignResponse{
		Created:  make([]dto.SurveyAssignmentResponse, 0, len(studentIDs)),
		Outcomes: make([]dto.SurveyAssignOutcome, 0, len(studentIDs)),
	}
	counts := map[string]int{}

	for _, studentID := range studentIDs {
		student, ok := byID[studentID]
		if !ok {
			result.Outcomes = append(result.Outcomes, dto.SurveyAssignOutcome{StudentID: studentID, Outcome: dto.SurveyAssignOutcomeSkippedNotFound})
			counts[dto.SurveyAssignOutcomeSkippedNotFound]++
			continue
		}

		assignment := models.SurveyAssignment{
			TemplateID:   template.ID,
			TemplateName: template.Name,
			StudentID:    student.ID,
			StudentName:  student.Name,
			StudentCode:  optionalString(student.Code),
			ClassID:      student.ClassID,
			ClassName:    optionalString(student.ClassName),
			AssignedAt:   now,
			AssignedBy:   assignedBy,
			ExpiresAt:    expiresAt,
		}

		outcome, err := s.createPending(spanCtx, &assignment)
		if err != nil {
			span.RecordError(err)
			s.finishAssign(ctx, actor, template, counts)
			return result, err
		}

		entry := dto.SurveyAssignOutcome{StudentID: studentID, Outcome: outcome}
		if outcome == dto.SurveyAssignOutcomeCreated {
			entry.AssignmentID = uintPtr(assignment.ID)
			result.Created = append(result.Created, dto.NewSurveyAssignmentResponse(assignment, now))
		}
		result.Outcomes = append(result.Outcomes, entry)
		counts[outcome]++
	}

	s.finishAssign(ctx, actor, template, counts)
	return result, nil
}

// createPending runs the conditional insert. When nothing was inserted either a pending
// assignment already exists or the token collided, in which case a new token is drawn.
func (s *surveyAssignmentService) createPending(ctx context.Context, assignment *models.SurveyAssignment) (string, error) {
	for attempt := 0; attempt < surveyTokenAttempts; attempt++ {
		token, err := s.newToken()
		if err != nil {
			return "", err
		}
		assignment.ID = 0
		assignment.Token = token

		created, err := s.assignments.CreatePending(ctx, assignment)
		if err != nil {
			return "", fmt.Errorf("create survey assignment: %w", err)
		}
		if created {
			return dto.SurveyAssignOutcomeCreated, nil
		}

		if _, err := s.assignments.FindPending(ctx, assignment.TemplateID, assignment.StudentID); err == nil {
			return dto.SurveyAssignOutcomeSkippedPending, nil
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return "", err
		}

		s.logger.Warn().Uint("student_id", assignment.StudentID).Int("attempt", attempt+1).Msg("survey token collision, regenerating")
	}

	return "", fmt.Errorf("allocate survey token for student %d: exhausted %d attempts", assignment.StudentID, surveyTokenAttempts)
}

func (s *surveyAssignmentService) finishAssign(ctx context.Context, actor ActivityActor, template models.SurveyTemplate, counts map[string]int) {
	for outcome, count := range counts {
		observability.SurveyAssignOutcomes().WithLabelValues(outcome).Add(float64(count))
	}

	if counts[dto.SurveyAssignOutcomeCreated] == 0 {
		return
	}

	s.changed(ctx)
	recordActivity(ctx, s.activity, s.logger, actor, ActivitySurveyAssignmentIssued, "survey_template", uintPtr(template.ID), map[string]interface{}{
		"template_name":     template.Name,
		"created":           counts[dto.SurveyAssignOutcomeCreated],
		"skipped_pending":   counts[dto.SurveyAssignOutcomeSkippedPending],
		"skipped_not_found": counts[dto.SurveyAssignOutcomeSkippedNotFound],
	})
}

// Cancel deletes the assignment whatever its status.
func (s *surveyAssignmentService) Cancel(ctx context.Context, id uint, actor ActivityActor) error {
	assignment, err := s.assignments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSurveyAssignmentNotFound
		}
		return err
	}

	if err := s.assignments.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSurveyAssignmentNotFound
		}
		return err
	}

	s.changed(ctx)
	recordActivity(ctx, s.activity, s.logger, actor, ActivitySurveyAssignmentRevoked, "survey_assignment", uintPtr(id), map[string]interface{}{
		"template_id": assignment.TemplateID,
		"student_id":  assignment.StudentID,
		"status":      assignment.EffectiveStatus(s.now()),
	})
	return nil
}

func (s *surveyAssignmentService) Get(ctx context.Context, id uint) (dto.SurveyAssignmentResponse, error) {
	assignment, err := s.assignments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SurveyAssignmentResponse{}, ErrSurveyAssignmentNotFound
		}
		return dto.SurveyAssignmentResponse{}, err
	}
	return dto.NewSurveyAssignmentResponse(assignment, s.now()), nil
}

// GetByToken returns nil without an error when no assignment owns the token.
func (s *surveyAssignmentService) GetByToken(ctx context.Context, token string) (*dto.SurveyAssignmentResponse, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}

	assignment, err := s.assignments.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	response := dto.NewSurveyAssignmentResponse(assignment, s.now())
	return &response, nil
}

func (s *surveyAssignmentService) PendingForStudent(ctx context.Context, studentID uint) ([]dto.SurveyAssignmentResponse, error) {
	assignments, err := s.assignments.List(ctx, repository.SurveyAssignmentFilter{
		StudentID: &studentID,
		Status:    models.SurveyAssignmentStatusPending,
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	pending := make([]dto.SurveyAssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		if assignment.IsPastExpiry(now) {
			continue
		}
		pending = append(pending, dto.NewSurveyAssignmentResponse(assignment, now))
	}
	return pending, nil
}

func (s *surveyAssignmentService) List(ctx context.Context, req dto.SurveyAssignmentListRequest) ([]dto.SurveyAssignmentResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	filter := repository.SurveyAssignmentFilter{
		TemplateID: req.TemplateID,
		StudentID:  req.StudentID,
	}

	// Lazily expired rows are still stored as pending, so status filtering happens here.
	assignments, err := s.assignments.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	now := s.now()
	items := make([]dto.SurveyAssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		if req.Status != "" && assignment.EffectiveStatus(now) != req.Status {
			continue
		}
		items = append(items, dto.NewSurveyAssignmentResponse(assignment, now))
	}
	return items, nil
}

func (s *surveyAssignmentService) Subscribe(studentID *uint) (<-chan []dto.SurveyAssignmentResponse, func()) {
	return streamSnapshots(s.feed, SurveyCollectionAssignments, s.logger, func(ctx context.Context) ([]dto.SurveyAssignmentResponse, error) {
		return s.List(ctx, dto.SurveyAssignmentListRequest{StudentID: studentID})
	})
}

func (s *surveyAssignmentService) SubscribePending(studentID uint) (<-chan []dto.SurveyAssignmentResponse, func()) {
	return streamSnapshots(s.feed, SurveyCollectionAssignments, s.logger, func(ctx context.Context) ([]dto.SurveyAssignmentResponse, error) {
		return s.PendingForStudent(ctx, studentID)
	})
}

func (s *surveyAssignmentService) ExpireOverdue(ctx context.Context, actor ActivityActor) (int64, error) {
	expired, err := s.expire(ctx)
	if err != nil {
		return 0, err
	}

	recordActivity(ctx, s.activity, s.logger, actor, ActivitySurveyAssignmentsExpire, "survey_assignment", nil, map[string]interface{}{
		"expired": expired,
	})
	return expired, nil
}

// StartExpirySweep runs the expiry sweep once and then on every tick until ctx is done.
func (s *surveyAssignmentService) StartExpirySweep(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			if _, err := s.expire(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error().Err(err).Msg("survey expiry sweep failed")
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

func (s *surveyAssignmentService) expire(ctx context.Context) (int64, error) {
	expired, err := s.assignments.ExpireOverdue(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if expired > 0 {
		observability.SurveyAssignmentsExpired().Add(float64(expired))
		s.logger.Info().Int64("expired", expired).Msg("overdue survey assignments expired")
		s.changed(ctx)
	}
	return expired, nil
}

func (s *surveyAssignmentService) changed(ctx context.Context) {
	if s.feed != nil {
		s.feed.Notify(ctx, SurveyCollectionAssignments)
	}
	if s.stats != nil {
		s.stats.Invalidate(ctx)
	}
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	unique := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return unique
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
