package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-survey-api/internal/dto"
	"github.com/noah-isme/gema-survey-api/internal/models"
	"github.com/noah-isme/gema-survey-api/internal/observability"
	"github.com/noah-isme/gema-survey-api/internal/repository"
)

// ErrSurveyResponseNotFound indicates the response does not exist.
var ErrSurveyResponseNotFound = errors.New("survey response not found")

// SurveyResponseService records and reads survey responses.
type SurveyResponseService interface {
	Submit(ctx context.Context, payload dto.SurveyResponseCreateRequest) (dto.SurveySubmitResult, error)
	List(ctx context.Context, req dto.SurveyResponseListRequest) ([]dto.SurveyResponseResponse, error)
	Get(ctx context.Context, id uint) (dto.SurveyResponseResponse, error)
	Subscribe() (<-chan []dto.SurveyResponseResponse, func())
}

type surveyResponseService struct {
	repo      repository.SurveyResponseRepository
	feed      SurveyFeed
	stats     StatisticsInvalidator
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewSurveyResponseService constructs the response recorder.
func NewSurveyResponseService(repo repository.SurveyResponseRepository, feed SurveyFeed, stats StatisticsInvalidator, validate *validator.Validate, logger zerolog.Logger) SurveyResponseService {
	return &surveyResponseService{
		repo:      repo,
		feed:      feed,
		stats:     stats,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "survey_response_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/gema-survey-api/internal/service/survey_response"),
		now:       time.Now,
	}
}

// Submit persists the response with only its set optional fields. A referenced assignment
// is moved to submitted in the same transaction.
func (s *surveyResponseService) Submit(ctx context.Context, payload dto.SurveyResponseCreateRequest) (dto.SurveySubmitResult, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SurveySubmitResult{}, err
	}

	answers, err := s.cleanAnswers(payload.Answers)
	if err != nil {
		return dto.SurveySubmitResult{}, err
	}

	teacher := positiveScore(payload.TeacherScore)
	curriculum := positiveScore(payload.CurriculumScore)
	care := positiveScore(payload.CareScore)
	facilities := positiveScore(payload.FacilitiesScore)

	model := models.SurveyResponse{
		AssignmentID:    payload.AssignmentID,
		TemplateID:      payload.TemplateID,
		TemplateName:    payload.TemplateName,
		StudentID:       payload.StudentID,
		StudentName:     payload.StudentName,
		StudentCode:     s.cleanOptional(payload.StudentCode),
		ClassID:         payload.ClassID,
		ClassName:       s.cleanOptional(payload.ClassName),
		TeacherScore:    teacher,
		CurriculumScore: curriculum,
		CareScore:       care,
		FacilitiesScore: facilities,
		AverageScore:    averageScore(teacher, curriculum, care, facilities),
		Answers:         answers,
		Comments:        s.cleanOptional(payload.Comments),
		SubmittedAt:     s.now(),
		SubmittedBy:     payload.SubmittedBy,
		SubmitterName:   s.cleanOptional(payload.SubmitterName),
		SubmitterPhone:  s.cleanOptional(payload.SubmitterPhone),
	}

	attrs := []attribute.KeyValue{
		attribute.Int("survey.template_id", int(payload.TemplateID)),
		attribute.Int("survey.student_id", int(payload.StudentID)),
		attribute.String("survey.submitted_by", payload.SubmittedBy),
	}
	spanCtx, span := s.tracer.Start(ctx, "surveys.submit", trace.WithAttributes(attrs...))
	defer span.End()

	if err := s.repo.Record(spanCtx, &model); err != nil {
		span.RecordError(err)
		if errors.Is(err, repository.ErrSurveyAssignmentNotPending) {
			return dto.SurveySubmitResult{}, ErrSurveyAssignmentClosed
		}
		return dto.SurveySubmitResult{}, fmt.Errorf("record survey response: %w", err)
	}

	observability.SurveyResponses().WithLabelValues(model.SubmittedBy).Inc()
	s.logger.Info().
		Uint("response_id", model.ID).
		Uint("template_id", model.TemplateID).
		Uint("student_id", model.StudentID).
		Msg("survey response recorded")

	if s.feed != nil {
		s.feed.Notify(ctx, SurveyCollectionResponses)
		if model.AssignmentID != nil {
			s.feed.Notify(ctx, SurveyCollectionAssignments)
		}
	}
	if s.stats != nil {
		s.stats.Invalidate(ctx)
	}

	return dto.SurveySubmitResult{
		ResponseID:   model.ID,
		AssignmentID: model.AssignmentID,
		AverageScore: model.AverageScore,
	}, nil
}

func (s *surveyResponseService) List(ctx context.Context, req dto.SurveyResponseListRequest) ([]dto.SurveyResponseResponse, error) {
	responses, err := s.repo.List(ctx, repository.SurveyResponseFilter{
		TemplateID: req.TemplateID,
		StudentID:  req.StudentID,
		ClassID:    req.ClassID,
		From:       req.From,
		To:         req.To,
	})
	if err != nil {
		return nil, err
	}
	return dto.NewSurveyResponseResponseSlice(responses), nil
}

func (s *surveyResponseService) Get(ctx context.Context, id uint) (dto.SurveyResponseResponse, error) {
	response, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SurveyResponseResponse{}, ErrSurveyResponseNotFound
		}
		return dto.SurveyResponseResponse{}, err
	}
	return dto.NewSurveyResponseResponse(response), nil
}

func (s *surveyResponseService) Subscribe() (<-chan []dto.SurveyResponseResponse, func()) {
	return streamSnapshots(s.feed, SurveyCollectionResponses, s.logger, func(ctx context.Context) ([]dto.SurveyResponseResponse, error) {
		return s.List(ctx, dto.SurveyResponseListRequest{})
	})
}

// cleanAnswers keeps string and numeric answers. Strings lose any markup; empty strings
// are dropped.
func (s *surveyResponseService) cleanAnswers(answers map[string]interface{}) (datatypes.JSONMap, error) {
	cleaned := datatypes.JSONMap{}
	for key, value := range answers {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		switch v := value.(type) {
		case string:
			text := plainText(s.sanitizer, v)
			if text != "" {
				cleaned[key] = text
			}
		case nil:
		default:
			number, ok := numericAnswer(v)
			if !ok {
				return nil, newSurveyValidationError(fmt.Sprintf("answer %q must be text or a number", key))
			}
			cleaned[key] = number
		}
	}
	return cleaned, nil
}

func (s *surveyResponseService) cleanOptional(value *string) *string {
	if value == nil {
		return nil
	}
	cleaned := plainText(s.sanitizer, *value)
	if cleaned == "" {
		return nil
	}
	return &cleaned
}
