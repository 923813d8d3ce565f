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
	"gorm.io/gorm"

	"github.com/noah-isme/gema-survey-api/internal/dto"
	"github.com/noah-isme/gema-survey-api/internal/models"
	"github.com/noah-isme/gema-survey-api/internal/repository"
)

// SurveyTemplateService manages survey question sets.
type SurveyTemplateService interface {
	List(ctx context.Context) ([]dto.SurveyTemplateResponse, error)
	Get(ctx context.Context, id uint) (dto.SurveyTemplateResponse, error)
	Create(ctx context.Context, payload dto.SurveyTemplateCreateRequest, actor ActivityActor) (dto.SurveyTemplateResponse, error)
	Update(ctx context.Context, id uint, payload dto.SurveyTemplateUpdateRequest, actor ActivityActor) (dto.SurveyTemplateResponse, error)
	Delete(ctx context.Context, id uint, actor ActivityActor) error
	EnsureDefaults(ctx context.Context, actor ActivityActor) (int, error)
	Subscribe() (<-chan []dto.SurveyTemplateResponse, func())
}

type surveyTemplateService struct {
	repo      repository.SurveyTemplateRepository
	feed      SurveyFeed
	validator *validator.Validate
	activity  ActivityRecorder
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	now       func() time.Time
}

// NewSurveyTemplateService constructs the template service.
func NewSurveyTemplateService(repo repository.SurveyTemplateRepository, feed SurveyFeed, validate *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) SurveyTemplateService {
	return &surveyTemplateService{
		repo:      repo,
		feed:      feed,
		validator: validate,
		activity:  activity,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "survey_template_service").Logger(),
		now:       time.Now,
	}
}

func (s *surveyTemplateService) List(ctx context.Context) ([]dto.SurveyTemplateResponse, error) {
	templates, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return dto.NewSurveyTemplateResponseSlice(templates), nil
}

func (s *surveyTemplateService) Get(ctx context.Context, id uint) (dto.SurveyTemplateResponse, error) {
	template, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SurveyTemplateResponse{}, ErrSurveyTemplateNotFound
		}
		return dto.SurveyTemplateResponse{}, err
	}
	return dto.NewSurveyTemplateResponse(template), nil
}

func (s *surveyTemplateService) Create(ctx context.Context, payload dto.SurveyTemplateCreateRequest, actor ActivityActor) (dto.SurveyTemplateResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SurveyTemplateResponse{}, err
	}

	questions, err := s.normalizeQuestions(payload.Questions)
	if err != nil {
		return dto.SurveyTemplateResponse{}, err
	}

	status := payload.Status
	if status == "" {
		status = models.SurveyTemplateStatusActive
	}

	template := models.SurveyTemplate{
		Name:        s.clean(payload.Name),
		Description: s.clean(payload.Description),
		Questions:   questions,
		IsDefault:   payload.IsDefault,
		Status:      status,
	}
	if actor.ID > 0 {
		template.CreatedBy = uintPtr(actor.ID)
	}
	if template.Name == "" {
		return dto.SurveyTemplateResponse{}, newSurveyValidationError("template name is empty after sanitization")
	}

	if err := s.repo.Create(ctx, &template); err != nil {
		return dto.SurveyTemplateResponse{}, fmt.Errorf("create survey template: %w", err)
	}

	s.notify(ctx)
	recordActivity(ctx, s.activity, s.logger, actor, ActivitySurveyTemplateCreated, "survey_template", uintPtr(template.ID), map[string]interface{}{
		"name":      template.Name,
		"questions": len(template.Questions),
	})

	return dto.NewSurveyTemplateResponse(template), nil
}

func (s *surveyTemplateService) Update(ctx context.Context, id uint, payload dto.SurveyTemplateUpdateRequest, actor ActivityActor) (dto.SurveyTemplateResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SurveyTemplateResponse{}, err
	}

	template, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SurveyTemplateResponse{}, ErrSurveyTemplateNotFound
		}
		return dto.SurveyTemplateResponse{}, err
	}

	changed := make([]string, 0, 5)
	if payload.Name != nil {
		name := s.clean(*payload.Name)
		if name == "" {
			return dto.SurveyTemplateResponse{}, newSurveyValidationError("template name is empty after sanitization")
		}
		template.Name = name
		changed = append(changed, "name")
	}
	if payload.Description != nil {
		template.Description = s.clean(*payload.Description)
		changed = append(changed, "description")
	}
	if payload.Questions != nil {
		questions, err := s.normalizeQuestions(*payload.Questions)
		if err != nil {
			return dto.SurveyTemplateResponse{}, err
		}
		template.Questions = questions
		changed = append(changed, "questions")
	}
	if payload.IsDefault != nil {
		template.IsDefault = *payload.IsDefault
		changed = append(changed, "is_default")
	}
	if payload.Status != nil {
		template.Status = *payload.Status
		changed = append(changed, "status")
	}
	template.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, &template); err != nil {
		return dto.SurveyTemplateResponse{}, fmt.Errorf("update survey template: %w", err)
	}

	s.notify(ctx)
	recordActivity(ctx, s.activity, s.logger, actor, ActivitySurveyTemplateUpdated, "survey_template", uintPtr(template.ID), map[string]interface{}{
		"fields": changed,
	})

	return dto.NewSurveyTemplateResponse(template), nil
}

// Delete removes the template without touching assignments or responses; they keep the
// denormalised template name.
func (s *surveyTemplateService) Delete(ctx context.Context, id uint, actor ActivityActor) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSurveyTemplateNotFound
		}
		return err
	}

	s.notify(ctx)
	recordActivity(ctx, s.activity, s.logger, actor, ActivitySurveyTemplateDeleted, "survey_template", uintPtr(id), nil)
	return nil
}

// EnsureDefaults seeds the built-in templates only when no template exists at all.
func (s *surveyTemplateService) EnsureDefaults(ctx context.Context, actor ActivityActor) (int, error) {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}

	templates := defaultSurveyTemplates()
	for i := range templates {
		if actor.ID > 0 {
			templates[i].CreatedBy = uintPtr(actor.ID)
		}
	}

	if err := s.repo.CreateBatch(ctx, templates); err != nil {
		return 0, fmt.Errorf("seed default survey templates: %w", err)
	}

	s.logger.Info().Int("inserted", len(templates)).Msg("default survey templates seeded")
	s.notify(ctx)
	recordActivity(ctx, s.activity, s.logger, actor, ActivitySurveyTemplatesSeeded, "survey_template", nil, map[string]interface{}{
		"inserted": len(templates),
	})

	return len(templates), nil
}

func (s *surveyTemplateService) Subscribe() (<-chan []dto.SurveyTemplateResponse, func()) {
	return streamSnapshots(s.feed, SurveyCollectionTemplates, s.logger, s.List)
}

func (s *surveyTemplateService) normalizeQuestions(payload []dto.SurveyQuestionPayload) ([]models.SurveyQuestion, error) {
	seen := make(map[string]struct{}, len(payload))
	for i := range payload {
		payload[i].ID = strings.TrimSpace(payload[i].ID)
		payload[i].Question = s.clean(payload[i].Question)

		if _, dup := seen[payload[i].ID]; dup {
			return nil, newSurveyValidationError(fmt.Sprintf("duplicate question id %q", payload[i].ID))
		}
		seen[payload[i].ID] = struct{}{}

		if payload[i].Question == "" {
			return nil, newSurveyValidationError(fmt.Sprintf("question %q has no text", payload[i].ID))
		}
		if payload[i].Type == models.SurveyQuestionTypeChoice && len(payload[i].Options) == 0 {
			return nil, newSurveyValidationError(fmt.Sprintf("choice question %q needs options", payload[i].ID))
		}
		if payload[i].Type != models.SurveyQuestionTypeChoice {
			payload[i].Options = nil
		}
		for j := range payload[i].Options {
			payload[i].Options[j] = s.clean(payload[i].Options[j])
			if payload[i].Options[j] == "" {
				return nil, newSurveyValidationError(fmt.Sprintf("choice question %q has an empty option", payload[i].ID))
			}
		}
	}

	return dto.ToSurveyQuestions(payload), nil
}

func (s *surveyTemplateService) clean(value string) string {
	return plainText(s.sanitizer, value)
}

func (s *surveyTemplateService) notify(ctx context.Context) {
	if s.feed != nil {
		s.feed.Notify(ctx, SurveyCollectionTemplates)
	}
}
