package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/noah-isme/gema-survey-api/internal/dto"
	"github.com/noah-isme/gema-survey-api/internal/models"
	"github.com/noah-isme/gema-survey-api/internal/repository"
)

// Audit actions written by survey administration.
const (
	ActivitySurveyTemplateCreated   = "survey_template.created"
	ActivitySurveyTemplateUpdated   = "survey_template.updated"
	ActivitySurveyTemplateDeleted   = "survey_template.deleted"
	ActivitySurveyTemplatesSeeded   = "survey_template.defaults_seeded"
	ActivitySurveyAssignmentIssued  = "survey_assignment.issued"
	ActivitySurveyAssignmentRevoked = "survey_assignment.cancelled"
	ActivitySurveyAssignmentsExpire = "survey_assignment.expired"
	ActivityStudentCreated          = "student.created"
	ActivityStudentUpdated          = "student.updated"
	ActivityStudentDeleted          = "student.deleted"
)

// ErrActivityRangeInvalid indicates an audit query whose until bound precedes since.
var ErrActivityRangeInvalid = errors.New("activity range is invalid")

var maskedMetadataKeys = []string{"token", "password", "phone"}

// ActivityActor represents the authenticated actor performing an admin action.
type ActivityActor struct {
	ID            uint
	Role          string
	CorrelationID string
}

// ActivityEntry captures the details required to persist an audit entry.
type ActivityEntry struct {
	ActorID       uint
	ActorRole     string
	Action        string
	EntityType    string
	EntityID      *uint
	CorrelationID string
	Metadata      map[string]interface{}
}

// ActivityRecorder defines behaviour for recording activity logs.
type ActivityRecorder interface {
	Record(ctx context.Context, entry ActivityEntry) (dto.AdminActivityResponse, error)
}

// ActivityService exposes methods to query and persist activity logs.
type ActivityService interface {
	ActivityRecorder
	List(ctx context.Context, req dto.AdminActivityListRequest) (dto.AdminActivityListResponse, error)
}

type activityService struct {
	repo   repository.ActivityLogRepository
	logger zerolog.Logger
}

// NewActivityService constructs the activity log service.
func NewActivityService(repo repository.ActivityLogRepository, logger zerolog.Logger) ActivityService {
	return &activityService{
		repo:   repo,
		logger: logger.With().Str("component", "activity_service").Logger(),
	}
}

func (s *activityService) Record(ctx context.Context, entry ActivityEntry) (dto.AdminActivityResponse, error) {
	action := strings.ToLower(strings.TrimSpace(entry.Action))
	entityType := strings.ToLower(strings.TrimSpace(entry.EntityType))
	if action == "" {
		return dto.AdminActivityResponse{}, errors.New("action is required")
	}
	if entityType == "" {
		return dto.AdminActivityResponse{}, errors.New("entity type is required")
	}

	model := models.ActivityLog{
		ActorID:       entry.ActorID,
		ActorRole:     normalizeRole(entry.ActorRole),
		Action:        action,
		EntityType:    entityType,
		EntityID:      entry.EntityID,
		CorrelationID: strings.TrimSpace(entry.CorrelationID),
		Metadata:      sanitizeMetadata(entry.Metadata),
	}

	if err := s.repo.Create(ctx, &model); err != nil {
		s.logger.Error().Err(err).Str("action", action).Msg("failed to persist activity log")
		return dto.AdminActivityResponse{}, err
	}

	return dto.NewAdminActivityResponse(model), nil
}

func (s *activityService) List(ctx context.Context, req dto.AdminActivityListRequest) (dto.AdminActivityListResponse, error) {
	filter := repository.ActivityLogFilter{
		Page:          req.Page,
		PageSize:      req.PageSize,
		Action:        strings.TrimSpace(req.Action),
		EntityType:    strings.TrimSpace(req.EntityType),
		CorrelationID: strings.TrimSpace(req.CorrelationID),
		Since:         req.Since,
		Until:         req.Until,
	}
	if filter.Since != nil && filter.Until != nil && filter.Until.Before(*filter.Since) {
		return dto.AdminActivityListResponse{}, ErrActivityRangeInvalid
	}
	if req.ActorID > 0 {
		filter.ActorID = &req.ActorID
	}
	if req.EntityID > 0 {
		filter.EntityID = &req.EntityID
	}

	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.AdminActivityListResponse{}, err
	}

	items := make([]dto.AdminActivityResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.NewAdminActivityResponse(entry))
	}

	pagination := dto.NewPaginationMeta(maxInt(req.Page, 1), req.PageSize, total)
	if req.PageSize <= 0 {
		pagination.TotalPages = 1
	}

	return dto.AdminActivityListResponse{Items: items, Pagination: pagination}, nil
}

// recordActivity writes an audit entry and only logs a failure; the admin operation has
// already succeeded at this point.
func recordActivity(ctx context.Context, recorder ActivityRecorder, logger zerolog.Logger, actor ActivityActor, action, entityType string, entityID *uint, metadata map[string]interface{}) {
	if recorder == nil {
		return
	}
	if _, err := recorder.Record(ctx, ActivityEntry{
		ActorID:       actor.ID,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		CorrelationID: actor.CorrelationID,
		Metadata:      metadata,
	}); err != nil {
		logger.Warn().Err(err).Str("action", action).Msg("failed to record activity")
	}
}

func sanitizeMetadata(metadata map[string]interface{}) datatypes.JSONMap {
	sanitized := datatypes.JSONMap{}
	for key, value := range metadata {
		lower := strings.ToLower(key)
		masked := false
		for _, sensitive := range maskedMetadataKeys {
			if strings.Contains(lower, sensitive) {
				masked = true
				break
			}
		}
		if masked {
			sanitized[key] = "***"
			continue
		}
		sanitized[key] = value
	}
	return sanitized
}

func normalizeRole(role string) string {
	r := strings.ToLower(strings.TrimSpace(role))
	if r == "" {
		return "system"
	}
	return r
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func uintPtr(v uint) *uint {
	return &v
}
